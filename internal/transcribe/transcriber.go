// Package transcribe wraps an asr.Provider with the PCM conversion,
// optional band-pass preprocessing, and hallucination filtering every
// utterance goes through before its text reaches the aggregator.
package transcribe

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/xenolive/liveasr/internal/segment"
	"github.com/xenolive/liveasr/pkg/provider/asr"
)

// Transcriber turns segmented utterances into text, applying the same
// preprocessing and previous-text continuity the original whisper_model
// wrapper used.
type Transcriber struct {
	provider       asr.Provider
	bandPassFilter bool

	// mu guards options, the session's live whisperOptions. SetOptions
	// replaces it wholesale on a "tuning" message; Transcribe snapshots it
	// under the lock immediately before each call, per spec.md §5's
	// options-mutex discipline.
	mu      sync.Mutex
	options map[string]any
}

// Option is a functional option for Transcriber.
type Option func(*Transcriber)

// WithBandPassFilter enables the 300-3400Hz speech-band filter before
// transcription.
func WithBandPassFilter(enabled bool) Option {
	return func(t *Transcriber) { t.bandPassFilter = enabled }
}

// New creates a Transcriber backed by provider.
func New(provider asr.Provider, opts ...Option) *Transcriber {
	t := &Transcriber{provider: provider, options: map[string]any{}}
	for _, o := range opts {
		o(t)
	}
	return t
}

// SetOptions replaces the ASR engine parameters applied to every subsequent
// call to Transcribe. Called by internal/session whenever a "tuning"
// message merges new values into the session's whisperOptions.
func (t *Transcriber) SetOptions(options map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.options = options
}

// Transcribe converts utt.PCM to float32 samples, optionally band-pass
// filters them, and transcribes them with previousText supplied as
// continuity context. Transcripts that IsHallucination flags (they contain a
// blacklisted phrase and are not much longer than it) are discarded and
// returned as an empty string with no error.
func (t *Transcriber) Transcribe(ctx context.Context, utt segment.Utterance, previousText string) (string, error) {
	samples := pcmToFloat32(utt.PCM)
	if t.bandPassFilter {
		samples = BandPassFilter(samples, SampleRate)
	}

	t.mu.Lock()
	options := t.options
	t.mu.Unlock()

	text, err := t.provider.Transcribe(ctx, samples, previousText, options)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if IsHallucination(text) {
		return "", nil
	}
	return text, nil
}

// pcmToFloat32 converts 16-bit signed little-endian mono PCM to float32
// samples normalised to the range [-1.0, 1.0].
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}
