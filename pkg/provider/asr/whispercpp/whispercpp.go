// Package whispercpp adapts the whisper.cpp Go CGO bindings into an
// asr.Provider. The whisper.cpp static library (libwhisper.a) and headers
// must be available at link time via LIBRARY_PATH and C_INCLUDE_PATH.
//
// Unlike a streaming STT session, this provider performs one batch
// inference per call to Transcribe, matching the Transcriber's
// segment-then-transcribe design: utterance boundaries are already decided
// by internal/segment before this provider ever sees the audio.
package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/xenolive/liveasr/pkg/provider/asr"
)

var _ asr.Provider = (*Provider)(nil)

// Provider implements asr.Provider using a shared whisper.cpp model. The
// model is loaded once and may be used to create many concurrent inference
// contexts; whisper.cpp contexts themselves are not safe for concurrent
// use, so Provider serialises calls with a mutex rather than exposing that
// constraint to callers.
type Provider struct {
	mu       sync.Mutex
	model    whisperlib.Model
	language string
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code passed to whisper.cpp. Defaults
// to "ko" since this service transcribes Korean speech.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// New loads the whisper.cpp model at modelPath and returns a Provider backed
// by it. The caller must call Close when the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whispercpp: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: load model %q: %w", modelPath, err)
	}

	p := &Provider{model: model, language: "ko"}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the underlying whisper.cpp model.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements asr.Provider. Each call creates a fresh whisper.cpp
// context from the shared model (contexts are cheap relative to the model
// load) and runs a single batch inference over pcm.
//
// TODO: the vendored whisper.cpp bindings do not expose beam_size or
// temperature setters on Context, so options keys other than "language" are
// currently accepted but unused; wire them through once the bindings grow
// that API.
//
// TODO: the bindings also do not expose an initial-prompt setter, so
// previousText is currently accepted but unused.
func (p *Provider) Transcribe(ctx context.Context, pcm []float32, previousText string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(pcm) == 0 {
		return "", nil
	}

	language := p.language
	if v, ok := options["language"].(string); ok && v != "" {
		language = v
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whispercpp: create context: %w", err)
	}

	if err := wctx.SetLanguage(language); err != nil {
		return "", fmt.Errorf("whispercpp: set language %q: %w", language, err)
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whispercpp: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whispercpp: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
