// Package energy implements a dependency-free RMS energy based VAD engine.
// It trades the accuracy of a model-based detector (e.g. Silero, WebRTC VAD)
// for zero external dependencies, and is suitable as the default engine when
// no VAD model is configured.
package energy

import (
	"fmt"
	"math"
	"sync"

	"github.com/xenolive/liveasr/pkg/provider/vad"
)

var _ vad.Engine = (*Engine)(nil)

// Engine is a stateless factory for energy-based VAD sessions.
type Engine struct{}

// New returns a new energy-based VAD Engine.
func New() *Engine {
	return &Engine{}
}

// NewSession implements vad.Engine.
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("energy: SampleRate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.FrameSizeMs <= 0 {
		return nil, fmt.Errorf("energy: FrameSizeMs must be positive, got %d", cfg.FrameSizeMs)
	}
	frameBytes := (cfg.SampleRate * cfg.FrameSizeMs) / 1000 * 2

	return &Session{
		frameBytes:   frameBytes,
		threshold:    thresholdForAggressiveness(cfg.Aggressiveness),
		minConfirmed: confirmFramesForAggressiveness(cfg.Aggressiveness),
	}, nil
}

// thresholdForAggressiveness maps the classic 0-3 aggressiveness scale onto
// an RMS threshold (samples normalised to [-1,1]). Higher aggressiveness
// requires louder audio before classifying it as speech, mirroring how
// probability-based engines become stricter about rejecting background
// noise as the setting increases.
func thresholdForAggressiveness(a int) float64 {
	switch {
	case a <= 0:
		return 0.01
	case a == 1:
		return 0.02
	case a == 2:
		return 0.035
	default:
		return 0.05
	}
}

// confirmFramesForAggressiveness returns the number of consecutive
// above-threshold frames required before a speech start is reported. Higher
// aggressiveness demands a longer confirmed run, reducing false triggers on
// transient noise.
func confirmFramesForAggressiveness(a int) int {
	switch {
	case a <= 0:
		return 3
	case a == 1:
		return 5
	case a == 2:
		return 7
	default:
		return 9
	}
}

// Session implements vad.SessionHandle using RMS energy with hysteresis.
type Session struct {
	mu sync.Mutex

	frameBytes   int
	threshold    float64
	minConfirmed int

	speaking          bool
	consecutiveFrames int
	silenceFrames     int
}

var _ vad.SessionHandle = (*Session)(nil)

// silenceFramesLimit is the number of consecutive below-threshold frames
// tolerated while speaking before a speech end is reported. It is
// independent of internal/segment's own silence-duration bookkeeping, which
// owns the authoritative utterance-boundary decision; this session-local limit only
// prevents a single dropped frame from re-triggering speech-start spuriously.
const silenceFramesLimit = 3

// ProcessFrame implements vad.SessionHandle.
func (s *Session) ProcessFrame(frame []byte) (vad.VADEvent, error) {
	if len(frame) != s.frameBytes {
		return vad.VADEvent{}, fmt.Errorf("energy: frame is %d bytes, want %d", len(frame), s.frameBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rms := calculateRMS(frame)

	if rms > s.threshold {
		s.silenceFrames = 0
		s.consecutiveFrames++
		if !s.speaking {
			if s.consecutiveFrames >= s.minConfirmed {
				s.speaking = true
				return vad.VADEvent{Type: vad.VADSpeechStart, Probability: 1.0}, nil
			}
			return vad.VADEvent{Type: vad.VADSilence, Probability: 0.0}, nil
		}
		return vad.VADEvent{Type: vad.VADSpeechContinue, Probability: 1.0}, nil
	}

	s.consecutiveFrames = 0
	if s.speaking {
		s.silenceFrames++
		if s.silenceFrames >= silenceFramesLimit {
			s.speaking = false
			s.silenceFrames = 0
			return vad.VADEvent{Type: vad.VADSpeechEnd, Probability: 0.0}, nil
		}
		return vad.VADEvent{Type: vad.VADSpeechContinue, Probability: 0.0}, nil
	}

	return vad.VADEvent{Type: vad.VADSilence, Probability: 0.0}, nil
}

// Reset implements vad.SessionHandle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaking = false
	s.consecutiveFrames = 0
	s.silenceFrames = 0
}

// Close implements vad.SessionHandle. The energy engine holds no external
// resources, so Close is a no-op.
func (s *Session) Close() error {
	return nil
}

// calculateRMS computes the root-mean-square of 16-bit little-endian PCM
// samples, normalised to [-1, 1].
func calculateRMS(frame []byte) float64 {
	if len(frame) < 2 {
		return 0
	}
	var sum float64
	n := 0
	for i := 0; i+1 < len(frame); i += 2 {
		sample := int16(frame[i]) | int16(frame[i+1])<<8
		f := float64(sample) / 32768.0
		sum += f * f
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
