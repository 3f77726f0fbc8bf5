// Package segment turns a stream of raw PCM into discrete speech
// utterances using a VAD engine, the same way the original stream_manager's
// pcm_processing_task consumed an ffmpeg PCM queue one VAD frame at a time.
package segment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xenolive/liveasr/internal/constants"
	"github.com/xenolive/liveasr/pkg/provider/vad"
)

// Utterance is a contiguous span of speech audio bounded by silence on both
// sides, ready to be handed to a transcriber.
type Utterance struct {
	// PCM is s16le mono PCM at constants.SampleRate.
	PCM []byte
}

// Config tunes the segmenter's silence/duration thresholds. Both fields are
// mutable at runtime via Segmenter.SetTuning, which the session calls on the
// controller's "config" message.
type Config struct {
	// SilenceThresholdSeconds is how long VAD-classified silence must
	// persist after speech before the utterance is closed and emitted.
	SilenceThresholdSeconds float64

	// MinAudioDurationSeconds is the minimum utterance length required for
	// it to be emitted; shorter spans are discarded as noise bursts.
	MinAudioDurationSeconds float64

	// Aggressiveness is passed through to the VAD engine's Config.
	Aggressiveness int
}

// Segmenter consumes PCM chunks via Write, classifies them frame-by-frame
// with a VAD session, and emits completed Utterances on the channel
// returned by Utterances.
type Segmenter struct {
	streamID string
	logger   *slog.Logger

	vadSession vad.SessionHandle

	maxSilenceFrames int
	minAudioBytes    int

	pcmBuffer    []byte
	speechBuffer []byte
	isSpeaking   bool
	silenceRun   int

	out chan Utterance
}

// New creates a Segmenter backed by a fresh VAD session from engine.
func New(ctx context.Context, streamID string, engine vad.Engine, cfg Config, logger *slog.Logger) (*Segmenter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := engine.NewSession(vad.Config{
		SampleRate:     constants.SampleRate,
		FrameSizeMs:    constants.VADFrameMs,
		Aggressiveness: cfg.Aggressiveness,
	})
	if err != nil {
		return nil, fmt.Errorf("segment: create vad session: %w", err)
	}

	s := &Segmenter{
		streamID:   streamID,
		logger:     logger.With("stream_id", streamID, "component", "segment"),
		vadSession: session,
		out:        make(chan Utterance, 4),
	}
	s.applyTuning(cfg)
	return s, nil
}

// applyTuning recomputes frame/byte thresholds from a Config. Called on
// construction and whenever SetTuning updates the thresholds.
func (s *Segmenter) applyTuning(cfg Config) {
	s.maxSilenceFrames = int(cfg.SilenceThresholdSeconds * 1000 / constants.VADFrameMs)
	s.minAudioBytes = int(cfg.MinAudioDurationSeconds * constants.SampleRate * 2)
}

// SetTuning updates the silence/duration thresholds without resetting
// in-progress speech detection.
func (s *Segmenter) SetTuning(cfg Config) {
	s.applyTuning(cfg)
}

// Utterances returns the channel of completed utterances. Closed when the
// segmenter is closed.
func (s *Segmenter) Utterances() <-chan Utterance {
	return s.out
}

// Write feeds one chunk of PCM into the segmenter, splitting it into
// VAD-sized frames and advancing the speech/silence state machine. It must
// be called from a single goroutine.
func (s *Segmenter) Write(chunk []byte) error {
	s.pcmBuffer = append(s.pcmBuffer, chunk...)

	for len(s.pcmBuffer) >= constants.VADBytesPerFrame {
		frame := s.pcmBuffer[:constants.VADBytesPerFrame]
		s.pcmBuffer = s.pcmBuffer[constants.VADBytesPerFrame:]

		event, err := s.vadSession.ProcessFrame(frame)
		if err != nil {
			return fmt.Errorf("segment: process frame: %w", err)
		}
		isSpeech := event.Type == vad.VADSpeechStart || event.Type == vad.VADSpeechContinue

		switch {
		case s.isSpeaking:
			s.speechBuffer = append(s.speechBuffer, frame...)
			if !isSpeech {
				s.silenceRun++
				if s.silenceRun > s.maxSilenceFrames {
					s.closeUtterance()
				}
			} else {
				s.silenceRun = 0
			}
		case isSpeech:
			s.isSpeaking = true
			s.silenceRun = 0
			s.speechBuffer = append(s.speechBuffer[:0], frame...)
		}
	}
	return nil
}

// closeUtterance ends the current speech span, emitting it if it meets the
// minimum duration, and resets speech-tracking state.
func (s *Segmenter) closeUtterance() {
	s.isSpeaking = false
	if len(s.speechBuffer) >= s.minAudioBytes {
		pcm := make([]byte, len(s.speechBuffer))
		copy(pcm, s.speechBuffer)
		select {
		case s.out <- Utterance{PCM: pcm}:
		default:
			s.logger.Warn("utterance dropped, downstream consumer too slow")
		}
	}
	s.speechBuffer = s.speechBuffer[:0]
}

// Reset clears all accumulated state, discarding any in-progress utterance.
// A "stream_start" message does not call it: the session builds a fresh
// Segmenter instead.
func (s *Segmenter) Reset() {
	s.pcmBuffer = s.pcmBuffer[:0]
	s.speechBuffer = s.speechBuffer[:0]
	s.isSpeaking = false
	s.silenceRun = 0
	s.vadSession.Reset()
}

// Close releases the segmenter's VAD session and closes the utterance
// channel. Safe to call once.
func (s *Segmenter) Close() error {
	close(s.out)
	return s.vadSession.Close()
}
