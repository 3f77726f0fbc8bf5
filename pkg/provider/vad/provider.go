// Package vad defines the Engine interface for Voice Activity Detection
// backends consumed by internal/segment.
//
// VAD is synchronous by design: ProcessFrame returns immediately with a
// detection result, making it suitable for a low-latency pipeline stage
// that gates transcription input.
//
// Implementations must be safe for concurrent use across different
// sessions. A single SessionHandle should not be shared across goroutines.
package vad

// Config holds the parameters for a VAD session.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the
	// PCM frames passed to ProcessFrame.
	SampleRate int

	// FrameSizeMs is the duration of each audio frame in milliseconds.
	// ProcessFrame returns an error if the supplied frame does not match
	// this size.
	FrameSizeMs int

	// Aggressiveness selects the engine's sensitivity to silence, on the
	// classic 0-3 scale: 0 is the most permissive (classifies more frames as
	// speech), 3 is the most aggressive about classifying frames as
	// silence. Engines that use a continuous probability score instead may
	// derive SpeechThreshold/SilenceThreshold from this value.
	Aggressiveness int
}

// SessionHandle represents an active VAD session for a single audio stream.
// Each session maintains its own detection state; Reset clears this state
// without closing the session.
type SessionHandle interface {
	// ProcessFrame analyses a single audio frame and returns the detection
	// result. The frame must be raw little-endian PCM at the SampleRate and
	// FrameSizeMs configured when the session was created.
	//
	// This method is designed to be called synchronously in the audio
	// pipeline loop; it must not block.
	ProcessFrame(frame []byte) (VADEvent, error)

	// Reset clears all accumulated detection state without closing the
	// session. Used when the audio stream is interrupted or restarted.
	Reset()

	// Close releases all resources associated with the session. Calling
	// Close more than once is safe and returns nil.
	Close() error
}

// Engine is the factory for VAD sessions.
type Engine interface {
	// NewSession creates a new VAD session with the given configuration. The
	// session is immediately ready to accept audio frames.
	NewSession(cfg Config) (SessionHandle, error)
}
