// Package asr defines the Provider interface for speech-to-text backends
// consumed by the Transcriber component. Unlike a streaming STT interface,
// this is deliberately synchronous and utterance-at-a-time: the Transcriber
// already owns segmentation (via the VAD-driven segmenter) and calls
// Transcribe once per completed utterance, optionally passing the previous
// utterance's text as a conditioning prompt.
//
// Which concrete ASR engine sits behind this interface is out of scope for
// this service (see spec.md §1); pkg/provider/asr/whispercpp is one such
// concrete implementation, and pkg/provider/asr/mock exists for tests.
package asr

import "context"

// Provider transcribes a single utterance of 16 kHz mono float32 PCM audio
// into Korean text.
//
// Implementations must be safe for concurrent use: the Transcriber's worker
// pool (internal/workerpool) may call Transcribe concurrently for different
// sessions.
type Provider interface {
	// Transcribe returns the text for the given utterance. previousText, if
	// non-empty, is the text of the immediately preceding utterance in the
	// same session and may be used as a decoding prompt/context hint by
	// engines that support it; engines that do not support prompting should
	// simply ignore it. options carries the session's current whisperOptions
	// (e.g. beam size, temperature, language override), merged from
	// "tuning" messages; engines that do not support a given key should
	// ignore it rather than erroring.
	//
	// Returns an error only for engine-level failures (e.g. the backend is
	// unreachable). A correctly functioning engine that produces no
	// transcribable speech should return ("", nil).
	Transcribe(ctx context.Context, pcm []float32, previousText string, options map[string]any) (string, error)
}
