// Package decode turns a controller's incoming audio stream into raw 16 kHz
// mono 16-bit PCM, the format every downstream pipeline stage (VAD,
// segmentation, transcription) expects.
//
// Two Decoder implementations are provided: Subprocess, which shells out to
// ffmpeg to demux an arbitrary WebM/Opus browser recording, and Opus, which
// decodes raw length-prefixed Opus packets in-process using gopus. Which one
// a session uses is selected by config.DecoderConfig.Mode.
package decode

import (
	"context"
)

// Decoder consumes encoded audio chunks written via Write and produces
// decoded PCM chunks on the channel returned by PCM. Implementations must be
// safe to Close concurrently with Write/PCM consumption.
type Decoder interface {
	// Write feeds one chunk of encoded audio (as received from the
	// controller's WebSocket binary frames) into the decoder.
	Write(chunk []byte) error

	// PCM returns the channel of decoded s16le mono PCM chunks. The channel
	// is closed when the decoder shuts down, whether due to Close, a
	// upstream error, or the underlying process exiting.
	PCM() <-chan []byte

	// Err returns the error that caused the decoder to stop, if any. It is
	// only meaningful after the PCM channel has been closed.
	Err() error

	// Close releases all resources held by the decoder. Safe to call more
	// than once.
	Close() error
}

// Factory constructs a Decoder for a single session. streamID is used only
// for log correlation.
type Factory func(ctx context.Context, streamID string) (Decoder, error)
