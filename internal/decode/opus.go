package decode

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"layeh.com/gopus"
)

// opusSampleRate and opusFrameSize describe the raw Opus packets this
// decoder accepts: mono audio at the service's target sample rate, 20ms
// frames. This is an alternate, in-process decode path for clients able to
// frame their own Opus stream (length-prefixed packets) instead of
// delegating container demuxing to ffmpeg.
const (
	opusSampleRate  = 16000
	opusChannels    = 1
	opusFrameSizeMs = 20
	opusFrameSize   = opusSampleRate * opusFrameSizeMs / 1000 // 320 samples
)

var _ Decoder = (*Opus)(nil)

// Opus decodes a stream of length-prefixed raw Opus packets
// (uint32 big-endian length followed by that many bytes) into s16le mono
// PCM, entirely in-process.
type Opus struct {
	streamID string
	logger   *slog.Logger

	dec *gopus.Decoder

	mu      sync.Mutex
	pending []byte
	pcm     chan []byte
	err     error
	closed  bool
}

// NewOpus creates an in-process Opus decoder for streamID.
func NewOpus(streamID string, logger *slog.Logger) (*Opus, error) {
	dec, err := gopus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		return nil, fmt.Errorf("decode: create opus decoder: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Opus{
		streamID: streamID,
		logger:   logger.With("stream_id", streamID, "component", "decode.opus"),
		dec:      dec,
		pcm:      make(chan []byte, 32),
	}, nil
}

// Write implements Decoder. chunk carries length-prefixed Opus packets;
// a packet may be split across calls, since incomplete trailing bytes are
// buffered internally until the rest arrives.
func (o *Opus) Write(chunk []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("decode: opus decoder closed")
	}

	o.pending = append(o.pending, chunk...)
	for {
		if len(o.pending) < 4 {
			return nil
		}
		packetLen := binary.BigEndian.Uint32(o.pending[:4])
		if uint32(len(o.pending)-4) < packetLen {
			return nil
		}
		packet := o.pending[4 : 4+packetLen]
		o.pending = o.pending[4+packetLen:]

		samples, err := o.dec.Decode(packet, opusFrameSize, false)
		if err != nil {
			o.err = fmt.Errorf("decode: opus decode: %w", err)
			o.logger.Warn("opus packet decode failed", "error", err)
			continue
		}
		o.pcm <- int16sToBytes(samples)
	}
}

// PCM implements Decoder.
func (o *Opus) PCM() <-chan []byte {
	return o.pcm
}

// Err implements Decoder.
func (o *Opus) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Close implements Decoder.
func (o *Opus) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	close(o.pcm)
	return nil
}

// int16sToBytes converts interleaved int16 PCM samples to little-endian bytes.
func int16sToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
