package decode_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/xenolive/liveasr/internal/decode"
)

// TestSubprocessEchoesInput uses "cat" as a stand-in for ffmpeg: it proves
// the Subprocess decoder correctly wires stdin/stdout/stderr and forwards
// bytes written to it back out on the PCM channel.
func TestSubprocessEchoesInput(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d, err := decode.NewSubprocess(ctx, "test-stream", []string{"cat"}, nil)
	if err != nil {
		t.Fatalf("NewSubprocess: %v", err)
	}
	defer d.Close()

	payload := []byte("hello pcm")
	if err := d.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	d.Close()

	var got []byte
	for chunk := range d.PCM() {
		got = append(got, chunk...)
	}

	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestNewSubprocessRejectsEmptyCommand(t *testing.T) {
	_, err := decode.NewSubprocess(context.Background(), "test-stream", nil, nil)
	if err == nil {
		t.Fatal("expected error for empty command")
	}
}

var _ io.Closer = (*decode.Subprocess)(nil)
