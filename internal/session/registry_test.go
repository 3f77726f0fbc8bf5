package session_test

import (
	"context"
	"testing"

	"github.com/xenolive/liveasr/internal/constants"
	"github.com/xenolive/liveasr/internal/decode"
	"github.com/xenolive/liveasr/internal/fanout"
	"github.com/xenolive/liveasr/internal/session"
	"github.com/xenolive/liveasr/internal/transcribe"
	asrmock "github.com/xenolive/liveasr/pkg/provider/asr/mock"
	vadmock "github.com/xenolive/liveasr/pkg/provider/vad/mock"
)

func newTestRegistry(t *testing.T) *session.Registry {
	t.Helper()
	return session.NewRegistry(session.Deps{
		ASRTranscriber: transcribe.New(&asrmock.Provider{Default: "hi"}),
		VADEngine:      &vadmock.Engine{},
		DecoderFactory: func(context.Context, string) (decode.Decoder, error) {
			return newFakeDecoder(), nil
		},
		Translators:       map[string]*fanout.Dispatcher{},
		DefaultEngine:     "google",
		BroadcastCapacity: constants.ReplayCacheCapacity,
		UploadsDir:        t.TempDir(),
		Aggressiveness:    constants.DefaultVADAggressiveness,
	})
}

func TestGetOrCreateReturnsSameSessionForSameID(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	a := r.GetOrCreate(ctx, "stream-a")
	b := r.GetOrCreate(ctx, "stream-a")
	if a != b {
		t.Fatal("expected the same *Session for the same stream ID")
	}
	if r.Count() != 1 {
		t.Fatalf("got %d sessions, want 1", r.Count())
	}
}

func TestGetOrCreateDistinguishesStreamIDs(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	r.GetOrCreate(ctx, "stream-a")
	r.GetOrCreate(ctx, "stream-b")
	if r.Count() != 2 {
		t.Fatalf("got %d sessions, want 2", r.Count())
	}
}

func TestRemoveIfEmptyDropsSessionWithNoControllerOrViewers(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	r.GetOrCreate(ctx, "stream-a")
	r.RemoveIfEmpty("stream-a")
	if r.Count() != 0 {
		t.Fatalf("got %d sessions, want 0 after removing an empty one", r.Count())
	}
}

func TestRemoveIfEmptyKeepsSessionWithController(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	s := r.GetOrCreate(ctx, "stream-a")
	if err := s.SetController(ctx, newFakeController()); err != nil {
		t.Fatalf("SetController: %v", err)
	}

	r.RemoveIfEmpty("stream-a")
	if r.Count() != 1 {
		t.Fatalf("got %d sessions, want 1 (session has a controller)", r.Count())
	}
}
