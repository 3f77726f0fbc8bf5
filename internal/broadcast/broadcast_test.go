package broadcast_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/xenolive/liveasr/internal/broadcast"
)

type fakeViewer struct {
	mu       sync.Mutex
	received [][]byte
	failNext bool
}

func (f *fakeViewer) Send(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return errors.New("send failed")
	}
	f.received = append(f.received, data)
	return nil
}

func (f *fakeViewer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func TestAddViewerReplaysConfigAndCache(t *testing.T) {
	b := broadcast.New(8, nil)
	ctx := context.Background()

	b.SetConfig(ctx, []byte(`{"type":"config","languages":["en"]}`))
	b.BroadcastCacheable(ctx, []byte(`{"type":"final_result","original":"hi"}`))

	v := &fakeViewer{}
	if err := b.AddViewer(ctx, v); err != nil {
		t.Fatalf("AddViewer: %v", err)
	}
	if v.count() != 2 {
		t.Fatalf("got %d messages replayed, want 2 (config + 1 cached)", v.count())
	}
}

func TestBroadcastTransientIsNotCached(t *testing.T) {
	b := broadcast.New(8, nil)
	ctx := context.Background()

	b.BroadcastTransient(ctx, []byte(`{"type":"interim_result","text":"partial"}`))

	v := &fakeViewer{}
	b.AddViewer(ctx, v)
	if v.count() != 0 {
		t.Fatalf("got %d replayed messages, want 0 (interim is never cached)", v.count())
	}
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	b := broadcast.New(2, nil)
	ctx := context.Background()

	b.BroadcastCacheable(ctx, []byte(`{"n":1}`))
	b.BroadcastCacheable(ctx, []byte(`{"n":2}`))
	b.BroadcastCacheable(ctx, []byte(`{"n":3}`))

	v := &fakeViewer{}
	b.AddViewer(ctx, v)
	if v.count() != 2 {
		t.Fatalf("got %d replayed messages, want 2 (capacity-bounded)", v.count())
	}
}

func TestSetConfigClearsCache(t *testing.T) {
	b := broadcast.New(8, nil)
	ctx := context.Background()

	b.BroadcastCacheable(ctx, []byte(`{"n":1}`))
	b.SetConfig(ctx, []byte(`{"type":"config","languages":["ja"]}`))

	v := &fakeViewer{}
	b.AddViewer(ctx, v)
	if v.count() != 1 {
		t.Fatalf("got %d replayed messages, want 1 (config only, cache was cleared)", v.count())
	}
}

func TestFailedSendRemovesViewer(t *testing.T) {
	b := broadcast.New(8, nil)
	ctx := context.Background()

	v := &fakeViewer{failNext: true}
	b.AddViewer(ctx, v)
	if b.ViewerCount() != 1 {
		t.Fatalf("expected viewer to be registered before a failing broadcast")
	}

	b.BroadcastCacheable(ctx, []byte(`{"n":1}`))

	// Broadcast runs the send concurrently; give it a moment is unnecessary
	// since BroadcastCacheable's internal WaitGroup blocks until complete.
	if b.ViewerCount() != 0 {
		t.Fatalf("expected the failing viewer to be removed, got %d viewers", b.ViewerCount())
	}
}
