package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xenolive/liveasr/internal/workerpool"
)

func TestDoBoundsConcurrency(t *testing.T) {
	pool := workerpool.New(2)

	var inFlight int32
	var maxObserved int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = pool.Do(context.Background(), func(context.Context) (string, error) {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&maxObserved)
					if n <= old || atomic.CompareAndSwapInt32(&maxObserved, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return "ok", nil
			})
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxObserved); got > 2 {
		t.Fatalf("observed %d concurrent callers, want at most 2", got)
	}
}

func TestDoReturnsFnResult(t *testing.T) {
	pool := workerpool.New(1)

	text, err := pool.Do(context.Background(), func(context.Context) (string, error) {
		return "transcribed", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if text != "transcribed" {
		t.Fatalf("got %q, want %q", text, "transcribed")
	}
}

func TestDoPropagatesFnError(t *testing.T) {
	pool := workerpool.New(1)
	wantErr := errors.New("transcription failed")

	_, err := pool.Do(context.Background(), func(context.Context) (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got error %v, want %v", err, wantErr)
	}
}

func TestDoReturnsContextErrorWhenNoSlotFrees(t *testing.T) {
	pool := workerpool.New(1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = pool.Do(context.Background(), func(context.Context) (string, error) {
			close(started)
			<-release
			return "", nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := pool.Do(ctx, func(context.Context) (string, error) {
		t.Fatal("fn should not run when the pool has no free slot")
		return "", nil
	})
	if err == nil {
		t.Fatal("expected an error when the context times out waiting for a slot")
	}
}

func TestNewTreatsNonPositiveCapacityAsOne(t *testing.T) {
	pool := workerpool.New(0)
	if pool.Capacity() != 1 {
		t.Fatalf("got capacity %d, want 1", pool.Capacity())
	}
}
