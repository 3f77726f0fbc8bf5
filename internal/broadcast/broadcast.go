// Package broadcast fans out session updates to connected viewers and
// replays recent history to newly connected ones, mirroring
// StreamSession's viewers list plus bounded deque cache.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
)

// Viewer is anything broadcast can deliver a raw JSON message to. Kept
// narrow and transport-agnostic so internal/transport's websocket viewer
// connections, and tests, can both satisfy it.
type Viewer interface {
	Send(ctx context.Context, data []byte) error
}

// Broadcaster holds the set of connected viewers for a single session along
// with a bounded replay cache of cacheable messages (final_result and
// translation_result), and the most recent config snapshot sent to
// viewers in place of the controller-facing "config" message.
type Broadcaster struct {
	logger   *slog.Logger
	capacity int

	mu      sync.Mutex
	viewers map[Viewer]struct{}
	cache   [][]byte
	config  []byte
}

// New creates a Broadcaster retaining up to capacity cached messages for
// replay.
func New(capacity int, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		logger:   logger,
		capacity: capacity,
		viewers:  make(map[Viewer]struct{}),
	}
}

// AddViewer registers v and immediately sends it the current config
// snapshot followed by every cached message, in arrival order, the same
// onboarding sequence add_viewer used.
func (b *Broadcaster) AddViewer(ctx context.Context, v Viewer) error {
	b.mu.Lock()
	b.viewers[v] = struct{}{}
	config := b.config
	cached := make([][]byte, len(b.cache))
	copy(cached, b.cache)
	b.mu.Unlock()

	if config != nil {
		if err := v.Send(ctx, config); err != nil {
			return err
		}
	}
	for _, msg := range cached {
		if err := v.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// RemoveViewer unregisters v. Safe to call even if v was never added or was
// already removed.
func (b *Broadcaster) RemoveViewer(v Viewer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.viewers, v)
}

// ViewerCount returns the number of currently registered viewers.
func (b *Broadcaster) ViewerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.viewers)
}

// SetConfig replaces the config snapshot sent to newly connecting viewers
// and clears the replay cache, matching broadcast_to_viewers_and_cache's
// handling of a "config" update: the cache is invalidated because it holds
// results produced under the old language set.
func (b *Broadcaster) SetConfig(ctx context.Context, data []byte) {
	b.mu.Lock()
	b.config = data
	b.cache = nil
	b.mu.Unlock()
	b.broadcast(ctx, data)
}

// BroadcastCacheable appends data to the replay cache (evicting the oldest
// entry once capacity is exceeded) and broadcasts it to every viewer. Used
// for final_result and translation_result messages.
func (b *Broadcaster) BroadcastCacheable(ctx context.Context, data []byte) {
	b.mu.Lock()
	b.cache = append(b.cache, data)
	if len(b.cache) > b.capacity {
		b.cache = b.cache[len(b.cache)-b.capacity:]
	}
	b.mu.Unlock()
	b.broadcast(ctx, data)
}

// BroadcastTransient broadcasts data to every viewer without caching it.
// Used for interim_result messages, which are never replayed to a newly
// connecting viewer.
func (b *Broadcaster) BroadcastTransient(ctx context.Context, data []byte) {
	b.broadcast(ctx, data)
}

// broadcast sends data to every registered viewer concurrently, removing
// any viewer whose send fails.
func (b *Broadcaster) broadcast(ctx context.Context, data []byte) {
	b.mu.Lock()
	targets := make([]Viewer, 0, len(b.viewers))
	for v := range b.viewers {
		targets = append(targets, v)
	}
	b.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, v := range targets {
		wg.Add(1)
		go func(v Viewer) {
			defer wg.Done()
			if err := v.Send(ctx, data); err != nil {
				b.logger.Warn("viewer send failed, removing", "error", err)
				b.RemoveViewer(v)
			}
		}(v)
	}
	wg.Wait()
}
