// Package workerpool bounds how many CPU/GPU-bound transcription calls may
// run concurrently across every active stream, so one very talkative stream
// cannot starve the others of the shared whisper.cpp (or remote ASR)
// capacity, per spec.md §5's bounded worker pool requirement.
package workerpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// errFailedToAcquireSlot wraps the context error returned when Acquire is
// cancelled before a slot becomes available.
const errFailedToAcquireSlot = "failed to acquire transcription slot: %w"

// Pool gates concurrent access to a limited resource using a weighted
// semaphore. A Pool with zero capacity is invalid; use New.
type Pool struct {
	sem *semaphore.Weighted
	max int64
}

// New creates a Pool allowing at most maxConcurrent callers through Do at
// once. maxConcurrent <= 0 is treated as 1: the pool always admits at least
// one caller at a time rather than deadlocking every call.
func New(maxConcurrent int) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(maxConcurrent)), max: int64(maxConcurrent)}
}

// Do acquires one slot, runs fn, and releases the slot once fn returns. It
// blocks until a slot is free or ctx is cancelled, in which case it returns
// ctx's error without running fn.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf(errFailedToAcquireSlot, err)
	}
	defer p.sem.Release(1)

	return fn(ctx)
}

// Capacity returns the maximum number of concurrent callers this Pool
// admits.
func (p *Pool) Capacity() int {
	return int(p.max)
}
