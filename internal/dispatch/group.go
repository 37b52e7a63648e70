// Package dispatch runs side effects of the detection loop, such as
// notifications and journal writes, in the background. Work is bounded: when
// every worker is busy new work is dropped instead of queued.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrFull is returned when all workers are busy and the work was dropped.
	ErrFull = errors.New("background workers busy")

	// ErrClosed is returned for work submitted after Close.
	ErrClosed = errors.New("background group closed")
)

// Group runs tasks on at most limit goroutines, each bounded by timeout.
type Group struct {
	g       errgroup.Group
	timeout time.Duration
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// New creates a group running at most limit tasks at once.
func New(limit int, timeout time.Duration) *Group {
	if limit <= 0 {
		limit = 1
	}
	g := &Group{timeout: timeout}
	g.g.SetLimit(limit)
	return g
}

// Go starts fn in the background and returns immediately. fn gets a context
// that is independent of the caller and expires after the group timeout.
func (g *Group) Go(fn func(ctx context.Context)) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return ErrClosed
	}

	started := g.g.TryGo(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()
		fn(ctx)
		return nil
	})
	if !started {
		g.dropped.Add(1)
		return ErrFull
	}
	return nil
}

// Dropped returns how many tasks were dropped because the group was full.
func (g *Group) Dropped() uint64 {
	return g.dropped.Load()
}

// Close stops accepting work and waits for running tasks.
func (g *Group) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return g.g.Wait()
}
