package gameserver

import (
	"context"
	"sync"
	"time"
)

// TickManager drives named callbacks from a single goroutine at a fixed interval.
//
// Invariant: callbacks run sequentially in registration order, at most once per interval.
type TickManager struct {
	interval time.Duration
	mu       sync.Mutex
	order    []string
	ticks    map[string]func()
}

// NewTickManager returns a manager that fires ticks every interval.
//
// Precondition: interval must be > 0.
func NewTickManager(interval time.Duration) *TickManager {
	if interval <= 0 {
		panic("gameserver.NewTickManager: interval must be > 0")
	}
	return &TickManager{
		interval: interval,
		ticks:    make(map[string]func()),
	}
}

// Interval returns the tick interval.
func (z *TickManager) Interval() time.Duration {
	return z.interval
}

// RegisterTick registers fn under name. Replacing a callback keeps its position.
func (z *TickManager) RegisterTick(name string, fn func()) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if _, ok := z.ticks[name]; !ok {
		z.order = append(z.order, name)
	}
	z.ticks[name] = fn
}

// Run invokes the registered callbacks once per interval until ctx is cancelled.
//
// Postcondition: returns ctx.Err() after the last callback of the current tick completes.
func (z *TickManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(z.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, fn := range z.snapshot() {
				fn()
			}
		}
	}
}

func (z *TickManager) snapshot() []func() {
	z.mu.Lock()
	defer z.mu.Unlock()
	out := make([]func(), 0, len(z.order))
	for _, name := range z.order {
		out = append(out, z.ticks[name])
	}
	return out
}
