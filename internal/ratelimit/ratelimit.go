// Package ratelimit counts failed login attempts per key within a fixed
// window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

// Limiter tracks failures for a key. Check returns how long the key is still
// blocked, or zero when another attempt is allowed.
type Limiter interface {
	Check(ctx context.Context, key string) (time.Duration, error)
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
	Close() error
}

type entry struct {
	count int
	start time.Time
}

// MemoryLimiter is a process-local Limiter. A background goroutine evicts
// expired windows until Close is called.
type MemoryLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	entries sync.Map
	stop    chan struct{}
	once    sync.Once
	mu      sync.Mutex
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		max:    max,
		window: window,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go l.cleanup(time.Minute)
	return l
}

func (l *MemoryLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			now := l.now()
			l.entries.Range(func(key, value any) bool {
				if now.Sub(value.(entry).start) > l.window {
					l.entries.Delete(key)
				}
				return true
			})
		}
	}
}

func (l *MemoryLimiter) Check(_ context.Context, key string) (time.Duration, error) {
	v, ok := l.entries.Load(key)
	if !ok {
		return 0, nil
	}
	e := v.(entry)
	remaining := e.start.Add(l.window).Sub(l.now())
	if remaining <= 0 || e.count < l.max {
		return 0, nil
	}
	return remaining, nil
}

func (l *MemoryLimiter) Fail(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e := entry{count: 1, start: now}
	if v, ok := l.entries.Load(key); ok {
		prev := v.(entry)
		if now.Sub(prev.start) < l.window {
			e = entry{count: prev.count + 1, start: prev.start}
		}
	}
	l.entries.Store(key, e)
	return nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.entries.Delete(key)
	return nil
}

func (l *MemoryLimiter) Close() error {
	l.once.Do(func() { close(l.stop) })
	return nil
}
