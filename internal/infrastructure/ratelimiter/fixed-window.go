package ratelimiter

import (
	"sync"
	"sync/atomic"
	"time"
)

// Limiter decides whether a client identified by key may make a request now.
// A denied request carries how long the client should wait.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

type FixedWindowRateLimiter struct {
	counts      sync.Map // string -> *clientData
	limit       int64
	window      time.Duration
	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type clientData struct {
	count   int64        // atomic
	resetAt atomic.Value // stores time.Time
	mu      sync.Mutex   // only for reset (rare)
}

func NewFixedWindowRateLimiter(limit int, window time.Duration) *FixedWindowRateLimiter {
	rl := &FixedWindowRateLimiter{
		limit:       int64(limit),
		window:      window,
		cleanupTick: time.NewTicker(window),
		done:        make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *FixedWindowRateLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()
	nextReset := now.Truncate(rl.window).Add(rl.window)

	// The window is seeded before the entry becomes visible, so concurrent
	// first requests all go through the counting path.
	fresh := &clientData{}
	fresh.resetAt.Store(nextReset)
	val, _ := rl.counts.LoadOrStore(key, fresh)
	data := val.(*clientData)

	if currentReset := data.resetAt.Load().(time.Time); now.Before(currentReset) {
		return rl.take(data, currentReset)
	}

	// --- Window expired: reset ---
	data.mu.Lock()
	defer data.mu.Unlock()

	// Double-check after lock
	if currentReset := data.resetAt.Load().(time.Time); now.Before(currentReset) {
		return rl.take(data, currentReset)
	}

	atomic.StoreInt64(&data.count, 1)
	data.resetAt.Store(nextReset)
	return true, 0
}

func (rl *FixedWindowRateLimiter) take(data *clientData, resetAt time.Time) (bool, time.Duration) {
	newCount := atomic.AddInt64(&data.count, 1)
	if newCount > rl.limit {
		atomic.AddInt64(&data.count, -1) // rollback
		return false, time.Until(resetAt)
	}
	return true, 0
}

func (rl *FixedWindowRateLimiter) startCleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

func (rl *FixedWindowRateLimiter) cleanup() {
	now := time.Now()
	rl.counts.Range(func(key, value any) bool {
		data := value.(*clientData)
		if now.After(data.resetAt.Load().(time.Time)) {
			rl.counts.Delete(key)
		}
		return true
	})
}

func (rl *FixedWindowRateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
		rl.cleanupTick.Stop()
	})
}
