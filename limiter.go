package pressroom

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eringen/pressroom/blog"
)

// Counter holds fixed-window rate limit state. Incr adds one hit to key and
// reports the hit count of the current window and when it resets. A window
// that has expired at now is replaced by a fresh one with count 1.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)
	Close() error
}

// Limiter admits or rejects actions under a fixed-window budget per key.
type Limiter struct {
	counter Counter
	now     func() time.Time
}

// NewLimiter returns a Limiter storing its windows in counter.
func NewLimiter(counter Counter, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{counter: counter, now: now}
}

// Admit records one hit for key. The hit is rejected with a
// *blog.RateLimitError when it exceeds limit within the current window.
func (l *Limiter) Admit(ctx context.Context, key string, limit int, window time.Duration) error {
	now := l.now()
	count, resetAt, err := l.counter.Incr(ctx, key, window, now)
	if err != nil {
		return fmt.Errorf("rate limit %s: %w", key, err)
	}
	if count > limit {
		return &blog.RateLimitError{Key: key, RetryAfter: resetAt.Sub(now)}
	}
	return nil
}

// actionKey is the limiter key for an authoring action.
func actionKey(action, actorID string) string {
	return "posts:" + action + ":" + actorID
}

func loginKey(ip string) string {
	return "login:" + ip
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryCounter is a process-local Counter. Expired buckets are swept
// periodically; sweeping never changes admission results.
type MemoryCounter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCounter returns a MemoryCounter that sweeps expired buckets every
// sweepEvery, judging expiry by now. Pass the clock given to the Limiter; nil
// means time.Now. Call Close to stop the sweeper.
func NewMemoryCounter(sweepEvery time.Duration, now func() time.Time) *MemoryCounter {
	if now == nil {
		now = time.Now
	}
	c := &MemoryCounter{
		buckets: make(map[string]*bucket),
		now:     now,
		stop:    make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.cleanup(sweepEvery)
	}
	return c
}

func (c *MemoryCounter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep(c.now())
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCounter) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, b := range c.buckets {
		if !b.resetAt.After(now) {
			delete(c.buckets, key)
		}
	}
}

// Incr implements Counter.
func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[key]
	if !ok || !b.resetAt.After(now) {
		b = &bucket{resetAt: now.Add(window)}
		c.buckets[key] = b
	}
	b.count++
	return b.count, b.resetAt, nil
}

// Len returns the number of live buckets.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}

// Close stops the sweeper.
func (c *MemoryCounter) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}
