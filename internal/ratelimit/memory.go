package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryBucket struct {
	tokens float64
	last   time.Time
}

// MemoryBucket is a single-process Limiter used when Redis is not
// configured. Same refill math as the Redis bucket.
type MemoryBucket struct {
	mu       sync.Mutex
	buckets  map[string]*memoryBucket
	capacity int
	refill   float64
	now      func() time.Time
}

func NewMemoryBucket(capacity int, refillPerSecond float64) *MemoryBucket {
	return &MemoryBucket{
		buckets:  make(map[string]*memoryBucket),
		capacity: capacity,
		refill:   refillPerSecond,
		now:      time.Now,
	}
}

func (m *MemoryBucket) Allow(ctx context.Context, userID string) (bool, float64, error) {
	return m.AllowN(ctx, userID, 1)
}

func (m *MemoryBucket) AllowN(_ context.Context, userID string, cost int) (bool, float64, error) {
	if cost < 1 {
		cost = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[userID]
	if !ok {
		b = &memoryBucket{tokens: float64(m.capacity), last: now}
		m.buckets[userID] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * m.refill
		if b.tokens > float64(m.capacity) {
			b.tokens = float64(m.capacity)
		}
	}
	b.last = now

	if b.tokens >= float64(cost) {
		b.tokens -= float64(cost)
		return true, b.tokens, nil
	}
	return false, b.tokens, nil
}
