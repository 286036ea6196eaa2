package ratelimit

import (
	"sync"
	"time"
)

// bucket is a token bucket: capacity tokens, refilled continuously
type bucket struct {
	mu         sync.Mutex
	capacity   int
	tokens     float64
	refillRate float64
	lastRefill time.Time
	lastUsed   time.Time
}

func newBucket(capacity int, refillRate float64) *bucket {
	now := time.Now()
	return &bucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: now,
		lastUsed:   now,
	}
}

func (b *bucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
	b.lastRefill = now
	b.lastUsed = now

	if b.tokens < 1.0 {
		return false
	}
	b.tokens -= 1.0
	return true
}

// Limiter tracks one token bucket per key (typically a client IP).
// Inactive buckets are dropped after the TTL so the map stays bounded.
type Limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   int
	refillRate float64
	ttl        time.Duration
}

// NewLimiter creates a limiter allowing bursts of capacity requests per
// key, refilling at refillRate requests per second.
func NewLimiter(capacity int, refillRate float64, ttl time.Duration) *Limiter {
	l := &Limiter{
		buckets:    make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
	}

	if ttl > 0 {
		go l.evictLoop()
	}

	return l
}

// Allow reports whether a request for the key is within the limit
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = newBucket(l.capacity, l.refillRate)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	return b.allow()
}

func (l *Limiter) evictLoop() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-l.ttl)
		l.mu.Lock()
		for key, b := range l.buckets {
			b.mu.Lock()
			stale := b.lastUsed.Before(cutoff)
			b.mu.Unlock()
			if stale {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
