// Package ratelimit limits requests per client key, in process or shared through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Store decides whether a request for key may proceed
type Store interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryStore keeps one token bucket per key in process
type MemoryStore struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryStore allows requests per window with bursts up to requests
func NewMemoryStore(requests int, window time.Duration) *MemoryStore {
	if requests < 1 {
		requests = 1
	}
	return &MemoryStore{
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		idle:     3 * window,
		visitors: make(map[string]*visitor),
	}
}

func (s *MemoryStore) Allow(_ context.Context, key string) (Decision, error) {
	now := time.Now()

	s.mu.Lock()
	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[key] = v
	}
	v.lastSeen = now
	s.mu.Unlock()

	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

// Cleanup drops buckets idle for longer than three windows
func (s *MemoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, v := range s.visitors {
		if time.Since(v.lastSeen) > s.idle {
			delete(s.visitors, key)
		}
	}
}

// Len returns the number of tracked keys
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RedisStore is a fixed-window counter shared by every API replica
type RedisStore struct {
	client   redis.Cmdable
	requests int
	window   time.Duration
	prefix   string
}

// NewRedisStore allows requests per window for each key
func NewRedisStore(client redis.Cmdable, requests int, window time.Duration) *RedisStore {
	return &RedisStore{client: client, requests: requests, window: window, prefix: "wl:ratelimit:"}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (Decision, error) {
	slot := time.Now().UnixNano() / int64(s.window)
	redisKey := fmt.Sprintf("%s%s:%d", s.prefix, key, slot)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, s.window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("failed to update rate limit counter: %w", err)
	}

	if incr.Val() > int64(s.requests) {
		retry := ttl.Val()
		if retry <= 0 {
			retry = s.window
		}
		return Decision{RetryAfter: retry}, nil
	}
	return Decision{Allowed: true}, nil
}
