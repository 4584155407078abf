package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
	"github.com/ShivpalBellway/DevBhakti/internal/http/respond"
	"github.com/ShivpalBellway/DevBhakti/internal/metrics"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter implements a simple in-memory rate limiter using a sliding window
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	window   time.Duration
	maxReqs  int
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRateLimiter creates a new rate limiter. Call Close to stop its cleanup goroutine.
func NewRateLimiter(window time.Duration, maxReqs int) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		maxReqs:  maxReqs,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go rl.cleanup(time.Hour)

	return rl
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	filtered := prune(rl.requests[key], now.Add(-rl.window))

	if len(filtered) >= rl.maxReqs {
		rl.requests[key] = filtered
		return false, nil
	}

	rl.requests[key] = append(filtered, now)
	return true, nil
}

// Close stops the cleanup goroutine and waits for it to exit
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

func prune(reqs []time.Time, cutoff time.Time) []time.Time {
	filtered := make([]time.Time, 0, len(reqs))
	for _, t := range reqs {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// cleanup periodically removes old entries to prevent memory leaks
func (rl *RateLimiter) cleanup(every time.Duration) {
	defer close(rl.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, reqs := range rl.requests {
		filtered := prune(reqs, cutoff)
		if len(filtered) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = filtered
		}
	}
}

// RedisLimiter is a fixed-window limiter shared by every instance behind the same Redis.
type RedisLimiter struct {
	rdb     redis.UniversalClient
	prefix  string
	window  time.Duration
	maxReqs int
}

// NewRedisLimiter creates a limiter whose counters live under prefix in Redis
func NewRedisLimiter(rdb redis.UniversalClient, prefix string, window time.Duration, maxReqs int) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, window: window, maxReqs: maxReqs}
}

// Allow increments the key's counter. The key is created with its expiry and incremented in
// one MULTI block, so a counter can never outlive its window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "ratelimit:" + l.prefix + ":" + key
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.window)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return incr.Val() <= int64(l.maxReqs), nil
}

// RateLimitMiddleware rejects requests over the limiter's budget with 429. Limiter errors
// fail open so a Redis outage does not take the login endpoints down.
func RateLimitMiddleware(limiter Limiter, bucket string, keyFunc func(*http.Request) string, m *metrics.Metrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), bucket+":"+keyFunc(r))
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", zap.String("bucket", bucket), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				m.RecordRateLimited(bucket)
				respond.Error(w, r, logger, &apperr.Error{
					Kind:    apperr.KindRateLimited,
					Message: "Too many requests, please try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetIPKey extracts the client IP from the request for rate limiting. chi's RealIP
// middleware has already folded proxy headers into RemoteAddr.
func GetIPKey(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	return "ip:" + strings.TrimSpace(host)
}

// Budget is a request allowance over a window
type Budget struct {
	Window  time.Duration
	MaxReqs int
}

func (b Budget) String() string {
	return strconv.Itoa(b.MaxReqs) + "/" + b.Window.String()
}

// LimiterFactory builds limiters for named buckets, backed by Redis when a client is given
// and by memory otherwise.
type LimiterFactory struct {
	rdb    redis.UniversalClient
	mu     sync.Mutex
	memory []*RateLimiter
}

// NewLimiterFactory creates a factory. rdb may be nil.
func NewLimiterFactory(rdb redis.UniversalClient) *LimiterFactory {
	return &LimiterFactory{rdb: rdb}
}

// New returns a limiter for bucket with budget b
func (f *LimiterFactory) New(bucket string, b Budget) Limiter {
	if f.rdb != nil {
		return NewRedisLimiter(f.rdb, bucket, b.Window, b.MaxReqs)
	}
	rl := NewRateLimiter(b.Window, b.MaxReqs)
	f.mu.Lock()
	f.memory = append(f.memory, rl)
	f.mu.Unlock()
	return rl
}

// Close stops every in-memory limiter created by the factory
func (f *LimiterFactory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rl := range f.memory {
		rl.Close()
	}
	f.memory = nil
}
