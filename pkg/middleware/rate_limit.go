package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"labbook/internal/authz"
	apperrors "labbook/pkg/errors"
	"labbook/pkg/logger"

	"golang.org/x/time/rate"
)

const DefaultRateLimitCleanupInterval = 5 * time.Minute

// ClientKeyFunc picks the bucket a request is charged to.
type ClientKeyFunc func(r *http.Request) string

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// ClientRateLimiter keeps one token bucket per client. Authenticated requests are
// charged to the user, anonymous ones to the remote IP.
type ClientRateLimiter struct {
	mu              sync.Mutex
	limiters        map[string]*clientLimiter
	limit           rate.Limit
	burst           int
	cleanupInterval time.Duration
	keyFunc         ClientKeyFunc
	log             *logger.Logger
	stopCh          chan struct{}
	stopOnce        sync.Once
}

// NewClientRateLimiter allows requests per window for each client, with a burst
// of the full window.
func NewClientRateLimiter(requests int, window time.Duration, keyFunc ClientKeyFunc, log *logger.Logger) *ClientRateLimiter {
	if requests < 1 {
		requests = 1
	}
	if keyFunc == nil {
		keyFunc = DefaultClientKey
	}

	rl := &ClientRateLimiter{
		limiters:        make(map[string]*clientLimiter),
		limit:           rate.Limit(float64(requests) / window.Seconds()),
		burst:           requests,
		cleanupInterval: DefaultRateLimitCleanupInterval,
		keyFunc:         keyFunc,
		log:             log,
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *ClientRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *ClientRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	return rl.limiterFor(key).Allow()
}

func (rl *ClientRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *ClientRateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if cl, ok := rl.limiters[key]; ok {
		cl.lastAccess = now
		return cl.limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[key] = &clientLimiter{limiter: limiter, lastAccess: now}
	return limiter
}

func (rl *ClientRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *ClientRateLimiter) cleanup(now time.Time) {
	ttl := rl.cleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.limiters, key)
		}
	}
}

// retryAfter is the time needed to refill one token.
func (rl *ClientRateLimiter) retryAfter() time.Duration {
	if rl.limit <= 0 {
		return time.Second
	}
	d := time.Duration(float64(time.Second) / float64(rl.limit))
	if d < time.Second {
		return time.Second
	}
	return d
}

func RateLimit(limiter *ClientRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.keyFunc(r)
			if limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			limiter.log.Warn("Rate limit exceeded",
				"request_id", RequestIDFromContext(r.Context()),
				"client", key,
				"path", r.URL.Path,
			)
			_ = apperrors.WriteError(w, apperrors.RateLimited("Too many requests", limiter.retryAfter()))
		})
	}
}

func DefaultClientKey(r *http.Request) string {
	if actor, ok := authz.ActorFromContext(r.Context()); ok {
		return "user:" + actor.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
