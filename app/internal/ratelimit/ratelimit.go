package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// staleAfter is how long an idle bucket is kept before it is swept
const staleAfter = 10 * time.Minute

// Limiter implements a per-key token bucket rate limiter
type Limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	perMinute  int
	burst      int
	message    string
	trustProxy bool
	lastSweep  time.Time
	now        func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// Config for creating a new rate limiter
type Config struct {
	RequestsPerMinute int    // tokens added per minute
	Burst             int    // bucket capacity, defaults to RequestsPerMinute
	Message           string // body of 429 responses
	TrustProxy        bool   // key on X-Forwarded-For instead of the peer address
}

// New creates a new rate limiter
func New(cfg Config) *Limiter {
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	if cfg.Message == "" {
		cfg.Message = "Too many requests. Please slow down."
	}
	return &Limiter{
		buckets:    make(map[string]*bucket),
		perMinute:  cfg.RequestsPerMinute,
		burst:      cfg.Burst,
		message:    cfg.Message,
		trustProxy: cfg.TrustProxy,
		now:        time.Now,
	}
}

// Allow checks if a request is allowed for the given key (usually IP address)
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, 1)
}

// AllowN checks if n requests are allowed and consumes their tokens
func (l *Limiter) AllowN(key string, n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
	}
	b.tokens = l.refill(b, now)
	b.lastCheck = now

	if b.tokens >= float64(n) {
		b.tokens -= float64(n)
		return true
	}
	return false
}

// Remaining returns the number of whole tokens left for a key
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return l.burst
	}
	return int(l.refill(b, l.now()))
}

// RetryAfter is how long key must wait for its next token
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || l.perMinute <= 0 {
		return 0
	}
	missing := 1 - l.refill(b, l.now())
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing * float64(time.Minute) / float64(l.perMinute))
}

// Reset forgets the bucket of a key
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) refill(b *bucket, now time.Time) float64 {
	elapsed := now.Sub(b.lastCheck).Minutes()
	return math.Min(b.tokens+elapsed*float64(l.perMinute), float64(l.burst))
}

// sweep drops idle buckets at most once per staleAfter. Callers hold mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < staleAfter {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastCheck) > staleAfter {
			delete(l.buckets, key)
		}
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After header
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIP(r, l.trustProxy)
		if l.Allow(key) {
			next.ServeHTTP(w, r)
			return
		}
		wait := int(math.Ceil(l.RetryAfter(key).Seconds()))
		if wait < 1 {
			wait = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(wait))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": l.message})
	})
}

// ClientIP extracts the client IP from the request
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
