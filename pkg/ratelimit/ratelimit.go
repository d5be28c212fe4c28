// Package ratelimit throttles the HTTP transport per client address using
// token buckets from golang.org/x/time/rate.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/a11ytester/a11ytester/pkg/duration"
)

// Config holds rate limiting configuration
type Config struct {
	// RequestsPerSecond per client (0 = unlimited)
	RequestsPerSecond float64

	// Burst allows bursting up to N requests before limiting kicks in
	Burst int

	// TrustForwarded keys clients by the first X-Forwarded-For entry.
	// Only enable behind a proxy that sets it.
	TrustForwarded bool

	// IdleTTL evicts buckets for clients not seen for this long
	IdleTTL time.Duration
}

// sweepThreshold is the bucket count above which idle clients are evicted.
const sweepThreshold = 1024

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one bucket per client.
type Limiter struct {
	config Config
	now    func() time.Time

	mu      sync.RWMutex
	clients map[string]*client
}

// New creates a Limiter. A nil return means limiting is disabled, and the
// nil Limiter's Middleware passes requests straight through.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = duration.RateLimitIdle
	}
	return &Limiter{
		config:  cfg,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow reports whether key may make a request now.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.get(key).AllowN(l.now(), 1)
}

// Len is the number of tracked clients.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clients)
}

func (l *Limiter) get(key string) *rate.Limiter {
	now := l.now()

	l.mu.RLock()
	c, ok := l.clients[key]
	l.mu.RUnlock()
	if ok {
		l.mu.Lock()
		c.lastSeen = now
		l.mu.Unlock()
		return c.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if c, ok = l.clients[key]; ok {
		c.lastSeen = now
		return c.limiter
	}
	if len(l.clients) >= sweepThreshold {
		l.sweepLocked(now)
	}
	c = &client{
		limiter:  rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst),
		lastSeen: now,
	}
	l.clients[key] = c
	return c.limiter
}

func (l *Limiter) sweepLocked(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.config.IdleTTL {
			delete(l.clients, key)
		}
	}
}

// ClientKey identifies the caller of r.
func (l *Limiter) ClientKey(r *http.Request) string {
	if l != nil && l.config.TrustForwarded {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects over-limit requests with 429 Too Many Requests.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	retryAfter := strconv.Itoa(max(1, int(1/l.config.RequestsPerSecond)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(l.ClientKey(r)) {
			w.Header().Set("Retry-After", retryAfter)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
