package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// tokenBucket is refilled to capacity once per window rather than
// continuously. A client gets its full budget back at the window boundary.
type tokenBucket struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

// rateLimiter tracks one token bucket per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*tokenBucket
	capacity int
	window   time.Duration
}

func newRateLimiter(capacity int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		buckets:  make(map[string]*tokenBucket),
		capacity: capacity,
		window:   window,
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		if len(rl.buckets) >= 10000 {
			rl.evictStale(now)
		}
		b = &tokenBucket{tokens: rl.capacity, lastRefill: now}
		rl.buckets[ip] = b
	}

	if now.Sub(b.lastRefill) >= rl.window {
		b.tokens = rl.capacity
		b.lastRefill = now
	}
	b.lastSeen = now

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// evictStale drops buckets idle for several windows. Called with the lock
// held, only when the map has grown large.
func (rl *rateLimiter) evictStale(now time.Time) {
	cutoff := now.Add(-3 * rl.window)
	for ip, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// RateLimit enforces a per-IP request budget and answers 429 when a client
// runs out. Run it behind RealIP so the bucket key is the client address,
// not the proxy's.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	rl := newRateLimiter(requests, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientIP(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", window.String())
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
