package httpserver

import (
	"net/http"
	"sync"
	"time"

	"pf-challenge/internal/httputil"
)

// SecurityHeaders stamps the baseline hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

const (
	rlRefillPerSec = 10
	rlBurst        = 30
	rlStaleAfter   = 3 * time.Minute
	rlPruneEvery   = time.Minute
)

// rateLimiter keeps a token bucket per remote address. Buckets are held in
// memory only; a restart forgets them, which is acceptable for a simulated
// exchange surface.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	lastSeen time.Time
	tokens   float64
}

var limiter = &rateLimiter{
	visitors: make(map[string]*visitor),
}

// prune drops buckets that have been idle past rlStaleAfter so the map does
// not grow with every address ever seen.
func (rl *rateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rlStaleAfter {
			delete(rl.visitors, ip)
		}
	}
}

func init() {
	go func() {
		for {
			time.Sleep(rlPruneEvery)
			limiter.prune()
		}
	}()
}

// RateLimitMiddleware throttles each remote address to rlRefillPerSec
// requests per second with a burst of rlBurst, answering 429 once the
// bucket runs dry.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr

		limiter.mu.Lock()
		v, exists := limiter.visitors[ip]
		if !exists {
			v = &visitor{tokens: rlBurst, lastSeen: time.Now()}
			limiter.visitors[ip] = v
		}

		now := time.Now()
		elapsed := now.Sub(v.lastSeen).Seconds()
		v.lastSeen = now

		v.tokens += elapsed * rlRefillPerSec
		if v.tokens > rlBurst {
			v.tokens = rlBurst
		}

		if v.tokens < 1 {
			limiter.mu.Unlock()
			httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorResponse{Error: "rate limit exceeded"})
			return
		}

		v.tokens -= 1
		limiter.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}
