package middleware

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimit bounds how fast each remote host may hit the wrapped
// handler, with one token bucket per host. Ingestion requests spawn
// background work, so the boundary throttles rather than queues.
func RateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	// One entry per remote host for the process lifetime; like the task
	// registry, entries are never evicted.
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	lookup := func(host string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[host]
		if !ok {
			l = rate.NewLimiter(limit, burst)
			limiters[host] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !lookup(host).Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
