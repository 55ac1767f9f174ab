package devserver

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const idleLimiterTTL = 10 * time.Minute

type ipRateLimiter struct {
	*rate.Limiter
	lastHit time.Time
}

// ipLimiter meters requests per client IP.
type ipLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mtx       sync.Mutex
	limiters  map[string]*ipRateLimiter
	lastSweep time.Time
}

func newIPLimiter(perSec float64, burst int) *ipLimiter {
	return &ipLimiter{
		limit:    rate.Limit(perSec),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*ipRateLimiter),
	}
}

func (l *ipLimiter) get(ip string) *ipRateLimiter {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) > idleLimiterTTL {
		for k, lim := range l.limiters {
			if now.Sub(lim.lastHit) > idleLimiterTTL {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}
	lim := l.limiters[ip]
	if lim == nil {
		lim = &ipRateLimiter{Limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = lim
	}
	lim.lastHit = now
	return lim
}

// LimitRate rejects requests from an IP that exceeded its budget.
func (l *ipLimiter) LimitRate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(clientIP(r)).AllowN(l.now(), 1) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
