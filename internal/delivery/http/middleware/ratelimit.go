package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	h "eventplanner/internal/delivery/http/helpers"
)

// limiterTTL is how long an idle client's limiter is kept.
const limiterTTL = 15 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one token bucket per client address.
type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	every     time.Duration
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(perMinute, burst int) *limiterStore {
	if burst <= 0 {
		burst = perMinute
	}
	return &limiterStore{
		limiters: make(map[string]*limiterEntry),
		every:    time.Minute / time.Duration(perMinute),
		burst:    burst,
		now:      time.Now,
	}
}

func (s *limiterStore) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > limiterTTL {
		for k, e := range s.limiters {
			if now.Sub(e.lastSeen) > limiterTTL {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(s.every), s.burst)}
		s.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// RateLimit throttles a route per client IP. perMinute <= 0 disables limiting.
// It guards the credential endpoints against password guessing.
func RateLimit(perMinute, burst int) func(http.HandlerFunc) http.HandlerFunc {
	if perMinute <= 0 {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}
	store := newLimiterStore(perMinute, burst)
	retryAfter := strconv.Itoa(int(store.every.Seconds()) + 1)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !store.allow(clientIP(r)) {
				w.Header().Set("Retry-After", retryAfter)
				h.WriteJSONError(w, http.StatusTooManyRequests, h.ErrCodeTooManyRequests, "too many requests")
				return
			}
			next(w, r)
		}
	}
}

// clientIP uses the connection address only; forwarded headers are client-controlled.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
