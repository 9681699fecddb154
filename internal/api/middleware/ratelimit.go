package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"codebattle/internal/common"

	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	Rate      rate.Limit
	Burst     int
	ExpiresIn time.Duration
	// IdentifierExtractor picks the bucket for a request. Defaults to the client IP.
	IdentifierExtractor func(r *http.Request) string
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMemoryStore keeps one token bucket per identifier and drops buckets idle for ExpiresIn.
type RateLimiterMemoryStore struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	rate        rate.Limit
	burst       int
	expiresIn   time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

func NewRateLimiterMemoryStore(cfg RateLimiterConfig) *RateLimiterMemoryStore {
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = 3 * time.Minute
	}
	return &RateLimiterMemoryStore{
		visitors:  make(map[string]*visitor),
		rate:      cfg.Rate,
		burst:     cfg.Burst,
		expiresIn: cfg.ExpiresIn,
		now:       time.Now,
	}
}

func (s *RateLimiterMemoryStore) Allow(identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastCleanup) > s.expiresIn {
		for id, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.expiresIn {
				delete(s.visitors, id)
			}
		}
		s.lastCleanup = now
	}

	v, ok := s.visitors[identifier]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.visitors[identifier] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// RateLimit rejects requests over the configured rate with 429.
func RateLimit(cfg RateLimiterConfig) func(http.Handler) http.Handler {
	store := NewRateLimiterMemoryStore(cfg)
	extract := cfg.IdentifierExtractor
	if extract == nil {
		extract = clientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.Allow(extract(r)) {
				common.RespondWithError(w, http.StatusTooManyRequests, "Too many attempts, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP reads RemoteAddr, which chi's RealIP middleware has already rewritten.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
