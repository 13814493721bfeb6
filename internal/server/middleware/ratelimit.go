package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter ограничивает число запросов с одного адреса в фиксированном окне.
// Used on the credential endpoints to slow down password guessing.
type RateLimiter struct {
	now     func() time.Time
	logger  *slog.Logger
	windows map[string]*window
	rate    int
	period  time.Duration
	mu      sync.Mutex
}

type window struct {
	start time.Time
	count int
}

// NewRateLimiter creates a limiter allowing rate requests per period and key.
func NewRateLimiter(rate int, period time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		now:     time.Now,
		logger:  logger,
		windows: make(map[string]*window),
		rate:    rate,
		period:  period,
	}
}

// Allow reports whether one more request for key fits the current window.
// The second result is how long until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.period {
		w = &window{start: now}
		rl.windows[key] = w
	}

	retry := rl.period - now.Sub(w.start)
	if w.count >= rl.rate {
		return false, retry
	}
	w.count++
	return true, retry
}

// Run drops expired windows until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.period {
			delete(rl.windows, key)
		}
	}
}

// Middleware limits requests by client address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		ok, retry := rl.Allow(key)
		if !ok {
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
				"ip", key,
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
			writeError(w, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP берет первый адрес из X-Forwarded-For, затем X-Real-IP, затем RemoteAddr
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
