package feed

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostRateLimiter spaces out requests that target the same host.
type HostRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	interval time.Duration
}

// NewHostRateLimiter returns nil for a non-positive interval, which disables limiting.
func NewHostRateLimiter(interval time.Duration) *HostRateLimiter {
	if interval <= 0 {
		return nil
	}
	return &HostRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

func (h *HostRateLimiter) WaitForHost(ctx context.Context, urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	host := parsedURL.Host
	if host == "" {
		return &url.Error{Op: "parse", URL: urlStr, Err: errors.New("missing host in URL")}
	}

	return h.limiterFor(host).Wait(ctx)
}

func (h *HostRateLimiter) limiterFor(host string) *rate.Limiter {
	h.mu.RLock()
	limiter, ok := h.limiters[host]
	h.mu.RUnlock()
	if ok {
		return limiter
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if limiter, ok := h.limiters[host]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Every(h.interval), 1)
	h.limiters[host] = limiter
	return limiter
}
