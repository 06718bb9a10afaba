package server

import (
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter is a per-peer token bucket holding up to Burst tokens and
// refilled at Burst tokens per RefillInterval.
type rateLimiter struct {
	limiter *rate.Limiter
}

// newRateLimiter returns nil when limiting is disabled. A nil *rateLimiter
// allows everything.
func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.Burst <= 0 {
		return nil
	}
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	every := rate.Every(interval / time.Duration(cfg.Burst))
	return &rateLimiter{limiter: rate.NewLimiter(every, cfg.Burst)}
}

func (rl *rateLimiter) allow() bool {
	if rl == nil {
		return true
	}
	return rl.limiter.Allow()
}
