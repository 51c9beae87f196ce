package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	// Max requests per window
	Max int
	// Window duration
	Window time.Duration
	// KeyGenerator identifies the caller, the client IP by default
	KeyGenerator func(c *fiber.Ctx) string
}

// DefaultRateLimiterConfig returns default configuration
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Max:    60,
		Window: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}
}

// RateLimiter limits requests per caller with a sliding window. Rejected
// requests go through the error handler as RATE_LIMIT_EXCEEDED.
func RateLimiter(config RateLimiterConfig) fiber.Handler {
	defaults := DefaultRateLimiterConfig()
	if config.Max <= 0 {
		config.Max = defaults.Max
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = defaults.KeyGenerator
	}

	return limiter.New(limiter.Config{
		Max:               config.Max,
		Expiration:        config.Window,
		KeyGenerator:      config.KeyGenerator,
		LimiterMiddleware: limiter.SlidingWindow{},
		LimitReached: func(c *fiber.Ctx) error {
			return domain.ErrRateLimitExceeded
		},
	})
}
