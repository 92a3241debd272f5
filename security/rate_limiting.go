package security

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// CheckoutRateLimit throttles order-mutating endpoints. Keyed by the
// signed-in user when available, otherwise by IP.
func (r *RateLimiter) CheckoutRateLimit() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: &redisStore{
			redis:  r.redis,
			limit:  10,
			window: time.Minute,
		},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			userID := c.Get("user_id")
			if userID != nil {
				return fmt.Sprintf("user:%s", userID), nil
			}
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(429, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// VerificationRateLimit throttles the SMS verification endpoints hard;
// each allowed request costs a text message.
func (r *RateLimiter) VerificationRateLimit() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: &redisStore{
			redis:  r.redis,
			prefix: "verify",
			limit:  5,
			window: 10 * time.Minute,
		},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(429, map[string]string{
				"error": "Too many verification attempts. Please try again later.",
			})
		},
	})
}

// redisStore backs the echo rate limiter with a fixed-window counter
// shared across instances.
type redisStore struct {
	redis  *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func (s *redisStore) Allow(identifier string) (bool, error) {
	prefix := s.prefix
	if prefix == "" {
		prefix = "ratelimit"
	}
	key := fmt.Sprintf("%s:%s", prefix, identifier)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		// Redis being down should not lock everyone out.
		return true, nil
	}
	if count == 1 {
		s.redis.Expire(ctx, key, s.window)
	}

	return count <= s.limit, nil
}
