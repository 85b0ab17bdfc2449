package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/adonese/folio/apperr"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig is a fixed window limit of Max requests per Window per key.
type RateLimitConfig struct {
	Name   string
	Max    int
	Window time.Duration
	// KeyFunc defaults to the client ip.
	KeyFunc func(*fiber.Ctx) string
	Redis   *redis.Client
	Logger  *logrus.Logger
}

// RateLimit counts requests in redis when a client is configured so limits hold across
// instances, and in process memory otherwise. A redis failure lets the request through.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *fiber.Ctx) string { return c.IP() }
	}
	if cfg.Max <= 0 {
		cfg.Max = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Redis == nil {
		return limiter.New(limiter.Config{
			Max:          cfg.Max,
			Expiration:   cfg.Window,
			KeyGenerator: cfg.KeyFunc,
			LimitReached: func(c *fiber.Ctx) error {
				return apperr.ErrRateLimited
			},
		})
	}

	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("ratelimit:%s:%s", cfg.Name, cfg.KeyFunc(c))
		count, ttl, err := hit(c.UserContext(), cfg.Redis, key, cfg.Window)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.WithError(err).WithField("limiter", cfg.Name).Warn("rate limit check failed")
			}
			return c.Next()
		}
		if count > int64(cfg.Max) {
			if ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, fmt.Sprint(int(ttl.Round(time.Second).Seconds())))
			}
			return apperr.ErrRateLimited
		}
		return c.Next()
	}
}

func hit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	remaining := ttl.Val()
	// a fresh key has no expiry yet
	if remaining < 0 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		remaining = window
	}
	return incr.Val(), remaining, nil
}
