package gateway

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/adonese/folio/apperr"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const healthPath = "/healthz"

// LogSamplingConfig limits access logging of healthy traffic to one line per Tick. Requests
// slower than After and every 5xx are logged regardless.
type LogSamplingConfig struct {
	Tick  time.Duration
	After time.Duration
}

// logSampler hands out one token per tick; next holds the unix nanos of the next token.
type logSampler struct {
	cfg  LogSamplingConfig
	next atomic.Int64
	now  func() time.Time
}

func newLogSampler(cfg LogSamplingConfig) *logSampler {
	return &logSampler{cfg: cfg, now: time.Now}
}

func (s *logSampler) Allow(took time.Duration) bool {
	if s.cfg.Tick <= 0 || (s.cfg.After > 0 && took >= s.cfg.After) {
		return true
	}
	now := s.now().UnixNano()
	next := s.next.Load()
	if now < next {
		return false
	}
	return s.next.CompareAndSwap(next, now+int64(s.cfg.Tick))
}

// responseStatus is the status the client will see. With a pending error the error handler
// has not written the response yet.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.Status(err)
}

func routePattern(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}

// RequestLogger writes one structured line per sampled request.
func RequestLogger(logger *logrus.Logger, cfg LogSamplingConfig) fiber.Handler {
	sampler := newLogSampler(cfg)
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()
		took := time.Since(started)

		status := responseStatus(c, err)
		route := routePattern(c)
		failed := status >= fiber.StatusInternalServerError
		if !failed && (route == healthPath || !sampler.Allow(took)) {
			return err
		}

		fields := logrus.Fields{
			"request_id":  RequestIDFromCtx(c),
			"method":      c.Method(),
			"path":        route,
			"status":      status,
			"duration_ms": took.Milliseconds(),
			"bytes_in":    len(c.Request().Body()),
			"bytes_out":   len(c.Response().Body()),
			"ip":          c.IP(),
		}
		if id := UserIDFromCtx(c); id != 0 {
			fields["user_id"] = id
		}
		if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
			fields["user_agent"] = ua
		}
		entry := logger.WithFields(fields)
		if err != nil {
			entry = entry.WithError(err)
		}

		level := logrus.InfoLevel
		if failed {
			level = logrus.ErrorLevel
		} else if status >= fiber.StatusBadRequest {
			level = logrus.WarnLevel
		}
		entry.Log(level, "http_request")
		return err
	}
}
