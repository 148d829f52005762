package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Logger logs one line per request. Successful redirect lookups are the
// bulk of the traffic and log at debug; everything else logs at info, and
// handler errors at error.
func Logger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if id := requestID(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}

		switch {
		case err != nil:
			logger.Error("request failed", append(fields, zap.Error(err))...)
		case isRedirectHit(c, status):
			logger.Debug("request", fields...)
		default:
			logger.Info("request", fields...)
		}
		return err
	}
}

func isRedirectHit(c *fiber.Ctx, status int) bool {
	return status == fiber.StatusFound && !strings.HasPrefix(c.Path(), "/api")
}
