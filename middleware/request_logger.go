package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const RequestIDHeader = "X-Request-ID"

const (
	localRequestID = "request_id"
	localLogger    = "logger"
)

// RequestLogger tags every request with an id (taken from X-Request-ID when
// the caller sent one) and logs the outcome once the handler returns.
func RequestLogger(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)

		logger := base.With().Str("request_id", requestID).Logger()
		c.Locals(localRequestID, requestID)
		c.Locals(localLogger, logger)

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		reqLogger := Logger(c)
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = reqLogger.Error().Err(err)
		case status >= 400:
			ev = reqLogger.Warn()
		default:
			ev = reqLogger.Info()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("request handled")
		return err
	}
}

// Logger returns the request-scoped logger, or a disabled one outside
// RequestLogger.
func Logger(c *fiber.Ctx) zerolog.Logger {
	if l, ok := c.Locals(localLogger).(zerolog.Logger); ok {
		return l
	}
	return zerolog.Nop()
}

func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}
