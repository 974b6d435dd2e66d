package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/terrascope/authcore"
	"github.com/terrascope/authcore/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns a request ID, echoing a well-formed incoming
// X-Request-ID, and stores it with the client IP in the user context.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(requestIDHeader, id)

		ctx := authcore.WithRequestID(c.UserContext(), id)
		ctx = authcore.WithClientIP(ctx, c.IP())
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequestLogger logs method, path, status and latency of every request.
// Server errors log at error level, client errors at warn.
func RequestLogger(log logging.Logger) fiber.Handler {
	if log == nil {
		log = logging.Nop()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		args := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
			"request_id", RequestIDFrom(c),
		}
		if res, ok := AuthResultFrom(c); ok {
			args = append(args, "user_id", res.UserID)
		}

		ctx := c.UserContext()
		switch {
		case status >= 500:
			if err != nil {
				args = append(args, "error", err)
			}
			log.Error(ctx, "http_request", args...)
		case status >= 400:
			log.Warn(ctx, "http_request", args...)
		default:
			log.Info(ctx, "http_request", args...)
		}
		return nil
	}
}
