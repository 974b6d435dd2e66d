package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terrascope/authcore"
	"github.com/terrascope/authcore/session"
)

const (
	requestIDKey   = "requestID"
	visitKey       = "visit"
	visitForgetKey = "visitForget"
	authResultKey  = "authResult"
)

// RequestIDFrom returns the ID assigned by [RequestID].
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// VisitFrom returns the visitor session loaded by [Visit].
func VisitFrom(c *fiber.Ctx) (*session.Session, bool) {
	sess, ok := c.Locals(visitKey).(*session.Session)
	return sess, ok && sess != nil
}

// ForgetVisit makes [Visit] expire the session cookie instead of refreshing
// it. Handlers call it after destroying the session.
func ForgetVisit(c *fiber.Ctx) {
	c.Locals(visitForgetKey, true)
}

// AuthResultFrom returns the identity admitted by [RequireAuth].
func AuthResultFrom(c *fiber.Ctx) (*authcore.AuthResult, bool) {
	res, ok := c.Locals(authResultKey).(*authcore.AuthResult)
	return res, ok && res != nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   "unauthorized",
		"reason":  "unauthorized",
	})
}
