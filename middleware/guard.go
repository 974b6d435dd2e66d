package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terrascope/authcore"
)

// RequireAuth admits requests carrying a valid Bearer access token whose
// session still exists, or, without a token, requests whose visitor session
// is authenticated. It must run after [Visit] for the session path.
func RequireAuth(engine *authcore.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if engine == nil {
			return unauthorized(c)
		}
		ctx := c.UserContext()

		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			token, ok := bearerToken(header)
			if !ok {
				return unauthorized(c)
			}
			res, err := engine.ValidateAccess(token)
			if err != nil {
				return unauthorized(c)
			}
			if res.SessionID != "" {
				sess, err := engine.LoadVisit(ctx, res.SessionID)
				if err != nil || !engine.LoginState(sess).IsAuthenticated() {
					return unauthorized(c)
				}
			}
			c.Locals(authResultKey, res)
			return c.Next()
		}

		sess, ok := VisitFrom(c)
		if !ok {
			return unauthorized(c)
		}
		state := engine.LoginState(sess)
		if !state.IsAuthenticated() {
			return unauthorized(c)
		}
		c.Locals(authResultKey, &authcore.AuthResult{UserID: state.UserID, SessionID: sess.ID})
		return c.Next()
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
