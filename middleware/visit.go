package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terrascope/authcore"
	"github.com/terrascope/authcore/session"
)

// Visit loads the visitor session named by the session cookie, starting a
// new one when the cookie is missing or stale. After the handler runs the
// cookie is rewritten, since logins rotate the session ID.
func Visit(engine *authcore.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if engine == nil {
			return fiber.ErrServiceUnavailable
		}
		cfg := engine.Config()
		name := cfg.Session.CookieName
		ctx := c.UserContext()

		var sess *session.Session
		if id := c.Cookies(name); id != "" {
			loaded, err := engine.LoadVisit(ctx, id)
			switch {
			case err == nil:
				sess = loaded
			case errors.Is(err, session.ErrSessionNotFound):
			default:
				return err
			}
		}
		if sess == nil {
			started, err := engine.StartVisit(ctx)
			if err != nil {
				return err
			}
			sess = started
		}
		c.Locals(visitKey, sess)

		err := c.Next()

		cookie := &fiber.Cookie{
			Name:     name,
			Value:    sess.ID,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   cfg.Security.ProductionMode,
			MaxAge:   int(cfg.Session.AbsoluteTTL / time.Second),
		}
		if forget, _ := c.Locals(visitForgetKey).(bool); forget {
			cookie.Value = ""
			cookie.MaxAge = -1
			cookie.Expires = time.Unix(0, 0)
		}
		c.Cookie(cookie)
		return err
	}
}
