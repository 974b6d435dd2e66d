package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terrascope/authcore"
	"github.com/terrascope/authcore/middleware"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

type userView struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	EmailVerified    bool      `json:"email_verified"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

func viewUser(u authcore.User) userView {
	return userView{
		ID:               u.ID,
		Email:            u.Email,
		EmailVerified:    u.IsEmailVerified,
		TwoFactorEnabled: u.Is2FAEnabled,
		CreatedAt:        u.CreatedAt,
	}
}

// SignUp handles POST /register. The first verification code is mailed
// before the response is written.
func (h *Handlers) SignUp(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	u, err := h.engine.Register(c.UserContext(), authcore.RegisterRequest{
		Email:     req.Email,
		Password1: req.Password1,
		Password2: req.Password2,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return success(c, fiber.StatusCreated, fiber.Map{
		"user_id": u.ID,
		"message": NoticeAccountCreated,
	})
}

// Me handles GET /me.
func (h *Handlers) Me(c *fiber.Ctx) error {
	res, ok := middleware.AuthResultFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	u, err := h.engine.CurrentUser(c.UserContext(), res.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return success(c, fiber.StatusOK, viewUser(u))
}

// Health handles GET /health. It answers 503 while a backend is down.
func (h *Handlers) Health(c *fiber.Ctx) error {
	st := h.engine.Health(c.UserContext())
	body := fiber.Map{
		"status":     "ok",
		"redis":      st.RedisOK,
		"store":      st.StoreOK,
		"checked_at": st.CheckedAt,
	}
	if !st.Healthy() {
		body["status"] = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "data": body})
	}
	return success(c, fiber.StatusOK, body)
}
