package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

type emailRequest struct {
	Email string `json:"email"`
}

type newPasswordRequest struct {
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// RequestPasswordReset handles POST /password-reset.
func (h *Handlers) RequestPasswordReset(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	if err := h.engine.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return h.writeError(c, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"message": NoticeResetSent})
}

// CheckPasswordReset handles GET /password-reset/:uid/:token so a client can
// show the form or the invalid-link notice.
func (h *Handlers) CheckPasswordReset(c *fiber.Ctx) error {
	if _, err := h.engine.CheckPasswordReset(c.UserContext(), c.Params("uid"), c.Params("token")); err != nil {
		return h.writeError(c, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"valid": true})
}

// ConfirmPasswordReset handles POST /password-reset/:uid/:token.
func (h *Handlers) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req newPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	err := h.engine.ConfirmPasswordReset(c.UserContext(), c.Params("uid"), c.Params("token"), req.Password1, req.Password2)
	if err != nil {
		return h.writeError(c, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"redirect": "login", "message": NoticePasswordUpdated})
}
