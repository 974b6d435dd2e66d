package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terrascope/authcore/middleware"
)

// TwoFactorSetup handles GET /2fa/setup. The secret is created on first
// visit and reused afterwards so a reload keeps the same QR code.
func (h *Handlers) TwoFactorSetup(c *fiber.Ctx) error {
	res, ok := middleware.AuthResultFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	setup, err := h.engine.TwoFactorSetup(c.UserContext(), res.UserID)
	if err != nil {
		return h.writeError(c, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"secret":           setup.Secret,
		"provisioning_uri": setup.ProvisioningURI,
	})
}

// EnableTwoFactor handles POST /2fa/setup with the first code from the
// authenticator app.
func (h *Handlers) EnableTwoFactor(c *fiber.Ctx) error {
	res, ok := middleware.AuthResultFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	if err := h.engine.EnableTwoFactor(c.UserContext(), res.UserID, req.Code); err != nil {
		return h.writeError(c, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"message": NoticeTOTPEnabled})
}
