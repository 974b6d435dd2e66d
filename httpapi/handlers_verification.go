package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terrascope/authcore/middleware"
)

// VerifyEmail handles POST /verify-email/:user_id. A verified visitor is
// returned to the anonymous state and must sign in.
func (h *Handlers) VerifyEmail(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	sess, ok := middleware.VisitFrom(c)
	if !ok {
		return fiber.ErrServiceUnavailable
	}

	if err := h.engine.VerifyEmailInSession(c.UserContext(), sess, c.Params("user_id"), req.Code); err != nil {
		return h.writeError(c, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"redirect": "login", "message": NoticeEmailVerified})
}

// ResendCode handles POST /resend-code/:user_id.
func (h *Handlers) ResendCode(c *fiber.Ctx) error {
	if err := h.engine.ResendVerificationCode(c.UserContext(), c.Params("user_id")); err != nil {
		return h.writeError(c, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"message": NoticeCodeResent})
}
