package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terrascope/authcore"
	"github.com/terrascope/authcore/middleware"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type loginResponse struct {
	Redirect    string `json:"redirect"`
	UserID      string `json:"user_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Login handles POST /login. Depending on the account the client is sent
// to email verification, the second factor, or home.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	sess, ok := middleware.VisitFrom(c)
	if !ok {
		return fiber.ErrServiceUnavailable
	}

	res, err := h.engine.Login(c.UserContext(), sess, req.Email, req.Password)
	if err != nil {
		return h.writeError(c, err)
	}

	out := loginResponse{Redirect: string(res.Next), UserID: res.UserID, AccessToken: res.AccessToken}
	switch res.Next {
	case authcore.NextVerifyEmail:
		out.Message = NoticeVerifyFirst
	case authcore.NextTwoFactor:
		// The user id is not revealed before the second factor.
		out.UserID = ""
	}
	return success(c, fiber.StatusOK, out)
}

// VerifyTwoFactor handles POST /2fa/verify for a visit awaiting its second
// factor.
func (h *Handlers) VerifyTwoFactor(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	sess, ok := middleware.VisitFrom(c)
	if !ok {
		return fiber.ErrServiceUnavailable
	}

	res, err := h.engine.CompleteTwoFactor(c.UserContext(), sess, req.Code)
	if err != nil {
		if errors.Is(err, authcore.ErrTwoFactor) {
			return failure(c, fiber.StatusBadRequest, NoticeTwoFactorInvalid, "invalid_code")
		}
		return h.writeError(c, err)
	}
	return success(c, fiber.StatusOK, loginResponse{
		Redirect:    string(res.Next),
		UserID:      res.UserID,
		AccessToken: res.AccessToken,
		Message:     NoticeTwoFactorLoggedIn,
	})
}

// Logout handles POST /logout and expires the session cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sess, _ := middleware.VisitFrom(c)
	if err := h.engine.Logout(c.UserContext(), sess); err != nil {
		return h.writeError(c, err)
	}
	middleware.ForgetVisit(c)
	return success(c, fiber.StatusOK, fiber.Map{"message": NoticeLoggedOut})
}
