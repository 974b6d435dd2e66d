package httpapi

import "github.com/gofiber/fiber/v2"

func success(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func failure(c *fiber.Ctx, status int, notice, reason string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   notice,
		"reason":  reason,
	})
}

func badRequest(c *fiber.Ctx) error {
	return failure(c, fiber.StatusBadRequest, "Malformed request.", "bad_request")
}
