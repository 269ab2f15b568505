package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type SystemHandler struct {
	frontend bool
}

// NewSystemHandler serves the root and health routes. With frontend set, browsers
// asking for / fall through to the SPA.
func NewSystemHandler(frontend bool) *SystemHandler {
	return &SystemHandler{frontend: frontend}
}

// HandleRoot handles GET /
func (h *SystemHandler) HandleRoot(c *fiber.Ctx) error {
	if h.frontend && c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML {
		return c.Next()
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "ResuMatch API is running",
	})
}

// HandleHealth handles GET /api/health
func (h *SystemHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now(),
	})
}
