package handlers

import (
	"github.com/gofiber/fiber/v2"

	"theagentvikram/resumatch/internal/middleware"
	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/services"
)

type AuthHandler struct {
	auth services.AuthService
}

func NewAuthHandler(auth services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if err := validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	resp, err := h.auth.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Failed to register user")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if err := validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	resp, err := h.auth.Login(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Failed to log in")
	}
	return c.JSON(resp)
}

// HandleLogout handles POST /auth/logout. Tokens are stateless, so the client
// simply discards its copy.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Logged out",
	})
}

// HandleMe handles GET /auth/me
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	user, err := h.auth.CurrentUser(c.UserContext(), claims.UserID)
	if err != nil {
		return respondError(c, err, "Failed to fetch user")
	}
	return c.JSON(user)
}
