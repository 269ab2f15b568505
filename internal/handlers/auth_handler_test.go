package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theagentvikram/resumatch/internal/models"
)

func TestAuth_RegisterLoginMe(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, jsonRequest(fiber.MethodPost, "/auth/register", models.RegisterRequest{
		Username: "rita", Password: "password123", Role: models.RoleRecruiter,
	}))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	registered := decode[models.AuthResponse](t, body)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, models.RoleRecruiter, registered.User.Role)
	assert.NotContains(t, string(body), "password")

	resp, body = f.do(t, jsonRequest(fiber.MethodPost, "/auth/login", models.LoginRequest{Username: "rita", Password: "password123"}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	token := decode[models.AuthResponse](t, body).Token

	resp, body = f.do(t, request{method: fiber.MethodGet, path: "/auth/me", token: "Bearer " + token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "rita", decode[models.User](t, body).Username)

	resp, body = f.do(t, request{method: fiber.MethodPost, path: "/auth/logout"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", decode[map[string]any](t, body)["status"])
}

func TestAuth_Failures(t *testing.T) {
	f := newAPIFixture(t)
	f.token(t, "rita", models.RoleRecruiter)

	resp, body := f.do(t, jsonRequest(fiber.MethodPost, "/auth/register", models.RegisterRequest{Username: "Rita", Password: "password123"}))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "username already taken", errorMessage(t, body))

	resp, body = f.do(t, jsonRequest(fiber.MethodPost, "/auth/register", models.RegisterRequest{Username: "al", Password: "short"}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "username must be at least 3; password must be at least 8", errorMessage(t, body))

	resp, _ = f.do(t, jsonRequest(fiber.MethodPost, "/auth/register", models.RegisterRequest{Username: "boss", Password: "password123", Role: models.RoleAdmin}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "admins are only created at startup")

	resp, body = f.do(t, jsonRequest(fiber.MethodPost, "/auth/login", models.LoginRequest{Username: "rita", Password: "wrong-password"}))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid username or password", errorMessage(t, body))

	resp, _ = f.do(t, request{method: fiber.MethodGet, path: "/auth/me"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, request{method: fiber.MethodGet, path: "/auth/me", token: "Bearer forged"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_Disabled(t *testing.T) {
	f := newAPIFixture(t, withJWTSecret(""))

	resp, body := f.do(t, jsonRequest(fiber.MethodPost, "/auth/login", models.LoginRequest{Username: "rita", Password: "password123"}))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "authentication is not configured on this server", errorMessage(t, body))

	resp, _ = f.do(t, request{method: fiber.MethodGet, path: "/api/resumes/user", token: "Bearer stale"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "tokens are ignored when auth is off")
}

func TestAuth_RateLimited(t *testing.T) {
	f := newAPIFixture(t, func(f *apiFixture) { f.routes.RateLimit = 2 })

	login := func() int {
		resp, _ := f.do(t, jsonRequest(fiber.MethodPost, "/auth/login", models.LoginRequest{Username: "nobody", Password: "password123"}))
		return resp.StatusCode
	}
	assert.Equal(t, fiber.StatusUnauthorized, login())
	assert.Equal(t, fiber.StatusUnauthorized, login())
	assert.Equal(t, fiber.StatusTooManyRequests, login())
}
