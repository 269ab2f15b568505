package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/services"
)

const (
	localsClaims       = "claims"
	localsAuthRequired = "auth_required"
)

// TokenValidator is satisfied by services.AuthService.
type TokenValidator interface {
	ValidateToken(tokenString string) (*services.Claims, error)
}

// Decision is the outcome of the route guard.
type Decision string

const (
	DecisionAllow     Decision = "allow"
	DecisionLogin     Decision = "login"
	DecisionForbidden Decision = "forbidden"
)

// Decide reports whether a user may reach a route restricted to the given roles.
// No roles means any signed-in user.
func Decide(claims *services.Claims, roles ...models.Role) Decision {
	if claims == nil {
		return DecisionLogin
	}
	if len(roles) == 0 {
		return DecisionAllow
	}
	for _, role := range roles {
		if claims.Role == role {
			return DecisionAllow
		}
	}
	return DecisionForbidden
}

// Authenticate reads the bearer token and stores its claims for later handlers.
// A missing token is only rejected when required is set; a bad token always is.
func Authenticate(validator TokenValidator, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localsAuthRequired, required)

		token, present, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !present {
			if required {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Missing authorization header",
				})
			}
			return c.Next()
		}
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization format",
			})
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			// Tokens cannot be checked without a secret, so treat the caller as anonymous.
			if errors.Is(err, services.ErrAuthDisabled) && !required {
				return c.Next()
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(localsClaims, claims)
		return c.Next()
	}
}

// RequireRole guards a route. Anonymous callers pass when authentication is
// optional, so the API stays usable without accounts.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := CurrentClaims(c)
		if claims == nil && !authRequired(c) {
			return c.Next()
		}

		switch Decide(claims, roles...) {
		case DecisionLogin:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		case DecisionForbidden:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You do not have permission to access this resource",
			})
		}
		return c.Next()
	}
}

// CurrentClaims returns the authenticated caller, or nil.
func CurrentClaims(c *fiber.Ctx) *services.Claims {
	claims, _ := c.Locals(localsClaims).(*services.Claims)
	return claims
}

func authRequired(c *fiber.Ctx) bool {
	required, _ := c.Locals(localsAuthRequired).(bool)
	return required
}

// bearerToken splits "Bearer <token>". present is false when the header is empty.
func bearerToken(header string) (token string, present bool, ok bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false, false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", true, false
	}
	return parts[1], true, true
}
