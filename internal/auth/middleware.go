package auth

import (
	"errors"
	"strings"

	"waffle-pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const CtxIdentityKey = "identity"

func JWTMiddleware(provider IdentityProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		identity, err := provider.Verify(parts[1])
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				return fiber.NewError(fiber.StatusUnauthorized, "token has expired")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(CtxIdentityKey, identity)
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by JWTMiddleware.
func IdentityFrom(c *fiber.Ctx) (models.Identity, error) {
	identity, ok := c.Locals(CtxIdentityKey).(models.Identity)
	if !ok {
		return models.Identity{}, fiber.NewError(fiber.StatusUnauthorized, "identity could not be resolved")
	}
	return identity, nil
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := IdentityFrom(c)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "role could not be resolved")
		}

		for _, r := range allowedRoles {
			if r == identity.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "you are not allowed to perform this action")
	}
}
