package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"waffle-pos-backend/internal/httperr"
	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type RegisterAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewUser validates the input and builds a user with a bcrypt hash.
func NewUser(name, email, password string, role models.UserRole) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", models.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", models.ErrValidation)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("password could not be hashed: %w", err)
	}

	now := time.Now()
	return &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CreateUser persists a new user.
func CreateUser(ctx context.Context, users repository.UserRepository, name, email, password string, role models.UserRole) (*models.User, error) {
	user, err := NewUser(name, email, password, role)
	if err != nil {
		return nil, err
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// POST /api/auth/register-admin, allowed only while no admin exists.
func RegisterAdminHandler(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		count, err := users.CountByRole(c.UserContext(), models.RoleAdmin)
		if err != nil {
			return httperr.From(err)
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "an admin already exists")
		}

		user, err := CreateUser(c.UserContext(), users, body.Name, body.Email, body.Password, models.RoleAdmin)
		if err != nil {
			return httperr.From(err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

// POST /api/auth/login
func LoginHandler(users repository.UserRepository, provider IdentityProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		email := strings.TrimSpace(strings.ToLower(body.Email))

		user, err := users.GetByEmail(c.UserContext(), email)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
			}
			return httperr.From(err)
		}
		if !user.Active {
			return fiber.NewError(fiber.StatusUnauthorized, "account is disabled")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}

		token, err := provider.Issue(user.Identity())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "token could not be issued")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	}
}

// GET /api/auth/me
func MeHandler(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := IdentityFrom(c)
		if err != nil {
			return err
		}

		user, err := users.GetByID(c.UserContext(), identity.UserID)
		if err != nil {
			// fall back to what the token carries
			return c.JSON(fiber.Map{
				"user_id": identity.UserID,
				"name":    identity.Name,
				"role":    identity.Role,
			})
		}

		return c.JSON(fiber.Map{
			"user_id": user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"role":    user.Role,
		})
	}
}
