package admin

import (
	"fmt"

	"waffle-pos-backend/internal/audit"
	"waffle-pos-backend/internal/auth"
	"waffle-pos-backend/internal/httperr"
	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"

	"github.com/gofiber/fiber/v2"
)

type UserResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	Active    bool            `json:"active"`
	CreatedAt string          `json:"created_at"`
}

type CreateUserRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"` // defaults to cashier
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// USER MANAGEMENT
// ----------------------------------------

func CreateUserHandler(users repository.UserRepository, auditSvc *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Role == "" {
			body.Role = models.RoleCashier
		}

		user, err := auth.CreateUser(c.UserContext(), users, body.Name, body.Email, body.Password, body.Role)
		if err != nil {
			return httperr.From(err)
		}

		resp := toUserResponse(user)
		auditSvc.Record(c.UserContext(), audit.LogOptions{
			UserID:      identity.UserID,
			UserName:    identity.Name,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("User %s created with role %s", user.Email, user.Role),
			After:       resp,
		})

		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

func ListUsersHandler(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := users.List(c.UserContext())
		if err != nil {
			return httperr.From(err)
		}

		res := make([]UserResponse, 0, len(list))
		for i := range list {
			res = append(res, toUserResponse(&list[i]))
		}
		return c.JSON(res)
	}
}

func GetUserHandler(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := users.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(toUserResponse(user))
	}
}
