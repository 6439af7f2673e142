// Package httperr maps ledger error kinds onto fiber errors.
package httperr

import (
	"errors"

	"waffle-pos-backend/internal/logger"
	"waffle-pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Status returns the HTTP status for an error kind.
func Status(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrAuthorization):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrPersistence):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// From converts err into a *fiber.Error. Unclassified errors are logged and
// hidden behind a generic message.
func From(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	status := Status(err)
	if status == fiber.StatusInternalServerError {
		logger.Error("unexpected error", "error", err)
		return fiber.NewError(status, "unexpected server error")
	}
	if status == fiber.StatusServiceUnavailable {
		logger.Error("storage failure", "error", err)
	}
	return fiber.NewError(status, err.Error())
}
