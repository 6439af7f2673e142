package orders

import (
	"waffle-pos-backend/internal/auth"
	"waffle-pos-backend/internal/httperr"

	"github.com/gofiber/fiber/v2"
)

// -------------------------------------------------
// POST /api/order-events
// -------------------------------------------------
func OrderEventHandler(hook *Hook) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		var body Event
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		shift, err := hook.Handle(c.UserContext(), identity, body)
		if err != nil {
			return httperr.From(err)
		}
		if shift == nil {
			return c.JSON(fiber.Map{"recorded": false})
		}

		last := shift.Ledger[len(shift.Ledger)-1]
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"recorded":    true,
			"shift_id":    shift.ID,
			"transaction": last,
		})
	}
}
