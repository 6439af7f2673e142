package audit

import (
	"waffle-pos-backend/internal/httperr"
	"waffle-pos-backend/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// -------------------------------------------------
// GET /api/audit-logs?entity_type=shift&entity_id=...&limit=50
// -------------------------------------------------
func ListAuditLogsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := repository.AuditFilter{
			EntityType: c.Query("entity_type"),
			EntityID:   c.Query("entity_id"),
			Limit:      c.QueryInt("limit", 100),
		}

		logs, err := svc.List(c.UserContext(), filter)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(logs)
	}
}
