// Package server assembles the fiber application and its routes.
package server

import (
	"strings"

	"waffle-pos-backend/internal/admin"
	"waffle-pos-backend/internal/audit"
	"waffle-pos-backend/internal/auth"
	"waffle-pos-backend/internal/cashregister"
	"waffle-pos-backend/internal/config"
	"waffle-pos-backend/internal/dashboard"
	"waffle-pos-backend/internal/logger"
	"waffle-pos-backend/internal/metrics"
	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/orders"
	"waffle-pos-backend/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Deps struct {
	Config   *config.Config
	Store    *repository.Store
	Provider auth.IdentityProvider
	Audit    *audit.Service
	Shifts   *cashregister.Service
}

// ErrorHandler renders every error as {"error": msg}. Non-fiber errors have
// already been through httperr in the handlers; anything left is a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}
	logger.Error("unexpected error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "unexpected server error",
	})
}

func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	corsOrigins := strings.Split(d.Config.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if d.Config.Metrics.Enabled {
		app.Get("/metrics", metrics.Handler())
	}

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(d.Store.Users))
	api.Post("/auth/login", auth.LoginHandler(d.Store.Users, d.Provider))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(d.Provider))

	protected.Get("/auth/me", auth.MeHandler(d.Store.Users))

	// Cash register
	staff := auth.RequireRole(models.RoleCashier, models.RoleManager, models.RoleAdmin)
	elevated := auth.RequireRole(models.RoleManager, models.RoleAdmin)

	shifts := protected.Group("/shifts", staff)
	shifts.Post("/open", cashregister.OpenShiftHandler(d.Shifts))
	shifts.Get("/current", cashregister.CurrentShiftHandler(d.Shifts))
	shifts.Get("/export", elevated, cashregister.ExportShiftsHandler(d.Shifts))
	shifts.Get("/", cashregister.ListShiftsHandler(d.Shifts))
	shifts.Get("/:id", cashregister.GetShiftHandler(d.Shifts))
	shifts.Get("/:id/breakdown", cashregister.BreakdownHandler(d.Shifts))
	shifts.Post("/:id/transactions", cashregister.RecordManualTransactionHandler(d.Shifts))
	shifts.Post("/:id/close", cashregister.CloseShiftHandler(d.Shifts))

	// Dashboard
	protected.Get("/dashboard/sales-chart", staff, dashboard.SalesChartHandler(d.Shifts))

	// Order service events
	protected.Post("/order-events", staff, orders.OrderEventHandler(orders.NewHook(d.Shifts)))

	// Audit logs
	protected.Get("/audit-logs", elevated, audit.ListAuditLogsHandler(d.Audit))

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))
	adminRoutes.Post("/users", admin.CreateUserHandler(d.Store.Users, d.Audit))
	adminRoutes.Get("/users", admin.ListUsersHandler(d.Store.Users))
	adminRoutes.Get("/users/:id", admin.GetUserHandler(d.Store.Users))

	return app
}
