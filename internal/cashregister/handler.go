package cashregister

import (
	"fmt"
	"time"

	"waffle-pos-backend/internal/auth"
	"waffle-pos-backend/internal/httperr"
	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type OpenShiftRequest struct {
	OpeningCashAmount decimal.Decimal `json:"opening_cash_amount"`
}

type ManualTransactionRequest struct {
	Kind          models.TransactionKind `json:"kind"` // "cash_in" | "cash_out"
	Amount        decimal.Decimal        `json:"amount"`
	PaymentMethod string                 `json:"payment_method"`
	Description   string                 `json:"description"`
}

type CloseShiftRequest struct {
	ClosingCashAmount *decimal.Decimal `json:"closing_cash_amount"`
	Notes             string           `json:"notes"`
}

// ShiftResponse adds the live expected cash, which is never stored.
type ShiftResponse struct {
	*models.Shift
	ExpectedCash decimal.Decimal `json:"expected_cash"`
}

type ShiftListResponse struct {
	Items    []ShiftResponse `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

func newShiftResponse(s *models.Shift) ShiftResponse {
	return ShiftResponse{Shift: s, ExpectedCash: ExpectedCash(*s)}
}

// -------------------------------------------------
// POST /api/shifts/open
// -------------------------------------------------
func OpenShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		var body OpenShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		shift, err := svc.OpenShift(c.UserContext(), identity, body.OpeningCashAmount)
		if err != nil {
			return httperr.From(err)
		}
		return c.Status(fiber.StatusCreated).JSON(newShiftResponse(shift))
	}
}

// -------------------------------------------------
// GET /api/shifts/current
// -------------------------------------------------
func CurrentShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		shift, err := svc.GetOpenShift(c.UserContext(), identity.UserID)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(newShiftResponse(shift))
	}
}

// -------------------------------------------------
// POST /api/shifts/:id/transactions
// Only manual cash-in/cash-out entries come through here; sales and refunds
// arrive from the order service.
// -------------------------------------------------
func RecordManualTransactionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		var body ManualTransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Kind != models.KindCashIn && body.Kind != models.KindCashOut {
			return fiber.NewError(fiber.StatusBadRequest, "kind must be cash_in or cash_out")
		}
		if body.PaymentMethod == "" {
			body.PaymentMethod = string(models.PaymentCash)
		}
		method, err := models.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			return httperr.From(err)
		}

		shift, err := svc.RecordTransaction(c.UserContext(), identity, c.Params("id"), Entry{
			Kind:          body.Kind,
			Amount:        body.Amount,
			PaymentMethod: method,
			Description:   body.Description,
		})
		if err != nil {
			return httperr.From(err)
		}
		return c.Status(fiber.StatusCreated).JSON(newShiftResponse(shift))
	}
}

// -------------------------------------------------
// POST /api/shifts/:id/close
// -------------------------------------------------
func CloseShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		var body CloseShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ClosingCashAmount == nil {
			return fiber.NewError(fiber.StatusBadRequest, "closing_cash_amount is required")
		}

		rec, err := svc.CloseShift(c.UserContext(), identity, c.Params("id"), *body.ClosingCashAmount, body.Notes)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(rec)
	}
}

// -------------------------------------------------
// GET /api/shifts/:id
// -------------------------------------------------
func GetShiftHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		shift, err := svc.GetShift(c.UserContext(), identity, c.Params("id"))
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(newShiftResponse(shift))
	}
}

// -------------------------------------------------
// GET /api/shifts/:id/breakdown
// -------------------------------------------------
func BreakdownHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		b, err := svc.PaymentBreakdown(c.UserContext(), identity, c.Params("id"))
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(b)
	}
}

// -------------------------------------------------
// GET /api/shifts?cashier_id=...&status=closed&from=2025-12-01&to=2025-12-31&page=1&page_size=20
// -------------------------------------------------
func ListShiftsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		filter, err := parseShiftFilter(c)
		if err != nil {
			return err
		}

		shifts, total, err := svc.ListShifts(c.UserContext(), identity, filter)
		if err != nil {
			return httperr.From(err)
		}

		filter.Normalize()
		resp := ShiftListResponse{
			Items:    make([]ShiftResponse, 0, len(shifts)),
			Total:    total,
			Page:     filter.Page,
			PageSize: filter.PageSize,
		}
		for i := range shifts {
			resp.Items = append(resp.Items, newShiftResponse(&shifts[i]))
		}
		return c.JSON(resp)
	}
}

// parseShiftFilter reads the list query. Dates are days; "to" is inclusive.
func parseShiftFilter(c *fiber.Ctx) (repository.ShiftFilter, error) {
	filter := repository.ShiftFilter{
		CashierID: c.Query("cashier_id"),
		Status:    models.ShiftStatus(c.Query("status")),
		Page:      c.QueryInt("page", 1),
		PageSize:  c.QueryInt("page_size", 20),
	}

	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.ParseInLocation("2006-01-02", fromStr, time.Local)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		}
		filter.From = &from
	}
	if toStr := c.Query("to"); toStr != "" {
		to, err := time.ParseInLocation("2006-01-02", toStr, time.Local)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		}
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}
	return filter, nil
}

// -------------------------------------------------
// GET /api/shifts/export (same filters as the list, all pages)
// -------------------------------------------------
func ExportShiftsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		filter, err := parseShiftFilter(c)
		if err != nil {
			return err
		}
		filter.Page = 1
		filter.PageSize = 200

		var all []models.Shift
		for {
			page, total, err := svc.ListShifts(c.UserContext(), identity, filter)
			if err != nil {
				return httperr.From(err)
			}
			all = append(all, page...)
			if len(page) == 0 || int64(len(all)) >= total {
				break
			}
			filter.Page++
		}

		data, err := ExportShifts(all)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "export could not be generated")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="shifts-%s.xlsx"`, time.Now().Format("20060102")))
		return c.Send(data)
	}
}
