// Package orders turns order lifecycle events into cash-register ledger
// entries on the cashier's open shift.
package orders

import (
	"context"
	"fmt"
	"strings"

	"waffle-pos-backend/internal/cashregister"
	"waffle-pos-backend/internal/logger"
	"waffle-pos-backend/internal/models"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventCompleted EventType = "completed"
	EventCancelled EventType = "cancelled"
)

// Event is what the order service reports for one order.
type Event struct {
	OrderID       string          `json:"order_id"`
	Type          EventType       `json:"type"`
	Total         decimal.Decimal `json:"total"`
	Tip           decimal.Decimal `json:"tip"`
	PaymentMethod string          `json:"payment_method"`
	Paid          bool            `json:"paid"` // only meaningful for cancellations
}

// Ledger is the part of the cash register the hook drives.
type Ledger interface {
	GetOpenShift(ctx context.Context, cashierID string) (*models.Shift, error)
	RecordTransaction(ctx context.Context, actor models.Identity, shiftID string, entry cashregister.Entry) (*models.Shift, error)
}

type Hook struct {
	ledger Ledger
}

func NewHook(ledger Ledger) *Hook {
	return &Hook{ledger: ledger}
}

// Handle records the event on the actor's open shift. Unpaid cancellations
// touch nothing and return a nil shift.
func (h *Hook) Handle(ctx context.Context, actor models.Identity, ev Event) (*models.Shift, error) {
	ev.OrderID = strings.TrimSpace(ev.OrderID)
	if ev.OrderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", models.ErrValidation)
	}

	var kind models.TransactionKind
	switch ev.Type {
	case EventCompleted:
		kind = models.KindSale
	case EventCancelled:
		if !ev.Paid {
			logger.Debug("unpaid order cancelled, nothing to record", "order_id", ev.OrderID)
			return nil, nil
		}
		kind = models.KindRefund
		if !ev.Tip.IsZero() {
			return nil, fmt.Errorf("%w: cancellations cannot carry a tip", models.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown order event type %q", models.ErrValidation, ev.Type)
	}

	method, err := models.ParsePaymentMethod(ev.PaymentMethod)
	if err != nil {
		return nil, err
	}

	shift, err := h.ledger.GetOpenShift(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	// fast path; RecordTransaction repeats the check under the shift lock
	if cashregister.HasOrderEntry(shift.Ledger, kind, ev.OrderID) {
		return nil, fmt.Errorf("%w: order %s already recorded as %s on shift %s", models.ErrConflict, ev.OrderID, kind, shift.ID)
	}

	orderID := ev.OrderID
	return h.ledger.RecordTransaction(ctx, actor, shift.ID, cashregister.Entry{
		Kind:           kind,
		Amount:         ev.Total,
		Tip:            ev.Tip,
		PaymentMethod:  method,
		RelatedOrderID: &orderID,
		Description:    fmt.Sprintf("Order %s %s", orderID, ev.Type),
	})
}
