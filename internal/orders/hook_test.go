package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"waffle-pos-backend/internal/audit"
	"waffle-pos-backend/internal/auth"
	"waffle-pos-backend/internal/cashregister"
	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository/memory"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetOpenShift(ctx context.Context, cashierID string) (*models.Shift, error) {
	args := m.Called(ctx, cashierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shift), args.Error(1)
}

func (m *MockLedger) RecordTransaction(ctx context.Context, actor models.Identity, shiftID string, entry cashregister.Entry) (*models.Shift, error) {
	args := m.Called(ctx, actor, shiftID, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shift), args.Error(1)
}

var terminal = models.Identity{UserID: "cashier-1", Name: "Ana", Role: models.RoleCashier}

func TestHook_CompletedOrderBecomesSale(t *testing.T) {
	ledger := new(MockLedger)
	hook := NewHook(ledger)
	ctx := context.Background()

	open := &models.Shift{ID: "shift-1", CashierID: terminal.UserID, Status: models.ShiftOpen}
	ledger.On("GetOpenShift", ctx, terminal.UserID).Return(open, nil)
	ledger.On("RecordTransaction", ctx, terminal, "shift-1", mock.MatchedBy(func(e cashregister.Entry) bool {
		return e.Kind == models.KindSale &&
			e.Amount.Equal(decimal.NewFromInt(4500)) &&
			e.Tip.Equal(decimal.NewFromInt(500)) &&
			e.PaymentMethod == models.PaymentCreditCard &&
			e.RelatedOrderID != nil && *e.RelatedOrderID == "order-9"
	})).Return(open, nil)

	_, err := hook.Handle(ctx, terminal, Event{
		OrderID:       "order-9",
		Type:          EventCompleted,
		Total:         decimal.NewFromInt(4500),
		Tip:           decimal.NewFromInt(500),
		PaymentMethod: "credit_card",
	})
	require.NoError(t, err)
	ledger.AssertExpectations(t)
}

func TestHook_PaidCancellationBecomesRefund(t *testing.T) {
	ledger := new(MockLedger)
	hook := NewHook(ledger)
	ctx := context.Background()

	open := &models.Shift{ID: "shift-1", CashierID: terminal.UserID, Status: models.ShiftOpen}
	ledger.On("GetOpenShift", ctx, terminal.UserID).Return(open, nil)
	ledger.On("RecordTransaction", ctx, terminal, "shift-1", mock.MatchedBy(func(e cashregister.Entry) bool {
		return e.Kind == models.KindRefund && e.PaymentMethod == models.PaymentCash
	})).Return(open, nil)

	_, err := hook.Handle(ctx, terminal, Event{OrderID: "order-9", Type: EventCancelled, Paid: true, Total: decimal.NewFromInt(30), PaymentMethod: "cash"})
	require.NoError(t, err)
	ledger.AssertExpectations(t)
}

func TestHook_UnpaidCancellationIsNoop(t *testing.T) {
	ledger := new(MockLedger)
	hook := NewHook(ledger)

	shift, err := hook.Handle(context.Background(), terminal, Event{OrderID: "order-9", Type: EventCancelled, Total: decimal.NewFromInt(30), PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.Nil(t, shift)
	ledger.AssertNotCalled(t, "GetOpenShift", mock.Anything, mock.Anything)
	ledger.AssertNotCalled(t, "RecordTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHook_Rejections(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{"missing order id", Event{Type: EventCompleted, Total: decimal.NewFromInt(1), PaymentMethod: "cash"}},
		{"unknown type", Event{OrderID: "o", Type: "shipped", Total: decimal.NewFromInt(1), PaymentMethod: "cash"}},
		{"unknown method", Event{OrderID: "o", Type: EventCompleted, Total: decimal.NewFromInt(1), PaymentMethod: "barter"}},
		{"tip on refund", Event{OrderID: "o", Type: EventCancelled, Paid: true, Total: decimal.NewFromInt(1), Tip: decimal.NewFromInt(1), PaymentMethod: "cash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := new(MockLedger)
			_, err := NewHook(ledger).Handle(context.Background(), terminal, tt.ev)
			assert.ErrorIs(t, err, models.ErrValidation)
			ledger.AssertNotCalled(t, "RecordTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHook_NoOpenShift(t *testing.T) {
	ledger := new(MockLedger)
	ctx := context.Background()
	ledger.On("GetOpenShift", ctx, terminal.UserID).Return(nil, models.ErrNotFound)

	_, err := NewHook(ledger).Handle(ctx, terminal, Event{OrderID: "o", Type: EventCompleted, Total: decimal.NewFromInt(1), PaymentMethod: "cash"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHook_DuplicateEventConflicts(t *testing.T) {
	ledger := new(MockLedger)
	ctx := context.Background()
	orderID := "order-9"
	open := &models.Shift{
		ID:     "shift-1",
		Status: models.ShiftOpen,
		Ledger: []models.ShiftTransaction{{Seq: 2, Kind: models.KindSale, RelatedOrderID: &orderID}},
	}
	ledger.On("GetOpenShift", ctx, terminal.UserID).Return(open, nil)

	_, err := NewHook(ledger).Handle(ctx, terminal, Event{OrderID: orderID, Type: EventCompleted, Total: decimal.NewFromInt(1), PaymentMethod: "cash"})
	assert.ErrorIs(t, err, models.ErrConflict)
	ledger.AssertNotCalled(t, "RecordTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// readBarrier holds every GetOpenShift caller until all of them have read the
// shift, so each one sees a ledger without the others' entries.
type readBarrier struct {
	*cashregister.Service
	reads *sync.WaitGroup
}

func (b readBarrier) GetOpenShift(ctx context.Context, cashierID string) (*models.Shift, error) {
	shift, err := b.Service.GetOpenShift(ctx, cashierID)
	b.reads.Done()
	b.reads.Wait()
	return shift, err
}

func TestHook_ConcurrentDuplicateEventsRecordOnce(t *testing.T) {
	svc := cashregister.NewService(memory.NewShiftRepository(), audit.NewService(memory.NewAuditRepository()))
	ctx := context.Background()
	_, err := svc.OpenShift(ctx, terminal, decimal.Zero)
	require.NoError(t, err)

	const events = 2
	reads := &sync.WaitGroup{}
	reads.Add(events)
	hook := NewHook(readBarrier{Service: svc, reads: reads})

	ev := Event{OrderID: "order-5", Type: EventCompleted, Total: decimal.NewFromInt(10), PaymentMethod: "cash"}
	errs := make([]error, events)
	var wg sync.WaitGroup
	for i := 0; i < events; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = hook.Handle(ctx, terminal, ev)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, models.ErrConflict)
	}
	assert.Equal(t, 1, ok)

	stored, err := svc.GetOpenShift(ctx, terminal.UserID)
	require.NoError(t, err)
	assert.Len(t, stored.Ledger, 2)
	assert.True(t, stored.Summary.TotalSales.Equal(decimal.NewFromInt(10)))
	assert.True(t, cashregister.ExpectedCash(*stored).Equal(decimal.NewFromInt(10)))
}

func TestOrderEventHandler_WithRealLedger(t *testing.T) {
	const secret = "0123456789abcdef0123456789abcdef"
	svc := cashregister.NewService(memory.NewShiftRepository(), audit.NewService(memory.NewAuditRepository()))
	provider := auth.NewJWTProvider(secret, time.Hour)

	app := fiber.New()
	app.Post("/api/order-events", auth.JWTMiddleware(provider), OrderEventHandler(NewHook(svc)))

	token, err := provider.Issue(terminal)
	require.NoError(t, err)
	post := func(body any) *http.Response {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/order-events", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	sale := map[string]any{"order_id": "order-1", "type": "completed", "total": "12.50", "payment_method": "cash"}

	// no open shift yet
	resp := post(sale)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	shift, err := svc.OpenShift(context.Background(), terminal, decimal.NewFromInt(100))
	require.NoError(t, err)

	resp = post(sale)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = post(sale)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = post(map[string]any{"order_id": "order-2", "type": "cancelled", "paid": false, "total": "8", "payment_method": "cash"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = post(map[string]any{"order_id": "order-1", "type": "cancelled", "paid": true, "total": "12.50", "payment_method": "cash"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	stored, err := svc.GetOpenShift(context.Background(), terminal.UserID)
	require.NoError(t, err)
	assert.Len(t, stored.Ledger, 3)
	assert.True(t, cashregister.ExpectedCash(*stored).Equal(decimal.NewFromInt(100)))
	assert.Equal(t, shift.ID, stored.ID)
}
