package cashregister

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waffle-pos-backend/internal/audit"
	"waffle-pos-backend/internal/logger"
	"waffle-pos-backend/internal/metrics"
	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service owns the shift lifecycle: open, record, close and the read side.
// Writes to one shift (and opens for one cashier) are serialized in process;
// the repository's version check covers other processes.
type Service struct {
	shifts  repository.ShiftRepository
	audit   *audit.Service
	tracked Tracked

	shiftLocks   *keyedMutex
	cashierLocks *keyedMutex

	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTrackedMethods narrows the per-method sales breakdown.
func WithTrackedMethods(methods []models.PaymentMethod) Option {
	return func(s *Service) { s.tracked = NewTracked(methods) }
}

func NewService(shifts repository.ShiftRepository, auditSvc *audit.Service, opts ...Option) *Service {
	s := &Service{
		shifts:       shifts,
		audit:        auditSvc,
		tracked:      AllTracked(),
		shiftLocks:   newKeyedMutex(),
		cashierLocks: newKeyedMutex(),
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireStaff(actor models.Identity) error {
	if actor.UserID == "" || !actor.Role.Valid() {
		return fmt.Errorf("%w: a cashier, manager or admin identity is required", models.ErrAuthorization)
	}
	return nil
}

func canView(actor models.Identity, shift *models.Shift) bool {
	return actor.Role.Elevated() || actor.UserID == shift.CashierID
}

// OpenShift starts a shift for the acting cashier.
func (s *Service) OpenShift(ctx context.Context, actor models.Identity, opening decimal.Decimal) (*models.Shift, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if opening.IsNegative() {
		return nil, fmt.Errorf("%w: opening cash amount must not be negative", models.ErrValidation)
	}
	if err := CheckScale("opening cash amount", opening); err != nil {
		return nil, err
	}

	unlock := s.cashierLocks.Lock(actor.UserID)
	defer unlock()

	if _, err := s.shifts.GetOpenByCashier(ctx, actor.UserID); err == nil {
		return nil, fmt.Errorf("%w: shift already open", models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	shift, err := NewShift(s.newID(), actor, opening, s.tracked, s.newID(), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.shifts.Create(ctx, &shift); err != nil {
		return nil, err
	}

	metrics.ShiftsOpened.Inc()
	logger.Info("shift opened", "shift_id", shift.ID, "cashier_id", actor.UserID, "opening_cash", shift.OpeningCashAmount.String())
	s.audit.Record(ctx, audit.LogOptions{
		UserID:      actor.UserID,
		UserName:    actor.Name,
		EntityType:  "shift",
		EntityID:    shift.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Shift opened with %s cash", opening.StringFixed(2)),
		After:       shiftSnapshot(&shift),
	})
	return &shift, nil
}

// RecordTransaction appends a sale, refund or manual cash entry to an open
// shift owned by the actor. A closed shift is reported as InvalidState before
// the entry itself is validated.
func (s *Service) RecordTransaction(ctx context.Context, actor models.Identity, shiftID string, entry Entry) (*models.Shift, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	unlock := s.shiftLocks.Lock(shiftID)
	defer unlock()

	current, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if current.CashierID != actor.UserID {
		return nil, fmt.Errorf("%w: only the owning cashier may record transactions on shift %s", models.ErrAuthorization, shiftID)
	}

	next, tx, mapped, err := Append(*current, entry, s.tracked, s.newID(), actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	if err := s.shifts.Update(ctx, &next, current.Version, tx); err != nil {
		return nil, err
	}

	metrics.LedgerTransactions.WithLabelValues(string(tx.Kind), string(tx.PaymentMethod)).Inc()
	if !mapped {
		metrics.UntrackedSales.WithLabelValues(string(tx.PaymentMethod)).Inc()
		logger.Warn("sale recorded with untracked payment method",
			"shift_id", shiftID,
			"transaction_id", tx.ID,
			"payment_method", tx.PaymentMethod,
			"amount", tx.Amount.String(),
		)
	}
	logger.Debug("ledger entry recorded", "shift_id", shiftID, "seq", tx.Seq, "kind", tx.Kind, "amount", tx.Amount.String())

	if tx.Kind == models.KindCashIn || tx.Kind == models.KindCashOut {
		s.audit.Record(ctx, audit.LogOptions{
			UserID:      actor.UserID,
			UserName:    actor.Name,
			EntityType:  "shift_transaction",
			EntityID:    tx.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Manual %s of %s on shift %s", tx.Kind, tx.Amount.StringFixed(2), shiftID),
			After:       tx,
		})
	}
	return &next, nil
}

// CloseShift reconciles and closes an open shift. Only the owner or an
// elevated role may close; a second close is always rejected.
func (s *Service) CloseShift(ctx context.Context, actor models.Identity, shiftID string, counted decimal.Decimal, notes string) (*models.Reconciliation, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if counted.IsNegative() {
		return nil, fmt.Errorf("%w: closing cash amount must not be negative", models.ErrValidation)
	}
	if err := CheckScale("closing cash amount", counted); err != nil {
		return nil, err
	}

	unlock := s.shiftLocks.Lock(shiftID)
	defer unlock()

	current, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if current.CashierID != actor.UserID && !actor.Role.Elevated() {
		return nil, fmt.Errorf("%w: only the owning cashier or a manager may close shift %s", models.ErrAuthorization, shiftID)
	}

	next, rec, marker, err := Reconcile(*current, counted, notes, s.newID(), actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	if err := s.shifts.Update(ctx, &next, current.Version, marker); err != nil {
		return nil, err
	}

	variance, _ := rec.Variance.Float64()
	metrics.CashVariance.Observe(variance)
	metrics.ShiftsClosed.WithLabelValues(rec.Outcome).Inc()
	logger.Info("shift closed",
		"shift_id", shiftID,
		"closed_by", actor.UserID,
		"expected_cash", rec.ExpectedCash.String(),
		"counted_cash", rec.CountedCash.String(),
		"variance", rec.Variance.String(),
	)
	s.audit.Record(ctx, audit.LogOptions{
		UserID:      actor.UserID,
		UserName:    actor.Name,
		EntityType:  "shift",
		EntityID:    shiftID,
		Action:      models.AuditActionClose,
		Description: fmt.Sprintf("Shift closed, variance %s", rec.Variance.StringFixed(2)),
		Before:      shiftSnapshot(current),
		After:       shiftSnapshot(&next),
	})
	return &rec, nil
}

// GetOpenShift returns the cashier's open shift or a NotFound error.
func (s *Service) GetOpenShift(ctx context.Context, cashierID string) (*models.Shift, error) {
	return s.shifts.GetOpenByCashier(ctx, cashierID)
}

// GetShift returns a shift the actor is allowed to see.
func (s *Service) GetShift(ctx context.Context, actor models.Identity, shiftID string) (*models.Shift, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	shift, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, shift) {
		return nil, fmt.Errorf("%w: shift %s belongs to another cashier", models.ErrAuthorization, shiftID)
	}
	return shift, nil
}

// ExpectedCash derives the live drawer amount of a visible shift.
func (s *Service) ExpectedCash(ctx context.Context, actor models.Identity, shiftID string) (decimal.Decimal, error) {
	shift, err := s.GetShift(ctx, actor, shiftID)
	if err != nil {
		return decimal.Zero, err
	}
	return ExpectedCash(*shift), nil
}

// ListShifts lists historical shifts. Cashiers only ever see their own.
func (s *Service) ListShifts(ctx context.Context, actor models.Identity, filter repository.ShiftFilter) ([]models.Shift, int64, error) {
	if err := requireStaff(actor); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && filter.Status != models.ShiftOpen && filter.Status != models.ShiftClosed {
		return nil, 0, fmt.Errorf("%w: unknown shift status %q", models.ErrValidation, filter.Status)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, fmt.Errorf("%w: date range end is before its start", models.ErrValidation)
	}
	if !actor.Role.Elevated() {
		filter.CashierID = actor.UserID
	}
	filter.Normalize()
	return s.shifts.List(ctx, filter)
}

// Breakdown is the per-payment-method view of a shift.
type Breakdown struct {
	ShiftID          string                                   `json:"shift_id"`
	Status           models.ShiftStatus                       `json:"status"`
	Sales            map[models.PaymentMethod]decimal.Decimal `json:"sales"`
	Refunds          map[models.PaymentMethod]decimal.Decimal `json:"refunds"`
	UntrackedSales   decimal.Decimal                          `json:"untracked_sales"`
	TotalSales       decimal.Decimal                          `json:"total_sales"`
	TransactionCount int                                      `json:"transaction_count"`
	TipTotal         decimal.Decimal                          `json:"tip_total"`
	ExpectedCash     decimal.Decimal                          `json:"expected_cash"`
}

// PaymentBreakdown reports sales and refunds per payment method.
func (s *Service) PaymentBreakdown(ctx context.Context, actor models.Identity, shiftID string) (*Breakdown, error) {
	shift, err := s.GetShift(ctx, actor, shiftID)
	if err != nil {
		return nil, err
	}
	b := &Breakdown{
		ShiftID:          shift.ID,
		Status:           shift.Status,
		Sales:            shift.Summary.Clone().SalesByPaymentMethod,
		Refunds:          make(map[models.PaymentMethod]decimal.Decimal),
		UntrackedSales:   shift.Summary.UntrackedSales,
		TotalSales:       shift.Summary.TotalSales,
		TransactionCount: shift.Summary.TransactionCount,
		TipTotal:         shift.Summary.TipTotal,
		ExpectedCash:     ExpectedCash(*shift),
	}
	for _, tx := range shift.Ledger {
		if tx.Kind == models.KindRefund {
			b.Refunds[tx.PaymentMethod] = b.Refunds[tx.PaymentMethod].Add(tx.Amount)
		}
	}
	return b, nil
}

// StaleOpenShifts lists open shifts opened before now-after.
func (s *Service) StaleOpenShifts(ctx context.Context, after time.Duration) ([]models.Shift, error) {
	cutoff := s.now().Add(-after)
	filter := repository.ShiftFilter{Status: models.ShiftOpen, To: &cutoff, Page: 1, PageSize: 200}

	var stale []models.Shift
	for {
		page, total, err := s.shifts.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		stale = append(stale, page...)
		if len(page) == 0 || int64(len(stale)) >= total {
			return stale, nil
		}
		filter.Page++
	}
}

// shiftSnapshot is the audit view of a shift, without its ledger.
func shiftSnapshot(s *models.Shift) map[string]any {
	return map[string]any{
		"id":                  s.ID,
		"cashier_id":          s.CashierID,
		"status":              s.Status,
		"opened_at":           s.OpenedAt,
		"closed_at":           s.ClosedAt,
		"opening_cash_amount": s.OpeningCashAmount,
		"closing_cash_amount": s.ClosingCashAmount,
		"cash_variance":       s.CashVariance,
		"total_sales":         s.Summary.TotalSales,
		"ledger_length":       len(s.Ledger),
		"notes":               s.Notes,
	}
}
