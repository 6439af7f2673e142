package cashregister

import (
	"fmt"
	"time"

	"waffle-pos-backend/internal/models"

	"github.com/shopspring/decimal"
)

// ExpectedCash folds the ledger's cash entries on top of the opening amount.
// Sales and manual cash-ins add, refunds and manual cash-outs subtract, the
// open/close markers contribute nothing.
func ExpectedCash(shift models.Shift) decimal.Decimal {
	expected := shift.OpeningCashAmount
	for _, tx := range shift.Ledger {
		if tx.PaymentMethod != models.PaymentCash {
			continue
		}
		switch tx.Kind {
		case models.KindSale, models.KindCashIn:
			expected = expected.Add(tx.Amount)
		case models.KindRefund, models.KindCashOut:
			expected = expected.Sub(tx.Amount)
		}
	}
	return expected
}

// Tracked is the set of payment methods folded into the per-method breakdown.
type Tracked map[models.PaymentMethod]bool

func NewTracked(methods []models.PaymentMethod) Tracked {
	t := make(Tracked, len(methods))
	for _, m := range methods {
		t[m] = true
	}
	return t
}

// AllTracked tracks every recognized payment method.
func AllTracked() Tracked { return NewTracked(models.PaymentMethods) }

// foldSale applies one sale entry to the summary in place. It reports false
// when the entry's method is not tracked.
func foldSale(sum *models.SalesSummary, tx models.ShiftTransaction, tracked Tracked) bool {
	sum.TotalSales = sum.TotalSales.Add(tx.Amount)
	sum.TransactionCount++
	sum.TipTotal = sum.TipTotal.Add(tx.Tip)
	if !tracked[tx.PaymentMethod] {
		sum.UntrackedSales = sum.UntrackedSales.Add(tx.Amount)
		return false
	}
	if sum.SalesByPaymentMethod == nil {
		sum.SalesByPaymentMethod = make(map[models.PaymentMethod]decimal.Decimal)
	}
	sum.SalesByPaymentMethod[tx.PaymentMethod] = sum.SalesByPaymentMethod[tx.PaymentMethod].Add(tx.Amount)
	return true
}

// Summarize rebuilds a SalesSummary from the ledger alone.
func Summarize(ledger []models.ShiftTransaction, tracked Tracked) models.SalesSummary {
	sum := emptySummary(tracked)
	for _, tx := range ledger {
		if tx.Kind == models.KindSale {
			foldSale(&sum, tx, tracked)
		}
	}
	return sum
}

func emptySummary(tracked Tracked) models.SalesSummary {
	sum := models.SalesSummary{
		SalesByPaymentMethod: make(map[models.PaymentMethod]decimal.Decimal, len(tracked)),
	}
	for m := range tracked {
		sum.SalesByPaymentMethod[m] = decimal.Zero
	}
	return sum
}

// MoneyScale is the number of fractional digits every stored amount keeps.
const MoneyScale = 2

// CheckScale rejects amounts with more fractional digits than the money
// columns hold. "0.010" passes, "0.005" does not.
func CheckScale(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(MoneyScale)) {
		return fmt.Errorf("%w: %s must have at most %d decimal places", models.ErrValidation, field, MoneyScale)
	}
	return nil
}

// HasOrderEntry reports whether the ledger already holds an entry of the
// given kind for orderID.
func HasOrderEntry(ledger []models.ShiftTransaction, kind models.TransactionKind, orderID string) bool {
	for _, tx := range ledger {
		if tx.Kind == kind && tx.RelatedOrderID != nil && *tx.RelatedOrderID == orderID {
			return true
		}
	}
	return false
}

// NewShift builds an open shift with its opening marker as the first ledger
// entry.
func NewShift(id string, cashier models.Identity, opening decimal.Decimal, tracked Tracked, txID string, now time.Time) (models.Shift, error) {
	if opening.IsNegative() {
		return models.Shift{}, fmt.Errorf("%w: opening cash amount must not be negative", models.ErrValidation)
	}
	if err := CheckScale("opening cash amount", opening); err != nil {
		return models.Shift{}, err
	}
	shift := models.Shift{
		ID:                id,
		CashierID:         cashier.UserID,
		CashierName:       cashier.Name,
		Status:            models.ShiftOpen,
		OpenedAt:          now,
		OpeningCashAmount: opening,
		Summary:           emptySummary(tracked),
	}
	shift.Ledger = []models.ShiftTransaction{{
		ID:            txID,
		ShiftID:       id,
		Seq:           1,
		Kind:          models.KindOpen,
		Amount:        opening,
		Tip:           decimal.Zero,
		PaymentMethod: models.PaymentCash,
		Description:   fmt.Sprintf("Shift opened with %s cash", opening.StringFixed(2)),
		CreatedBy:     cashier.UserID,
		Timestamp:     now,
	}}
	return shift, nil
}

// Entry is a caller-supplied ledger entry before it gets an id and position.
type Entry struct {
	Kind           models.TransactionKind
	Amount         decimal.Decimal
	Tip            decimal.Decimal
	PaymentMethod  models.PaymentMethod
	RelatedOrderID *string
	Description    string
}

// Validate checks an entry against the rules for recordable transactions.
func (e Entry) Validate() error {
	if !e.Kind.Recordable() {
		return fmt.Errorf("%w: transaction kind %q cannot be recorded", models.ErrValidation, e.Kind)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", models.ErrValidation)
	}
	if err := CheckScale("amount", e.Amount); err != nil {
		return err
	}
	if !e.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", models.ErrValidation, e.PaymentMethod)
	}
	if e.Tip.IsNegative() {
		return fmt.Errorf("%w: tip must not be negative", models.ErrValidation)
	}
	if !e.Tip.IsZero() && e.Kind != models.KindSale {
		return fmt.Errorf("%w: tips can only be recorded with sales", models.ErrValidation)
	}
	if err := CheckScale("tip", e.Tip); err != nil {
		return err
	}
	return nil
}

// Append returns a copy of shift with the entry at the end of the ledger and
// the summary updated. An entry tied to an order is rejected with a conflict
// when the ledger already holds the same kind for that order. The second
// result is false when a sale's payment method is not tracked and only
// counted in UntrackedSales.
func Append(shift models.Shift, e Entry, tracked Tracked, txID, actorID string, now time.Time) (models.Shift, models.ShiftTransaction, bool, error) {
	if !shift.IsOpen() {
		return shift, models.ShiftTransaction{}, true, fmt.Errorf("%w: shift %s is closed", models.ErrInvalidState, shift.ID)
	}
	if err := e.Validate(); err != nil {
		return shift, models.ShiftTransaction{}, true, err
	}
	if e.RelatedOrderID != nil && HasOrderEntry(shift.Ledger, e.Kind, *e.RelatedOrderID) {
		return shift, models.ShiftTransaction{}, true, fmt.Errorf("%w: order %s already recorded as %s on shift %s", models.ErrConflict, *e.RelatedOrderID, e.Kind, shift.ID)
	}

	tx := models.ShiftTransaction{
		ID:             txID,
		ShiftID:        shift.ID,
		Seq:            len(shift.Ledger) + 1,
		Kind:           e.Kind,
		Amount:         e.Amount,
		Tip:            e.Tip,
		PaymentMethod:  e.PaymentMethod,
		RelatedOrderID: e.RelatedOrderID,
		Description:    e.Description,
		CreatedBy:      actorID,
		Timestamp:      now,
	}

	next := shift.Clone()
	next.Ledger = append(next.Ledger, tx)
	mapped := true
	if tx.Kind == models.KindSale {
		mapped = foldSale(&next.Summary, tx, tracked)
	}
	return next, tx, mapped, nil
}

// Reconcile closes the shift. Expected cash is computed from the ledger as it
// stands before the close marker is appended.
func Reconcile(shift models.Shift, counted decimal.Decimal, notes, txID, actorID string, now time.Time) (models.Shift, models.Reconciliation, models.ShiftTransaction, error) {
	if !shift.IsOpen() {
		return shift, models.Reconciliation{}, models.ShiftTransaction{}, fmt.Errorf("%w: shift %s already closed", models.ErrInvalidState, shift.ID)
	}
	if counted.IsNegative() {
		return shift, models.Reconciliation{}, models.ShiftTransaction{}, fmt.Errorf("%w: closing cash amount must not be negative", models.ErrValidation)
	}
	if err := CheckScale("closing cash amount", counted); err != nil {
		return shift, models.Reconciliation{}, models.ShiftTransaction{}, err
	}

	expected := ExpectedCash(shift)
	variance := counted.Sub(expected)

	next := shift.Clone()
	closedAt := now
	next.Status = models.ShiftClosed
	next.ClosedAt = &closedAt
	next.ClosingCashAmount = decimal.NewNullDecimal(counted)
	next.CashVariance = decimal.NewNullDecimal(variance)
	next.Notes = notes

	desc := fmt.Sprintf("Shift closed with %s counted cash", counted.StringFixed(2))
	if notes != "" {
		desc += ": " + notes
	}
	marker := models.ShiftTransaction{
		ID:            txID,
		ShiftID:       shift.ID,
		Seq:           len(shift.Ledger) + 1,
		Kind:          models.KindClose,
		Amount:        counted,
		Tip:           decimal.Zero,
		PaymentMethod: models.PaymentCash,
		Description:   truncate(desc, 255),
		CreatedBy:     actorID,
		Timestamp:     now,
	}
	next.Ledger = append(next.Ledger, marker)

	rec := models.Reconciliation{
		ShiftID:      shift.ID,
		ExpectedCash: expected,
		CountedCash:  counted,
		Variance:     variance,
		Outcome:      outcome(variance),
	}
	return next, rec, marker, nil
}

func outcome(variance decimal.Decimal) string {
	switch variance.Sign() {
	case 1:
		return models.OutcomeOverage
	case -1:
		return models.OutcomeShortage
	}
	return models.OutcomeBalanced
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
