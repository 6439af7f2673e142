package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

type TransactionKind string

const (
	KindSale    TransactionKind = "sale"
	KindRefund  TransactionKind = "refund"
	KindCashIn  TransactionKind = "cash_in"  // manual cash-in
	KindCashOut TransactionKind = "cash_out" // manual cash-out
	KindOpen    TransactionKind = "open"     // system marker
	KindClose   TransactionKind = "close"    // system marker
)

// Recordable kinds are the ones callers may append. Open/Close are written
// by the ledger itself.
func (k TransactionKind) Recordable() bool {
	switch k {
	case KindSale, KindRefund, KindCashIn, KindCashOut:
		return true
	}
	return false
}

// ShiftTransaction is a ledger entry. Never updated or deleted once stored.
type ShiftTransaction struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	ShiftID        string          `gorm:"size:36;not null;uniqueIndex:idx_shift_seq" json:"shift_id"`
	Seq            int             `gorm:"not null;uniqueIndex:idx_shift_seq" json:"seq"`
	Kind           TransactionKind `gorm:"size:20;not null" json:"kind"`
	Amount         decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Tip            decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"tip"`
	PaymentMethod  PaymentMethod   `gorm:"size:30;not null" json:"payment_method"`
	RelatedOrderID *string         `gorm:"size:64;index" json:"related_order_id,omitempty"`
	Description    string          `gorm:"size:255" json:"description"`
	CreatedBy      string          `gorm:"size:36" json:"created_by"`
	Timestamp      time.Time       `gorm:"not null" json:"timestamp"`
}

// SalesSummary is a cache over the ledger's sale entries. It can always be
// rebuilt from the ledger alone.
type SalesSummary struct {
	TotalSales           decimal.Decimal                   `gorm:"type:decimal(14,2);not null;default:0" json:"total_sales"`
	TransactionCount     int                               `gorm:"not null;default:0" json:"transaction_count"`
	SalesByPaymentMethod map[PaymentMethod]decimal.Decimal `gorm:"serializer:json" json:"sales_by_payment_method"`
	UntrackedSales       decimal.Decimal                   `gorm:"type:decimal(14,2);not null;default:0" json:"untracked_sales"`
	TipTotal             decimal.Decimal                   `gorm:"type:decimal(14,2);not null;default:0" json:"tip_total"`
}

func (s SalesSummary) Clone() SalesSummary {
	out := s
	out.SalesByPaymentMethod = make(map[PaymentMethod]decimal.Decimal, len(s.SalesByPaymentMethod))
	for k, v := range s.SalesByPaymentMethod {
		out.SalesByPaymentMethod[k] = v
	}
	return out
}

type Shift struct {
	ID                string              `gorm:"primaryKey;size:36" json:"id"`
	CashierID         string              `gorm:"size:36;not null;index" json:"cashier_id"`
	CashierName       string              `gorm:"size:100" json:"cashier_name"`
	Status            ShiftStatus         `gorm:"size:10;not null;index" json:"status"`
	OpenedAt          time.Time           `gorm:"not null;index" json:"opened_at"`
	ClosedAt          *time.Time          `json:"closed_at,omitempty"`
	OpeningCashAmount decimal.Decimal     `gorm:"type:decimal(14,2);not null" json:"opening_cash_amount"`
	ClosingCashAmount decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"closing_cash_amount"`
	CashVariance      decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"cash_variance"`
	Notes             string              `gorm:"size:500" json:"notes"`
	Summary           SalesSummary        `gorm:"embedded;embeddedPrefix:summary_" json:"sales_summary"`
	Version           int64               `gorm:"not null;default:0" json:"version"`
	CreatedAt         time.Time           `json:"-"`
	UpdatedAt         time.Time           `json:"-"`

	Ledger []ShiftTransaction `gorm:"foreignKey:ShiftID" json:"ledger"`
}

func (s *Shift) IsOpen() bool { return s.Status == ShiftOpen }

// Clone returns a deep copy; ledger entries are values so copying the slice
// is enough.
func (s Shift) Clone() Shift {
	out := s
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		out.ClosedAt = &t
	}
	out.Summary = s.Summary.Clone()
	out.Ledger = make([]ShiftTransaction, len(s.Ledger))
	copy(out.Ledger, s.Ledger)
	return out
}

// Reconciliation is the result of closing a shift.
type Reconciliation struct {
	ShiftID      string          `json:"shift_id"`
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	CountedCash  decimal.Decimal `json:"counted_cash"`
	Variance     decimal.Decimal `json:"variance"`
	Outcome      string          `json:"outcome"`
}

const (
	OutcomeBalanced = "balanced"
	OutcomeOverage  = "overage"
	OutcomeShortage = "shortage"
)
