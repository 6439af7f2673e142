package firestore

import (
	"fmt"
	"time"

	"waffle-pos-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Firestore has no decimal type; amounts are stored as strings so nothing
// goes through float64.

type transactionDoc struct {
	ID             string    `firestore:"id"`
	Seq            int       `firestore:"seq"`
	Kind           string    `firestore:"kind"`
	Amount         string    `firestore:"amount"`
	Tip            string    `firestore:"tip"`
	PaymentMethod  string    `firestore:"payment_method"`
	RelatedOrderID *string   `firestore:"related_order_id"`
	Description    string    `firestore:"description"`
	CreatedBy      string    `firestore:"created_by"`
	Timestamp      time.Time `firestore:"timestamp"`
}

type shiftDoc struct {
	ID                string     `firestore:"id"`
	CashierID         string     `firestore:"cashier_id"`
	CashierName       string     `firestore:"cashier_name"`
	Status            string     `firestore:"status"`
	OpenedAt          time.Time  `firestore:"opened_at"`
	ClosedAt          *time.Time `firestore:"closed_at"`
	OpeningCashAmount string     `firestore:"opening_cash_amount"`
	ClosingCashAmount *string    `firestore:"closing_cash_amount"`
	CashVariance      *string    `firestore:"cash_variance"`
	Notes             string     `firestore:"notes"`
	Version           int64      `firestore:"version"`

	TotalSales           string            `firestore:"total_sales"`
	TransactionCount     int               `firestore:"transaction_count"`
	SalesByPaymentMethod map[string]string `firestore:"sales_by_payment_method"`
	UntrackedSales       string            `firestore:"untracked_sales"`
	TipTotal             string            `firestore:"tip_total"`

	Ledger []transactionDoc `firestore:"ledger"`
}

func nullString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func toShiftDoc(s *models.Shift) shiftDoc {
	doc := shiftDoc{
		ID:                s.ID,
		CashierID:         s.CashierID,
		CashierName:       s.CashierName,
		Status:            string(s.Status),
		OpenedAt:          s.OpenedAt,
		ClosedAt:          s.ClosedAt,
		OpeningCashAmount: s.OpeningCashAmount.String(),
		ClosingCashAmount: nullString(s.ClosingCashAmount),
		CashVariance:      nullString(s.CashVariance),
		Notes:             s.Notes,
		Version:           s.Version,
		TotalSales:        s.Summary.TotalSales.String(),
		TransactionCount:  s.Summary.TransactionCount,
		UntrackedSales:    s.Summary.UntrackedSales.String(),
		TipTotal:          s.Summary.TipTotal.String(),

		SalesByPaymentMethod: make(map[string]string, len(s.Summary.SalesByPaymentMethod)),
		Ledger:               make([]transactionDoc, 0, len(s.Ledger)),
	}
	for m, v := range s.Summary.SalesByPaymentMethod {
		doc.SalesByPaymentMethod[string(m)] = v.String()
	}
	for _, tx := range s.Ledger {
		doc.Ledger = append(doc.Ledger, transactionDoc{
			ID:             tx.ID,
			Seq:            tx.Seq,
			Kind:           string(tx.Kind),
			Amount:         tx.Amount.String(),
			Tip:            tx.Tip.String(),
			PaymentMethod:  string(tx.PaymentMethod),
			RelatedOrderID: tx.RelatedOrderID,
			Description:    tx.Description,
			CreatedBy:      tx.CreatedBy,
			Timestamp:      tx.Timestamp,
		})
	}
	return doc
}

// amounts parses stored strings, remembering the first failure.
type amounts struct {
	shiftID string
	err     error
}

func (a *amounts) parse(field, s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil && a.err == nil {
		a.err = fmt.Errorf("%w: shift %s has a corrupt %s %q", models.ErrPersistence, a.shiftID, field, s)
	}
	return d
}

func (a *amounts) parseNull(field string, s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(a.parse(field, *s))
}

func fromShiftDoc(doc shiftDoc) (*models.Shift, error) {
	a := &amounts{shiftID: doc.ID}
	s := &models.Shift{
		ID:                doc.ID,
		CashierID:         doc.CashierID,
		CashierName:       doc.CashierName,
		Status:            models.ShiftStatus(doc.Status),
		OpenedAt:          doc.OpenedAt,
		ClosedAt:          doc.ClosedAt,
		OpeningCashAmount: a.parse("opening_cash_amount", doc.OpeningCashAmount),
		ClosingCashAmount: a.parseNull("closing_cash_amount", doc.ClosingCashAmount),
		CashVariance:      a.parseNull("cash_variance", doc.CashVariance),
		Notes:             doc.Notes,
		Version:           doc.Version,
		Summary: models.SalesSummary{
			TotalSales:           a.parse("total_sales", doc.TotalSales),
			TransactionCount:     doc.TransactionCount,
			SalesByPaymentMethod: make(map[models.PaymentMethod]decimal.Decimal, len(doc.SalesByPaymentMethod)),
			UntrackedSales:       a.parse("untracked_sales", doc.UntrackedSales),
			TipTotal:             a.parse("tip_total", doc.TipTotal),
		},
		Ledger: make([]models.ShiftTransaction, 0, len(doc.Ledger)),
	}
	for m, v := range doc.SalesByPaymentMethod {
		s.Summary.SalesByPaymentMethod[models.PaymentMethod(m)] = a.parse("sales_by_payment_method."+m, v)
	}
	for _, tx := range doc.Ledger {
		s.Ledger = append(s.Ledger, models.ShiftTransaction{
			ID:             tx.ID,
			ShiftID:        doc.ID,
			Seq:            tx.Seq,
			Kind:           models.TransactionKind(tx.Kind),
			Amount:         a.parse("ledger amount", tx.Amount),
			Tip:            a.parse("ledger tip", tx.Tip),
			PaymentMethod:  models.PaymentMethod(tx.PaymentMethod),
			RelatedOrderID: tx.RelatedOrderID,
			Description:    tx.Description,
			CreatedBy:      tx.CreatedBy,
			Timestamp:      tx.Timestamp,
		})
	}
	if a.err != nil {
		return nil, a.err
	}
	return s, nil
}
