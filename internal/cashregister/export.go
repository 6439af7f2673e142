package cashregister

import (
	"fmt"

	"waffle-pos-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	shiftsSheet = "Shifts"
	ledgerSheet = "Ledger"
)

var shiftsHeader = []any{
	"Shift ID", "Cashier", "Status", "Opened At", "Closed At",
	"Opening Cash", "Expected Cash", "Counted Cash", "Variance",
	"Total Sales", "Sale Count", "Untracked Sales", "Tips", "Notes",
}

var ledgerHeader = []any{
	"Shift ID", "Seq", "Kind", "Payment Method", "Amount", "Tip",
	"Order ID", "Description", "Created By", "Timestamp",
}

// ExportShifts renders shifts and their ledgers as an xlsx workbook with one
// sheet per table.
func ExportShifts(shifts []models.Shift) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", shiftsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ledgerSheet); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(shiftsSheet, "A1", &shiftsHeader); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(ledgerSheet, "A1", &ledgerHeader); err != nil {
		return nil, err
	}

	ledgerRow := 2
	for i, s := range shifts {
		closedAt, counted, variance := "", "", ""
		if s.ClosedAt != nil {
			closedAt = s.ClosedAt.Format("2006-01-02 15:04:05")
		}
		if s.ClosingCashAmount.Valid {
			counted = s.ClosingCashAmount.Decimal.StringFixed(2)
		}
		if s.CashVariance.Valid {
			variance = s.CashVariance.Decimal.StringFixed(2)
		}

		row := []any{
			s.ID,
			s.CashierName,
			string(s.Status),
			s.OpenedAt.Format("2006-01-02 15:04:05"),
			closedAt,
			s.OpeningCashAmount.StringFixed(2),
			ExpectedCash(s).StringFixed(2),
			counted,
			variance,
			s.Summary.TotalSales.StringFixed(2),
			s.Summary.TransactionCount,
			s.Summary.UntrackedSales.StringFixed(2),
			s.Summary.TipTotal.StringFixed(2),
			s.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(shiftsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write shift %s: %w", s.ID, err)
		}

		for _, tx := range s.Ledger {
			orderID := ""
			if tx.RelatedOrderID != nil {
				orderID = *tx.RelatedOrderID
			}
			txRow := []any{
				s.ID,
				tx.Seq,
				string(tx.Kind),
				string(tx.PaymentMethod),
				tx.Amount.StringFixed(2),
				tx.Tip.StringFixed(2),
				orderID,
				tx.Description,
				tx.CreatedBy,
				tx.Timestamp.Format("2006-01-02 15:04:05"),
			}
			cell, _ := excelize.CoordinatesToCellName(1, ledgerRow)
			if err := f.SetSheetRow(ledgerSheet, cell, &txRow); err != nil {
				return nil, fmt.Errorf("write ledger of shift %s: %w", s.ID, err)
			}
			ledgerRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
