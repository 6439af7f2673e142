package firestore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"waffle-pos-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestShiftDoc_KeepsDecimalPrecision(t *testing.T) {
	opened := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	closed := opened.Add(9 * time.Hour)
	order := "order-77"

	s := &models.Shift{
		ID:                "shift-1",
		CashierID:         "cashier-1",
		Status:            models.ShiftClosed,
		OpenedAt:          opened,
		ClosedAt:          &closed,
		OpeningCashAmount: decimal.RequireFromString("0.10"),
		ClosingCashAmount: decimal.NewNullDecimal(decimal.RequireFromString("0.30")),
		CashVariance:      decimal.NewNullDecimal(decimal.RequireFromString("0.00")),
		Version:           2,
		Summary: models.SalesSummary{
			TotalSales:       decimal.RequireFromString("0.20"),
			TransactionCount: 1,
			SalesByPaymentMethod: map[models.PaymentMethod]decimal.Decimal{
				models.PaymentCash: decimal.RequireFromString("0.20"),
			},
		},
		Ledger: []models.ShiftTransaction{{
			ID:             "tx-2",
			Seq:            2,
			Kind:           models.KindSale,
			Amount:         decimal.RequireFromString("0.20"),
			PaymentMethod:  models.PaymentCash,
			RelatedOrderID: &order,
			Timestamp:      opened,
		}},
	}

	doc := toShiftDoc(s)
	assert.Equal(t, "0.1", doc.OpeningCashAmount)
	require.NotNil(t, doc.ClosingCashAmount)
	assert.Equal(t, "0.3", *doc.ClosingCashAmount)

	back, err := fromShiftDoc(doc)
	require.NoError(t, err)
	assert.True(t, back.OpeningCashAmount.Add(back.Summary.TotalSales).Equal(back.ClosingCashAmount.Decimal))
	assert.Equal(t, "shift-1", back.Ledger[0].ShiftID)
	assert.Equal(t, &order, back.Ledger[0].RelatedOrderID)
	assert.True(t, back.Summary.SalesByPaymentMethod[models.PaymentCash].Equal(decimal.RequireFromString("0.2")))
}

func TestShiftDoc_OpenShiftHasNoClosingFields(t *testing.T) {
	doc := toShiftDoc(&models.Shift{ID: "shift-2", Status: models.ShiftOpen, OpeningCashAmount: decimal.NewFromInt(5)})
	assert.Nil(t, doc.ClosingCashAmount)
	assert.Nil(t, doc.CashVariance)

	back, err := fromShiftDoc(doc)
	require.NoError(t, err)
	assert.False(t, back.ClosingCashAmount.Valid)
	assert.False(t, back.CashVariance.Valid)
}

func TestShiftDoc_CorruptAmount(t *testing.T) {
	doc := toShiftDoc(&models.Shift{ID: "shift-3", Status: models.ShiftOpen})
	doc.Ledger = append(doc.Ledger, transactionDoc{ID: "tx-1", Seq: 1, Kind: "sale", Amount: "12,50"})

	_, err := fromShiftDoc(doc)
	assert.ErrorIs(t, err, models.ErrPersistence)
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil, "x"))
	assert.ErrorIs(t, mapErr(status.Error(codes.NotFound, "no doc"), "x"), models.ErrNotFound)
	assert.ErrorIs(t, mapErr(status.Error(codes.AlreadyExists, "dup"), "x"), models.ErrConflict)
	assert.ErrorIs(t, mapErr(status.Error(codes.Aborted, "contention"), "x"), models.ErrConflict)
	assert.ErrorIs(t, mapErr(status.Error(codes.Unavailable, "down"), "x"), models.ErrPersistence)
	assert.ErrorIs(t, mapErr(errors.New("boom"), "x"), models.ErrPersistence)

	// already classified errors keep their kind
	conflict := fmt.Errorf("%w: shift already open", models.ErrConflict)
	assert.Equal(t, conflict, mapErr(conflict, "x"))
}
