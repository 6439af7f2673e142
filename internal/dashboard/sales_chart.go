package dashboard

import (
	"context"
	"sort"
	"time"

	"waffle-pos-backend/internal/auth"
	"waffle-pos-backend/internal/httperr"
	"waffle-pos-backend/internal/models"
	"waffle-pos-backend/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// ShiftLister is the slice of the cash register service the chart reads.
type ShiftLister interface {
	ListShifts(ctx context.Context, actor models.Identity, filter repository.ShiftFilter) ([]models.Shift, int64, error)
}

type SalesChartPoint struct {
	Label    string                                   `json:"label"` // bucket start, YYYY-MM-DD
	ByMethod map[models.PaymentMethod]decimal.Decimal `json:"by_method"`
	Sales    decimal.Decimal                          `json:"sales"`
	Refunds  decimal.Decimal                          `json:"refunds"`
	Net      decimal.Decimal                          `json:"net"`
	Tips     decimal.Decimal                          `json:"tips"`
}

type SalesChartResponse struct {
	Period      string            `json:"period"`
	From        string            `json:"from"`
	To          string            `json:"to"` // inclusive
	Points      []SalesChartPoint `json:"points"`
	GrandTotals SalesChartPoint   `json:"grand_totals"`
}

func newPoint(label string) *SalesChartPoint {
	return &SalesChartPoint{
		Label:    label,
		ByMethod: map[models.PaymentMethod]decimal.Decimal{},
		Sales:    decimal.Zero,
		Refunds:  decimal.Zero,
		Net:      decimal.Zero,
		Tips:     decimal.Zero,
	}
}

func (p *SalesChartPoint) add(tx models.ShiftTransaction) {
	switch tx.Kind {
	case models.KindSale:
		p.Sales = p.Sales.Add(tx.Amount)
		p.Tips = p.Tips.Add(tx.Tip)
		p.ByMethod[tx.PaymentMethod] = p.ByMethod[tx.PaymentMethod].Add(tx.Amount)
	case models.KindRefund:
		p.Refunds = p.Refunds.Add(tx.Amount)
		p.ByMethod[tx.PaymentMethod] = p.ByMethod[tx.PaymentMethod].Sub(tx.Amount)
	default:
		return
	}
	p.Net = p.Sales.Sub(p.Refunds)
}

// ChartWindow returns [start, end) covering count buckets of the period,
// the last one containing now. Unknown periods fall back to daily.
func ChartWindow(period string, count int, now time.Time) (string, time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch period {
	case PeriodWeekly:
		if count <= 0 {
			count = 8
		}
		monday := bucketStart(PeriodWeekly, today)
		return PeriodWeekly, monday.AddDate(0, 0, -7*(count-1)), monday.AddDate(0, 0, 7)
	case PeriodMonthly:
		if count <= 0 {
			count = 12
		}
		first := bucketStart(PeriodMonthly, today)
		return PeriodMonthly, first.AddDate(0, -(count - 1), 0), first.AddDate(0, 1, 0)
	default:
		if count <= 0 {
			count = 7
		}
		return PeriodDaily, today.AddDate(0, 0, -(count - 1)), today.AddDate(0, 0, 1)
	}
}

func bucketStart(period string, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch period {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7 // monday = 0
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

// BuildSalesChart folds the sales and refunds of the given shifts whose
// timestamp falls in [start, end) into period buckets.
func BuildSalesChart(shifts []models.Shift, period string, start, end time.Time) SalesChartResponse {
	buckets := map[time.Time]*SalesChartPoint{}
	grand := newPoint("total")

	for _, shift := range shifts {
		for _, tx := range shift.Ledger {
			ts := tx.Timestamp.In(start.Location())
			if ts.Before(start) || !ts.Before(end) {
				continue
			}
			key := bucketStart(period, ts)
			p, ok := buckets[key]
			if !ok {
				p = newPoint(key.Format("2006-01-02"))
				buckets[key] = p
			}
			p.add(tx)
			grand.add(tx)
		}
	}

	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	points := make([]SalesChartPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, *buckets[k])
	}

	return SalesChartResponse{
		Period:      period,
		From:        start.Format("2006-01-02"),
		To:          end.AddDate(0, 0, -1).Format("2006-01-02"),
		Points:      points,
		GrandTotals: *grand,
	}
}

// GET /api/dashboard/sales-chart?period=daily&count=7
// Cashiers see their own shifts only, as in the shift list. Closed shifts
// opened more than a day before the window are not scanned.
func SalesChartHandler(svc ShiftLister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := auth.IdentityFrom(c)
		if err != nil {
			return err
		}

		count := c.QueryInt("count", 0)
		if count < 0 || count > 366 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid count")
		}
		period, start, end := ChartWindow(c.Query("period", PeriodDaily), count, time.Now())

		// shifts opened in the window, plus any still-open shift whatever
		// its age, so long-running shifts keep their in-window entries
		cashierID := c.Query("cashier_id")
		from := start.AddDate(0, 0, -1)
		windowed, err := listAll(c.UserContext(), svc, identity, repository.ShiftFilter{
			CashierID: cashierID,
			From:      &from,
			To:        &end,
		})
		if err != nil {
			return httperr.From(err)
		}
		open, err := listAll(c.UserContext(), svc, identity, repository.ShiftFilter{
			CashierID: cashierID,
			Status:    models.ShiftOpen,
			To:        &end,
		})
		if err != nil {
			return httperr.From(err)
		}

		seen := make(map[string]bool, len(windowed))
		all := make([]models.Shift, 0, len(windowed)+len(open))
		for _, group := range [][]models.Shift{windowed, open} {
			for _, shift := range group {
				if seen[shift.ID] {
					continue
				}
				seen[shift.ID] = true
				all = append(all, shift)
			}
		}

		return c.JSON(BuildSalesChart(all, period, start, end))
	}
}

func listAll(ctx context.Context, svc ShiftLister, actor models.Identity, filter repository.ShiftFilter) ([]models.Shift, error) {
	filter.Page = 1
	filter.PageSize = 200

	var all []models.Shift
	for {
		page, total, err := svc.ListShifts(ctx, actor, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || int64(len(all)) >= total {
			return all, nil
		}
		filter.Page++
	}
}
