package reports

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/mini-erp/telecrm/internal/orders"
	"github.com/mini-erp/telecrm/internal/platform/cache"
	"github.com/mini-erp/telecrm/internal/shared"
	"github.com/mini-erp/telecrm/internal/xlsx"
)

// TopProductLimit bounds the top products list.
const TopProductLimit = 10

// OrderSheets renders the order listing as a worksheet.
type OrderSheets interface {
	Sheet(ctx context.Context, params shared.ListParams, f orders.Filters) (xlsx.Sheet, int, error)
}

// Service coordinates report queries with the cache layer.
type Service struct {
	repo   Repository
	cache  *cache.Versioned
	orders OrderSheets
}

// NewService wires the service. A nil cache queries on every call.
func NewService(repo Repository, cache *cache.Versioned, orders OrderSheets) *Service {
	return &Service{repo: repo, cache: cache, orders: orders}
}

func (f Filter) cacheParts(kind string) []string {
	company := "all"
	if f.CompanyID != nil {
		company = fmt.Sprint(*f.CompanyID)
	}
	return []string{kind, company, f.From.Format(dayLayout), f.To.Format(dayLayout)}
}

// SalesSummary returns the sales dashboard for f.
func (s *Service) SalesSummary(ctx context.Context, f Filter) (SalesSummary, error) {
	loader := func(ctx context.Context) (any, error) {
		var parts SalesParts
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			parts.Totals, err = s.repo.Totals(ctx, f)
			return err
		})
		g.Go(func() error {
			var err error
			parts.ByStatus, err = s.repo.ByStatus(ctx, f)
			return err
		})
		g.Go(func() error {
			var err error
			parts.ByPaymentMethod, err = s.repo.ByPaymentMethod(ctx, f)
			return err
		})
		g.Go(func() error {
			var err error
			parts.Daily, err = s.repo.Daily(ctx, f)
			return err
		})
		g.Go(func() error {
			var err error
			parts.TopProducts, err = s.repo.TopProducts(ctx, f, TopProductLimit)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return BuildSalesSummary(f.From, f.To, parts), nil
	}
	var out SalesSummary
	if err := s.cache.FetchJSON(ctx, &out, loader, f.cacheParts("sales")...); err != nil {
		return SalesSummary{}, err
	}
	return out, nil
}

// Telesales returns per-creator performance with conversion rates.
func (s *Service) Telesales(ctx context.Context, f Filter) ([]TelesalesRow, error) {
	loader := func(ctx context.Context) (any, error) {
		rows, err := s.repo.Telesales(ctx, f)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			rows[i].ConversionRate = Percent(rows[i].CustomersWithOrders, rows[i].CustomersAssigned)
		}
		return rows, nil
	}
	var out []TelesalesRow
	if err := s.cache.FetchJSON(ctx, &out, loader, f.cacheParts("telesales")...); err != nil {
		return nil, err
	}
	return out, nil
}

// SummarySheet lays the sales totals and breakdowns out as label/value rows.
func SummarySheet(sum SalesSummary) xlsx.Sheet {
	rows := [][]any{
		{"ช่วงเวลา", sum.From + " - " + sum.To},
		{"จำนวนคำสั่งซื้อ", sum.Totals.Orders},
		{"ยอดขาย", sum.Totals.Revenue.InexactFloat64()},
		{"ยอดเฉลี่ยต่อคำสั่งซื้อ", sum.Totals.AverageOrderValue.InexactFloat64()},
		{"ยอดชำระแล้ว", sum.Totals.PaidAmount.InexactFloat64()},
		{},
		{"สถานะคำสั่งซื้อ", "จำนวน", "ร้อยละ"},
	}
	for _, b := range sum.ByStatus {
		rows = append(rows, []any{b.Key, b.Count, b.Percentage})
	}
	rows = append(rows, []any{}, []any{"วิธีชำระเงิน", "จำนวน", "ร้อยละ"})
	for _, b := range sum.ByPaymentMethod {
		rows = append(rows, []any{b.Key, b.Count, b.Percentage})
	}
	return xlsx.Sheet{Name: "Summary", Header: []string{"รายการ", "ค่า"}, Rows: rows, Widths: map[int]float64{0: 28, 1: 20}}
}

// OrdersWorkbook writes a Summary sheet and an Orders sheet for f.
func (s *Service) OrdersWorkbook(ctx context.Context, f Filter, out io.Writer) error {
	sum, err := s.SalesSummary(ctx, f)
	if err != nil {
		return err
	}
	from, to := f.From, f.To
	sheet, _, err := s.orders.Sheet(ctx, shared.ListParams{From: &from, To: &to}, orders.Filters{CompanyID: f.CompanyID})
	if err != nil {
		return err
	}
	return xlsx.Write(out, SummarySheet(sum), sheet)
}
