package reports

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mini-erp/telecrm/internal/orders"
	"github.com/mini-erp/telecrm/internal/platform/cache"
	"github.com/mini-erp/telecrm/internal/shared"
	"github.com/mini-erp/telecrm/internal/xlsx"
)

type stubRepo struct {
	totalsCalls atomic.Int32
	failDaily   bool
	telesales   []TelesalesRow
}

func (r *stubRepo) Totals(context.Context, Filter) (Totals, error) {
	r.totalsCalls.Add(1)
	return Totals{Orders: 2, Revenue: decimal.RequireFromString("250"), PaidAmount: decimal.Zero}, nil
}

func (r *stubRepo) ByStatus(context.Context, Filter) ([]Bucket, error) {
	return []Bucket{{Key: "pending", Count: 2, Amount: decimal.RequireFromString("250")}}, nil
}

func (r *stubRepo) ByPaymentMethod(context.Context, Filter) ([]Bucket, error) {
	return []Bucket{{Key: "transfer", Count: 2, Amount: decimal.RequireFromString("250")}}, nil
}

func (r *stubRepo) Daily(context.Context, Filter) ([]DailyPoint, error) {
	if r.failDaily {
		return nil, errors.New("daily failed")
	}
	return nil, nil
}

func (r *stubRepo) TopProducts(_ context.Context, _ Filter, limit int) ([]TopProduct, error) {
	return []TopProduct{{Name: "Serum", Quantity: limit, Revenue: decimal.RequireFromString("250")}}, nil
}

func (r *stubRepo) Telesales(context.Context, Filter) ([]TelesalesRow, error) {
	out := make([]TelesalesRow, len(r.telesales))
	copy(out, r.telesales)
	return out, nil
}

type stubSheets struct{ filter orders.Filters }

func (s *stubSheets) Sheet(_ context.Context, _ shared.ListParams, f orders.Filters) (xlsx.Sheet, int, error) {
	s.filter = f
	return xlsx.Sheet{Name: "Orders", Header: []string{"ID"}, Rows: [][]any{{"ORD-1"}}}, 1, nil
}

func march() Filter {
	company := int64(1)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return Filter{CompanyID: &company, From: from, To: from.AddDate(0, 1, 0)}
}

func TestSalesSummaryCachedUntilBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	versioned := cache.NewVersioned(client, "reports", time.Minute)
	repo := &stubRepo{}
	svc := NewService(repo, versioned, nil)
	ctx := context.Background()

	first, err := svc.SalesSummary(ctx, march())
	require.NoError(t, err)
	require.Equal(t, "125", first.Totals.AverageOrderValue.String())
	require.Len(t, first.Daily, 31)
	require.Equal(t, TopProductLimit, first.TopProducts[0].Quantity)

	second, err := svc.SalesSummary(ctx, march())
	require.NoError(t, err)
	require.Equal(t, first.Totals.Orders, second.Totals.Orders)
	require.Equal(t, int32(1), repo.totalsCalls.Load())

	require.NoError(t, versioned.Bump(ctx))
	_, err = svc.SalesSummary(ctx, march())
	require.NoError(t, err)
	require.Equal(t, int32(2), repo.totalsCalls.Load())
}

func TestSalesSummaryPropagatesErrors(t *testing.T) {
	svc := NewService(&stubRepo{failDaily: true}, nil, nil)
	_, err := svc.SalesSummary(context.Background(), march())
	require.EqualError(t, err, "daily failed")
}

func TestTelesalesConversion(t *testing.T) {
	repo := &stubRepo{telesales: []TelesalesRow{
		{UserID: 1, Name: "Somchai", CustomersAssigned: 8, CustomersWithOrders: 2},
		{UserID: 2, Name: "Malee"},
	}}
	rows, err := NewService(repo, nil, nil).Telesales(context.Background(), march())
	require.NoError(t, err)
	require.Equal(t, 25.0, rows[0].ConversionRate)
	require.Zero(t, rows[1].ConversionRate)
}

func TestOrdersWorkbook(t *testing.T) {
	sheets := &stubSheets{}
	svc := NewService(&stubRepo{}, nil, sheets)
	var buf bytes.Buffer
	require.NoError(t, svc.OrdersWorkbook(context.Background(), march(), &buf))
	require.Equal(t, int64(1), *sheets.filter.CompanyID)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.Equal(t, []string{"Summary", "Orders"}, f.GetSheetList())
	v, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	require.Equal(t, "2025-03-01 - 2025-03-31", v)
}
