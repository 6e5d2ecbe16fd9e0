package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBuildSalesSummary(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 3)
	sum := BuildSalesSummary(from, to, SalesParts{
		Totals: Totals{Orders: 3, Revenue: decimal.RequireFromString("100"), PaidAmount: decimal.RequireFromString("40")},
		ByStatus: []Bucket{
			{Key: "pending", Count: 1},
			{Key: "delivered", Count: 3},
		},
		ByPaymentMethod: []Bucket{{Key: "cod", Count: 3}},
		Daily:           []DailyPoint{{Date: "2025-03-02", Orders: 3, Revenue: decimal.RequireFromString("100")}},
	})

	require.Equal(t, "2025-03-01", sum.From)
	require.Equal(t, "2025-03-03", sum.To)
	require.Equal(t, "33.33", sum.Totals.AverageOrderValue.StringFixed(2))

	require.Equal(t, "delivered", sum.ByStatus[0].Key)
	require.Equal(t, 75.0, sum.ByStatus[0].Percentage)
	require.Equal(t, 25.0, sum.ByStatus[1].Percentage)
	require.Equal(t, 100.0, sum.ByPaymentMethod[0].Percentage)

	require.Len(t, sum.Daily, 3)
	require.Equal(t, "2025-03-01", sum.Daily[0].Date)
	require.Zero(t, sum.Daily[0].Orders)
	require.Equal(t, 3, sum.Daily[1].Orders)
	require.NotNil(t, sum.TopProducts)
}

func TestBuildSalesSummaryEmpty(t *testing.T) {
	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	sum := BuildSalesSummary(from, from.AddDate(0, 1, 0), SalesParts{})
	require.True(t, sum.Totals.AverageOrderValue.IsZero())
	require.Len(t, sum.Daily, 28)
	require.Empty(t, sum.ByStatus)
}

func TestPercent(t *testing.T) {
	require.Equal(t, 0.0, Percent(3, 0))
	require.Equal(t, 66.67, Percent(2, 3))
	require.Equal(t, 100.0, Percent(5, 5))
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	from, to := ResolveWindow(nil, nil, now)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), to)

	start := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	from, to = ResolveWindow(&start, nil, now)
	require.Equal(t, start, from)
	require.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), to)

	end := time.Date(2025, 2, 16, 0, 0, 0, 0, time.UTC)
	from, to = ResolveWindow(nil, &end, now)
	require.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, end, to)
}

func TestResolveWindowFollowsBusinessZone(t *testing.T) {
	bangkok, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)
	// 23:30 UTC on 31 March is already April in Bangkok.
	now := time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC).In(bangkok)

	from, to := ResolveWindow(nil, nil, now)
	require.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, bangkok), from)
	require.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, bangkok), to)
	require.Equal(t, time.Date(2025, 3, 31, 17, 0, 0, 0, time.UTC), from.UTC())
}
