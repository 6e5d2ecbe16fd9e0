package promotions

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func TestPriceSummary(t *testing.T) {
	items := []Item{
		{ProductPrice: dec("350"), Quantity: 2, PriceOverride: ptr(dec("300"))},
		{ProductPrice: dec("120"), Quantity: 1},
		{ProductPrice: dec("99"), Quantity: 3, IsFreebie: true},
	}
	got := PriceSummary(items)
	require.Equal(t, "820", got.NormalPrice.String())
	require.Equal(t, "720", got.PromoPrice.String())
	require.Equal(t, "100", got.Saving.String())

	empty := PriceSummary(nil)
	require.True(t, empty.NormalPrice.IsZero())
	require.True(t, empty.Saving.IsZero())
}

func TestActiveOn(t *testing.T) {
	day := func(s string) *time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return &d
	}
	at := time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)
	cases := []struct {
		name string
		p    Promotion
		want bool
	}{
		{"open both ends", Promotion{IsActive: true}, true},
		{"inactive", Promotion{IsActive: false}, false},
		{"within", Promotion{IsActive: true, StartDate: day("2025-03-01"), EndDate: day("2025-03-31")}, true},
		{"ends that day", Promotion{IsActive: true, EndDate: day("2025-03-15")}, true},
		{"starts that day", Promotion{IsActive: true, StartDate: day("2025-03-15")}, true},
		{"ended", Promotion{IsActive: true, EndDate: day("2025-03-14")}, false},
		{"not started", Promotion{IsActive: true, StartDate: day("2025-03-16")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ActiveOn(tc.p, at))
		})
	}
}
