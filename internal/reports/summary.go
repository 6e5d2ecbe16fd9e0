package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

// SalesParts are the raw aggregates a sales summary is built from.
type SalesParts struct {
	Totals          Totals
	ByStatus        []Bucket
	ByPaymentMethod []Bucket
	Daily           []DailyPoint
	TopProducts     []TopProduct
}

// BuildSalesSummary derives averages and percentages and zero-fills the
// daily series over [from, to).
func BuildSalesSummary(from, to time.Time, parts SalesParts) SalesSummary {
	totals := parts.Totals
	totals.AverageOrderValue = decimal.Zero
	if totals.Orders > 0 {
		totals.AverageOrderValue = totals.Revenue.Div(decimal.NewFromInt(int64(totals.Orders))).Round(2)
	}
	top := parts.TopProducts
	if top == nil {
		top = []TopProduct{}
	}
	return SalesSummary{
		From:            from.Format(dayLayout),
		To:              to.AddDate(0, 0, -1).Format(dayLayout),
		Totals:          totals,
		ByStatus:        withPercentages(parts.ByStatus),
		ByPaymentMethod: withPercentages(parts.ByPaymentMethod),
		Daily:           zeroFill(from, to, parts.Daily),
		TopProducts:     top,
	}
}

// Percent returns part/whole as a percentage rounded to 2 decimals.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	v, _ := decimal.NewFromInt(int64(part)).Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).Round(2).Float64()
	return v
}

func withPercentages(in []Bucket) []Bucket {
	out := make([]Bucket, len(in))
	total := 0
	for _, b := range in {
		total += b.Count
	}
	for i, b := range in {
		b.Percentage = Percent(b.Count, total)
		out[i] = b
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func zeroFill(from, to time.Time, points []DailyPoint) []DailyPoint {
	byDate := make(map[string]DailyPoint, len(points))
	for _, p := range points {
		byDate[p.Date] = p
	}
	out := []DailyPoint{}
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		p, ok := byDate[key]
		if !ok {
			p = DailyPoint{Date: key, Revenue: decimal.Zero}
		}
		out = append(out, p)
	}
	return out
}
