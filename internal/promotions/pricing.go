package promotions

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pricing compares the bundle price against buying the items at list price.
type Pricing struct {
	NormalPrice decimal.Decimal `json:"normalPrice"`
	PromoPrice  decimal.Decimal `json:"promoPrice"`
	Saving      decimal.Decimal `json:"saving"`
}

// PriceSummary sums quantity*price over non-freebie items, using the
// override when one is set for the promo price.
func PriceSummary(items []Item) Pricing {
	p := Pricing{NormalPrice: decimal.Zero, PromoPrice: decimal.Zero}
	for _, it := range items {
		if it.IsFreebie {
			continue
		}
		qty := decimal.NewFromInt(int64(it.Quantity))
		p.NormalPrice = p.NormalPrice.Add(it.ProductPrice.Mul(qty))
		price := it.ProductPrice
		if it.PriceOverride != nil {
			price = *it.PriceOverride
		}
		p.PromoPrice = p.PromoPrice.Add(price.Mul(qty))
	}
	p.Saving = p.NormalPrice.Sub(p.PromoPrice)
	return p
}

// ActiveOn reports whether p runs on the calendar day of at. Open ends are unbounded.
func ActiveOn(p Promotion, at time.Time) bool {
	if !p.IsActive {
		return false
	}
	day := truncateDay(at)
	if p.StartDate != nil && day.Before(truncateDay(*p.StartDate)) {
		return false
	}
	if p.EndDate != nil && day.After(truncateDay(*p.EndDate)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
