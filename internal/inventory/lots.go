package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// EffectiveStatus derives a lot's status on the day of now: empty lots are
// Depleted, lots past their expiry date are Expired.
func EffectiveStatus(l Lot, now time.Time) string {
	if l.QuantityRemaining <= 0 {
		return LotDepleted
	}
	if l.ExpiryDate != nil && dayOf(*l.ExpiryDate).Before(dayOf(now)) {
		return LotExpired
	}
	return LotActive
}

// SummariseLots counts lots per status and totals remaining stock and its
// value. Active lots expiring within warnDays are counted as expiring soon.
func SummariseLots(lots []Lot, now time.Time, warnDays int) LotSummary {
	sum := LotSummary{TotalValue: decimal.Zero}
	today := dayOf(now)
	horizon := today.AddDate(0, 0, warnDays)
	for _, l := range lots {
		status := EffectiveStatus(l, now)
		switch status {
		case LotActive:
			sum.Active++
			if l.ExpiryDate != nil && !dayOf(*l.ExpiryDate).After(horizon) {
				sum.ExpiringSoon++
			}
		case LotDepleted:
			sum.Depleted++
		case LotExpired:
			sum.Expired++
		}
		sum.TotalRemaining += l.QuantityRemaining
		sum.TotalValue = sum.TotalValue.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(l.QuantityRemaining))))
	}
	return sum
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
