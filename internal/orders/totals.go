package orders

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

// Totals is the priced result of an order.
type Totals struct {
	Lines    []decimal.Decimal
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// LineTotal is quantity*price - discount. Freebies are free.
func LineTotal(it ItemInput) decimal.Decimal {
	if it.IsFreebie {
		return decimal.Zero
	}
	return it.PricePerUnit.Mul(decimal.NewFromInt(int64(it.Quantity))).Sub(it.Discount)
}

// CalculateTotals prices the lines and applies shipping and the bill discount.
// Negative prices, discounts or a negative total are rejected.
func CalculateTotals(items []ItemInput, shipping, billDiscount decimal.Decimal) (Totals, error) {
	fields := map[string]string{}
	if shipping.IsNegative() {
		fields["shippingCost"] = "must not be negative"
	}
	if billDiscount.IsNegative() {
		fields["billDiscount"] = "must not be negative"
	}
	t := Totals{Lines: make([]decimal.Decimal, len(items)), Subtotal: decimal.Zero}
	for i, it := range items {
		if it.PricePerUnit.IsNegative() {
			fields[fmt.Sprintf("items[%d].pricePerUnit", i)] = "must not be negative"
		}
		if it.Discount.IsNegative() {
			fields[fmt.Sprintf("items[%d].discount", i)] = "must not be negative"
		}
		line := LineTotal(it)
		if line.IsNegative() {
			fields[fmt.Sprintf("items[%d].discount", i)] = "exceeds the line amount"
		}
		t.Lines[i] = line
		t.Subtotal = t.Subtotal.Add(line)
	}
	t.Total = t.Subtotal.Add(shipping).Sub(billDiscount)
	if t.Total.IsNegative() && len(fields) == 0 {
		fields["billDiscount"] = "order total must not be negative"
	}
	if len(fields) > 0 {
		return Totals{}, &httpx.FieldErrors{Fields: fields}
	}
	return t, nil
}

// GenerateID returns an order id of the form YYMMDD-XXXXX.
func GenerateID(now time.Time) string {
	return fmt.Sprintf("%s-%05d", now.Format("060102"), rand.IntN(100000))
}

// NormaliseTracking trims, drops blanks and removes duplicates, keeping order.
func NormaliseTracking(numbers []string) []string {
	out := make([]string, 0, len(numbers))
	seen := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
