package procurement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

// NumberPrefix is the day part of a generated purchase number.
func NumberPrefix(day time.Time) string {
	return "PO-" + day.Format("20060102") + "-"
}

// FormatNumber renders the seq-th purchase number of a day: PO-YYYYMMDD-####.
func FormatNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", NumberPrefix(day), seq)
}

// Total sums quantity * unit cost over the items.
func Total(items []ItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.Round(2)
}

// ReceiptStatus is Received when every item is fully received, Partial when
// anything has arrived and current otherwise.
func ReceiptStatus(items []Item, current string) string {
	some, all := false, true
	for _, it := range items {
		if it.ReceivedQuantity > 0 {
			some = true
		}
		if it.Outstanding() > 0 {
			all = false
		}
	}
	switch {
	case some && all:
		return StatusReceived
	case some:
		return StatusPartial
	}
	return current
}

// ResolvePayment derives the payment status and paid amount. An explicit
// status without an amount implies 0 for Unpaid and the total for Paid; an
// amount without a status implies the status.
func ResolvePayment(total, currentPaid decimal.Decimal, status string, paid *decimal.Decimal) (string, decimal.Decimal, error) {
	amount := currentPaid
	switch {
	case paid != nil:
		amount = *paid
	case status == PaymentPaid:
		amount = total
	case status == PaymentUnpaid:
		amount = decimal.Zero
	}
	if amount.IsNegative() {
		return "", decimal.Zero, httpx.NewFieldErrors("paidAmount", "must not be negative")
	}
	if amount.GreaterThan(total) {
		return "", decimal.Zero, httpx.NewFieldErrors("paidAmount", "must not exceed the purchase total")
	}
	if status == "" {
		switch {
		case amount.IsZero():
			status = PaymentUnpaid
		case amount.LessThan(total):
			status = PaymentPartial
		default:
			status = PaymentPaid
		}
	}
	return status, amount, nil
}

// checkTransition enforces the manual status changes: nothing leaves
// Cancelled, received goods block cancelling and rewinding to Draft/Ordered.
func checkTransition(p Purchase, next string) error {
	if next == p.Status {
		return nil
	}
	if p.Status == StatusCancelled {
		return fmt.Errorf("%w: purchase is cancelled", ErrInvalidState)
	}
	for _, it := range p.Items {
		if it.ReceivedQuantity > 0 {
			return fmt.Errorf("%w: goods already received", ErrInvalidState)
		}
	}
	return nil
}
