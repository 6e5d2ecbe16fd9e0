package csvio

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var thaiPrinter = message.NewPrinter(language.Thai)

// FormatAmount renders money with thousands separators and two decimals, the
// way the back office reads it in spreadsheets.
func FormatAmount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return thaiPrinter.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int64) string {
	return thaiPrinter.Sprint(number.Decimal(n))
}
