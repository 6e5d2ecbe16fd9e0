package customers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalisePhone keeps digits only and rewrites the +66 country prefix to a
// leading zero, so "+66 81-234-5678" becomes "0812345678".
func NormalisePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(strings.TrimSpace(raw), "+66") || (strings.HasPrefix(digits, "66") && len(digits) == 11) {
		// "+66 0812..." carries the trunk zero as well; keep just one.
		digits = "0" + strings.TrimPrefix(strings.TrimPrefix(digits, "66"), "0")
	}
	return digits
}

// ValidPhone reports whether a normalised number looks like a Thai phone number.
func ValidPhone(phone string) bool {
	return len(phone) >= 9 && len(phone) <= 10 && phone[0] == '0'
}

var gradeSteps = []struct {
	min   decimal.Decimal
	grade string
}{
	{decimal.NewFromInt(50000), GradeAPlus},
	{decimal.NewFromInt(20000), GradeA},
	{decimal.NewFromInt(5000), GradeB},
	{decimal.NewFromInt(2000), GradeC},
}

// GradeFor derives the customer grade from lifetime purchases.
func GradeFor(totalPurchases decimal.Decimal) string {
	for _, step := range gradeSteps {
		if totalPurchases.GreaterThanOrEqual(step.min) {
			return step.grade
		}
	}
	return GradeD
}

// gradeCaseSQL renders GradeFor as a SQL CASE over column.
func gradeCaseSQL(column string) string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, step := range gradeSteps {
		fmt.Fprintf(&b, " WHEN %s >= %s THEN '%s'", column, step.min.String(), step.grade)
	}
	fmt.Fprintf(&b, " ELSE '%s' END", GradeD)
	return b.String()
}
