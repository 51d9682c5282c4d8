// Package money holds the rounding, interest and numbering rules shared by
// invoicing, payments and reports. All amounts are INR with two decimals.
package money

import (
	"fmt"
	"strings"
	"time"

	"society-billing/internal/timeutil"

	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	daysInYear = decimal.NewFromInt(365)
)

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns amount × pct / 100, rounded.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(hundred))
}

// CalculateInterest returns simple interest on an overdue amount:
//
//	outstanding × annualRatePct × overdueDays / (365 × 100)
//
// where overdueDays = calendar days from dueDate to asOf, minus graceDays.
// Zero when nothing is overdue, the rate is not positive or nothing is outstanding.
func CalculateInterest(outstanding, annualRatePct decimal.Decimal, dueDate, asOf time.Time, graceDays int) decimal.Decimal {
	if !outstanding.IsPositive() || !annualRatePct.IsPositive() {
		return decimal.Zero
	}
	overdueDays := timeutil.DaysBetween(dueDate, asOf) - graceDays
	if overdueDays <= 0 {
		return decimal.Zero
	}
	numerator := outstanding.Mul(annualRatePct).Mul(decimal.NewFromInt(int64(overdueDays)))
	return Round2(numerator.Div(daysInYear.Mul(hundred)))
}

// GenerateInvoiceNumber formats INV-YYYYMM-NNNN.
func GenerateInvoiceNumber(year, month int, seq int64) string {
	return fmt.Sprintf("INV-%d%02d-%04d", year, month, seq)
}

// GenerateReceiptNumber formats RCP-{FY}-NNNNNN.
func GenerateReceiptNumber(financialYear string, seq int64) string {
	return fmt.Sprintf("RCP-%s-%06d", financialYear, seq)
}

// FinancialYear returns the Indian financial year label ("2025-2026") that
// contains the date. Years start on April 1.
func FinancialYear(date time.Time) string {
	d := timeutil.DateOf(date)
	start := d.Year()
	if d.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%d-%d", start, start+1)
}

// FormatINR renders an amount with Indian digit grouping, e.g. ₹1,23,456.78.
func FormatINR(d decimal.Decimal) string {
	s := Round2(d).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	return sign + "₹" + groupIndian(intPart) + frac
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// ParseAmount accepts user-entered amounts such as "1,234.50", "₹ 1,234.50" or "Rs. 500".
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	for _, prefix := range []string{"₹", "Rs.", "Rs", "INR"} {
		clean = strings.TrimSpace(strings.TrimPrefix(clean, prefix))
	}
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, " ", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("empty amount %q", s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Round2(d), nil
}

// Min returns the smaller of two amounts.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// NonNegative floors an amount at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FromPaise converts gateway minor units to rupees.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}

// ToPaise converts rupees to gateway minor units.
func ToPaise(d decimal.Decimal) int64 {
	return Round2(d).Shift(2).IntPart()
}
