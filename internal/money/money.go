// Package money converts the engine's decimal monetary values into the wire
// formats the API uses: integer minor-unit strings for machine consumption
// and display strings for humans.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

// RoundingMode selects how Normalize rounds after scaling.
type RoundingMode int

const (
	// RoundHalfUp rounds half away from zero. This is the default mode.
	RoundHalfUp RoundingMode = iota
	// RoundBankers rounds half to even.
	RoundBankers
	// RoundTruncate drops the fractional part.
	RoundTruncate
)

// Normalize converts a decimal amount to a string based integer using the
// smallest unit of the currency: round(amount * 10^minorUnit). The result
// always parses as a base-10 integer, minus sign preserved. An empty amount
// normalizes to "0".
func Normalize(amount string, minorUnit int, mode RoundingMode) (string, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return "0", nil
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid monetary amount %q: %w", amount, err)
	}

	scaled := d.Shift(int32(minorUnit))

	switch mode {
	case RoundBankers:
		scaled = scaled.RoundBank(0)
	case RoundTruncate:
		scaled = scaled.Truncate(0)
	default:
		scaled = scaled.Round(0)
	}

	return scaled.String(), nil
}

// MustNormalize is Normalize for amounts already under the engine's control,
// where a parse failure means corrupted data. It falls back to "0" and lets
// the caller's logging surface the problem.
func MustNormalize(amount string, minorUnit int) string {
	s, err := Normalize(amount, minorUnit, RoundHalfUp)
	if err != nil {
		return "0"
	}
	return s
}

// FormatDecimal renders an amount with a fixed number of decimal places,
// keeping the source precision contract for price display fields.
func FormatDecimal(amount string, decimals int) string {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		d = decimal.Zero
	}
	return d.StringFixed(int32(decimals))
}

// FormatPrice renders an amount as a display price using the store currency:
// thousand/decimal separators applied, symbol placed per the position
// setting, minus sign ahead of everything.
func FormatPrice(amount string, cur domain.CurrencyInfo) string {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		d = decimal.Zero
	}

	negative := d.IsNegative()
	fixed := d.Abs().StringFixed(int32(cur.MinorUnit))

	intPart := fixed
	fracPart := ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i+1:]
	}

	formatted := groupThousands(intPart, cur.ThousandSeparator)
	if fracPart != "" {
		formatted += cur.DecimalSeparator + fracPart
	}

	out := cur.Prefix() + formatted + cur.Suffix()
	if negative {
		out = "-" + out
	}
	return out
}

func groupThousands(digits, separator string) string {
	if separator == "" || len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(separator)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
