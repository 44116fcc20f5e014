package factors

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every factor is stored and rendered with.
const Scale = 8

// Exponent window accepted by ParseDecimal. Rounding a value rescales it to its
// exponent, so "1E1000000" would otherwise expand to a million digits.
const (
	maxExponent = 18
	minExponent = -40
)

// storageLimit bounds numeric(9,8) columns: one integer digit.
var storageLimit = decimal.NewFromInt(10)

// ParseDecimal reads conventional, scientific ("2E-8") or comma-decimal ("1,5") text.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrInvalidDecimal
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidDecimal, raw)
	}
	if exp := d.Exponent(); exp > maxExponent || exp < minExponent {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidDecimal, raw)
	}
	return d, nil
}

// FitsStorage reports whether d, once quantized, fits a numeric(9,8) factor column.
func FitsStorage(d decimal.Decimal) bool {
	return Quantize(d).Abs().LessThan(storageLimit)
}

// Quantize rounds d half-even to Scale digits.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Scale)
}

// FormatFixed renders d as fixed-point text with exactly Scale fractional digits.
// Zero never renders with a sign or an exponent.
func FormatFixed(d decimal.Decimal) string {
	return d.StringFixedBank(Scale)
}

// NormalizeInput turns user or file input into the canonical "0.00000002" form.
// Applying it to its own output returns the same string.
func NormalizeInput(raw string) (string, error) {
	d, err := ParseDecimal(raw)
	if err != nil {
		return "", err
	}
	return FormatFixed(d), nil
}

// FormatNullable renders an optional factor, nil stays nil.
func FormatNullable(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := FormatFixed(*d)
	return &s
}

// divideHalfEven returns num/den rounded half-even to Scale digits without
// intermediate rounding. den must be positive.
func divideHalfEven(num, den decimal.Decimal) decimal.Decimal {
	q, r := num.Shift(Scale).QuoRem(den, 0)
	twice := r.Abs().Mul(decimal.NewFromInt(2))
	switch twice.Cmp(den) {
	case 1:
		q = q.Add(decimal.NewFromInt(int64(r.Sign())))
	case 0:
		if q.Mod(decimal.NewFromInt(2)).Sign() != 0 {
			q = q.Add(decimal.NewFromInt(int64(r.Sign())))
		}
	}
	return q.Shift(-Scale)
}
