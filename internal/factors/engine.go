// Package factors derives and validates the tax-attribution factors of a qualification.
//
// A qualification carries 30 factor slots, indices 8 through 37. Each slot is a
// decimal in [0, 1] with 8 fractional digits. Slots 8..16 share a budget: their sum
// may not exceed 1. Amount entry covers slots 8..12 only, which are turned into
// proportions of their total.
package factors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	FirstIndex = 8
	LastIndex  = 37

	SumFirstIndex = 8
	SumLastIndex  = 16

	AmountFirstIndex = 8
	AmountLastIndex  = 12
)

// MaxSum is the upper bound for the sum of factors 8..16.
var MaxSum = decimal.NewFromInt(1)

// MaxFactor is the upper bound of any single factor slot.
var MaxFactor = decimal.NewFromInt(1)

// DerivationTolerance bounds how far the derived factors may drift from 1 in total:
// half a unit in the last place for each of the five amount slots.
var DerivationTolerance = decimal.New(5, -Scale)

// FieldName is the column / form name of a factor slot ("factor_8").
func FieldName(index int) string {
	return fmt.Sprintf("factor_%d", index)
}

// InRange reports whether index is a valid factor slot.
func InRange(index int) bool {
	return index >= FirstIndex && index <= LastIndex
}

// DeriveFromAmounts converts the amounts entered for slots 8..12 into proportional
// factors. Missing amounts count as zero. When every amount is zero the result is an
// empty map: there is nothing to distribute, which is not an error. A negative amount
// fails with *NegativeAmountError naming its slot.
func DeriveFromAmounts(amounts map[int]decimal.Decimal) (map[int]decimal.Decimal, error) {
	total := decimal.Zero
	for i := AmountFirstIndex; i <= AmountLastIndex; i++ {
		a := amounts[i]
		if a.IsNegative() {
			return nil, &NegativeAmountError{Index: i}
		}
		total = total.Add(a)
	}
	out := make(map[int]decimal.Decimal, AmountLastIndex-AmountFirstIndex+1)
	if total.IsZero() {
		return out, nil
	}
	for i := AmountFirstIndex; i <= AmountLastIndex; i++ {
		out[i] = divideHalfEven(amounts[i], total)
	}
	return out, nil
}

// SumRange adds the present values in [from, to]; absent slots count as zero.
func SumRange(values map[int]*decimal.Decimal, from, to int) decimal.Decimal {
	sum := decimal.Zero
	for i := from; i <= to; i++ {
		if v := values[i]; v != nil {
			sum = sum.Add(*v)
		}
	}
	return sum
}

// ValidateSet checks a (possibly partial) set of factors. Every present value must be
// within [0, 1] and factors 8..16 must not add up to more than 1. All violations are
// reported together so callers can flag each offending field; use errors.As to pick
// out *NegativeFactorError, *FactorAboveOneError and *FactorSumExceededError.
func ValidateSet(values map[int]*decimal.Decimal) error {
	var errs []error
	for i := FirstIndex; i <= LastIndex; i++ {
		v := values[i]
		switch {
		case v == nil:
		case v.IsNegative():
			errs = append(errs, &NegativeFactorError{Index: i})
		case v.GreaterThan(MaxFactor):
			errs = append(errs, &FactorAboveOneError{Index: i})
		}
	}
	for i := range values {
		if !InRange(i) {
			errs = append(errs, fmt.Errorf("%w: %d", ErrUnknownFactor, i))
		}
	}
	if sum := SumRange(values, SumFirstIndex, SumLastIndex); sum.GreaterThan(MaxSum) {
		errs = append(errs, &FactorSumExceededError{Sum: sum})
	}
	return errors.Join(errs...)
}

// NegativeIndices lists the slots flagged by a ValidateSet error.
func NegativeIndices(err error) []int {
	var out []int
	for _, e := range flatten(err) {
		var neg *NegativeFactorError
		if errors.As(e, &neg) {
			out = append(out, neg.Index)
		}
	}
	return out
}

// FieldErrors maps each offending form field to its message. The sum violation is
// keyed "__all__" since it belongs to no single field.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	for _, e := range flatten(err) {
		var neg *NegativeFactorError
		var above *FactorAboveOneError
		var sum *FactorSumExceededError
		switch {
		case errors.As(e, &neg):
			out[neg.Field()] = "El factor no puede ser negativo"
		case errors.As(e, &above):
			out[above.Field()] = "El factor no puede ser mayor a 1"
		case errors.As(e, &sum):
			out["__all__"] = sum.Error()
		default:
			out["__all__"] = e.Error()
		}
	}
	return out
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
