package factors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDecimal = errors.New("Valor decimal no válido")
	ErrUnknownFactor  = errors.New("Factor fuera de rango (8 a 37)")
)

// NegativeFactorError reports a factor slot holding a value below zero.
type NegativeFactorError struct {
	Index int
}

func (e *NegativeFactorError) Error() string {
	return fmt.Sprintf("factor_%d: El factor no puede ser negativo", e.Index)
}

// Field returns the form/column name of the offending slot.
func (e *NegativeFactorError) Field() string {
	return FieldName(e.Index)
}

// FactorAboveOneError reports a factor slot holding a value greater than one.
type FactorAboveOneError struct {
	Index int
}

func (e *FactorAboveOneError) Error() string {
	return fmt.Sprintf("factor_%d: El factor no puede ser mayor a 1", e.Index)
}

// Field returns the form/column name of the offending slot.
func (e *FactorAboveOneError) Field() string {
	return FieldName(e.Index)
}

// FactorSumExceededError reports that factors 8..16 add up to more than one.
type FactorSumExceededError struct {
	Sum decimal.Decimal
}

func (e *FactorSumExceededError) Error() string {
	return fmt.Sprintf("La suma de los factores del 8 al 16 (%s) no puede ser mayor a 1.00000000", FormatFixed(e.Sum))
}

// SumText is the 8-decimal rendering of the offending sum.
func (e *FactorSumExceededError) SumText() string {
	return FormatFixed(e.Sum)
}

// NegativeAmountError reports a negative monetary amount handed to DeriveFromAmounts.
type NegativeAmountError struct {
	Index int
}

func (e *NegativeAmountError) Error() string {
	return fmt.Sprintf("monto_%d: El monto no puede ser negativo", e.Index)
}
