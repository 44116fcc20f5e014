package imports

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/factors"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DateLayouts are tried in order; the first that parses wins.
// Single-digit days and months are accepted.
var DateLayouts = []string{"2006-1-2", "2/1/2006", "2-1-2006"}

// truthyTokens are the only ISFUT values read as true; anything else is false.
var truthyTokens = map[string]bool{
	"true":      true,
	"1":         true,
	"si":        true,
	"sí":        true,
	"verdadero": true,
}

// historicalLimit bounds the numeric(15,2) historical value column.
var historicalLimit = decimal.New(1, 13)

// spreadsheet serial day numbers accepted as dates (1900-01-01 .. 9999-12-31)
const (
	minSerialDate = 1
	maxSerialDate = 2958465
)

// TypedRow is a normalized row with every field converted.
// Nil optional decimals mean "column absent or unparsable": they are not written.
type TypedRow struct {
	Key             domain.QualificationKey
	PaymentDate     time.Time
	DividendNumber  int
	Description     string
	CompanyType     string
	HistoricalValue *decimal.Decimal
	UpdateFactor    *decimal.Decimal
	ISFUT           bool
	Factors         map[int]decimal.Decimal
}

// CoerceRow converts a normalized row. Required and integer fields are strict; optional
// decimals are lenient and silently dropped when they do not parse. A decimal that parses
// but does not fit its column fails the row before anything is written.
func CoerceRow(row NormalizedRow) (*TypedRow, error) {
	year, err := parseInt(FieldFiscalYear, row[FieldFiscalYear])
	if err != nil {
		return nil, &RowTypeError{Err: err}
	}
	seq, err := parseInt(FieldEventSequence, row[FieldEventSequence])
	if err != nil {
		return nil, &RowTypeError{Err: err}
	}
	date, err := ParseDate(row[FieldPaymentDate])
	if err != nil {
		return nil, &RowTypeError{Err: err}
	}

	out := &TypedRow{
		Key: domain.QualificationKey{
			FiscalYear:    year,
			Market:        strings.ToUpper(strings.TrimSpace(row[FieldMarket])),
			Instrument:    strings.ToUpper(strings.TrimSpace(row[FieldInstrument])),
			EventSequence: seq,
		},
		PaymentDate: date,
		Description: row[FieldDescription],
		CompanyType: domain.CompanyOpen,
		ISFUT:       truthyTokens[strings.ToLower(strings.TrimSpace(row[FieldISFUT]))],
		Factors:     map[int]decimal.Decimal{},
	}
	if v := row[FieldDividendNumber]; v != "" {
		n, err := parseInt(FieldDividendNumber, v)
		if err != nil {
			return nil, &RowTypeError{Err: err}
		}
		out.DividendNumber = n
	}
	if v := strings.TrimSpace(row[FieldCompanyType]); v != "" {
		out.CompanyType = strings.ToUpper(v)
	}
	if d, ok := lenientDecimal(row[FieldHistoricalValue]); ok {
		d = d.Round(2)
		if !d.Abs().LessThan(historicalLimit) {
			return nil, &RowTypeError{Err: outOfRange(FieldHistoricalValue, row[FieldHistoricalValue])}
		}
		out.HistoricalValue = &d
	}
	if d, ok := lenientDecimal(row[FieldUpdateFactor]); ok {
		if !factors.FitsStorage(d) {
			return nil, &RowTypeError{Err: outOfRange(FieldUpdateFactor, row[FieldUpdateFactor])}
		}
		d = factors.Quantize(d)
		out.UpdateFactor = &d
	}
	for i := factors.FirstIndex; i <= factors.LastIndex; i++ {
		name := factors.FieldName(i)
		if d, ok := lenientDecimal(row[name]); ok {
			if !factors.FitsStorage(d) {
				return nil, &RowTypeError{Err: outOfRange(name, row[name])}
			}
			out.Factors[i] = factors.Quantize(d)
		}
	}
	return out, nil
}

func outOfRange(field, raw string) error {
	return fmt.Errorf("valor fuera de rango para %s: %q", field, raw)
}

// ParseDate resolves a payment date against DateLayouts, then as a spreadsheet serial day
// number (dates stored as numbers in .xlsx/.xls cells).
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= minSerialDate && n <= maxSerialDate {
		if t, err := excelize.ExcelDateToTime(float64(n), false); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("Formato de fecha no válido: %s. Use YYYY-MM-DD, DD/MM/YYYY o DD-MM-YYYY", s)
}

func parseInt(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("valor entero no válido para %s: %q", field, raw)
	}
	return n, nil
}

func lenientDecimal(raw string) (decimal.Decimal, bool) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, false
	}
	d, err := factors.ParseDecimal(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
