package imports

import (
	"fmt"
	"sort"
	"strings"

	"taxqual-backend/internal/factors"
)

// Canonical field names of an import row.
const (
	FieldFiscalYear      = "ejercicio"
	FieldMarket          = "mercado"
	FieldInstrument      = "instrumento"
	FieldPaymentDate     = "fecha"
	FieldEventSequence   = "secuencia"
	FieldDividendNumber  = "numero_dividendo"
	FieldDescription     = "descripcion_dividendo"
	FieldCompanyType     = "tipo_sociedad"
	FieldHistoricalValue = "valor_historico"
	FieldISFUT           = "acogido_isfut"
	FieldUpdateFactor    = "factor_actualizacion"
)

// RequiredFields must be present and non-blank in every row, checked in this order.
var RequiredFields = []string{
	FieldFiscalYear,
	FieldMarket,
	FieldInstrument,
	FieldPaymentDate,
	FieldEventSequence,
}

// columnSpellings lists the accepted (lower-cased) header spellings per canonical field.
// Factor columns are added in init.
var columnSpellings = []struct {
	field     string
	spellings []string
}{
	{FieldFiscalYear, []string{"ejercicio", "año", "ano"}},
	{FieldMarket, []string{"mercado"}},
	{FieldInstrument, []string{"instrumento"}},
	{FieldPaymentDate, []string{"fecha", "fecha_pago", "fecha pago", "fecha de pago"}},
	{FieldEventSequence, []string{"secuencia", "secuencia_evento", "secuencia evento"}},
	{FieldDividendNumber, []string{
		"numero_dividendo", "numero dividendo", "numero de dividendo",
		"número_dividendo", "número dividendo", "número de dividendo",
	}},
	{FieldDescription, []string{"descripcion", "descripción", "descripcion_dividendo", "descripción dividendo"}},
	{FieldCompanyType, []string{"tipo_sociedad", "tipo sociedad", "tipo de sociedad"}},
	{FieldHistoricalValue, []string{"valor_historico", "valor historico", "valor_histórico", "valor histórico"}},
	{FieldISFUT, []string{"acogido_isfut", "acogido isfut", "isfut"}},
	{FieldUpdateFactor, []string{"factor_actualizacion", "factor actualizacion", "factor_actualización", "factor actualización"}},
}

// spellingToField is the reverse index of columnSpellings.
var spellingToField map[string]string

func init() {
	for i := factors.FirstIndex; i <= factors.LastIndex; i++ {
		columnSpellings = append(columnSpellings, struct {
			field     string
			spellings []string
		}{factors.FieldName(i), []string{fmt.Sprintf("factor_%d", i), fmt.Sprintf("factor %d", i)}})
	}
	idx, err := buildSpellingIndex()
	if err != nil {
		panic(err)
	}
	spellingToField = idx
}

func buildSpellingIndex() (map[string]string, error) {
	idx := make(map[string]string)
	for _, c := range columnSpellings {
		for _, s := range c.spellings {
			if prev, ok := idx[s]; ok && prev != c.field {
				return nil, fmt.Errorf("imports: column spelling %q claimed by both %s and %s", s, prev, c.field)
			}
			idx[s] = c.field
		}
	}
	return idx, nil
}

// NormalizedRow maps canonical field names to the raw cell text.
type NormalizedRow map[string]string

// NormalizeRow resolves the row's headers to canonical fields and checks the required set.
// Unknown columns are ignored. When two spellings of one field are present, the earlier
// entry in columnSpellings wins. Headers that differ only in case or padding collapse to
// one key; the first of them in order keeps its value. Headers missing from order follow
// in sorted order.
func NormalizeRow(cells map[string]string, order ...string) (NormalizedRow, error) {
	byKey := make(map[string]string, len(cells))
	take := func(k string) {
		v, ok := cells[k]
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		key := strings.ToLower(strings.TrimSpace(k))
		if _, seen := byKey[key]; !seen {
			byKey[key] = v
		}
	}
	listed := make(map[string]struct{}, len(order))
	for _, k := range order {
		listed[k] = struct{}{}
		take(k)
	}
	rest := make([]string, 0, len(cells))
	for k := range cells {
		if _, ok := listed[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		take(k)
	}

	out := make(NormalizedRow)
	for _, c := range columnSpellings {
		for _, s := range c.spellings {
			if v, ok := byKey[s]; ok {
				out[c.field] = strings.TrimSpace(v)
				break
			}
		}
	}
	for _, f := range RequiredFields {
		if out[f] == "" {
			return nil, &MissingFieldError{Name: f}
		}
	}
	return out, nil
}
