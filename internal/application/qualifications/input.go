package qualifications

import (
	"strings"
	"time"

	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/factors"

	"github.com/shopspring/decimal"
)

// DateLayout is the payment date format of interactive input.
const DateLayout = "2006-01-02"

// Basics is the descriptive data of a qualification as a user enters it.
type Basics struct {
	FiscalYear      int     `json:"fiscal_year"`
	Market          string  `json:"market"`
	Instrument      string  `json:"instrument"`
	PaymentDate     string  `json:"payment_date"`
	EventSequence   int     `json:"event_sequence"`
	DividendNumber  int     `json:"dividend_number"`
	Description     string  `json:"description"`
	CompanyType     string  `json:"company_type"`
	HistoricalValue *string `json:"historical_value,omitempty"`
	UpdateFactor    *string `json:"update_factor,omitempty"`
	ISFUT           bool    `json:"isfut"`
	Origin          string  `json:"origin"`
}

// Input is a complete interactive submission.
type Input struct {
	Basics
	Factors map[int]*decimal.Decimal
}

// basicValues is Basics after validation.
type basicValues struct {
	key             domain.QualificationKey
	paymentDate     time.Time
	dividendNumber  int
	description     string
	companyType     string
	historicalValue decimal.NullDecimal
	updateFactor    decimal.Decimal
	isfut           bool
	origin          string
}

// Normalize canonicalizes b for actor: market spelling, upper-case instrument, default
// company type and origin. Brokers always get the broker origin.
func (b Basics) Normalize(actor domain.Actor) Basics {
	if m, ok := domain.CanonicalMarket(b.Market); ok {
		b.Market = m
	}
	b.Instrument = strings.ToUpper(strings.TrimSpace(b.Instrument))
	b.Description = strings.TrimSpace(b.Description)
	b.CompanyType = strings.ToUpper(strings.TrimSpace(b.CompanyType))
	if b.CompanyType == "" {
		b.CompanyType = domain.CompanyOpen
	}
	b.Origin = strings.TrimSpace(b.Origin)
	if b.Origin == "" {
		b.Origin = domain.OriginSystem
	}
	if actor.IsBroker() {
		b.Origin = domain.OriginBroker
	}
	return b
}

// Validate checks the basic data rules. It expects normalized input.
func (b Basics) Validate() error {
	_, err := b.values()
	return err
}

func (b Basics) values() (*basicValues, error) {
	fields := map[string]string{}
	v := &basicValues{
		key: domain.QualificationKey{
			FiscalYear:    b.FiscalYear,
			Market:        b.Market,
			Instrument:    b.Instrument,
			EventSequence: b.EventSequence,
		},
		dividendNumber: b.DividendNumber,
		description:    b.Description,
		companyType:    b.CompanyType,
		isfut:          b.ISFUT,
		origin:         b.Origin,
		updateFactor:   decimal.Zero,
	}

	if b.FiscalYear < domain.MinFiscalYear {
		fields["fiscal_year"] = "El ejercicio debe ser igual o posterior a 2000"
	}
	if _, ok := domain.CanonicalMarket(b.Market); !ok {
		fields["market"] = "Mercado no válido"
	}
	if b.Instrument == "" {
		fields["instrument"] = "El instrumento es obligatorio"
	}
	if b.EventSequence < domain.MinEventSequence {
		fields["event_sequence"] = "La secuencia debe ser superior a 10.000"
	}
	if b.DividendNumber < 0 {
		fields["dividend_number"] = "El número de dividendo no puede ser negativo"
	}
	if !domain.IsValidCompanyType(b.CompanyType) {
		fields["company_type"] = "Tipo de sociedad no válido"
	}
	if !domain.IsValidOrigin(b.Origin) {
		fields["origin"] = "Origen no válido"
	}

	date, err := time.Parse(DateLayout, strings.TrimSpace(b.PaymentDate))
	switch {
	case err != nil:
		fields["payment_date"] = "Formato de fecha no válido. Use YYYY-MM-DD"
	case b.FiscalYear >= domain.MinFiscalYear && date.Before(time.Date(b.FiscalYear, 1, 1, 0, 0, 0, 0, time.UTC)):
		fields["payment_date"] = "La fecha de pago no puede ser anterior al inicio del ejercicio"
	default:
		v.paymentDate = date
	}

	if b.HistoricalValue != nil && strings.TrimSpace(*b.HistoricalValue) != "" {
		d, err := factors.ParseDecimal(*b.HistoricalValue)
		if err != nil {
			fields["historical_value"] = "Valor histórico no válido"
		} else {
			v.historicalValue = decimal.NewNullDecimal(d.Round(2))
		}
	}
	if b.UpdateFactor != nil && strings.TrimSpace(*b.UpdateFactor) != "" {
		d, err := factors.ParseDecimal(*b.UpdateFactor)
		switch {
		case err != nil:
			fields["update_factor"] = "Factor de actualización no válido"
		case d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)):
			fields["update_factor"] = "El factor de actualización debe estar entre 0 y 1"
		default:
			v.updateFactor = factors.Quantize(d)
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return v, nil
}

func (v *basicValues) apply(q *domain.Qualification) {
	q.FiscalYear = v.key.FiscalYear
	q.Market = v.key.Market
	q.Instrument = v.key.Instrument
	q.EventSequence = v.key.EventSequence
	q.PaymentDate = v.paymentDate
	q.DividendNumber = v.dividendNumber
	q.Description = v.description
	q.CompanyType = v.companyType
	q.HistoricalValue = v.historicalValue
	q.UpdateFactor = v.updateFactor
	q.ISFUT = v.isfut
	q.Origin = v.origin
}

// validateFactors quantizes the submitted factors and runs the shared factor rules.
func validateFactors(in map[int]*decimal.Decimal) (map[int]*decimal.Decimal, error) {
	out := make(map[int]*decimal.Decimal, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		d := factors.Quantize(*v)
		out[i] = &d
	}
	if err := factors.ValidateSet(out); err != nil {
		return nil, &ValidationError{Fields: factors.FieldErrors(err), Err: err}
	}
	return out, nil
}

// BasicsOf renders a stored qualification back into editable input.
func BasicsOf(q *domain.Qualification) Basics {
	b := Basics{
		FiscalYear:     q.FiscalYear,
		Market:         q.Market,
		Instrument:     q.Instrument,
		PaymentDate:    q.PaymentDate.Format(DateLayout),
		EventSequence:  q.EventSequence,
		DividendNumber: q.DividendNumber,
		Description:    q.Description,
		CompanyType:    q.CompanyType,
		ISFUT:          q.ISFUT,
		Origin:         q.Origin,
	}
	if q.HistoricalValue.Valid {
		s := q.HistoricalValue.Decimal.StringFixed(2)
		b.HistoricalValue = &s
	}
	uf := factors.FormatFixed(q.UpdateFactor)
	b.UpdateFactor = &uf
	return b
}
