package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taxqual-backend/internal/application/qualifications"
	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/factors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnknownMode is returned for a mode other than crear or editar.
var ErrUnknownMode = errors.New("Modo de asistente no válido")

// ParseMode validates a mode string; empty means crear.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCreate:
		return ModeCreate, nil
	case ModeEdit:
		return ModeEdit, nil
	}
	return "", ErrUnknownMode
}

// Qualifications is what the wizard needs from the qualifications service.
type Qualifications interface {
	Create(ctx context.Context, actor domain.Actor, in qualifications.Input) (*domain.Qualification, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in qualifications.Input) (*domain.Qualification, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*qualifications.Detail, error)
}

// Service drives the three-step entry flow: basics, amounts, factor review.
type Service struct {
	Store          Store
	Qualifications Qualifications
}

// Get returns the current draft.
func (s *Service) Get(ctx context.Context, session string, mode Mode) (*Draft, error) {
	return s.Store.Load(ctx, session, mode)
}

// Discard drops the draft.
func (s *Service) Discard(ctx context.Context, session string, mode Mode) error {
	return s.Store.Clear(ctx, session, mode)
}

func (s *Service) loadOrNew(ctx context.Context, session string, mode Mode) (*Draft, error) {
	d, err := s.Store.Load(ctx, session, mode)
	if errors.Is(err, ErrNoDraft) {
		return &Draft{}, nil
	}
	return d, err
}

// SaveBasics validates step one and stores it. Later steps are kept.
func (s *Service) SaveBasics(ctx context.Context, session string, mode Mode, actor domain.Actor, b qualifications.Basics) (*Draft, error) {
	b = b.Normalize(actor)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	d, err := s.loadOrNew(ctx, session, mode)
	if err != nil {
		return nil, err
	}
	if mode == ModeEdit && d.EditingID == nil {
		return nil, ErrNoDraft
	}
	d.Basics = &b
	if err := s.Store.Save(ctx, session, mode, d); err != nil {
		return nil, err
	}
	return d, nil
}

// SaveAmounts records the amounts of slots 8..12 and replaces the draft factors with
// the ones derived from them. All-zero amounts derive no factors.
func (s *Service) SaveAmounts(ctx context.Context, session string, mode Mode, raw map[int]string) (*Draft, error) {
	d, err := s.Store.Load(ctx, session, mode)
	if err != nil {
		return nil, err
	}
	if d.Basics == nil {
		return nil, ErrNoDraft
	}

	amounts := make(map[int]decimal.Decimal, len(raw))
	fields := map[string]string{}
	for i, v := range raw {
		if i < factors.AmountFirstIndex || i > factors.AmountLastIndex {
			fields[amountField(i)] = "Monto fuera de rango (8 a 12)"
			continue
		}
		if strings.TrimSpace(v) == "" {
			continue
		}
		a, err := factors.ParseDecimal(v)
		if err != nil {
			fields[amountField(i)] = factors.ErrInvalidDecimal.Error()
			continue
		}
		if a.IsNegative() {
			fields[amountField(i)] = "El monto no puede ser negativo"
			continue
		}
		amounts[i] = a.Round(2)
	}
	if len(fields) > 0 {
		return nil, &qualifications.ValidationError{Fields: fields}
	}

	derived, err := factors.DeriveFromAmounts(amounts)
	if err != nil {
		return nil, err
	}
	d.Amounts = make(map[int]string, len(amounts))
	for i, a := range amounts {
		d.Amounts[i] = a.StringFixed(2)
	}
	d.Factors = make(map[int]string, len(derived))
	for i, f := range derived {
		d.Factors[i] = factors.FormatFixed(f)
	}
	if err := s.Store.Save(ctx, session, mode, d); err != nil {
		return nil, err
	}
	return d, nil
}

func amountField(i int) string {
	return fmt.Sprintf("monto_%d", i)
}

// Commit turns the draft into a stored qualification. submitted holds the reviewed factor
// text keyed by slot; nil commits the draft factors as they are. The draft is cleared only
// after a successful write.
func (s *Service) Commit(ctx context.Context, session string, mode Mode, actor domain.Actor, submitted map[int]string) (*domain.Qualification, error) {
	d, err := s.Store.Load(ctx, session, mode)
	if err != nil {
		return nil, err
	}
	if d.Basics == nil {
		return nil, ErrNoDraft
	}
	text := d.Factors
	if submitted != nil {
		text = submitted
	}
	values, err := parseFactors(text)
	if err != nil {
		return nil, err
	}

	in := qualifications.Input{Basics: *d.Basics, Factors: values}
	var q *domain.Qualification
	if d.EditingID != nil {
		q, err = s.Qualifications.Update(ctx, actor, *d.EditingID, in)
	} else {
		q, err = s.Qualifications.Create(ctx, actor, in)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Store.Clear(ctx, session, mode); err != nil {
		return nil, err
	}
	return q, nil
}

// parseFactors runs each submitted value through factors.NormalizeInput; blanks are absent.
func parseFactors(text map[int]string) (map[int]*decimal.Decimal, error) {
	out := make(map[int]*decimal.Decimal, len(text))
	fields := map[string]string{}
	for i, raw := range text {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if !factors.InRange(i) {
			fields[factors.FieldName(i)] = factors.ErrUnknownFactor.Error()
			continue
		}
		norm, err := factors.NormalizeInput(raw)
		if err != nil {
			fields[factors.FieldName(i)] = factors.ErrInvalidDecimal.Error()
			continue
		}
		d := decimal.RequireFromString(norm)
		out[i] = &d
	}
	if len(fields) > 0 {
		return nil, &qualifications.ValidationError{Fields: fields}
	}
	return out, nil
}

// StartEdit loads an active qualification into a fresh edit draft.
func (s *Service) StartEdit(ctx context.Context, session string, actor domain.Actor, id uuid.UUID) (*Draft, error) {
	detail, err := s.Qualifications.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	q := detail.Qualification
	if !q.Active {
		return nil, qualifications.ErrNotFound
	}
	b := qualifications.BasicsOf(q)
	d := &Draft{Basics: &b, Factors: map[int]string{}, EditingID: &q.ID}
	if q.Factors != nil {
		for i, v := range q.Factors.Values() {
			if v != nil {
				d.Factors[i] = factors.FormatFixed(*v)
			}
		}
	}
	if err := s.Store.Save(ctx, session, ModeEdit, d); err != nil {
		return nil, err
	}
	return d, nil
}
