package imports

import (
	"context"
	"errors"

	"taxqual-backend/internal/domain"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository for pipeline tests.
type memRepo struct {
	quals   []*domain.Qualification
	factors map[uuid.UUID]*domain.FactorSet

	failInstrument string // Save fails for rows with this instrument
	factorWrites   int
}

func newMemRepo() *memRepo {
	return &memRepo{factors: map[uuid.UUID]*domain.FactorSet{}}
}

func (m *memRepo) find(key domain.QualificationKey) *domain.Qualification {
	for _, q := range m.quals {
		if q.Active && q.Key() == key {
			return q
		}
	}
	return nil
}

func (m *memRepo) FindActiveByKey(ctx context.Context, key domain.QualificationKey) (*domain.Qualification, error) {
	q := m.find(key)
	if q == nil {
		return nil, nil
	}
	cp := *q
	if fs, ok := m.factors[q.ID]; ok {
		fsCopy := *fs
		cp.Factors = &fsCopy
	}
	return &cp, nil
}

func (m *memRepo) Save(ctx context.Context, q *domain.Qualification) (uuid.UUID, error) {
	if m.failInstrument != "" && q.Instrument == m.failInstrument {
		return uuid.Nil, errors.New("constraint violation")
	}
	cp := *q
	cp.Factors = nil
	if cp.ID == uuid.Nil {
		if m.find(cp.Key()) != nil {
			return uuid.Nil, errors.New("duplicate key value violates unique constraint")
		}
		cp.ID = uuid.New()
		q.ID = cp.ID
		m.quals = append(m.quals, &cp)
		return cp.ID, nil
	}
	for i, existing := range m.quals {
		if existing.ID == cp.ID {
			m.quals[i] = &cp
			return cp.ID, nil
		}
	}
	return uuid.Nil, errors.New("not found")
}

func (m *memRepo) SaveFactorSet(ctx context.Context, fs *domain.FactorSet) error {
	m.factorWrites++
	cp := *fs
	m.factors[fs.QualificationID] = &cp
	return nil
}

func (m *memRepo) Exists(ctx context.Context, key domain.QualificationKey) (bool, error) {
	return m.find(key) != nil, nil
}
