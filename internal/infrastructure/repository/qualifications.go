package repository

import (
	"context"
	"errors"

	"taxqual-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Qualifications is the GORM-backed qualification store used by the import pipeline.
type Qualifications struct {
	DB *gorm.DB
}

func activeKey(db *gorm.DB, key domain.QualificationKey) *gorm.DB {
	return db.Where("fiscal_year = ? AND market = ? AND instrument = ? AND event_sequence = ? AND active = ?",
		key.FiscalYear, key.Market, key.Instrument, key.EventSequence, true)
}

// FindActiveByKey returns the active qualification for key with its factor set, nil if none.
func (r *Qualifications) FindActiveByKey(ctx context.Context, key domain.QualificationKey) (*domain.Qualification, error) {
	var q domain.Qualification
	err := activeKey(r.DB.WithContext(ctx), key).Preload("Factors").First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Save inserts a new qualification or updates an existing one. The factor set is saved separately.
func (r *Qualifications) Save(ctx context.Context, q *domain.Qualification) (uuid.UUID, error) {
	db := r.DB.WithContext(ctx).Omit("Factors")
	var err error
	if q.ID == uuid.Nil {
		err = db.Create(q).Error
	} else {
		err = db.Save(q).Error
	}
	if err != nil {
		return uuid.Nil, err
	}
	return q.ID, nil
}

// SaveFactorSet inserts or updates fs; fs.QualificationID must be set.
func (r *Qualifications) SaveFactorSet(ctx context.Context, fs *domain.FactorSet) error {
	if fs.QualificationID == uuid.Nil {
		return errors.New("factor set has no qualification")
	}
	db := r.DB.WithContext(ctx)
	if fs.ID == uuid.Nil {
		return db.Create(fs).Error
	}
	return db.Save(fs).Error
}

// Exists reports whether an active qualification holds key.
func (r *Qualifications) Exists(ctx context.Context, key domain.QualificationKey) (bool, error) {
	var n int64
	if err := activeKey(r.DB.WithContext(ctx).Model(&domain.Qualification{}), key).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
