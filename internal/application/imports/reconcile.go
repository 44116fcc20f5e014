package imports

import (
	"context"

	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/factors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome of reconciling one row.
type Outcome int

const (
	Created Outcome = iota + 1
	Updated
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Repository is the storage the pipeline writes through.
type Repository interface {
	// FindActiveByKey returns the active qualification with its factor set preloaded,
	// or nil when there is none.
	FindActiveByKey(ctx context.Context, key domain.QualificationKey) (*domain.Qualification, error)
	Save(ctx context.Context, q *domain.Qualification) (uuid.UUID, error)
	SaveFactorSet(ctx context.Context, fs *domain.FactorSet) error
	Exists(ctx context.Context, key domain.QualificationKey) (bool, error)
}

// Reconciler applies typed rows to the repository under a skip/overwrite policy.
type Reconciler struct {
	Repo    Repository
	ActorID uuid.UUID
	// ValidateFactors runs the shared factor rules on the merged factor set before writing.
	ValidateFactors bool
}

// ReconcileRow creates, overwrites or skips the active qualification matching the row key.
// The qualification is written first, then the factor columns present in the row; a row
// without any parseable factor leaves the factor set untouched.
func (r *Reconciler) ReconcileRow(ctx context.Context, row *TypedRow, overwrite bool) (Outcome, error) {
	var existing *domain.Qualification
	if overwrite {
		found, err := r.Repo.FindActiveByKey(ctx, row.Key)
		if err != nil {
			return 0, &RowPersistError{Err: err}
		}
		existing = found
	} else {
		exists, err := r.Repo.Exists(ctx, row.Key)
		if err != nil {
			return 0, &RowPersistError{Err: err}
		}
		if exists {
			return Skipped, nil
		}
	}

	q := existing
	outcome := Updated
	if q == nil {
		outcome = Created
		q = &domain.Qualification{
			Origin:      domain.OriginBulkImport,
			CreatedByID: r.ActorID,
			Active:      true,
		}
	}
	applyRow(q, row)

	var fs *domain.FactorSet
	if len(row.Factors) > 0 {
		fs = q.Factors
		if fs == nil {
			fs = &domain.FactorSet{}
		}
		for i, v := range row.Factors {
			v := v
			fs.Set(i, &v)
		}
		if r.ValidateFactors {
			if err := factors.ValidateSet(fs.Values()); err != nil {
				return 0, &RowFactorError{Err: err}
			}
		}
	}

	id, err := r.Repo.Save(ctx, q)
	if err != nil {
		return 0, &RowPersistError{Err: err}
	}
	if fs != nil {
		fs.QualificationID = id
		if err := r.Repo.SaveFactorSet(ctx, fs); err != nil {
			return 0, &RowPersistError{Err: err}
		}
	}
	return outcome, nil
}

// applyRow copies every mapped field onto q. Absent optional decimals keep q's value.
func applyRow(q *domain.Qualification, row *TypedRow) {
	q.FiscalYear = row.Key.FiscalYear
	q.Market = row.Key.Market
	q.Instrument = row.Key.Instrument
	q.EventSequence = row.Key.EventSequence
	q.PaymentDate = row.PaymentDate
	q.DividendNumber = row.DividendNumber
	q.Description = row.Description
	q.CompanyType = row.CompanyType
	q.ISFUT = row.ISFUT
	if row.HistoricalValue != nil {
		q.HistoricalValue = decimal.NewNullDecimal(*row.HistoricalValue)
	}
	if row.UpdateFactor != nil {
		q.UpdateFactor = *row.UpdateFactor
	}
}
