package qualifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taxqual-backend/internal/application/audit"
	"taxqual-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	topMarkets      = 10
	recentCount     = 5
)

// Service manages qualifications entered interactively.
type Service struct {
	DB *gorm.DB
}

// scoped restricts brokers to broker-origin records.
func scoped(db *gorm.DB, actor domain.Actor) *gorm.DB {
	if actor.IsBroker() {
		return db.Where("origin = ?", domain.OriginBroker)
	}
	return db
}

func duplicateExists(tx *gorm.DB, key domain.QualificationKey, exclude uuid.UUID) (bool, error) {
	q := tx.Model(&domain.Qualification{}).
		Where("fiscal_year = ? AND market = ? AND instrument = ? AND event_sequence = ? AND active = ?",
			key.FiscalYear, key.Market, key.Instrument, key.EventSequence, true)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func auditMetadata(q *domain.Qualification) map[string]interface{} {
	return map[string]interface{}{
		"fiscal_year":    q.FiscalYear,
		"market":         q.Market,
		"instrument":     q.Instrument,
		"event_sequence": q.EventSequence,
		"origin":         q.Origin,
	}
}

// Create validates in and stores the qualification, its factor set and the audit entry
// in one transaction.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in Input) (*domain.Qualification, error) {
	basics := in.Basics.Normalize(actor)
	vals, err := basics.values()
	if err != nil {
		return nil, err
	}
	values, err := validateFactors(in.Factors)
	if err != nil {
		return nil, err
	}

	q := &domain.Qualification{CreatedByID: actor.UserID, Active: true}
	vals.apply(q)
	fs := &domain.FactorSet{}
	fs.Replace(values)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := duplicateExists(tx, q.Key(), uuid.Nil)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateQualification
		}
		if err := tx.Omit("Factors").Create(q).Error; err != nil {
			return err
		}
		fs.QualificationID = q.ID
		if err := tx.Create(fs).Error; err != nil {
			return err
		}
		return audit.Write(tx, audit.Event{
			Action:          domain.AuditCreate,
			ActorID:         actor.UserID,
			QualificationID: q.ID,
			Detail:          "Creación manual de calificación tributaria",
			IP:              actor.IP,
			Metadata:        auditMetadata(q),
		})
	})
	if err != nil {
		return nil, err
	}
	q.Factors = fs
	return q, nil
}

func (s *Service) loadActive(tx *gorm.DB, id uuid.UUID) (*domain.Qualification, error) {
	var q domain.Qualification
	err := tx.Preload("Factors").Where("id = ? AND active = ?", id, true).First(&q).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Update replaces the data and the whole factor set of an active qualification.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in Input) (*domain.Qualification, error) {
	basics := in.Basics.Normalize(actor)
	vals, err := basics.values()
	if err != nil {
		return nil, err
	}
	values, err := validateFactors(in.Factors)
	if err != nil {
		return nil, err
	}

	var q *domain.Qualification
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.loadActive(tx, id)
		if err != nil {
			return err
		}
		if actor.IsBroker() && found.Origin != domain.OriginBroker {
			return ErrForbidden
		}
		q = found
		vals.apply(q)

		dup, err := duplicateExists(tx, q.Key(), q.ID)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateQualification
		}
		if err := tx.Omit("Factors").Save(q).Error; err != nil {
			return err
		}

		fs := q.Factors
		if fs == nil {
			fs = &domain.FactorSet{QualificationID: q.ID}
		}
		fs.Replace(values)
		if fs.ID == uuid.Nil {
			err = tx.Create(fs).Error
		} else {
			err = tx.Save(fs).Error
		}
		if err != nil {
			return err
		}
		q.Factors = fs
		return audit.Write(tx, audit.Event{
			Action:          domain.AuditUpdate,
			ActorID:         actor.UserID,
			QualificationID: q.ID,
			Detail:          "Modificación de calificación tributaria",
			IP:              actor.IP,
			Metadata:        auditMetadata(q),
		})
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Delete deactivates a qualification. The row and its factor set are kept.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := s.loadActive(tx, id)
		if err != nil {
			return err
		}
		if actor.IsBroker() && q.Origin != domain.OriginBroker {
			return ErrForbidden
		}
		if err := tx.Model(&domain.Qualification{}).Where("id = ?", q.ID).Update("active", false).Error; err != nil {
			return err
		}
		return audit.Write(tx, audit.Event{
			Action:          domain.AuditDelete,
			ActorID:         actor.UserID,
			QualificationID: q.ID,
			Detail:          fmt.Sprintf("Eliminación de calificación %s %s %d", q.Market, q.Instrument, q.EventSequence),
			IP:              actor.IP,
			Metadata:        auditMetadata(q),
		})
	})
}

// Detail is a qualification with its audit trail.
type Detail struct {
	Qualification *domain.Qualification `json:"qualification"`
	Audit         []domain.AuditLog     `json:"audit"`
}

// Get returns a qualification, active or not, with its factor set and audit trail.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*Detail, error) {
	db := s.DB.WithContext(ctx)
	var q domain.Qualification
	if err := db.Preload("Factors").Where("id = ?", id).First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if actor.IsBroker() && q.Origin != domain.OriginBroker {
		return nil, ErrForbidden
	}
	trail, err := (&audit.Service{DB: s.DB}).ForQualification(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{Qualification: &q, Audit: trail}, nil
}

// Filter narrows List. Zero values do not filter.
type Filter struct {
	FiscalYear int
	Market     string
	Origin     string
	Instrument string
	Limit      int
	Offset     int
}

// Page is one page of List results.
type Page struct {
	Items []domain.Qualification `json:"items"`
	Total int64                  `json:"total"`
}

// List returns active qualifications matching f, newest fiscal year first.
func (s *Service) List(ctx context.Context, actor domain.Actor, f Filter) (*Page, error) {
	q := scoped(s.DB.WithContext(ctx).Model(&domain.Qualification{}), actor).Where("active = ?", true)
	if f.FiscalYear != 0 {
		q = q.Where("fiscal_year = ?", f.FiscalYear)
	}
	if m := strings.TrimSpace(f.Market); m != "" {
		q = q.Where("UPPER(market) = ?", strings.ToUpper(m))
	}
	if o := strings.TrimSpace(f.Origin); o != "" {
		q = q.Where("origin = ?", o)
	}
	if in := strings.TrimSpace(f.Instrument); in != "" {
		q = q.Where("UPPER(instrument) LIKE ?", "%"+strings.ToUpper(in)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	items := []domain.Qualification{}
	err := q.Preload("Factors").Order("fiscal_year DESC, created_at DESC").
		Limit(limit).Offset(f.Offset).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total}, nil
}

// MarketCount is one row of the dashboard market ranking.
type MarketCount struct {
	Market string `json:"market"`
	Count  int64  `json:"count"`
}

// Dashboard summarizes the active qualifications visible to an actor.
type Dashboard struct {
	Total      int64                  `json:"total"`
	ByOrigin   map[string]int64       `json:"by_origin"`
	TopMarkets []MarketCount          `json:"top_markets"`
	Recent     []domain.Qualification `json:"recent"`
}

// Dashboard returns totals, counts per origin, the ten busiest markets and the five
// latest records.
func (s *Service) Dashboard(ctx context.Context, actor domain.Actor) (*Dashboard, error) {
	base := func() *gorm.DB {
		return scoped(s.DB.WithContext(ctx).Model(&domain.Qualification{}), actor).Where("active = ?", true)
	}
	out := &Dashboard{ByOrigin: map[string]int64{}, TopMarkets: []MarketCount{}, Recent: []domain.Qualification{}}
	if err := base().Count(&out.Total).Error; err != nil {
		return nil, err
	}

	var origins []struct {
		Origin string
		Count  int64
	}
	if err := base().Select("origin, COUNT(*) AS count").Group("origin").Scan(&origins).Error; err != nil {
		return nil, err
	}
	for _, o := range origins {
		out.ByOrigin[o.Origin] = o.Count
	}

	if err := base().Select("market, COUNT(*) AS count").Group("market").
		Order("count DESC, market ASC").Limit(topMarkets).Scan(&out.TopMarkets).Error; err != nil {
		return nil, err
	}
	if err := base().Order("created_at DESC").Limit(recentCount).Find(&out.Recent).Error; err != nil {
		return nil, err
	}
	return out, nil
}
