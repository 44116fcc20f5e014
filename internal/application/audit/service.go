package audit

import (
	"context"
	"encoding/json"

	"taxqual-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultListLimit = 100

// Event is one auditable action. Zero IDs and an empty IP are stored as NULL.
type Event struct {
	Action          string
	ActorID         uuid.UUID
	QualificationID uuid.UUID
	Detail          string
	IP              string
	Metadata        map[string]interface{}
}

// Sink records audit events.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// Service is the GORM-backed Sink and audit trail reader.
type Service struct {
	DB *gorm.DB
}

// Record appends ev to the audit log.
func (s *Service) Record(ctx context.Context, ev Event) error {
	return Write(s.DB.WithContext(ctx), ev)
}

// Write appends ev using db, which may be a transaction.
func Write(db *gorm.DB, ev Event) error {
	entry, err := newLog(ev)
	if err != nil {
		return err
	}
	return db.Create(entry).Error
}

// Log records ev and only logs a failure. Used where auditing must never fail the request.
func Log(ctx context.Context, sink Sink, ev Event) {
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, ev); err != nil {
		log.Error().Err(err).Str("action", ev.Action).Msg("Audit: record failed")
	}
}

func newLog(ev Event) (*domain.AuditLog, error) {
	entry := &domain.AuditLog{Action: ev.Action, Detail: ev.Detail}
	if ev.ActorID != uuid.Nil {
		id := ev.ActorID
		entry.ActorID = &id
	}
	if ev.QualificationID != uuid.Nil {
		id := ev.QualificationID
		entry.QualificationID = &id
	}
	if ev.IP != "" {
		ip := ev.IP
		entry.OriginIP = &ip
	}
	if len(ev.Metadata) > 0 {
		b, err := json.Marshal(ev.Metadata)
		if err != nil {
			return nil, err
		}
		entry.Metadata = datatypes.JSON(b)
	}
	return entry, nil
}

// ForQualification returns the audit trail of one qualification, newest first.
func (s *Service) ForQualification(ctx context.Context, id uuid.UUID) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := s.DB.WithContext(ctx).Where("qualification_id = ?", id).
		Order("created_at DESC").Find(&out).Error
	return out, err
}

// ListFilter narrows List. Empty fields do not filter.
type ListFilter struct {
	Action  string
	ActorID uuid.UUID
	Limit   int
}

// List returns recent audit entries, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.AuditLog, error) {
	q := s.DB.WithContext(ctx).Model(&domain.AuditLog{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.ActorID != uuid.Nil {
		q = q.Where("actor_id = ?", f.ActorID)
	}
	limit := f.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	var out []domain.AuditLog
	err := q.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
