package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit actions.
const (
	AuditCreate     = "CREATE"
	AuditUpdate     = "UPDATE"
	AuditDelete     = "DELETE"
	AuditLogin      = "LOGIN"
	AuditLogout     = "LOGOUT"
	AuditBulkImport = "CARGA_MASIVA"
	AuditLockout    = "LOCKOUT"
)

// AuditLog is an append-only record of a mutating action.
type AuditLog struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Action          string         `gorm:"column:action;type:varchar(50);not null;index" json:"action"`
	ActorID         *uuid.UUID     `gorm:"column:actor_id;type:uuid;index" json:"actor_id"`
	QualificationID *uuid.UUID     `gorm:"column:qualification_id;type:uuid;index" json:"qualification_id"`
	Detail          string         `gorm:"column:detail;type:text" json:"detail"`
	OriginIP        *string        `gorm:"column:origin_ip;type:varchar(45)" json:"origin_ip"`
	Metadata        datatypes.JSON `gorm:"column:metadata" json:"metadata"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
