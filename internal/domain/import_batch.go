package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Import file types.
const (
	ImportTypeFactors = "CSV_FACTORES"
	ImportTypeAmounts = "DJ1948"
)

// Import batch statuses.
const (
	ImportStatusProcessed = "PROCESADO"
	ImportStatusError     = "ERROR"
)

// ImportBatch records one bulk-import run and the report it produced.
type ImportBatch struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FileName     string         `gorm:"column:file_name;not null" json:"file_name"`
	FileType     string         `gorm:"column:file_type;type:varchar(15);not null" json:"file_type"`
	SizeBytes    int64          `gorm:"column:size_bytes" json:"size_bytes"`
	Encoding     string         `gorm:"column:encoding;type:varchar(20)" json:"encoding"`
	UploadedByID uuid.UUID      `gorm:"column:uploaded_by;type:uuid;not null;index" json:"uploaded_by"`
	Status       string         `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Overwrite    bool           `gorm:"column:overwrite;not null" json:"overwrite"`
	Processed    int            `gorm:"column:processed;not null" json:"processed"`
	Created      int            `gorm:"column:created;not null" json:"created"`
	Updated      int            `gorm:"column:updated;not null" json:"updated"`
	Skipped      int            `gorm:"column:skipped;not null" json:"skipped"`
	Errors       int            `gorm:"column:errors;not null" json:"errors"`
	Cancelled    bool           `gorm:"column:cancelled;not null" json:"cancelled"`
	Summary      string         `gorm:"column:summary;type:text" json:"summary"`
	ErrorDetails datatypes.JSON `gorm:"column:error_details" json:"error_details"`
	ArchivePath  *string        `gorm:"column:archive_path" json:"archive_path"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

func (ImportBatch) TableName() string {
	return "import_batches"
}

func (b *ImportBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
