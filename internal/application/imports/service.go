package imports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"taxqual-backend/internal/application/audit"
	"taxqual-backend/internal/domain"
	"taxqual-backend/internal/infrastructure/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultMaxBytes caps an upload when Service.MaxBytes is unset.
const DefaultMaxBytes int64 = 10 << 20

var ErrFileTooLarge = errors.New("El archivo excede el tamaño máximo permitido")

// Archiver stores the raw upload and returns where it was put. An empty path means archiving is off.
type Archiver interface {
	Archive(ctx context.Context, fileName string, data []byte) (string, error)
}

// Service runs bulk imports against the database and keeps a batch record per run.
type Service struct {
	DB              *gorm.DB
	Audit           audit.Sink
	Archive         Archiver
	ValidateFactors bool
	MaxBytes        int64
}

// Upload is one file submitted for import.
type Upload struct {
	FileName  string
	Data      io.Reader
	Mode      Mode
	Overwrite bool
	ActorID   uuid.UUID
	IP        string
}

// Result is the batch record plus the report it was built from. Report is nil when
// the file was rejected as a whole.
type Result struct {
	Batch  *domain.ImportBatch `json:"batch"`
	Report *Report             `json:"report,omitempty"`
}

func (s *Service) maxBytes() int64 {
	if s.MaxBytes > 0 {
		return s.MaxBytes
	}
	return DefaultMaxBytes
}

// Import reads the upload, runs the pipeline and records the batch. File-level failures
// produce an ERROR batch and are returned alongside it.
func (s *Service) Import(ctx context.Context, up Upload) (*Result, error) {
	mode := up.Mode
	if mode == "" {
		mode = ModeFactors
	}
	if mode != ModeFactors && mode != ModeAmounts {
		return nil, ErrUnknownMode
	}

	limit := s.maxBytes()
	data, err := io.ReadAll(io.LimitReader(up.Data, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}

	batch := &domain.ImportBatch{
		FileName:     up.FileName,
		FileType:     fileType(mode),
		SizeBytes:    int64(len(data)),
		UploadedByID: up.ActorID,
		Overwrite:    up.Overwrite,
	}

	if path := s.archive(ctx, up.FileName, data); path != "" {
		batch.ArchivePath = &path
	}

	im := &Importer{Repo: &repository.Qualifications{DB: s.DB}, ValidateFactors: s.ValidateFactors}
	report, runErr := im.Run(ctx, Request{
		FileName:  up.FileName,
		File:      bytes.NewReader(data),
		Mode:      mode,
		Overwrite: up.Overwrite,
		ActorID:   up.ActorID,
	})

	details := []string{}
	if runErr != nil {
		batch.Status = domain.ImportStatusError
		batch.Summary = runErr.Error()
		details = append(details, runErr.Error())
	} else {
		batch.Status = domain.ImportStatusProcessed
		batch.Encoding = report.Encoding
		batch.Processed = report.Processed
		batch.Created = report.Created
		batch.Updated = report.Updated
		batch.Skipped = report.Skipped
		batch.Errors = report.Errors
		batch.Cancelled = report.Cancelled
		batch.Summary = report.Summary()
		details = report.Details
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	batch.ErrorDetails = datatypes.JSON(raw)

	// the batch row outlives a cancelled request
	if err := s.DB.WithContext(context.WithoutCancel(ctx)).Create(batch).Error; err != nil {
		return nil, fmt.Errorf("record import batch: %w", err)
	}

	audit.Log(context.WithoutCancel(ctx), s.Audit, audit.Event{
		Action:  domain.AuditBulkImport,
		ActorID: up.ActorID,
		IP:      up.IP,
		Detail:  fmt.Sprintf("Carga masiva %s: %d procesados, %d errores", up.FileName, batch.Processed, batch.Errors),
		Metadata: map[string]interface{}{
			"batch_id":  batch.ID.String(),
			"file_type": batch.FileType,
			"status":    batch.Status,
			"overwrite": up.Overwrite,
		},
	})

	if runErr != nil {
		return &Result{Batch: batch}, runErr
	}
	return &Result{Batch: batch, Report: report}, nil
}

func (s *Service) archive(ctx context.Context, name string, data []byte) string {
	if s.Archive == nil {
		return ""
	}
	path, err := s.Archive.Archive(ctx, name, data)
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Import: archive failed")
		return ""
	}
	return path
}

func fileType(m Mode) string {
	if m == ModeAmounts {
		return domain.ImportTypeAmounts
	}
	return domain.ImportTypeFactors
}

// BatchFilter narrows ListBatches. A zero UploadedBy lists every uploader.
type BatchFilter struct {
	UploadedBy uuid.UUID
	Limit      int
}

// ListBatches returns import batches, newest first.
func (s *Service) ListBatches(ctx context.Context, f BatchFilter) ([]domain.ImportBatch, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := s.DB.WithContext(ctx).Model(&domain.ImportBatch{})
	if f.UploadedBy != uuid.Nil {
		q = q.Where("uploaded_by = ?", f.UploadedBy)
	}
	out := []domain.ImportBatch{}
	err := q.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
