package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Mode selects the row layout of an upload.
type Mode string

const (
	ModeFactors Mode = "factores"
	// ModeAmounts rows are handled like factor rows until amount files get their own layout.
	ModeAmounts Mode = "montos"
)

// ParseMode validates a mode string; empty means factores.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFactors:
		return ModeFactors, nil
	case ModeAmounts:
		return ModeAmounts, nil
	}
	return "", ErrUnknownMode
}

// Request is one bulk-import invocation.
type Request struct {
	FileName  string
	File      io.ReadSeeker
	Mode      Mode
	Overwrite bool
	ActorID   uuid.UUID
}

// Importer runs uploads through parse, normalize, coerce and reconcile.
type Importer struct {
	Repo            Repository
	ValidateFactors bool
}

// Run processes every row in file order. Row failures are recorded in the report and the
// loop moves on; file-level failures return an error and no report. Rows are committed one
// by one, so a failed or cancelled run leaves earlier rows in place. Cancellation is checked
// between rows and yields the partial report with Cancelled set.
func (im *Importer) Run(ctx context.Context, req Request) (*Report, error) {
	if req.Mode == "" {
		req.Mode = ModeFactors
	}
	if req.Mode != ModeFactors && req.Mode != ModeAmounts {
		return nil, ErrUnknownMode
	}
	table, err := ParseTable(req.FileName, req.File)
	if err != nil {
		return nil, &FileError{Name: req.FileName, Err: err}
	}
	logger := log.With().Str("file", req.FileName).Str("mode", string(req.Mode)).Logger()
	logger.Info().Str("format", table.Format).Str("encoding", table.Encoding).
		Int("rows", len(table.Rows)).Msg("Import started")
	for _, h := range table.Headers {
		if _, ok := CanonicalColumn(h); !ok && h != "" {
			logger.Debug().Str("column", h).Msg("Import: column ignored")
		}
	}

	rec := &Reconciler{Repo: im.Repo, ActorID: req.ActorID, ValidateFactors: im.ValidateFactors}
	report := &Report{Format: table.Format, Encoding: table.Encoding, Rows: len(table.Rows), Details: []string{}}

	for _, row := range table.Rows {
		if ctx.Err() != nil {
			report.Cancelled = true
			logger.Warn().Int("row", row.Number).Msg("Import cancelled")
			break
		}
		outcome, err := processRow(ctx, rec, row, table.Headers, req.Overwrite)
		if err != nil {
			logger.Debug().Int("row", row.Number).Err(err).Msg("Import: row failed")
			report.fail(row.Number, err.Error())
			continue
		}
		report.record(row.Number, outcome)
	}

	logger.Info().Int("processed", report.Processed).Int("created", report.Created).
		Int("updated", report.Updated).Int("skipped", report.Skipped).Int("errors", report.Errors).
		Bool("cancelled", report.Cancelled).Msg("Import finished")
	return report, nil
}

// processRow runs one row through normalize, coerce and reconcile. Both modes share it.
func processRow(ctx context.Context, rec *Reconciler, row Row, headers []string, overwrite bool) (Outcome, error) {
	norm, err := NormalizeRow(row.Cells, headers...)
	if err != nil {
		return 0, err
	}
	typed, err := CoerceRow(norm)
	if err != nil {
		return 0, err
	}
	return rec.ReconcileRow(ctx, typed, overwrite)
}

// CanonicalColumn resolves a header to its canonical field name.
func CanonicalColumn(header string) (string, bool) {
	f, ok := spellingToField[strings.ToLower(strings.TrimSpace(header))]
	return f, ok
}

// IsFileError reports whether err aborted an import as a whole.
func IsFileError(err error) bool {
	var fe *FileError
	return errors.As(err, &fe) || errors.Is(err, ErrUnknownMode)
}

func rowMessage(n int, msg string) string {
	return fmt.Sprintf("Row %d: %s", n, msg)
}
