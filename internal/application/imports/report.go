package imports

import "strings"

const (
	// MaxDetails caps the per-row messages kept in a report.
	MaxDetails      = 10
	TruncatedMarker = "... more errors"
	detailSeparator = "; "
	skippedMessage  = "Registro existente omitido"
)

// Report summarizes one import run. Skipped rows count as errors, as they do for users
// reading the report: the row was not applied.
type Report struct {
	Format    string   `json:"format"`
	Encoding  string   `json:"encoding,omitempty"`
	Rows      int      `json:"rows"`
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Errors    int      `json:"errors"`
	Cancelled bool     `json:"cancelled"`
	Details   []string `json:"details"`

	truncated bool
}

func (r *Report) record(row int, o Outcome) {
	switch o {
	case Created:
		r.Created++
		r.Processed++
	case Updated:
		r.Updated++
		r.Processed++
	case Skipped:
		r.Skipped++
		r.fail(row, skippedMessage)
	}
}

func (r *Report) fail(row int, msg string) {
	r.Errors++
	if len(r.Details) < MaxDetails {
		r.Details = append(r.Details, rowMessage(row, joinLines(msg)))
		return
	}
	if !r.truncated {
		r.truncated = true
		r.Details = append(r.Details, TruncatedMarker)
	}
}

// Summary joins the capped details into one string.
func (r *Report) Summary() string {
	return strings.Join(r.Details, detailSeparator)
}

// joinLines flattens multi-line messages (joined errors) onto one line.
func joinLines(s string) string {
	return strings.ReplaceAll(s, "\n", ", ")
}
