package entity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-pipeline/constants"
)

// Issue is one validation finding. Field references a canonical field name
// or "line_items[N]" for per-line findings.
type Issue struct {
	Severity    constants.Severity `json:"severity"`
	Field       string             `json:"field"`
	Description string             `json:"description"`
}

// ValidationReport is the exhaustive result of the deterministic rule set.
// IsConsistent is true iff no ERROR-severity issue was found; WARNINGs never
// block downstream use.
type ValidationReport struct {
	IsConsistent bool    `json:"is_consistent"`
	Issues       []Issue `json:"issues"`
}

// Errors returns the ERROR-severity issues.
func (r ValidationReport) Errors() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == constants.SeverityError {
			out = append(out, is)
		}
	}
	return out
}

// StageResult records how one stage concluded within a run.
type StageResult struct {
	Stage    string                `json:"stage"`
	Status   constants.StageStatus `json:"status"`
	Attempts int                   `json:"attempts"`
	Error    string                `json:"error,omitempty"`
}

// ProcessingResult is the final artifact of one document run. It is built
// once by the coordinator and immutable afterward.
type ProcessingResult struct {
	DocumentID uuid.UUID          `json:"document_id"`
	SourcePath string             `json:"source_path"`
	State      constants.RunState `json:"state"`
	Record     ExtractedRecord    `json:"record"`
	Validation ValidationReport   `json:"validation"`
	Stages     []StageResult      `json:"stages"`
	ElapsedMS  int64              `json:"elapsed_ms"`
	Error      string             `json:"error,omitempty"`
}

// NeedsReview reports whether the result requires manual attention: failed
// runs and runs whose validation found ERRORs.
func (p ProcessingResult) NeedsReview() bool {
	return p.State != constants.RunStateDone || !p.Validation.IsConsistent
}
