package constants

// RunState is the canonical state of a document run in the coordinator's
// state machine.
type RunState string

// Stable values (these exact strings appear in the output artifact).
const (
	RunStatePending         RunState = "PENDING"
	RunStateExtracting      RunState = "EXTRACTING"
	RunStateFormatting      RunState = "FORMATTING"
	RunStateFieldExtracting RunState = "FIELD_EXTRACTING"
	RunStateValidating      RunState = "VALIDATING"
	RunStateDone            RunState = "DONE"
	RunStateFailed          RunState = "FAILED"
)

// StageStatus describes how a single stage concluded within a run.
type StageStatus string

const (
	StageSuccess StageStatus = "SUCCESS"
	StageRetried StageStatus = "RETRIED"
	StageFailed  StageStatus = "FAILED"
)

// Stage names as they appear in ProcessingResult.
const (
	StageTextExtraction  = "text_extraction"
	StageMarkdownFormat  = "markdown_formatting"
	StageFieldExtraction = "field_extraction"
	StageValidation      = "validation"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)
