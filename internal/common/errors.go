package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline failure taxonomy. Stages classify their own failures with these
// sentinels; the coordinator owns all cross-call retry decisions.
var (
	// ErrUnsupportedFormat: document media type is not accepted.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrMalformedDocument: document bytes cannot be processed; permanent.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrContentLoss: markdown formatting dropped numeric content after the
	// stage-local strict retry; retryable at coordinator level.
	ErrContentLoss = errors.New("content loss in formatted output")
	// ErrSchemaMismatch: collaborator response did not match the extraction
	// schema after one local repair attempt; retryable at coordinator level.
	ErrSchemaMismatch = errors.New("response does not match schema")
	// ErrTimeoutExceeded: the per-document deadline elapsed; fatal for the run.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
)

// TransientError marks a failure as retryable by the coordinator:
// collaborator rate limits, timeouts and 5xx-equivalent conditions.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsRetryable reports whether the coordinator may re-attempt the stage that
// produced err. Content loss and schema mismatches are retryable because the
// collaborator is non-deterministic; a fresh call can succeed.
func IsRetryable(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, ErrContentLoss) || errors.Is(err, ErrSchemaMismatch)
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
