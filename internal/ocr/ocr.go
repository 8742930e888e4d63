// Package ocr defines the contract for the OCR collaborator. The pipeline
// treats recognition as a black box: bytes in, ordered text blocks with
// layout hints out. Failure classification is part of the contract so the
// coordinator can apply the correct retry policy.
package ocr

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
)

// Recognizer is the OCR collaborator: document bytes to raw text blocks.
//
// Implementations must classify failures: rate limits, timeouts and
// 5xx-equivalent responses are wrapped with common.Transient; authentication
// failures return ErrAuth; inputs the backend rejects as unreadable return
// common.ErrMalformedDocument. Implementations never retry internally.
type Recognizer interface {
	Recognize(ctx context.Context, content []byte, mediaType string) (entity.RawText, error)
}

// ErrAuth signals invalid or missing collaborator credentials; permanent.
var ErrAuth = errors.New("ocr authentication failed")
