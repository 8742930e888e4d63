// Package textextract is stage 1: document bytes to raw text blocks via the
// OCR collaborator.
package textextract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-pipeline/constants"
	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
	"github.com/joseph-ayodele/invoice-pipeline/internal/ocr"
)

type Stage struct {
	Recognizer ocr.Recognizer
	Logger     *slog.Logger
}

func NewStage(rec ocr.Recognizer, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{Recognizer: rec, Logger: logger}
}

// Run extracts raw text from the document. Plain text bypasses the OCR
// collaborator entirely; everything else is delegated to it. The stage does
// not retry: recognizer errors arrive pre-classified (transient vs permanent)
// and retry policy belongs to the coordinator.
func (s *Stage) Run(ctx context.Context, doc entity.Document) (entity.RawText, error) {
	start := time.Now()

	if !constants.IsSupportedMediaType(doc.MediaType) {
		return entity.RawText{}, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, doc.MediaType)
	}

	if !constants.RequiresOCR(doc.MediaType) {
		raw := textToRawText(string(doc.Content))
		s.Logger.Info("textextract.plain",
			"document_id", doc.ID,
			"blocks", len(raw.Blocks),
		)
		return raw, nil
	}

	raw, err := s.Recognizer.Recognize(ctx, doc.Content, doc.MediaType)
	if err != nil {
		return entity.RawText{}, fmt.Errorf("recognize: %w", err)
	}
	if len(raw.Blocks) == 0 {
		return entity.RawText{}, fmt.Errorf("%w: no text recognized", common.ErrMalformedDocument)
	}

	s.Logger.Info("textextract.ok",
		"document_id", doc.ID,
		"blocks", len(raw.Blocks),
		"tables", raw.TableCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return raw, nil
}

// textToRawText splits plain text into one block per non-empty line, page 1.
func textToRawText(text string) entity.RawText {
	var blocks []entity.Block
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		blocks = append(blocks, entity.Block{Text: line, Page: 1})
	}
	return entity.RawText{Blocks: blocks}
}
