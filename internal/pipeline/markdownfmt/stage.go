// Package markdownfmt is stage 2: raw OCR text to normalized structured
// markdown via the LLM collaborator, with a structural no-content-loss check.
package markdownfmt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
	"github.com/joseph-ayodele/invoice-pipeline/internal/llm"
)

const systemPrompt = "You are a document formatter. Convert raw OCR output into clean, normalized markdown. " +
	"Use headings, 'key: value' lines and markdown tables. " +
	"Copy every number and date EXACTLY as written in the input; never reformat, round, translate or drop them. " +
	"Do not add commentary. Return only the markdown document."

type Stage struct {
	Completer llm.Completer
	Logger    *slog.Logger
}

func NewStage(c llm.Completer, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{Completer: c, Logger: logger}
}

// Run formats raw text into structured markdown. Before returning, the stage
// verifies that every numeric token of the input survives verbatim and that
// every table hinted in the layout appears as a markdown table. On a failed
// check it makes exactly one local retry with a stricter instruction naming
// the lost tokens; if content is still missing it fails with ErrContentLoss,
// which the coordinator may retry as a fresh call.
func (s *Stage) Run(ctx context.Context, raw entity.RawText, tmpl *Template) (entity.StructuredMarkdown, error) {
	start := time.Now()
	t := DefaultTemplate
	if tmpl != nil {
		t = *tmpl
	}

	tokens := NumericTokens(raw)
	wantTables := raw.TableCount()

	md, err := s.format(ctx, raw, t, nil)
	if err != nil {
		return entity.StructuredMarkdown{}, err
	}

	missing := MissingTokens(tokens, md)
	if len(missing) == 0 && CountTables(md) >= wantTables {
		s.Logger.Info("markdownfmt.ok",
			"template", t.Name,
			"tokens", len(tokens),
			"tables", wantTables,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.StructuredMarkdown{Content: md}, nil
	}

	s.Logger.Warn("markdownfmt.content_loss_detected",
		"missing_tokens", missing,
		"tables_want", wantTables,
		"tables_got", CountTables(md),
	)

	// one stricter local attempt before escalating
	md, err = s.format(ctx, raw, t, missing)
	if err != nil {
		return entity.StructuredMarkdown{}, err
	}

	missing = MissingTokens(tokens, md)
	if len(missing) > 0 {
		return entity.StructuredMarkdown{}, fmt.Errorf("%w: tokens %v", common.ErrContentLoss, missing)
	}
	if got := CountTables(md); got < wantTables {
		return entity.StructuredMarkdown{}, fmt.Errorf("%w: %d of %d tables rendered", common.ErrContentLoss, got, wantTables)
	}

	s.Logger.Info("markdownfmt.ok_after_strict_retry",
		"template", t.Name,
		"tokens", len(tokens),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.StructuredMarkdown{Content: md}, nil
}

func (s *Stage) format(ctx context.Context, raw entity.RawText, t Template, lostTokens []string) (string, error) {
	var b strings.Builder
	b.WriteString(t.Instruction())
	if len(lostTokens) > 0 {
		b.WriteString("\nIMPORTANT: your previous attempt dropped these values. They MUST appear verbatim in the output: ")
		b.WriteString(strings.Join(lostTokens, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\nOCR output:\n")
	b.WriteString(renderBlocks(raw))

	out, err := s.Completer.Complete(ctx, llm.CompletionRequest{
		System: systemPrompt,
		User:   b.String(),
	})
	if err != nil {
		return "", fmt.Errorf("format markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// renderBlocks serializes the blocks with their layout hints so the model
// can reconstruct table structure.
func renderBlocks(raw entity.RawText) string {
	var b strings.Builder
	page := 0
	for _, blk := range raw.Blocks {
		if blk.Page != page {
			page = blk.Page
			fmt.Fprintf(&b, "[page %d]\n", page)
		}
		if blk.IsTableCell {
			fmt.Fprintf(&b, "[table %d %s] %s\n", blk.TableIndex, blk.Region, blk.Text)
		} else {
			b.WriteString(blk.Text + "\n")
		}
	}
	return b.String()
}
