// Package processor contains the coordinator: it sequences the pipeline
// stages for one document, owns all retry and timeout policy, and assembles
// the final ProcessingResult. Stages never retry themselves; they classify
// their failures and the coordinator decides.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/invoice-pipeline/constants"
	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
	"github.com/joseph-ayodele/invoice-pipeline/internal/ingest"
	"github.com/joseph-ayodele/invoice-pipeline/internal/pipeline/markdownfmt"
	"github.com/joseph-ayodele/invoice-pipeline/internal/pipeline/parsefields"
	"github.com/joseph-ayodele/invoice-pipeline/internal/pipeline/textextract"
	"github.com/joseph-ayodele/invoice-pipeline/internal/pipeline/validate"
)

// Coordinator runs documents through the pipeline. It is safe for concurrent
// use: each run is an isolated state machine instance, and the only shared
// state is the bounded pool limiting simultaneous collaborator calls.
type Coordinator struct {
	Logger   *slog.Logger
	Source   *ingest.Source
	Extract  *textextract.Stage
	Format   *markdownfmt.Stage
	Parse    *parsefields.Stage
	Validate *validate.Stage

	cfg  common.PipelineConfig
	pool *semaphore.Weighted
}

func NewCoordinator(
	cfg common.PipelineConfig,
	source *ingest.Source,
	extract *textextract.Stage,
	format *markdownfmt.Stage,
	parse *parsefields.Stage,
	validateStage *validate.Stage,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 8 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &Coordinator{
		Logger:   logger,
		Source:   source,
		Extract:  extract,
		Format:   format,
		Parse:    parse,
		Validate: validateStage,
		cfg:      cfg,
		pool:     semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

// run is the per-document state machine instance. Nothing in it is shared
// across documents.
type run struct {
	doc    entity.Document
	state  constants.RunState
	stages []entity.StageResult

	raw      entity.RawText
	markdown entity.StructuredMarkdown
	record   entity.ExtractedRecord
	report   entity.ValidationReport
}

// ProcessDocument loads the document at path and drives it through the
// state machine. A ProcessingResult is always returned; err is non-nil only
// when the run ended in FAILED and mirrors the recorded failure.
func (c *Coordinator) ProcessDocument(ctx context.Context, path string) (entity.ProcessingResult, error) {
	start := time.Now()

	if c.cfg.DocTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.DocTimeout)
		defer cancel()
	}

	r := &run{state: constants.RunStatePending}

	doc, err := c.Source.Load(path)
	if err != nil {
		c.Logger.Error("pipeline.load_failed", "path", path, "error", err)
		return c.fail(r, path, start, err), err
	}
	r.doc = doc

	c.Logger.Info("pipeline.start",
		"document_id", doc.ID,
		"path", path,
		"media_type", doc.MediaType,
		"pages", doc.PageCount,
	)

	if err := c.advance(ctx, r); err != nil {
		res := c.fail(r, path, start, err)
		c.Logger.Error("pipeline.failed",
			"document_id", doc.ID,
			"state", res.State,
			"error", err,
			"elapsed_ms", res.ElapsedMS,
		)
		return res, err
	}

	res := entity.ProcessingResult{
		DocumentID: doc.ID,
		SourcePath: path,
		State:      constants.RunStateDone,
		Record:     r.record,
		Validation: r.report,
		Stages:     r.stages,
		ElapsedMS:  time.Since(start).Milliseconds(),
	}
	c.Logger.Info("pipeline.done",
		"document_id", doc.ID,
		"consistent", res.Validation.IsConsistent,
		"needs_review", res.NeedsReview(),
		"elapsed_ms", res.ElapsedMS,
	)
	return res, nil
}

// advance walks the state machine: EXTRACTING -> FORMATTING ->
// FIELD_EXTRACTING -> VALIDATING. Any unrecovered stage failure stops the
// walk; the caller transitions to FAILED.
func (c *Coordinator) advance(ctx context.Context, r *run) error {
	r.state = constants.RunStateExtracting
	err := c.runStage(ctx, r, constants.StageTextExtraction, true, func(ctx context.Context) error {
		raw, err := c.Extract.Run(ctx, r.doc)
		if err != nil {
			return err
		}
		r.raw = raw
		return nil
	})
	if err != nil {
		return err
	}

	r.state = constants.RunStateFormatting
	err = c.runStage(ctx, r, constants.StageMarkdownFormat, true, func(ctx context.Context) error {
		md, err := c.Format.Run(ctx, r.raw, nil)
		if err != nil {
			return err
		}
		r.markdown = md
		return nil
	})
	if err != nil {
		return err
	}
	c.saveMarkdown(r)

	r.state = constants.RunStateFieldExtracting
	err = c.runStage(ctx, r, constants.StageFieldExtraction, true, func(ctx context.Context) error {
		record, err := c.Parse.Run(ctx, r.markdown)
		if err != nil {
			return err
		}
		r.record = record
		return nil
	})
	if err != nil {
		return err
	}

	r.state = constants.RunStateValidating
	r.report = c.Validate.Validate(r.record)
	r.stages = append(r.stages, entity.StageResult{
		Stage:    constants.StageValidation,
		Status:   constants.StageSuccess,
		Attempts: 1,
	})

	r.state = constants.RunStateDone
	return nil
}

// runStage executes fn with the coordinator's retry policy: retryable
// failures re-enter the same state up to MaxRetries additional attempts with
// exponential backoff; permanent failures stop immediately. usesPool guards
// stages that call a collaborator; a pool slot is held only for the active
// call, never across the backoff delay.
func (c *Coordinator) runStage(ctx context.Context, r *run, stage string, usesPool bool, fn func(context.Context) error) error {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= c.cfg.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = c.ctxError(err)
			break
		}

		attempts = attempt
		lastErr = c.invoke(ctx, usesPool, fn)
		if lastErr == nil {
			status := constants.StageSuccess
			if attempt > 1 {
				status = constants.StageRetried
			}
			r.stages = append(r.stages, entity.StageResult{
				Stage:    stage,
				Status:   status,
				Attempts: attempt,
			})
			return nil
		}

		if err := ctx.Err(); err != nil {
			lastErr = c.ctxError(err)
			break
		}
		if !common.IsRetryable(lastErr) {
			c.Logger.Error("pipeline.stage_permanent_failure",
				"document_id", r.doc.ID,
				"stage", stage,
				"attempt", attempt,
				"error", lastErr,
			)
			break
		}
		if attempt == c.cfg.MaxRetries+1 {
			break
		}

		delay := c.backoff(attempt)
		c.Logger.Warn("pipeline.stage_retry",
			"document_id", r.doc.ID,
			"stage", stage,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", lastErr,
		)
		select {
		case <-ctx.Done():
			lastErr = c.ctxError(ctx.Err())
		case <-time.After(delay):
			continue
		}
		break
	}

	r.stages = append(r.stages, entity.StageResult{
		Stage:    stage,
		Status:   constants.StageFailed,
		Attempts: attempts,
		Error:    lastErr.Error(),
	})
	return fmt.Errorf("%s: %w", stage, lastErr)
}

// invoke runs fn under a pool slot when the stage talks to a collaborator.
// The bounded pool is the only cross-document shared state; it respects
// external rate limits.
func (c *Coordinator) invoke(ctx context.Context, usesPool bool, fn func(context.Context) error) error {
	if usesPool {
		if err := c.pool.Acquire(ctx, 1); err != nil {
			return c.ctxError(err)
		}
		defer c.pool.Release(1)
	}
	return fn(ctx)
}

// backoff computes the delay before retry n: base doubled per attempt,
// capped.
func (c *Coordinator) backoff(attempt int) time.Duration {
	d := c.cfg.BackoffBase << (attempt - 1)
	if d > c.cfg.BackoffCap || d <= 0 {
		d = c.cfg.BackoffCap
	}
	return d
}

func (c *Coordinator) ctxError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.ErrTimeoutExceeded
	}
	return err
}

func (c *Coordinator) fail(r *run, path string, start time.Time, err error) entity.ProcessingResult {
	r.state = constants.RunStateFailed
	c.saveFailureArtifacts(r)
	return entity.ProcessingResult{
		DocumentID: r.doc.ID,
		SourcePath: path,
		State:      constants.RunStateFailed,
		Record:     r.record,
		Validation: r.report,
		Stages:     r.stages,
		ElapsedMS:  time.Since(start).Milliseconds(),
		Error:      err.Error(),
	}
}

// saveMarkdown persists the intermediate markdown artifact when configured.
// Failures are logged, never fatal: the artifact is a convenience output.
func (c *Coordinator) saveMarkdown(r *run) {
	if !c.cfg.SaveMarkdown || c.cfg.OutputDir == "" {
		return
	}
	path := filepath.Join(c.cfg.OutputDir, artifactBase(r.doc.SourcePath)+".md")
	if err := os.WriteFile(path, []byte(r.markdown.Content), 0o644); err != nil {
		c.Logger.Warn("pipeline.markdown_artifact_write_failed", "path", path, "error", err)
		return
	}
	c.Logger.Debug("pipeline.markdown_artifact_saved", "path", path)
}

// saveFailureArtifacts persists partial intermediate artifacts on failure,
// only when explicitly requested.
func (c *Coordinator) saveFailureArtifacts(r *run) {
	if !c.cfg.SaveOnFailure || c.cfg.OutputDir == "" || len(r.raw.Blocks) == 0 {
		return
	}
	path := filepath.Join(c.cfg.OutputDir, artifactBase(r.doc.SourcePath)+".ocr.txt")
	if err := os.WriteFile(path, []byte(r.raw.Text()), 0o644); err != nil {
		c.Logger.Warn("pipeline.failure_artifact_write_failed", "path", path, "error", err)
	}
}

func artifactBase(sourcePath string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
