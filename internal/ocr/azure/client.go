// Package azure implements the OCR collaborator on Azure Document
// Intelligence (prebuilt-read). The analyze call is asynchronous: submit the
// document, then poll the returned operation until it settles.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
	"github.com/joseph-ayodele/invoice-pipeline/internal/ocr"
)

const apiVersion = "2024-11-30"

// Config for the Azure Document Intelligence client.
type Config struct {
	Endpoint     string        // e.g. https://<resource>.cognitiveservices.azure.com
	APIKey       string
	PollInterval time.Duration // default 2s
	MaxPollTime  time.Duration // default 90s
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxPollTime <= 0 {
		cfg.MaxPollTime = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// analyzeResult mirrors the subset of the prebuilt-read response we consume.
type analyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Pages []struct {
			PageNumber int `json:"pageNumber"`
			Lines      []struct {
				Content string `json:"content"`
			} `json:"lines"`
		} `json:"pages"`
		Tables []struct {
			Cells []struct {
				Content     string `json:"content"`
				RowIndex    int    `json:"rowIndex"`
				ColumnIndex int    `json:"columnIndex"`
			} `json:"cells"`
			BoundingRegions []struct {
				PageNumber int `json:"pageNumber"`
			} `json:"boundingRegions"`
		} `json:"tables"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"analyzeResult"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Recognize submits the document and polls for the recognition result.
func (c *Client) Recognize(ctx context.Context, content []byte, mediaType string) (entity.RawText, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("ocr.recognize.start",
		"req_id", rid,
		"media_type", mediaType,
		"bytes", len(content),
	)

	opURL, err := c.submit(ctx, rid, content, mediaType)
	if err != nil {
		return entity.RawText{}, err
	}

	res, err := c.poll(ctx, rid, opURL)
	if err != nil {
		return entity.RawText{}, err
	}

	raw := toRawText(res)
	c.logger.Info("ocr.recognize.ok",
		"req_id", rid,
		"blocks", len(raw.Blocks),
		"tables", raw.TableCount(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return raw, nil
}

func (c *Client) submit(ctx context.Context, rid string, content []byte, mediaType string) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/prebuilt-read:analyze?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mediaType)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// network-level failure; the caller may retry
		return "", common.Transient(fmt.Errorf("submit analyze: %w", err))
	}
	defer closeBody(resp.Body, c.logger, rid)

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", c.classifyStatus(rid, resp.StatusCode, body)
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", common.Transient(fmt.Errorf("analyze accepted without operation-location"))
	}
	return opURL, nil
}

func (c *Client) poll(ctx context.Context, rid, opURL string) (analyzeResult, error) {
	deadline := time.Now().Add(c.cfg.MaxPollTime)
	for {
		res, err := c.fetchOperation(ctx, rid, opURL)
		if err != nil {
			return analyzeResult{}, err
		}

		switch res.Status {
		case "succeeded":
			return res, nil
		case "failed":
			msg := "analysis failed"
			if res.Error != nil {
				msg = res.Error.Message
				if isInputError(res.Error.Code) {
					return analyzeResult{}, fmt.Errorf("%w: %s", common.ErrMalformedDocument, msg)
				}
			}
			return analyzeResult{}, common.Transient(fmt.Errorf("ocr: %s", msg))
		}

		if time.Now().After(deadline) {
			return analyzeResult{}, common.Transient(fmt.Errorf("ocr operation still %q after %s", res.Status, c.cfg.MaxPollTime))
		}

		select {
		case <-ctx.Done():
			return analyzeResult{}, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func (c *Client) fetchOperation(ctx context.Context, rid, opURL string) (analyzeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return analyzeResult{}, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return analyzeResult{}, common.Transient(fmt.Errorf("poll analyze: %w", err))
	}
	defer closeBody(resp.Body, c.logger, rid)

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return analyzeResult{}, c.classifyStatus(rid, resp.StatusCode, body)
	}

	var res analyzeResult
	if err := json.Unmarshal(body, &res); err != nil {
		return analyzeResult{}, common.Transient(fmt.Errorf("decode analyze result: %w", err))
	}
	return res, nil
}

// classifyStatus maps HTTP failures onto the pipeline taxonomy: 429/5xx are
// transient, 401/403 are credential problems, 4xx means the input itself was
// rejected.
func (c *Client) classifyStatus(rid string, status int, body []byte) error {
	c.logger.Error("ocr.http_error",
		"req_id", rid,
		"status", status,
		"body", truncate(string(body), 512),
	)
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return common.Transient(fmt.Errorf("ocr status %d", status))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ocr.ErrAuth, status)
	default:
		return fmt.Errorf("%w: ocr status %d", common.ErrMalformedDocument, status)
	}
}

// isInputError reports whether an operation-level error code means the
// document itself is unusable (as opposed to a service hiccup).
func isInputError(code string) bool {
	switch code {
	case "InvalidRequest", "InvalidContent", "InvalidContentDimensions", "UnsupportedContent":
		return true
	}
	return false
}

func toRawText(res analyzeResult) entity.RawText {
	var blocks []entity.Block
	for _, p := range res.AnalyzeResult.Pages {
		for _, l := range p.Lines {
			blocks = append(blocks, entity.Block{
				Text: l.Content,
				Page: p.PageNumber,
			})
		}
	}
	for ti, t := range res.AnalyzeResult.Tables {
		page := 0
		if len(t.BoundingRegions) > 0 {
			page = t.BoundingRegions[0].PageNumber
		}
		for _, cell := range t.Cells {
			blocks = append(blocks, entity.Block{
				Text:        cell.Content,
				Page:        page,
				Region:      fmt.Sprintf("r%dc%d", cell.RowIndex, cell.ColumnIndex),
				IsTableCell: true,
				TableIndex:  ti + 1,
			})
		}
	}
	return entity.RawText{Blocks: blocks}
}

func closeBody(body io.ReadCloser, logger *slog.Logger, rid string) {
	if err := body.Close(); err != nil {
		logger.Warn("ocr.response_body_close_error", "req_id", rid, "error", err)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
