// Package parsefields is stage 3: structured markdown to a schema-validated
// invoice record via the LLM collaborator.
package parsefields

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
	"github.com/joseph-ayodele/invoice-pipeline/internal/llm"
)

const systemPrompt = "You are an invoice parser. Return ONLY JSON that matches the JSON Schema provided. " +
	"Use ISO-8601 dates (YYYY-MM-DD). Monetary values are decimal strings with a dot separator. " +
	"Currency must be a 3-letter ISO 4217 code. " +
	"If you can self-assess, report per-field confidence in a 'confidences' object (0..1). " +
	"Never output null. If a field is not present in the document, omit it."

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

// Run extracts the invoice record from markdown. The collaborator response
// is untrusted: it is validated against the invoice schema, with exactly one
// local repair attempt (strip prose/fences, sanitize field shapes) before
// the stage fails with ErrSchemaMismatch. The repair is invisible to the
// coordinator when it succeeds.
func (s *Stage) Run(ctx context.Context, md entity.StructuredMarkdown) (entity.ExtractedRecord, error) {
	start := time.Now()

	schema := llm.BuildInvoiceJSONSchema()
	content, err := s.Completer.Complete(ctx, llm.CompletionRequest{
		System:   systemPrompt,
		User:     buildUserPrompt(md.Content, schema),
		JSONMode: true,
	})
	if err != nil {
		return entity.ExtractedRecord{}, fmt.Errorf("llm extract: %w", err)
	}

	payload, repaired, err := s.conform(schema, content)
	if err != nil {
		return entity.ExtractedRecord{}, err
	}

	var fields llm.InvoiceFields
	if err := json.Unmarshal(payload, &fields); err != nil {
		return entity.ExtractedRecord{}, fmt.Errorf("%w: %v", common.ErrSchemaMismatch, err)
	}

	record := buildRecord(fields, md.Content)
	s.Logger.Info("parsefields.ok",
		"invoice_number", record.InvoiceNumber.Value,
		"date", record.InvoiceDate.Value,
		"gross", record.GrossTotal.Value,
		"line_items", len(record.LineItems),
		"repaired", repaired,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return record, nil
}

// conform validates the response strictly first; on failure it applies the
// single bounded repair pass and re-validates. Returns the conforming JSON
// and whether repair was needed.
func (s *Stage) conform(schema map[string]any, content string) ([]byte, bool, error) {
	direct := []byte(strings.TrimSpace(content))
	if json.Valid(direct) {
		if err := llm.ValidateJSONAgainstSchema(schema, direct); err == nil {
			return direct, false, nil
		}
	}

	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", common.ErrSchemaMismatch, err)
	}
	cleaned, dropped, err := llm.NormalizeAndSanitizeJSON(raw, s.Logger)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", common.ErrSchemaMismatch, err)
	}
	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		s.Logger.Error("parsefields.schema_validation_failed",
			"error", err,
			"dropped", dropped,
		)
		return nil, true, fmt.Errorf("%w: %v", common.ErrSchemaMismatch, err)
	}
	return cleaned, true, nil
}

func buildUserPrompt(markdown string, schema map[string]any) string {
	var b strings.Builder
	b.WriteString("Invoice document (markdown):\n\n")
	b.WriteString(markdown)
	b.WriteString("\n\nJSON Schema:\n")
	b.WriteString(mustJSON(schema))
	b.WriteString("\n\nReturn ONLY JSON that matches the schema.")
	return b.String()
}

// buildRecord maps raw fields onto the fixed schema, filling in confidence
// scores and explicit missing markers.
func buildRecord(fields llm.InvoiceFields, markdown string) entity.ExtractedRecord {
	var rec entity.ExtractedRecord

	values := map[string]string{
		entity.FieldInvoiceNumber: fields.InvoiceNumber,
		entity.FieldInvoiceDate:   fields.InvoiceDate,
		entity.FieldCurrencyCode:  fields.CurrencyCode,
		entity.FieldGrossTotal:    fields.GrossTotal,
		entity.FieldNetTotal:      fields.NetTotal,
		entity.FieldTaxRate:       fields.TaxRate,
		entity.FieldTaxAmount:     fields.TaxAmount,
	}

	for _, name := range entity.FieldNames {
		v := strings.TrimSpace(values[name])
		if v == "" {
			rec.SetField(name, entity.MissingField())
			continue
		}
		rec.SetField(name, entity.FieldValue{
			Value:      v,
			Confidence: confidence(name, v, markdown, fields.Confidences),
		})
	}

	for i, it := range fields.LineItems {
		rec.LineItems = append(rec.LineItems, entity.LineItem{
			Position:    i + 1,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return rec
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
