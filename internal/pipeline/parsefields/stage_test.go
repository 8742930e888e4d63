package parsefields_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
	"github.com/joseph-ayodele/invoice-pipeline/internal/llm"
	"github.com/joseph-ayodele/invoice-pipeline/internal/pipeline/parsefields"
)

type stubCompleter struct {
	response string
	err      error
	requests []llm.CompletionRequest
}

func (s *stubCompleter) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	s.requests = append(s.requests, req)
	return s.response, s.err
}

const germanMarkdown = "# Rechnung 12345\n\n" +
	"Datum: 15. März 2025\n\n" +
	"| Pos | Beschreibung | Menge | Einzelpreis | Summe |\n" +
	"| --- | --- | --- | --- | --- |\n" +
	"| 1 | Beratung | 2 | 500,00 | 1.000,00 |\n\n" +
	"Nettobetrag: 1.050,42 EUR\n" +
	"MwSt (19 %): 199,58 EUR\n" +
	"Gesamtbetrag: 1.250,00 EUR\n"

func run(t *testing.T, response string) (entity.ExtractedRecord, *stubCompleter) {
	t.Helper()
	c := &stubCompleter{response: response}
	rec, err := parsefields.NewStage(c, nil).Run(context.Background(), entity.StructuredMarkdown{Content: germanMarkdown})
	require.NoError(t, err)
	return rec, c
}

func TestRunCleanResponse(t *testing.T) {
	rec, c := run(t, `{"invoice_number":"12345","invoice_date":"2025-03-15","currency_code":"EUR",
		"gross_total":"1250.00","net_total":"1050.42","tax_rate":"19","tax_amount":"199.58",
		"line_items":[{"description":"Beratung","quantity":"2","unit_price":"500.00","line_total":"1000.00"}]}`)

	require.Len(t, c.requests, 1)
	assert.True(t, c.requests[0].JSONMode)

	assert.Equal(t, "12345", rec.InvoiceNumber.Value)
	assert.Equal(t, "2025-03-15", rec.InvoiceDate.Value)
	assert.Equal(t, "EUR", rec.CurrencyCode.Value)
	assert.Equal(t, "1250.00", rec.GrossTotal.Value)
	assert.False(t, rec.GrossTotal.Missing)

	require.Len(t, rec.LineItems, 1)
	assert.Equal(t, 1, rec.LineItems[0].Position)
	assert.Equal(t, "Beratung", rec.LineItems[0].Description)
	assert.Equal(t, "1000.00", rec.LineItems[0].LineTotal)
}

func TestRunConfidenceVerifiedAgainstMarkdown(t *testing.T) {
	// canonical values whose German notation appears in the markdown
	rec, _ := run(t, `{"invoice_number":"12345","invoice_date":"2025-03-15","currency_code":"EUR","gross_total":"1250.00"}`)

	assert.InDelta(t, 1.0, rec.InvoiceNumber.Confidence, 0.001)
	assert.InDelta(t, 1.0, rec.InvoiceDate.Confidence, 0.001)  // "15. März 2025" normalizes to it
	assert.InDelta(t, 1.0, rec.GrossTotal.Confidence, 0.001)   // "1.250,00" parses to 1250.00
	assert.InDelta(t, 1.0, rec.CurrencyCode.Confidence, 0.001) // "EUR" appears verbatim
}

func TestRunConfidenceModelSignalWins(t *testing.T) {
	rec, _ := run(t, `{"invoice_number":"12345","confidences":{"invoice_number":0.7}}`)
	assert.InDelta(t, 0.7, rec.InvoiceNumber.Confidence, 0.001)
}

func TestRunConfidenceUnverifiable(t *testing.T) {
	// number not present anywhere in the markdown
	rec, _ := run(t, `{"invoice_number":"99999"}`)
	assert.InDelta(t, 0.5, rec.InvoiceNumber.Confidence, 0.001)
}

func TestRunMissingFieldsMarked(t *testing.T) {
	rec, _ := run(t, `{"invoice_number":"12345"}`)
	assert.True(t, rec.InvoiceDate.Missing)
	assert.True(t, rec.GrossTotal.Missing)
	assert.False(t, rec.InvoiceNumber.Missing)
	assert.Empty(t, rec.LineItems)
}

func TestRunRepairsFencedProseResponse(t *testing.T) {
	rec, _ := run(t, "Here is the extracted data:\n```json\n"+
		`{"invoice_number":"12345","gross_total":"1.250,00","merchant":"ACME"}`+
		"\n```\nLet me know if you need more.")

	assert.Equal(t, "12345", rec.InvoiceNumber.Value)
	// sanitizer normalized the notation and dropped the unknown key
	assert.Equal(t, "1250.00", rec.GrossTotal.Value)
}

func TestRunSchemaMismatchAfterRepair(t *testing.T) {
	c := &stubCompleter{response: `{"invoice_date":12345}`}
	_, err := parsefields.NewStage(c, nil).Run(context.Background(), entity.StructuredMarkdown{Content: germanMarkdown})
	require.ErrorIs(t, err, common.ErrSchemaMismatch)
	assert.True(t, common.IsRetryable(err))
}

func TestRunNoJSONAtAll(t *testing.T) {
	c := &stubCompleter{response: "I could not find any invoice data in this document."}
	_, err := parsefields.NewStage(c, nil).Run(context.Background(), entity.StructuredMarkdown{Content: germanMarkdown})
	assert.ErrorIs(t, err, common.ErrSchemaMismatch)
}

func TestRunCompleterError(t *testing.T) {
	c := &stubCompleter{err: common.Transient(assert.AnError)}
	_, err := parsefields.NewStage(c, nil).Run(context.Background(), entity.StructuredMarkdown{Content: germanMarkdown})
	require.Error(t, err)
	assert.True(t, common.IsRetryable(err))
}
