package llm

import "context"

// CompletionRequest is one prompt for the LLM collaborator.
type CompletionRequest struct {
	System   string
	User     string
	JSONMode bool // ask the provider to constrain output to a JSON object
}

// Completer is the LLM collaborator: prompt in, text (or JSON text) out.
// Output is non-deterministic; callers must treat it as an untrusted,
// possibly-malformed payload. Transient provider failures are wrapped with
// common.Transient so the coordinator can retry them.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// InvoiceFields is the normalized shape we want from the LLM. Monetary
// values are decimal strings; the model may optionally report a per-field
// confidence signal.
type InvoiceFields struct {
	InvoiceNumber string             `json:"invoice_number,omitempty"`
	InvoiceDate   string             `json:"invoice_date,omitempty"` // YYYY-MM-DD
	CurrencyCode  string             `json:"currency_code,omitempty"`
	GrossTotal    string             `json:"gross_total,omitempty"`
	NetTotal      string             `json:"net_total,omitempty"`
	TaxRate       string             `json:"tax_rate,omitempty"` // percent
	TaxAmount     string             `json:"tax_amount,omitempty"`
	LineItems     []LineItemFields   `json:"line_items,omitempty"`
	Confidences   map[string]float32 `json:"confidences,omitempty"` // optional (0..1)
}

// LineItemFields is one raw line item as returned by the model.
type LineItemFields struct {
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
	UnitPrice   string `json:"unit_price,omitempty"`
	LineTotal   string `json:"line_total,omitempty"`
}
