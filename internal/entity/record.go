package entity

// Canonical field names of the invoice schema. The set is fixed; extraction
// never invents field names outside this list.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldCurrencyCode  = "currency_code"
	FieldGrossTotal    = "gross_total"
	FieldNetTotal      = "net_total"
	FieldTaxRate       = "tax_rate"
	FieldTaxAmount     = "tax_amount"
)

// FieldNames lists every schema field in output order.
var FieldNames = []string{
	FieldInvoiceNumber,
	FieldInvoiceDate,
	FieldCurrencyCode,
	FieldGrossTotal,
	FieldNetTotal,
	FieldTaxRate,
	FieldTaxAmount,
}

// RequiredFields must be non-missing for a record to validate cleanly.
var RequiredFields = []string{FieldInvoiceNumber, FieldInvoiceDate, FieldGrossTotal}

// FieldValue is an extracted field with its confidence in [0,1]. An absent
// field is represented explicitly with Missing=true, never silently omitted.
type FieldValue struct {
	Value      string  `json:"value,omitempty"`
	Confidence float32 `json:"confidence"`
	Missing    bool    `json:"missing,omitempty"`
}

// MissingField is the explicit representation of an absent field.
func MissingField() FieldValue {
	return FieldValue{Missing: true}
}

// LineItem is one invoice position. Position is 1-based and unique within a
// record; ordering follows document order. Monetary values are decimal
// strings in canonical two-decimal form.
type LineItem struct {
	Position    int    `json:"position"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// ExtractedRecord maps the fixed invoice schema to extracted values plus the
// ordered line items.
type ExtractedRecord struct {
	InvoiceNumber FieldValue `json:"invoice_number"`
	InvoiceDate   FieldValue `json:"invoice_date"`
	CurrencyCode  FieldValue `json:"currency_code"`
	GrossTotal    FieldValue `json:"gross_total"`
	NetTotal      FieldValue `json:"net_total"`
	TaxRate       FieldValue `json:"tax_rate"`
	TaxAmount     FieldValue `json:"tax_amount"`
	LineItems     []LineItem `json:"line_items"`
}

// Field returns the value for a canonical field name.
func (r *ExtractedRecord) Field(name string) FieldValue {
	switch name {
	case FieldInvoiceNumber:
		return r.InvoiceNumber
	case FieldInvoiceDate:
		return r.InvoiceDate
	case FieldCurrencyCode:
		return r.CurrencyCode
	case FieldGrossTotal:
		return r.GrossTotal
	case FieldNetTotal:
		return r.NetTotal
	case FieldTaxRate:
		return r.TaxRate
	case FieldTaxAmount:
		return r.TaxAmount
	}
	return MissingField()
}

// SetField stores the value for a canonical field name.
func (r *ExtractedRecord) SetField(name string, v FieldValue) {
	switch name {
	case FieldInvoiceNumber:
		r.InvoiceNumber = v
	case FieldInvoiceDate:
		r.InvoiceDate = v
	case FieldCurrencyCode:
		r.CurrencyCode = v
	case FieldGrossTotal:
		r.GrossTotal = v
	case FieldNetTotal:
		r.NetTotal = v
	case FieldTaxRate:
		r.TaxRate = v
	case FieldTaxAmount:
		r.TaxAmount = v
	}
}
