package parsefields

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
)

var (
	reCurrency = regexp.MustCompile(`^[A-Z]{3}$`)
	reNumber   = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	// date-like substrings inside free text, numeric and textual forms
	reDateLike = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}\.\d{1,2}\.\d{4}|\d{1,2}\.?\s+\p{L}+\s+\d{4}`)
)

// confidence scores one extracted field. The model's own signal wins when it
// reported one; otherwise a deterministic format/containment check against
// the markdown yields 1.0, and anything unverifiable gets 0.5.
func confidence(name, value, markdown string, model map[string]float32) float32 {
	if c, ok := model[name]; ok && c > 0 && c <= 1 {
		return c
	}
	if verified(name, value, markdown) {
		return 1.0
	}
	return 0.5
}

func verified(name, value, markdown string) bool {
	switch name {
	case entity.FieldInvoiceNumber:
		return strings.Contains(markdown, value)
	case entity.FieldCurrencyCode:
		return reCurrency.MatchString(value) && strings.Contains(markdown, value)
	case entity.FieldInvoiceDate:
		return dateAppears(value, markdown)
	default:
		return amountAppears(value, markdown)
	}
}

// amountAppears reports whether any numeric token of the markdown parses to
// the same value. "1.250,00" in the document verifies "1250.00".
func amountAppears(value, markdown string) bool {
	want, err := common.ParseAmount(value)
	if err != nil {
		return false
	}
	for _, tok := range reNumber.FindAllString(markdown, -1) {
		if got, err := common.ParseAmount(tok); err == nil && got == want {
			return true
		}
	}
	return false
}

// dateAppears reports whether the markdown contains a date (in any supported
// notation) that normalizes to the extracted ISO value.
func dateAppears(value, markdown string) bool {
	iso, err := common.NormalizeDate(value)
	if err != nil {
		return false
	}
	if strings.Contains(markdown, iso) {
		return true
	}
	for _, cand := range reDateLike.FindAllString(markdown, -1) {
		if got, err := common.NormalizeDate(cand); err == nil && got == iso {
			return true
		}
	}
	return false
}
