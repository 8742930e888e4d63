package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
)

var moneyFields = []string{"gross_total", "net_total", "tax_amount", "tax_rate"}

// NormalizeAndSanitizeJSON is the single, bounded local repair applied to a
// model response before schema validation:
//   - drops null / empty / unknown keys (additionalProperties friendliness)
//   - coerces numeric values to strings
//   - normalizes European number notation ("1.250,00" -> "1250.00")
//   - normalizes dates to ISO-8601, including German month names
//
// Values that remain unparseable are dropped rather than invented; a dropped
// field surfaces as missing downstream.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)

	if v, ok := m["invoice_number"]; ok {
		switch t := v.(type) {
		case float64:
			m["invoice_number"] = trimFloat(t)
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				delete(m, "invoice_number")
				dropped = append(dropped, "invoice_number(empty)")
			} else {
				m["invoice_number"] = s
			}
		case nil:
			delete(m, "invoice_number")
			dropped = append(dropped, "invoice_number(null)")
		}
	}

	if v, ok := m["invoice_date"].(string); ok {
		if iso, err := common.NormalizeDate(v); err == nil {
			m["invoice_date"] = iso
		} else {
			delete(m, "invoice_date")
			dropped = append(dropped, "invoice_date(unparseable)")
		}
	}

	if v, ok := m["currency_code"].(string); ok {
		s := strings.ToUpper(strings.TrimSpace(v))
		if len(s) == 3 {
			m["currency_code"] = s
		} else {
			delete(m, "currency_code")
			dropped = append(dropped, "currency_code(shape)")
		}
	}

	for _, k := range moneyFields {
		dropped = append(dropped, coerceMoney(m, k)...)
	}

	if items, ok := m["line_items"].([]any); ok {
		cleaned := make([]any, 0, len(items))
		for i, it := range items {
			obj, ok := it.(map[string]any)
			if !ok {
				dropped = append(dropped, fmt.Sprintf("line_items[%d](type)", i))
				continue
			}
			for _, k := range []string{"quantity", "unit_price", "line_total"} {
				dropped = append(dropped, coerceMoney(obj, k)...)
			}
			if v, ok := obj["description"].(string); ok {
				obj["description"] = strings.TrimSpace(v)
			}
			for k := range maps.Clone(obj) {
				switch k {
				case "description", "quantity", "unit_price", "line_total":
				default:
					delete(obj, k)
					dropped = append(dropped, fmt.Sprintf("line_items[%d].%s(unknown)", i, k))
				}
			}
			cleaned = append(cleaned, obj)
		}
		m["line_items"] = cleaned
	}

	// remove unknown top-level keys
	allowed := map[string]struct{}{
		"invoice_number": {}, "invoice_date": {}, "currency_code": {},
		"gross_total": {}, "net_total": {}, "tax_rate": {}, "tax_amount": {},
		"line_items": {}, "confidences": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// coerceMoney normalizes m[k] to a canonical numeric string, deleting the
// key when the value cannot be recovered. Returns drop annotations.
func coerceMoney(m map[string]any, k string) []string {
	v, ok := m[k]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case float64:
		m[k] = trimFloat(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			delete(m, k)
			return []string{k + "(empty)"}
		}
		norm, err := common.NormalizeAmount(s)
		if err != nil {
			delete(m, k)
			return []string{k + "(unparseable)"}
		}
		// keep integer-looking values (quantities, rates) unpadded
		if !strings.ContainsAny(s, ".,") {
			norm = s
		}
		m[k] = norm
	case nil:
		delete(m, k)
		return []string{k + "(null)"}
	default:
		delete(m, k)
		return []string{k + "(type)"}
	}
	return nil
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}
