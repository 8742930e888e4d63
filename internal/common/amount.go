package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reDecimal = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ParseAmount parses a monetary value into a float64. It accepts plain
// decimals ("1250.00"), US grouping ("1,250.00") and European notation
// ("1.250,00"). Currency symbols and codes around the number are stripped.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	s = strings.Trim(s, "€$£ ")
	s = strings.TrimSuffix(s, "EUR")
	s = strings.TrimSuffix(s, "USD")
	s = strings.TrimSpace(s)

	if reDecimal.MatchString(s) {
		return strconv.ParseFloat(s, 64)
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		// The rightmost separator is the decimal mark.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		// "1250,00" -> decimal comma; "1,250" -> thousands group.
		if i := strings.LastIndex(s, ","); len(s)-i-1 == 3 && strings.Count(s, ",") == 1 && len(s) > 4 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	case hasDot:
		// "1.250" with exactly three trailing digits is a thousands group.
		if i := strings.LastIndex(s, "."); len(s)-i-1 == 3 && strings.Count(s, ".") > 0 && !reDecimal.MatchString(s) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	if !reDecimal.MatchString(s) {
		return 0, fmt.Errorf("unparseable amount: %q", s)
	}
	return strconv.ParseFloat(s, 64)
}

// FormatAmount renders a float as a two-decimal string, the canonical form
// for monetary values in extracted records.
func FormatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// NormalizeAmount reformats an amount string to canonical two-decimal form.
func NormalizeAmount(s string) (string, error) {
	f, err := ParseAmount(s)
	if err != nil {
		return "", err
	}
	return FormatAmount(f), nil
}
