package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthNames maps lowercase month names (English and German, full and
// abbreviated) to their calendar month. Invoices in the wild are frequently
// German-language; the OCR output keeps the original spelling.
var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January, "januar": time.January,
	"february": time.February, "feb": time.February, "februar": time.February,
	"march": time.March, "mar": time.March, "märz": time.March, "maerz": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May, "mai": time.May,
	"june": time.June, "jun": time.June, "juni": time.June,
	"july": time.July, "jul": time.July, "juli": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October, "oktober": time.October, "okt": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December, "dezember": time.December, "dez": time.December,
}

var numericLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"2006/01/02",
}

// "15. März 2025" or "15 March 2025"
var reDayMonthYear = regexp.MustCompile(`^(\d{1,2})\.?\s+([\p{L}]+)\s+(\d{4})$`)

// "March 15, 2025"
var reMonthDayYear = regexp.MustCompile(`^([\p{L}]+)\s+(\d{1,2}),?\s+(\d{4})$`)

// ParseCalendarDate parses a date string in the formats commonly found on
// invoices and returns it in UTC. Returns an error when no layout matches.
func ParseCalendarDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range numericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	if m := reDayMonthYear.FindStringSubmatch(s); m != nil {
		if t, ok := buildDate(m[3], m[2], m[1]); ok {
			return t, nil
		}
	}
	if m := reMonthDayYear.FindStringSubmatch(s); m != nil {
		if t, ok := buildDate(m[3], m[1], m[2]); ok {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable date: %q", s)
}

// NormalizeDate reformats a date string to ISO-8601 (YYYY-MM-DD).
func NormalizeDate(s string) (string, error) {
	t, err := ParseCalendarDate(s)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

func buildDate(year, month, day string) (time.Time, bool) {
	mon, ok := monthNames[strings.ToLower(month)]
	if !ok {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, mon, d, 0, 0, 0, 0, time.UTC), true
}
