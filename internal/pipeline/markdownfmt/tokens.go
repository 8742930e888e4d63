package markdownfmt

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
)

// reNumericToken matches numbers as written on invoices, including grouped
// and decimal forms ("12345", "1.250,00", "1,250.00", "19%").
var reNumericToken = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// NumericTokens returns the deduplicated numeric tokens of the raw text, in
// first-seen order.
func NumericTokens(raw entity.RawText) []string {
	seen := map[string]struct{}{}
	var tokens []string
	for _, b := range raw.Blocks {
		for _, tok := range reNumericToken.FindAllString(b.Text, -1) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// MissingTokens returns the tokens that do not appear verbatim in the
// markdown output.
func MissingTokens(tokens []string, markdown string) []string {
	var missing []string
	for _, tok := range tokens {
		if !strings.Contains(markdown, tok) {
			missing = append(missing, tok)
		}
	}
	return missing
}

// CountTables counts markdown tables: runs of consecutive lines containing a
// column separator, at least two lines long (header plus divider).
func CountTables(markdown string) int {
	count := 0
	run := 0
	for _, line := range strings.Split(markdown, "\n") {
		if strings.Count(strings.TrimSpace(line), "|") >= 2 {
			run++
			continue
		}
		if run >= 2 {
			count++
		}
		run = 0
	}
	if run >= 2 {
		count++
	}
	return count
}
