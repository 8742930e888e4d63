package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no JSON object can be located in the content.
var ErrNoJSON = errors.New("no JSON object in response")

var jsonFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")

// ExtractJSON locates the JSON object inside a model response. It tries the
// content directly, then a markdown code fence, then the outermost brace
// pair. The returned bytes are valid JSON.
func ExtractJSON(content string) ([]byte, error) {
	content = strings.TrimSpace(content)

	if json.Valid([]byte(content)) && strings.HasPrefix(content, "{") {
		return []byte(content), nil
	}

	if m := jsonFenceRegex.FindStringSubmatch(content); len(m) >= 2 {
		fenced := strings.TrimSpace(m[1])
		if json.Valid([]byte(fenced)) {
			return []byte(fenced), nil
		}
	}

	// Prose-wrapped object: slice from first '{' to last '}'.
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		candidate := content[start : end+1]
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoJSON, truncate(content, 256))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
