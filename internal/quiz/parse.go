package quiz

import (
	"fmt"
	"strings"
)

// extractJSON strips markdown code fences and any prose around the outermost
// JSON object in a model response.
func extractJSON(content string) (string, error) {
	s := strings.TrimSpace(content)

	if i := strings.Index(s, "```"); i != -1 {
		rest := s[i+3:]
		// Skip the language tag line, e.g. ```json
		if nl := strings.IndexByte(rest, '\n'); nl != -1 {
			rest = rest[nl+1:]
		} else {
			rest = strings.TrimPrefix(rest, "json")
		}
		if end := strings.Index(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object in response", ErrInvalidJSON)
	}
	return s[start : end+1], nil
}
