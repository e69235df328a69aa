package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// extractJSON pulls a JSON object out of free-form model text with three
// increasingly lenient strategies: direct parse, fenced code block, then the
// first-brace-to-last-brace substring. Returns false when none succeed.
func extractJSON(text string) (map[string]interface{}, bool) {
	candidates := []string{strings.TrimSpace(text)}

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if start := strings.Index(text, "{"); start != -1 {
		if end := strings.LastIndex(text, "}"); end > start {
			candidates = append(candidates, text[start:end+1])
		}
	}

	for _, c := range candidates {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(c), &data); err == nil {
			return data, true
		}
	}
	return nil, false
}
