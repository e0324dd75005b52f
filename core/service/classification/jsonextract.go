package classification

import (
	"regexp"

	"github.com/goccy/go-json"
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	fencedPattern     = regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```")
)

// ExtractJSON recovers a JSON object from model output that may wrap it in
// markdown fences or prose. Recovery order: ```json fence, bare fence,
// first balanced brace span that parses.
func ExtractJSON(text string) (map[string]any, bool) {
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		if obj, ok := parseObject(m[1]); ok {
			return obj, true
		}
	}
	if m := fencedPattern.FindStringSubmatch(text); m != nil {
		if obj, ok := parseObject(m[1]); ok {
			return obj, true
		}
	}

	depth := 0
	start := -1
	for i, ch := range text {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				if obj, ok := parseObject(text[start : i+1]); ok {
					return obj, true
				}
				start = -1
			}
		}
	}
	return nil, false
}

func parseObject(candidate string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	return obj, true
}
