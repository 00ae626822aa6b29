package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON extracts and decodes a JSON value of type T from text that may
// be wrapped in a fenced code block and/or trailed by prose, per §4.4's
// `parseJSON<T>(text) → T` contract. Models routinely answer
// "```json\n{...}\n```\nHope that helps!" instead of bare JSON; this
// tolerates both that and bare JSON with surrounding whitespace.
func ParseJSON[T any](text string) (T, error) {
	var zero T

	candidate := extractJSONCandidate(text)
	if candidate == "" {
		return zero, fmt.Errorf("no JSON object or array found in response")
	}

	var out T
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return zero, fmt.Errorf("decode JSON candidate: %w", err)
	}
	return out, nil
}

// extractJSONCandidate locates the most likely JSON substring in text:
// first a fenced ```json block, else the outermost balanced {...} or
// [...] span found by bracket counting (so trailing prose after the
// closing brace doesn't break parsing).
func extractJSONCandidate(text string) string {
	if fenced := extractFencedBlock(text); fenced != "" {
		return fenced
	}
	return extractBalancedSpan(text)
}

func extractFencedBlock(text string) string {
	const fenceJSON = "```json"
	const fence = "```"

	start := strings.Index(text, fenceJSON)
	skip := len(fenceJSON)
	if start == -1 {
		start = strings.Index(text, fence)
		skip = len(fence)
		if start == -1 {
			return ""
		}
	}
	rest := text[start+skip:]
	end := strings.Index(rest, fence)
	if end == -1 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

func extractBalancedSpan(text string) string {
	openers := map[byte]byte{'{': '}', '[': ']'}
	for i := 0; i < len(text); i++ {
		closer, ok := openers[text[i]]
		if !ok {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for j := i; j < len(text); j++ {
			c := text[j]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case text[i]:
				depth++
			case closer:
				depth--
				if depth == 0 {
					return text[i : j+1]
				}
			}
		}
	}
	return ""
}
