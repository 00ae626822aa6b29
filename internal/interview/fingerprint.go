package interview

import "github.com/dotsetlabs/bellwether/internal/baseline"

// responseFingerprint derives a shape fingerprint for a tool by
// canonicalizing and hashing the response shape of its last successful
// interaction. Tools with no successful interaction have no fingerprint.
func responseFingerprint(interactions []Interaction) string {
	var last string
	for _, i := range interactions {
		if !i.succeeded() {
			continue
		}
		hash, err := baseline.ShortHash(shapeOf(i.Response))
		if err != nil {
			continue
		}
		last = hash
	}
	return last
}

// shapeOf reduces a decoded response to its structural shape (key names
// and value kinds, not values) so that two responses with the same shape
// but different data still fingerprint identically.
func shapeOf(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = shapeOf(val)
		}
		return out
	case []any:
		if len(v) == 0 {
			return []any{}
		}
		return []any{shapeOf(v[0])}
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}

// confidenceScore resolves SPEC_FULL.md's either-weighted confidence open
// question: interactions expected to succeed count at full weight,
// interactions with no expected outcome ("either") count at half weight,
// and interactions expected to fail are excluded entirely (that signal
// belongs to Warns/Notes, not the confidence score). Returns 0 when no
// weighted interactions were observed.
func confidenceScore(interactions []Interaction) float64 {
	var weight, correct float64
	for _, i := range interactions {
		var w float64
		switch i.ExpectedOutcome {
		case "error":
			continue
		case "either":
			w = 0.5
		default:
			w = 1.0
		}
		weight += w
		if i.Outcome.Correct {
			correct += w
		}
	}
	if weight == 0 {
		return 0
	}
	return correct / weight
}

// errorPatterns collects the distinct error messages observed across a
// tool's failed interactions, verbatim. Messages are not normalized, so
// two messages that differ only in an embedded value are two patterns.
func errorPatterns(interactions []Interaction) []string {
	seen := map[string]bool{}
	var out []string
	for _, i := range interactions {
		if i.Err == nil {
			continue
		}
		msg := i.Err.Error()
		if seen[msg] {
			continue
		}
		seen[msg] = true
		out = append(out, msg)
	}
	return out
}
