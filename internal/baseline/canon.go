// Package baseline builds and canonicalizes a deterministic fingerprint
// of an MCP server's tool surface, for later comparison by
// internal/diff (§4.11).
package baseline

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// unorderedSetKeys names the object keys whose array values are treated
// as unordered sets during canonicalization: they are sorted before
// hashing because two schemas differing only in declaration order of
// `required` or `enum` are semantically identical (§4.11).
var unorderedSetKeys = map[string]bool{
	"required": true,
	"enum":     true,
}

// cycleMarker replaces a value reached through a self-referential path,
// so Canonicalize always terminates instead of recursing forever.
const cycleMarker = "<cycle>"

// Canonicalize produces a canonical form of value suitable for stable
// JSON encoding and hashing: object keys are emitted in Unicode
// code-point order (Go's default string ordering already is code-point
// order for UTF-8), unordered-set arrays (required/enum) are sorted,
// integer-valued floats collapse to integers, and strings are
// NFC-normalized. Cycles are detected via a visited-pointer stack and
// replaced with a stable marker rather than recursing forever.
func Canonicalize(value any) any {
	return canonicalize(value, nil)
}

func canonicalize(value any, seen []uintptr) any {
	switch v := value.(type) {
	case map[string]any:
		ptr := mapIdentity(v)
		if ptr != 0 && containsPtr(seen, ptr) {
			return cycleMarker
		}
		nextSeen := seen
		if ptr != 0 {
			nextSeen = append(append([]uintptr{}, seen...), ptr)
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(v))
		for _, k := range keys {
			canonKey := norm.NFC.String(k)
			val := canonicalize(v[k], nextSeen)
			if unorderedSetKeys[k] {
				val = sortUnorderedArray(val)
			}
			out[canonKey] = val
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = canonicalize(item, seen)
		}
		return out
	case string:
		return norm.NFC.String(v)
	case float64:
		return collapseNumber(v)
	case float32:
		return collapseNumber(float64(v))
	default:
		return value
	}
}

// sortUnorderedArray sorts an already-canonicalized []any of scalars by
// their string representation, used for required/enum arrays where
// declaration order carries no semantic weight.
func sortUnorderedArray(value any) any {
	arr, ok := value.([]any)
	if !ok {
		return value
	}
	out := append([]any(nil), arr...)
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}

// collapseNumber returns an int64 when f has no fractional part (so 1
// and 1.0 canonicalize identically), else f itself for shortest
// round-trip float formatting downstream.
func collapseNumber(f float64) any {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return int64(f)
	}
	return f
}

// FormatFloat renders f using the shortest round-trip representation
// (§4.11), for callers building their own canonical JSON encoder rather
// than relying on encoding/json's default float formatting.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// mapIdentity returns a stable-ish identity for a map value so repeated
// encounters of the exact same map (a genuine cycle, since Go maps are
// reference types) can be detected. Two distinct-but-equal maps get
// different identities, which is correct: a cycle requires reaching the
// same underlying map twice, not an equal one.
func mapIdentity(m map[string]any) uintptr {
	if m == nil {
		return 0
	}
	return reflectMapPointer(m)
}
