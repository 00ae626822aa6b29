package diff

import (
	"encoding/json"
	"fmt"
	"sort"
)

// minStyleConstraints and maxStyleConstraints are the bound-style constraints §4.12 gives
// explicit tightening rules for: increasing a minimum-style bound or
// decreasing a maximum-style bound tightens; the opposite relaxes.
var minStyleConstraints = map[string]bool{"minimum": true, "minLength": true, "minItems": true}
var maxStyleConstraints = map[string]bool{"maximum": true, "maxLength": true, "maxItems": true}

// compareSchemas produces the per-parameter SchemaChanges between two
// tool input schemas. Both are expected to be JSON Schema documents
// (the teacher's and every pack example's schema shape: an object with
// "properties"/"required"/"type").
func compareSchemas(before, after json.RawMessage) ([]SchemaChange, error) {
	beforeMap, err := decodeSchema(before)
	if err != nil {
		return nil, fmt.Errorf("decoding before schema: %w", err)
	}
	afterMap, err := decodeSchema(after)
	if err != nil {
		return nil, fmt.Errorf("decoding after schema: %w", err)
	}

	beforeProps := properties(beforeMap)
	afterProps := properties(afterMap)
	beforeReq := stringSet(beforeMap["required"])
	afterReq := stringSet(afterMap["required"])

	var changes []SchemaChange

	names := unionKeys(beforeProps, afterProps)
	for _, name := range names {
		bp, inBefore := beforeProps[name]
		ap, inAfter := afterProps[name]
		path := name

		switch {
		case !inBefore && inAfter:
			changes = append(changes, SchemaChange{
				Path: path, Kind: ChangeParameterAdded, Breaking: false,
				After:       ap,
				Description: fmt.Sprintf("parameter %q added", name),
			})
			continue
		case inBefore && !inAfter:
			changes = append(changes, SchemaChange{
				Path: path, Kind: ChangeParameterRemoved, Breaking: true,
				Before:      bp,
				Description: fmt.Sprintf("parameter %q removed", name),
			})
			continue
		}

		changes = append(changes, compareProperty(path, asMap(bp), asMap(ap))...)
	}

	for name := range afterReq {
		if !beforeReq[name] {
			changes = append(changes, SchemaChange{
				Path: name, Kind: ChangeRequiredAdded, Breaking: true,
				Description: fmt.Sprintf("parameter %q became required", name),
			})
		}
	}
	for name := range beforeReq {
		if !afterReq[name] {
			changes = append(changes, SchemaChange{
				Path: name, Kind: ChangeRequiredRemoved, Breaking: false,
				Description: fmt.Sprintf("parameter %q is no longer required", name),
			})
		}
	}

	sortChanges(changes)
	return changes, nil
}

func compareProperty(path string, before, after map[string]any) []SchemaChange {
	var changes []SchemaChange

	if bt, at := stringField(before, "type"), stringField(after, "type"); bt != "" && at != "" && bt != at {
		changes = append(changes, SchemaChange{
			Path: path, Kind: ChangeTypeChanged, Breaking: true,
			Before: bt, After: at,
			Description: fmt.Sprintf("%s: type changed from %q to %q", path, bt, at),
		})
	}

	changes = append(changes, compareEnum(path, before, after)...)
	changes = append(changes, compareConstraints(path, before, after)...)

	if bd, ad := stringField(before, "description"), stringField(after, "description"); bd != ad {
		changes = append(changes, SchemaChange{
			Path: path, Kind: ChangeDescriptionChanged, Breaking: false,
			Before: bd, After: ad,
			Description: fmt.Sprintf("%s: description changed", path),
		})
	}
	if bv, av := before["default"], after["default"]; !valueEqual(bv, av) {
		changes = append(changes, SchemaChange{
			Path: path, Kind: ChangeDefaultChanged, Breaking: false,
			Before: bv, After: av,
			Description: fmt.Sprintf("%s: default value changed", path),
		})
	}
	if bf, af := stringField(before, "format"), stringField(after, "format"); bf != af {
		changes = append(changes, SchemaChange{
			Path: path, Kind: ChangeFormatChanged, Breaking: false,
			Before: bf, After: af,
			Description: fmt.Sprintf("%s: format changed from %q to %q", path, bf, af),
		})
	}

	return changes
}

func compareEnum(path string, before, after map[string]any) []SchemaChange {
	beforeSet := stringSet(before["enum"])
	afterSet := stringSet(after["enum"])
	var changes []SchemaChange
	for v := range afterSet {
		if !beforeSet[v] {
			changes = append(changes, SchemaChange{
				Path: path, Kind: ChangeEnumValueAdded, Breaking: false,
				After:       v,
				Description: fmt.Sprintf("%s: enum value %q added", path, v),
			})
		}
	}
	for v := range beforeSet {
		if !afterSet[v] {
			changes = append(changes, SchemaChange{
				Path: path, Kind: ChangeEnumValueRemoved, Breaking: true,
				Before:      v,
				Description: fmt.Sprintf("%s: enum value %q removed", path, v),
			})
		}
	}
	return changes
}

func compareConstraints(path string, before, after map[string]any) []SchemaChange {
	var changes []SchemaChange
	keys := []string{"minimum", "maximum", "minLength", "maxLength", "minItems", "maxItems", "pattern"}
	for _, key := range keys {
		bv, bok := before[key]
		av, aok := after[key]

		switch {
		case !bok && aok:
			changes = append(changes, SchemaChange{
				Path: path, Kind: ChangeConstraintAdded, Breaking: true,
				After:       av,
				Description: fmt.Sprintf("%s: constraint %q added", path, key),
			})
		case bok && !aok:
			changes = append(changes, SchemaChange{
				Path: path, Kind: ChangeConstraintRemoved, Breaking: false,
				Before:      bv,
				Description: fmt.Sprintf("%s: constraint %q removed", path, key),
			})
		case bok && aok && !valueEqual(bv, av):
			if key == "pattern" {
				changes = append(changes, SchemaChange{
					Path: path, Kind: ChangeConstraintTightened, Breaking: true,
					Before: bv, After: av,
					Description: fmt.Sprintf("%s: pattern changed (treated as tightening)", path),
				})
				continue
			}
			tightened := constraintDirectionTightens(key, bv, av)
			kind, breaking := ChangeConstraintRelaxed, false
			if tightened {
				kind, breaking = ChangeConstraintTightened, true
			}
			changes = append(changes, SchemaChange{
				Path: path, Kind: kind, Breaking: breaking,
				Before: bv, After: av,
				Description: fmt.Sprintf("%s: %s changed from %v to %v", path, key, bv, av),
			})
		}
	}
	return changes
}

// constraintDirectionTightens applies §4.12's rule: for min-style bounds
// an increase tightens; for max-style bounds a decrease tightens.
func constraintDirectionTightens(key string, before, after any) bool {
	bf, bok := asFloat(before)
	af, aok := asFloat(after)
	if !bok || !aok {
		return false
	}
	if minStyleConstraints[key] {
		return af > bf
	}
	if maxStyleConstraints[key] {
		return af < bf
	}
	return false
}

func decodeSchema(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func properties(schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	if props == nil {
		return map[string]any{}
	}
	return props
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringSet(v any) map[string]bool {
	out := map[string]bool{}
	arr, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range arr {
		out[fmt.Sprint(item)] = true
	}
	return out
}

func unionKeys(a, b map[string]any) []string {
	seen := map[string]bool{}
	var out []string
	for k := range a {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func valueEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func sortChanges(changes []SchemaChange) {
	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].Path != changes[j].Path {
			return changes[i].Path < changes[j].Path
		}
		return changes[i].Kind < changes[j].Kind
	})
}
