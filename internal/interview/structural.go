package interview

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dotsetlabs/bellwether/internal/mcptypes"
)

// structuralQuestions synthesizes questions deterministically from a
// tool's JSON Schema, with no LLM involved (§4.10 step 3): one
// representative value per required property, plus boundary cases for
// numeric bounds and maximum string length, plus an omit-everything case
// when the schema has required properties. Every synthesized argument set
// is validated against the schema, but only informationally: a failed
// validation neither drops nor alters the question.
func structuralQuestions(tool mcptypes.Tool, maxQuestions int) ([]Question, error) {
	schema, err := decodeToolSchema(tool.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("decoding schema for %s: %w", tool.Name, err)
	}

	validator, err := compileSchema(tool.Name, schema)
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %s: %w", tool.Name, err)
	}

	var candidates []Question
	candidates = append(candidates, Question{
		Tool: tool.Name, Text: "happy path with representative values for every required property",
		Args: minimalValidArgs(schema), Category: CategoryHappyPath, ExpectedOutcome: "success",
	})

	for _, edge := range boundaryArgSets(schema) {
		candidates = append(candidates, Question{
			Tool: tool.Name, Text: edge.label, Args: edge.args,
			Category: CategoryEdgeCase, ExpectedOutcome: "either",
		})
	}

	if len(requiredProperties(schema)) > 0 {
		candidates = append(candidates, Question{
			Tool: tool.Name, Text: "omits every required property",
			Args: map[string]any{}, Category: CategoryError, ExpectedOutcome: "error",
		})
	}

	var out []Question
	for _, q := range candidates {
		if validator != nil {
			if doc, err := toValidatableDoc(q.Args); err == nil {
				_ = validator.Validate(doc) // purely informational; error-category questions are expected to fail validation
			}
		}
		out = append(out, q)
		if len(out) >= maxQuestions {
			break
		}
	}
	return out, nil
}

type boundaryCase struct {
	label string
	args  map[string]any
}

// boundaryArgSets produces at most one edge-case argument set per
// property, sitting exactly on the first bound it declares in the order
// minimum, maximum, maxLength. minLength and array bounds are not used.
func boundaryArgSets(schema map[string]any) []boundaryCase {
	props := schemaProperties(schema)
	var cases []boundaryCase
	for name, raw := range props {
		prop := asSchemaMap(raw)
		base := minimalValidArgs(schema)
		switch {
		case hasNumberField(prop, "minimum"):
			base[name] = prop["minimum"]
			cases = append(cases, boundaryCase{label: name + " at its minimum bound", args: base})
		case hasNumberField(prop, "maximum"):
			base[name] = prop["maximum"]
			cases = append(cases, boundaryCase{label: name + " at its maximum bound", args: base})
		case hasNumberField(prop, "maxLength"):
			n, _ := prop["maxLength"].(float64)
			base[name] = repeatString("a", int(n))
			cases = append(cases, boundaryCase{label: name + " at its maximum length", args: base})
		}
	}
	return cases
}

func repeatString(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = s[0]
	}
	return string(out)
}

func hasNumberField(prop map[string]any, key string) bool {
	_, ok := prop[key].(float64)
	return ok
}

// minimalValidArgs builds one representative value per required
// property, type-appropriate per JSON Schema's "type" keyword.
func minimalValidArgs(schema map[string]any) map[string]any {
	props := schemaProperties(schema)
	args := map[string]any{}
	for _, name := range requiredProperties(schema) {
		prop := asSchemaMap(props[name])
		args[name] = representativeValue(prop)
	}
	return args
}

func representativeValue(prop map[string]any) any {
	if enum, ok := prop["enum"].([]any); ok && len(enum) > 0 {
		return enum[0]
	}
	switch t, _ := prop["type"].(string); t {
	case "integer":
		return 1
	case "number":
		return 1.0
	case "boolean":
		return false
	case "array":
		return []any{}
	case "object":
		return map[string]any{}
	default:
		return "example"
	}
}

func requiredProperties(schema map[string]any) []string {
	arr, _ := schema["required"].([]any)
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func schemaProperties(schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	if props == nil {
		return map[string]any{}
	}
	return props
}

func asSchemaMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

func decodeToolSchema(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// compileSchema compiles a tool's raw input schema into a validator.
// Returns a nil validator (not an error) when the tool declares no
// schema at all, since there is nothing to validate against.
func compileSchema(toolName string, schema map[string]any) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		return nil, nil
	}
	resource := "tool://" + toolName
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resource, schema); err != nil {
		return nil, err
	}
	return c.Compile(resource)
}

func toValidatableDoc(args map[string]any) (any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
