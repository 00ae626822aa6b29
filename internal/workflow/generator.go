package workflow

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/dotsetlabs/bellwether/internal/mcptypes"
)

// verb is a CRUD-style action inferred from a tool's name.
type verb string

const (
	verbCreate verb = "create"
	verbGet    verb = "get"
	verbList   verb = "list"
	verbUpdate verb = "update"
	verbDelete verb = "delete"
)

var verbPrefixes = []struct {
	prefix string
	verb   verb
}{
	{"create_", verbCreate}, {"add_", verbCreate}, {"new_", verbCreate},
	{"get_", verbGet}, {"fetch_", verbGet}, {"describe_", verbGet}, {"show_", verbGet},
	{"list_", verbList}, {"search_", verbList},
	{"update_", verbUpdate}, {"edit_", verbUpdate}, {"set_", verbUpdate},
	{"delete_", verbDelete}, {"remove_", verbDelete}, {"destroy_", verbDelete},
}

// classify splits a tool name into its inferred verb and subject
// ("create_user" -> verbCreate, "user"). A name matching no known prefix
// returns ("", name).
func classify(name string) (verb, string) {
	for _, vp := range verbPrefixes {
		if strings.HasPrefix(name, vp.prefix) {
			return vp.verb, strings.TrimPrefix(name, vp.prefix)
		}
	}
	return "", name
}

// Generate pairs each subject's create tool with its update, get and
// delete tools (matched by name prefix) into two-step workflow
// Definitions, up to maxWorkflows, tagged Discovered=true (§4.9). Tool
// descriptions are not consulted, and list tools are not paired. tools
// should be the server's full tools/list result.
func Generate(tools []mcptypes.Tool, maxWorkflows int) []Definition {
	bySubject := make(map[string]map[verb]mcptypes.Tool)
	var subjectOrder []string
	for _, tool := range tools {
		v, subject := classify(tool.Name)
		if v == "" {
			continue
		}
		if _, ok := bySubject[subject]; !ok {
			bySubject[subject] = map[verb]mcptypes.Tool{}
			subjectOrder = append(subjectOrder, subject)
		}
		bySubject[subject][v] = tool
	}
	sort.Strings(subjectOrder)

	var defs []Definition
	for _, subject := range subjectOrder {
		verbs := bySubject[subject]
		if create, ok := verbs[verbCreate]; ok {
			if update, ok := verbs[verbUpdate]; ok {
				defs = append(defs, createThen(subject, create, update, verbUpdate))
			}
			if get, ok := verbs[verbGet]; ok {
				defs = append(defs, createThen(subject, create, get, verbGet))
			}
			if del, ok := verbs[verbDelete]; ok {
				defs = append(defs, createThen(subject, create, del, verbDelete))
			}
		}
		if len(defs) >= maxWorkflows {
			break
		}
	}
	if len(defs) > maxWorkflows {
		defs = defs[:maxWorkflows]
	}
	return defs
}

// createThen builds a two-step discovered workflow: call create with
// minimal required args, then call follow-up with its id parameter bound
// to create's returned id.
func createThen(subject string, create, follow mcptypes.Tool, followVerb verb) Definition {
	idParam := inferIDParam(subject, follow)
	return Definition{
		Name:        subject + "_create_then_" + string(followVerb),
		Description: "discovered: " + create.Name + " followed by " + follow.Name,
		Discovered:  true,
		Steps: []Step{
			{ID: "create", Tool: create.Name, Args: minimalArgs(create)},
			{
				ID:         string(followVerb),
				Tool:       follow.Name,
				ArgMapping: map[string]string{idParam: "$steps[0].result.id"},
			},
		},
	}
}

// inferIDParam guesses the follow-up tool's id parameter name: prefer
// "<subject>_id" if the tool's schema declares it, else fall back to the
// bare "id".
func inferIDParam(subject string, tool mcptypes.Tool) string {
	qualified := subject + "_id"
	if hasProperty(tool, qualified) {
		return qualified
	}
	return "id"
}

func hasProperty(tool mcptypes.Tool, name string) bool {
	if len(tool.InputSchema) == 0 {
		return false
	}
	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
		return false
	}
	_, ok := schema.Properties[name]
	return ok
}

// minimalArgs produces a placeholder argument set covering every
// required property in tool's input schema, using type-appropriate zero
// values a real interview would overwrite with generated content.
func minimalArgs(tool mcptypes.Tool) map[string]any {
	if len(tool.InputSchema) == 0 {
		return nil
	}
	type property struct {
		Type string `json:"type"`
	}
	var schema struct {
		Required   []string            `json:"required"`
		Properties map[string]property `json:"properties"`
	}
	if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
		return nil
	}
	if len(schema.Required) == 0 {
		return nil
	}
	args := make(map[string]any, len(schema.Required))
	for _, name := range schema.Required {
		prop := schema.Properties[name]
		args[name] = zeroValueFor(prop.Type)
	}
	return args
}

func zeroValueFor(jsonType string) any {
	switch jsonType {
	case "string":
		return "example"
	case "integer", "number":
		return 1
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
