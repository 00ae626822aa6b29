package baseline

import (
	"encoding/json"
	"sort"

	"github.com/dotsetlabs/bellwether/internal/mcptypes"
	"github.com/dotsetlabs/bellwether/internal/scenario"
)

// ServerFingerprint identifies the audited server (§4.11).
type ServerFingerprint struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	ProtocolVersion string   `json:"protocolVersion"`
	Capabilities    []string `json:"capabilities"`
}

// ToolCapability is one tool's fingerprinted shape.
type ToolCapability struct {
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	Schema              json.RawMessage `json:"schema,omitempty"`
	SchemaHash          string          `json:"schemaHash"`
	ResponseFingerprint string          `json:"responseFingerprint,omitempty"`
	OutputSchema        json.RawMessage `json:"outputSchema,omitempty"`
	ErrorPatterns       []string        `json:"errorPatterns,omitempty"`
}

// ToolProfile is a tool's behavior summarized in cloud-assertion form
// (§4.11): what callers can expect, what the tool requires, what it
// warns about, and free-form notes.
//
// Confidence is the either-weighted score resolved for SPEC_FULL.md's
// "either-weighted confidence" open question: interactions expected to
// succeed count at full weight, interactions with no expected outcome
// ("either", e.g. edge cases, scenarios and workflows) count at half
// weight, and interactions expected to fail are excluded from the score
// entirely (they remain visible via Warns/Notes instead). Ranges over
// [0,1]; zero when no weighted interactions were observed.
type ToolProfile struct {
	Tool       string   `json:"tool"`
	Expects    []string `json:"expects,omitempty"`
	Requires   []string `json:"requires,omitempty"`
	Warns      []string `json:"warns,omitempty"`
	Notes      []string `json:"notes,omitempty"`
	Confidence float64  `json:"confidence"`
}

// PromptCapability is one discovered prompt template, as reported by
// prompts/list (§3's Discovery result "prompt list").
type PromptCapability struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Arguments   []string `json:"arguments,omitempty"`
}

// ResourceCapability is one discovered resource, as reported by
// resources/list (§3's Discovery result "resource list").
type ResourceCapability struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// AssertionRecord is one declared scenario's assertion outcomes, carried
// into the baseline's top-level assertions[] (§6's baseline file format).
type AssertionRecord struct {
	Scenario string                     `json:"scenario"`
	Tool     string                     `json:"tool"`
	Passed   bool                       `json:"passed"`
	Checks   []scenario.AssertionResult `json:"checks,omitempty"`
}

// Baseline is the full snapshot produced by Build.
type Baseline struct {
	Fingerprint   ServerFingerprint    `json:"fingerprint"`
	Tools         []ToolCapability     `json:"tools"`
	Prompts       []PromptCapability   `json:"prompts,omitempty"`
	Resources     []ResourceCapability `json:"resources,omitempty"`
	Profiles      []ToolProfile        `json:"profiles"`
	Assertions    []AssertionRecord    `json:"assertions,omitempty"`
	IntegrityHash string               `json:"integrityHash"`
}

// ToolObservation carries what an interview learned about one tool,
// feeding Build's ToolProfile construction.
type ToolObservation struct {
	Tool                string
	ResponseFingerprint string
	OutputSchema        json.RawMessage
	ErrorPatterns       []string
	Expects             []string
	Requires            []string
	Warns               []string
	Notes               []string
	Confidence          float64
}

// BuildInput bundles everything Build needs to assemble a Baseline: a
// server's reported tools/prompts/resources, its initialize handshake,
// per-tool observations gathered during an interview, and any declared
// scenarios' assertion outcomes.
type BuildInput struct {
	ServerInfo      mcptypes.Implementation
	ProtocolVersion string
	Capabilities    []string
	Tools           []mcptypes.Tool
	Prompts         []mcptypes.Prompt
	Resources       []mcptypes.Resource
	Observations    map[string]ToolObservation
	Assertions      []AssertionRecord
}

// Build assembles a Baseline from in. The IntegrityHash is computed
// last, over everything but itself, so it covers the fully assembled
// document.
func Build(in BuildInput) (Baseline, error) {
	sortedCaps := append([]string(nil), in.Capabilities...)
	sort.Strings(sortedCaps)

	b := Baseline{
		Fingerprint: ServerFingerprint{
			Name:            in.ServerInfo.Name,
			Version:         in.ServerInfo.Version,
			ProtocolVersion: in.ProtocolVersion,
			Capabilities:    sortedCaps,
		},
	}

	for _, tool := range in.Tools {
		var schemaAny any
		if len(tool.InputSchema) > 0 {
			if err := json.Unmarshal(tool.InputSchema, &schemaAny); err != nil {
				schemaAny = nil
			}
		}
		schemaHash, err := SchemaHash(schemaAny)
		if err != nil {
			return Baseline{}, err
		}

		obs := in.Observations[tool.Name]
		b.Tools = append(b.Tools, ToolCapability{
			Name:                tool.Name,
			Description:         tool.Description,
			Schema:              tool.InputSchema,
			SchemaHash:          schemaHash,
			ResponseFingerprint: obs.ResponseFingerprint,
			OutputSchema:        obs.OutputSchema,
			ErrorPatterns:       obs.ErrorPatterns,
		})

		if len(obs.Expects)+len(obs.Requires)+len(obs.Warns)+len(obs.Notes) > 0 || obs.Confidence > 0 {
			b.Profiles = append(b.Profiles, ToolProfile{
				Tool:       tool.Name,
				Expects:    obs.Expects,
				Requires:   obs.Requires,
				Warns:      obs.Warns,
				Notes:      obs.Notes,
				Confidence: obs.Confidence,
			})
		}
	}

	for _, p := range in.Prompts {
		args := make([]string, 0, len(p.Arguments))
		for _, a := range p.Arguments {
			args = append(args, a.Name)
		}
		b.Prompts = append(b.Prompts, PromptCapability{Name: p.Name, Description: p.Description, Arguments: args})
	}
	for _, r := range in.Resources {
		b.Resources = append(b.Resources, ResourceCapability{URI: r.URI, Name: r.Name, Description: r.Description, MimeType: r.MimeType})
	}
	b.Assertions = append(b.Assertions, in.Assertions...)

	sort.Slice(b.Tools, func(i, j int) bool { return b.Tools[i].Name < b.Tools[j].Name })
	sort.Slice(b.Profiles, func(i, j int) bool { return b.Profiles[i].Tool < b.Profiles[j].Tool })
	sort.Slice(b.Prompts, func(i, j int) bool { return b.Prompts[i].Name < b.Prompts[j].Name })
	sort.Slice(b.Resources, func(i, j int) bool { return b.Resources[i].URI < b.Resources[j].URI })
	sort.SliceStable(b.Assertions, func(i, j int) bool { return b.Assertions[i].Scenario < b.Assertions[j].Scenario })

	hash, err := integrityHash(b)
	if err != nil {
		return Baseline{}, err
	}
	b.IntegrityHash = hash
	return b, nil
}

// integrityHash hashes everything in b except the (not-yet-set)
// IntegrityHash field itself, by hashing a copy with that field cleared.
func integrityHash(b Baseline) (string, error) {
	b.IntegrityHash = ""
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return "", err
	}
	return ShortHash(generic)
}
