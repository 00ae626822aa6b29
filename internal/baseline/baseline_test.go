package baseline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/mcptypes"
)

func TestBuild_IsDeterministicAcrossRuns(t *testing.T) {
	serverInfo := mcptypes.Implementation{Name: "widget-server", Version: "1.0.0"}
	tools := []mcptypes.Tool{
		{Name: "create_widget", Description: "creates a widget", InputSchema: []byte(`{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`)},
	}
	observations := map[string]ToolObservation{
		"create_widget": {Notes: []string{"idempotent"}},
	}

	in := BuildInput{ServerInfo: serverInfo, ProtocolVersion: "2025-06-18", Capabilities: []string{"tools"}, Tools: tools, Observations: observations}
	b1, err := Build(in)
	require.NoError(t, err)
	b2, err := Build(in)
	require.NoError(t, err)

	assert.Equal(t, b1.IntegrityHash, b2.IntegrityHash)
	assert.NotEmpty(t, b1.IntegrityHash)
}

func TestBuild_SortsCapabilitiesAndTools(t *testing.T) {
	serverInfo := mcptypes.Implementation{Name: "s"}
	tools := []mcptypes.Tool{
		{Name: "zeta_tool"},
		{Name: "alpha_tool"},
	}
	b, err := Build(BuildInput{ServerInfo: serverInfo, ProtocolVersion: "v1", Capabilities: []string{"zzz", "aaa"}, Tools: tools})
	require.NoError(t, err)

	assert.Equal(t, []string{"aaa", "zzz"}, b.Fingerprint.Capabilities)
	require.Len(t, b.Tools, 2)
	assert.Equal(t, "alpha_tool", b.Tools[0].Name)
	assert.Equal(t, "zeta_tool", b.Tools[1].Name)
}

func TestBuild_SameSchemaAcrossDifferentToolsYieldsSameSchemaHash(t *testing.T) {
	schema := []byte(`{"type":"object","properties":{"x":{"type":"string"}}}`)
	serverInfo := mcptypes.Implementation{Name: "s"}
	tools := []mcptypes.Tool{
		{Name: "a", InputSchema: schema},
		{Name: "b", InputSchema: schema},
	}
	b, err := Build(BuildInput{ServerInfo: serverInfo, ProtocolVersion: "v1", Tools: tools})
	require.NoError(t, err)
	assert.Equal(t, b.Tools[0].SchemaHash, b.Tools[1].SchemaHash)
}

func TestBuild_OmitsProfileForToolsWithNoObservations(t *testing.T) {
	serverInfo := mcptypes.Implementation{Name: "s"}
	tools := []mcptypes.Tool{{Name: "quiet_tool"}}
	b, err := Build(BuildInput{ServerInfo: serverInfo, ProtocolVersion: "v1", Tools: tools})
	require.NoError(t, err)
	assert.Empty(t, b.Profiles)
}

func TestBuild_IncludesPromptsResourcesAndAssertions(t *testing.T) {
	serverInfo := mcptypes.Implementation{Name: "s"}
	in := BuildInput{
		ServerInfo:      serverInfo,
		ProtocolVersion: "v1",
		Prompts:         []mcptypes.Prompt{{Name: "greeting", Arguments: []mcptypes.PromptArgument{{Name: "name"}}}},
		Resources:       []mcptypes.Resource{{URI: "file:///widgets.csv", Name: "widgets"}},
		Assertions: []AssertionRecord{
			{Scenario: "create then get", Tool: "get_widget", Passed: true},
		},
	}
	b, err := Build(in)
	require.NoError(t, err)

	require.Len(t, b.Prompts, 1)
	assert.Equal(t, "greeting", b.Prompts[0].Name)
	assert.Equal(t, []string{"name"}, b.Prompts[0].Arguments)

	require.Len(t, b.Resources, 1)
	assert.Equal(t, "file:///widgets.csv", b.Resources[0].URI)

	require.Len(t, b.Assertions, 1)
	assert.True(t, b.Assertions[0].Passed)
}

func TestBuild_ToolProfileCarriesConfidence(t *testing.T) {
	serverInfo := mcptypes.Implementation{Name: "s"}
	tools := []mcptypes.Tool{{Name: "create_widget"}}
	observations := map[string]ToolObservation{
		"create_widget": {Confidence: 0.75},
	}
	b, err := Build(BuildInput{ServerInfo: serverInfo, ProtocolVersion: "v1", Tools: tools, Observations: observations})
	require.NoError(t, err)

	require.Len(t, b.Profiles, 1)
	assert.Equal(t, 0.75, b.Profiles[0].Confidence)
}
