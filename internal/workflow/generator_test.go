package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/mcptypes"
)

func schemaFor(t *testing.T, required []string, properties map[string]string) json.RawMessage {
	t.Helper()
	props := map[string]any{}
	for name, typ := range properties {
		props[name] = map[string]string{"type": typ}
	}
	b, err := json.Marshal(map[string]any{"type": "object", "required": required, "properties": props})
	require.NoError(t, err)
	return b
}

func TestGenerate_PairsCreateAndUpdateBySubject(t *testing.T) {
	tools := []mcptypes.Tool{
		{Name: "create_user", InputSchema: schemaFor(t, []string{"name"}, map[string]string{"name": "string"})},
		{Name: "update_user", InputSchema: schemaFor(t, nil, map[string]string{"user_id": "string"})},
		{Name: "unrelated_tool"},
	}

	defs := Generate(tools, 10)
	require.NotEmpty(t, defs)

	var found bool
	for _, d := range defs {
		if d.Name == "user_create_then_update" {
			found = true
			assert.True(t, d.Discovered)
			require.Len(t, d.Steps, 2)
			assert.Equal(t, "create_user", d.Steps[0].Tool)
			assert.Equal(t, "update_user", d.Steps[1].Tool)
			assert.Equal(t, "$steps[0].result.id", d.Steps[1].ArgMapping["user_id"])
		}
	}
	assert.True(t, found)
}

func TestGenerate_CapsAtMaxWorkflows(t *testing.T) {
	tools := []mcptypes.Tool{
		{Name: "create_a"}, {Name: "update_a"},
		{Name: "create_b"}, {Name: "update_b"},
		{Name: "create_c"}, {Name: "update_c"},
	}
	defs := Generate(tools, 2)
	assert.Len(t, defs, 2)
}

func TestGenerate_SubjectWithNoCreateProducesNothing(t *testing.T) {
	tools := []mcptypes.Tool{
		{Name: "list_widgets"},
		{Name: "get_widgets"},
	}
	defs := Generate(tools, 10)
	assert.Empty(t, defs)
}

func TestClassify_RecognizesEachVerbPrefix(t *testing.T) {
	cases := map[string]verb{
		"create_x": verbCreate,
		"add_x":    verbCreate,
		"get_x":    verbGet,
		"list_x":   verbList,
		"update_x": verbUpdate,
		"delete_x": verbDelete,
		"plain":    "",
	}
	for name, want := range cases {
		v, _ := classify(name)
		assert.Equal(t, want, v, name)
	}
}
