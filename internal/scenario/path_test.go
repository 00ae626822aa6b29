package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_SimpleKey(t *testing.T) {
	data := map[string]any{"id": "123"}
	v, found := Resolve(data, "id")
	assert.True(t, found)
	assert.Equal(t, "123", v)
}

func TestResolve_NestedPathAndArrayIndex(t *testing.T) {
	data := map[string]any{
		"result": map[string]any{
			"items": []any{
				map[string]any{"name": "first"},
				map[string]any{"name": "second"},
			},
		},
	}
	v, found := Resolve(data, "result.items.1.name")
	assert.True(t, found)
	assert.Equal(t, "second", v)
}

func TestResolve_MissingKeyYieldsNotFound(t *testing.T) {
	data := map[string]any{"id": "123"}
	v, found := Resolve(data, "nope")
	assert.False(t, found)
	assert.Nil(t, v)
}

func TestResolve_EmptyPathYieldsNotFound(t *testing.T) {
	data := map[string]any{"id": "123"}
	_, found := Resolve(data, "")
	assert.False(t, found)
}

func TestResolve_ExplicitNullIsFoundWithNilValue(t *testing.T) {
	data := map[string]any{"maybe": nil}
	v, found := Resolve(data, "maybe")
	assert.True(t, found)
	assert.Nil(t, v)
}

func TestResolve_OutOfRangeIndexYieldsNotFound(t *testing.T) {
	data := map[string]any{"items": []any{"a", "b"}}
	_, found := Resolve(data, "items.5")
	assert.False(t, found)
}

func TestResolve_IndexingIntoScalarYieldsNotFound(t *testing.T) {
	data := map[string]any{"id": "123"}
	_, found := Resolve(data, "id.nested")
	assert.False(t, found)
}

func TestResolve_DeeplyNestedSelfReferenceDoesNotHang(t *testing.T) {
	inner := map[string]any{}
	outer := map[string]any{"self": inner}
	inner["self"] = outer // a cycle, though unreachable via a finite dotted path

	longPath := ""
	for i := 0; i < maxPathDepth+10; i++ {
		if i > 0 {
			longPath += "."
		}
		longPath += "self"
	}
	_, found := Resolve(outer, longPath)
	assert.False(t, found)
}
