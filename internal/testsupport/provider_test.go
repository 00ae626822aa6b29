package testsupport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/llm"
)

func TestScriptedProvider_ReturnsResponsesInOrderThenClamps(t *testing.T) {
	p := NewScriptedProvider("first", "second")
	ctx := context.Background()

	text, _, err := p.Chat(ctx, nil, llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	text, _, err = p.Complete(ctx, "prompt", llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "second", text)

	// A third call clamps at the last scripted response.
	text, _, err = p.Chat(ctx, nil, llm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "second", text)

	assert.Equal(t, 3, p.CallCount())
}

func TestScriptedProvider_RecordsCallArguments(t *testing.T) {
	p := NewScriptedProvider("ok")
	messages := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}

	_, _, err := p.Chat(context.Background(), messages, llm.Options{Model: "test-model"})
	require.NoError(t, err)

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, messages, calls[0].Messages)
	assert.Equal(t, "test-model", calls[0].Options.Model)
}

func TestScriptedProvider_WithErrorShortCircuitsEveryCall(t *testing.T) {
	p := NewScriptedProvider("unused").WithError(errors.New("boom"))

	_, _, err := p.Chat(context.Background(), nil, llm.Options{})
	assert.EqualError(t, err, "boom")
}

func TestScriptedProvider_InfoReportsDefaultModel(t *testing.T) {
	p := NewScriptedProvider("ok")
	assert.Equal(t, "scripted-model", p.Info().DefaultModel)
}
