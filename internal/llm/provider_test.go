package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply string
	usage Usage
	err   error
}

func (f *fakeProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, Usage, error) {
	return f.reply, f.usage, f.err
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string, opts Options) (string, Usage, error) {
	return f.reply, f.usage, f.err
}

func (f *fakeProvider) Info() Info {
	return Info{ID: "fake", Name: "fake", DefaultModel: "fake-model"}
}

func TestWithUsageCallback_ReportsOnChatAndComplete(t *testing.T) {
	var reported []Usage
	var models []string
	cb := func(model string, usage Usage) {
		models = append(models, model)
		reported = append(reported, usage)
	}

	p := WithUsageCallback(&fakeProvider{reply: "hi", usage: Usage{InputTokens: 3, OutputTokens: 5}}, cb)

	text, usage, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
	assert.Equal(t, Usage{InputTokens: 3, OutputTokens: 5}, usage)

	_, _, err = p.Complete(context.Background(), "hello", Options{Model: "explicit-model"})
	require.NoError(t, err)

	require.Len(t, reported, 2)
	assert.Equal(t, "fake-model", models[0], "falls back to provider default model when Options.Model is empty")
	assert.Equal(t, "explicit-model", models[1])
}

func TestWithUsageCallback_NilCallbackIsNoop(t *testing.T) {
	p := &fakeProvider{reply: "hi"}
	wrapped := WithUsageCallback(p, nil)
	assert.Same(t, Provider(p), wrapped, "nil callback should return the provider unwrapped")
}
