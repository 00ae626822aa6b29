package testsupport

import (
	"context"
	"sync"

	"github.com/dotsetlabs/bellwether/internal/llm"
)

// ScriptedProvider is an llm.Provider returning a scripted sequence of
// responses, one per call, clamping at the last entry once exhausted so
// a short script still answers an arbitrarily long run. Every call is
// recorded for later assertions.
type ScriptedProvider struct {
	mu        sync.Mutex
	responses []string
	usage     llm.Usage
	info      llm.Info
	err       error

	calls []Call
}

// Call records one Chat/Complete invocation against a ScriptedProvider.
type Call struct {
	Messages []llm.Message
	Prompt   string
	Options  llm.Options
}

// NewScriptedProvider builds a provider that replies with each of
// responses in turn. Every call reports Usage{InputTokens: 10,
// OutputTokens: 10} unless WithUsage overrides it.
func NewScriptedProvider(responses ...string) *ScriptedProvider {
	return &ScriptedProvider{
		responses: responses,
		usage:     llm.Usage{InputTokens: 10, OutputTokens: 10},
		info:      llm.Info{ID: "testsupport", Name: "scripted", DefaultModel: "scripted-model"},
	}
}

// WithUsage overrides the Usage reported on every call.
func (p *ScriptedProvider) WithUsage(u llm.Usage) *ScriptedProvider {
	p.usage = u
	return p
}

// WithError makes every subsequent call return err instead of a scripted
// response, for exercising an LLM-failure fallback path.
func (p *ScriptedProvider) WithError(err error) *ScriptedProvider {
	p.err = err
	return p
}

func (p *ScriptedProvider) Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, llm.Usage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Messages: messages, Options: opts})
	if p.err != nil {
		return "", llm.Usage{}, p.err
	}
	return p.nextLocked(), p.usage, nil
}

func (p *ScriptedProvider) Complete(ctx context.Context, prompt string, opts llm.Options) (string, llm.Usage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Prompt: prompt, Options: opts})
	if p.err != nil {
		return "", llm.Usage{}, p.err
	}
	return p.nextLocked(), p.usage, nil
}

func (p *ScriptedProvider) Info() llm.Info { return p.info }

// nextLocked returns the next scripted response, clamping at the last
// entry. Caller holds p.mu.
func (p *ScriptedProvider) nextLocked() string {
	idx := len(p.calls) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	if idx < 0 {
		return ""
	}
	return p.responses[idx]
}

// Calls returns every call made so far, in order.
func (p *ScriptedProvider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns how many times Chat/Complete has been invoked.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
