// Package llm implements the uniform LLM provider contract of §4.4: chat,
// completion, optional streaming, tolerant JSON parsing, and a closed
// error taxonomy that hides provider-specific vocabulary from callers.
package llm

import "context"

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a chat conversation.
type Message struct {
	Role    Role
	Content string
}

// ResponseFormat constrains how a provider should shape its output.
type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

// Options carries the per-call knobs §4.4 requires every provider to
// accept uniformly.
type Options struct {
	Model          string
	MaxTokens      int
	Temperature    float64
	ResponseFormat ResponseFormat
	SystemPrompt   string
}

// Usage reports token consumption for a single call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// UsageCallback is invoked after every call (success or failure-with-
// partial-usage) so a budget tracker can record consumption centrally.
type UsageCallback func(model string, usage Usage)

// Info describes a provider's static capabilities.
type Info struct {
	ID                 string
	Name               string
	SupportsJSON       bool
	SupportsStreaming  bool
	DefaultModel       string
}

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	Delta string
	Done  bool
}

// Provider is the uniform surface every LLM backend implements. Providers
// translate their native error shapes into the closed taxonomy in
// internal/bwerrors and must never leak provider-specific vocabulary past
// this interface (§4.4).
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts Options) (string, Usage, error)
	Complete(ctx context.Context, prompt string, opts Options) (string, Usage, error)
	Info() Info
}

// StreamingProvider is implemented by providers that support §4.4's
// optional stream contract. Callers should type-assert for it rather than
// requiring it on every Provider.
type StreamingProvider interface {
	Provider
	Stream(ctx context.Context, messages []Message, opts Options) (<-chan StreamChunk, <-chan error, error)
}

// WithUsageCallback wraps a Provider so every call additionally reports
// its usage through cb, decoupling token accounting from the provider
// implementation (shared with the fallback client and budget tracker).
func WithUsageCallback(p Provider, cb UsageCallback) Provider {
	if cb == nil {
		return p
	}
	return &usageReportingProvider{Provider: p, cb: cb}
}

type usageReportingProvider struct {
	Provider
	cb UsageCallback
}

func (p *usageReportingProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, Usage, error) {
	text, usage, err := p.Provider.Chat(ctx, messages, opts)
	p.report(opts, usage)
	return text, usage, err
}

func (p *usageReportingProvider) Complete(ctx context.Context, prompt string, opts Options) (string, Usage, error) {
	text, usage, err := p.Provider.Complete(ctx, prompt, opts)
	p.report(opts, usage)
	return text, usage, err
}

func (p *usageReportingProvider) report(opts Options, usage Usage) {
	model := opts.Model
	if model == "" {
		model = p.Provider.Info().DefaultModel
	}
	p.cb(model, usage)
}
