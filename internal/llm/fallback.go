package llm

import (
	"context"
	"sync"
	"time"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

// ProviderHealth is a point-in-time snapshot of one provider's standing
// within a FallbackClient.
type ProviderHealth struct {
	Healthy             bool
	ConsecutiveFailures int
	LastError           error
	LastChecked         time.Time
}

// unhealthyProbeDelay is how long a provider stays skipped after being
// marked unhealthy before FallbackClient allows one probe call through to
// it again.
const unhealthyProbeDelay = 30 * time.Second

// FallbackClient wraps an ordered list of providers and fails over between
// them (§4.6). Failover triggers only on failover-worthy errors — auth,
// quota, connection, rate-limit, and the 5xx-mapped LLM_CONNECTION code;
// any other error propagates immediately without trying the next
// provider, since it reflects something wrong with the request itself
// rather than the provider being unavailable.
type FallbackClient struct {
	mu        sync.Mutex
	providers []Provider
	health    []*ProviderHealth

	onUsage UsageCallback
}

// NewFallbackClient constructs a FallbackClient trying providers in the
// given order. At least one provider is required.
func NewFallbackClient(providers []Provider) *FallbackClient {
	health := make([]*ProviderHealth, len(providers))
	for i := range health {
		health[i] = &ProviderHealth{Healthy: true}
	}
	return &FallbackClient{providers: providers, health: health}
}

// WithUsageCallback registers a callback fanned in from every wrapped
// provider's usage, regardless of which one ultimately served a call.
func (c *FallbackClient) WithUsageCallback(cb UsageCallback) *FallbackClient {
	c.onUsage = cb
	return c
}

// Health returns a snapshot of every provider's current health state, in
// provider order.
func (c *FallbackClient) Health() []ProviderHealth {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ProviderHealth, len(c.health))
	for i, h := range c.health {
		out[i] = *h
	}
	return out
}

// Info reports the first provider's Info, since FallbackClient presents a
// single uniform identity to callers; the concrete provider actually
// serving a given call may differ based on health.
func (c *FallbackClient) Info() Info {
	if len(c.providers) == 0 {
		return Info{}
	}
	return c.providers[0].Info()
}

// Chat tries providers in order, failing over on failover-worthy errors.
func (c *FallbackClient) Chat(ctx context.Context, messages []Message, opts Options) (string, Usage, error) {
	return attempt(c, func(p Provider) (string, Usage, error) {
		return p.Chat(ctx, messages, opts)
	})
}

// Complete tries providers in order, failing over on failover-worthy errors.
func (c *FallbackClient) Complete(ctx context.Context, prompt string, opts Options) (string, Usage, error) {
	return attempt(c, func(p Provider) (string, Usage, error) {
		return p.Complete(ctx, prompt, opts)
	})
}

func attempt(c *FallbackClient, call func(Provider) (string, Usage, error)) (string, Usage, error) {
	var lastErr error
	for i, p := range c.providers {
		if !c.admits(i) {
			continue
		}
		text, usage, err := call(p)
		c.reportUsage(p, usage)
		if err == nil {
			c.recordSuccess(i)
			return text, usage, nil
		}
		if !isFailoverWorthy(err) {
			return text, usage, err
		}
		c.recordFailure(i, err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = bwerrors.New(bwerrors.LLMConnection, "llm", "FallbackClient", nil).
			WithMetadata("reason", "no healthy providers configured")
	}
	return "", Usage{}, lastErr
}

func (c *FallbackClient) reportUsage(p Provider, usage Usage) {
	if c.onUsage == nil {
		return
	}
	c.onUsage(p.Info().DefaultModel, usage)
}

// admits reports whether provider i should be tried: healthy providers
// always are; unhealthy ones are skipped unless unhealthyProbeDelay has
// elapsed since the last failure, in which case exactly one probe is let
// through.
func (c *FallbackClient) admits(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.health[i]
	if h.Healthy {
		return true
	}
	if time.Since(h.LastChecked) >= unhealthyProbeDelay {
		// Restart the delay so concurrent callers skip this provider
		// while the probe is in flight.
		h.LastChecked = time.Now()
		return true
	}
	return false
}

func (c *FallbackClient) recordSuccess(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.health[i]
	h.Healthy = true
	h.ConsecutiveFailures = 0
	h.LastError = nil
	h.LastChecked = time.Now()
}

func (c *FallbackClient) recordFailure(i int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.health[i]
	h.ConsecutiveFailures++
	h.LastError = err
	h.LastChecked = time.Now()
	h.Healthy = false
}

// isFailoverWorthy reports whether err should cause FallbackClient to try
// the next provider rather than propagate immediately.
func isFailoverWorthy(err error) bool {
	switch bwerrors.CodeOf(err) {
	case bwerrors.LLMAuth, bwerrors.LLMQuota, bwerrors.LLMConnection, bwerrors.LLMRateLimit:
		return true
	default:
		return false
	}
}
