// Package budget tracks cumulative LLM token usage and derived cost for a
// single interview run, and paces callers as usage approaches a configured
// cap (§4.7).
package budget

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

// Status is a point-in-time snapshot of a Tracker.
type Status struct {
	InputTokens      int64
	OutputTokens     int64
	CostUSD          float64
	HardCapUSD       float64
	SoftFraction     float64
	SoftLimitCrossed bool
}

// Tracker accumulates token usage across every LLM call an interview makes
// and exposes whether a prospective call would exceed a hard USD cap.
//
// A zero HardCapUSD means unbounded: WouldExceed always reports false and
// no soft-limit warning ever fires.
type Tracker struct {
	mu sync.Mutex

	prices map[string]ModelPrice

	hardCapUSD   float64
	softFraction float64

	inputTokens  int64
	outputTokens int64
	costUSD      float64

	warned      bool
	onSoftLimit func(Status)

	pacer *rate.Limiter
}

// Option configures a Tracker at construction time.
type Option func(*Tracker)

// WithPrices overrides the default per-model price table.
func WithPrices(prices map[string]ModelPrice) Option {
	return func(t *Tracker) { t.prices = prices }
}

// WithSoftFraction sets the fraction of HardCapUSD (default 0.8) at which
// the one-shot warning callback fires.
func WithSoftFraction(fraction float64) Option {
	return func(t *Tracker) { t.softFraction = fraction }
}

// WithSoftLimitCallback registers a callback invoked exactly once, the
// first time cumulative cost crosses the soft fraction of the hard cap.
// Exact serialization relative to the crossing recordUsage call is
// best-effort: the callback may observe a status recorded microseconds
// after the crossing under concurrent callers.
func WithSoftLimitCallback(fn func(Status)) Option {
	return func(t *Tracker) { t.onSoftLimit = fn }
}

// NewTracker constructs a Tracker with the given hard USD cap (0 for
// unbounded) and options.
func NewTracker(hardCapUSD float64, opts ...Option) *Tracker {
	t := &Tracker{
		prices:       DefaultPrices,
		hardCapUSD:   hardCapUSD,
		softFraction: 0.8,
		// Pacer throttles callers once the soft limit is crossed so the
		// last fraction of budget is spent gradually instead of in a
		// burst; it is loosened again only by constructing a fresh
		// Tracker, matching the one-shot nature of the hard cap itself.
		pacer: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WouldExceed reports whether recording an additional estInput/estOutput
// tokens (priced at model's rate) would push cumulative cost past the
// hard cap. A zero hard cap never exceeds.
func (t *Tracker) WouldExceed(model string, estInput, estOutput int64) bool {
	if t.hardCapUSD <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	projected := t.costUSD + costOf(t.prices, model, estInput, estOutput)
	return projected > t.hardCapUSD
}

// RecordUsage adds input/output tokens for model to the running totals and
// fires the soft-limit callback the first time the hard cap's soft
// fraction is crossed. Safe for concurrent use.
func (t *Tracker) RecordUsage(model string, inputTokens, outputTokens int64) {
	t.mu.Lock()
	t.inputTokens += inputTokens
	t.outputTokens += outputTokens
	t.costUSD += costOf(t.prices, model, inputTokens, outputTokens)

	crossedSoft := t.hardCapUSD > 0 && !t.warned && t.costUSD >= t.hardCapUSD*t.softFraction
	if crossedSoft {
		t.warned = true
		t.pacer.SetLimit(rate.Every(250 * time.Millisecond))
	}
	status := t.statusLocked()
	cb := t.onSoftLimit
	t.mu.Unlock()

	if crossedSoft && cb != nil {
		cb(status)
	}
}

// Status returns a snapshot of current usage and cost.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

func (t *Tracker) statusLocked() Status {
	return Status{
		InputTokens:      t.inputTokens,
		OutputTokens:     t.outputTokens,
		CostUSD:          t.costUSD,
		HardCapUSD:       t.hardCapUSD,
		SoftFraction:     t.softFraction,
		SoftLimitCrossed: t.warned,
	}
}

// CheckHardCap returns a terminal BUDGET_EXCEEDED error if cumulative cost
// has already passed the hard cap, nil otherwise. Callers invoke this
// before starting a new unit of work (e.g. a persona×tool interview) to
// stop promptly rather than only refusing the next individual call.
func (t *Tracker) CheckHardCap() error {
	t.mu.Lock()
	exceeded := t.hardCapUSD > 0 && t.costUSD > t.hardCapUSD
	cost := t.costUSD
	hardCap := t.hardCapUSD
	t.mu.Unlock()
	if !exceeded {
		return nil
	}
	return bwerrors.New(bwerrors.BudgetExceeded, "budget", "CheckHardCap", nil).
		WithMetadata("costUSD", cost).
		WithMetadata("hardCapUSD", hardCap)
}

// Pace blocks until it is safe to issue another LLM call, pacing callers
// once the soft limit has been crossed. Before that point it returns
// immediately. It respects ctx cancellation.
func (t *Tracker) Pace(ctx context.Context) error {
	return t.pacer.Wait(ctx)
}
