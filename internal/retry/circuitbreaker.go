package retry

import (
	"sync"
	"time"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

// State is a circuit breaker's current position in the closed/open/half-
// open state machine (§8 property 9).
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// CircuitBreaker trips to open after FailureThreshold consecutive failures,
// rejecting calls for OpenDuration before allowing a single half-open probe
// through. A successful probe closes the breaker; a failed probe reopens
// it. Safe for concurrent use.
type CircuitBreaker struct {
	Name             string
	FailureThreshold int
	OpenDuration     time.Duration

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    bool
}

// NewCircuitBreaker constructs a closed breaker named name.
func NewCircuitBreaker(name string, failureThreshold int, openDuration time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		Name:             name,
		FailureThreshold: failureThreshold,
		OpenDuration:     openDuration,
		state:            StateClosed,
	}
}

// allow reports whether a call should proceed, transitioning open→half-open
// once OpenDuration has elapsed. Only one half-open probe is admitted at a
// time; concurrent callers are rejected until the probe resolves.
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.openedAt) < cb.OpenDuration {
			return bwerrors.New(bwerrors.CircuitBreakerOpen, "CircuitBreaker", cb.Name, nil).
				WithMetadata("retryAfter", cb.OpenDuration-time.Since(cb.openedAt))
		}
		if cb.halfOpenInFlight {
			return bwerrors.New(bwerrors.CircuitBreakerOpen, "CircuitBreaker", cb.Name, nil)
		}
		cb.state = StateHalfOpen
		cb.halfOpenInFlight = true
		return nil
	case StateHalfOpen:
		return bwerrors.New(bwerrors.CircuitBreakerOpen, "CircuitBreaker", cb.Name, nil)
	default:
		return nil
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.halfOpenInFlight = false
	cb.state = StateClosed
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.halfOpenInFlight = false
	if cb.state == StateHalfOpen {
		cb.state = StateOpen
		cb.openedAt = time.Now()
		return
	}

	cb.consecutiveFailures++
	if cb.consecutiveFailures >= cb.FailureThreshold {
		cb.state = StateOpen
		cb.openedAt = time.Now()
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Call runs op if the breaker admits it, recording the outcome. It returns
// a CIRCUIT_BREAKER_OPEN error without calling op when the breaker is open.
func (cb *CircuitBreaker) Call(op func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := op()
	if err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}
