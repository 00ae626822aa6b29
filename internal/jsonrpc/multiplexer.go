package jsonrpc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
	"github.com/dotsetlabs/bellwether/internal/logging"
)

// Sender is the minimal capability the multiplexer needs from a transport
// driver: the ability to write an encoded Message out.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// pending is one in-flight request's bookkeeping. Per §3, exactly one
// outcome reaches done: fulfill, timeout, transport-fail, or cancel.
type pending struct {
	id       *ID
	method   string
	deadline time.Time
	done     chan struct{}
	once     sync.Once
	result   []byte
	rpcErr   *RPCError
	failErr  error
}

// NotificationHandler is invoked for every inbound notification (no id).
type NotificationHandler func(method string, params []byte)

// Multiplexer correlates JSON-RPC requests with responses over a single
// transport connection. It assigns monotonically increasing integer ids,
// keyed a pending table guarded by a short-held lock, and never blocks one
// caller's request on another's (§4.2).
type Multiplexer struct {
	sender Sender

	nextID int64

	mu      sync.Mutex
	waiting map[int64]*pending

	notify NotificationHandler

	closed    atomic.Bool
	closeErr  error
	closeOnce sync.Once
	closeCh   chan struct{}
}

// New creates a Multiplexer that sends through sender. Call Run with the
// transport's inbound/error channels to start dispatching.
func New(sender Sender, notify NotificationHandler) *Multiplexer {
	return &Multiplexer{
		sender:  sender,
		waiting: make(map[int64]*pending),
		notify:  notify,
		closeCh: make(chan struct{}),
	}
}

// Run consumes inbound messages and transport errors until either channel
// closes or ctx is cancelled. It is meant to run in its own goroutine for
// the lifetime of the session.
func (m *Multiplexer) Run(ctx context.Context, inbound <-chan Message, transportErrs <-chan *TransportError) {
	for {
		select {
		case <-ctx.Done():
			m.shutdown(bwerrors.New(bwerrors.Cancelled, "jsonrpc", "Run", ctx.Err()))
			return
		case msg, ok := <-inbound:
			if !ok {
				m.shutdown(fmt.Errorf("transport inbound channel closed"))
				return
			}
			m.dispatch(msg)
		case terr, ok := <-transportErrs:
			if !ok {
				m.shutdown(fmt.Errorf("transport error channel closed"))
				return
			}
			m.handleTransportError(terr)
			if terr.Fatal {
				m.shutdown(terr)
				return
			}
		}
	}
}

func (m *Multiplexer) dispatch(msg Message) {
	switch {
	case msg.IsResponse():
		m.resolve(msg.ID, msg.Result, msg.Error)
	case msg.IsNotification():
		if m.notify != nil {
			m.notify(msg.Method, msg.Params)
		}
	default:
		logging.Warn("JSONRPC", "dropping malformed message (method=%q id=%v)", msg.Method, msg.ID)
	}
}

func (m *Multiplexer) handleTransportError(terr *TransportError) {
	logging.Error("JSONRPC", terr, "transport error category=%s fatal=%v", terr.Category, terr.Fatal)
	if !terr.Fatal {
		return
	}
	m.mu.Lock()
	all := m.waiting
	m.waiting = make(map[int64]*pending)
	m.mu.Unlock()
	for _, p := range all {
		p.fail(terr)
	}
}

func (m *Multiplexer) shutdown(err error) {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.closeErr = err
		close(m.closeCh)
		m.mu.Lock()
		all := m.waiting
		m.waiting = make(map[int64]*pending)
		m.mu.Unlock()
		for _, p := range all {
			p.fail(err)
		}
	})
}

// Request sends method with params and blocks (respecting ctx and timeout)
// until the response arrives, the request times out, a fatal transport
// error occurs, or ctx is cancelled.
func (m *Multiplexer) Request(ctx context.Context, method string, params any, timeout time.Duration) ([]byte, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("multiplexer closed: %w", m.closeErr)
	}

	id := NewIntID(atomic.AddInt64(&m.nextID, 1))
	msg, err := NewRequest(id, method, params)
	if err != nil {
		return nil, bwerrors.New(bwerrors.ProtocolInvalidResponse, "jsonrpc", "Request", err)
	}

	p := &pending{id: id, method: method, done: make(chan struct{})}
	if timeout > 0 {
		p.deadline = time.Now().Add(timeout)
	}

	m.mu.Lock()
	m.waiting[id.Num] = p
	m.mu.Unlock()

	if err := m.sender.Send(ctx, msg); err != nil {
		m.removePending(id.Num)
		return nil, bwerrors.New(bwerrors.TransportUnknown, "jsonrpc", "Request", err)
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-p.done:
		if p.failErr != nil {
			return nil, p.failErr
		}
		if p.rpcErr != nil {
			return nil, bwerrors.New(bwerrors.ProtocolInvalidResponse, "jsonrpc", method, p.rpcErr).
				WithMetadata("rpc_code", p.rpcErr.Code)
		}
		return p.result, nil
	case <-timeoutCh:
		m.removePending(id.Num)
		return nil, bwerrors.New(bwerrors.TransportTimeout, "jsonrpc", method, fmt.Errorf("request timed out after %s", timeout))
	case <-ctx.Done():
		m.removePending(id.Num)
		return nil, bwerrors.New(bwerrors.Cancelled, "jsonrpc", method, ctx.Err())
	case <-m.closeCh:
		return nil, fmt.Errorf("multiplexer closed: %w", m.closeErr)
	}
}

// Notify sends a fire-and-forget notification (no id, no response).
func (m *Multiplexer) Notify(ctx context.Context, method string, params any) error {
	msg, err := NewNotification(method, params)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

// Cancel removes a request from the pending table and discards any later
// response bearing its id.
func (m *Multiplexer) Cancel(id *ID) {
	if id == nil {
		return
	}
	p := m.removePending(id.Num)
	if p != nil {
		p.fail(bwerrors.New(bwerrors.Cancelled, "jsonrpc", p.method, context.Canceled))
	}
}

// PendingCount reports the number of in-flight requests, for tests and
// cancellation-draining diagnostics.
func (m *Multiplexer) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}

func (m *Multiplexer) resolve(id *ID, result []byte, rpcErr *RPCError) {
	if id == nil {
		return
	}
	p := m.removePending(id.Num)
	if p == nil {
		// Response for an id we no longer track (cancelled, or a stray
		// duplicate) — discard per the cancellation invariant in §3.
		return
	}
	p.result = result
	p.rpcErr = rpcErr
	p.once.Do(func() { close(p.done) })
}

func (m *Multiplexer) removePending(id int64) *pending {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.waiting[id]
	if !ok {
		return nil
	}
	delete(m.waiting, id)
	return p
}

func (p *pending) fail(err error) {
	p.failErr = err
	p.once.Do(func() { close(p.done) })
}
