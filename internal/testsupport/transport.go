package testsupport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dotsetlabs/bellwether/internal/jsonrpc"
)

// Responder computes the reply to one JSON-RPC request. A nil result
// and nil error produce no reply at all (useful for simulating a
// notification-only exchange or a dropped request).
type Responder func(method string, params json.RawMessage) (result any, rpcErr *jsonrpc.RPCError)

// InMemoryDriver implements transport.Driver entirely in-process:
// Send dispatches the outbound message to a scripted Responder and
// pushes the synthesized reply straight onto the inbound channel, with
// no network or subprocess involved. Grounded on the round-trip shape
// internal/transport.HTTPDriver.Send implements, minus the wire framing.
type InMemoryDriver struct {
	mu        sync.Mutex
	responder Responder
	calls     []jsonrpc.Message
	connected bool
	closed    bool

	inbound chan jsonrpc.Message
	errs    chan *jsonrpc.TransportError
}

// NewInMemoryDriver builds a driver that answers every request via
// responder.
func NewInMemoryDriver(responder Responder) *InMemoryDriver {
	return &InMemoryDriver{
		responder: responder,
		inbound:   make(chan jsonrpc.Message, 64),
		errs:      make(chan *jsonrpc.TransportError, 4),
	}
}

func (d *InMemoryDriver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = true
	return nil
}

func (d *InMemoryDriver) Send(ctx context.Context, msg jsonrpc.Message) error {
	d.mu.Lock()
	d.calls = append(d.calls, msg)
	d.mu.Unlock()

	if msg.ID == nil {
		// Notifications never receive a reply.
		return nil
	}

	result, rpcErr := d.responder(msg.Method, msg.Params)
	if result == nil && rpcErr == nil {
		return nil
	}
	reply := jsonrpc.Message{JSONRPC: "2.0", ID: msg.ID}
	if rpcErr != nil {
		reply.Error = rpcErr
	} else {
		raw, err := json.Marshal(result)
		if err != nil {
			return err
		}
		reply.Result = raw
	}
	d.pushInbound(reply)
	return nil
}

// PushNotification delivers a server-initiated message outside of any
// request/response pair, simulating e.g. tools/list_changed.
func (d *InMemoryDriver) PushNotification(method string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	d.pushInbound(jsonrpc.Message{JSONRPC: "2.0", Method: method, Params: raw})
	return nil
}

// PushTransportError delivers a synthetic transport-level failure.
func (d *InMemoryDriver) PushTransportError(e *jsonrpc.TransportError) {
	select {
	case d.errs <- e:
	default:
	}
}

func (d *InMemoryDriver) pushInbound(m jsonrpc.Message) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return
	}
	select {
	case d.inbound <- m:
	default:
	}
}

func (d *InMemoryDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	close(d.inbound)
	close(d.errs)
	return nil
}

func (d *InMemoryDriver) Inbound() <-chan jsonrpc.Message        { return d.inbound }
func (d *InMemoryDriver) Errors() <-chan *jsonrpc.TransportError { return d.errs }

// Calls returns every outbound message Send has seen, in order.
func (d *InMemoryDriver) Calls() []jsonrpc.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]jsonrpc.Message, len(d.calls))
	copy(out, d.calls)
	return out
}
