// Package transport implements the pluggable, message-framed duplex
// channels described in §4.1: stdio, http, sse, and streamable-http.
// Drivers never interpret JSON-RPC semantics — they only frame bytes on
// the wire and classify connection-level failures.
package transport

import (
	"context"

	"github.com/dotsetlabs/bellwether/internal/jsonrpc"
)

// Driver is the contract every transport implements.
type Driver interface {
	// Connect establishes the underlying channel (spawns a process, opens
	// a socket). It must be safe to call Inbound/Errors immediately after
	// Connect returns.
	Connect(ctx context.Context) error

	// Send writes one outbound message. Sends are serialized by the
	// caller (the MCP client is single-writer per session, per §5); a
	// driver does not need its own internal queueing.
	Send(ctx context.Context, msg jsonrpc.Message) error

	// Close tears down the channel. Safe to call multiple times.
	Close() error

	// Inbound streams decoded messages arriving from the server. Closed
	// when the driver can no longer receive anything further.
	Inbound() <-chan jsonrpc.Message

	// Errors streams transport-level failures (§4.1's category/
	// likelyServerBug taxonomy). Closed alongside Inbound.
	Errors() <-chan *jsonrpc.TransportError
}

// Kind names a transport driver variant, matching config.server.transport.
type Kind string

const (
	KindStdio           Kind = "stdio"
	KindHTTP            Kind = "http"
	KindSSE             Kind = "sse"
	KindStreamableHTTP  Kind = "streamable-http"
)
