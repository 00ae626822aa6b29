package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/dotsetlabs/bellwether/internal/jsonrpc"
	"github.com/dotsetlabs/bellwether/internal/logging"
)

// StreamableHTTPDriver implements the "streamable-http" transport of
// §4.1. It behaves like SSEDriver (POST for outbound, long-lived GET for
// server-initiated messages) but resolves the open question in
// SPEC_FULL.md §C: a 401/403 on an outbound POST is retried exactly once
// (no Authorization mutation — credential injection belongs to an
// external collaborator per §6) before being surfaced as terminal.
type StreamableHTTPDriver struct {
	*SSEDriver
}

// NewStreamableHTTPDriver builds a streamable-http transport.
func NewStreamableHTTPDriver(postURL, streamURL string, client *http.Client, readTimeout time.Duration) *StreamableHTTPDriver {
	return &StreamableHTTPDriver{SSEDriver: NewSSEDriver(postURL, streamURL, client, readTimeout)}
}

func (d *StreamableHTTPDriver) Send(ctx context.Context, msg jsonrpc.Message) error {
	err := d.SSEDriver.Send(ctx, msg)
	if err == nil {
		return nil
	}
	if !isAuthFailure(err) {
		return err
	}
	logging.Warn("Transport", "streamable-http: retrying once after auth failure for method=%s", msg.Method)
	return d.SSEDriver.Send(ctx, msg)
}

func isAuthFailure(err error) bool {
	type authTagged interface{ IsAuthFailure() bool }
	if at, ok := err.(authTagged); ok {
		return at.IsAuthFailure()
	}
	return false
}
