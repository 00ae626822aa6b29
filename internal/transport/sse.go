package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dotsetlabs/bellwether/internal/jsonrpc"
	"github.com/dotsetlabs/bellwether/internal/logging"
)

// SSEDriver implements the "sse" transport of §4.1: outbound messages use
// POST (delegated to an embedded HTTPDriver), while a long-lived GET
// delivers server-initiated messages. An optional preflight GET runs
// before the long-lived stream and treats 401/403 as a terminal
// authentication failure surfaced immediately, per §4.1 and the resolved
// open question in SPEC_FULL.md §C.
type SSEDriver struct {
	*HTTPDriver
	streamURL        string
	preflightEnabled bool
}

// NewSSEDriver builds an SSE transport. postURL receives outbound
// messages; streamURL is the long-lived GET endpoint for server-initiated
// messages. Preflight defaults to enabled per §4.1.
func NewSSEDriver(postURL, streamURL string, client *http.Client, readTimeout time.Duration) *SSEDriver {
	return &SSEDriver{
		HTTPDriver:       NewHTTPDriver(postURL, client, readTimeout),
		streamURL:        streamURL,
		preflightEnabled: true,
	}
}

// SetPreflightEnabled toggles the optional preflight GET.
func (d *SSEDriver) SetPreflightEnabled(enabled bool) { d.preflightEnabled = enabled }

func (d *SSEDriver) Connect(ctx context.Context) error {
	if d.preflightEnabled {
		if err := d.preflight(ctx); err != nil {
			return err
		}
	}
	go d.streamLoop()
	return nil
}

func (d *SSEDriver) preflight(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.streamURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := d.client.Do(req)
	if err != nil {
		d.sendErr(&jsonrpc.TransportError{Category: jsonrpc.CategoryConnectionRefused, Message: "preflight failed", Cause: err, Fatal: true})
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		err := fmt.Errorf("preflight authentication failed: status %d", resp.StatusCode)
		d.sendErr(&jsonrpc.TransportError{Category: jsonrpc.CategoryAuthFailed, Message: err.Error(), Fatal: true})
		return err
	}
	return nil
}

func (d *SSEDriver) streamLoop() {
	req, err := http.NewRequest(http.MethodGet, d.streamURL, nil)
	if err != nil {
		d.sendErr(&jsonrpc.TransportError{Category: jsonrpc.CategoryUnknown, Message: "build stream request", Cause: err, Fatal: true})
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	if sid, _ := d.sessionID.Load().(string); sid != "" {
		req.Header.Set("Mcp-Session-Id", sid)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.sendErr(&jsonrpc.TransportError{Category: jsonrpc.CategoryConnectionRefused, Message: "stream connection failed", Cause: err, Fatal: true})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		d.sendErr(&jsonrpc.TransportError{Category: jsonrpc.CategoryAuthFailed, Message: fmt.Sprintf("stream auth failed: status %d", resp.StatusCode), Fatal: true})
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	var dataLines []string
	flush := func() {
		if len(dataLines) == 0 {
			return
		}
		payload := strings.Join(dataLines, "\n")
		dataLines = dataLines[:0]
		var m jsonrpc.Message
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			d.sendErr(&jsonrpc.TransportError{Category: jsonrpc.CategoryProtocolViolation, LikelyServerBug: true, Message: "malformed SSE frame on stream", Cause: err})
			return
		}
		d.pushInbound(m)
	}
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	flush()

	logging.Debug("Transport", "sse: long-lived stream closed")
	d.sendErr(&jsonrpc.TransportError{Category: jsonrpc.CategoryServerExit, Message: "sse stream closed", Fatal: true})
}
