package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dotsetlabs/bellwether/internal/jsonrpc"
	"github.com/dotsetlabs/bellwether/internal/logging"
)

// HTTPDriver implements the "http" transport of §4.1: every outbound
// message is a POST; a text/event-stream response is decoded as a series
// of SSE data frames, each a JSON-RPC message.
type HTTPDriver struct {
	baseURL string
	client  *http.Client

	protocolVersion atomic.Value // string
	sessionID       atomic.Value // string
	sessionEverSet  atomic.Bool

	readTimeout time.Duration

	inbound chan jsonrpc.Message
	errs    chan *jsonrpc.TransportError

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewHTTPDriver builds an HTTP transport posting to baseURL.
func NewHTTPDriver(baseURL string, client *http.Client, readTimeout time.Duration) *HTTPDriver {
	if client == nil {
		client = &http.Client{}
	}
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	d := &HTTPDriver{
		baseURL:     baseURL,
		client:      client,
		readTimeout: readTimeout,
		inbound:     make(chan jsonrpc.Message, 64),
		errs:        make(chan *jsonrpc.TransportError, 4),
	}
	d.protocolVersion.Store("")
	d.sessionID.Store("")
	return d
}

// SetProtocolVersion updates the MCP-Protocol-Version header sent on
// subsequent requests, once negotiated during initialize.
func (d *HTTPDriver) SetProtocolVersion(v string) { d.protocolVersion.Store(v) }

func (d *HTTPDriver) Connect(ctx context.Context) error { return nil }

func (d *HTTPDriver) Send(ctx context.Context, msg jsonrpc.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.readTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, d.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if pv, _ := d.protocolVersion.Load().(string); pv != "" {
		req.Header.Set("MCP-Protocol-Version", pv)
	}
	if sid, _ := d.sessionID.Load().(string); sid != "" {
		req.Header.Set("Mcp-Session-Id", sid)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.sendErr(&jsonrpc.TransportError{
			Category: jsonrpc.CategoryConnectionRefused,
			Message:  "http request failed",
			Cause:    err,
		})
		return err
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		d.sessionID.Store(sid)
		d.sessionEverSet.Store(true)
	}

	if resp.StatusCode == http.StatusNotFound && d.sessionEverSet.Load() {
		d.sessionID.Store("")
		d.sendErr(&jsonrpc.TransportError{
			Category: jsonrpc.CategoryProtocolViolation,
			Message:  "404 after session established; session invalidated",
		})
		return fmt.Errorf("session invalidated by server 404")
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		d.sendErr(&jsonrpc.TransportError{
			Category: jsonrpc.CategoryAuthFailed,
			Message:  fmt.Sprintf("authentication failed (status %d)", resp.StatusCode),
			Fatal:    true,
		})
		return &authFailureError{status: resp.StatusCode}
	}

	if resp.StatusCode >= 500 {
		d.sendErr(&jsonrpc.TransportError{
			Category: jsonrpc.CategoryUnknown,
			Message:  fmt.Sprintf("server error (status %d)", resp.StatusCode),
		})
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "text/event-stream"):
		return d.decodeSSEBody(resp.Body)
	case strings.Contains(ct, "application/json"):
		return d.decodeJSONBody(resp.Body)
	default:
		// Some servers omit Content-Type on empty (notification) acks.
		if resp.StatusCode == http.StatusAccepted || resp.ContentLength == 0 {
			return nil
		}
		return d.decodeJSONBody(resp.Body)
	}
}

func (d *HTTPDriver) decodeJSONBody(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var m jsonrpc.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		d.sendErr(&jsonrpc.TransportError{
			Category:        jsonrpc.CategoryProtocolViolation,
			LikelyServerBug: true,
			Message:         "malformed JSON body",
			Cause:           err,
		})
		return err
	}
	d.pushInbound(m)
	return nil
}

// decodeSSEBody parses "data: <json>" frames from a bounded SSE response
// body, one per outbound POST's reply stream.
func (d *HTTPDriver) decodeSSEBody(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	var dataLines []string
	flush := func() error {
		if len(dataLines) == 0 {
			return nil
		}
		payload := strings.Join(dataLines, "\n")
		dataLines = dataLines[:0]
		var m jsonrpc.Message
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			d.sendErr(&jsonrpc.TransportError{
				Category:        jsonrpc.CategoryProtocolViolation,
				LikelyServerBug: true,
				Message:         "malformed SSE JSON frame",
				Cause:           err,
			})
			return err
		}
		d.pushInbound(m)
		return nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// ignore event:/id:/retry: fields — framing only
		}
	}
	return flush()
}

func (d *HTTPDriver) pushInbound(m jsonrpc.Message) {
	if d.closed.Load() {
		return
	}
	select {
	case d.inbound <- m:
	default:
		logging.Warn("Transport", "http: inbound buffer full, dropping message")
	}
}

func (d *HTTPDriver) sendErr(e *jsonrpc.TransportError) {
	select {
	case d.errs <- e:
	default:
		logging.Warn("Transport", "http: error channel full, dropping %v", e)
	}
}

func (d *HTTPDriver) Close() error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.inbound)
		close(d.errs)
	})
	return nil
}

func (d *HTTPDriver) Inbound() <-chan jsonrpc.Message        { return d.inbound }
func (d *HTTPDriver) Errors() <-chan *jsonrpc.TransportError { return d.errs }

// authFailureError tags a 401/403 so StreamableHTTPDriver can single-retry it.
type authFailureError struct{ status int }

func (e *authFailureError) Error() string     { return fmt.Sprintf("authentication failed: status %d", e.status) }
func (e *authFailureError) IsAuthFailure() bool { return true }
