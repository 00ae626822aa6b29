// Package mcpclient implements the MCP protocol layer on top of the
// JSON-RPC multiplexer: the initialize handshake, version negotiation,
// capability discovery, and tool/prompt/resource calls (§4.3).
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
	"github.com/dotsetlabs/bellwether/internal/jsonrpc"
	"github.com/dotsetlabs/bellwether/internal/logging"
	"github.com/dotsetlabs/bellwether/internal/mcptypes"
	"github.com/dotsetlabs/bellwether/internal/transport"
)

// DefaultInitTimeout bounds the initialize handshake when the caller's
// context carries no deadline of its own.
const DefaultInitTimeout = 15 * time.Second

// DefaultRequestTimeout is the multiplexer-layer timeout (§5's layer (a))
// applied to ordinary requests once a session is established.
const DefaultRequestTimeout = 30 * time.Second

// protocolVersionSetter lets a transport learn the negotiated protocol
// version for its MCP-Protocol-Version header (HTTP family transports).
type protocolVersionSetter interface {
	SetProtocolVersion(string)
}

// Client is the MCP protocol client: a driver plus a multiplexer plus
// negotiated session state.
type Client struct {
	driver transport.Driver
	mux    *jsonrpc.Multiplexer

	clientInfo     mcptypes.Implementation
	requestTimeout time.Duration

	mu      sync.RWMutex
	session Session

	notifications chan Notification
	cancelRun     context.CancelFunc
}

// Notification is a server-initiated JSON-RPC notification delivered
// outside of any request/response pair (e.g. tools/list_changed).
type Notification struct {
	Method string
	Params json.RawMessage
}

// New constructs a Client over driver. ClientInfo identifies Bellwether
// to the server during initialize.
func New(driver transport.Driver, clientInfo mcptypes.Implementation) *Client {
	c := &Client{
		driver:         driver,
		clientInfo:     clientInfo,
		requestTimeout: DefaultRequestTimeout,
		notifications:  make(chan Notification, 32),
	}
	c.mux = jsonrpc.New(driver, c.handleNotification)
	return c
}

// SetRequestTimeout overrides the per-request multiplexer timeout.
func (c *Client) SetRequestTimeout(d time.Duration) { c.requestTimeout = d }

// Notifications returns the channel of server-initiated notifications.
func (c *Client) Notifications() <-chan Notification { return c.notifications }

func (c *Client) handleNotification(method string, params []byte) {
	select {
	case c.notifications <- Notification{Method: method, Params: params}:
	default:
		logging.Warn("MCPClient", "notification channel full, dropping %s", method)
	}
}

// Connect establishes the transport, starts the multiplexer's dispatch
// loop, and performs the initialize handshake. Subsequent discovery calls
// are only valid after Connect returns nil (§4.3).
func (c *Client) Connect(ctx context.Context) error {
	if err := c.driver.Connect(ctx); err != nil {
		return bwerrors.New(bwerrors.TransportConnectionRefused, "MCPClient", "Connect", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancelRun = cancel
	go c.mux.Run(runCtx, c.driver.Inbound(), c.driver.Errors())

	initCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var done context.CancelFunc
		initCtx, done = context.WithTimeout(ctx, DefaultInitTimeout)
		defer done()
	}

	return c.initialize(initCtx)
}

func (c *Client) initialize(ctx context.Context) error {
	params := mcptypes.InitializeParams{
		ProtocolVersion: SupportedProtocolVersions[0],
		Capabilities:    mcptypes.ClientCapabilities{},
		ClientInfo:      c.clientInfo,
	}

	raw, err := c.mux.Request(ctx, "initialize", params, 0)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	var result mcptypes.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return bwerrors.New(bwerrors.ProtocolInvalidResponse, "MCPClient", "initialize", err)
	}

	if setter, ok := c.driver.(protocolVersionSetter); ok {
		setter.SetProtocolVersion(result.ProtocolVersion)
	}

	c.mu.Lock()
	c.session = Session{
		Ready:           true,
		ProtocolVersion: result.ProtocolVersion,
		ServerInfo:      result.ServerInfo,
		Capabilities:    result.Capabilities,
		Features:        deriveFeatureFlags(result.ProtocolVersion),
	}
	c.mu.Unlock()

	logging.Info("MCPClient", "initialized %s v%s (protocol %s)", result.ServerInfo.Name, result.ServerInfo.Version, result.ProtocolVersion)

	return c.mux.Notify(ctx, "notifications/initialized", nil)
}

// Session returns a copy of the negotiated session state.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) requireReady(operation string) error {
	c.mu.RLock()
	ready := c.session.Ready
	c.mu.RUnlock()
	if !ready {
		return bwerrors.New(bwerrors.ProtocolNotInitialized, "MCPClient", operation, fmt.Errorf("client not initialized"))
	}
	return nil
}

func (c *Client) request(ctx context.Context, method string, params any, out any) error {
	raw, err := c.mux.Request(ctx, method, params, c.requestTimeout)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return bwerrors.New(bwerrors.ProtocolInvalidResponse, "MCPClient", method, err)
	}
	return nil
}

// ListTools issues tools/list.
func (c *Client) ListTools(ctx context.Context) ([]mcptypes.Tool, error) {
	if err := c.requireReady("tools/list"); err != nil {
		return nil, err
	}
	var result mcptypes.ListToolsResult
	if err := c.request(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool issues tools/call. A tool-level failure (IsError=true) is
// returned as a non-exceptional result per §4.3; the caller decides.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error) {
	if err := c.requireReady("tools/call"); err != nil {
		return nil, err
	}
	var result mcptypes.CallToolResult
	if err := c.request(ctx, "tools/call", mcptypes.CallToolParams{Name: name, Arguments: args}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListPrompts issues prompts/list.
func (c *Client) ListPrompts(ctx context.Context) ([]mcptypes.Prompt, error) {
	if err := c.requireReady("prompts/list"); err != nil {
		return nil, err
	}
	var result mcptypes.ListPromptsResult
	if err := c.request(ctx, "prompts/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Prompts, nil
}

// GetPrompt issues prompts/get.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]any) (*mcptypes.GetPromptResult, error) {
	if err := c.requireReady("prompts/get"); err != nil {
		return nil, err
	}
	var result mcptypes.GetPromptResult
	params := map[string]any{"name": name, "arguments": args}
	if err := c.request(ctx, "prompts/get", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources issues resources/list.
func (c *Client) ListResources(ctx context.Context) ([]mcptypes.Resource, error) {
	if err := c.requireReady("resources/list"); err != nil {
		return nil, err
	}
	var result mcptypes.ListResourcesResult
	if err := c.request(ctx, "resources/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ReadResource issues resources/read.
func (c *Client) ReadResource(ctx context.Context, uri string) (*mcptypes.ReadResourceResult, error) {
	if err := c.requireReady("resources/read"); err != nil {
		return nil, err
	}
	var result mcptypes.ReadResourceResult
	if err := c.request(ctx, "resources/read", map[string]any{"uri": uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping issues a liveness ping.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.requireReady("ping"); err != nil {
		return err
	}
	return c.request(ctx, "ping", nil, nil)
}

// Close tears down the multiplexer's dispatch loop and the transport.
func (c *Client) Close() error {
	if c.cancelRun != nil {
		c.cancelRun()
	}
	return c.driver.Close()
}
