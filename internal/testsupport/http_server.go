package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/dotsetlabs/bellwether/internal/jsonrpc"
	"github.com/dotsetlabs/bellwether/internal/mcptypes"
)

// ToolHandlerFunc computes a tool's result for tools/call.
type ToolHandlerFunc func(args map[string]any) (any, error)

// PromptHandlerFunc computes a prompt's messages for prompts/get.
type PromptHandlerFunc func(args map[string]any) ([]mcptypes.PromptMessage, error)

// ResourceHandlerFunc computes a resource's contents for resources/read.
type ResourceHandlerFunc func(uri string) ([]mcptypes.ResourceContent, error)

// HTTPServerConfig configures a HTTPServer.
type HTTPServerConfig struct {
	ServerInfo       mcptypes.Implementation
	ProtocolVersion  string
	Tools            []mcptypes.Tool
	Handlers         map[string]ToolHandlerFunc
	Prompts          []mcptypes.Prompt
	PromptHandlers   map[string]PromptHandlerFunc
	Resources        []mcptypes.Resource
	ResourceHandlers map[string]ResourceHandlerFunc

	// RequireAuth, when true, rejects every request lacking an
	// Authorization header with a 401. FailNextAuth is the separate way
	// to inject a bounded number of 401s, for exercising
	// StreamableHTTPDriver's single-retry behavior.
	RequireAuth bool
}

// HTTPServer is an httptest-backed double speaking the same JSON-RPC
// over-POST protocol internal/transport's HTTP/streamable-http drivers
// expect: initialize issues a session id header, and tools/list,
// tools/call, prompts/list, prompts/get, resources/list, and
// resources/read are dispatched against the configured tools/prompts/
// resources and their handlers.
// Grounded on the Start/Stop/Port/Endpoint lifecycle of
// giantswarm-muster's internal/testing/mock.HTTPServer, reimplemented
// against net/http/httptest instead of mark3labs/mcp-go's server
// package, which is not a dependency of this module.
type HTTPServer struct {
	cfg       HTTPServerConfig
	server    *httptest.Server
	sessionID string

	mu          sync.Mutex
	unauthCount atomic.Int32
	calls       []string
}

// NewHTTPServer builds (but does not start) a test double server.
func NewHTTPServer(cfg HTTPServerConfig) *HTTPServer {
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = "2025-06-18"
	}
	if cfg.ServerInfo.Name == "" {
		cfg.ServerInfo = mcptypes.Implementation{Name: "testsupport-mock", Version: "0.0.0"}
	}
	s := &HTTPServer{cfg: cfg, sessionID: "test-session-1"}
	s.server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// Endpoint is the base URL POSTs should target.
func (s *HTTPServer) Endpoint() string { return s.server.URL }

// Close shuts the server down.
func (s *HTTPServer) Close() { s.server.Close() }

// FailNextAuth makes the next n requests across all methods receive a
// 401, after which requests succeed normally.
func (s *HTTPServer) FailNextAuth(n int32) { s.unauthCount.Store(n) }

// Calls returns every JSON-RPC method invoked so far, in order.
func (s *HTTPServer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *HTTPServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cfg.RequireAuth && r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if n := s.unauthCount.Load(); n > 0 {
		s.unauthCount.Add(-1)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var msg jsonrpc.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, msg.Method)
	s.mu.Unlock()

	result, rpcErr := s.dispatch(msg.Method, msg.Params)

	if msg.ID == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if msg.Method == "initialize" {
		w.Header().Set("Mcp-Session-Id", s.sessionID)
	}
	w.Header().Set("Content-Type", "application/json")

	reply := jsonrpc.Message{JSONRPC: "2.0", ID: msg.ID}
	if rpcErr != nil {
		reply.Error = rpcErr
	} else {
		raw, err := json.Marshal(result)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		reply.Result = raw
	}
	_ = json.NewEncoder(w).Encode(reply)
}

func (s *HTTPServer) dispatch(method string, params json.RawMessage) (any, *jsonrpc.RPCError) {
	switch method {
	case "initialize":
		return mcptypes.InitializeResult{
			ProtocolVersion: s.cfg.ProtocolVersion,
			Capabilities:    mcptypes.ServerCapabilities{Tools: &mcptypes.ToolsCapability{}},
			ServerInfo:      s.cfg.ServerInfo,
		}, nil

	case "tools/list":
		return struct {
			Tools []mcptypes.Tool `json:"tools"`
		}{Tools: s.cfg.Tools}, nil

	case "tools/call":
		var p mcptypes.CallToolParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.RPCError{Code: -32602, Message: "invalid params"}
		}
		handler, ok := s.cfg.Handlers[p.Name]
		if !ok {
			return nil, &jsonrpc.RPCError{Code: -32601, Message: fmt.Sprintf("unknown tool %q", p.Name)}
		}
		value, err := handler(p.Arguments)
		if err != nil {
			return mcptypes.CallToolResult{
				Content: []mcptypes.Content{mcptypes.NewTextContent(err.Error())},
				IsError: true,
			}, nil
		}
		text, err := json.Marshal(value)
		if err != nil {
			return nil, &jsonrpc.RPCError{Code: -32603, Message: "failed to encode result"}
		}
		return mcptypes.CallToolResult{Content: []mcptypes.Content{mcptypes.NewTextContent(string(text))}}, nil

	case "prompts/list":
		return struct {
			Prompts []mcptypes.Prompt `json:"prompts"`
		}{Prompts: s.cfg.Prompts}, nil

	case "prompts/get":
		var p struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.RPCError{Code: -32602, Message: "invalid params"}
		}
		handler, ok := s.cfg.PromptHandlers[p.Name]
		if !ok {
			return nil, &jsonrpc.RPCError{Code: -32601, Message: fmt.Sprintf("unknown prompt %q", p.Name)}
		}
		messages, err := handler(p.Arguments)
		if err != nil {
			return nil, &jsonrpc.RPCError{Code: -32603, Message: err.Error()}
		}
		return mcptypes.GetPromptResult{Messages: messages}, nil

	case "resources/list":
		return struct {
			Resources []mcptypes.Resource `json:"resources"`
		}{Resources: s.cfg.Resources}, nil

	case "resources/read":
		var p struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.RPCError{Code: -32602, Message: "invalid params"}
		}
		handler, ok := s.cfg.ResourceHandlers[p.URI]
		if !ok {
			return nil, &jsonrpc.RPCError{Code: -32601, Message: fmt.Sprintf("unknown resource %q", p.URI)}
		}
		contents, err := handler(p.URI)
		if err != nil {
			return nil, &jsonrpc.RPCError{Code: -32603, Message: err.Error()}
		}
		return mcptypes.ReadResourceResult{Contents: contents}, nil

	default:
		return nil, &jsonrpc.RPCError{Code: -32601, Message: fmt.Sprintf("method not found: %s", method)}
	}
}
