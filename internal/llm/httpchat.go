package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

// sharedHTTPClient is reused by every HTTPChatProvider instance. A single
// shared Transport reuses connections across interview runs instead of
// paying a new TLS handshake per call; DisableCompression keeps the SSE
// stream free of gzip framing surprises.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		TLSHandshakeTimeout:   30 * time.Second,
		ResponseHeaderTimeout: 2 * time.Minute,
		IdleConnTimeout:       90 * time.Second,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   8,
	},
}

// CloseIdleConnections drops all idle connections from the shared HTTP
// transport. Callers retrying after a stream error should call this first
// so the retry gets a fresh connection rather than a stale pooled one.
func CloseIdleConnections() {
	sharedHTTPClient.CloseIdleConnections()
}

// HTTPChatProvider implements Provider against any OpenAI-compatible
// chat-completions endpoint (§4.4's "concrete drivers for chat-completion
// APIs"). Authentication, base URL, and default model are all caller-
// supplied so the same implementation serves every hosted vendor that
// speaks the /chat/completions wire format.
type HTTPChatProvider struct {
	id           string
	name         string
	baseURL      string
	apiKey       string
	defaultModel string
	client       *http.Client
	extraHeaders map[string]string
}

// NewHTTPChatProvider constructs a provider against baseURL (e.g.
// "https://api.openai.com/v1"). apiKey is sent as a Bearer token; pass ""
// for endpoints that don't require one.
func NewHTTPChatProvider(id, name, baseURL, apiKey, defaultModel string) *HTTPChatProvider {
	return &HTTPChatProvider{
		id:           id,
		name:         name,
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		defaultModel: defaultModel,
		client:       sharedHTTPClient,
		extraHeaders: map[string]string{},
	}
}

// WithHeader attaches an additional static header (e.g. an organization ID)
// to every request and returns the receiver for chaining.
func (p *HTTPChatProvider) WithHeader(key, value string) *HTTPChatProvider {
	p.extraHeaders[key] = value
	return p
}

// Info reports this provider's static capabilities.
func (p *HTTPChatProvider) Info() Info {
	return Info{
		ID:                p.id,
		Name:              p.name,
		SupportsJSON:      true,
		SupportsStreaming: true,
		DefaultModel:      p.defaultModel,
	}
}

// Chat sends a multi-turn conversation and returns the assistant's reply.
func (p *HTTPChatProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, Usage, error) {
	req := p.buildRequest(messages, opts, false)
	return p.do(ctx, req)
}

// Complete sends a single-turn prompt, optionally prefixed with a system
// prompt from opts.
func (p *HTTPChatProvider) Complete(ctx context.Context, prompt string, opts Options) (string, Usage, error) {
	msgs := []Message{{Role: RoleUser, Content: prompt}}
	req := p.buildRequest(msgs, opts, false)
	return p.do(ctx, req)
}

// Stream sends a chat request with server-sent-event streaming and yields
// incremental deltas on the returned channel; the channel is closed and a
// final StreamChunk{Done:true} is sent when the server signals completion.
func (p *HTTPChatProvider) Stream(ctx context.Context, messages []Message, opts Options) (<-chan StreamChunk, <-chan error, error) {
	req := p.buildRequest(messages, opts, true)

	resp, err := p.send(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if err := p.checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, nil, err
	}

	chunks := make(chan StreamChunk, 16)
	errs := make(chan error, 1)

	go func() {
		defer resp.Body.Close()
		defer close(chunks)

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				chunks <- StreamChunk{Done: true}
				return
			}
			if payload == "" {
				continue
			}
			var frame chatCompletionChunk
			if err := json.Unmarshal([]byte(payload), &frame); err != nil {
				continue
			}
			if len(frame.Choices) == 0 {
				continue
			}
			delta := frame.Choices[0].Delta.Content
			if delta != "" {
				chunks <- StreamChunk{Delta: delta}
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- bwerrors.New(bwerrors.LLMConnection, "HTTPChatProvider", "Stream", err)
		}
	}()

	return chunks, errs, nil
}

func (p *HTTPChatProvider) model(opts Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return p.defaultModel
}

func (p *HTTPChatProvider) buildRequest(messages []Message, opts Options, stream bool) chatCompletionRequest {
	wireMsgs := make([]chatMessage, 0, len(messages)+1)
	if opts.SystemPrompt != "" {
		wireMsgs = append(wireMsgs, chatMessage{Role: string(RoleSystem), Content: opts.SystemPrompt})
	}
	for _, m := range messages {
		wireMsgs = append(wireMsgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	req := chatCompletionRequest{
		Model:       p.model(opts),
		Messages:    wireMsgs,
		Stream:      stream,
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.ResponseFormat == FormatJSON {
		req.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}
	return req
}

func (p *HTTPChatProvider) send(ctx context.Context, req chatCompletionRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, bwerrors.New(bwerrors.LLMParse, "HTTPChatProvider", "send", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, bwerrors.New(bwerrors.LLMConnection, "HTTPChatProvider", "send", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.extraHeaders {
		httpReq.Header.Set(k, v)
	}
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, bwerrors.New(bwerrors.LLMConnection, "HTTPChatProvider", "send", err)
	}
	return resp, nil
}

func (p *HTTPChatProvider) do(ctx context.Context, req chatCompletionRequest) (string, Usage, error) {
	resp, err := p.send(ctx, req)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	if err := p.checkStatus(resp); err != nil {
		return "", Usage{}, err
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", Usage{}, bwerrors.New(bwerrors.LLMParse, "HTTPChatProvider", "do", err)
	}
	if len(parsed.Choices) == 0 {
		return "", Usage{}, bwerrors.New(bwerrors.LLMParse, "HTTPChatProvider", "do", fmt.Errorf("no choices in response"))
	}

	usage := Usage{
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}
	return parsed.Choices[0].Message.Content, usage, nil
}

// checkStatus translates a non-2xx response into the closed bwerrors
// taxonomy, hiding this provider's wire-level vocabulary from callers.
func (p *HTTPChatProvider) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(resp.Body)
	var errResp chatErrorResponse
	_ = json.Unmarshal(raw, &errResp)

	cause := fmt.Errorf("%s: HTTP %d: %s", p.name, resp.StatusCode, errResp.Error.Message)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return bwerrors.New(bwerrors.LLMAuth, "HTTPChatProvider", "checkStatus", cause)
	case http.StatusTooManyRequests:
		be := bwerrors.New(bwerrors.LLMRateLimit, "HTTPChatProvider", "checkStatus", cause)
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			be = be.WithRetryAfter(d)
		}
		return be
	case http.StatusPaymentRequired:
		return bwerrors.New(bwerrors.LLMQuota, "HTTPChatProvider", "checkStatus", cause)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return bwerrors.New(bwerrors.LLMConnection, "HTTPChatProvider", "checkStatus", cause)
	default:
		if resp.StatusCode >= 500 {
			return bwerrors.New(bwerrors.LLMConnection, "HTTPChatProvider", "checkStatus", cause)
		}
		return bwerrors.New(bwerrors.LLMRefusal, "HTTPChatProvider", "checkStatus", cause)
	}
}

func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if when, err := http.ParseTime(header); err == nil {
		return time.Until(when), true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	Stream         bool                `json:"stream"`
	Temperature    float64             `json:"temperature,omitempty"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
