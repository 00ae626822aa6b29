package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

// DefaultLocalEndpoint is the conventional address of a local OpenAI-
// compatible inference server (Ollama, LM Studio, llama.cpp's server mode).
const DefaultLocalEndpoint = "http://localhost:11434/v1"

// LocalProvider wraps HTTPChatProvider for a locally hosted, unauthenticated
// model endpoint (§4.4, §2: "a local model endpoint" alongside the hosted
// chat-completion drivers). The wire format is identical; what differs is
// the absence of an API key and the need to fail fast when nothing is
// listening, rather than waiting out the full HTTP client timeout.
type LocalProvider struct {
	*HTTPChatProvider
	baseURL string
}

// NewLocalProvider constructs a provider against a local inference server.
// Info() reports the fixed id "local"; defaultModel names the model the
// server should already have loaded.
func NewLocalProvider(baseURL, defaultModel string) *LocalProvider {
	if baseURL == "" {
		baseURL = DefaultLocalEndpoint
	}
	return &LocalProvider{
		HTTPChatProvider: NewHTTPChatProvider("local", "local model endpoint", baseURL, "", defaultModel),
		baseURL:          baseURL,
	}
}

// Ping performs a lightweight reachability check against the server's model
// listing endpoint, so a caller can fail fast with a clear diagnosis
// instead of letting the first Chat call time out.
func (p *LocalProvider) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return bwerrors.New(bwerrors.LLMConnection, "LocalProvider", "Ping", err)
	}
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return bwerrors.New(bwerrors.LLMConnection, "LocalProvider", "Ping", err).
			WithMetadata("endpoint", p.baseURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return bwerrors.New(bwerrors.LLMConnection, "LocalProvider", "Ping", fmt.Errorf("HTTP %d", resp.StatusCode)).
			WithMetadata("endpoint", p.baseURL)
	}
	return nil
}
