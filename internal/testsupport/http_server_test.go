package testsupport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotsetlabs/bellwether/internal/mcpclient"
	"github.com/dotsetlabs/bellwether/internal/mcptypes"
	"github.com/dotsetlabs/bellwether/internal/transport"
)

func TestHTTPServer_ServesInitializeToolsListAndToolsCall(t *testing.T) {
	srv := NewHTTPServer(HTTPServerConfig{
		ServerInfo: mcptypes.Implementation{Name: "fixture-server", Version: "1.2.3"},
		Tools: []mcptypes.Tool{
			{Name: "create_widget", InputSchema: []byte(`{"type":"object"}`)},
		},
		Handlers: map[string]ToolHandlerFunc{
			"create_widget": func(args map[string]any) (any, error) {
				return map[string]any{"id": "widget-1"}, nil
			},
		},
	})
	defer srv.Close()

	driver := transport.NewHTTPDriver(srv.Endpoint(), nil, 0)
	client := mcpclient.New(driver, mcptypes.Implementation{Name: "bellwether-test", Version: "0.0.0"})

	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))

	tools, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "create_widget", tools[0].Name)

	result, err := client.CallTool(ctx, "create_widget", map[string]any{"name": "gadget"})
	require.NoError(t, err)
	assert.Contains(t, result.TextOrEmpty(), "widget-1")

	assert.Equal(t, []string{"initialize", "notifications/initialized", "tools/list", "tools/call"}, srv.Calls())
}

func TestHTTPServer_ServesPromptsAndResources(t *testing.T) {
	srv := NewHTTPServer(HTTPServerConfig{
		Prompts: []mcptypes.Prompt{
			{Name: "greeting", Arguments: []mcptypes.PromptArgument{{Name: "name"}}},
		},
		PromptHandlers: map[string]PromptHandlerFunc{
			"greeting": func(args map[string]any) ([]mcptypes.PromptMessage, error) {
				return []mcptypes.PromptMessage{{Role: "user", Content: mcptypes.NewTextContent("hi " + args["name"].(string))}}, nil
			},
		},
		Resources: []mcptypes.Resource{
			{URI: "file:///widgets.csv", Name: "widgets"},
		},
		ResourceHandlers: map[string]ResourceHandlerFunc{
			"file:///widgets.csv": func(uri string) ([]mcptypes.ResourceContent, error) {
				return []mcptypes.ResourceContent{{URI: uri, Text: "id,name\n1,gadget"}}, nil
			},
		},
	})
	defer srv.Close()

	driver := transport.NewHTTPDriver(srv.Endpoint(), nil, 0)
	client := mcpclient.New(driver, mcptypes.Implementation{Name: "bellwether-test", Version: "0.0.0"})

	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))

	prompts, err := client.ListPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, "greeting", prompts[0].Name)

	got, err := client.GetPrompt(ctx, "greeting", map[string]any{"name": "gadget"})
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)

	resources, err := client.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "file:///widgets.csv", resources[0].URI)

	contents, err := client.ReadResource(ctx, "file:///widgets.csv")
	require.NoError(t, err)
	require.Len(t, contents.Contents, 1)
	assert.Contains(t, contents.Contents[0].Text, "gadget")

	_, err = client.GetPrompt(ctx, "missing", nil)
	assert.Error(t, err)

	_, err = client.ReadResource(ctx, "file:///missing.csv")
	assert.Error(t, err)
}

func TestHTTPServer_UnknownToolReturnsRPCError(t *testing.T) {
	srv := NewHTTPServer(HTTPServerConfig{Handlers: map[string]ToolHandlerFunc{}})
	defer srv.Close()

	driver := transport.NewHTTPDriver(srv.Endpoint(), nil, 0)
	client := mcpclient.New(driver, mcptypes.Implementation{Name: "bellwether-test", Version: "0.0.0"})

	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))

	_, err := client.CallTool(ctx, "missing_tool", nil)
	assert.Error(t, err)
}

func TestHTTPServer_FailNextAuthTriggersRetryOnStreamableHTTP(t *testing.T) {
	srv := NewHTTPServer(HTTPServerConfig{
		Tools: []mcptypes.Tool{{Name: "create_widget"}},
		Handlers: map[string]ToolHandlerFunc{
			"create_widget": func(args map[string]any) (any, error) { return map[string]any{"ok": true}, nil },
		},
	})
	defer srv.Close()

	driver := transport.NewStreamableHTTPDriver(srv.Endpoint(), srv.Endpoint(), nil, 0)
	driver.SetPreflightEnabled(false)
	client := mcpclient.New(driver, mcptypes.Implementation{Name: "bellwether-test", Version: "0.0.0"})

	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))

	srv.FailNextAuth(1)
	result, err := client.CallTool(ctx, "create_widget", nil)
	require.NoError(t, err, "a single auth failure must be retried transparently")
	assert.Contains(t, result.TextOrEmpty(), "true")
}
