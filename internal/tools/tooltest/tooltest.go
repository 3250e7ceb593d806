// Package tooltest holds helpers for testing MCP tool packages: building a
// server context against fake vendor endpoints and calling registered
// tools the way mcp-go would.
package tooltest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/teemow/ticktick-mcp/internal/config"
	"github.com/teemow/ticktick-mcp/internal/server"
)

// Config returns a configuration with OAuth identity and file token stores
// in a temporary directory. Callers add tokens or credentials as needed.
func Config(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ClientID:         "cid",
		ClientSecret:     "secret",
		RedirectURI:      "http://localhost:8000/oauth/callback",
		Mode:             config.ModeLocal,
		ConfigDir:        dir,
		TokenCachePath:   filepath.Join(dir, config.TokenCacheFile),
		SessionCachePath: filepath.Join(dir, config.SessionCacheFile),
		TokenStoreKind:   config.TokenStoreFile,
	}
}

// ServerContext builds a ServerContext that logs nowhere.
func ServerContext(t *testing.T, cfg *config.Config, opts ...server.ContextOption) *server.ServerContext {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]server.ContextOption{server.WithLogger(logger)}, opts...)
	sc, err := server.NewServerContext(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

// MCPServer returns an empty MCP server with tool support.
func MCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(false))
}

// ToolNames lists the registered tool names.
func ToolNames(s *mcpserver.MCPServer) []string {
	var names []string
	for name := range s.ListTools() {
		names = append(names, name)
	}
	return names
}

// Call invokes a registered tool with args.
func Call(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool, ok := s.ListTools()[name]
	require.True(t, ok, "tool %s is not registered", name)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// Text returns the text content of a result.
func Text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content type %T", result.Content[0])
	return text.Text
}

// Object decodes a result holding a JSON object.
func Object(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(Text(t, result)), &m))
	return m
}

// Array decodes a result holding a JSON array.
func Array(t *testing.T, result *mcp.CallToolResult) []any {
	t.Helper()
	var a []any
	require.NoError(t, json.Unmarshal([]byte(Text(t, result)), &a))
	return a
}

// RequireSuccess fails the test when result is an error result.
func RequireSuccess(t *testing.T, result *mcp.CallToolResult) {
	t.Helper()
	require.False(t, result.IsError, "unexpected error result: %s", Text(t, result))
}

// RequireError asserts an error result and returns its envelope.
func RequireError(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.True(t, result.IsError, "expected an error result, got: %s", Text(t, result))
	return Object(t, result)
}
