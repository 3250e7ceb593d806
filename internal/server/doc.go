// Package server holds the process-wide state of the TickTick MCP server and
// its HTTP surface.
//
// ServerContext owns the resolved configuration, the official Open API client
// and the lazily created unofficial session. The official client is replaced
// when the OAuth callback stores a fresh access token; the unofficial session
// is created once, on the first tool call that needs it.
//
// HTTPServer mounts the MCP transport (SSE or streamable HTTP) next to the
// OAuth routes (/oauth/start, /oauth/callback) and the health endpoints
// (/health, /healthz, /readyz, /status). MetricsServer exposes Prometheus
// metrics on a separate listener.
//
// SessionTracker follows connected MCP clients through mcp-go hooks and
// reports them as the active session gauge.
package server
