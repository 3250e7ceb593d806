// Package resources provides MCP resources exposing account state.
// Resources are read-only data sources that MCP clients can fetch without a
// tool call: the authentication status of both TickTick APIs and the
// project list of the authenticated user.
package resources
