// Package common provides shared helpers for the MCP tool packages:
// argument extraction, the JSON result and error envelopes, and the
// instrumented handler wrapper every tool is registered through.
package common
