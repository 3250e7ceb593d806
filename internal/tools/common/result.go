package common

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/unofficial"
)

// JSONResult renders v as indented JSON text.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult(errors.Wrap(err, "encode result")), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ErrorEnvelope is the structured failure payload of every tool.
type ErrorEnvelope struct {
	Error      string `json:"error"`
	StatusCode *int   `json:"status_code,omitempty"`
}

// statusCodeOf finds the vendor HTTP status of either backend. Transport
// failures report no status code.
func statusCodeOf(err error) (int, bool) {
	if code, ok := ticktick.StatusCodeOf(err); ok && code != 0 {
		return code, true
	}
	if code, ok := unofficial.StatusCodeOf(err); ok && code != 0 {
		return code, true
	}
	return 0, false
}

// ErrorResult converts err into the error envelope, flagged as an MCP
// error result.
func ErrorResult(err error) *mcp.CallToolResult {
	env := ErrorEnvelope{Error: err.Error()}
	if code, ok := statusCodeOf(err); ok {
		env.StatusCode = &code
	}
	return errorResult(env)
}

// ErrorMessage returns the envelope for a plain message.
func ErrorMessage(format string, args ...any) *mcp.CallToolResult {
	return errorResult(ErrorEnvelope{Error: fmt.Sprintf(format, args...)})
}

// ErrorFields returns an envelope carrying extra context next to the
// error message.
func ErrorFields(message string, fields map[string]any) *mcp.CallToolResult {
	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["error"] = message
	data, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultError(string(data))
}

func errorResult(env ErrorEnvelope) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(env, "", "  ")
	return mcp.NewToolResultError(string(data))
}
