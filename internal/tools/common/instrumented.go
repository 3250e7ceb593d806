package common

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. A panic in the handler is turned into an error result so a
// single tool can never take the server down.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", instrumentation.ServiceOfficial, sc, handler))
func InstrumentedToolHandler(
	toolName string,
	service string,
	sc *server.ServerContext,
	handler mcpserver.ToolHandlerFunc,
) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithService(service, toolName).
			WithUser(sc.Config().Username)

		defer func() {
			if r := recover(); r != nil {
				sc.Logger().Error("tool panicked",
					logging.Tool(toolName),
					slog.String("panic", fmt.Sprint(r)))
				result, err = ErrorMessage("internal error in %s: %v", toolName, r), nil
			}

			failed := err != nil || (result != nil && result.IsError)
			status := instrumentation.StatusSuccess
			if failed {
				status = instrumentation.StatusError
				if err != nil {
					instrumentation.SetSpanError(span, err)
				} else {
					instrumentation.SetSpanError(span, fmt.Errorf("%s returned an error result", toolName))
				}
			} else {
				instrumentation.SetSpanSuccess(span)
			}
			invocation.Complete(!failed, err)

			sc.Metrics().RecordToolInvocation(ctx, toolName, status, sc.Config().Username, time.Since(start))
			sc.AuditLogger().LogToolInvocation(invocation)
		}()

		return handler(ctx, request)
	}
}

// Registrar adds tools of one backend to an MCP server. Write tools are
// skipped in read-only mode.
type Registrar struct {
	s        *mcpserver.MCPServer
	sc       *server.ServerContext
	service  string
	readOnly bool
}

// NewRegistrar creates a Registrar for tools backed by service.
func NewRegistrar(s *mcpserver.MCPServer, sc *server.ServerContext, service string, readOnly bool) *Registrar {
	return &Registrar{s: s, sc: sc, service: service, readOnly: readOnly}
}

// Read registers a tool that never changes data.
func (r *Registrar) Read(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
	r.s.AddTool(tool, InstrumentedToolHandler(tool.Name, r.service, r.sc, handler))
}

// Write registers a tool that changes data, unless read-only mode is on.
func (r *Registrar) Write(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
	if r.readOnly {
		return
	}
	r.Read(tool, handler)
}
