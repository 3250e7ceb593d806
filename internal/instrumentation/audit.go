package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/ticktick-mcp/internal/logging"
)

// ToolInvocation captures one MCP tool call for the audit trail.
//
// Username is the configured TickTick account (an email address) and is PII:
// LogAttrs only emits its hash and domain, LogAuditAttrs emits it in clear.
type ToolInvocation struct {
	Tool      string
	Username  string
	Service   string // official or unofficial
	Operation string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a ToolInvocation with timing started.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{Tool: tool, StartTime: time.Now()}
}

// WithUser sets the TickTick username.
func (ti *ToolInvocation) WithUser(username string) *ToolInvocation {
	ti.Username = username
	return ti
}

// WithService sets the backend and operation.
func (ti *ToolInvocation) WithService(service, operation string) *ToolInvocation {
	ti.Service = service
	ti.Operation = operation
	return ti
}

// WithSpanContext copies trace identifiers from the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete marks the invocation as finished.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns "success" or "error".
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

func (ti *ToolInvocation) commonAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Service != "" {
		attrs = append(attrs, slog.String("service", ti.Service))
	}
	if ti.Operation != "" {
		attrs = append(attrs, slog.String("operation", ti.Operation))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// LogAttrs returns attributes with the username anonymized.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := ti.commonAttrs()
	if ti.Username != "" {
		attrs = append(attrs,
			logging.UserHash(ti.Username),
			slog.String("user_domain", ExtractUserDomain(ti.Username)),
		)
	}
	return attrs
}

// LogAuditAttrs returns attributes including the clear-text username.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := ti.commonAttrs()
	if ti.Username != "" {
		attrs = append(attrs, slog.String("user", ti.Username))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger from configuration. A nil logger
// means slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs a finished invocation at INFO on success, WARN on
// failure.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs()
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
