// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the ticktick-mcp server.
//
// # Metrics
//
// HTTP surface:
//   - http_requests_total, http_request_duration_seconds
//   - active_sessions: connected MCP client sessions
//
// TickTick backends:
//   - ticktick_api_operations_total, ticktick_api_call_duration_seconds
//     labelled by service (official, unofficial), operation and status class
//   - unofficial_login_attempts_total by result (success, failure, retry)
//   - oauth_exchanges_total by result
//
// MCP tools:
//   - tool_invocations_total, tool_invocation_duration_seconds
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>) and vendor calls
// (ticktick.<service>.<operation>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: ticktick-mcp)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordAPICall(ctx, instrumentation.ServiceOfficial,
//		instrumentation.OperationList, 200, time.Since(start))
package instrumentation
