package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod      = "method"
	attrPath        = "path"
	attrStatus      = "status"
	attrStatusClass = "status_class"
	attrOperation   = "operation"
	attrService     = "service"
	attrResult      = "result"
	attrTool        = "tool"
	attrUser        = "user_domain"
)

// durationBuckets covers vendor round trips up to the 30s request ceiling.
var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}

// Metrics records the server's observability metrics. A zero Metrics is a
// valid no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	apiCallsTotal   metric.Int64Counter
	apiCallDuration metric.Float64Histogram

	loginAttemptsTotal  metric.Int64Counter
	oauthExchangesTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates all instruments on the given meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error

	if m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	if m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	if m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of connected MCP client sessions"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	if m.apiCallsTotal, err = meter.Int64Counter(
		"ticktick_api_operations_total",
		metric.WithDescription("Total number of TickTick API calls"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create ticktick_api_operations_total counter: %w", err)
	}

	if m.apiCallDuration, err = meter.Float64Histogram(
		"ticktick_api_call_duration_seconds",
		metric.WithDescription("TickTick API call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create ticktick_api_call_duration_seconds histogram: %w", err)
	}

	if m.loginAttemptsTotal, err = meter.Int64Counter(
		"unofficial_login_attempts_total",
		metric.WithDescription("Total number of unofficial API login attempts"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create unofficial_login_attempts_total counter: %w", err)
	}

	if m.oauthExchangesTotal, err = meter.Int64Counter(
		"oauth_exchanges_total",
		metric.WithDescription("Total number of OAuth authorization code exchanges"),
		metric.WithUnit("{exchange}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create oauth_exchanges_total counter: %w", err)
	}

	if m.toolInvocationsTotal, err = meter.Int64Counter(
		"tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tool_invocations_total counter: %w", err)
	}

	if m.toolDuration, err = meter.Float64Histogram(
		"tool_invocation_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create tool_invocation_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an inbound HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)

	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAPICall records one round trip to a TickTick backend.
//
// Parameters:
//   - service: ServiceOfficial or ServiceUnofficial
//   - operation: one of the Operation* constants
//   - statusCode: HTTP status, 0 for transport failures
//   - duration: time taken for the call
func (m *Metrics) RecordAPICall(ctx context.Context, service, operation string, statusCode int, duration time.Duration) {
	if m == nil || m.apiCallsTotal == nil {
		return
	}

	status := StatusSuccess
	if statusCode == 0 || statusCode >= 400 {
		status = StatusError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
		attribute.String(attrStatusClass, StatusClass(statusCode)),
	)

	m.apiCallsTotal.Add(ctx, 1, attrs)
	m.apiCallDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLoginAttempt records an unofficial API login attempt.
// Result should be one of ResultSuccess, ResultFailure, ResultRetry.
func (m *Metrics) RecordLoginAttempt(ctx context.Context, result string) {
	if m == nil || m.loginAttemptsTotal == nil {
		return
	}
	m.loginAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthExchange records an OAuth authorization code exchange.
func (m *Metrics) RecordOAuthExchange(ctx context.Context, result string) {
	if m == nil || m.oauthExchangesTotal == nil {
		return
	}
	m.oauthExchangesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation. The username is only
// attached (as its domain) when detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, username string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && username != "" {
		attrs = append(attrs, attribute.String(attrUser, ExtractUserDomain(username)))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActiveSessions increments the connected session gauge.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the connected session gauge.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}
