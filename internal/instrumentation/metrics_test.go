package instrumentation

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != name {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, want Sum[int64]", name, md.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestMetrics_RecordAPICall(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordAPICall(ctx, ServiceOfficial, OperationList, 200, 120*time.Millisecond)
	m.RecordAPICall(ctx, ServiceUnofficial, OperationUpdate, 500, 80*time.Millisecond)
	m.RecordAPICall(ctx, ServiceUnofficial, OperationGet, 0, time.Second)

	if got := collectSum(t, reader, "ticktick_api_operations_total"); got != 3 {
		t.Errorf("ticktick_api_operations_total = %d, want 3", got)
	}
}

func TestMetrics_RecordLoginAndOAuth(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordLoginAttempt(ctx, ResultRetry)
	m.RecordLoginAttempt(ctx, ResultSuccess)
	m.RecordOAuthExchange(ctx, ResultFailure)

	if got := collectSum(t, reader, "unofficial_login_attempts_total"); got != 2 {
		t.Errorf("unofficial_login_attempts_total = %d, want 2", got)
	}
	if got := collectSum(t, reader, "oauth_exchanges_total"); got != 1 {
		t.Errorf("oauth_exchanges_total = %d, want 1", got)
	}
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	m, reader := newTestMetrics(t, true)
	ctx := context.Background()

	m.RecordToolInvocation(ctx, "ticktick_list_projects", StatusSuccess, "jane@example.com", 10*time.Millisecond)
	m.RecordToolInvocation(ctx, "unofficial_pin_task", StatusError, "", 10*time.Millisecond)

	if got := collectSum(t, reader, "tool_invocations_total"); got != 2 {
		t.Errorf("tool_invocations_total = %d, want 2", got)
	}
}

func TestMetrics_HTTPAndSessions(t *testing.T) {
	m, reader := newTestMetrics(t, false)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "GET", "/health", 200, time.Millisecond)
	m.IncrementActiveSessions(ctx)
	m.IncrementActiveSessions(ctx)
	m.DecrementActiveSessions(ctx)

	if got := collectSum(t, reader, "http_requests_total"); got != 1 {
		t.Errorf("http_requests_total = %d, want 1", got)
	}
	if got := collectSum(t, reader, "active_sessions"); got != 1 {
		t.Errorf("active_sessions = %d, want 1", got)
	}
}

func TestMetrics_ZeroValueIsNoop(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	nilMetrics.RecordAPICall(ctx, ServiceOfficial, OperationGet, 200, time.Millisecond)
	nilMetrics.RecordToolInvocation(ctx, "tool", StatusSuccess, "", time.Millisecond)

	m := &Metrics{}
	m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
	m.RecordLoginAttempt(ctx, ResultSuccess)
	m.RecordOAuthExchange(ctx, ResultSuccess)
	m.IncrementActiveSessions(ctx)
	m.DecrementActiveSessions(ctx)
}
