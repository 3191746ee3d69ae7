package instrumentation

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, want Sum[int64]", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "GET", "/api/messages", 200, time.Second)
	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationList, StatusSuccess, time.Second)
	m.RecordDroppedMessages(ctx, 3)
	m.RecordTokenResolution(ctx, TokenSourceStore, StatusSuccess)
	m.RecordOAuthAuth(ctx, OAuthResultSuccess)
	m.RecordRewrite(ctx, "polish", StatusSuccess, time.Second)
	m.RecordToolInvocation(ctx, "inbox_list_messages", StatusSuccess, time.Second)
}

func TestNewMetrics_Noop(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.RecordDroppedMessages(context.Background(), 1)
}

func TestMetrics_Counters(t *testing.T) {
	m, reader := newManualMetrics(t)
	ctx := context.Background()

	m.RecordDroppedMessages(ctx, 2)
	m.RecordDroppedMessages(ctx, 0)
	m.RecordDroppedMessages(ctx, 1)
	m.RecordTokenResolution(ctx, TokenSourceSession, StatusSuccess)
	m.RecordOAuthAuth(ctx, OAuthResultFailure)
	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGet, StatusError, time.Millisecond)
	m.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)

	tests := []struct {
		name string
		want int64
	}{
		{name: "gmail_dropped_messages_total", want: 3},
		{name: "token_resolutions_total", want: 1},
		{name: "oauth_auth_total", want: 1},
		{name: "google_api_operations_total", want: 1},
		{name: "http_requests_total", want: 1},
		{name: "rewrite_requests_total", want: 0},
	}
	for _, tt := range tests {
		if got := counterTotal(t, reader, tt.name); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}
}
