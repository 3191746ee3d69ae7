// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for inboxassist.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: requests by method, route and status
//   - http_request_duration_seconds: request latency
//
// Gmail:
//   - google_api_operations_total: Gmail API calls by service, operation and status
//   - google_api_operation_duration_seconds: Gmail API latency
//   - gmail_dropped_messages_total: listing entries dropped because their detail fetch failed
//
// Authentication:
//   - token_resolutions_total: resolved tokens by fallback source and status
//   - oauth_auth_total: interactive authorization attempts by result
//
// Rewrite:
//   - rewrite_requests_total: rewrite calls by operation and status
//   - rewrite_request_duration_seconds: rewrite latency
//
// MCP tools:
//   - mcp_tool_invocations_total: tool calls by tool and status
//   - mcp_tool_duration_seconds: tool latency
//
// Metrics are exported via Prometheus (default), OTLP over HTTP, or stdout.
// Labels never carry raw identities or message ids; use ExtractUserDomain and
// RouteLabel to keep cardinality bounded.
//
// # Configuration
//
// DefaultConfig reads:
//
//	INSTRUMENTATION_ENABLED=true
//	METRICS_EXPORTER=prometheus     # prometheus, otlp, stdout
//	TRACING_EXPORTER=none           # otlp, stdout, none
//	OTEL_EXPORTER_OTLP_ENDPOINT=localhost:4318
//	OTEL_TRACES_SAMPLER_ARG=0.1
//	OTEL_SERVICE_NAME=inboxassist
//
// # Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordDroppedMessages(ctx, len(page.Dropped))
//
// A nil *Metrics is valid and records nothing.
package instrumentation
