package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxassist/internal/instrumentation"
)

func newProvider(t *testing.T, cfg instrumentation.Config) *instrumentation.Provider {
	t.Helper()
	cfg.ServiceName = "inboxassist-test"
	cfg.ServiceVersion = "test"
	if cfg.TracingExporter == "" {
		cfg.TracingExporter = instrumentation.ExporterNone
	}
	provider, err := instrumentation.NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func prometheusProvider(t *testing.T) *instrumentation.Provider {
	return newProvider(t, instrumentation.Config{Enabled: true, MetricsExporter: instrumentation.ExporterPrometheus})
}

func TestNewMetricsServer(t *testing.T) {
	tests := []struct {
		name        string
		config      func(t *testing.T) MetricsServerConfig
		errContains string
	}{
		{
			name: "prometheus provider",
			config: func(t *testing.T) MetricsServerConfig {
				return MetricsServerConfig{Addr: ":9191", Enabled: true, InstrumentationProvider: prometheusProvider(t)}
			},
		},
		{
			name: "disabled config",
			config: func(t *testing.T) MetricsServerConfig {
				return MetricsServerConfig{InstrumentationProvider: prometheusProvider(t)}
			},
			errContains: "disabled",
		},
		{
			name: "nil provider",
			config: func(*testing.T) MetricsServerConfig {
				return MetricsServerConfig{Enabled: true}
			},
			errContains: "instrumentation provider is required",
		},
		{
			name: "stdout exporter",
			config: func(t *testing.T) MetricsServerConfig {
				p := newProvider(t, instrumentation.Config{Enabled: true, MetricsExporter: instrumentation.ExporterStdout})
				return MetricsServerConfig{Enabled: true, InstrumentationProvider: p}
			},
			errContains: "not prometheus",
		},
		{
			name: "instrumentation off",
			config: func(t *testing.T) MetricsServerConfig {
				return MetricsServerConfig{Enabled: true, InstrumentationProvider: newProvider(t, instrumentation.Config{})}
			},
			errContains: "not enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewMetricsServer(tt.config(t))
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ":9191", srv.Addr())
		})
	}
}

func TestMetricsServer_DefaultAddr(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{Enabled: true, InstrumentationProvider: prometheusProvider(t)})
	require.NoError(t, err)
	assert.Equal(t, DefaultMetricsAddr, srv.Addr())
}

func TestMetricsServer_ScrapesRecordedMetrics(t *testing.T) {
	provider := prometheusProvider(t)
	srv, err := NewMetricsServer(MetricsServerConfig{Enabled: true, InstrumentationProvider: provider})
	require.NoError(t, err)

	provider.Metrics().RecordDroppedMessages(context.Background(), 2)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "gmail_dropped_messages_total")

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsServer_StartAndShutdown(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{Addr: "127.0.0.1:0", Enabled: true, InstrumentationProvider: prometheusProvider(t)})
	require.NoError(t, err)

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-serverErr:
		assert.True(t, errors.Is(err, http.ErrServerClosed), "unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestMetricsServer_ShutdownBeforeStart(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{Addr: "127.0.0.1:0", Enabled: true, InstrumentationProvider: prometheusProvider(t)})
	require.NoError(t, err)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.ErrorIs(t, srv.Start(), http.ErrServerClosed)
}
