package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxassist/internal/auth"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/instrumentation"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWTAuth(t *testing.T) {
	var gotIdentity string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity, _ = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := JWTAuth([]byte(testSecret), nil, next)

	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "jane@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name         string
		header       string
		wantStatus   int
		wantIdentity string
	}{
		{name: "valid", header: "Bearer " + valid, wantStatus: http.StatusOK, wantIdentity: "jane@example.com"},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{
			name: "wrong secret",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{
				"sub": "jane@example.com",
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
				"sub": "jane@example.com",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong algorithm",
			header: "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{
				"sub": "jane@example.com",
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no subject",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"iss": "x"}),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotIdentity = ""
			req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantIdentity, gotIdentity)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestHTTPServer_JWTIdentityReachesResolver(t *testing.T) {
	env := newTestEnv(t, false)
	require.NoError(t, env.store.UpsertToken(context.Background(), "jane@example.com", auth.ProviderGmail,
		&oauth2.Token{AccessToken: "jane-token"}))
	env.fetcher.page = &gmail.Page{}
	h := env.handler(t, HTTPConfig{JWTSecret: testSecret})

	// Health probes are open.
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/messages", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
		jwt.MapClaims{"sub": "jane@example.com"}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "jane-token", env.fetcher.gotToken.AccessToken)
}

func TestHTTPServer_MCPMounted(t *testing.T) {
	env := newTestEnv(t, true)
	mcp := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := do(t, env.handler(t, HTTPConfig{MCPHandler: mcp}), http.MethodPost, "/mcp", `{}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, env.handler(t, HTTPConfig{}), http.MethodPost, "/mcp", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInstrumentHTTP_RecordsRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	env := newTestEnv(t, true)
	env.fetcher.contentErr = gmail.ErrTokenExpired
	env.sc.metrics = metrics

	rec := do(t, env.handler(t, HTTPConfig{}), http.MethodGet, "/api/messages/18c0ffee/content", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum := m.Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1)
			dp := sum.DataPoints[0]
			path, _ := dp.Attributes.Value(attribute.Key("path"))
			status, _ := dp.Attributes.Value(attribute.Key("status"))
			assert.Equal(t, "/api/messages/{id}/content", path.AsString())
			assert.Equal(t, "401", status.AsString())
			found = true
		}
	}
	assert.True(t, found, "http_requests_total not recorded")
}
