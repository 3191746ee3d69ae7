package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/teemow/inboxassist/internal/auth"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
)

const errCodeUnauthorized = "unauthorized"

// JWTAuth requires an HS256 bearer token and places its subject on the
// request context as the identity.
func JWTAuth(secret []byte, logger *slog.Logger, next http.Handler) http.Handler {
	logger = logging.OrDefault(logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := bearerSubject(r, secret)
		if err != nil {
			logger.Debug("rejected bearer token", logging.Operation("http.auth"), logging.Err(err))
			w.Header().Set("WWW-Authenticate", `Bearer realm="inboxassist"`)
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: errCodeUnauthorized})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), subject)))
	})
}

func bearerSubject(r *http.Request, secret []byte) (string, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errors.New("missing bearer token")
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// InstrumentHTTP records request count and latency per matched route.
// It must wrap the ServeMux so the route pattern is known after dispatch.
func InstrumentHTTP(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, instrumentation.RouteLabel(r.Pattern), rec.status, time.Since(start))
	})
}
