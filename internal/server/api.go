package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/teemow/inboxassist/internal/auth"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/inbox"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/rewrite"
)

// Error codes returned in ErrorResponse.Error.
const (
	ErrCodeTokenExpired  = "gmail_token_expired"
	ErrCodeNotConnected  = "gmail_not_connected"
	ErrCodeAuthRequired  = "authentication_required"
	ErrCodeProvider      = "provider_error"
	ErrCodeRewriteFailed = "rewrite_failed"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeInternal      = "internal_error"
	ErrCodeUnavailable   = "not_available"
)

const maxRewriteBody = 1 << 20

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RewriteRequest is the body of the rewrite endpoints.
type RewriteRequest struct {
	Text string `json:"text"`
	Tone string `json:"tone,omitempty"`
}

// RewriteResponse carries the rewritten text.
type RewriteResponse struct {
	Text string `json:"text"`
}

// StatusResponse reports whether Gmail is connected for the caller.
type StatusResponse struct {
	Connected bool `json:"connected"`
}

// API serves the JSON endpoints under /api.
type API struct {
	sc *ServerContext
}

func NewAPI(sc *ServerContext) *API {
	return &API{sc: sc}
}

// Register mounts the API routes on mux, each wrapped by wrap.
func (a *API) Register(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	if wrap == nil {
		wrap = func(h http.Handler) http.Handler { return h }
	}
	mux.Handle("GET /api/messages", wrap(http.HandlerFunc(a.listMessages)))
	mux.Handle("GET /api/messages/{id}/content", wrap(http.HandlerFunc(a.messageContent)))
	mux.Handle("POST /api/rewrite/polish", wrap(http.HandlerFunc(a.polish)))
	mux.Handle("POST /api/rewrite/tone", wrap(http.HandlerFunc(a.changeTone)))
	mux.Handle("GET /api/gmail/status", wrap(http.HandlerFunc(a.gmailStatus)))
	mux.Handle("DELETE /api/gmail", wrap(http.HandlerFunc(a.gmailDisconnect)))
}

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pageSize := 0
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			a.badRequest(w, "pageSize must be an integer")
			return
		}
		pageSize = n
	}
	mode, err := inbox.ParseFilterMode(q.Get("filter"))
	if err != nil {
		a.badRequest(w, err.Error())
		return
	}

	ctx, cancel := a.sc.WithRequestTimeout(r.Context())
	defer cancel()

	page, err := a.sc.Inbox().List(ctx, inbox.ListRequest{
		PageSize:  pageSize,
		PageToken: q.Get("pageToken"),
		Filter:    inbox.Filter{Mode: mode, Query: q.Get("q")},
	})
	if err != nil {
		a.writeError(w, "inbox.list", err)
		return
	}
	if page.Messages == nil {
		page.Messages = []gmail.DisplayMessage{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) messageContent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		a.badRequest(w, "message id is required")
		return
	}

	ctx, cancel := a.sc.WithRequestTimeout(r.Context())
	defer cancel()

	content, err := a.sc.Inbox().Message(ctx, id)
	if err != nil {
		a.writeError(w, "inbox.message", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*gmail.MessageContent
		Renderable string `json:"renderable"`
	}{content, content.Renderable()})
}

func (a *API) polish(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeRewrite(w, r)
	if !ok {
		return
	}
	ctx, cancel := a.sc.WithRequestTimeout(r.Context())
	defer cancel()

	text, err := a.sc.Rewriter().Polish(ctx, req.Text)
	if err != nil {
		a.writeError(w, "rewrite.polish", err)
		return
	}
	writeJSON(w, http.StatusOK, RewriteResponse{Text: text})
}

func (a *API) changeTone(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeRewrite(w, r)
	if !ok {
		return
	}
	tone, err := rewrite.ParseTone(req.Tone)
	if err != nil {
		a.badRequest(w, err.Error())
		return
	}
	ctx, cancel := a.sc.WithRequestTimeout(r.Context())
	defer cancel()

	text, err := a.sc.Rewriter().ChangeTone(ctx, req.Text, tone)
	if err != nil {
		a.writeError(w, "rewrite.tone", err)
		return
	}
	writeJSON(w, http.StatusOK, RewriteResponse{Text: text})
}

func (a *API) gmailStatus(w http.ResponseWriter, r *http.Request) {
	resolver := a.sc.Resolver()
	if resolver == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: ErrCodeUnavailable})
		return
	}
	connected, err := resolver.Connected(r.Context())
	if err != nil {
		a.writeError(w, "gmail.status", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Connected: connected})
}

func (a *API) gmailDisconnect(w http.ResponseWriter, r *http.Request) {
	resolver := a.sc.Resolver()
	if resolver == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: ErrCodeUnavailable})
		return
	}
	if err := resolver.Disconnect(r.Context()); err != nil {
		a.writeError(w, "gmail.disconnect", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) decodeRewrite(w http.ResponseWriter, r *http.Request) (RewriteRequest, bool) {
	var req RewriteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRewriteBody)).Decode(&req); err != nil {
		a.badRequest(w, "invalid JSON body")
		return req, false
	}
	if req.Text == "" {
		a.badRequest(w, rewrite.ErrEmptyText.Error())
		return req, false
	}
	return req, true
}

func (a *API) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrCodeBadRequest, Message: msg})
}

// writeError maps domain errors onto HTTP status codes. Internal details are
// logged, not returned.
func (a *API) writeError(w http.ResponseWriter, op string, err error) {
	status, code := classifyError(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	a.sc.Logger().Log(a.sc.Context(), level, "api request failed",
		logging.Operation(op),
		slog.Int("status", status),
		logging.Err(err))

	resp := ErrorResponse{Error: code}
	if status == http.StatusBadRequest {
		resp.Message = err.Error()
	}
	writeJSON(w, status, resp)
}

func classifyError(err error) (int, string) {
	var providerErr *gmail.ProviderError
	switch {
	case errors.Is(err, gmail.ErrTokenExpired):
		return http.StatusUnauthorized, ErrCodeTokenExpired
	case errors.Is(err, auth.ErrAuthenticationRequired):
		return http.StatusUnauthorized, ErrCodeAuthRequired
	case errors.Is(err, auth.ErrNotConnected):
		return http.StatusConflict, ErrCodeNotConnected
	case errors.As(err, &providerErr):
		return http.StatusBadGateway, ErrCodeProvider
	case errors.Is(err, rewrite.ErrEmptyText), errors.Is(err, rewrite.ErrUnknownTone):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, rewrite.ErrRewriteFailed):
		return http.StatusBadGateway, ErrCodeRewriteFailed
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
