// Package httpapi serves the browser side of sign-in and the health check.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SignInCallbacks is the part of the session service the browser flow needs.
type SignInCallbacks interface {
	HandleCallback(ctx context.Context, state, code string) error
	FailSignIn(state string, err error) error
}

type Handler struct {
	sessions SignInCallbacks
	logger   logging.Logger
	// devForm enables the /auth/dev page of the dev identity provider.
	devForm bool
}

func NewHandler(sessions SignInCallbacks, l logging.Logger, devForm bool) *Handler {
	return &Handler{sessions: sessions, logger: l.With("module", "http"), devForm: devForm}
}

// Routes configures the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.handleHealth)
	r.Get("/auth/callback", h.handleCallback)
	if h.devForm {
		r.Get("/auth/dev", h.handleDevForm)
	}
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")
	if state == "" {
		h.page(w, http.StatusBadRequest, "Sign-in failed", "The request has no state parameter.")
		return
	}

	if reason := q.Get("error"); reason != "" {
		_ = h.sessions.FailSignIn(state, fmt.Errorf("%w: %s", common.ErrorUnauthorized, reason))
		h.page(w, http.StatusUnauthorized, "Sign-in cancelled", "You can close this window.")
		return
	}

	err := h.sessions.HandleCallback(r.Context(), state, q.Get("code"))
	switch {
	case errors.Is(err, common.ErrorNotFound):
		h.page(w, http.StatusNotFound, "Sign-in expired", "Start the sign-in again from the app.")
	case err != nil:
		h.logger.Warn(r.Context(), "sign-in callback failed", "error", err)
		h.page(w, http.StatusBadRequest, "Sign-in failed", "Return to the app for details.")
	default:
		h.page(w, http.StatusOK, "Signed in", "You can close this window and return to the app.")
	}
}

func (h *Handler) handleDevForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := devFormTmpl.Execute(w, r.URL.Query().Get("state")); err != nil {
		h.logger.Error(r.Context(), "render dev form", "error", err)
	}
}

func (h *Handler) page(w http.ResponseWriter, code int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = pageTmpl.Execute(w, struct{ Title, Body string }{title, body})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html><head><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1><p>{{.Body}}</p></body></html>
`))

var devFormTmpl = template.Must(template.New("dev").Parse(`<!doctype html>
<html><head><title>Send It sign-in</title></head>
<body>
<h1>Send It sign-in</h1>
<form method="get" action="/auth/callback">
<input type="hidden" name="state" value="{{.}}">
<label>E-mail <input type="email" name="code" required autofocus></label>
<button type="submit">Sign in</button>
</form>
</body></html>
`))
