// Package handlers holds the HTTP handlers of the console. Handlers decode
// input, call a service with the signed-in actor and map its errors to the
// backend's {success, message} envelope.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/httpx"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/refresh"
	"github.com/diewo77/go-bloodbank/internal/services"
	"github.com/diewo77/go-bloodbank/internal/workflow"
	"github.com/diewo77/go-bloodbank/validation"
	"github.com/diewo77/go-bloodbank/view"
)

// Refresher re-polls a session's live dashboard after it changed something.
type Refresher interface {
	Refresh(sessionID string)
}

// Base carries what every authenticated handler needs.
type Base struct {
	API         *backend.Client
	Accounts    *services.AccountService
	Live        Refresher
	LogoutDelay time.Duration
}

func (b *Base) logoutDelay() time.Duration {
	if b.LogoutDelay <= 0 {
		return refresh.DefaultLogoutDelay
	}
	return b.LogoutDelay
}

// actor returns the services actor of the request. Routes are mounted
// behind auth.RequireAuth, so a missing principal is answered with 401.
func (b *Base) actor(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return services.Actor{}, false
	}
	return services.ActorFrom(p, b.API), true
}

func (b *Base) touched(r *http.Request) {
	if b.Live == nil {
		return
	}
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		b.Live.Refresh(p.SessionID)
	}
}

// endSession drops the caller's console session and cookie.
func (b *Base) endSession(w http.ResponseWriter, r *http.Request, reason string) {
	auth.ClearSession(w)
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || b.Accounts == nil {
		return
	}
	if err := b.Accounts.EndSession(r.Context(), p.SessionID, reason); err != nil {
		slog.ErrorContext(r.Context(), "ending session failed", "session_id", p.SessionID, "err", err)
	}
}

// fail maps a service error to a response.
func (b *Base) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		v  validation.Violations
		pv *workflow.PolicyViolation
		re *backend.RequestError
	)
	switch {
	case errors.As(err, &v):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string(v))
	case errors.Is(err, backend.ErrAccountBlocked):
		b.endSession(w, r, refresh.ReasonBlocked)
		b.blocked(w, r)
	case errors.Is(err, backend.ErrUnauthorized):
		b.endSession(w, r, refresh.ReasonExpired)
		if auth.WantsJSON(r) || r.Method != http.MethodGet {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", backend.UserMessage(err))
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.As(err, &pv):
		httpx.JSONError(w, http.StatusConflict, "policy_violation", pv.Reason)
	case errors.Is(err, services.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", "You are not allowed to do that.")
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", "Not found.")
	case errors.As(err, &re):
		status := http.StatusBadGateway
		if re.Status >= 400 && re.Status < 500 {
			status = re.Status
		}
		httpx.JSONError(w, status, "backend_error", backend.UserMessage(err))
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// blocked tells the browser its account is blocked. Pages show the notice
// and follow to /login after the logout delay.
func (b *Base) blocked(w http.ResponseWriter, r *http.Request) {
	delay := b.logoutDelay()
	if auth.WantsJSON(r) || r.Method != http.MethodGet {
		httpx.JSON(w, http.StatusForbidden, map[string]any{
			"success":        false,
			"error":          "account_blocked",
			"message":        refresh.BlockedNotice,
			"accountBlocked": true,
			"logoutAfterMs":  delay.Milliseconds(),
		})
		return
	}
	w.WriteHeader(http.StatusForbidden)
	if err := view.Render(w, r, "notice.html", map[string]any{
		"Message":  refresh.BlockedNotice,
		"Redirect": "/login",
		"Seconds":  int(delay.Round(time.Second) / time.Second),
	}); err != nil {
		slog.ErrorContext(r.Context(), "render notice failed", "err", err)
	}
}

// decode reads an optional JSON body; an empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return false
	}
	return true
}
