package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/httpx"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/services"
	"github.com/diewo77/go-bloodbank/validation"
	"github.com/diewo77/go-bloodbank/view"
)

type AuthHandler struct {
	*Base
}

func NewAuthHandler(b *Base) *AuthHandler {
	return &AuthHandler{Base: b}
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// Login shows the sign-in page (GET) or signs in (POST, JSON or form).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if err := view.Render(w, r, "login.html", nil); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	var f services.LoginForm
	if isJSON(r) {
		if !decode(w, r, &f) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		f = services.LoginForm{Role: r.FormValue("role"), Email: r.FormValue("email"), Password: r.FormValue("password")}
	}

	res, err := h.Accounts.Login(r.Context(), f)
	if err != nil {
		if isJSON(r) {
			h.fail(w, r, err)
			return
		}
		msg := backend.UserMessage(err)
		var v validation.Violations
		if errors.As(err, &v) {
			msg = "Please check the highlighted fields."
		}
		w.WriteHeader(http.StatusUnauthorized)
		_ = view.Render(w, r, "login.html", map[string]any{"Error": msg, "Errors": v, "Email": f.Email, "Role": f.Role})
		return
	}

	auth.CreateSession(w, res.Session.ID, res.Session.ExpiresAt)
	if isJSON(r) {
		httpx.OK(w, http.StatusOK, res.Message, map[string]any{
			"role":    res.Session.Role,
			"user":    res.Account,
			"expires": res.Session.ExpiresAt,
		})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Register relays a sign-up. The backend sends the verification email.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var f services.RegisterForm
	if !decode(w, r, &f) {
		return
	}
	msg, err := h.Accounts.Register(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, msg, nil)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	msg, err := h.Accounts.VerifyEmail(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, msg, nil)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &in) {
		return
	}
	msg, err := h.Accounts.ForgotPassword(r.Context(), in.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, msg, nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var f services.ResetForm
	if !decode(w, r, &f) {
		return
	}
	msg, err := h.Accounts.ResetPassword(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, msg, nil)
}

// Logout ends the console session: refresh tasks stop, sockets close.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		if err := h.Accounts.Logout(r.Context(), p.SessionID); err != nil {
			slog.ErrorContext(r.Context(), "logout failed", "session_id", p.SessionID, "err", err)
		}
	}
	auth.ClearSession(w)
	if auth.WantsJSON(r) {
		httpx.OK(w, http.StatusOK, "Logged out.", nil)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Me returns the signed-in principal as the console knows it.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{
		"user": map[string]any{
			"id":    p.AccountID,
			"role":  p.Role,
			"email": p.Email,
			"name":  p.DisplayName,
			"admin": p.Role == models.RoleAdmin,
		},
	})
}
