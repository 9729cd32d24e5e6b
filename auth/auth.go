package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// The cookie only carries a signed console session id. Everything else,
// including the backend bearer token, lives server side and is loaded by the
// SessionResolver on each request.

type ctxKey string

const (
	sessionCookieName = "bb_session"
	principalCtxKey   = ctxKey("principal")
)

// Principal is the signed-in account behind a request.
type Principal struct {
	SessionID   string
	AccountID   string
	Role        models.Role
	Email       string
	DisplayName string
	Token       string // backend bearer token
}

// SessionResolver loads the principal of a session id. It returns an error
// for unknown or expired sessions.
type SessionResolver func(ctx context.Context, sessionID string) (*Principal, error)

var resolver SessionResolver

// SetSessionResolver configures the global resolver used by Middleware.
func SetSessionResolver(r SessionResolver) { resolver = r }

var secret string

// SetSecret overrides SESSION_SECRET, mainly for configuration loaded from file.
func SetSecret(s string) { secret = s }

// Secret returns the configured secret, SESSION_SECRET or a default dev value.
func Secret() string {
	if secret != "" {
		return secret
	}
	if s := os.Getenv("SESSION_SECRET"); s != "" {
		return s
	}
	return "devsessionsecret"
}

func sign(v string) string {
	mac := hmac.New(sha256.New, []byte(Secret()))
	mac.Write([]byte(v))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CreateSession sets a signed cookie with the session id.
func CreateSession(w http.ResponseWriter, sessionID string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID + "." + sign(sessionID),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates the cookie and returns the session id.
func ParseSession(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	id, sig, ok := strings.Cut(c.Value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(sign(id))) {
		return "", false
	}
	return id, true
}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext extracts the principal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(*Principal)
	return p, ok && p != nil
}

// Middleware attaches the principal to the request context when the cookie
// resolves to a live session. A cookie for a dead session is cleared.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := ParseSession(r); ok && resolver != nil {
			if p, err := resolver(r.Context(), id); err == nil && p != nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			} else {
				ClearSession(w)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// WantsJSON reports whether the client asked for JSON rather than HTML.
func WantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// RequireAuth redirects to /login if not authenticated (HTML) or returns 401 JSON.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			if WantsJSON(r) || r.Header.Get("Upgrade") == "websocket" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"success":false,"error":"unauthorized"}`)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
