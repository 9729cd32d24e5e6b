package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/go-bloodbank/internal/models"
)

func sessionCookie(t *testing.T, id string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	CreateSession(rec, id, time.Now().Add(time.Hour))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d", len(cookies))
	}
	return cookies[0]
}

func TestParseSessionRoundTrip(t *testing.T) {
	SetSecret("test-secret")
	defer SetSecret("")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, "3f1c"))
	id, ok := ParseSession(req)
	if !ok || id != "3f1c" {
		t.Fatalf("ParseSession = %q, %v", id, ok)
	}
}

func TestParseSessionRejectsForgery(t *testing.T) {
	SetSecret("test-secret")
	defer SetSecret("")
	c := sessionCookie(t, "abc")
	c.Value = "other" + c.Value[len("abc"):]
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	if _, ok := ParseSession(req); ok {
		t.Fatal("forged cookie accepted")
	}
}

func TestMiddlewareResolvesPrincipal(t *testing.T) {
	SetSessionResolver(func(ctx context.Context, id string) (*Principal, error) {
		if id == "live" {
			return &Principal{SessionID: id, Role: models.RoleHospital}, nil
		}
		return nil, errors.New("gone")
	})
	defer SetSessionResolver(nil)

	var got *Principal
	h := Middleware(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(sessionCookie(t, "live"))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.Role != models.RoleHospital {
		t.Fatalf("principal = %+v", got)
	}
}

func TestRequireAuthJSONAndRedirect(t *testing.T) {
	SetSessionResolver(func(ctx context.Context, id string) (*Principal, error) { return nil, errors.New("gone") })
	defer SetSessionResolver(nil)
	h := Middleware(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without session")
	})))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(sessionCookie(t, "dead"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("json status = %d", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Error("dead session cookie not cleared")
	}

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("html status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
}
