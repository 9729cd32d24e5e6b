// Package policy maps console roles to gate permissions and exposes the
// resulting checks as HTTP middleware.
package policy

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/httpx"
	"github.com/diewo77/go-bloodbank/internal/models"
)

// AuthGate is the central authorization point of the console.
type AuthGate struct {
	Gate          *gate.Gate[Subject]
	CacheResolver *gate.CachedResolver[Subject]
}

// NewAuthGate wires role profiles behind a cache and registers ownership
// policies. Admins pass ownership checks: they moderate camps and
// emergency requests of every organisation.
func NewAuthGate(cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[Subject](RoleResolver{}, cacheTTL)
	g := gate.New[Subject](cached)
	g.Register(ResCamp, AdminBypass{Inner: OwnershipPolicy{}})
	g.Register(ResEmergencyRequest, AdminBypass{Inner: OwnershipPolicy{}})
	return &AuthGate{Gate: g, CacheResolver: cached}
}

// SubjectFromContext reads the authenticated subject of a request.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return Subject{}, false
	}
	return Subject{AccountID: p.AccountID, Role: p.Role}, true
}

// Authorize checks the profile permission and, when resource is given, the
// ownership policy of resourceType.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	s, ok := SubjectFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, s, action, resourceType, resource)
}

func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// CanProfile checks only the role permission.
func (ag *AuthGate) CanProfile(ctx context.Context, action gate.Action, resourceType string) bool {
	s, ok := SubjectFromContext(ctx)
	if !ok {
		return false
	}
	return ag.Gate.CanProfile(ctx, s, action, resourceType)
}

// InvalidateAccount drops cached profiles of an account, e.g. after it was
// blocked.
func (ag *AuthGate) InvalidateAccount(accountID string) {
	ag.CacheResolver.InvalidateFunc(func(s Subject) bool { return s.AccountID == accountID })
}

func (ag *AuthGate) InvalidateAll() { ag.CacheResolver.InvalidateAll() }

// RequirePermission returns middleware that checks a role permission.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := SubjectFromContext(r.Context()); !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !ag.CanProfile(r.Context(), action, resourceType) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", "Your role cannot "+string(action)+" "+resourceType+".")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets the admin role through.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SubjectFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			profile, err := ag.CacheResolver.Resolve(r.Context(), s)
			if err != nil || profile == nil || !profile.HasPermission(gate.PermissionSuperAdmin) || s.Role != models.RoleAdmin {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CanRequest is the template hook: can(resource, action).
func (ag *AuthGate) CanRequest(r *http.Request, resource, action string) bool {
	return ag.CanProfile(r.Context(), gate.Action(action), resource)
}
