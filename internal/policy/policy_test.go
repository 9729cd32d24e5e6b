package policy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/internal/models"
)

func ctxAs(role models.Role, id string) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{AccountID: id, Role: role})
}

func TestRoleProfiles(t *testing.T) {
	ag := NewAuthGate(time.Minute)
	tests := []struct {
		role     models.Role
		resource string
		action   gate.Action
		want     bool
	}{
		{models.RoleHospital, ResBloodRequest, gate.ActionCreate, true},
		{models.RoleHospital, ResBloodRequest, gate.ActionFulfil, true},
		{models.RoleHospital, ResBloodRequest, gate.ActionApprove, false},
		{models.RoleOrganisation, ResBloodRequest, gate.ActionApprove, true},
		{models.RoleOrganisation, ResCamp, gate.ActionDelete, true},
		{models.RoleOrganisation, ResEmergencyRequest, gate.ActionCreate, true},
		{models.RoleOrganisation, ResAccount, gate.ActionBlock, false},
		{models.RoleDonor, ResDonationRequest, gate.ActionCreate, true},
		{models.RoleDonor, ResDonationRequest, gate.ActionApprove, false},
		{models.RoleDonor, ResInventory, gate.ActionCreate, false},
		{models.RoleAdmin, ResAccount, gate.ActionBlock, true},
		{models.RoleAdmin, ResCamp, gate.ActionApprove, true},
	}
	for _, tt := range tests {
		got := ag.CanProfile(ctxAs(tt.role, "x"), tt.action, tt.resource)
		assert.Equal(t, tt.want, got, "%s %s:%s", tt.role, tt.resource, tt.action)
	}
}

func TestOwnershipOnCampsAndEmergencies(t *testing.T) {
	ag := NewAuthGate(time.Minute)
	camp := models.Camp{Organisation: models.Ref{ID: "o1"}}
	emergency := models.EmergencyRequest{Organisation: models.Ref{ID: "o1"}}

	assert.True(t, ag.Can(ctxAs(models.RoleOrganisation, "o1"), gate.ActionDelete, ResCamp, camp))
	assert.False(t, ag.Can(ctxAs(models.RoleOrganisation, "o2"), gate.ActionDelete, ResCamp, camp))
	assert.False(t, ag.Can(ctxAs(models.RoleOrganisation, "o2"), gate.ActionCancel, ResEmergencyRequest, emergency))
	assert.True(t, ag.Can(ctxAs(models.RoleAdmin, "a1"), gate.ActionBlock, ResEmergencyRequest, emergency))
	assert.True(t, ag.Can(ctxAs(models.RoleAdmin, "a1"), gate.ActionApprove, ResCamp, camp))
	assert.False(t, ag.Can(ctxAs(models.RoleOrganisation, "o1"), gate.ActionApprove, ResCamp, models.Camp{Organisation: models.Ref{ID: "o2"}}))
	assert.False(t, ag.Can(context.Background(), gate.ActionView, ResCamp, nil))
}

func TestRequirePermissionMiddleware(t *testing.T) {
	ag := NewAuthGate(time.Minute)
	h := ag.RequirePermission(ResBloodRequest, gate.ActionCreate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		ctx  context.Context
		want int
	}{
		{context.Background(), http.StatusUnauthorized},
		{ctxAs(models.RoleDonor, "d1"), http.StatusForbidden},
		{ctxAs(models.RoleHospital, "h1"), http.StatusNoContent},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/requests", nil).WithContext(c.ctx))
		assert.Equal(t, c.want, rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	ag := NewAuthGate(time.Minute)
	h := ag.RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctxAs(models.RoleOrganisation, "o1")))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctxAs(models.RoleAdmin, "a1")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvalidateAccount(t *testing.T) {
	ag := NewAuthGate(time.Minute)
	ag.CanProfile(ctxAs(models.RoleDonor, "d1"), gate.ActionView, ResDashboard)
	ag.CanProfile(ctxAs(models.RoleDonor, "d2"), gate.ActionView, ResDashboard)
	assert.Equal(t, 2, ag.CacheResolver.Len())
	ag.InvalidateAccount("d1")
	assert.Equal(t, 1, ag.CacheResolver.Len())
}
