package policy

import (
	"context"

	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/internal/models"
)

// Resource types checked by the gate.
const (
	ResDashboard        = "dashboard"
	ResInventory        = "inventory"
	ResBloodRequest     = "blood_request"
	ResDonationRequest  = "donation_request"
	ResEmergencyRequest = "emergency_request"
	ResCamp             = "camp"
	ResThreshold        = "threshold"
	ResAccount          = "account"
	ResAudit            = "audit"
)

func perms(resource string, actions ...gate.Action) []gate.Permission {
	out := make([]gate.Permission, len(actions))
	for i, a := range actions {
		out[i] = gate.NewPermission(resource, a)
	}
	return out
}

func profile(name string, groups ...[]gate.Permission) *gate.StaticProfile {
	var all []gate.Permission
	for _, g := range groups {
		all = append(all, g...)
	}
	return gate.NewStaticProfile(name, all...)
}

// RoleProfiles are the fixed permission sets of the four roles.
var RoleProfiles = map[models.Role]gate.Profile{
	models.RoleDonor: profile("donor",
		perms(ResDashboard, gate.ActionView),
		perms(ResInventory, gate.ActionList),
		perms(ResDonationRequest, gate.ActionList, gate.ActionCreate, gate.ActionCancel),
		perms(ResEmergencyRequest, gate.ActionList),
		perms(ResCamp, gate.ActionList),
	),
	models.RoleHospital: profile("hospital",
		perms(ResDashboard, gate.ActionView),
		perms(ResInventory, gate.ActionList),
		perms(ResBloodRequest, gate.ActionList, gate.ActionCreate, gate.ActionFulfil),
		perms(ResCamp, gate.ActionList),
	),
	models.RoleOrganisation: profile("organisation",
		perms(ResDashboard, gate.ActionView),
		perms(ResInventory, gate.ActionList, gate.ActionCreate),
		perms(ResBloodRequest, gate.ActionList, gate.ActionApprove, gate.ActionReject),
		perms(ResDonationRequest, gate.ActionList, gate.ActionApprove, gate.ActionReject, gate.ActionComplete),
		[]gate.Permission{"emergency_request:*", "camp:*"},
		perms(ResThreshold, gate.ActionView, gate.ActionUpdate),
		perms(ResAudit, gate.ActionList),
	),
	models.RoleAdmin: profile("admin", []gate.Permission{gate.PermissionSuperAdmin}),
}

// Subject is who the gate authorizes: an account acting in a role.
type Subject struct {
	AccountID string
	Role      models.Role
}

// RoleResolver resolves a subject to the profile of its role.
type RoleResolver struct {
	Profiles map[models.Role]gate.Profile
}

func (r RoleResolver) Resolve(_ context.Context, s Subject) (gate.Profile, error) {
	profiles := r.Profiles
	if profiles == nil {
		profiles = RoleProfiles
	}
	return profiles[s.Role], nil
}
