package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Role is one of the four account kinds known to the backend.
type Role string

const (
	RoleDonor        Role = "donor"
	RoleHospital     Role = "hospital"
	RoleOrganisation Role = "organisation"
	RoleAdmin        Role = "admin"
)

// ErrUnknownRole is returned when a role string is not one of the four known roles.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole normalizes a role string and rejects anything outside the closed set.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleDonor, RoleHospital, RoleOrganisation, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// AccountStatus is the admin-controlled state of an account.
type AccountStatus string

const (
	AccountActive  AccountStatus = "active"
	AccountBlocked AccountStatus = "blocked"
)

// Profile holds the attributes shared by every account kind.
type Profile struct {
	ID      string        `json:"_id"`
	Role    Role          `json:"role"`
	Name    string        `json:"name,omitempty"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone,omitempty"`
	Address string        `json:"address,omitempty"`
	City    string        `json:"city,omitempty"`
	Website string        `json:"website,omitempty"`
	Status  AccountStatus `json:"status,omitempty"`
}

// Blocked reports whether an admin has blocked the account.
func (p Profile) Blocked() bool { return p.Status == AccountBlocked }

// Account is a closed union over Donor, Hospital, Organisation and Admin.
// Only types in this package can implement it.
type Account interface {
	AccountProfile() Profile
	isAccount()
}

type Donor struct {
	Profile
	BloodGroup BloodGroup `json:"bloodGroup"`
	Age        int        `json:"age,omitempty"`
	Gender     string     `json:"gender,omitempty"`
	Weight     float64    `json:"weight,omitempty"`
}

type Hospital struct {
	Profile
	HospitalName string `json:"hospitalName"`
}

type Organisation struct {
	Profile
	OrganisationName  string             `json:"organisationName"`
	Availability      map[BloodGroup]int `json:"availability,omitempty"`
	NeededBloodGroups []BloodGroup       `json:"neededBloodGroups,omitempty"`
}

type Admin struct {
	Profile
}

func (d *Donor) AccountProfile() Profile        { return d.Profile }
func (h *Hospital) AccountProfile() Profile     { return h.Profile }
func (o *Organisation) AccountProfile() Profile { return o.Profile }
func (a *Admin) AccountProfile() Profile        { return a.Profile }

func (*Donor) isAccount()        {}
func (*Hospital) isAccount()     {}
func (*Organisation) isAccount() {}
func (*Admin) isAccount()        {}

// DisplayName returns the name shown for an account: the institution name
// for hospitals and organisations, the person's name otherwise.
func DisplayName(a Account) string {
	return Match(a, AccountCases[string]{
		Donor:        func(d *Donor) string { return d.Name },
		Hospital:     func(h *Hospital) string { return firstNonEmpty(h.HospitalName, h.Name) },
		Organisation: func(o *Organisation) string { return firstNonEmpty(o.OrganisationName, o.Name) },
		Admin:        func(a *Admin) string { return firstNonEmpty(a.Name, "Administrator") },
	})
}

// AccountCases holds one handler per account kind. Match panics on a nil
// handler so a missing case shows up in tests rather than as a silent default.
type AccountCases[T any] struct {
	Donor        func(*Donor) T
	Hospital     func(*Hospital) T
	Organisation func(*Organisation) T
	Admin        func(*Admin) T
}

// Match dispatches on the concrete account kind.
func Match[T any](a Account, c AccountCases[T]) T {
	switch v := a.(type) {
	case *Donor:
		return c.Donor(v)
	case *Hospital:
		return c.Hospital(v)
	case *Organisation:
		return c.Organisation(v)
	case *Admin:
		return c.Admin(v)
	}
	panic(fmt.Sprintf("models: unhandled account type %T", a))
}

// RoleOf returns the role of an account based on its concrete type.
func RoleOf(a Account) Role {
	return Match(a, AccountCases[Role]{
		Donor:        func(*Donor) Role { return RoleDonor },
		Hospital:     func(*Hospital) Role { return RoleHospital },
		Organisation: func(*Organisation) Role { return RoleOrganisation },
		Admin:        func(*Admin) Role { return RoleAdmin },
	})
}

// DecodeAccount decodes a backend user object into the matching variant.
func DecodeAccount(raw []byte) (Account, error) {
	var head struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	role, err := ParseRole(head.Role)
	if err != nil {
		return nil, err
	}
	var acc Account
	switch role {
	case RoleDonor:
		acc = &Donor{}
	case RoleHospital:
		acc = &Hospital{}
	case RoleOrganisation:
		acc = &Organisation{}
	case RoleAdmin:
		acc = &Admin{}
	}
	if err := json.Unmarshal(raw, acc); err != nil {
		return nil, fmt.Errorf("decode %s account: %w", role, err)
	}
	return acc, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
