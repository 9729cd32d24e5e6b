// Package workflow holds the lifecycle tables of request-like entities and
// validates every status change against them.
package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// Kind names an entity with a status lifecycle.
type Kind string

const (
	BloodRequest     Kind = "blood_request"
	DonationRequest  Kind = "donation_request"
	EmergencyRequest Kind = "emergency_request"
	Camp             Kind = "camp"
)

// Label is the human name of a kind.
func (k Kind) Label() string { return strings.ReplaceAll(string(k), "_", " ") }

// ErrPolicyViolation matches every *PolicyViolation with errors.Is.
var ErrPolicyViolation = errors.New("policy violation")

// PolicyViolation explains why a transition was refused.
type PolicyViolation struct {
	Kind   Kind
	From   models.Status
	To     models.Status
	Actor  models.Role
	Reason string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("%s: %s -> %s refused: %s", e.Kind, e.From, e.To, e.Reason)
}

func (e *PolicyViolation) Is(target error) bool { return target == ErrPolicyViolation }

type edge struct{ from, to models.Status }

// Table is the lifecycle of one kind: its states, initial state and the
// roles allowed to take each edge.
type Table struct {
	Initial models.Status
	States  []models.Status
	edges   map[edge][]models.Role
}

func (t Table) known(s models.Status) bool {
	for _, v := range t.States {
		if v == s {
			return true
		}
	}
	return false
}

func (t Table) terminal(s models.Status) bool {
	for e := range t.edges {
		if e.from == s {
			return false
		}
	}
	return true
}

// Machine validates transitions against a fixed set of tables.
type Machine struct {
	tables map[Kind]Table
}

func allow(roles ...models.Role) []models.Role { return roles }

// New returns a machine with the standard lifecycle tables.
func New() *Machine {
	org, hosp, donor, admin := models.RoleOrganisation, models.RoleHospital, models.RoleDonor, models.RoleAdmin
	p, a, rj := models.StatusPending, models.StatusApproved, models.StatusRejected
	return &Machine{tables: map[Kind]Table{
		BloodRequest: {
			Initial: p,
			States:  []models.Status{p, a, rj, models.StatusFulfilled},
			edges: map[edge][]models.Role{
				{p, a}:                      allow(org),
				{p, rj}:                     allow(org),
				{a, models.StatusFulfilled}: allow(hosp),
			},
		},
		DonationRequest: {
			Initial: p,
			States:  []models.Status{p, a, rj, models.StatusCompleted, models.StatusCancelled},
			edges: map[edge][]models.Role{
				{p, a}:                      allow(org),
				{p, rj}:                     allow(org),
				{a, models.StatusCompleted}: allow(org),
				{p, models.StatusCancelled}: allow(donor),
			},
		},
		EmergencyRequest: {
			Initial: models.StatusActive,
			States:  []models.Status{models.StatusActive, models.StatusFulfilled, models.StatusCancelled, models.StatusBlocked},
			edges: map[edge][]models.Role{
				{models.StatusActive, models.StatusFulfilled}: allow(org, admin),
				{models.StatusActive, models.StatusCancelled}: allow(org, admin),
				{models.StatusActive, models.StatusBlocked}:   allow(org, admin),
			},
		},
		Camp: {
			Initial: p,
			States:  []models.Status{p, a, rj, models.StatusCompleted, models.StatusCancelled},
			edges: map[edge][]models.Role{
				{p, a}:                      allow(admin),
				{p, rj}:                     allow(admin),
				{a, models.StatusCompleted}: allow(org),
				{p, models.StatusCancelled}: allow(org),
				{a, models.StatusCancelled}: allow(org),
			},
		},
	}}
}

// Default is the machine used by the application.
var Default = New()

// Table returns the lifecycle of kind k.
func (m *Machine) Table(k Kind) (Table, bool) {
	t, ok := m.tables[k]
	return t, ok
}

// Validate checks that actor may move an entity of kind k from one status
// to another. It returns a *PolicyViolation describing the refusal.
func (m *Machine) Validate(k Kind, from, to models.Status, actor models.Role) error {
	v := &PolicyViolation{Kind: k, From: from, To: to, Actor: actor}
	t, ok := m.tables[k]
	switch {
	case !ok:
		v.Reason = fmt.Sprintf("unknown entity kind %q", k)
	case !t.known(from):
		v.Reason = fmt.Sprintf("current status %q is not a %s status", from, k.Label())
	case !t.known(to):
		v.Reason = fmt.Sprintf("%q is not a %s status", to, k.Label())
	case from == to:
		v.Reason = fmt.Sprintf("this %s is already %s", k.Label(), from)
	case t.terminal(from):
		v.Reason = fmt.Sprintf("this %s is %s and can no longer change", k.Label(), from)
	default:
		roles, ok := t.edges[edge{from, to}]
		if !ok {
			v.Reason = fmt.Sprintf("a %s %s cannot become %s", from, k.Label(), to)
			break
		}
		for _, r := range roles {
			if r == actor {
				return nil
			}
		}
		v.Reason = fmt.Sprintf("only %s can mark a %s %s", joinRoles(roles), k.Label(), to)
	}
	return v
}

// Terminal reports whether s is a final status of kind k. Unknown statuses
// are not terminal.
func (m *Machine) Terminal(k Kind, s models.Status) bool {
	t, ok := m.tables[k]
	return ok && t.known(s) && t.terminal(s)
}

// Next lists the statuses actor may move an entity to from status from,
// sorted for stable rendering.
func (m *Machine) Next(k Kind, from models.Status, actor models.Role) []models.Status {
	t, ok := m.tables[k]
	if !ok {
		return nil
	}
	var out []models.Status
	for e, roles := range t.edges {
		if e.from != from {
			continue
		}
		for _, r := range roles {
			if r == actor {
				out = append(out, e.to)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinRoles(roles []models.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " or ")
}
