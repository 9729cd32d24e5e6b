// Package services orchestrates what a console session asks for: it
// validates input before any network call, checks role permissions and the
// workflow tables, relays the action to the backend and records it in the
// audit trail.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/policy"
)

var (
	// ErrNotFound is returned when an entity is not in the lists the actor
	// can see.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor's role or ownership does not
	// allow the action.
	ErrForbidden = errors.New("forbidden")
)

// Actor is the signed-in account a service call acts for.
type Actor struct {
	SessionID string
	AccountID string
	Role      models.Role
	API       *backend.Client
}

// ActorFrom binds a principal to a backend client carrying its token.
func ActorFrom(p *auth.Principal, api *backend.Client) Actor {
	return Actor{
		SessionID: p.SessionID,
		AccountID: p.AccountID,
		Role:      p.Role,
		API:       api.WithToken(p.Token),
	}
}

func (a Actor) subject() policy.Subject {
	return policy.Subject{AccountID: a.AccountID, Role: a.Role}
}

// Auditor records relayed actions.
type Auditor interface {
	Record(ctx context.Context, e models.AuditEntry) error
}

// authorize runs the gate for actor and maps its refusal to ErrForbidden.
func authorize(ctx context.Context, ag *policy.AuthGate, a Actor, action gate.Action, resourceType string, resource any) error {
	if err := ag.Gate.Authorize(ctx, a.subject(), action, resourceType, resource); err != nil {
		return fmt.Errorf("%w: %s cannot %s %s", ErrForbidden, a.Role, action, resourceType)
	}
	return nil
}

// record appends to the audit trail. The store logs its own failures and
// the action already relayed stands.
func record(ctx context.Context, au Auditor, a Actor, e models.AuditEntry, err error) {
	if au == nil {
		return
	}
	e.SessionID = a.SessionID
	e.AccountID = a.AccountID
	e.Role = a.Role
	switch {
	case err == nil:
		e.Outcome = models.OutcomeOK
	case errors.Is(err, ErrForbidden), isViolation(err):
		e.Outcome = models.OutcomeRejected
	default:
		e.Outcome = models.OutcomeFailed
	}
	_ = au.Record(ctx, e)
}

func find[T any](items []T, id func(T) string, want string) (T, bool) {
	for _, it := range items {
		if id(it) == want {
			return it, true
		}
	}
	var zero T
	return zero, false
}
