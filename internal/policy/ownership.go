package policy

import (
	"context"

	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/internal/models"
)

// Ownable is a resource owned by one account.
type Ownable interface {
	OwnerID() string
}

// OwnershipPolicy allows an action only on resources the subject owns.
// Resources that are not Ownable are denied.
type OwnershipPolicy struct{}

func (OwnershipPolicy) Can(_ context.Context, s Subject, _ gate.Action, resource any) bool {
	o, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return o.OwnerID() != "" && o.OwnerID() == s.AccountID
}

// AdminBypass lets admins through and defers everyone else to inner.
type AdminBypass struct {
	Inner gate.Policy[Subject]
}

func (p AdminBypass) Can(ctx context.Context, s Subject, action gate.Action, resource any) bool {
	if s.Role == models.RoleAdmin {
		return true
	}
	return p.Inner.Can(ctx, s, action, resource)
}
