package workflow

import (
	"fmt"
	"sync"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// Action is the verb a caller uses to request a transition.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionFulfil   Action = "fulfil"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionBlock    Action = "block"
)

var actionTargets = map[Action]models.Status{
	ActionApprove:  models.StatusApproved,
	ActionReject:   models.StatusRejected,
	ActionFulfil:   models.StatusFulfilled,
	ActionComplete: models.StatusCompleted,
	ActionCancel:   models.StatusCancelled,
	ActionBlock:    models.StatusBlocked,
}

// ParseAction maps a verb (including the spellings "fulfill" and
// "fulfilled") to its action.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "fulfill", "fulfilled":
		return ActionFulfil, true
	}
	a := Action(s)
	_, ok := actionTargets[a]
	return a, ok
}

// Target is the status an action moves to.
func (a Action) Target() models.Status { return actionTargets[a] }

// Creation is the starting state of a newly issued entity.
type Creation struct {
	Status       models.Status `json:"status"`
	AutoRejected bool          `json:"autoRejected"`
	Reason       string        `json:"reason,omitempty"`
}

// AutoRejectReason is shown when a request is refused for lack of stock.
const AutoRejectReason = "automatically rejected: the organisation has no available stock of %s"

// InitialStatus returns the status an entity of kind k starts in. Blood and
// donation requests raised against an organisation with no stock of the
// group start rejected, flagged as an automatic rejection.
func (m *Machine) InitialStatus(k Kind, group models.BloodGroup, availableMl int) (Creation, error) {
	t, ok := m.tables[k]
	if !ok {
		return Creation{}, &PolicyViolation{Kind: k, Reason: fmt.Sprintf("unknown entity kind %q", k)}
	}
	if (k == BloodRequest || k == DonationRequest) && availableMl <= 0 {
		return Creation{
			Status:       models.StatusRejected,
			AutoRejected: true,
			Reason:       fmt.Sprintf(AutoRejectReason, group),
		}, nil
	}
	return Creation{Status: t.Initial}, nil
}

// CanDelete checks the deletion rule: organisations may remove their own
// pending camps and active emergency requests, nothing else.
func (m *Machine) CanDelete(k Kind, status models.Status, actor models.Role, owner bool) error {
	v := &PolicyViolation{Kind: k, From: status, Actor: actor}
	switch {
	case k != Camp && k != EmergencyRequest:
		v.Reason = fmt.Sprintf("a %s cannot be deleted", k.Label())
	case actor != models.RoleOrganisation:
		v.Reason = fmt.Sprintf("only the owning organisation can delete a %s", k.Label())
	case !owner:
		v.Reason = fmt.Sprintf("this %s belongs to another organisation", k.Label())
	case k == Camp && status != models.StatusPending:
		v.Reason = fmt.Sprintf("only pending camps can be deleted, this one is %s", status)
	case k == EmergencyRequest && status != models.StatusActive:
		v.Reason = fmt.Sprintf("only active emergency requests can be deleted, this one is %s", status)
	default:
		return nil
	}
	return v
}

// BroadcastGuard makes the emergency broadcast happen at most once per
// request id.
type BroadcastGuard struct {
	mu   sync.Mutex
	sent map[string]bool
}

func NewBroadcastGuard() *BroadcastGuard {
	return &BroadcastGuard{sent: map[string]bool{}}
}

// Seed records requests the backend already reports as broadcast.
func (g *BroadcastGuard) Seed(reqs []models.EmergencyRequest) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range reqs {
		if r.BroadcastSent && r.ID != "" {
			g.sent[r.ID] = true
		}
	}
}

// MarkBroadcast returns true the first time it is called for id and false
// afterwards.
func (g *BroadcastGuard) MarkBroadcast(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id == "" || g.sent[id] {
		return false
	}
	g.sent[id] = true
	return true
}

// Sent reports whether id was already broadcast.
func (g *BroadcastGuard) Sent(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sent[id]
}
