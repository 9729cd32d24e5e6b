package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/policy"
	"github.com/diewo77/go-bloodbank/internal/workflow"
	"github.com/diewo77/go-bloodbank/validation"
)

// RequestService creates and moves blood requests, donation requests,
// emergency requests and camps through their lifecycles.
type RequestService struct {
	machine    *workflow.Machine
	gate       *policy.AuthGate
	audit      Auditor
	broadcasts *workflow.BroadcastGuard
}

func NewRequestService(m *workflow.Machine, ag *policy.AuthGate, au Auditor, guard *workflow.BroadcastGuard) *RequestService {
	if m == nil {
		m = workflow.Default
	}
	if guard == nil {
		guard = workflow.NewBroadcastGuard()
	}
	return &RequestService{machine: m, gate: ag, audit: au, broadcasts: guard}
}

// Broadcasts is the guard shared with the dashboards.
func (s *RequestService) Broadcasts() *workflow.BroadcastGuard { return s.broadcasts }

func isViolation(err error) bool {
	var v validation.Violations
	return errors.Is(err, workflow.ErrPolicyViolation) || errors.As(err, &v)
}

// Outcome is the result of creating a request.
type Outcome[T any] struct {
	Item         T             `json:"item"`
	Status       models.Status `json:"status"`
	AutoRejected bool          `json:"autoRejected"`
	Message      string        `json:"message"`
}

// BloodRequestForm is what a hospital submits.
type BloodRequestForm struct {
	OrganisationID string `json:"organisationId"`
	BloodGroup     string `json:"bloodGroup"`
	Quantity       int    `json:"quantity"`
	Reason         string `json:"reason"`
}

// DonationRequestForm is what a donor submits.
type DonationRequestForm struct {
	OrganisationID string `json:"organisationId"`
	BloodGroup     string `json:"bloodGroup"`
	Quantity       int    `json:"quantity"`
	Message        string `json:"message"`
}

// availability reads the organisation's stock of group from an
// organisation list. ok is false when the stock is unknown.
func availability(orgs []models.Organisation, orgID string, group models.BloodGroup) (int, bool) {
	org, found := find(orgs, func(o models.Organisation) string { return o.ID }, orgID)
	if !found || org.Availability == nil {
		return 0, false
	}
	ml, ok := org.Availability[group]
	return ml, ok
}

// settle merges the backend's answer with the locally predicted creation.
// A request is auto-rejected when either the backend says so or the known
// stock of the group is zero; otherwise the prediction only fills a missing
// status.
func settle[T any](created *backend.Created[T], status models.Status, predicted *workflow.Creation) Outcome[T] {
	out := Outcome[T]{Item: created.Item, Status: status, AutoRejected: created.AutoRejected, Message: created.Message}
	if predicted != nil {
		if out.Status == "" {
			out.Status = predicted.Status
		}
		if predicted.AutoRejected && !out.AutoRejected {
			out.AutoRejected = true
			out.Message = predicted.Reason
		}
	}
	if out.AutoRejected {
		out.Status = models.StatusRejected
		if out.Message == "" && predicted != nil {
			out.Message = predicted.Reason
		}
	}
	if out.Status == "" {
		out.Status = models.StatusPending
	}
	return out
}

func (s *RequestService) predict(ctx context.Context, k workflow.Kind, orgs []models.Organisation, err error, orgID string, group models.BloodGroup) *workflow.Creation {
	if err != nil {
		slog.DebugContext(ctx, "organisation stock unknown", "kind", string(k), "organisation", orgID, "err", err)
		return nil
	}
	ml, ok := availability(orgs, orgID, group)
	if !ok {
		return nil
	}
	c, err := s.machine.InitialStatus(k, group, ml)
	if err != nil {
		return nil
	}
	return &c
}

// CreateBloodRequest files a hospital's request for blood.
func (s *RequestService) CreateBloodRequest(ctx context.Context, a Actor, f BloodRequestForm) (*Outcome[models.BloodRequest], error) {
	v := validation.Violations{}
	validation.Required("organisationId", f.OrganisationID, v)
	group := validation.BloodGroup("bloodGroup", f.BloodGroup, v)
	validation.PositiveInt("quantity", f.Quantity, v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.gate, a, gate.ActionCreate, policy.ResBloodRequest, nil); err != nil {
		return nil, err
	}

	orgs, err := a.API.Organisations(ctx)
	predicted := s.predict(ctx, workflow.BloodRequest, orgs, err, f.OrganisationID, group)

	created, err := a.API.CreateBloodRequest(ctx, backend.BloodRequestInput{
		OrganisationID: f.OrganisationID,
		BloodGroup:     group,
		Quantity:       f.Quantity,
		Reason:         strings.TrimSpace(f.Reason),
	})
	entry := models.AuditEntry{EntityType: string(workflow.BloodRequest), Action: string(gate.ActionCreate)}
	if err != nil {
		record(ctx, s.audit, a, entry, err)
		return nil, err
	}
	out := settle(created, created.Item.Status, predicted)
	out.Item.Status = out.Status
	entry.EntityID, entry.ToStatus = out.Item.ID, out.Status
	record(ctx, s.audit, a, entry, nil)
	return &out, nil
}

// CreateDonationRequest files a donor's offer to donate.
func (s *RequestService) CreateDonationRequest(ctx context.Context, a Actor, f DonationRequestForm) (*Outcome[models.DonationRequest], error) {
	v := validation.Violations{}
	validation.Required("organisationId", f.OrganisationID, v)
	group := validation.BloodGroup("bloodGroup", f.BloodGroup, v)
	if f.Quantity < 0 {
		v.Add("quantity", "out_of_range")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.gate, a, gate.ActionCreate, policy.ResDonationRequest, nil); err != nil {
		return nil, err
	}

	orgs, err := a.API.DonationOrganisations(ctx)
	predicted := s.predict(ctx, workflow.DonationRequest, orgs, err, f.OrganisationID, group)

	created, err := a.API.CreateDonationRequest(ctx, backend.DonationRequestInput{
		OrganisationID: f.OrganisationID,
		BloodGroup:     group,
		Quantity:       f.Quantity,
		Message:        strings.TrimSpace(f.Message),
	})
	entry := models.AuditEntry{EntityType: string(workflow.DonationRequest), Action: string(gate.ActionCreate)}
	if err != nil {
		record(ctx, s.audit, a, entry, err)
		return nil, err
	}
	out := settle(created, created.Item.Status, predicted)
	out.Item.Status = out.Status
	entry.EntityID, entry.ToStatus = out.Item.ID, out.Status
	record(ctx, s.audit, a, entry, nil)
	return &out, nil
}

// EmergencyForm is what an organisation submits to raise an emergency.
type EmergencyForm struct {
	BloodGroup    string `json:"bloodGroup"`
	Quantity      int    `json:"quantity"`
	Urgency       string `json:"urgency"`
	Reason        string `json:"reason"`
	Location      string `json:"location"`
	City          string `json:"city"`
	ContactPerson string `json:"contactPerson"`
	ContactPhone  string `json:"contactPhone"`
}

var urgencies = []string{string(models.UrgencyHigh), string(models.UrgencyCritical), string(models.UrgencyEmergency)}

// EmergencyOutcome reports a created emergency request. Broadcast is true
// only the first time the console sees the request broadcast.
type EmergencyOutcome struct {
	Item      models.EmergencyRequest `json:"item"`
	Broadcast bool                    `json:"broadcast"`
	Message   string                  `json:"message"`
}

// CreateEmergency raises an emergency request. The backend notifies the
// eligible donors; the console marks the broadcast once per request.
func (s *RequestService) CreateEmergency(ctx context.Context, a Actor, f EmergencyForm) (*EmergencyOutcome, error) {
	v := validation.Violations{}
	group := validation.BloodGroup("bloodGroup", f.BloodGroup, v)
	validation.PositiveInt("quantity", f.Quantity, v)
	validation.Required("urgency", f.Urgency, v)
	validation.OneOf("urgency", f.Urgency, urgencies, v)
	validation.Required("reason", f.Reason, v)
	validation.Required("location", f.Location, v)
	validation.Required("city", f.City, v)
	validation.Required("contactPerson", f.ContactPerson, v)
	validation.Required("contactPhone", f.ContactPhone, v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.gate, a, gate.ActionCreate, policy.ResEmergencyRequest, nil); err != nil {
		return nil, err
	}

	created, err := a.API.CreateEmergency(ctx, backend.EmergencyInput{
		BloodGroup:    group,
		Quantity:      f.Quantity,
		Urgency:       models.Urgency(f.Urgency),
		Reason:        strings.TrimSpace(f.Reason),
		Location:      strings.TrimSpace(f.Location),
		City:          strings.TrimSpace(f.City),
		ContactPerson: strings.TrimSpace(f.ContactPerson),
		ContactPhone:  strings.TrimSpace(f.ContactPhone),
	})
	entry := models.AuditEntry{EntityType: string(workflow.EmergencyRequest), Action: string(gate.ActionCreate)}
	if err != nil {
		record(ctx, s.audit, a, entry, err)
		return nil, err
	}
	item := created.Item
	if item.Status == "" {
		if c, err := s.machine.InitialStatus(workflow.EmergencyRequest, group, 0); err == nil {
			item.Status = c.Status
		}
	}
	out := &EmergencyOutcome{Item: item, Message: created.Message}
	if out.Broadcast = s.broadcasts.MarkBroadcast(item.ID); out.Broadcast {
		slog.InfoContext(ctx, "emergency broadcast", "id", item.ID, "blood_group", string(group),
			"urgency", f.Urgency, "eligible_donors", len(item.EligibleDonors))
	}
	entry.EntityID, entry.ToStatus = item.ID, item.Status
	record(ctx, s.audit, a, entry, nil)
	return out, nil
}

// TransitionResult reports an accepted status change.
type TransitionResult struct {
	Kind    workflow.Kind `json:"kind"`
	ID      string        `json:"id"`
	From    models.Status `json:"from"`
	To      models.Status `json:"to"`
	Message string        `json:"message"`
}

// entity is a loaded request-like record.
type entity struct {
	status   models.Status
	resource any
}

// load finds id in the lists the actor's role can see. Those lists are
// already scoped to the actor by the backend, so an organisation owns what
// its own lists return even when the owner reference is not populated.
func (s *RequestService) load(ctx context.Context, a Actor, k workflow.Kind, id string) (entity, error) {
	switch k {
	case workflow.BloodRequest:
		var reqs []models.BloodRequest
		var err error
		if a.Role == models.RoleHospital {
			reqs, _, err = a.API.HospitalRequests(ctx)
		} else {
			reqs, err = a.API.OrganisationRequests(ctx)
		}
		if err != nil {
			return entity{}, err
		}
		if r, ok := find(reqs, func(r models.BloodRequest) string { return r.ID }, id); ok {
			return entity{r.Status, r}, nil
		}
	case workflow.DonationRequest:
		var reqs []models.DonationRequest
		var err error
		if a.Role == models.RoleDonor {
			reqs, err = a.API.DonorDonationRequests(ctx)
		} else {
			reqs, err = a.API.OrganisationDonationRequests(ctx)
		}
		if err != nil {
			return entity{}, err
		}
		if r, ok := find(reqs, func(r models.DonationRequest) string { return r.ID }, id); ok {
			return entity{r.Status, r}, nil
		}
	case workflow.EmergencyRequest:
		var reqs []models.EmergencyRequest
		var err error
		if a.Role == models.RoleAdmin {
			reqs, err = a.API.AllEmergencies(ctx)
		} else {
			reqs, err = a.API.OrganisationEmergencies(ctx)
		}
		if err != nil {
			return entity{}, err
		}
		if r, ok := find(reqs, func(r models.EmergencyRequest) string { return r.ID }, id); ok {
			if r.Organisation.ID == "" && a.Role == models.RoleOrganisation {
				r.Organisation.ID = a.AccountID
			}
			return entity{r.Status, r}, nil
		}
	case workflow.Camp:
		c, err := s.loadCamp(ctx, a, id)
		if err != nil {
			return entity{}, err
		}
		return entity{c.Status, c}, nil
	default:
		return entity{}, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	return entity{}, fmt.Errorf("%w: %s %s", ErrNotFound, k.Label(), id)
}

func (s *RequestService) loadCamp(ctx context.Context, a Actor, id string) (models.Camp, error) {
	byID := func(c models.Camp) string { return c.ID }
	if a.Role != models.RoleAdmin {
		camps, err := a.API.OrganisationCamps(ctx)
		if err != nil {
			return models.Camp{}, err
		}
		if c, ok := find(camps, byID, id); ok {
			if c.Organisation.ID == "" {
				c.Organisation.ID = a.AccountID
			}
			return c, nil
		}
		return models.Camp{}, fmt.Errorf("%w: camp %s", ErrNotFound, id)
	}
	pending, err := a.API.PendingCamps(ctx)
	if err != nil {
		return models.Camp{}, err
	}
	if c, ok := find(pending, byID, id); ok {
		return c, nil
	}
	for page := 1; ; page++ {
		p, err := a.API.AllCamps(ctx, page, "")
		if err != nil {
			return models.Camp{}, err
		}
		if c, ok := find(p.Camps, byID, id); ok {
			return c, nil
		}
		if len(p.Camps) == 0 || page >= p.Pagination.Pages {
			return models.Camp{}, fmt.Errorf("%w: camp %s", ErrNotFound, id)
		}
	}
}

// Transition applies action to entity id of kind k. The current status is
// read from the backend, never trusted from the browser.
func (s *RequestService) Transition(ctx context.Context, a Actor, k workflow.Kind, id string, action workflow.Action, notes string) (*TransitionResult, error) {
	notes = strings.TrimSpace(notes)
	entry := models.AuditEntry{EntityType: string(k), EntityID: id, Action: string(action), Notes: notes}
	res, err := s.transition(ctx, a, k, id, action, notes, &entry)
	record(ctx, s.audit, a, entry, err)
	return res, err
}

func (s *RequestService) transition(ctx context.Context, a Actor, k workflow.Kind, id string, action workflow.Action, notes string, entry *models.AuditEntry) (*TransitionResult, error) {
	to := action.Target()
	if to == "" {
		return nil, &workflow.PolicyViolation{Kind: k, Actor: a.Role, Reason: fmt.Sprintf("unknown action %q", action)}
	}
	entry.ToStatus = to
	if err := authorize(ctx, s.gate, a, gate.Action(action), string(k), nil); err != nil {
		return nil, err
	}
	cur, err := s.load(ctx, a, k, id)
	if err != nil {
		return nil, err
	}
	entry.FromStatus = cur.status
	if err := authorize(ctx, s.gate, a, gate.Action(action), string(k), cur.resource); err != nil {
		return nil, err
	}
	if err := s.machine.Validate(k, cur.status, to, a.Role); err != nil {
		return nil, err
	}

	msg, err := s.relay(ctx, a, k, id, action, to, notes)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "transition relayed", "kind", string(k), "id", id, "from", string(cur.status), "to", string(to), "role", string(a.Role))
	return &TransitionResult{Kind: k, ID: id, From: cur.status, To: to, Message: msg}, nil
}

func (s *RequestService) relay(ctx context.Context, a Actor, k workflow.Kind, id string, action workflow.Action, to models.Status, notes string) (string, error) {
	switch k {
	case workflow.BloodRequest:
		switch action {
		case workflow.ActionApprove:
			return a.API.ApproveBloodRequest(ctx, id)
		case workflow.ActionReject:
			return a.API.RejectBloodRequest(ctx, id, notes)
		case workflow.ActionFulfil:
			return a.API.FulfilBloodRequest(ctx, id)
		}
	case workflow.DonationRequest:
		return a.API.UpdateDonationRequestStatus(ctx, id, to, notes)
	case workflow.EmergencyRequest:
		if action == workflow.ActionFulfil {
			return a.API.FulfilEmergency(ctx, id, notes)
		}
		return a.API.UpdateEmergencyStatus(ctx, id, to, notes)
	case workflow.Camp:
		return a.API.UpdateCampStatus(ctx, id, to, notes)
	}
	return "", &workflow.PolicyViolation{Kind: k, To: to, Actor: a.Role, Reason: fmt.Sprintf("no backend action for %s on a %s", action, k.Label())}
}

// Delete removes a camp or an emergency request.
func (s *RequestService) Delete(ctx context.Context, a Actor, k workflow.Kind, id string) (string, error) {
	entry := models.AuditEntry{EntityType: string(k), EntityID: id, Action: string(gate.ActionDelete)}
	msg, err := s.delete(ctx, a, k, id, &entry)
	record(ctx, s.audit, a, entry, err)
	return msg, err
}

func (s *RequestService) delete(ctx context.Context, a Actor, k workflow.Kind, id string, entry *models.AuditEntry) (string, error) {
	if k != workflow.Camp && k != workflow.EmergencyRequest {
		return "", s.machine.CanDelete(k, "", a.Role, false)
	}
	if err := authorize(ctx, s.gate, a, gate.ActionDelete, string(k), nil); err != nil {
		return "", err
	}
	cur, err := s.load(ctx, a, k, id)
	if err != nil {
		return "", err
	}
	entry.FromStatus = cur.status
	owner := s.gate.Gate.Check(ctx, a.subject(), gate.ActionDelete, string(k), cur.resource) == nil
	if err := s.machine.CanDelete(k, cur.status, a.Role, owner && a.Role == models.RoleOrganisation); err != nil {
		return "", err
	}
	if k == workflow.Camp {
		return a.API.DeleteCamp(ctx, id)
	}
	return a.API.DeleteEmergency(ctx, id)
}
