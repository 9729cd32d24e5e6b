package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/policy"
	"github.com/diewo77/go-bloodbank/internal/workflow"
	"github.com/diewo77/go-bloodbank/validation"
)

// CampForm is what an organisation submits to propose or edit a camp.
type CampForm struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Date           string   `json:"date"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`
	Location       string   `json:"location"`
	City           string   `json:"city"`
	BloodGroups    []string `json:"bloodGroups"`
	ExpectedDonors int      `json:"expectedDonors"`
	ContactPerson  string   `json:"contactPerson"`
	ContactPhone   string   `json:"contactPhone"`
	ContactEmail   string   `json:"contactEmail"`
	Facilities     []string `json:"facilities"`
	Requirements   []string `json:"requirements"`
}

const (
	campDateLayout = "2006-01-02"
	campTimeLayout = "15:04"
)

// validate checks a camp form against today's date and returns the backend
// body.
func (f CampForm) validate(today time.Time) (backend.CampInput, error) {
	v := validation.Violations{}
	validation.Required("name", f.Name, v)
	validation.Required("location", f.Location, v)
	validation.Required("city", f.City, v)
	validation.Required("date", f.Date, v)
	if f.Date != "" {
		d, err := time.Parse(campDateLayout, f.Date)
		switch {
		case err != nil:
			v.Add("date", "invalid_date")
		case d.Before(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)):
			v.Add("date", "in_past")
		}
	}
	validation.Required("startTime", f.StartTime, v)
	validation.Required("endTime", f.EndTime, v)
	start, errS := time.Parse(campTimeLayout, f.StartTime)
	end, errE := time.Parse(campTimeLayout, f.EndTime)
	if f.StartTime != "" && errS != nil {
		v.Add("startTime", "invalid_time")
	}
	if f.EndTime != "" && errE != nil {
		v.Add("endTime", "invalid_time")
	}
	if errS == nil && errE == nil && !end.After(start) {
		v.Add("endTime", "before_start")
	}
	groups := make([]models.BloodGroup, 0, len(f.BloodGroups))
	for _, g := range f.BloodGroups {
		if bg := validation.BloodGroup("bloodGroups", g, v); bg != "" {
			groups = append(groups, bg)
		}
	}
	if len(f.BloodGroups) == 0 {
		v.Add("bloodGroups", "required")
	}
	if f.ExpectedDonors < 0 {
		v.Add("expectedDonors", "out_of_range")
	}
	if f.ContactEmail != "" {
		validation.Email("contactEmail", f.ContactEmail, v)
	}
	if err := v.Err(); err != nil {
		return backend.CampInput{}, err
	}
	return backend.CampInput{
		Name:           strings.TrimSpace(f.Name),
		Description:    strings.TrimSpace(f.Description),
		Date:           f.Date,
		StartTime:      f.StartTime,
		EndTime:        f.EndTime,
		Location:       strings.TrimSpace(f.Location),
		City:           strings.TrimSpace(f.City),
		BloodGroups:    groups,
		ExpectedDonors: f.ExpectedDonors,
		ContactPerson:  strings.TrimSpace(f.ContactPerson),
		ContactPhone:   strings.TrimSpace(f.ContactPhone),
		ContactEmail:   strings.TrimSpace(f.ContactEmail),
		Facilities:     f.Facilities,
		Requirements:   f.Requirements,
	}, nil
}

// CreateCamp proposes a camp. It starts pending until an admin approves it.
func (s *RequestService) CreateCamp(ctx context.Context, a Actor, f CampForm, today time.Time) (string, error) {
	in, err := f.validate(today)
	if err != nil {
		return "", err
	}
	if err := authorize(ctx, s.gate, a, gate.ActionCreate, policy.ResCamp, nil); err != nil {
		return "", err
	}
	msg, err := a.API.CreateCamp(ctx, in)
	entry := models.AuditEntry{EntityType: string(workflow.Camp), Action: string(gate.ActionCreate), Notes: in.Name}
	if t, ok := s.machine.Table(workflow.Camp); ok && err == nil {
		entry.ToStatus = t.Initial
	}
	record(ctx, s.audit, a, entry, err)
	return msg, err
}

// UpdateCamp edits a camp the organisation owns while it is not settled.
func (s *RequestService) UpdateCamp(ctx context.Context, a Actor, id string, f CampForm, today time.Time) (string, error) {
	in, err := f.validate(today)
	if err != nil {
		return "", err
	}
	entry := models.AuditEntry{EntityType: string(workflow.Camp), EntityID: id, Action: string(gate.ActionUpdate)}
	msg, err := s.updateCamp(ctx, a, id, in, &entry)
	record(ctx, s.audit, a, entry, err)
	return msg, err
}

func (s *RequestService) updateCamp(ctx context.Context, a Actor, id string, in backend.CampInput, entry *models.AuditEntry) (string, error) {
	if err := authorize(ctx, s.gate, a, gate.ActionUpdate, policy.ResCamp, nil); err != nil {
		return "", err
	}
	c, err := s.loadCamp(ctx, a, id)
	if err != nil {
		return "", err
	}
	entry.FromStatus = c.Status
	if err := authorize(ctx, s.gate, a, gate.ActionUpdate, policy.ResCamp, c); err != nil {
		return "", err
	}
	if s.machine.Terminal(workflow.Camp, c.Status) {
		return "", &workflow.PolicyViolation{Kind: workflow.Camp, From: c.Status, Actor: a.Role,
			Reason: "a " + string(c.Status) + " camp can no longer be edited"}
	}
	return a.API.UpdateCamp(ctx, id, in)
}
