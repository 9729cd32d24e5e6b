package services

import (
	"context"
	"fmt"

	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/policy"
	"github.com/diewo77/go-bloodbank/internal/stats"
	"github.com/diewo77/go-bloodbank/validation"
)

// ThresholdStore reads and writes low-stock thresholds.
type ThresholdStore interface {
	For(ctx context.Context, organisationID string) (stats.Thresholds, error)
	Set(ctx context.Context, organisationID string, values stats.Thresholds) error
}

// ThresholdService manages an organisation's low-stock thresholds. Admins
// manage the defaults.
type ThresholdService struct {
	gate  *policy.AuthGate
	store ThresholdStore
	audit Auditor
}

func NewThresholdService(ag *policy.AuthGate, st ThresholdStore, au Auditor) *ThresholdService {
	return &ThresholdService{gate: ag, store: st, audit: au}
}

func owner(a Actor) string {
	if a.Role == models.RoleAdmin {
		return models.DefaultThresholdOwner
	}
	return a.AccountID
}

func (s *ThresholdService) Get(ctx context.Context, a Actor) (stats.Thresholds, error) {
	if err := authorize(ctx, s.gate, a, gate.ActionView, policy.ResThreshold, nil); err != nil {
		return nil, err
	}
	return s.store.For(ctx, owner(a))
}

// Update sets the thresholds in values, keyed by blood group. Groups not
// mentioned keep their current value.
func (s *ThresholdService) Update(ctx context.Context, a Actor, values map[string]int) (stats.Thresholds, error) {
	v := validation.Violations{}
	th := stats.Thresholds{}
	for k, ml := range values {
		field := "thresholds." + k
		g := validation.BloodGroup(field, k, v)
		if ml < 0 {
			v.Add(field, "out_of_range")
		}
		if g != "" {
			th[g] = ml
		}
	}
	if len(values) == 0 {
		v.Add("thresholds", "required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := authorize(ctx, s.gate, a, gate.ActionUpdate, policy.ResThreshold, nil); err != nil {
		return nil, err
	}
	err := s.store.Set(ctx, owner(a), th)
	record(ctx, s.audit, a, models.AuditEntry{
		EntityType: policy.ResThreshold,
		EntityID:   owner(a),
		Action:     string(gate.ActionUpdate),
		Notes:      fmt.Sprint(map[models.BloodGroup]int(th)),
	}, err)
	if err != nil {
		return nil, err
	}
	return s.store.For(ctx, owner(a))
}
