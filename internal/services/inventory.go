package services

import (
	"context"
	"strings"

	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/policy"
	"github.com/diewo77/go-bloodbank/internal/stats"
	"github.com/diewo77/go-bloodbank/validation"
)

// ThresholdReader provides low-stock thresholds.
type ThresholdReader interface {
	For(ctx context.Context, organisationID string) (stats.Thresholds, error)
}

// InventoryService reads stock and records ledger entries.
type InventoryService struct {
	gate       *policy.AuthGate
	thresholds ThresholdReader
	audit      Auditor
}

func NewInventoryService(ag *policy.AuthGate, th ThresholdReader, au Auditor) *InventoryService {
	return &InventoryService{gate: ag, thresholds: th, audit: au}
}

func (s *InventoryService) thresholdsFor(ctx context.Context, orgID string) stats.Thresholds {
	if s.thresholds == nil {
		return nil
	}
	th, err := s.thresholds.For(ctx, orgID)
	if err != nil {
		return nil
	}
	return th
}

// Stock returns the per-group stock the actor can see. Organisations get
// their stock derived from their own ledger; other roles read the backend
// summary.
func (s *InventoryService) Stock(ctx context.Context, a Actor, lowOnly bool) ([]stats.StockLevel, error) {
	if err := authorize(ctx, s.gate, a, gate.ActionList, policy.ResInventory, nil); err != nil {
		return nil, err
	}
	var levels []stats.StockLevel
	if a.Role == models.RoleOrganisation {
		records, err := a.API.Inventory(ctx)
		if err != nil {
			return nil, err
		}
		levels = stats.StockLevels(records, s.thresholdsFor(ctx, a.AccountID))
	} else {
		rows, err := a.API.StockSummary(ctx, lowOnly)
		if err != nil {
			return nil, err
		}
		levels = stats.StockFromSummary(rows, s.thresholdsFor(ctx, models.DefaultThresholdOwner))
	}
	if lowOnly {
		return stats.LowOnly(levels), nil
	}
	return levels, nil
}

// InventoryForm is a ledger entry submitted by an organisation. Entries are
// append-only: there is no edit or delete.
type InventoryForm struct {
	InventoryType string               `json:"inventoryType"`
	BloodGroup    string               `json:"bloodGroup"`
	Quantity      int                  `json:"quantity"`
	Email         string               `json:"email"`
	HospitalID    string               `json:"hospitalId"`
	DonorDetails  *backend.DonorDetails `json:"donorDetails"`
}

// Record appends an "in" (donation received) or "out" (issued to a
// hospital) entry. Issuing more than the derived stock is refused before
// the backend is called.
func (s *InventoryService) Record(ctx context.Context, a Actor, f InventoryForm) (string, error) {
	v := validation.Violations{}
	validation.OneOf("inventoryType", f.InventoryType, []string{string(models.InventoryIn), string(models.InventoryOut)}, v)
	group := validation.BloodGroup("bloodGroup", f.BloodGroup, v)
	validation.PositiveInt("quantity", f.Quantity, v)
	validation.Required("email", f.Email, v)
	validation.Email("email", f.Email, v)
	if err := v.Err(); err != nil {
		return "", err
	}
	if err := authorize(ctx, s.gate, a, gate.ActionCreate, policy.ResInventory, nil); err != nil {
		return "", err
	}
	typ := models.InventoryType(f.InventoryType)
	if typ == models.InventoryOut {
		records, err := a.API.Inventory(ctx)
		if err != nil {
			return "", err
		}
		if avail := stats.Available(stats.StockLevels(records, nil), group); f.Quantity > avail {
			v.Add("quantity", "insufficient_stock")
			return "", v
		}
	}
	msg, err := a.API.CreateInventory(ctx, backend.InventoryInput{
		Email:         strings.TrimSpace(f.Email),
		InventoryType: typ,
		BloodGroup:    group,
		Quantity:      f.Quantity,
		Organisation:  a.AccountID,
		HospitalID:    f.HospitalID,
		DonorDetails:  f.DonorDetails,
	})
	record(ctx, s.audit, a, models.AuditEntry{
		EntityType: policy.ResInventory,
		Action:     string(typ),
		Notes:      string(group),
	}, err)
	return msg, err
}
