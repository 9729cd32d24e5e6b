package store

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/stats"
)

type Thresholds struct {
	db *gorm.DB
}

func NewThresholds(db *gorm.DB) *Thresholds { return &Thresholds{db: db} }

// For returns the thresholds of an organisation, falling back per group to
// the defaults.
func (t *Thresholds) For(ctx context.Context, organisationID string) (stats.Thresholds, error) {
	slog.DebugContext(ctx, "ThresholdsFor", "organisation_id", organisationID)
	var rows []models.StockThreshold
	err := t.db.WithContext(ctx).
		Where("organisation_id IN ?", []string{models.DefaultThresholdOwner, organisationID}).
		Find(&rows).Error
	if err != nil {
		slog.ErrorContext(ctx, "ThresholdsFor failed", "err", err)
		return nil, err
	}
	out := stats.Thresholds{}
	for _, r := range rows {
		if r.OrganisationID == models.DefaultThresholdOwner {
			out[r.BloodGroup] = r.MinMl
		}
	}
	for _, r := range rows {
		if r.OrganisationID == organisationID {
			out[r.BloodGroup] = r.MinMl
		}
	}
	return out, nil
}

// Set upserts an organisation's thresholds. Unknown groups and negative
// values are rejected before anything is written.
func (t *Thresholds) Set(ctx context.Context, organisationID string, values stats.Thresholds) error {
	rows := make([]models.StockThreshold, 0, len(values))
	for g, v := range values {
		if !g.Valid() {
			return fmt.Errorf("unknown blood group %q", g)
		}
		if v < 0 {
			return fmt.Errorf("negative threshold for %s", g)
		}
		rows = append(rows, models.StockThreshold{OrganisationID: organisationID, BloodGroup: g, MinMl: v})
	}
	if len(rows) == 0 {
		return nil
	}
	slog.DebugContext(ctx, "SetThresholds", "organisation_id", organisationID, "count", len(rows))
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organisation_id"}, {Name: "blood_group"}},
		DoUpdates: clause.AssignmentColumns([]string{"min_ml", "updated_at"}),
	}).Create(&rows).Error
}
