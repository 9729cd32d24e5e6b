package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// DefaultMinMl is the seeded low-stock threshold of every blood group.
const DefaultMinMl = 500

// Seed inserts the default thresholds that are missing. Existing rows are
// left untouched so edits survive restarts.
func Seed(ctx context.Context, db *gorm.DB) error {
	for _, g := range models.AllBloodGroups {
		var existing models.StockThreshold
		err := db.WithContext(ctx).
			Where("organisation_id = ? AND blood_group = ?", models.DefaultThresholdOwner, g).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		row := models.StockThreshold{OrganisationID: models.DefaultThresholdOwner, BloodGroup: g, MinMl: DefaultMinMl}
		if err := db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
