package store

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// Audit is the append-only log of workflow actions relayed to the backend.
type Audit struct {
	db *gorm.DB
}

func NewAudit(db *gorm.DB) *Audit { return &Audit{db: db} }

// Record appends an entry. A failure is logged and returned; callers never
// roll back the backend action because of it.
func (a *Audit) Record(ctx context.Context, e models.AuditEntry) error {
	if err := a.db.WithContext(ctx).Create(&e).Error; err != nil {
		slog.ErrorContext(ctx, "audit record failed", "entity", e.EntityType, "entity_id", e.EntityID, "err", err)
		return err
	}
	return nil
}

// AuditFilter narrows List. Zero fields match everything.
type AuditFilter struct {
	AccountID string
	EntityID  string
	Limit     int
}

// List returns entries newest first.
func (a *Audit) List(ctx context.Context, f AuditFilter) ([]models.AuditEntry, error) {
	q := a.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if f.AccountID != "" {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.AuditEntry
	err := q.Limit(limit).Find(&out).Error
	return out, err
}
