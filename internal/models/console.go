package models

import "time"

// ConsoleSession is a signed-in browser session. The backend bearer token is
// stored sealed, never in clear.
type ConsoleSession struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AccountID   string    `gorm:"size:64;index;not null" json:"account_id"`
	Role        Role      `gorm:"size:20;not null" json:"role"`
	Email       string    `gorm:"size:255" json:"email"`
	DisplayName string    `gorm:"size:255" json:"display_name,omitempty"`
	SealedToken []byte    `gorm:"not null" json:"-"`
	ExpiresAt   time.Time `gorm:"index" json:"expires_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s ConsoleSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// StockThreshold is the minimum stock (ml) below which a group is flagged low
// for one organisation. OrganisationID "*" holds the defaults.
type StockThreshold struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	OrganisationID string     `gorm:"size:64;not null;uniqueIndex:idx_threshold_org_group" json:"organisation_id"`
	BloodGroup     BloodGroup `gorm:"size:4;not null;uniqueIndex:idx_threshold_org_group" json:"blood_group"`
	MinMl          int        `gorm:"not null;default:0" json:"min_ml"`
}

// DefaultThresholdOwner is the OrganisationID of the fallback thresholds.
const DefaultThresholdOwner = "*"

// AuditEntry records a workflow action relayed to the backend.
type AuditEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	SessionID  string    `gorm:"size:36;index" json:"session_id"`
	AccountID  string    `gorm:"size:64;index" json:"account_id"`
	Role       Role      `gorm:"size:20" json:"role"`
	EntityType string    `gorm:"size:40;not null" json:"entity_type"`
	EntityID   string    `gorm:"size:64;index" json:"entity_id"`
	Action     string    `gorm:"size:40;not null" json:"action"`
	FromStatus Status    `gorm:"size:20" json:"from_status,omitempty"`
	ToStatus   Status    `gorm:"size:20" json:"to_status,omitempty"`
	Notes      string    `gorm:"size:1000" json:"notes,omitempty"`
	Outcome    string    `gorm:"size:20;not null" json:"outcome"`
}

// Audit outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)
