// Package store persists what the console owns: signed-in sessions, stock
// thresholds and the audit trail of relayed workflow actions.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// ErrSessionNotFound covers unknown, deleted and expired sessions.
var ErrSessionNotFound = errors.New("store: session not found")

// Session is a console session with its bearer token unsealed.
type Session struct {
	models.ConsoleSession
	Token string
}

// NewSession describes a session to open after a successful login.
type NewSession struct {
	AccountID   string
	Role        models.Role
	Email       string
	DisplayName string
	Token       string
	// ExpiresAt defaults to now + ttl; a backend token expiring sooner wins.
	ExpiresAt time.Time
}

type Sessions struct {
	db     *gorm.DB
	sealer *Sealer
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(db *gorm.DB, sealer *Sealer, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{db: db, sealer: sealer, ttl: ttl, now: time.Now}
}

// Create stores a new session and returns it with a fresh uuid.
func (s *Sessions) Create(ctx context.Context, in NewSession) (*Session, error) {
	slog.DebugContext(ctx, "CreateSession", "account_id", in.AccountID, "role", string(in.Role))
	sealed, err := s.sealer.Seal(in.Token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	exp := now.Add(s.ttl)
	if !in.ExpiresAt.IsZero() && in.ExpiresAt.Before(exp) {
		exp = in.ExpiresAt
	}
	row := models.ConsoleSession{
		ID:          uuid.NewString(),
		AccountID:   in.AccountID,
		Role:        in.Role,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		SealedToken: sealed,
		ExpiresAt:   exp,
		LastSeenAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		slog.ErrorContext(ctx, "CreateSession failed", "err", err)
		return nil, err
	}
	return &Session{ConsoleSession: row, Token: in.Token}, nil
}

// Get loads a live session. Expired sessions are deleted on sight.
func (s *Sessions) Get(ctx context.Context, id string) (*Session, error) {
	var row models.ConsoleSession
	// unknown ids are routine and must not log as gorm errors
	res := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&row)
	if res.Error != nil {
		slog.ErrorContext(ctx, "GetSession failed", "err", res.Error)
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrSessionNotFound
	}
	if row.Expired(s.now()) {
		_ = s.Delete(ctx, id)
		return nil, ErrSessionNotFound
	}
	token, err := s.sealer.Open(row.SealedToken)
	if err != nil {
		return nil, err
	}
	return &Session{ConsoleSession: row, Token: token}, nil
}

// Touch records activity on a session.
func (s *Sessions) Touch(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&models.ConsoleSession{}).
		Where("id = ?", id).Update("last_seen_at", s.now()).Error
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	slog.DebugContext(ctx, "DeleteSession", "session_id", id)
	return s.db.WithContext(ctx).Delete(&models.ConsoleSession{}, "id = ?", id).Error
}

// DeleteAccount ends every session of an account, as when an admin blocks it.
// It returns the removed session ids.
func (s *Sessions) DeleteAccount(ctx context.Context, accountID string) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.ConsoleSession{}).
		Where("account_id = ?", accountID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := s.db.WithContext(ctx).Delete(&models.ConsoleSession{}, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// PurgeExpired removes expired sessions and returns how many went.
func (s *Sessions) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.ConsoleSession{})
	return res.RowsAffected, res.Error
}
