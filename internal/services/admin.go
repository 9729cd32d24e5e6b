package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/diewo77/go-bloodbank/gate"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/policy"
	"github.com/diewo77/go-bloodbank/internal/refresh"
	"github.com/diewo77/go-bloodbank/internal/store"
	"github.com/diewo77/go-bloodbank/validation"
)

// AdminService moderates accounts.
type AdminService struct {
	gate     *policy.AuthGate
	sessions *store.Sessions
	audit    Auditor
	ender    SessionEnder
}

func NewAdminService(ag *policy.AuthGate, sessions *store.Sessions, au Auditor) *AdminService {
	return &AdminService{gate: ag, sessions: sessions, audit: au}
}

// SetSessionEnder installs the hook run for every session of a blocked or
// deleted account.
func (s *AdminService) SetSessionEnder(e SessionEnder) { s.ender = e }

// Accounts lists one kind of account.
func (s *AdminService) Accounts(ctx context.Context, a Actor, list backend.AccountList) ([]models.AdminListEntry, error) {
	if err := authorize(ctx, s.gate, a, gate.ActionList, policy.ResAccount, nil); err != nil {
		return nil, err
	}
	return a.API.AdminAccounts(ctx, list)
}

// lookup finds an account in the three admin lists.
func (s *AdminService) lookup(ctx context.Context, a Actor, id string) (models.AdminListEntry, error) {
	for _, l := range []backend.AccountList{backend.DonorList, backend.HospitalList, backend.OrganisationList} {
		entries, err := a.API.AdminAccounts(ctx, l)
		if err != nil {
			return models.AdminListEntry{}, err
		}
		if e, ok := find(entries, func(e models.AdminListEntry) string { return e.ID }, id); ok {
			return e, nil
		}
	}
	return models.AdminListEntry{}, fmt.Errorf("%w: account %s", ErrNotFound, id)
}

// ToggleBlocked flips the blocked state of an account as the admin lists
// currently report it. It returns the new state.
func (s *AdminService) ToggleBlocked(ctx context.Context, a Actor, id string) (bool, string, error) {
	if err := authorize(ctx, s.gate, a, gate.ActionBlock, policy.ResAccount, nil); err != nil {
		return false, "", err
	}
	e, err := s.lookup(ctx, a, id)
	if err != nil {
		return false, "", err
	}
	blocked := !e.Blocked()
	msg, err := s.SetBlocked(ctx, a, id, blocked)
	return blocked, msg, err
}

// SetBlocked blocks or unblocks an account. Blocking ends every console
// session of the account at once, without waiting for the liveness check.
func (s *AdminService) SetBlocked(ctx context.Context, a Actor, id string, blocked bool) (string, error) {
	action := "unblock"
	if blocked {
		action = string(gate.ActionBlock)
	}
	entry := models.AuditEntry{EntityType: policy.ResAccount, EntityID: id, Action: action}
	msg, err := s.setBlocked(ctx, a, id, blocked)
	record(ctx, s.audit, a, entry, err)
	return msg, err
}

func (s *AdminService) setBlocked(ctx context.Context, a Actor, id string, blocked bool) (string, error) {
	if err := authorize(ctx, s.gate, a, gate.ActionBlock, policy.ResAccount, nil); err != nil {
		return "", err
	}
	if id == a.AccountID {
		return "", validation.Violations{"id": "cannot_block_self"}
	}
	msg, err := a.API.SetBlocked(ctx, id, blocked)
	if err != nil {
		return "", err
	}
	if blocked {
		s.endSessions(ctx, id, refresh.ReasonBlocked)
	}
	return msg, nil
}

// Delete removes an account of the given kind.
func (s *AdminService) Delete(ctx context.Context, a Actor, list backend.AccountList, id string) (string, error) {
	entry := models.AuditEntry{EntityType: policy.ResAccount, EntityID: id, Action: string(gate.ActionDelete), Notes: string(list)}
	msg, err := s.delete(ctx, a, id)
	record(ctx, s.audit, a, entry, err)
	return msg, err
}

func (s *AdminService) delete(ctx context.Context, a Actor, id string) (string, error) {
	if err := authorize(ctx, s.gate, a, gate.ActionDelete, policy.ResAccount, nil); err != nil {
		return "", err
	}
	if id == a.AccountID {
		return "", validation.Violations{"id": "cannot_delete_self"}
	}
	msg, err := a.API.DeleteAccount(ctx, id)
	if err != nil {
		return "", err
	}
	s.endSessions(ctx, id, ReasonDeleted)
	return msg, nil
}

func (s *AdminService) endSessions(ctx context.Context, accountID, reason string) {
	if s.gate != nil {
		s.gate.InvalidateAccount(accountID)
	}
	if s.sessions == nil {
		return
	}
	ids, err := s.sessions.DeleteAccount(ctx, accountID)
	if err != nil {
		slog.ErrorContext(ctx, "ending sessions failed", "account_id", accountID, "err", err)
		return
	}
	for _, id := range ids {
		if s.ender != nil {
			s.ender.EndSession(id, reason)
		}
	}
	if len(ids) > 0 {
		slog.InfoContext(ctx, "sessions ended", "account_id", accountID, "reason", reason, "count", len(ids))
	}
}

// AuditService reads the audit trail.
type AuditService struct {
	gate  *policy.AuthGate
	audit *store.Audit
}

func NewAuditService(ag *policy.AuthGate, au *store.Audit) *AuditService {
	return &AuditService{gate: ag, audit: au}
}

// List returns the actor's own entries; admins see everyone's.
func (s *AuditService) List(ctx context.Context, a Actor, entityID string, limit int) ([]models.AuditEntry, error) {
	if err := authorize(ctx, s.gate, a, gate.ActionList, policy.ResAudit, nil); err != nil {
		return nil, err
	}
	f := store.AuditFilter{EntityID: entityID, Limit: limit}
	if a.Role != models.RoleAdmin {
		f.AccountID = a.AccountID
	}
	return s.audit.List(ctx, f)
}
