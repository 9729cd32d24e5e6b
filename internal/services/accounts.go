package services

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/diewo77/go-bloodbank/auth"
	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/policy"
	"github.com/diewo77/go-bloodbank/internal/refresh"
	"github.com/diewo77/go-bloodbank/internal/store"
	"github.com/diewo77/go-bloodbank/validation"
)

// SessionEnder tears down the live state of a console session: refresh
// tasks, open sockets.
type SessionEnder interface {
	EndSession(sessionID, reason string)
}

// Logout reasons besides the liveness ones.
const (
	ReasonLogout  = "logout"
	ReasonDeleted = "deleted"
)

// AccountService signs accounts in and out and relays the public auth flows.
type AccountService struct {
	api      *backend.Client
	sessions *store.Sessions
	gate     *policy.AuthGate
	ender    SessionEnder
}

func NewAccountService(api *backend.Client, sessions *store.Sessions, ag *policy.AuthGate) *AccountService {
	return &AccountService{api: api, sessions: sessions, gate: ag}
}

// SetSessionEnder installs the hook run on logout.
func (s *AccountService) SetSessionEnder(e SessionEnder) { s.ender = e }

// RegisterForm is the sign-up form. Fields not used by the chosen role are
// ignored.
type RegisterForm struct {
	Role             string  `json:"role"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Password         string  `json:"password"`
	OrganisationName string  `json:"organisationName"`
	HospitalName     string  `json:"hospitalName"`
	Website          string  `json:"website"`
	Address          string  `json:"address"`
	City             string  `json:"city"`
	Phone            string  `json:"phone"`
	Age              int     `json:"age"`
	Gender           string  `json:"gender"`
	Weight           float64 `json:"weight"`
	BloodGroup       string  `json:"bloodGroup"`
}

var genders = []string{"male", "female", "other"}

// Validate checks the form without any network call.
func (f RegisterForm) Validate() (backend.RegisterInput, error) {
	v := validation.Violations{}
	role := validation.Role("role", f.Role, v)
	validation.Required("email", f.Email, v)
	validation.Email("email", f.Email, v)
	validation.Required("password", f.Password, v)
	validation.MinLen("password", f.Password, validation.MinPasswordLen, v)
	validation.Required("address", f.Address, v)
	validation.Required("phone", f.Phone, v)

	in := backend.RegisterInput{
		Role:     role,
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
		Website:  strings.TrimSpace(f.Website),
		Address:  strings.TrimSpace(f.Address),
		City:     strings.TrimSpace(f.City),
		Phone:    strings.TrimSpace(f.Phone),
	}
	switch role {
	case models.RoleDonor:
		validation.Required("name", f.Name, v)
		validation.MinInt("age", f.Age, validation.MinDonorAge, v)
		in.BloodGroup = validation.BloodGroup("bloodGroup", f.BloodGroup, v)
		validation.Required("gender", f.Gender, v)
		validation.OneOf("gender", strings.ToLower(f.Gender), genders, v)
		if f.Weight != 0 {
			validation.PositiveFloat("weight", f.Weight, v)
		}
		in.Name, in.Age, in.Gender, in.Weight = strings.TrimSpace(f.Name), f.Age, strings.ToLower(f.Gender), f.Weight
	case models.RoleAdmin:
		validation.Required("name", f.Name, v)
		in.Name = strings.TrimSpace(f.Name)
	case models.RoleHospital:
		validation.Required("hospitalName", f.HospitalName, v)
		in.HospitalName = strings.TrimSpace(f.HospitalName)
	case models.RoleOrganisation:
		validation.Required("organisationName", f.OrganisationName, v)
		in.OrganisationName = strings.TrimSpace(f.OrganisationName)
	}
	if err := v.Err(); err != nil {
		return backend.RegisterInput{}, err
	}
	return in, nil
}

// Register creates an account; the backend emails a verification link.
func (s *AccountService) Register(ctx context.Context, f RegisterForm) (string, error) {
	in, err := f.Validate()
	if err != nil {
		return "", err
	}
	return s.api.Register(ctx, in)
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a signed-in session and its account.
type LoginResult struct {
	Session *store.Session
	Account models.Account
	Message string
}

// Login exchanges credentials for a backend token and opens a console
// session holding it. A blocked account never gets a session.
func (s *AccountService) Login(ctx context.Context, f LoginForm) (*LoginResult, error) {
	v := validation.Violations{}
	role := validation.Role("role", f.Role, v)
	validation.Required("email", f.Email, v)
	validation.Email("email", f.Email, v)
	validation.Required("password", f.Password, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	bs, err := s.api.Login(ctx, backend.LoginInput{Role: role, Email: strings.TrimSpace(f.Email), Password: f.Password})
	if err != nil {
		return nil, err
	}
	p := bs.Account.AccountProfile()
	if p.Blocked() {
		return nil, &backend.RequestError{Op: "login", Status: http.StatusForbidden, Blocked: true, Message: refresh.BlockedNotice}
	}
	if got := models.RoleOf(bs.Account); got != role {
		v.Add("role", "role_mismatch")
		return nil, v
	}

	sess, err := s.sessions.Create(ctx, store.NewSession{
		AccountID:   p.ID,
		Role:        role,
		Email:       p.Email,
		DisplayName: models.DisplayName(bs.Account),
		Token:       bs.Token,
		ExpiresAt:   backend.ExpiresAt(bs.Token),
	})
	if err != nil {
		return nil, err
	}
	if s.gate != nil {
		s.gate.InvalidateAccount(p.ID)
	}
	slog.InfoContext(ctx, "signed in", "account_id", p.ID, "role", string(role))
	return &LoginResult{Session: sess, Account: bs.Account, Message: bs.Message}, nil
}

// Logout ends a console session and everything running for it.
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	return s.EndSession(ctx, sessionID, ReasonLogout)
}

// EndSession drops a console session for reason (logout, blocked, expired).
func (s *AccountService) EndSession(ctx context.Context, sessionID, reason string) error {
	if s.ender != nil {
		s.ender.EndSession(sessionID, reason)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "session ended", "session_id", sessionID, "reason", reason)
	return nil
}

// Principal resolves a session cookie for auth.Middleware.
func (s *AccountService) Principal(ctx context.Context, sessionID string) (*auth.Principal, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Touch(ctx, sessionID); err != nil {
		slog.WarnContext(ctx, "session touch failed", "err", err)
	}
	return &auth.Principal{
		SessionID:   sess.ID,
		AccountID:   sess.AccountID,
		Role:        sess.Role,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		Token:       sess.Token,
	}, nil
}

// Session loads a live session.
func (s *AccountService) Session(ctx context.Context, sessionID string) (*store.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *AccountService) VerifyEmail(ctx context.Context, token string) (string, error) {
	v := validation.Violations{}
	validation.Required("token", token, v)
	if err := v.Err(); err != nil {
		return "", err
	}
	return s.api.VerifyEmail(ctx, token)
}

func (s *AccountService) ForgotPassword(ctx context.Context, email string) (string, error) {
	v := validation.Violations{}
	validation.Required("email", email, v)
	validation.Email("email", email, v)
	if err := v.Err(); err != nil {
		return "", err
	}
	return s.api.ForgotPassword(ctx, strings.TrimSpace(email))
}

// ResetForm sets a new password from a reset link.
type ResetForm struct {
	Token           string `json:"token"`
	Password        string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *AccountService) ResetPassword(ctx context.Context, f ResetForm) (string, error) {
	v := validation.Violations{}
	validation.Required("token", f.Token, v)
	validation.Required("newPassword", f.Password, v)
	validation.MinLen("newPassword", f.Password, validation.MinPasswordLen, v)
	if f.ConfirmPassword != "" {
		validation.Matches("confirmPassword", f.ConfirmPassword, f.Password, v)
	}
	if err := v.Err(); err != nil {
		return "", err
	}
	return s.api.ResetPassword(ctx, f.Token, f.Password)
}
