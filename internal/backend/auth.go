package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// LoginInput is the body of /auth/login.
type LoginInput struct {
	Role     models.Role `json:"role"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
}

// RegisterInput is the body of /auth/register. Role-specific fields are
// omitted when empty.
type RegisterInput struct {
	Role             models.Role       `json:"role"`
	Name             string            `json:"name,omitempty"`
	Email            string            `json:"email"`
	Password         string            `json:"password"`
	OrganisationName string            `json:"organisationName,omitempty"`
	HospitalName     string            `json:"hospitalName,omitempty"`
	Website          string            `json:"website,omitempty"`
	Address          string            `json:"address"`
	City             string            `json:"city,omitempty"`
	Phone            string            `json:"phone"`
	Age              int               `json:"age,omitempty"`
	Gender           string            `json:"gender,omitempty"`
	Weight           float64           `json:"weight,omitempty"`
	BloodGroup       models.BloodGroup `json:"bloodGroup,omitempty"`
}

// Session is the result of a successful login.
type Session struct {
	Token   string
	Account models.Account
	Message string
}

type loginResponse struct {
	Envelope
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

type userResponse struct {
	Envelope
	User json.RawMessage `json:"user"`
}

// Login exchanges credentials for a bearer token and the account behind it.
func (c *Client) Login(ctx context.Context, in LoginInput) (*Session, error) {
	var resp loginResponse
	if err := c.post(ctx, "login", "/auth/login", in, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &RequestError{Op: "login", Status: http.StatusOK, Message: "The backend returned no token."}
	}
	s := &Session{Token: resp.Token, Message: resp.Message}
	if len(resp.User) > 0 && string(resp.User) != "null" {
		if acc, err := models.DecodeAccount(resp.User); err == nil {
			s.Account = acc
		}
	}
	if s.Account == nil {
		acc, err := c.WithToken(resp.Token).CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		s.Account = acc
	}
	return s, nil
}

// Register creates an account. The backend sends a verification email.
func (c *Client) Register(ctx context.Context, in RegisterInput) (string, error) {
	var resp Message
	if err := c.post(ctx, "register", "/auth/register", in, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// CurrentUser returns the account of the token. It is also the liveness
// probe: a blocked account fails with ErrAccountBlocked.
func (c *Client) CurrentUser(ctx context.Context) (models.Account, error) {
	if c.token == "" {
		return nil, &RequestError{Op: "current-user", Status: http.StatusUnauthorized, Message: "Not signed in."}
	}
	var resp userResponse
	if err := c.get(ctx, "current-user", "/auth/current-user", nil, &resp); err != nil {
		return nil, err
	}
	acc, err := models.DecodeAccount(resp.User)
	if err != nil {
		return nil, &RequestError{Op: "current-user", Status: http.StatusOK, Err: err}
	}
	return acc, nil
}

// VerifyEmail confirms an address with the token from the email.
func (c *Client) VerifyEmail(ctx context.Context, token string) (string, error) {
	var resp Message
	if err := c.get(ctx, "verify-email", "/auth/verify-email/"+escape(token), nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ForgotPassword asks the backend to email a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp Message
	if err := c.post(ctx, "forgot-password", "/auth/forgot-password", map[string]string{"email": email}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword sets a new password with the token from the reset email.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	var resp Message
	body := map[string]string{"token": token, "newPassword": newPassword}
	if err := c.post(ctx, "reset-password", "/auth/reset-password", body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
