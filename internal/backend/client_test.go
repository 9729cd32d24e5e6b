package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-bloodbank/internal/models"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := TokenClaims{
		UserID: "u1",
		Role:   "hospital",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/v1/", srv.Client())
}

func TestClientSendsBearerAndDecodes(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/inventory/stock-summary", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("lowOnly"))
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"success":true,"rows":[{"bloodGroup":"O-","available":120,"min":500,"status":"LOW"}]}`)
	}).WithToken(token)

	rows, err := c.StockSummary(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ONeg, rows[0].BloodGroup)
	assert.Equal(t, 120, rows[0].Available)
}

func TestClientBlockedFlag(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"success":false,"accountBlocked":true,"message":"Account blocked"}`)
	}).WithToken("opaque")

	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccountBlocked))
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Account blocked", UserMessage(err))
}

func TestClientUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"message":"Auth failed"}`)
	}).WithToken("opaque")

	_, err := c.Inventory(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestClientSuccessFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Quantity exceeds available stock"}`)
	}).WithToken("opaque")

	_, err := c.ApproveBloodRequest(context.Background(), "r1")
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "Quantity exceeds available stock", re.Message)
	assert.Equal(t, http.StatusOK, re.Status)
}

func TestClientExpiredTokenSkipsNetwork(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}).WithToken(signedToken(t, time.Now().Add(-time.Minute)))

	_, err := c.OrganisationRequests(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, called)
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, nil).WithToken("opaque")

	_, err := c.PendingCamps(context.Background())
	require.Error(t, err)
	assert.Equal(t, "The blood bank service is unreachable, please try again.", UserMessage(err))
}

func TestCreateBloodRequestAutoRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "org1", body["organisationId"])
		assert.Equal(t, "AB-", body["bloodGroup"])
		_, _ = io.WriteString(w, `{"success":true,"autoRejected":true,"message":"Request auto-rejected","request":{"_id":"r9","status":"rejected","bloodGroup":"AB-","quantity":300}}`)
	}).WithToken("opaque")

	got, err := c.CreateBloodRequest(context.Background(), BloodRequestInput{OrganisationID: "org1", BloodGroup: models.ABNeg, Quantity: 300})
	require.NoError(t, err)
	assert.True(t, got.AutoRejected)
	assert.Equal(t, "r9", got.Item.ID)
	assert.Equal(t, models.StatusRejected, got.Item.Status)
}

func TestLoginFallsBackToCurrentUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"message":"Login successfully","token":"opaque"}`)
	})
	mux.HandleFunc("/auth/current-user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer opaque", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"success":true,"user":{"_id":"h1","role":"hospital","hospitalName":"City General","email":"cg@example.org"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s, err := New(srv.URL, srv.Client()).Login(context.Background(), LoginInput{Role: models.RoleHospital, Email: "cg@example.org", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "opaque", s.Token)
	assert.Equal(t, models.RoleHospital, models.RoleOf(s.Account))
	assert.Equal(t, "City General", models.DisplayName(s.Account))
}

func TestAdminAccountsPicksListKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/org-list-with-stock", r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"orgData":[{"_id":"o1","role":"organisation","organisationName":"Red Drop","status":"blocked","bloodStock":{"A+":450}}]}`)
	}).WithToken("opaque")

	list, ok := ParseAccountList("orgs")
	require.True(t, ok)
	rows, err := c.AdminAccounts(context.Background(), list)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Blocked())
	assert.Equal(t, 450, rows[0].BloodStock[models.APos])
}

func TestSetBlockedSendsAction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/admin/block-unblock/d1", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "unblock", body["action"])
		_, _ = io.WriteString(w, `{"success":true,"message":"User unblocked"}`)
	}).WithToken("opaque")

	msg, err := c.SetBlocked(context.Background(), "d1", false)
	require.NoError(t, err)
	assert.Equal(t, "User unblocked", msg)
}
