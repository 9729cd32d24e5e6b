package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/go-bloodbank/internal/backend"
	"github.com/diewo77/go-bloodbank/internal/models"
	"github.com/diewo77/go-bloodbank/internal/policy"
	"github.com/diewo77/go-bloodbank/internal/refresh"
	"github.com/diewo77/go-bloodbank/internal/stats"
	"github.com/diewo77/go-bloodbank/internal/store"
	"github.com/diewo77/go-bloodbank/internal/workflow"
	"github.com/diewo77/go-bloodbank/validation"
)

// fakeAPI answers "METHOD /path" with canned JSON and records every call.
type fakeAPI struct {
	mu     sync.Mutex
	routes map[string]string
	calls  []string
	bodies map[string]string
}

func newFakeAPI(t *testing.T, routes map[string]string) (*fakeAPI, *backend.Client) {
	t.Helper()
	f := &fakeAPI{routes: routes, bodies: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, key)
		f.bodies[key] = string(b)
		body, ok := f.routes[key]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"success":false,"message":"no route `+key+`"}`)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return f, backend.New(srv.URL, srv.Client())
}

func (f *fakeAPI) called(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == key {
			return true
		}
	}
	return false
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (m *memAudit) Record(_ context.Context, e models.AuditEntry) error {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return nil
}

func (m *memAudit) last(t *testing.T) models.AuditEntry {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.entries)
	return m.entries[len(m.entries)-1]
}

func actor(api *backend.Client, role models.Role, id string) Actor {
	return Actor{SessionID: "s-" + id, AccountID: id, Role: role, API: api.WithToken("opaque")}
}

func newRequests(au Auditor) *RequestService {
	return NewRequestService(nil, policy.NewAuthGate(time.Minute), au, nil)
}

func TestCreateBloodRequestValidatesBeforeNetwork(t *testing.T) {
	f, api := newFakeAPI(t, nil)
	_, err := newRequests(nil).CreateBloodRequest(context.Background(), actor(api, models.RoleHospital, "h1"), BloodRequestForm{BloodGroup: "Z+"})

	var v validation.Violations
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "required", v["organisationId"])
	assert.Equal(t, "invalid_blood_group", v["bloodGroup"])
	assert.Equal(t, "must_be_positive", v["quantity"])
	assert.Zero(t, f.count())
}

func TestCreateBloodRequestAutoRejectedLocally(t *testing.T) {
	_, api := newFakeAPI(t, map[string]string{
		"GET /inventory/all-organisations": `{"success":true,"organisations":[{"_id":"o1","role":"organisation","availability":{"O-":0,"A+":900}}]}`,
		"POST /requests":                   `{"success":true,"request":{"_id":"r1","bloodGroup":"O-","quantity":300}}`,
	})
	au := &memAudit{}
	out, err := newRequests(au).CreateBloodRequest(context.Background(), actor(api, models.RoleHospital, "h1"),
		BloodRequestForm{OrganisationID: "o1", BloodGroup: "o−", Quantity: 300})
	require.NoError(t, err)
	assert.True(t, out.AutoRejected)
	assert.Equal(t, models.StatusRejected, out.Status)
	assert.Equal(t, models.StatusRejected, out.Item.Status)
	assert.Contains(t, out.Message, "O-")
	assert.Equal(t, models.OutcomeOK, au.last(t).Outcome)
	assert.Equal(t, models.StatusRejected, au.last(t).ToStatus)
}

func TestCreateBloodRequestBackendDecides(t *testing.T) {
	_, api := newFakeAPI(t, map[string]string{
		"GET /inventory/all-organisations": `{"success":true,"organisations":[{"_id":"o1","role":"organisation","availability":{"A+":900}}]}`,
		"POST /requests":                   `{"success":true,"autoRejected":true,"message":"No stock","request":{"_id":"r2","status":"rejected"}}`,
	})
	out, err := newRequests(nil).CreateBloodRequest(context.Background(), actor(api, models.RoleHospital, "h1"),
		BloodRequestForm{OrganisationID: "o1", BloodGroup: "A+", Quantity: 100})
	require.NoError(t, err)
	assert.True(t, out.AutoRejected)
	assert.Equal(t, "No stock", out.Message)

	_, api = newFakeAPI(t, map[string]string{
		"GET /inventory/all-organisations": `{"success":false,"message":"down"}`,
		"POST /requests":                   `{"success":true,"request":{"_id":"r3","status":"pending"}}`,
	})
	out, err = newRequests(nil).CreateBloodRequest(context.Background(), actor(api, models.RoleHospital, "h1"),
		BloodRequestForm{OrganisationID: "o1", BloodGroup: "A+", Quantity: 100})
	require.NoError(t, err)
	assert.False(t, out.AutoRejected)
	assert.Equal(t, models.StatusPending, out.Status)
}

func TestZeroStockRejectsEvenWhenBackendSaysPending(t *testing.T) {
	_, api := newFakeAPI(t, map[string]string{
		"GET /inventory/all-organisations":     `{"success":true,"organisations":[{"_id":"o1","role":"organisation","availability":{"O-":0}}]}`,
		"POST /requests":                       `{"success":true,"request":{"_id":"r4","status":"pending"}}`,
		"GET /donation-requests/organisations": `{"success":true,"organisations":[{"_id":"o1","role":"organisation","availability":{"O-":0}}]}`,
		"POST /donation-requests/create":       `{"success":true,"donationRequest":{"_id":"d4","status":"pending"}}`,
	})
	svc := newRequests(nil)

	out, err := svc.CreateBloodRequest(context.Background(), actor(api, models.RoleHospital, "h1"),
		BloodRequestForm{OrganisationID: "o1", BloodGroup: "O-", Quantity: 300})
	require.NoError(t, err)
	assert.True(t, out.AutoRejected)
	assert.Equal(t, models.StatusRejected, out.Status)
	assert.Equal(t, models.StatusRejected, out.Item.Status)
	assert.Equal(t, fmt.Sprintf(workflow.AutoRejectReason, models.BloodGroup("O-")), out.Message)

	don, err := svc.CreateDonationRequest(context.Background(), actor(api, models.RoleDonor, "d1"),
		DonationRequestForm{OrganisationID: "o1", BloodGroup: "O-", Quantity: 450})
	require.NoError(t, err)
	assert.True(t, don.AutoRejected)
	assert.Equal(t, models.StatusRejected, don.Status)
	assert.Contains(t, don.Message, "O-")
}

func TestCreateDonationRequestForbiddenForHospital(t *testing.T) {
	f, api := newFakeAPI(t, nil)
	_, err := newRequests(nil).CreateDonationRequest(context.Background(), actor(api, models.RoleHospital, "h1"),
		DonationRequestForm{OrganisationID: "o1", BloodGroup: "B+"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, f.count())
}

func TestTransitionApprove(t *testing.T) {
	f, api := newFakeAPI(t, map[string]string{
		"GET /requests/organisation": `{"success":true,"requests":[{"_id":"r1","status":"pending"},{"_id":"r2","status":"fulfilled"}]}`,
		"POST /requests/r1/approve":  `{"success":true,"message":"Request approved"}`,
	})
	au := &memAudit{}
	svc := newRequests(au)
	a := actor(api, models.RoleOrganisation, "o1")

	res, err := svc.Transition(context.Background(), a, workflow.BloodRequest, "r1", workflow.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, res.From)
	assert.Equal(t, models.StatusApproved, res.To)
	assert.Equal(t, "Request approved", res.Message)
	e := au.last(t)
	assert.Equal(t, models.OutcomeOK, e.Outcome)
	assert.Equal(t, "o1", e.AccountID)
	assert.Equal(t, models.StatusPending, e.FromStatus)

	_, err = svc.Transition(context.Background(), a, workflow.BloodRequest, "r2", workflow.ActionApprove, "")
	assert.ErrorIs(t, err, workflow.ErrPolicyViolation)
	assert.Equal(t, models.OutcomeRejected, au.last(t).Outcome)
	assert.False(t, f.called("POST /requests/r2/approve"))

	_, err = svc.Transition(context.Background(), a, workflow.BloodRequest, "nope", workflow.ActionApprove, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionWrongRoleNeverLoads(t *testing.T) {
	f, api := newFakeAPI(t, nil)
	_, err := newRequests(nil).Transition(context.Background(), actor(api, models.RoleHospital, "h1"),
		workflow.BloodRequest, "r1", workflow.ActionApprove, "")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, f.count())
}

func TestTransitionDonationRequestRelaysStatus(t *testing.T) {
	f, api := newFakeAPI(t, map[string]string{
		"GET /donation-requests/organisation": `{"success":true,"donationRequests":[{"_id":"d1","status":"approved"}]}`,
		"PUT /donation-requests/d1/status":    `{"success":true,"message":"updated"}`,
	})
	_, err := newRequests(nil).Transition(context.Background(), actor(api, models.RoleOrganisation, "o1"),
		workflow.DonationRequest, "d1", workflow.ActionComplete, " thanks ")
	require.NoError(t, err)
	f.mu.Lock()
	body := f.bodies["PUT /donation-requests/d1/status"]
	f.mu.Unlock()
	assert.Contains(t, body, `"status":"completed"`)
	assert.Contains(t, body, "thanks")
}

func TestAdminApprovesAnyCamp(t *testing.T) {
	f, api := newFakeAPI(t, map[string]string{
		"GET /camps/pending":   `{"success":true,"camps":[{"_id":"c1","status":"pending","organisation":{"_id":"o9"}}]}`,
		"PUT /camps/c1/status": `{"success":true,"message":"Camp approved"}`,
	})
	res, err := newRequests(nil).Transition(context.Background(), actor(api, models.RoleAdmin, "a1"),
		workflow.Camp, "c1", workflow.ActionApprove, "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, res.To)
	assert.True(t, f.called("PUT /camps/c1/status"))
}

func TestDeleteCampRules(t *testing.T) {
	f, api := newFakeAPI(t, map[string]string{
		"GET /camps/organisation": `{"success":true,"camps":[{"_id":"c1","status":"pending"},{"_id":"c2","status":"approved","organisation":"o1"}]}`,
		"DELETE /camps/c1":        `{"success":true,"message":"Camp deleted"}`,
	})
	svc := newRequests(nil)
	a := actor(api, models.RoleOrganisation, "o1")

	msg, err := svc.Delete(context.Background(), a, workflow.Camp, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Camp deleted", msg)

	_, err = svc.Delete(context.Background(), a, workflow.Camp, "c2")
	assert.ErrorIs(t, err, workflow.ErrPolicyViolation)
	assert.False(t, f.called("DELETE /camps/c2"))

	_, err = svc.Delete(context.Background(), a, workflow.BloodRequest, "r1")
	assert.ErrorIs(t, err, workflow.ErrPolicyViolation)
}

func TestCreateEmergencyBroadcastsOnce(t *testing.T) {
	_, api := newFakeAPI(t, map[string]string{
		"POST /emergency/create": `{"success":true,"emergencyRequest":{"_id":"e1","status":"active","eligibleDonors":[{"_id":"d1"},{"_id":"d2"}]}}`,
	})
	svc := newRequests(nil)
	a := actor(api, models.RoleOrganisation, "o1")
	form := EmergencyForm{BloodGroup: "O-", Quantity: 900, Urgency: "critical", Reason: "crash", Location: "ER", City: "Lyon", ContactPerson: "Kim", ContactPhone: "0600"}

	out, err := svc.CreateEmergency(context.Background(), a, form)
	require.NoError(t, err)
	assert.True(t, out.Broadcast)
	assert.Equal(t, models.StatusActive, out.Item.Status)

	out, err = svc.CreateEmergency(context.Background(), a, form)
	require.NoError(t, err)
	assert.False(t, out.Broadcast)
	assert.True(t, svc.Broadcasts().Sent("e1"))

	_, err = svc.CreateEmergency(context.Background(), a, EmergencyForm{BloodGroup: "O-", Quantity: 1, Urgency: "mild"})
	var v validation.Violations
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "invalid_choice", v["urgency"])
}

func TestCampFormValidation(t *testing.T) {
	today := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	f := CampForm{Name: "Drive", Date: "2024-05-31", StartTime: "10:00", EndTime: "09:00", Location: "Hall", City: "Lyon", BloodGroups: []string{"A+", "X"}}
	_, err := f.validate(today)
	var v validation.Violations
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "in_past", v["date"])
	assert.Equal(t, "before_start", v["endTime"])
	assert.Equal(t, "invalid_blood_group", v["bloodGroups"])

	f.Date, f.EndTime, f.BloodGroups = "2024-06-01", "16:00", []string{"a+", "O−"}
	in, err := f.validate(today)
	require.NoError(t, err)
	assert.Equal(t, []models.BloodGroup{models.APos, models.ONeg}, in.BloodGroups)
}

func TestRecordInventoryOutChecksStock(t *testing.T) {
	f, api := newFakeAPI(t, map[string]string{
		"GET /inventory/get-inventory":     `{"success":true,"inventory":[{"bloodGroup":"B+","inventoryType":"in","quantity":400},{"bloodGroup":"B+","inventoryType":"out","quantity":100}]}`,
		"POST /inventory/create-inventory": `{"success":true,"message":"New Blood Record Added"}`,
	})
	svc := NewInventoryService(policy.NewAuthGate(time.Minute), nil, nil)
	a := actor(api, models.RoleOrganisation, "o1")

	_, err := svc.Record(context.Background(), a, InventoryForm{InventoryType: "out", BloodGroup: "B+", Quantity: 500, Email: "h@x.org"})
	var v validation.Violations
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "insufficient_stock", v["quantity"])
	assert.False(t, f.called("POST /inventory/create-inventory"))

	msg, err := svc.Record(context.Background(), a, InventoryForm{InventoryType: "out", BloodGroup: "B+", Quantity: 300, Email: "h@x.org"})
	require.NoError(t, err)
	assert.Equal(t, "New Blood Record Added", msg)

	_, err = svc.Record(context.Background(), actor(api, models.RoleDonor, "d1"), InventoryForm{InventoryType: "in", BloodGroup: "B+", Quantity: 300, Email: "d@x.org"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStockForOrganisationUsesThresholds(t *testing.T) {
	_, api := newFakeAPI(t, map[string]string{
		"GET /inventory/get-inventory": `{"success":true,"inventory":[{"bloodGroup":"AB-","inventoryType":"in","quantity":200}]}`,
	})
	th := &memThresholds{data: map[string]stats.Thresholds{"o1": {models.ABNeg: 500}}}
	svc := NewInventoryService(policy.NewAuthGate(time.Minute), th, nil)

	levels, err := svc.Stock(context.Background(), actor(api, models.RoleOrganisation, "o1"), true)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, models.ABNeg, levels[0].BloodGroup)
	assert.Equal(t, 200, levels[0].NetMl)
}

type memThresholds struct {
	data map[string]stats.Thresholds
}

func (m *memThresholds) For(_ context.Context, org string) (stats.Thresholds, error) {
	out := stats.Thresholds{}
	for g, v := range m.data[org] {
		out[g] = v
	}
	return out, nil
}

func (m *memThresholds) Set(_ context.Context, org string, th stats.Thresholds) error {
	if m.data[org] == nil {
		m.data[org] = stats.Thresholds{}
	}
	for g, v := range th {
		m.data[org][g] = v
	}
	return nil
}

func TestThresholdUpdate(t *testing.T) {
	th := &memThresholds{data: map[string]stats.Thresholds{}}
	svc := NewThresholdService(policy.NewAuthGate(time.Minute), th, nil)
	a := Actor{AccountID: "o1", Role: models.RoleOrganisation}

	got, err := svc.Update(context.Background(), a, map[string]int{"a+": 700, "O-": 300})
	require.NoError(t, err)
	assert.Equal(t, 700, got[models.APos])
	assert.Equal(t, 300, got[models.ONeg])

	_, err = svc.Update(context.Background(), a, map[string]int{"Q": 1, "B+": -1})
	var v validation.Violations
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "invalid_blood_group", v["thresholds.Q"])
	assert.Equal(t, "out_of_range", v["thresholds.B+"])

	_, err = svc.Get(context.Background(), Actor{AccountID: "h1", Role: models.RoleHospital})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(context.Background(), Actor{AccountID: "a1", Role: models.RoleAdmin}, map[string]int{"A+": 450})
	require.NoError(t, err)
	assert.Equal(t, 450, th.data[models.DefaultThresholdOwner][models.APos])
}

func setupSessions(t *testing.T) *store.Sessions {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ConsoleSession{}, &models.AuditEntry{}))
	return store.NewSessions(db, store.NewSealer("test-secret"), time.Hour)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := backend.TokenClaims{UserID: "o1", Role: "organisation", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func TestLoginOpensSession(t *testing.T) {
	token := signedToken(t, time.Now().Add(30*time.Minute))
	_, api := newFakeAPI(t, map[string]string{
		"POST /auth/login": `{"success":true,"message":"Login Successfully","token":"` + token + `","user":{"_id":"o1","role":"organisation","email":"rc@x.org","organisationName":"Red Cross"}}`,
	})
	sessions := setupSessions(t)
	svc := NewAccountService(api, sessions, policy.NewAuthGate(time.Minute))

	res, err := svc.Login(context.Background(), LoginForm{Role: "organisation", Email: "rc@x.org", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Red Cross", res.Session.DisplayName)
	assert.True(t, res.Session.ExpiresAt.Before(time.Now().Add(31*time.Minute)))

	p, err := svc.Principal(context.Background(), res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "o1", p.AccountID)
	assert.Equal(t, models.RoleOrganisation, p.Role)
	assert.Equal(t, token, p.Token)

	_, err = svc.Login(context.Background(), LoginForm{Role: "donor", Email: "rc@x.org", Password: "secret1"})
	var v validation.Violations
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "role_mismatch", v["role"])

	ender := &recordingEnder{}
	svc.SetSessionEnder(ender)
	require.NoError(t, svc.Logout(context.Background(), res.Session.ID))
	_, err = svc.Principal(context.Background(), res.Session.ID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	assert.Equal(t, []string{res.Session.ID + ":" + ReasonLogout}, ender.ended())
}

func TestLoginBlockedAccount(t *testing.T) {
	_, api := newFakeAPI(t, map[string]string{
		"POST /auth/login": `{"success":true,"token":"opaque","user":{"_id":"d1","role":"donor","email":"d@x.org","status":"blocked"}}`,
	})
	svc := NewAccountService(api, setupSessions(t), nil)
	_, err := svc.Login(context.Background(), LoginForm{Role: "donor", Email: "d@x.org", Password: "secret1"})
	assert.ErrorIs(t, err, backend.ErrAccountBlocked)
	assert.Equal(t, refresh.BlockedNotice, backend.UserMessage(err))
}

func TestRegisterValidation(t *testing.T) {
	_, err := RegisterForm{Role: "donor", Email: "bad", Password: "123", Age: 17, BloodGroup: "A+", Gender: "female", Name: "Lea", Address: "1 rue", Phone: "06"}.Validate()
	var v validation.Violations
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "invalid_email", v["email"])
	assert.Equal(t, "too_short", v["password"])
	assert.Equal(t, "too_small", v["age"])

	_, err = RegisterForm{Role: "hospital", Email: "h@x.org", Password: "secret1", Address: "x", Phone: "1"}.Validate()
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "required", v["hospitalName"])

	in, err := RegisterForm{Role: "organisation", OrganisationName: " Red Cross ", Email: "o@x.org", Password: "secret1", Address: "x", Phone: "1", Age: 3}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Red Cross", in.OrganisationName)
	assert.Zero(t, in.Age)
}

type recordingEnder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingEnder) EndSession(id, reason string) {
	r.mu.Lock()
	r.ids = append(r.ids, id+":"+reason)
	r.mu.Unlock()
}

func (r *recordingEnder) ended() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestBlockEndsSessions(t *testing.T) {
	f, api := newFakeAPI(t, map[string]string{
		"PUT /admin/block-unblock/d1": `{"success":true,"message":"User blocked"}`,
		"GET /admin/donor-list":       `{"success":true,"donorData":[{"_id":"d1","role":"donor","status":"active"}]}`,
	})
	sessions := setupSessions(t)
	s1, err := sessions.Create(context.Background(), store.NewSession{AccountID: "d1", Role: models.RoleDonor, Token: "t"})
	require.NoError(t, err)
	ender := &recordingEnder{}
	au := &memAudit{}
	svc := NewAdminService(policy.NewAuthGate(time.Minute), sessions, au)
	svc.SetSessionEnder(ender)
	admin := actor(api, models.RoleAdmin, "a1")

	blocked, msg, err := svc.ToggleBlocked(context.Background(), admin, "d1")
	require.NoError(t, err)
	assert.True(t, blocked)
	assert.Equal(t, "User blocked", msg)
	f.mu.Lock()
	assert.Contains(t, f.bodies["PUT /admin/block-unblock/d1"], `"action":"block"`)
	f.mu.Unlock()
	assert.Equal(t, []string{s1.ID + ":" + refresh.ReasonBlocked}, ender.ended())
	_, err = sessions.Get(context.Background(), s1.ID)
	assert.True(t, errors.Is(err, store.ErrSessionNotFound))
	assert.Equal(t, "block", au.last(t).Action)

	_, err = svc.SetBlocked(context.Background(), admin, "a1", true)
	var v validation.Violations
	require.ErrorAs(t, err, &v)

	_, err = svc.SetBlocked(context.Background(), actor(api, models.RoleOrganisation, "o1"), "d1", true)
	assert.ErrorIs(t, err, ErrForbidden)
}
