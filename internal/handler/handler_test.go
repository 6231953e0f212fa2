package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/auth"
	"appointment-booking-api/internal/booking"
	"appointment-booking-api/internal/booking/bookingtest"
	"appointment-booking-api/internal/handler"
	"appointment-booking-api/internal/lock"
	"appointment-booking-api/internal/meeting"
	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/schedule"
	"appointment-booking-api/internal/zoom"
)

const (
	origin        = "http://localhost:5173"
	webhookSecret = "hook-secret"
	stateSecret   = "state-secret"
)

var (
	d1   = model.Doctor{ID: "D1", Name: "Dr One", Email: "doc@clinic.test"}
	nine = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
)

type fakeProvider struct {
	exchanged string
	meeting   zoom.MeetingRequest
	err       error
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.test/oauth/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (*model.OAuthSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.exchanged = code
	return &model.OAuthSession{ID: model.SessionID, AccessToken: "at", Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fakeProvider) CreateMeeting(_ context.Context, req zoom.MeetingRequest) (*zoom.Meeting, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.meeting = req
	return &zoom.Meeting{ID: 42, Topic: req.Topic, JoinURL: "https://zoom.test/j/42"}, nil
}

func (f *fakeProvider) Profile(context.Context) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"email": "owner@clinic.test"}, nil
}

type env struct {
	srv      *httptest.Server
	repo     *bookingtest.Repo
	outbox   *bookingtest.Outbox
	provider *fakeProvider
}

func setup(t *testing.T) *env {
	t.Helper()
	repo := bookingtest.NewRepo()
	repo.AddDoctor(d1, schedule.DaySlots(nine, time.UTC)...)
	outbox := &bookingtest.Outbox{}
	svc := booking.New(repo, meeting.NewJitsi("https://meet.jit.si"), outbox, lock.Noop{}, time.UTC, zap.NewNop())
	prov := &fakeProvider{}

	h := handler.New(handler.Options{
		Bookings:       svc,
		Provider:       prov,
		Log:            zap.NewNop(),
		Location:       time.UTC,
		FrontendOrigin: origin,
		WebhookSecret:  webhookSecret,
		StateSecret:    stateSecret,
		IsAdmin:        func(email string) bool { return email == "admin@clinic.test" },
	})
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &env{srv: srv, repo: repo, outbox: outbox, provider: prov}
}

func (e *env) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func booking9(email string) map[string]string {
	return map[string]string{
		"date": "2024-06-01T09:00:00", "purpose": "checkup", "doctor": "D1",
		"email": email, "name": "Pat",
	}
}

func TestScheduleMeetingScenario(t *testing.T) {
	e := setup(t)

	resp, body := e.do(t, http.MethodPost, "/api/schedule_meeting", booking9("pat@example.test"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Meeting scheduled successfully", body["message"])

	a := body["appointment"].(map[string]any)
	assert.Regexp(t, regexp.MustCompile(`^https://meet\.jit\.si/[A-Za-z0-9]{12}$`), a["meeting_url"])
	assert.Equal(t, "2024-06-01T09:00:00Z", a["date"])
	assert.Equal(t, "checkup", a["purpose"])
	assert.Equal(t, map[string]any{"id": "D1", "name": "Dr One", "email": "doc@clinic.test"}, a["doctor"])
	user := a["user"].(map[string]any)
	assert.Equal(t, "pat@example.test", user["email"])
	assert.Equal(t, "Pat", user["name"])
	assert.Len(t, e.outbox.Messages(), 2)

	resp, body = e.do(t, http.MethodPost, "/api/schedule_meeting", booking9("other@example.test"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": "Time slot is already booked"}, body)
}

func TestScheduleMeetingErrors(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{"missing fields", map[string]string{"date": "2024-06-01T09:00:00"}, http.StatusBadRequest, "Missing data"},
		{"bad json", "not an object", http.StatusBadRequest, "Missing data"},
		{"bad date", map[string]string{"date": "tomorrow", "purpose": "p", "doctor": "D1", "email": "a@b.co", "name": "A"}, http.StatusBadRequest, "Invalid date format"},
		{"unknown doctor", map[string]string{"date": "2024-06-01T09:00:00", "purpose": "p", "doctor": "D9", "email": "a@b.co", "name": "A"}, http.StatusNotFound, "Doctor not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.do(t, http.MethodPost, "/api/schedule_meeting", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestAppointmentLifecycle(t *testing.T) {
	e := setup(t)

	_, body := e.do(t, http.MethodPost, "/api/schedule_meeting", booking9("pat@example.test"))
	id := body["appointment"].(map[string]any)["id"].(string)

	resp, body := e.do(t, http.MethodGet, "/api/appointments?email=pat@example.test", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["appointments"], 1)

	resp, body = e.do(t, http.MethodGet, "/api/appointments?email=nobody@example.test", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, body["appointments"])

	resp, body = e.do(t, http.MethodGet, "/api/doctor_appointments?doctor_id=D1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["appointments"], 1)

	resp, body = e.do(t, http.MethodPut, "/api/appointments/"+id, map[string]string{
		"date": "2024-06-01T10:00:00Z", "meeting_url": "https://meet.jit.si/moved",
		"moderator_url": "https://meet.jit.si/moved#config.password=pw", "meeting_password": "pw",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2024-06-01T10:00:00Z", body["date"])
	assert.Equal(t, "https://meet.jit.si/moved", body["meeting_url"])
	assert.True(t, e.repo.Slot("D1", nine).IsAvailable)
	assert.False(t, e.repo.Slot("D1", nine.Add(time.Hour)).IsAvailable)

	resp, body = e.do(t, http.MethodPut, "/api/appointments/missing", map[string]string{"date": "2024-06-01T10:00:00Z"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Appointment not found", body["error"])

	resp, body = e.do(t, http.MethodDelete, "/api/appointments/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Appointment canceled successfully", body["message"])
	assert.True(t, e.repo.Slot("D1", nine.Add(time.Hour)).IsAvailable)

	resp, body = e.do(t, http.MethodDelete, "/api/appointments/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Appointment not found", body["error"])
}

func TestCreateAppointmentDirect(t *testing.T) {
	e := setup(t)
	e.repo.AddUser(model.User{ID: "U1", Email: "u1@example.test", Name: "U1"})

	req := map[string]string{
		"id": "A1", "doctor_id": "D1", "user_id": "U1", "date": "2024-06-01T09:30:00",
		"purpose": "follow-up", "meeting_url": "https://meet.jit.si/x",
		"moderator_url": "https://meet.jit.si/x#config.password=p", "meeting_password": "p",
	}
	resp, body := e.do(t, http.MethodPost, "/api/appointments", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "A1", body["id"])
	assert.Equal(t, "follow-up", body["purpose"])

	req["id"] = "A2"
	resp, body = e.do(t, http.MethodPost, "/api/appointments", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Time slot is not available", body["error"])
}

func TestSlots(t *testing.T) {
	e := setup(t)

	resp, body := e.do(t, http.MethodGet, "/api/available_slots?doctor_id=D1&date=2024-06-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slots := body["available_slots"].([]any)
	require.Len(t, slots, schedule.SlotsPerDay)
	assert.Equal(t, "2024-06-01T09:00:00Z", slots[0])
	assert.Equal(t, "2024-06-01T16:30:00Z", slots[len(slots)-1])

	resp, body = e.do(t, http.MethodPost, "/api/unavailable_slots", map[string]string{
		"doctor_id": "D1", "date": "2024-06-01T09:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	slot := body["slot"].(map[string]any)
	assert.Equal(t, "D1", slot["doctor_id"])
	assert.Equal(t, "2024-06-01T09:00:00Z", slot["date"])

	_, body = e.do(t, http.MethodGet, "/api/available_slots?doctor_id=D1&date=2024-06-01", nil)
	slots = body["available_slots"].([]any)
	assert.Len(t, slots, schedule.SlotsPerDay-1)
	assert.Equal(t, "2024-06-01T09:30:00Z", slots[0])

	_, body = e.do(t, http.MethodGet, "/api/unavailable_slots?doctor_id=D1", nil)
	assert.Len(t, body["unavailable_slots"], 1)

	resp, body = e.do(t, http.MethodGet, "/api/available_slots?doctor_id=D1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing data", body["error"])
}

func TestDoctors(t *testing.T) {
	e := setup(t)

	resp, body := e.do(t, http.MethodPost, "/api/doctors", map[string]string{"name": "Dr Two", "email": "two@clinic.test"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Doctor created successfully", body["message"])
	id := body["doctor"].(map[string]any)["id"].(string)
	assert.Equal(t, schedule.HorizonDays*schedule.SlotsPerDay, e.repo.SlotCount(id))

	resp, body = e.do(t, http.MethodPost, "/api/doctors", map[string]string{"name": "Dr Two", "email": "two@clinic.test"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Doctor already exists", body["error"])

	_, body = e.do(t, http.MethodGet, "/api/doctors", nil)
	assert.Len(t, body["doctors"], 2)

	_, body = e.do(t, http.MethodGet, "/api/is_doctor?email=two@clinic.test", nil)
	assert.Equal(t, true, body["is_doctor"])
	_, body = e.do(t, http.MethodGet, "/api/is_doctor?email=pat@example.test", nil)
	assert.Equal(t, false, body["is_doctor"])

	resp, body = e.do(t, http.MethodGet, "/api/doctor_by_email?email=doc@clinic.test", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"id": "D1", "name": "Dr One", "email": "doc@clinic.test"}, body)

	resp, body = e.do(t, http.MethodGet, "/api/doctor_by_email?email=none@clinic.test", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Doctor not found", body["error"])
}

func TestAdminDoctors(t *testing.T) {
	e := setup(t)

	resp, body := e.do(t, http.MethodGet, "/api/admin/doctors?admin_email=eve@example.test", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Unauthorized access", body["error"])

	resp, body = e.do(t, http.MethodPost, "/api/admin/doctors?admin_email=admin@clinic.test",
		map[string]string{"name": "Dr Three", "email": "three@clinic.test"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/api/admin/doctors?admin_email=admin@clinic.test", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["doctors"], 2)
}

func TestWebhook(t *testing.T) {
	e := setup(t)

	post := func(body []byte, sig string) (*http.Response, map[string]any) {
		req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/webhook", bytes.NewReader(body))
		req.Header.Set("X-Webhook-Signature", sig)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		out := map[string]any{}
		json.NewDecoder(resp.Body).Decode(&out)
		return resp, out
	}

	body := []byte(`{"event":"meeting.started","payload":{}}`)
	resp, _ := post(body, auth.Sign(body, webhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mutated := append([]byte(nil), body...)
	mutated[3] ^= 0x01
	resp, out := post(mutated, auth.Sign(body, webhookSecret))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid signature", out["error"])

	resp, _ = post(body, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	challenge := []byte(`{"event":"endpoint.url_validation","payload":{"plainToken":"abc123"}}`)
	resp, out = post(challenge, "sha256="+auth.Sign(challenge, webhookSecret))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc123", out["plainToken"])
	assert.Equal(t, auth.Sign([]byte("abc123"), webhookSecret), out["encryptedToken"])
}

func TestOAuthRoundTrip(t *testing.T) {
	e := setup(t)

	resp, _ := e.do(t, http.MethodGet, "/api/authorize", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	_, err = auth.ParseState(state, stateSecret)
	require.NoError(t, err)

	resp, body := e.do(t, http.MethodGet, "/api/callback?code=xyz&state=forged", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid state", body["error"])
	assert.Empty(t, e.provider.exchanged)

	res, err := http.Get(e.srv.URL + "/api/callback?code=xyz&state=" + url.QueryEscape(state))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := new(bytes.Buffer)
	page.ReadFrom(res.Body)
	assert.Contains(t, page.String(), `postMessage({code: "xyz"}`)
	assert.Contains(t, page.String(), "localhost:5173")
	assert.Equal(t, "xyz", e.provider.exchanged)
}

func TestProviderProxy(t *testing.T) {
	e := setup(t)

	resp, body := e.do(t, http.MethodPost, "/api/create_meeting", map[string]any{
		"topic": "Consult", "start_time": "2024-06-01T09:00:00Z", "duration": 30,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "https://zoom.test/j/42", body["join_url"])
	assert.Equal(t, "2024-06-01T09:00:00Z", e.provider.meeting.StartTime)
	assert.Equal(t, zoom.ScheduledMeeting, e.provider.meeting.Type)

	resp, body = e.do(t, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "owner@clinic.test", body["email"])

	e.provider.err = apperr.Unauthorized("No provider session, authorize first")
	resp, body = e.do(t, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "No provider session, authorize first", body["error"])

	e.provider.err = apperr.Provider(http.StatusTooManyRequests, "Too many requests", nil)
	resp, _ = e.do(t, http.MethodPost, "/api/create_meeting", map[string]any{"topic": "Consult"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	e := setup(t)

	req, _ := http.NewRequest(http.MethodOptions, e.srv.URL+"/api/doctors", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodOptions, e.srv.URL+"/api/doctors", nil)
	req.Header.Set("Origin", "https://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHome(t *testing.T) {
	e := setup(t)
	resp, _ := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
