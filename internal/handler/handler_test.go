package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/apperr"
	"github.com/Shivanand-hulikatti/event-registration/internal/model"
	"github.com/Shivanand-hulikatti/event-registration/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-registration/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2030, time.June, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	router http.Handler
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{t: t, now: testNow}
	store := memory.New()
	clock := func() time.Time { return ts.now }
	events := service.NewEventService(store, store, service.WithClock(clock))
	users := service.NewUserService(store, service.WithClock(clock))
	ts.router = NewRouter(events, users, zerolog.Nop())
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[model.ErrorResponse](t, rec).Error
}

func (ts *testServer) createEvent(location string, at time.Time, capacity int) string {
	ts.t.Helper()
	body := `{"title":"Launch","dateTime":"` + at.Format(time.RFC3339) + `","location":"` + location + `","capacity":` +
		jsonInt(capacity) + `}`
	rec := ts.do(http.MethodPost, "/events", body)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.CreatedEvent](ts.t, rec).ID
}

func (ts *testServer) createUser(name string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/users", `{"name":"`+name+`","email":"`+name+`@example.com"}`)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.User](ts.t, rec).ID
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateEventResponses(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"created", `{"title":"T","dateTime":"2031-01-01T10:00:00Z","location":"HQ","capacity":10}`, http.StatusCreated, ""},
		{"missing capacity", `{"title":"T","dateTime":"2031-01-01T10:00:00Z","location":"HQ"}`, http.StatusBadRequest, msgMissingEventFields},
		{"missing title", `{"dateTime":"2031-01-01T10:00:00Z","location":"HQ","capacity":10}`, http.StatusBadRequest, msgMissingEventFields},
		{"empty body", ``, http.StatusBadRequest, msgMissingEventFields},
		{"capacity zero", `{"title":"T","dateTime":"2031-01-01T10:00:00Z","location":"HQ","capacity":0}`, http.StatusBadRequest, "Capacity must be between 1 and 1000"},
		{"capacity too large", `{"title":"T","dateTime":"2031-01-01T10:00:00Z","location":"HQ","capacity":1001}`, http.StatusBadRequest, "Capacity must be between 1 and 1000"},
		{"bad date", `{"title":"T","dateTime":"someday","location":"HQ","capacity":10}`, http.StatusBadRequest, "Invalid dateTime. Must be ISO string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(http.MethodPost, "/events", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorOf(t, rec))
				return
			}
			assert.NotEmpty(t, decode[model.CreatedEvent](t, rec).ID)
		})
	}
}

func TestCreateEventRejectsMalformedJSON(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/events", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, rec), "invalid request body")
}

func TestGetEventDetailsShape(t *testing.T) {
	ts := newTestServer(t)
	eventID := ts.createEvent("HQ", testNow.Add(24*time.Hour), 5)
	userID := ts.createUser("ada")

	rec := ts.do(http.MethodPost, "/events/"+eventID+"/register", `{"userId":"`+userID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/events/"+eventID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.ElementsMatch(t, []string{"id", "title", "dateTime", "location", "capacity", "users"}, keys(body))
	assert.Equal(t, testNow.Add(24*time.Hour).Format(time.RFC3339), body["dateTime"])

	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.ElementsMatch(t, []string{"id", "name", "email"}, keys(users[0].(map[string]any)))
}

func TestGetEventNotFound(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/events/nope", "/events/nope/stats"} {
		rec := ts.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Event not found", errorOf(t, rec))
	}
}

func TestRegisterResponses(t *testing.T) {
	ts := newTestServer(t)
	eventID := ts.createEvent("HQ", testNow.Add(time.Hour), 1)
	pastID := ts.createEvent("Old", testNow.Add(-time.Hour), 10)
	ada := ts.createUser("ada")
	bob := ts.createUser("bob")

	rec := ts.do(http.MethodPost, "/events/"+eventID+"/register", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgMissingUserID, errorOf(t, rec))

	rec = ts.do(http.MethodPost, "/events/missing/register", `{"userId":"`+ada+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/events/"+pastID+"/register", `{"userId":"`+ada+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot register for past events", errorOf(t, rec))

	rec = ts.do(http.MethodPost, "/events/"+eventID+"/register", `{"userId":"`+ada+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/events/"+eventID+"/register", `{"userId":"`+ada+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User already registered for this event", errorOf(t, rec))

	rec = ts.do(http.MethodPost, "/events/"+eventID+"/register", `{"userId":"`+bob+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Event is full", errorOf(t, rec))
}

func TestCancelResponses(t *testing.T) {
	ts := newTestServer(t)
	eventID := ts.createEvent("HQ", testNow.Add(time.Hour), 3)
	ada := ts.createUser("ada")

	rec := ts.do(http.MethodPost, "/events/"+eventID+"/cancel", ``)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgMissingUserID, errorOf(t, rec))

	rec = ts.do(http.MethodPost, "/events/"+eventID+"/cancel", `{"userId":"`+ada+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User is not registered for this event", errorOf(t, rec))

	rec = ts.do(http.MethodPost, "/events/"+eventID+"/register", `{"userId":"`+ada+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodPost, "/events/"+eventID+"/cancel", `{"userId":"`+ada+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestListUpcomingEventsOrdering(t *testing.T) {
	ts := newTestServer(t)
	ts.createEvent("Past", testNow.Add(-time.Hour), 10)
	ts.createEvent("Zurich", testNow.Add(2*time.Hour), 10)
	ts.createEvent("Alicante", testNow.Add(2*time.Hour), 10)
	ts.createEvent("Berlin", testNow.Add(time.Hour), 10)

	rec := ts.do(http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 3)

	var locations []string
	for _, e := range events {
		assert.ElementsMatch(t, []string{"id", "title", "dateTime", "location", "capacity"}, keys(e))
		locations = append(locations, e["location"].(string))
	}
	assert.Equal(t, []string{"Berlin", "Alicante", "Zurich"}, locations)
}

func TestListUpcomingEventsEmptyIsArray(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	eventID := ts.createEvent("HQ", testNow.Add(time.Hour), 4)
	ada := ts.createUser("ada")
	rec := ts.do(http.MethodPost, "/events/"+eventID+"/register", `{"userId":"`+ada+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodGet, "/events/"+eventID+"/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalRegistrations":1,"remainingCapacity":3,"percentageUsed":25}`, rec.Body.String())
}

func TestUsers(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/users", `{"name":"Ada"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgMissingUserFields, errorOf(t, rec))

	rec = ts.do(http.MethodPost, "/users", `{"name":"Ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	ada := decode[model.User](t, rec)
	assert.NotEmpty(t, ada.ID)
	assert.Equal(t, "Ada", ada.Name)
	assert.Equal(t, "ada@example.com", ada.Email)

	rec = ts.do(http.MethodPost, "/users", `{"name":"Other Ada","email":"ada@example.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already exists", errorOf(t, rec))

	rec = ts.do(http.MethodPost, "/users", `{"name":"Grace","email":"grace@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]model.User](t, rec)
	require.Len(t, users, 2)
	assert.ElementsMatch(t, []string{"ada@example.com", "grace@example.com"}, []string{users[0].Email, users[1].Email})
}

func TestLaunchScenarioOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	eventID := ts.createEvent("HQ", testNow.Add(48*time.Hour), 1)
	a := ts.createUser("a")
	b := ts.createUser("b")

	register := func(userID string) *httptest.ResponseRecorder {
		return ts.do(http.MethodPost, "/events/"+eventID+"/register", `{"userId":"`+userID+`"}`)
	}

	require.Equal(t, http.StatusCreated, register(a).Code)

	rec := register(b)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Event is full", errorOf(t, rec))

	rec = ts.do(http.MethodPost, "/events/"+eventID+"/cancel", `{"userId":"`+a+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusCreated, register(b).Code)
}

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"invalid", apperr.InvalidArgument("bad input"), http.StatusBadRequest, "bad input"},
		{"not found", apperr.NotFound("no such thing"), http.StatusNotFound, "no such thing"},
		{"conflict", apperr.Conflict("taken"), http.StatusConflict, "taken"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, msgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)

			writeServiceError(rec, req, zerolog.New(&logs), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, errorOf(t, rec))
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Contains(t, logs.String(), "connection refused")
			} else {
				assert.Empty(t, logs.String())
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodOptions, "/events", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAccessLog(t *testing.T) {
	var logs bytes.Buffer
	store := memory.New()
	router := NewRouter(
		service.NewEventService(store, store),
		service.NewUserService(store),
		zerolog.New(&logs),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &line))
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/health", line["path"])
	assert.EqualValues(t, http.StatusOK, line["status"])
	assert.NotEmpty(t, line["request_id"])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
