package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/medtrack/internal/auth"
	"github.com/sakif/medtrack/internal/handler"
	"github.com/sakif/medtrack/internal/model"
	"github.com/sakif/medtrack/internal/repository/sqlite"
	"github.com/sakif/medtrack/internal/service"
)

const testSecret = "handler-test-secret-0123456789"

// fixture holds real services over a throwaway SQLite file. Handlers are
// called directly, without the router, so these tests cover only what the
// handler layer does: decoding, status codes, cookies and error bodies.
type fixture struct {
	tokens    *auth.TokenService
	auth      *handler.AuthHandler
	medicines *handler.MedicineHandler
	reminders *handler.ReminderHandler
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(secret)
	require.NoError(t, err)
	authn := auth.NewAuthenticator(tokens, logger)

	authSvc := service.NewAuthService(db.Users(), tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), logger)
	medSvc := service.NewMedicineService(db.Medicines(), logger)
	remSvc := service.NewReminderService(db.Medicines(), db.Reminders(), logger,
		service.WithReminderClock(func() time.Time { return time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC) }))

	return &fixture{
		tokens:    tokens,
		auth:      handler.NewAuthHandler(authSvc, authn, false, logger),
		medicines: handler.NewMedicineHandler(medSvc, authn, logger),
		reminders: handler.NewReminderHandler(remSvc, authn, logger),
	}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

// signup registers a user through the handler and returns the session token.
func (f *fixture) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	rr := httptest.NewRecorder()
	f.auth.HandleSignup(rr, jsonRequest(http.MethodPost, "/api/auth/signup",
		`{"email":"`+email+`","password":"longenough"}`))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	body := decode[handler.UserResponse](t, rr)
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return body.User.ID, c.Value
		}
	}
	t.Fatal("signup did not set the session cookie")
	return "", ""
}

// =========================================================================
// AUTH
// =========================================================================

func TestAuthHandler_Signup(t *testing.T) {
	f := newFixture(t, testSecret)

	t.Run("success sets an HttpOnly session cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.auth.HandleSignup(rr, jsonRequest(http.MethodPost, "/api/auth/signup",
			`{"email":"Alice@X.io","password":"longenough"}`))

		require.Equal(t, http.StatusCreated, rr.Code)
		body := decode[map[string]map[string]any](t, rr)
		assert.Equal(t, "alice@x.io", body["user"]["email"])
		assert.NotContains(t, body["user"], "passwordHash")

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.SessionCookie, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, int(auth.DefaultSessionTTL.Seconds()), cookies[0].MaxAge)
	})

	t.Run("duplicate email is 409", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.auth.HandleSignup(rr, jsonRequest(http.MethodPost, "/api/auth/signup",
			`{"email":"alice@x.io","password":"another-one"}`))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("seven character password is 400", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.auth.HandleSignup(rr, jsonRequest(http.MethodPost, "/api/auth/signup",
			`{"email":"bob@x.io","password":"1234567"}`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("wrong content type is 415", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
			strings.NewReader(`{"email":"bob@x.io","password":"longenough"}`))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		f.auth.HandleSignup(rr, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.auth.HandleSignup(rr, jsonRequest(http.MethodPost, "/api/auth/signup", `{"email":`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_SignupWithoutSecret(t *testing.T) {
	f := newFixture(t, "")

	rr := httptest.NewRecorder()
	f.auth.HandleSignup(rr, jsonRequest(http.MethodPost, "/api/auth/signup",
		`{"email":"alice@x.io","password":"longenough"}`))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, []string{auth.MissingSecretKey}, body.Missing)
}

func TestAuthHandler_Login(t *testing.T) {
	f := newFixture(t, testSecret)
	f.signup(t, "alice@x.io")

	t.Run("success", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.auth.HandleLogin(rr, jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email":"alice@x.io","password":"longenough"}`))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Result().Cookies())
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := httptest.NewRecorder()
		f.auth.HandleLogin(wrong, jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email":"alice@x.io","password":"not-the-password"}`))
		unknown := httptest.NewRecorder()
		f.auth.HandleLogin(unknown, jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email":"nobody@x.io","password":"longenough"}`))

		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrong.Body.String(), unknown.Body.String())
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, wrong.Body.String())
	})
}

func TestAuthHandler_LogoutClearsCookie(t *testing.T) {
	f := newFixture(t, testSecret)

	rr := httptest.NewRecorder()
	f.auth.HandleLogout(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookie, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestAuthHandler_Session(t *testing.T) {
	f := newFixture(t, testSecret)
	userID, token := f.signup(t, "alice@x.io")

	rr := httptest.NewRecorder()
	f.auth.HandleSession(rr, withBearer(httptest.NewRequest(http.MethodGet, "/api/auth", nil), token))
	require.Equal(t, http.StatusOK, rr.Code)
	session := decode[model.Session](t, rr)
	assert.Equal(t, userID, session.Sub)
	assert.Equal(t, "alice@x.io", session.Email)

	anon := httptest.NewRecorder()
	f.auth.HandleSession(anon, httptest.NewRequest(http.MethodGet, "/api/auth", nil))
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
}

// =========================================================================
// MEDICINES
// =========================================================================

func TestMedicineHandler_CRUD(t *testing.T) {
	f := newFixture(t, testSecret)
	_, token := f.signup(t, "alice@x.io")

	// Create
	rr := httptest.NewRecorder()
	f.medicines.HandleCreate(rr, withBearer(jsonRequest(http.MethodPost, "/api/medicines",
		`{"name":"Aspirin","time":"08:00","dose":"100mg"}`), token))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.Medicine](t, rr)
	assert.Equal(t, "Aspirin", created.Name)
	assert.Nil(t, created.Notes)

	// List
	rr = httptest.NewRecorder()
	f.medicines.HandleList(rr, withBearer(httptest.NewRequest(http.MethodGet, "/api/medicines", nil), token))
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[handler.MedicineListResponse](t, rr)
	require.Len(t, list.Medicines, 1)

	// Update: clear dose with null, leave name alone
	req := withBearer(jsonRequest(http.MethodPut, "/api/medicines/"+created.ID, `{"dose":null,"time":"20:00"}`), token)
	req.SetPathValue("id", created.ID)
	rr = httptest.NewRecorder()
	f.medicines.HandleUpdate(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[model.Medicine](t, rr)
	assert.Nil(t, updated.Dose)
	assert.Equal(t, "20:00", updated.Time)
	assert.Equal(t, "Aspirin", updated.Name)

	// Empty update
	req = withBearer(jsonRequest(http.MethodPut, "/api/medicines/"+created.ID, `{}`), token)
	req.SetPathValue("id", created.ID)
	rr = httptest.NewRecorder()
	f.medicines.HandleUpdate(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Delete
	req = withBearer(httptest.NewRequest(http.MethodDelete, "/api/medicines/"+created.ID, nil), token)
	req.SetPathValue("id", created.ID)
	rr = httptest.NewRecorder()
	f.medicines.HandleDelete(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())

	// Gone
	req = withBearer(httptest.NewRequest(http.MethodGet, "/api/medicines/"+created.ID, nil), token)
	req.SetPathValue("id", created.ID)
	rr = httptest.NewRecorder()
	f.medicines.HandleGet(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMedicineHandler_InvalidTime(t *testing.T) {
	f := newFixture(t, testSecret)
	_, token := f.signup(t, "alice@x.io")

	rr := httptest.NewRecorder()
	f.medicines.HandleCreate(rr, withBearer(jsonRequest(http.MethodPost, "/api/medicines",
		`{"name":"Aspirin","time":"8am"}`), token))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMedicineHandler_ForeignMedicineIsNotFound(t *testing.T) {
	f := newFixture(t, testSecret)
	_, aliceToken := f.signup(t, "alice@x.io")
	_, bobToken := f.signup(t, "bob@x.io")

	rr := httptest.NewRecorder()
	f.medicines.HandleCreate(rr, withBearer(jsonRequest(http.MethodPost, "/api/medicines",
		`{"name":"Aspirin","time":"08:00"}`), aliceToken))
	require.Equal(t, http.StatusCreated, rr.Code)
	med := decode[model.Medicine](t, rr)

	req := withBearer(httptest.NewRequest(http.MethodGet, "/api/medicines/"+med.ID, nil), bobToken)
	req.SetPathValue("id", med.ID)
	rr = httptest.NewRecorder()
	f.medicines.HandleGet(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code, "never 403: existence is not revealed")
}

// =========================================================================
// REMINDERS
// =========================================================================

func TestReminderHandler_CreateThenExisting(t *testing.T) {
	f := newFixture(t, testSecret)
	_, token := f.signup(t, "alice@x.io")

	rr := httptest.NewRecorder()
	f.medicines.HandleCreate(rr, withBearer(jsonRequest(http.MethodPost, "/api/medicines",
		`{"name":"Aspirin","time":"08:00"}`), token))
	require.Equal(t, http.StatusCreated, rr.Code)
	med := decode[model.Medicine](t, rr)

	// No body at all: defaults to Pending.
	req := withBearer(httptest.NewRequest(http.MethodPost, "/api/reminders/"+med.ID, nil), token)
	req.SetPathValue("id", med.ID)
	rr = httptest.NewRecorder()
	f.reminders.HandleCreate(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first := decode[model.ReminderStatus](t, rr)
	assert.Equal(t, model.ReminderPending, first.Status)

	// Second POST asking for Taken returns the existing row untouched.
	req = withBearer(jsonRequest(http.MethodPost, "/api/reminders/"+med.ID, `{"status":"Taken"}`), token)
	req.SetPathValue("id", med.ID)
	rr = httptest.NewRecorder()
	f.reminders.HandleCreate(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[model.ReminderStatus](t, rr)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.ReminderPending, second.Status)
}

func TestReminderHandler_Update(t *testing.T) {
	f := newFixture(t, testSecret)
	_, token := f.signup(t, "alice@x.io")

	rr := httptest.NewRecorder()
	f.medicines.HandleCreate(rr, withBearer(jsonRequest(http.MethodPost, "/api/medicines",
		`{"name":"Aspirin","time":"08:00"}`), token))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	f.reminders.HandleToday(rr, withBearer(httptest.NewRequest(http.MethodGet, "/api/reminders/today", nil), token))
	require.Equal(t, http.StatusOK, rr.Code)
	today := decode[service.TodayResult](t, rr)
	assert.Equal(t, "2024-01-02", today.Date)
	require.Len(t, today.Reminders, 1)
	id := today.Reminders[0].ID

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing status", `{}`, http.StatusBadRequest},
		{"unknown status", `{"status":"Skipped"}`, http.StatusBadRequest},
		{"taken", `{"status":"Taken"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withBearer(jsonRequest(http.MethodPatch, "/api/reminders/"+id, tt.body), token)
			req.SetPathValue("id", id)
			rr := httptest.NewRecorder()
			f.reminders.HandleUpdate(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

// =========================================================================
// HEALTH
// =========================================================================

func TestHealthHandler(t *testing.T) {
	h := handler.NewHealthHandler(handler.HealthInfo{
		Environment:        "test",
		DatabaseConfigured: true,
		AuthConfigured:     false,
	})

	// Wrap in chi's RequestID so the handler has an ID to report.
	rr := httptest.NewRecorder()
	middleware.RequestID(http.HandlerFunc(h.HandleHealth)).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[handler.HealthResponse](t, rr)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Environment)
	assert.True(t, body.DatabaseConfigured)
	assert.False(t, body.AuthConfigured)
	assert.NotEmpty(t, body.RequestID)

	_, err := time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err)
}
