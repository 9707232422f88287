package web

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojf/kidcare/internal/db"
	"github.com/lojf/kidcare/internal/handlers"
	"github.com/lojf/kidcare/internal/models"
	svc "github.com/lojf/kidcare/internal/services"
)

type testServer struct {
	t      *testing.T
	store  *db.Store
	h      http.Handler
	cookie *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := db.NewStore(db.NewMemoryKV(), "test_", db.Defaults{
		Specialists: []models.Specialist{
			{ID: "admin", FullName: "Admin", Email: "admin@kidcare.local", Password: "admin123", Role: models.RoleAdmin, Active: true},
			{ID: "sp1", FullName: "Anna Petrova", Email: "anna@kidcare.local", Password: "pw", Role: models.RoleSpecialist, Active: true},
		},
		ExpenseSettings: models.ExpenseSettings{TaxRate: decimal.RequireFromString("0.06"), AcquiringRate: decimal.RequireFromString("0.025")},
	}, slog.Default())
	api := handlers.New(store, time.UTC, slog.Default())
	api.Now = func() time.Time { return time.Date(2024, 12, 15, 12, 0, 0, 0, time.UTC) }
	return &testServer{t: t, store: store, h: Router(api)}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(email, password string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/login", map[string]string{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Value != "" {
			s.cookie = c
		}
	}
	require.NotNil(s.t, s.cookie)
	assert.NotContains(s.t, rec.Body.String(), password)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouterHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthGuards(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/children", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/login", map[string]string{"email": "anna@kidcare.local", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode[map[string]string](t, rec)["error"])

	s.login("anna@kidcare.local", "pw")
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/children", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/statistics", nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/logout", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/children", nil).Code)
}

func TestScheduleLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.login("admin@kidcare.local", "admin123")

	rec := s.do(http.MethodPost, "/api/children", map[string]any{
		"fullName": "Misha", "motherName": "Olga", "motherPhone": "8 900 111 22 33",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	child := decode[models.Child](t, rec)
	assert.Equal(t, "+79001112233", child.MotherPhone)

	rec = s.do(http.MethodPost, "/api/schedule", map[string]any{
		"childId": child.ID, "specialistId": "sp1", "date": "2024-12-16", "time": "10:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[svc.EntryView](t, rec)
	assert.Equal(t, "Misha", view.ChildName)
	assert.Equal(t, "Anna Petrova", view.SpecialistName)
	id := view.Entry.ID

	rec = s.do(http.MethodPost, "/api/schedule/"+id+"/subscription", map[string]any{"size": 4, "cost": "4000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	block := decode[models.SubscriptionBlock](t, rec)

	for i := 0; i < 2; i++ {
		rec = s.do(http.MethodPost, "/api/schedule/"+id+"/complete", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	view = decode[svc.EntryView](t, rec)
	assert.Equal(t, 1, view.SessionsCompleted)
	assert.Equal(t, 4, view.TotalSessions)

	rec = s.do(http.MethodPost, "/api/schedule/"+id+"/payment", map[string]any{"amount": "0"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "non_positive_amount", decode[map[string]string](t, rec)["error"])

	rec = s.do(http.MethodPost, "/api/schedule/"+id+"/payment", map[string]any{"amount": "4000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[svc.EntryView](t, rec).IsPaid)

	rec = s.do(http.MethodPost, "/api/schedule/"+id+"/prepaid", map[string]any{"size": 4, "cost": "4000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/blocks/"+block.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sessionsUsed":1`)

	rec = s.do(http.MethodGet, "/api/children/"+child.ID+"/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[svc.ChildStatistics](t, rec)
	assert.True(t, st.TotalPayments.Equal(decimal.NewFromInt(4000)))
	assert.InDelta(t, 100.0, st.AttendanceRate, 1e-9)

	rec = s.do(http.MethodGet, "/api/statistics/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Code,Child,"))
	assert.Contains(t, rec.Body.String(), "Misha")
}

func TestPrepareMessageAndQR(t *testing.T) {
	s := newTestServer(t)
	s.login("anna@kidcare.local", "pw")

	rec := s.do(http.MethodPost, "/api/children", map[string]any{"fullName": "Misha", "motherName": "Olga", "motherPhone": "+79001112233"})
	require.Equal(t, http.StatusCreated, rec.Code)
	child := decode[models.Child](t, rec)

	rec = s.do(http.MethodPost, "/api/children/"+child.ID+"/messages", map[string]any{
		"role": "father", "messenger": "whatsapp", "template": "Hi",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/children/"+child.ID+"/messages", map[string]any{
		"role": "mother", "messenger": "whatsapp", "template": "Hello {parentName}",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	h := decode[models.NotificationHistoryEntry](t, rec)
	assert.Equal(t, "Hello Olga", h.Message)

	rec = s.do(http.MethodGet, "/api/children/"+child.ID+"/history/"+h.ID+"/qr.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = s.do(http.MethodGet, "/api/children/"+child.ID+"/history/missing/qr.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownFieldsRejected(t *testing.T) {
	s := newTestServer(t)
	s.login("admin@kidcare.local", "admin123")

	rec := s.do(http.MethodPut, "/api/settings/expenses", map[string]any{"taxRate": "0.06", "acquiringRate": "0.02", "vat": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/settings/expenses", map[string]any{"taxRate": "1.5", "acquiringRate": "0.02"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/settings/expenses", map[string]any{"taxRate": "0.07", "acquiringRate": "0.02"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.store.ExpenseSettings.Get().TaxRate.Equal(decimal.RequireFromString("0.07")))
}

func TestImportSkipsKnownAndRepeatedIDs(t *testing.T) {
	s := newTestServer(t)
	s.login("admin@kidcare.local", "admin123")

	row := func(id, date string) map[string]any {
		return map[string]any{"id": id, "childId": "c1", "specialistId": "sp1", "date": date, "time": "10:00", "status": "scheduled"}
	}
	rec := s.do(http.MethodPost, "/api/schedule/import", []any{
		row("x1", "2024-12-16"), row("x1", "2024-12-17"), row("x2", "2024-12-18"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[map[string]int](t, rec)
	assert.Equal(t, 2, res["entries"])
	assert.Equal(t, 1, res["skipped"])

	rec = s.do(http.MethodPost, "/api/schedule/import", []any{row("x1", "2024-12-16"), row("x3", "2024-12-19")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = decode[map[string]int](t, rec)
	assert.Equal(t, 1, res["entries"])
	assert.Equal(t, 1, res["skipped"])

	entries := s.store.Schedule.Get()
	require.Len(t, entries, 3)
	assert.Equal(t, models.Day("2024-12-16"), entries[0].Date)
}
