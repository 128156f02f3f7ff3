package interfaces_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shiftmatch/application"
	"shiftmatch/domain"
	"shiftmatch/infrastructure"
	"shiftmatch/infrastructure/memstore"
	"shiftmatch/interfaces"
)

type nopQueue struct {
	mu   sync.Mutex
	jobs []domain.NotificationJob
}

func (q *nopQueue) Publish(_ context.Context, job domain.NotificationJob) error {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	return nil
}

type server struct {
	router http.Handler
	repos  application.Repositories
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, domain.JST)
	store := memstore.New()
	store.SetNow(func() time.Time { return now })
	repos := store.Repositories()
	for _, s := range domain.DefaultNotificationSettings() {
		require.NoError(t, repos.NotifSettings.Save(context.Background(), &s))
	}

	svc := interfaces.BuildServices(interfaces.Dependencies{
		Repos:     repos,
		Queue:     &nopQueue{},
		Mailer:    infrastructure.NewLogMailer(zap.NewNop()),
		Sessions:  infrastructure.NewMemorySessionStore(100, time.Hour*24),
		Payroll:   infrastructure.NewExcelPayrollBuilder(),
		Extractor: infrastructure.NewUploadTextExtractor(zap.NewNop()),
		Clock:     domain.FixedClock{T: now},
		BaseURL:   "https://shiftmatch.example",
		JWTSecret: "test-secret",
	}, zap.NewNop())
	router := interfaces.NewRouter(svc, interfaces.RouterOptions{
		CronSecret: "cron-secret",
		Metrics:    infrastructure.NewMetrics(),
		Logger:     zap.NewNop(),
	})
	return &server{router: router, repos: repos}
}

func (s *server) do(t *testing.T, method, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (s *server) facilityAdmin(t *testing.T) (*domain.Facility, *http.Cookie) {
	t.Helper()
	ctx := context.Background()
	f := &domain.Facility{Name: "さくら苑", Prefecture: "東京都", City: "新宿区", Address: "西新宿1-1",
		StaffEmails: []string{"staff@sakura.example"}}
	require.NoError(t, s.repos.Facilities.Create(ctx, f))
	hash, err := application.HashPassword("password123")
	require.NoError(t, err)
	require.NoError(t, s.repos.FacilityAdmins.Create(ctx, &domain.FacilityAdmin{
		FacilityID: f.ID, Email: "admin@sakura.example", PasswordHash: hash, Name: "施設 管理者",
	}))

	rec := s.do(t, http.MethodPost, "/api/admin/login",
		map[string]string{"email": "admin@sakura.example", "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == interfaces.FacilitySessionCookie {
			return f, c
		}
	}
	t.Fatal("session cookie not set")
	return nil, nil
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestWorkerRegisterLoginAndProfile(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"email": "Hanako@Example.jp", "password": "password123", "name": "山田 花子"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "hanako@example.jp", "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)

	rec = s.do(t, http.MethodGet, "/api/me", nil, bearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, false, body["is_complete"])
	assert.NotEmpty(t, body["missing_fields"])

	rec = s.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/me", nil, bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decode(t, rec)["code"])
}

func TestWrongPasswordIsUnauthorized(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "nobody@example.jp", "password": "password123"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	s := newServer(t)
	creds := map[string]string{"email": "nobody@example.jp", "password": "password123"}
	for i := 0; i < 5; i++ {
		rec := s.do(t, http.MethodPost, "/api/auth/login", creds, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/auth/login", creds, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, rec)["code"])
}

func TestFacilityJobLifecycle(t *testing.T) {
	s := newServer(t)
	_, cookie := s.facilityAdmin(t)
	withCookie := func(r *http.Request) { r.AddCookie(cookie) }

	job := map[string]any{
		"title": "日勤介護スタッフ", "start_time": "09:00", "end_time": "18:00", "break_minutes": 60,
		"hourly_wage": 1300, "recruitment_count": 2, "work_dates": []string{"2025-06-10", "2025-06-11"},
		"publish": true,
	}
	rec := s.do(t, http.MethodPost, "/api/admin/jobs", job, withCookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	jobID := uint(decode(t, rec)["id"].(float64))
	require.NotZero(t, jobID)

	rec = s.do(t, http.MethodGet, "/api/admin/jobs", nil, withCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["jobs"], 1)

	rec = s.do(t, http.MethodGet, "/api/jobs?prefecture="+url.QueryEscape("東京都"), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = s.do(t, http.MethodPost, "/api/admin/jobs/9999/status", map[string]string{"status": "STOPPED"}, withCookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/jobs", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFacilityLogoutInvalidatesSession(t *testing.T) {
	s := newServer(t)
	_, cookie := s.facilityAdmin(t)
	withCookie := func(r *http.Request) { r.AddCookie(cookie) }

	rec := s.do(t, http.MethodPost, "/api/admin/logout", nil, withCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/admin/jobs", nil, withCookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFacilityCookieIsNotSystemAdmin(t *testing.T) {
	s := newServer(t)
	_, cookie := s.facilityAdmin(t)
	rec := s.do(t, http.MethodGet, "/api/system-admin/settings", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: interfaces.SystemAdminSessionCookie, Value: cookie.Value})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCronRequiresSecret(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/api/cron/update-statuses", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/cron/update-statuses", nil, bearer("cron-secret-x"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/cron/update-statuses", nil, bearer("cron-secret"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = s.do(t, http.MethodGet, "/api/cron/job-batch?secret=cron-secret", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBankSearchWithoutDirectory(t *testing.T) {
	s := newServer(t)
	require.NoError(t, s.repos.Banks.UpsertBanks(context.Background(), []domain.Bank{
		{Code: "0001", Name: "みずほ", Kana: "ミズホ", Hira: "みずほ"},
	}))

	rec := s.do(t, http.MethodGet, "/api/bank/search?q="+url.QueryEscape("ミズホ"), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["banks"], 1)

	rec = s.do(t, http.MethodGet, "/api/bank/search?source=api&q="+url.QueryEscape("みずほ"), nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/bank/12/branches", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLPTrackingValidatesEventType(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodPost, "/api/lp-tracking",
		map[string]any{"lp_number": 1, "event_type": "page_view", "session_id": "abc"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/lp-tracking",
		map[string]any{"lp_number": 1, "event_type": "hover"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	s.do(t, http.MethodGet, "/healthz", nil, nil)
	rec := s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shiftmatch_http_requests_total")
}

func TestJobReviewRequiresJobID(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodPost, "/api/auth/register",
		map[string]string{"email": "rev@example.jp", "password": "password123", "name": "評価 太郎"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "rev@example.jp", "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["token"].(string)

	rec = s.do(t, http.MethodPost, "/api/reviews",
		map[string]any{"rating": 1, "good_points": "なし", "improvements": "なし"}, bearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", decode(t, rec)["code"])
}
