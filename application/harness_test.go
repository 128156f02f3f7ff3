package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shiftmatch/application"
	"shiftmatch/domain"
	"shiftmatch/infrastructure/memstore"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type captureQueue struct {
	mu   sync.Mutex
	jobs []domain.NotificationJob
}

func (q *captureQueue) Publish(_ context.Context, job domain.NotificationJob) error {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	return nil
}

func (q *captureQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type env struct {
	store    *memstore.Store
	repos    application.Repositories
	clock    *testClock
	queue    *captureQueue
	logger   *zap.Logger
	notifier *application.Notifier
	settings *application.SettingsService
	activity *application.ActivityService
	statuses *application.StatusUpdater
	wages    *application.MinimumWageService
	jobs     *application.JobService
	apps     *application.ApplicationService
}

func jstAt(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02 15:04", s, domain.JST)
	require.NoError(t, err)
	return v
}

func newEnv(t *testing.T, now string) *env {
	t.Helper()
	e := &env{
		store:  memstore.New(),
		clock:  &testClock{t: jstAt(t, now)},
		queue:  &captureQueue{},
		logger: zap.NewNop(),
	}
	e.store.SetNow(e.clock.Now)
	e.repos = e.store.Repositories()

	for _, s := range domain.DefaultNotificationSettings() {
		require.NoError(t, e.repos.NotifSettings.Save(context.Background(), &s))
	}
	e.notifier = application.NewNotifier(application.NotifierDeps{
		Settings:      e.repos.NotifSettings,
		Logs:          e.repos.NotifLogs,
		Messages:      e.repos.Messages,
		Notifications: e.repos.Notifications,
		Queue:         e.queue,
		Clock:         e.clock,
		BaseURL:       "https://shiftmatch.example",
	}, e.logger)
	e.settings = application.NewSettingsService(e.repos.SystemSettings, false, e.logger)
	e.activity = application.NewActivityService(e.repos.ActivityLogs, e.logger)
	e.statuses = application.NewStatusUpdater(e.repos, e.clock, nil, e.logger)
	e.wages = application.NewMinimumWageService(e.repos, e.clock, e.logger)
	e.jobs = application.NewJobService(e.repos, e.wages, e.clock, e.logger)
	e.apps = application.NewApplicationService(e.repos, application.ApplicationDeps{
		Statuses: e.statuses,
		Notifier: e.notifier,
		Settings: e.settings,
		Activity: e.activity,
		Clock:    e.clock,
	}, e.logger)
	return e
}

func (e *env) facility(t *testing.T, initialMessage string) *domain.Facility {
	t.Helper()
	f := &domain.Facility{
		Name: "さくら苑", Prefecture: "東京都", City: "新宿区", Address: "西新宿1-1",
		StaffEmails: []string{"staff@sakura.example"}, InitialMessage: initialMessage,
	}
	require.NoError(t, e.repos.Facilities.Create(context.Background(), f))
	return f
}

// worker creates a worker whose profile passes the apply check.
func (e *env) worker(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{
		Email: email, Name: "山田 花子", LastNameKana: "ヤマダ", FirstNameKana: "ハナコ",
		Gender: "female", Nationality: "日本", PostalCode: "1600023", Prefecture: "東京都",
		City: "新宿区", AddressLine: "西新宿2-2", PhoneNumber: "09000000000",
		EmergencyName: "山田 太郎", EmergencyPhone: "09011111111",
		CurrentWorkStyle: "パート", DesiredWorkStyle: "単発",
		BankName: "三井住友", BranchName: "本店", AccountName: "ヤマダ ハナコ", AccountNumber: "1234567",
		BankBookImage: "bank.png", IDDocument: "id.png",
		ExperienceFields: []string{"介護"}, Qualifications: []string{domain.OtherQualification},
	}
	require.NoError(t, e.repos.Users.Create(context.Background(), u))
	return u
}

func (e *env) job(t *testing.T, f *domain.Facility, mutate func(*application.JobInput), dates ...string) *domain.Job {
	t.Helper()
	in := application.JobInput{
		Title: "日勤介護スタッフ", StartTime: "09:00", EndTime: "18:00", BreakMinutes: 60,
		HourlyWage: 1300, RecruitmentCount: 1, DeadlineDaysBefore: 0, WorkDates: dates, Publish: true,
	}
	if mutate != nil {
		mutate(&in)
	}
	j, err := e.jobs.Create(context.Background(), application.FacilityActor(1, f.ID), in)
	require.NoError(t, err)
	return j
}

func (e *env) workDate(t *testing.T, id uint) *domain.JobWorkDate {
	t.Helper()
	wd, err := e.repos.Jobs.GetWorkDate(context.Background(), id)
	require.NoError(t, err)
	return wd
}
