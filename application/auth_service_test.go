package application_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftmatch/application"
	"shiftmatch/domain"
)

type mapSessions struct {
	mu sync.Mutex
	m  map[string]domain.Session
}

func (s *mapSessions) Put(_ context.Context, sess domain.Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = map[string]domain.Session{}
	}
	s.m[sess.ID] = sess
	return nil
}

func (s *mapSessions) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return nil, domain.NotFound("session")
	}
	return &sess, nil
}

func (s *mapSessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
	return nil
}

func authEnv(t *testing.T) (*env, *application.AuthService) {
	e := newEnv(t, "2026-05-01 10:00")
	svc := application.NewAuthService(e.repos, application.AuthDeps{
		Sessions:  &mapSessions{},
		Notifier:  e.notifier,
		Settings:  e.settings,
		Activity:  e.activity,
		Clock:     e.clock,
		JWTSecret: []byte("test-secret"),
	}, e.logger)
	return e, svc
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	e, svc := authEnv(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, application.RegisterInput{Email: " Hanako@Example.com ", Password: "password123", Name: "山田 花子"})
	require.NoError(t, err)
	assert.Equal(t, "hanako@example.com", res.User.Email)

	id, err := svc.ParseWorkerToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id)

	_, err = svc.Register(ctx, application.RegisterInput{Email: "HANAKO@example.com", Password: "password123", Name: "別人"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.WorkerLogin(ctx, application.LoginInput{Email: "hanako@example.com", Password: "wrong-pass"})
	assert.Equal(t, "INVALID_CREDENTIALS", appCode(t, err))

	again, err := svc.WorkerLogin(ctx, application.LoginInput{Email: "hanako@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, again.Token)

	e.clock.Set(e.clock.Now().Add(application.WorkerTokenTTL + time.Minute))
	_, err = svc.ParseWorkerToken(res.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuth_FacilitySessionLifecycle(t *testing.T) {
	e, svc := authEnv(t)
	ctx := context.Background()
	f := e.facility(t, "")
	hash, err := application.HashPassword("facility-pass")
	require.NoError(t, err)
	require.NoError(t, e.repos.FacilityAdmins.Create(ctx, &domain.FacilityAdmin{FacilityID: f.ID, Email: "admin@sakura.example", PasswordHash: hash, Name: "施設長"}))

	_, err = svc.FacilityLogin(ctx, application.LoginInput{Email: "admin@sakura.example", Password: "nope-nope"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	sess, err := svc.FacilityLogin(ctx, application.LoginInput{Email: "ADMIN@sakura.example", Password: "facility-pass"})
	require.NoError(t, err)
	assert.Equal(t, f.ID, sess.FacilityID)

	got, err := svc.Session(ctx, sess.ID, domain.AccountFacilityAdmin)
	require.NoError(t, err)
	assert.Equal(t, "施設長", got.Name)

	_, err = svc.Session(ctx, sess.ID, domain.AccountSystemAdmin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, svc.Logout(ctx, sess.ID))
	_, err = svc.Session(ctx, sess.ID, domain.AccountFacilityAdmin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	logs, err := e.repos.ActivityLogs.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "ADMIN_LOGIN", logs[0].Action)
}

func TestAuth_PasswordReset(t *testing.T) {
	e, svc := authEnv(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, application.RegisterInput{Email: "hanako@example.com", Password: "password123", Name: "山田 花子"})
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, application.PasswordResetRequest{Email: "nobody@example.com"}))
	require.NoError(t, svc.RequestPasswordReset(ctx, application.PasswordResetRequest{Email: "hanako@example.com"}))

	logs, err := e.repos.NotifLogs.List(ctx, application.NotificationLogFilter{Key: domain.KeyPasswordReset})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	_, token, found := strings.Cut(logs[0].Body, "token=")
	require.True(t, found)
	token = strings.Fields(token)[0]

	inbox, err := e.repos.Notifications.List(ctx, domain.TargetWorker, 1, 10)
	require.NoError(t, err)
	for _, n := range inbox {
		assert.NotEqual(t, domain.KeyPasswordReset, n.Type)
	}

	err = svc.ResetPassword(ctx, application.PasswordResetConfirm{Token: "bogus", Password: "newpassword1"})
	assert.Equal(t, "INVALID_RESET_TOKEN", appCode(t, err))

	require.NoError(t, svc.ResetPassword(ctx, application.PasswordResetConfirm{Token: token, Password: "newpassword1"}))
	err = svc.ResetPassword(ctx, application.PasswordResetConfirm{Token: token, Password: "newpassword2"})
	assert.Equal(t, "INVALID_RESET_TOKEN", appCode(t, err))

	_, err = svc.WorkerLogin(ctx, application.LoginInput{Email: "hanako@example.com", Password: "newpassword1"})
	assert.NoError(t, err)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []application.Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, em application.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, em)
	return nil
}

func TestNotificationDispatcher_SendsPendingOnce(t *testing.T) {
	e, svc := authEnv(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, application.RegisterInput{Email: "hanako@example.com", Password: "password123", Name: "山田 花子"})
	require.NoError(t, err)
	require.NoError(t, svc.RequestPasswordReset(ctx, application.PasswordResetRequest{Email: "hanako@example.com"}))
	logs, err := e.repos.NotifLogs.List(ctx, application.NotificationLogFilter{Status: domain.LogPending})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	mailer := &fakeMailer{}
	d := application.NewNotificationDispatcher(e.repos.NotifLogs, mailer, e.clock, nil, e.logger)
	job := domain.NotificationJob{NotificationLogID: logs[0].ID}
	require.NoError(t, d.Handle(ctx, job))
	require.NoError(t, d.Handle(ctx, job))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"hanako@example.com"}, mailer.sent[0].To)

	got, err := e.repos.NotifLogs.Get(ctx, logs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LogSent, got.Status)
	require.NotNil(t, got.SentAt)

	assert.NoError(t, d.Handle(ctx, domain.NotificationJob{NotificationLogID: 9999}))
}

func TestNotificationDispatcher_RecordsProviderFailure(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	log := &domain.NotificationLog{
		NotificationKey: domain.KeyPasswordReset, Channel: domain.ChannelEmail, TargetType: domain.TargetWorker,
		ToAddresses: []string{"a@example.com"}, Subject: "s", Body: "b", Status: domain.LogPending,
	}
	require.NoError(t, e.repos.NotifLogs.Create(ctx, log))

	d := application.NewNotificationDispatcher(e.repos.NotifLogs, &fakeMailer{err: errors.New("422 invalid from")}, e.clock, nil, e.logger)
	require.NoError(t, d.Handle(ctx, domain.NotificationJob{NotificationLogID: log.ID}))

	got, err := e.repos.NotifLogs.Get(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LogFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "422")
}
