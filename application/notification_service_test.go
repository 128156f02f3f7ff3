package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func strPtr(s string) *string { return &s }

func saveAllChannels(t *testing.T, e *env, key string) {
	t.Helper()
	require.NoError(t, e.repos.NotifSettings.Save(context.Background(), &domain.NotificationSetting{
		NotificationKey: key,
		Name:            "全チャネル",
		TargetType:      domain.TargetWorker,
		ChatEnabled:     true,
		EmailEnabled:    true,
		PushEnabled:     true,
		ChatMessage:     strPtr("{{worker_name}}さん、{{job_title}}のご案内です"),
		EmailSubject:    strPtr("【{{job_title}}】のお知らせ"),
		EmailBody:       strPtr("{{worker_name}}様\n{{unknown}}"),
		PushTitle:       strPtr("{{job_title}}"),
		PushBody:        strPtr("{{worker_name}}さんへ"),
	}))
}

func logsFor(t *testing.T, e *env, key string) map[domain.NotificationChannel]domain.NotificationLog {
	t.Helper()
	rows, err := e.repos.NotifLogs.List(context.Background(), application.NotificationLogFilter{Key: key})
	require.NoError(t, err)
	out := map[domain.NotificationChannel]domain.NotificationLog{}
	for _, l := range rows {
		out[l.Channel] = l
	}
	return out
}

func TestNotifier_SendsOnEveryEnabledChannel(t *testing.T) {
	e := newEnv(t, "2025-06-02 10:00")
	ctx := context.Background()
	saveAllChannels(t, e, "test_all")
	appID := uint(42)

	err := e.notifier.Send(ctx, application.NotifyParams{
		Key:            "test_all",
		TargetType:     domain.TargetWorker,
		RecipientID:    7,
		RecipientName:  "山田",
		RecipientEmail: "hanako@example.com",
		ApplicationID:  &appID,
		Vars:           map[string]string{"worker_name": "山田", "job_title": "日勤"},
		Link:           "/mypage",
	})
	require.NoError(t, err)

	logs := logsFor(t, e, "test_all")
	require.Len(t, logs, 3)
	assert.Equal(t, domain.LogSent, logs[domain.ChannelChat].Status)
	assert.Equal(t, "山田さん、日勤のご案内です", logs[domain.ChannelChat].ChatMessage)

	email := logs[domain.ChannelEmail]
	assert.Equal(t, domain.LogPending, email.Status)
	assert.Equal(t, "【日勤】のお知らせ", email.Subject)
	assert.Equal(t, []string{"hanako@example.com"}, email.ToAddresses)
	assert.Equal(t, 1, e.queue.Len())
	assert.Equal(t, email.ID, e.queue.jobs[0].NotificationLogID)

	assert.Equal(t, domain.LogSkipped, logs[domain.ChannelPush].Status)
	assert.Equal(t, "山田さんへ", logs[domain.ChannelPush].PushBody)

	msgs, err := e.repos.Messages.ListByApplication(ctx, appID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].ToUserID)
	assert.Equal(t, uint(7), *msgs[0].ToUserID)

	inbox, err := e.notifier.Inbox(ctx, domain.TargetWorker, 7, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "【日勤】のお知らせ", inbox[0].Title)
	assert.Equal(t, "/mypage", inbox[0].Link)
}

func TestNotifier_SkipsWhatIsMissing(t *testing.T) {
	e := newEnv(t, "2025-06-02 10:00")
	ctx := context.Background()
	saveAllChannels(t, e, "test_all")

	assert.NoError(t, e.notifier.Send(ctx, application.NotifyParams{Key: "no_such_key", TargetType: domain.TargetWorker, RecipientID: 1}))

	// No application, no address and no in-app row: only push is left.
	require.NoError(t, e.notifier.Send(ctx, application.NotifyParams{
		Key: "test_all", TargetType: domain.TargetWorker, RecipientID: 1, NoInApp: true,
	}))
	logs := logsFor(t, e, "test_all")
	assert.Len(t, logs, 1)
	assert.Contains(t, logs, domain.ChannelPush)
	assert.Zero(t, e.queue.Len())

	inbox, err := e.notifier.Inbox(ctx, domain.TargetWorker, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}

type brokenQueue struct{}

func (brokenQueue) Publish(context.Context, domain.NotificationJob) error {
	return errors.New("broker down")
}

func TestNotifier_MarksEmailFailedWhenQueueIsDown(t *testing.T) {
	e := newEnv(t, "2025-06-02 10:00")
	ctx := context.Background()
	saveAllChannels(t, e, "test_all")
	n := application.NewNotifier(application.NotifierDeps{
		Settings:      e.repos.NotifSettings,
		Logs:          e.repos.NotifLogs,
		Messages:      e.repos.Messages,
		Notifications: e.repos.Notifications,
		Queue:         brokenQueue{},
		Clock:         e.clock,
	}, e.logger)

	require.NoError(t, n.Send(ctx, application.NotifyParams{
		Key: "test_all", TargetType: domain.TargetFacility, RecipientID: 3,
		Emails: []string{"a@example.com", "b@example.com"},
	}))
	email := logsFor(t, e, "test_all")[domain.ChannelEmail]
	assert.Equal(t, domain.LogFailed, email.Status)
	assert.Equal(t, "broker down", email.ErrorMessage)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, email.ToAddresses)
}

func TestNotificationAdmin_UpdateSettingTakesEffect(t *testing.T) {
	e := newEnv(t, "2025-06-02 10:00")
	ctx := context.Background()
	saveAllChannels(t, e, "test_all")
	admin := application.NewNotificationAdminService(e.notifier, nil, e.logger)

	send := func() {
		require.NoError(t, e.notifier.Send(ctx, application.NotifyParams{
			Key: "test_all", TargetType: domain.TargetWorker, RecipientID: 1,
			RecipientEmail: "w@example.com", NoInApp: true,
		}))
	}
	send()
	require.Equal(t, 1, e.queue.Len())

	off := false
	row, err := admin.UpdateSetting(ctx, application.SettingUpdate{NotificationKey: "test_all", EmailEnabled: &off})
	require.NoError(t, err)
	assert.False(t, row.EmailEnabled)
	assert.True(t, row.PushEnabled)

	send()
	assert.Equal(t, 1, e.queue.Len())

	_, err = admin.UpdateSetting(ctx, application.SettingUpdate{NotificationKey: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotificationAdmin_SeedDefaultsIsIdempotent(t *testing.T) {
	e := newEnv(t, "2025-06-02 10:00")
	admin := application.NewNotificationAdminService(e.notifier, nil, e.logger)

	created, err := admin.SeedDefaults(context.Background())
	require.NoError(t, err)
	assert.Zero(t, created)

	all, err := admin.ListSettings(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, len(domain.DefaultNotificationSettings()))
}
