package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"shiftmatch/domain"
)

// NotifyParams describes one notification to one recipient.
type NotifyParams struct {
	Key            string
	TargetType     domain.TargetType
	RecipientID    uint
	RecipientName  string
	RecipientEmail string
	// Emails overrides RecipientEmail, e.g. facility staff addresses or admin alert lists.
	Emails        []string
	ApplicationID *uint
	JobID         *uint
	Vars          map[string]string
	Link          string
	// NoInApp suppresses the notification center row, e.g. for password reset links.
	NoInApp bool
}

func (p NotifyParams) addresses() []string {
	if len(p.Emails) > 0 {
		return p.Emails
	}
	if p.RecipientEmail != "" {
		return []string{p.RecipientEmail}
	}
	return nil
}

// Notifier renders a notification setting into chat, email, push and in-app rows.
// Email is delivered asynchronously through the queue.
type Notifier struct {
	settings      NotificationSettingRepository
	logs          NotificationLogRepository
	messages      MessageRepository
	notifications NotificationRepository
	queue         NotificationQueue
	clock         domain.Clock
	recorder      Recorder
	baseURL       string
	cache         *expirable.LRU[string, domain.NotificationSetting]
	logger        *zap.Logger
}

type NotifierDeps struct {
	Settings      NotificationSettingRepository
	Logs          NotificationLogRepository
	Messages      MessageRepository
	Notifications NotificationRepository
	Queue         NotificationQueue
	Clock         domain.Clock
	Recorder      Recorder
	BaseURL       string
}

func NewNotifier(d NotifierDeps, logger *zap.Logger) *Notifier {
	if d.Recorder == nil {
		d.Recorder = NopRecorder
	}
	return &Notifier{
		settings:      d.Settings,
		logs:          d.Logs,
		messages:      d.Messages,
		notifications: d.Notifications,
		queue:         d.Queue,
		clock:         d.Clock,
		recorder:      d.Recorder,
		baseURL:       strings.TrimRight(d.BaseURL, "/"),
		cache:         expirable.NewLRU[string, domain.NotificationSetting](64, nil, 5*time.Minute),
		logger:        logger,
	}
}

// URL joins a path onto the public base URL.
func (n *Notifier) URL(path string) string {
	if n == nil {
		return path
	}
	return n.baseURL + path
}

func (n *Notifier) setting(ctx context.Context, key string) (*domain.NotificationSetting, error) {
	if s, ok := n.cache.Get(key); ok {
		return &s, nil
	}
	s, err := n.settings.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	n.cache.Add(key, *s)
	return s, nil
}

// Send delivers p on every channel its setting enables.
func (n *Notifier) Send(ctx context.Context, p NotifyParams) error {
	setting, err := n.setting(ctx, p.Key)
	if errors.Is(err, domain.ErrNotFound) {
		n.logger.Warn("notification setting missing", zap.String("key", p.Key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load notification setting: %w", err)
	}

	var errs []error
	if setting.ChatEnabled && setting.ChatMessage != nil && p.ApplicationID != nil {
		if err := n.sendChat(ctx, setting, p); err != nil {
			errs = append(errs, err)
		}
	}
	if setting.EmailEnabled && setting.EmailSubject != nil && setting.EmailBody != nil {
		if err := n.sendEmail(ctx, setting, p); err != nil {
			errs = append(errs, err)
		}
	}
	if setting.PushEnabled && setting.PushTitle != nil && setting.PushBody != nil {
		if err := n.logPush(ctx, setting, p); err != nil {
			errs = append(errs, err)
		}
	}
	if !p.NoInApp && (p.TargetType == domain.TargetWorker || p.TargetType == domain.TargetFacility) {
		if err := n.createInApp(ctx, setting, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) baseLog(s *domain.NotificationSetting, p NotifyParams, ch domain.NotificationChannel) *domain.NotificationLog {
	return &domain.NotificationLog{
		NotificationKey: s.NotificationKey,
		Channel:         ch,
		TargetType:      p.TargetType,
		RecipientID:     p.RecipientID,
		RecipientName:   p.RecipientName,
		RecipientEmail:  p.RecipientEmail,
	}
}

func (n *Notifier) sendChat(ctx context.Context, s *domain.NotificationSetting, p NotifyParams) error {
	content := domain.RenderTemplate(*s.ChatMessage, p.Vars)
	msg := &domain.Message{
		ApplicationID: *p.ApplicationID,
		JobID:         p.JobID,
		Content:       content,
	}
	switch p.TargetType {
	case domain.TargetWorker:
		msg.ToUserID = uintPtr(p.RecipientID)
	case domain.TargetFacility:
		msg.ToFacilityID = uintPtr(p.RecipientID)
	}

	log := n.baseLog(s, p, domain.ChannelChat)
	log.ChatApplicationID = p.ApplicationID
	log.ChatMessage = content
	if err := n.messages.Create(ctx, msg); err != nil {
		log.Status = domain.LogFailed
		log.ErrorMessage = err.Error()
	} else {
		now := n.clock.Now()
		log.Status = domain.LogSent
		log.SentAt = &now
	}
	n.recorder.NotificationDispatched(domain.ChannelChat, log.Status)
	if err := n.logs.Create(ctx, log); err != nil {
		return fmt.Errorf("write chat log: %w", err)
	}
	return nil
}

func (n *Notifier) sendEmail(ctx context.Context, s *domain.NotificationSetting, p NotifyParams) error {
	to := p.addresses()
	if len(to) == 0 {
		return nil
	}
	log := n.baseLog(s, p, domain.ChannelEmail)
	log.ToAddresses = to
	log.Subject = domain.RenderTemplate(*s.EmailSubject, p.Vars)
	log.Body = domain.RenderTemplate(*s.EmailBody, p.Vars)
	log.Status = domain.LogPending
	if err := n.logs.Create(ctx, log); err != nil {
		return fmt.Errorf("write email log: %w", err)
	}

	if err := n.queue.Publish(ctx, domain.NotificationJob{NotificationLogID: log.ID}); err != nil {
		n.logger.Error("publish notification job", zap.Uint("log_id", log.ID), zap.Error(err))
		log.Status = domain.LogFailed
		log.ErrorMessage = err.Error()
		n.recorder.NotificationDispatched(domain.ChannelEmail, log.Status)
		if serr := n.logs.Save(ctx, log); serr != nil {
			return fmt.Errorf("mark email log failed: %w", serr)
		}
	}
	return nil
}

// Push delivery is not wired; the rendered content is kept for auditing.
func (n *Notifier) logPush(ctx context.Context, s *domain.NotificationSetting, p NotifyParams) error {
	log := n.baseLog(s, p, domain.ChannelPush)
	log.PushTitle = domain.RenderTemplate(*s.PushTitle, p.Vars)
	log.PushBody = domain.RenderTemplate(*s.PushBody, p.Vars)
	log.Status = domain.LogSkipped
	n.recorder.NotificationDispatched(domain.ChannelPush, log.Status)
	if err := n.logs.Create(ctx, log); err != nil {
		return fmt.Errorf("write push log: %w", err)
	}
	return nil
}

func (n *Notifier) createInApp(ctx context.Context, s *domain.NotificationSetting, p NotifyParams) error {
	title := s.Name
	switch {
	case s.EmailSubject != nil:
		title = domain.RenderTemplate(*s.EmailSubject, p.Vars)
	case s.PushTitle != nil:
		title = domain.RenderTemplate(*s.PushTitle, p.Vars)
	}
	var body string
	switch {
	case s.PushBody != nil:
		body = domain.RenderTemplate(*s.PushBody, p.Vars)
	case s.ChatMessage != nil:
		body = domain.RenderTemplate(*s.ChatMessage, p.Vars)
	}
	row := &domain.Notification{
		TargetType: p.TargetType,
		Type:       s.NotificationKey,
		Title:      title,
		Message:    body,
		Link:       p.Link,
	}
	if p.TargetType == domain.TargetWorker {
		row.UserID = uintPtr(p.RecipientID)
	} else {
		row.FacilityID = uintPtr(p.RecipientID)
	}
	if err := n.notifications.Create(ctx, row); err != nil {
		return fmt.Errorf("create in-app notification: %w", err)
	}
	return nil
}

// NotificationAdminService backs the system-admin notification screens.
type NotificationAdminService struct {
	notifier *Notifier
	mailer   Mailer
	logger   *zap.Logger
}

func NewNotificationAdminService(n *Notifier, mailer Mailer, logger *zap.Logger) *NotificationAdminService {
	return &NotificationAdminService{notifier: n, mailer: mailer, logger: logger}
}

func (s *NotificationAdminService) ListSettings(ctx context.Context) ([]domain.NotificationSetting, error) {
	return s.notifier.settings.List(ctx)
}

// SettingUpdate carries the editable fields. Nil pointers leave a field unchanged.
type SettingUpdate struct {
	NotificationKey string  `json:"notification_key" binding:"required"`
	ChatEnabled     *bool   `json:"chat_enabled"`
	EmailEnabled    *bool   `json:"email_enabled"`
	PushEnabled     *bool   `json:"push_enabled"`
	ChatMessage     *string `json:"chat_message"`
	EmailSubject    *string `json:"email_subject"`
	EmailBody       *string `json:"email_body"`
	PushTitle       *string `json:"push_title"`
	PushBody        *string `json:"push_body"`
}

func (s *NotificationAdminService) UpdateSetting(ctx context.Context, u SettingUpdate) (*domain.NotificationSetting, error) {
	row, err := s.notifier.settings.Get(ctx, u.NotificationKey)
	if err != nil {
		return nil, err
	}
	if u.ChatEnabled != nil {
		row.ChatEnabled = *u.ChatEnabled
	}
	if u.EmailEnabled != nil {
		row.EmailEnabled = *u.EmailEnabled
	}
	if u.PushEnabled != nil {
		row.PushEnabled = *u.PushEnabled
	}
	if u.ChatMessage != nil {
		row.ChatMessage = u.ChatMessage
	}
	if u.EmailSubject != nil {
		row.EmailSubject = u.EmailSubject
	}
	if u.EmailBody != nil {
		row.EmailBody = u.EmailBody
	}
	if u.PushTitle != nil {
		row.PushTitle = u.PushTitle
	}
	if u.PushBody != nil {
		row.PushBody = u.PushBody
	}
	if err := s.notifier.settings.Save(ctx, row); err != nil {
		return nil, fmt.Errorf("save notification setting: %w", err)
	}
	s.notifier.cache.Remove(row.NotificationKey)
	return row, nil
}

// SeedDefaults inserts settings for keys that do not exist yet. Existing rows are left alone.
func (s *NotificationAdminService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, def := range domain.DefaultNotificationSettings() {
		_, err := s.notifier.settings.Get(ctx, def.NotificationKey)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return created, err
		}
		row := def
		if err := s.notifier.settings.Save(ctx, &row); err != nil {
			return created, fmt.Errorf("seed %s: %w", def.NotificationKey, err)
		}
		created++
	}
	return created, nil
}

func (s *NotificationAdminService) ListLogs(ctx context.Context, f NotificationLogFilter) ([]domain.NotificationLog, error) {
	f.Limit = clampLimit(f.Limit, 100, 500)
	return s.notifier.logs.List(ctx, f)
}

// SendTestEmail bypasses the queue so the admin sees the provider error directly.
func (s *NotificationAdminService) SendTestEmail(ctx context.Context, key, to string) error {
	if strings.TrimSpace(to) == "" {
		return domain.Validation("送信先メールアドレスを入力してください")
	}
	setting, err := s.notifier.settings.Get(ctx, key)
	if err != nil {
		return err
	}
	if setting.EmailSubject == nil || setting.EmailBody == nil {
		return domain.Validation("メールテンプレートが設定されていません")
	}
	vars := map[string]string{
		"worker_name":   "テスト太郎",
		"facility_name": "テスト施設",
		"job_title":     "テスト求人",
		"work_date":     domain.JSTDateString(s.notifier.clock.Now()),
		"start_time":    "09:00",
		"end_time":      "18:00",
		"wage":          "10000",
	}
	subject := "[TEST] " + domain.RenderTemplate(*setting.EmailSubject, vars)
	body := domain.RenderTemplate(*setting.EmailBody, vars)
	if err := s.mailer.Send(ctx, Email{To: []string{to}, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("send test email: %w", err)
	}
	return nil
}

// Inbox returns in-app notifications for a worker or facility.
func (n *Notifier) Inbox(ctx context.Context, target domain.TargetType, ownerID uint, limit int) ([]domain.Notification, error) {
	return n.notifications.List(ctx, target, ownerID, clampLimit(limit, 50, 200))
}

func (n *Notifier) MarkRead(ctx context.Context, id uint, target domain.TargetType, ownerID uint) error {
	return n.notifications.MarkRead(ctx, id, target, ownerID, n.clock.Now())
}
