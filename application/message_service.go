package application

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

const messagePreviewRunes = 50

// MessageService is the per-application thread between a worker and a facility.
type MessageService struct {
	apps     ApplicationRepository
	messages MessageRepository
	notifier *Notifier
	activity *ActivityService
	clock    domain.Clock
	logger   *zap.Logger
}

func NewMessageService(r Repositories, notifier *Notifier, activity *ActivityService, clock domain.Clock, logger *zap.Logger) *MessageService {
	return &MessageService{
		apps:     r.Applications,
		messages: r.Messages,
		notifier: notifier,
		activity: activity,
		clock:    clock,
		logger:   logger,
	}
}

func (s *MessageService) thread(ctx context.Context, actor Actor, appID uint) (*domain.Application, error) {
	app, err := s.apps.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	switch actor.Type {
	case domain.AccountWorker:
		if app.UserID != actor.ID {
			return nil, domain.Forbidden("このメッセージにアクセスできません")
		}
	case domain.AccountFacilityAdmin:
		if app.FacilityID() != actor.FacilityID {
			return nil, domain.Forbidden("このメッセージにアクセスできません")
		}
	default:
		return nil, domain.Forbidden("このメッセージにアクセスできません")
	}
	return app, nil
}

// List returns the thread and marks the other side's messages read.
func (s *MessageService) List(ctx context.Context, actor Actor, appID uint) ([]domain.Message, error) {
	app, err := s.thread(ctx, actor, appID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	if err := s.MarkRead(ctx, actor, app.ID); err != nil {
		s.logger.Warn("mark messages read", zap.Uint("application_id", app.ID), zap.Error(err))
	}
	return msgs, nil
}

func (s *MessageService) MarkRead(ctx context.Context, actor Actor, appID uint) error {
	reader := domain.TargetWorker
	if actor.Type == domain.AccountFacilityAdmin {
		reader = domain.TargetFacility
	}
	_, err := s.messages.MarkRead(ctx, appID, reader, s.clock.Now())
	return err
}

func (s *MessageService) Send(ctx context.Context, actor Actor, appID uint, content string) (*domain.Message, error) {
	msg, err := s.send(ctx, actor, appID, content)
	if actor.Type == domain.AccountWorker {
		s.activity.Record(ctx, ActivityEntry{
			Actor: actor, Action: "MESSAGE_SEND", TargetType: "Application", TargetID: appID, Err: err,
		})
	}
	return msg, err
}

func (s *MessageService) send(ctx context.Context, actor Actor, appID uint, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Validation("メッセージを入力してください")
	}
	app, err := s.thread(ctx, actor, appID)
	if err != nil {
		return nil, err
	}
	msg := &domain.Message{ApplicationID: app.ID, Content: content}
	if job := app.Job(); job != nil {
		msg.JobID = uintPtr(job.ID)
	}
	var p NotifyParams
	if actor.Type == domain.AccountWorker {
		msg.FromUserID = uintPtr(app.UserID)
		msg.ToFacilityID = uintPtr(app.FacilityID())
		p = facilityParams(s.notifier, app, domain.KeyFacilityNewMessage)
	} else {
		msg.FromFacilityID = uintPtr(app.FacilityID())
		msg.ToUserID = uintPtr(app.UserID)
		p = workerParams(s.notifier, app, domain.KeyWorkerNewMessage)
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	// A new message notification must not echo into the chat thread.
	p.ApplicationID = nil
	p.Vars["message_preview"] = preview(content)
	notify(ctx, s.notifier, s.logger, p)
	return msg, nil
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= messagePreviewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:messagePreviewRunes]) + "…"
}
