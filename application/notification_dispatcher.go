package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

// NotificationDispatcher delivers queued email logs. It is the consumer side of the notification queue.
type NotificationDispatcher struct {
	logs     NotificationLogRepository
	mailer   Mailer
	clock    domain.Clock
	recorder Recorder
	logger   *zap.Logger
}

func NewNotificationDispatcher(logs NotificationLogRepository, mailer Mailer, clock domain.Clock, recorder Recorder, logger *zap.Logger) *NotificationDispatcher {
	if recorder == nil {
		recorder = NopRecorder
	}
	return &NotificationDispatcher{logs: logs, mailer: mailer, clock: clock, recorder: recorder, logger: logger}
}

// Handle sends the email for one job. A returned error means the job should be retried.
// Provider failures are recorded on the log and are not retried.
func (d *NotificationDispatcher) Handle(ctx context.Context, job domain.NotificationJob) error {
	log, err := d.logs.Get(ctx, job.NotificationLogID)
	if errors.Is(err, domain.ErrNotFound) {
		d.logger.Warn("notification log vanished", zap.Uint("log_id", job.NotificationLogID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load notification log %d: %w", job.NotificationLogID, err)
	}
	if log.Status != domain.LogPending {
		d.logger.Debug("notification already handled",
			zap.Uint("log_id", log.ID), zap.String("status", string(log.Status)))
		return nil
	}

	sendErr := d.mailer.Send(ctx, Email{To: log.ToAddresses, Subject: log.Subject, Body: log.Body})
	if sendErr != nil {
		log.Status = domain.LogFailed
		log.ErrorMessage = sendErr.Error()
		d.logger.Error("email delivery failed", zap.Uint("log_id", log.ID), zap.Error(sendErr))
	} else {
		now := d.clock.Now()
		log.Status = domain.LogSent
		log.SentAt = &now
		log.ErrorMessage = ""
	}
	d.recorder.NotificationDispatched(domain.ChannelEmail, log.Status)
	if err := d.logs.Save(ctx, log); err != nil {
		return fmt.Errorf("update notification log %d: %w", log.ID, err)
	}
	return nil
}
