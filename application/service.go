package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

// Actor identifies who is calling a service.
type Actor struct {
	Type       domain.AccountType
	ID         uint
	FacilityID uint
	Email      string
	Name       string
}

func WorkerActor(userID uint) Actor {
	return Actor{Type: domain.AccountWorker, ID: userID}
}

func FacilityActor(adminID, facilityID uint) Actor {
	return Actor{Type: domain.AccountFacilityAdmin, ID: adminID, FacilityID: facilityID}
}

// Recorder receives business counters. The prometheus implementation lives in infrastructure.
type Recorder interface {
	StatusTransition(from, to domain.ApplicationStatus)
	NotificationDispatched(channel domain.NotificationChannel, status domain.NotificationLogStatus)
	CronRun(job string, err error)
}

type nopRecorder struct{}

func (nopRecorder) StatusTransition(domain.ApplicationStatus, domain.ApplicationStatus)             {}
func (nopRecorder) NotificationDispatched(domain.NotificationChannel, domain.NotificationLogStatus) {}
func (nopRecorder) CronRun(string, error)                                                           {}

// NopRecorder discards everything.
var NopRecorder Recorder = nopRecorder{}

func itoa(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func uintPtr(v uint) *uint { return &v }

// toJSON is used for activity log request data. Marshal failures are reported inline.
func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"marshal_error":%q}`, err.Error())
	}
	return string(b)
}

// notify delivers a notification without failing the caller's operation.
func notify(ctx context.Context, n *Notifier, logger *zap.Logger, p NotifyParams) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, p); err != nil {
		logger.Warn("notification failed", zap.String("key", p.Key), zap.Error(err))
	}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
