package application

import (
	"context"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

// ActivityService records audit entries. Write failures are logged and swallowed.
type ActivityService struct {
	repo   ActivityLogRepository
	logger *zap.Logger
}

func NewActivityService(repo ActivityLogRepository, logger *zap.Logger) *ActivityService {
	return &ActivityService{repo: repo, logger: logger}
}

type ActivityEntry struct {
	Actor      Actor
	Action     string
	TargetType string
	TargetID   uint
	Request    any
	Err        error
}

func (s *ActivityService) Record(ctx context.Context, e ActivityEntry) {
	if s == nil {
		return
	}
	row := &domain.ActivityLog{
		ActorType:  string(e.Actor.Type),
		ActorEmail: e.Actor.Email,
		Action:     e.Action,
		TargetType: e.TargetType,
		Result:     "SUCCESS",
	}
	if e.Actor.ID != 0 {
		row.ActorID = uintPtr(e.Actor.ID)
	}
	if e.TargetID != 0 {
		row.TargetID = uintPtr(e.TargetID)
	}
	if e.Request != nil {
		row.RequestData = toJSON(e.Request)
	}
	if e.Err != nil {
		row.Result = "ERROR"
		row.ErrorMessage = e.Err.Error()
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Warn("activity log write failed", zap.String("action", e.Action), zap.Error(err))
	}
}

func (s *ActivityService) Recent(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	return s.repo.List(ctx, clampLimit(limit, 100, 500))
}
