package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

// StatusScope limits a status refresh to one worker or one facility. The zero value means everyone.
type StatusScope struct {
	UserID     uint
	FacilityID uint
}

type StatusUpdateResult struct {
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
	JobsMoved int64 `json:"jobs_moved"`
}

// StatusUpdater applies the time-driven application transitions. Running it twice is harmless.
type StatusUpdater struct {
	apps     ApplicationRepository
	jobs     JobRepository
	clock    domain.Clock
	recorder Recorder
	logger   *zap.Logger
}

func NewStatusUpdater(r Repositories, clock domain.Clock, recorder Recorder, logger *zap.Logger) *StatusUpdater {
	if recorder == nil {
		recorder = NopRecorder
	}
	return &StatusUpdater{apps: r.Applications, jobs: r.Jobs, clock: clock, recorder: recorder, logger: logger}
}

func (u *StatusUpdater) Run(ctx context.Context, scope StatusScope) (StatusUpdateResult, error) {
	var res StatusUpdateResult
	now := u.clock.Now()
	// Shifts may cross midnight, so anything dated up to today can have started.
	until := domain.StartOfDayJST(now).AddDate(0, 0, 1)

	scheduled, err := u.apps.Find(ctx, ApplicationQuery{
		Statuses:   []domain.ApplicationStatus{domain.StatusScheduled},
		UserID:     scope.UserID,
		FacilityID: scope.FacilityID,
		WorkDateTo: &until,
	})
	if err != nil {
		return res, fmt.Errorf("find scheduled applications: %w", err)
	}
	jobIDs := map[uint]bool{}
	var startIDs []uint
	for i := range scheduled {
		start, _, err := scheduled[i].Period()
		if err != nil {
			u.logger.Warn("application period", zap.Uint("application_id", scheduled[i].ID), zap.Error(err))
			continue
		}
		if !start.After(now) {
			startIDs = append(startIDs, scheduled[i].ID)
			jobIDs[scheduled[i].WorkDate.JobID] = true
		}
	}
	if len(startIDs) > 0 {
		if res.Started, err = u.apps.TransitionMany(ctx, startIDs, domain.StatusScheduled, domain.StatusWorking); err != nil {
			return res, fmt.Errorf("start applications: %w", err)
		}
		for range res.Started {
			u.recorder.StatusTransition(domain.StatusScheduled, domain.StatusWorking)
		}
	}

	working, err := u.apps.Find(ctx, ApplicationQuery{
		Statuses:   []domain.ApplicationStatus{domain.StatusWorking},
		UserID:     scope.UserID,
		FacilityID: scope.FacilityID,
		WorkDateTo: &until,
	})
	if err != nil {
		return res, fmt.Errorf("find working applications: %w", err)
	}
	var doneIDs []uint
	for i := range working {
		a := &working[i]
		jobIDs[a.WorkDate.JobID] = true
		if a.WorkerReviewStatus != domain.ReviewCompleted || a.FacilityReviewStatus != domain.ReviewCompleted {
			continue
		}
		_, end, err := a.Period()
		if err != nil {
			continue
		}
		if !end.After(now) {
			doneIDs = append(doneIDs, a.ID)
		}
	}
	if len(doneIDs) > 0 {
		if res.Completed, err = u.apps.TransitionMany(ctx, doneIDs, domain.StatusWorking, domain.StatusCompletedRated); err != nil {
			return res, fmt.Errorf("complete applications: %w", err)
		}
		for range res.Completed {
			u.recorder.StatusTransition(domain.StatusWorking, domain.StatusCompletedRated)
		}
	}

	if len(jobIDs) > 0 {
		ids := make([]uint, 0, len(jobIDs))
		for id := range jobIDs {
			ids = append(ids, id)
		}
		if res.JobsMoved, err = u.jobs.PromoteToWorking(ctx, ids); err != nil {
			return res, fmt.Errorf("promote jobs: %w", err)
		}
	}
	if res != (StatusUpdateResult{}) {
		u.logger.Info("statuses updated", zap.Int64("started", res.Started),
			zap.Int64("completed", res.Completed), zap.Int64("jobs", res.JobsMoved))
	}
	return res, nil
}
