package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

type JobBatchResult struct {
	LimitedJobsSwitched int      `json:"limited_jobs_switched"`
	ChildJobsCreated    int      `json:"child_jobs_created"`
	OffersExpired       int      `json:"offers_expired"`
	Errors              []string `json:"errors"`
}

// JobBatch is the nightly job maintenance: limited-to-normal switching and offer expiry.
type JobBatch struct {
	tx     Transactor
	jobs   JobRepository
	clock  domain.Clock
	logger *zap.Logger
}

func NewJobBatch(r Repositories, clock domain.Clock, logger *zap.Logger) *JobBatch {
	return &JobBatch{tx: r.Tx, jobs: r.Jobs, clock: clock, logger: logger}
}

// Run executes both steps. A failing step is reported and does not stop the other.
func (b *JobBatch) Run(ctx context.Context) JobBatchResult {
	res := JobBatchResult{Errors: []string{}}
	if err := b.switchLimitedJobs(ctx, &res); err != nil {
		b.logger.Error("limited job switch", zap.Error(err))
		res.Errors = append(res.Errors, fmt.Sprintf("limited job switch: %v", err))
	}
	if err := b.expireOffers(ctx, &res); err != nil {
		b.logger.Error("offer expiry", zap.Error(err))
		res.Errors = append(res.Errors, fmt.Sprintf("offer expiry: %v", err))
	}
	b.logger.Info("job batch finished", zap.Int("switched", res.LimitedJobsSwitched),
		zap.Int("children", res.ChildJobsCreated), zap.Int("expired", res.OffersExpired))
	return res
}

func (b *JobBatch) switchLimitedJobs(ctx context.Context, res *JobBatchResult) error {
	now := b.clock.Now()
	jobs, err := b.jobs.ListByStatusAndTypes(ctx, domain.JobPublished, domain.JobTypeLimitedWorked, domain.JobTypeLimitedFavorite)
	if err != nil {
		return err
	}
	for i := range jobs {
		job := &jobs[i]
		if job.SwitchToNormalDays == nil {
			continue
		}
		var due []domain.JobWorkDate
		for _, wd := range job.WorkDates {
			switchAt := domain.StartOfDayJST(wd.WorkDate).AddDate(0, 0, -*job.SwitchToNormalDays)
			if !now.Before(switchAt) {
				due = append(due, wd)
			}
		}
		if len(due) == 0 {
			continue
		}

		if len(due) == len(job.WorkDates) {
			job.JobType = domain.JobTypeNormal
			if err := b.jobs.Save(ctx, job); err != nil {
				return fmt.Errorf("switch job %d: %w", job.ID, err)
			}
			res.LimitedJobsSwitched++
			b.logger.Info("job switched to normal", zap.Uint("job_id", job.ID))
			continue
		}

		for _, wd := range due {
			err := b.tx.WithinTx(ctx, func(ctx context.Context) error {
				child := childJob(job)
				if err := b.jobs.Create(ctx, child); err != nil {
					return err
				}
				return b.jobs.MoveWorkDate(ctx, wd.ID, child.ID)
			})
			if err != nil {
				return fmt.Errorf("split job %d date %d: %w", job.ID, wd.ID, err)
			}
			res.ChildJobsCreated++
		}
	}
	return nil
}

// childJob copies a limited job into a normal posting that will take over one work date.
func childJob(parent *domain.Job) *domain.Job {
	c := *parent
	c.ID = 0
	c.Facility = nil
	c.WorkDates = nil
	c.JobType = domain.JobTypeNormal
	c.Status = domain.JobPublished
	c.SwitchToNormalDays = nil
	c.ParentJobID = uintPtr(parent.ID)
	c.CreatedAt, c.UpdatedAt = time.Time{}, time.Time{}
	return &c
}

func (b *JobBatch) expireOffers(ctx context.Context, res *JobBatchResult) error {
	now := b.clock.Now()
	offers, err := b.jobs.ListByStatusAndTypes(ctx, domain.JobPublished, domain.JobTypeOffer)
	if err != nil {
		return err
	}
	for i := range offers {
		job := &offers[i]
		if job.OfferExpiresAt == nil || job.OfferExpiresAt.After(now) {
			continue
		}
		job.Status = domain.JobStopped
		if err := b.jobs.Save(ctx, job); err != nil {
			return fmt.Errorf("expire offer %d: %w", job.ID, err)
		}
		res.OffersExpired++
	}
	return nil
}
