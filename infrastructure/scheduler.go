package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"shiftmatch/application"
	"shiftmatch/domain"
)

// ScheduledJob is one cron task. Run gets a context that is cancelled when the scheduler stops.
type ScheduledJob struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs the periodic jobs on Japan time.
type Scheduler struct {
	cron     *cron.Cron
	recorder application.Recorder
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewScheduler(recorder application.Recorder, logger *zap.Logger) *Scheduler {
	if recorder == nil {
		recorder = application.NopRecorder
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(domain.JST),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		recorder: recorder,
		logger:   logger.Named("scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Add(job ScheduledJob) error {
	if _, err := s.cron.AddFunc(job.Spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
	}
	s.logger.Info("job scheduled", zap.String("job", job.Name), zap.String("spec", job.Spec))
	return nil
}

func (s *Scheduler) run(job ScheduledJob) {
	ctx := s.ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	start := time.Now()
	err := job.Run(ctx)
	s.recorder.CronRun(job.Name, err)
	if err != nil {
		s.logger.Error("scheduled job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	s.logger.Info("scheduled job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}

// Run starts the scheduler and blocks until ctx is done. Running jobs are cancelled and awaited.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
