package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftmatch/application"
	"shiftmatch/domain"
	"shiftmatch/infrastructure"
	"shiftmatch/infrastructure/memstore"
	"shiftmatch/infrastructure/persistence"
	"shiftmatch/interfaces"
)

// app is one fully wired process. Each command builds its own.
type app struct {
	cfg        *infrastructure.Config
	logger     *zap.Logger
	metrics    *infrastructure.Metrics
	db         *gorm.DB
	repos      application.Repositories
	services   interfaces.Services
	dispatcher *application.NotificationDispatcher
	rabbit     *infrastructure.RabbitMQ
	closers    []func() error
}

func (a *app) memory() bool { return a.cfg.DBDriver == "memory" }

func newApp(ctx context.Context, cfg *infrastructure.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, metrics: infrastructure.NewMetrics()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.memory() {
		logger.Warn("DB_DRIVER=memory: data lives only as long as this process")
		a.repos = memstore.New().Repositories()
	} else {
		if a.db, err = infrastructure.OpenDatabase(cfg, logger); err != nil {
			return nil, err
		}
		sqlDB, err := a.db.DB()
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.repos = persistence.New(a.db).Repositories()
	}

	clock := domain.SystemClock{}
	mailer := infrastructure.NewMailer(cfg, logger)
	a.dispatcher = application.NewNotificationDispatcher(a.repos.NotifLogs, mailer, clock, a.metrics, logger.Named("dispatcher"))

	var queue application.NotificationQueue
	if a.memory() {
		queue = infrastructure.NewInlineQueue(a.dispatcher.Handle, logger)
	} else {
		if a.rabbit, err = infrastructure.NewRabbitMQ(cfg.RabbitMQURL, logger); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.rabbit.Close)
		queue = a.rabbit
	}

	var sessions application.SessionStore
	if cfg.RedisAddr != "" {
		client, err := infrastructure.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		sessions = infrastructure.NewRedisSessionStore(client)
	} else {
		logger.Warn("REDIS_ADDR is not set; admin sessions are kept in memory")
		sessions = infrastructure.NewMemorySessionStore(10000, application.AdminSessionTTL)
	}

	storage, err := infrastructure.NewLocalFileStorage(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	infrastructure.SetupUnidoc(cfg.UnidocLicenseKey, logger)

	deps := interfaces.Dependencies{
		Repos:      a.repos,
		Queue:      queue,
		Mailer:     mailer,
		Sessions:   sessions,
		Forecast:   infrastructure.NewGeminiForecaster(cfg.GeminiAPIKey, logger),
		PDF:        infrastructure.NewLaborPDFRenderer(cfg.LaborPDFFont),
		Extractor:  infrastructure.NewUploadTextExtractor(logger),
		Storage:    storage,
		Payroll:    infrastructure.NewExcelPayrollBuilder(),
		Recorder:   a.metrics,
		Clock:      clock,
		BaseURL:    cfg.PublicBaseURL,
		JWTSecret:  cfg.JWTSecret,
		Production: cfg.Production(),
	}
	if cfg.BankcodeAPIKey != "" {
		deps.Directory = infrastructure.NewBankcodeClient(cfg.BankcodeAPIURL, cfg.BankcodeAPIKey, logger)
	}
	if cfg.LPStorageBaseURL != "" {
		deps.LPFetcher = infrastructure.NewLPStorageFetcher(cfg.LPStorageBaseURL)
	}
	if cfg.LaborDocTemplate != "" {
		docx, err := infrastructure.NewDocxTemplateRenderer(cfg.LaborDocTemplate)
		if err != nil {
			return nil, err
		}
		deps.DOCX = docx
	}
	a.services = interfaces.BuildServices(deps, logger)

	if a.memory() {
		if _, err := a.services.NotifAdmin.SeedDefaults(ctx); err != nil {
			return nil, fmt.Errorf("seed notification settings: %w", err)
		}
	}
	return a, nil
}

func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown", zap.Error(err))
	}
}

// scheduledJobs mirrors the /api/cron endpoints.
func (a *app) scheduledJobs() []infrastructure.ScheduledJob {
	s := a.services
	reminder := func(kind application.ReminderKind) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			res, err := s.Reminders.Run(ctx, kind)
			a.logger.Info("reminders sent", zap.String("kind", string(kind)), zap.Any("result", res))
			return err
		}
	}
	jobs := []infrastructure.ScheduledJob{
		{Name: "update-statuses", Spec: "* * * * *", Timeout: 50 * time.Second, Run: func(ctx context.Context) error {
			_, err := s.Statuses.Run(ctx, application.StatusScope{})
			return err
		}},
		{Name: "job-batch", Spec: "0 0 * * *", Timeout: 5 * time.Minute, Run: func(ctx context.Context) error {
			res := s.JobBatch.Run(ctx)
			if len(res.Errors) > 0 {
				return fmt.Errorf("job batch: %d errors, first: %s", len(res.Errors), res.Errors[0])
			}
			return nil
		}},
		{Name: "reminders-day-before", Spec: "0 18 * * *", Timeout: 10 * time.Minute, Run: reminder(application.ReminderDayBefore)},
		{Name: "reminders-same-day", Spec: "0 7 * * *", Timeout: 10 * time.Minute, Run: reminder(application.ReminderSameDay)},
		{Name: "minimum-wage-promote", Spec: "5 0 * * *", Timeout: time.Minute, Run: func(ctx context.Context) error {
			_, err := s.MinimumWages.Promote(ctx)
			return err
		}},
	}
	if a.cfg.BankcodeAPIKey != "" {
		jobs = append(jobs, infrastructure.ScheduledJob{Name: "update-bank-data", Spec: "0 3 * * 0", Timeout: 5 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := s.Banks.UpdateBankData(ctx)
				return err
			}})
	}
	return jobs
}

func (a *app) newScheduler() (*infrastructure.Scheduler, error) {
	sched := infrastructure.NewScheduler(a.metrics, a.logger)
	for _, job := range a.scheduledJobs() {
		if err := sched.Add(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
