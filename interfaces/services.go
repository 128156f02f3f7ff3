package interfaces

import (
	"go.uber.org/zap"

	"shiftmatch/application"
	"shiftmatch/domain"
)

// Dependencies are the adapters the services run on. Optional gateways are left nil when not configured.
type Dependencies struct {
	Repos     application.Repositories
	Queue     application.NotificationQueue
	Mailer    application.Mailer
	Sessions  application.SessionStore
	Directory application.BankDirectory
	LPFetcher application.LPAssetFetcher
	Forecast  application.Forecaster
	PDF       application.DocumentRenderer
	DOCX      application.DocumentRenderer
	Extractor application.TextExtractor
	Storage   application.FileStorage
	Payroll   application.PayrollWorkbookBuilder
	Recorder  application.Recorder
	Clock     domain.Clock

	BaseURL    string
	JWTSecret  string
	Production bool
}

// BuildServices wires every application service from one set of adapters.
func BuildServices(d Dependencies, logger *zap.Logger) Services {
	if d.Recorder == nil {
		d.Recorder = application.NopRecorder
	}
	if d.Clock == nil {
		d.Clock = domain.SystemClock{}
	}
	r := d.Repos

	notifier := application.NewNotifier(application.NotifierDeps{
		Settings:      r.NotifSettings,
		Logs:          r.NotifLogs,
		Messages:      r.Messages,
		Notifications: r.Notifications,
		Queue:         d.Queue,
		Clock:         d.Clock,
		Recorder:      d.Recorder,
		BaseURL:       d.BaseURL,
	}, logger.Named("notifier"))
	settings := application.NewSettingsService(r.SystemSettings, d.Production, logger.Named("settings"))
	activity := application.NewActivityService(r.ActivityLogs, logger.Named("activity"))
	statuses := application.NewStatusUpdater(r, d.Clock, d.Recorder, logger.Named("status"))
	wages := application.NewMinimumWageService(r, d.Clock, logger.Named("minimum_wage"))

	return Services{
		Auth: application.NewAuthService(r, application.AuthDeps{
			Sessions:  d.Sessions,
			Notifier:  notifier,
			Settings:  settings,
			Activity:  activity,
			Clock:     d.Clock,
			JWTSecret: []byte(d.JWTSecret),
		}, logger.Named("auth")),
		Profiles: application.NewProfileService(r, d.Storage, d.Extractor, logger.Named("profile")),
		Jobs:     application.NewJobService(r, wages, d.Clock, logger.Named("jobs")),
		Applications: application.NewApplicationService(r, application.ApplicationDeps{
			Statuses: statuses,
			Notifier: notifier,
			Settings: settings,
			Activity: activity,
			Clock:    d.Clock,
			Recorder: d.Recorder,
		}, logger.Named("applications")),
		Statuses:     statuses,
		Attendance:   application.NewAttendanceService(r, notifier, d.Payroll, d.Clock, logger.Named("attendance")),
		LaborDocs:    application.NewLaborDocumentService(r.Applications, d.PDF, d.DOCX, d.Clock, logger.Named("labor_doc")),
		Reviews:      application.NewReviewService(r, notifier, settings, logger.Named("reviews")),
		Messages:     application.NewMessageService(r, notifier, activity, d.Clock, logger.Named("messages")),
		Notifier:     notifier,
		NotifAdmin:   application.NewNotificationAdminService(notifier, d.Mailer, logger.Named("notification_admin")),
		Reminders:    application.NewReminderService(r.Applications, notifier, d.Clock, logger.Named("reminders")),
		JobBatch:     application.NewJobBatch(r, d.Clock, logger.Named("job_batch")),
		MinimumWages: wages,
		Banks:        application.NewBankService(r.Banks, d.Directory, d.Clock, logger.Named("banks")),
		LandingPages: application.NewLandingPageService(r.LandingPages, d.LPFetcher, d.Clock, logger.Named("lp")),
		Settings:     settings,
		Analytics:    application.NewAnalyticsService(r.Analytics, d.Forecast, d.Clock, logger.Named("analytics")),
		Activity:     activity,
		Recorder:     d.Recorder,
		Clock:        d.Clock,
	}
}
