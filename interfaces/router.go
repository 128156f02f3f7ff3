package interfaces

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shiftmatch/application"
	"shiftmatch/domain"
	"shiftmatch/infrastructure"
)

// Services is every application service the HTTP layer calls.
type Services struct {
	Auth         *application.AuthService
	Profiles     *application.ProfileService
	Jobs         *application.JobService
	Applications *application.ApplicationService
	Statuses     *application.StatusUpdater
	Attendance   *application.AttendanceService
	LaborDocs    *application.LaborDocumentService
	Reviews      *application.ReviewService
	Messages     *application.MessageService
	Notifier     *application.Notifier
	NotifAdmin   *application.NotificationAdminService
	Reminders    *application.ReminderService
	JobBatch     *application.JobBatch
	MinimumWages *application.MinimumWageService
	Banks        *application.BankService
	LandingPages *application.LandingPageService
	Settings     *application.SettingsService
	Analytics    *application.AnalyticsService
	Activity     *application.ActivityService
	Recorder     application.Recorder
	Clock        domain.Clock
}

type RouterOptions struct {
	CronSecret   string
	Production   bool
	SecureCookie bool
	Metrics      *infrastructure.Metrics
	Logger       *zap.Logger
}

type HTTPHandler struct {
	Services

	cronSecret   string
	production   bool
	secureCookie bool
	recorder     application.Recorder
	logger       *zap.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(svc Services, opts RouterOptions) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	recorder := svc.Recorder
	if recorder == nil {
		recorder = application.NopRecorder
	}
	h := &HTTPHandler{
		Services:     svc,
		cronSecret:   opts.CronSecret,
		production:   opts.Production,
		secureCookie: opts.SecureCookie,
		recorder:     recorder,
		logger:       opts.Logger.Named("http"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(h.logger), instrument(opts.Metrics))
	router.MaxMultipartMemory = application.MaxUploadBytes + 1<<20

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := router.Group("/api")
	h.mountAuth(api)
	h.mountPublic(api)
	h.mountWorker(api.Group("", h.requireWorker()))
	h.mountFacility(api.Group("/admin", h.requireSession(FacilitySessionCookie, domain.AccountFacilityAdmin)))
	h.mountSystemAdmin(api.Group("/system-admin", h.requireSession(SystemAdminSessionCookie, domain.AccountSystemAdmin)))
	h.mountCron(api.Group("/cron", h.requireCron()))
	return router
}

func (h *HTTPHandler) mountAuth(api *gin.RouterGroup) {
	limiter := newIPLimiter(5, 5)
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.rateLimit(limiter), h.WorkerLogin)
	api.POST("/admin/login", h.rateLimit(limiter), h.FacilityLogin)
	api.POST("/admin/logout", h.Logout(FacilitySessionCookie))
	api.POST("/system-admin/auth/login", h.rateLimit(limiter), h.SystemAdminLogin)
	api.POST("/system-admin/auth/logout", h.Logout(SystemAdminSessionCookie))
	api.POST("/password-reset/request", h.rateLimit(limiter), h.RequestPasswordReset)
	api.POST("/password-reset/confirm", h.ConfirmPasswordReset)
}

func (h *HTTPHandler) mountPublic(api *gin.RouterGroup) {
	api.GET("/jobs", h.ListPublishedJobs)
	api.GET("/jobs/:id", h.JobDetail)
	api.GET("/bank/search", h.SearchBanks)
	api.GET("/bank/:bankCode/branches", h.SearchBranches)
	api.POST("/lp-tracking", h.TrackLandingPage)
	api.GET("/minimum-wages", h.ListMinimumWages)
}

func (h *HTTPHandler) mountWorker(w *gin.RouterGroup) {
	w.GET("/me", h.GetProfile)
	w.PUT("/me", h.UpdateProfile)
	w.POST("/me/certificates", h.UploadCertificate)
	w.POST("/me/documents/:kind", h.UploadProfileDocument)

	w.POST("/jobs/:id/apply", h.Apply)
	w.GET("/applications", h.ListWorkerApplications)
	w.POST("/applications/:id/cancel", h.CancelApplication)
	w.GET("/applications/:id/labor-document", h.LaborDocument)
	w.GET("/applications/:id/messages", h.ListMessages)
	w.POST("/applications/:id/messages", h.SendMessage)

	w.POST("/attendance/record", h.RecordAttendance)
	w.GET("/attendance/status", h.AttendanceStatus)
	w.GET("/attendance/history", h.AttendanceHistory)
	w.POST("/attendance/modifications", h.CreateModification)
	w.PUT("/attendance/modifications/:id", h.ResubmitModification)
	w.GET("/attendance/modifications", h.ListWorkerModifications)

	w.POST("/reviews", h.ReviewJob)
	w.GET("/reviews", h.ListWorkerReviews)
	w.GET("/notifications", h.ListNotifications)
	w.POST("/notifications/:id/read", h.MarkNotificationRead)
}

func (h *HTTPHandler) mountFacility(a *gin.RouterGroup) {
	a.GET("/jobs", h.ListFacilityJobs)
	a.POST("/jobs", h.CreateJob)
	a.PUT("/jobs/:id", h.UpdateJob)
	a.POST("/jobs/:id/status", h.SetJobStatus)
	a.DELETE("/jobs/:id", h.DeleteJob)

	a.GET("/applications", h.ListFacilityApplications)
	a.POST("/applications/:id/status", h.UpdateApplicationStatus)
	a.GET("/applications/:id/messages", h.ListMessages)
	a.POST("/applications/:id/messages", h.SendMessage)
	a.GET("/applications/:id/labor-document", h.LaborDocument)
	a.POST("/applications/:id/review", h.ReviewWorker)

	a.GET("/attendance/modifications", h.ListPendingModifications)
	a.POST("/attendance/modifications/:id/approve", h.ApproveModification)
	a.POST("/attendance/modifications/:id/reject", h.RejectModification)
	a.GET("/attendance/settings", h.AttendanceSettings)
	a.POST("/attendance/qr/regenerate", h.RegenerateQR)
	a.PUT("/attendance/emergency-code", h.UpdateEmergencyCode)
	a.GET("/attendance/payroll.xlsx", h.PayrollWorkbook)

	a.GET("/reviews", h.ListFacilityReviews)
	a.GET("/notifications", h.ListNotifications)
	a.POST("/notifications/:id/read", h.MarkNotificationRead)
}

func (h *HTTPHandler) mountSystemAdmin(s *gin.RouterGroup) {
	s.GET("/minimum-wage", h.AdminMinimumWages)
	s.PUT("/minimum-wage", h.UpsertMinimumWage)
	s.POST("/minimum-wage/import", h.ImportMinimumWages)
	s.DELETE("/minimum-wage/:id", h.DeleteScheduledWage)
	s.GET("/minimum-wage/history", h.MinimumWageHistory)
	s.GET("/minimum-wage/export", h.ExportMinimumWages)

	s.GET("/notification-settings", h.ListNotificationSettings)
	s.PUT("/notification-settings", h.UpdateNotificationSetting)
	s.POST("/notification-settings/seed", h.SeedNotificationSettings)
	s.GET("/notification-logs", h.ListNotificationLogs)
	s.POST("/test-notifications/email", h.SendTestEmail)

	s.GET("/settings", h.ListSettings)
	s.PUT("/settings", h.UpdateSettings)

	s.GET("/lp", h.ListLandingPages)
	s.POST("/lp", h.CreateLandingPage)
	s.POST("/lp/check-tags", h.CheckLandingPageTags)
	s.PUT("/lp/:lpNumber", h.UpdateLandingPage)

	s.GET("/analytics/summary", h.AnalyticsSummary)
	s.POST("/analytics/forecast", h.AnalyticsForecast)
	s.GET("/activity-logs", h.ActivityLogs)
}

func (h *HTTPHandler) mountCron(c *gin.RouterGroup) {
	c.GET("/update-statuses", h.CronUpdateStatuses)
	c.GET("/job-batch", h.CronJobBatch)
	c.GET("/notifications", h.CronReminders)
	c.GET("/minimum-wage-promote", h.CronPromoteWages)
	c.GET("/update-bank-data", h.CronUpdateBankData)
}
