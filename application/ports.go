package application

import (
	"context"
	"time"

	"shiftmatch/domain"
)

// Transactor runs fn inside one database transaction. Repositories pick the transaction up from ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type FacilityRepository interface {
	Get(ctx context.Context, id uint) (*domain.Facility, error)
	List(ctx context.Context) ([]domain.Facility, error)
	FindByEmergencyCode(ctx context.Context, code string) (*domain.Facility, error)
	EmergencyCodeInUse(ctx context.Context, code string, excludeID uint) (bool, error)
	Create(ctx context.Context, f *domain.Facility) error
	Save(ctx context.Context, f *domain.Facility) error
}

type FacilityAdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.FacilityAdmin, error)
	ListByFacility(ctx context.Context, facilityID uint) ([]domain.FacilityAdmin, error)
	Create(ctx context.Context, a *domain.FacilityAdmin) error
	Save(ctx context.Context, a *domain.FacilityAdmin) error
}

type SystemAdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.SystemAdmin, error)
	List(ctx context.Context) ([]domain.SystemAdmin, error)
	Create(ctx context.Context, a *domain.SystemAdmin) error
	Save(ctx context.Context, a *domain.SystemAdmin) error
}

type UserRepository interface {
	Get(ctx context.Context, id uint) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Save(ctx context.Context, u *domain.User) error
}

type CertificateRepository interface {
	Create(ctx context.Context, c *domain.WorkerCertificate) error
	ListByUser(ctx context.Context, userID uint) ([]domain.WorkerCertificate, error)
}

// JobFilter narrows the public job list to one prefecture and one work date.
type JobFilter struct {
	Prefecture string
	Date       *time.Time
	Offset     int
	Limit      int
}

type JobRepository interface {
	// Get loads the job with its work dates and facility.
	Get(ctx context.Context, id uint) (*domain.Job, error)
	Create(ctx context.Context, j *domain.Job) error
	Save(ctx context.Context, j *domain.Job) error
	Delete(ctx context.Context, id uint) error
	ListByFacility(ctx context.Context, facilityID uint) ([]domain.Job, error)
	ListPublished(ctx context.Context, f JobFilter) ([]domain.Job, int64, error)
	ListByStatusAndTypes(ctx context.Context, status domain.JobStatus, types ...domain.JobType) ([]domain.Job, error)
	// PromoteToWorking moves PUBLISHED jobs among ids to WORKING.
	PromoteToWorking(ctx context.Context, ids []uint) (int64, error)

	GetWorkDate(ctx context.Context, id uint) (*domain.JobWorkDate, error)
	// AdjustWorkDateCounts adds the deltas to the applied/matched counters atomically.
	AdjustWorkDateCounts(ctx context.Context, workDateID uint, applied, matched int) error
	MoveWorkDate(ctx context.Context, workDateID, jobID uint) error
	// DeleteWorkDate removes a work date together with its inactive applications.
	DeleteWorkDate(ctx context.Context, workDateID uint) error
}

// ApplicationQuery selects applications with their work date, job, facility and worker preloaded.
type ApplicationQuery struct {
	Statuses     []domain.ApplicationStatus
	UserID       uint
	FacilityID   uint
	JobID        uint
	WorkDateFrom *time.Time // inclusive
	WorkDateTo   *time.Time // exclusive
}

type ApplicationRepository interface {
	Get(ctx context.Context, id uint) (*domain.Application, error)
	FindByUserAndWorkDate(ctx context.Context, userID, workDateID uint) (*domain.Application, error)
	Create(ctx context.Context, a *domain.Application) error
	Save(ctx context.Context, a *domain.Application) error
	Find(ctx context.Context, q ApplicationQuery) ([]domain.Application, error)
	// TransitionMany moves the given ids from one status to another and returns the number changed.
	TransitionMany(ctx context.Context, ids []uint, from, to domain.ApplicationStatus) (int64, error)
	CountActiveOnWorkDate(ctx context.Context, workDateID uint) (int64, error)
	// CountMatchedWithFacility counts the worker's matched applications at a facility, excluding one id.
	CountMatchedWithFacility(ctx context.Context, userID, facilityID, excludeID uint) (int64, error)
	// CancelStats returns the worker's own cancellations and the settled total
	// (COMPLETED_RATED plus CANCELLED).
	CancelStats(ctx context.Context, userID uint) (workerCancels, settled int64, err error)
	MarkReviewed(ctx context.Context, userID, jobID uint, reviewer domain.ReviewerType) error
}

type AttendanceRepository interface {
	Create(ctx context.Context, a *domain.Attendance) error
	Save(ctx context.Context, a *domain.Attendance) error
	// Get loads the attendance with facility, worker, application chain and modification.
	Get(ctx context.Context, id uint) (*domain.Attendance, error)
	FindOpen(ctx context.Context, userID uint) (*domain.Attendance, error)
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]domain.Attendance, int64, error)
	ListByFacilityBetween(ctx context.Context, facilityID uint, from, to time.Time) ([]domain.Attendance, error)
}

type ModificationRepository interface {
	Create(ctx context.Context, m *domain.AttendanceModificationRequest) error
	Save(ctx context.Context, m *domain.AttendanceModificationRequest) error
	// Get loads the request with its attendance chain.
	Get(ctx context.Context, id uint) (*domain.AttendanceModificationRequest, error)
	FindByAttendance(ctx context.Context, attendanceID uint) (*domain.AttendanceModificationRequest, error)
	ListByFacility(ctx context.Context, facilityID uint, statuses []domain.ModificationStatus) ([]domain.AttendanceModificationRequest, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.AttendanceModificationRequest, error)
	CountByFacility(ctx context.Context, facilityID uint, statuses []domain.ModificationStatus) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	ListByApplication(ctx context.Context, applicationID uint) ([]domain.Message, error)
	MarkRead(ctx context.Context, applicationID uint, reader domain.TargetType, at time.Time) (int64, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) error
	ExistsForJob(ctx context.Context, jobID, userID uint, reviewer domain.ReviewerType) (bool, error)
	ExistsForApplication(ctx context.Context, applicationID uint, reviewer domain.ReviewerType) (bool, error)
	// RecentFacilityRatings returns worker ratings of a facility, newest first.
	RecentFacilityRatings(ctx context.Context, facilityID uint, limit int) ([]int, error)
	FacilityRatings(ctx context.Context, facilityID uint) ([]int, error)
	ListByFacility(ctx context.Context, facilityID uint, reviewer domain.ReviewerType) ([]domain.Review, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.Review, error)
}

type NotificationSettingRepository interface {
	Get(ctx context.Context, key string) (*domain.NotificationSetting, error)
	List(ctx context.Context) ([]domain.NotificationSetting, error)
	Save(ctx context.Context, s *domain.NotificationSetting) error
}

type NotificationLogFilter struct {
	Key     string
	Channel domain.NotificationChannel
	Status  domain.NotificationLogStatus
	Limit   int
}

type NotificationLogRepository interface {
	Create(ctx context.Context, l *domain.NotificationLog) error
	Get(ctx context.Context, id uint) (*domain.NotificationLog, error)
	Save(ctx context.Context, l *domain.NotificationLog) error
	List(ctx context.Context, f NotificationLogFilter) ([]domain.NotificationLog, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, target domain.TargetType, ownerID uint, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id uint, target domain.TargetType, ownerID uint, at time.Time) error
}

type SystemSettingRepository interface {
	Get(ctx context.Context, key string) (*domain.SystemSetting, error)
	List(ctx context.Context) ([]domain.SystemSetting, error)
	Upsert(ctx context.Context, s *domain.SystemSetting) error
}

type MinimumWageRepository interface {
	// ListAll returns rows ordered by prefecture, newest effective date first.
	ListAll(ctx context.Context) ([]domain.MinimumWage, error)
	Get(ctx context.Context, id uint) (*domain.MinimumWage, error)
	Create(ctx context.Context, w *domain.MinimumWage) error
	Save(ctx context.Context, w *domain.MinimumWage) error
	DeleteIDs(ctx context.Context, ids []uint) error
	// DeleteScheduled removes rows for prefs effective strictly after the given instant.
	DeleteScheduled(ctx context.Context, prefs []string, after time.Time) error
	// DeleteIfScheduled removes id only when it is effective after the given instant.
	DeleteIfScheduled(ctx context.Context, id uint, after time.Time) (int64, error)
	CreateHistory(ctx context.Context, h []domain.MinimumWageHistory) error
	ListHistory(ctx context.Context, prefecture string, limit int) ([]domain.MinimumWageHistory, error)
}

type BankRepository interface {
	SearchBanks(ctx context.Context, variants []string, limit int) ([]domain.Bank, error)
	SearchBranches(ctx context.Context, bankCode string, variants []string, limit int) ([]domain.Branch, error)
	UpsertBanks(ctx context.Context, banks []domain.Bank) error
	UpsertBranches(ctx context.Context, branches []domain.Branch) error
}

type LandingPageRepository interface {
	List(ctx context.Context, numbers []int) ([]domain.LandingPage, error)
	GetByNumber(ctx context.Context, lpNumber int) (*domain.LandingPage, error)
	Create(ctx context.Context, lp *domain.LandingPage) error
	Save(ctx context.Context, lp *domain.LandingPage) error
	CreateEvent(ctx context.Context, e *domain.LPTrackingEvent) error
}

type ActivityLogRepository interface {
	Create(ctx context.Context, l *domain.ActivityLog) error
	List(ctx context.Context, limit int) ([]domain.ActivityLog, error)
}

type PasswordResetRepository interface {
	Create(ctx context.Context, t *domain.PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	Save(ctx context.Context, t *domain.PasswordResetToken) error
}

type AnalyticsRepository interface {
	Summarize(ctx context.Context, from, to time.Time) (domain.MetricsSummary, error)
}

// Gateways.

type NotificationQueue interface {
	Publish(ctx context.Context, job domain.NotificationJob) error
}

type Email struct {
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, e Email) error
}

type SessionStore interface {
	Put(ctx context.Context, s domain.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// BankDirectory is the remote bank code API used when the local table has no match.
type BankDirectory interface {
	SearchBanks(ctx context.Context, query string, limit int) ([]domain.Bank, error)
	SearchBranches(ctx context.Context, bankCode, query string, limit int) ([]domain.Branch, error)
	AllBanks(ctx context.Context) ([]domain.Bank, error)
	AllBranches(ctx context.Context, bankCode string) ([]domain.Branch, error)
}

// LPAssetFetcher loads an LP's published index.html.
type LPAssetFetcher interface {
	FetchIndexHTML(ctx context.Context, lpNumber int) (string, error)
}

type Forecaster interface {
	Forecast(ctx context.Context, in domain.ForecastInput) (*domain.Forecast, error)
}

// DocumentRenderer turns a labor document into file bytes of one format.
type DocumentRenderer interface {
	Render(doc domain.LaborDocument) ([]byte, error)
}

type TextExtractor interface {
	ExtractText(fileName string, data []byte) (string, error)
}

type FileStorage interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// PayrollRow is one attendance line of the facility monthly workbook.
type PayrollRow struct {
	WorkerName         string
	WorkDate           time.Time
	CheckIn            time.Time
	CheckOut           *time.Time
	ActualStart        *time.Time
	ActualEnd          *time.Time
	BreakMinutes       int
	Wage               int
	ModificationStatus string
}

type PayrollWorkbookBuilder interface {
	Build(facilityName, month string, rows []PayrollRow) ([]byte, error)
}

// Repositories bundles every repository so services can be wired from one value.
type Repositories struct {
	Tx             Transactor
	Facilities     FacilityRepository
	FacilityAdmins FacilityAdminRepository
	SystemAdmins   SystemAdminRepository
	Users          UserRepository
	Certificates   CertificateRepository
	Jobs           JobRepository
	Applications   ApplicationRepository
	Attendances    AttendanceRepository
	Modifications  ModificationRepository
	Messages       MessageRepository
	Reviews        ReviewRepository
	NotifSettings  NotificationSettingRepository
	NotifLogs      NotificationLogRepository
	Notifications  NotificationRepository
	SystemSettings SystemSettingRepository
	MinimumWages   MinimumWageRepository
	Banks          BankRepository
	LandingPages   LandingPageRepository
	ActivityLogs   ActivityLogRepository
	PasswordResets PasswordResetRepository
	Analytics      AnalyticsRepository
}
