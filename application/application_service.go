package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

type ApplicationService struct {
	tx       Transactor
	jobs     JobRepository
	apps     ApplicationRepository
	users    UserRepository
	certs    CertificateRepository
	messages MessageRepository
	statuses *StatusUpdater
	notifier *Notifier
	settings *SettingsService
	activity *ActivityService
	clock    domain.Clock
	recorder Recorder
	logger   *zap.Logger
}

type ApplicationDeps struct {
	Statuses *StatusUpdater
	Notifier *Notifier
	Settings *SettingsService
	Activity *ActivityService
	Clock    domain.Clock
	Recorder Recorder
}

func NewApplicationService(r Repositories, d ApplicationDeps, logger *zap.Logger) *ApplicationService {
	if d.Recorder == nil {
		d.Recorder = NopRecorder
	}
	return &ApplicationService{
		tx:       r.Tx,
		jobs:     r.Jobs,
		apps:     r.Applications,
		users:    r.Users,
		certs:    r.Certificates,
		messages: r.Messages,
		statuses: d.Statuses,
		notifier: d.Notifier,
		settings: d.Settings,
		activity: d.Activity,
		clock:    d.Clock,
		recorder: d.Recorder,
		logger:   logger,
	}
}

// ProfileIncomplete carries the missing field labels in Details.
func ProfileIncomplete(missing []string) *domain.AppError {
	e := domain.NewError(domain.ErrValidation, "PROFILE_INCOMPLETE", "プロフィールが未完成のため応募できません")
	e.Details = map[string]any{"missing_fields": missing}
	return e
}

func certifiedSet(certs []domain.WorkerCertificate) map[string]bool {
	out := make(map[string]bool, len(certs))
	for _, c := range certs {
		out[c.Qualification] = true
	}
	return out
}

// Apply applies a worker to one work date. workDateID may be 0 when the job has a single date.
func (s *ApplicationService) Apply(ctx context.Context, userID, jobID, workDateID uint) (*domain.Application, error) {
	app, err := s.apply(ctx, userID, jobID, workDateID)
	s.activity.Record(ctx, ActivityEntry{
		Actor:      WorkerActor(userID),
		Action:     "APPLICATION_CREATE",
		TargetType: "Job",
		TargetID:   jobID,
		Request:    map[string]uint{"work_date_id": workDateID},
		Err:        err,
	})
	return app, err
}

func (s *ApplicationService) apply(ctx context.Context, userID, jobID, workDateID uint) (*domain.Application, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(job.WorkDates) == 0 {
		return nil, domain.Validation("この求人には勤務日が設定されていません")
	}
	if job.Status != domain.JobPublished {
		return nil, domain.NewError(domain.ErrInvalidState, "JOB_NOT_PUBLISHED", "この求人は現在募集していません")
	}
	if job.JobType == domain.JobTypeOffer && (job.TargetWorkerID == nil || *job.TargetWorkerID != userID) {
		return nil, domain.Forbidden("このオファーには応募できません")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsSuspended {
		return nil, domain.Forbidden("アカウントが停止されています")
	}
	certs, err := s.certs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	if missing := domain.MissingProfileFields(*user, certifiedSet(certs)); len(missing) > 0 {
		return nil, ProfileIncomplete(missing)
	}

	if workDateID == 0 {
		if len(job.WorkDates) > 1 {
			return nil, domain.Validation("勤務日を選択してください")
		}
		workDateID = job.WorkDates[0].ID
	}
	var wd *domain.JobWorkDate
	for i := range job.WorkDates {
		if job.WorkDates[i].ID == workDateID {
			wd = &job.WorkDates[i]
		}
	}
	if wd == nil {
		return nil, domain.NotFound("work date")
	}
	now := s.clock.Now()
	if now.After(wd.Deadline) {
		return nil, domain.Conflict("APP_DEADLINE", "応募締切を過ぎています")
	}
	if job.JobType == domain.JobTypeLimitedWorked {
		n, err := s.apps.CountMatchedWithFacility(ctx, userID, job.FacilityID, 0)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, domain.Forbidden("この求人は勤務経験のあるワーカー限定です")
		}
	}

	status := domain.StatusScheduled
	if job.RequiresInterview {
		status = domain.StatusApplied
	}

	var app *domain.Application
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.jobs.GetWorkDate(ctx, wd.ID)
		if err != nil {
			return err
		}
		if status == domain.StatusScheduled && current.IsFull() {
			return domain.Conflict("APP_FULL", "募集人数に達しています")
		}

		existing, err := s.apps.FindByUserAndWorkDate(ctx, userID, wd.ID)
		switch {
		case err == nil && existing.Status.IsActive():
			return domain.Conflict("APP_DUPLICATE", "既にこの勤務日に応募しています")
		case err == nil:
			existing.Status = status
			existing.CancelledBy = nil
			existing.WorkerReviewStatus = domain.ReviewPending
			existing.FacilityReviewStatus = domain.ReviewPending
			existing.IsViewed = false
			if err := s.apps.Save(ctx, existing); err != nil {
				return err
			}
			app = existing
		case errors.Is(err, domain.ErrNotFound):
			app = &domain.Application{
				WorkDateID:           wd.ID,
				UserID:               userID,
				Status:               status,
				WorkerReviewStatus:   domain.ReviewPending,
				FacilityReviewStatus: domain.ReviewPending,
			}
			if err := s.apps.Create(ctx, app); err != nil {
				return err
			}
		default:
			return err
		}

		matched := 0
		if status == domain.StatusScheduled {
			matched = 1
		}
		return s.jobs.AdjustWorkDateCounts(ctx, wd.ID, 1, matched)
	})
	if err != nil {
		return nil, err
	}
	s.recorder.StatusTransition("", status)

	full, err := s.apps.Get(ctx, app.ID)
	if err != nil {
		return app, nil
	}
	s.notifyFacility(ctx, full, domain.KeyFacilityNewApplication)
	if status == domain.StatusScheduled {
		s.onMatched(ctx, full)
	}
	s.logger.Info("application created",
		zap.Uint("application_id", full.ID), zap.Uint("user_id", userID), zap.String("status", string(status)))
	return full, nil
}

// ApplyResult is one date's outcome of ApplyMultiple.
type ApplyResult struct {
	WorkDateID  uint                `json:"work_date_id"`
	Application *domain.Application `json:"application,omitempty"`
	Error       string              `json:"error,omitempty"`
	Code        string              `json:"code,omitempty"`
}

func (s *ApplicationService) ApplyMultiple(ctx context.Context, userID, jobID uint, workDateIDs []uint) ([]ApplyResult, error) {
	if len(workDateIDs) == 0 {
		return nil, domain.Validation("勤務日を選択してください")
	}
	results := make([]ApplyResult, 0, len(workDateIDs))
	for _, id := range workDateIDs {
		app, err := s.Apply(ctx, userID, jobID, id)
		r := ApplyResult{WorkDateID: id, Application: app}
		if err != nil {
			r.Error = err.Error()
			var ae *domain.AppError
			if errors.As(err, &ae) {
				r.Code = ae.Code
				r.Error = ae.Message
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// UpdateStatusByFacility moves an application along the facility-driven transitions.
func (s *ApplicationService) UpdateStatusByFacility(ctx context.Context, actor Actor, appID uint, next domain.ApplicationStatus) (*domain.Application, error) {
	app, err := s.apps.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.FacilityID() != actor.FacilityID {
		return nil, domain.Forbidden("この応募を操作する権限がありません")
	}
	if !app.CanTransition(next) {
		return nil, domain.NewError(domain.ErrInvalidState, "APP_INVALID_TRANSITION",
			fmt.Sprintf("%s から %s へは変更できません", app.Status, next))
	}
	if app.Status == domain.StatusScheduled && next == domain.StatusCancelled {
		start, _, err := app.Period()
		if err != nil {
			return nil, err
		}
		if !s.clock.Now().Before(start) {
			return nil, domain.Conflict("APP_ALREADY_STARTED", "勤務開始後はキャンセルできません")
		}
	}

	from := app.Status
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if from == domain.StatusApplied && next == domain.StatusScheduled {
			wd, err := s.jobs.GetWorkDate(ctx, app.WorkDateID)
			if err != nil {
				return err
			}
			if wd.IsFull() {
				return domain.Conflict("APP_FULL", "募集人数に達しています")
			}
		}
		delta := domain.TransitionDelta(from, next)
		if delta != (domain.CounterDelta{}) {
			if err := s.jobs.AdjustWorkDateCounts(ctx, app.WorkDateID, delta.Applied, delta.Matched); err != nil {
				return err
			}
		}
		app.Status = next
		if next == domain.StatusCancelled {
			by := domain.CancelledByFacility
			app.CancelledBy = &by
		}
		return s.apps.Save(ctx, app)
	})
	if err != nil {
		return nil, err
	}
	s.recorder.StatusTransition(from, next)
	s.logger.Info("application status changed", zap.Uint("application_id", app.ID),
		zap.String("from", string(from)), zap.String("to", string(next)), zap.Uint("facility_id", actor.FacilityID))

	switch next {
	case domain.StatusScheduled:
		s.onMatched(ctx, app)
		s.notifySlotsFilled(ctx, app)
	case domain.StatusCompletedPending:
		s.notifyWorker(ctx, app, domain.KeyWorkerReviewRequest)
		s.notifyFacility(ctx, app, domain.KeyFacilityReviewRequest)
	case domain.StatusCancelled:
		if from == domain.StatusApplied {
			s.notifyWorker(ctx, app, domain.KeyWorkerInterviewRejected)
		} else {
			s.notifyWorker(ctx, app, domain.KeyWorkerCancelledByFacility)
		}
	}
	return app, nil
}

// CancelByWorker cancels a scheduled application before its shift starts.
func (s *ApplicationService) CancelByWorker(ctx context.Context, userID, appID uint) (*domain.Application, error) {
	app, err := s.cancelByWorker(ctx, userID, appID)
	s.activity.Record(ctx, ActivityEntry{
		Actor: WorkerActor(userID), Action: "APPLICATION_CANCEL", TargetType: "Application", TargetID: appID, Err: err,
	})
	return app, err
}

func (s *ApplicationService) cancelByWorker(ctx context.Context, userID, appID uint) (*domain.Application, error) {
	app, err := s.apps.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.UserID != userID {
		return nil, domain.Forbidden("この応募を操作する権限がありません")
	}
	if app.Status != domain.StatusScheduled {
		return nil, domain.NewError(domain.ErrInvalidState, "APP_NOT_CANCELLABLE", "この応募はキャンセルできません")
	}
	start, _, err := app.Period()
	if err != nil {
		return nil, err
	}
	if !s.clock.Now().Before(start) {
		return nil, domain.Conflict("APP_ALREADY_STARTED", "勤務開始後はキャンセルできません")
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.jobs.AdjustWorkDateCounts(ctx, app.WorkDateID, -1, -1); err != nil {
			return err
		}
		by := domain.CancelledByWorker
		app.Status = domain.StatusCancelled
		app.CancelledBy = &by
		return s.apps.Save(ctx, app)
	})
	if err != nil {
		return nil, err
	}
	s.recorder.StatusTransition(domain.StatusScheduled, domain.StatusCancelled)
	s.notifyFacility(ctx, app, domain.KeyFacilityCancelledByWorker)
	s.checkCancelRate(ctx, app)
	return app, nil
}

func (s *ApplicationService) checkCancelRate(ctx context.Context, app *domain.Application) {
	cancels, settled, err := s.apps.CancelStats(ctx, app.UserID)
	if err != nil {
		s.logger.Warn("cancel stats", zap.Uint("user_id", app.UserID), zap.Error(err))
		return
	}
	if !domain.IsHighCancelRate(cancels, settled) {
		return
	}
	vars := shiftVars(s.notifier, app)
	vars["worker_id"] = itoa(app.UserID)
	vars["cancel_count"] = strconv.FormatInt(cancels, 10)
	vars["total_count"] = strconv.FormatInt(settled, 10)
	vars["cancel_rate"] = strconv.FormatFloat(float64(cancels)/float64(settled)*100, 'f', 1, 64)
	notify(ctx, s.notifier, s.logger, NotifyParams{
		Key:        domain.KeyAdminHighCancelRate,
		TargetType: domain.TargetSystemAdmin,
		Emails:     s.settings.AdminAlertEmails(ctx),
		Vars:       vars,
	})
}

// onMatched sends the facility greeting on a first match and the match notice.
func (s *ApplicationService) onMatched(ctx context.Context, app *domain.Application) {
	job := app.Job()
	if job == nil || job.Facility == nil || app.User == nil {
		return
	}
	if job.Facility.InitialMessage != "" {
		n, err := s.apps.CountMatchedWithFacility(ctx, app.UserID, job.FacilityID, app.ID)
		if err != nil {
			s.logger.Warn("count previous matches", zap.Error(err))
		} else if n == 0 {
			msg := &domain.Message{
				ApplicationID:  app.ID,
				JobID:          uintPtr(job.ID),
				FromFacilityID: uintPtr(job.FacilityID),
				ToUserID:       uintPtr(app.UserID),
				Content:        domain.RenderInitialMessage(job.Facility.InitialMessage, app.User.Name, job.Facility.Name),
			}
			if err := s.messages.Create(ctx, msg); err != nil {
				s.logger.Warn("initial message", zap.Uint("application_id", app.ID), zap.Error(err))
			}
		}
	}
	s.notifyWorker(ctx, app, domain.KeyWorkerMatched)
}

func (s *ApplicationService) notifySlotsFilled(ctx context.Context, app *domain.Application) {
	wd, err := s.jobs.GetWorkDate(ctx, app.WorkDateID)
	if err != nil {
		s.logger.Warn("reload work date", zap.Error(err))
		return
	}
	if wd.IsFull() {
		s.notifyFacility(ctx, app, domain.KeyFacilitySlotsFilled)
	}
}

func (s *ApplicationService) notifyWorker(ctx context.Context, app *domain.Application, key string) {
	notify(ctx, s.notifier, s.logger, workerParams(s.notifier, app, key))
}

func (s *ApplicationService) notifyFacility(ctx context.Context, app *domain.Application, key string) {
	notify(ctx, s.notifier, s.logger, facilityParams(s.notifier, app, key))
}

// ListForWorker refreshes time-driven statuses before reading.
func (s *ApplicationService) ListForWorker(ctx context.Context, userID uint, statuses []domain.ApplicationStatus) ([]domain.Application, error) {
	if _, err := s.statuses.Run(ctx, StatusScope{UserID: userID}); err != nil {
		s.logger.Warn("status refresh", zap.Uint("user_id", userID), zap.Error(err))
	}
	return s.apps.Find(ctx, ApplicationQuery{UserID: userID, Statuses: statuses})
}

func (s *ApplicationService) ListForFacility(ctx context.Context, facilityID, jobID uint, statuses []domain.ApplicationStatus) ([]domain.Application, error) {
	if _, err := s.statuses.Run(ctx, StatusScope{FacilityID: facilityID}); err != nil {
		s.logger.Warn("status refresh", zap.Uint("facility_id", facilityID), zap.Error(err))
	}
	return s.apps.Find(ctx, ApplicationQuery{FacilityID: facilityID, JobID: jobID, Statuses: statuses})
}

// shiftVars are the template variables shared by every application notification.
func shiftVars(n *Notifier, app *domain.Application) map[string]string {
	vars := map[string]string{"application_id": itoa(app.ID)}
	if app.User != nil {
		vars["worker_name"] = app.User.Name
		vars["worker_email"] = app.User.Email
	}
	if job := app.Job(); job != nil {
		vars["job_title"] = job.Title
		vars["start_time"] = job.StartTime
		vars["end_time"] = job.EndTime
		vars["wage"] = strconv.Itoa(job.Wage)
		vars["work_date"] = app.WorkDate.WorkDate.In(domain.JST).Format("2006/01/02")
		if job.Facility != nil {
			vars["facility_name"] = job.Facility.Name
			vars["facility_id"] = itoa(job.FacilityID)
		}
	}
	if n != nil {
		vars["my_job_url"] = n.URL("/my-jobs/" + itoa(app.ID))
		vars["review_url"] = n.URL("/mypage/reviews/" + itoa(app.ID))
	}
	return vars
}

func workerParams(n *Notifier, app *domain.Application, key string) NotifyParams {
	p := NotifyParams{
		Key:           key,
		TargetType:    domain.TargetWorker,
		RecipientID:   app.UserID,
		ApplicationID: uintPtr(app.ID),
		Vars:          shiftVars(n, app),
		Link:          "/my-jobs/" + itoa(app.ID),
	}
	if app.User != nil {
		p.RecipientName = app.User.Name
		p.RecipientEmail = app.User.Email
	}
	if job := app.Job(); job != nil {
		p.JobID = uintPtr(job.ID)
	}
	return p
}

func facilityParams(n *Notifier, app *domain.Application, key string) NotifyParams {
	p := NotifyParams{
		Key:           key,
		TargetType:    domain.TargetFacility,
		ApplicationID: uintPtr(app.ID),
		Vars:          shiftVars(n, app),
		Link:          "/admin/applications/" + itoa(app.ID),
	}
	if job := app.Job(); job != nil {
		p.JobID = uintPtr(job.ID)
		p.RecipientID = job.FacilityID
		if job.Facility != nil {
			p.RecipientName = job.Facility.Name
			p.Emails = job.Facility.StaffEmails
		}
	}
	return p
}
