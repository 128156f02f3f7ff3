package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"shiftmatch/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, _, err := domain.ParseHHMM(fl.Field().String())
		return err == nil
	})
	return v
}

// validationError turns validator output into a domain validation error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Validation(err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}
	e := domain.Validation("入力内容に誤りがあります: " + strings.Join(fields, ", "))
	e.Details = map[string]any{"fields": fields}
	return e
}

type JobInput struct {
	Title              string         `json:"title" validate:"required,max=255"`
	Overview           string         `json:"overview"`
	JobType            domain.JobType `json:"job_type" validate:"omitempty,oneof=NORMAL LIMITED_WORKED LIMITED_FAVORITE OFFER"`
	StartTime          string         `json:"start_time" validate:"required,hhmm"`
	EndTime            string         `json:"end_time" validate:"required,hhmm"`
	BreakMinutes       int            `json:"break_minutes" validate:"min=0,max=480"`
	HourlyWage         int            `json:"hourly_wage" validate:"gt=0"`
	TransportationFee  int            `json:"transportation_fee" validate:"min=0"`
	RecruitmentCount   int            `json:"recruitment_count" validate:"min=1"`
	Prefecture         string         `json:"prefecture"`
	City               string         `json:"city"`
	Address            string         `json:"address"`
	RequiresInterview  bool           `json:"requires_interview"`
	DeadlineDaysBefore int            `json:"deadline_days_before" validate:"min=0,max=60"`
	SwitchToNormalDays *int           `json:"switch_to_normal_days_before" validate:"omitempty,min=0"`
	TargetWorkerID     *uint          `json:"target_worker_id"`
	OfferExpiresAt     *time.Time     `json:"offer_expires_at"`
	WorkDates          []string       `json:"work_dates" validate:"required,min=1,dive,required"`
	Publish            bool           `json:"publish"`
}

// WageFloor looks up the minimum wage in force for a prefecture.
type WageFloor interface {
	ActiveFor(ctx context.Context, prefecture string) (*domain.MinimumWage, error)
}

type JobService struct {
	tx         Transactor
	jobs       JobRepository
	apps       ApplicationRepository
	facilities FacilityRepository
	wages      WageFloor
	clock      domain.Clock
	logger     *zap.Logger
}

func NewJobService(r Repositories, wages WageFloor, clock domain.Clock, logger *zap.Logger) *JobService {
	return &JobService{
		tx:         r.Tx,
		jobs:       r.Jobs,
		apps:       r.Applications,
		facilities: r.Facilities,
		wages:      wages,
		clock:      clock,
		logger:     logger,
	}
}

func (s *JobService) checkInput(ctx context.Context, in *JobInput, facility *domain.Facility) error {
	if err := validate.Struct(in); err != nil {
		return validationError(err)
	}
	if in.JobType == "" {
		in.JobType = domain.JobTypeNormal
	}
	if in.JobType == domain.JobTypeOffer && in.TargetWorkerID == nil {
		return domain.Validation("オファー求人には対象ワーカーが必要です")
	}
	if in.JobType.IsLimited() && in.SwitchToNormalDays == nil {
		return domain.Validation("限定求人には通常求人への切替日数が必要です")
	}
	if in.Prefecture == "" {
		in.Prefecture, in.City, in.Address = facility.Prefecture, facility.City, facility.Address
	}
	if pref, ok := domain.NormalizePrefecture(in.Prefecture); ok {
		in.Prefecture = pref
		floor, err := s.wages.ActiveFor(ctx, pref)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("minimum wage lookup: %w", err)
		}
		if floor != nil && in.HourlyWage < floor.HourlyWage {
			return domain.Validation(fmt.Sprintf("時給が%sの最低賃金（%d円）を下回っています", pref, floor.HourlyWage))
		}
	}
	return nil
}

func (s *JobService) parseDates(raw []string) ([]time.Time, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		d, err := domain.ParseJSTDate(r)
		if err != nil {
			return nil, domain.Validation("勤務日の形式が不正です: " + r)
		}
		key := domain.JSTDateString(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (s *JobService) Create(ctx context.Context, actor Actor, in JobInput) (*domain.Job, error) {
	facility, err := s.facilities.Get(ctx, actor.FacilityID)
	if err != nil {
		return nil, err
	}
	if err := s.checkInput(ctx, &in, facility); err != nil {
		return nil, err
	}
	dates, err := s.parseDates(in.WorkDates)
	if err != nil {
		return nil, err
	}

	job := &domain.Job{FacilityID: facility.ID, Status: domain.JobDraft}
	applyJobInput(job, in)
	if in.Publish {
		job.Status = domain.JobPublished
	}
	if job.Wage, err = job.DailyWage(); err != nil {
		return nil, domain.Validation(err.Error())
	}
	for _, d := range dates {
		job.WorkDates = append(job.WorkDates, domain.JobWorkDate{
			WorkDate:         d,
			Deadline:         job.DeadlineFor(d),
			RecruitmentCount: in.RecruitmentCount,
		})
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logger.Info("job created", zap.Uint("job_id", job.ID), zap.Uint("facility_id", facility.ID),
		zap.Int("work_dates", len(job.WorkDates)))
	return job, nil
}

func applyJobInput(job *domain.Job, in JobInput) {
	job.Title = in.Title
	job.Overview = in.Overview
	job.JobType = in.JobType
	job.StartTime = in.StartTime
	job.EndTime = in.EndTime
	job.BreakMinutes = in.BreakMinutes
	job.HourlyWage = in.HourlyWage
	job.TransportationFee = in.TransportationFee
	job.RecruitmentCount = in.RecruitmentCount
	job.Prefecture = in.Prefecture
	job.City = in.City
	job.Address = in.Address
	job.RequiresInterview = in.RequiresInterview
	job.DeadlineDaysBefore = in.DeadlineDaysBefore
	job.SwitchToNormalDays = in.SwitchToNormalDays
	job.TargetWorkerID = in.TargetWorkerID
	job.OfferExpiresAt = in.OfferExpiresAt
}

func (s *JobService) owned(ctx context.Context, actor Actor, id uint) (*domain.Job, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.FacilityID != actor.FacilityID {
		return nil, domain.Forbidden("この求人を操作する権限がありません")
	}
	return job, nil
}

// Update rewrites job fields and syncs the work dates with in.WorkDates. A dropped date is
// deleted only while nobody has applied for it. Kept dates never fall below their matched count.
func (s *JobService) Update(ctx context.Context, actor Actor, id uint, in JobInput) (*domain.Job, error) {
	job, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	facility, err := s.facilities.Get(ctx, job.FacilityID)
	if err != nil {
		return nil, err
	}
	if err := s.checkInput(ctx, &in, facility); err != nil {
		return nil, err
	}
	dates, err := s.parseDates(in.WorkDates)
	if err != nil {
		return nil, err
	}

	applyJobInput(job, in)
	if job.Wage, err = job.DailyWage(); err != nil {
		return nil, domain.Validation(err.Error())
	}
	wanted := make(map[string]bool, len(dates))
	for _, d := range dates {
		wanted[domain.JSTDateString(d)] = true
	}
	existing := make(map[string]bool, len(job.WorkDates))
	kept := job.WorkDates[:0]
	var removed []domain.JobWorkDate
	for _, wd := range job.WorkDates {
		key := domain.JSTDateString(wd.WorkDate)
		if !wanted[key] {
			if wd.AppliedCount > 0 {
				return nil, domain.Conflict("JOB_DATE_HAS_APPLICATIONS",
					fmt.Sprintf("%s には応募があるため削除できません", key))
			}
			removed = append(removed, wd)
			continue
		}
		existing[key] = true
		wd.Deadline = job.DeadlineFor(wd.WorkDate)
		wd.RecruitmentCount = max(in.RecruitmentCount, wd.MatchedCount)
		kept = append(kept, wd)
	}
	job.WorkDates = kept
	for _, d := range dates {
		if existing[domain.JSTDateString(d)] {
			continue
		}
		job.WorkDates = append(job.WorkDates, domain.JobWorkDate{
			JobID:            job.ID,
			WorkDate:         d,
			Deadline:         job.DeadlineFor(d),
			RecruitmentCount: in.RecruitmentCount,
		})
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, wd := range removed {
			if err := s.jobs.DeleteWorkDate(ctx, wd.ID); err != nil {
				return err
			}
		}
		return s.jobs.Save(ctx, job)
	})
	if err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	if len(removed) > 0 {
		s.logger.Info("work dates removed", zap.Uint("job_id", job.ID), zap.Int("count", len(removed)))
	}
	return job, nil
}

var jobStatusTargets = map[domain.JobStatus][]domain.JobStatus{
	domain.JobDraft:     {domain.JobPublished},
	domain.JobPublished: {domain.JobStopped, domain.JobCompleted},
	domain.JobStopped:   {domain.JobPublished, domain.JobCompleted},
	domain.JobWorking:   {domain.JobCompleted},
}

func (s *JobService) SetStatus(ctx context.Context, actor Actor, id uint, next domain.JobStatus) (*domain.Job, error) {
	job, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, st := range jobStatusTargets[job.Status] {
		if st == next {
			allowed = true
		}
	}
	if !allowed {
		return nil, domain.NewError(domain.ErrInvalidState, "JOB_INVALID_STATUS",
			fmt.Sprintf("%s から %s へは変更できません", job.Status, next))
	}
	if next == domain.JobPublished && len(job.WorkDates) == 0 {
		return nil, domain.Validation("勤務日が設定されていません")
	}
	job.Status = next
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job status: %w", err)
	}
	return job, nil
}

func (s *JobService) Delete(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		active, err := s.apps.Find(ctx, ApplicationQuery{
			JobID: id,
			Statuses: []domain.ApplicationStatus{
				domain.StatusApplied, domain.StatusScheduled, domain.StatusWorking, domain.StatusCompletedPending,
			},
		})
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return domain.Conflict("JOB_HAS_APPLICATIONS", "応募がある求人は削除できません")
		}
		return s.jobs.Delete(ctx, id)
	})
}

func (s *JobService) ListForFacility(ctx context.Context, facilityID uint) ([]domain.Job, error) {
	return s.jobs.ListByFacility(ctx, facilityID)
}

type JobPage struct {
	Jobs  []domain.Job `json:"jobs"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// ListPublished is the worker-facing list: prefecture and date filters only.
func (s *JobService) ListPublished(ctx context.Context, prefecture, date string, page, limit int) (*JobPage, error) {
	limit = clampLimit(limit, 20, 100)
	if page < 1 {
		page = 1
	}
	f := JobFilter{Offset: (page - 1) * limit, Limit: limit}
	if prefecture != "" {
		pref, ok := domain.NormalizePrefecture(prefecture)
		if !ok {
			return nil, domain.Validation("都道府県が不正です")
		}
		f.Prefecture = pref
	}
	if date != "" {
		d, err := domain.ParseJSTDate(date)
		if err != nil {
			return nil, domain.Validation("日付の形式が不正です")
		}
		f.Date = &d
	}
	jobs, total, err := s.jobs.ListPublished(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list published jobs: %w", err)
	}
	return &JobPage{Jobs: jobs, Total: total, Page: page, Limit: limit}, nil
}

// Detail returns a job visible to workers.
func (s *JobService) Detail(ctx context.Context, id uint) (*domain.Job, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobPublished && job.Status != domain.JobWorking {
		return nil, domain.NotFound("job")
	}
	return job, nil
}
