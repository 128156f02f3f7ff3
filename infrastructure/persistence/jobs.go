package persistence

import (
	"context"

	"gorm.io/gorm"

	"shiftmatch/application"
	"shiftmatch/domain"
)

var matchedStatuses = []domain.ApplicationStatus{
	domain.StatusScheduled, domain.StatusWorking, domain.StatusCompletedPending, domain.StatusCompletedRated,
}

func orderedWorkDates(db *gorm.DB) *gorm.DB {
	return db.Order("work_date, id")
}

type jobRepo struct{ s *Store }

func (r jobRepo) withDates(ctx context.Context) *gorm.DB {
	return r.s.conn(ctx).Preload("Facility").Preload("WorkDates", orderedWorkDates)
}

func (r jobRepo) Get(ctx context.Context, id uint) (*domain.Job, error) {
	var j domain.Job
	if err := first(r.withDates(ctx).Where("id = ?", id), &j, "job"); err != nil {
		return nil, err
	}
	return &j, nil
}

func (r jobRepo) Create(ctx context.Context, j *domain.Job) error {
	if err := r.s.write(ctx).Create(j).Error; err != nil {
		return err
	}
	return r.saveWorkDates(ctx, j)
}

// Save writes the job and upserts its work dates. Existing dates keep their counters.
func (r jobRepo) Save(ctx context.Context, j *domain.Job) error {
	if err := save(r.s.write(ctx), j, "job"); err != nil {
		return err
	}
	return r.saveWorkDates(ctx, j)
}

func (r jobRepo) saveWorkDates(ctx context.Context, j *domain.Job) error {
	for i := range j.WorkDates {
		wd := &j.WorkDates[i]
		wd.JobID = j.ID
		if wd.ID == 0 {
			if err := r.s.write(ctx).Create(wd).Error; err != nil {
				return err
			}
			continue
		}
		err := r.s.conn(ctx).Model(wd).
			Select("work_date", "deadline", "recruitment_count", "job_id").
			Updates(map[string]any{
				"work_date":         wd.WorkDate,
				"deadline":          wd.Deadline,
				"recruitment_count": wd.RecruitmentCount,
				"job_id":            wd.JobID,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r jobRepo) Delete(ctx context.Context, id uint) error {
	return r.s.WithinTx(ctx, func(ctx context.Context) error {
		db := r.s.conn(ctx)
		dates := db.Model(&domain.JobWorkDate{}).Select("id").Where("job_id = ?", id)
		if err := db.Where("work_date_id IN (?)", dates).Delete(&domain.Application{}).Error; err != nil {
			return err
		}
		if err := db.Where("job_id = ?", id).Delete(&domain.JobWorkDate{}).Error; err != nil {
			return err
		}
		res := db.Delete(&domain.Job{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("job")
		}
		return nil
	})
}

func (r jobRepo) ListByFacility(ctx context.Context, facilityID uint) ([]domain.Job, error) {
	var out []domain.Job
	err := r.withDates(ctx).Where("facility_id = ?", facilityID).Order("id DESC").Find(&out).Error
	return out, err
}

func (r jobRepo) ListPublished(ctx context.Context, f application.JobFilter) ([]domain.Job, int64, error) {
	q := r.s.conn(ctx).Model(&domain.Job{}).
		Where("status = ? AND job_type <> ?", domain.JobPublished, domain.JobTypeOffer)
	if f.Prefecture != "" {
		q = q.Where("prefecture = ?", f.Prefecture)
	}
	if f.Date != nil {
		day := domain.StartOfDayJST(*f.Date)
		q = q.Where("id IN (?)", r.s.conn(ctx).Model(&domain.JobWorkDate{}).Select("job_id").
			Where("work_date >= ? AND work_date < ?", day, day.AddDate(0, 0, 1)))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := clampPage(f.Offset, f.Limit)
	var out []domain.Job
	err := q.Preload("Facility").Preload("WorkDates", orderedWorkDates).
		Order("id DESC").Offset(offset).Limit(limit).Find(&out).Error
	return out, total, err
}

func (r jobRepo) ListByStatusAndTypes(ctx context.Context, status domain.JobStatus, types ...domain.JobType) ([]domain.Job, error) {
	q := r.withDates(ctx).Where("status = ?", status)
	if len(types) > 0 {
		q = q.Where("job_type IN ?", types)
	}
	var out []domain.Job
	err := q.Order("id").Find(&out).Error
	return out, err
}

func (r jobRepo) PromoteToWorking(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.s.conn(ctx).Model(&domain.Job{}).
		Where("id IN ? AND status = ?", ids, domain.JobPublished).
		Update("status", domain.JobWorking)
	return res.RowsAffected, res.Error
}

func (r jobRepo) GetWorkDate(ctx context.Context, id uint) (*domain.JobWorkDate, error) {
	var wd domain.JobWorkDate
	if err := first(r.s.conn(ctx).Preload("Job.Facility").Where("id = ?", id), &wd, "work date"); err != nil {
		return nil, err
	}
	return &wd, nil
}

// AdjustWorkDateCounts increments in SQL so concurrent applies never lose an update.
func (r jobRepo) AdjustWorkDateCounts(ctx context.Context, workDateID uint, applied, matched int) error {
	res := r.s.conn(ctx).Model(&domain.JobWorkDate{}).Where("id = ?", workDateID).Updates(map[string]any{
		"applied_count": gorm.Expr("applied_count + ?", applied),
		"matched_count": gorm.Expr("matched_count + ?", matched),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("work date")
	}
	return nil
}

func (r jobRepo) MoveWorkDate(ctx context.Context, workDateID, jobID uint) error {
	var n int64
	if err := r.s.conn(ctx).Model(&domain.Job{}).Where("id = ?", jobID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("job")
	}
	res := r.s.conn(ctx).Model(&domain.JobWorkDate{}).Where("id = ?", workDateID).Update("job_id", jobID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("work date")
	}
	return nil
}

func (r jobRepo) DeleteWorkDate(ctx context.Context, workDateID uint) error {
	return r.s.WithinTx(ctx, func(ctx context.Context) error {
		db := r.s.conn(ctx)
		if err := db.Where("work_date_id = ?", workDateID).Delete(&domain.Application{}).Error; err != nil {
			return err
		}
		res := db.Delete(&domain.JobWorkDate{}, workDateID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("work date")
		}
		return nil
	})
}

type applicationRepo struct{ s *Store }

func (r applicationRepo) loaded(ctx context.Context) *gorm.DB {
	return r.s.conn(ctx).Preload("WorkDate.Job.Facility").Preload("User")
}

// joined exposes job_work_dates (wd) and jobs (j) for filters on the owning job.
func (r applicationRepo) joined(ctx context.Context) *gorm.DB {
	return r.s.conn(ctx).Model(&domain.Application{}).
		Joins("JOIN job_work_dates wd ON wd.id = applications.work_date_id").
		Joins("JOIN jobs j ON j.id = wd.job_id")
}

func (r applicationRepo) Get(ctx context.Context, id uint) (*domain.Application, error) {
	var a domain.Application
	if err := first(r.loaded(ctx).Where("id = ?", id), &a, "application"); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r applicationRepo) FindByUserAndWorkDate(ctx context.Context, userID, workDateID uint) (*domain.Application, error) {
	var a domain.Application
	q := r.loaded(ctx).Where("user_id = ? AND work_date_id = ?", userID, workDateID)
	if err := first(q, &a, "application"); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r applicationRepo) Create(ctx context.Context, a *domain.Application) error {
	return translate(r.s.write(ctx).Create(a).Error, "application")
}

func (r applicationRepo) Save(ctx context.Context, a *domain.Application) error {
	return save(r.s.write(ctx), a, "application")
}

func (r applicationRepo) Find(ctx context.Context, q application.ApplicationQuery) ([]domain.Application, error) {
	sel := r.joined(ctx).Select("applications.id")
	if len(q.Statuses) > 0 {
		sel = sel.Where("applications.status IN ?", q.Statuses)
	}
	if q.UserID != 0 {
		sel = sel.Where("applications.user_id = ?", q.UserID)
	}
	if q.JobID != 0 {
		sel = sel.Where("wd.job_id = ?", q.JobID)
	}
	if q.FacilityID != 0 {
		sel = sel.Where("j.facility_id = ?", q.FacilityID)
	}
	if q.WorkDateFrom != nil {
		sel = sel.Where("wd.work_date >= ?", *q.WorkDateFrom)
	}
	if q.WorkDateTo != nil {
		sel = sel.Where("wd.work_date < ?", *q.WorkDateTo)
	}

	var out []domain.Application
	err := r.loaded(ctx).
		Joins("JOIN job_work_dates owd ON owd.id = applications.work_date_id").
		Where("applications.id IN (?)", sel).
		Order("owd.work_date, applications.id").
		Find(&out).Error
	return out, err
}

func (r applicationRepo) TransitionMany(ctx context.Context, ids []uint, from, to domain.ApplicationStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.s.conn(ctx).Model(&domain.Application{}).
		Where("id IN ? AND status = ?", ids, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r applicationRepo) CountActiveOnWorkDate(ctx context.Context, workDateID uint) (int64, error) {
	var n int64
	err := r.s.conn(ctx).Model(&domain.Application{}).
		Where("work_date_id = ? AND status <> ?", workDateID, domain.StatusCancelled).
		Count(&n).Error
	return n, err
}

func (r applicationRepo) CountMatchedWithFacility(ctx context.Context, userID, facilityID, excludeID uint) (int64, error) {
	var n int64
	err := r.joined(ctx).
		Where("applications.user_id = ? AND applications.id <> ? AND j.facility_id = ?", userID, excludeID, facilityID).
		Where("applications.status IN ?", matchedStatuses).
		Count(&n).Error
	return n, err
}

func (r applicationRepo) CancelStats(ctx context.Context, userID uint) (int64, int64, error) {
	var row struct {
		Cancels int64
		Settled int64
	}
	err := r.s.conn(ctx).Model(&domain.Application{}).
		Select(`COALESCE(SUM(CASE WHEN status = ? AND cancelled_by = ? THEN 1 ELSE 0 END), 0) AS cancels,
			COALESCE(SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END), 0) AS settled`,
			domain.StatusCancelled, domain.CancelledByWorker,
			[]domain.ApplicationStatus{domain.StatusCancelled, domain.StatusCompletedRated}).
		Where("user_id = ?", userID).
		Scan(&row).Error
	return row.Cancels, row.Settled, err
}

func (r applicationRepo) MarkReviewed(ctx context.Context, userID, jobID uint, reviewer domain.ReviewerType) error {
	column := "facility_review_status"
	if reviewer == domain.ReviewerWorker {
		column = "worker_review_status"
	}
	dates := r.s.conn(ctx).Model(&domain.JobWorkDate{}).Select("id").Where("job_id = ?", jobID)
	return r.s.conn(ctx).Model(&domain.Application{}).
		Where("user_id = ? AND work_date_id IN (?)", userID, dates).
		Update(column, domain.ReviewCompleted).Error
}
