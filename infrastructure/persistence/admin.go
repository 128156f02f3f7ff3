package persistence

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shiftmatch/domain"
)

type systemSettingRepo struct{ s *Store }

func (r systemSettingRepo) Get(ctx context.Context, key string) (*domain.SystemSetting, error) {
	var st domain.SystemSetting
	if err := first(r.s.conn(ctx).Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}), &st, "setting"); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r systemSettingRepo) List(ctx context.Context) ([]domain.SystemSetting, error) {
	var out []domain.SystemSetting
	err := r.s.conn(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&out).Error
	return out, err
}

func (r systemSettingRepo) Upsert(ctx context.Context, st *domain.SystemSetting) error {
	return r.s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_by_type", "updated_by_id", "updated_at"}),
	}).Create(st).Error
}

type minimumWageRepo struct{ s *Store }

func (r minimumWageRepo) ListAll(ctx context.Context) ([]domain.MinimumWage, error) {
	var out []domain.MinimumWage
	err := r.s.conn(ctx).Order("prefecture, effective_from DESC, id").Find(&out).Error
	return out, err
}

func (r minimumWageRepo) Get(ctx context.Context, id uint) (*domain.MinimumWage, error) {
	var w domain.MinimumWage
	if err := first(r.s.conn(ctx).Where("id = ?", id), &w, "minimum wage"); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r minimumWageRepo) Create(ctx context.Context, w *domain.MinimumWage) error {
	return r.s.write(ctx).Create(w).Error
}

func (r minimumWageRepo) Save(ctx context.Context, w *domain.MinimumWage) error {
	return save(r.s.write(ctx), w, "minimum wage")
}

func (r minimumWageRepo) DeleteIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.s.conn(ctx).Where("id IN ?", ids).Delete(&domain.MinimumWage{}).Error
}

func (r minimumWageRepo) DeleteScheduled(ctx context.Context, prefs []string, after time.Time) error {
	if len(prefs) == 0 {
		return nil
	}
	return r.s.conn(ctx).Where("prefecture IN ? AND effective_from > ?", prefs, after).Delete(&domain.MinimumWage{}).Error
}

func (r minimumWageRepo) DeleteIfScheduled(ctx context.Context, id uint, after time.Time) (int64, error) {
	res := r.s.conn(ctx).Where("id = ? AND effective_from > ?", id, after).Delete(&domain.MinimumWage{})
	return res.RowsAffected, res.Error
}

func (r minimumWageRepo) CreateHistory(ctx context.Context, h []domain.MinimumWageHistory) error {
	if len(h) == 0 {
		return nil
	}
	return r.s.conn(ctx).CreateInBatches(h, 100).Error
}

func (r minimumWageRepo) ListHistory(ctx context.Context, prefecture string, limit int) ([]domain.MinimumWageHistory, error) {
	q := r.s.conn(ctx).Order("archived_at DESC, id DESC")
	if prefecture != "" {
		q = q.Where("prefecture = ?", prefecture)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	out := []domain.MinimumWageHistory{}
	err := q.Find(&out).Error
	return out, err
}

type bankRepo struct{ s *Store }

// variantScope matches any spelling against name, kana and hira, or as a code prefix.
func variantScope(variants []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(variants) == 0 {
			return db
		}
		var conds []string
		var args []any
		for _, v := range variants {
			like := "%" + escapeLike(v) + "%"
			conds = append(conds, "(code LIKE ? OR name LIKE ? OR kana LIKE ? OR hira LIKE ?)")
			args = append(args, escapeLike(v)+"%", like, like, like)
		}
		return db.Where(strings.Join(conds, " OR "), args...)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (r bankRepo) SearchBanks(ctx context.Context, variants []string, limit int) ([]domain.Bank, error) {
	q := r.s.conn(ctx).Scopes(variantScope(variants)).Order("code")
	if limit > 0 {
		q = q.Limit(limit)
	}
	out := []domain.Bank{}
	err := q.Find(&out).Error
	return out, err
}

// SearchBranches lists a bank's branches. No variants lists every branch.
func (r bankRepo) SearchBranches(ctx context.Context, bankCode string, variants []string, limit int) ([]domain.Branch, error) {
	q := r.s.conn(ctx).Where("bank_code = ?", bankCode).Scopes(variantScope(variants)).Order("code")
	if limit > 0 {
		q = q.Limit(limit)
	}
	out := []domain.Branch{}
	err := q.Find(&out).Error
	return out, err
}

func (r bankRepo) UpsertBanks(ctx context.Context, banks []domain.Bank) error {
	if len(banks) == 0 {
		return nil
	}
	return r.s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "kana", "hira", "updated_at"}),
	}).CreateInBatches(banks, 200).Error
}

func (r bankRepo) UpsertBranches(ctx context.Context, branches []domain.Branch) error {
	if len(branches) == 0 {
		return nil
	}
	return r.s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bank_code"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "kana", "hira", "updated_at"}),
	}).CreateInBatches(branches, 500).Error
}

type landingPageRepo struct{ s *Store }

// List returns the pages with the given numbers, or every page when numbers is empty.
func (r landingPageRepo) List(ctx context.Context, numbers []int) ([]domain.LandingPage, error) {
	q := r.s.conn(ctx).Order("lp_number")
	if len(numbers) > 0 {
		q = q.Where("lp_number IN ?", numbers)
	}
	out := []domain.LandingPage{}
	err := q.Find(&out).Error
	return out, err
}

func (r landingPageRepo) GetByNumber(ctx context.Context, lpNumber int) (*domain.LandingPage, error) {
	var lp domain.LandingPage
	if err := first(r.s.conn(ctx).Where("lp_number = ?", lpNumber), &lp, "landing page"); err != nil {
		return nil, err
	}
	return &lp, nil
}

func (r landingPageRepo) Create(ctx context.Context, lp *domain.LandingPage) error {
	return translate(r.s.write(ctx).Create(lp).Error, "landing page")
}

func (r landingPageRepo) Save(ctx context.Context, lp *domain.LandingPage) error {
	return save(r.s.write(ctx), lp, "landing page")
}

func (r landingPageRepo) CreateEvent(ctx context.Context, e *domain.LPTrackingEvent) error {
	return r.s.write(ctx).Create(e).Error
}

type activityLogRepo struct{ s *Store }

func (r activityLogRepo) Create(ctx context.Context, l *domain.ActivityLog) error {
	return r.s.write(ctx).Create(l).Error
}

func (r activityLogRepo) List(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	q := r.s.conn(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	out := []domain.ActivityLog{}
	err := q.Find(&out).Error
	return out, err
}

type analyticsRepo struct{ s *Store }

func (r analyticsRepo) count(ctx context.Context, model any, dst *int64, where string, args ...any) error {
	return r.s.conn(ctx).Model(model).Where(where, args...).Count(dst).Error
}

// Summarize counts rows created in [from, to). Completed shifts are counted by work date.
func (r analyticsRepo) Summarize(ctx context.Context, from, to time.Time) (domain.MetricsSummary, error) {
	m := domain.MetricsSummary{From: from, To: to}
	created := "created_at >= ? AND created_at < ?"

	steps := []error{
		r.count(ctx, &domain.User{}, &m.NewWorkers, created, from, to),
		r.count(ctx, &domain.Facility{}, &m.NewFacilities, created, from, to),
		r.count(ctx, &domain.Job{}, &m.PublishedJobs, created+" AND status <> ?", from, to, domain.JobDraft),
		r.count(ctx, &domain.Application{}, &m.Applications, created, from, to),
		r.count(ctx, &domain.Application{}, &m.Matches, created+" AND status IN ?", from, to, matchedStatuses),
		r.count(ctx, &domain.Application{}, &m.WorkerCancels,
			"updated_at >= ? AND updated_at < ? AND status = ? AND cancelled_by = ?",
			from, to, domain.StatusCancelled, domain.CancelledByWorker),
		r.count(ctx, &domain.Application{}, &m.FacilityCancels,
			"updated_at >= ? AND updated_at < ? AND status = ? AND cancelled_by = ?",
			from, to, domain.StatusCancelled, domain.CancelledByFacility),
	}
	for _, err := range steps {
		if err != nil {
			return m, err
		}
	}

	err := r.s.conn(ctx).Model(&domain.Application{}).
		Joins("JOIN job_work_dates wd ON wd.id = applications.work_date_id").
		Where("applications.status IN ? AND wd.work_date >= ? AND wd.work_date < ?",
			[]domain.ApplicationStatus{domain.StatusCompletedPending, domain.StatusCompletedRated}, from, to).
		Count(&m.CompletedShifts).Error
	if err != nil {
		return m, err
	}

	var ratings []int
	if err := r.s.conn(ctx).Model(&domain.Review{}).
		Where(created+" AND reviewer_type = ?", from, to, domain.ReviewerWorker).
		Pluck("rating", &ratings).Error; err != nil {
		return m, err
	}
	m.AvgFacilityRating = domain.AverageRating(ratings)
	m.ComputeRates()
	return m, nil
}
