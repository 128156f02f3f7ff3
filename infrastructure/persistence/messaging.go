package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shiftmatch/application"
	"shiftmatch/domain"
)

type messageRepo struct{ s *Store }

func (r messageRepo) Create(ctx context.Context, m *domain.Message) error {
	return r.s.write(ctx).Create(m).Error
}

func (r messageRepo) ListByApplication(ctx context.Context, applicationID uint) ([]domain.Message, error) {
	out := []domain.Message{}
	err := r.s.conn(ctx).Where("application_id = ?", applicationID).Order("id").Find(&out).Error
	return out, err
}

func (r messageRepo) MarkRead(ctx context.Context, applicationID uint, reader domain.TargetType, at time.Time) (int64, error) {
	q := r.s.conn(ctx).Model(&domain.Message{}).Where("application_id = ? AND read_at IS NULL", applicationID)
	switch reader {
	case domain.TargetWorker:
		q = q.Where("to_user_id IS NOT NULL")
	case domain.TargetFacility:
		q = q.Where("to_facility_id IS NOT NULL")
	}
	res := q.Update("read_at", at)
	return res.RowsAffected, res.Error
}

type reviewRepo struct{ s *Store }

func (r reviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	return r.s.write(ctx).Create(rv).Error
}

func (r reviewRepo) exists(q *gorm.DB) (bool, error) {
	var n int64
	err := q.Model(&domain.Review{}).Limit(1).Count(&n).Error
	return n > 0, err
}

func (r reviewRepo) ExistsForJob(ctx context.Context, jobID, userID uint, reviewer domain.ReviewerType) (bool, error) {
	return r.exists(r.s.conn(ctx).Where("job_id = ? AND user_id = ? AND reviewer_type = ?", jobID, userID, reviewer))
}

func (r reviewRepo) ExistsForApplication(ctx context.Context, applicationID uint, reviewer domain.ReviewerType) (bool, error) {
	return r.exists(r.s.conn(ctx).Where("application_id = ? AND reviewer_type = ?", applicationID, reviewer))
}

func (r reviewRepo) facilityRatings(ctx context.Context, facilityID uint, limit int) ([]int, error) {
	out := []int{}
	q := r.s.conn(ctx).Model(&domain.Review{}).
		Where("facility_id = ? AND reviewer_type = ?", facilityID, domain.ReviewerWorker).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Pluck("rating", &out).Error
	return out, err
}

func (r reviewRepo) RecentFacilityRatings(ctx context.Context, facilityID uint, limit int) ([]int, error) {
	return r.facilityRatings(ctx, facilityID, limit)
}

func (r reviewRepo) FacilityRatings(ctx context.Context, facilityID uint) ([]int, error) {
	return r.facilityRatings(ctx, facilityID, 0)
}

func (r reviewRepo) ListByFacility(ctx context.Context, facilityID uint, reviewer domain.ReviewerType) ([]domain.Review, error) {
	out := []domain.Review{}
	err := r.s.conn(ctx).Where("facility_id = ? AND reviewer_type = ?", facilityID, reviewer).
		Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// ListByUser returns the facilities' reviews of one worker.
func (r reviewRepo) ListByUser(ctx context.Context, userID uint) ([]domain.Review, error) {
	out := []domain.Review{}
	err := r.s.conn(ctx).Where("user_id = ? AND reviewer_type = ?", userID, domain.ReviewerFacility).
		Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

type notifSettingRepo struct{ s *Store }

func (r notifSettingRepo) Get(ctx context.Context, key string) (*domain.NotificationSetting, error) {
	var ns domain.NotificationSetting
	if err := first(r.s.conn(ctx).Where("notification_key = ?", key), &ns, "notification setting"); err != nil {
		return nil, err
	}
	return &ns, nil
}

func (r notifSettingRepo) List(ctx context.Context) ([]domain.NotificationSetting, error) {
	var out []domain.NotificationSetting
	err := r.s.conn(ctx).Order("id").Find(&out).Error
	return out, err
}

// Save upserts by notification key.
func (r notifSettingRepo) Save(ctx context.Context, ns *domain.NotificationSetting) error {
	var cur domain.NotificationSetting
	err := r.s.conn(ctx).Select("id").Where("notification_key = ?", ns.NotificationKey).Take(&cur).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return translate(r.s.write(ctx).Create(ns).Error, "notification setting")
	case err != nil:
		return err
	}
	ns.ID = cur.ID
	return r.s.write(ctx).Save(ns).Error
}

type notifLogRepo struct{ s *Store }

func (r notifLogRepo) Create(ctx context.Context, l *domain.NotificationLog) error {
	return r.s.write(ctx).Create(l).Error
}

func (r notifLogRepo) Get(ctx context.Context, id uint) (*domain.NotificationLog, error) {
	var l domain.NotificationLog
	if err := first(r.s.conn(ctx).Where("id = ?", id), &l, "notification log"); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r notifLogRepo) Save(ctx context.Context, l *domain.NotificationLog) error {
	return save(r.s.write(ctx), l, "notification log")
}

func (r notifLogRepo) List(ctx context.Context, f application.NotificationLogFilter) ([]domain.NotificationLog, error) {
	q := r.s.conn(ctx).Order("id DESC")
	if f.Key != "" {
		q = q.Where("notification_key = ?", f.Key)
	}
	if f.Channel != "" {
		q = q.Where("channel = ?", f.Channel)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	out := []domain.NotificationLog{}
	err := q.Find(&out).Error
	return out, err
}

type notificationRepo struct{ s *Store }

func ownerScope(target domain.TargetType, ownerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch target {
		case domain.TargetWorker:
			return db.Where("user_id = ?", ownerID)
		case domain.TargetFacility:
			return db.Where("facility_id = ?", ownerID)
		}
		return db.Where("1 = 0")
	}
}

func (r notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return r.s.write(ctx).Create(n).Error
}

func (r notificationRepo) List(ctx context.Context, target domain.TargetType, ownerID uint, limit int) ([]domain.Notification, error) {
	q := r.s.conn(ctx).Scopes(ownerScope(target, ownerID)).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	out := []domain.Notification{}
	err := q.Find(&out).Error
	return out, err
}

func (r notificationRepo) MarkRead(ctx context.Context, id uint, target domain.TargetType, ownerID uint, at time.Time) error {
	var n domain.Notification
	if err := first(r.s.conn(ctx).Scopes(ownerScope(target, ownerID)).Where("id = ?", id), &n, "notification"); err != nil {
		return err
	}
	if n.ReadAt != nil {
		return nil
	}
	return r.s.conn(ctx).Model(&n).Update("read_at", at).Error
}
