package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shiftmatch/domain"
)

type attendanceRepo struct{ s *Store }

// preloadAttendance loads the worker, facility and application chain under prefix.
func preloadAttendance(db *gorm.DB, prefix string) *gorm.DB {
	return db.
		Preload(prefix + "User").
		Preload(prefix + "Facility").
		Preload(prefix + "Application.WorkDate.Job.Facility").
		Preload(prefix + "Application.User")
}

func (r attendanceRepo) loaded(ctx context.Context) *gorm.DB {
	return preloadAttendance(r.s.conn(ctx), "").Preload("Modification")
}

func (r attendanceRepo) Create(ctx context.Context, a *domain.Attendance) error {
	return r.s.write(ctx).Create(a).Error
}

func (r attendanceRepo) Save(ctx context.Context, a *domain.Attendance) error {
	return save(r.s.write(ctx), a, "attendance")
}

func (r attendanceRepo) Get(ctx context.Context, id uint) (*domain.Attendance, error) {
	var a domain.Attendance
	if err := first(r.loaded(ctx).Where("id = ?", id), &a, "attendance"); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindOpen returns the worker's latest record that has not been checked out.
func (r attendanceRepo) FindOpen(ctx context.Context, userID uint) (*domain.Attendance, error) {
	var a domain.Attendance
	q := r.loaded(ctx).
		Where("user_id = ? AND status = ?", userID, domain.AttendanceCheckedIn).
		Order("check_in_time DESC, id DESC")
	if err := translate(q.Take(&a).Error, "attendance"); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r attendanceRepo) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]domain.Attendance, int64, error) {
	var total int64
	if err := r.s.conn(ctx).Model(&domain.Attendance{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit = clampPage(offset, limit)
	var out []domain.Attendance
	err := r.loaded(ctx).Where("user_id = ?", userID).
		Order("check_in_time DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, total, err
}

func (r attendanceRepo) ListByFacilityBetween(ctx context.Context, facilityID uint, from, to time.Time) ([]domain.Attendance, error) {
	var out []domain.Attendance
	err := r.loaded(ctx).
		Where("facility_id = ? AND check_in_time >= ? AND check_in_time < ?", facilityID, from, to).
		Order("check_in_time").
		Find(&out).Error
	return out, err
}

type modificationRepo struct{ s *Store }

func (r modificationRepo) loaded(ctx context.Context) *gorm.DB {
	return preloadAttendance(r.s.conn(ctx).Preload("Attendance"), "Attendance.")
}

// joined exposes the owning attendance row as att.
func (r modificationRepo) joined(db *gorm.DB) *gorm.DB {
	return db.Joins("JOIN attendances att ON att.id = attendance_modification_requests.attendance_id")
}

func (r modificationRepo) Create(ctx context.Context, m *domain.AttendanceModificationRequest) error {
	return translate(r.s.write(ctx).Create(m).Error, "modification request")
}

func (r modificationRepo) Save(ctx context.Context, m *domain.AttendanceModificationRequest) error {
	return save(r.s.write(ctx), m, "modification request")
}

func (r modificationRepo) Get(ctx context.Context, id uint) (*domain.AttendanceModificationRequest, error) {
	var m domain.AttendanceModificationRequest
	if err := first(r.loaded(ctx).Where("id = ?", id), &m, "modification request"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r modificationRepo) FindByAttendance(ctx context.Context, attendanceID uint) (*domain.AttendanceModificationRequest, error) {
	var m domain.AttendanceModificationRequest
	if err := first(r.loaded(ctx).Where("attendance_id = ?", attendanceID), &m, "modification request"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r modificationRepo) ListByFacility(ctx context.Context, facilityID uint, statuses []domain.ModificationStatus) ([]domain.AttendanceModificationRequest, error) {
	q := r.joined(r.loaded(ctx)).Where("att.facility_id = ?", facilityID)
	if len(statuses) > 0 {
		q = q.Where("attendance_modification_requests.status IN ?", statuses)
	}
	var out []domain.AttendanceModificationRequest
	err := q.Order("attendance_modification_requests.created_at DESC, attendance_modification_requests.id").Find(&out).Error
	return out, err
}

func (r modificationRepo) ListByUser(ctx context.Context, userID uint) ([]domain.AttendanceModificationRequest, error) {
	var out []domain.AttendanceModificationRequest
	err := r.joined(r.loaded(ctx)).Where("att.user_id = ?", userID).
		Order("attendance_modification_requests.created_at DESC, attendance_modification_requests.id").
		Find(&out).Error
	return out, err
}

func (r modificationRepo) CountByFacility(ctx context.Context, facilityID uint, statuses []domain.ModificationStatus) (int64, error) {
	q := r.joined(r.s.conn(ctx).Model(&domain.AttendanceModificationRequest{})).Where("att.facility_id = ?", facilityID)
	if len(statuses) > 0 {
		q = q.Where("attendance_modification_requests.status IN ?", statuses)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
