package persistence

import (
	"context"
	"strings"

	"shiftmatch/domain"
)

type facilityRepo struct{ s *Store }

func (r facilityRepo) Get(ctx context.Context, id uint) (*domain.Facility, error) {
	var f domain.Facility
	if err := first(r.s.conn(ctx).Where("id = ?", id), &f, "facility"); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r facilityRepo) List(ctx context.Context) ([]domain.Facility, error) {
	var out []domain.Facility
	err := r.s.conn(ctx).Order("id").Find(&out).Error
	return out, err
}

func (r facilityRepo) FindByEmergencyCode(ctx context.Context, code string) (*domain.Facility, error) {
	var f domain.Facility
	if err := first(r.s.conn(ctx).Where("emergency_attendance_code = ?", code), &f, "facility"); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r facilityRepo) EmergencyCodeInUse(ctx context.Context, code string, excludeID uint) (bool, error) {
	var n int64
	err := r.s.conn(ctx).Model(&domain.Facility{}).
		Where("emergency_attendance_code = ? AND id <> ?", code, excludeID).
		Count(&n).Error
	return n > 0, err
}

func (r facilityRepo) Create(ctx context.Context, f *domain.Facility) error {
	return translate(r.s.write(ctx).Create(f).Error, "emergency code")
}

func (r facilityRepo) Save(ctx context.Context, f *domain.Facility) error {
	return save(r.s.write(ctx), f, "emergency code")
}

type facilityAdminRepo struct{ s *Store }

func (r facilityAdminRepo) FindByEmail(ctx context.Context, email string) (*domain.FacilityAdmin, error) {
	var a domain.FacilityAdmin
	if err := first(r.s.conn(ctx).Where("LOWER(email) = ?", strings.ToLower(email)), &a, "facility admin"); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r facilityAdminRepo) ListByFacility(ctx context.Context, facilityID uint) ([]domain.FacilityAdmin, error) {
	var out []domain.FacilityAdmin
	err := r.s.conn(ctx).Where("facility_id = ?", facilityID).Order("id").Find(&out).Error
	return out, err
}

func (r facilityAdminRepo) Create(ctx context.Context, a *domain.FacilityAdmin) error {
	return translate(r.s.write(ctx).Create(a).Error, "facility admin")
}

func (r facilityAdminRepo) Save(ctx context.Context, a *domain.FacilityAdmin) error {
	return save(r.s.write(ctx), a, "facility admin")
}

type systemAdminRepo struct{ s *Store }

func (r systemAdminRepo) FindByEmail(ctx context.Context, email string) (*domain.SystemAdmin, error) {
	var a domain.SystemAdmin
	if err := first(r.s.conn(ctx).Where("LOWER(email) = ?", strings.ToLower(email)), &a, "system admin"); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r systemAdminRepo) List(ctx context.Context) ([]domain.SystemAdmin, error) {
	var out []domain.SystemAdmin
	err := r.s.conn(ctx).Order("id").Find(&out).Error
	return out, err
}

func (r systemAdminRepo) Create(ctx context.Context, a *domain.SystemAdmin) error {
	return translate(r.s.write(ctx).Create(a).Error, "system admin")
}

func (r systemAdminRepo) Save(ctx context.Context, a *domain.SystemAdmin) error {
	return save(r.s.write(ctx), a, "system admin")
}

type userRepo struct{ s *Store }

func (r userRepo) Get(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := first(r.s.conn(ctx).Where("id = ?", id), &u, "user"); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := first(r.s.conn(ctx).Where("LOWER(email) = ?", strings.ToLower(email)), &u, "user"); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r userRepo) Create(ctx context.Context, u *domain.User) error {
	return translate(r.s.write(ctx).Create(u).Error, "user")
}

func (r userRepo) Save(ctx context.Context, u *domain.User) error {
	return save(r.s.write(ctx), u, "user")
}

type certificateRepo struct{ s *Store }

func (r certificateRepo) Create(ctx context.Context, c *domain.WorkerCertificate) error {
	return r.s.write(ctx).Create(c).Error
}

func (r certificateRepo) ListByUser(ctx context.Context, userID uint) ([]domain.WorkerCertificate, error) {
	var out []domain.WorkerCertificate
	err := r.s.conn(ctx).Where("user_id = ?", userID).Order("id").Find(&out).Error
	return out, err
}

type passwordResetRepo struct{ s *Store }

func (r passwordResetRepo) Create(ctx context.Context, t *domain.PasswordResetToken) error {
	return translate(r.s.write(ctx).Create(t).Error, "reset token")
}

func (r passwordResetRepo) FindByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	if err := first(r.s.conn(ctx).Where("token = ?", token), &t, "reset token"); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r passwordResetRepo) Save(ctx context.Context, t *domain.PasswordResetToken) error {
	return save(r.s.write(ctx), t, "reset token")
}
