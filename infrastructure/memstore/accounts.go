package memstore

import (
	"context"
	"strings"

	"shiftmatch/domain"
)

type facilityRepo struct{ s *Store }

func (r facilityRepo) Get(_ context.Context, id uint) (*domain.Facility, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if f := r.s.loadFacility(id); f != nil {
		return f, nil
	}
	return nil, domain.NotFound("facility")
}

func (r facilityRepo) List(_ context.Context) ([]domain.Facility, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Facility, 0, len(r.s.t.facilities))
	for _, id := range sortedIDs(r.s.t.facilities) {
		out = append(out, r.s.t.facilities[id])
	}
	return out, nil
}

func (r facilityRepo) FindByEmergencyCode(_ context.Context, code string) (*domain.Facility, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range sortedIDs(r.s.t.facilities) {
		f := r.s.t.facilities[id]
		if f.EmergencyAttendanceCode != nil && *f.EmergencyAttendanceCode == code {
			return &f, nil
		}
	}
	return nil, domain.NotFound("facility")
}

func (r facilityRepo) EmergencyCodeInUse(_ context.Context, code string, excludeID uint) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.codeTaken(code, excludeID), nil
}

func (r facilityRepo) codeTaken(code string, excludeID uint) bool {
	for id, f := range r.s.t.facilities {
		if id != excludeID && f.EmergencyAttendanceCode != nil && *f.EmergencyAttendanceCode == code {
			return true
		}
	}
	return false
}

func (r facilityRepo) Create(_ context.Context, f *domain.Facility) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if f.EmergencyAttendanceCode != nil && r.codeTaken(*f.EmergencyAttendanceCode, 0) {
		return conflict("emergency code")
	}
	f.ID = r.s.nextID("facilities")
	r.s.stamp(&f.CreatedAt, &f.UpdatedAt)
	r.s.t.facilities[f.ID] = *f
	return nil
}

func (r facilityRepo) Save(_ context.Context, f *domain.Facility) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.facilities[f.ID]; !ok {
		return domain.NotFound("facility")
	}
	if f.EmergencyAttendanceCode != nil && r.codeTaken(*f.EmergencyAttendanceCode, f.ID) {
		return conflict("emergency code")
	}
	r.s.stamp(&f.CreatedAt, &f.UpdatedAt)
	r.s.t.facilities[f.ID] = *f
	return nil
}

type facilityAdminRepo struct{ s *Store }

func (r facilityAdminRepo) FindByEmail(_ context.Context, email string) (*domain.FacilityAdmin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.t.facilityAdmins {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, domain.NotFound("facility admin")
}

func (r facilityAdminRepo) ListByFacility(_ context.Context, facilityID uint) ([]domain.FacilityAdmin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.FacilityAdmin
	for _, id := range sortedIDs(r.s.t.facilityAdmins) {
		if a := r.s.t.facilityAdmins[id]; a.FacilityID == facilityID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r facilityAdminRepo) Create(_ context.Context, a *domain.FacilityAdmin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.facilityAdmins {
		if strings.EqualFold(x.Email, a.Email) {
			return conflict("facility admin")
		}
	}
	a.ID = r.s.nextID("facility_admins")
	r.s.stamp(&a.CreatedAt, &a.UpdatedAt)
	r.s.t.facilityAdmins[a.ID] = *a
	return nil
}

func (r facilityAdminRepo) Save(_ context.Context, a *domain.FacilityAdmin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.facilityAdmins[a.ID]; !ok {
		return domain.NotFound("facility admin")
	}
	r.s.stamp(&a.CreatedAt, &a.UpdatedAt)
	r.s.t.facilityAdmins[a.ID] = *a
	return nil
}

type systemAdminRepo struct{ s *Store }

func (r systemAdminRepo) FindByEmail(_ context.Context, email string) (*domain.SystemAdmin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.t.systemAdmins {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, domain.NotFound("system admin")
}

func (r systemAdminRepo) List(_ context.Context) ([]domain.SystemAdmin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.SystemAdmin, 0, len(r.s.t.systemAdmins))
	for _, id := range sortedIDs(r.s.t.systemAdmins) {
		out = append(out, r.s.t.systemAdmins[id])
	}
	return out, nil
}

func (r systemAdminRepo) Create(_ context.Context, a *domain.SystemAdmin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.systemAdmins {
		if strings.EqualFold(x.Email, a.Email) {
			return conflict("system admin")
		}
	}
	a.ID = r.s.nextID("system_admins")
	r.s.stamp(&a.CreatedAt, &a.UpdatedAt)
	r.s.t.systemAdmins[a.ID] = *a
	return nil
}

func (r systemAdminRepo) Save(_ context.Context, a *domain.SystemAdmin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.systemAdmins[a.ID]; !ok {
		return domain.NotFound("system admin")
	}
	r.s.stamp(&a.CreatedAt, &a.UpdatedAt)
	r.s.t.systemAdmins[a.ID] = *a
	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) Get(_ context.Context, id uint) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u := r.s.loadUser(id); u != nil {
		return u, nil
	}
	return nil, domain.NotFound("user")
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.t.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, domain.NotFound("user")
}

func (r userRepo) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.users {
		if strings.EqualFold(x.Email, u.Email) {
			return conflict("user")
		}
	}
	u.ID = r.s.nextID("users")
	r.s.stamp(&u.CreatedAt, &u.UpdatedAt)
	r.s.t.users[u.ID] = *u
	return nil
}

func (r userRepo) Save(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.users[u.ID]; !ok {
		return domain.NotFound("user")
	}
	r.s.stamp(&u.CreatedAt, &u.UpdatedAt)
	r.s.t.users[u.ID] = *u
	return nil
}

type certificateRepo struct{ s *Store }

func (r certificateRepo) Create(_ context.Context, c *domain.WorkerCertificate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.nextID("certificates")
	r.s.stamp(&c.CreatedAt, nil)
	r.s.t.certificates[c.ID] = *c
	return nil
}

func (r certificateRepo) ListByUser(_ context.Context, userID uint) ([]domain.WorkerCertificate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.WorkerCertificate
	for _, id := range sortedIDs(r.s.t.certificates) {
		if c := r.s.t.certificates[id]; c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type passwordResetRepo struct{ s *Store }

func (r passwordResetRepo) Create(_ context.Context, t *domain.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.nextID("password_resets")
	r.s.stamp(&t.CreatedAt, nil)
	r.s.t.resets[t.ID] = *t
	return nil
}

func (r passwordResetRepo) FindByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.t.resets {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, domain.NotFound("reset token")
}

func (r passwordResetRepo) Save(_ context.Context, t *domain.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.resets[t.ID]; !ok {
		return domain.NotFound("reset token")
	}
	r.s.t.resets[t.ID] = *t
	return nil
}
