package memstore

import (
	"context"
	"sort"
	"time"

	"shiftmatch/domain"
)

type attendanceRepo struct{ s *Store }

func stripAttendance(a domain.Attendance) domain.Attendance {
	a.User = nil
	a.Facility = nil
	a.Application = nil
	a.Modification = nil
	return a
}

func (r attendanceRepo) Create(_ context.Context, a *domain.Attendance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.nextID("attendances")
	r.s.stamp(&a.CreatedAt, &a.UpdatedAt)
	r.s.t.attendances[a.ID] = stripAttendance(*a)
	return nil
}

func (r attendanceRepo) Save(_ context.Context, a *domain.Attendance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.attendances[a.ID]; !ok {
		return domain.NotFound("attendance")
	}
	r.s.stamp(&a.CreatedAt, &a.UpdatedAt)
	r.s.t.attendances[a.ID] = stripAttendance(*a)
	return nil
}

func (r attendanceRepo) Get(_ context.Context, id uint) (*domain.Attendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.t.attendances[id]
	if !ok {
		return nil, domain.NotFound("attendance")
	}
	loaded := r.s.loadAttendance(a, true)
	return &loaded, nil
}

// FindOpen returns the worker's latest record that has not been checked out.
func (r attendanceRepo) FindOpen(_ context.Context, userID uint) (*domain.Attendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var open *domain.Attendance
	for _, id := range sortedIDs(r.s.t.attendances) {
		a := r.s.t.attendances[id]
		if a.UserID != userID || a.Status != domain.AttendanceCheckedIn {
			continue
		}
		if open == nil || !a.CheckInTime.Before(open.CheckInTime) {
			loaded := r.s.loadAttendance(a, true)
			open = &loaded
		}
	}
	if open == nil {
		return nil, domain.NotFound("attendance")
	}
	return open, nil
}

func (r attendanceRepo) ListByUser(_ context.Context, userID uint, offset, limit int) ([]domain.Attendance, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Attendance
	for _, a := range r.s.t.attendances {
		if a.UserID == userID {
			out = append(out, r.s.loadAttendance(a, true))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CheckInTime.Equal(out[k].CheckInTime) {
			return out[i].ID > out[k].ID
		}
		return out[i].CheckInTime.After(out[k].CheckInTime)
	})
	return page(out, offset, limit), int64(len(out)), nil
}

func (r attendanceRepo) ListByFacilityBetween(_ context.Context, facilityID uint, from, to time.Time) ([]domain.Attendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Attendance
	for _, a := range r.s.t.attendances {
		if a.FacilityID == facilityID && !a.CheckInTime.Before(from) && a.CheckInTime.Before(to) {
			out = append(out, r.s.loadAttendance(a, true))
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CheckInTime.Before(out[k].CheckInTime) })
	return out, nil
}

type modificationRepo struct{ s *Store }

func (r modificationRepo) Create(_ context.Context, m *domain.AttendanceModificationRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.modifications {
		if x.AttendanceID == m.AttendanceID {
			return conflict("modification request")
		}
	}
	m.ID = r.s.nextID("modifications")
	r.s.stamp(&m.CreatedAt, &m.UpdatedAt)
	row := *m
	row.Attendance = nil
	r.s.t.modifications[m.ID] = row
	return nil
}

func (r modificationRepo) Save(_ context.Context, m *domain.AttendanceModificationRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.modifications[m.ID]; !ok {
		return domain.NotFound("modification request")
	}
	r.s.stamp(&m.CreatedAt, &m.UpdatedAt)
	row := *m
	row.Attendance = nil
	r.s.t.modifications[m.ID] = row
	return nil
}

func (r modificationRepo) Get(_ context.Context, id uint) (*domain.AttendanceModificationRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.t.modifications[id]
	if !ok {
		return nil, domain.NotFound("modification request")
	}
	loaded := r.s.loadModification(m)
	return &loaded, nil
}

func (r modificationRepo) FindByAttendance(_ context.Context, attendanceID uint) (*domain.AttendanceModificationRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.t.modifications {
		if m.AttendanceID == attendanceID {
			loaded := r.s.loadModification(m)
			return &loaded, nil
		}
	}
	return nil, domain.NotFound("modification request")
}

func (r modificationRepo) filter(match func(domain.Attendance, domain.AttendanceModificationRequest) bool) []domain.AttendanceModificationRequest {
	var out []domain.AttendanceModificationRequest
	for _, id := range sortedIDs(r.s.t.modifications) {
		m := r.s.t.modifications[id]
		if a, ok := r.s.t.attendances[m.AttendanceID]; ok && match(a, m) {
			out = append(out, r.s.loadModification(m))
		}
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out
}

func (r modificationRepo) ListByFacility(_ context.Context, facilityID uint, statuses []domain.ModificationStatus) ([]domain.AttendanceModificationRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.filter(func(a domain.Attendance, m domain.AttendanceModificationRequest) bool {
		return a.FacilityID == facilityID && inList(statuses, m.Status)
	}), nil
}

func (r modificationRepo) ListByUser(_ context.Context, userID uint) ([]domain.AttendanceModificationRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.filter(func(a domain.Attendance, _ domain.AttendanceModificationRequest) bool {
		return a.UserID == userID
	}), nil
}

func (r modificationRepo) CountByFacility(_ context.Context, facilityID uint, statuses []domain.ModificationStatus) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, m := range r.s.t.modifications {
		if a, ok := r.s.t.attendances[m.AttendanceID]; ok && a.FacilityID == facilityID && inList(statuses, m.Status) {
			n++
		}
	}
	return n, nil
}
