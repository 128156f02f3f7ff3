// Package memstore keeps every repository in process memory. It backs DB_DRIVER=memory and the
// service and handler tests.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"shiftmatch/application"
	"shiftmatch/domain"
)

type tables struct {
	seq            map[string]uint
	facilities     map[uint]domain.Facility
	facilityAdmins map[uint]domain.FacilityAdmin
	systemAdmins   map[uint]domain.SystemAdmin
	users          map[uint]domain.User
	certificates   map[uint]domain.WorkerCertificate
	jobs           map[uint]domain.Job
	workDates      map[uint]domain.JobWorkDate
	applications   map[uint]domain.Application
	attendances    map[uint]domain.Attendance
	modifications  map[uint]domain.AttendanceModificationRequest
	messages       map[uint]domain.Message
	reviews        map[uint]domain.Review
	notifSettings  map[string]domain.NotificationSetting
	notifLogs      map[uint]domain.NotificationLog
	notifications  map[uint]domain.Notification
	systemSettings map[string]domain.SystemSetting
	minimumWages   map[uint]domain.MinimumWage
	wageHistory    map[uint]domain.MinimumWageHistory
	banks          map[string]domain.Bank
	branches       map[string]domain.Branch
	landingPages   map[uint]domain.LandingPage
	lpEvents       map[uint]domain.LPTrackingEvent
	activityLogs   map[uint]domain.ActivityLog
	resets         map[uint]domain.PasswordResetToken
}

func newTables() *tables {
	return &tables{
		seq:            map[string]uint{},
		facilities:     map[uint]domain.Facility{},
		facilityAdmins: map[uint]domain.FacilityAdmin{},
		systemAdmins:   map[uint]domain.SystemAdmin{},
		users:          map[uint]domain.User{},
		certificates:   map[uint]domain.WorkerCertificate{},
		jobs:           map[uint]domain.Job{},
		workDates:      map[uint]domain.JobWorkDate{},
		applications:   map[uint]domain.Application{},
		attendances:    map[uint]domain.Attendance{},
		modifications:  map[uint]domain.AttendanceModificationRequest{},
		messages:       map[uint]domain.Message{},
		reviews:        map[uint]domain.Review{},
		notifSettings:  map[string]domain.NotificationSetting{},
		notifLogs:      map[uint]domain.NotificationLog{},
		notifications:  map[uint]domain.Notification{},
		systemSettings: map[string]domain.SystemSetting{},
		minimumWages:   map[uint]domain.MinimumWage{},
		wageHistory:    map[uint]domain.MinimumWageHistory{},
		banks:          map[string]domain.Bank{},
		branches:       map[string]domain.Branch{},
		landingPages:   map[uint]domain.LandingPage{},
		lpEvents:       map[uint]domain.LPTrackingEvent{},
		activityLogs:   map[uint]domain.ActivityLog{},
		resets:         map[uint]domain.PasswordResetToken{},
	}
}

// clone copies every table. Rows are stored by value and replaced on write, so a shallow copy
// of each map is a consistent snapshot.
func (t *tables) clone() *tables {
	return &tables{
		seq:            maps.Clone(t.seq),
		facilities:     maps.Clone(t.facilities),
		facilityAdmins: maps.Clone(t.facilityAdmins),
		systemAdmins:   maps.Clone(t.systemAdmins),
		users:          maps.Clone(t.users),
		certificates:   maps.Clone(t.certificates),
		jobs:           maps.Clone(t.jobs),
		workDates:      maps.Clone(t.workDates),
		applications:   maps.Clone(t.applications),
		attendances:    maps.Clone(t.attendances),
		modifications:  maps.Clone(t.modifications),
		messages:       maps.Clone(t.messages),
		reviews:        maps.Clone(t.reviews),
		notifSettings:  maps.Clone(t.notifSettings),
		notifLogs:      maps.Clone(t.notifLogs),
		notifications:  maps.Clone(t.notifications),
		systemSettings: maps.Clone(t.systemSettings),
		minimumWages:   maps.Clone(t.minimumWages),
		wageHistory:    maps.Clone(t.wageHistory),
		banks:          maps.Clone(t.banks),
		branches:       maps.Clone(t.branches),
		landingPages:   maps.Clone(t.landingPages),
		lpEvents:       maps.Clone(t.lpEvents),
		activityLogs:   maps.Clone(t.activityLogs),
		resets:         maps.Clone(t.resets),
	}
}

// Store is the in-memory database shared by all repositories.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	t    *tables
	now  func() time.Time
}

func New() *Store {
	return &Store{t: newTables(), now: time.Now}
}

// SetNow replaces the timestamp source used for CreatedAt and UpdatedAt.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) nextID(table string) uint {
	s.t.seq[table]++
	return s.t.seq[table]
}

// stamp fills zero CreatedAt and always refreshes UpdatedAt.
func (s *Store) stamp(created, updated *time.Time) {
	now := s.now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

type txKey struct{}

// WithinTx serializes transactions and restores the pre-transaction snapshot when fn fails.
// Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.t.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Repositories wires every repository onto this store.
func (s *Store) Repositories() application.Repositories {
	return application.Repositories{
		Tx:             s,
		Facilities:     facilityRepo{s},
		FacilityAdmins: facilityAdminRepo{s},
		SystemAdmins:   systemAdminRepo{s},
		Users:          userRepo{s},
		Certificates:   certificateRepo{s},
		Jobs:           jobRepo{s},
		Applications:   applicationRepo{s},
		Attendances:    attendanceRepo{s},
		Modifications:  modificationRepo{s},
		Messages:       messageRepo{s},
		Reviews:        reviewRepo{s},
		NotifSettings:  notifSettingRepo{s},
		NotifLogs:      notifLogRepo{s},
		Notifications:  notificationRepo{s},
		SystemSettings: systemSettingRepo{s},
		MinimumWages:   minimumWageRepo{s},
		Banks:          bankRepo{s},
		LandingPages:   landingPageRepo{s},
		ActivityLogs:   activityLogRepo{s},
		PasswordResets: passwordResetRepo{s},
		Analytics:      analyticsRepo{s},
	}
}

func conflict(what string) error {
	return domain.Conflict("DUPLICATE", what+" already exists")
}

// sortedIDs returns map keys in ascending order so list results are stable.
func sortedIDs[V any](m map[uint]V) []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// inList reports whether v is in list. An empty list matches everything.
func inList[T comparable](list []T, v T) bool {
	if len(list) == 0 {
		return true
	}
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Preloading mirrors the gorm Preload chains of the SQL repositories. Callers hold s.mu.

func (s *Store) loadFacility(id uint) *domain.Facility {
	f, ok := s.t.facilities[id]
	if !ok {
		return nil
	}
	return &f
}

func (s *Store) loadUser(id uint) *domain.User {
	u, ok := s.t.users[id]
	if !ok {
		return nil
	}
	return &u
}

func (s *Store) workDatesOf(jobID uint) []domain.JobWorkDate {
	var out []domain.JobWorkDate
	for _, id := range sortedIDs(s.t.workDates) {
		if wd := s.t.workDates[id]; wd.JobID == jobID {
			out = append(out, wd)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WorkDate.Before(out[j].WorkDate) })
	return out
}

// loadJob returns the job with facility and work dates.
func (s *Store) loadJob(j domain.Job) domain.Job {
	j.Facility = s.loadFacility(j.FacilityID)
	j.WorkDates = s.workDatesOf(j.ID)
	return j
}

// loadWorkDate returns the work date with its job and the job's facility, without sibling dates.
func (s *Store) loadWorkDate(id uint) *domain.JobWorkDate {
	wd, ok := s.t.workDates[id]
	if !ok {
		return nil
	}
	if j, ok := s.t.jobs[wd.JobID]; ok {
		j.Facility = s.loadFacility(j.FacilityID)
		j.WorkDates = nil
		wd.Job = &j
	}
	return &wd
}

func (s *Store) loadApplication(a domain.Application) domain.Application {
	a.WorkDate = s.loadWorkDate(a.WorkDateID)
	a.User = s.loadUser(a.UserID)
	return a
}

func (s *Store) loadAttendance(a domain.Attendance, withModification bool) domain.Attendance {
	a.User = s.loadUser(a.UserID)
	a.Facility = s.loadFacility(a.FacilityID)
	a.Application = nil
	if a.ApplicationID != nil {
		if app, ok := s.t.applications[*a.ApplicationID]; ok {
			loaded := s.loadApplication(app)
			a.Application = &loaded
		}
	}
	a.Modification = nil
	if withModification {
		for _, id := range sortedIDs(s.t.modifications) {
			if m := s.t.modifications[id]; m.AttendanceID == a.ID {
				m.Attendance = nil
				a.Modification = &m
				break
			}
		}
	}
	return a
}

func (s *Store) loadModification(m domain.AttendanceModificationRequest) domain.AttendanceModificationRequest {
	if a, ok := s.t.attendances[m.AttendanceID]; ok {
		loaded := s.loadAttendance(a, false)
		m.Attendance = &loaded
	}
	return m
}
