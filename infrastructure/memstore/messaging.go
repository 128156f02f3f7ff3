package memstore

import (
	"context"
	"sort"
	"time"

	"shiftmatch/application"
	"shiftmatch/domain"
)

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, m *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = r.s.nextID("messages")
	r.s.stamp(&m.CreatedAt, nil)
	r.s.t.messages[m.ID] = *m
	return nil
}

func (r messageRepo) ListByApplication(_ context.Context, applicationID uint) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Message{}
	for _, id := range sortedIDs(r.s.t.messages) {
		if m := r.s.t.messages[id]; m.ApplicationID == applicationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r messageRepo) MarkRead(_ context.Context, applicationID uint, reader domain.TargetType, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, m := range r.s.t.messages {
		if m.ApplicationID != applicationID || m.ReadAt != nil {
			continue
		}
		if (reader == domain.TargetWorker && m.ToUserID == nil) || (reader == domain.TargetFacility && m.ToFacilityID == nil) {
			continue
		}
		m.ReadAt = &at
		r.s.t.messages[id] = m
		n++
	}
	return n, nil
}

type reviewRepo struct{ s *Store }

func (r reviewRepo) Create(_ context.Context, rv *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv.ID = r.s.nextID("reviews")
	r.s.stamp(&rv.CreatedAt, nil)
	r.s.t.reviews[rv.ID] = *rv
	return nil
}

func (r reviewRepo) exists(match func(domain.Review) bool) bool {
	for _, rv := range r.s.t.reviews {
		if match(rv) {
			return true
		}
	}
	return false
}

func (r reviewRepo) ExistsForJob(_ context.Context, jobID, userID uint, reviewer domain.ReviewerType) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.exists(func(rv domain.Review) bool {
		return rv.JobID == jobID && rv.UserID == userID && rv.ReviewerType == reviewer
	}), nil
}

func (r reviewRepo) ExistsForApplication(_ context.Context, applicationID uint, reviewer domain.ReviewerType) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.exists(func(rv domain.Review) bool {
		return rv.ApplicationID != nil && *rv.ApplicationID == applicationID && rv.ReviewerType == reviewer
	}), nil
}

// newestFirst filters reviews and orders them by creation time, newest first.
func (r reviewRepo) newestFirst(match func(domain.Review) bool) []domain.Review {
	out := []domain.Review{}
	for _, rv := range r.s.t.reviews {
		if match(rv) {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID > out[k].ID
		}
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

func ratings(rs []domain.Review) []int {
	out := make([]int, len(rs))
	for i, rv := range rs {
		out[i] = rv.Rating
	}
	return out
}

func (r reviewRepo) RecentFacilityRatings(_ context.Context, facilityID uint, limit int) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rs := r.newestFirst(func(rv domain.Review) bool {
		return rv.FacilityID == facilityID && rv.ReviewerType == domain.ReviewerWorker
	})
	return ratings(page(rs, 0, limit)), nil
}

func (r reviewRepo) FacilityRatings(_ context.Context, facilityID uint) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return ratings(r.newestFirst(func(rv domain.Review) bool {
		return rv.FacilityID == facilityID && rv.ReviewerType == domain.ReviewerWorker
	})), nil
}

func (r reviewRepo) ListByFacility(_ context.Context, facilityID uint, reviewer domain.ReviewerType) ([]domain.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.newestFirst(func(rv domain.Review) bool {
		return rv.FacilityID == facilityID && rv.ReviewerType == reviewer
	}), nil
}

// ListByUser returns the facilities' reviews of one worker.
func (r reviewRepo) ListByUser(_ context.Context, userID uint) ([]domain.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.newestFirst(func(rv domain.Review) bool {
		return rv.UserID == userID && rv.ReviewerType == domain.ReviewerFacility
	}), nil
}

type notifSettingRepo struct{ s *Store }

func (r notifSettingRepo) Get(_ context.Context, key string) (*domain.NotificationSetting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if ns, ok := r.s.t.notifSettings[key]; ok {
		return &ns, nil
	}
	return nil, domain.NotFound("notification setting")
}

func (r notifSettingRepo) List(_ context.Context) ([]domain.NotificationSetting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.NotificationSetting, 0, len(r.s.t.notifSettings))
	for _, ns := range r.s.t.notifSettings {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

// Save upserts by notification key.
func (r notifSettingRepo) Save(_ context.Context, ns *domain.NotificationSetting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cur, ok := r.s.t.notifSettings[ns.NotificationKey]; ok {
		ns.ID = cur.ID
	} else {
		ns.ID = r.s.nextID("notification_settings")
	}
	r.s.stamp(nil, &ns.UpdatedAt)
	r.s.t.notifSettings[ns.NotificationKey] = *ns
	return nil
}

type notifLogRepo struct{ s *Store }

func (r notifLogRepo) Create(_ context.Context, l *domain.NotificationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.nextID("notification_logs")
	r.s.stamp(&l.CreatedAt, nil)
	r.s.t.notifLogs[l.ID] = *l
	return nil
}

func (r notifLogRepo) Get(_ context.Context, id uint) (*domain.NotificationLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if l, ok := r.s.t.notifLogs[id]; ok {
		return &l, nil
	}
	return nil, domain.NotFound("notification log")
}

func (r notifLogRepo) Save(_ context.Context, l *domain.NotificationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.notifLogs[l.ID]; !ok {
		return domain.NotFound("notification log")
	}
	r.s.t.notifLogs[l.ID] = *l
	return nil
}

func (r notifLogRepo) List(_ context.Context, f application.NotificationLogFilter) ([]domain.NotificationLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := sortedIDs(r.s.t.notifLogs)
	out := []domain.NotificationLog{}
	for i := len(ids) - 1; i >= 0; i-- {
		l := r.s.t.notifLogs[ids[i]]
		if (f.Key != "" && l.NotificationKey != f.Key) ||
			(f.Channel != "" && l.Channel != f.Channel) ||
			(f.Status != "" && l.Status != f.Status) {
			continue
		}
		out = append(out, l)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

type notificationRepo struct{ s *Store }

func ownedBy(n domain.Notification, target domain.TargetType, ownerID uint) bool {
	switch target {
	case domain.TargetWorker:
		return n.UserID != nil && *n.UserID == ownerID
	case domain.TargetFacility:
		return n.FacilityID != nil && *n.FacilityID == ownerID
	}
	return false
}

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = r.s.nextID("notifications")
	r.s.stamp(&n.CreatedAt, nil)
	r.s.t.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) List(_ context.Context, target domain.TargetType, ownerID uint, limit int) ([]domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := sortedIDs(r.s.t.notifications)
	out := []domain.Notification{}
	for i := len(ids) - 1; i >= 0; i-- {
		n := r.s.t.notifications[ids[i]]
		if !ownedBy(n, target, ownerID) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id uint, target domain.TargetType, ownerID uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.t.notifications[id]
	if !ok || !ownedBy(n, target, ownerID) {
		return domain.NotFound("notification")
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
		r.s.t.notifications[id] = n
	}
	return nil
}
