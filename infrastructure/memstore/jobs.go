package memstore

import (
	"context"
	"sort"

	"shiftmatch/application"
	"shiftmatch/domain"
)

type jobRepo struct{ s *Store }

func stripJob(j domain.Job) domain.Job {
	j.Facility = nil
	j.WorkDates = nil
	return j
}

func (r jobRepo) Get(_ context.Context, id uint) (*domain.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.t.jobs[id]
	if !ok {
		return nil, domain.NotFound("job")
	}
	loaded := r.s.loadJob(j)
	return &loaded, nil
}

func (r jobRepo) Create(_ context.Context, j *domain.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j.ID = r.s.nextID("jobs")
	r.s.stamp(&j.CreatedAt, &j.UpdatedAt)
	r.s.t.jobs[j.ID] = stripJob(*j)
	r.saveWorkDates(j)
	return nil
}

// Save writes the job and upserts its work dates. Existing dates keep their counters.
func (r jobRepo) Save(_ context.Context, j *domain.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.jobs[j.ID]; !ok {
		return domain.NotFound("job")
	}
	r.s.stamp(&j.CreatedAt, &j.UpdatedAt)
	r.s.t.jobs[j.ID] = stripJob(*j)
	r.saveWorkDates(j)
	return nil
}

func (r jobRepo) saveWorkDates(j *domain.Job) {
	for i := range j.WorkDates {
		wd := &j.WorkDates[i]
		wd.JobID = j.ID
		if cur, ok := r.s.t.workDates[wd.ID]; ok && wd.ID != 0 {
			cur.WorkDate = wd.WorkDate
			cur.Deadline = wd.Deadline
			cur.RecruitmentCount = wd.RecruitmentCount
			r.s.stamp(&cur.CreatedAt, &cur.UpdatedAt)
			r.s.t.workDates[cur.ID] = cur
			continue
		}
		wd.ID = r.s.nextID("work_dates")
		r.s.stamp(&wd.CreatedAt, &wd.UpdatedAt)
		row := *wd
		row.Job = nil
		r.s.t.workDates[wd.ID] = row
	}
}

func (r jobRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.jobs[id]; !ok {
		return domain.NotFound("job")
	}
	for wdID, wd := range r.s.t.workDates {
		if wd.JobID != id {
			continue
		}
		for appID, a := range r.s.t.applications {
			if a.WorkDateID == wdID {
				delete(r.s.t.applications, appID)
			}
		}
		delete(r.s.t.workDates, wdID)
	}
	delete(r.s.t.jobs, id)
	return nil
}

func (r jobRepo) collect(match func(domain.Job) bool) []domain.Job {
	var out []domain.Job
	for _, id := range sortedIDs(r.s.t.jobs) {
		if j := r.s.t.jobs[id]; match(j) {
			out = append(out, r.s.loadJob(j))
		}
	}
	return out
}

func (r jobRepo) ListByFacility(_ context.Context, facilityID uint) ([]domain.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.collect(func(j domain.Job) bool { return j.FacilityID == facilityID })
	sort.SliceStable(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	return out, nil
}

func (r jobRepo) ListPublished(_ context.Context, f application.JobFilter) ([]domain.Job, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.collect(func(j domain.Job) bool {
		if j.Status != domain.JobPublished || j.JobType == domain.JobTypeOffer {
			return false
		}
		if f.Prefecture != "" && j.Prefecture != f.Prefecture {
			return false
		}
		if f.Date == nil {
			return true
		}
		day := domain.JSTDateString(*f.Date)
		for _, wd := range r.s.workDatesOf(j.ID) {
			if domain.JSTDateString(wd.WorkDate) == day {
				return true
			}
		}
		return false
	})
	sort.SliceStable(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	return page(out, f.Offset, f.Limit), int64(len(out)), nil
}

func (r jobRepo) ListByStatusAndTypes(_ context.Context, status domain.JobStatus, types ...domain.JobType) ([]domain.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.collect(func(j domain.Job) bool {
		return j.Status == status && inList(types, j.JobType)
	}), nil
}

func (r jobRepo) PromoteToWorking(_ context.Context, ids []uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		j, ok := r.s.t.jobs[id]
		if !ok || j.Status != domain.JobPublished {
			continue
		}
		j.Status = domain.JobWorking
		r.s.stamp(nil, &j.UpdatedAt)
		r.s.t.jobs[id] = j
		n++
	}
	return n, nil
}

func (r jobRepo) GetWorkDate(_ context.Context, id uint) (*domain.JobWorkDate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if wd := r.s.loadWorkDate(id); wd != nil {
		return wd, nil
	}
	return nil, domain.NotFound("work date")
}

func (r jobRepo) AdjustWorkDateCounts(_ context.Context, workDateID uint, applied, matched int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wd, ok := r.s.t.workDates[workDateID]
	if !ok {
		return domain.NotFound("work date")
	}
	wd.AppliedCount += applied
	wd.MatchedCount += matched
	r.s.stamp(nil, &wd.UpdatedAt)
	r.s.t.workDates[workDateID] = wd
	return nil
}

func (r jobRepo) MoveWorkDate(_ context.Context, workDateID, jobID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wd, ok := r.s.t.workDates[workDateID]
	if !ok {
		return domain.NotFound("work date")
	}
	if _, ok := r.s.t.jobs[jobID]; !ok {
		return domain.NotFound("job")
	}
	wd.JobID = jobID
	r.s.t.workDates[workDateID] = wd
	return nil
}

func (r jobRepo) DeleteWorkDate(_ context.Context, workDateID uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.workDates[workDateID]; !ok {
		return domain.NotFound("work date")
	}
	for appID, a := range r.s.t.applications {
		if a.WorkDateID == workDateID {
			delete(r.s.t.applications, appID)
		}
	}
	delete(r.s.t.workDates, workDateID)
	return nil
}

type applicationRepo struct{ s *Store }

func stripApplication(a domain.Application) domain.Application {
	a.WorkDate = nil
	a.User = nil
	return a
}

func (r applicationRepo) Get(_ context.Context, id uint) (*domain.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.t.applications[id]
	if !ok {
		return nil, domain.NotFound("application")
	}
	loaded := r.s.loadApplication(a)
	return &loaded, nil
}

func (r applicationRepo) FindByUserAndWorkDate(_ context.Context, userID, workDateID uint) (*domain.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range sortedIDs(r.s.t.applications) {
		if a := r.s.t.applications[id]; a.UserID == userID && a.WorkDateID == workDateID {
			loaded := r.s.loadApplication(a)
			return &loaded, nil
		}
	}
	return nil, domain.NotFound("application")
}

func (r applicationRepo) Create(_ context.Context, a *domain.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.applications {
		if x.UserID == a.UserID && x.WorkDateID == a.WorkDateID {
			return conflict("application")
		}
	}
	a.ID = r.s.nextID("applications")
	r.s.stamp(&a.CreatedAt, &a.UpdatedAt)
	r.s.t.applications[a.ID] = stripApplication(*a)
	return nil
}

func (r applicationRepo) Save(_ context.Context, a *domain.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.applications[a.ID]; !ok {
		return domain.NotFound("application")
	}
	r.s.stamp(&a.CreatedAt, &a.UpdatedAt)
	r.s.t.applications[a.ID] = stripApplication(*a)
	return nil
}

func (r applicationRepo) Find(_ context.Context, q application.ApplicationQuery) ([]domain.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Application
	for _, id := range sortedIDs(r.s.t.applications) {
		a := r.s.t.applications[id]
		if !inList(q.Statuses, a.Status) || (q.UserID != 0 && a.UserID != q.UserID) {
			continue
		}
		wd, ok := r.s.t.workDates[a.WorkDateID]
		if !ok {
			continue
		}
		if q.JobID != 0 && wd.JobID != q.JobID {
			continue
		}
		if q.FacilityID != 0 && r.s.t.jobs[wd.JobID].FacilityID != q.FacilityID {
			continue
		}
		if q.WorkDateFrom != nil && wd.WorkDate.Before(*q.WorkDateFrom) {
			continue
		}
		if q.WorkDateTo != nil && !wd.WorkDate.Before(*q.WorkDateTo) {
			continue
		}
		out = append(out, r.s.loadApplication(a))
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].WorkDate.WorkDate.Before(out[k].WorkDate.WorkDate) })
	return out, nil
}

func (r applicationRepo) TransitionMany(_ context.Context, ids []uint, from, to domain.ApplicationStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		a, ok := r.s.t.applications[id]
		if !ok || a.Status != from {
			continue
		}
		a.Status = to
		r.s.stamp(nil, &a.UpdatedAt)
		r.s.t.applications[id] = a
		n++
	}
	return n, nil
}

func (r applicationRepo) count(match func(domain.Application) bool) int64 {
	var n int64
	for _, a := range r.s.t.applications {
		if match(a) {
			n++
		}
	}
	return n
}

func (r applicationRepo) CountActiveOnWorkDate(_ context.Context, workDateID uint) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.count(func(a domain.Application) bool {
		return a.WorkDateID == workDateID && a.Status.IsActive()
	}), nil
}

func (r applicationRepo) CountMatchedWithFacility(_ context.Context, userID, facilityID, excludeID uint) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.count(func(a domain.Application) bool {
		if a.UserID != userID || a.ID == excludeID || !a.Status.IsMatched() {
			return false
		}
		wd, ok := r.s.t.workDates[a.WorkDateID]
		return ok && r.s.t.jobs[wd.JobID].FacilityID == facilityID
	}), nil
}

func (r applicationRepo) CancelStats(_ context.Context, userID uint) (int64, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cancels := r.count(func(a domain.Application) bool {
		return a.UserID == userID && a.Status == domain.StatusCancelled &&
			a.CancelledBy != nil && *a.CancelledBy == domain.CancelledByWorker
	})
	settled := r.count(func(a domain.Application) bool {
		return a.UserID == userID && (a.Status == domain.StatusCancelled || a.Status == domain.StatusCompletedRated)
	})
	return cancels, settled, nil
}

func (r applicationRepo) MarkReviewed(_ context.Context, userID, jobID uint, reviewer domain.ReviewerType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, a := range r.s.t.applications {
		wd, ok := r.s.t.workDates[a.WorkDateID]
		if a.UserID != userID || !ok || wd.JobID != jobID {
			continue
		}
		if reviewer == domain.ReviewerWorker {
			a.WorkerReviewStatus = domain.ReviewCompleted
		} else {
			a.FacilityReviewStatus = domain.ReviewCompleted
		}
		r.s.stamp(nil, &a.UpdatedAt)
		r.s.t.applications[id] = a
	}
	return nil
}
