package memstore

import (
	"context"
	"sort"
	"time"

	"shiftmatch/domain"
)

type systemSettingRepo struct{ s *Store }

func (r systemSettingRepo) Get(_ context.Context, key string) (*domain.SystemSetting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if st, ok := r.s.t.systemSettings[key]; ok {
		return &st, nil
	}
	return nil, domain.NotFound("setting")
}

func (r systemSettingRepo) List(_ context.Context) ([]domain.SystemSetting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.SystemSetting, 0, len(r.s.t.systemSettings))
	for _, st := range r.s.t.systemSettings {
		out = append(out, st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Key < out[k].Key })
	return out, nil
}

func (r systemSettingRepo) Upsert(_ context.Context, st *domain.SystemSetting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(nil, &st.UpdatedAt)
	r.s.t.systemSettings[st.Key] = *st
	return nil
}

type minimumWageRepo struct{ s *Store }

func (r minimumWageRepo) ListAll(_ context.Context) ([]domain.MinimumWage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.MinimumWage, 0, len(r.s.t.minimumWages))
	for _, id := range sortedIDs(r.s.t.minimumWages) {
		out = append(out, r.s.t.minimumWages[id])
	}
	sort.SliceStable(out, func(i, k int) bool {
		if out[i].Prefecture != out[k].Prefecture {
			return out[i].Prefecture < out[k].Prefecture
		}
		return out[i].EffectiveFrom.After(out[k].EffectiveFrom)
	})
	return out, nil
}

func (r minimumWageRepo) Get(_ context.Context, id uint) (*domain.MinimumWage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if w, ok := r.s.t.minimumWages[id]; ok {
		return &w, nil
	}
	return nil, domain.NotFound("minimum wage")
}

func (r minimumWageRepo) Create(_ context.Context, w *domain.MinimumWage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w.ID = r.s.nextID("minimum_wages")
	r.s.stamp(&w.CreatedAt, &w.UpdatedAt)
	r.s.t.minimumWages[w.ID] = *w
	return nil
}

func (r minimumWageRepo) Save(_ context.Context, w *domain.MinimumWage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.minimumWages[w.ID]; !ok {
		return domain.NotFound("minimum wage")
	}
	r.s.stamp(&w.CreatedAt, &w.UpdatedAt)
	r.s.t.minimumWages[w.ID] = *w
	return nil
}

func (r minimumWageRepo) DeleteIDs(_ context.Context, ids []uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		delete(r.s.t.minimumWages, id)
	}
	return nil
}

func (r minimumWageRepo) DeleteScheduled(_ context.Context, prefs []string, after time.Time) error {
	if len(prefs) == 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, w := range r.s.t.minimumWages {
		if inList(prefs, w.Prefecture) && w.EffectiveFrom.After(after) {
			delete(r.s.t.minimumWages, id)
		}
	}
	return nil
}

func (r minimumWageRepo) DeleteIfScheduled(_ context.Context, id uint, after time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.t.minimumWages[id]
	if !ok || !w.EffectiveFrom.After(after) {
		return 0, nil
	}
	delete(r.s.t.minimumWages, id)
	return 1, nil
}

func (r minimumWageRepo) CreateHistory(_ context.Context, h []domain.MinimumWageHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range h {
		h[i].ID = r.s.nextID("minimum_wage_histories")
		r.s.t.wageHistory[h[i].ID] = h[i]
	}
	return nil
}

func (r minimumWageRepo) ListHistory(_ context.Context, prefecture string, limit int) ([]domain.MinimumWageHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.MinimumWageHistory{}
	for _, h := range r.s.t.wageHistory {
		if prefecture == "" || h.Prefecture == prefecture {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].ArchivedAt.Equal(out[k].ArchivedAt) {
			return out[i].ID > out[k].ID
		}
		return out[i].ArchivedAt.After(out[k].ArchivedAt)
	})
	return page(out, 0, limit), nil
}

type bankRepo struct{ s *Store }

func branchKey(bankCode, code string) string { return bankCode + "/" + code }

func (r bankRepo) SearchBanks(_ context.Context, variants []string, limit int) ([]domain.Bank, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Bank{}
	for _, b := range r.s.t.banks {
		if domain.MatchesAny(variants, b.Code, b.Name, b.Kana, b.Hira) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Code < out[k].Code })
	return page(out, 0, limit), nil
}

// SearchBranches lists a bank's branches. No variants lists every branch.
func (r bankRepo) SearchBranches(_ context.Context, bankCode string, variants []string, limit int) ([]domain.Branch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Branch{}
	for _, b := range r.s.t.branches {
		if b.BankCode != bankCode {
			continue
		}
		if len(variants) == 0 || domain.MatchesAny(variants, b.Code, b.Name, b.Kana, b.Hira) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Code < out[k].Code })
	return page(out, 0, limit), nil
}

func (r bankRepo) UpsertBanks(_ context.Context, banks []domain.Bank) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range banks {
		r.s.stamp(nil, &b.UpdatedAt)
		r.s.t.banks[b.Code] = b
	}
	return nil
}

func (r bankRepo) UpsertBranches(_ context.Context, branches []domain.Branch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range branches {
		key := branchKey(b.BankCode, b.Code)
		if cur, ok := r.s.t.branches[key]; ok {
			b.ID = cur.ID
		} else {
			b.ID = r.s.nextID("branches")
		}
		r.s.stamp(nil, &b.UpdatedAt)
		r.s.t.branches[key] = b
	}
	return nil
}

type landingPageRepo struct{ s *Store }

// List returns the pages with the given numbers, or every page when numbers is empty.
func (r landingPageRepo) List(_ context.Context, numbers []int) ([]domain.LandingPage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.LandingPage{}
	for _, lp := range r.s.t.landingPages {
		if inList(numbers, lp.LPNumber) {
			out = append(out, lp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].LPNumber < out[k].LPNumber })
	return out, nil
}

func (r landingPageRepo) GetByNumber(_ context.Context, lpNumber int) (*domain.LandingPage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, lp := range r.s.t.landingPages {
		if lp.LPNumber == lpNumber {
			return &lp, nil
		}
	}
	return nil, domain.NotFound("landing page")
}

func (r landingPageRepo) Create(_ context.Context, lp *domain.LandingPage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.t.landingPages {
		if x.LPNumber == lp.LPNumber {
			return conflict("landing page")
		}
	}
	lp.ID = r.s.nextID("landing_pages")
	r.s.stamp(&lp.CreatedAt, &lp.UpdatedAt)
	r.s.t.landingPages[lp.ID] = *lp
	return nil
}

func (r landingPageRepo) Save(_ context.Context, lp *domain.LandingPage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.landingPages[lp.ID]; !ok {
		return domain.NotFound("landing page")
	}
	r.s.stamp(&lp.CreatedAt, &lp.UpdatedAt)
	r.s.t.landingPages[lp.ID] = *lp
	return nil
}

func (r landingPageRepo) CreateEvent(_ context.Context, e *domain.LPTrackingEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.nextID("lp_tracking_events")
	r.s.stamp(&e.CreatedAt, nil)
	r.s.t.lpEvents[e.ID] = *e
	return nil
}

type activityLogRepo struct{ s *Store }

func (r activityLogRepo) Create(_ context.Context, l *domain.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = r.s.nextID("activity_logs")
	r.s.stamp(&l.CreatedAt, nil)
	r.s.t.activityLogs[l.ID] = *l
	return nil
}

func (r activityLogRepo) List(_ context.Context, limit int) ([]domain.ActivityLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := sortedIDs(r.s.t.activityLogs)
	out := []domain.ActivityLog{}
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, r.s.t.activityLogs[ids[i]])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type analyticsRepo struct{ s *Store }

// Summarize counts rows created in [from, to). Completed shifts are counted by work date.
func (r analyticsRepo) Summarize(_ context.Context, from, to time.Time) (domain.MetricsSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	in := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }

	m := domain.MetricsSummary{From: from, To: to}
	for _, u := range r.s.t.users {
		if in(u.CreatedAt) {
			m.NewWorkers++
		}
	}
	for _, f := range r.s.t.facilities {
		if in(f.CreatedAt) {
			m.NewFacilities++
		}
	}
	for _, j := range r.s.t.jobs {
		if j.Status != domain.JobDraft && in(j.CreatedAt) {
			m.PublishedJobs++
		}
	}
	for _, a := range r.s.t.applications {
		if in(a.CreatedAt) {
			m.Applications++
			if a.Status.IsMatched() {
				m.Matches++
			}
		}
		if a.Status == domain.StatusCancelled && a.CancelledBy != nil && in(a.UpdatedAt) {
			switch *a.CancelledBy {
			case domain.CancelledByWorker:
				m.WorkerCancels++
			case domain.CancelledByFacility:
				m.FacilityCancels++
			}
		}
		if a.Status == domain.StatusCompletedPending || a.Status == domain.StatusCompletedRated {
			if wd, ok := r.s.t.workDates[a.WorkDateID]; ok && in(wd.WorkDate) {
				m.CompletedShifts++
			}
		}
	}
	var ratings []int
	for _, rv := range r.s.t.reviews {
		if rv.ReviewerType == domain.ReviewerWorker && in(rv.CreatedAt) {
			ratings = append(ratings, rv.Rating)
		}
	}
	m.AvgFacilityRating = domain.AverageRating(ratings)
	m.ComputeRates()
	return m, nil
}
