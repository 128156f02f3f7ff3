package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

// MinimumWageService manages the per-prefecture minimum wage table. Rows whose JST effective
// date is today or earlier are active; later rows are scheduled.
type MinimumWageService struct {
	tx     Transactor
	repo   MinimumWageRepository
	clock  domain.Clock
	logger *zap.Logger
}

func NewMinimumWageService(r Repositories, clock domain.Clock, logger *zap.Logger) *MinimumWageService {
	return &MinimumWageService{tx: r.Tx, repo: r.MinimumWages, clock: clock, logger: logger}
}

// todayEnd is the last second of the current JST day. Effective dates are always at JST midnight.
func (s *MinimumWageService) todayEnd() time.Time {
	return domain.StartOfDayJST(s.clock.Now()).AddDate(0, 0, 1).Add(-time.Second)
}

// Promote archives superseded active rows so each prefecture keeps one active row.
func (s *MinimumWageService) Promote(ctx context.Context) (int, error) {
	now := s.clock.Now()
	archived := 0
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rows, err := s.repo.ListAll(ctx)
		if err != nil {
			return err
		}
		active := map[string][]domain.MinimumWage{}
		for _, w := range rows {
			if !w.IsScheduled(now) {
				active[w.Prefecture] = append(active[w.Prefecture], w)
			}
		}
		var history []domain.MinimumWageHistory
		var ids []uint
		for _, list := range active {
			if len(list) < 2 {
				continue
			}
			latest := list[0].EffectiveFrom
			for _, old := range list[1:] {
				history = append(history, old.Archive(latest, now))
				ids = append(ids, old.ID)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		if err := s.repo.CreateHistory(ctx, history); err != nil {
			return err
		}
		archived = len(ids)
		return s.repo.DeleteIDs(ctx, ids)
	})
	if err != nil {
		return 0, fmt.Errorf("promote minimum wages: %w", err)
	}
	if archived > 0 {
		s.logger.Info("minimum wages promoted", zap.Int("archived", archived))
	}
	return archived, nil
}

// Active returns the active wage for every prefecture that has one.
func (s *MinimumWageService) Active(ctx context.Context) ([]domain.MinimumWage, error) {
	if _, err := s.Promote(ctx); err != nil {
		s.logger.Warn("promote before read", zap.Error(err))
	}
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	seen := map[string]bool{}
	var out []domain.MinimumWage
	for _, w := range rows {
		if w.IsScheduled(now) || seen[w.Prefecture] {
			continue
		}
		seen[w.Prefecture] = true
		out = append(out, w)
	}
	return out, nil
}

// ActiveFor returns the active wage of one prefecture or ErrNotFound.
func (s *MinimumWageService) ActiveFor(ctx context.Context, prefecture string) (*domain.MinimumWage, error) {
	all, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Prefecture == prefecture {
			return &all[i], nil
		}
	}
	return nil, domain.NotFound("minimum wage")
}

// PrefectureWage is one row of the admin overview.
type PrefectureWage struct {
	Prefecture string              `json:"prefecture"`
	Active     *domain.MinimumWage `json:"active,omitempty"`
	Scheduled  *domain.MinimumWage `json:"scheduled,omitempty"`
}

// AdminView lists all 47 prefectures with their active and earliest scheduled wage.
func (s *MinimumWageService) AdminView(ctx context.Context) ([]PrefectureWage, error) {
	if _, err := s.Promote(ctx); err != nil {
		s.logger.Warn("promote before read", zap.Error(err))
	}
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	byPref := make(map[string]*PrefectureWage, len(domain.Prefectures))
	out := make([]PrefectureWage, len(domain.Prefectures))
	for i, p := range domain.Prefectures {
		out[i].Prefecture = p
		byPref[p] = &out[i]
	}
	for i := range rows {
		w := rows[i]
		entry, ok := byPref[w.Prefecture]
		if !ok {
			continue
		}
		if w.IsScheduled(now) {
			if entry.Scheduled == nil || w.EffectiveFrom.Before(entry.Scheduled.EffectiveFrom) {
				entry.Scheduled = &w
			}
		} else if entry.Active == nil {
			entry.Active = &w
		}
	}
	return out, nil
}

func (s *MinimumWageService) MissingPrefectures(ctx context.Context) ([]string, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	have := map[string]bool{}
	for _, w := range active {
		have[w.Prefecture] = true
	}
	var missing []string
	for _, p := range domain.Prefectures {
		if !have[p] {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

type WageUpsert struct {
	Prefecture    string `json:"prefecture" binding:"required"`
	HourlyWage    int    `json:"hourly_wage" binding:"required,gt=0"`
	EffectiveFrom string `json:"effective_from"`
}

func (s *MinimumWageService) Upsert(ctx context.Context, in WageUpsert, actor Actor) error {
	pref, ok := domain.NormalizePrefecture(in.Prefecture)
	if !ok {
		return domain.Validation("都道府県が不正です")
	}
	if in.HourlyWage <= 0 {
		return domain.Validation("時給が不正です")
	}
	effective := domain.StartOfDayJST(s.clock.Now())
	if in.EffectiveFrom != "" {
		d, err := domain.ParseJSTDate(in.EffectiveFrom)
		if err != nil {
			return domain.Validation("適用開始日が不正です")
		}
		effective = d
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.applyGroup(ctx, effective, []domain.WageRow{{Prefecture: pref, HourlyWage: in.HourlyWage}}, actor)
	})
}

// applyGroup writes rows sharing one effective date. Scheduled dates replace any pending
// schedule; immediate dates archive and overwrite the active row.
func (s *MinimumWageService) applyGroup(ctx context.Context, effective time.Time, rows []domain.WageRow, actor Actor) error {
	todayEnd := s.todayEnd()
	now := s.clock.Now()
	prefs := make([]string, len(rows))
	for i, r := range rows {
		prefs[i] = r.Prefecture
	}
	newRow := func(r domain.WageRow) *domain.MinimumWage {
		w := &domain.MinimumWage{
			Prefecture:    r.Prefecture,
			HourlyWage:    r.HourlyWage,
			EffectiveFrom: effective,
			UpdatedByType: string(actor.Type),
		}
		if actor.ID != 0 {
			w.UpdatedByID = uintPtr(actor.ID)
		}
		return w
	}

	if effective.After(todayEnd) {
		if err := s.repo.DeleteScheduled(ctx, prefs, todayEnd); err != nil {
			return err
		}
		for _, r := range rows {
			if err := s.repo.Create(ctx, newRow(r)); err != nil {
				return err
			}
		}
		return nil
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	active := map[string]domain.MinimumWage{}
	for _, w := range all {
		if w.EffectiveFrom.After(todayEnd) {
			continue
		}
		if _, ok := active[w.Prefecture]; !ok {
			active[w.Prefecture] = w
		}
	}
	var history []domain.MinimumWageHistory
	for _, p := range prefs {
		if w, ok := active[p]; ok {
			history = append(history, w.Archive(effective, now))
		}
	}
	if len(history) > 0 {
		if err := s.repo.CreateHistory(ctx, history); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if cur, ok := active[r.Prefecture]; ok {
			updated := newRow(r)
			updated.ID = cur.ID
			updated.CreatedAt = cur.CreatedAt
			if err := s.repo.Save(ctx, updated); err != nil {
				return err
			}
			continue
		}
		if err := s.repo.Create(ctx, newRow(r)); err != nil {
			return err
		}
	}
	return nil
}

type ImportResult struct {
	Imported int                  `json:"imported"`
	Errors   []domain.CSVRowError `json:"errors"`
}

// ErrNoValidRows is returned by Import when nothing in the file could be used.
var ErrNoValidRows = errors.New("有効なデータがありません")

// Import applies a CSV file. Rows without their own date use defaultEffectiveFrom.
func (s *MinimumWageService) Import(ctx context.Context, csv string, defaultEffectiveFrom time.Time, actor Actor) (*ImportResult, error) {
	rows, rowErrs := domain.ParseMinimumWageCSV(csv)
	res := &ImportResult{Errors: rowErrs}
	if res.Errors == nil {
		res.Errors = []domain.CSVRowError{}
	}
	if len(rows) == 0 {
		e := domain.NewError(domain.ErrValidation, "NO_VALID_ROWS", ErrNoValidRows.Error())
		e.Details = map[string]any{"errors": res.Errors}
		return res, e
	}

	defaultKey := domain.JSTDateString(defaultEffectiveFrom)
	groups := map[string][]domain.WageRow{}
	for _, r := range rows {
		key := r.EffectiveFrom
		if key == "" {
			key = defaultKey
		}
		groups[key] = append(groups[key], r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, k := range keys {
			effective, err := domain.ParseJSTDate(k)
			if err != nil {
				return err
			}
			if err := s.applyGroup(ctx, effective, groups[k], actor); err != nil {
				return fmt.Errorf("apply %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("import minimum wages: %w", err)
	}
	res.Imported = len(rows)
	s.logger.Info("minimum wages imported", zap.Int("rows", len(rows)), zap.Int("errors", len(rowErrs)),
		zap.Int("dates", len(keys)))
	return res, nil
}

// DeleteScheduled removes a future row. Active rows are never deleted.
func (s *MinimumWageService) DeleteScheduled(ctx context.Context, id uint) error {
	n, err := s.repo.DeleteIfScheduled(ctx, id, s.todayEnd())
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewError(domain.ErrInvalidState, "WAGE_NOT_SCHEDULED", "予定中の最低賃金のみ削除できます")
	}
	return nil
}

func (s *MinimumWageService) History(ctx context.Context, prefecture string, limit int) ([]domain.MinimumWageHistory, error) {
	if prefecture != "" {
		pref, ok := domain.NormalizePrefecture(prefecture)
		if !ok {
			return nil, domain.Validation("都道府県が不正です")
		}
		prefecture = pref
	}
	return s.repo.ListHistory(ctx, prefecture, clampLimit(limit, 100, 1000))
}

// ExportCSV writes the active table in the import format.
func (s *MinimumWageService) ExportCSV(ctx context.Context, withDate bool) (string, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return "", err
	}
	order := make(map[string]int, len(domain.Prefectures))
	for i, p := range domain.Prefectures {
		order[p] = i
	}
	sort.SliceStable(active, func(i, j int) bool { return order[active[i].Prefecture] < order[active[j].Prefecture] })
	return domain.FormatMinimumWageCSV(active, withDate)
}
