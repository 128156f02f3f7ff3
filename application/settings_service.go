package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"shiftmatch/domain"
)

const (
	settingsCacheSize = 128
	settingsCacheTTL  = time.Minute
)

type cachedSetting struct {
	value string
	ok    bool
}

// SettingsService reads and writes system settings through a short-lived cache.
type SettingsService struct {
	repo       SystemSettingRepository
	cache      *expirable.LRU[string, cachedSetting]
	production bool
	logger     *zap.Logger
}

func NewSettingsService(repo SystemSettingRepository, production bool, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		repo:       repo,
		cache:      expirable.NewLRU[string, cachedSetting](settingsCacheSize, nil, settingsCacheTTL),
		production: production,
		logger:     logger,
	}
}

// Get returns the value and whether the key exists.
func (s *SettingsService) Get(ctx context.Context, key string) (string, bool, error) {
	if c, ok := s.cache.Get(key); ok {
		return c.value, c.ok, nil
	}
	row, err := s.repo.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		s.cache.Add(key, cachedSetting{})
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	s.cache.Add(key, cachedSetting{value: row.Value, ok: true})
	return row.Value, true, nil
}

func (s *SettingsService) GetBool(ctx context.Context, key string, def bool) bool {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func (s *SettingsService) GetNumber(ctx context.Context, key string, def float64) float64 {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

func (s *SettingsService) GetAll(ctx context.Context) ([]domain.SystemSetting, error) {
	return s.repo.List(ctx)
}

func (s *SettingsService) Update(ctx context.Context, key, value string, actor Actor) error {
	return s.BulkUpdate(ctx, map[string]string{key: value}, actor)
}

func (s *SettingsService) BulkUpdate(ctx context.Context, values map[string]string, actor Actor) error {
	for key, value := range values {
		if strings.TrimSpace(key) == "" {
			return domain.Validation("setting key is required")
		}
		if key == domain.SettingDebugTime && value != "" {
			if _, err := time.Parse(time.RFC3339, value); err != nil {
				return domain.Validation("debug_time must be RFC3339")
			}
		}
		row := &domain.SystemSetting{
			Key:           key,
			Value:         value,
			UpdatedByType: string(actor.Type),
		}
		if actor.ID != 0 {
			row.UpdatedByID = uintPtr(actor.ID)
		}
		if err := s.repo.Upsert(ctx, row); err != nil {
			return fmt.Errorf("update setting %s: %w", key, err)
		}
		s.cache.Remove(key)
	}
	return nil
}

// AdminAlertEmails returns the comma separated alert recipients.
func (s *SettingsService) AdminAlertEmails(ctx context.Context) []string {
	if s == nil {
		return nil
	}
	v, _, err := s.Get(ctx, domain.SettingAdminAlertEmails)
	if err != nil {
		s.logger.Warn("read admin alert emails", zap.Error(err))
		return nil
	}
	var out []string
	for _, e := range strings.Split(v, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Clock returns a clock that honours the debug_time setting outside production.
func (s *SettingsService) Clock() domain.Clock {
	return debugClock{s: s}
}

type debugClock struct{ s *SettingsService }

func (c debugClock) Now() time.Time {
	if c.s.production {
		return time.Now()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, ok, err := c.s.Get(ctx, domain.SettingDebugTime)
	if err != nil || !ok || v == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Now()
	}
	return t
}
