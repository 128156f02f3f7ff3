package application

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

const (
	lpErrNoHTML     = "HTMLファイルなし"
	lpErrScanFailed = "スキャン失敗"
)

// TagCheckResult is one LP's line in a CheckTags response. Checks is nil when the page could not be scanned.
type TagCheckResult struct {
	LPNumber int               `json:"lpNumber"`
	Name     string            `json:"name"`
	Checks   *domain.TagChecks `json:"checks"`
	Error    string            `json:"error,omitempty"`
}

type LandingPageInput struct {
	LPNumber    int    `json:"lp_number" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=255"`
	IsPublished bool   `json:"is_published"`
}

type LandingPageUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	IsPublished *bool   `json:"is_published"`
}

type LandingPageService struct {
	repo    LandingPageRepository
	fetcher LPAssetFetcher
	clock   domain.Clock
	logger  *zap.Logger
}

func NewLandingPageService(repo LandingPageRepository, fetcher LPAssetFetcher, clock domain.Clock, logger *zap.Logger) *LandingPageService {
	return &LandingPageService{repo: repo, fetcher: fetcher, clock: clock, logger: logger}
}

func (s *LandingPageService) List(ctx context.Context) ([]domain.LandingPage, error) {
	return s.repo.List(ctx, nil)
}

func (s *LandingPageService) Get(ctx context.Context, lpNumber int) (*domain.LandingPage, error) {
	return s.repo.GetByNumber(ctx, lpNumber)
}

func (s *LandingPageService) Create(ctx context.Context, in LandingPageInput) (*domain.LandingPage, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.repo.GetByNumber(ctx, in.LPNumber); err == nil {
		return nil, domain.Conflict("LP_EXISTS", fmt.Sprintf("LP %d は既に登録されています", in.LPNumber))
	}
	lp := &domain.LandingPage{LPNumber: in.LPNumber, Name: in.Name, IsPublished: in.IsPublished}
	if err := s.repo.Create(ctx, lp); err != nil {
		return nil, fmt.Errorf("create landing page: %w", err)
	}
	return lp, nil
}

// Update renames an LP or toggles its published flag.
func (s *LandingPageService) Update(ctx context.Context, lpNumber int, in LandingPageUpdate) (*domain.LandingPage, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	lp, err := s.repo.GetByNumber(ctx, lpNumber)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		lp.Name = strings.TrimSpace(*in.Name)
	}
	if in.IsPublished != nil {
		lp.IsPublished = *in.IsPublished
	}
	if err := s.repo.Save(ctx, lp); err != nil {
		return nil, fmt.Errorf("update landing page: %w", err)
	}
	return lp, nil
}

// CheckTags scans the published HTML of the given LPs, or of every LP when numbers is empty,
// and stores the detected tag flags.
func (s *LandingPageService) CheckTags(ctx context.Context, numbers []int) ([]TagCheckResult, error) {
	if len(numbers) > domain.MaxTagCheckBatch {
		return nil, domain.Validation("無効なlpNumbersです")
	}
	if s.fetcher == nil {
		return nil, domain.ErrUnavailable
	}
	lps, err := s.repo.List(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("list landing pages: %w", err)
	}
	results := make([]TagCheckResult, 0, len(lps))
	for i := range lps {
		lp := &lps[i]
		r := TagCheckResult{LPNumber: lp.LPNumber, Name: lp.Name}
		html, err := s.fetcher.FetchIndexHTML(ctx, lp.LPNumber)
		if err != nil {
			s.logger.Info("lp html unavailable", zap.Int("lp_number", lp.LPNumber), zap.Error(err))
			r.Error = lpErrNoHTML
			results = append(results, r)
			continue
		}
		checks := domain.ScanHTMLForTags(html)
		now := s.clock.Now()
		lp.HasGTM, lp.HasLineTag, lp.HasTracking = checks.HasGTM, checks.HasLineTag, checks.HasTracking
		lp.TagsCheckedAt = &now
		if err := s.repo.Save(ctx, lp); err != nil {
			s.logger.Error("save lp tag flags", zap.Int("lp_number", lp.LPNumber), zap.Error(err))
			r.Error = lpErrScanFailed
			results = append(results, r)
			continue
		}
		r.Checks = &checks
		results = append(results, r)
	}
	return results, nil
}

// TrackEvent stores one beacon from the public LP tracking script.
func (s *LandingPageService) TrackEvent(ctx context.Context, e domain.LPTrackingEvent) error {
	if e.LPNumber <= 0 {
		return domain.Validation("lp_number is required")
	}
	if !domain.IsTrackingEventType(e.EventType) {
		return domain.Validation("Invalid event type")
	}
	e.ID = 0
	e.Clamp()
	if len(e.UserAgent) > 255 {
		e.UserAgent = e.UserAgent[:255]
	}
	if err := s.repo.CreateEvent(ctx, &e); err != nil {
		return fmt.Errorf("record lp event: %w", err)
	}
	return nil
}
