package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

// forecastHistoryMonths is how many past calendar months are sent with a forecast request.
const forecastHistoryMonths = 6

type AnalyticsService struct {
	repo       AnalyticsRepository
	forecaster Forecaster
	clock      domain.Clock
	logger     *zap.Logger
}

func NewAnalyticsService(repo AnalyticsRepository, forecaster Forecaster, clock domain.Clock, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{repo: repo, forecaster: forecaster, clock: clock, logger: logger}
}

// Summary aggregates platform counters for [from, to). Zero bounds default to the last 30 days.
func (s *AnalyticsService) Summary(ctx context.Context, from, to time.Time) (*domain.MetricsSummary, error) {
	if to.IsZero() {
		to = domain.StartOfDayJST(s.clock.Now()).AddDate(0, 0, 1)
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return nil, domain.Validation("期間の指定が不正です")
	}
	m, err := s.repo.Summarize(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("summarize metrics: %w", err)
	}
	m.From, m.To = from, to
	m.ComputeRates()
	return &m, nil
}

// Forecast asks the model for next-month predictions, grounded on the last six months.
func (s *AnalyticsService) Forecast(ctx context.Context, in domain.ForecastInput) (*domain.Forecast, error) {
	if s.forecaster == nil {
		return nil, domain.ErrUnavailable
	}
	if _, err := time.ParseInLocation("2006-01", in.TargetMonth, domain.JST); err != nil {
		return nil, domain.Validation("対象月は YYYY-MM 形式で指定してください")
	}
	if in.AdBudgetYen < 0 || in.PlannedFacilities < 0 || in.PlannedJobs < 0 {
		return nil, domain.Validation("計画値は0以上で指定してください")
	}
	history, err := s.monthlyHistory(ctx)
	if err != nil {
		return nil, err
	}
	in.History = history
	f, err := s.forecaster.Forecast(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	s.logger.Info("forecast generated", zap.String("target_month", in.TargetMonth), zap.String("model", f.Model),
		zap.Float64("confidence", f.Confidence))
	return f, nil
}

func (s *AnalyticsService) monthlyHistory(ctx context.Context) ([]domain.MetricsSummary, error) {
	now := s.clock.Now().In(domain.JST)
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, domain.JST)
	out := make([]domain.MetricsSummary, 0, forecastHistoryMonths)
	for i := forecastHistoryMonths; i >= 1; i-- {
		from := thisMonth.AddDate(0, -i, 0)
		to := from.AddDate(0, 1, 0)
		m, err := s.repo.Summarize(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", from.Format("2006-01"), err)
		}
		m.From, m.To = from, to
		m.ComputeRates()
		out = append(out, m)
	}
	return out, nil
}
