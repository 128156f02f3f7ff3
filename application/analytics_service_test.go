package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftmatch/application"
	"shiftmatch/domain"
)

type recordingForecaster struct {
	got domain.ForecastInput
}

func (f *recordingForecaster) Forecast(_ context.Context, in domain.ForecastInput) (*domain.Forecast, error) {
	f.got = in
	return &domain.Forecast{PredictedMatches: 42, Confidence: 0.7, Model: "test-model"}, nil
}

func TestAnalytics_SummaryDefaultsToLast30Days(t *testing.T) {
	e := newEnv(t, "2026-05-15 10:00")
	svc := application.NewAnalyticsService(e.repos.Analytics, nil, e.clock, e.logger)

	m, err := svc.Summary(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.True(t, jstAt(t, "2026-05-16 00:00").Equal(m.To))
	assert.True(t, jstAt(t, "2026-04-16 00:00").Equal(m.From))

	_, err = svc.Summary(context.Background(), m.To, m.From)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAnalytics_ForecastSendsSixMonths(t *testing.T) {
	e := newEnv(t, "2026-05-15 10:00")
	f := &recordingForecaster{}
	svc := application.NewAnalyticsService(e.repos.Analytics, f, e.clock, e.logger)
	ctx := context.Background()

	_, err := svc.Forecast(ctx, domain.ForecastInput{TargetMonth: "2026/06"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	out, err := svc.Forecast(ctx, domain.ForecastInput{TargetMonth: "2026-06", AdBudgetYen: 500000})
	require.NoError(t, err)
	assert.Equal(t, "test-model", out.Model)
	require.Len(t, f.got.History, 6)
	assert.True(t, jstAt(t, "2025-11-01 00:00").Equal(f.got.History[0].From))
	assert.True(t, jstAt(t, "2026-05-01 00:00").Equal(f.got.History[5].To))

	_, err = application.NewAnalyticsService(e.repos.Analytics, nil, e.clock, e.logger).Forecast(ctx, domain.ForecastInput{TargetMonth: "2026-06"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
