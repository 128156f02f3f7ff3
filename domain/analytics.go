package domain

import "time"

// MetricsSummary aggregates marketplace activity for a period.
type MetricsSummary struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	NewWorkers        int64     `json:"new_workers"`
	NewFacilities     int64     `json:"new_facilities"`
	PublishedJobs     int64     `json:"published_jobs"`
	Applications      int64     `json:"applications"`
	Matches           int64     `json:"matches"`
	WorkerCancels     int64     `json:"worker_cancels"`
	FacilityCancels   int64     `json:"facility_cancels"`
	CompletedShifts   int64     `json:"completed_shifts"`
	MatchingRate      float64   `json:"matching_rate"`
	AvgFacilityRating float64   `json:"avg_facility_rating"`
}

// ComputeRates fills the derived ratios.
func (m *MetricsSummary) ComputeRates() {
	if m.Applications > 0 {
		m.MatchingRate = float64(m.Matches) / float64(m.Applications)
	}
}

// ForecastInput carries the operator's planned inputs for the prediction.
type ForecastInput struct {
	TargetMonth       string           `json:"target_month" binding:"required"`
	AdBudgetYen       int              `json:"ad_budget_yen"`
	PlannedFacilities int              `json:"planned_facilities"`
	PlannedJobs       int              `json:"planned_jobs"`
	Notes             string           `json:"notes"`
	History           []MetricsSummary `json:"-"`
}

// Forecast is the model's structured answer.
type Forecast struct {
	PredictedFacilities float64 `json:"predicted_facilities"`
	PredictedJobs       float64 `json:"predicted_jobs"`
	PredictedWorkers    float64 `json:"predicted_workers"`
	PredictedMatches    float64 `json:"predicted_matches"`
	MatchingPeriodHours float64 `json:"matching_period_hours"`
	Confidence          float64 `json:"confidence"`
	Summary             string  `json:"summary"`
	Model               string  `json:"model"`
}
