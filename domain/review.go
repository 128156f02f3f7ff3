package domain

import (
	"math"
	"strings"
	"time"
)

type ReviewerType string

const (
	ReviewerWorker   ReviewerType = "WORKER"
	ReviewerFacility ReviewerType = "FACILITY"
)

const (
	lowRatingThreshold = 2
	lowRatingStreak    = 3
)

type Review struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	FacilityID    uint         `gorm:"index;not null" json:"facility_id"`
	UserID        uint         `gorm:"index;not null" json:"user_id"`
	JobID         uint         `gorm:"index;not null" json:"job_id"`
	WorkDateID    *uint        `json:"work_date_id,omitempty"`
	ApplicationID *uint        `gorm:"index" json:"application_id,omitempty"`
	ReviewerType  ReviewerType `gorm:"size:16;not null" json:"reviewer_type"`
	Rating        int          `gorm:"not null" json:"rating"`
	GoodPoints    string       `gorm:"type:text" json:"good_points"`
	Improvements  string       `gorm:"type:text" json:"improvements"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ValidateReviewInput checks rating range and required comments.
func ValidateReviewInput(rating int, goodPoints, improvements string) error {
	if rating < 1 || rating > 5 {
		return Validation("評価は1〜5の範囲で入力してください")
	}
	if strings.TrimSpace(goodPoints) == "" || strings.TrimSpace(improvements) == "" {
		return Validation("良かった点と改善点を入力してください")
	}
	return nil
}

// AverageRating returns the mean rounded to one decimal.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return math.Round(float64(sum)/float64(len(ratings))*10) / 10
}

// IsLowRatingStreak reports whether the latest ratings (newest first) are all at or below the
// low threshold for a full streak.
func IsLowRatingStreak(latestFirst []int) bool {
	if len(latestFirst) < lowRatingStreak {
		return false
	}
	for _, r := range latestFirst[:lowRatingStreak] {
		if r > lowRatingThreshold {
			return false
		}
	}
	return true
}

// LowRatingStreakLength is how many recent reviews are inspected for the streak alert.
func LowRatingStreakLength() int { return lowRatingStreak }

// IsHighCancelRate flags workers whose own cancellations reach 20% of settled applications,
// once at least five are settled.
func IsHighCancelRate(workerCancels, settled int64) bool {
	if settled < 5 {
		return false
	}
	return float64(workerCancels)/float64(settled) >= 0.2
}
