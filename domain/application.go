package domain

import "time"

type ApplicationStatus string

const (
	StatusApplied          ApplicationStatus = "APPLIED"
	StatusScheduled        ApplicationStatus = "SCHEDULED"
	StatusWorking          ApplicationStatus = "WORKING"
	StatusCompletedPending ApplicationStatus = "COMPLETED_PENDING"
	StatusCompletedRated   ApplicationStatus = "COMPLETED_RATED"
	StatusCancelled        ApplicationStatus = "CANCELLED"
)

type CancelledBy string

const (
	CancelledByWorker   CancelledBy = "WORKER"
	CancelledByFacility CancelledBy = "FACILITY"
)

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "PENDING"
	ReviewCompleted ReviewStatus = "COMPLETED"
)

// Application links a worker to one work date of a job.
type Application struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	WorkDateID           uint              `gorm:"uniqueIndex:idx_application_user_date;not null" json:"work_date_id"`
	WorkDate             *JobWorkDate      `gorm:"foreignKey:WorkDateID" json:"work_date,omitempty"`
	UserID               uint              `gorm:"uniqueIndex:idx_application_user_date;index;not null" json:"user_id"`
	User                 *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status               ApplicationStatus `gorm:"size:24;index;not null" json:"status"`
	CancelledBy          *CancelledBy      `gorm:"size:16" json:"cancelled_by,omitempty"`
	WorkerReviewStatus   ReviewStatus      `gorm:"size:16;not null;default:PENDING" json:"worker_review_status"`
	FacilityReviewStatus ReviewStatus      `gorm:"size:16;not null;default:PENDING" json:"facility_review_status"`
	IsViewed             bool              `json:"is_viewed"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// Job returns the job through the preloaded work date, or nil.
func (a *Application) Job() *Job {
	if a.WorkDate == nil {
		return nil
	}
	return a.WorkDate.Job
}

// FacilityID returns the owning facility id through the preloaded job, or 0.
func (a *Application) FacilityID() uint {
	if j := a.Job(); j != nil {
		return j.FacilityID
	}
	return 0
}

// Period returns the scheduled shift of the application.
func (a *Application) Period() (time.Time, time.Time, error) {
	job := a.Job()
	if job == nil {
		return time.Time{}, time.Time{}, NotFound("job")
	}
	return a.WorkDate.Period(job)
}

var facilityTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusApplied:          {StatusScheduled, StatusCancelled},
	StatusScheduled:        {StatusApplied, StatusWorking, StatusCompletedPending, StatusCancelled},
	StatusWorking:          {StatusCompletedPending, StatusCancelled},
	StatusCompletedPending: {StatusCompletedRated},
}

// CanTransition reports whether a facility may move an application from its current status to next.
func (a *Application) CanTransition(next ApplicationStatus) bool {
	for _, s := range facilityTransitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// IsActive reports whether the application still occupies a slot or an applicant position.
func (s ApplicationStatus) IsActive() bool {
	return s != StatusCancelled
}

// IsMatched covers every status from SCHEDULED onward.
func (s ApplicationStatus) IsMatched() bool {
	switch s {
	case StatusScheduled, StatusWorking, StatusCompletedPending, StatusCompletedRated:
		return true
	}
	return false
}

// CounterDelta is the change to a work date's applied/matched counters caused by a status change.
type CounterDelta struct {
	Applied int
	Matched int
}

// TransitionDelta computes counter changes for a facility-driven status change.
func TransitionDelta(from, to ApplicationStatus) CounterDelta {
	var d CounterDelta
	switch {
	case from == StatusApplied && to == StatusScheduled:
		d.Matched = 1
	case from.IsMatched() && (to == StatusApplied || to == StatusCancelled):
		d.Matched = -1
	}
	if to == StatusCancelled && from != StatusCancelled {
		d.Applied = -1
	}
	return d
}
