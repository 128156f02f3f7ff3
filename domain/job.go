package domain

import "time"

type JobStatus string

const (
	JobDraft     JobStatus = "DRAFT"
	JobPublished JobStatus = "PUBLISHED"
	JobWorking   JobStatus = "WORKING"
	JobStopped   JobStatus = "STOPPED"
	JobCompleted JobStatus = "COMPLETED"
)

type JobType string

const (
	JobTypeNormal          JobType = "NORMAL"
	JobTypeLimitedWorked   JobType = "LIMITED_WORKED"
	JobTypeLimitedFavorite JobType = "LIMITED_FAVORITE"
	JobTypeOffer           JobType = "OFFER"
)

func (t JobType) IsLimited() bool {
	return t == JobTypeLimitedWorked || t == JobTypeLimitedFavorite
}

// Job is a posting made by a facility. Shift times are HH:MM strings shared by every work date.
type Job struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	FacilityID         uint          `gorm:"index;not null" json:"facility_id"`
	Facility           *Facility     `gorm:"foreignKey:FacilityID" json:"facility,omitempty"`
	Status             JobStatus     `gorm:"size:16;index;not null;default:DRAFT" json:"status"`
	JobType            JobType       `gorm:"size:24;not null;default:NORMAL" json:"job_type"`
	Title              string        `gorm:"size:255;not null" json:"title"`
	Overview           string        `gorm:"type:text" json:"overview"`
	StartTime          string        `gorm:"size:5;not null" json:"start_time"`
	EndTime            string        `gorm:"size:5;not null" json:"end_time"`
	BreakMinutes       int           `json:"break_minutes"`
	HourlyWage         int           `gorm:"not null" json:"hourly_wage"`
	TransportationFee  int           `json:"transportation_fee"`
	Wage               int           `json:"wage"`
	RecruitmentCount   int           `gorm:"not null;default:1" json:"recruitment_count"`
	Prefecture         string        `gorm:"size:16" json:"prefecture"`
	City               string        `gorm:"size:64" json:"city"`
	Address            string        `gorm:"size:255" json:"address"`
	RequiresInterview  bool          `json:"requires_interview"`
	DeadlineDaysBefore int           `json:"deadline_days_before"`
	SwitchToNormalDays *int          `json:"switch_to_normal_days_before,omitempty"`
	TargetWorkerID     *uint         `json:"target_worker_id,omitempty"`
	OfferExpiresAt     *time.Time    `json:"offer_expires_at,omitempty"`
	ParentJobID        *uint         `gorm:"index" json:"parent_job_id,omitempty"`
	WorkDates          []JobWorkDate `gorm:"foreignKey:JobID" json:"work_dates,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// JobWorkDate is a single shift date of a job with its own capacity counters.
type JobWorkDate struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	JobID            uint      `gorm:"index;not null" json:"job_id"`
	Job              *Job      `gorm:"foreignKey:JobID" json:"job,omitempty"`
	WorkDate         time.Time `gorm:"index;not null" json:"work_date"`
	Deadline         time.Time `json:"deadline"`
	RecruitmentCount int       `gorm:"not null;default:1" json:"recruitment_count"`
	AppliedCount     int       `gorm:"not null;default:0" json:"applied_count"`
	MatchedCount     int       `gorm:"not null;default:0" json:"matched_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (w JobWorkDate) IsFull() bool {
	return w.MatchedCount >= w.RecruitmentCount
}

// Period returns the scheduled shift for this date.
func (w JobWorkDate) Period(job *Job) (time.Time, time.Time, error) {
	return ShiftPeriod(w.WorkDate, job.StartTime, job.EndTime)
}

// DailyWage recomputes the job's per-shift pay including transportation.
func (j *Job) DailyWage() (int, error) {
	start, end, err := ShiftPeriod(time.Date(2000, 1, 1, 0, 0, 0, 0, JST), j.StartTime, j.EndTime)
	if err != nil {
		return 0, err
	}
	return ShiftPay(start, end, j.BreakMinutes, j.HourlyWage, j.TransportationFee), nil
}

// DeadlineFor returns the application deadline for a work date: the end of the day
// DeadlineDaysBefore days earlier.
func (j *Job) DeadlineFor(workDate time.Time) time.Time {
	d := StartOfDayJST(workDate).AddDate(0, 0, -j.DeadlineDaysBefore+1)
	return d.Add(-time.Second)
}
