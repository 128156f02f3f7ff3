package domain

import "time"

type AttendanceMethod string

const (
	MethodQR            AttendanceMethod = "QR"
	MethodEmergencyCode AttendanceMethod = "EMERGENCY_CODE"
)

type CheckOutType string

const (
	CheckOutOnTime               CheckOutType = "ON_TIME"
	CheckOutModificationRequired CheckOutType = "MODIFICATION_REQUIRED"
)

type AttendanceStatus string

const (
	AttendanceCheckedIn  AttendanceStatus = "CHECKED_IN"
	AttendanceCheckedOut AttendanceStatus = "CHECKED_OUT"
)

type Attendance struct {
	ID              uint                           `gorm:"primaryKey" json:"id"`
	UserID          uint                           `gorm:"index;not null" json:"user_id"`
	User            *User                          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	FacilityID      uint                           `gorm:"index;not null" json:"facility_id"`
	Facility        *Facility                      `gorm:"foreignKey:FacilityID" json:"facility,omitempty"`
	ApplicationID   *uint                          `gorm:"index" json:"application_id,omitempty"`
	Application     *Application                   `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	JobID           *uint                          `json:"job_id,omitempty"`
	CheckInTime     time.Time                      `gorm:"not null" json:"check_in_time"`
	CheckOutTime    *time.Time                     `json:"check_out_time,omitempty"`
	CheckInLat      *float64                       `json:"check_in_lat,omitempty"`
	CheckInLng      *float64                       `json:"check_in_lng,omitempty"`
	CheckOutLat     *float64                       `json:"check_out_lat,omitempty"`
	CheckOutLng     *float64                       `json:"check_out_lng,omitempty"`
	CheckInMethod   AttendanceMethod               `gorm:"size:16;not null" json:"check_in_method"`
	CheckOutMethod  *AttendanceMethod              `gorm:"size:16" json:"check_out_method,omitempty"`
	CheckOutType    *CheckOutType                  `gorm:"size:24" json:"check_out_type,omitempty"`
	Status          AttendanceStatus               `gorm:"size:16;index;not null" json:"status"`
	IsLate          bool                           `json:"is_late"`
	ActualStartTime *time.Time                     `json:"actual_start_time,omitempty"`
	ActualEndTime   *time.Time                     `json:"actual_end_time,omitempty"`
	ActualBreakTime *int                           `json:"actual_break_time,omitempty"`
	CalculatedWage  *int                           `json:"calculated_wage,omitempty"`
	Modification    *AttendanceModificationRequest `gorm:"foreignKey:AttendanceID" json:"modification,omitempty"`
	CreatedAt       time.Time                      `json:"created_at"`
	UpdatedAt       time.Time                      `json:"updated_at"`
}

// UsedEmergencyCode reports whether either punch used the emergency code.
func (a *Attendance) UsedEmergencyCode() bool {
	if a.CheckInMethod == MethodEmergencyCode {
		return true
	}
	return a.CheckOutMethod != nil && *a.CheckOutMethod == MethodEmergencyCode
}

// RequiresModification decides whether a check-out must go through a modification request
// instead of being settled from the schedule.
func RequiresModification(isLate bool, checkIn AttendanceMethod, checkOut AttendanceMethod, t CheckOutType) bool {
	return isLate ||
		checkIn == MethodEmergencyCode ||
		checkOut == MethodEmergencyCode ||
		t == CheckOutModificationRequired
}

type ModificationStatus string

const (
	ModificationPending     ModificationStatus = "PENDING"
	ModificationApproved    ModificationStatus = "APPROVED"
	ModificationRejected    ModificationStatus = "REJECTED"
	ModificationResubmitted ModificationStatus = "RESUBMITTED"
)

// MaxResubmitCount caps how many times a rejected request may be resubmitted.
const MaxResubmitCount = 3

// IsReviewable reports whether the facility can still approve or reject.
func (s ModificationStatus) IsReviewable() bool {
	return s == ModificationPending || s == ModificationResubmitted
}

type AttendanceModificationRequest struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	AttendanceID       uint               `gorm:"uniqueIndex;not null" json:"attendance_id"`
	Attendance         *Attendance        `gorm:"foreignKey:AttendanceID" json:"attendance,omitempty"`
	RequestedStartTime time.Time          `gorm:"not null" json:"requested_start_time"`
	RequestedEndTime   time.Time          `gorm:"not null" json:"requested_end_time"`
	RequestedBreakTime int                `json:"requested_break_time"`
	WorkerComment      string             `gorm:"type:text;not null" json:"worker_comment"`
	Status             ModificationStatus `gorm:"size:16;index;not null" json:"status"`
	AdminComment       *string            `gorm:"type:text" json:"admin_comment,omitempty"`
	ReviewedBy         *uint              `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time         `json:"reviewed_at,omitempty"`
	OriginalAmount     int                `json:"original_amount"`
	RequestedAmount    int                `json:"requested_amount"`
	ResubmitCount      int                `gorm:"not null;default:0" json:"resubmit_count"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// CanResubmit reports whether a rejected request still has resubmissions left.
func (m *AttendanceModificationRequest) CanResubmit() bool {
	return m.Status == ModificationRejected && m.ResubmitCount < MaxResubmitCount
}
