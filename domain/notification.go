package domain

import (
	"regexp"
	"time"
)

type TargetType string

const (
	TargetWorker      TargetType = "WORKER"
	TargetFacility    TargetType = "FACILITY"
	TargetSystemAdmin TargetType = "SYSTEM_ADMIN"
)

type NotificationChannel string

const (
	ChannelChat  NotificationChannel = "CHAT"
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelPush  NotificationChannel = "PUSH"
)

type NotificationLogStatus string

const (
	LogPending NotificationLogStatus = "PENDING"
	LogSent    NotificationLogStatus = "SENT"
	LogFailed  NotificationLogStatus = "FAILED"
	LogSkipped NotificationLogStatus = "SKIPPED"
)

// Notification keys.
const (
	KeyWorkerMatched             = "WORKER_MATCHED"
	KeyWorkerCancelledByFacility = "WORKER_CANCELLED_BY_FACILITY"
	KeyWorkerInterviewRejected   = "WORKER_INTERVIEW_REJECTED"
	KeyWorkerReviewRequest       = "WORKER_REVIEW_REQUEST"
	KeyWorkerReviewReceived      = "WORKER_REVIEW_RECEIVED"
	KeyWorkerNewMessage          = "WORKER_NEW_MESSAGE"
	KeyWorkerReminderDayBefore   = "WORKER_REMINDER_DAY_BEFORE"
	KeyWorkerReminderSameDay     = "WORKER_REMINDER_SAME_DAY"

	KeyFacilityNewApplication    = "FACILITY_NEW_APPLICATION"
	KeyFacilitySlotsFilled       = "FACILITY_SLOTS_FILLED"
	KeyFacilityReviewRequest     = "FACILITY_REVIEW_REQUEST"
	KeyFacilityReviewReceived    = "FACILITY_REVIEW_RECEIVED"
	KeyFacilityNewMessage        = "FACILITY_NEW_MESSAGE"
	KeyFacilityCancelledByWorker = "FACILITY_CANCELLED_BY_WORKER"
	KeyFacilityReminderDayBefore = "FACILITY_REMINDER_DAY_BEFORE"

	KeyModificationRequested = "ATTENDANCE_MODIFICATION_REQUESTED"
	KeyModificationApproved  = "ATTENDANCE_MODIFICATION_APPROVED"
	KeyModificationRejected  = "ATTENDANCE_MODIFICATION_REJECTED"

	KeyAdminNewWorker       = "ADMIN_NEW_WORKER"
	KeyAdminNewFacility     = "ADMIN_NEW_FACILITY"
	KeyAdminHighCancelRate  = "ADMIN_HIGH_CANCEL_RATE"
	KeyAdminLowRatingStreak = "ADMIN_LOW_RATING_STREAK"
	KeyPasswordReset        = "PASSWORD_RESET"
)

// NotificationSetting holds per-key channel switches and templates edited by system admins.
type NotificationSetting struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	NotificationKey string     `gorm:"size:64;uniqueIndex;not null" json:"notification_key"`
	Name            string     `gorm:"size:128" json:"name"`
	Description     string     `gorm:"size:255" json:"description"`
	TargetType      TargetType `gorm:"size:16;not null" json:"target_type"`
	ChatEnabled     bool       `json:"chat_enabled"`
	EmailEnabled    bool       `json:"email_enabled"`
	PushEnabled     bool       `json:"push_enabled"`
	ChatMessage     *string    `gorm:"type:text" json:"chat_message"`
	EmailSubject    *string    `gorm:"size:255" json:"email_subject"`
	EmailBody       *string    `gorm:"type:text" json:"email_body"`
	PushTitle       *string    `gorm:"size:255" json:"push_title"`
	PushBody        *string    `gorm:"size:255" json:"push_body"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NotificationLog records every delivery attempt on every channel.
type NotificationLog struct {
	ID                uint                  `gorm:"primaryKey" json:"id"`
	NotificationKey   string                `gorm:"size:64;index;not null" json:"notification_key"`
	Channel           NotificationChannel   `gorm:"size:8;index;not null" json:"channel"`
	TargetType        TargetType            `gorm:"size:16;not null" json:"target_type"`
	RecipientID       uint                  `gorm:"index" json:"recipient_id"`
	RecipientName     string                `gorm:"size:255" json:"recipient_name"`
	RecipientEmail    string                `gorm:"size:255" json:"recipient_email,omitempty"`
	ToAddresses       []string              `gorm:"serializer:json;type:text" json:"to_addresses,omitempty"`
	Subject           string                `gorm:"size:255" json:"subject,omitempty"`
	Body              string                `gorm:"type:text" json:"body,omitempty"`
	PushTitle         string                `gorm:"size:255" json:"push_title,omitempty"`
	PushBody          string                `gorm:"size:255" json:"push_body,omitempty"`
	ChatApplicationID *uint                 `json:"chat_application_id,omitempty"`
	ChatMessage       string                `gorm:"type:text" json:"chat_message,omitempty"`
	Status            NotificationLogStatus `gorm:"size:8;index;not null" json:"status"`
	ErrorMessage      string                `gorm:"type:text" json:"error_message,omitempty"`
	SentAt            *time.Time            `json:"sent_at,omitempty"`
	CreatedAt         time.Time             `gorm:"index" json:"created_at"`
}

// Notification is an in-app notice shown to a worker or a facility.
type Notification struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TargetType TargetType `gorm:"size:16;not null" json:"target_type"`
	UserID     *uint      `gorm:"index" json:"user_id,omitempty"`
	FacilityID *uint      `gorm:"index" json:"facility_id,omitempty"`
	Type       string     `gorm:"size:64" json:"type"`
	Title      string     `gorm:"size:255" json:"title"`
	Message    string     `gorm:"type:text" json:"message"`
	Link       string     `gorm:"size:255" json:"link,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NotificationJob is the queue message that asks the dispatcher to deliver a pending log.
type NotificationJob struct {
	NotificationLogID uint `json:"notification_log_id"`
}

var templateVar = regexp.MustCompile(`\{\{(\w+)\}\}`)

// RenderTemplate replaces {{name}} placeholders. Unknown names are left as-is.
func RenderTemplate(tmpl string, vars map[string]string) string {
	return templateVar.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := templateVar.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
