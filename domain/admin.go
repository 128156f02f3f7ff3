package domain

import "time"

type SystemAdmin struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Name         string    `gorm:"size:128" json:"name"`
	Role         string    `gorm:"size:16;default:admin" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AccountType string

const (
	AccountWorker        AccountType = "WORKER"
	AccountFacilityAdmin AccountType = "FACILITY_ADMIN"
	AccountSystemAdmin   AccountType = "SYSTEM_ADMIN"
)

// Session is the server-side state behind an admin cookie.
type Session struct {
	ID          string      `json:"id"`
	AccountType AccountType `json:"account_type"`
	AccountID   uint        `json:"account_id"`
	FacilityID  uint        `json:"facility_id,omitempty"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

type PasswordResetToken struct {
	ID          uint        `gorm:"primaryKey"`
	Token       string      `gorm:"size:64;uniqueIndex;not null"`
	Email       string      `gorm:"size:255;index;not null"`
	AccountType AccountType `gorm:"size:16;not null"`
	ExpiresAt   time.Time   `gorm:"not null"`
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// Usable reports whether the token can still reset a password at now.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// SystemSetting is a key/value row edited from the admin console.
type SystemSetting struct {
	Key           string    `gorm:"primaryKey;size:64" json:"key"`
	Value         string    `gorm:"type:text" json:"value"`
	Description   string    `gorm:"size:255" json:"description,omitempty"`
	UpdatedByType string    `gorm:"size:16" json:"updated_by_type,omitempty"`
	UpdatedByID   *uint     `json:"updated_by_id,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Well-known setting keys.
const (
	SettingDebugTime        = "debug_time"
	SettingAppURL           = "app_url"
	SettingAdminAlertEmails = "admin_alert_emails"
)

type ActivityLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ActorType    string    `gorm:"size:16;index" json:"actor_type"`
	ActorID      *uint     `json:"actor_id,omitempty"`
	ActorEmail   string    `gorm:"size:255" json:"actor_email,omitempty"`
	Action       string    `gorm:"size:64;index;not null" json:"action"`
	TargetType   string    `gorm:"size:32" json:"target_type,omitempty"`
	TargetID     *uint     `json:"target_id,omitempty"`
	RequestData  string    `gorm:"type:text" json:"request_data,omitempty"`
	Result       string    `gorm:"size:16" json:"result"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
