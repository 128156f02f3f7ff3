package domain

import "time"

// Message belongs to an application thread. A message with neither sender set is a system message.
type Message struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ApplicationID  uint       `gorm:"index;not null" json:"application_id"`
	JobID          *uint      `json:"job_id,omitempty"`
	FromUserID     *uint      `json:"from_user_id,omitempty"`
	FromFacilityID *uint      `json:"from_facility_id,omitempty"`
	ToUserID       *uint      `json:"to_user_id,omitempty"`
	ToFacilityID   *uint      `json:"to_facility_id,omitempty"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (m *Message) IsSystem() bool {
	return m.FromUserID == nil && m.FromFacilityID == nil
}
