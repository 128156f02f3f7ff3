package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

type Facility struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	Name                    string     `gorm:"size:255;not null" json:"name"`
	CorporationName         string     `gorm:"size:255" json:"corporation_name"`
	FacilityType            string     `gorm:"size:64" json:"facility_type"`
	Prefecture              string     `gorm:"size:16;index" json:"prefecture"`
	City                    string     `gorm:"size:64" json:"city"`
	Address                 string     `gorm:"size:255" json:"address"`
	Lat                     *float64   `json:"lat,omitempty"`
	Lng                     *float64   `json:"lng,omitempty"`
	Phone                   string     `gorm:"size:32" json:"phone"`
	StaffEmails             []string   `gorm:"serializer:json;type:text" json:"staff_emails"`
	InitialMessage          string     `gorm:"type:text" json:"initial_message"`
	QRSecretToken           *string    `gorm:"size:64" json:"-"`
	QRGeneratedAt           *time.Time `json:"qr_generated_at,omitempty"`
	EmergencyAttendanceCode *string    `gorm:"size:4;uniqueIndex" json:"emergency_attendance_code,omitempty"`
	Rating                  float64    `json:"rating"`
	ReviewCount             int        `json:"review_count"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// FacilityAdmin is a staff account that manages one facility.
type FacilityAdmin struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FacilityID   uint      `gorm:"index;not null" json:"facility_id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Name         string    `gorm:"size:128" json:"name"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var emergencyCodePattern = regexp.MustCompile(`^\d{4}$`)

func IsEmergencyCode(code string) bool {
	return emergencyCodePattern.MatchString(code)
}

// NewEmergencyCode returns a random 4-digit code, zero padded.
func NewEmergencyCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("random emergency code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// NewQRToken returns 32 random bytes, hex encoded.
func NewQRToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random qr token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// LastName returns the family name part of a "姓 名" style full name.
func LastName(fullName string) string {
	fields := strings.FieldsFunc(fullName, func(r rune) bool { return r == ' ' || r == '　' })
	if len(fields) == 0 {
		return fullName
	}
	return fields[0]
}

// RenderInitialMessage fills the facility greeting template sent on a worker's first match.
func RenderInitialMessage(template, workerName, facilityName string) string {
	r := strings.NewReplacer("[ワーカー名字]", LastName(workerName), "[施設名]", facilityName)
	return r.Replace(template)
}
