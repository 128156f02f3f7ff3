package domain

import (
	"regexp"
	"time"
)

type LandingPage struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	LPNumber      int        `gorm:"uniqueIndex;not null" json:"lp_number"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	IsPublished   bool       `json:"is_published"`
	HasGTM        bool       `json:"has_gtm"`
	HasLineTag    bool       `json:"has_line_tag"`
	HasTracking   bool       `json:"has_tracking"`
	TagsCheckedAt *time.Time `json:"tags_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TagChecks is the outcome of scanning one LP's HTML.
type TagChecks struct {
	HasGTM      bool `json:"has_gtm"`
	HasLineTag  bool `json:"has_line_tag"`
	HasTracking bool `json:"has_tracking"`
}

var (
	gtmPattern      = regexp.MustCompile(`(?i)googletagmanager\.com/gtm\.js|\bGTM-[A-Z0-9]{4,}\b`)
	lineTagPattern  = regexp.MustCompile(`(?i)tr\.line\.me|\b_lt\(`)
	trackingPattern = regexp.MustCompile(`(?i)/lp/tracking\.js`)
)

// ScanHTMLForTags looks for the GTM container, the LINE tag and our own tracking script.
func ScanHTMLForTags(html string) TagChecks {
	return TagChecks{
		HasGTM:      gtmPattern.MatchString(html),
		HasLineTag:  lineTagPattern.MatchString(html),
		HasTracking: trackingPattern.MatchString(html),
	}
}

// MaxTagCheckBatch bounds one CheckTags request.
const MaxTagCheckBatch = 100

var trackingEventTypes = map[string]bool{
	"page_view": true, "scroll": true, "dwell": true, "cta_click": true, "section_dwell": true,
}

func IsTrackingEventType(t string) bool { return trackingEventTypes[t] }

const (
	maxDwellSeconds = 300
	maxScrollDepth  = 100
)

type LPTrackingEvent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LPNumber     int       `gorm:"index;not null" json:"lp_number"`
	SessionID    string    `gorm:"size:64;index" json:"session_id"`
	EventType    string    `gorm:"size:24;not null" json:"event_type"`
	SectionID    string    `gorm:"size:64" json:"section_id,omitempty"`
	ButtonID     string    `gorm:"size:64" json:"button_id,omitempty"`
	ScrollDepth  *int      `json:"scroll_depth,omitempty"`
	DwellSeconds *int      `json:"dwell_seconds,omitempty"`
	CampaignCode string    `gorm:"size:64;index" json:"campaign_code,omitempty"`
	UTMSource    string    `gorm:"size:64" json:"utm_source,omitempty"`
	UTMMedium    string    `gorm:"size:64" json:"utm_medium,omitempty"`
	UTMCampaign  string    `gorm:"size:128" json:"utm_campaign,omitempty"`
	UserAgent    string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// Clamp bounds dwell to five minutes and scroll depth to 0..100.
func (e *LPTrackingEvent) Clamp() {
	if e.DwellSeconds != nil {
		v := min(max(*e.DwellSeconds, 0), maxDwellSeconds)
		e.DwellSeconds = &v
	}
	if e.ScrollDepth != nil {
		v := min(max(*e.ScrollDepth, 0), maxScrollDepth)
		e.ScrollDepth = &v
	}
}
