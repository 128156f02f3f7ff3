package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanHTMLForTags(t *testing.T) {
	html := `<html><head>
<script>(function(w,d,s,l,i){j.src='https://www.googletagmanager.com/gtm.js?id='+i})(window,document,'script','dataLayer','GTM-ABC123');</script>
<script src="/lp/tracking.js"></script>
</head><body></body></html>`

	got := ScanHTMLForTags(html)
	assert.True(t, got.HasGTM)
	assert.False(t, got.HasLineTag)
	assert.True(t, got.HasTracking)

	got = ScanHTMLForTags(`<script>_lt('init', {customerType: 'lap'});</script><img src="https://TR.LINE.ME/tag.gif">`)
	assert.Equal(t, TagChecks{HasLineTag: true}, got)

	assert.Equal(t, TagChecks{}, ScanHTMLForTags("<html></html>"))
}

func TestTrackingEventClamp(t *testing.T) {
	dwell, scroll := 999, -3
	e := LPTrackingEvent{DwellSeconds: &dwell, ScrollDepth: &scroll}
	e.Clamp()
	assert.Equal(t, 300, *e.DwellSeconds)
	assert.Equal(t, 0, *e.ScrollDepth)

	assert.True(t, IsTrackingEventType("cta_click"))
	assert.False(t, IsTrackingEventType("purchase"))
}
