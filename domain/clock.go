package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// JST is the business time zone. All work dates are JST calendar dates.
var JST = loadJST()

func loadJST() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// Clock abstracts "now" so services can be driven from tests and the debug-time setting.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }

// StartOfDayJST returns midnight JST of the calendar day containing t.
func StartOfDayJST(t time.Time) time.Time {
	j := t.In(JST)
	return time.Date(j.Year(), j.Month(), j.Day(), 0, 0, 0, 0, JST)
}

// JSTDateString formats t as YYYY-MM-DD in JST.
func JSTDateString(t time.Time) string {
	return t.In(JST).Format("2006-01-02")
}

// ParseJSTDate accepts YYYY-MM-DD or YYYY/MM/DD.
func ParseJSTDate(s string) (time.Time, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	t, err := time.ParseInLocation("2006-01-02", s, JST)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, ErrValidation)
	}
	return t, nil
}

// ParseHHMM parses "HH:MM" into hour and minute.
func ParseHHMM(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("invalid time %q: %w", s, ErrValidation)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid time %q: %w", s, ErrValidation)
	}
	return h, m, nil
}

// AtJST places an HH:MM time on the JST calendar day of date.
func AtJST(date time.Time, hhmm string) (time.Time, error) {
	h, m, err := ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	d := StartOfDayJST(date)
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, JST), nil
}

// ShiftPeriod returns the scheduled start and end for a work date. An end at or before the
// start rolls over to the next day.
func ShiftPeriod(date time.Time, startHHMM, endHHMM string) (time.Time, time.Time, error) {
	start, err := AtJST(date, startHHMM)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := AtJST(date, endHHMM)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}
