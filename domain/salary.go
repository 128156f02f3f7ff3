package domain

import (
	"math"
	"time"
)

const (
	nightStartHour           = 22
	nightEndHour             = 5
	overtimeThresholdMinutes = 8 * 60

	// DefaultHourlyRate is used when an attendance has no job to take a wage from.
	DefaultHourlyRate = 1000
)

type PayType string

const (
	PayNormal        PayType = "normal"
	PayNight         PayType = "night"
	PayOvertime      PayType = "overtime"
	PayNightOvertime PayType = "night_overtime"
)

type SalaryInput struct {
	Start        time.Time
	End          time.Time
	BreakMinutes int
	HourlyRate   int
}

type PayBlock struct {
	Type    PayType `json:"type"`
	Minutes float64 `json:"minutes"`
	Rate    float64 `json:"rate"`
	Amount  int     `json:"amount"`
}

type SalaryResult struct {
	BasePay         int        `json:"base_pay"`
	OvertimePay     int        `json:"overtime_pay"`
	NightPay        int        `json:"night_pay"`
	TotalPay        int        `json:"total_pay"`
	WorkedMinutes   float64    `json:"worked_minutes"`
	OvertimeMinutes float64    `json:"overtime_minutes"`
	NightMinutes    float64    `json:"night_minutes"`
	Breakdown       []PayBlock `json:"breakdown"`
}

type shiftSegment struct {
	start time.Time
	end   time.Time
	night bool
}

func isNightHour(t time.Time) bool {
	h := t.In(JST).Hour()
	return h >= nightStartHour || h < nightEndHour
}

func atHour(t time.Time, hour int, nextDay bool) time.Time {
	j := t.In(JST)
	d := time.Date(j.Year(), j.Month(), j.Day(), hour, 0, 0, 0, JST)
	if nextDay {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// splitAtNight cuts [start, end) at the 22:00 and 05:00 boundaries.
func splitAtNight(start, end time.Time) []shiftSegment {
	var segs []shiftSegment
	cur := start
	for cur.Before(end) {
		night := isNightHour(cur)
		h := cur.In(JST).Hour()
		var boundary time.Time
		switch {
		case night && h >= nightStartHour:
			boundary = atHour(cur, nightEndHour, true)
		case night:
			boundary = atHour(cur, nightEndHour, false)
		default:
			boundary = atHour(cur, nightStartHour, false)
		}
		segEnd := end
		if boundary.Before(end) {
			segEnd = boundary
		}
		if segEnd.After(cur) {
			segs = append(segs, shiftSegment{start: cur, end: segEnd, night: night})
		}
		cur = segEnd
	}
	return segs
}

func roundYen(v float64) int {
	return int(math.Floor(v + 0.5))
}

// CalculateSalary applies the base, overtime (beyond 8 elapsed hours) and night (22:00-05:00)
// premiums. Break minutes come off the highest-rated minutes first.
func CalculateSalary(in SalaryInput) SalaryResult {
	total := math.Max(0, in.End.Sub(in.Start).Minutes())
	breakMin := float64(in.BreakMinutes)
	worked := math.Max(0, total-breakMin)

	var normal, night, overtime, nightOvertime float64
	acc := 0.0
	for _, seg := range splitAtNight(in.Start, in.End) {
		mins := seg.end.Sub(seg.start).Minutes()
		before, after := mins, 0.0
		switch {
		case acc >= overtimeThresholdMinutes:
			before, after = 0, mins
		case acc+mins > overtimeThresholdMinutes:
			before = overtimeThresholdMinutes - acc
			after = mins - before
		}
		if seg.night {
			night += before
			nightOvertime += after
		} else {
			normal += before
			overtime += after
		}
		acc += mins
	}

	remaining := breakMin
	for _, bucket := range []*float64{&nightOvertime, &overtime, &night, &normal} {
		if remaining <= 0 {
			break
		}
		d := math.Min(remaining, *bucket)
		*bucket -= d
		remaining -= d
	}

	perMinute := float64(in.HourlyRate) / 60
	totalOvertime := nightOvertime + overtime
	totalNight := nightOvertime + night

	res := SalaryResult{
		BasePay:         roundYen(worked * perMinute),
		OvertimePay:     roundYen(totalOvertime * perMinute * 0.25),
		NightPay:        roundYen(totalNight * perMinute * 0.25),
		WorkedMinutes:   worked,
		OvertimeMinutes: totalOvertime,
		NightMinutes:    totalNight,
	}
	res.TotalPay = res.BasePay + res.OvertimePay + res.NightPay

	for _, b := range []struct {
		t    PayType
		m    float64
		rate float64
	}{
		{PayNormal, normal, 1.0},
		{PayNight, night, 1.25},
		{PayOvertime, overtime, 1.25},
		{PayNightOvertime, nightOvertime, 1.5},
	} {
		if b.m > 0 {
			res.Breakdown = append(res.Breakdown, PayBlock{
				Type: b.t, Minutes: b.m, Rate: b.rate, Amount: roundYen(b.m * perMinute * b.rate),
			})
		}
	}
	return res
}

// ShiftPay is the wage for a scheduled shift plus the transportation fee.
func ShiftPay(start, end time.Time, breakMinutes, hourlyRate, transportationFee int) int {
	return CalculateSalary(SalaryInput{
		Start: start, End: end, BreakMinutes: breakMinutes, HourlyRate: hourlyRate,
	}).TotalPay + transportationFee
}
