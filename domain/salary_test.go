package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jst(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation("2006-01-02 15:04", s, JST)
	require.NoError(t, err)
	return v
}

func TestCalculateSalary_DayShiftBreakEatsOvertime(t *testing.T) {
	res := CalculateSalary(SalaryInput{
		Start: jst(t, "2026-04-01 09:00"), End: jst(t, "2026-04-01 18:00"),
		BreakMinutes: 60, HourlyRate: 1200,
	})

	assert.Equal(t, 480.0, res.WorkedMinutes)
	assert.Equal(t, 9600, res.BasePay)
	assert.Zero(t, res.OvertimePay)
	assert.Zero(t, res.NightPay)
	assert.Equal(t, 9600, res.TotalPay)
	require.Len(t, res.Breakdown, 1)
	assert.Equal(t, PayNormal, res.Breakdown[0].Type)
}

func TestCalculateSalary_NightShiftAcrossMidnight(t *testing.T) {
	res := CalculateSalary(SalaryInput{
		Start: jst(t, "2026-04-01 22:00"), End: jst(t, "2026-04-02 07:00"),
		BreakMinutes: 60, HourlyRate: 1200,
	})

	assert.Equal(t, 480.0, res.WorkedMinutes)
	assert.Equal(t, 420.0, res.NightMinutes)
	assert.Zero(t, res.OvertimeMinutes)
	assert.Equal(t, 9600, res.BasePay)
	assert.Equal(t, 2100, res.NightPay)
	assert.Equal(t, 11700, res.TotalPay)
}

func TestCalculateSalary_EveningRoundsNightPremium(t *testing.T) {
	res := CalculateSalary(SalaryInput{
		Start: jst(t, "2026-04-01 17:00"), End: jst(t, "2026-04-01 23:00"),
		HourlyRate: 1000,
	})

	assert.Equal(t, 6000, res.BasePay)
	assert.Equal(t, 250, res.NightPay)
	assert.Equal(t, 6250, res.TotalPay)
}

func TestCalculateSalary_NightOvertimeBlock(t *testing.T) {
	res := CalculateSalary(SalaryInput{
		Start: jst(t, "2026-04-01 13:00"), End: jst(t, "2026-04-02 00:00"),
		HourlyRate: 1200,
	})

	assert.Equal(t, 13200, res.BasePay)
	assert.Equal(t, 900, res.OvertimePay)
	assert.Equal(t, 600, res.NightPay)
	assert.Equal(t, 14700, res.TotalPay)

	byType := map[PayType]PayBlock{}
	for _, b := range res.Breakdown {
		byType[b.Type] = b
	}
	assert.Equal(t, 1.5, byType[PayNightOvertime].Rate)
	assert.Equal(t, 3600, byType[PayNightOvertime].Amount)
	assert.Equal(t, 60.0, byType[PayOvertime].Minutes)
}

func TestCalculateSalary_BreakLongerThanShift(t *testing.T) {
	res := CalculateSalary(SalaryInput{
		Start: jst(t, "2026-04-01 09:00"), End: jst(t, "2026-04-01 09:30"),
		BreakMinutes: 60, HourlyRate: 1000,
	})
	assert.Zero(t, res.TotalPay)
	assert.Empty(t, res.Breakdown)
}

func TestShiftPeriod_RollsOverMidnight(t *testing.T) {
	start, end, err := ShiftPeriod(jst(t, "2026-04-01 00:00"), "22:00", "07:00")
	require.NoError(t, err)
	assert.Equal(t, jst(t, "2026-04-01 22:00"), start)
	assert.Equal(t, jst(t, "2026-04-02 07:00"), end)

	_, _, err = ShiftPeriod(jst(t, "2026-04-01 00:00"), "25:00", "07:00")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestJobDailyWage(t *testing.T) {
	job := &Job{StartTime: "09:00", EndTime: "18:00", BreakMinutes: 60, HourlyWage: 1200, TransportationFee: 500}
	wage, err := job.DailyWage()
	require.NoError(t, err)
	assert.Equal(t, 10100, wage)
}

func TestJobDeadlineFor(t *testing.T) {
	job := &Job{DeadlineDaysBefore: 1}
	assert.Equal(t, jst(t, "2026-04-09 23:59").Add(59*time.Second), job.DeadlineFor(jst(t, "2026-04-10 00:00")))

	job.DeadlineDaysBefore = 0
	assert.Equal(t, jst(t, "2026-04-10 23:59").Add(59*time.Second), job.DeadlineFor(jst(t, "2026-04-10 00:00")))
}
