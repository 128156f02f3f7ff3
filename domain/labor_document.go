package domain

import (
	"fmt"
	"strconv"
	"time"
)

// LaborDocument is the working-conditions notice issued for a matched shift.
type LaborDocument struct {
	ApplicationID     uint
	WorkerName        string
	FacilityName      string
	CorporationName   string
	FacilityAddress   string
	JobTitle          string
	JobOverview       string
	WorkDate          time.Time
	StartTime         string
	EndTime           string
	BreakMinutes      int
	HourlyWage        int
	TransportationFee int
	DailyWage         int
	IssuedAt          time.Time
}

// NewLaborDocument builds the notice from a preloaded application.
func NewLaborDocument(app *Application, issuedAt time.Time) (LaborDocument, error) {
	job := app.Job()
	if job == nil || job.Facility == nil || app.User == nil {
		return LaborDocument{}, NotFound("application details")
	}
	return LaborDocument{
		ApplicationID:     app.ID,
		WorkerName:        app.User.Name,
		FacilityName:      job.Facility.Name,
		CorporationName:   job.Facility.CorporationName,
		FacilityAddress:   job.Facility.Prefecture + job.Facility.City + job.Facility.Address,
		JobTitle:          job.Title,
		JobOverview:       job.Overview,
		WorkDate:          app.WorkDate.WorkDate,
		StartTime:         job.StartTime,
		EndTime:           job.EndTime,
		BreakMinutes:      job.BreakMinutes,
		HourlyWage:        job.HourlyWage,
		TransportationFee: job.TransportationFee,
		DailyWage:         job.Wage,
		IssuedAt:          issuedAt,
	}, nil
}

// Fields returns the placeholder values used by the document templates.
func (d LaborDocument) Fields() map[string]string {
	return map[string]string{
		"application_id":     strconv.FormatUint(uint64(d.ApplicationID), 10),
		"worker_name":        d.WorkerName,
		"facility_name":      d.FacilityName,
		"corporation_name":   d.CorporationName,
		"facility_address":   d.FacilityAddress,
		"job_title":          d.JobTitle,
		"job_overview":       d.JobOverview,
		"work_date":          d.WorkDate.In(JST).Format("2006年01月02日"),
		"start_time":         d.StartTime,
		"end_time":           d.EndTime,
		"break_minutes":      strconv.Itoa(d.BreakMinutes),
		"hourly_wage":        strconv.Itoa(d.HourlyWage),
		"transportation_fee": strconv.Itoa(d.TransportationFee),
		"daily_wage":         strconv.Itoa(d.DailyWage),
		"issued_at":          d.IssuedAt.In(JST).Format("2006年01月02日"),
	}
}

// FileName is the download name for the given extension.
func (d LaborDocument) FileName(ext string) string {
	return fmt.Sprintf("labor-conditions-%d.%s", d.ApplicationID, ext)
}
