package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

// MaxEmergencyCodeAttempts bounds the uniqueness retry when generating emergency codes.
const MaxEmergencyCodeAttempts = 100

type AttendanceService struct {
	tx            Transactor
	attendances   AttendanceRepository
	modifications ModificationRepository
	apps          ApplicationRepository
	facilities    FacilityRepository
	users         UserRepository
	notifier      *Notifier
	payroll       PayrollWorkbookBuilder
	clock         domain.Clock
	logger        *zap.Logger
}

func NewAttendanceService(r Repositories, notifier *Notifier, payroll PayrollWorkbookBuilder, clock domain.Clock, logger *zap.Logger) *AttendanceService {
	return &AttendanceService{
		tx:            r.Tx,
		attendances:   r.Attendances,
		modifications: r.Modifications,
		apps:          r.Applications,
		facilities:    r.Facilities,
		users:         r.Users,
		notifier:      notifier,
		payroll:       payroll,
		clock:         clock,
		logger:        logger,
	}
}

type PunchType string

const (
	PunchCheckIn  PunchType = "check_in"
	PunchCheckOut PunchType = "check_out"
)

// RecordInput is one check-in or check-out punch.
type RecordInput struct {
	Type          PunchType               `json:"type" binding:"required,oneof=check_in check_out"`
	Method        domain.AttendanceMethod `json:"method" binding:"required,oneof=QR EMERGENCY_CODE"`
	FacilityID    uint                    `json:"facility_id"`
	QRToken       string                  `json:"qr_token"`
	EmergencyCode string                  `json:"emergency_code"`
	CheckOutType  domain.CheckOutType     `json:"check_out_type"`
	Latitude      *float64                `json:"latitude"`
	Longitude     *float64                `json:"longitude"`
}

type ScheduledTime struct {
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	BreakMinutes int    `json:"break_minutes"`
}

type RecordResult struct {
	AttendanceID         uint           `json:"attendance_id"`
	IsLate               bool           `json:"is_late"`
	RequiresModification bool           `json:"requires_modification"`
	Message              string         `json:"message"`
	Scheduled            *ScheduledTime `json:"scheduled_time,omitempty"`
}

func scheduledOf(app *domain.Application) *ScheduledTime {
	job := app.Job()
	if job == nil {
		return nil
	}
	return &ScheduledTime{StartTime: job.StartTime, EndTime: job.EndTime, BreakMinutes: job.BreakMinutes}
}

func (s *AttendanceService) Record(ctx context.Context, userID uint, in RecordInput) (*RecordResult, error) {
	if in.Type == PunchCheckOut {
		return s.CheckOut(ctx, userID, in)
	}
	return s.CheckIn(ctx, userID, in)
}

// resolveFacility validates the QR token or emergency code of a punch.
func (s *AttendanceService) resolveFacility(ctx context.Context, in RecordInput) (*domain.Facility, error) {
	if in.Method == domain.MethodEmergencyCode {
		invalid := domain.NewError(domain.ErrValidation, domain.CodeInvalidEmergency, "緊急時出退勤番号が正しくありません")
		if !domain.IsEmergencyCode(in.EmergencyCode) {
			return nil, invalid
		}
		f, err := s.facilities.FindByEmergencyCode(ctx, in.EmergencyCode)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid
		}
		return f, err
	}

	invalid := domain.NewError(domain.ErrValidation, domain.CodeInvalidQR, "QRコードが無効です")
	if in.FacilityID == 0 {
		return nil, invalid
	}
	f, err := s.facilities.Get(ctx, in.FacilityID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if f.QRSecretToken != nil && *f.QRSecretToken != "" && *f.QRSecretToken != in.QRToken {
		return nil, invalid
	}
	return f, nil
}

// todayApplication finds the worker's matched application for today at the facility.
func (s *AttendanceService) todayApplication(ctx context.Context, userID, facilityID uint, now time.Time) (*domain.Application, error) {
	from := domain.StartOfDayJST(now)
	to := from.AddDate(0, 0, 1)
	apps, err := s.apps.Find(ctx, ApplicationQuery{
		UserID:       userID,
		FacilityID:   facilityID,
		Statuses:     []domain.ApplicationStatus{domain.StatusScheduled, domain.StatusWorking},
		WorkDateFrom: &from,
		WorkDateTo:   &to,
	})
	if err != nil || len(apps) == 0 {
		return nil, err
	}
	return &apps[0], nil
}

func (s *AttendanceService) CheckIn(ctx context.Context, userID uint, in RecordInput) (*RecordResult, error) {
	facility, err := s.resolveFacility(ctx, in)
	if err != nil {
		return nil, err
	}
	if _, err := s.attendances.FindOpen(ctx, userID); err == nil {
		return nil, domain.Conflict(domain.CodeAlreadyCheckedIn, "既に出勤済みです")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	app, err := s.todayApplication(ctx, userID, facility.ID, now)
	if err != nil {
		return nil, fmt.Errorf("find today's application: %w", err)
	}

	rec := &domain.Attendance{
		UserID:        userID,
		FacilityID:    facility.ID,
		CheckInTime:   now,
		CheckInMethod: in.Method,
		CheckInLat:    in.Latitude,
		CheckInLng:    in.Longitude,
		Status:        domain.AttendanceCheckedIn,
	}
	res := &RecordResult{Message: "出勤を記録しました。"}
	if app != nil {
		rec.ApplicationID = uintPtr(app.ID)
		rec.JobID = uintPtr(app.WorkDate.JobID)
		start, _, err := app.Period()
		if err == nil && now.After(start) {
			rec.IsLate = true
			res.IsLate = true
			res.Message = "出勤を記録しました。遅刻のため退勤時に勤怠変更申請が必要です。"
		}
		res.Scheduled = scheduledOf(app)
	}
	if err := s.attendances.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create attendance: %w", err)
	}
	res.AttendanceID = rec.ID
	s.logger.Info("checked in", zap.Uint("user_id", userID), zap.Uint("facility_id", facility.ID),
		zap.String("method", string(in.Method)), zap.Bool("late", rec.IsLate))
	return res, nil
}

func (s *AttendanceService) CheckOut(ctx context.Context, userID uint, in RecordInput) (*RecordResult, error) {
	rec, err := s.attendances.FindOpen(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.ErrInvalidState, domain.CodeNotCheckedIn, "出勤記録がありません")
	}
	if err != nil {
		return nil, err
	}
	if in.Method == domain.MethodEmergencyCode {
		f, err := s.resolveFacility(ctx, in)
		if err != nil {
			return nil, err
		}
		if f.ID != rec.FacilityID {
			return nil, domain.NewError(domain.ErrValidation, domain.CodeInvalidEmergency, "出勤した施設の番号ではありません")
		}
	}

	var app *domain.Application
	if rec.Application != nil && rec.Application.Job() != nil {
		app = rec.Application
	}
	isLate := false
	if app != nil {
		if start, _, err := app.Period(); err == nil {
			isLate = rec.CheckInTime.After(start)
		}
	}
	requires := domain.RequiresModification(isLate, rec.CheckInMethod, in.Method, in.CheckOutType)
	if app == nil {
		requires = true
	}

	now := s.clock.Now()
	rec.CheckOutTime = &now
	method := in.Method
	rec.CheckOutMethod = &method
	outType := in.CheckOutType
	if outType == "" {
		outType = domain.CheckOutOnTime
		if requires {
			outType = domain.CheckOutModificationRequired
		}
	}
	rec.CheckOutType = &outType
	rec.CheckOutLat = in.Latitude
	rec.CheckOutLng = in.Longitude
	rec.Status = domain.AttendanceCheckedOut

	if !requires {
		job := app.Job()
		start, end, err := app.Period()
		if err != nil {
			return nil, err
		}
		brk := job.BreakMinutes
		wage := domain.ShiftPay(start, end, brk, job.HourlyWage, job.TransportationFee)
		rec.ActualStartTime = &start
		rec.ActualEndTime = &end
		rec.ActualBreakTime = &brk
		rec.CalculatedWage = &wage
	}
	if err := s.attendances.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save attendance: %w", err)
	}

	res := &RecordResult{AttendanceID: rec.ID, IsLate: isLate, RequiresModification: requires, Message: "退勤を記録しました。"}
	if requires {
		res.Message = "退勤を記録しました。勤怠変更申請を行ってください。"
	}
	if app != nil {
		res.Scheduled = scheduledOf(app)
	}
	return res, nil
}

type AttendanceStatusView struct {
	CheckedIn         bool                `json:"checked_in"`
	Attendance        *domain.Attendance  `json:"attendance,omitempty"`
	IsLate            bool                `json:"is_late"`
	UsedEmergencyCode bool                `json:"used_emergency_code"`
	HasJobToday       bool                `json:"has_job_today"`
	TodayApplication  *domain.Application `json:"today_application,omitempty"`
}

func (s *AttendanceService) Status(ctx context.Context, userID uint) (*AttendanceStatusView, error) {
	view := &AttendanceStatusView{}
	rec, err := s.attendances.FindOpen(ctx, userID)
	switch {
	case err == nil:
		view.CheckedIn = true
		view.Attendance = rec
		view.IsLate = rec.IsLate
		view.UsedEmergencyCode = rec.UsedEmergencyCode()
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	from := domain.StartOfDayJST(s.clock.Now())
	to := from.AddDate(0, 0, 1)
	apps, err := s.apps.Find(ctx, ApplicationQuery{
		UserID:       userID,
		Statuses:     []domain.ApplicationStatus{domain.StatusScheduled, domain.StatusWorking},
		WorkDateFrom: &from,
		WorkDateTo:   &to,
	})
	if err != nil {
		return nil, err
	}
	if len(apps) > 0 {
		view.HasJobToday = true
		view.TodayApplication = &apps[0]
	}
	return view, nil
}

type AttendancePage struct {
	Items []domain.Attendance `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

func (s *AttendanceService) History(ctx context.Context, userID uint, page, limit int) (*AttendancePage, error) {
	limit = clampLimit(limit, 20, 100)
	if page < 1 {
		page = 1
	}
	items, total, err := s.attendances.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &AttendancePage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// AttendanceSettings is what a facility admin sees on the attendance settings screen.
type AttendanceSettings struct {
	FacilityID    uint       `json:"facility_id"`
	QRToken       string     `json:"qr_token"`
	QRGeneratedAt *time.Time `json:"qr_generated_at,omitempty"`
	EmergencyCode string     `json:"emergency_code"`
}

func settingsOf(f *domain.Facility) *AttendanceSettings {
	out := &AttendanceSettings{FacilityID: f.ID, QRGeneratedAt: f.QRGeneratedAt}
	if f.QRSecretToken != nil {
		out.QRToken = *f.QRSecretToken
	}
	if f.EmergencyAttendanceCode != nil {
		out.EmergencyCode = *f.EmergencyAttendanceCode
	}
	return out
}

func (s *AttendanceService) Settings(ctx context.Context, facilityID uint) (*AttendanceSettings, error) {
	f, err := s.facilities.Get(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	return settingsOf(f), nil
}

// RegenerateQR invalidates printed QR codes by rotating the facility token.
func (s *AttendanceService) RegenerateQR(ctx context.Context, facilityID uint) (*AttendanceSettings, error) {
	f, err := s.facilities.Get(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	tok, err := domain.NewQRToken()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	f.QRSecretToken = &tok
	f.QRGeneratedAt = &now
	if err := s.facilities.Save(ctx, f); err != nil {
		return nil, fmt.Errorf("save qr token: %w", err)
	}
	s.logger.Info("qr token regenerated", zap.Uint("facility_id", facilityID))
	return settingsOf(f), nil
}

func (s *AttendanceService) UpdateEmergencyCode(ctx context.Context, facilityID uint, code string) (*AttendanceSettings, error) {
	if !domain.IsEmergencyCode(code) {
		return nil, domain.Validation("緊急時出退勤番号は4桁の数字で入力してください")
	}
	f, err := s.facilities.Get(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	used, err := s.facilities.EmergencyCodeInUse(ctx, code, facilityID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, domain.Conflict("EMERGENCY_CODE_IN_USE", "この番号は他の施設で使用されています")
	}
	f.EmergencyAttendanceCode = &code
	if err := s.facilities.Save(ctx, f); err != nil {
		return nil, fmt.Errorf("save emergency code: %w", err)
	}
	return settingsOf(f), nil
}

func (s *AttendanceService) uniqueEmergencyCode(ctx context.Context, facilityID uint, taken map[string]bool) (string, error) {
	for i := 0; i < MaxEmergencyCodeAttempts; i++ {
		code, err := domain.NewEmergencyCode()
		if err != nil {
			return "", err
		}
		if taken[code] {
			continue
		}
		used, err := s.facilities.EmergencyCodeInUse(ctx, code, facilityID)
		if err != nil {
			return "", err
		}
		if !used {
			return code, nil
		}
	}
	return "", domain.ErrEmergencyCodeExhausted
}

type AssignResult struct {
	Updated int      `json:"updated"`
	Failed  []uint   `json:"failed,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// AssignEmergencyCodes backfills codes and QR tokens for facilities missing either.
func (s *AttendanceService) AssignEmergencyCodes(ctx context.Context) (*AssignResult, error) {
	facilities, err := s.facilities.List(ctx)
	if err != nil {
		return nil, err
	}
	res := &AssignResult{}
	taken := map[string]bool{}
	now := s.clock.Now()
	for i := range facilities {
		f := &facilities[i]
		needCode := f.EmergencyAttendanceCode == nil || *f.EmergencyAttendanceCode == ""
		needToken := f.QRSecretToken == nil || *f.QRSecretToken == ""
		if !needCode && !needToken {
			continue
		}
		if needCode {
			code, err := s.uniqueEmergencyCode(ctx, f.ID, taken)
			if err != nil {
				res.Failed = append(res.Failed, f.ID)
				res.Errors = append(res.Errors, fmt.Sprintf("facility %d: %v", f.ID, err))
				continue
			}
			taken[code] = true
			f.EmergencyAttendanceCode = &code
		}
		if needToken {
			tok, err := domain.NewQRToken()
			if err != nil {
				return res, err
			}
			f.QRSecretToken = &tok
			f.QRGeneratedAt = &now
		}
		if err := s.facilities.Save(ctx, f); err != nil {
			res.Failed = append(res.Failed, f.ID)
			res.Errors = append(res.Errors, fmt.Sprintf("facility %d: %v", f.ID, err))
			continue
		}
		res.Updated++
	}
	s.logger.Info("emergency codes assigned", zap.Int("updated", res.Updated), zap.Int("failed", len(res.Failed)))
	return res, nil
}

// PayrollWorkbook renders one month of attendance for a facility as XLSX. month is YYYY-MM.
func (s *AttendanceService) PayrollWorkbook(ctx context.Context, facilityID uint, month string) ([]byte, string, error) {
	start, err := time.ParseInLocation("2006-01", month, domain.JST)
	if err != nil {
		return nil, "", domain.Validation("month must be YYYY-MM")
	}
	f, err := s.facilities.Get(ctx, facilityID)
	if err != nil {
		return nil, "", err
	}
	recs, err := s.attendances.ListByFacilityBetween(ctx, facilityID, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, "", err
	}
	rows := make([]PayrollRow, 0, len(recs))
	for _, r := range recs {
		row := PayrollRow{
			WorkDate:    domain.StartOfDayJST(r.CheckInTime),
			CheckIn:     r.CheckInTime,
			CheckOut:    r.CheckOutTime,
			ActualStart: r.ActualStartTime,
			ActualEnd:   r.ActualEndTime,
		}
		if r.User != nil {
			row.WorkerName = r.User.Name
		}
		if r.Application != nil && r.Application.WorkDate != nil {
			row.WorkDate = r.Application.WorkDate.WorkDate
		}
		if r.ActualBreakTime != nil {
			row.BreakMinutes = *r.ActualBreakTime
		}
		if r.CalculatedWage != nil {
			row.Wage = *r.CalculatedWage
		}
		if r.Modification != nil {
			row.ModificationStatus = string(r.Modification.Status)
		}
		rows = append(rows, row)
	}
	data, err := s.payroll.Build(f.Name, month, rows)
	if err != nil {
		return nil, "", fmt.Errorf("build payroll workbook: %w", err)
	}
	return data, fmt.Sprintf("attendance-%d-%s.xlsx", facilityID, month), nil
}
