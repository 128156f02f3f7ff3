package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

type ModificationInput struct {
	AttendanceID       uint      `json:"attendance_id"`
	RequestedStartTime time.Time `json:"requested_start_time" binding:"required"`
	RequestedEndTime   time.Time `json:"requested_end_time" binding:"required"`
	RequestedBreakTime int       `json:"requested_break_time" binding:"min=0"`
	WorkerComment      string    `json:"worker_comment" binding:"required"`
}

type ModificationResult struct {
	ModificationID  uint `json:"modification_id"`
	OriginalAmount  int  `json:"original_amount"`
	RequestedAmount int  `json:"requested_amount"`
	Difference      int  `json:"difference"`
}

func (in ModificationInput) check() error {
	if !in.RequestedEndTime.After(in.RequestedStartTime) {
		return domain.Validation("終了時刻は開始時刻より後にしてください")
	}
	if strings.TrimSpace(in.WorkerComment) == "" {
		return domain.Validation("コメントを入力してください")
	}
	if in.RequestedBreakTime < 0 {
		return domain.Validation("休憩時間が不正です")
	}
	return nil
}

// rateFor returns the job rate and transport fee of an attendance, defaulting when no job is linked.
func rateFor(a *domain.Attendance) (int, int, *domain.Job) {
	if a.Application != nil {
		if job := a.Application.Job(); job != nil {
			return job.HourlyWage, job.TransportationFee, job
		}
	}
	return domain.DefaultHourlyRate, 0, nil
}

func (s *AttendanceService) CreateModification(ctx context.Context, userID uint, in ModificationInput) (*ModificationResult, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	rec, err := s.attendances.Get(ctx, in.AttendanceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewError(domain.ErrNotFound, domain.CodeNotCheckedIn, "勤怠記録が見つかりません")
	}
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, domain.NewError(domain.ErrForbidden, domain.CodeAccessDenied, "この勤怠記録にアクセスできません")
	}
	if rec.Modification != nil {
		return nil, domain.Conflict(domain.CodeModificationExists, "既に勤怠変更申請があります")
	}

	rate, transport, job := rateFor(rec)
	original := 0
	if job != nil {
		start, end, err := rec.Application.Period()
		if err == nil {
			original = domain.ShiftPay(start, end, job.BreakMinutes, rate, transport)
		}
	}
	requested := domain.ShiftPay(in.RequestedStartTime, in.RequestedEndTime, in.RequestedBreakTime, rate, transport)

	m := &domain.AttendanceModificationRequest{
		AttendanceID:       rec.ID,
		RequestedStartTime: in.RequestedStartTime,
		RequestedEndTime:   in.RequestedEndTime,
		RequestedBreakTime: in.RequestedBreakTime,
		WorkerComment:      in.WorkerComment,
		Status:             domain.ModificationPending,
		OriginalAmount:     original,
		RequestedAmount:    requested,
	}
	if err := s.modifications.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create modification: %w", err)
	}
	m.Attendance = rec
	s.logger.Info("modification requested", zap.Uint("modification_id", m.ID),
		zap.Uint("attendance_id", rec.ID), zap.Int("difference", requested-original))
	s.notifyModificationRequested(ctx, m)
	return &ModificationResult{
		ModificationID:  m.ID,
		OriginalAmount:  original,
		RequestedAmount: requested,
		Difference:      requested - original,
	}, nil
}

func (s *AttendanceService) Resubmit(ctx context.Context, userID, modificationID uint, in ModificationInput) (*ModificationResult, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	m, err := s.modifications.Get(ctx, modificationID)
	if err != nil {
		return nil, err
	}
	if m.Attendance == nil || m.Attendance.UserID != userID {
		return nil, domain.NewError(domain.ErrForbidden, domain.CodeAccessDenied, "この勤怠記録にアクセスできません")
	}
	if m.Status != domain.ModificationRejected {
		return nil, domain.NewError(domain.ErrInvalidState, domain.CodeModificationInvalid, "却下された申請のみ再申請できます")
	}
	if !m.CanResubmit() {
		return nil, domain.NewError(domain.ErrInvalidState, domain.CodeModificationInvalid, "再申請回数の上限に達しています")
	}

	rate, transport, _ := rateFor(m.Attendance)
	m.RequestedStartTime = in.RequestedStartTime
	m.RequestedEndTime = in.RequestedEndTime
	m.RequestedBreakTime = in.RequestedBreakTime
	m.WorkerComment = in.WorkerComment
	m.RequestedAmount = domain.ShiftPay(in.RequestedStartTime, in.RequestedEndTime, in.RequestedBreakTime, rate, transport)
	m.Status = domain.ModificationResubmitted
	m.ResubmitCount++
	m.AdminComment = nil
	m.ReviewedBy = nil
	m.ReviewedAt = nil
	if err := s.modifications.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("resubmit modification: %w", err)
	}
	s.notifyModificationRequested(ctx, m)
	return &ModificationResult{
		ModificationID:  m.ID,
		OriginalAmount:  m.OriginalAmount,
		RequestedAmount: m.RequestedAmount,
		Difference:      m.RequestedAmount - m.OriginalAmount,
	}, nil
}

type ReviewModificationInput struct {
	AdminComment string `json:"admin_comment"`
}

func (s *AttendanceService) reviewable(ctx context.Context, actor Actor, id uint) (*domain.AttendanceModificationRequest, error) {
	m, err := s.modifications.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Attendance == nil || m.Attendance.FacilityID != actor.FacilityID {
		return nil, domain.NewError(domain.ErrForbidden, domain.CodeModificationInvalid, "この申請を処理する権限がありません")
	}
	if !m.Status.IsReviewable() {
		return nil, domain.NewError(domain.ErrInvalidState, domain.CodeModificationInvalid, "この申請は既に処理済みです")
	}
	return m, nil
}

// Approve copies the requested times and amount into the attendance record.
func (s *AttendanceService) Approve(ctx context.Context, actor Actor, id uint, in ReviewModificationInput) (*domain.AttendanceModificationRequest, error) {
	m, err := s.reviewable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		m.Status = domain.ModificationApproved
		if in.AdminComment != "" {
			m.AdminComment = &in.AdminComment
		}
		m.ReviewedBy = uintPtr(actor.ID)
		m.ReviewedAt = &now
		if err := s.modifications.Save(ctx, m); err != nil {
			return err
		}
		rec := m.Attendance
		start, end := m.RequestedStartTime, m.RequestedEndTime
		brk, wage := m.RequestedBreakTime, m.RequestedAmount
		rec.ActualStartTime = &start
		rec.ActualEndTime = &end
		rec.ActualBreakTime = &brk
		rec.CalculatedWage = &wage
		return s.attendances.Save(ctx, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("approve modification: %w", err)
	}
	s.logger.Info("modification approved", zap.Uint("modification_id", m.ID), zap.Uint("reviewed_by", actor.ID))
	s.notifyModificationReviewed(ctx, m, domain.KeyModificationApproved)
	return m, nil
}

func (s *AttendanceService) Reject(ctx context.Context, actor Actor, id uint, in ReviewModificationInput) (*domain.AttendanceModificationRequest, error) {
	if strings.TrimSpace(in.AdminComment) == "" {
		return nil, domain.Validation("却下理由を入力してください")
	}
	m, err := s.reviewable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	m.Status = domain.ModificationRejected
	m.AdminComment = &in.AdminComment
	m.ReviewedBy = uintPtr(actor.ID)
	m.ReviewedAt = &now
	if err := s.modifications.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("reject modification: %w", err)
	}
	s.logger.Info("modification rejected", zap.Uint("modification_id", m.ID), zap.Uint("reviewed_by", actor.ID))
	s.notifyModificationReviewed(ctx, m, domain.KeyModificationRejected)
	return m, nil
}

func (s *AttendanceService) PendingModifications(ctx context.Context, facilityID uint) ([]domain.AttendanceModificationRequest, error) {
	return s.modifications.ListByFacility(ctx, facilityID, reviewableStatuses)
}

func (s *AttendanceService) PendingCount(ctx context.Context, facilityID uint) (int64, error) {
	return s.modifications.CountByFacility(ctx, facilityID, reviewableStatuses)
}

func (s *AttendanceService) WorkerModifications(ctx context.Context, userID uint) ([]domain.AttendanceModificationRequest, error) {
	return s.modifications.ListByUser(ctx, userID)
}

var reviewableStatuses = []domain.ModificationStatus{domain.ModificationPending, domain.ModificationResubmitted}

func modificationVars(m *domain.AttendanceModificationRequest) map[string]string {
	rec := m.Attendance
	vars := map[string]string{
		"requested_start":  m.RequestedStartTime.In(domain.JST).Format("15:04"),
		"requested_end":    m.RequestedEndTime.In(domain.JST).Format("15:04"),
		"requested_break":  strconv.Itoa(m.RequestedBreakTime),
		"requested_amount": strconv.Itoa(m.RequestedAmount),
		"worker_comment":   m.WorkerComment,
		"work_date":        rec.CheckInTime.In(domain.JST).Format("2006/01/02"),
	}
	if m.AdminComment != nil {
		vars["admin_comment"] = *m.AdminComment
	}
	if rec.User != nil {
		vars["worker_name"] = rec.User.Name
	}
	if rec.Facility != nil {
		vars["facility_name"] = rec.Facility.Name
	}
	if rec.Application != nil && rec.Application.WorkDate != nil {
		vars["work_date"] = rec.Application.WorkDate.WorkDate.In(domain.JST).Format("2006/01/02")
	}
	return vars
}

func (s *AttendanceService) notifyModificationRequested(ctx context.Context, m *domain.AttendanceModificationRequest) {
	rec := m.Attendance
	if rec.Facility == nil {
		return
	}
	notify(ctx, s.notifier, s.logger, NotifyParams{
		Key:           domain.KeyModificationRequested,
		TargetType:    domain.TargetFacility,
		RecipientID:   rec.FacilityID,
		RecipientName: rec.Facility.Name,
		Emails:        rec.Facility.StaffEmails,
		ApplicationID: rec.ApplicationID,
		JobID:         rec.JobID,
		Vars:          modificationVars(m),
		Link:          "/admin/tasks/attendance/" + itoa(m.ID),
	})
}

func (s *AttendanceService) notifyModificationReviewed(ctx context.Context, m *domain.AttendanceModificationRequest, key string) {
	rec := m.Attendance
	p := NotifyParams{
		Key:           key,
		TargetType:    domain.TargetWorker,
		RecipientID:   rec.UserID,
		ApplicationID: rec.ApplicationID,
		JobID:         rec.JobID,
		Vars:          modificationVars(m),
		Link:          "/mypage/attendance",
	}
	if rec.User != nil {
		p.RecipientName = rec.User.Name
		p.RecipientEmail = rec.User.Email
	}
	notify(ctx, s.notifier, s.logger, p)
}
