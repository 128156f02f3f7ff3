package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

type ReminderKind string

const (
	ReminderDayBefore ReminderKind = "day_before"
	ReminderSameDay   ReminderKind = "same_day"
)

type ReminderResult struct {
	WorkerDayBefore   int `json:"worker_day_before"`
	FacilityDayBefore int `json:"facility_day_before"`
	WorkerSameDay     int `json:"worker_same_day"`
}

// ReminderService sends shift reminders for tomorrow's and today's matched applications.
type ReminderService struct {
	apps     ApplicationRepository
	notifier *Notifier
	clock    domain.Clock
	logger   *zap.Logger
}

func NewReminderService(apps ApplicationRepository, notifier *Notifier, clock domain.Clock, logger *zap.Logger) *ReminderService {
	return &ReminderService{apps: apps, notifier: notifier, clock: clock, logger: logger}
}

// Run sends the requested reminders. An empty kind sends both.
func (s *ReminderService) Run(ctx context.Context, kind ReminderKind) (ReminderResult, error) {
	var res ReminderResult
	today := domain.StartOfDayJST(s.clock.Now())
	if kind == "" || kind == ReminderDayBefore {
		if err := s.dayBefore(ctx, today.AddDate(0, 0, 1), &res); err != nil {
			return res, err
		}
	}
	if kind == "" || kind == ReminderSameDay {
		apps, err := s.matchedOn(ctx, today)
		if err != nil {
			return res, err
		}
		for i := range apps {
			notify(ctx, s.notifier, s.logger, workerParams(s.notifier, &apps[i], domain.KeyWorkerReminderSameDay))
			res.WorkerSameDay++
		}
	}
	s.logger.Info("reminders sent", zap.String("kind", string(kind)),
		zap.Int("worker_day_before", res.WorkerDayBefore),
		zap.Int("facility_day_before", res.FacilityDayBefore),
		zap.Int("worker_same_day", res.WorkerSameDay))
	return res, nil
}

func (s *ReminderService) matchedOn(ctx context.Context, day time.Time) ([]domain.Application, error) {
	next := day.AddDate(0, 0, 1)
	apps, err := s.apps.Find(ctx, ApplicationQuery{
		Statuses:     []domain.ApplicationStatus{domain.StatusScheduled},
		WorkDateFrom: &day,
		WorkDateTo:   &next,
	})
	if err != nil {
		return nil, fmt.Errorf("find applications on %s: %w", domain.JSTDateString(day), err)
	}
	return apps, nil
}

func (s *ReminderService) dayBefore(ctx context.Context, tomorrow time.Time, res *ReminderResult) error {
	apps, err := s.matchedOn(ctx, tomorrow)
	if err != nil {
		return err
	}
	// Facilities get one reminder per job, not one per worker.
	perJob := map[uint][]*domain.Application{}
	var order []uint
	for i := range apps {
		app := &apps[i]
		notify(ctx, s.notifier, s.logger, workerParams(s.notifier, app, domain.KeyWorkerReminderDayBefore))
		res.WorkerDayBefore++
		jobID := app.WorkDate.JobID
		if _, ok := perJob[jobID]; !ok {
			order = append(order, jobID)
		}
		perJob[jobID] = append(perJob[jobID], app)
	}
	for _, jobID := range order {
		group := perJob[jobID]
		p := facilityParams(s.notifier, group[0], domain.KeyFacilityReminderDayBefore)
		p.ApplicationID = nil
		p.Vars["total_count"] = strconv.Itoa(len(group))
		names := ""
		for i, a := range group {
			if a.User == nil {
				continue
			}
			if i > 0 {
				names += "、"
			}
			names += a.User.Name
		}
		p.Vars["worker_name"] = names
		notify(ctx, s.notifier, s.logger, p)
		res.FacilityDayBefore++
	}
	return nil
}
