package application

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"shiftmatch/domain"
)

type ReviewService struct {
	tx         Transactor
	reviews    ReviewRepository
	apps       ApplicationRepository
	facilities FacilityRepository
	notifier   *Notifier
	settings   *SettingsService
	logger     *zap.Logger
}

func NewReviewService(r Repositories, notifier *Notifier, settings *SettingsService, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		tx:         r.Tx,
		reviews:    r.Reviews,
		apps:       r.Applications,
		facilities: r.Facilities,
		notifier:   notifier,
		settings:   settings,
		logger:     logger,
	}
}

type ReviewInput struct {
	JobID         uint   `json:"job_id"`
	ApplicationID uint   `json:"application_id"`
	Rating        int    `json:"rating"`
	GoodPoints    string `json:"good_points"`
	Improvements  string `json:"improvements"`
}

// ReviewJob records a worker's review of the facility behind a job.
func (s *ReviewService) ReviewJob(ctx context.Context, userID uint, in ReviewInput) (*domain.Review, error) {
	if in.JobID == 0 {
		return nil, domain.Validation("job_id is required")
	}
	if err := domain.ValidateReviewInput(in.Rating, in.GoodPoints, in.Improvements); err != nil {
		return nil, err
	}
	found, err := s.apps.Find(ctx, ApplicationQuery{
		UserID: userID,
		JobID:  in.JobID,
		Statuses: []domain.ApplicationStatus{
			domain.StatusScheduled, domain.StatusWorking, domain.StatusCompletedPending, domain.StatusCompletedRated,
		},
	})
	if err != nil {
		return nil, err
	}
	var apps []domain.Application
	for _, a := range found {
		if a.WorkDate != nil && a.WorkDate.JobID == in.JobID {
			apps = append(apps, a)
		}
	}
	if len(apps) == 0 {
		return nil, domain.Forbidden("勤務実績のない求人は評価できません")
	}
	exists, err := s.reviews.ExistsForJob(ctx, in.JobID, userID, domain.ReviewerWorker)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.Conflict("REVIEW_EXISTS", "この求人は既に評価済みです")
	}

	app := &apps[0]
	facilityID := app.FacilityID()
	review := &domain.Review{
		FacilityID:    facilityID,
		UserID:        userID,
		JobID:         in.JobID,
		WorkDateID:    uintPtr(app.WorkDateID),
		ApplicationID: uintPtr(app.ID),
		ReviewerType:  domain.ReviewerWorker,
		Rating:        in.Rating,
		GoodPoints:    in.GoodPoints,
		Improvements:  in.Improvements,
	}
	var facility *domain.Facility
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.reviews.Create(ctx, review); err != nil {
			return err
		}
		if err := s.apps.MarkReviewed(ctx, userID, in.JobID, domain.ReviewerWorker); err != nil {
			return err
		}
		ratings, err := s.reviews.FacilityRatings(ctx, facilityID)
		if err != nil {
			return err
		}
		facility, err = s.facilities.Get(ctx, facilityID)
		if err != nil {
			return err
		}
		facility.Rating = domain.AverageRating(ratings)
		facility.ReviewCount = len(ratings)
		return s.facilities.Save(ctx, facility)
	})
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	p := facilityParams(s.notifier, app, domain.KeyFacilityReviewReceived)
	p.Vars["rating"] = strconv.Itoa(in.Rating)
	notify(ctx, s.notifier, s.logger, p)
	s.checkLowRatingStreak(ctx, facility)
	return review, nil
}

func (s *ReviewService) checkLowRatingStreak(ctx context.Context, facility *domain.Facility) {
	recent, err := s.reviews.RecentFacilityRatings(ctx, facility.ID, domain.LowRatingStreakLength())
	if err != nil {
		s.logger.Warn("recent ratings", zap.Uint("facility_id", facility.ID), zap.Error(err))
		return
	}
	if !domain.IsLowRatingStreak(recent) {
		return
	}
	notify(ctx, s.notifier, s.logger, NotifyParams{
		Key:        domain.KeyAdminLowRatingStreak,
		TargetType: domain.TargetSystemAdmin,
		Emails:     s.settings.AdminAlertEmails(ctx),
		Vars: map[string]string{
			"facility_name": facility.Name,
			"facility_id":   itoa(facility.ID),
			"streak":        strconv.Itoa(len(recent)),
		},
	})
}

// ReviewWorker records a facility's review of one worker application.
func (s *ReviewService) ReviewWorker(ctx context.Context, actor Actor, appID uint, in ReviewInput) (*domain.Review, error) {
	if err := domain.ValidateReviewInput(in.Rating, in.GoodPoints, in.Improvements); err != nil {
		return nil, err
	}
	app, err := s.apps.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.FacilityID() != actor.FacilityID {
		return nil, domain.Forbidden("この応募を評価する権限がありません")
	}
	if !app.Status.IsMatched() {
		return nil, domain.NewError(domain.ErrInvalidState, "REVIEW_NOT_ALLOWED", "勤務が確定していない応募は評価できません")
	}
	if app.FacilityReviewStatus == domain.ReviewCompleted {
		return nil, domain.Conflict("REVIEW_EXISTS", "この応募は既に評価済みです")
	}
	exists, err := s.reviews.ExistsForApplication(ctx, app.ID, domain.ReviewerFacility)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.Conflict("REVIEW_EXISTS", "この応募は既に評価済みです")
	}

	review := &domain.Review{
		FacilityID:    actor.FacilityID,
		UserID:        app.UserID,
		JobID:         app.WorkDate.JobID,
		WorkDateID:    uintPtr(app.WorkDateID),
		ApplicationID: uintPtr(app.ID),
		ReviewerType:  domain.ReviewerFacility,
		Rating:        in.Rating,
		GoodPoints:    in.GoodPoints,
		Improvements:  in.Improvements,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.reviews.Create(ctx, review); err != nil {
			return err
		}
		app.FacilityReviewStatus = domain.ReviewCompleted
		return s.apps.Save(ctx, app)
	})
	if err != nil {
		return nil, fmt.Errorf("create worker review: %w", err)
	}
	p := workerParams(s.notifier, app, domain.KeyWorkerReviewReceived)
	p.Vars["rating"] = strconv.Itoa(in.Rating)
	notify(ctx, s.notifier, s.logger, p)
	return review, nil
}

func (s *ReviewService) ForFacility(ctx context.Context, facilityID uint) ([]domain.Review, error) {
	return s.reviews.ListByFacility(ctx, facilityID, domain.ReviewerWorker)
}

func (s *ReviewService) ForWorker(ctx context.Context, userID uint) ([]domain.Review, error) {
	return s.reviews.ListByUser(ctx, userID)
}
