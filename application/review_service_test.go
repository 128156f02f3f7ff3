package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func TestReviews_WorkerReviewUpdatesFacilityRating(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, nil, "2026-05-10")
	u := e.worker(t, "hanako@example.com")
	stranger := e.worker(t, "stranger@example.com")
	app, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	require.NoError(t, err)
	svc := application.NewReviewService(e.repos, e.notifier, e.settings, e.logger)

	in := application.ReviewInput{JobID: j.ID, Rating: 4, GoodPoints: "丁寧な引き継ぎ", Improvements: "休憩室が狭い"}
	_, err = svc.ReviewJob(ctx, stranger.ID, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	bad := in
	bad.Improvements = " "
	_, err = svc.ReviewJob(ctx, u.ID, bad)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.ReviewJob(ctx, u.ID, in)
	require.NoError(t, err)
	_, err = svc.ReviewJob(ctx, u.ID, in)
	assert.Equal(t, "REVIEW_EXISTS", appCode(t, err))

	got, err := e.repos.Facilities.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got.Rating, 1e-9)
	assert.Equal(t, 1, got.ReviewCount)

	reloaded, err := e.repos.Applications.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewCompleted, reloaded.WorkerReviewStatus)
}

func TestReviews_JobIDMustMatchAnApplication(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	worked := e.job(t, f, nil, "2026-05-10")
	other := e.job(t, f, nil, "2026-05-12")
	u := e.worker(t, "hanako@example.com")
	_, err := e.apps.Apply(ctx, u.ID, worked.ID, 0)
	require.NoError(t, err)
	svc := application.NewReviewService(e.repos, e.notifier, e.settings, e.logger)
	in := application.ReviewInput{Rating: 1, GoodPoints: "特になし", Improvements: "説明不足"}

	_, err = svc.ReviewJob(ctx, u.ID, in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in.JobID = other.ID
	_, err = svc.ReviewJob(ctx, u.ID, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := e.repos.Facilities.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ReviewCount)

	in.JobID = worked.ID
	in.Rating = 5
	review, err := svc.ReviewJob(ctx, u.ID, in)
	require.NoError(t, err)
	assert.Equal(t, worked.ID, review.JobID)

	got, err = e.repos.Facilities.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReviewCount)
	assert.InDelta(t, 5.0, got.Rating, 1e-9)
}

func TestReviews_FacilityReviewsWorkerOnce(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	other := e.facility(t, "")
	j := e.job(t, f, nil, "2026-05-10")
	u := e.worker(t, "hanako@example.com")
	app, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	require.NoError(t, err)
	svc := application.NewReviewService(e.repos, e.notifier, e.settings, e.logger)
	in := application.ReviewInput{Rating: 5, GoodPoints: "笑顔", Improvements: "特になし"}

	_, err = svc.ReviewWorker(ctx, application.FacilityActor(2, other.ID), app.ID, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.ReviewWorker(ctx, application.FacilityActor(1, f.ID), app.ID, in)
	require.NoError(t, err)
	_, err = svc.ReviewWorker(ctx, application.FacilityActor(1, f.ID), app.ID, in)
	assert.ErrorIs(t, err, domain.ErrConflict)

	mine, err := svc.ForWorker(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.ReviewerFacility, mine[0].ReviewerType)
}

func TestMessages_ThreadAccessAndReadMarks(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, nil, "2026-05-10")
	u := e.worker(t, "hanako@example.com")
	app, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	require.NoError(t, err)
	svc := application.NewMessageService(e.repos, e.notifier, e.activity, e.clock, e.logger)

	before, err := e.repos.Messages.ListByApplication(ctx, app.ID)
	require.NoError(t, err)

	_, err = svc.Send(ctx, application.WorkerActor(u.ID+1), app.ID, "こんにちは")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.Send(ctx, application.WorkerActor(u.ID), app.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	msg, err := svc.Send(ctx, application.WorkerActor(u.ID), app.ID, "駐車場はありますか？")
	require.NoError(t, err)
	require.NotNil(t, msg.ToFacilityID)
	assert.Equal(t, f.ID, *msg.ToFacilityID)

	thread, err := svc.List(ctx, application.FacilityActor(1, f.ID), app.ID)
	require.NoError(t, err)
	assert.Len(t, thread, len(before)+1)

	after, err := e.repos.Messages.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	last := after[len(after)-1]
	assert.NotNil(t, last.ReadAt)

	logs, err := e.repos.ActivityLogs.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 4)
}

func TestReminders_DayBeforeGroupsFacilityByJob(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, func(in *application.JobInput) { in.RecruitmentCount = 2 }, "2026-05-10")
	for _, email := range []string{"a@example.com", "b@example.com"} {
		u := e.worker(t, email)
		_, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
		require.NoError(t, err)
	}
	svc := application.NewReminderService(e.repos.Applications, e.notifier, e.clock, e.logger)

	e.clock.Set(jstAt(t, "2026-05-09 18:00"))
	res, err := svc.Run(ctx, application.ReminderDayBefore)
	require.NoError(t, err)
	assert.Equal(t, 2, res.WorkerDayBefore)
	assert.Equal(t, 1, res.FacilityDayBefore)
	assert.Zero(t, res.WorkerSameDay)

	e.clock.Set(jstAt(t, "2026-05-10 07:00"))
	res, err = svc.Run(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.WorkerSameDay)
	assert.Zero(t, res.WorkerDayBefore)
}
