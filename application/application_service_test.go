package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func appCode(t *testing.T, err error) string {
	t.Helper()
	var ae *domain.AppError
	require.ErrorAs(t, err, &ae)
	return ae.Code
}

func TestApply_InstantMatchCountsAndGreets(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "[ワーカー名字]さん、[施設名]へようこそ")
	j := e.job(t, f, nil, "2026-05-10")
	u := e.worker(t, "hanako@example.com")

	app, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, app.Status)

	wd := e.workDate(t, j.WorkDates[0].ID)
	assert.Equal(t, 1, wd.AppliedCount)
	assert.Equal(t, 1, wd.MatchedCount)

	msgs, err := e.repos.Messages.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	var contents []string
	for _, m := range msgs {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "山田さん、さくら苑へようこそ")
	assert.Positive(t, e.queue.Len())

	inbox, err := e.repos.Notifications.List(ctx, domain.TargetWorker, u.ID, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, inbox)
}

func TestApply_InterviewJobStaysApplied(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	f := e.facility(t, "")
	j := e.job(t, f, func(in *application.JobInput) { in.RequiresInterview = true }, "2026-05-10")
	u := e.worker(t, "hanako@example.com")

	app, err := e.apps.Apply(context.Background(), u.ID, j.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, app.Status)

	wd := e.workDate(t, j.WorkDates[0].ID)
	assert.Equal(t, 1, wd.AppliedCount)
	assert.Zero(t, wd.MatchedCount)
}

func TestApply_Rejections(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, func(in *application.JobInput) { in.RecruitmentCount = 2 }, "2026-05-10")
	first := e.worker(t, "first@example.com")
	second := e.worker(t, "second@example.com")
	third := e.worker(t, "third@example.com")

	_, err := e.apps.Apply(ctx, first.ID, j.ID, 0)
	require.NoError(t, err)

	_, err = e.apps.Apply(ctx, first.ID, j.ID, 0)
	assert.Equal(t, "APP_DUPLICATE", appCode(t, err))

	_, err = e.apps.Apply(ctx, second.ID, j.ID, 0)
	require.NoError(t, err)

	// Capacity is checked before duplicates.
	_, err = e.apps.Apply(ctx, first.ID, j.ID, 0)
	assert.Equal(t, "APP_FULL", appCode(t, err))
	_, err = e.apps.Apply(ctx, third.ID, j.ID, 0)
	assert.Equal(t, "APP_FULL", appCode(t, err))

	e.clock.Set(jstAt(t, "2026-05-11 00:00"))
	_, err = e.apps.Apply(ctx, third.ID, j.ID, 0)
	assert.Equal(t, "APP_DEADLINE", appCode(t, err))
}

func TestApply_IncompleteProfileListsFields(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, nil, "2026-05-10")
	u := &domain.User{Email: "new@example.com", Name: "新人"}
	require.NoError(t, e.repos.Users.Create(ctx, u))

	_, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	var ae *domain.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "PROFILE_INCOMPLETE", ae.Code)
	assert.Contains(t, ae.Details["missing_fields"], "電話番号")
}

func TestApply_OfferOnlyForTarget(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	target := e.worker(t, "target@example.com")
	other := e.worker(t, "other@example.com")
	j := e.job(t, f, func(in *application.JobInput) {
		in.JobType = domain.JobTypeOffer
		in.TargetWorkerID = &target.ID
	}, "2026-05-10")

	_, err := e.apps.Apply(ctx, other.ID, j.ID, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	app, err := e.apps.Apply(ctx, target.ID, j.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, app.Status)
}

func TestApply_LimitedWorkedNeedsHistory(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	switchDays := 3
	limited := e.job(t, f, func(in *application.JobInput) {
		in.JobType = domain.JobTypeLimitedWorked
		in.SwitchToNormalDays = &switchDays
	}, "2026-05-20")
	u := e.worker(t, "hanako@example.com")

	_, err := e.apps.Apply(ctx, u.ID, limited.ID, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	normal := e.job(t, f, nil, "2026-05-10")
	_, err = e.apps.Apply(ctx, u.ID, normal.ID, 0)
	require.NoError(t, err)

	_, err = e.apps.Apply(ctx, u.ID, limited.ID, 0)
	assert.NoError(t, err)
}

func TestApplyMultiple_ReportsEachDate(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, func(in *application.JobInput) { in.RecruitmentCount = 2 }, "2026-05-10", "2026-05-11")
	u := e.worker(t, "hanako@example.com")

	_, err := e.apps.Apply(ctx, u.ID, j.ID, j.WorkDates[0].ID)
	require.NoError(t, err)

	res, err := e.apps.ApplyMultiple(ctx, u.ID, j.ID, []uint{j.WorkDates[0].ID, j.WorkDates[1].ID})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "APP_DUPLICATE", res[0].Code)
	assert.Nil(t, res[0].Application)
	assert.Empty(t, res[1].Error)
	require.NotNil(t, res[1].Application)
}

func TestCancelByWorker_ReleasesSlot(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, nil, "2026-05-10")
	u := e.worker(t, "hanako@example.com")
	app, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	require.NoError(t, err)

	_, err = e.apps.CancelByWorker(ctx, u.ID+100, app.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cancelled, err := e.apps.CancelByWorker(ctx, u.ID, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, domain.CancelledByWorker, *cancelled.CancelledBy)

	wd := e.workDate(t, j.WorkDates[0].ID)
	assert.Zero(t, wd.AppliedCount)
	assert.Zero(t, wd.MatchedCount)

	again, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, app.ID, again.ID)
	assert.Equal(t, domain.StatusScheduled, again.Status)
}

func TestCancelByWorker_AfterStartRefused(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, nil, "2026-05-10")
	u := e.worker(t, "hanako@example.com")
	app, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	require.NoError(t, err)

	e.clock.Set(jstAt(t, "2026-05-10 09:00"))
	_, err = e.apps.CancelByWorker(ctx, u.ID, app.ID)
	assert.Equal(t, "APP_ALREADY_STARTED", appCode(t, err))
}

func TestUpdateStatusByFacility_InterviewFlow(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	other := e.facility(t, "")
	j := e.job(t, f, func(in *application.JobInput) { in.RequiresInterview = true }, "2026-05-10")
	u := e.worker(t, "hanako@example.com")
	app, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	require.NoError(t, err)

	_, err = e.apps.UpdateStatusByFacility(ctx, application.FacilityActor(9, other.ID), app.ID, domain.StatusScheduled)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.apps.UpdateStatusByFacility(ctx, application.FacilityActor(1, f.ID), app.ID, domain.StatusCompletedRated)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, err := e.apps.UpdateStatusByFacility(ctx, application.FacilityActor(1, f.ID), app.ID, domain.StatusScheduled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, got.Status)
	assert.Equal(t, 1, e.workDate(t, j.WorkDates[0].ID).MatchedCount)
}

func TestListForWorker_AdvancesStartedShifts(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, nil, "2026-05-10")
	u := e.worker(t, "hanako@example.com")
	_, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	require.NoError(t, err)

	e.clock.Set(jstAt(t, "2026-05-10 09:30"))
	list, err := e.apps.ListForWorker(ctx, u.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusWorking, list[0].Status)

	job, err := e.repos.Jobs.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobWorking, job.Status)
}
