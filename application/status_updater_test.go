package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func TestStatusUpdater_StartsAndCompletes(t *testing.T) {
	e := newEnv(t, "2025-06-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, nil, "2025-06-02")
	u := e.worker(t, "hanako@example.com")

	app, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
	require.NoError(t, err)
	require.Equal(t, domain.StatusScheduled, app.Status)

	res, err := e.statuses.Run(ctx, application.StatusScope{})
	require.NoError(t, err)
	assert.Zero(t, res.Started)

	e.clock.Set(jstAt(t, "2025-06-02 09:30"))
	res, err = e.statuses.Run(ctx, application.StatusScope{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Started)
	assert.EqualValues(t, 1, res.JobsMoved)

	got, err := e.repos.Applications.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWorking, got.Status)
	job, err := e.repos.Jobs.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobWorking, job.Status)

	e.clock.Set(jstAt(t, "2025-06-02 18:30"))
	res, err = e.statuses.Run(ctx, application.StatusScope{})
	require.NoError(t, err)
	assert.Zero(t, res.Completed, "reviews are still pending")

	got.WorkerReviewStatus = domain.ReviewCompleted
	got.FacilityReviewStatus = domain.ReviewCompleted
	require.NoError(t, e.repos.Applications.Save(ctx, got))

	res, err = e.statuses.Run(ctx, application.StatusScope{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Completed)

	got, err = e.repos.Applications.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompletedRated, got.Status)

	again, err := e.statuses.Run(ctx, application.StatusScope{})
	require.NoError(t, err)
	assert.Equal(t, application.StatusUpdateResult{}, again)
}

func TestStatusUpdater_ScopeLimitsToWorker(t *testing.T) {
	e := newEnv(t, "2025-06-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, func(in *application.JobInput) { in.RecruitmentCount = 2 }, "2025-06-02")
	first := e.worker(t, "first@example.com")
	second := e.worker(t, "second@example.com")
	for _, u := range []*domain.User{first, second} {
		_, err := e.apps.Apply(ctx, u.ID, j.ID, 0)
		require.NoError(t, err)
	}

	e.clock.Set(jstAt(t, "2025-06-02 09:30"))
	res, err := e.statuses.Run(ctx, application.StatusScope{UserID: first.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Started)

	res, err = e.statuses.Run(ctx, application.StatusScope{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Started)
}
