package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func intPtr(v int) *int { return &v }

func TestJobBatch_SplitsDueDatesOfLimitedJob(t *testing.T) {
	e := newEnv(t, "2025-06-02 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, func(in *application.JobInput) {
		in.JobType = domain.JobTypeLimitedWorked
		in.SwitchToNormalDays = intPtr(2)
	}, "2025-06-03", "2025-06-10")

	res := application.NewJobBatch(e.repos, e.clock, e.logger).Run(ctx)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.ChildJobsCreated)
	assert.Zero(t, res.LimitedJobsSwitched)

	parent, err := e.repos.Jobs.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeLimitedWorked, parent.JobType)
	require.Len(t, parent.WorkDates, 1)
	assert.Equal(t, "2025-06-10", domain.JSTDateString(parent.WorkDates[0].WorkDate))

	all, err := e.repos.Jobs.ListByFacility(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, job := range all {
		if job.ID == j.ID {
			continue
		}
		assert.Equal(t, domain.JobTypeNormal, job.JobType)
		require.NotNil(t, job.ParentJobID)
		assert.Equal(t, j.ID, *job.ParentJobID)
	}

	again := application.NewJobBatch(e.repos, e.clock, e.logger).Run(ctx)
	assert.Zero(t, again.ChildJobsCreated)
}

func TestJobBatch_SwitchesWhenEveryDateIsDue(t *testing.T) {
	e := newEnv(t, "2025-06-02 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, func(in *application.JobInput) {
		in.JobType = domain.JobTypeLimitedFavorite
		in.SwitchToNormalDays = intPtr(3)
	}, "2025-06-04")

	res := application.NewJobBatch(e.repos, e.clock, e.logger).Run(ctx)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.LimitedJobsSwitched)
	assert.Zero(t, res.ChildJobsCreated)

	got, err := e.repos.Jobs.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeNormal, got.JobType)
}

func TestJobBatch_ExpiresOffers(t *testing.T) {
	e := newEnv(t, "2025-06-02 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	u := e.worker(t, "offer@example.com")
	expires := jstAt(t, "2025-06-03 12:00")
	j := e.job(t, f, func(in *application.JobInput) {
		in.JobType = domain.JobTypeOffer
		in.TargetWorkerID = &u.ID
		in.OfferExpiresAt = &expires
	}, "2025-06-10")

	batch := application.NewJobBatch(e.repos, e.clock, e.logger)
	assert.Zero(t, batch.Run(ctx).OffersExpired)

	e.clock.Set(jstAt(t, "2025-06-03 12:00"))
	res := batch.Run(ctx)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.OffersExpired)

	got, err := e.repos.Jobs.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStopped, got.Status)
}
