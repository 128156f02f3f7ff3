package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func workDateIDs(j *domain.Job) map[string]uint {
	out := make(map[string]uint, len(j.WorkDates))
	for _, wd := range j.WorkDates {
		out[domain.JSTDateString(wd.WorkDate)] = wd.ID
	}
	return out
}

func TestJobUpdate_SyncsWorkDates(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, func(in *application.JobInput) { in.RecruitmentCount = 2 }, "2026-05-10", "2026-05-11", "2026-05-12")
	ids := workDateIDs(j)
	u := e.worker(t, "hanako@example.com")
	_, err := e.apps.Apply(ctx, u.ID, j.ID, ids["2026-05-11"])
	require.NoError(t, err)

	in := application.JobInput{
		Title: "日勤介護スタッフ", StartTime: "09:00", EndTime: "18:00", BreakMinutes: 60,
		HourlyWage: 1300, RecruitmentCount: 2,
		WorkDates: []string{"2026-05-10", "2026-05-11", "2026-05-13"},
	}
	updated, err := e.jobs.Update(ctx, application.FacilityActor(1, f.ID), j.ID, in)
	require.NoError(t, err)

	got, err := e.repos.Jobs.Get(ctx, updated.ID)
	require.NoError(t, err)
	after := workDateIDs(got)
	assert.Len(t, after, 3)
	assert.Equal(t, ids["2026-05-10"], after["2026-05-10"])
	assert.Equal(t, ids["2026-05-11"], after["2026-05-11"])
	assert.NotContains(t, after, "2026-05-12")
	assert.Contains(t, after, "2026-05-13")

	_, err = e.repos.Jobs.GetWorkDate(ctx, ids["2026-05-12"])
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, e.workDate(t, ids["2026-05-11"]).AppliedCount)
}

func TestJobUpdate_KeepsDatesWithApplications(t *testing.T) {
	e := newEnv(t, "2026-05-01 10:00")
	ctx := context.Background()
	f := e.facility(t, "")
	j := e.job(t, f, nil, "2026-05-10", "2026-05-11")
	ids := workDateIDs(j)
	u := e.worker(t, "hanako@example.com")
	_, err := e.apps.Apply(ctx, u.ID, j.ID, ids["2026-05-11"])
	require.NoError(t, err)

	in := application.JobInput{
		Title: "日勤介護スタッフ", StartTime: "09:00", EndTime: "18:00", BreakMinutes: 60,
		HourlyWage: 1300, RecruitmentCount: 1, WorkDates: []string{"2026-05-10"},
	}
	_, err = e.jobs.Update(ctx, application.FacilityActor(1, f.ID), j.ID, in)
	assert.Equal(t, "JOB_DATE_HAS_APPLICATIONS", appCode(t, err))
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := e.repos.Jobs.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Len(t, got.WorkDates, 2)
}
