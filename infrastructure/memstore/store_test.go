package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseJSTDate(s)
	require.NoError(t, err)
	return d
}

func seedJob(t *testing.T, repos application.Repositories, status domain.JobStatus, typ domain.JobType, pref string, dates ...string) *domain.Job {
	t.Helper()
	ctx := context.Background()
	f := &domain.Facility{Name: "さくら苑", Prefecture: pref}
	require.NoError(t, repos.Facilities.Create(ctx, f))
	j := &domain.Job{
		FacilityID: f.ID, Status: status, JobType: typ, Title: "日勤",
		StartTime: "09:00", EndTime: "18:00", HourlyWage: 1200, Prefecture: pref,
	}
	for _, d := range dates {
		j.WorkDates = append(j.WorkDates, domain.JobWorkDate{WorkDate: day(t, d), RecruitmentCount: 2})
	}
	require.NoError(t, repos.Jobs.Create(ctx, j))
	return j
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := New()
	repos := s.Repositories()
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repos.Users.Create(ctx, &domain.User{Email: "a@example.com", Name: "A"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repos.Users.FindByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithinTx_NestedJoinsOuter(t *testing.T) {
	s := New()
	repos := s.Repositories()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.WithinTx(ctx, func(ctx context.Context) error {
			return repos.Users.Create(ctx, &domain.User{Email: "b@example.com", Name: "B"})
		}))
		return errors.New("outer fails")
	})
	require.Error(t, err)

	_, err = repos.Users.FindByEmail(ctx, "b@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUsers_EmailUniqueIgnoringCase(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()

	require.NoError(t, repos.Users.Create(ctx, &domain.User{Email: "Worker@Example.com", Name: "W"}))
	err := repos.Users.Create(ctx, &domain.User{Email: "worker@example.com", Name: "W2"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	u, err := repos.Users.FindByEmail(ctx, "WORKER@example.com")
	require.NoError(t, err)
	assert.Equal(t, "W", u.Name)
}

func TestJobs_GetPreloadsFacilityAndSortedDates(t *testing.T) {
	repos := New().Repositories()
	j := seedJob(t, repos, domain.JobPublished, domain.JobTypeNormal, "東京都", "2026-05-03", "2026-05-01")

	got, err := repos.Jobs.Get(context.Background(), j.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Facility)
	assert.Equal(t, "さくら苑", got.Facility.Name)
	require.Len(t, got.WorkDates, 2)
	assert.Equal(t, "2026-05-01", domain.JSTDateString(got.WorkDates[0].WorkDate))
}

func TestJobs_ListPublishedHidesOffersAndFilters(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	seedJob(t, repos, domain.JobPublished, domain.JobTypeNormal, "東京都", "2026-05-01")
	seedJob(t, repos, domain.JobPublished, domain.JobTypeOffer, "東京都", "2026-05-01")
	seedJob(t, repos, domain.JobDraft, domain.JobTypeNormal, "東京都", "2026-05-01")
	seedJob(t, repos, domain.JobPublished, domain.JobTypeNormal, "大阪府", "2026-05-02")

	all, total, err := repos.Jobs.ListPublished(ctx, application.JobFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	d := day(t, "2026-05-02")
	osaka, total, err := repos.Jobs.ListPublished(ctx, application.JobFilter{Date: &d})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "大阪府", osaka[0].Prefecture)

	tokyo, _, err := repos.Jobs.ListPublished(ctx, application.JobFilter{Prefecture: "東京都"})
	require.NoError(t, err)
	require.Len(t, tokyo, 1)
	assert.Equal(t, domain.JobTypeNormal, tokyo[0].JobType)
}

func TestJobs_AdjustCountsAndSaveKeepsCounters(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	j := seedJob(t, repos, domain.JobPublished, domain.JobTypeNormal, "東京都", "2026-05-01")
	wdID := j.WorkDates[0].ID

	require.NoError(t, repos.Jobs.AdjustWorkDateCounts(ctx, wdID, 1, 1))

	j.WorkDates[0].RecruitmentCount = 5
	require.NoError(t, repos.Jobs.Save(ctx, j))

	wd, err := repos.Jobs.GetWorkDate(ctx, wdID)
	require.NoError(t, err)
	assert.Equal(t, 1, wd.AppliedCount)
	assert.Equal(t, 1, wd.MatchedCount)
	assert.Equal(t, 5, wd.RecruitmentCount)
	require.NotNil(t, wd.Job)
	assert.Nil(t, wd.Job.WorkDates)
}

func TestApplications_UniquePerWorkerAndDate(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	j := seedJob(t, repos, domain.JobPublished, domain.JobTypeNormal, "東京都", "2026-05-01")
	u := &domain.User{Email: "w@example.com", Name: "W"}
	require.NoError(t, repos.Users.Create(ctx, u))

	a := &domain.Application{WorkDateID: j.WorkDates[0].ID, UserID: u.ID, Status: domain.StatusApplied}
	require.NoError(t, repos.Applications.Create(ctx, a))
	err := repos.Applications.Create(ctx, &domain.Application{WorkDateID: j.WorkDates[0].ID, UserID: u.ID, Status: domain.StatusApplied})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := repos.Applications.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, j.FacilityID, got.FacilityID())
	assert.Equal(t, "W", got.User.Name)

	n, err := repos.Applications.TransitionMany(ctx, []uint{a.ID}, domain.StatusApplied, domain.StatusScheduled)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = repos.Applications.TransitionMany(ctx, []uint{a.ID}, domain.StatusApplied, domain.StatusScheduled)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAttendances_FindOpenReturnsLatest(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	base := day(t, "2026-05-01")

	first := &domain.Attendance{UserID: 1, FacilityID: 1, Status: domain.AttendanceCheckedIn, CheckInTime: base.Add(9 * time.Hour)}
	second := &domain.Attendance{UserID: 1, FacilityID: 1, Status: domain.AttendanceCheckedIn, CheckInTime: base.Add(20 * time.Hour)}
	require.NoError(t, repos.Attendances.Create(ctx, first))
	require.NoError(t, repos.Attendances.Create(ctx, second))

	open, err := repos.Attendances.FindOpen(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, open.ID)

	_, err = repos.Attendances.FindOpen(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := repos.Attendances.ListByFacilityBetween(ctx, 1, base, base.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestModifications_OnePerAttendance(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	a := &domain.Attendance{UserID: 1, FacilityID: 7, Status: domain.AttendanceCheckedOut, CheckInTime: time.Now()}
	require.NoError(t, repos.Attendances.Create(ctx, a))

	m := &domain.AttendanceModificationRequest{AttendanceID: a.ID, Status: domain.ModificationPending}
	require.NoError(t, repos.Modifications.Create(ctx, m))
	err := repos.Modifications.Create(ctx, &domain.AttendanceModificationRequest{AttendanceID: a.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)

	n, err := repos.Modifications.CountByFacility(ctx, 7, []domain.ModificationStatus{domain.ModificationPending})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repos.Attendances.Get(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Modification)
	assert.Equal(t, m.ID, got.Modification.ID)
}
