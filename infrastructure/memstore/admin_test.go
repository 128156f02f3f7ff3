package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftmatch/domain"
)

func TestMinimumWages_DeleteScheduledKeepsActive(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	active := &domain.MinimumWage{Prefecture: "東京都", HourlyWage: 1163, EffectiveFrom: day(t, "2025-10-01")}
	future := &domain.MinimumWage{Prefecture: "東京都", HourlyWage: 1226, EffectiveFrom: day(t, "2026-10-01")}
	other := &domain.MinimumWage{Prefecture: "大阪府", HourlyWage: 1177, EffectiveFrom: day(t, "2026-10-01")}
	for _, w := range []*domain.MinimumWage{active, future, other} {
		require.NoError(t, repos.MinimumWages.Create(ctx, w))
	}

	cutoff := day(t, "2026-04-02").Add(-time.Second)
	require.NoError(t, repos.MinimumWages.DeleteScheduled(ctx, []string{"東京都"}, cutoff))

	rows, err := repos.MinimumWages.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "大阪府", rows[0].Prefecture)
	assert.Equal(t, active.ID, rows[1].ID)

	n, err := repos.MinimumWages.DeleteIfScheduled(ctx, active.ID, cutoff)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMinimumWages_HistoryNewestFirst(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	now := day(t, "2026-04-01")
	require.NoError(t, repos.MinimumWages.CreateHistory(ctx, []domain.MinimumWageHistory{
		{Prefecture: "東京都", HourlyWage: 1113, ArchivedAt: now.Add(-48 * time.Hour)},
		{Prefecture: "東京都", HourlyWage: 1163, ArchivedAt: now},
		{Prefecture: "大阪府", HourlyWage: 1114, ArchivedAt: now},
	}))

	h, err := repos.MinimumWages.ListHistory(ctx, "東京都", 10)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, 1163, h[0].HourlyWage)

	all, err := repos.MinimumWages.ListHistory(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBanks_SearchByKanaVariant(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	require.NoError(t, repos.Banks.UpsertBanks(ctx, []domain.Bank{
		{Code: "0005", Name: "三菱ＵＦＪ", Kana: "ミツビシユ－エフジエイ", Hira: "みつびしゆ－えふじえい"},
		{Code: "0009", Name: "三井住友", Kana: "ミツイスミトモ", Hira: "みついすみとも"},
	}))
	require.NoError(t, repos.Banks.UpsertBranches(ctx, []domain.Branch{
		{BankCode: "0009", Code: "001", Name: "東京営業部", Kana: "トウキヨウ", Hira: "とうきよう"},
		{BankCode: "0009", Code: "100", Name: "本店", Kana: "ホンテン", Hira: "ほんてん"},
	}))

	banks, err := repos.Banks.SearchBanks(ctx, domain.SearchVariants("みつい"), 10)
	require.NoError(t, err)
	require.Len(t, banks, 1)
	assert.Equal(t, "0009", banks[0].Code)

	all, err := repos.Banks.SearchBranches(ctx, "0009", nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repos.Banks.UpsertBranches(ctx, []domain.Branch{
		{BankCode: "0009", Code: "100", Name: "本店営業部", Kana: "ホンテンエイギヨウブ"},
	}))
	hits, err := repos.Banks.SearchBranches(ctx, "0009", domain.SearchVariants("ホンテン"), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "本店営業部", hits[0].Name)
}

func TestLandingPages_NumberUnique(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()
	require.NoError(t, repos.LandingPages.Create(ctx, &domain.LandingPage{LPNumber: 2, Name: "看護"}))
	require.NoError(t, repos.LandingPages.Create(ctx, &domain.LandingPage{LPNumber: 1, Name: "介護"}))
	assert.ErrorIs(t, repos.LandingPages.Create(ctx, &domain.LandingPage{LPNumber: 1}), domain.ErrConflict)

	all, err := repos.LandingPages.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].LPNumber)

	some, err := repos.LandingPages.List(ctx, []int{2, 9})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "看護", some[0].Name)
}

func TestAnalytics_SummarizeCountsWindow(t *testing.T) {
	s := New()
	repos := s.Repositories()
	ctx := context.Background()
	from, to := day(t, "2026-04-01"), day(t, "2026-05-01")
	s.SetNow(func() time.Time { return from.Add(time.Hour) })

	j := seedJob(t, repos, domain.JobPublished, domain.JobTypeNormal, "東京都", "2026-04-10")
	for i, st := range []domain.ApplicationStatus{domain.StatusApplied, domain.StatusScheduled, domain.StatusCompletedRated} {
		u := &domain.User{Email: string(rune('a'+i)) + "@example.com", Name: "W"}
		require.NoError(t, repos.Users.Create(ctx, u))
		require.NoError(t, repos.Applications.Create(ctx, &domain.Application{WorkDateID: j.WorkDates[0].ID, UserID: u.ID, Status: st}))
	}
	require.NoError(t, repos.Reviews.Create(ctx, &domain.Review{FacilityID: j.FacilityID, UserID: 1, JobID: j.ID, ReviewerType: domain.ReviewerWorker, Rating: 4}))
	require.NoError(t, repos.Reviews.Create(ctx, &domain.Review{FacilityID: j.FacilityID, UserID: 2, JobID: j.ID, ReviewerType: domain.ReviewerWorker, Rating: 5}))

	m, err := repos.Analytics.Summarize(ctx, from, to)
	require.NoError(t, err)
	assert.EqualValues(t, 3, m.NewWorkers)
	assert.EqualValues(t, 1, m.NewFacilities)
	assert.EqualValues(t, 1, m.PublishedJobs)
	assert.EqualValues(t, 3, m.Applications)
	assert.EqualValues(t, 2, m.Matches)
	assert.EqualValues(t, 1, m.CompletedShifts)
	assert.InDelta(t, 2.0/3.0, m.MatchingRate, 1e-9)
	assert.InDelta(t, 4.5, m.AvgFacilityRating, 1e-9)
}
