package services

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	_ "github.com/mattn/go-sqlite3"
	"github.com/qingbolan/github-yearbook/internal/models"
	"github.com/qingbolan/github-yearbook/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	t.Run("Plain year", func(t *testing.T) {
		start, end, err := ParsePeriod("2023")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("Named periods end today", func(t *testing.T) {
		for _, period := range []string{"pastyear", "pastmonth", "pastweek"} {
			start, end, err := ParsePeriod(period)
			require.NoError(t, err, period)
			assert.True(t, start.Before(end), period)
			assert.WithinDuration(t, time.Now().UTC(), end, 25*time.Hour, period)
		}
	})

	t.Run("Invalid input", func(t *testing.T) {
		for _, period := range []string{"", "23", "20235", "latest", "2023-01"} {
			_, _, err := ParsePeriod(period)
			assert.ErrorIs(t, err, ErrInvalidPeriod, period)
		}
	})
}

func days(counts ...int) []models.DailyContribution {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.DailyContribution, len(counts))
	for i, c := range counts {
		out[i] = models.DailyContribution{
			Date:  base.AddDate(0, 0, i).Format("2006-01-02"),
			Count: c,
		}
	}
	return out
}

func TestComputeStreaks(t *testing.T) {
	cases := []struct {
		name    string
		daily   []models.DailyContribution
		longest int
		current int
	}{
		{"Empty", nil, 0, 0},
		{"All active", days(1, 2, 3), 3, 3},
		{"Gap resets", days(1, 1, 0, 1, 1, 1), 3, 3},
		{"Current ends mid-range", days(1, 1, 1, 1, 0), 4, 0},
		{"Single trailing day", days(0, 0, 5), 1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			longest, current := computeStreaks(tc.daily)
			assert.Equal(t, tc.longest, longest)
			assert.Equal(t, tc.current, current)
		})
	}
}

func TestCountActiveDays(t *testing.T) {
	assert.Equal(t, 0, countActiveDays(nil))
	assert.Equal(t, 2, countActiveDays(days(3, 0, 0, 7)))
}

func TestComputeHistograms(t *testing.T) {
	// 2024-01-01 is a Monday.
	daily := days(4, 2, 0, 0, 0, 0, 0, 1)

	weekday, weekly := computeHistograms(daily)

	assert.Equal(t, 4, weekday[int(time.Monday)])
	assert.Equal(t, 2, weekday[int(time.Tuesday)])
	assert.Equal(t, 0, weekday[int(time.Sunday)])

	// The first seven days fall in ISO week 2024-W01, the eighth in W02.
	assert.Equal(t, 6, weekly["2024-W01"])
	assert.Equal(t, 1, weekly["2024-W02"])
}

func TestBuildYearbookStats(t *testing.T) {
	agg := &models.ContributionAggregate{
		Username:           "octocat",
		TotalContributions: 9,
		TotalCommits:       7,
		DailyContributions: days(4, 2, 0, 3),
		RepositoryContributions: []*models.RepositoryContribution{
			{FullName: "octocat/tool", Count: 7},
		},
		Advisories: []string{"test advisory"},
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	stats := buildYearbookStats("requested-name", 2024, agg, start, end)

	assert.Equal(t, "octocat", stats.Username, "the resolved login wins over the requested one")
	assert.Equal(t, 2024, stats.Year)
	assert.NotEmpty(t, stats.ID)
	assert.Equal(t, 9, stats.TotalContributions)
	assert.Equal(t, 2, stats.LongestStreak)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 3, stats.ActiveDays)
	assert.Equal(t, 1, stats.RepoCount)
	assert.Equal(t, []string{"test advisory"}, stats.Advisories)
	assert.False(t, stats.Cached)
}

func newStatsRepo(t *testing.T) *repositories.StatsRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return repositories.NewStatsRepository(db)
}

func TestGetStatsCaching(t *testing.T) {
	lister := &fakeEventLister{
		lastPage: 1,
		pages: map[int][]*github.Event{
			1: {pushEvent(t, "octocat/tool", time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), "c1", "c2")},
		},
	}
	service := NewYearbookService(
		newStatsRepo(t),
		nil,
		&EventsService{events: lister, maxPages: 5},
		nil,
		nil,
		time.Hour,
		16,
	)

	req := StatsRequest{Username: "octocat", Period: "2024"}

	first, err := service.GetStats(context.Background(), req, nil)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 2, first.TotalCommits)
	fetches := lister.pageCount

	t.Run("Second lookup is served from cache", func(t *testing.T) {
		second, err := service.GetStats(context.Background(), req, nil)
		require.NoError(t, err)
		assert.True(t, second.Cached)
		assert.Equal(t, first.TotalCommits, second.TotalCommits)
		assert.Equal(t, fetches, lister.pageCount, "cache hit must not refetch")
	})

	t.Run("Force refresh bypasses the cache", func(t *testing.T) {
		refreshed, err := service.GetStats(context.Background(), StatsRequest{
			Username:     "octocat",
			Period:       "2024",
			ForceRefresh: true,
		}, nil)
		require.NoError(t, err)
		assert.False(t, refreshed.Cached)
		assert.Greater(t, lister.pageCount, fetches)
	})

	t.Run("Custom ranges are never cached", func(t *testing.T) {
		before := lister.pageCount
		custom, err := service.GetStats(context.Background(), StatsRequest{
			Username:  "octocat",
			Period:    "2024",
			StartDate: "2024-02-01",
			EndDate:   "2024-02-28",
		}, nil)
		require.NoError(t, err)
		assert.False(t, custom.Cached)
		assert.Greater(t, lister.pageCount, before)
	})
}

func TestResolveWindow(t *testing.T) {
	service := &YearbookService{}

	t.Run("Year periods are cacheable", func(t *testing.T) {
		_, _, year, cacheable, err := service.resolveWindow(StatsRequest{Period: "2022"})
		require.NoError(t, err)
		assert.True(t, cacheable)
		assert.Equal(t, 2022, year)
	})

	t.Run("Named periods are not cacheable", func(t *testing.T) {
		_, _, _, cacheable, err := service.resolveWindow(StatsRequest{Period: "pastweek"})
		require.NoError(t, err)
		assert.False(t, cacheable)
	})

	t.Run("Custom ranges bypass the cache", func(t *testing.T) {
		start, end, year, cacheable, err := service.resolveWindow(StatsRequest{
			Period:    "2024",
			StartDate: "2024-02-01",
			EndDate:   "2024-03-01",
		})
		require.NoError(t, err)
		assert.False(t, cacheable)
		assert.Equal(t, 2024, year)
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("Half-open custom range is rejected", func(t *testing.T) {
		_, _, _, _, err := service.resolveWindow(StatsRequest{Period: "2024", StartDate: "2024-02-01"})
		assert.Error(t, err)
	})

	t.Run("Inverted custom range is rejected", func(t *testing.T) {
		_, _, _, _, err := service.resolveWindow(StatsRequest{
			Period:    "2024",
			StartDate: "2024-03-01",
			EndDate:   "2024-02-01",
		})
		assert.Error(t, err)
	})
}
