package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/qingbolan/github-yearbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventLister serves canned event pages and records how far pagination got.
type fakeEventLister struct {
	pages     map[int][]*github.Event
	lastPage  int
	failPage  int
	failWith  error
	pageCount int
}

func (f *fakeEventLister) ListEventsPerformedByUser(ctx context.Context, user string, publicOnly bool, opts *github.ListOptions) ([]*github.Event, *github.Response, error) {
	f.pageCount++
	if f.failPage != 0 && opts.Page == f.failPage {
		return nil, nil, f.failWith
	}

	events := f.pages[opts.Page]
	resp := &github.Response{}
	if opts.Page < f.lastPage {
		resp.NextPage = opts.Page + 1
	}
	return events, resp, nil
}

func pushEvent(t *testing.T, repo string, created time.Time, shas ...string) *github.Event {
	t.Helper()

	payload := map[string]interface{}{
		"size": len(shas),
	}
	var commits []map[string]string
	for _, sha := range shas {
		commits = append(commits, map[string]string{"sha": sha})
	}
	payload["commits"] = commits

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	rawMsg := json.RawMessage(raw)

	eventType := "PushEvent"
	return &github.Event{
		Type:       &eventType,
		CreatedAt:  &github.Timestamp{Time: created},
		Repo:       &github.Repository{Name: &repo},
		RawPayload: &rawMsg,
	}
}

func TestEventsFetchContributions(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	watchType := "WatchEvent"
	fake := &fakeEventLister{
		lastPage: 2,
		pages: map[int][]*github.Event{
			1: {
				pushEvent(t, "octocat/tool", time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC), "a1", "a2"),
				{Type: &watchType, CreatedAt: &github.Timestamp{Time: time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)}},
				// Outside the window, must be ignored.
				pushEvent(t, "octocat/tool", time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), "old"),
			},
			2: {
				pushEvent(t, "octocat/site", time.Date(2024, 6, 5, 18, 0, 0, 0, time.UTC), "b1"),
			},
		},
	}
	service := &EventsService{events: fake, maxPages: 10}

	agg, err := service.FetchContributions(context.Background(), "octocat", start, end, nil)
	require.NoError(t, err)

	t.Run("Only in-window push events count", func(t *testing.T) {
		assert.Equal(t, 3, agg.TotalCommits)
		assert.Equal(t, agg.TotalCommits, agg.TotalContributions)
		assert.Len(t, agg.Commits, 3)
	})

	t.Run("Daily series covers the window with zeros", func(t *testing.T) {
		assert.Len(t, agg.DailyContributions, 30)
		byDate := map[string]int{}
		for _, day := range agg.DailyContributions {
			byDate[day.Date] = day.Count
		}
		assert.Equal(t, 3, byDate["2024-06-05"])
		assert.Equal(t, 0, byDate["2024-06-06"])
	})

	t.Run("Repositories sorted by commit count", func(t *testing.T) {
		require.Len(t, agg.RepositoryContributions, 2)
		assert.Equal(t, "octocat/tool", agg.RepositoryContributions[0].FullName)
		assert.Equal(t, 2, agg.RepositoryContributions[0].Count)
		assert.Equal(t, "octocat", agg.RepositoryContributions[0].Owner)
	})

	t.Run("Window advisory is attached", func(t *testing.T) {
		require.Len(t, agg.Advisories, 1)
		assert.Contains(t, agg.Advisories[0], "Without a token")
	})
}

func TestEventsFetchContributionsUnknownUser(t *testing.T) {
	fake := &fakeEventLister{
		failPage: 1,
		failWith: &github.ErrorResponse{Response: &http.Response{StatusCode: http.StatusNotFound}},
	}
	service := &EventsService{events: fake, maxPages: 10}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := service.FetchContributions(context.Background(), "ghost", start, start, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEventsFetchContributionsTruncatesOnMidPageFailure(t *testing.T) {
	fake := &fakeEventLister{
		lastPage: 3,
		pages: map[int][]*github.Event{
			1: {pushEvent(t, "octocat/tool", time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), "a1")},
		},
		failPage: 2,
		failWith: fmt.Errorf("boom"),
	}
	service := &EventsService{events: fake, maxPages: 10}

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	agg, err := service.FetchContributions(context.Background(), "octocat", start, end, nil)
	require.NoError(t, err, "mid-pagination errors must not fail the request")
	assert.Equal(t, 1, agg.TotalCommits)
	assert.Equal(t, 2, fake.pageCount)
}

func TestEventsPaginationRespectsMaxPages(t *testing.T) {
	fake := &fakeEventLister{lastPage: 100}
	service := &EventsService{events: fake, maxPages: 3}

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	agg, err := service.FetchContributions(context.Background(), "octocat", start, start, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, fake.pageCount)
	assert.Equal(t, 0, agg.TotalCommits)
	assert.IsType(t, []*models.RepositoryContribution(nil), agg.RepositoryContributions)
}
