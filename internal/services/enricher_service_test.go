package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/qingbolan/github-yearbook/internal/githubclient"
	"github.com/qingbolan/github-yearbook/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistoryAPI struct {
	samples map[string][]githubclient.CommitSample
}

func (f *fakeHistoryAPI) FetchCommitHistory(ctx context.Context, repos []githubclient.RepoRef, authorID string, since, until time.Time) (map[string][]githubclient.CommitSample, error) {
	return f.samples, nil
}

type fakeDetailAPI struct {
	calls   int
	fail    bool
	commits map[string]*github.RepositoryCommit
}

func (f *fakeDetailAPI) GetCommit(ctx context.Context, owner, repo, sha string, opts *github.ListOptions) (*github.RepositoryCommit, *github.Response, error) {
	f.calls++
	if f.fail {
		return nil, nil, fmt.Errorf("boom")
	}
	commit, ok := f.commits[sha]
	if !ok {
		return nil, nil, fmt.Errorf("unknown sha %s", sha)
	}
	return commit, nil, nil
}

type fakeStatsStore struct {
	entries map[string]*models.CommitStatsEntry
	upserts int
}

func (f *fakeStatsStore) GetByRepository(digest, repoFullName string) (map[string]*models.CommitStatsEntry, error) {
	out := map[string]*models.CommitStatsEntry{}
	for sha, entry := range f.entries {
		if entry.RepoFullName == repoFullName {
			out[sha] = entry
		}
	}
	return out, nil
}

func (f *fakeStatsStore) UpsertEntry(digest, username string, entry *models.CommitStatsEntry) error {
	f.upserts++
	if f.entries == nil {
		f.entries = map[string]*models.CommitStatsEntry{}
	}
	f.entries[entry.SHA] = entry
	return nil
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func restCommit(additions, deletions int, files ...*github.CommitFile) *github.RepositoryCommit {
	return &github.RepositoryCommit{
		Stats: &github.CommitStats{Additions: intPtr(additions), Deletions: intPtr(deletions)},
		Files: files,
	}
}

func newTestEnricher(store commitStatsStore) *EnricherService {
	return NewEnricherService(true, 5, NewLanguageTable(DefaultLanguageMapping()), store, 1000)
}

func TestEnrichCacheHit(t *testing.T) {
	store := &fakeStatsStore{entries: map[string]*models.CommitStatsEntry{
		"abc": {
			RepoFullName: "octocat/tool",
			SHA:          "abc",
			Additions:    10,
			Deletions:    4,
			Files: []models.CommitFileStat{
				{Filename: "main.go", Additions: 8, Deletions: 2},
				{Filename: "README.md", Additions: 2, Deletions: 2},
			},
		},
	}}
	history := &fakeHistoryAPI{samples: map[string][]githubclient.CommitSample{
		"octocat/tool": {{SHA: "abc", Additions: 10, Deletions: 4}},
	}}
	rest := &fakeDetailAPI{}

	result, err := newTestEnricher(store).Enrich(context.Background(), history, rest, "tok", "octocat", "node-1",
		[]githubclient.RepoRef{{Owner: "octocat", Name: "tool"}}, time.Now().AddDate(-1, 0, 0), time.Now(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, rest.calls, "cache hit must not reach the REST API")
	assert.Equal(t, 1, result.CacheHits)
	assert.Equal(t, 0, result.CacheMisses)
	assert.Equal(t, 10, result.Additions)
	assert.Equal(t, 4, result.Deletions)
	assert.Equal(t, 10, result.LinesByLanguage["Go"])
	assert.Equal(t, 4, result.LinesByLanguage["Markdown"])
}

func TestEnrichCacheMissFetchesAndStores(t *testing.T) {
	store := &fakeStatsStore{}
	history := &fakeHistoryAPI{samples: map[string][]githubclient.CommitSample{
		"octocat/tool": {{SHA: "def", Additions: 7, Deletions: 1}},
	}}
	rest := &fakeDetailAPI{commits: map[string]*github.RepositoryCommit{
		"def": restCommit(7, 1, &github.CommitFile{
			Filename:  strPtr("parser.go"),
			Additions: intPtr(7),
			Deletions: intPtr(1),
		}),
	}}

	result, err := newTestEnricher(store).Enrich(context.Background(), history, rest, "tok", "octocat", "node-1",
		[]githubclient.RepoRef{{Owner: "octocat", Name: "tool"}}, time.Now().AddDate(-1, 0, 0), time.Now(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, rest.calls)
	assert.Equal(t, 1, result.CacheMisses)
	assert.Equal(t, 1, store.upserts, "fetched stats must be written back")
	assert.Equal(t, 8, result.LinesByLanguage["Go"])

	entry, ok := store.entries["def"]
	require.True(t, ok)
	assert.Equal(t, "octocat/tool", entry.RepoFullName)
	assert.Equal(t, 7, entry.Additions)
}

func TestEnrichRESTFailureFallsBackToSamples(t *testing.T) {
	store := &fakeStatsStore{}
	history := &fakeHistoryAPI{samples: map[string][]githubclient.CommitSample{
		"octocat/tool": {{SHA: "ghi", Additions: 3, Deletions: 2}},
	}}
	rest := &fakeDetailAPI{fail: true}

	result, err := newTestEnricher(store).Enrich(context.Background(), history, rest, "tok", "octocat", "node-1",
		[]githubclient.RepoRef{{Owner: "octocat", Name: "tool"}}, time.Now().AddDate(-1, 0, 0), time.Now(), nil)
	require.NoError(t, err, "commit detail failures must degrade, not abort")

	assert.Equal(t, 3, result.Additions)
	assert.Equal(t, 2, result.Deletions)
	assert.Empty(t, result.LinesByLanguage, "language attribution is lost on the degraded path")
	assert.Equal(t, 0, store.upserts)
	require.Len(t, result.Commits, 1)
	assert.Equal(t, "ghi", result.Commits[0].SHA)
}

func TestEnrichSplitsBatches(t *testing.T) {
	// Eight repositories with a batch size cap of five means two history
	// queries.
	var refs []githubclient.RepoRef
	samples := map[string][]githubclient.CommitSample{}
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("repo%d", i)
		refs = append(refs, githubclient.RepoRef{Owner: "octocat", Name: name})
		samples["octocat/"+name] = nil
	}

	history := &countingHistoryAPI{samples: samples}
	rest := &fakeDetailAPI{}

	_, err := newTestEnricher(&fakeStatsStore{}).Enrich(context.Background(), history, rest, "tok", "octocat", "node-1",
		refs, time.Now().AddDate(-1, 0, 0), time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, history.calls)
}

type countingHistoryAPI struct {
	samples map[string][]githubclient.CommitSample
	calls   int
}

func (f *countingHistoryAPI) FetchCommitHistory(ctx context.Context, repos []githubclient.RepoRef, authorID string, since, until time.Time) (map[string][]githubclient.CommitSample, error) {
	f.calls++
	return f.samples, nil
}
