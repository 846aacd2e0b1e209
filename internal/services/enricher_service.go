package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/qingbolan/github-yearbook/internal/githubclient"
	"github.com/qingbolan/github-yearbook/internal/models"
	"github.com/qingbolan/github-yearbook/pkg/logger"
	"golang.org/x/time/rate"
)

// commitHistoryAPI fetches commit hashes and coarse stats for a batch of
// repositories.
type commitHistoryAPI interface {
	FetchCommitHistory(ctx context.Context, repos []githubclient.RepoRef, authorID string, since, until time.Time) (map[string][]githubclient.CommitSample, error)
}

// commitDetailAPI is the slice of go-github's repositories service the
// enricher uses for per-commit file stats.
type commitDetailAPI interface {
	GetCommit(ctx context.Context, owner, repo, sha string, opts *github.ListOptions) (*github.RepositoryCommit, *github.Response, error)
}

// commitStatsStore is the persistence surface of the commit stats cache.
type commitStatsStore interface {
	GetByRepository(digest, repoFullName string) (map[string]*models.CommitStatsEntry, error)
	UpsertEntry(digest, username string, entry *models.CommitStatsEntry) error
}

// EnrichmentResult is the line-level view of a date window, computed from
// per-commit diffs.
type EnrichmentResult struct {
	Additions       int
	Deletions       int
	LinesByLanguage map[string]int
	CacheHits       int
	CacheMisses     int
	Commits         []models.CommitRecord
}

// EnricherService computes lines added/deleted and per-language LOC for
// repositories with attributable commits. Commit stats are immutable, so
// every REST fetch is cached per credential and consulted first on later
// runs. The whole component sits behind a configuration flag.
type EnricherService struct {
	enabled   bool
	batchSize int
	languages *LanguageTable
	store     commitStatsStore
	limiter   *rate.Limiter
}

// NewEnricherService creates a new EnricherService. rps throttles the REST
// fallback calls.
func NewEnricherService(enabled bool, batchSize int, languages *LanguageTable, store commitStatsStore, rps float64) *EnricherService {
	if batchSize <= 0 || batchSize > githubclient.HistoryBatchSize {
		batchSize = githubclient.HistoryBatchSize
	}
	if rps <= 0 {
		rps = 2
	}
	return &EnricherService{
		enabled:   enabled,
		batchSize: batchSize,
		languages: languages,
		store:     store,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Enabled reports whether the enricher should run at all.
func (s *EnricherService) Enabled() bool {
	return s.enabled
}

// Enrich fetches commit hashes for the given repositories (batched), then
// resolves each commit's line stats cache-first with a REST fallback.
// Failures below the batch query degrade the result instead of aborting it.
func (s *EnricherService) Enrich(ctx context.Context, history commitHistoryAPI, rest commitDetailAPI, token, username, authorID string, repos []githubclient.RepoRef, since, until time.Time, progress ProgressFunc) (*EnrichmentResult, error) {
	digest := models.TokenDigest(token)
	result := &EnrichmentResult{LinesByLanguage: make(map[string]int)}

	for offset := 0; offset < len(repos); offset += s.batchSize {
		batch := repos[offset:min(offset+s.batchSize, len(repos))]

		notify(progress, fmt.Sprintf("Scanning commits in repositories %d-%d of %d",
			offset+1, offset+len(batch), len(repos)))

		samples, err := history.FetchCommitHistory(ctx, batch, authorID, since, until)
		if err != nil {
			return nil, fmt.Errorf("commit history query failed: %w", err)
		}

		for _, ref := range batch {
			fullName := ref.Owner + "/" + ref.Name
			if err := s.enrichRepository(ctx, rest, digest, username, ref, samples[fullName], result); err != nil {
				return nil, err
			}
		}

		notify(progress, fmt.Sprintf("Commit stats: %d cached, %d fetched", result.CacheHits, result.CacheMisses))
	}

	return result, nil
}

func (s *EnricherService) enrichRepository(ctx context.Context, rest commitDetailAPI, digest, username string, ref githubclient.RepoRef, samples []githubclient.CommitSample, result *EnrichmentResult) error {
	fullName := ref.Owner + "/" + ref.Name

	cached, err := s.store.GetByRepository(digest, fullName)
	if err != nil {
		// A broken cache read is equivalent to a cold cache.
		logger.WithError(err).Warnf("commit stats cache read failed for %s", fullName)
		cached = map[string]*models.CommitStatsEntry{}
	}

	for _, sample := range samples {
		if entry, ok := cached[sample.SHA]; ok {
			result.CacheHits++
			s.accumulate(entry, sample, fullName, result)
			continue
		}

		result.CacheMisses++
		entry, err := s.fetchCommitDetail(ctx, rest, ref, sample.SHA)
		if err != nil {
			// Degraded path: keep the coarse numbers the batch query
			// reported; language attribution is lost for this commit.
			logger.WithError(err).Warnf("commit detail fetch failed for %s@%s", fullName, sample.SHA)
			result.Additions += sample.Additions
			result.Deletions += sample.Deletions
			result.Commits = append(result.Commits, models.CommitRecord{
				Repo:      fullName,
				SHA:       sample.SHA,
				Date:      sample.Date,
				Additions: sample.Additions,
				Deletions: sample.Deletions,
			})
			continue
		}

		s.accumulate(entry, sample, fullName, result)

		// Write-back is best-effort: the result is already in hand, and a
		// failed write just means a repeat miss next run.
		if err := s.store.UpsertEntry(digest, username, entry); err != nil {
			logger.WithError(err).Warnf("commit stats cache write failed for %s@%s", fullName, sample.SHA)
		}
	}

	return nil
}

func (s *EnricherService) accumulate(entry *models.CommitStatsEntry, sample githubclient.CommitSample, fullName string, result *EnrichmentResult) {
	result.Additions += entry.Additions
	result.Deletions += entry.Deletions

	for _, file := range entry.Files {
		lang, ok := s.languages.LanguageFor(file.Filename)
		if !ok {
			continue
		}
		result.LinesByLanguage[lang] += file.Additions + file.Deletions
	}

	result.Commits = append(result.Commits, models.CommitRecord{
		Repo:      fullName,
		SHA:       entry.SHA,
		Date:      sample.Date,
		Additions: entry.Additions,
		Deletions: entry.Deletions,
	})
}

// fetchCommitDetail fetches one commit's file-level stats over REST. 403/429
// responses are retried once after the server-indicated delay.
func (s *EnricherService) fetchCommitDetail(ctx context.Context, rest commitDetailAPI, ref githubclient.RepoRef, sha string) (*models.CommitStatsEntry, error) {
	commit, err := s.getCommitWithBackoff(ctx, rest, ref, sha)
	if err != nil {
		return nil, err
	}

	entry := &models.CommitStatsEntry{
		RepoFullName: ref.Owner + "/" + ref.Name,
		SHA:          sha,
		Additions:    commit.GetStats().GetAdditions(),
		Deletions:    commit.GetStats().GetDeletions(),
	}
	for _, file := range commit.Files {
		entry.Files = append(entry.Files, models.CommitFileStat{
			Filename:  file.GetFilename(),
			Additions: file.GetAdditions(),
			Deletions: file.GetDeletions(),
		})
	}

	return entry, nil
}

func (s *EnricherService) getCommitWithBackoff(ctx context.Context, rest commitDetailAPI, ref githubclient.RepoRef, sha string) (*github.RepositoryCommit, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	commit, _, err := rest.GetCommit(ctx, ref.Owner, ref.Name, sha, nil)
	if err == nil {
		return commit, nil
	}

	delay, retryable := retryDelay(err)
	if !retryable {
		return nil, err
	}

	logger.Warnf("rate limited fetching %s/%s@%s, retrying in %s", ref.Owner, ref.Name, sha, delay)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	commit, _, err = rest.GetCommit(ctx, ref.Owner, ref.Name, sha, nil)
	return commit, err
}

// retryDelay extracts the wait GitHub asks for on rate-limit responses.
func retryDelay(err error) (time.Duration, bool) {
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		if d := abuseErr.GetRetryAfter(); d > 0 {
			return d, true
		}
		return 30 * time.Second, true
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		until := time.Until(rateErr.Rate.Reset.Time)
		if until <= 0 || until > 5*time.Minute {
			return 0, false
		}
		return until, true
	}

	return 0, false
}
