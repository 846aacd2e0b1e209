package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/qingbolan/github-yearbook/internal/githubclient"
	"github.com/qingbolan/github-yearbook/internal/models"
	"github.com/qingbolan/github-yearbook/internal/repositories"
	"github.com/qingbolan/github-yearbook/pkg/logger"
)

// enrichRepoLimit bounds how many repositories the enricher scans per
// aggregation; beyond this the per-commit cost outweighs the LOC signal.
const enrichRepoLimit = 25

// StatsRequest describes one yearbook lookup. Period is a year ("2024") or a
// named range ("pastyear", "pastmonth", "pastweek"). StartDate/EndDate, when
// set, override the period with a custom ISO date range. Only plain year
// requests are cached.
type StatsRequest struct {
	Username     string
	Period       string
	StartDate    string
	EndDate      string
	Token        string
	ForceRefresh bool
}

// enricherClients builds the per-token clients the enricher needs.
type enricherClients func(token string) (commitHistoryAPI, commitDetailAPI)

// YearbookService orchestrates the aggregation pipeline and derives the
// processed yearbook: streak, histogram and share computations over the raw
// aggregate, with a two-tier (memory, database) cache for plain-year lookups.
type YearbookService struct {
	statsRepo     *repositories.StatsRepository
	contributions *ContributionService
	events        *EventsService
	enricher      *EnricherService
	newEnrichers  enricherClients

	memCache *expirable.LRU[string, *models.YearbookStats]
	ttl      time.Duration
}

// NewYearbookService creates a new YearbookService.
func NewYearbookService(
	statsRepo *repositories.StatsRepository,
	contributions *ContributionService,
	events *EventsService,
	enricher *EnricherService,
	newEnrichers enricherClients,
	ttl time.Duration,
	lruSize int,
) *YearbookService {
	if lruSize <= 0 {
		lruSize = 256
	}
	return &YearbookService{
		statsRepo:     statsRepo,
		contributions: contributions,
		events:        events,
		enricher:      enricher,
		newEnrichers:  newEnrichers,
		memCache:      expirable.NewLRU[string, *models.YearbookStats](lruSize, nil, ttl),
		ttl:           ttl,
	}
}

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// ParsePeriod resolves a period string into a date window. Named periods are
// anchored to today; a four-digit year covers the full calendar year.
func ParsePeriod(period string) (start, end time.Time, err error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	switch period {
	case "pastyear":
		return today.AddDate(0, 0, -365), today, nil
	case "pastmonth":
		return today.AddDate(0, 0, -30), today, nil
	case "pastweek":
		return today.AddDate(0, 0, -7), today, nil
	}

	if yearPattern.MatchString(period) {
		year, _ := strconv.Atoi(period)
		return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, time.Time{}, ErrInvalidPeriod
}

// GetStats is the main entry point. Plain-year requests go through the
// cache; custom ranges and named periods are always fetched fresh.
func (s *YearbookService) GetStats(ctx context.Context, req StatsRequest, progress ProgressFunc) (*models.YearbookStats, error) {
	start, end, year, cacheable, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s/%d", req.Username, year)

	if cacheable && !req.ForceRefresh {
		if cached, ok := s.memCache.Get(cacheKey); ok {
			out := *cached
			out.Cached = true
			return &out, nil
		}

		cached, err := s.statsRepo.GetCached(req.Username, year)
		if err != nil {
			return nil, fmt.Errorf("stats cache read failed: %w", err)
		}
		if cached != nil {
			if time.Since(cached.UpdatedAt) < s.ttl {
				cached.Cached = true
				s.memCache.Add(cacheKey, cached)
				return cached, nil
			}
			// Stale entries are dropped so the refreshed row is a clean
			// insert.
			if err := s.statsRepo.Delete(cached.ID); err != nil {
				logger.WithError(err).Warnf("failed to drop stale stats for %s", cacheKey)
			}
		}
	}

	agg, err := s.fetchAggregate(ctx, req, start, end, progress)
	if err != nil {
		return nil, err
	}

	stats := buildYearbookStats(req.Username, year, agg, start, end)

	if cacheable {
		if err := s.statsRepo.Upsert(stats); err != nil {
			// The caller already has the result; a failed cache write only
			// costs the next request a refetch.
			logger.WithError(err).Warnf("failed to cache stats for %s", cacheKey)
		}
		s.memCache.Add(cacheKey, stats)
	}

	return stats, nil
}

func (s *YearbookService) resolveWindow(req StatsRequest) (start, end time.Time, year int, cacheable bool, err error) {
	if req.StartDate != "" || req.EndDate != "" {
		if req.StartDate == "" || req.EndDate == "" {
			return start, end, 0, false, fmt.Errorf("custom range requires both start and end dates")
		}
		start, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return start, end, 0, false, fmt.Errorf("invalid start date %q: %w", req.StartDate, err)
		}
		end, err = time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return start, end, 0, false, fmt.Errorf("invalid end date %q: %w", req.EndDate, err)
		}
		if end.Before(start) {
			return start, end, 0, false, fmt.Errorf("end date precedes start date")
		}
		return start, end, start.Year(), false, nil
	}

	start, end, err = ParsePeriod(req.Period)
	if err != nil {
		return start, end, 0, false, err
	}

	cacheable = yearPattern.MatchString(req.Period)
	return start, end, start.Year(), cacheable, nil
}

// fetchAggregate runs the authenticated GraphQL path when a token is
// present, the public events path otherwise.
func (s *YearbookService) fetchAggregate(ctx context.Context, req StatsRequest, start, end time.Time, progress ProgressFunc) (*models.ContributionAggregate, error) {
	if req.Token == "" {
		return s.events.FetchContributions(ctx, req.Username, start, end, progress)
	}

	agg, err := s.contributions.FetchContributions(ctx, req.Username, start, end, req.Token, progress)
	if err != nil {
		return nil, err
	}

	if s.enricher != nil && s.enricher.Enabled() {
		s.enrich(ctx, req.Token, agg, start, end, progress)
	}

	return agg, nil
}

// enrich runs the commit-stats enricher over the aggregate's attributable
// repositories. Enrichment failures degrade the yearbook (byte-size language
// shares, no LOC) rather than failing the request.
func (s *YearbookService) enrich(ctx context.Context, token string, agg *models.ContributionAggregate, start, end time.Time, progress ProgressFunc) {
	var repos []githubclient.RepoRef
	for _, rc := range agg.RepositoryContributions {
		if rc.Owner == "" || rc.FullName == models.OtherPrivateReposName {
			continue
		}
		repos = append(repos, githubclient.RepoRef{Owner: rc.Owner, Name: rc.Repo})
		if len(repos) == enrichRepoLimit {
			break
		}
	}
	if len(repos) == 0 || agg.AuthorID == "" {
		return
	}

	history, rest := s.newEnrichers(token)
	result, err := s.enricher.Enrich(ctx, history, rest, token, agg.Username, agg.AuthorID, repos, start, end.AddDate(0, 0, 1), progress)
	if err != nil {
		logger.WithError(err).Warnf("commit stats enrichment failed for %s", agg.Username)
		return
	}

	agg.LanguageStats = applyLinesOfCode(agg.LanguageStats, result.LinesByLanguage)
	if len(result.Commits) > 0 {
		agg.Commits = result.Commits
	}
}

// buildYearbookStats derives the processed yearbook from the raw aggregate.
func buildYearbookStats(username string, year int, agg *models.ContributionAggregate, start, end time.Time) *models.YearbookStats {
	if agg.Username != "" {
		username = agg.Username
	}

	stats := models.NewYearbookStats(username, year)
	stats.AvatarURL = agg.AvatarURL
	stats.Bio = agg.Bio
	stats.Company = agg.Company
	stats.Location = agg.Location
	stats.Followers = agg.Followers
	stats.Following = agg.Following

	stats.TotalContributions = agg.TotalContributions
	stats.TotalCommits = agg.TotalCommits
	stats.RestrictedContributions = agg.RestrictedContributions
	stats.PullRequests = agg.PullRequests
	stats.PullRequestReviews = agg.PullRequestReviews
	stats.Issues = agg.Issues

	stats.DailyContributions = agg.DailyContributions
	stats.RepositoryContributions = agg.RepositoryContributions
	stats.LanguageStats = agg.LanguageStats
	stats.Organizations = agg.Organizations

	stats.RepoCount = len(agg.RepositoryContributions)
	stats.TotalRepos = agg.TotalRepos
	stats.PublicRepos = agg.PublicRepos
	stats.PrivateRepos = agg.PrivateRepos

	stats.Token = agg.Token
	stats.Advisories = agg.Advisories

	stats.LongestStreak, stats.CurrentStreak = computeStreaks(agg.DailyContributions)
	stats.ActiveDays = countActiveDays(agg.DailyContributions)
	stats.WeekdayHistogram, stats.WeeklyHistogram = computeHistograms(agg.DailyContributions)

	return stats
}

// computeStreaks returns the longest run of consecutive active days and the
// run ending at the last day of the range.
func computeStreaks(daily []models.DailyContribution) (longest, current int) {
	streak := 0
	for _, day := range daily {
		if day.Count > 0 {
			streak++
			if streak > longest {
				longest = streak
			}
		} else {
			streak = 0
		}
	}

	for i := len(daily) - 1; i >= 0; i-- {
		if daily[i].Count == 0 {
			break
		}
		current++
	}

	return longest, current
}

func countActiveDays(daily []models.DailyContribution) int {
	active := 0
	for _, day := range daily {
		if day.Count > 0 {
			active++
		}
	}
	return active
}

// computeHistograms buckets contributions by weekday (Sunday first) and by
// ISO week ("YYYY-Www").
func computeHistograms(daily []models.DailyContribution) ([7]int, map[string]int) {
	var weekday [7]int
	weekly := make(map[string]int)

	for _, day := range daily {
		t, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			continue
		}
		weekday[int(t.Weekday())] += day.Count
		isoYear, isoWeek := t.ISOWeek()
		weekly[fmt.Sprintf("%04d-W%02d", isoYear, isoWeek)] += day.Count
	}

	return weekday, weekly
}
