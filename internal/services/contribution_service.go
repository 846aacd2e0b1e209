package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/qingbolan/github-yearbook/internal/githubclient"
	"github.com/qingbolan/github-yearbook/internal/models"
	"github.com/qingbolan/github-yearbook/pkg/logger"
)

// requiredScopes are the classic-token scopes the aggregation needs for full
// visibility. admin:org is a superset of read:org.
var requiredScopes = []string{"repo", "read:org"}

// contributionAPI is the slice of the GraphQL client the aggregator uses.
type contributionAPI interface {
	FetchContributionWindow(ctx context.Context, login string, from, to time.Time, includeMeta bool) (*githubclient.ContributionPage, error)
	TokenScopes() ([]string, bool)
}

// ContributionService aggregates contribution data over arbitrary date
// ranges through the GraphQL API. Ranges longer than one year are split into
// chunks and the per-chunk responses merged into one aggregate.
type ContributionService struct {
	newClient func(token string) contributionAPI
}

// NewContributionService creates a ContributionService that builds one
// GraphQL client per aggregation using the given factory.
func NewContributionService(newClient func(token string) contributionAPI) *ContributionService {
	return &ContributionService{newClient: newClient}
}

// FetchContributions produces one merged aggregate for (username, start,
// end) using the given token. When username is empty the token owner's data
// is fetched; otherwise the named user's, to the extent the token can see it.
func (s *ContributionService) FetchContributions(ctx context.Context, username string, start, end time.Time, token string, progress ProgressFunc) (*models.ContributionAggregate, error) {
	client := s.newClient(token)
	chunks := githubclient.SplitRange(start, end)

	agg := &models.ContributionAggregate{}
	dayCounts := make(map[string]int)
	repoEntries := make(map[string]*models.RepositoryContribution)
	var firstPage *githubclient.ContributionPage

	for i, chunk := range chunks {
		notify(progress, fmt.Sprintf("Fetching contributions %d/%d (%s to %s)",
			i+1, len(chunks), chunk.From.Format("2006-01-02"), chunk.To.Format("2006-01-02")))

		page, err := client.FetchContributionWindow(ctx, username, chunk.From, chunk.To, i == 0)
		if err != nil {
			return nil, fmt.Errorf("contribution query failed: %w", err)
		}
		if page.Login == "" {
			return nil, ErrInsufficientPermissions
		}

		if i == 0 {
			firstPage = page
		}

		mergeWindow(agg, dayCounts, repoEntries, page.Window)
	}

	if firstPage != nil {
		applyMetadata(agg, firstPage)
	}

	agg.DailyContributions = materializeCalendar(dayCounts, start, end)
	agg.RepositoryContributions = sortedRepoEntries(repoEntries)

	reconcileCommitTotals(agg)

	agg.LanguageStats = languageStatsFromRepos(firstPage.Repositories)

	classifyToken(agg, client)

	return agg, nil
}

// mergeWindow folds one chunk's time-windowed counts into the running state.
func mergeWindow(agg *models.ContributionAggregate, dayCounts map[string]int, repoEntries map[string]*models.RepositoryContribution, w githubclient.ContributionWindow) {
	agg.TotalCommits += w.TotalCommits
	agg.PullRequests += w.TotalPRs
	agg.PullRequestReviews += w.TotalReviews
	agg.Issues += w.TotalIssues
	agg.RestrictedContributions += w.Restricted
	agg.TotalContributions += w.CalendarTotal

	for _, day := range w.Days {
		dayCounts[day.Date] += day.Count
	}

	for _, rc := range w.ByRepository {
		entry, ok := repoEntries[rc.NameWithOwner]
		if !ok {
			entry = &models.RepositoryContribution{
				Repo:        rc.Name,
				FullName:    rc.NameWithOwner,
				Owner:       rc.OwnerLogin,
				IsPrivate:   rc.IsPrivate,
				IsOrgOwned:  rc.IsOrgOwned,
				Stars:       rc.Stars,
				Forks:       rc.Forks,
				Language:    rc.PrimaryLanguage,
				Description: rc.Description,
				URL:         rc.URL,
			}
			repoEntries[rc.NameWithOwner] = entry
		}
		entry.Count += rc.Count
	}
}

// applyMetadata copies the date-independent fields captured with the first
// chunk onto the aggregate.
func applyMetadata(agg *models.ContributionAggregate, page *githubclient.ContributionPage) {
	agg.Username = page.Login
	if p := page.Profile; p != nil {
		agg.AuthorID = p.ID
		agg.AvatarURL = p.AvatarURL
		agg.Bio = p.Bio
		agg.Company = p.Company
		agg.Location = p.Location
		agg.Followers = p.Followers
		agg.Following = p.Following
	}

	agg.TotalRepos = page.TotalRepos
	for _, repo := range page.Repositories {
		if repo.IsPrivate {
			agg.PrivateRepos++
		} else {
			agg.PublicRepos++
		}
	}

	for _, org := range page.Organizations {
		agg.Organizations = append(agg.Organizations, models.Organization{
			Login:     org.Login,
			AvatarURL: org.AvatarURL,
		})
	}
}

// materializeCalendar produces one entry per calendar day in [start, end],
// ascending, with zero counts for days the API reported nothing. Calendar
// weeks pad beyond the requested window; padded days are dropped here.
func materializeCalendar(dayCounts map[string]int, start, end time.Time) []models.DailyContribution {
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var daily []models.DailyContribution
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		daily = append(daily, models.DailyContribution{Date: date, Count: dayCounts[date]})
	}
	return daily
}

func sortedRepoEntries(repoEntries map[string]*models.RepositoryContribution) []*models.RepositoryContribution {
	repos := make([]*models.RepositoryContribution, 0, len(repoEntries))
	for _, entry := range repoEntries {
		repos = append(repos, entry)
	}
	sort.Slice(repos, func(i, j int) bool {
		if repos[i].Count != repos[j].Count {
			return repos[i].Count > repos[j].Count
		}
		return repos[i].FullName < repos[j].FullName
	})
	return repos
}

// reconcileCommitTotals compensates for GraphQL not enumerating every
// private-org repository: when the commit total exceeds the per-repository
// sum, the shortfall is attributed to a synthetic private entry and the list
// re-sorted.
func reconcileCommitTotals(agg *models.ContributionAggregate) {
	attributed := 0
	for _, repo := range agg.RepositoryContributions {
		attributed += repo.Count
	}

	if agg.TotalCommits <= attributed {
		return
	}

	agg.RepositoryContributions = append(agg.RepositoryContributions, &models.RepositoryContribution{
		Repo:       models.OtherPrivateReposName,
		FullName:   models.OtherPrivateReposName,
		Count:      agg.TotalCommits - attributed,
		IsPrivate:  true,
		IsOrgOwned: true,
	})
	sort.Slice(agg.RepositoryContributions, func(i, j int) bool {
		return agg.RepositoryContributions[i].Count > agg.RepositoryContributions[j].Count
	})
}

// classifyToken inspects the scope headers recorded on the first response.
// Classic tokens enumerate scopes; fine-grained tokens omit the header, which
// makes scope checks inconclusive.
func classifyToken(agg *models.ContributionAggregate, client contributionAPI) {
	scopes, present := client.TokenScopes()

	if !present {
		agg.Token = &models.TokenDiagnostics{Type: models.TokenTypeFineGrained}
		agg.Advisories = append(agg.Advisories,
			"Fine-grained token detected: scope coverage cannot be verified; private contributions may be incomplete")
		return
	}

	have := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		have[s] = true
	}

	var missing []string
	for _, required := range requiredScopes {
		if have[required] {
			continue
		}
		if required == "read:org" && have["admin:org"] {
			continue
		}
		missing = append(missing, required)
	}

	agg.Token = &models.TokenDiagnostics{Type: models.TokenTypeClassic, MissingScopes: missing}
	if len(missing) > 0 {
		logger.WithField("missing_scopes", missing).Warnf("token is missing scopes")
		agg.Advisories = append(agg.Advisories,
			fmt.Sprintf("Token is missing scopes: %s; some contributions may not be visible", strings.Join(missing, ", ")))
	}
}

// languageStatsFromRepos aggregates per-repository language byte sizes into
// one stat per language, with percentages over the full set.
func languageStatsFromRepos(repos []githubclient.OwnedRepository) []*models.LanguageStat {
	byName := make(map[string]*models.LanguageStat)
	for _, repo := range repos {
		for _, slice := range repo.Languages {
			stat, ok := byName[slice.Name]
			if !ok {
				stat = &models.LanguageStat{Name: slice.Name, Color: slice.Color}
				byName[slice.Name] = stat
			}
			stat.Size += slice.Size
			stat.RepoCount++
		}
	}

	stats := make([]*models.LanguageStat, 0, len(byName))
	for _, stat := range byName {
		stats = append(stats, stat)
	}

	recomputeLanguagePercentages(stats)
	return stats
}
