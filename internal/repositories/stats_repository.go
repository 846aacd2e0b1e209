package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/qingbolan/github-yearbook/internal/models"
)

// StatsRepository persists processed yearbook stats per (username, year).
// Series fields (daily contributions, languages, repos, organizations) are
// stored as JSON columns, matching how presentation layers consume them.
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetCached retrieves the cached stats for a user and year, or nil if absent.
// If duplicate rows exist (a historical write race), the newest wins and the
// older rows are cleaned up.
func (r *StatsRepository) GetCached(username string, year int) (*models.YearbookStats, error) {
	query := `
		SELECT id, username, year, avatar_url, bio, company, location, followers, following,
			   total_contributions, total_commits, restricted_contributions,
			   pull_requests, pull_request_reviews, issues,
			   longest_streak, current_streak, active_days,
			   repo_count, total_repos, public_repos, private_repos,
			   weekday_histogram, weekly_histogram,
			   daily_contributions, repository_contributions, language_stats, organizations,
			   created_at, updated_at
		FROM yearbook_stats
		WHERE username = ? AND year = ?
		ORDER BY updated_at DESC
	`

	rows, err := r.db.Query(query, username, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*models.YearbookStats
	for rows.Next() {
		s, err := scanYearbookStats(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(stats) == 0 {
		return nil, nil
	}

	// Self-healing: drop stale duplicates so future upserts don't collide.
	if len(stats) > 1 {
		for _, stale := range stats[1:] {
			if err := r.Delete(stale.ID); err != nil {
				return nil, err
			}
		}
	}

	return stats[0], nil
}

// Upsert inserts or replaces the cached stats for (username, year).
func (r *StatsRepository) Upsert(s *models.YearbookStats) error {
	weekdayJSON, err := json.Marshal(s.WeekdayHistogram)
	if err != nil {
		return err
	}
	weeklyJSON, err := json.Marshal(s.WeeklyHistogram)
	if err != nil {
		return err
	}
	dailyJSON, err := json.Marshal(s.DailyContributions)
	if err != nil {
		return err
	}
	reposJSON, err := json.Marshal(s.RepositoryContributions)
	if err != nil {
		return err
	}
	langsJSON, err := json.Marshal(s.LanguageStats)
	if err != nil {
		return err
	}
	orgsJSON, err := json.Marshal(s.Organizations)
	if err != nil {
		return err
	}

	s.UpdatedAt = time.Now()

	query := `
		INSERT INTO yearbook_stats (
			id, username, year, avatar_url, bio, company, location, followers, following,
			total_contributions, total_commits, restricted_contributions,
			pull_requests, pull_request_reviews, issues,
			longest_streak, current_streak, active_days,
			repo_count, total_repos, public_repos, private_repos,
			weekday_histogram, weekly_histogram,
			daily_contributions, repository_contributions, language_stats, organizations,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username, year) DO UPDATE SET
			avatar_url = excluded.avatar_url,
			bio = excluded.bio,
			company = excluded.company,
			location = excluded.location,
			followers = excluded.followers,
			following = excluded.following,
			total_contributions = excluded.total_contributions,
			total_commits = excluded.total_commits,
			restricted_contributions = excluded.restricted_contributions,
			pull_requests = excluded.pull_requests,
			pull_request_reviews = excluded.pull_request_reviews,
			issues = excluded.issues,
			longest_streak = excluded.longest_streak,
			current_streak = excluded.current_streak,
			active_days = excluded.active_days,
			repo_count = excluded.repo_count,
			total_repos = excluded.total_repos,
			public_repos = excluded.public_repos,
			private_repos = excluded.private_repos,
			weekday_histogram = excluded.weekday_histogram,
			weekly_histogram = excluded.weekly_histogram,
			daily_contributions = excluded.daily_contributions,
			repository_contributions = excluded.repository_contributions,
			language_stats = excluded.language_stats,
			organizations = excluded.organizations,
			updated_at = excluded.updated_at
	`

	_, err = r.db.Exec(query,
		s.ID, s.Username, s.Year, s.AvatarURL, s.Bio, s.Company, s.Location, s.Followers, s.Following,
		s.TotalContributions, s.TotalCommits, s.RestrictedContributions,
		s.PullRequests, s.PullRequestReviews, s.Issues,
		s.LongestStreak, s.CurrentStreak, s.ActiveDays,
		s.RepoCount, s.TotalRepos, s.PublicRepos, s.PrivateRepos,
		string(weekdayJSON), string(weeklyJSON),
		string(dailyJSON), string(reposJSON), string(langsJSON), string(orgsJSON),
		s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// Delete deletes cached stats by ID
func (r *StatsRepository) Delete(id string) error {
	query := `DELETE FROM yearbook_stats WHERE id = ?`
	_, err := r.db.Exec(query, id)
	return err
}

// GetStale returns cached entries older than the cutoff, for background
// refresh.
func (r *StatsRepository) GetStale(before time.Time, limit int) ([]*models.YearbookStats, error) {
	query := `
		SELECT id, username, year, avatar_url, bio, company, location, followers, following,
			   total_contributions, total_commits, restricted_contributions,
			   pull_requests, pull_request_reviews, issues,
			   longest_streak, current_streak, active_days,
			   repo_count, total_repos, public_repos, private_repos,
			   weekday_histogram, weekly_histogram,
			   daily_contributions, repository_contributions, language_stats, organizations,
			   created_at, updated_at
		FROM yearbook_stats
		WHERE updated_at < ?
		ORDER BY updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.Query(query, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*models.YearbookStats
	for rows.Next() {
		s, err := scanYearbookStats(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

func scanYearbookStats(rows *sql.Rows) (*models.YearbookStats, error) {
	s := &models.YearbookStats{}
	var weekdayJSON, weeklyJSON, dailyJSON, reposJSON, langsJSON, orgsJSON string

	err := rows.Scan(
		&s.ID, &s.Username, &s.Year, &s.AvatarURL, &s.Bio, &s.Company, &s.Location, &s.Followers, &s.Following,
		&s.TotalContributions, &s.TotalCommits, &s.RestrictedContributions,
		&s.PullRequests, &s.PullRequestReviews, &s.Issues,
		&s.LongestStreak, &s.CurrentStreak, &s.ActiveDays,
		&s.RepoCount, &s.TotalRepos, &s.PublicRepos, &s.PrivateRepos,
		&weekdayJSON, &weeklyJSON,
		&dailyJSON, &reposJSON, &langsJSON, &orgsJSON,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(weekdayJSON), &s.WeekdayHistogram); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(weeklyJSON), &s.WeeklyHistogram); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dailyJSON), &s.DailyContributions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reposJSON), &s.RepositoryContributions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(langsJSON), &s.LanguageStats); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(orgsJSON), &s.Organizations); err != nil {
		return nil, err
	}

	return s, nil
}
