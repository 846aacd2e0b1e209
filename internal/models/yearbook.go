package models

import (
	"time"

	"github.com/google/uuid"
)

// YearbookStats is the processed, cacheable yearbook for one user and year
// (or custom period). Derived fields like streaks and histograms are computed
// once at aggregation time and stored alongside the raw series.
type YearbookStats struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Year     int    `json:"year"`

	AvatarURL string `json:"avatarUrl,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Company   string `json:"company,omitempty"`
	Location  string `json:"location,omitempty"`
	Followers int    `json:"followers"`
	Following int    `json:"following"`

	TotalContributions      int `json:"totalContributions"`
	TotalCommits            int `json:"totalCommits"`
	RestrictedContributions int `json:"restrictedContributions"`
	PullRequests            int `json:"pullRequests"`
	PullRequestReviews      int `json:"pullRequestReviews"`
	Issues                  int `json:"issues"`

	LongestStreak int `json:"longestStreak"`
	CurrentStreak int `json:"currentStreak"`
	ActiveDays    int `json:"activeDays"`

	RepoCount    int `json:"repoCount"`
	TotalRepos   int `json:"totalRepoCount"`
	PublicRepos  int `json:"publicRepoCount"`
	PrivateRepos int `json:"privateRepoCount"`

	// WeekdayHistogram counts contributions per weekday, Sunday first.
	WeekdayHistogram [7]int `json:"weekdayHistogram"`
	// WeeklyHistogram counts contributions per ISO week of the period,
	// keyed "YYYY-Www".
	WeeklyHistogram map[string]int `json:"weeklyHistogram"`

	DailyContributions      []DailyContribution       `json:"dailyContributions"`
	RepositoryContributions []*RepositoryContribution `json:"repositoryContributions"`
	LanguageStats           []*LanguageStat           `json:"languageStats"`
	Organizations           []Organization            `json:"organizations"`

	Token      *TokenDiagnostics `json:"token,omitempty"`
	Advisories []string          `json:"advisories,omitempty"`
	Cached     bool              `json:"cached"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewYearbookStats creates a new YearbookStats with a generated UUID
func NewYearbookStats(username string, year int) *YearbookStats {
	now := time.Now()
	return &YearbookStats{
		ID:              uuid.New().String(),
		Username:        username,
		Year:            year,
		WeeklyHistogram: make(map[string]int),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MostActiveWeekday returns the weekday with the highest contribution count.
func (y *YearbookStats) MostActiveWeekday() time.Weekday {
	best := 0
	for i, c := range y.WeekdayHistogram {
		if c > y.WeekdayHistogram[best] {
			best = i
		}
	}
	return time.Weekday(best)
}
