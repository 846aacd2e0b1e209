package models

import "time"

// TokenType classifies a GitHub credential by how much we can learn about it.
type TokenType string

const (
	// TokenTypeClassic is a personal access token whose scopes are enumerable
	// via the X-OAuth-Scopes response header.
	TokenTypeClassic TokenType = "classic"
	// TokenTypeFineGrained is a fine-grained token; GitHub omits the scopes
	// header for these, so scope checks are inconclusive.
	TokenTypeFineGrained TokenType = "fine-grained"
)

// OtherPrivateReposName labels the synthetic repository entry that absorbs
// commits GitHub counts but does not attribute to an enumerable repository.
const OtherPrivateReposName = "Other Private Repos"

// DailyContribution is one day of the contribution calendar. Date is formatted
// as YYYY-MM-DD.
type DailyContribution struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// RepositoryContribution holds commit contributions attributed to one
// repository within the requested window.
type RepositoryContribution struct {
	Repo        string `json:"repo"`
	FullName    string `json:"fullName"`
	Owner       string `json:"owner"`
	Count       int    `json:"count"`
	IsPrivate   bool   `json:"isPrivate"`
	IsOrgOwned  bool   `json:"isOrgOwned"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	Language    string `json:"language,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// LanguageStat aggregates one language across all contributing repositories.
// Size is the byte size reported by GitHub; Lines is lines of code attributed
// to commits in range when the enricher ran, zero otherwise.
type LanguageStat struct {
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Size       int64   `json:"size"`
	Lines      int     `json:"lines"`
	Percentage float64 `json:"percentage"`
	RepoCount  int     `json:"repoCount"`
}

// Organization is a membership captured from the profile.
type Organization struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl"`
}

// CommitRecord is a commit attributed to the user within the window. The
// events path synthesizes these without diff content.
type CommitRecord struct {
	Repo      string    `json:"repo"`
	SHA       string    `json:"sha"`
	Date      time.Time `json:"date"`
	Additions int       `json:"additions"`
	Deletions int       `json:"deletions"`
}

// TokenDiagnostics carries advisory information about the credential used for
// an aggregation. MissingScopes is only meaningful for classic tokens.
type TokenDiagnostics struct {
	Type          TokenType `json:"type"`
	MissingScopes []string  `json:"missingScopes,omitempty"`
}

// ContributionAggregate is the normalized output of the aggregation pipeline,
// consumed by the yearbook service and presentation layers.
type ContributionAggregate struct {
	Username  string `json:"username"`
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

	DailyContributions      []DailyContribution       `json:"dailyContributions"`
	RepositoryContributions []*RepositoryContribution `json:"repositoryContributions"`
	LanguageStats           []*LanguageStat           `json:"languageStats"`
	Organizations           []Organization            `json:"organizations"`
	Commits                 []CommitRecord            `json:"commits,omitempty"`

	TotalRepos   int `json:"totalRepos"`
	PublicRepos  int `json:"publicRepos"`
	PrivateRepos int `json:"privateRepos"`

	Token      *TokenDiagnostics `json:"token,omitempty"`
	Advisories []string          `json:"advisories,omitempty"`

	// AuthorID is the account's GraphQL node ID, used by the enricher to
	// scope commit history to this author. Not part of the JSON contract.
	AuthorID string `json:"-"`
}

// RepoByFullName returns the repository entry with the given fully qualified
// name, or nil.
func (a *ContributionAggregate) RepoByFullName(fullName string) *RepositoryContribution {
	for _, r := range a.RepositoryContributions {
		if r.FullName == fullName {
			return r
		}
	}
	return nil
}
