package githubclient

import "time"

// Profile holds the account fields captured alongside the first contribution
// window.
type Profile struct {
	ID        string
	Login     string
	AvatarURL string
	Bio       string
	Company   string
	Location  string
	Followers int
	Following int
}

// LanguageSlice is one language's byte share of a repository.
type LanguageSlice struct {
	Name  string
	Color string
	Size  int64
}

// OwnedRepository is a repository the account owns or collaborates on, with
// its per-language byte sizes.
type OwnedRepository struct {
	Name          string
	NameWithOwner string
	IsPrivate     bool
	Stars         int
	Forks         int
	Languages     []LanguageSlice
}

// RepoContribution is one repository's commit contribution count within a
// window, with the repository metadata GitHub returns inline.
type RepoContribution struct {
	Name            string
	NameWithOwner   string
	OwnerLogin      string
	IsPrivate       bool
	IsOrgOwned      bool
	Stars           int
	Forks           int
	PrimaryLanguage string
	LanguageColor   string
	Description     string
	URL             string
	Count           int
}

// CalendarDay is one day of the contribution calendar as returned by GitHub.
type CalendarDay struct {
	Date  string
	Count int
}

// Organization is an organization membership.
type Organization struct {
	Login     string
	AvatarURL string
}

// ContributionWindow holds the time-windowed portion of a contribution query.
type ContributionWindow struct {
	TotalCommits  int
	TotalPRs      int
	TotalReviews  int
	TotalIssues   int
	Restricted    int
	CalendarTotal int
	Days          []CalendarDay
	ByRepository  []RepoContribution
}

// ContributionPage is the decoded response for one chunk. Profile,
// Repositories and Organizations are only populated when the query requested
// metadata (the first chunk).
type ContributionPage struct {
	Login         string
	Profile       *Profile
	TotalRepos    int
	Repositories  []OwnedRepository
	Organizations []Organization
	Window        ContributionWindow
}

// RepoRef identifies a repository for commit-history lookups.
type RepoRef struct {
	Owner string
	Name  string
}

// CommitSample is a commit hash with the coarse line stats the batch history
// query reports. These are the fallback numbers when the per-commit REST
// fetch fails.
type CommitSample struct {
	SHA       string
	Date      time.Time
	Additions int
	Deletions int
}
