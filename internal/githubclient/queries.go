package githubclient

import "time"

// GraphQL query shapes. Field names follow GitHub's schema exactly
// (nameWithOwner, stargazerCount, contributionsCollection, ...); they are
// load-bearing for compatibility and must not be renamed.

type languageEdge struct {
	Size int64
	Node struct {
		Name  string
		Color string
	}
}

type ownedRepositoryNode struct {
	Name           string
	NameWithOwner  string
	IsPrivate      bool
	StargazerCount int
	ForkCount      int
	Languages      struct {
		Edges []languageEdge
	} `graphql:"languages(first: 10, orderBy: {field: SIZE, direction: DESC})"`
}

type contributedRepositoryNode struct {
	Name            string
	NameWithOwner   string
	IsPrivate       bool
	StargazerCount  int
	ForkCount       int
	Description     string
	URL             string `graphql:"url"`
	PrimaryLanguage *struct {
		Name  string
		Color string
	}
	Owner struct {
		Login    string
		Typename string `graphql:"__typename"`
	}
}

type contributionsCollection struct {
	TotalCommitContributions            int
	TotalPullRequestContributions       int
	TotalPullRequestReviewContributions int
	TotalIssueContributions             int
	RestrictedContributionsCount        int
	ContributionCalendar                struct {
		TotalContributions int
		Weeks              []struct {
			ContributionDays []struct {
				Date              string
				ContributionCount int
			}
		}
	}
	CommitContributionsByRepository []struct {
		Repository    contributedRepositoryNode
		Contributions struct {
			TotalCount int
		}
	} `graphql:"commitContributionsByRepository(maxRepositories: 100)"`
}

// accountWithMeta is the first-chunk query: contribution window plus the
// metadata that does not vary by date range.
type accountWithMeta struct {
	ID        string `graphql:"id"`
	Login     string
	AvatarURL string `graphql:"avatarUrl"`
	Bio       string
	Company   string
	Location  string
	Followers struct {
		TotalCount int
	}
	Following struct {
		TotalCount int
	}
	Repositories struct {
		TotalCount int
		Nodes      []ownedRepositoryNode
	} `graphql:"repositories(first: 100, ownerAffiliations: [OWNER, COLLABORATOR, ORGANIZATION_MEMBER])"`
	Organizations struct {
		Nodes []struct {
			Login     string
			AvatarURL string `graphql:"avatarUrl"`
		}
	} `graphql:"organizations(first: 100)"`
	ContributionsCollection contributionsCollection `graphql:"contributionsCollection(from: $from, to: $to)"`
}

// accountWindowOnly is the query for every chunk after the first.
type accountWindowOnly struct {
	Login                   string
	ContributionsCollection contributionsCollection `graphql:"contributionsCollection(from: $from, to: $to)"`
}

func (a *accountWithMeta) toPage() *ContributionPage {
	page := &ContributionPage{
		Login: a.Login,
		Profile: &Profile{
			ID:        a.ID,
			Login:     a.Login,
			AvatarURL: a.AvatarURL,
			Bio:       a.Bio,
			Company:   a.Company,
			Location:  a.Location,
			Followers: a.Followers.TotalCount,
			Following: a.Following.TotalCount,
		},
		TotalRepos: a.Repositories.TotalCount,
		Window:     a.ContributionsCollection.toWindow(),
	}

	for _, node := range a.Repositories.Nodes {
		repo := OwnedRepository{
			Name:          node.Name,
			NameWithOwner: node.NameWithOwner,
			IsPrivate:     node.IsPrivate,
			Stars:         node.StargazerCount,
			Forks:         node.ForkCount,
		}
		for _, edge := range node.Languages.Edges {
			repo.Languages = append(repo.Languages, LanguageSlice{
				Name:  edge.Node.Name,
				Color: edge.Node.Color,
				Size:  edge.Size,
			})
		}
		page.Repositories = append(page.Repositories, repo)
	}

	for _, org := range a.Organizations.Nodes {
		page.Organizations = append(page.Organizations, Organization{
			Login:     org.Login,
			AvatarURL: org.AvatarURL,
		})
	}

	return page
}

func (a *accountWindowOnly) toPage() *ContributionPage {
	return &ContributionPage{
		Login:  a.Login,
		Window: a.ContributionsCollection.toWindow(),
	}
}

func (c *contributionsCollection) toWindow() ContributionWindow {
	w := ContributionWindow{
		TotalCommits:  c.TotalCommitContributions,
		TotalPRs:      c.TotalPullRequestContributions,
		TotalReviews:  c.TotalPullRequestReviewContributions,
		TotalIssues:   c.TotalIssueContributions,
		Restricted:    c.RestrictedContributionsCount,
		CalendarTotal: c.ContributionCalendar.TotalContributions,
	}

	for _, week := range c.ContributionCalendar.Weeks {
		for _, day := range week.ContributionDays {
			w.Days = append(w.Days, CalendarDay{Date: day.Date, Count: day.ContributionCount})
		}
	}

	for _, item := range c.CommitContributionsByRepository {
		repo := item.Repository
		rc := RepoContribution{
			Name:          repo.Name,
			NameWithOwner: repo.NameWithOwner,
			OwnerLogin:    repo.Owner.Login,
			IsPrivate:     repo.IsPrivate,
			IsOrgOwned:    repo.Owner.Typename == "Organization",
			Stars:         repo.StargazerCount,
			Forks:         repo.ForkCount,
			Description:   repo.Description,
			URL:           repo.URL,
			Count:         item.Contributions.TotalCount,
		}
		if repo.PrimaryLanguage != nil {
			rc.PrimaryLanguage = repo.PrimaryLanguage.Name
			rc.LanguageColor = repo.PrimaryLanguage.Color
		}
		w.ByRepository = append(w.ByRepository, rc)
	}

	return w
}

type historyNode struct {
	DefaultBranchRef *struct {
		Target struct {
			Commit struct {
				History struct {
					Nodes []struct {
						Oid           string
						CommittedDate string
						Additions     int
						Deletions     int
					}
				} `graphql:"history(first: 100, since: $since, until: $until, author: {id: $author})"`
			} `graphql:"... on Commit"`
		}
	}
}

func (n historyNode) samples() []CommitSample {
	if n.DefaultBranchRef == nil {
		return nil
	}
	var out []CommitSample
	for _, c := range n.DefaultBranchRef.Target.Commit.History.Nodes {
		s := CommitSample{SHA: c.Oid, Additions: c.Additions, Deletions: c.Deletions}
		if t, err := parseGitTime(c.CommittedDate); err == nil {
			s.Date = t
		}
		out = append(out, s)
	}
	return out
}

func parseGitTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// commitHistoryQuery combines up to HistoryBatchSize repositories into one
// aliased query; unused slots are skipped via @include.
type commitHistoryQuery struct {
	Repo0 historyNode `graphql:"repo0: repository(owner: $owner0, name: $name0) @include(if: $use0)"`
	Repo1 historyNode `graphql:"repo1: repository(owner: $owner1, name: $name1) @include(if: $use1)"`
	Repo2 historyNode `graphql:"repo2: repository(owner: $owner2, name: $name2) @include(if: $use2)"`
	Repo3 historyNode `graphql:"repo3: repository(owner: $owner3, name: $name3) @include(if: $use3)"`
	Repo4 historyNode `graphql:"repo4: repository(owner: $owner4, name: $name4) @include(if: $use4)"`
}

func (q *commitHistoryQuery) nodes() []historyNode {
	return []historyNode{q.Repo0, q.Repo1, q.Repo2, q.Repo3, q.Repo4}
}
