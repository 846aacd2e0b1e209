package githubclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client wraps the GitHub GraphQL API for contribution queries. All outbound
// calls share one rate limiter, and the first response's scope headers are
// retained for token classification.
type Client struct {
	gql     *githubv4.Client
	scopes  *scopeTransport
	limiter *rate.Limiter
}

// New creates a Client for the given token. graphqlURL may be empty for the
// public GitHub endpoint. rps throttles outbound requests.
func New(token, graphqlURL string, rps float64) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	st := &scopeTransport{base: tc.Transport}
	httpClient := &http.Client{Transport: st, Timeout: 30 * time.Second}

	var gql *githubv4.Client
	if graphqlURL == "" || graphqlURL == "https://api.github.com/graphql" {
		gql = githubv4.NewClient(httpClient)
	} else {
		gql = githubv4.NewEnterpriseClient(graphqlURL, httpClient)
	}

	if rps <= 0 {
		rps = 2
	}

	return &Client{
		gql:     gql,
		scopes:  st,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// scopeTransport records GitHub's X-OAuth-Scopes header from responses.
// Classic tokens enumerate their scopes there; fine-grained tokens omit the
// header entirely.
type scopeTransport struct {
	base http.RoundTripper

	seen      bool
	hasHeader bool
	scopes    []string
}

func (t *scopeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	if !t.seen {
		t.seen = true
		if raw, ok := resp.Header["X-Oauth-Scopes"]; ok {
			t.hasHeader = true
			for _, part := range strings.Split(strings.Join(raw, ","), ",") {
				if s := strings.TrimSpace(part); s != "" {
					t.scopes = append(t.scopes, s)
				}
			}
		}
	}

	return resp, nil
}

// TokenScopes returns the scopes enumerated by the first response, and
// whether the scopes header was present at all. The second value is false
// both before any request and for fine-grained tokens.
func (c *Client) TokenScopes() ([]string, bool) {
	return c.scopes.scopes, c.scopes.hasHeader
}

// FetchContributionWindow runs one contribution query for [from, to]. When
// login is empty the query targets the token owner (viewer); otherwise it
// targets user(login:). includeMeta requests the profile, repository list,
// language sizes and organizations, which callers only need once per
// aggregation.
func (c *Client) FetchContributionWindow(ctx context.Context, login string, from, to time.Time, includeMeta bool) (*ContributionPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	vars := map[string]interface{}{
		"from": githubv4.DateTime{Time: from},
		"to":   githubv4.DateTime{Time: to},
	}

	if login == "" {
		return c.fetchViewerWindow(ctx, vars, includeMeta)
	}
	vars["login"] = githubv4.String(login)
	return c.fetchUserWindow(ctx, vars, includeMeta)
}

func (c *Client) fetchViewerWindow(ctx context.Context, vars map[string]interface{}, includeMeta bool) (*ContributionPage, error) {
	if includeMeta {
		var q struct {
			Viewer accountWithMeta
		}
		if err := c.gql.Query(ctx, &q, vars); err != nil {
			return nil, err
		}
		return q.Viewer.toPage(), nil
	}

	var q struct {
		Viewer accountWindowOnly
	}
	if err := c.gql.Query(ctx, &q, vars); err != nil {
		return nil, err
	}
	return q.Viewer.toPage(), nil
}

func (c *Client) fetchUserWindow(ctx context.Context, vars map[string]interface{}, includeMeta bool) (*ContributionPage, error) {
	if includeMeta {
		var q struct {
			User accountWithMeta `graphql:"user(login: $login)"`
		}
		if err := c.gql.Query(ctx, &q, vars); err != nil {
			return nil, err
		}
		return q.User.toPage(), nil
	}

	var q struct {
		User accountWindowOnly `graphql:"user(login: $login)"`
	}
	if err := c.gql.Query(ctx, &q, vars); err != nil {
		return nil, err
	}
	return q.User.toPage(), nil
}

// HistoryBatchSize is the number of repositories combined into one commit
// history query.
const HistoryBatchSize = 5

// FetchCommitHistory fetches commit hashes and coarse line stats for up to
// HistoryBatchSize repositories in one query, scoped to the author's node ID
// and the [since, until] window. The result maps "owner/name" to its commits.
func (c *Client) FetchCommitHistory(ctx context.Context, repos []RepoRef, authorID string, since, until time.Time) (map[string][]CommitSample, error) {
	if len(repos) > HistoryBatchSize {
		return nil, fmt.Errorf("at most %d repositories per history query, got %d", HistoryBatchSize, len(repos))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	vars := map[string]interface{}{
		"author": githubv4.ID(authorID),
		"since":  githubv4.GitTimestamp{Time: since},
		"until":  githubv4.GitTimestamp{Time: until},
	}
	for i := 0; i < HistoryBatchSize; i++ {
		ref := RepoRef{Owner: "-", Name: "-"}
		use := false
		if i < len(repos) {
			ref = repos[i]
			use = true
		}
		vars[fmt.Sprintf("owner%d", i)] = githubv4.String(ref.Owner)
		vars[fmt.Sprintf("name%d", i)] = githubv4.String(ref.Name)
		vars[fmt.Sprintf("use%d", i)] = githubv4.Boolean(use)
	}

	var q commitHistoryQuery
	if err := c.gql.Query(ctx, &q, vars); err != nil {
		return nil, err
	}

	out := make(map[string][]CommitSample)
	for i, node := range q.nodes() {
		if i >= len(repos) {
			break
		}
		key := repos[i].Owner + "/" + repos[i].Name
		out[key] = node.samples()
	}

	return out, nil
}
