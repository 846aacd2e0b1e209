package services

import (
	"context"

	"github.com/google/go-github/v57/github"
	"github.com/qingbolan/github-yearbook/internal/githubclient"
	"golang.org/x/oauth2"
)

// NewGraphQLClientFactory returns the default per-token factory for the
// aggregation client.
func NewGraphQLClientFactory(graphqlURL string, rps float64) func(token string) contributionAPI {
	return func(token string) contributionAPI {
		return githubclient.New(token, graphqlURL, rps)
	}
}

// NewEnricherClientFactory returns the default per-token factory for the
// enricher's GraphQL history client and REST commit-detail client.
func NewEnricherClientFactory(graphqlURL string, rps float64) enricherClients {
	return func(token string) (commitHistoryAPI, commitDetailAPI) {
		history := githubclient.New(token, graphqlURL, rps)

		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		rest := github.NewClient(oauth2.NewClient(context.Background(), src))

		return history, rest.Repositories
	}
}
