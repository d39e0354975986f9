// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"
	"github.com/shurcooL/githubv4"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"

	"github.com/naka-gawa/labpulse/internal/config"
	"github.com/naka-gawa/labpulse/internal/domain"
)

const perPage = 100

// Extractor fetches the raw commit records authored since windowStart.
type Extractor interface {
	Extract(ctx context.Context, windowStart time.Time) ([]domain.RawActivityRecord, error)
}

// GitHubGateway is the concrete implementation of the Extractor interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	owner         string
	repo          string
	source        config.Source
	logger        zerolog.Logger
}

// commitHistoryQuery walks the default branch history. The inline fragment is
// flattened in the response, so history sits directly under target.
type commitHistoryQuery struct {
	Repository struct {
		DefaultBranchRef struct {
			Target struct {
				Commit struct {
					History struct {
						PageInfo struct {
							HasNextPage bool
							EndCursor   githubv4.String
						}
						Nodes []struct {
							Oid     string
							Message string
							URL     string
							// GitActor fields are nullable.
							Author struct {
								Name *string
								Date *string
							}
						}
					} `graphql:"history(first: 100, since: $since, after: $cursor)"`
				} `graphql:"... on Commit"`
			}
		}
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(cfg *config.Config, logger zerolog.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}

	restClient := github.NewClient(httpClient)
	graphqlClient := githubv4.NewClient(httpClient)
	if cfg.APIBaseURL != "" {
		restClient, err = restClient.WithEnterpriseURLs(cfg.APIBaseURL, cfg.APIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to set enterprise URL: %w", err)
		}
		graphqlClient = githubv4.NewEnterpriseClient(strings.TrimSuffix(cfg.APIBaseURL, "/")+"/api/graphql", httpClient)
	}

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		owner:         cfg.RepoOwner,
		repo:          cfg.RepoName,
		source:        cfg.Source,
		logger:        logger.With().Str("component", "extractor").Str("source", string(cfg.Source)).Logger(),
	}, nil
}

// Extract returns every commit the API reports since windowStart, in API order.
// Any failure yields ErrUpstreamUnavailable and no records.
func (g *GitHubGateway) Extract(ctx context.Context, windowStart time.Time) ([]domain.RawActivityRecord, error) {
	g.logger.Info().Time("since", windowStart).Msgf("Fetching commits of %s/%s...", g.owner, g.repo)
	var (
		records []domain.RawActivityRecord
		err     error
	)
	if g.source == config.SourceGraphQL {
		records, err = g.extractGraphQL(ctx, windowStart)
	} else {
		records, err = g.extractREST(ctx, windowStart)
	}
	if err != nil {
		return nil, err
	}
	g.logger.Info().Int("records", len(records)).Msg("Completed fetching commits.")
	return records, nil
}

func (g *GitHubGateway) extractREST(ctx context.Context, windowStart time.Time) ([]domain.RawActivityRecord, error) {
	opts := &github.CommitsListOptions{
		Since:       windowStart.UTC(),
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	records := make([]domain.RawActivityRecord, 0)
	for {
		values, err := query.Values(opts)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode commit list options: %w", domain.ErrUpstreamUnavailable, err)
		}
		u := fmt.Sprintf("repos/%v/%v/commits?%s", g.owner, g.repo, values.Encode())
		req, err := g.restClient.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to build commit list request: %w", domain.ErrUpstreamUnavailable, err)
		}

		var page []json.RawMessage
		resp, err := g.restClient.Do(ctx, req, &page)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list commits with REST API: %w", domain.ErrUpstreamUnavailable, err)
		}
		for _, payload := range page {
			records = append(records, domain.RawActivityRecord{Payload: payload})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug().Int("page", resp.NextPage).Msg("Fetching next page of commits...")
	}
	return records, nil
}

func (g *GitHubGateway) extractGraphQL(ctx context.Context, windowStart time.Time) ([]domain.RawActivityRecord, error) {
	variables := map[string]interface{}{
		"owner":  githubv4.String(g.owner),
		"name":   githubv4.String(g.repo),
		"since":  githubv4.GitTimestamp{Time: windowStart.UTC()},
		"cursor": (*githubv4.String)(nil),
	}
	records := make([]domain.RawActivityRecord, 0)
	for {
		var q commitHistoryQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("%w: failed to execute GraphQL query for commit history: %w", domain.ErrUpstreamUnavailable, err)
		}
		history := q.Repository.DefaultBranchRef.Target.Commit.History
		for _, node := range history.Nodes {
			payload, err := renderRESTShape(node.Oid, node.Author.Name, node.Author.Date, node.Message, node.URL)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to render commit %s: %w", domain.ErrUpstreamUnavailable, node.Oid, err)
			}
			records = append(records, domain.RawActivityRecord{Payload: payload})
		}
		if !history.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(history.PageInfo.EndCursor)
		g.logger.Debug().Msg("Fetching next page of commit history...")
	}
	return records, nil
}

// renderRESTShape lays a GraphQL commit out the way the REST commits endpoint does,
// so both sources feed the transformer the same payload. Nil values are left out
// so the transformer reports the path as missing.
func renderRESTShape(sha string, author, date *string, message, url string) (json.RawMessage, error) {
	fields := []struct {
		path  string
		value *string
	}{
		{"sha", &sha},
		{"commit.author.name", author},
		{"commit.author.date", date},
		{"commit.message", &message},
		{"html_url", &url},
	}
	payload := []byte(`{}`)
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		var err error
		payload, err = sjson.SetBytes(payload, f.path, *f.value)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}
