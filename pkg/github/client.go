// Package github queries and updates pull requests on GitHub.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"

	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

// DefaultTokenEnv is the environment variable holding the API token.
const DefaultTokenEnv = "GITHUB_TOKEN"

const perPage = 100

// APIError is returned when the API answers with a non-success status.
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api: status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Options configure a Client.
type Options struct {
	// Token authenticates requests. Read from TokenEnv when empty.
	Token    string
	TokenEnv string
	// BaseURL overrides https://api.github.com/, e.g. for tests.
	BaseURL string
	// HTTPClient carries the transport; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// Client wraps the GitHub REST API.
type Client struct {
	gh *gh.Client
}

// New builds a Client.
func New(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	client := gh.NewClient(httpClient)

	token := opts.Token
	if token == "" {
		env := opts.TokenEnv
		if env == "" {
			env = DefaultTokenEnv
		}

		token = os.Getenv(env)
	}

	if token != "" {
		client = client.WithAuthToken(token)
	}

	if opts.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github api url: %w", err)
		}

		client.BaseURL = base
	}

	return &Client{gh: client}, nil
}

// PullRequestsForCommit implements porting.PRFinder.
func (c *Client) PullRequestsForCommit(ctx context.Context, owner, repo, sha string) ([]porting.RemotePullRequest, error) {
	prs, _, err := c.gh.PullRequests.ListPullRequestsWithCommit(ctx, owner, repo, sha, &gh.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, wrapError(err)
	}

	out := make([]porting.RemotePullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, porting.RemotePullRequest{
			PullRequestData: pullRequestData(pr),
			BaseBranch:      pr.GetBase().GetRef(),
		})
	}

	return out, nil
}

// PullRequestCommits implements porting.PRFinder. Commits are returned in
// pull request order.
func (c *Client) PullRequestCommits(ctx context.Context, owner, repo string, number int) ([]string, error) {
	var shas []string

	opts := &gh.ListOptions{PerPage: perPage}

	for {
		commits, resp, err := c.gh.PullRequests.ListCommits(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, wrapError(err)
		}

		for _, commit := range commits {
			shas = append(shas, commit.GetSHA())
		}

		if resp == nil || resp.NextPage == 0 {
			return shas, nil
		}

		opts.Page = resp.NextPage
	}
}

// PullRequest is the subset of a pull request shown to users.
type PullRequest struct {
	Number int    `json:"number" yaml:"number"`
	URL    string `json:"url"    yaml:"url"`
	Title  string `json:"title"  yaml:"title"`
	Author string `json:"author" yaml:"author"`
	State  string `json:"state"  yaml:"state"`
}

// SearchQuery builds an issue search restricted to pull requests.
type SearchQuery struct {
	Owner string
	Repo  string
	Base  string
	// Open restricts to open pull requests.
	Open bool
	// Title terms matched against titles.
	Title string
}

func (q SearchQuery) String() string {
	parts := []string{"is:pr", fmt.Sprintf("repo:%s/%s", q.Owner, q.Repo)}

	if q.Base != "" {
		parts = append(parts, "base:"+q.Base)
	}

	if q.Open {
		parts = append(parts, "state:open")
	}

	if q.Title != "" {
		parts = append(parts, q.Title, "in:title")
	}

	return strings.Join(parts, " ")
}

// SearchPullRequests returns the pull requests matching query.
func (c *Client) SearchPullRequests(ctx context.Context, query SearchQuery) ([]PullRequest, error) {
	result, _, err := c.gh.Search.Issues(ctx, query.String(), &gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: perPage}})
	if err != nil {
		return nil, wrapError(err)
	}

	out := make([]PullRequest, 0, len(result.Issues))
	for _, issue := range result.Issues {
		out = append(out, PullRequest{
			Number: issue.GetNumber(),
			URL:    issue.GetHTMLURL(),
			Title:  issue.GetTitle(),
			Author: issue.GetUser().GetLogin(),
			State:  issue.GetState(),
		})
	}

	return out, nil
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Title string `json:"title"`
	// Head is "<org>:<branch>".
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body"`
	Draft bool   `json:"draft"`
}

// CreatePullRequest opens a pull request on owner/repo and returns its URL.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, pr NewPullRequest) (string, error) {
	created, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &gh.NewPullRequest{
		Title: gh.Ptr(pr.Title),
		Head:  gh.Ptr(pr.Head),
		Base:  gh.Ptr(pr.Base),
		Body:  gh.Ptr(pr.Body),
		Draft: gh.Ptr(pr.Draft),
	})
	if err != nil {
		return "", wrapError(err)
	}

	return created.GetHTMLURL(), nil
}

func pullRequestData(pr *gh.PullRequest) porting.PullRequestData {
	var mergedAt string
	if pr.MergedAt != nil {
		mergedAt = pr.GetMergedAt().UTC().Format(time.RFC3339)
	}

	return porting.PullRequestData{
		Number:   pr.GetNumber(),
		URL:      pr.GetHTMLURL(),
		Author:   pr.GetUser().GetLogin(),
		Title:    pr.GetTitle(),
		Body:     pr.GetBody(),
		MergedAt: mergedAt,
	}
}

func wrapError(err error) error {
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return &APIError{StatusCode: respErr.Response.StatusCode, Body: respErr.Message, Err: err}
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return &APIError{StatusCode: rateErr.Response.StatusCode, Body: rateErr.Message, Err: err}
	}

	return fmt.Errorf("github api: %w", err)
}
