package porting

import (
	"slices"
	"strconv"
	"strings"
)

// OrphanRef is the blacklist key of commits without a pull request.
const OrphanRef = "orphaned_commits"

// PullRequestData is the persisted form of a pull request.
type PullRequestData struct {
	Number   int      `json:"number"`
	URL      string   `json:"url"`
	Author   string   `json:"author"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	MergedAt string   `json:"merged_at"`
	Commits  []string `json:"commits"`
}

// PullRequestKey is the identity of a pull request.
type PullRequestKey struct {
	Number   int
	URL      string
	Author   string
	Title    string
	Body     string
	MergedAt string
}

// PullRequest groups the commits of a pull request and the top-level paths
// they touch. The zero Number and empty URL denote the orphan pull request
// collecting commits with no known origin.
type PullRequest struct {
	Number   int
	URL      string
	Author   string
	Title    string
	Body     string
	MergedAt string
	Commits  []string

	Paths       PathSet
	PortedPaths PathSet
}

// NewPullRequest materializes a pull request from its persisted form.
func NewPullRequest(data PullRequestData) *PullRequest {
	return &PullRequest{
		Number:      data.Number,
		URL:         data.URL,
		Author:      data.Author,
		Title:       data.Title,
		Body:        data.Body,
		MergedAt:    data.MergedAt,
		Commits:     slices.Clone(data.Commits),
		Paths:       PathSet{},
		PortedPaths: PathSet{},
	}
}

// NewOrphan returns an empty orphan pull request.
func NewOrphan() *PullRequest {
	return NewPullRequest(PullRequestData{})
}

// Key returns the identity of the pull request.
func (p *PullRequest) Key() PullRequestKey {
	return PullRequestKey{
		Number:   p.Number,
		URL:      p.URL,
		Author:   p.Author,
		Title:    p.Title,
		Body:     p.Body,
		MergedAt: p.MergedAt,
	}
}

// IsOrphan reports whether p is the orphan bucket.
func (p *PullRequest) IsOrphan() bool {
	return p.Number == 0 && p.URL == ""
}

// Ref returns the "org/repo#number" reference, empty for the orphan.
func (p *PullRequest) Ref() string {
	return RefFromURL(p.URL)
}

// NumberString returns the number as text, empty for the orphan.
func (p *PullRequest) NumberString() string {
	if p.Number == 0 {
		return ""
	}

	return strconv.Itoa(p.Number)
}

// BlacklistKey is the reference used in blacklist documents.
func (p *PullRequest) BlacklistKey() string {
	if ref := p.Ref(); ref != "" {
		return ref
	}

	return OrphanRef
}

// AppendCommit records sha once.
func (p *PullRequest) AppendCommit(sha string) {
	if slices.Contains(p.Commits, sha) {
		return
	}

	p.Commits = append(p.Commits, sha)
}

// PathsNotPorted returns the touched paths not already carried by ported commits.
func (p *PullRequest) PathsNotPorted() []string {
	return p.Paths.Minus(p.PortedPaths).Sorted()
}

// Data returns the persisted form.
func (p *PullRequest) Data() PullRequestData {
	return PullRequestData{
		Number:   p.Number,
		URL:      p.URL,
		Author:   p.Author,
		Title:    p.Title,
		Body:     p.Body,
		MergedAt: p.MergedAt,
		Commits:  slices.Clone(p.Commits),
	}
}

// RefFromURL turns "https://github.com/OCA/edi/pull/371" into "OCA/edi#371".
func RefFromURL(url string) string {
	if url == "" {
		return ""
	}

	_, rest, ok := strings.Cut(url, "://")
	if !ok {
		rest = url
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")

	const segments = 5 // host, org, repo, "pull", number
	if len(parts) < segments {
		return ""
	}

	return parts[1] + "/" + parts[2] + "#" + parts[4]
}
