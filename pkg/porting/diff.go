package porting

import (
	"cmp"
	"slices"
)

// Group is a pull request with the commits still to port from it.
type Group struct {
	PullRequest *PullRequest
	Commits     []*Commit
}

// MissingSHAs lists the queued commit SHAs in queue order.
func (g Group) MissingSHAs() []string {
	shas := make([]string, 0, len(g.Commits))
	for _, c := range g.Commits {
		shas = append(shas, c.SHA)
	}

	return shas
}

// Diff is the outcome of comparing two branches for one addon. Both buckets
// are ordered by merge date.
type Diff struct {
	Source    BranchRef
	Target    BranchRef
	AddonName string

	// Addon holds pull requests touching the analyzed addon.
	Addon []Group
	// Satellite holds pull requests whose unported paths are elsewhere.
	Satellite []Group
}

// Empty reports whether nothing is left to port.
func (d *Diff) Empty() bool {
	return len(d.Addon) == 0 && len(d.Satellite) == 0
}

// All returns both buckets merged back into merge date order.
func (d *Diff) All() []Group {
	all := make([]Group, 0, len(d.Addon)+len(d.Satellite))
	all = append(all, d.Addon...)
	all = append(all, d.Satellite...)

	slices.SortStableFunc(all, func(a, b Group) int {
		return cmp.Compare(a.PullRequest.MergedAt, b.PullRequest.MergedAt)
	})

	return all
}

// Result is the machine-readable entry of one pull request.
type Result struct {
	URL            string   `json:"url"             yaml:"url"`
	Ref            string   `json:"ref"             yaml:"ref"`
	Author         string   `json:"author"          yaml:"author"`
	Title          string   `json:"title"           yaml:"title"`
	MergedAt       string   `json:"merged_at"       yaml:"merged_at"`
	MissingCommits []string `json:"missing_commits" yaml:"missing_commits"`
	Satellite      bool     `json:"satellite,omitempty" yaml:"satellite,omitempty"`
}

// Results keys every pull request by its number, the empty key holding
// orphaned commits.
func (d *Diff) Results() map[string]Result {
	out := make(map[string]Result, len(d.Addon)+len(d.Satellite))

	add := func(groups []Group, satellite bool) {
		for _, g := range groups {
			pr := g.PullRequest
			out[pr.NumberString()] = Result{
				URL:            pr.URL,
				Ref:            pr.Ref(),
				Author:         pr.Author,
				Title:          pr.Title,
				MergedAt:       pr.MergedAt,
				MissingCommits: g.MissingSHAs(),
				Satellite:      satellite,
			}
		}
	}

	add(d.Addon, false)
	add(d.Satellite, true)

	return out
}
