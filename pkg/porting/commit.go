package porting

import (
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/ocaport/pkg/addon"
)

// EqualityMode selects how two commits from different branches are matched.
type EqualityMode int

const (
	// Strict compares author, authored date, exact message and touched paths.
	Strict EqualityMode = iota
	// Lazy compares author and authored date, tolerates message reformatting
	// by patch tools and ignores paths, so partial ports still match.
	Lazy
)

// authoredLayout drops the zone: ports keep the author's wall clock.
const authoredLayout = "2006-01-02T15:04:05"

// Commit is a commit as seen by the diff engine. Its identity excludes the
// SHA since porting a commit gives it a new one.
type Commit struct {
	SHA         string
	AuthorName  string
	AuthorEmail string
	AuthoredAt  time.Time
	Message     string
	Summary     string
	Parents     []string
	// Files lists every path changed against the first parent.
	Files []string
	// Paths holds the top-level segments of Files.
	Paths []addon.CommitPath

	// PortedCommits links target branch commits that already carry part of
	// this commit.
	PortedCommits []*Commit
}

// NewCommit builds a Commit and derives its top-level paths from files.
func NewCommit(sha string, author Author, message string, parents, files []string) *Commit {
	c := &Commit{
		SHA:         sha,
		AuthorName:  author.Name,
		AuthorEmail: author.Email,
		AuthoredAt:  author.When,
		Message:     message,
		Summary:     summaryOf(message),
		Parents:     parents,
		Files:       slices.Clone(files),
	}

	slices.Sort(c.Files)
	c.Files = slices.Compact(c.Files)
	c.Paths = topLevelPaths(c.Files)

	return c
}

// Author identifies who wrote a commit and when.
type Author struct {
	Name  string
	Email string
	When  time.Time
}

func summaryOf(message string) string {
	line, _, _ := strings.Cut(strings.TrimLeft(message, "\n"), "\n")

	return strings.TrimSpace(line)
}

func topLevelPaths(files []string) []addon.CommitPath {
	byName := make(map[string]addon.CommitPath, len(files))

	for _, f := range files {
		p := addon.NewCommitPath(f)
		if existing, ok := byName[p.Name]; ok && existing.IsDir {
			continue
		}

		byName[p.Name] = p
	}

	paths := make([]addon.CommitPath, 0, len(byName))
	for _, p := range byName {
		paths = append(paths, p)
	}

	slices.SortFunc(paths, func(a, b addon.CommitPath) int { return strings.Compare(a.Name, b.Name) })

	return paths
}

// PathNames returns the set of top-level names the commit touches.
func (c *Commit) PathNames() PathSet {
	set := make(PathSet, len(c.Paths))
	for _, p := range c.Paths {
		set[p.Name] = struct{}{}
	}

	return set
}

// PortablePaths returns the top-level names worth porting.
func (c *Commit) PortablePaths() PathSet {
	set := make(PathSet, len(c.Paths))

	for _, p := range c.Paths {
		if !addon.ShouldSkip(p) {
			set[p.Name] = struct{}{}
		}
	}

	return set
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// Equal matches c against other under mode.
func (c *Commit) Equal(other *Commit, mode EqualityMode) bool {
	if other == nil {
		return false
	}

	if c.AuthorName != other.AuthorName || c.AuthorEmail != other.AuthorEmail {
		return false
	}

	if c.AuthoredAt.Format(authoredLayout) != other.AuthoredAt.Format(authoredLayout) {
		return false
	}

	if mode == Lazy {
		return addon.NormalizeMessage(c.Message) == addon.NormalizeMessage(other.Message)
	}

	return c.Message == other.Message && c.PathNames().Equal(other.PathNames())
}

// LinkPorted records that ported carries part of c.
func (c *Commit) LinkPorted(ported *Commit) {
	if slices.Contains(c.PortedCommits, ported) {
		return
	}

	c.PortedCommits = append(c.PortedCommits, ported)
}

// PathsToPort returns the files still to port: changed files minus
// packaging and translation files, minus files already carried by the
// linked ported commits.
func (c *Commit) PathsToPort() []string {
	ported := make(map[string]struct{})

	for _, p := range c.PortedCommits {
		for _, f := range p.Files {
			ported[f] = struct{}{}
		}
	}

	var paths []string

	for _, f := range c.Files {
		if !addon.KeepDiffPath(f) {
			continue
		}

		if _, done := ported[f]; done {
			continue
		}

		paths = append(paths, f)
	}

	return paths
}

// ShortSHA returns the abbreviated SHA used in console output.
func (c *Commit) ShortSHA() string {
	const shortLen = 8

	if len(c.SHA) < shortLen {
		return c.SHA
	}

	return c.SHA[:shortLen]
}
