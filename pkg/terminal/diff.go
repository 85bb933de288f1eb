package terminal

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/jedib0t/go-pretty/v6/list"

	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

const shortSHA = 8

// PrintDiff lists the pull requests left to port. Verbose also lists the
// touched paths and the commits of every pull request.
func (c *Console) PrintDiff(diff *porting.Diff, verbose bool) {
	if c.silent {
		return
	}

	groups := diff.All()
	c.Emit(diffHeadline(diff, groups))

	if len(groups) == 0 {
		return
	}

	satellite := make(map[*porting.PullRequest]bool, len(diff.Satellite))
	for _, g := range diff.Satellite {
		satellite[g.PullRequest] = true
	}

	lw := list.NewWriter()
	lw.SetStyle(list.StyleConnectedRounded)

	for i, g := range groups {
		pr := g.PullRequest

		if pr.IsOrphan() {
			lw.AppendItem(fmt.Sprintf("%d) %s:", i+1, Title("w/o PR")))
		} else {
			item := fmt.Sprintf("%d) %s %s:", i+1, Title(pr.Ref()), Accent(pr.Title))
			if satellite[pr] {
				item += " " + Dim("(other addons)")
			}

			lw.AppendItem(item)
		}

		lw.Indent()

		if !pr.IsOrphan() {
			lw.AppendItem(fmt.Sprintf("By %s, merged %s", pr.Author, mergedWhen(pr.MergedAt)))
		}

		if verbose {
			lw.AppendItem("Updates: " + Dim(strings.Join(pr.Paths.Sorted(), ", ")))
		}

		if !pr.IsOrphan() {
			lw.AppendItem("Not ported: " + Accent(strings.Join(pr.PathsNotPorted(), ", ")))
		}

		lw.AppendItem(Bold(fmt.Sprintf("%s not (fully) ported", english.Plural(len(g.Commits), "commit", "commits"))))

		if !pr.IsOrphan() {
			lw.AppendItem(pr.URL)
		}

		if verbose || pr.IsOrphan() {
			lw.Indent()

			for _, commit := range g.Commits {
				lw.AppendItem(Dim(commit.SHA[:min(shortSHA, len(commit.SHA))] + " " + commit.Summary))
			}

			lw.UnIndent()
		}

		lw.UnIndent()
	}

	c.Emit("")
	c.Emit(lw.Render())
}

func diffHeadline(diff *porting.Diff, groups []porting.Group) string {
	var orphans int

	prs := len(groups)

	for _, g := range groups {
		if g.PullRequest.IsOrphan() {
			orphans = len(g.Commits)
			prs--
		}
	}

	what := Title(english.Plural(prs, "pull request", "pull requests"))
	if orphans > 0 {
		what += " and " + Title(english.Plural(orphans, "commit", "commits")+" w/o PR")
	}

	return fmt.Sprintf("%s related to '%s' to port from %s to %s",
		what, Accent(diff.AddonName), diff.Source.Ref(), diff.Target.Ref())
}

func mergedWhen(mergedAt string) string {
	when, err := time.Parse(time.RFC3339, mergedAt)
	if err != nil {
		return mergedAt
	}

	return humanize.Time(when)
}
