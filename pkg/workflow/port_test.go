package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ocaport/pkg/github"
	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
	"github.com/Sumatoshi-tech/ocaport/pkg/session"
	"github.com/Sumatoshi-tech/ocaport/pkg/workflow"
)

func singlePRDiff(pr *porting.PullRequest, commits ...*porting.Commit) *porting.Diff {
	return &porting.Diff{
		Source:    porting.BranchRef{Remote: "origin", Name: "15.0"},
		Target:    porting.BranchRef{Remote: "origin", Name: "16.0"},
		AddonName: "my_module",
		Addon:     []porting.Group{{PullRequest: pr, Commits: commits}},
	}
}

func TestPortEmptyDiff(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fakeTree{})

	report, err := workflow.NewPorter(h.deps(), h.settings).Run(context.Background(), &porting.Diff{})
	require.NoError(t, err)
	assert.Empty(t, report.Branch)
	assert.Contains(t, h.out.String(), "Nothing to port.")
	assert.Empty(t, h.git.calls)
}

func TestPortPullRequest(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fakeTree{})
	h.writeFile(t, "my_module/__manifest__.py", "{}")
	h.writeFile(t, "my_module/models.py", "x = 1")

	c := newCommit("c1c1c1c1c1", "[FIX] my_module: crash",
		"my_module/models.py", "my_module/README.rst", "other_mod/x.py")
	h.git.changes["c1c1c1c1c1"] = gitlib.Changes{
		{Action: gitlib.Modify, From: "my_module/models.py", To: "my_module/models.py"},
		{Action: gitlib.Modify, From: "my_module/README.rst", To: "my_module/README.rst"},
		{Action: gitlib.Modify, From: "other_mod/x.py", To: "other_mod/x.py"},
	}
	h.prompter.answers = []bool{true, true, true}

	report, err := workflow.NewPorter(h.deps(), h.settings).Run(context.Background(),
		singlePRDiff(newPullRequest(12, "[FIX] my_module: crash"), c))
	require.NoError(t, err)

	branch := session.DestinationBranch("my_module", "15.0", "16.0", []string{"c1c1c1c1c1"})
	assert.Equal(t, branch, report.Branch)
	assert.Equal(t, "branch "+branch+" origin/16.0", h.git.calls[0])

	require.Len(t, h.git.formatted, 1)
	assert.Equal(t, "c1c1c1c1c1", h.git.formatted[0].rev)
	assert.True(t, h.git.formatted[0].single)
	assert.Equal(t, []string{"my_module/models.py"}, h.git.formatted[0].paths)

	out := h.out.String()
	assert.Contains(t, out, "auto-generated file")
	assert.Contains(t, out, "relates to an unported addon")
	assert.Contains(t, out, "Last PR processed!")

	require.Len(t, report.Ported, 1)
	assert.Equal(t, "OCA/edi#12", report.Ported[0].Ref)
	assert.True(t, report.Pushed)
	assert.Equal(t, []string{"fork " + branch}, h.git.pushed)

	require.Len(t, h.hosting.queries, 1)
	assert.Equal(t, github.SearchQuery{
		Owner: "OCA", Repo: "edi", Base: "16.0", Open: true, Title: "[16.0][FW] [FIX] my_module: crash",
	}, h.hosting.queries[0])

	require.Len(t, h.hosting.created, 1)
	assert.Equal(t, github.NewPullRequest{
		Title: "[16.0][FW] [FIX] my_module: crash",
		Head:  "me:" + branch,
		Base:  "16.0",
		Body:  "Port of #12 from 15.0 to 16.0.",
		Draft: true,
	}, h.hosting.created[0])
	assert.Equal(t, "https://github.com/OCA/edi/pull/99", report.PullRequestURL)
	assert.Empty(t, h.git.commits)
}

func TestPortDeclinedPullRequestIsBlacklisted(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fakeTree{})
	h.prompter.answers = []bool{false, true, false}
	h.prompter.replies = []string{"not needed"}

	report, err := workflow.NewPorter(h.deps(), h.settings).Run(context.Background(),
		singlePRDiff(newPullRequest(12, "[FIX] my_module: crash"), newCommit("c1", "fix", "my_module/a.py")))
	require.NoError(t, err)

	assert.Empty(t, h.git.formatted)
	require.Len(t, report.Blacklisted, 1)
	assert.Equal(t, "not needed", report.Blacklisted[0].Reason)

	reason, ok := h.store.PullRequestBlacklisted("OCA/edi#12")
	require.True(t, ok)
	assert.Equal(t, "not needed", reason)
	assert.Equal(t, []string{"oca-port: blacklist PR(s) 12 for my_module"}, h.git.commits)

	assert.False(t, report.Pushed)
	out := h.out.String()
	assert.Contains(t, out, "couldn't be pushed")
	assert.Contains(t, out, "[16.0][FW] Blacklist of some PRs from 15.0")
	assert.Contains(t, out, "The following PRs have been blacklisted:\n- #12: not needed")
}

func TestPortNothingAppliedOffersBlacklist(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fakeTree{})
	h.settings.ForkRemote = ""

	c := newCommit("c1", "[FIX] other_mod: crash", "other_mod/x.py")
	h.git.changes["c1"] = gitlib.Changes{{Action: gitlib.Modify, From: "other_mod/x.py", To: "other_mod/x.py"}}
	h.prompter.answers = []bool{true, true}

	report, err := workflow.NewPorter(h.deps(), h.settings).Run(context.Background(),
		singlePRDiff(newPullRequest(7, "[FIX] other_mod: crash"), c))
	require.NoError(t, err)

	assert.Empty(t, h.git.formatted)
	assert.Empty(t, report.Ported)
	require.Len(t, report.Blacklisted, 1)
	assert.Equal(t, "(auto) Nothing to port from PR #7", report.Blacklisted[0].Reason)
	assert.Contains(t, h.out.String(), "Nothing to port from this commit, skipping")
	assert.Contains(t, h.out.String(), "PR #7 automatically blacklisted")
}

func TestPortConflictSkipped(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fakeTree{})
	h.writeFile(t, "my_module/__manifest__.py", "{}")
	h.git.amErr = errors.New("patch failed")

	c := newCommit("c1", "[ADD] my_module: feature", "my_module/new.py")
	h.git.changes["c1"] = gitlib.Changes{{Action: gitlib.Insert, To: "my_module/new.py"}}
	h.prompter.answers = []bool{true, false, false}

	report, err := workflow.NewPorter(h.deps(), h.settings).Run(context.Background(),
		singlePRDiff(newPullRequest(3, "[ADD] my_module: feature"), c))
	require.NoError(t, err)

	assert.Contains(t, h.git.calls, "am --abort")
	assert.Empty(t, report.Ported)
	assert.Empty(t, report.Blacklisted)
	assert.Contains(t, h.out.String(), "Nothing has been ported or blacklisted.")
}

func TestPortOrphanCommitsCreatedAddon(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fakeTree{})

	c := newCommit("c1", "[ADD] new_mod", "new_mod/__manifest__.py", "new_mod/models.py")
	h.git.changes["c1"] = gitlib.Changes{
		{Action: gitlib.Insert, To: "new_mod/__manifest__.py"},
		{Action: gitlib.Insert, To: "new_mod/models.py"},
	}
	h.prompter.answers = []bool{true, false}

	report, err := workflow.NewPorter(h.deps(), h.settings).Run(context.Background(),
		singlePRDiff(porting.NewOrphan(), c))
	require.NoError(t, err)

	require.Len(t, h.git.formatted, 1)
	assert.Equal(t, []string{"new_mod/__manifest__.py", "new_mod/models.py"}, h.git.formatted[0].paths)
	require.Len(t, report.Ported, 1)
	assert.Equal(t, porting.OrphanRef, report.Ported[0].Ref)
	assert.Contains(t, h.out.String(), "Port commits w/o PR")
	assert.Contains(t, h.prompter.asked, "\tPort them?")
}

func TestPortKeepsExistingBranchWhenDeclined(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fakeTree{})
	h.settings.Branch = "my-work"
	h.git.branches["my-work"] = "elsewhere"
	h.prompter.answers = []bool{false}

	report, err := workflow.NewPorter(h.deps(), h.settings).Run(context.Background(),
		singlePRDiff(newPullRequest(12, "fix"), newCommit("c1", "fix", "my_module/a.py")))
	require.NoError(t, err)

	assert.True(t, report.Resumable)
	assert.Empty(t, h.git.calls)
	assert.Contains(t, h.out.String(), "ocaport run origin/15.0 my-work my_module --target-version=16.0")
}

func TestPortRecreatesExistingBranch(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fakeTree{})
	h.settings.Branch = "my-work"
	h.git.branches["my-work"] = "elsewhere"
	h.git.current = "my-work"
	h.prompter.answers = []bool{true, false, false}

	_, err := workflow.NewPorter(h.deps(), h.settings).Run(context.Background(),
		singlePRDiff(newPullRequest(12, "fix"), newCommit("c1", "fix", "my_module/a.py")))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(h.git.calls), 3)
	assert.Equal(t, []string{"checkout elsewhere", "delete my-work", "branch my-work origin/16.0"}, h.git.calls[:3])
}

func TestPortRefreshesExistingPullRequest(t *testing.T) {
	t.Parallel()

	h := newHarness(t, fakeTree{})
	h.writeFile(t, "my_module/__manifest__.py", "{}")
	h.hosting.found = []github.PullRequest{{Number: 40, URL: "https://github.com/OCA/edi/pull/40"}}

	c := newCommit("c1", "[ADD] my_module: feature", "my_module/new.py")
	h.git.changes["c1"] = gitlib.Changes{{Action: gitlib.Insert, To: "my_module/new.py"}}
	h.prompter.answers = []bool{true, true}

	report, err := workflow.NewPorter(h.deps(), h.settings).Run(context.Background(),
		singlePRDiff(newPullRequest(3, "[ADD] my_module: feature"), c))
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/OCA/edi/pull/40", report.PullRequestURL)
	assert.Empty(t, h.hosting.created)
	assert.Contains(t, h.out.String(), "Existing PR has been refreshed")
}
