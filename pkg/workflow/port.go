package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/ocaport/pkg/addon"
	"github.com/Sumatoshi-tech/ocaport/pkg/github"
	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
	"github.com/Sumatoshi-tech/ocaport/pkg/session"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

// PortReport summarizes a porting run.
type PortReport struct {
	Branch      string
	Ported      []session.Record
	Blacklisted []session.Record
	// Resumable is set when the operator kept an existing work branch
	// untouched and nothing was done.
	Resumable bool
	Pushed    bool
	// PullRequestURL is the created or refreshed pull request.
	PullRequestURL string
	// CompareURL lets the operator open the pull request by hand.
	CompareURL string
}

// Porter ports the pull requests of a diff onto a work branch created from
// the target branch, then offers to push it and open a draft pull request.
type Porter struct {
	deps     Deps
	settings Settings

	branch  string
	session *session.Session
}

// NewPorter returns a Porter.
func NewPorter(deps Deps, settings Settings) *Porter {
	return &Porter{deps: deps, settings: settings}
}

// Run processes every pull request of diff in merge order.
func (p *Porter) Run(ctx context.Context, diff *porting.Diff) (*PortReport, error) {
	if diff.Empty() {
		p.deps.Console.Emit("Nothing to port.")

		return &PortReport{}, nil
	}

	groups := diff.All()
	p.branch = p.branchName(groups)
	p.session = session.Open(session.Options{
		Dir:      p.settings.SessionDir,
		Org:      p.settings.UpstreamOrg,
		Addon:    p.settings.Addon,
		RepoName: p.settings.RepoName,
		From:     p.settings.SourceVersion,
		To:       p.settings.TargetVersion,
		Name:     p.settings.Addon + "-" + p.branch,
	})

	report := &PortReport{Branch: p.branch}

	p.printSession()

	proceed, err := p.prepareBranch(ctx)
	if err != nil {
		return report, err
	}

	if !proceed {
		report.Resumable = true

		return report, nil
	}

	for i, group := range groups {
		err = p.portGroup(ctx, group, i == len(groups)-1)
		if err != nil {
			return report, err
		}
	}

	err = p.commitBlacklist(ctx)
	if err != nil {
		return report, err
	}

	report.Ported = p.session.Ported()
	report.Blacklisted = p.session.Blacklisted()

	if len(report.Ported) == 0 && len(report.Blacklisted) == 0 {
		p.deps.Console.Emit("Nothing has been ported or blacklisted.")

		return report, nil
	}

	return report, p.publish(ctx, report)
}

func (p *Porter) branchName(groups []porting.Group) string {
	if p.settings.Branch != "" {
		return p.settings.Branch
	}

	var shas []string
	for _, g := range groups {
		shas = append(shas, g.MissingSHAs()...)
	}

	return session.DestinationBranch(p.settings.Addon, p.settings.SourceVersion, p.settings.TargetVersion, shas)
}

func (p *Porter) printSession() {
	if !p.session.InProgress() {
		return
	}

	c := p.deps.Console
	c.Emitf("Existing session for branch %s:", terminal.Bold(p.branch))

	if ported := p.session.Ported(); len(ported) > 0 {
		c.Emit("\tPorted PRs:")

		for _, rec := range ported {
			c.Emitf("\t- %s %s", terminal.Accent(rec.Ref), rec.Title)
		}
	}

	if blacklisted := p.session.Blacklisted(); len(blacklisted) > 0 {
		c.Emit("\tBlacklisted PRs:")

		for _, rec := range blacklisted {
			c.Emitf("\t- %s %s", terminal.Accent(rec.Ref), rec.Title)
		}
	}
}

// prepareBranch checks out the work branch, creating it from the target
// branch. An existing branch that moved away from the target is recreated
// only once confirmed; declining leaves it for a later resume.
func (p *Porter) prepareBranch(ctx context.Context) (bool, error) {
	wt := p.deps.Worktree
	target := p.settings.Target.Ref()

	if p.deps.Repo.LocalBranchExists(p.branch) && !p.settings.KeepBranch {
		targetSHA, err := wt.RevParse(ctx, target)
		if err != nil {
			return false, err
		}

		branchSHA, err := wt.RevParse(ctx, p.branch)
		if err != nil {
			return false, err
		}

		if targetSHA != branchSHA {
			recreate, err := p.deps.Prompter.Confirm(fmt.Sprintf(
				"Branch %s already exists, recreate it from %s?\n(you will lose ongoing work)",
				terminal.Bold(p.branch), terminal.Bold(target)), false)
			if err != nil {
				return false, err
			}

			if !recreate {
				p.deps.Console.Emit("To resume the work from this branch, relaunch with:\n\n\t" +
					terminal.Dim(p.resumeCommand()))

				return false, nil
			}

			err = p.dropBranch(ctx, branchSHA)
			if err != nil {
				return false, err
			}
		}
	}

	if p.deps.Repo.LocalBranchExists(p.branch) {
		return true, wt.Checkout(ctx, p.branch)
	}

	return true, wt.CreateBranch(ctx, p.branch, target)
}

func (p *Porter) dropBranch(ctx context.Context, tip string) error {
	current, err := p.deps.Repo.CurrentBranch()
	if err == nil && current == p.branch {
		err = p.deps.Worktree.Checkout(ctx, tip)
		if err != nil {
			return err
		}
	}

	err = p.deps.Worktree.DeleteBranch(ctx, p.branch)
	if err != nil {
		return err
	}

	return p.session.Clear()
}

func (p *Porter) resumeCommand() string {
	parts := []string{"ocaport run", p.settings.Source.Ref(), p.branch, p.settings.Addon}

	if p.settings.Source.Name != p.settings.SourceVersion {
		parts = append(parts, "--source-version="+p.settings.SourceVersion)
	}

	if p.branch != p.settings.TargetVersion {
		parts = append(parts, "--target-version="+p.settings.TargetVersion)
	}

	return strings.Join(parts, " ")
}

func (p *Porter) portGroup(ctx context.Context, group porting.Group, last bool) error {
	pr := group.PullRequest

	if p.session.IsBlacklisted(pr) {
		p.deps.Console.Warn(fmt.Sprintf("- %s is blacklisted in current user's session", prLabel(pr)))

		keep, err := p.deps.Prompter.Confirm("\tKeep it blacklisted?", true)
		if err != nil {
			return err
		}

		if keep {
			return nil
		}

		err = p.session.Unblacklist(pr.BlacklistKey())
		if err != nil {
			return err
		}
	}

	before, err := p.deps.Worktree.RevParse(ctx, "HEAD")
	if err != nil {
		return err
	}

	accepted, err := p.portCommits(ctx, group)
	if err != nil || !accepted {
		return err
	}

	after, err := p.deps.Worktree.RevParse(ctx, "HEAD")
	if err != nil {
		return err
	}

	if after == before {
		p.deps.Console.Emit("\tNothing has been ported, skipping")

		blacklisted, err := p.offerBlacklist(pr, autoReason(pr))
		if err != nil {
			return err
		}

		if blacklisted {
			p.deps.Console.Emit(terminal.Dim("\t" + prLabel(pr) + " automatically blacklisted"))
		}

		return nil
	}

	err = p.session.MarkPorted(pr)
	if err != nil {
		return err
	}

	if last {
		p.deps.Console.Success("\tLast PR processed!")
	}

	return nil
}

func (p *Porter) portCommits(ctx context.Context, group porting.Group) (bool, error) {
	c := p.deps.Console
	pr := group.PullRequest
	question := "\tPort it?"

	if pr.IsOrphan() {
		c.Emit("- " + terminal.Title("Port commits w/o PR") + "...")

		question = "\tPort them?"
	} else {
		c.Emitf("- %s %s...", terminal.Title("Port PR "+pr.Ref()), pr.Title)
		c.Emit("\t" + pr.URL)
	}

	accepted, err := p.deps.Prompter.Confirm(question, false)
	if err != nil {
		return false, err
	}

	if !accepted {
		_, err = p.offerBlacklist(pr, "")

		return false, err
	}

	for _, commit := range group.Commits {
		c.Emitf("\t\tApply %s %s...", terminal.Accent(commit.ShortSHA()), commit.Summary)

		err = p.portCommit(ctx, commit)
		if err != nil {
			return false, err
		}
	}

	return true, nil
}

func (p *Porter) portCommit(ctx context.Context, commit *porting.Commit) error {
	paths, err := p.portablePaths(commit)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		p.deps.Console.Emit("\t\t\tNothing to port from this commit, skipping")

		return nil
	}

	_, err = applyPatches(ctx, p.deps.Worktree, commit.SHA, true, paths)
	if !errors.Is(err, ErrConflict) {
		return err
	}

	p.deps.Console.Error(err)
	p.deps.logger().WarnContext(ctx, "patch conflict", "sha", commit.SHA, "error", err)

	resolved, err := p.deps.Prompter.Confirm(
		"A conflict occurs, please resolve it and confirm to continue the process (y) or skip this commit (N).", false)
	if err != nil {
		return err
	}

	if resolved {
		return nil
	}

	return p.deps.Worktree.AmAbort(ctx)
}

// portablePaths narrows the paths to port of commit to those its changes
// can carry onto the checked-out work branch.
func (p *Porter) portablePaths(commit *porting.Commit) ([]string, error) {
	paths := make(map[string]struct{})
	for _, path := range commit.PathsToPort() {
		paths[path] = struct{}{}
	}

	changes, err := p.deps.Repo.CommitChanges(commit.SHA)
	if err != nil {
		return nil, fmt.Errorf("changes of %s: %w", commit.ShortSHA(), err)
	}

	created := addonsCreated(changes)

	for _, change := range changes {
		skip, reason := p.skipChange(change, paths, created)
		if !skip {
			continue
		}

		if reason != "" {
			p.deps.Console.Emit("\t\t\t" + reason)
		}

		delete(paths, change.From)
		delete(paths, change.To)
	}

	out := make([]string, 0, len(paths))
	for path := range paths {
		out = append(out, path)
	}

	slices.Sort(out)

	return out, nil
}

func (p *Porter) skipChange(change gitlib.Change, paths map[string]struct{}, created map[string]struct{}) (bool, string) {
	path := change.Path()
	if _, ok := paths[path]; !ok {
		return true, ""
	}

	if change.From != "" && change.To != "" && change.From != change.To {
		return false, ""
	}

	label := change.Action.String() + " " + path

	if addon.IsBotFile(path) {
		return true, fmt.Sprintf("SKIP: '%s' diff relates to an auto-generated file, skip to avoid conflict", label)
	}

	if dir, _, nested := strings.Cut(path, "/"); nested {
		_, isNew := created[dir]
		if !isNew && addon.ManifestPath(filepath.Join(p.deps.Worktree.Dir(), dir)) == "" {
			return true, terminal.Dim(fmt.Sprintf("SKIP diff '%s': relates to an unported addon", label))
		}
	}

	if change.Action != gitlib.Insert {
		_, err := os.Stat(filepath.Join(p.deps.Worktree.Dir(), path))
		if err != nil {
			return true, fmt.Sprintf("SKIP: '%s' diff relates to a non-existing file", label)
		}
	}

	return false, ""
}

// addonsCreated lists the addons whose manifest is added by changes.
func addonsCreated(changes gitlib.Changes) map[string]struct{} {
	created := make(map[string]struct{})

	for _, change := range changes {
		if change.Action == gitlib.Insert && addon.IsManifest(change.To) {
			dir, _, _ := strings.Cut(change.To, "/")
			created[dir] = struct{}{}
		}
	}

	return created
}

func (p *Porter) offerBlacklist(pr *porting.PullRequest, reason string) (bool, error) {
	confirmed, err := p.deps.Prompter.Confirm("\tBlacklist this PR?", false)
	if err != nil || !confirmed {
		return false, err
	}

	if reason == "" {
		reason, err = p.deps.Prompter.Ask("\tReason")
		if err != nil {
			return false, err
		}
	}

	return true, p.session.Blacklist(pr, reason)
}

// commitBlacklist moves the session blacklist into the repository document
// and commits it on the work branch.
func (p *Porter) commitBlacklist(ctx context.Context) error {
	store := p.deps.Blacklist
	if store == nil {
		return nil
	}

	var refs []string

	for _, rec := range p.session.Blacklisted() {
		refs = append(refs, recordRef(rec))

		if _, ok := store.PullRequestBlacklisted(rec.Ref); ok {
			continue
		}

		store.BlacklistPR(rec.Ref, rec.Reason)
	}

	if !store.Dirty() {
		return nil
	}

	msg := fmt.Sprintf("oca-port: blacklist PR(s) %s for %s", strings.Join(refs, ", "), p.settings.Addon)

	return store.Commit(ctx, p.deps.Repo, p.deps.Worktree, p.settings.Target.Name, msg)
}

func (p *Porter) publish(ctx context.Context, report *PortReport) error {
	c := p.deps.Console
	proposal := NewProposal(p.settings, p.branch, report.Ported, report.Blacklisted)
	report.CompareURL = CompareURL(p.settings.UpstreamOrg, p.settings.RepoName, p.settings.Target.Name,
		p.settings.ForkOrg, p.branch, proposal.Title)

	pushed, err := p.push(ctx)
	if err != nil {
		return err
	}

	if !pushed {
		c.Emitf("\nBranch %s couldn't be pushed (no remote defined)", terminal.Bold(p.branch))
		p.printProposal(proposal)

		return nil
	}

	report.Pushed = true

	if p.settings.ForkOrg == "" || p.deps.Hosting == nil {
		c.Emitf("\nPR based on %s couldn't be open (no remote defined)", terminal.Bold(p.branch))
		p.printProposal(proposal)

		return nil
	}

	existing, err := p.deps.Hosting.SearchPullRequests(ctx, github.SearchQuery{
		Owner: p.settings.UpstreamOrg,
		Repo:  p.settings.RepoName,
		Base:  p.settings.Target.Name,
		Open:  true,
		Title: proposal.Title,
	})
	if err != nil {
		return fmt.Errorf("search pull requests: %w", err)
	}

	if len(existing) > 0 {
		report.PullRequestURL = existing[0].URL
		c.Emit("Existing PR has been refreshed => " + existing[0].URL)

		return nil
	}

	create, err := p.deps.Prompter.Confirm(fmt.Sprintf("Create a draft PR from '%s' to '%s' against %s/%s?",
		terminal.Bold(p.branch), terminal.Bold(p.settings.Target.Name), p.settings.UpstreamOrg, p.settings.RepoName), false)
	if err != nil {
		return err
	}

	if !create {
		c.Emit("\nYou can still open the PR yourself there:\n\t" + report.CompareURL + "\n")
		p.printProposal(proposal)

		return nil
	}

	created, err := p.deps.Hosting.CreatePullRequest(ctx, p.settings.UpstreamOrg, p.settings.RepoName, proposal.NewPullRequest())
	if err != nil {
		return fmt.Errorf("create pull request: %w", err)
	}

	report.PullRequestURL = created
	c.Success("\tPR created => " + created)

	return nil
}

func (p *Porter) push(ctx context.Context) (bool, error) {
	if p.settings.ForkRemote == "" {
		return false, nil
	}

	confirmed, err := p.deps.Prompter.Confirm(fmt.Sprintf("Push branch '%s' to remote '%s'?",
		terminal.Bold(p.branch), terminal.Bold(p.settings.ForkRemote)), false)
	if err != nil || !confirmed {
		return false, err
	}

	err = p.deps.Worktree.Push(ctx, p.settings.ForkRemote, p.branch)
	if err != nil {
		return false, fmt.Errorf("push %s: %w", p.branch, err)
	}

	return true, nil
}

func (p *Porter) printProposal(proposal Proposal) {
	c := p.deps.Console
	c.Emit("Here is the default PR content that would have been used:")
	c.Emit("\n" + terminal.Bold("Title:"))
	c.Emit(proposal.Title)
	c.Emit("\n" + terminal.Bold("Description:"))
	c.Emit(proposal.Body)
}

func prLabel(pr *porting.PullRequest) string {
	if pr.IsOrphan() {
		return "Orphaned commits"
	}

	return "PR #" + pr.NumberString()
}

func autoReason(pr *porting.PullRequest) string {
	if pr.IsOrphan() {
		return "(auto) Nothing to port from orphaned commits"
	}

	return "(auto) Nothing to port from PR #" + pr.NumberString()
}

func recordRef(rec session.Record) string {
	if rec.Number == 0 {
		return rec.Ref
	}

	return strconv.Itoa(rec.Number)
}
