package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/ocaport/pkg/addon"
	"github.com/Sumatoshi-tech/ocaport/pkg/github"
	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

const (
	mergeCommitsURL   = "https://github.com/OCA/maintainer-tools/wiki/Merge-commits-in-pull-requests"
	migrationTasksURL = "https://github.com/OCA/maintainer-tools/wiki/Migration-to-version-%s#tasks-to-do-in-the-migration"

	placeholderOrg    = "YOUR_ORG"
	placeholderRemote = "YOUR_REMOTE"
)

// MigrationBranch returns the default branch receiving the migration of addonName.
func MigrationBranch(targetVersion, addonName string) string {
	return targetVersion + "-mig-" + addonName
}

// MigrationTitle returns the default title of a migration pull request.
func MigrationTitle(version, addonName string) string {
	return fmt.Sprintf("[%s][MIG] %s", version, addonName)
}

// Migration is the outcome of a migration check, completed by Run.
type Migration struct {
	Branch string
	// ExistingPR is an open pull request already migrating the addon.
	ExistingPR *github.PullRequest
	// Blacklisted holds the reason the addon must not be migrated.
	Blacklisted string
	// Applied counts the patches replayed onto Branch.
	Applied int
}

// MigrationResults is the machine-readable form of a migration check.
type MigrationResults struct {
	ExistingPR  *github.PullRequest `json:"existing_pr" yaml:"existing_pr"`
	Blacklisted *string             `json:"blacklisted" yaml:"blacklisted"`
}

// Results returns the serialized form, with nulls for missing values.
func (m *Migration) Results() MigrationResults {
	res := MigrationResults{ExistingPR: m.ExistingPR}

	if m.Blacklisted != "" {
		reason := m.Blacklisted
		res.Blacklisted = &reason
	}

	return res
}

// Migrator replays the history of an addon missing on the target branch.
type Migrator struct {
	deps     Deps
	settings Settings
}

// NewMigrator returns a Migrator.
func NewMigrator(deps Deps, settings Settings) *Migrator {
	return &Migrator{deps: deps, settings: settings}
}

func (m *Migrator) branch() string {
	if m.settings.Branch != "" {
		return m.settings.Branch
	}

	return MigrationBranch(m.settings.TargetVersion, m.settings.Addon)
}

// Check reports whether the addon is blacklisted for migration and looks up
// an open pull request already migrating it. Hosting failures are logged and
// leave ExistingPR empty.
func (m *Migrator) Check(ctx context.Context) *Migration {
	mig := &Migration{Branch: m.branch()}

	if m.deps.Blacklist != nil {
		if reason, ok := m.deps.Blacklist.AddonBlacklisted(); ok {
			mig.Blacklisted = reason
			m.deps.Console.Emit(terminal.Dim(fmt.Sprintf("Migration of %s to %s blacklisted (%s)",
				m.settings.Addon, m.settings.Target.Name, reason)))

			return mig
		}
	}

	existing, err := m.existingPullRequest(ctx)
	if err != nil {
		m.deps.logger().WarnContext(ctx, "search migration pull request", "addon", m.settings.Addon, "error", err)
	}

	if existing != nil {
		mig.ExistingPR = existing
		m.deps.Console.Warn(fmt.Sprintf("Migration of %s seems handled in this PR:\n\t\t%s (by %s)\n"+
			"\tWe invite you to review this PR instead of opening a new one. Thank you!",
			terminal.Bold(m.settings.Addon), terminal.Bold(existing.URL), existing.Author))
	}

	return mig
}

// existingPullRequest returns the first open pull request against the target
// branch whose title names the addon as a whole word.
func (m *Migrator) existingPullRequest(ctx context.Context) (*github.PullRequest, error) {
	if m.deps.Hosting == nil || m.settings.UpstreamOrg == "" || m.settings.RepoName == "" {
		return nil, nil
	}

	prs, err := m.deps.Hosting.SearchPullRequests(ctx, github.SearchQuery{
		Owner: m.settings.UpstreamOrg,
		Repo:  m.settings.RepoName,
		Base:  m.settings.Target.Name,
		Open:  true,
		Title: m.settings.Addon,
	})
	if err != nil {
		return nil, err
	}

	for _, pr := range prs {
		if addon.MentionsAddon(m.settings.Addon, pr.Title) {
			return &pr, nil
		}
	}

	return nil, nil
}

// Run checks out the target branch, creates the migration branch and replays
// the addon history onto it. Declining the migration offers to blacklist the
// addon instead, committed on the migration branch.
func (m *Migrator) Run(ctx context.Context, mig *Migration) error {
	changed, err := m.deps.Repo.ChangedPaths(gitlib.StatusOptions{})
	if err != nil {
		return err
	}

	if len(changed) > 0 {
		return ErrUnstagedChanges
	}

	err = m.checkoutTarget(ctx)
	if err != nil {
		return err
	}

	_, err = os.Stat(filepath.Join(m.deps.Worktree.Dir(), m.settings.Addon))
	if err == nil {
		m.deps.Console.Emitf("%s local directory (uncommitted) already exists, aborting.", terminal.Bold(m.settings.Addon))

		return nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	migrate, err := m.deps.Prompter.Confirm(fmt.Sprintf("Migrate %s from %s to %s?",
		terminal.Bold(m.settings.Addon), terminal.Bold(m.settings.SourceVersion), terminal.Bold(m.settings.TargetVersion)), false)
	if err != nil {
		return err
	}

	if !migrate {
		blacklisted, blErr := m.offerAddonBlacklist()
		if blErr != nil || !blacklisted {
			return blErr
		}
	}

	created, err := m.createBranch(ctx, mig.Branch)
	if err != nil || !created {
		return err
	}

	if m.deps.Blacklist != nil && m.deps.Blacklist.Dirty() {
		err = m.deps.Blacklist.Commit(ctx, m.deps.Repo, m.deps.Worktree, m.settings.Target.Name, "")
		if err != nil {
			return err
		}

		m.printTips(mig, true)

		return nil
	}

	m.deps.Console.Emit("\tGenerate patches...")

	revRange := m.settings.Target.Ref() + ".." + m.settings.Source.Ref()

	applied, err := applyPatches(ctx, m.deps.Worktree, revRange, false, []string{m.settings.Addon})
	if err != nil {
		return err
	}

	mig.Applied = applied
	m.deps.Console.Emitf("\tApplied %d patches.", applied)
	m.deps.Console.Emitf("\t\tCommits history of %s has been migrated.", terminal.Bold(m.settings.Addon))
	m.printTips(mig, false)

	return nil
}

func (m *Migrator) checkoutTarget(ctx context.Context) error {
	name := m.settings.Target.Name
	if m.deps.Repo.LocalBranchExists(name) {
		return m.deps.Worktree.Checkout(ctx, name)
	}

	return m.deps.Worktree.CreateBranch(ctx, name, m.settings.Target.Ref())
}

func (m *Migrator) offerAddonBlacklist() (bool, error) {
	if m.deps.Blacklist == nil {
		return false, nil
	}

	confirmed, err := m.deps.Prompter.Confirm("\tBlacklist this addon?", false)
	if err != nil || !confirmed {
		return false, err
	}

	reason, err := m.deps.Prompter.Ask("\tReason")
	if err != nil {
		return false, err
	}

	m.deps.Blacklist.BlacklistAddon(reason)

	return true, nil
}

func (m *Migrator) createBranch(ctx context.Context, name string) (bool, error) {
	if m.deps.Repo.LocalBranchExists(name) {
		recreate, err := m.deps.Prompter.Confirm(fmt.Sprintf(
			"Branch %s already exists, recreate it?\n(you will lose the existing branch)", terminal.Bold(name)), false)
		if err != nil || !recreate {
			return false, err
		}

		err = m.deps.Worktree.DeleteBranch(ctx, name)
		if err != nil {
			return false, err
		}
	}

	m.deps.Console.Emitf("\tCreate branch %s from %s...", terminal.Bold(name), m.settings.Target.Ref())

	return true, m.deps.Worktree.CreateBranch(ctx, name, m.settings.Target.Ref())
}

func (m *Migrator) printTips(mig *Migration, blacklisted bool) {
	forkOrg := m.settings.ForkOrg
	if forkOrg == "" {
		forkOrg = placeholderOrg
	}

	remote := m.settings.ForkRemote
	if remote == "" {
		remote = placeholderRemote
	}

	compare := CompareURL(m.settings.UpstreamOrg, m.settings.RepoName, m.settings.Target.Name,
		forkOrg, mig.Branch, MigrationTitle(m.settings.TargetVersion, m.settings.Addon))
	push := fmt.Sprintf("\t\t$ git push %s %s --set-upstream", remote, mig.Branch)
	createPR := fmt.Sprintf("Create the PR against %s/%s:\n\t\t=> %s",
		m.settings.UpstreamOrg, m.settings.RepoName, terminal.Bold(compare))

	var steps []string

	if blacklisted {
		steps = []string{
			"On a shell command, type this for uploading the content to GitHub:\n" + terminal.Dim(push),
			createPR,
		}
	} else {
		steps = []string{
			"Reduce the number of commits ('OCA Transbot...'):\n\t\t=> " + terminal.Bold(mergeCommitsURL),
			fmt.Sprintf("Adapt the module to the %s version:\n\t\t=> %s", m.settings.TargetVersion,
				terminal.Bold(fmt.Sprintf(migrationTasksURL, m.settings.TargetVersion))),
			"On a shell command, type this for uploading the content to GitHub:\n" + terminal.Dim(
				"\t\t$ git add --all\n"+
					fmt.Sprintf("\t\t$ git commit -m \"[MIG] %s: Migration to %s\"\n", m.settings.Addon, m.settings.TargetVersion)+
					push),
			createPR,
		}
	}

	for i, step := range steps {
		m.deps.Console.Emitf("\t%d) %s", i+1, step)
	}
}
