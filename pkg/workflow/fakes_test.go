package workflow_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ocaport/pkg/blacklist"
	"github.com/Sumatoshi-tech/ocaport/pkg/github"
	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
	"github.com/Sumatoshi-tech/ocaport/pkg/workflow"
)

const unsetEnv = "OCAPORT_TEST_UNSET_BLACKLIST_FILE"

type formatCall struct {
	rev    string
	single bool
	paths  []string
}

// fakeGit plays both the repository and the worktree. Every am or commit
// moves HEAD.
type fakeGit struct {
	dir        string
	branches   map[string]string
	current    string
	head       int
	changes    map[string]gitlib.Changes
	dirty      []string
	amErr      error
	patchCount int

	formatted []formatCall
	calls     []string
	pushed    []string
	commits   []string
}

func newFakeGit(dir string) *fakeGit {
	return &fakeGit{
		dir:        dir,
		branches:   map[string]string{"16.0": "tip-16"},
		current:    "16.0",
		changes:    map[string]gitlib.Changes{},
		patchCount: 1,
	}
}

func (f *fakeGit) CommitChanges(rev string) (gitlib.Changes, error) {
	return f.changes[rev], nil
}

func (f *fakeGit) LocalBranchExists(name string) bool {
	_, ok := f.branches[name]

	return ok
}

func (f *fakeGit) ChangedPaths(gitlib.StatusOptions) ([]string, error) {
	return f.dirty, nil
}

func (f *fakeGit) CurrentBranch() (string, error) {
	return f.current, nil
}

func (f *fakeGit) Dir() string {
	return f.dir
}

func (f *fakeGit) Checkout(_ context.Context, rev string) error {
	f.calls = append(f.calls, "checkout "+rev)
	f.current = rev

	return nil
}

func (f *fakeGit) CreateBranch(_ context.Context, name, start string) error {
	f.calls = append(f.calls, "branch "+name+" "+start)
	f.branches[name] = start
	f.current = name

	return nil
}

func (f *fakeGit) DeleteBranch(_ context.Context, name string) error {
	f.calls = append(f.calls, "delete "+name)
	delete(f.branches, name)

	return nil
}

func (f *fakeGit) FormatPatch(_ context.Context, outDir, revRange string, single bool, paths ...string) ([]string, error) {
	f.formatted = append(f.formatted, formatCall{rev: revRange, single: single, paths: paths})

	count := f.patchCount
	if single {
		count = 1
	}

	patches := make([]string, 0, count)
	for i := range count {
		patches = append(patches, filepath.Join(outDir, fmt.Sprintf("%04d.patch", i+1)))
	}

	return patches, nil
}

func (f *fakeGit) Am(context.Context, ...string) error {
	if f.amErr != nil {
		return f.amErr
	}

	f.calls = append(f.calls, "am")
	f.head++

	return nil
}

func (f *fakeGit) AmAbort(context.Context) error {
	f.calls = append(f.calls, "am --abort")

	return nil
}

func (f *fakeGit) Add(_ context.Context, paths ...string) error {
	f.calls = append(f.calls, fmt.Sprint("add ", paths))

	return nil
}

func (f *fakeGit) Commit(_ context.Context, message string, _ bool) error {
	f.commits = append(f.commits, message)
	f.head++

	return nil
}

func (f *fakeGit) Push(_ context.Context, remote, branch string) error {
	f.pushed = append(f.pushed, remote+" "+branch)

	return nil
}

func (f *fakeGit) RevParse(_ context.Context, rev string) (string, error) {
	if rev == "HEAD" {
		return fmt.Sprintf("head-%d", f.head), nil
	}

	if sha, ok := f.branches[rev]; ok {
		return sha, nil
	}

	return rev, nil
}

type fakeHosting struct {
	found   []github.PullRequest
	err     error
	queries []github.SearchQuery
	created []github.NewPullRequest
}

func (f *fakeHosting) SearchPullRequests(_ context.Context, query github.SearchQuery) ([]github.PullRequest, error) {
	f.queries = append(f.queries, query)

	return f.found, f.err
}

func (f *fakeHosting) CreatePullRequest(_ context.Context, owner, repo string, pr github.NewPullRequest) (string, error) {
	f.created = append(f.created, pr)

	return fmt.Sprintf("https://github.com/%s/%s/pull/99", owner, repo), nil
}

// scriptedPrompter replays answers in order and fails once they run out.
type scriptedPrompter struct {
	answers []bool
	replies []string
	asked   []string
}

func (s *scriptedPrompter) Confirm(question string, _ bool) (bool, error) {
	s.asked = append(s.asked, question)

	if len(s.answers) == 0 {
		return false, terminal.ErrNoInput
	}

	answer := s.answers[0]
	s.answers = s.answers[1:]

	return answer, nil
}

func (s *scriptedPrompter) Ask(question string) (string, error) {
	s.asked = append(s.asked, question)

	if len(s.replies) == 0 {
		return "", terminal.ErrNoInput
	}

	reply := s.replies[0]
	s.replies = s.replies[1:]

	return reply, nil
}

type fakeTree map[string]string

func (f fakeTree) ReadFile(_, path string) ([]byte, error) {
	content, ok := f[path]
	if !ok {
		return nil, gitlib.ErrPathNotFound
	}

	return []byte(content), nil
}

type harness struct {
	git      *fakeGit
	hosting  *fakeHosting
	prompter *scriptedPrompter
	store    *blacklist.Store
	out      *bytes.Buffer
	settings workflow.Settings
}

func newHarness(t *testing.T, tree fakeTree) *harness {
	t.Helper()

	dir := t.TempDir()

	store, err := blacklist.Load(blacklist.Source{
		Tree:    tree,
		Rev:     "origin/16.0",
		Addon:   "my_module",
		Root:    dir,
		EnvFile: unsetEnv,
	})
	require.NoError(t, err)

	return &harness{
		git:      newFakeGit(dir),
		hosting:  &fakeHosting{},
		prompter: &scriptedPrompter{},
		store:    store,
		out:      &bytes.Buffer{},
		settings: workflow.Settings{
			Addon:         "my_module",
			Source:        porting.BranchRef{Remote: "origin", Name: "15.0"},
			Target:        porting.BranchRef{Remote: "origin", Name: "16.0"},
			SourceVersion: "15.0",
			TargetVersion: "16.0",
			UpstreamOrg:   "OCA",
			RepoName:      "edi",
			ForkRemote:    "fork",
			ForkOrg:       "me",
			SessionDir:    t.TempDir(),
		},
	}
}

func (h *harness) deps() workflow.Deps {
	return workflow.Deps{
		Repo:      h.git,
		Worktree:  h.git,
		Hosting:   h.hosting,
		Blacklist: h.store,
		Console:   terminal.NewConsole(h.out, false),
		Prompter:  h.prompter,
	}
}

func (h *harness) writeFile(t *testing.T, path, content string) {
	t.Helper()

	full := filepath.Join(h.git.dir, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
}

func newCommit(sha, message string, files ...string) *porting.Commit {
	author := porting.Author{Name: "Jane", Email: "jane@example.com", When: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)}

	return porting.NewCommit(sha, author, message, nil, files)
}

func newPullRequest(number int, title string) *porting.PullRequest {
	return porting.NewPullRequest(porting.PullRequestData{
		Number:   number,
		URL:      fmt.Sprintf("https://github.com/OCA/edi/pull/%d", number),
		Author:   "jane",
		Title:    title,
		MergedAt: "2023-01-03T00:00:00Z",
	})
}
