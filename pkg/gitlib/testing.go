package gitlib

import (
	"context"
	"strings"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"
)

// TestAuthor is the default author of commits created by TestRepo.
var TestAuthor = Signature{
	Name:  "Test User",
	Email: "test@example.com",
	When:  time.Date(2023, time.January, 2, 10, 0, 0, 0, time.UTC),
}

// TestCommit describes a commit created by TestRepo.
type TestCommit struct {
	Message string
	Files   map[string]string
	Remove  []string
	Author  Signature
	// ExtraParents turns the commit into a merge.
	ExtraParents []Hash
}

// TestRepo builds repositories in-process for tests. Commits are written to
// branch refs directly; the worktree is only populated by Checkout.
type TestRepo struct {
	tb   testing.TB
	Path string
	repo *git2go.Repository
	tick int
}

// NewTestRepo initializes a non-bare repository in a temporary directory.
func NewTestRepo(tb testing.TB) *TestRepo {
	tb.Helper()

	dir := tb.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(tb, err)

	cfg, err := repo.Config()
	require.NoError(tb, err)
	require.NoError(tb, cfg.SetString("user.name", TestAuthor.Name))
	require.NoError(tb, cfg.SetString("user.email", TestAuthor.Email))
	cfg.Free()

	tb.Cleanup(repo.Free)

	return &TestRepo{tb: tb, Path: dir, repo: repo}
}

// Open returns a Repository handle on the test repository.
func (r *TestRepo) Open() *Repository {
	r.tb.Helper()

	repo, err := OpenRepository(r.Path)
	require.NoError(r.tb, err)
	r.tb.Cleanup(repo.Free)

	return repo
}

func (r *TestRepo) tip(branch string) *git2go.Commit {
	ref, err := r.repo.References.Lookup("refs/heads/" + branch)
	if err != nil {
		return nil
	}
	defer ref.Free()

	commit, err := r.repo.LookupCommit(ref.Target())
	require.NoError(r.tb, err)

	return commit
}

// Commit creates a commit on branch, creating the branch as a root when missing.
func (r *TestRepo) Commit(branch string, spec TestCommit) Hash {
	r.tb.Helper()

	idx, err := git2go.NewIndex()
	require.NoError(r.tb, err)
	defer idx.Free()

	var parents []*git2go.Commit

	if parent := r.tip(branch); parent != nil {
		defer parent.Free()

		tree, treeErr := parent.Tree()
		require.NoError(r.tb, treeErr)
		require.NoError(r.tb, idx.ReadTree(tree))
		tree.Free()

		parents = append(parents, parent)
	}

	for _, extra := range spec.ExtraParents {
		commit, lookupErr := r.repo.LookupCommit(extra.ToOid())
		require.NoError(r.tb, lookupErr)
		defer commit.Free()

		parents = append(parents, commit)
	}

	for path, content := range spec.Files {
		r.stage(idx, path, []byte(content))
	}

	for _, path := range spec.Remove {
		require.NoError(r.tb, idx.RemoveByPath(path))
	}

	return r.write(idx, branch, spec.Message, r.author(spec.Author), parents)
}

// Branch points refs/heads/name at the commit rev resolves to.
func (r *TestRepo) Branch(name, rev string) {
	r.tb.Helper()

	obj, err := r.repo.RevparseSingle(rev)
	require.NoError(r.tb, err)
	defer obj.Free()

	ref, err := r.repo.References.Create("refs/heads/"+name, obj.Id(), true, "test branch")
	require.NoError(r.tb, err)
	ref.Free()
}

// Replay recreates sha on branch with the same author and message, keeping
// only the changes under the given path prefixes (all changes when none).
func (r *TestRepo) Replay(branch string, sha Hash, prefixes ...string) Hash {
	r.tb.Helper()

	repo := &Repository{repo: r.repo, path: r.Path}

	source, err := repo.LookupCommit(context.Background(), sha)
	require.NoError(r.tb, err)
	defer source.Free()

	changes, err := source.Changes()
	require.NoError(r.tb, err)

	tree, err := source.Tree()
	require.NoError(r.tb, err)
	defer tree.Free()

	spec := TestCommit{Message: source.Message(), Author: source.Author(), Files: map[string]string{}}

	for _, change := range changes {
		if !matchesPrefix(change.Path(), prefixes) {
			continue
		}

		if change.Action == Delete {
			spec.Remove = append(spec.Remove, change.From)

			continue
		}

		content, readErr := tree.ReadBlob(change.To)
		require.NoError(r.tb, readErr)

		spec.Files[change.To] = string(content)
	}

	return r.Commit(branch, spec)
}

// AddRemote configures a remote.
func (r *TestRepo) AddRemote(name, url string) {
	r.tb.Helper()

	remote, err := r.repo.Remotes.Create(name, url)
	require.NoError(r.tb, err)
	remote.Free()
}

// Publish mirrors refs/heads/branch to refs/remotes/remote/branch.
func (r *TestRepo) Publish(remote, branch string) {
	r.tb.Helper()

	parent := r.tip(branch)
	require.NotNil(r.tb, parent, "branch %s has no commits", branch)
	defer parent.Free()

	ref, err := r.repo.References.Create("refs/remotes/"+remote+"/"+branch, parent.Id(), true, "test publish")
	require.NoError(r.tb, err)
	ref.Free()
}

// Checkout points HEAD at branch and forces the worktree to match it.
func (r *TestRepo) Checkout(branch string) {
	r.tb.Helper()

	require.NoError(r.tb, r.repo.SetHead("refs/heads/"+branch))
	require.NoError(r.tb, r.repo.CheckoutHead(&git2go.CheckoutOptions{Strategy: git2go.CheckoutForce}))
}

func (r *TestRepo) stage(idx *git2go.Index, path string, content []byte) {
	oid, err := r.repo.CreateBlobFromBuffer(content)
	require.NoError(r.tb, err)

	require.NoError(r.tb, idx.Add(&git2go.IndexEntry{
		Mode: git2go.FilemodeBlob,
		Id:   oid,
		Path: path,
	}))
}

func (r *TestRepo) write(idx *git2go.Index, branch, message string, author Signature, parents []*git2go.Commit) Hash {
	treeID, err := idx.WriteTreeTo(r.repo)
	require.NoError(r.tb, err)

	tree, err := r.repo.LookupTree(treeID)
	require.NoError(r.tb, err)
	defer tree.Free()

	committer := author
	committer.When = author.When.Add(time.Minute)

	oid, err := r.repo.CreateCommit("refs/heads/"+branch, author.native(), committer.native(), message, tree, parents...)
	require.NoError(r.tb, err)

	return HashFromOid(oid)
}

// author fills missing fields from TestAuthor and spaces default timestamps
// so that commits created in sequence sort deterministically.
func (r *TestRepo) author(sig Signature) Signature {
	if sig.Name == "" {
		sig.Name = TestAuthor.Name
	}

	if sig.Email == "" {
		sig.Email = TestAuthor.Email
	}

	if sig.When.IsZero() {
		r.tick++
		sig.When = TestAuthor.When.Add(time.Duration(r.tick) * time.Hour)
	}

	return sig
}

func matchesPrefix(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}

	for _, prefix := range prefixes {
		prefix = strings.Trim(prefix, "/")
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	return false
}
