package gitlib

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// Sentinel errors for repository lookups.
var (
	ErrReferenceNotFound = errors.New("reference not found")
	ErrCommitNotFound    = errors.New("commit not found")
	ErrRemoteNotFound    = errors.New("remote not found")
	ErrPathNotFound      = errors.New("path not found")
)

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Workdir returns the root of the working tree, or the repository path for bare repositories.
func (r *Repository) Workdir() string {
	if wd := r.repo.Workdir(); wd != "" {
		return filepath.Clean(wd)
	}

	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// ResolveCommit resolves a revision ("15.0", "origin/15.0", a SHA) to a commit.
func (r *Repository) ResolveCommit(rev string) (*Commit, error) {
	obj, err := r.repo.RevparseSingle(rev)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrReferenceNotFound, rev)
	}
	defer obj.Free()

	peeled, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a commit", ErrReferenceNotFound, rev)
	}
	defer peeled.Free()

	commit, err := peeled.AsCommit()
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// HasRevision reports whether rev resolves to a commit.
func (r *Repository) HasRevision(rev string) bool {
	commit, err := r.ResolveCommit(rev)
	if err != nil {
		return false
	}

	commit.Free()

	return true
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(_ context.Context, hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, hash)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LogOptions configures the commit log iteration.
type LogOptions struct {
	// Path restricts the log to commits whose first-parent diff touches it.
	Path string
}

// Log returns the hashes of the commits reachable from rev, newest first.
func (r *Repository) Log(ctx context.Context, rev string, opts *LogOptions) ([]Hash, error) {
	tip, err := r.ResolveCommit(rev)
	if err != nil {
		return nil, err
	}

	tipHash := tip.Hash()
	tip.Free()

	walk, err := r.newRevWalk()
	if err != nil {
		return nil, err
	}
	defer walk.Free()

	err = walk.Push(tipHash)
	if err != nil {
		return nil, err
	}

	var restrict string
	if opts != nil {
		restrict = strings.Trim(opts.Path, "/")
	}

	var (
		hashes  []Hash
		walkErr error
	)

	err = walk.Iterate(func(commit *Commit) bool {
		if ctxErr := ctx.Err(); ctxErr != nil {
			walkErr = ctxErr

			return false
		}

		if restrict == "" {
			hashes = append(hashes, commit.Hash())

			return true
		}

		// Every parent side is walked and compared to the first parent only,
		// unlike git log's TREESAME pruning; merges are filtered downstream.
		touched, touchErr := commit.Touches(restrict)
		if touchErr != nil {
			walkErr = touchErr

			return false
		}

		if touched {
			hashes = append(hashes, commit.Hash())
		}

		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if err != nil {
		return nil, err
	}

	return hashes, nil
}

// TreeAt returns the tree of the commit rev resolves to.
func (r *Repository) TreeAt(rev string) (*Tree, error) {
	commit, err := r.ResolveCommit(rev)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	return commit.Tree()
}

// HasPath reports whether path exists in the tree of rev.
func (r *Repository) HasPath(rev, path string) (bool, error) {
	tree, err := r.TreeAt(rev)
	if err != nil {
		return false, err
	}
	defer tree.Free()

	return tree.HasEntry(path), nil
}

// ReadFile returns the content of the blob at path in the tree of rev.
func (r *Repository) ReadFile(rev, path string) ([]byte, error) {
	tree, err := r.TreeAt(rev)
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	return tree.ReadBlob(path)
}

// LocalBranchExists reports whether refs/heads/name exists.
func (r *Repository) LocalBranchExists(name string) bool {
	branch, err := r.repo.LookupBranch(name, git2go.BranchLocal)
	if err != nil {
		return false
	}

	branch.Free()

	return true
}

// CurrentBranch returns the short name of the branch HEAD points to.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	defer head.Free()

	return head.Shorthand(), nil
}

// Head returns the hash HEAD points to.
func (r *Repository) Head() (Hash, error) {
	head, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer head.Free()

	return HashFromOid(head.Target()), nil
}

// CommitChanges returns the first-parent changes of the commit rev resolves to.
func (r *Repository) CommitChanges(rev string) (Changes, error) {
	commit, err := r.ResolveCommit(rev)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	return commit.Changes()
}
