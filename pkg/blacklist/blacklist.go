// Package blacklist stores, inside the repository, the pull requests and
// addons operators decided never to port.
//
// Each addon has one document at .oca/oca-port/blacklist/<addon>.json:
//
//	{"no_migration": "included in standard"}
//	{"pull_requests": {"OCA/repo#490": "lint changes"}}
package blacklist

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
	"github.com/Sumatoshi-tech/ocaport/pkg/persist"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

// Dir is the folder holding blacklist documents, relative to the worktree root.
const Dir = ".oca/oca-port/blacklist"

// DefaultEnvFile names the environment variable pointing at a fallback document.
const DefaultEnvFile = "BLACKLIST_FILE"

const unknownReason = "Unknown"

// ErrCommitOnTarget is returned when committing on the branch being compared.
var ErrCommitOnTarget = errors.New("performing commit on upstream branch is not allowed")

//go:embed schemas/blacklist.json
var schema []byte

var codec = persist.MustSchemaCodec(schema)

// Document is the stored form of an addon blacklist.
type Document struct {
	NoMigration  string            `json:"no_migration,omitempty"`
	PullRequests map[string]string `json:"pull_requests,omitempty"`
}

// TreeReader reads files from a committed tree.
type TreeReader interface {
	ReadFile(rev, path string) ([]byte, error)
}

// Source locates the document of an addon.
type Source struct {
	Tree TreeReader
	// Rev is the target branch ref the document is read from.
	Rev   string
	Addon string
	// Root is the worktree root the document is saved under.
	Root string
	// EnvFile names the variable holding a fallback path; DefaultEnvFile when empty.
	EnvFile string
}

// Store is the blacklist of one addon.
type Store struct {
	addon string
	path  string
	doc   Document
	dirty bool
}

// Path returns the document path relative to the worktree root.
func Path(addon string) string {
	return filepath.ToSlash(filepath.Join(Dir, addon+".json"))
}

// Load reads the document from the target tree, falling back to the file
// named by the environment, else starting empty.
func Load(src Source) (*Store, error) {
	store := &Store{addon: src.Addon, path: filepath.Join(src.Root, Path(src.Addon))}

	raw, err := src.Tree.ReadFile(src.Rev, Path(src.Addon))

	switch {
	case err == nil:
	case errors.Is(err, gitlib.ErrPathNotFound):
		raw, err = readEnvFile(src.EnvFile)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read blacklist of %s: %w", src.Addon, err)
	}

	if len(raw) > 0 {
		err = codec.Decode(bytes.NewReader(raw), &store.doc)
		if err != nil {
			return nil, fmt.Errorf("blacklist of %s: %w", src.Addon, err)
		}
	}

	return store, nil
}

func readEnvFile(envFile string) ([]byte, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	path := os.Getenv(envFile)
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}

	return raw, nil
}

func key(ref string) string {
	if ref == "" {
		return porting.OrphanRef
	}

	return ref
}

// PullRequestBlacklisted implements porting.Blacklist. The empty ref is the
// orphan bucket. An entry with an empty reason does not blacklist.
func (s *Store) PullRequestBlacklisted(ref string) (string, bool) {
	reason := s.doc.PullRequests[key(ref)]

	return reason, reason != ""
}

// BlacklistPR records ref with reason.
func (s *Store) BlacklistPR(ref, reason string) {
	if s.doc.PullRequests == nil {
		s.doc.PullRequests = make(map[string]string)
	}

	if strings.TrimSpace(reason) == "" {
		reason = unknownReason
	}

	s.doc.PullRequests[key(ref)] = reason
	s.dirty = true
}

// RemovePR drops ref from the blacklist.
func (s *Store) RemovePR(ref string) {
	if _, ok := s.doc.PullRequests[key(ref)]; !ok {
		return
	}

	delete(s.doc.PullRequests, key(ref))
	s.dirty = true
}

// PullRequests returns the blacklisted refs in lexical order.
func (s *Store) PullRequests() []string {
	refs := make([]string, 0, len(s.doc.PullRequests))
	for ref := range s.doc.PullRequests {
		refs = append(refs, ref)
	}

	slices.Sort(refs)

	return refs
}

// AddonBlacklisted returns the reason the addon must not be migrated.
func (s *Store) AddonBlacklisted() (string, bool) {
	return s.doc.NoMigration, s.doc.NoMigration != ""
}

// BlacklistAddon excludes the addon from migration.
func (s *Store) BlacklistAddon(reason string) {
	if strings.TrimSpace(reason) == "" {
		reason = unknownReason
	}

	s.doc.NoMigration = reason
	s.dirty = true
}

// Dirty reports unsaved changes.
func (s *Store) Dirty() bool {
	return s.dirty
}

// Document returns a copy of the stored document.
func (s *Store) Document() Document {
	doc := s.doc
	if s.doc.PullRequests != nil {
		doc.PullRequests = make(map[string]string, len(s.doc.PullRequests))
		for ref, reason := range s.doc.PullRequests {
			doc.PullRequests[ref] = reason
		}
	}

	return doc
}

// Save writes the document into the worktree. It reports whether anything
// was written.
func (s *Store) Save() (bool, error) {
	if !s.dirty {
		return false, nil
	}

	err := persist.SaveFile(s.path, codec, &s.doc)
	if err != nil {
		return false, fmt.Errorf("save blacklist: %w", err)
	}

	return true, nil
}

// Repository reports the worktree state.
type Repository interface {
	ChangedPaths(opts gitlib.StatusOptions) ([]string, error)
	CurrentBranch() (string, error)
}

// Committer stages and commits files.
type Committer interface {
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string, noVerify bool) error
}

// Commit saves the document and commits it on the checked-out branch, which
// must not be targetBranch. Pending changes outside Dir are refused.
func (s *Store) Commit(ctx context.Context, repo Repository, wt Committer, targetBranch, message string) error {
	saved, err := s.Save()
	if err != nil || !saved {
		return err
	}

	changed, err := repo.ChangedPaths(gitlib.StatusOptions{Untracked: true})
	if err != nil {
		return err
	}

	for _, p := range changed {
		if !strings.HasPrefix(p, ".oca/") {
			return fmt.Errorf("%w: %s", gitlib.ErrDirtyWorktree, p)
		}
	}

	branch, err := repo.CurrentBranch()
	if err != nil {
		return err
	}

	if branch == targetBranch {
		return fmt.Errorf("%w: %s", ErrCommitOnTarget, branch)
	}

	err = wt.Add(ctx, Dir)
	if err != nil {
		return err
	}

	if message == "" {
		message = fmt.Sprintf("oca-port: store '%s' data", s.addon)
	}

	err = wt.Commit(ctx, message, true)
	if err != nil {
		return err
	}

	s.dirty = false

	return nil
}
