package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Tree wraps a libgit2 tree.
type Tree struct {
	tree *git2go.Tree
	repo *Repository
}

// Hash returns the tree hash.
func (t *Tree) Hash() Hash {
	return HashFromOid(t.tree.Id())
}

// HasEntry reports whether path exists in the tree.
func (t *Tree) HasEntry(path string) bool {
	_, ok := t.entryID(path)

	return ok
}

func (t *Tree) entryID(path string) (Hash, bool) {
	entry, err := t.tree.EntryByPath(path)
	if err != nil || entry == nil {
		return Hash{}, false
	}

	return HashFromOid(entry.Id), true
}

// Names returns the names of the tree's top-level entries.
func (t *Tree) Names() []string {
	count := t.tree.EntryCount()
	names := make([]string, 0, count)

	for i := range count {
		if entry := t.tree.EntryByIndex(i); entry != nil {
			names = append(names, entry.Name)
		}
	}

	return names
}

// ReadBlob returns the content of the blob stored at path.
func (t *Tree) ReadBlob(path string) ([]byte, error) {
	entry, err := t.tree.EntryByPath(path)
	if err != nil || entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	if entry.Type != git2go.ObjectBlob {
		return nil, fmt.Errorf("%w: %s is not a file", ErrPathNotFound, path)
	}

	blob, err := t.repo.repo.LookupBlob(entry.Id)
	if err != nil {
		return nil, fmt.Errorf("lookup blob: %w", err)
	}
	defer blob.Free()

	content := blob.Contents()
	out := make([]byte, len(content))
	copy(out, content)

	return out, nil
}

// Free releases the tree resources.
func (t *Tree) Free() {
	if t.tree != nil {
		t.tree.Free()
		t.tree = nil
	}
}
