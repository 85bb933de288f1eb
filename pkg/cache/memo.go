package cache

import (
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

// FilesMemo keeps commit files of any backing cache in an LRU shared across
// diff runs of one process. Changed files never vary for a given SHA.
type FilesMemo struct {
	porting.Cache

	lru *LRU[string, []string]
}

// WithFilesMemo wraps inner so that CommitFiles is served from lru first.
func WithFilesMemo(inner porting.Cache, lru *LRU[string, []string]) *FilesMemo {
	return &FilesMemo{Cache: inner, lru: lru}
}

// CommitFiles implements porting.Cache.
func (m *FilesMemo) CommitFiles(sha string) ([]string, bool) {
	if files, ok := m.lru.Get(sha); ok {
		return files, true
	}

	files, ok := m.Cache.CommitFiles(sha)
	if ok {
		m.lru.Put(sha, files)
	}

	return files, ok
}

// SetCommitFiles implements porting.Cache.
func (m *FilesMemo) SetCommitFiles(sha string, files []string) error {
	m.lru.Put(sha, files)

	return m.Cache.SetCommitFiles(sha, files)
}

// Clear implements porting.Cache.
func (m *FilesMemo) Clear() error {
	m.lru.Clear()

	return m.Cache.Clear()
}

// Stats reports the LRU statistics.
func (m *FilesMemo) Stats() LRUStats {
	return m.lru.Stats()
}
