// Package session keeps the state of one porting run on disk so it can be
// resumed: pull requests already ported and those blacklisted by the operator.
package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/Sumatoshi-tech/ocaport/pkg/persist"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

const (
	sessionsDir = "sessions"
	keyBytes    = 3
)

// Record describes a pull request handled during the session.
type Record struct {
	Ref      string `json:"ref"`
	Number   int    `json:"number"`
	URL      string `json:"url"`
	Author   string `json:"author"`
	Title    string `json:"title"`
	MergedAt string `json:"merged_at"`
	Reason   string `json:"reason,omitempty"`
}

// PullRequests holds the records by blacklist key.
type PullRequests struct {
	Ported      map[string]Record `json:"ported,omitempty"`
	Blacklisted map[string]Record `json:"blacklisted,omitempty"`
}

// Document is the stored session.
type Document struct {
	Addon        string       `json:"addon"`
	RepoName     string       `json:"repo_name"`
	PullRequests PullRequests `json:"pull_requests"`
}

// Options locate a session.
type Options struct {
	// Dir is the cache root, sessions live under Dir/sessions/<Org>.
	Dir      string
	Org      string
	Addon    string
	RepoName string
	From     string
	To       string
	// Name identifies the session, usually the addon and destination branch.
	Name string
}

// Session is the on-disk state of a porting run.
type Session struct {
	path  string
	codec persist.Codec
	doc   Document
}

// Key returns the short SHAKE-256 digest of name used in file and branch names.
func Key(name string) string {
	sum := make([]byte, keyBytes)
	sha3.ShakeSum256(sum, []byte(name))

	return hex.EncodeToString(sum)
}

// DestinationBranch derives the default branch name receiving the ports of shas.
func DestinationBranch(addonName, from, to string, shas []string) string {
	return fmt.Sprintf("oca-port-%s-%s-to-%s-%s", addonName, from, to, Key(strings.Join(shas, "-")))
}

// Open loads the session, starting empty when the file is missing or unreadable.
func Open(opts Options) *Session {
	file := fmt.Sprintf("%s-%s-%s-%s.json", opts.Addon, opts.From, opts.To, Key(opts.Name))
	s := &Session{
		path:  filepath.Join(opts.Dir, sessionsDir, opts.Org, file),
		codec: persist.NewJSONCodec(),
	}

	err := persist.LoadFile(s.path, s.codec, &s.doc)
	if err != nil {
		s.doc = Document{}
	}

	if s.doc.Addon == "" {
		s.doc.Addon = opts.Addon
	}

	if s.doc.RepoName == "" {
		s.doc.RepoName = opts.RepoName
	}

	return s
}

// Path returns the session file.
func (s *Session) Path() string {
	return s.path
}

// Document returns the session content.
func (s *Session) Document() Document {
	return s.doc
}

// InProgress reports whether a pull request was already handled.
func (s *Session) InProgress() bool {
	return len(s.doc.PullRequests.Ported) > 0 || len(s.doc.PullRequests.Blacklisted) > 0
}

func recordOf(pr *porting.PullRequest, reason string) Record {
	return Record{
		Ref:      pr.BlacklistKey(),
		Number:   pr.Number,
		URL:      pr.URL,
		Author:   pr.Author,
		Title:    pr.Title,
		MergedAt: pr.MergedAt,
		Reason:   reason,
	}
}

// MarkPorted records pr as ported.
func (s *Session) MarkPorted(pr *porting.PullRequest) error {
	if s.doc.PullRequests.Ported == nil {
		s.doc.PullRequests.Ported = make(map[string]Record)
	}

	if _, ok := s.doc.PullRequests.Ported[pr.BlacklistKey()]; !ok {
		s.doc.PullRequests.Ported[pr.BlacklistKey()] = recordOf(pr, "")
	}

	return s.Save()
}

// Blacklist records pr as blacklisted with reason.
func (s *Session) Blacklist(pr *porting.PullRequest, reason string) error {
	if s.doc.PullRequests.Blacklisted == nil {
		s.doc.PullRequests.Blacklisted = make(map[string]Record)
	}

	if _, ok := s.doc.PullRequests.Blacklisted[pr.BlacklistKey()]; !ok {
		s.doc.PullRequests.Blacklisted[pr.BlacklistKey()] = recordOf(pr, reason)
	}

	return s.Save()
}

// Unblacklist drops the session blacklisting of ref.
func (s *Session) Unblacklist(ref string) error {
	if _, ok := s.doc.PullRequests.Blacklisted[ref]; !ok {
		return nil
	}

	delete(s.doc.PullRequests.Blacklisted, ref)

	return s.Save()
}

// IsBlacklisted reports whether pr was blacklisted during the session.
func (s *Session) IsBlacklisted(pr *porting.PullRequest) bool {
	_, ok := s.doc.PullRequests.Blacklisted[pr.BlacklistKey()]

	return ok
}

// Ported returns the ported records ordered by merge date.
func (s *Session) Ported() []Record {
	return sorted(s.doc.PullRequests.Ported)
}

// Blacklisted returns the blacklisted records ordered by merge date.
func (s *Session) Blacklisted() []Record {
	return sorted(s.doc.PullRequests.Blacklisted)
}

func sorted(records map[string]Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}

	slices.SortFunc(out, func(a, b Record) int {
		if c := strings.Compare(a.MergedAt, b.MergedAt); c != 0 {
			return c
		}

		return strings.Compare(a.Ref, b.Ref)
	})

	return out
}

// Save writes the session file.
func (s *Session) Save() error {
	err := persist.SaveFile(s.path, s.codec, &s.doc)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// Clear removes the session file and forgets its content.
func (s *Session) Clear() error {
	s.doc.PullRequests = PullRequests{}

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}

	return nil
}
