// Package cache remembers, across runs, which commits were already ported,
// which pull request introduced a commit and which files a commit changed.
package cache

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/ocaport/pkg/persist"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

// AggressiveWriteEnv, when set, saves commit files after every change.
const AggressiveWriteEnv = "OCA_PORT_AGRESSIVE_CACHE_WRITE"

const dirName = "oca-port"

var (
	//go:embed schemas/to_port.json
	toPortSchema []byte
	//go:embed schemas/commits_data.json
	commitsDataSchema []byte
)

// ToPort is the document mapping commits to the pull requests that introduced them.
type ToPort struct {
	PullRequests map[string]porting.PullRequestData `json:"pull_requests"`
	Commits      map[string]CommitPR                `json:"commits"`
}

// CommitPR links a commit to a pull request number.
type CommitPR struct {
	PR int `json:"pr"`
}

// CommitsData maps commit SHAs to what is known about them.
type CommitsData map[string]CommitData

// CommitData holds the files a commit changed.
type CommitData struct {
	Files []string `json:"files"`
}

// DefaultDir returns $XDG_CACHE_HOME/oca-port, or ~/.cache/oca-port.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, dirName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), dirName)
	}

	return filepath.Join(home, ".cache", dirName)
}

// Options locate the cache files of one addon and branch pair.
type Options struct {
	Enabled bool
	Dir     string
	// Org is the upstream organization of the source branch. The cache is
	// read-only when empty: data from local branches must not be shared.
	Org   string
	Repo  string
	Addon string
	From  string
	To    string
	// Compress stores commit files LZ4-compressed.
	Compress bool
	// AggressiveWrite saves commit files on every SetCommitFiles.
	AggressiveWrite bool
	Logger          *slog.Logger
}

// Build returns a UserCache, or NoCache when caching is disabled or the
// cache directory cannot be used.
func Build(opts Options) porting.Cache {
	if !opts.Enabled {
		return NoCache{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts.Logger = logger

	c, err := NewUserCache(opts)
	if err != nil {
		logger.Warn("no cache will be used", "dir", opts.Dir, "error", err)

		return NoCache{}
	}

	return c
}

// NoCache is used when the cache cannot be: nothing is ever known as ported.
type NoCache struct{}

func (NoCache) IsCommitPorted(string) bool { return false }

func (NoCache) MarkCommitPorted(string) error { return nil }

func (NoCache) PullRequestOf(string) (porting.PullRequestData, bool) {
	return porting.PullRequestData{}, false
}

func (NoCache) StorePullRequest(string, porting.PullRequestData) error { return nil }

func (NoCache) CommitFiles(string) ([]string, bool) { return nil, false }

func (NoCache) SetCommitFiles(string, []string) error { return nil }

func (NoCache) Save() error { return nil }

func (NoCache) Clear() error { return nil }

func newToPortPersister(basename string) *persist.Persister[ToPort] {
	return persist.NewPersister[ToPort](basename, persist.MustSchemaCodec(toPortSchema))
}

func newCommitsDataPersister(repo string, compress bool) *persist.Persister[CommitsData] {
	var codec persist.Codec = persist.MustSchemaCodec(commitsDataSchema)
	if compress {
		codec = persist.NewLZ4Codec(codec)
	}

	return persist.NewPersister[CommitsData](repo, codec)
}
