package cache

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/ocaport/pkg/persist"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

const (
	portedDir      = "ported"
	toPortDir      = "to_port"
	commitsDataDir = "commits_data"

	dirPerm  = 0o755
	filePerm = 0o644
)

// UserCache is the file-backed cache under the user's cache directory:
//
//	ported/<org>/<repo>/<addon>_<from>_to_<to>.list
//	to_port/<org>/<repo>/<addon>_<from>_to_<to>.json
//	commits_data/<org>/<repo>.json[.lz4]
type UserCache struct {
	opts     Options
	readonly bool
	logger   *slog.Logger

	portedPath string
	ported     map[string]struct{}

	toPortDir string
	toPortIO  *persist.Persister[ToPort]
	toPort    *ToPort

	commitsDataDir string
	commitsDataIO  *persist.Persister[CommitsData]
	commitsData    CommitsData
}

// NewUserCache loads the cache files, creating their directories. Corrupted
// files are treated as empty.
func NewUserCache(opts Options) (*UserCache, error) {
	if opts.Dir == "" {
		opts.Dir = DefaultDir()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pair := fmt.Sprintf("%s_%s_to_%s", opts.Addon, opts.From, opts.To)

	c := &UserCache{
		opts:           opts,
		readonly:       opts.Org == "",
		logger:         logger,
		portedPath:     filepath.Join(opts.Dir, portedDir, opts.Org, opts.Repo, pair+".list"),
		toPortDir:      filepath.Join(opts.Dir, toPortDir, opts.Org, opts.Repo),
		toPortIO:       newToPortPersister(pair),
		commitsDataDir: filepath.Join(opts.Dir, commitsDataDir, opts.Org),
		commitsDataIO:  newCommitsDataPersister(opts.Repo, opts.Compress),
	}

	for _, dir := range []string{filepath.Dir(c.portedPath), c.toPortDir, c.commitsDataDir} {
		err := os.MkdirAll(dir, dirPerm)
		if err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	err := c.loadPorted()
	if err != nil {
		return nil, err
	}

	c.toPort = c.loadToPort()
	c.commitsData = c.loadCommitsData()

	return c, nil
}

func (c *UserCache) loadPorted() error {
	file, err := os.OpenFile(c.portedPath, os.O_RDONLY|os.O_CREATE, filePerm)
	if err != nil {
		return fmt.Errorf("open ported commits: %w", err)
	}
	defer file.Close()

	c.ported = make(map[string]struct{})

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if sha := strings.TrimSpace(scanner.Text()); sha != "" {
			c.ported[sha] = struct{}{}
		}
	}

	return scanner.Err()
}

func (c *UserCache) loadToPort() *ToPort {
	doc, err := c.toPortIO.LoadOrNew(c.toPortDir)
	if err != nil {
		c.logger.Warn("ignoring corrupted cache file", "path", c.toPortIO.Path(c.toPortDir), "error", err)
	}

	if doc.PullRequests == nil {
		doc.PullRequests = make(map[string]porting.PullRequestData)
	}

	if doc.Commits == nil {
		doc.Commits = make(map[string]CommitPR)
	}

	return doc
}

func (c *UserCache) loadCommitsData() CommitsData {
	doc, err := c.commitsDataIO.LoadOrNew(c.commitsDataDir)
	if err != nil {
		c.logger.Warn("ignoring corrupted cache file", "path", c.commitsDataIO.Path(c.commitsDataDir), "error", err)
	}

	if *doc == nil {
		return make(CommitsData)
	}

	return *doc
}

// ReadOnly reports whether writes are ignored.
func (c *UserCache) ReadOnly() bool {
	return c.readonly
}

// IsCommitPorted implements porting.Cache.
func (c *UserCache) IsCommitPorted(sha string) bool {
	_, ok := c.ported[sha]

	return ok
}

// MarkCommitPorted appends sha to the ported list.
func (c *UserCache) MarkCommitPorted(sha string) error {
	if c.readonly || c.IsCommitPorted(sha) {
		return nil
	}

	file, err := os.OpenFile(c.portedPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("open ported commits: %w", err)
	}
	defer file.Close()

	_, err = file.WriteString(sha + "\n")
	if err != nil {
		return fmt.Errorf("append ported commit: %w", err)
	}

	c.ported[sha] = struct{}{}

	return nil
}

// PullRequestOf implements porting.Cache.
func (c *UserCache) PullRequestOf(sha string) (porting.PullRequestData, bool) {
	link, ok := c.toPort.Commits[sha]
	if !ok || link.PR == 0 {
		return porting.PullRequestData{}, false
	}

	data, ok := c.toPort.PullRequests[strconv.Itoa(link.PR)]

	return data, ok
}

// StorePullRequest implements porting.Cache. Pull requests without a number
// are not stored.
func (c *UserCache) StorePullRequest(sha string, data porting.PullRequestData) error {
	if c.readonly || data.Number == 0 {
		return nil
	}

	c.toPort.PullRequests[strconv.Itoa(data.Number)] = data
	c.toPort.Commits[sha] = CommitPR{PR: data.Number}

	return nil
}

// CommitFiles implements porting.Cache.
func (c *UserCache) CommitFiles(sha string) ([]string, bool) {
	data, ok := c.commitsData[sha]
	if !ok || data.Files == nil {
		return nil, false
	}

	return data.Files, true
}

// SetCommitFiles implements porting.Cache.
func (c *UserCache) SetCommitFiles(sha string, files []string) error {
	if c.readonly {
		return nil
	}

	c.commitsData[sha] = CommitData{Files: append([]string{}, files...)}

	if c.opts.AggressiveWrite {
		return c.commitsDataIO.Save(c.commitsDataDir, &c.commitsData)
	}

	return nil
}

// Save writes the pull request and commit files documents.
func (c *UserCache) Save() error {
	if c.readonly {
		return nil
	}

	return errors.Join(
		c.toPortIO.Save(c.toPortDir, c.toPort),
		c.commitsDataIO.Save(c.commitsDataDir, &c.commitsData),
	)
}

// Clear removes the cache files of the addon and branch pair, and the
// commit files of the repository.
func (c *UserCache) Clear() error {
	err := os.Remove(c.portedPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove ported commits: %w", err)
	}

	c.ported = make(map[string]struct{})
	c.toPort = &ToPort{PullRequests: map[string]porting.PullRequestData{}, Commits: map[string]CommitPR{}}
	c.commitsData = make(CommitsData)

	return errors.Join(c.toPortIO.Remove(c.toPortDir), c.commitsDataIO.Remove(c.commitsDataDir))
}

// FileInfo describes one cache file.
type FileInfo struct {
	Kind    string
	Path    string
	Size    int64
	Entries int
	Exists  bool
}

// Files describes the cache files in use.
func (c *UserCache) Files() []FileInfo {
	infos := []FileInfo{
		{Kind: portedDir, Path: c.portedPath, Entries: len(c.ported)},
		{Kind: toPortDir, Path: c.toPortIO.Path(c.toPortDir), Entries: len(c.toPort.Commits)},
		{Kind: commitsDataDir, Path: c.commitsDataIO.Path(c.commitsDataDir), Entries: len(c.commitsData)},
	}

	for i := range infos {
		if stat, err := os.Stat(infos[i].Path); err == nil {
			infos[i].Size = stat.Size()
			infos[i].Exists = true
		}
	}

	return infos
}
