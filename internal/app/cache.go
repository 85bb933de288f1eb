package app

import (
	"context"
	"errors"

	"github.com/Sumatoshi-tech/ocaport/pkg/cache"
)

// ErrCacheDisabled is returned by cache operations when caching is off or
// the cache directory cannot be used.
var ErrCacheDisabled = errors.New("user cache is disabled")

// CacheOptions locate the cache files of an addon and branch pair.
type CacheOptions struct {
	RepoPath string
	Source   string
	Target   string
	Addon    string
	RepoName string
}

// CacheFiles describes the cache files of the pair.
func (a *App) CacheFiles(ctx context.Context, opts CacheOptions) ([]cache.FileInfo, error) {
	uc, err := a.userCache(ctx, opts)
	if err != nil {
		return nil, err
	}

	return uc.Files(), nil
}

// ClearCache removes the cache files of the pair.
func (a *App) ClearCache(ctx context.Context, opts CacheOptions) error {
	uc, err := a.userCache(ctx, opts)
	if err != nil {
		return err
	}

	err = uc.Clear()
	if err != nil {
		return err
	}

	if a.lru != nil {
		a.lru.Clear()
	}

	return nil
}

func (a *App) userCache(ctx context.Context, opts CacheOptions) (*cache.UserCache, error) {
	ws, err := OpenWorkspace(opts.RepoPath)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	source, target, err := a.branches(ctx, ws, Options{Source: opts.Source, Target: opts.Target})
	if err != nil {
		return nil, err
	}

	org, repo, _ := upstreamOf(ws, source, a.deps.Config, opts.RepoName)
	if source.Remote == "" {
		org = ""
	}

	cfg := a.deps.Config
	if !cfg.Cache.Enabled {
		return nil, ErrCacheDisabled
	}

	uc, err := cache.NewUserCache(cache.Options{
		Enabled:  true,
		Dir:      cfg.Cache.Directory,
		Org:      org,
		Repo:     repo,
		Addon:    opts.Addon,
		From:     source.Name,
		To:       target.Name,
		Compress: cfg.Cache.CompressCommitFiles,
		Logger:   a.deps.Logger,
	})
	if err != nil {
		return nil, errors.Join(ErrCacheDisabled, err)
	}

	return uc, nil
}
