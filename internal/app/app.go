// Package app validates the operator's request, computes the branch diff
// and hands the result to the port or migration workflow.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/ocaport/pkg/addon"
	"github.com/Sumatoshi-tech/ocaport/pkg/blacklist"
	"github.com/Sumatoshi-tech/ocaport/pkg/cache"
	"github.com/Sumatoshi-tech/ocaport/pkg/config"
	"github.com/Sumatoshi-tech/ocaport/pkg/github"
	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
	"github.com/Sumatoshi-tech/ocaport/pkg/observability"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
	"github.com/Sumatoshi-tech/ocaport/pkg/workflow"
)

// ErrVersionNotFound is returned when a branch name carries no Odoo series
// and none was given.
var ErrVersionNotFound = addon.ErrVersionNotFound

// ErrAddonNotOnSource is returned when the addon is missing on the source branch.
var ErrAddonNotOnSource = porting.ErrAddonNotOnSource

const (
	tracerName     = "ocaport/app"
	filesMemoCache = "commit_files"
)

// Deps are the collaborators shared by every operation.
type Deps struct {
	Config   *config.Config
	Console  *terminal.Console
	Prompter terminal.Prompter
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  *observability.DiffMetrics
	// HTTPClient carries the GitHub API calls.
	HTTPClient *http.Client
}

// App runs ocaport operations.
type App struct {
	deps Deps
	lru  *cache.LRU[string, []string]
}

// New returns an App. Commit files are memoized across runs when the
// configured LRU size is positive.
func New(deps Deps) *App {
	if deps.Config == nil {
		deps.Config = &config.Config{}
	}

	if deps.Console == nil {
		deps.Console = terminal.NewConsole(io.Discard, true)
	}

	if deps.Prompter == nil {
		deps.Prompter = terminal.AutoPrompter{}
	}

	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}

	a := &App{deps: deps}

	if size := deps.Config.Cache.LRUSize; size > 0 {
		a.lru = cache.NewLRU[string, []string](size)
	}

	return a
}

// Options describe one run.
type Options struct {
	RepoPath string
	Source   string
	Target   string
	Addon    string
	// Destination is the "[remote/]branch" receiving the work.
	Destination   string
	SourceVersion string
	TargetVersion string
	RepoName      string

	Verbose                bool
	NonInteractive         bool
	DryRun                 bool
	SkipDestBranchRecreate bool
	Output                 terminal.Format
	Fetch                  bool
	NoCache                bool
	ClearCache             bool
}

// Interactive reports whether workflows may prompt and change the repository.
func (o Options) Interactive() bool {
	return !o.NonInteractive && !o.DryRun && o.Output == terminal.FormatText
}

// run holds the state resolved for one Run call.
type run struct {
	opts Options
	ws   *Workspace

	source        porting.BranchRef
	target        porting.BranchRef
	sourceVersion string
	targetVersion string
	upstreamOrg   string
	repoName      string
	online        bool

	cache   porting.Cache
	memo    *cache.FilesMemo
	store   *blacklist.Store
	hosting *github.Client

	settings workflow.Settings
}

// Run computes what is left to port of opts.Addon and, in interactive mode,
// ports it or migrates the addon.
func (a *App) Run(ctx context.Context, opts Options) (Outcome, error) {
	ctx, span := a.deps.Tracer.Start(ctx, "ocaport.run", trace.WithAttributes(
		attribute.String("run.addon", opts.Addon),
		attribute.Bool("run.interactive", opts.Interactive()),
	))
	defer span.End()

	r, err := a.prepare(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return Outcome{}, err
	}
	defer r.ws.Close()

	before := a.memoStats()

	outcome, err := a.dispatch(ctx, r)

	a.finish(ctx, r, before)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return outcome, err
	}

	span.SetAttributes(attribute.String("run.outcome", outcome.Kind.String()))

	return outcome, nil
}

func (a *App) prepare(ctx context.Context, opts Options) (*run, error) {
	ws, err := OpenWorkspace(opts.RepoPath)
	if err != nil {
		return nil, err
	}

	r, err := a.resolve(ctx, ws, opts)
	if err != nil {
		ws.Close()

		return nil, err
	}

	return r, nil
}

func (a *App) resolve(ctx context.Context, ws *Workspace, opts Options) (*run, error) {
	cfg := a.deps.Config

	err := ws.CheckClean()
	if err != nil {
		return nil, err
	}

	r := &run{opts: opts, ws: ws}

	r.source, r.target, err = a.branches(ctx, ws, opts)
	if err != nil {
		return nil, err
	}

	r.sourceVersion, err = seriesOf(opts.SourceVersion, r.source.Name, "source")
	if err != nil {
		return nil, err
	}

	r.targetVersion, err = seriesOf(opts.TargetVersion, r.target.Name, "target")
	if err != nil {
		return nil, err
	}

	r.upstreamOrg, r.repoName, r.online = upstreamOf(ws, r.source, cfg, opts.RepoName)
	r.cache, r.memo = a.buildCache(r)

	r.store, err = blacklist.Load(blacklist.Source{
		Tree:    ws.Repo,
		Rev:     r.target.Ref(),
		Addon:   opts.Addon,
		Root:    ws.Worktree.Dir(),
		EnvFile: cfg.Blacklist.EnvFile,
	})
	if err != nil {
		return nil, err
	}

	if r.online {
		r.hosting, err = github.New(github.Options{
			TokenEnv:   cfg.GitHub.TokenEnv,
			BaseURL:    cfg.GitHub.APIURL,
			HTTPClient: a.deps.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
	}

	r.settings, err = a.settings(ws, r)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (a *App) branches(ctx context.Context, ws *Workspace, opts Options) (porting.BranchRef, porting.BranchRef, error) {
	remote := a.deps.Config.Upstream.Remote

	source, err := ws.Branch(opts.Source, remote)
	if err != nil {
		return porting.BranchRef{}, porting.BranchRef{}, err
	}

	target, err := ws.Branch(opts.Target, remote)
	if err != nil {
		return porting.BranchRef{}, porting.BranchRef{}, err
	}

	for _, ref := range []porting.BranchRef{source, target} {
		a.deps.Logger.DebugContext(ctx, "ensure branch", "ref", ref.Ref(), "fetch", opts.Fetch)

		err = ws.Ensure(ctx, ref, opts.Fetch)
		if err != nil {
			return porting.BranchRef{}, porting.BranchRef{}, err
		}
	}

	return source, target, nil
}

func seriesOf(given, branch, role string) (string, error) {
	if given != "" {
		return given, nil
	}

	version, err := addon.ParseVersion(branch)
	if err != nil {
		return "", fmt.Errorf("%s: %w", role, err)
	}

	return version, nil
}

// upstreamOf locates the upstream repository from the source remote URL,
// falling back to the configured organization and the worktree folder name.
func upstreamOf(ws *Workspace, source porting.BranchRef, cfg *config.Config, repoName string) (string, string, bool) {
	org := cfg.Upstream.Org

	var online bool

	remote := source.Remote
	if remote == "" {
		remote = cfg.Upstream.Remote
	}

	if loc, ok := ws.Location(remote); ok && loc.IsGitHub() {
		org = loc.Owner
		online = true

		if repoName == "" {
			repoName = loc.Repo
		}
	}

	if repoName == "" {
		repoName = filepath.Base(ws.Worktree.Dir())
	}

	return org, repoName, online
}

func (a *App) buildCache(r *run) (porting.Cache, *cache.FilesMemo) {
	cfg := a.deps.Config

	org := r.upstreamOrg
	if r.source.Remote == "" {
		org = ""
	}

	c := cache.Build(cache.Options{
		Enabled:  cfg.Cache.Enabled && !r.opts.NoCache,
		Dir:      cfg.Cache.Directory,
		Org:      org,
		Repo:     r.repoName,
		Addon:    r.opts.Addon,
		From:     r.source.Name,
		To:       r.target.Name,
		Compress: cfg.Cache.CompressCommitFiles,
		Logger:   a.deps.Logger,
	})

	if a.lru == nil {
		return c, nil
	}

	memo := cache.WithFilesMemo(c, a.lru)

	return memo, memo
}

func (a *App) settings(ws *Workspace, r *run) (workflow.Settings, error) {
	forkRemote := a.deps.Config.ForkRemote()

	var branch string

	if r.opts.Destination != "" {
		dest, err := ws.Branch(r.opts.Destination, "")
		if err != nil {
			return workflow.Settings{}, err
		}

		if dest.Remote != "" {
			forkRemote = dest.Remote
		}

		branch = dest.Name
	}

	if forkRemote != "" && !ws.HasRemote(forkRemote) {
		return workflow.Settings{}, fmt.Errorf("%w: %q", ErrUnknownRemote, forkRemote)
	}

	var forkOrg string
	if loc, ok := ws.Location(forkRemote); ok && loc.IsGitHub() {
		forkOrg = loc.Owner
	}

	return workflow.Settings{
		Addon:         r.opts.Addon,
		Source:        r.source,
		Target:        r.target,
		SourceVersion: r.sourceVersion,
		TargetVersion: r.targetVersion,
		UpstreamOrg:   r.upstreamOrg,
		RepoName:      r.repoName,
		ForkRemote:    forkRemote,
		ForkOrg:       forkOrg,
		Branch:        branch,
		KeepBranch:    r.opts.SkipDestBranchRecreate,
		SessionDir:    a.deps.Config.Cache.Directory,
	}, nil
}

func (a *App) engine(r *run) *porting.Engine {
	var finder porting.PRFinder
	if r.hosting != nil {
		finder = r.hosting
	}

	return &porting.Engine{
		History: porting.NewGitHistory(r.ws.Repo, r.cache),
		Cache:   r.cache,
		Resolver: &porting.Resolver{
			Cache:    r.cache,
			Finder:   finder,
			Owner:    r.upstreamOrg,
			Repo:     r.repoName,
			Branch:   r.source.Name,
			Version:  r.sourceVersion,
			Online:   r.online,
			Logger:   a.deps.Logger,
			Recorder: a.deps.Metrics,
		},
		Blacklist: r.store,
		Filter:    porting.DefaultFilter(),
		Notifier:  a.deps.Console,
		Recorder:  a.deps.Metrics,
		Logger:    a.deps.Logger,
		Tracer:    a.deps.Tracer,
	}
}

func (a *App) workflowDeps(r *run) workflow.Deps {
	deps := workflow.Deps{
		Repo:      r.ws.Repo,
		Worktree:  r.ws.Worktree,
		Blacklist: r.store,
		Console:   a.deps.Console,
		Prompter:  a.deps.Prompter,
		Logger:    a.deps.Logger,
	}

	if r.hosting != nil {
		deps.Hosting = r.hosting
	}

	return deps
}

func (a *App) dispatch(ctx context.Context, r *run) (Outcome, error) {
	diff, err := a.engine(r).Diff(ctx, porting.Request{
		Source: r.source,
		Target: r.target,
		Addon:  r.opts.Addon,
	})

	switch {
	case errors.Is(err, porting.ErrAddonNotOnTarget):
		return a.migrate(ctx, r)
	case err != nil:
		return Outcome{}, err
	}

	return a.port(ctx, r, diff)
}

func (a *App) port(ctx context.Context, r *run, diff *porting.Diff) (Outcome, error) {
	console := a.deps.Console
	console.Emitf("%s already exists on %s, checking PRs to port...",
		terminal.Bold(r.opts.Addon), terminal.Bold(r.target.Ref()))
	console.PrintDiff(diff, r.opts.Verbose)

	if diff.Empty() {
		return Outcome{Kind: NothingToDo, Diff: diff}, nil
	}

	outcome := Outcome{Kind: PortsEligible, Diff: diff}
	if !r.opts.Interactive() {
		return outcome, nil
	}

	report, err := workflow.NewPorter(a.workflowDeps(r), r.settings).Run(ctx, diff)
	outcome.Port = report

	return outcome, err
}

func (a *App) migrate(ctx context.Context, r *run) (Outcome, error) {
	migrator := workflow.NewMigrator(a.workflowDeps(r), r.settings)
	mig := migrator.Check(ctx)

	if mig.Blacklisted != "" {
		return Outcome{Kind: NothingToDo, Migration: mig}, nil
	}

	outcome := Outcome{Kind: MigrationEligible, Migration: mig}

	if !r.opts.Interactive() {
		a.deps.Console.Emitf("%s can be migrated from %s to %s.", terminal.Bold(r.opts.Addon),
			terminal.Bold(r.sourceVersion), terminal.Bold(r.targetVersion))

		return outcome, nil
	}

	return outcome, migrator.Run(ctx, mig)
}

func (a *App) memoStats() cache.LRUStats {
	if a.lru == nil {
		return cache.LRUStats{}
	}

	return a.lru.Stats()
}

func (a *App) finish(ctx context.Context, r *run, before cache.LRUStats) {
	if r.memo != nil {
		after := r.memo.Stats()
		a.deps.Metrics.RecordCache(ctx, filesMemoCache, after.Hits-before.Hits, after.Misses-before.Misses)
	}

	if !r.opts.ClearCache {
		return
	}

	err := r.cache.Clear()
	if err != nil {
		a.deps.Logger.WarnContext(ctx, "clear cache", "error", err)
	}
}

var (
	_ workflow.Repository = (*gitlib.Repository)(nil)
	_ workflow.Worktree   = (*gitlib.Worktree)(nil)
	_ workflow.Hosting    = (*github.Client)(nil)
	_ porting.PRFinder    = (*github.Client)(nil)
)
