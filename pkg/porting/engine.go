// Package porting computes which commits of an addon exist on a source
// branch but not on a target branch, grouped by originating pull request.
package porting

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Errors distinguishing a missing addon from an empty diff.
var (
	ErrAddonNotFound    = errors.New("addon does not exist")
	ErrAddonNotOnSource = fmt.Errorf("%w on source", ErrAddonNotFound)
	ErrAddonNotOnTarget = fmt.Errorf("%w on target", ErrAddonNotFound)
)

const tracerName = "ocaport/porting"

// Index roles reported to Recorder.
const (
	roleSourceAddon = "source_addon"
	roleSourceAll   = "source_all"
	roleTargetAddon = "target_addon"
	roleTargetAll   = "target_all"
)

// Request names the branches and addon to compare.
type Request struct {
	Source BranchRef
	Target BranchRef
	Addon  string
}

// Engine computes branch diffs.
type Engine struct {
	History   History
	Cache     Cache
	Resolver  *Resolver
	Blacklist Blacklist
	Filter    Filter
	Notifier  Notifier
	Recorder  Recorder
	Logger    *slog.Logger

	// Tracer creates diff spans. When nil, falls back to otel.Tracer.
	Tracer trace.Tracer
}

func (e *Engine) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}

	return otel.Tracer(tracerName)
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}

	return slog.New(slog.DiscardHandler)
}

func (e *Engine) notifier() Notifier {
	if e.Notifier != nil {
		return e.Notifier
	}

	return nopNotifier{}
}

func (e *Engine) recorder() Recorder {
	if e.Recorder != nil {
		return e.Recorder
	}

	return nopRecorder{}
}

func (e *Engine) blacklist() Blacklist {
	if e.Blacklist != nil {
		return e.Blacklist
	}

	return NoBlacklist{}
}

// diffRun holds the state of one Diff call.
type diffRun struct {
	*Engine

	req     Request
	commits *commitSource

	sourceAddon *Index
	sourceAll   *Index
	targetAddon *Index
	targetAll   *Index

	missing  []*Commit
	orphan   *PullRequest
	prs      map[PullRequestKey]*PullRequest
	// resolved maps missing commit SHAs to their pull request for the run,
	// so expansion never depends on the cache keeping lookups.
	resolved map[string]*PullRequest
	walked   map[*PullRequest]map[string]bool
	order    []*PullRequest
	queued   map[*PullRequest][]*Commit
}

// Diff returns the commits of req.Addon missing on the target branch,
// grouped by pull request and partitioned into addon and satellite changes.
func (e *Engine) Diff(ctx context.Context, req Request) (*Diff, error) {
	ctx, span := e.tracer().Start(ctx, "ocaport.diff", trace.WithAttributes(
		attribute.String("diff.source", req.Source.Ref()),
		attribute.String("diff.target", req.Target.Ref()),
		attribute.String("diff.addon", req.Addon),
	))
	defer span.End()

	err := e.checkAddon(ctx, req)
	if err != nil {
		return nil, err
	}

	run := &diffRun{
		Engine:   e,
		req:      req,
		commits:  newCommitSource(e.History),
		orphan:   NewOrphan(),
		prs:      make(map[PullRequestKey]*PullRequest),
		resolved: make(map[string]*PullRequest),
		walked:   make(map[*PullRequest]map[string]bool),
		queued:   make(map[*PullRequest][]*Commit),
	}

	err = run.index(ctx)
	if err != nil {
		return nil, err
	}

	run.missing = run.collectMissing(ctx)

	err = run.seed(ctx)
	if err != nil {
		return nil, err
	}

	err = run.expand(ctx)
	if err != nil {
		return nil, err
	}

	diff := run.partition(ctx)

	saveErr := e.Cache.Save()
	if saveErr != nil {
		e.logger().WarnContext(ctx, "save cache", "error", saveErr)
	}

	span.SetAttributes(
		attribute.Int("diff.addon_prs", len(diff.Addon)),
		attribute.Int("diff.satellite_prs", len(diff.Satellite)),
	)

	return diff, nil
}

func (e *Engine) checkAddon(ctx context.Context, req Request) error {
	ok, err := e.History.HasPath(ctx, req.Source.Ref(), req.Addon)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: %s does not exist on %s", ErrAddonNotOnSource, req.Addon, req.Source.Ref())
	}

	ok, err = e.History.HasPath(ctx, req.Target.Ref(), req.Addon)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: %s does not exist on %s", ErrAddonNotOnTarget, req.Addon, req.Target.Ref())
	}

	return nil
}

// index builds the four branch indices.
func (r *diffRun) index(ctx context.Context) error {
	ctx, span := r.tracer().Start(ctx, "ocaport.diff.index")
	defer span.End()

	specs := []struct {
		target **Index
		rev    string
		path   string
		role   string
	}{
		{&r.sourceAddon, r.req.Source.Ref(), r.req.Addon, roleSourceAddon},
		{&r.sourceAll, r.req.Source.Ref(), "", roleSourceAll},
		{&r.targetAddon, r.req.Target.Ref(), r.req.Addon, roleTargetAddon},
		{&r.targetAll, r.req.Target.Ref(), "", roleTargetAll},
	}

	for _, spec := range specs {
		ix, err := buildIndex(ctx, r.commits, r.Cache, r.Filter, spec.rev, spec.path)
		if err != nil {
			return err
		}

		*spec.target = ix

		r.recorder().CommitsScanned(ctx, spec.role, ix.Len())
		span.SetAttributes(attribute.Int("index."+spec.role, ix.Len()))
	}

	return nil
}

// collectMissing lists the addon commits of the source branch absent from
// the whole target history and marks the others as ported.
func (r *diffRun) collectMissing(ctx context.Context) []*Commit {
	var out []*Commit

	for _, c := range r.sourceAddon.Commits {
		if r.targetAll.Contains(c, Strict) {
			markErr := r.Cache.MarkCommitPorted(c.SHA)
			if markErr != nil {
				r.logger().WarnContext(ctx, "mark commit ported", "sha", c.SHA, "error", markErr)
			}

			continue
		}

		out = append(out, c)
	}

	return out
}

// seed resolves every missing commit once so that the pull requests of all
// candidates are known before expansion.
func (r *diffRun) seed(ctx context.Context) error {
	ctx, span := r.tracer().Start(ctx, "ocaport.diff.seed")
	defer span.End()

	for _, c := range r.missing {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.resolve(ctx, c)
	}

	return nil
}

// resolve returns the canonical instance of the pull request of c. Each
// commit is resolved at most once per run.
func (r *diffRun) resolve(ctx context.Context, c *Commit) *PullRequest {
	if pr, ok := r.resolved[c.SHA]; ok {
		return pr
	}

	pr := r.Resolver.Resolve(ctx, c, r.orphan)
	key := pr.Key()

	if existing, ok := r.prs[key]; ok {
		for _, sha := range pr.Commits {
			existing.AppendCommit(sha)
		}

		pr = existing
	} else {
		r.prs[key] = pr
	}

	r.resolved[c.SHA] = pr

	return pr
}

// expand walks the commits of the pull request of every missing commit and
// queues those not yet carried by the target branch.
func (r *diffRun) expand(ctx context.Context) error {
	ctx, span := r.tracer().Start(ctx, "ocaport.diff.expand")
	defer span.End()

	for _, c := range r.missing {
		pr := r.resolve(ctx, c)

		walked := r.walked[pr]
		if walked == nil {
			walked = make(map[string]bool)
			r.walked[pr] = walked
		}

		// Commits appended to pr after an earlier walk are still visited.
		for _, sha := range pr.Commits {
			if walked[sha] {
				continue
			}

			walked[sha] = true

			if err := ctx.Err(); err != nil {
				return err
			}

			prCommit, err := r.prCommit(ctx, sha)
			if errors.Is(err, ErrCommitNotFound) {
				continue
			}

			if err != nil {
				return err
			}

			if r.Filter.IsNoise(prCommit) {
				continue
			}

			if r.coveredByPartialPorts(pr, prCommit) {
				continue
			}

			if r.targetAddon.Contains(prCommit, Strict) && r.targetAll.Contains(prCommit, Strict) {
				continue
			}

			r.queue(pr, prCommit)
		}
	}

	return nil
}

func (r *diffRun) prCommit(ctx context.Context, sha string) (*Commit, error) {
	if c, ok := r.sourceAll.BySHA[sha]; ok {
		return c, nil
	}

	return r.commits.get(ctx, sha)
}

// coveredByPartialPorts accumulates the paths of c on pr and reports whether
// earlier partial ports on the target branch already carry all of them.
// Matching is on paths only: the content of the ported chunks is not compared.
func (r *diffRun) coveredByPartialPorts(pr *PullRequest, c *Commit) bool {
	portable := c.PortablePaths()
	pr.Paths.Add(portable)

	if r.targetAddon.Contains(c, Strict) {
		return false
	}

	needed := portable.Clone()
	covered := false

	for _, ported := range r.targetAll.Matches(c, Lazy) {
		portedPaths := ported.PortablePaths()
		pr.PortedPaths.Add(portedPaths)
		c.LinkPorted(ported)
		needed.Remove(portedPaths)

		if len(needed) == 0 {
			covered = true
		}
	}

	return covered
}

func (r *diffRun) queue(pr *PullRequest, c *Commit) {
	queued, seen := r.queued[pr]
	if !seen {
		r.order = append(r.order, pr)
	}

	for _, existing := range queued {
		if existing.SHA == c.SHA && existing.Equal(c, Strict) {
			return
		}
	}

	r.queued[pr] = append(queued, c)
}

// partition orders pull requests by merge date, drops blacklisted ones and
// splits the rest between the analyzed addon and other paths.
func (r *diffRun) partition(ctx context.Context) *Diff {
	prs := slices.Clone(r.order)
	slices.SortStableFunc(prs, func(a, b *PullRequest) int {
		return cmp.Compare(a.MergedAt, b.MergedAt)
	})

	diff := &Diff{Source: r.req.Source, Target: r.req.Target, AddonName: r.req.Addon}

	for _, pr := range prs {
		if reason, blacklisted := r.isBlacklisted(pr); blacklisted {
			r.recorder().PullRequestBlacklisted(ctx)
			r.notifier().Emit(blacklistNotice(pr, reason))

			continue
		}

		group := Group{PullRequest: pr, Commits: r.queued[pr]}

		if r.touchesAddon(pr) {
			diff.Addon = append(diff.Addon, group)
		} else {
			diff.Satellite = append(diff.Satellite, group)
		}
	}

	return diff
}

func (r *diffRun) isBlacklisted(pr *PullRequest) (string, bool) {
	if reason, ok := r.blacklist().PullRequestBlacklisted(pr.BlacklistKey()); ok {
		return reason, true
	}

	if number := pr.NumberString(); number != "" {
		return r.blacklist().PullRequestBlacklisted(number)
	}

	return "", false
}

func (r *diffRun) touchesAddon(pr *PullRequest) bool {
	for _, p := range pr.PathsNotPorted() {
		if path.Base(p) == r.req.Addon {
			return true
		}
	}

	return false
}

func blacklistNotice(pr *PullRequest, reason string) string {
	if pr.IsOrphan() {
		return fmt.Sprintf("Orphaned commits blacklisted (%s)", reason)
	}

	return fmt.Sprintf("PR #%d blacklisted (%s)", pr.Number, reason)
}
