package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCommitsScanned = "ocaport.commits.scanned"
	metricPRsResolved    = "ocaport.prs.resolved"
	metricPRsBlacklisted = "ocaport.prs.blacklisted"
	metricCacheHits      = "ocaport.cache.hits"
	metricCacheMisses    = "ocaport.cache.misses"

	attrRole   = "role"
	attrSource = "source"
	attrCache  = "cache"
)

// DiffMetrics counts what a branch diff scanned and resolved. It satisfies
// porting.Recorder.
type DiffMetrics struct {
	commitsScanned metric.Int64Counter
	prsResolved    metric.Int64Counter
	prsBlacklisted metric.Int64Counter
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
}

// NewDiffMetrics creates diff metric instruments from the given meter.
func NewDiffMetrics(mt metric.Meter) (*DiffMetrics, error) {
	in := &instruments{meter: mt}

	dm := &DiffMetrics{
		commitsScanned: in.counter(metricCommitsScanned, "Commits indexed by branch role", "{commit}"),
		prsResolved:    in.counter(metricPRsResolved, "Original pull requests resolved by source", "{pull_request}"),
		prsBlacklisted: in.counter(metricPRsBlacklisted, "Pull requests dropped by the blacklist", "{pull_request}"),
		cacheHits:      in.counter(metricCacheHits, "In-memory cache hits", "{hit}"),
		cacheMisses:    in.counter(metricCacheMisses, "In-memory cache misses", "{miss}"),
	}

	err := in.Err()
	if err != nil {
		return nil, err
	}

	return dm, nil
}

// CommitsScanned records count commits indexed for role.
func (dm *DiffMetrics) CommitsScanned(ctx context.Context, role string, count int) {
	if dm == nil {
		return
	}

	dm.commitsScanned.Add(ctx, int64(count), metric.WithAttributes(attribute.String(attrRole, role)))
}

// PullRequestResolved records one resolution answered by source.
func (dm *DiffMetrics) PullRequestResolved(ctx context.Context, source string) {
	if dm == nil {
		return
	}

	dm.prsResolved.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSource, source)))
}

// PullRequestBlacklisted records one blacklisted pull request.
func (dm *DiffMetrics) PullRequestBlacklisted(ctx context.Context) {
	if dm == nil {
		return
	}

	dm.prsBlacklisted.Add(ctx, 1)
}

// RecordCache records the hit and miss counts of the named cache.
func (dm *DiffMetrics) RecordCache(ctx context.Context, name string, hits, misses int64) {
	if dm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrCache, name))
	dm.cacheHits.Add(ctx, hits, attrs)
	dm.cacheMisses.Add(ctx, misses, attrs)
}
