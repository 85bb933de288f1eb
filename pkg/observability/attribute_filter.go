package observability

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// attributePolicy decides which span attribute keys reach the exporter.
// Denied keys win over allowed namespaces; keys outside every namespace are
// dropped too.
type attributePolicy struct {
	allow  []string
	deny   []string
	logger *slog.Logger
}

// spanAttributes lists the namespaces ocaport spans use. Commit authors and
// API payloads never leave the process.
var spanAttributes = attributePolicy{
	allow: []string{"ocaport.", "run.", "diff.", "index.", "cache", "github.", "http.", "mcp.", "error", "app."},
	deny:  []string{"commit.author", "user.", "email", "request.body", "response.body"},
}

func (p attributePolicy) keep(key string) bool {
	for _, denied := range p.deny {
		if strings.HasPrefix(key, denied) {
			p.dropped(key)

			return false
		}
	}

	for _, ns := range p.allow {
		if strings.HasPrefix(key, ns) {
			return true
		}
	}

	p.dropped(key)

	return false
}

func (p attributePolicy) dropped(key string) {
	if p.logger != nil {
		p.logger.Debug("span attribute dropped", "key", key)
	}
}

// NewAttributeFilter returns a SpanProcessor forwarding ended spans to next
// with their attributes restricted to the ocaport namespaces. Dropped keys
// are logged at debug level when logger is set.
func NewAttributeFilter(next sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	policy := spanAttributes
	policy.logger = logger

	return &filteringProcessor{next: next, policy: policy}
}

type filteringProcessor struct {
	next   sdktrace.SpanProcessor
	policy attributePolicy
}

func (f *filteringProcessor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.next.OnStart(parent, s)
}

// OnEnd hands next a view of s; ended spans are read-only.
func (f *filteringProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	f.next.OnEnd(redactedSpan{ReadOnlySpan: s, policy: f.policy})
}

func (f *filteringProcessor) Shutdown(ctx context.Context) error {
	return f.next.Shutdown(ctx)
}

func (f *filteringProcessor) ForceFlush(ctx context.Context) error {
	return f.next.ForceFlush(ctx)
}

type redactedSpan struct {
	sdktrace.ReadOnlySpan

	policy attributePolicy
}

func (s redactedSpan) Attributes() []attribute.KeyValue {
	var kept []attribute.KeyValue

	for _, kv := range s.ReadOnlySpan.Attributes() {
		if s.policy.keep(string(kv.Key)) {
			kept = append(kept, kv)
		}
	}

	return kept
}
