package observability_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ocaport/pkg/observability"
)

func TestAttributePolicy(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	keep := observability.ProbeKeep(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	for _, key := range []string{"diff.addon", "index.source_all", "http.target", "run.outcome", "mcp.tool", "error"} {
		assert.True(t, keep(key), key)
	}

	for _, key := range []string{"user.name", "email", "request.body", "commit.author", "commit.author.email", "sha"} {
		assert.False(t, keep(key), key)
	}

	assert.Contains(t, buf.String(), "span attribute dropped")
}

func TestAttributeFilterRedactsExportedSpans(t *testing.T) {
	t.Parallel()

	spans := observability.ProbeSpans(observability.DefaultConfig(), "diff.addon", "commit.author")
	require.Len(t, spans, 1)

	var keys []string
	for _, kv := range spans[0].Attributes {
		keys = append(keys, string(kv.Key))
	}

	assert.Equal(t, []string{"diff.addon"}, keys)
}
