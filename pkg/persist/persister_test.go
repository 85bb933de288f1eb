package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type portedState struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

func TestPersister_SaveLoad(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "dir")

	p := NewPersister[portedState]("state", NewJSONCodec())
	require.NoError(t, p.Save(dir, &portedState{Label: "hello", Value: 42}))

	assert.Equal(t, filepath.Join(dir, "state.json"), p.Path(dir))

	restored, err := p.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, &portedState{Label: "hello", Value: 42}, restored)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file left behind")
}

func TestPersister_LoadOrNew(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewPersister[portedState]("state", NewJSONCodec())

	doc, err := p.LoadOrNew(dir)
	require.NoError(t, err)
	assert.Equal(t, &portedState{}, doc)

	require.NoError(t, os.WriteFile(p.Path(dir), []byte("{broken"), 0o600))

	doc, err = p.LoadOrNew(dir)
	require.Error(t, err)
	assert.Equal(t, &portedState{}, doc)
}

func TestPersister_Remove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewPersister[portedState]("state", NewLZ4Codec(NewJSONCodec()))

	require.NoError(t, p.Save(dir, &portedState{Label: "x"}))
	require.NoError(t, p.Remove(dir))
	require.NoError(t, p.Remove(dir))

	_, err := p.Load(dir)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPersister_SaveInvalidDir(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	p := NewPersister[portedState]("state", NewJSONCodec())

	assert.Error(t, p.Save(filepath.Join(file, "sub"), &portedState{}))
}
