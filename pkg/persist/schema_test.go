package persist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const filesSchema = `{
  "type": "object",
  "properties": {
    "files": {
      "type": "object",
      "additionalProperties": {"type": "array", "items": {"type": "string"}}
    }
  },
  "required": ["files"]
}`

func TestSchemaCodec_Decode(t *testing.T) {
	t.Parallel()

	codec, err := NewSchemaCodec([]byte(filesSchema))
	require.NoError(t, err)

	var doc cachedFiles

	require.NoError(t, codec.Decode(strings.NewReader(`{"files": {"abc": ["a.py"]}}`), &doc))
	assert.Equal(t, []string{"a.py"}, doc.Files["abc"])

	err = codec.Decode(strings.NewReader(`{"files": {"abc": "a.py"}}`), &doc)
	require.ErrorIs(t, err, ErrSchemaViolation)

	err = codec.Decode(strings.NewReader(`{}`), &doc)
	require.ErrorIs(t, err, ErrSchemaViolation)
	assert.Contains(t, err.Error(), "files")
}

func TestSchemaCodec_MalformedJSON(t *testing.T) {
	t.Parallel()

	var doc cachedFiles

	err := MustSchemaCodec([]byte(filesSchema)).Decode(strings.NewReader(`{"files":`), &doc)
	require.ErrorIs(t, err, ErrSchemaViolation)
}

func TestSchemaCodec_WrappedInLZ4(t *testing.T) {
	t.Parallel()

	codec := NewLZ4Codec(MustSchemaCodec([]byte(filesSchema)))

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, cachedFiles{Files: map[string][]string{"x": {"y"}}}))

	var doc cachedFiles

	require.NoError(t, codec.Decode(&buf, &doc))
	assert.Equal(t, []string{"y"}, doc.Files["x"])
}

func TestNewSchemaCodec_InvalidSchema(t *testing.T) {
	t.Parallel()

	_, err := NewSchemaCodec([]byte(`{"type": 12}`))
	require.Error(t, err)
	assert.Panics(t, func() { MustSchemaCodec([]byte(`not json`)) })
}
