package persist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedFiles struct {
	Files map[string][]string `json:"files" yaml:"files"`
}

func TestJSONCodec_CompactNoIndent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, (&JSONCodec{}).Encode(&buf, cachedFiles{Files: map[string][]string{"abc": {"a/b.py"}}}))

	assert.Equal(t, `{"files":{"abc":["a/b.py"]}}`+"\n", buf.String())
}

func TestJSONCodec_DecodeMalformed(t *testing.T) {
	t.Parallel()

	var doc cachedFiles

	err := NewJSONCodec().Decode(strings.NewReader("{not json"), &doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json decode")
}

func TestYAMLCodec_Encode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, YAMLCodec{}.Encode(&buf, cachedFiles{Files: map[string][]string{"abc": {"a/b.py"}}}))

	assert.True(t, strings.HasPrefix(buf.String(), "files:\n  abc:\n"))
	assert.Equal(t, ".yaml", YAMLCodec{}.Extension())

	var decoded cachedFiles

	require.NoError(t, YAMLCodec{}.Decode(&buf, &decoded))
	assert.Equal(t, []string{"a/b.py"}, decoded.Files["abc"])
}

func TestLZ4Codec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewLZ4Codec(NewJSONCodec())
	assert.Equal(t, ".json.lz4", codec.Extension())

	files := make([]string, 0, 200)
	for range 200 {
		files = append(files, "my_module/models/account_move.py")
	}

	original := cachedFiles{Files: map[string][]string{"abc": files}}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	plain, err := jsonSize(original)
	require.NoError(t, err)
	assert.Less(t, buf.Len(), plain)

	var decoded cachedFiles

	require.NoError(t, codec.Decode(&buf, &decoded))
	assert.Equal(t, original, decoded)
}

func jsonSize(doc any) (int, error) {
	var buf bytes.Buffer

	err := NewJSONCodec().Encode(&buf, doc)

	return buf.Len(), err
}
