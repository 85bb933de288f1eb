package terminal_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

func TestConfirm(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	p := terminal.NewPrompter(strings.NewReader("maybe\ny\n\nno\n"), &out)

	ok, err := p.Confirm("Port it?", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Error: invalid input")

	ok, err = p.Confirm("Push?", true)
	require.NoError(t, err)
	assert.True(t, ok, "empty answer selects the default")

	ok, err = p.Confirm("Blacklist?", true)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.Confirm("Again?", false)
	require.ErrorIs(t, err, terminal.ErrNoInput)
}

func TestAsk(t *testing.T) {
	t.Parallel()

	p := terminal.NewPrompter(strings.NewReader("\n  lint only  \nlast"), &bytes.Buffer{})

	reason, err := p.Ask("Reason")
	require.NoError(t, err)
	assert.Equal(t, "lint only", reason)

	reason, err = p.Ask("Reason")
	require.NoError(t, err)
	assert.Equal(t, "last", reason, "unterminated last line is an answer")

	_, err = p.Ask("Reason")
	require.ErrorIs(t, err, terminal.ErrNoInput)
}

func TestAutoPrompter(t *testing.T) {
	t.Parallel()

	ok, err := terminal.AutoPrompter{Yes: true}.Confirm("x", false)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = terminal.AutoPrompter{}.Ask("x")
	require.ErrorIs(t, err, terminal.ErrNoInput)
}
