package commands_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ocaport/cmd/ocaport/commands"
	"github.com/Sumatoshi-tech/ocaport/internal/app"
	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

func requireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

// writeConfig points the cache at a temporary directory.
func writeConfig(t *testing.T) *commands.Globals {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "ocaport.yaml")
	content := fmt.Sprintf("cache:\n  directory: %s\nblacklist:\n  env_file: OCAPORT_TEST_UNSET_BLACKLIST_FILE\n",
		filepath.Join(dir, "cache"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return &commands.Globals{ConfigPath: path}
}

func fixture(t *testing.T, remoteURL string) *gitlib.TestRepo {
	t.Helper()

	tr := gitlib.NewTestRepo(t)
	added := tr.Commit("15.0", gitlib.TestCommit{
		Message: "[ADD] my_module",
		Files:   map[string]string{"my_module/__init__.py": "", "my_module/__manifest__.py": "{}"},
	})
	tr.Commit("15.0", gitlib.TestCommit{
		Message: "[ADD] new_mod",
		Files:   map[string]string{"new_mod/__init__.py": "", "new_mod/__manifest__.py": "{}"},
	})
	tr.Commit("16.0", gitlib.TestCommit{
		Message: "[INIT] 16.0",
		Files:   map[string]string{"README.md": "16.0"},
	})
	tr.Replay("16.0", added)
	tr.Commit("15.0", gitlib.TestCommit{
		Message: "[IMP] my_module: manifest",
		Files:   map[string]string{"my_module/__manifest__.py": `{"depends": ["mail"]}`},
	})
	tr.AddRemote("origin", remoteURL)
	tr.Publish("origin", "15.0")
	tr.Publish("origin", "16.0")
	tr.Checkout("16.0")

	return tr
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, commands.ExitCode(app.NothingToDo))
	assert.Equal(t, 100, commands.ExitCode(app.MigrationEligible))
	assert.Equal(t, 110, commands.ExitCode(app.PortsEligible))
	assert.Equal(t, "exit status 110", (&commands.ExitError{Code: 110}).Error())
}

func TestRunCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := commands.NewRunCommand(&commands.Globals{})
	assert.Equal(t, "run SOURCE TARGET ADDON", cmd.Use)

	for _, name := range []string{
		"path", "destination", "source-version", "target-version", "repo-name", "non-interactive",
		"dry-run", "skip-dest-branch-recreate", "output", "fetch", "no-cache", "clear-cache",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	assert.Equal(t, ".", cmd.Flags().Lookup("path").DefValue)
}

func TestRunCommand_Args(t *testing.T) {
	t.Parallel()

	_, err := execute(commands.NewRunCommand(&commands.Globals{}), "15.0", "16.0")
	require.Error(t, err)
}

func TestRunCommand_InvalidOutput(t *testing.T) {
	t.Parallel()

	_, err := execute(commands.NewRunCommand(&commands.Globals{}),
		"15.0", "16.0", "my_module", "--output", "xml", "--path", "/nonexistent")
	require.ErrorIs(t, err, terminal.ErrInvalidOutput)
}

func TestRunCommand_OutputReportsExitCode(t *testing.T) {
	t.Parallel()
	requireGit(t)

	tr := fixture(t, "https://git.example.com/OCA/edi.git")

	tests := []struct {
		addon   string
		code    int
		process string
	}{
		{"my_module", commands.ExitPortsEligible, app.ProcessPortCommits},
		{"new_mod", commands.ExitMigrationEligible, app.ProcessMigrate},
	}

	for _, tt := range tests {
		out, err := execute(commands.NewRunCommand(writeConfig(t)),
			"15.0", "16.0", tt.addon, "--output", "json", "--path", tr.Path)

		var exitErr *commands.ExitError
		require.ErrorAs(t, err, &exitErr, tt.addon)
		assert.Equal(t, tt.code, exitErr.Code)

		var doc struct {
			Process string `json:"process"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
		assert.Equal(t, tt.process, doc.Process)
	}
}

func TestRunCommand_NonInteractiveText(t *testing.T) {
	t.Parallel()
	requireGit(t)

	tr := fixture(t, "https://git.example.com/OCA/edi.git")

	out, err := execute(commands.NewRunCommand(writeConfig(t)),
		"15.0", "16.0", "new_mod", "--non-interactive", "--path", tr.Path)

	var exitErr *commands.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, commands.ExitMigrationEligible, exitErr.Code)
	assert.Contains(t, out, "new_mod can be migrated from 15.0 to 16.0.")
}

func TestRunCommand_DryRunExitsZero(t *testing.T) {
	t.Parallel()
	requireGit(t)

	tr := fixture(t, "https://git.example.com/OCA/edi.git")

	out, err := execute(commands.NewRunCommand(writeConfig(t)),
		"15.0", "16.0", "my_module", "--dry-run", "--path", tr.Path)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists on origin/16.0")
}

func TestCacheCommand(t *testing.T) {
	t.Parallel()
	requireGit(t)

	tr := fixture(t, "https://git.example.com/OCA/edi.git")
	globals := writeConfig(t)

	_, err := execute(commands.NewRunCommand(globals), "15.0", "16.0", "my_module", "--dry-run", "--path", tr.Path)
	require.NoError(t, err)

	out, err := execute(commands.NewCacheCommand(globals), "info", "15.0", "16.0", "my_module", "--path", tr.Path)
	require.NoError(t, err)
	assert.Contains(t, out, "commits_data")
	assert.Contains(t, out, "to_port")

	out, err = execute(commands.NewCacheCommand(globals), "clear", "15.0", "16.0", "my_module", "--path", tr.Path)
	require.NoError(t, err)
	assert.Contains(t, out, "Cache of my_module from 15.0 to 16.0 cleared")
}

func TestBlacklistCommand(t *testing.T) {
	t.Parallel()
	requireGit(t)

	tr := fixture(t, "https://github.com/OCA/edi.git")

	out, err := execute(commands.NewBlacklistCommand(writeConfig(t)), "12,OCA/edi#13", "16.0", "my_module",
		"--path", tr.Path, "--reason", "done in {ref}")
	require.NoError(t, err)
	assert.Contains(t, out, "OCA/edi#12, OCA/edi#13")
	assert.Contains(t, out, app.BlacklistBranch("my_module", "16.0"))
}

func TestMCPCommand(t *testing.T) {
	t.Parallel()

	cmd := commands.NewMCPCommand(&commands.Globals{})
	require.NotNil(t, cmd)
	assert.Equal(t, "mcp", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Contains(t, cmd.Long, "oca_port_diff")

	flag := cmd.Flags().Lookup("debug")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(commands.NewVersionCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "ocaport ")
}
