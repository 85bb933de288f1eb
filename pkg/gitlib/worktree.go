package gitlib

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrGitCommand is returned when the git executable exits with a failure.
var ErrGitCommand = errors.New("git command failed")

// CommandError carries the arguments and stderr of a failed git invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

// Error implements error.
func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}

	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), msg)
}

// Unwrap lets errors.Is match ErrGitCommand.
func (e *CommandError) Unwrap() []error {
	return []error{ErrGitCommand, e.Err}
}

// Worktree runs git commands that mutate a checked-out working copy.
// libgit2 covers reads; patch generation and application go through the git
// executable so that hooks, user config and three-way am behave as they do
// for the operator.
type Worktree struct {
	dir    string
	binary string
}

// NewWorktree returns a worktree rooted at dir.
func NewWorktree(dir string) *Worktree {
	return &Worktree{dir: dir, binary: "git"}
}

// Dir returns the worktree root.
func (w *Worktree) Dir() string {
	return w.dir
}

func (w *Worktree) run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, w.binary, args...)
	cmd.Dir = w.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return stdout.String(), &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Fetch updates the remote-tracking ref of branch.
func (w *Worktree) Fetch(ctx context.Context, remote, branch string) error {
	_, err := w.run(ctx, "fetch", remote, branch)

	return err
}

// Checkout switches to an existing branch or revision.
func (w *Worktree) Checkout(ctx context.Context, rev string) error {
	_, err := w.run(ctx, "checkout", rev)

	return err
}

// CreateBranch creates name from start and checks it out without tracking.
func (w *Worktree) CreateBranch(ctx context.Context, name, start string) error {
	_, err := w.run(ctx, "checkout", "--no-track", "-b", name, start)

	return err
}

// DeleteBranch force-deletes a local branch.
func (w *Worktree) DeleteBranch(ctx context.Context, name string) error {
	_, err := w.run(ctx, "branch", "-D", name)

	return err
}

// FormatPatch writes patches for revRange into outDir, restricted to paths,
// and returns the generated file names in apply order. A single SHA with
// single=true produces one patch for that commit.
func (w *Worktree) FormatPatch(ctx context.Context, outDir, revRange string, single bool, paths ...string) ([]string, error) {
	args := []string{"format-patch", "--keep-subject", "-o", outDir}
	if single {
		args = append(args, "-1")
	}

	args = append(args, revRange, "--")
	args = append(args, paths...)

	out, err := w.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	return splitLines(out), nil
}

// Am applies patches with a three-way merge, keeping subjects untouched.
func (w *Worktree) Am(ctx context.Context, patches ...string) error {
	args := append([]string{"am", "-3", "--keep"}, patches...)
	_, err := w.run(ctx, args...)

	return err
}

// AmAbort aborts an in-progress am session.
func (w *Worktree) AmAbort(ctx context.Context) error {
	_, err := w.run(ctx, "am", "--abort")

	return err
}

// Add stages paths.
func (w *Worktree) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := w.run(ctx, args...)

	return err
}

// Commit records the staged changes.
func (w *Worktree) Commit(ctx context.Context, message string, noVerify bool) error {
	args := []string{"commit", "-m", message}
	if noVerify {
		args = append(args, "--no-verify")
	}

	_, err := w.run(ctx, args...)

	return err
}

// Push pushes branch to remote with --force-with-lease.
func (w *Worktree) Push(ctx context.Context, remote, branch string) error {
	_, err := w.run(ctx, "push", remote, branch, "--force-with-lease")

	return err
}

// RevParse resolves rev to a full SHA.
func (w *Worktree) RevParse(ctx context.Context, rev string) (string, error) {
	return w.run(ctx, "rev-parse", rev)
}

func splitLines(out string) []string {
	var lines []string

	for line := range strings.SplitSeq(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}
