package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ocaport/internal/app"
	"github.com/Sumatoshi-tech/ocaport/pkg/observability"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

// RunCommand holds the flags of the run command.
type RunCommand struct {
	globals *Globals
	opts    app.Options
	output  string
}

// NewRunCommand creates the run command.
func NewRunCommand(globals *Globals) *cobra.Command {
	rc := &RunCommand{globals: globals}

	cmd := &cobra.Command{
		Use:   "run SOURCE TARGET ADDON",
		Short: "Diff an addon between two branches and port or migrate it",
		Long: `Compare ADDON between the SOURCE and TARGET branches, given as [remote/]branch.

When the addon exists on both branches, the pull requests and commits missing
on TARGET are listed and, interactively, ported to a new branch. When it only
exists on SOURCE, its migration to TARGET is proposed.

With --non-interactive or --output the outcome is reported by the exit code:
0 nothing to do, 100 migration eligible, 110 ports eligible.`,
		Args: cobra.ExactArgs(3),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.opts.RepoPath, "path", "p", ".", "Repository path")
	cmd.Flags().StringVar(&rc.opts.Destination, "destination", "",
		"Destination as [remote/]branch (default: generated oca-port branch on the fork remote)")
	cmd.Flags().StringVar(&rc.opts.SourceVersion, "source-version", "", "Odoo series of SOURCE when its name carries none")
	cmd.Flags().StringVar(&rc.opts.TargetVersion, "target-version", "", "Odoo series of TARGET when its name carries none")
	cmd.Flags().StringVar(&rc.opts.RepoName, "repo-name", "", "Upstream repository name (default: read from the remote URL)")
	cmd.Flags().BoolVar(&rc.opts.NonInteractive, "non-interactive", false, "Report the outcome without porting anything")
	cmd.Flags().BoolVar(&rc.opts.DryRun, "dry-run", false, "List what would be ported without modifying the repository")
	cmd.Flags().BoolVar(&rc.opts.SkipDestBranchRecreate, "skip-dest-branch-recreate", false,
		"Keep an existing destination branch instead of asking to recreate it")
	cmd.Flags().StringVar(&rc.output, "output", "", "Output format: json, yaml")
	cmd.Flags().BoolVar(&rc.opts.Fetch, "fetch", false, "Fetch the remote branches first")
	cmd.Flags().BoolVar(&rc.opts.NoCache, "no-cache", false, "Ignore the user cache")
	cmd.Flags().BoolVar(&rc.opts.ClearCache, "clear-cache", false, "Clear the user cache of the addon after the run")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	format, err := terminal.ParseFormat(rc.output)
	if err != nil {
		return err
	}

	opts := rc.opts
	opts.Source, opts.Target, opts.Addon = args[0], args[1], args[2]
	opts.Output = format
	opts.Verbose = rc.globals.Verbose

	env, err := setup(rc.globals, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer env.close()

	console := terminal.NewConsole(cmd.OutOrStdout(), rc.globals.Quiet || format != terminal.FormatText)
	prompter := terminal.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	outcome, err := env.newApp(console, prompter).Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if format != terminal.FormatText {
		err = console.Render(format, outcome.Report())
		if err != nil {
			return err
		}
	}

	if !opts.NonInteractive && format == terminal.FormatText {
		return nil
	}

	if code := ExitCode(outcome.Kind); code != ExitNothingToDo {
		return &ExitError{Code: code}
	}

	return nil
}
