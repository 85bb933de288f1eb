package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ocaport/internal/app"
	"github.com/Sumatoshi-tech/ocaport/pkg/observability"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

// NewBlacklistCommand creates the blacklist command.
func NewBlacklistCommand(globals *Globals) *cobra.Command {
	var opts app.BlacklistOptions

	cmd := &cobra.Command{
		Use:   "blacklist PRS TARGET ADDON",
		Short: "Exclude pull requests from future ports",
		Long: `Record the pull requests PRS in the blacklist of ADDON and commit it on a
fresh oca-port-ADDON-TARGET-blacklist branch started from TARGET.

PRS is a comma separated list of numbers, org/repo#N references or pull
request URLs. The reason may contain {ref}, replaced by each reference.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.PullRequests = app.SplitRefs(args[0])
			opts.Target, opts.Addon = args[1], args[2]

			env, err := setup(globals, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer env.close()

			console := terminal.NewConsole(cmd.OutOrStdout(), globals.Quiet)

			_, err = env.newApp(console, terminal.AutoPrompter{}).Blacklist(cmd.Context(), opts)

			return err
		},
	}

	cmd.Flags().StringVarP(&opts.RepoPath, "path", "p", ".", "Repository path")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", `Reason recorded for each PR (default "`+app.DefaultBlacklistReason+`")`)
	cmd.Flags().StringVar(&opts.Remote, "remote", "", "Remote of TARGET (default: upstream.remote)")

	return cmd
}
