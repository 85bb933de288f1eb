package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ocaport/pkg/mcp"
	"github.com/Sumatoshi-tech/ocaport/pkg/observability"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(globals *Globals) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the ocaport branch diff as tools that AI agents
can discover and invoke:
  - oca_port_diff: pull requests and commits to port, or migration eligibility
  - oca_port_cache_info: user cache files of an addon and branch pair

Tools never modify the repository.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			if debug {
				globals.Verbose = true
			}

			env, err := setup(globals, observability.ModeMCP)
			if err != nil {
				return err
			}
			defer env.close()

			red, err := observability.NewREDMetrics(env.providers.Meter, observability.NamespaceMCP)
			if err != nil {
				return err
			}

			// stdout carries the protocol.
			silent := terminal.NewConsole(cobraCmd.ErrOrStderr(), true)

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  env.providers.Logger,
				Metrics: red,
				Tracer:  env.providers.Tracer,
				App:     env.newApp(silent, terminal.AutoPrompter{}),
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
