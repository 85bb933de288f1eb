// Package main provides the entry point for the ocaport CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ocaport/cmd/ocaport/commands"
)

func main() {
	globals := &commands.Globals{}

	rootCmd := &cobra.Command{
		Use:   "ocaport",
		Short: "Port Odoo addon commits and pull requests between branches",
		Long: `ocaport compares an addon between two version branches of an OCA
repository and helps port what is missing, or migrate the addon.

Commands:
  run        Diff an addon between two branches and port or migrate it
  blacklist  Exclude pull requests from future ports
  cache      Inspect or clear the user cache
  mcp        Serve the diff to AI agents over stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "", "config file (default .ocaport.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globals.Quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewRunCommand(globals))
	rootCmd.AddCommand(commands.NewBlacklistCommand(globals))
	rootCmd.AddCommand(commands.NewCacheCommand(globals))
	rootCmd.AddCommand(commands.NewMCPCommand(globals))
	rootCmd.AddCommand(commands.NewVersionCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
