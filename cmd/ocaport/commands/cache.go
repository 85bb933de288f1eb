package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ocaport/internal/app"
	"github.com/Sumatoshi-tech/ocaport/pkg/observability"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(globals *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the user cache",
	}

	cmd.AddCommand(newCacheInfoCommand(globals))
	cmd.AddCommand(newCacheClearCommand(globals))

	return cmd
}

func cacheFlags(cmd *cobra.Command, opts *app.CacheOptions) {
	cmd.Flags().StringVarP(&opts.RepoPath, "path", "p", ".", "Repository path")
	cmd.Flags().StringVar(&opts.RepoName, "repo-name", "", "Upstream repository name (default: read from the remote URL)")
}

func newCacheInfoCommand(globals *Globals) *cobra.Command {
	var opts app.CacheOptions

	cmd := &cobra.Command{
		Use:   "info SOURCE TARGET ADDON",
		Short: "Show the cache files of an addon and branch pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source, opts.Target, opts.Addon = args[0], args[1], args[2]

			env, err := setup(globals, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer env.close()

			console := terminal.NewConsole(cmd.OutOrStdout(), globals.Quiet)

			files, err := env.newApp(console, terminal.AutoPrompter{}).CacheFiles(cmd.Context(), opts)
			if err != nil {
				return err
			}

			var total int64

			rows := make([]table.Row, 0, len(files))

			for _, file := range files {
				size := "-"
				if file.Exists {
					size = humanize.Bytes(uint64(max(file.Size, 0)))
					total += file.Size
				}

				rows = append(rows, table.Row{file.Kind, humanize.Comma(int64(file.Entries)), size, file.Path})
			}

			console.Table(table.Row{"Cache", "Entries", "Size", "Path"}, rows,
				fmt.Sprintf("Total %s", humanize.Bytes(uint64(max(total, 0)))))

			return nil
		},
	}

	cacheFlags(cmd, &opts)

	return cmd
}

func newCacheClearCommand(globals *Globals) *cobra.Command {
	var opts app.CacheOptions

	cmd := &cobra.Command{
		Use:   "clear SOURCE TARGET ADDON",
		Short: "Remove the cache files of an addon and branch pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source, opts.Target, opts.Addon = args[0], args[1], args[2]

			env, err := setup(globals, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer env.close()

			console := terminal.NewConsole(cmd.OutOrStdout(), globals.Quiet)

			err = env.newApp(console, terminal.AutoPrompter{}).ClearCache(cmd.Context(), opts)
			if err != nil {
				return err
			}

			console.Success(fmt.Sprintf("Cache of %s from %s to %s cleared", opts.Addon, opts.Source, opts.Target))

			return nil
		},
	}

	cacheFlags(cmd, &opts)

	return cmd
}
