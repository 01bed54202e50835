package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/giobyte8/picturefill/internal/services"
	"github.com/giobyte8/picturefill/internal/watcher"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [targets...]",
		Short: "Run targets, then run them again whenever their sources change",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			taskFile, coordinator, err := c.prepare()
			if err != nil {
				return err
			}

			// Failed runs are reported but keep the watcher alive
			results, err := coordinator.RunTargets(cmd.Context(), taskFile, args)
			printResults(cmd.OutOrStdout(), results)
			if err != nil {
				slog.Error("Initial run failed", "error", err)
			}

			w, err := watcher.NewWatcher(
				taskFile,
				args,
				func(ctx context.Context, name string) error {
					res, err := coordinator.RunTarget(
						ctx,
						name,
						taskFile.Targets[name],
						services.RunOptions{},
					)
					if res != nil {
						printResults(cmd.OutOrStdout(), []*services.RunResult{res})
					}
					return err
				},
			)
			if err != nil {
				return err
			}

			slog.Info("Watching for source changes. Press Ctrl+C to stop.")
			return w.Run(cmd.Context())
		},
	}
}
