package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/giobyte8/picturefill/internal/services"
)

func (c *CLI) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [targets...]",
		Short: "Resize the images of the given targets, or of every target",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			taskFile, coordinator, err := c.prepare()
			if err != nil {
				return err
			}

			results, err := coordinator.RunTargets(cmd.Context(), taskFile, args)
			printResults(cmd.OutOrStdout(), results)
			return err
		},
	}
}

func printResults(w io.Writer, results []*services.RunResult) {
	for _, res := range results {
		_, _ = fmt.Fprintf(
			w,
			"%s: %d/%d variants written (%d kept at native size) in %s\n",
			res.Target,
			res.Completed,
			res.Expected,
			res.Fallbacks,
			res.Duration.Round(time.Millisecond),
		)
	}
}
