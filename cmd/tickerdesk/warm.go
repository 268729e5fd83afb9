package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/KOMKZ/tickerdesk/application"
	"github.com/KOMKZ/tickerdesk/warmup"
)

func newWarmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Render every configured warmup job once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, app *application.App) error {
				w, err := app.Warmer()
				if err != nil {
					return err
				}
				if len(w.Jobs()) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no warmup jobs configured")
					return nil
				}

				results := w.RunAll(ctx)
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "JOB\tSTATUS\tKEY\tTOOK\tERROR")
				failed := 0
				for _, r := range results {
					status := "fetched"
					switch {
					case r.Failed():
						status = "FAILED"
						failed++
					case r.FromCache:
						status = "cached"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, status, r.Key, r.Duration.Round(time.Millisecond), r.Err)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if failed > 0 {
					return warmup.ErrJobsFailed.WithMsgf("%d of %d warmup jobs failed", failed, len(results))
				}
				return nil
			})
		},
	}
}
