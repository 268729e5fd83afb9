package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/KOMKZ/tickerdesk/application"
	"github.com/KOMKZ/tickerdesk/cache"
	"github.com/KOMKZ/tickerdesk/flagx"
	"github.com/KOMKZ/tickerdesk/report"
	"github.com/KOMKZ/tickerdesk/table"
)

func newRenderCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <mode> <type>",
		Short: "Render one report to stdout through the cache",
		Example: `  tickerdesk render daily history -s INFY --from 01-03-2024 --to 28-03-2024
  tickerdesk render index live -i "NIFTY BANK" -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q report.Query
			if err := flagx.Parse(cmd.Flags(), &q); err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, app *application.App) error {
				svc, err := app.Service()
				if err != nil {
					return err
				}
				out, err := svc.Render(ctx, args[0], args[1], q)
				if err != nil {
					return err
				}
				if out.Failed() {
					return fmt.Errorf("%s: %s", out.Report.Name(), cache.UserMessage(out.Err))
				}
				return writeOutput(cmd, out)
			})
		},
	}
	if err := flagx.Bind(cmd.Flags(), &report.Query{}); err != nil {
		panic(err)
	}
	return cmd
}

func writeOutput(cmd *cobra.Command, out *report.Output) error {
	source := "fetched"
	if out.FromCache {
		source = "cached"
	}
	cmd.PrintErrf("%s %s (%s)\n", out.Key, source, out.CreatedAt.Format("2006-01-02 15:04:05"))

	switch v := out.Value.(type) {
	case string:
		_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(v, "\n"))
		return err
	case *table.Frame:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	default:
		return report.ErrRender.WithMsgf("unexpected %s payload", out.Kind)
	}
}
