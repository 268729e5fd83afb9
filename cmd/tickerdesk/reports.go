package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KOMKZ/tickerdesk/application"
)

func newReportsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "List the available reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(_ context.Context, app *application.App) error {
				svc, err := app.Service()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "REPORT\tPARAMS\tCACHE\tDESCRIPTION")
				for _, d := range svc.Registry().List() {
					info := d.Info()
					fmt.Fprintf(tw, "%s/%s\t%s\t%s\t%s\n", info.Mode, info.Type,
						strings.Join(info.Params, ","), info.Policy, info.Description)
				}
				return tw.Flush()
			})
		},
	}
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tickerdesk", version)
		},
	}
}
