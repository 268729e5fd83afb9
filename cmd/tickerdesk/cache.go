package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/KOMKZ/tickerdesk/application"
	"github.com/KOMKZ/tickerdesk/artifact"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache <subcommand>",
		Short: "Inspect or purge stored artifacts",
	}
	cmd.AddCommand(newCacheStatCmd(c), newCachePurgeCmd(c))
	return cmd
}

// artifactArgs <key> <kind>
func artifactArgs(args []string) (string, artifact.Kind, error) {
	kind, err := artifact.ParseKind(args[1])
	if err != nil {
		return "", "", fmt.Errorf("kind must be one of %v", artifact.Kinds())
	}
	return args[0], kind, nil
}

func newCacheStatCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <key> <kind>",
		Short: "Print the header of a stored artifact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, kind, err := artifactArgs(args)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, app *application.App) error {
				store, err := app.Store()
				if err != nil {
					return err
				}
				meta, ok := store.Stat(ctx, key, kind)
				if !ok {
					return fmt.Errorf("%s (%s) not found", key, kind)
				}
				data, err := json.MarshalIndent(meta, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			})
		},
	}
}

func newCachePurgeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <key> <kind>",
		Short: "Delete a stored artifact so the next request recomputes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, kind, err := artifactArgs(args)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, app *application.App) error {
				store, err := app.Store()
				if err != nil {
					return err
				}
				if !store.Exists(ctx, key, kind) {
					return fmt.Errorf("%s (%s) not found", key, kind)
				}
				if err := store.Delete(ctx, key, kind); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %s (%s)\n", key, kind)
				return nil
			})
		},
	}
}
