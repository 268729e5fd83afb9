package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/KOMKZ/tickerdesk/application"
	"github.com/KOMKZ/tickerdesk/config"
)

// version set with -ldflags "-X main.version=..."
var version = "dev"

type cli struct {
	out       io.Writer
	configDir string
	env       string

	// extra application options, used by tests to swap the upstreams
	appOptions []application.Option
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "tickerdesk",
		Short:         "Cached NSE and Yahoo market reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if c.env != "" {
				return os.Setenv(config.EnvPrefix+"_ENV", c.env)
			}
			return nil
		},
	}
	root.SetOut(c.out)
	root.PersistentFlags().StringVarP(&c.configDir, "config-dir", "c", "configs", "directory holding config.yaml and <env>.yaml")
	root.PersistentFlags().StringVar(&c.env, "env", "", "environment overlay to load (default $TICKERDESK_ENV or dev)")

	root.AddCommand(
		newServeCmd(c),
		newRenderCmd(c),
		newWarmCmd(c),
		newReportsCmd(c),
		newCacheCmd(c),
		newVersionCmd(c),
	)
	return root
}

// setup builds the application; one-shot commands log warnings and up only
func (c *cli) setup(cmd *cobra.Command, bindings map[string]string, quiet bool) (*application.App, error) {
	opts := []application.Option{
		application.WithConfigPath(c.configDir),
		application.WithFlags(cmd.Flags(), bindings),
		application.WithVersion(version),
	}
	if quiet {
		opts = append(opts, application.WithDefaults(map[string]any{
			"logger": map[string]any{"level": "warn"},
		}))
	}
	app := application.New(append(opts, c.appOptions...)...)
	if err := app.Setup(); err != nil {
		return nil, err
	}
	return app, nil
}

// run one-shot command body with the application shut down afterwards
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, app *application.App) error) error {
	app, err := c.setup(cmd, nil, true)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() { _ = app.Shutdown(context.Background()) }()
	return fn(ctx, app)
}
