package main

import (
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (and the warmup schedule when enabled)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.setup(cmd, map[string]string{
				"port":   "server.port",
				"mode":   "server.mode",
				"warmup": "warmup.enabled",
			}, false)
			if err != nil {
				return err
			}
			return app.Run()
		},
	}
	cmd.Flags().IntP("port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().String("mode", "", "gin mode: debug, release or test")
	cmd.Flags().Bool("warmup", false, "enable the warmup schedule")
	return cmd
}
