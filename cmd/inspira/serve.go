package main

import (
	"github.com/spf13/cobra"

	"github.com/jsamuelsen/inspira/internal/adapters/http/handlers"
	"github.com/jsamuelsen/inspira/internal/bootstrap"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the quote API over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.Serve(cmd.Context(), c.rt, bootstrap.ServeOptions{
				BuildInfo: handlers.NewBuildInfo(Version, Commit, BuildTime),
			})
		},
	}
}
