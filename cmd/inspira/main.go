// Package main is the inspira command line client.
// It drives the same quote session as the HTTP service against the
// configured store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/inspira/internal/bootstrap"
	"github.com/jsamuelsen/inspira/internal/platform/logging"
)

// Build-time variables, injected via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(context.Background(), defaultOpener, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run executes one command line and closes whatever runtime it opened,
// including when the command fails.
func run(ctx context.Context, open opener, args []string, out io.Writer) error {
	c := &cli{open: open}

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)

	err := root.ExecuteContext(ctx)

	if c.rt != nil {
		err = errors.Join(err, c.rt.Close(ctx))
	}

	return err
}

// opener produces a runtime for the selected profile.
type opener func(ctx context.Context, profile string) (*bootstrap.Runtime, error)

func defaultOpener(ctx context.Context, profile string) (*bootstrap.Runtime, error) {
	cfg, err := bootstrap.LoadConfig(profile)
	if err != nil {
		return nil, err
	}

	logger, closeLog := bootstrap.NewLogger(cfg)
	logging.SetDefault(logger)

	rt, err := bootstrap.Open(ctx, cfg, logger, bootstrap.Options{OnClose: closeLog})
	if err != nil {
		return nil, errors.Join(err, closeLog())
	}

	return rt, nil
}

// cli carries the runtime opened for the running command.
type cli struct {
	open    opener
	profile string
	rt      *bootstrap.Runtime
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inspira",
		Short:         "Inspira - a notebook for quotes worth keeping",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.open(cmd.Context(), c.profile)
			if err != nil {
				return err
			}

			c.rt = rt

			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.profile, "profile", "p", envOr("APP_ENVIRONMENT", "local"),
		"config profile loaded from configs/<profile>.yaml")

	root.AddCommand(
		c.listCmd(),
		c.newCmd(),
		c.showCmd(),
		c.editCmd(),
		c.deleteCmd(),
		c.serveCmd(),
	)

	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
