package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Gurpartap/horizons/internal/app"
)

func (c *cli) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.HTTP.Addr = addr
			}
			rt, err := c.runtime(cmd)
			if err != nil {
				return err
			}
			application, err := app.New(c.cfg.HTTP, rt, c.logger)
			if err != nil {
				return fmt.Errorf("new app: %w", err)
			}

			serverErrCh := make(chan error, 1)
			go func() {
				serverErrCh <- application.Start()
			}()

			select {
			case err := <-serverErrCh:
				return err
			case <-cmd.Context().Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), c.cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := application.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}
			return <-serverErrCh
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
