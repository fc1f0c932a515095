package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/flowsim/api"
	"github.com/dshills/flowsim/graph"
	"github.com/dshills/flowsim/graph/store"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	st, err := store.Open(ctx, c.cfg.Store.Driver, c.cfg.Store.DSN)
	if err != nil {
		return WrapError(ExitUsage, "failed to open store", err)
	}
	defer st.Close()

	cat, err := c.newCatalog()
	if err != nil {
		return err
	}
	opts, shutdownTracing, err := c.runnerOptions(nil, nil)
	if err != nil {
		return err
	}
	opts = append(opts, graph.WithMetrics(graph.NewPrometheusMetrics(nil)))

	srv, err := api.New(api.Config{
		Store:         st,
		Catalog:       cat,
		RunnerOptions: opts,
		Logger:        c.logger,
	})
	if err != nil {
		return WrapError(ExitUsage, "failed to build server", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(c.cfg.Server.Addr) }()
	c.logger.Info("listening", "addr", c.cfg.Server.Addr, "store", c.cfg.Store.Driver)

	select {
	case err := <-errCh:
		return WrapError(ExitFailure, "server stopped", err)
	case <-ctx.Done():
	}

	c.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = errors.Join(srv.Shutdown(shutdownCtx), shutdownTracing(shutdownCtx))
	if err != nil {
		return WrapError(ExitFailure, "shutdown failed", err)
	}
	return nil
}
