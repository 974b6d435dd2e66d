package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/terrascope/authcore/httpapi"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *cliOptions) error {
	cfg := opts.cfg
	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if h := rt.engine.Health(ctx); !h.Healthy() {
		rt.log.Warn(ctx, "backend not reachable at startup", "redis_error", h.RedisErr, "store_error", h.StoreErr)
	}

	app := httpapi.NewApp(rt.engine, httpapi.Options{
		Logger:        rt.log,
		ExposeMetrics: cfg.Server.Metrics,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
	})

	rt.log.Info(ctx, "server_starting", "address", cfg.Server.Addr, "production", cfg.Auth.Production)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	rt.log.Info(context.Background(), "shutting down server", "timeout", cfg.Server.ShutdownTimeout.String())
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			rt.log.Warn(context.Background(), "forced shutdown timeout reached")
			return nil
		}
		return err
	}
	return <-errCh
}
