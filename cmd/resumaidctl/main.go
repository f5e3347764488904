// Command resumaidctl inspects and maintains one owner's stored resumes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resumaid/internal/bootstrap"
	"resumaid/internal/shared/config"
	"resumaid/internal/shared/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, release := newRootCmd(func(ctx context.Context) (*bootstrap.App, func(), error) {
		cfg := config.Load()
		telemetry.Configure(cfg.LogLevel, cfg.LogFormat, os.Stderr)
		app, err := bootstrap.Build(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return app, func() { _ = app.Close() }, nil
	})
	err := root.ExecuteContext(ctx)
	release()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
