// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/framekit/framekit/internal/app"
	"github.com/framekit/framekit/internal/config"
	"github.com/framekit/framekit/internal/logging"
	"github.com/framekit/framekit/internal/observability"
	"github.com/framekit/framekit/internal/transport"
	"github.com/framekit/framekit/internal/xdg"
	"github.com/framekit/framekit/pkg/errutil"
)

// Dial retry policy for the host boundary.
const (
	dialBaseBackoff = 500 * time.Millisecond
	dialMaxRetries  = 5
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the host and run the shell",
		Long: `Connect to the host boundary, run the plugin startup pipeline,
and keep state channels synchronized until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configFile
			if path == "" {
				path = defaultConfigPath()
			}
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runShell(cmd.Context(), cfg, nil)
		},
	}

	cmd.Flags().String("host-addr", "", "host boundary TCP address")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", "", "log format (json or text)")
	cmd.Flags().String("play-query", "", "query string carrying a playOptions parameter")
	cmd.Flags().Duration("preload-timeout", 0, "per-plugin preload timeout (0 = no timeout)")

	return cmd
}

// defaultConfigPath returns the XDG config file location if one exists,
// or "" so Load skips the file layer.
func defaultConfigPath() string {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// dialHost connects to the boundary relay with exponential backoff.
func dialHost(ctx context.Context, addr string) (net.Conn, error) {
	var conn net.Conn
	backoff := retry.WithMaxRetries(dialMaxRetries, retry.NewExponential(dialBaseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var d net.Dialer
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// runShell starts the shell over the configured boundary. If rw is
// non-nil it is used instead of dialing (tests).
func runShell(ctx context.Context, cfg config.Config, rw io.ReadWriteCloser) error {
	logging.SetDefault("framekit", version, cfg.LogFormat)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if rw == nil {
		conn, err := dialHost(ctx, cfg.HostAddr)
		if err != nil {
			errutil.LogError(logger, "host dial failed", err)
			return err
		}
		rw = conn
	}
	msgr := transport.NewConn(rw, logger)
	defer func() {
		if err := msgr.Close(); err != nil {
			errutil.LogError(logger, "transport close failed", err)
		}
	}()

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithRawQuery(cfg.PlayQuery),
		app.WithPreloadTimeout(cfg.PreloadTimeout),
	}

	var (
		obs   *observability.Server
		ready func() bool
	)
	if cfg.MetricsAddr != "" {
		// Readiness is resolved lazily: the shell does not exist yet.
		obs = observability.NewServer(cfg.MetricsAddr, func() bool {
			return ready != nil && ready()
		})
		opts = append(opts, app.WithMetrics(obs.Metrics()))
	}

	shell := app.New(msgr, cfg.Features, opts...)
	ready = shell.Ready
	if err := shell.Use(&baselinePlugin{}); err != nil {
		return err
	}

	if obs != nil {
		if _, err := obs.Start(); err != nil {
			errutil.LogError(logger, "observability server failed", err)
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := obs.Stop(shutdownCtx); err != nil {
				errutil.LogError(logger, "observability shutdown failed", err)
			}
		}()
	}

	if err := shell.Startup(ctx); err != nil {
		return err
	}
	if err := shell.SetFocus(true); err != nil {
		errutil.LogError(logger, "focus notification failed", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	if err := shell.SetFocus(false); err != nil {
		errutil.LogError(logger, "blur notification failed", err)
	}
	return nil
}
