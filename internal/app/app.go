// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

// Package app wires the application shell together: it owns the state
// channels and the plugin registry, runs the startup sequence, and is the
// Host surface plugins see.
package app

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/framekit/framekit/internal/observability"
	"github.com/framekit/framekit/internal/plugin"
	"github.com/framekit/framekit/internal/state"
	"github.com/framekit/framekit/internal/transport"
	"github.com/framekit/framekit/pkg/errutil"
)

// Application is the composition root. Construct it with New, register
// plugins with Use, then call Startup exactly once.
type Application struct {
	msgr     transport.Messenger
	flags    state.FeatureFlags
	channels *state.Channels
	registry *plugin.Registry
	bridge   *state.Bridge
	logger   *slog.Logger
	metrics  *observability.Metrics

	hints          state.HintPlayer
	rawQuery       string
	preloadTimeout time.Duration

	started atomic.Bool
}

// Option configures the Application.
type Option func(*Application)

// WithHintPlayer sets the hint player invoked on playHelp events.
func WithHintPlayer(hp state.HintPlayer) Option {
	return func(a *Application) { a.hints = hp }
}

// WithLogger sets the application logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.logger = logger }
}

// WithRawQuery supplies the query string searched for play options.
func WithRawQuery(rawQuery string) Option {
	return func(a *Application) { a.rawQuery = rawQuery }
}

// WithPreloadTimeout bounds each plugin's preload hook.
func WithPreloadTimeout(d time.Duration) Option {
	return func(a *Application) { a.preloadTimeout = d }
}

// WithMetrics enables startup and inbound-event metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Application) { a.metrics = m }
}

// New creates the application over a messenger. The state channels exist
// from this point on and are never re-created.
func New(msgr transport.Messenger, flags state.FeatureFlags, opts ...Option) *Application {
	a := &Application{
		msgr:     msgr,
		flags:    flags.Normalized(),
		channels: state.NewChannels(),
		registry: plugin.NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.bridge = state.NewBridge(msgr, a.channels, a.flags,
		state.WithHintPlayer(a.hints),
		state.WithLogger(a.logger),
		state.WithMetrics(a.metrics),
	)
	return a
}

// Use registers a plugin. Call before Startup.
func (a *Application) Use(p plugin.Plugin) error {
	return a.registry.Use(p)
}

// Channels returns the shared observable state channels.
func (a *Application) Channels() *state.Channels { return a.channels }

// Features returns the normalized feature flags.
func (a *Application) Features() state.FeatureFlags { return a.flags }

// Messenger returns the host-boundary message channel.
func (a *Application) Messenger() transport.Messenger { return a.msgr }

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Registry returns the plugin registry.
func (a *Application) Registry() *plugin.Registry { return a.registry }

// Ready reports whether startup has completed.
func (a *Application) Ready() bool { return a.channels.Ready.Get() }

// SetFocus forwards a window focus transition to the host.
func (a *Application) SetFocus(focused bool) error { return a.bridge.SetFocus(focused) }

// Startup runs the startup sequence: connect, announce the feature set,
// bind inbound events, resolve play options, drive the plugin lifecycle,
// validate listener completeness, then declare readiness to the host.
// Fatal errors are logged and returned; Startup runs at most once.
func (a *Application) Startup(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return oops.Code("STARTUP_REPEATED").Errorf("startup already run")
	}

	if err := a.msgr.Connect(ctx); err != nil {
		return a.fatal("transport connect failed", err)
	}
	if err := a.bridge.Announce(); err != nil {
		return a.fatal("feature announcement failed", err)
	}
	a.bridge.Bind()
	a.bridge.LoadPlayOptions(ctx, a.rawQuery)

	runner := plugin.NewRunner(a.registry, a,
		plugin.WithLogger(a.logger),
		plugin.WithMetrics(a.metrics),
		plugin.WithPreloadTimeout(a.preloadTimeout),
	)
	if err := runner.Run(ctx); err != nil {
		return a.fatal("plugin lifecycle failed", err)
	}

	if err := state.ValidateListeners(a.flags, a.channels); err != nil {
		return a.fatal("listener completeness check failed", err)
	}

	a.channels.Ready.Set(true)
	if err := a.bridge.NotifyLoaded(); err != nil {
		return a.fatal("loaded notification failed", err)
	}

	a.logger.Info("startup complete", "plugins", a.registry.Len())
	return nil
}

func (a *Application) fatal(msg string, err error) error {
	errutil.LogError(a.logger, msg, err)
	return err
}
