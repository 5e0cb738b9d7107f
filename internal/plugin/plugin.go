// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

// Package plugin provides plugin registration and lifecycle control for
// the application shell.
//
// A plugin contributes up to three optional lifecycle hooks, declared by
// implementing the matching capability interface: Preloader, Initializer,
// Starter. The Runner drives them in phases: preload runs concurrently
// with per-plugin failure isolation, then init and start run sequentially
// in registry order.
package plugin

import (
	"context"
	"log/slog"

	"github.com/framekit/framekit/internal/state"
	"github.com/framekit/framekit/internal/transport"
)

// Host is the application surface exposed to plugin hooks.
type Host interface {
	// Channels returns the shared observable state channels. Plugins
	// attach their listeners here during init or start.
	Channels() *state.Channels

	// Features returns the application's normalized feature flags.
	Features() state.FeatureFlags

	// Messenger returns the host-boundary message channel.
	Messenger() transport.Messenger

	// Logger returns the application logger.
	Logger() *slog.Logger
}

// Plugin identifies a registered unit of optional functionality.
type Plugin interface {
	// Name is unique within a registry and used for lookup.
	Name() string

	// Version is a semver string.
	Version() string

	// Priority orders lifecycle execution: lower runs first.
	Priority() int
}

// Preloader is implemented by plugins that load assets before init. A
// preload failure is isolated: it drops only the failing plugin.
type Preloader interface {
	Preload(ctx context.Context, host Host) error
}

// Initializer is implemented by plugins that set up state after every
// preload has settled. An init failure aborts startup.
type Initializer interface {
	Init(host Host) error
}

// Starter is implemented by plugins that begin active work after all
// plugins are initialized. A start failure aborts startup.
type Starter interface {
	Start(host Host) error
}
