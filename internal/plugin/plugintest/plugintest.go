// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

// Package plugintest provides a fake plugin Host for tests.
package plugintest

import (
	"io"
	"log/slog"

	"github.com/framekit/framekit/internal/state"
	"github.com/framekit/framekit/internal/transport"
)

// Host is a plugin.Host backed by fresh in-memory channels.
type Host struct {
	Ch    *state.Channels
	Flags state.FeatureFlags
	Msgr  transport.Messenger
	Log   *slog.Logger
}

// NewHost creates a Host with default channels and a discarding logger.
func NewHost() *Host {
	return &Host{
		Ch:  state.NewChannels(),
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (h *Host) Channels() *state.Channels      { return h.Ch }
func (h *Host) Features() state.FeatureFlags   { return h.Flags.Normalized() }
func (h *Host) Messenger() transport.Messenger { return h.Msgr }
func (h *Host) Logger() *slog.Logger           { return h.Log }
