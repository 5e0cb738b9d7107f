// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package state

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"

	"github.com/samber/oops"

	"github.com/framekit/framekit/internal/observability"
	"github.com/framekit/framekit/internal/property"
	"github.com/framekit/framekit/internal/transport"
)

// HintPlayer plays the application's hint sequence on host request.
type HintPlayer interface {
	Play()
}

// unmutedDefault is the volume restored when a legacy unmute arrives
// before any volume was ever recorded for the channel.
const unmutedDefault = 1.0

// Bridge keeps the state channels synchronized with the host process. It
// translates both the typed protocol (continuous volumes, booleans) and
// the legacy boolean-mute protocol onto the same channels.
type Bridge struct {
	msgr    transport.Messenger
	ch      *Channels
	flags   FeatureFlags
	hints   HintPlayer
	logger  *slog.Logger
	metrics *observability.Metrics

	mu            sync.Mutex
	optsFromQuery bool
}

// BridgeOption configures the Bridge.
type BridgeOption func(*Bridge)

// WithHintPlayer sets the hint player invoked on playHelp events.
func WithHintPlayer(hp HintPlayer) BridgeOption {
	return func(b *Bridge) { b.hints = hp }
}

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) { b.logger = logger }
}

// WithMetrics enables inbound event counting.
func WithMetrics(m *observability.Metrics) BridgeOption {
	return func(b *Bridge) { b.metrics = m }
}

// NewBridge creates a bridge over a connected messenger. Call Announce and
// Bind during startup, before plugins run.
func NewBridge(msgr transport.Messenger, ch *Channels, flags FeatureFlags, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		msgr:   msgr,
		ch:     ch,
		flags:  flags.Normalized(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Announce informs the host of the application's feature set and its
// focus-handling preference.
func (b *Bridge) Announce() error {
	if err := b.msgr.Send("features", b.flags.Map()); err != nil {
		return oops.Code("BRIDGE_ANNOUNCE_FAILED").With("event", "features").Wrap(err)
	}
	// The shell never asks the host to hold focus.
	if err := b.msgr.Send("keepFocus", false); err != nil {
		return oops.Code("BRIDGE_ANNOUNCE_FAILED").With("event", "keepFocus").Wrap(err)
	}
	return nil
}

// Bind subscribes the inbound host events to their state channels.
func (b *Bridge) Bind() {
	b.onVolume(ChannelSoundVolume, b.ch.SoundVolume)
	b.onVolume(ChannelMusicVolume, b.ch.MusicVolume)
	b.onVolume(ChannelVOVolume, b.ch.VOVolume)
	b.onVolume(ChannelSFXVolume, b.ch.SFXVolume)

	b.onBool(ChannelCaptionsMuted, b.ch.CaptionsMuted)
	b.onBool(ChannelPause, b.ch.Pause)

	b.onLegacyMute("soundMuted", b.ch.SoundVolume)
	b.onLegacyMute("musicMuted", b.ch.MusicVolume)
	b.onLegacyMute("voMuted", b.ch.VOVolume)
	b.onLegacyMute("sfxMuted", b.ch.SFXVolume)

	b.msgr.On("playHelp", func(msg transport.Message) {
		b.record(msg.Event)
		if b.hints == nil {
			b.logger.Warn("playHelp received but no hint player configured")
			return
		}
		b.hints.Play()
	})
}

// LoadPlayOptions resolves the playOptions channel from both supported
// sources. The query-string parameter is decoded synchronously; a decode
// failure logs a warning and leaves the channel at its default. A one-shot
// host fetch is issued as well, for hosts without query-string support; its
// reply is applied only if the query string did not already succeed, and it
// may arrive after startup completes.
func (b *Bridge) LoadPlayOptions(ctx context.Context, rawQuery string) {
	if raw := b.queryParam(rawQuery, ChannelPlayOptions); raw != "" {
		var opts map[string]any
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			b.logger.Warn("ignoring malformed playOptions query parameter", "error", err)
		} else {
			b.ch.PlayOptions.Set(opts)
			b.mu.Lock()
			b.optsFromQuery = true
			b.mu.Unlock()
		}
	}

	err := b.msgr.Fetch(ctx, ChannelPlayOptions, func(msg transport.Message) {
		b.record(msg.Event)
		b.mu.Lock()
		queryWon := b.optsFromQuery
		b.mu.Unlock()
		if queryWon {
			return
		}

		var opts map[string]any
		if err := json.Unmarshal(msg.Data, &opts); err != nil {
			b.logger.Warn("ignoring malformed playOptions fetch reply", "error", err)
			return
		}
		b.ch.PlayOptions.Set(opts)
	})
	if err != nil {
		b.logger.Warn("playOptions fetch failed", "error", err)
	}
}

// SetFocus forwards a window focus transition to the host. One-way: the
// host is informed but never drives focus back.
func (b *Bridge) SetFocus(focused bool) error {
	if err := b.msgr.Send("focus", focused); err != nil {
		return oops.Code("BRIDGE_FOCUS_FAILED").Wrap(err)
	}
	return nil
}

// NotifyLoaded signals startup completion to the host.
func (b *Bridge) NotifyLoaded() error {
	if err := b.msgr.Send("loaded", nil); err != nil {
		return oops.Code("BRIDGE_LOADED_FAILED").Wrap(err)
	}
	return nil
}

func (b *Bridge) onVolume(event string, prop *property.Property[float64]) {
	b.msgr.On(event, func(msg transport.Message) {
		b.record(msg.Event)
		var v float64
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			b.logger.Warn("ignoring malformed volume event", "event", event, "error", err)
			return
		}
		prop.Set(v)
	})
}

func (b *Bridge) onBool(event string, prop *property.Property[bool]) {
	b.msgr.On(event, func(msg transport.Message) {
		b.record(msg.Event)
		var v bool
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			b.logger.Warn("ignoring malformed boolean event", "event", event, "error", err)
			return
		}
		prop.Set(v)
	})
}

// onLegacyMute maps a boolean mute event onto a continuous volume channel.
// Muting captures the current value as the channel's previous value and
// drops the volume to 0; unmuting restores the captured value. Only the
// last value seen before a mute is restored; there is no mute stack.
func (b *Bridge) onLegacyMute(event string, prop *property.Property[float64]) {
	b.msgr.On(event, func(msg transport.Message) {
		b.record(msg.Event)
		var muted bool
		if err := json.Unmarshal(msg.Data, &muted); err != nil {
			b.logger.Warn("ignoring malformed mute event", "event", event, "error", err)
			return
		}

		if muted {
			prop.Set(0)
			return
		}
		prev, ok := prop.Previous()
		if !ok {
			prev = unmutedDefault
		}
		prop.Set(prev)
	})
}

func (b *Bridge) queryParam(rawQuery, name string) string {
	if rawQuery == "" {
		return ""
	}
	vals, err := url.ParseQuery(rawQuery)
	if err != nil {
		b.logger.Warn("ignoring malformed query string", "error", err)
		return ""
	}
	return vals.Get(name)
}

func (b *Bridge) record(event string) {
	if b.metrics != nil {
		b.metrics.InboundEventsTotal.WithLabelValues(event).Inc()
	}
}
