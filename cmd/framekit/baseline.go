// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package main

import (
	"github.com/framekit/framekit/internal/plugin"
)

// baselinePlugin attaches a logging listener to every channel the shell's
// feature set obligates, so a bare reference shell satisfies the
// listener-completeness check and host state changes stay visible.
type baselinePlugin struct{}

func (*baselinePlugin) Name() string    { return "baseline" }
func (*baselinePlugin) Version() string { return "1.0.0" }
func (*baselinePlugin) Priority() int   { return 0 }

func (*baselinePlugin) Init(host plugin.Host) error {
	ch := host.Channels()
	logger := host.Logger()
	flags := host.Features()

	ch.Pause.On(func(paused bool) {
		logger.Info("pause state changed", "paused", paused)
	})
	if flags.Captions {
		ch.CaptionsMuted.On(func(muted bool) {
			logger.Info("captions mute changed", "muted", muted)
		})
	}

	volume := func(name string, v float64) {
		logger.Info("volume changed", "channel", name, "volume", v)
	}
	if flags.Sound {
		ch.SoundVolume.On(func(v float64) { volume("soundVolume", v) })
	}
	if flags.Music {
		ch.MusicVolume.On(func(v float64) { volume("musicVolume", v) })
	}
	if flags.VO {
		ch.VOVolume.On(func(v float64) { volume("voVolume", v) })
	}
	if flags.SFX {
		ch.SFXVolume.On(func(v float64) { volume("sfxVolume", v) })
	}
	return nil
}
