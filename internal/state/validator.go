// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package state

import (
	"strings"

	"github.com/samber/oops"
)

// ValidateListeners checks that every state channel obligated by the
// feature set has at least one listener. It runs once, after plugin init
// and start, because plugins attach their listeners in those phases.
//
// Every missing channel is collected before failing, so an integrator can
// fix all of them in one pass.
func ValidateListeners(flags FeatureFlags, ch *Channels) error {
	flags = flags.Normalized()

	obligations := []struct {
		name    string
		enabled bool
		has     bool
	}{
		{ChannelPause, true, ch.Pause.HasListeners()},
		{ChannelCaptionsMuted, flags.Captions, ch.CaptionsMuted.HasListeners()},
		{ChannelSoundVolume, flags.Sound, ch.SoundVolume.HasListeners()},
		{ChannelMusicVolume, flags.Music, ch.MusicVolume.HasListeners()},
		{ChannelVOVolume, flags.VO, ch.VOVolume.HasListeners()},
		{ChannelSFXVolume, flags.SFX, ch.SFXVolume.HasListeners()},
	}

	var missing []string
	for _, o := range obligations {
		if o.enabled && !o.has {
			missing = append(missing, o.name)
		}
	}

	if len(missing) > 0 {
		return oops.Code("STARTUP_MISSING_LISTENERS").
			With("channels", missing).
			Errorf("no listeners attached for required state channels: %s",
				strings.Join(missing, ", "))
	}
	return nil
}
