// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package state

import "github.com/framekit/framekit/internal/property"

// State channel names. The set is closed; channels are created once per
// application and never re-created.
const (
	ChannelReady         = "ready"
	ChannelPause         = "pause"
	ChannelCaptionsMuted = "captionsMuted"
	ChannelPlayOptions   = "playOptions"
	ChannelSoundVolume   = "soundVolume"
	ChannelMusicVolume   = "musicVolume"
	ChannelVOVolume      = "voVolume"
	ChannelSFXVolume     = "sfxVolume"
)

// Channels is the fixed map of observable state channels shared by the
// application, its plugins and the host bridge.
type Channels struct {
	Ready         *property.Property[bool]
	Pause         *property.Property[bool]
	CaptionsMuted *property.Property[bool]
	PlayOptions   *property.Property[map[string]any]
	SoundVolume   *property.Property[float64]
	MusicVolume   *property.Property[float64]
	VOVolume      *property.Property[float64]
	SFXVolume     *property.Property[float64]
}

// NewChannels creates the channel set with its startup defaults: captions
// muted, every volume at full, no play options.
func NewChannels() *Channels {
	return &Channels{
		Ready:         property.New(false),
		Pause:         property.New(false),
		CaptionsMuted: property.New(true),
		PlayOptions:   property.New(map[string]any{}),
		SoundVolume:   property.New(1.0),
		MusicVolume:   property.New(1.0),
		VOVolume:      property.New(1.0),
		SFXVolume:     property.New(1.0),
	}
}

// Volume returns the volume channel with the given name.
func (c *Channels) Volume(name string) (*property.Property[float64], bool) {
	switch name {
	case ChannelSoundVolume:
		return c.SoundVolume, true
	case ChannelMusicVolume:
		return c.MusicVolume, true
	case ChannelVOVolume:
		return c.VOVolume, true
	case ChannelSFXVolume:
		return c.SFXVolume, true
	}
	return nil, false
}
