// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

// Package state holds the application's observable state channels and the
// bridge that keeps them synchronized with the host process.
package state

// FeatureFlags declares which capabilities the application supports. Each
// enabled capability obligates the application to attach at least one
// listener to the matching state channel before startup completes.
type FeatureFlags struct {
	Captions bool `koanf:"captions"`
	Sound    bool `koanf:"sound"`
	VO       bool `koanf:"vo"`
	Music    bool `koanf:"music"`
	SFX      bool `koanf:"sfx"`

	// Volume flags advertise continuous-volume support to the host.
	// They carry no listener obligation of their own.
	SoundVolume bool `koanf:"sound-volume"`
	MusicVolume bool `koanf:"music-volume"`
	VOVolume    bool `koanf:"vo-volume"`
	SFXVolume   bool `koanf:"sfx-volume"`
}

// Normalized returns a copy with the derived invariant applied: any of
// VO, Music or SFX implies Sound.
func (f FeatureFlags) Normalized() FeatureFlags {
	if f.VO || f.Music || f.SFX {
		f.Sound = true
	}
	return f
}

// Map returns the flag set as the mapping announced to the host.
func (f FeatureFlags) Map() map[string]bool {
	return map[string]bool{
		"captions":    f.Captions,
		"sound":       f.Sound,
		"vo":          f.VO,
		"music":       f.Music,
		"sfx":         f.SFX,
		"soundVolume": f.SoundVolume,
		"musicVolume": f.MusicVolume,
		"voVolume":    f.VOVolume,
		"sfxVolume":   f.SFXVolume,
	}
}
