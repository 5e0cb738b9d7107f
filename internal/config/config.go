// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

// Package config loads shell configuration from a YAML file with
// command-line flag overrides.
package config

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/framekit/framekit/internal/state"
)

// Config holds the shell's runtime configuration.
type Config struct {
	// HostAddr is the TCP address of the host boundary relay.
	HostAddr string `koanf:"host-addr"`

	// MetricsAddr is the metrics/health HTTP address; empty disables it.
	MetricsAddr string `koanf:"metrics-addr"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`

	// PlayQuery is the query string searched for a playOptions parameter.
	PlayQuery string `koanf:"play-query"`

	// PreloadTimeout bounds each plugin preload; zero waits forever.
	PreloadTimeout time.Duration `koanf:"preload-timeout"`

	// Features declares the application's capabilities.
	Features state.FeatureFlags `koanf:"features"`
}

// Default returns the configuration used when neither file nor flags
// override a value.
func Default() Config {
	return Config{
		MetricsAddr: "127.0.0.1:9100",
		LogFormat:   "json",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.HostAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("host-addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.PreloadTimeout < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("preload-timeout cannot be negative")
	}
	return nil
}

// Load reads configuration in precedence order: defaults, then the YAML
// file at path (if non-empty), then any changed flags.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}
	if flags != nil {
		// Only explicitly set flags participate; flag defaults must not
		// clobber file values or Default().
		p := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return f.Name, posflag.FlagVal(flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return Config{}, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return cfg, nil
}
