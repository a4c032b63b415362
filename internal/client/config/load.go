package config

import (
	"github.com/spf13/pflag"
)

// Load builds a Config from defaults, the JSON file, env and changed flags,
// in that order, then validates it. fs and env may be nil.
func Load(fs *pflag.FlagSet, env Env) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, configPath(fs, env)); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, env); err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, fs); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Network, _ = cfg.Mode()
	return cfg, nil
}
