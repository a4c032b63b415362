package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags adds the client flags to fs, usually a cobra command's
// persistent flag set.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP("config", "c", "", "path to a JSON config file")
	fs.StringP("network", "n", d.Network, "network mode: local or live")
	fs.String("local-host", d.LocalHost, "host of the local network")
	fs.Int("replica-port", d.ReplicaPort, "asset-store port on the local network")
	fs.Int("identity-port", d.IdentityPort, "identity-provider port on the local network")
	fs.String("canister", d.AssetCanisterID, "asset-store canister id")
	fs.String("live-endpoint", d.LiveEndpoint, "asset-store address on the live network")
	fs.String("live-root-key", d.LiveRootKey, "base64 ed25519 root key of the live network")
	fs.String("data-dir", d.DataDir, "directory for the local session database")
	fs.Duration("online-check-interval", d.OnlineCheckInterval, "how often to probe the asset store")
	fs.String("log-level", d.LogLevel, "debug, info, warn or error")
}

// applyFlags copies only the flags the user actually set, so JSON and env
// values are not clobbered by flag defaults.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}

	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}

	str("network", &cfg.Network)
	str("local-host", &cfg.LocalHost)
	num("replica-port", &cfg.ReplicaPort)
	num("identity-port", &cfg.IdentityPort)
	str("canister", &cfg.AssetCanisterID)
	str("live-endpoint", &cfg.LiveEndpoint)
	str("live-root-key", &cfg.LiveRootKey)
	str("data-dir", &cfg.DataDir)
	str("log-level", &cfg.LogLevel)
	if err == nil && fs.Changed("online-check-interval") {
		cfg.OnlineCheckInterval, err = fs.GetDuration("online-check-interval")
	}
	return err
}

func configPath(fs *pflag.FlagSet, env Env) string {
	if fs != nil {
		if p, err := fs.GetString("config"); err == nil && p != "" {
			return p
		}
	}
	if env != nil {
		return env.Getenv(EnvConfig)
	}
	return ""
}
