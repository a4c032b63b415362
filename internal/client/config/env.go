package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Env abstracts environment lookup for tests.
type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// OSEnv reads the process environment.
var OSEnv Env = osEnv{}

const (
	EnvBackend   = "BACKEND"
	EnvConfig    = "CARVAULT_CONFIG"
	EnvDataDir   = "CARVAULT_DATA_DIR"
	EnvCanister  = "CARVAULT_ASSET_CANISTER_ID"
	EnvRootKey   = "CARVAULT_LIVE_ROOT_KEY"
	EnvLogLevel  = "CARVAULT_LOG_LEVEL"
	EnvLocalHost = "CARVAULT_LOCAL_HOST"
	EnvReplica   = "CARVAULT_REPLICA_PORT"
	EnvIdentity  = "CARVAULT_IDENTITY_PORT"
	EnvInterval  = "CARVAULT_ONLINE_CHECK_INTERVAL"
)

func parseEnv(cfg *Config, env Env) error {
	if env == nil {
		return nil
	}

	if v := env.Getenv(EnvBackend); v != "" {
		cfg.Network = v
	}
	if v := env.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := env.Getenv(EnvCanister); v != "" {
		cfg.AssetCanisterID = v
	}
	if v := env.Getenv(EnvRootKey); v != "" {
		cfg.LiveRootKey = v
	}
	if v := env.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := env.Getenv(EnvLocalHost); v != "" {
		cfg.LocalHost = v
	}
	if v := env.Getenv(EnvReplica); v != "" {
		p, err := parsePort(EnvReplica, v)
		if err != nil {
			return err
		}
		cfg.ReplicaPort = p
	}
	if v := env.Getenv(EnvIdentity); v != "" {
		p, err := parsePort(EnvIdentity, v)
		if err != nil {
			return err
		}
		cfg.IdentityPort = p
	}
	if v := env.Getenv(EnvInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s", EnvInterval)
		}
		cfg.OnlineCheckInterval = d
	}
	return nil
}

func parsePort(name, raw string) (int, error) {
	p, err := strconv.Atoi(raw)
	if err != nil || p <= 0 || p > 65535 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return p, nil
}
