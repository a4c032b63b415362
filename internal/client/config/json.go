package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/carvault/internal/timex"
)

// JsonConfig is the on-disk shape. Pointers distinguish "absent" from
// zero so a partial file only overrides what it names.
type JsonConfig struct {
	Network             *string         `json:"network"`
	LocalHost           *string         `json:"local_host"`
	ReplicaPort         *int            `json:"replica_port"`
	IdentityPort        *int            `json:"identity_port"`
	IdentityProviderID  *string         `json:"identity_provider_id"`
	AssetCanisterID     *string         `json:"asset_canister_id"`
	LiveEndpoint        *string         `json:"live_endpoint"`
	LiveRootKey         *string         `json:"live_root_key"`
	DataDir             *string         `json:"data_dir"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	MaxUploadSize       *int64          `json:"max_upload_size"`
	LogLevel            *string         `json:"log_level"`
}

func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.Network, jc.Network)
	setString(&cfg.LocalHost, jc.LocalHost)
	setString(&cfg.IdentityProviderID, jc.IdentityProviderID)
	setString(&cfg.AssetCanisterID, jc.AssetCanisterID)
	setString(&cfg.LiveEndpoint, jc.LiveEndpoint)
	setString(&cfg.LiveRootKey, jc.LiveRootKey)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.ReplicaPort != nil {
		cfg.ReplicaPort = *jc.ReplicaPort
	}
	if jc.IdentityPort != nil {
		cfg.IdentityPort = *jc.IdentityPort
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.MaxUploadSize != nil {
		cfg.MaxUploadSize = *jc.MaxUploadSize
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
