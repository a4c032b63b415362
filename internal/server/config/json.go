package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/carvault/internal/flagx"
	"github.com/dmitrijs2005/carvault/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Pointer fields tell an absent
// key from a zero value, so only the keys present override defaults.
type JsonConfig struct {
	EndpointAddrGRPC    *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP    *string         `json:"endpoint_addr_http"`
	DatabaseDSN         *string         `json:"database_dsn"`
	SecretKey           *string         `json:"secret_key"`
	Issuer              *string         `json:"issuer"`
	RootKeySeed         *string         `json:"root_key_seed"`
	DelegationMaxTTL    *timex.Duration `json:"delegation_max_ttl"`
	DelegationCacheSize *int            `json:"delegation_cache_size"`
	MaxAssetSize        *int64          `json:"max_asset_size"`
	S3RootUser          *string         `json:"s3_root_user"`
	S3RootPassword      *string         `json:"s3_root_password"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3BaseEndpoint      *string         `json:"s3_base_endpoint"`
	LogLevel            *string         `json:"log_level"`
}

// parseJson loads the file named by -c or -config, if any, into config.
func parseJson(config *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	set(&config.Issuer, c.Issuer)
	set(&config.RootKeySeed, c.RootKeySeed)
	if c.DelegationMaxTTL != nil {
		config.DelegationMaxTTL = c.DelegationMaxTTL.Duration
	}
	set(&config.DelegationCacheSize, c.DelegationCacheSize)
	set(&config.MaxAssetSize, c.MaxAssetSize)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.LogLevel, c.LogLevel)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
