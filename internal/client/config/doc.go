// Package config loads runtime configuration for the CarVault client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/--config or CARVAULT_CONFIG.
//  3. Environment: BACKEND selects the network mode, CARVAULT_* the rest.
//  4. Command-line flags that were explicitly set.
//
// # JSON schema
//
//	{
//	  "network": "local",
//	  "local_host": "127.0.0.1",
//	  "replica_port": 4943,
//	  "identity_port": 4944,
//	  "identity_provider_id": "rdmx6-jaaaa-aaaaa-aaadq-cai",
//	  "asset_canister_id": "bkyz2-fmaaa-aaaaa-qaaaq-cai",
//	  "live_endpoint": "api.carvault.app:443",
//	  "live_root_key": "<base64 ed25519 public key>",
//	  "data_dir": ".carvault",
//	  "online_check_interval": "3s",
//	  "max_upload_size": 10485760,
//	  "log_level": "warn"
//	}
//
// The network mode decides where the identity provider and the asset store
// live. Anything other than "local" or "live" is rejected with
// common.ErrUnknownNetwork.
package config
