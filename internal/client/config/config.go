package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
)

// LiveIdentityProviderURL is the production identity provider.
const LiveIdentityProviderURL = "https://identity.carvault.app/#authorize"

// Config holds runtime settings for the CarVault client.
type Config struct {
	Network string

	LocalHost          string
	ReplicaPort        int
	IdentityPort       int
	IdentityProviderID string

	AssetCanisterID string
	LiveEndpoint    string
	LiveRootKey     string

	DataDir             string
	OnlineCheckInterval time.Duration
	MaxUploadSize       int64
	LogLevel            string
}

// LoadDefaults populates c with local development defaults.
func (c *Config) LoadDefaults() {
	c.Network = common.NetworkLocal
	c.LocalHost = "127.0.0.1"
	c.ReplicaPort = 4943
	c.IdentityPort = 4944
	c.IdentityProviderID = "rdmx6-jaaaa-aaaaa-aaadq-cai"
	c.AssetCanisterID = "bkyz2-fmaaa-aaaaa-qaaaq-cai"
	c.LiveEndpoint = "api.carvault.app:443"
	c.DataDir = ".carvault"
	c.OnlineCheckInterval = 3 * time.Second
	c.MaxUploadSize = 10 << 20
	c.LogLevel = "warn"
}

// Mode returns the normalized network mode.
func (c *Config) Mode() (string, error) {
	m := strings.ToLower(strings.TrimSpace(c.Network))
	switch m {
	case common.NetworkLocal, common.NetworkLive:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownNetwork, c.Network)
	}
}

// Validate checks the network mode and, in live mode, the pinned root key
// the client verifies certificates against.
func (c *Config) Validate() error {
	mode, err := c.Mode()
	if err != nil {
		return err
	}
	if mode == common.NetworkLive {
		if _, err := cryptox.DecodePublicKey(c.LiveRootKey); err != nil {
			return fmt.Errorf("%w: %v", common.ErrMissingRootKey, err)
		}
	}
	return nil
}

// IdentityProviderURL resolves the provider the login flow talks to.
func (c *Config) IdentityProviderURL() (string, error) {
	mode, err := c.Mode()
	if err != nil {
		return "", err
	}
	if mode == common.NetworkLive {
		return LiveIdentityProviderURL, nil
	}
	host := net.JoinHostPort(c.LocalHost, strconv.Itoa(c.IdentityPort))
	return fmt.Sprintf("http://%s/?canisterId=%s", host, c.IdentityProviderID), nil
}

// Endpoint is where the asset store is reached.
type Endpoint struct {
	Addr   string
	Secure bool
	// Bootstrap is set when the root key has to be fetched from the
	// network before the client is usable.
	Bootstrap bool
}

// AgentEndpoint resolves the asset-store endpoint for the network mode.
func (c *Config) AgentEndpoint() (Endpoint, error) {
	mode, err := c.Mode()
	if err != nil {
		return Endpoint{}, err
	}
	if mode == common.NetworkLive {
		return Endpoint{Addr: c.LiveEndpoint, Secure: true}, nil
	}
	return Endpoint{
		Addr:      net.JoinHostPort(c.LocalHost, strconv.Itoa(c.ReplicaPort)),
		Bootstrap: true,
	}, nil
}
