package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/carvault/internal/client/config"
	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	"github.com/dmitrijs2005/carvault/internal/logging"
)

// BootstrapTimeout bounds the root-key fetch on local networks.
const BootstrapTimeout = 10 * time.Second

// Builder is what the session store uses to obtain a client.
type Builder interface {
	Build(ctx context.Context, id *delegation.Identity) (RemoteClient, error)
}

// Factory builds GRPCClients for one configuration.
type Factory struct {
	cfg  *config.Config
	log  logging.Logger
	opts []Option
}

func NewFactory(cfg *config.Config, log logging.Logger, opts ...Option) *Factory {
	if log == nil {
		log = logging.Nop{}
	}
	return &Factory{cfg: cfg, log: log, opts: opts}
}

// Build returns a client bound to id. An unknown network mode is returned
// as is; every other failure wraps common.ErrClientBuildFailed and leaves
// no open connection behind.
func (f *Factory) Build(ctx context.Context, id *delegation.Identity) (RemoteClient, error) {
	ep, err := f.cfg.AgentEndpoint()
	if err != nil {
		return nil, err
	}

	opts := append([]Option{WithMaxPayload(f.cfg.MaxUploadSize)}, f.opts...)
	if ep.Secure {
		opts = append([]Option{WithTLS()}, opts...)
	}

	c, err := NewGRPCClient(ep.Addr, id, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrClientBuildFailed, err)
	}

	if ep.Bootstrap {
		bctx, cancel := context.WithTimeout(ctx, BootstrapTimeout)
		defer cancel()
		if err := c.FetchRootKey(bctx); err != nil {
			_ = c.Close()
			f.log.Warn(ctx, "root key fetch failed", "endpoint", ep.Addr, "error", err)
			return nil, fmt.Errorf("%w: fetch root key: %w", common.ErrClientBuildFailed, err)
		}
	} else {
		key, err := cryptox.DecodePublicKey(f.cfg.LiveRootKey)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("%w: live root key: %w", common.ErrClientBuildFailed, err)
		}
		c.SetRootKey(key)
	}

	f.log.Debug(ctx, "remote client ready", "endpoint", ep.Addr, "secure", ep.Secure)
	return c, nil
}
