// Package services contains the application services behind the CarVault
// CLI. This file holds the session store: login through the identity
// provider, logout, and the lazily built remote client.
package services

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/carvault/internal/client/client"
	"github.com/dmitrijs2005/carvault/internal/client/config"
	"github.com/dmitrijs2005/carvault/internal/client/idp"
	"github.com/dmitrijs2005/carvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/dbx"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	"github.com/dmitrijs2005/carvault/internal/logging"
)

// SessionState is where the session store is in its lifecycle.
type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticating
	Authenticated
)

func (s SessionState) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Reloader resets everything derived from the session after it changes.
type Reloader func(ctx context.Context) error

// ProviderFactory opens an identity provider at the resolved URL.
type ProviderFactory func(providerURL string) (idp.Provider, error)

// AuthService is the session store.
//
// Contract:
//   - Login: authorize against the identity provider and persist the
//     delegation; the cached client is dropped and the Reloader runs.
//   - Logout: forget the delegation and the client, then run the Reloader.
//   - IsAuthenticated: a non-expired delegation is held.
//   - GetPrincipal: the sender of the held identity.
//   - GetClient: the cached remote client, built on first use.
//   - Restore: pick up a delegation persisted by an earlier run.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) error
	Register(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
	GetPrincipal(ctx context.Context) (delegation.Principal, error)
	GetClient(ctx context.Context) (client.RemoteClient, error)
	CachedClient() (client.RemoteClient, bool)
	Restore(ctx context.Context) error
	State() SessionState
	Username() string
	Close(ctx context.Context) error
}

type AuthOption func(*authService)

func WithReloader(r Reloader) AuthOption { return func(a *authService) { a.reload = r } }

func WithClock(now func() time.Time) AuthOption { return func(a *authService) { a.now = now } }

func WithLogger(l logging.Logger) AuthOption { return func(a *authService) { a.log = l } }

func WithProviderFactory(f ProviderFactory) AuthOption {
	return func(a *authService) { a.newProvider = f }
}

type authService struct {
	cfg         *config.Config
	builder     client.Builder
	db          *sql.DB
	newProvider ProviderFactory
	reload      Reloader
	now         func() time.Time
	log         logging.Logger

	// buildMu serializes client builds. mu guards the session fields only,
	// so readers never wait on a slow bootstrap.
	buildMu sync.Mutex

	mu       sync.Mutex
	identity *delegation.Identity
	username string
	state    SessionState
	cached   client.RemoteClient
}

// NewAuthService wires the session store. db must have the client
// migrations applied.
func NewAuthService(cfg *config.Config, builder client.Builder, db *sql.DB, opts ...AuthOption) AuthService {
	a := &authService{
		cfg:     cfg,
		builder: builder,
		db:      db,
		now:     time.Now,
		log:     logging.Nop{},
		newProvider: func(u string) (idp.Provider, error) {
			return idp.New(u, nil)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *authService) provider() (idp.Provider, error) {
	u, err := a.cfg.IdentityProviderURL()
	if err != nil {
		return nil, err
	}
	return a.newProvider(u)
}

func (a *authService) setState(s SessionState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Login runs the delegated-identity flow. On failure the previous session,
// if any, is left as it was and the Reloader does not run.
func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	a.mu.Lock()
	prev := a.state
	a.state = Authenticating
	a.mu.Unlock()

	id, err := a.authorize(ctx, username, password)
	if err != nil {
		if prev == Authenticating {
			prev = Unauthenticated
		}
		a.setState(prev)
		a.log.Warn(ctx, "login failed", "username", username, "error", err)
		return fmt.Errorf("login error: %w", err)
	}

	if err := a.persist(ctx, username, id); err != nil {
		a.setState(prev)
		return fmt.Errorf("login error: save delegation: %w", err)
	}

	a.mu.Lock()
	stale := a.cached
	a.identity = id
	a.username = username
	a.cached = nil
	a.state = Authenticated
	a.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}

	sender, _ := id.Sender()
	a.log.Info(ctx, "logged in", "principal", sender.String(), "expires_at", id.ExpiresAt())

	if a.reload != nil {
		if err := a.reload(ctx); err != nil {
			return fmt.Errorf("reload: %w", err)
		}
	}
	return nil
}

func (a *authService) authorize(ctx context.Context, username string, password []byte) (*delegation.Identity, error) {
	p, err := a.provider()
	if err != nil {
		return nil, err
	}

	salt, err := p.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get salt: %w", err)
	}

	masterKey := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(masterKey)
	verifier := cryptox.MakeVerifier(masterKey)

	pub, priv, err := cryptox.NewSessionKey()
	if err != nil {
		return nil, err
	}

	resp, err := p.Authorize(ctx, username, verifier, pub, common.DelegationMaxAge)
	if err != nil {
		return nil, err
	}

	id, err := delegation.NewIdentity(resp.Delegation, priv)
	if err != nil {
		return nil, err
	}
	if id.Expired(a.now()) {
		return nil, common.ErrDelegationExpired
	}
	return id, nil
}

func (a *authService) persist(ctx context.Context, username string, id *delegation.Identity) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SaveSession(ctx, metadata.Session{
			Username:   username,
			Delegation: id.Delegation(),
			SessionKey: id.SessionKey(),
		})
	})
}

func (a *authService) forget(ctx context.Context) error {
	return metadata.NewSQLiteRepository(a.db).ForgetSession(ctx)
}

// Register creates an account with a fresh random salt.
func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	p, err := a.provider()
	if err != nil {
		return err
	}

	salt := common.GenerateRandByteArray(32)
	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)
	verifier := cryptox.MakeVerifier(key)

	if err := p.Register(ctx, username, salt, verifier); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	return nil
}

// Logout clears the session even when no Reloader is configured; that case
// is still reported as common.ErrReloadUnavailable.
func (a *authService) Logout(ctx context.Context) error {
	if err := a.forget(ctx); err != nil {
		return fmt.Errorf("logout error: %w", err)
	}

	a.mu.Lock()
	c := a.cached
	a.identity = nil
	a.username = ""
	a.cached = nil
	a.state = Unauthenticated
	a.mu.Unlock()

	if c != nil {
		if err := c.Close(); err != nil {
			a.log.Warn(ctx, "closing remote client", "error", err)
		}
	}
	a.log.Info(ctx, "logged out")

	if a.reload == nil {
		return common.ErrReloadUnavailable
	}
	return a.reload(ctx)
}

func (a *authService) IsAuthenticated(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity != nil && !a.identity.Expired(a.now())
}

func (a *authService) GetPrincipal(ctx context.Context) (delegation.Principal, error) {
	a.mu.Lock()
	id := a.identity
	a.mu.Unlock()
	return id.Sender()
}

// GetClient builds the session's client on first use. Concurrent callers
// share one build and the cached client is assigned once per session. A
// client built for a session that ended meanwhile is closed, not cached.
func (a *authService) GetClient(ctx context.Context) (client.RemoteClient, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	a.mu.Lock()
	id, cached := a.identity, a.cached
	a.mu.Unlock()

	if id == nil {
		return nil, common.ErrNotAuthenticated
	}
	if id.Expired(a.now()) {
		return nil, fmt.Errorf("%w: %w", common.ErrNotAuthenticated, common.ErrDelegationExpired)
	}
	if cached != nil {
		return cached, nil
	}

	c, err := a.builder.Build(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrClientBuildFailed) || errors.Is(err, common.ErrUnknownNetwork) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrClientBuildFailed, err)
	}

	a.mu.Lock()
	current := a.identity
	if current == id {
		a.cached = c
	}
	a.mu.Unlock()

	switch {
	case current == id:
		return c, nil
	case current == nil:
		_ = c.Close()
		return nil, common.ErrNotAuthenticated
	default:
		_ = c.Close()
		return nil, fmt.Errorf("%w: session replaced during build", common.ErrClientBuildFailed)
	}
}

// CachedClient returns the client only if one has already been built.
func (a *authService) CachedClient() (client.RemoteClient, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cached, a.cached != nil
}

// Restore loads a delegation saved by a previous run. Unusable records are
// deleted and the session stays unauthenticated.
func (a *authService) Restore(ctx context.Context) error {
	saved, err := metadata.NewSQLiteRepository(a.db).LoadSession(ctx)
	if err != nil || saved == nil {
		return err
	}

	id, err := delegation.NewIdentity(saved.Delegation, ed25519.PrivateKey(saved.SessionKey))
	if err == nil && id.Expired(a.now()) {
		err = common.ErrDelegationExpired
	}
	if err != nil {
		a.log.Info(ctx, "discarding stored delegation", "reason", err)
		return a.forget(ctx)
	}

	a.mu.Lock()
	a.identity = id
	a.username = saved.Username
	a.state = Authenticated
	a.mu.Unlock()
	return nil
}

// State reports Unauthenticated once a held delegation has expired.
func (a *authService) State() SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Authenticated && (a.identity == nil || a.identity.Expired(a.now())) {
		return Unauthenticated
	}
	return a.state
}

func (a *authService) Username() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.username
}

func (a *authService) Close(ctx context.Context) error {
	a.mu.Lock()
	c := a.cached
	a.cached = nil
	a.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}
