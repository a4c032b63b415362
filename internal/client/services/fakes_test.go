package services

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/carvault/internal/client/client"
	"github.com/dmitrijs2005/carvault/internal/client/config"
	"github.com/dmitrijs2005/carvault/internal/client/idp"
	"github.com/dmitrijs2005/carvault/internal/client/migrations"
	"github.com/dmitrijs2005/carvault/internal/client/models"
	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/delegation"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

func testConfig() *config.Config {
	var c config.Config
	c.LoadDefaults()
	return &c
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Now().Truncate(time.Second)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeProvider is an in-memory identity provider that issues real
// delegation tokens.
type fakeProvider struct {
	clock *clock

	mu         sync.Mutex
	accounts   map[string][2][]byte // salt, verifier
	authorizes int
	lastTTL    time.Duration
	authErr    error
	onAuth     func()
}

func newFakeProvider(c *clock) *fakeProvider {
	return &fakeProvider{clock: c, accounts: map[string][2][]byte{}}
}

func (p *fakeProvider) addUser(username, password string) {
	salt := []byte("salt-" + username)
	ver := cryptox.MakeVerifier(cryptox.DeriveMasterKey([]byte(password), salt))
	p.mu.Lock()
	p.accounts[username] = [2][]byte{salt, ver}
	p.mu.Unlock()
}

func (p *fakeProvider) Register(_ context.Context, username string, salt, verifier []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[username]; ok {
		return common.ErrorAlreadyExists
	}
	p.accounts[username] = [2][]byte{salt, verifier}
	return nil
}

func (p *fakeProvider) GetSalt(_ context.Context, username string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if acc, ok := p.accounts[username]; ok {
		return acc[0], nil
	}
	return []byte("random"), nil
}

func (p *fakeProvider) Authorize(_ context.Context, username string, verifier []byte, sessionKey ed25519.PublicKey, maxTTL time.Duration) (*idp.AuthorizeResponse, error) {
	p.mu.Lock()
	p.authorizes++
	p.lastTTL = maxTTL
	acc, ok := p.accounts[username]
	authErr := p.authErr
	onAuth := p.onAuth
	p.mu.Unlock()

	if onAuth != nil {
		onAuth()
	}
	if authErr != nil {
		return nil, authErr
	}
	if !ok || string(acc[1]) != string(verifier) {
		return nil, common.ErrorUnauthorized
	}

	tok, claims, err := delegation.Issue(delegation.IssueOptions{
		Issuer:     "fake",
		Secret:     []byte("fake-secret"),
		Principal:  delegation.Principal("principal-" + username),
		SessionKey: sessionKey,
		TTL:        maxTTL,
		MaxTTL:     common.DelegationMaxAge,
		Now:        p.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	return &idp.AuthorizeResponse{Delegation: tok, Principal: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (p *fakeProvider) Authorizes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authorizes
}

// fakeRemote records Store calls.
type fakeRemote struct {
	mu       sync.Mutex
	args     []models.StoreArg
	canister []string
	failKeys map[string]error
	onStore  func()
	closed   bool
}

func (r *fakeRemote) Store(_ context.Context, canisterID string, arg models.StoreArg) (string, error) {
	if r.onStore != nil {
		r.onStore()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.args = append(r.args, arg)
	r.canister = append(r.canister, canisterID)
	if err := r.failKeys[arg.Key]; err != nil {
		return "", err
	}
	return arg.Key, nil
}

func (r *fakeRemote) Status(context.Context) ([]byte, error) { return nil, nil }
func (r *fakeRemote) Ping(context.Context) error             { return nil }

func (r *fakeRemote) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *fakeRemote) Calls() []models.StoreArg {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.StoreArg, len(r.args))
	copy(out, r.args)
	return out
}

func (r *fakeRemote) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// fakeBuilder hands out a new fakeRemote per build. With gate set, a build
// reports on started and then waits for gate to close.
type fakeBuilder struct {
	started chan struct{}
	gate    chan struct{}

	mu     sync.Mutex
	builds int
	err    error
	last   *fakeRemote
}

func (b *fakeBuilder) Build(ctx context.Context, _ *delegation.Identity) (client.RemoteClient, error) {
	if b.gate != nil {
		b.started <- struct{}{}
		select {
		case <-b.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.builds++
	if b.err != nil {
		return nil, b.err
	}
	b.last = &fakeRemote{}
	return b.last, nil
}

func (b *fakeBuilder) Last() *fakeRemote {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

func (b *fakeBuilder) Builds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds
}

// fakeSource is a ClientSource with a fixed answer.
type fakeSource struct {
	remote client.RemoteClient
	err    error
	calls  int
}

func (s *fakeSource) GetClient(context.Context) (client.RemoteClient, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.remote, nil
}

var errBoom = errors.New("boom")
