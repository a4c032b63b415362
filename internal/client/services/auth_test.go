package services

import (
	"context"
	"database/sql"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/carvault/internal/client/client"
	"github.com/dmitrijs2005/carvault/internal/client/config"
	"github.com/dmitrijs2005/carvault/internal/client/idp"
	"github.com/dmitrijs2005/carvault/internal/client/picker"
	"github.com/dmitrijs2005/carvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/delegation"
)

type authFixture struct {
	db       *sql.DB
	cfg      *config.Config
	clock    *clock
	provider *fakeProvider
	builder  client.Builder
	reloads  int
	urls     []string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	c := newClock()
	f := &authFixture{
		db:       setupDB(t),
		cfg:      testConfig(),
		clock:    c,
		provider: newFakeProvider(c),
		builder:  &fakeBuilder{},
	}
	f.provider.addUser("alice", "correct horse")
	return f
}

func (f *authFixture) service(opts ...AuthOption) AuthService {
	base := []AuthOption{
		WithClock(f.clock.Now),
		WithProviderFactory(func(u string) (idp.Provider, error) {
			f.urls = append(f.urls, u)
			return f.provider, nil
		}),
		WithReloader(func(context.Context) error {
			f.reloads++
			return nil
		}),
	}
	return NewAuthService(f.cfg, f.builder, f.db, append(base, opts...)...)
}

func TestLogin_ThenGetClientWithoutAnotherLogin(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()
	ctx := context.Background()

	require.False(t, svc.IsAuthenticated(ctx))
	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))

	assert.True(t, svc.IsAuthenticated(ctx))
	assert.Equal(t, Authenticated, svc.State())
	assert.Equal(t, "alice", svc.Username())
	assert.Equal(t, 1, f.reloads)
	assert.Equal(t, common.DelegationMaxAge, f.provider.lastTTL)
	assert.Equal(t, []string{"http://127.0.0.1:4944/?canisterId=rdmx6-jaaaa-aaaaa-aaadq-cai"}, f.urls)

	p, err := svc.GetPrincipal(ctx)
	require.NoError(t, err)
	assert.Equal(t, delegation.Principal("principal-alice"), p)

	c1, err := svc.GetClient(ctx)
	require.NoError(t, err)
	require.NotNil(t, c1)
	c2, err := svc.GetClient(ctx)
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	assert.Equal(t, 1, f.provider.Authorizes())
	assert.Equal(t, 1, f.builder.(*fakeBuilder).Builds())
}

func TestLogin_PersistsDelegation(t *testing.T) {
	f := newAuthFixture(t)
	require.NoError(t, f.service().Login(context.Background(), "alice", []byte("correct horse")))

	repo := metadata.NewSQLiteRepository(f.db)
	tok, err := repo.Get(context.Background(), metadata.KeyDelegation)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := delegation.ParseUnverified(string(tok))
	require.NoError(t, err)
	assert.Equal(t, "principal-alice", claims.Subject)
	assert.Equal(t, f.clock.Now().Add(common.DelegationMaxAge).Unix(), claims.ExpiresAt.Unix())
}

func TestLogin_Failure(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()
	ctx := context.Background()

	err := svc.Login(ctx, "alice", []byte("wrong"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "login error:"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	assert.False(t, svc.IsAuthenticated(ctx))
	assert.Equal(t, Unauthenticated, svc.State())
	assert.Zero(t, f.reloads)

	_, err = svc.GetPrincipal(ctx)
	assert.ErrorIs(t, err, common.ErrNoIdentity)
	_, err = svc.GetClient(ctx)
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestLogin_StateIsAuthenticatingDuringFlow(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()

	var during SessionState
	f.provider.onAuth = func() { during = svc.State() }

	require.NoError(t, svc.Login(context.Background(), "alice", []byte("correct horse")))
	assert.Equal(t, Authenticating, during)
	assert.Equal(t, Authenticated, svc.State())
}

func TestLogin_UnknownNetworkIsFatal(t *testing.T) {
	f := newAuthFixture(t)
	f.cfg.Network = "staging"

	err := f.service().Login(context.Background(), "alice", []byte("correct horse"))
	require.ErrorIs(t, err, common.ErrUnknownNetwork)
	assert.Zero(t, f.provider.Authorizes())
}

func TestLogin_DropsCachedClient(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))
	first, err := svc.GetClient(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))
	assert.True(t, first.(*fakeRemote).Closed())

	second, err := svc.GetClient(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestLogout_ClearsSessionAndRebuildsAfterRelogin(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))
	before, err := svc.GetClient(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))
	assert.False(t, svc.IsAuthenticated(ctx))
	assert.Equal(t, Unauthenticated, svc.State())
	assert.True(t, before.(*fakeRemote).Closed())
	assert.Equal(t, 2, f.reloads)

	_, ok := svc.CachedClient()
	assert.False(t, ok)
	_, err = svc.GetClient(ctx)
	require.ErrorIs(t, err, common.ErrNotAuthenticated)

	v, err := metadata.NewSQLiteRepository(f.db).Get(ctx, metadata.KeyDelegation)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))
	after, err := svc.GetClient(ctx)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, 2, f.builder.(*fakeBuilder).Builds())
}

func TestLogout_WithoutReloader(t *testing.T) {
	f := newAuthFixture(t)
	svc := NewAuthService(f.cfg, f.builder, f.db,
		WithClock(f.clock.Now),
		WithProviderFactory(func(string) (idp.Provider, error) { return f.provider, nil }),
	)
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))
	require.ErrorIs(t, svc.Logout(ctx), common.ErrReloadUnavailable)
	assert.False(t, svc.IsAuthenticated(ctx))
}

func TestGetClient_BuildFailureIsNotCached(t *testing.T) {
	f := newAuthFixture(t)
	b := &fakeBuilder{err: errBoom}
	f.builder = b
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))

	_, err := svc.GetClient(ctx)
	require.ErrorIs(t, err, common.ErrClientBuildFailed)
	require.ErrorIs(t, err, errBoom)

	b.err = nil
	c, err := svc.GetClient(ctx)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 2, b.Builds())
}

func TestGetClient_SessionReadsDuringBuild(t *testing.T) {
	f := newAuthFixture(t)
	b := &fakeBuilder{started: make(chan struct{}, 1), gate: make(chan struct{})}
	f.builder = b
	svc := f.service()
	ctx := context.Background()
	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))

	type result struct {
		c   client.RemoteClient
		err error
	}
	results := make(chan result, 2)
	get := func() {
		c, err := svc.GetClient(ctx)
		results <- result{c, err}
	}
	go get()
	<-b.started
	go get()

	reads := make(chan struct{})
	go func() {
		defer close(reads)
		assert.True(t, svc.IsAuthenticated(ctx))
		assert.Equal(t, Authenticated, svc.State())
		assert.Equal(t, "alice", svc.Username())
		_, ok := svc.CachedClient()
		assert.False(t, ok)
	}()
	select {
	case <-reads:
	case <-time.After(2 * time.Second):
		t.Fatal("session reads blocked by a client build")
	}

	close(b.gate)
	first, second := <-results, <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Same(t, first.c, second.c)
	assert.Equal(t, 1, b.Builds())
}

func TestGetClient_LogoutDuringBuild(t *testing.T) {
	f := newAuthFixture(t)
	b := &fakeBuilder{started: make(chan struct{}, 1), gate: make(chan struct{})}
	f.builder = b
	svc := f.service()
	ctx := context.Background()
	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))

	errs := make(chan error, 1)
	go func() {
		_, err := svc.GetClient(ctx)
		errs <- err
	}()
	<-b.started

	require.NoError(t, svc.Logout(ctx))
	close(b.gate)

	require.ErrorIs(t, <-errs, common.ErrNotAuthenticated)
	assert.True(t, b.Last().Closed(), "client of an ended session is closed")
	_, ok := svc.CachedClient()
	assert.False(t, ok)
}

func TestLogin_FailureKeepsPreviousSession(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))
	before, err := svc.GetClient(ctx)
	require.NoError(t, err)
	saved, err := metadata.NewSQLiteRepository(f.db).Get(ctx, metadata.KeyDelegation)
	require.NoError(t, err)

	err = svc.Login(ctx, "alice", []byte("wrong"))
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	assert.True(t, svc.IsAuthenticated(ctx))
	assert.Equal(t, Authenticated, svc.State())
	assert.Equal(t, "alice", svc.Username())
	assert.Equal(t, 1, f.reloads)

	p, err := svc.GetPrincipal(ctx)
	require.NoError(t, err)
	assert.Equal(t, delegation.Principal("principal-alice"), p)

	cached, ok := svc.CachedClient()
	require.True(t, ok)
	assert.Same(t, before, cached)
	assert.False(t, before.(*fakeRemote).Closed())

	after, err := metadata.NewSQLiteRepository(f.db).Get(ctx, metadata.KeyDelegation)
	require.NoError(t, err)
	assert.Equal(t, saved, after)
}

func TestExpiry(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))
	f.clock.Advance(common.DelegationMaxAge + time.Second)

	assert.False(t, svc.IsAuthenticated(ctx))
	assert.Equal(t, Unauthenticated, svc.State())
	_, err := svc.GetClient(ctx)
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	require.ErrorIs(t, err, common.ErrDelegationExpired)
}

func TestRestore(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, f.service().Login(ctx, "alice", []byte("correct horse")))

	restored := f.service()
	require.NoError(t, restored.Restore(ctx))
	assert.True(t, restored.IsAuthenticated(ctx))
	assert.Equal(t, "alice", restored.Username())
	p, err := restored.GetPrincipal(ctx)
	require.NoError(t, err)
	assert.Equal(t, delegation.Principal("principal-alice"), p)
	assert.Equal(t, 1, f.provider.Authorizes())
}

func TestRestore_DiscardsExpired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, f.service().Login(ctx, "alice", []byte("correct horse")))

	f.clock.Advance(8 * 24 * time.Hour)
	restored := f.service()
	require.NoError(t, restored.Restore(ctx))
	assert.False(t, restored.IsAuthenticated(ctx))

	keys, err := metadata.NewSQLiteRepository(f.db).Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRestore_Empty(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()
	require.NoError(t, svc.Restore(context.Background()))
	assert.False(t, svc.IsAuthenticated(context.Background()))
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "bob", []byte("pw")))
	acc := f.provider.accounts["bob"]
	assert.Len(t, acc[0], 32)
	assert.Equal(t, cryptox.MakeVerifier(cryptox.DeriveMasterKey([]byte("pw"), acc[0])), acc[1])

	require.NoError(t, svc.Login(ctx, "bob", []byte("pw")))

	err := svc.Register(ctx, "bob", []byte("pw"))
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

// A local network that cannot be reached fails the build, and the record
// controller makes no upload attempt.
func TestLocalBuildAgainstUnreachableNetwork(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())

	f := newAuthFixture(t)
	f.cfg.ReplicaPort = port
	f.builder = client.NewFactory(f.cfg, nil)
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "alice", []byte("correct horse")))

	_, err = svc.GetClient(ctx)
	require.ErrorIs(t, err, common.ErrClientBuildFailed)

	rc := NewRecordController(svc, f.cfg.AssetCanisterID, nil)
	sel := picker.NewStatic(picker.Memory{FileName: "A.png", Data: []byte("a")})
	_, err = rc.SelectFile(ctx, "images", sel)
	require.ErrorIs(t, err, common.ErrClientBuildFailed)
	assert.Equal(t, MsgCanistersUnavailable, rc.Error())
	assert.Empty(t, rc.Record().Images)
	assert.False(t, rc.Uploading())
}
