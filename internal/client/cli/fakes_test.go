package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/carvault/internal/client/client"
	"github.com/dmitrijs2005/carvault/internal/client/config"
	"github.com/dmitrijs2005/carvault/internal/client/models"
	"github.com/dmitrijs2005/carvault/internal/client/services"
	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	"github.com/dmitrijs2005/carvault/internal/logging"
)

var errBoom = errors.New("boom")

type fakeRemote struct {
	stored  []models.StoreArg
	storeFn func(arg models.StoreArg) error
	pingErr error
	pings   int
	closed  int
}

func (r *fakeRemote) Store(_ context.Context, _ string, arg models.StoreArg) (string, error) {
	if r.storeFn != nil {
		if err := r.storeFn(arg); err != nil {
			return "", err
		}
	}
	r.stored = append(r.stored, arg)
	return arg.Key, nil
}

func (r *fakeRemote) Status(context.Context) ([]byte, error) { return []byte("root"), nil }

func (r *fakeRemote) Ping(context.Context) error {
	r.pings++
	return r.pingErr
}

func (r *fakeRemote) Close() error {
	r.closed++
	return nil
}

// fakeAuth is an in-memory session. Login and Logout call the reloader the
// way the real service does.
type fakeAuth struct {
	authed    bool
	user      string
	remote    *fakeRemote
	built     bool
	reload    services.Reloader
	restored  int
	closed    int
	logouts   int
	loginUser string
	loginPass []byte
	regUser   string
	regPass   []byte
	loginErr  error
	regErr    error
	buildErr  error
}

var _ services.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Login(ctx context.Context, username string, password []byte) error {
	f.loginUser, f.loginPass = username, append([]byte(nil), password...)
	if f.loginErr != nil {
		return f.loginErr
	}
	f.authed, f.user, f.built = true, username, false
	if f.reload != nil {
		return f.reload(ctx)
	}
	return nil
}

func (f *fakeAuth) Register(_ context.Context, username string, password []byte) error {
	f.regUser, f.regPass = username, append([]byte(nil), password...)
	return f.regErr
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.logouts++
	f.authed, f.user, f.built = false, "", false
	if f.reload == nil {
		return common.ErrReloadUnavailable
	}
	return f.reload(ctx)
}

func (f *fakeAuth) IsAuthenticated(context.Context) bool { return f.authed }

func (f *fakeAuth) GetPrincipal(context.Context) (delegation.Principal, error) {
	if !f.authed {
		return "", common.ErrNoIdentity
	}
	return delegation.Principal("p-" + f.user), nil
}

func (f *fakeAuth) GetClient(context.Context) (client.RemoteClient, error) {
	if !f.authed {
		return nil, common.ErrNotAuthenticated
	}
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	f.built = true
	return f.remote, nil
}

func (f *fakeAuth) CachedClient() (client.RemoteClient, bool) {
	if !f.built {
		return nil, false
	}
	return f.remote, true
}

func (f *fakeAuth) Restore(context.Context) error {
	f.restored++
	return nil
}

func (f *fakeAuth) State() services.SessionState {
	if f.authed {
		return services.Authenticated
	}
	return services.Unauthenticated
}

func (f *fakeAuth) Username() string { return f.user }

func (f *fakeAuth) Close(context.Context) error {
	f.closed++
	return nil
}

func testConfig() *config.Config {
	var c config.Config
	c.LoadDefaults()
	return &c
}

func newTestApp(t *testing.T, auth *fakeAuth) *App {
	t.Helper()
	if auth.remote == nil {
		auth.remote = &fakeRemote{}
	}
	a := &App{
		config:      testConfig(),
		log:         logging.Nop{},
		authService: auth,
		reader:      bufio.NewReader(strings.NewReader("")),
		Mode:        ModeOffline,
	}
	auth.reload = a.reload
	a.records = services.NewRecordController(auth, "canister", nil)
	return a
}

// capturePrintln collects everything printed through printlnFn.
func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			parts = append(parts, toString(v))
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	default:
		return ""
	}
}

func stubInputs(t *testing.T, username string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return username, nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}
