package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/carvault/internal/client/config"
	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
)

func stubNewApp(t *testing.T, app *App) *config.Config {
	t.Helper()
	var got config.Config
	orig := newApp
	newApp = func(_ context.Context, c *config.Config) (*App, error) {
		got = *c
		app.config = c
		return app, nil
	}
	t.Cleanup(func() { newApp = orig })
	return &got
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"login", "logout", "register", "whoami", "upload"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("network"))
}

func TestRootCommand_UnknownNetwork(t *testing.T) {
	t.Setenv(config.EnvBackend, "")
	t.Setenv(config.EnvConfig, "")

	root := NewRootCommand()
	root.SetArgs([]string{"whoami", "--network", "staging"})
	err := root.ExecuteContext(context.Background())
	require.ErrorIs(t, err, common.ErrUnknownNetwork)
}

func TestRootCommand_LiveWithoutRootKey(t *testing.T) {
	t.Setenv(config.EnvBackend, "")
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvRootKey, "")
	stubNewApp(t, newTestApp(t, &fakeAuth{}))

	root := NewRootCommand()
	root.SetArgs([]string{"whoami", "--network", "live", "--data-dir", t.TempDir()})
	err := root.ExecuteContext(context.Background())
	require.ErrorIs(t, err, common.ErrMissingRootKey)
}

func TestRootCommand_LoginUsesFlags(t *testing.T) {
	t.Setenv(config.EnvBackend, "")
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvRootKey, "")
	capturePrintln(t)

	f := &fakeAuth{}
	cfg := stubNewApp(t, newTestApp(t, f))
	stubInputs(t, "dave", []byte("pw"))

	root := NewRootCommand()
	root.SetArgs([]string{"login", "--network", "LIVE", "--data-dir", t.TempDir(),
		"--live-root-key", cryptox.EncodeKey(make([]byte, 32))})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Equal(t, common.NetworkLive, cfg.Network)
	assert.Equal(t, "dave", f.loginUser)
	assert.True(t, f.authed)
	assert.Equal(t, 1, f.closed, "app is closed after the command")
}

func TestRootCommand_UploadNeedsArgs(t *testing.T) {
	capturePrintln(t)
	stubNewApp(t, newTestApp(t, &fakeAuth{}))

	root := NewRootCommand()
	root.SetArgs([]string{"upload", "images"})
	require.Error(t, root.ExecuteContext(context.Background()))
}
