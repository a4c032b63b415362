package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/carvault/internal/client/client"
	"github.com/dmitrijs2005/carvault/internal/client/config"
	"github.com/dmitrijs2005/carvault/internal/client/migrations"
	"github.com/dmitrijs2005/carvault/internal/client/services"
	"github.com/dmitrijs2005/carvault/internal/filex"
	"github.com/dmitrijs2005/carvault/internal/logging"

	_ "modernc.org/sqlite"
)

// DatabaseFile is the SQLite file kept under the data directory.
const DatabaseFile = "carvault.db"

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	log         logging.Logger
	db          *sql.DB
	authService services.AuthService
	records     *services.RecordController
	reader      *bufio.Reader

	mu   sync.Mutex
	Mode Mode
}

// NewApp opens the local store, restores a persisted session and wires the
// record controller to it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewTextLogger(os.Stderr, c.LogLevel)

	db, err := openDatabase(ctx, c.DataDir)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	app := &App{config: c, log: log, db: db, reader: bufio.NewReader(os.Stdin), Mode: ModeOffline}

	app.authService = services.NewAuthService(c, client.NewFactory(c, log), db,
		services.WithLogger(log),
		services.WithReloader(app.reload),
	)
	app.records = services.NewRecordController(app.authService, c.AssetCanisterID, log)

	if err := app.authService.Restore(ctx); err != nil {
		log.Warn(ctx, "could not restore session", "error", err)
	}
	app.resetRecord(ctx)

	return app, nil
}

func openDatabase(ctx context.Context, dataDir string) (*sql.DB, error) {
	base, name := "", dataDir
	if filepath.IsAbs(dataDir) {
		base, name = filepath.Dir(dataDir), filepath.Base(dataDir)
	}
	dir, err := filex.EnsureDir(base, name)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// reload runs after every login and logout.
func (a *App) reload(ctx context.Context) error {
	a.resetRecord(ctx)
	if !a.authService.IsAuthenticated(ctx) {
		a.setMode(ModeOffline)
	}
	return nil
}

// resetRecord starts a fresh record owned by the current principal.
func (a *App) resetRecord(ctx context.Context) {
	owner := ""
	if p, err := a.authService.GetPrincipal(ctx); err == nil {
		owner = p.String()
	}
	a.records.Reset(owner)
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()

	if changed && a.log != nil {
		a.log.Info(context.Background(), "switched mode", "mode", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)
	a.Root(ctx)
}

// Close drops the remote client and closes the local store.
func (a *App) Close(ctx context.Context) error {
	err := a.authService.Close(ctx)
	if a.db != nil {
		if cerr := a.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (a *App) isLoggedIn() bool {
	return a.authService.IsAuthenticated(context.Background())
}

// ping checks the asset store through the session's client, building it on
// first use.
func (a *App) ping(ctx context.Context) error {
	c, ok := a.authService.CachedClient()
	if !ok {
		var err error
		if c, err = a.authService.GetClient(ctx); err != nil {
			return err
		}
	}
	return c.Ping(ctx)
}

// refreshMode pings once and updates Mode. Anonymous sessions are offline.
func (a *App) refreshMode(ctx context.Context) {
	if !a.isLoggedIn() {
		a.setMode(ModeOffline)
		return
	}

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.ping(pctx)
	cancel()

	if err != nil {
		a.log.Debug(ctx, "ping failed", "error", err)
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// StartOnlineStatusWatcher refreshes Mode every interval until ctx is done.
// A non-positive interval disables the watcher.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.refreshMode(ctx)

		case <-ctx.Done():
			return
		}
	}
}
