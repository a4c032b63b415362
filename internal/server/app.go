// Package server wires the reference backend: the identity provider over
// HTTP and the asset store over gRPC, sharing one Postgres database and
// one S3 bucket.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/carvault/internal/logging"
	"github.com/dmitrijs2005/carvault/internal/server/auth"
	"github.com/dmitrijs2005/carvault/internal/server/config"
	gs "github.com/dmitrijs2005/carvault/internal/server/grpc"
	"github.com/dmitrijs2005/carvault/internal/server/httpapi"
	"github.com/dmitrijs2005/carvault/internal/server/metrics"
	"github.com/dmitrijs2005/carvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/carvault/internal/server/services"
	"github.com/dmitrijs2005/carvault/internal/server/storage"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	grpc     *gs.GRPCServer
	http     *httpapi.HTTPServer
}

// NewApp connects to Postgres and S3, applies migrations and builds both
// servers. Nothing listens until Run.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB) (*App, error) {
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	blobs, err := storage.NewS3Store(ctx, storage.Options{
		Region:    c.S3Region,
		AccessKey: c.S3RootUser,
		SecretKey: c.S3RootPassword,
		Endpoint:  c.S3BaseEndpoint,
		Bucket:    c.S3Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	authority, err := auth.NewAuthority(c.Issuer, []byte(c.SecretKey), c.DelegationMaxTTL, c.DelegationCacheSize)
	if err != nil {
		return nil, err
	}
	certifier, err := auth.NewCertifier(c.RootKeySeed)
	if err != nil {
		return nil, err
	}
	if c.RootKeySeed == "" {
		logger.Warn(ctx, "no root key seed configured, certificates use a per-process key")
	}

	m, err := metrics.New()
	if err != nil {
		return nil, err
	}

	identity := services.NewIdentityService(db, rm, authority, []byte(c.SecretKey))
	assets := services.NewAssetService(db, rm, blobs, certifier, c.MaxAssetSize)

	router := httpapi.NewRouter(httpapi.Deps{
		Identity: identity,
		Assets:   assets,
		Metrics:  m,
		Logger:   logger,
	})

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		grpc:     gs.NewGRPCServer(c.EndpointAddrGRPC, logger, assets, authority, m,
			gs.WithMaxPayload(c.MaxAssetSize)),
		http:     httpapi.NewHTTPServer(c.EndpointAddrHTTP, router, logger),
	}, nil
}

// Run serves gRPC and HTTP until ctx is done or either server fails, then
// stops both and closes the database.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")
	defer app.db.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.grpc.Run(ctx) })
	g.Go(func() error { return app.http.Run(ctx) })

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}
