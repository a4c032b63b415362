// Package httpapi serves the identity provider's JSON API and read access
// to stored assets.
package httpapi

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/carvault/internal/logging"
	"github.com/dmitrijs2005/carvault/internal/server/metrics"
	"github.com/dmitrijs2005/carvault/internal/server/models"
	"github.com/dmitrijs2005/carvault/internal/server/services"
)

const (
	RegisterPath  = "/api/v1/register"
	SaltPath      = "/api/v1/salt"
	AuthorizePath = "/api/v1/authorize"
	HealthPath    = "/api/v1/healthz"
	MetricsPath   = "/metrics"
	AssetPath     = "/assets/:canister/*key"
)

type identityService interface {
	Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Authorize(ctx context.Context, username string, verifier []byte, sessionKey ed25519.PublicKey, maxTTL time.Duration) (*services.Delegation, error)
}

type assetReader interface {
	Get(ctx context.Context, canisterID, key string) (*models.Asset, []byte, error)
}

type Deps struct {
	Identity identityService
	Assets   assetReader
	Metrics  *metrics.Metrics
	Logger   logging.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = logging.Nop{}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(observe(deps.Metrics))
		r.GET(MetricsPath, gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET(HealthPath, func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	identity := &IdentityHandler{Service: deps.Identity, Metrics: deps.Metrics, Logger: deps.Logger}
	r.POST(RegisterPath, identity.Register)
	r.POST(SaltPath, identity.Salt)
	r.POST(AuthorizePath, identity.Authorize)

	if deps.Assets != nil {
		assets := &AssetHandler{Assets: deps.Assets}
		r.GET(AssetPath, assets.Download)
	}

	return r
}

func requestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Debug(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, c.Writer.Status())
	}
}
