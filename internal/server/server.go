package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallsites/sitebill/internal/access"
	"github.com/smallsites/sitebill/internal/clock"
	"github.com/smallsites/sitebill/internal/config"
	ledgerdomain "github.com/smallsites/sitebill/internal/ledger/domain"
	"github.com/smallsites/sitebill/internal/observability"
	obslogger "github.com/smallsites/sitebill/internal/observability/logger"
	obsmetrics "github.com/smallsites/sitebill/internal/observability/metrics"
	obstracing "github.com/smallsites/sitebill/internal/observability/tracing"
	"github.com/smallsites/sitebill/internal/override"
	"github.com/smallsites/sitebill/internal/ratelimit"
	"github.com/smallsites/sitebill/internal/reconcile"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
	"github.com/smallsites/sitebill/internal/resolver"
	snapshotdomain "github.com/smallsites/sitebill/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Log:             log,
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	return NewEngine(obsCfg, log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	log            *zap.Logger
	clock          clock.Clock
	genID          *snowflake.Node
	registrySvc    registrydomain.Service
	ledgerRepo     ledgerdomain.Repository
	snapshotRepo   snapshotdomain.Repository
	resolverSvc    resolver.Service
	overrideSvc    override.Service
	accessGate     access.Gate
	dispatcher     *reconcile.Dispatcher
	obsMetrics     *obsmetrics.Metrics
	webhookLimiter *ratelimit.WebhookLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	GenID        *snowflake.Node
	RegistrySvc  registrydomain.Service
	LedgerRepo   ledgerdomain.Repository
	SnapshotRepo snapshotdomain.Repository
	ResolverSvc  resolver.Service
	OverrideSvc  override.Service
	AccessGate   access.Gate
	Dispatcher   *reconcile.Dispatcher
	ObsMetrics   *obsmetrics.Metrics       `optional:"true"`
	Limiter      *ratelimit.WebhookLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		log:            p.Log.Named("server"),
		clock:          p.Clock,
		genID:          p.GenID,
		registrySvc:    p.RegistrySvc,
		ledgerRepo:     p.LedgerRepo,
		snapshotRepo:   p.SnapshotRepo,
		resolverSvc:    p.ResolverSvc,
		overrideSvc:    p.OverrideSvc,
		accessGate:     p.AccessGate,
		dispatcher:     p.Dispatcher,
		obsMetrics:     p.ObsMetrics,
		webhookLimiter: p.Limiter,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/signup", s.Signup)
	api.GET("/billing/status", s.BillingStatus)
	api.POST("/billing/link", s.LinkSubscription)
	api.GET("/access/:siteId", s.AccessDecision)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/v1/admin")

	admin.POST("/override", s.AdminOverride)
	admin.GET("/snapshots", s.AdminAuthRequired(), s.AdminListSnapshots)
}
