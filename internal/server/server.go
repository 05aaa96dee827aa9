package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/draftforge/draftforge/internal/account"
	accountdomain "github.com/draftforge/draftforge/internal/account/domain"
	"github.com/draftforge/draftforge/internal/analytics"
	analyticsdomain "github.com/draftforge/draftforge/internal/analytics/domain"
	"github.com/draftforge/draftforge/internal/clock"
	"github.com/draftforge/draftforge/internal/config"
	"github.com/draftforge/draftforge/internal/generation"
	generationdomain "github.com/draftforge/draftforge/internal/generation/domain"
	"github.com/draftforge/draftforge/internal/generator"
	"github.com/draftforge/draftforge/internal/ledger"
	ledgerdomain "github.com/draftforge/draftforge/internal/ledger/domain"
	"github.com/draftforge/draftforge/internal/migration"
	"github.com/draftforge/draftforge/internal/observability"
	obsmiddleware "github.com/draftforge/draftforge/internal/observability/logger"
	obstracing "github.com/draftforge/draftforge/internal/observability/tracing"
	"github.com/draftforge/draftforge/internal/project"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
	"github.com/draftforge/draftforge/internal/ratelimit"
	"github.com/draftforge/draftforge/internal/usage"
	usagedomain "github.com/draftforge/draftforge/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	fx.Provide(registerGin),
	account.Module,
	ledger.Module,
	project.Module,
	generator.Module,
	generation.Module,
	usage.Module,
	analytics.Module,
	ratelimit.Module,
	migration.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
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

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	accountSvc    accountdomain.Service
	ledgerSvc     ledgerdomain.Service
	projectSvc    projectdomain.Service
	generationSvc generationdomain.Service
	usageSvc      usagedomain.Service
	analyticsSvc  analyticsdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	AccountSvc    accountdomain.Service
	LedgerSvc     ledgerdomain.Service
	ProjectSvc    projectdomain.Service
	GenerationSvc generationdomain.Service
	UsageSvc      usagedomain.Service
	AnalyticsSvc  analyticsdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		accountSvc:    p.AccountSvc,
		ledgerSvc:     p.LedgerSvc,
		projectSvc:    p.ProjectSvc,
		generationSvc: p.GenerationSvc,
		usageSvc:      p.UsageSvc,
		analyticsSvc:  p.AnalyticsSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/accounts", s.Signup)
	v1.GET("/accounts/:id", s.GetAccount)
	v1.GET("/accounts/:id/balance", s.GetBalance)
	v1.POST("/accounts/:id/deactivate", s.DeactivateAccount)
	v1.POST("/credits/grants", s.GrantCredits)

	v1.POST("/projects", s.CreateProject)
	v1.GET("/projects", s.ListProjects)
	v1.GET("/projects/:id", s.GetProject)
	v1.DELETE("/projects/:id", s.DeleteProject)

	v1.POST("/generations", s.StartGeneration)
	v1.GET("/generations", s.ListActiveGenerations)
	v1.GET("/generations/:id", s.GetGeneration)
	v1.POST("/generations/:id/accept", s.AcceptGeneration)
	v1.POST("/generations/:id/reject", s.RejectGeneration)
	v1.POST("/generations/regenerate", s.Regenerate)

	v1.GET("/usage/events", s.ListUsageEvents)
	v1.POST("/usage/:generation_id/engagement", s.UpdateEngagement)

	v1.GET("/dashboard", s.GetDashboard)
}
