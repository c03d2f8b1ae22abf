package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/perks/internal/account"
	accountdomain "github.com/smallbiznis/perks/internal/account/domain"
	"github.com/smallbiznis/perks/internal/config"
	obsmiddleware "github.com/smallbiznis/perks/internal/observability/logger"
	obstracing "github.com/smallbiznis/perks/internal/observability/tracing"
	"github.com/smallbiznis/perks/internal/offer"
	offerdomain "github.com/smallbiznis/perks/internal/offer/domain"
	"github.com/smallbiznis/perks/internal/reward"
	rewarddomain "github.com/smallbiznis/perks/internal/reward/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	account.Module,
	reward.Module,
	offer.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware())
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	return NewEngine(cfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
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
	engine     *gin.Engine
	cfg        config.Config
	genID      *snowflake.Node
	accountSvc accountdomain.Service
	rewardSvc  rewarddomain.Service
	offerSvc   offerdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	GenID      *snowflake.Node
	AccountSvc accountdomain.Service
	RewardSvc  rewarddomain.Service
	OfferSvc   offerdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		genID:      p.GenID,
		accountSvc: p.AccountSvc,
		rewardSvc:  p.RewardSvc,
		offerSvc:   p.OfferSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Accounts --------
	api.POST("/accounts", s.CreateAccount)
	api.GET("/accounts", s.ListAccounts)
	api.GET("/accounts/:id", s.GetAccountByID)

	// -------- Rewards --------
	api.GET("/rewards/dashboard/:accountId", s.GetRewardDashboard)
	api.GET("/rewards/history/:accountId", s.GetRewardHistory)
	api.GET("/rewards/stats/:accountId", s.GetRewardStats)
	api.POST("/rewards/add", s.AddPoints)
	api.POST("/rewards/deduct", s.DeductPoints)
	api.POST("/rewards/redeem", s.RedeemPoints)

	// -------- Tickets --------
	api.POST("/tickets/confirm", s.ConfirmTicketPurchase)

	// -------- Offers --------
	api.POST("/offers", s.CreateOffer)
	api.GET("/offers", s.ListOffers)
	api.GET("/offers/:id", s.GetOfferByID)
	api.PATCH("/offers/:id", s.UpdateOffer)
	api.DELETE("/offers/:id", s.DeactivateOffer)
	api.POST("/offers/:id/redeem", s.RedeemOffer)
	api.GET("/offers/:id/redemptions", s.ListOfferRedemptions)
}
