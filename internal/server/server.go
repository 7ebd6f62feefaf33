package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/sunny18-max/crowdfunding-sub001/internal/auth"
	"github.com/sunny18-max/crowdfunding-sub001/internal/campaign"
	"github.com/sunny18-max/crowdfunding-sub001/internal/config"
	"github.com/sunny18-max/crowdfunding-sub001/internal/ledger"
	"github.com/sunny18-max/crowdfunding-sub001/internal/notify"
	"github.com/sunny18-max/crowdfunding-sub001/internal/pledge"
	"github.com/sunny18-max/crowdfunding-sub001/internal/user"
	"github.com/sunny18-max/crowdfunding-sub001/internal/wallet"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService)

	walletRepo := wallet.NewRepository(db)
	walletHandler := wallet.NewHandler(walletRepo)

	ledgerRepo := ledger.NewRepository(db)
	ledgerService := ledger.NewService(ledgerRepo, notifier)

	campaignRepo := campaign.NewRepository(db)
	campaignService := campaign.NewService(campaignRepo, ledgerService)
	campaignHandler := campaign.NewHandler(campaignService)

	pledgeRepo := pledge.NewRepository(db)
	pledgeService := pledge.NewService(pledgeRepo, userRepo, notifier)
	pledgeHandler := pledge.NewHandler(pledgeService)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
	}

	authMiddleware := auth.Middleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/wallet", walletHandler.GetBalance)
		protected.POST("/wallet/topup", walletHandler.TopUp)
		protected.POST("/wallet/withdraw", walletHandler.Withdraw)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)

		protected.GET("/campaigns", campaignHandler.List)
		protected.POST("/campaigns", campaignHandler.Create)
		protected.GET("/campaigns/:campaignID", campaignHandler.Get)
		protected.GET("/campaigns/:campaignID/stats", campaignHandler.GetStats)

		protected.POST("/pledges", pledgeHandler.Create)
		protected.GET("/pledges", pledgeHandler.ListMine)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/campaigns/:campaignID/fail", campaignHandler.Fail)
		admin.POST("/campaigns/:campaignID/complete", campaignHandler.Complete)
		admin.POST("/campaigns/:campaignID/cancel", campaignHandler.Cancel)
		admin.GET("/campaigns/:campaignID/pledges", pledgeHandler.ListByCampaign)
		admin.GET("/wallets/:userID/verify", walletHandler.Verify)
		admin.POST("/reconcile", ReconcileHandler(ledgerService))
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
