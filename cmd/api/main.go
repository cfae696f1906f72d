package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradepilot/backend/internal/config"
	"tradepilot/backend/internal/handler"
	"tradepilot/backend/internal/middleware"
	"tradepilot/backend/internal/repository"
	"tradepilot/backend/internal/service"
	"tradepilot/backend/pkg/advisor"
	"tradepilot/backend/pkg/broker"
	"tradepilot/backend/pkg/jwt"
	"tradepilot/backend/pkg/logger"
	"tradepilot/backend/pkg/redis"
)

func main() {
	// .env is optional; real deployments use environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().Fatal("failed to load configuration", err)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.GetLogger()

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	redisClient, err := redis.New(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("failed to connect to Redis", err)
	}
	defer redisClient.Close()

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)

	brokerClient := broker.NewClient(cfg.Broker.LiveURL, cfg.Broker.PaperURL,
		cfg.Broker.APIKey, cfg.Broker.APISecret)
	advisorClient := advisor.NewClient(cfg.Advisor.BaseURL, cfg.Advisor.APIKey)

	botRepo := repository.NewBotRepository(redisClient)
	tradeRepo := repository.NewTradeRepository(redisClient)

	hub := service.NewWSHub()
	go hub.Run()

	notifier := service.NewNotificationService(hub)
	gateway := service.NewBrokerGateway(brokerClient)
	signals := service.NewSignalService(advisorClient)

	scheduler := service.NewBotScheduler(botRepo, tradeRepo, gateway, signals, notifier)
	botService := service.NewBotService(botRepo, tradeRepo, scheduler)

	sessionMonitor := service.NewSessionMonitor(gateway, scheduler, time.Minute)
	sessionMonitor.Start()
	defer sessionMonitor.Stop()

	botHandler := handler.NewBotHandler(botService, scheduler)
	marketHandler := handler.NewMarketHandler(gateway, signals)
	wsHandler := handler.NewWSHandler(hub, jwtManager)
	healthHandler := handler.NewHealthHandler(redisClient)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", wsHandler.Connect)

	api := router.Group("/api")
	api.Use(middleware.Auth(jwtManager))
	api.Use(middleware.RateLimit(redisClient, cfg.RateLimit.RequestsPerMinute))
	{
		bots := api.Group("/bots")
		{
			bots.POST("", botHandler.Create)
			bots.GET("", botHandler.List)
			bots.POST("/mode", botHandler.SetMode)
			bots.GET("/:id", botHandler.Get)
			bots.PUT("/:id", botHandler.Update)
			bots.DELETE("/:id", botHandler.Delete)
			bots.POST("/:id/start", botHandler.Start)
			bots.POST("/:id/pause", botHandler.Pause)
			bots.PATCH("/:id/interval", botHandler.UpdateInterval)
			bots.GET("/:id/logs", botHandler.Logs)
			bots.GET("/:id/scans", botHandler.Scans)
			bots.GET("/:id/trades", botHandler.Trades)
			bots.GET("/:id/equity", botHandler.Equity)
		}

		market := api.Group("/market")
		{
			market.GET("/quote/:symbol", marketHandler.Quote)
			market.GET("/history/:symbol", marketHandler.History)
			market.GET("/account", marketHandler.Account)
			market.GET("/signal/:symbol", marketHandler.Signal)
		}
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Server listening on %s", cfg.Server.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	scheduler.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", err)
	}

	log.Info("Server stopped")
}
