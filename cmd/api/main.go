package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"miniapp-sync-backend/internal/common/config"
	"miniapp-sync-backend/internal/common/containment"
	"miniapp-sync-backend/internal/common/logger"
	"miniapp-sync-backend/internal/common/middleware"
	identitycache "miniapp-sync-backend/internal/features/identity/cache"
	identityprovider "miniapp-sync-backend/internal/features/identity/provider"
	identitysvc "miniapp-sync-backend/internal/features/identity/service"
	referralhttp "miniapp-sync-backend/internal/features/referral/delivery/http"
	"miniapp-sync-backend/internal/features/referral/events"
	referralredis "miniapp-sync-backend/internal/features/referral/repository/redis"
	referralsvc "miniapp-sync-backend/internal/features/referral/service"
	synchttp "miniapp-sync-backend/internal/features/sync/delivery/http"
	syncsvc "miniapp-sync-backend/internal/features/sync/service"
	userhttp "miniapp-sync-backend/internal/features/user/delivery/http"
	userredis "miniapp-sync-backend/internal/features/user/repository/redis"
	"miniapp-sync-backend/internal/features/user/writer"
	rplatform "miniapp-sync-backend/internal/platform/redis"
	tgplatform "miniapp-sync-backend/internal/platform/telegram"
	"miniapp-sync-backend/internal/service/notifications"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("miniapp-sync-backend", cfg.Debug)

	storeClient, err := rplatform.Open(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("store redis open failed")
	}
	defer storeClient.Close()

	cacheClient, err := rplatform.Open(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.CacheDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("cache redis open failed")
	}
	defer cacheClient.Close()

	// Side channels
	tgClient := tgplatform.NewClient(cfg.Telegram.BotToken)
	notifier := notifications.NewService(tgClient)
	publisher := events.NewPublisher(cfg.Referral.AMQPURL)

	// Containment is armed before anything that can fail is wired.
	containment.Install(cfg.Debug, containment.WrapNotifier(notifier))
	defer containment.Teardown()

	// Identity resolution and local cache
	resolver := identitysvc.NewResolver(
		identityprovider.NewInitDataProvider(cfg.Telegram.BotToken),
		identityprovider.NewRedisGuestStore(cacheClient),
	)
	idCache := identitycache.New(identitycache.NewRedisKV(cacheClient), cfg.Sync.CacheTTL)

	// Remote store and retry-safe writer
	store := userredis.NewStore(storeClient)
	safeWriter := writer.New(store, writer.Config{
		MaxAttempts: cfg.Sync.WriteMaxAttempts,
		BackoffBase: cfg.Sync.WriteBackoffBase,
		Timeout:     cfg.Sync.WriteTimeout,
	})

	// Referral workflow
	referralRepo := referralredis.NewRepository(storeClient)
	referrals := referralsvc.New(referralRepo, store, notifier, publisher, cfg.Referral.Bonus)

	orchestrator := syncsvc.NewOrchestrator(resolver, idCache, store, safeWriter, referrals, cfg.Sync.RunTimeout)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "init_data", "X-Device-ID"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	synchttp.NewHandler(orchestrator).Register(v1)
	userhttp.NewHandler(store).Register(v1)
	referralhttp.NewHandler(referrals).Register(v1)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	logger.Info().Msg("Server exited")
}
