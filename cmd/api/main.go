package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "leaseflow/api/swagger" // swagger docs
	"leaseflow/internal/config"
	"leaseflow/internal/database"
	"leaseflow/internal/handler"
	"leaseflow/internal/logger"
	"leaseflow/internal/middleware"
	"leaseflow/internal/notify"
	"leaseflow/internal/repository"
	"leaseflow/internal/repository/memstore"
	"leaseflow/internal/service"
	"leaseflow/internal/telemetry"
	"leaseflow/internal/validation"
	"leaseflow/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Leaseflow API
// @version         1.0
// @description     Equipment leasing application lifecycle: applications, offers, contracts and notifications.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format).WithFields(map[string]interface{}{
		"app": cfg.App.Name,
		"env": cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("Server stopped with error", nil)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	tracing, err := telemetry.NewProvider(ctx, cfg.App, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() { _ = tracing.Shutdown(context.Background()) }()

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}

	// Unread counter cache is optional.
	var counter notify.UnreadCounter = notify.NopCounter{}
	if cfg.Database.Redis.Address != "" {
		client, err := notify.NewRedisClient(ctx, cfg.Database.Redis.Address, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = client.Close() }()
		counter = notify.NewRedisCounter(client, cfg.Database.Redis.TTL, log)
		log.Info("Unread counter cache enabled", map[string]interface{}{"address": cfg.Database.Redis.Address})
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log, cfg.Server.AllowedOrigins)
	go wsHub.Run(ctx)

	channels := []notify.Channel{notify.NewPushChannel(wsHub)}
	awsChannels, err := notify.AWSChannels(ctx, cfg.Notifications)
	if err != nil {
		return err
	}
	channels = append(channels, awsChannels...)

	deps := service.Deps{
		Store:         store,
		Counter:       counter,
		Deliverer:     notify.NewDeliverer(counter, log, channels...),
		Log:           log,
		AsyncDelivery: true,
	}
	validator := validation.MustNew()

	// Set up dependencies (Store -> Service -> Handler)
	userService := service.NewUserService(deps)
	applicationService := service.NewApplicationService(deps)
	lifecycleService := service.NewLifecycleService(deps)
	contractService := service.NewContractService(deps)
	notificationService := service.NewNotificationService(deps)
	auditService := service.NewAuditService(deps)
	statisticsService := service.NewStatisticsService(deps)
	auth := middleware.NewAuth(cfg.Auth.JWTSecret, userService, log)

	if cfg.Auth.BootstrapAdminEmail != "" {
		admin, err := userService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminEmail)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info("Bootstrap admin ready", map[string]interface{}{"user_id": admin.ID.String(), "email": admin.Email})
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "store": cfg.Store.Driver})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, auth, c)
	})

	handler.NewPublicHandler(applicationService, validator, log).RegisterRoutes(router.Group(""))

	api := router.Group("", auth.Authenticate())
	handler.NewApplicationHandler(applicationService, lifecycleService, validator, log).RegisterRoutes(api)
	handler.NewContractHandler(contractService, validator, log).RegisterRoutes(api)
	handler.NewNotificationHandler(notificationService, log).RegisterRoutes(api)
	handler.NewUserHandler(userService, validator, log).RegisterRoutes(api)
	handler.NewAuditHandler(auditService, log).RegisterRoutes(api)
	handler.NewStatisticsHandler(statisticsService, log).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", map[string]interface{}{"port": cfg.Server.Port, "store": cfg.Store.Driver})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config, log logger.Logger) (*repository.Store, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warn("Using the in-memory store; data is lost on restart", nil)
		return memstore.New(), nil
	}

	db, err := database.NewConnection(cfg.Database.Postgres)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.Migrate(db, log); err != nil {
		return nil, err
	}
	log.Info("Connected to PostgreSQL", map[string]interface{}{
		"host":     cfg.Database.Postgres.Host,
		"database": cfg.Database.Postgres.Database,
	})
	return repository.NewGormStore(db), nil
}
