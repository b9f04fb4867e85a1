package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"user-service/internal/users/adapters"
	"user-service/internal/users/application"
	"user-service/internal/users/infrastructure"
	"user-service/internal/users/ports"
	"user-service/pkg/auth"
	"user-service/pkg/cache"
	"user-service/pkg/config"
	"user-service/pkg/db"
	"user-service/pkg/logger"
	"user-service/pkg/middleware"
	"user-service/pkg/rabbitmq"
	"user-service/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	log.Info("starting user service")

	// Connect to database
	dbConn, err := db.NewConnection(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Timeout:  cfg.DBTimeout,
	})
	if err != nil {
		log.Fatal("failed to connect to database: " + err.Error())
	}
	log.Info("connected to database")

	// Initialize repository and run migrations
	pgRepo := adapters.NewPostgresUserRepository(dbConn)
	if err := pgRepo.Migrate(); err != nil {
		log.Fatal("failed to migrate database: " + err.Error())
	}

	// Optional read-through cache in front of the repository
	var repo ports.UserRepository = pgRepo
	if cfg.CacheEnabled {
		redisStore := cache.NewRedis(cfg.RedisAddr, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisStore.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, cache disabled: " + err.Error())
		} else {
			repo = adapters.NewCachedUserRepository(pgRepo, redisStore, cfg.CacheTTL, log)
			log.Info("user cache enabled", zap.String("redis_addr", cfg.RedisAddr))
		}
	}

	// Connect to RabbitMQ; events are best-effort, a missing broker only
	// disables them
	var publisher ports.EventPublisher
	var eventWorker *adapters.AMQPEventPublisher
	rabbitConn, err := rabbitmq.NewConnection(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("failed to connect to RabbitMQ, events will be disabled: " + err.Error())
	} else {
		defer rabbitConn.Close()
		pub, err := rabbitmq.NewPublisher(rabbitConn, cfg.UserExchange, log)
		if err != nil {
			log.Warn("failed to create publisher: " + err.Error())
		} else {
			eventWorker = adapters.NewAMQPEventPublisher(pub, log)
			publisher = eventWorker
		}
	}

	// Initialize the operation service
	svc := application.NewService(repo, publisher, cfg, log)

	// Announce the whole store once so fresh consumers can catch up
	if publisher != nil {
		loadCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		users, err := repo.GetAll(loadCtx)
		cancel()
		if err != nil {
			log.Error("initial load: failed to read users: " + err.Error())
		} else {
			publisher.PublishInitialLoad(users)
		}
	}

	// HTTP server
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	httpHandler := infrastructure.NewHTTPHandler(svc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	httpHandler.RegisterRoutes(router.Group(""), verifier, cfg, log)

	// Health check and metrics
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		var err error
		if cfg.TLSEnabled {
			tlsConfig, tlsErr := tls.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
			if tlsErr != nil {
				log.Fatal("failed to load TLS config: " + tlsErr.Error())
			}
			httpServer.TLSConfig = tlsConfig
			log.Info("HTTPS server listening on :" + cfg.HTTPPort)
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			log.Info("HTTP server listening on :" + cfg.HTTPPort)
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error: " + err.Error())
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: " + err.Error())
	}
	if eventWorker != nil {
		eventWorker.Close()
	}

	log.Info("server stopped")
}
