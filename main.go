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

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/heygw44/snapstock/handlers"
	"github.com/heygw44/snapstock/internal/auth"
	"github.com/heygw44/snapstock/internal/config"
	"github.com/heygw44/snapstock/internal/database"
	"github.com/heygw44/snapstock/internal/events"
	"github.com/heygw44/snapstock/internal/password"
	"github.com/heygw44/snapstock/internal/sessions"
	"github.com/heygw44/snapstock/internal/tokens"
	"github.com/heygw44/snapstock/internal/users"
	"github.com/heygw44/snapstock/pkg/logger"
	"github.com/heygw44/snapstock/pkg/metrics"
	"github.com/heygw44/snapstock/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL is read directly so config loading itself can be traced.
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Infow("config loaded", "mongo", cfg.MongoDB.URI != "", "redis", cfg.Redis.Addr() != "", "env", cfg.Server.Environment)

	ctx := context.Background()

	// Redis holds sessions, the shared rate limiter and the event stream when available.
	var redisClient *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		c := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = c.Close()
		} else {
			logger.Infof("connected to Redis: %s", addr)
			redisClient = c
			defer func() { _ = redisClient.Close() }()
		}
	}

	var mongoDB *mongo.Database
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, time.Second)
		if err != nil {
			logger.Warnf("could not connect to MongoDB: %v", err)
		} else {
			defer func() { _ = client.Disconnect(context.Background()) }()
			mongoDB = client.Database(cfg.MongoDB.Database)
		}
	}

	store, err := newSessionStore(ctx, redisClient, mongoDB)
	if err != nil {
		logger.Fatalf("session store: %v", err)
	}

	var userRepo users.Repository
	if mongoDB != nil {
		repo := users.NewMongoRepository(mongoDB)
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Fatalf("user indexes: %v", err)
		}
		userRepo = repo
	} else {
		logger.Warn("MongoDB unavailable: accounts are kept in memory and lost on restart")
		userRepo = users.NewMemoryRepository()
	}

	codec, err := tokens.NewCodec(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	if err != nil {
		logger.Fatalf("token codec: %v", err)
	}

	publisher, closePublisher := newEventPublisher(cfg, redisClient)
	hasher := password.NewHasher(bcrypt.DefaultCost)
	authSvc := auth.NewService(codec, store, userRepo, hasher, publisher)
	userSvc := users.NewService(userRepo, hasher)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins, cfg.CORS.AllowCredentials))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.Authenticate(auth.NewAuthenticator(codec, store)))

	var limit []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			limit = append(limit, middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			limit = append(limit, middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps := gin.H{"sessions": true, "users": mongoDB != nil}
		uptime := time.Since(startTime).String()
		if err := store.Ping(pingCtx); err != nil {
			logger.Warnw("readiness check failed", "dep", "sessions", "err", err)
			deps["sessions"] = false
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1")
	authHandler := handlers.NewAuthHandler(authSvc, userSvc, handlers.CookieSettings{
		Secure: cfg.Cookie.Secure,
		MaxAge: cfg.JWT.RefreshTokenTTL,
	})
	authHandler.Register(api, limit...)
	handlers.NewUserHandler(authSvc, userSvc, authHandler).Register(api)
	handlers.RegisterAdmin(api)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting auth service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	// The stream publisher also closes the shared Redis client, so it must run
	// after the server has drained.
	if err := closePublisher(); err != nil {
		logger.Warnf("closing event publisher: %v", err)
	}
}

// newSessionStore prefers Redis and falls back to MongoDB.
func newSessionStore(ctx context.Context, client *redis.Client, db *mongo.Database) (sessions.Store, error) {
	if client != nil {
		logger.Info("using Redis for session storage")
		return sessions.NewRedisStore(client, ""), nil
	}
	if db != nil {
		store := sessions.NewMongoStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		logger.Info("using MongoDB for session storage")
		return store, nil
	}
	return nil, errors.New("neither Redis nor MongoDB is available")
}

// newEventPublisher streams session events to Redis when enabled. The returned
// func closes the underlying stream publisher.
func newEventPublisher(cfg *config.Config, client *redis.Client) (events.Publisher, func() error) {
	noop := func() error { return nil }
	if !cfg.Events.Enabled {
		return events.NoopPublisher{}, noop
	}
	if client == nil {
		logger.Warn("EVENTS_ENABLED is set but Redis is unavailable; session events are dropped")
		return events.NoopPublisher{}, noop
	}
	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: client},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		logger.Warnf("failed to create event publisher: %v", err)
		return events.NoopPublisher{}, noop
	}
	wp := events.NewWatermillPublisher(pub)
	return wp, wp.Close
}
