package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/clubhub/internal/api"
	"github.com/hugh/clubhub/internal/api/middleware"
	"github.com/hugh/clubhub/internal/auth"
	"github.com/hugh/clubhub/internal/database"
	"github.com/hugh/clubhub/internal/directory"
	"github.com/hugh/clubhub/internal/metrics"
	"github.com/hugh/clubhub/internal/tasks"
	"github.com/hugh/clubhub/internal/web"
	"github.com/hugh/clubhub/pkg/config"
	"github.com/hugh/clubhub/pkg/crypto"
	"github.com/hugh/clubhub/pkg/queue"
	"github.com/hugh/clubhub/pkg/util"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting clubhub server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Schema is owned by cmd/migrate. AutoMigrate is a development shortcut.
	if cfg.Server.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Redis is optional: without it the college backfill runs in process.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, running backfill in process", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	var (
		backfiller  auth.Backfiller
		asynqClient *asynq.Client
		local       *auth.LocalBackfiller
	)
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		backfiller = tasks.NewDispatcher(asynqClient, cfg.Backfill.Delay(), cfg.Backfill.MaxRetry)
	} else {
		local = auth.NewLocalBackfiller(auth.NewCollegeLinker(db), cfg.Backfill.Delay(), cfg.Backfill.MaxRetry, logger, m)
		backfiller = local
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if cfg.Encryption.Key == "" {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - stored provider tokens will be unreadable after restart", "hint", "go run ./cmd/migrate -genkey")
	}

	authService := auth.NewService(db, auth.ServiceDeps{
		Backfiller: backfiller,
		Encryptor:  encryptor,
		Metrics:    m,
		Logger:     logger,
		SessionTTL: cfg.Session.TTL(),
	})
	directoryService := directory.NewService(db, m)

	if cfg.OAuth.GitHubClientID == "" {
		logger.Warn("GITHUB_CLIENT_ID not set, sign-in will fail")
	}
	providers := map[string]auth.Provider{
		"github": auth.NewGitHubProvider(cfg.OAuth.GitHubClientID, cfg.OAuth.GitHubClientSecret, cfg.OAuth.CallbackURL("github")),
	}

	templates, err := web.LoadTemplates()
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	staticFS, err := web.GetStaticFS()
	if err != nil {
		logger.Error("failed to get static fs", "error", err)
		os.Exit(1)
	}

	csrfStore := middleware.NewCSRFStore(cfg.Session.CookieName)

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		AuthService:    authService,
		Directory:      directoryService,
		State:          auth.NewStateService(cfg.OAuth.StateSecret, cfg.OAuth.StateTTL()),
		Providers:      providers,
		Metrics:        m,
		Gatherer:       reg,
		Templates:      templates,
		StaticFS:       staticFS,
		CSRFStore:      csrfStore,
		CookieName:     cfg.Session.CookieName,
		SecureCookie:   cfg.Session.SecureCookie,
		SessionTTL:     cfg.Session.TTL(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Cancels backfills still waiting on their delay.
	if local != nil {
		local.Close()
	}
	csrfStore.Close()
	router.Close()

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	if err := database.Close(db); err != nil {
		logger.Error("closing database failed", "error", err)
	}

	logger.Info("server stopped")
}
