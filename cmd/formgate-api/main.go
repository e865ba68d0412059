package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"formgate/internal/api"
	"formgate/internal/config"
	"formgate/internal/db"
	"formgate/internal/jobs"
	"formgate/internal/mail"
	"formgate/internal/pubsub"
	"formgate/internal/quota"
	"formgate/internal/ratelimit"
	"formgate/internal/schema"
	"formgate/internal/service"
	"formgate/internal/storage"
	"formgate/internal/ws"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "migrate" || os.Args[1] == "goose-migrate") {
		if err := runMigrations(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		os.Exit(0)
	}
	if len(os.Args) > 1 && os.Args[1] != "serve" {
		log.Fatalf("Unknown command: %s (use 'serve' or 'migrate')", os.Args[1])
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	dbPool, err := db.NewPool(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	limits := quota.Limits{
		InvitationsSent: cfg.DailySendLimit,
		AISuggestions:   cfg.DailySuggestionLimit,
	}
	rateCfg := ratelimit.Config{
		RequestsPerWindow: cfg.PublicRatePerMinute,
		Window:            cfg.PublicRateWindow,
	}

	// Quota and rate limiting run on Redis when configured and fall
	// back to in-process stores otherwise. Callers only ever see the
	// interfaces; this is the single startup-time capability check.
	var (
		rdb       *redis.Client
		ledger    quota.Ledger
		limiter   ratelimit.Limiter
		jobServer *jobs.JobServer
		jobClient service.JobClient
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		ledger = quota.NewRedisLedger(rdb, limits)
		limiter = ratelimit.NewRedisLimiter(rdb, rateCfg)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory quota and rate limiting")
		ledger = quota.NewMemoryLedger(limits)
		limiter = ratelimit.NewMemoryLimiter(rateCfg)
	}

	bus := pubsub.New(rdb, logger)

	hub := ws.NewHub(logger)
	go hub.Run()
	bus.SetWSHub(hub)

	var store storage.Storage
	switch cfg.StorageBackend {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), storage.S3Options{
			Endpoint:       cfg.S3Endpoint,
			Region:         cfg.S3Region,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Bucket:         cfg.S3Bucket,
			ForcePathStyle: true,
		})
		if err != nil {
			logger.Fatal("Failed to initialize S3 storage", zap.Error(err))
		}
	default:
		store, err = storage.NewLocalStorage(cfg.StorageBaseDir, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal("Failed to initialize local storage", zap.Error(err))
		}
	}

	compiler := schema.NewCompilerWithCache(64)
	templateSvc := service.NewTemplateService(dbPool.Queries)
	invitationSvc := service.NewInvitationService(dbPool.Queries, ledger, mail.NewLogSender(logger), bus, service.InvitationConfig{
		TTL:        cfg.InvitationTTL,
		PublicBase: cfg.PublicBaseURL,
	}, logger)
	responseSvc := service.NewResponseService(dbPool.Queries, compiler, invitationSvc, bus, logger)
	exportSvc := service.NewExportService(dbPool.Queries)
	suggestSvc := service.NewSuggestService(service.RuleSuggester{}, ledger)

	if rdb != nil {
		jobServer, jobClient = newJobStack(cfg.RedisAddr, dbPool, bus, logger)
		invitationSvc.SetJobClient(jobClient)
		defer jobServer.Stop()
	} else {
		// No asynq without Redis; a local ticker keeps expiry moving.
		go runLocalSweep(dbPool, logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Timeout middleware, skipped for WebSocket upgrades.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, req)
				return
			}
			middleware.Timeout(60 * time.Second)(next).ServeHTTP(w, req)
		})
	})

	r.Mount("/v1", api.Routes(api.Dependencies{
		DB:          dbPool,
		Log:         logger,
		Templates:   templateSvc,
		Invitations: invitationSvc,
		Responses:   responseSvc,
		Export:      exportSvc,
		Suggest:     suggestSvc,
		Quota:       ledger,
		Limiter:     limiter,
		Hub:         hub,
		Storage:     store,
		Policy:      storage.DefaultUploadPolicy(),
		JWTSecret:   cfg.JWTSecret,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	logger.Info("Starting server", zap.String("addr", cfg.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func newJobStack(redisAddr string, dbPool *db.Pool, bus *pubsub.Bus, logger *zap.Logger) (*jobs.JobServer, service.JobClient) {
	jobServer, client := jobs.NewJobServer(redisAddr, dbPool, bus, logger)
	go func() {
		if err := jobServer.Start(); err != nil {
			logger.Fatal("Job server failed", zap.Error(err))
		}
	}()
	return jobServer, service.NewAsynqJobClient(client)
}

func runLocalSweep(dbPool *db.Pool, logger *zap.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		ids, err := dbPool.Queries.ExpireOverdueInvitations(context.Background())
		if err != nil {
			logger.Error("Expiry sweep failed", zap.Error(err))
			continue
		}
		if len(ids) > 0 {
			logger.Info("Expiry sweep completed", zap.Int("expired", len(ids)))
		}
	}
}
