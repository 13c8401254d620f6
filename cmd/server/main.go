package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coneflip/overlay-server-go/internal/clock"
	"github.com/coneflip/overlay-server-go/internal/config"
	"github.com/coneflip/overlay-server-go/internal/database"
	"github.com/coneflip/overlay-server-go/internal/dedup"
	"github.com/coneflip/overlay-server-go/internal/handler"
	"github.com/coneflip/overlay-server-go/internal/hub"
	"github.com/coneflip/overlay-server-go/internal/jobs"
	"github.com/coneflip/overlay-server-go/internal/middleware"
	"github.com/coneflip/overlay-server-go/internal/redis"
	"github.com/coneflip/overlay-server-go/internal/repository"
	"github.com/coneflip/overlay-server-go/internal/scheduler"
	"github.com/coneflip/overlay-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	clk := clock.Real()

	var credentialRepo repository.CredentialRepository
	switch cfg.CredentialBackend {
	case config.CredentialBackendPostgres:
		credentialRepo = repository.NewPostgresCredentialRepository(db.DB)
	default:
		credentialRepo = repository.NewFileCredentialRepository(cfg.CredentialFile, cfg.EncryptionKey)
	}
	statsRepo := repository.NewStatsRepository(db.DB)
	inventoryRepo := repository.NewInventoryRepository(db.DB)

	credentials := service.NewCredentialStore(credentialRepo, clk)
	if err := credentials.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize access credential")
	}
	binder := service.NewSessionBinder(credentials, clk)

	sched := scheduler.New(clk)
	registry := hub.NewRegistry()

	chat := service.NewChatService(cfg.ChatWebhookURL, cfg.ChatWebhookToken)
	if !chat.Enabled() {
		log.Warn().Msg("chat webhook not configured: announcements disabled")
	}
	effects := service.NewPendingEffectTracker(sched, registry, chat, cfg.EffectFallback(), cfg.AnnounceDelay())

	memoryDedup := dedup.NewMemory(clk, cfg.DedupTTL())
	var dedupStore dedup.Store = memoryDedup
	if cfg.DedupBackend == config.DedupBackendRedis {
		dedupStore = dedup.NewRedis(redisClient.Client, cfg.DedupTTL(), memoryDedup)
	}

	scoring := service.NewScoringService(db, statsRepo)
	unbox := service.NewUnboxService(service.NewLootTable(service.DefaultLootTable, nil), inventoryRepo, effects)
	admin := service.NewAdminAuthenticator(cfg.AdminSecret, cfg.AdminSecretHash)

	overlayHub := hub.New(hub.Deps{
		Registry:    registry,
		Credentials: credentials,
		Binder:      binder,
		Effects:     effects,
		Dedup:       dedupStore,
		Scorer:      scoring,
		Announcer:   chat,
		Admin:       admin,
		Clock:       clk,
	})

	rateLimiter := service.NewRateLimiter(redisClient.Client)
	adminAuthMiddleware := middleware.NewAdminAuthMiddleware(admin)
	adminRateLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		rateLimiter, config.AdminRateLimitPerMin, config.AdminRateLimitWindow, "admin",
	)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	adminHeaders := middleware.NewSecurityHeadersMiddleware(isProduction, false)
	overlayHeaders := middleware.NewSecurityHeadersMiddleware(isProduction, true)

	wsHandler := handler.NewWebSocketHandler(overlayHub, cfg.AllowedOrigins)
	adminHandler := handler.NewAdminHandler(overlayHub, credentials, unbox)
	apiHandler := handler.NewAPIHandler(scoring, unbox)
	pingRedis := func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}
	healthHandler := handler.NewHealthHandler(map[string]handler.PingFunc{
		"database": db.Ping,
		"redis":    pingRedis,
	})

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	// Long-lived; kept outside the request timeout.
	r.Get("/ws", wsHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(bodyLimitMiddleware.Handler)

		r.Get("/health", healthHandler.ServeHTTP)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/overlay/", http.StatusFound)
		})

		r.Mount("/api", apiHandler.Routes())

		r.Route("/admin/api", func(r chi.Router) {
			r.Use(adminHeaders.Handler)
			r.Use(adminRateLimitMiddleware.Handler)
			r.Use(adminAuthMiddleware.Handler)
			r.Mount("/", adminHandler.Routes())
		})

		r.With(overlayHeaders.Handler).Get("/overlay/*", handler.NewSPAHandler(cfg.StaticDir, "/overlay").ServeHTTP)
	})

	cleanupJob := jobs.NewCleanupJob(clk, config.CleanupJobInterval,
		jobs.Sweeper{Name: "idempotency keys", Sweep: dedupStore.Sweep},
		jobs.Sweeper{Name: "pending effects", Sweep: func(context.Context) (int64, error) {
			stats := effects.Stats()
			log.Debug().
				Int("pending", stats.Pending).
				Int64("confirmed", stats.Confirmed).
				Int64("fallbacks", stats.Fallbacks).
				Msg("pending effects")
			return 0, nil
		}},
	)
	cleanupJob.Start()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	// Hijacked websocket connections are not tracked by Shutdown; close
	// them through the hub first.
	overlayHub.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	cleanupJob.Stop()
	if n := effects.Flush(); n > 0 {
		log.Info().Int("effects", n).Msg("flushed pending effect announcements")
	}
	sched.Stop()
	overlayHub.WaitAnnouncements()

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
