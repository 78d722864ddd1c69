package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/cat"
	"github.com/stemsi/exstem-adaptive/internal/config"
	"github.com/stemsi/exstem-adaptive/internal/database"
	"github.com/stemsi/exstem-adaptive/internal/handler"
	"github.com/stemsi/exstem-adaptive/internal/logger"
	"github.com/stemsi/exstem-adaptive/internal/middleware"
	"github.com/stemsi/exstem-adaptive/internal/repository"
	"github.com/stemsi/exstem-adaptive/internal/router"
	"github.com/stemsi/exstem-adaptive/internal/service"
	"github.com/stemsi/exstem-adaptive/internal/validator"
	"github.com/stemsi/exstem-adaptive/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Int("max_session_questions", cfg.MaxSessionQuestions).
		Msg("Starting adaptive testing engine")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	store := repository.NewStore(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	tokenService := service.NewTokenService(cfg.JWTSecret)
	bankService := service.NewQuestionBankService(store.Questions, store.Assessments, rdb, cfg.PoolCacheTTL, log)
	sessionService := service.NewAdaptiveSessionService(
		service.NewUnitOfWork(store),
		cat.NewSelector(bankService),
		service.NewRedisItemStatsRecorder(rdb),
		service.SessionOptions{
			MaxQuestions:   cfg.MaxSessionQuestions,
			DefaultMastery: cfg.DefaultMastery,
		},
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRatePerMinute, time.Minute)
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(sessionService, log),
		WS:      handler.NewWSHandler(sessionService, submitLimiter, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	statsWorker := worker.NewItemStatsWorker(pool, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		statsWorker.Start(workerCtx)
	}()

	limiterStop := make(chan struct{})
	go submitLimiter.Run(limiterStop)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all adaptive pools into Redis BEFORE accepting traffic.
	if err := bankService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokenService, submitLimiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	close(limiterStop)

	// 2. Stop background workers and wait for the pending batch to flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
