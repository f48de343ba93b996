package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-scores/internal/config"
	"github.com/stemsi/exstem-scores/internal/database"
	"github.com/stemsi/exstem-scores/internal/handler"
	"github.com/stemsi/exstem-scores/internal/logger"
	"github.com/stemsi/exstem-scores/internal/middleware"
	"github.com/stemsi/exstem-scores/internal/repository"
	"github.com/stemsi/exstem-scores/internal/router"
	"github.com/stemsi/exstem-scores/internal/service"
	"github.com/stemsi/exstem-scores/internal/validator"
	"github.com/stemsi/exstem-scores/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.ForService(logger.Setup(cfg.LogLevel, cfg.LogFormat), cfg.ServiceName)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting scores service")

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
	userRepo := repository.NewUserRepository(pool)
	scoreRepo := repository.NewScoreRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, userRepo)
	userService := service.NewUserService(userRepo, authService, log)
	scoreService := service.NewScoreService(scoreRepo, rdb, log)
	statsService := service.NewStatisticsService(scoreRepo, rdb, cfg, log)
	dashboardService := service.NewDashboardService(userRepo, scoreRepo, rdb, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	redisPinger := handler.PingerFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, userService, log),
		User:       handler.NewUserHandler(userService, log),
		Score:      handler.NewScoreHandler(scoreService, log),
		Statistics: handler.NewStatisticsHandler(statsService, log),
		Dashboard:  handler.NewDashboardHandler(dashboardService, log),
		Activity:   handler.NewActivityHandler(rdb, log, cfg.AllowedOrigins),
		System:     handler.NewSystemHandler(pool, redisPinger, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	statsWorker := worker.NewStatisticsWorker(rdb, statsService, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		statsWorker.Start(workerCtx)
	}()

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	go authLimiter.Run(workerCtx.Done())

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, authLimiter)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	// 2. Stop background workers and wait for the pending batch to flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
