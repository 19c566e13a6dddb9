package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizhive/quizroom-backend/internal/cache"
	"github.com/quizhive/quizroom-backend/internal/config"
	"github.com/quizhive/quizroom-backend/internal/database"
	"github.com/quizhive/quizroom-backend/internal/handler"
	"github.com/quizhive/quizroom-backend/internal/logger"
	"github.com/quizhive/quizroom-backend/internal/repository"
	"github.com/quizhive/quizroom-backend/internal/router"
	"github.com/quizhive/quizroom-backend/internal/service"
	"github.com/quizhive/quizroom-backend/internal/validator"
	"github.com/quizhive/quizroom-backend/internal/worker"
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
		Msg("Starting QuizRoom Backend")

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
	roomRepo := repository.NewRoomRepository(pool)
	linkRepo := repository.NewRoomQuestionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	tracker := cache.NewSessionTracker(rdb)
	identityService := service.NewIdentityService(cfg)
	roomService := service.NewRoomService(roomRepo, linkRepo, tracker, log)
	linkService := service.NewRoomQuestionService(roomRepo, linkRepo, catalogRepo, log)
	sessionService := service.NewSessionService(roomRepo, linkRepo, catalogRepo, answerRepo, rdb, tracker, log)
	answerService := service.NewAnswerService(roomRepo, linkRepo, catalogRepo, answerRepo, rdb, tracker, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Room:         handler.NewRoomHandler(roomService),
		RoomQuestion: handler.NewRoomQuestionHandler(linkService),
		Session:      handler.NewSessionHandler(sessionService),
		Participant:  handler.NewParticipantHandler(roomService, sessionService, answerService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	activityWorker := worker.NewActivityWorker(pool, rdb, log)
	go activityWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(identityService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 2. Stop background workers and wait for the queue to flush.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
