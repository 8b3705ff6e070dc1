package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/scythe504/andevent-backend/internal/config"
	"github.com/scythe504/andevent-backend/internal/database"
	"github.com/scythe504/andevent-backend/internal/game"
	"github.com/scythe504/andevent-backend/internal/publish"
	"github.com/scythe504/andevent-backend/internal/server"
	"github.com/scythe504/andevent-backend/internal/utils"
	"github.com/scythe504/andevent-backend/internal/websocket"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cfg.LogLevel,
		AddSource:  true,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("[main] server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.QuestionsCSV != "" {
		questions, err := utils.ReadQuestionsCSV(cfg.QuestionsCSV, logger)
		if err != nil {
			return fmt.Errorf("read questions: %w", err)
		}
		n, err := db.SeedQuestions(ctx, questions)
		if err != nil {
			return fmt.Errorf("seed questions: %w", err)
		}
		logger.Info("[run] seeded question bank", "file", cfg.QuestionsCSV, "inserted", n, "read", len(questions))
	}

	var pub publish.Publisher = publish.Nop{}
	if cfg.AMQPURL != "" {
		pub, err = publish.NewAMQP(cfg.AMQPURL, cfg.AMQPQueue, logger)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
	}
	defer pub.Close()

	tokens, err := game.NewTokenIssuer(cfg.TokenSecret, 0)
	if err != nil {
		return err
	}

	manager, err := game.NewManager(logger, db, game.Options{
		MaxPlayersPerRoom: cfg.MaxPlayersPerRoom,
		AllowLateJoin:     cfg.AllowLateJoin,
		HostGrace:         cfg.HostGrace,
		IdleTimeout:       cfg.IdleTimeout,
		EndedRetention:    cfg.EndedRetention,
		JanitorInterval:   cfg.JanitorInterval,
		Tokens:            tokens,
		Sinks: map[string]game.ResultSink{
			"database": db.SaveGameResult,
			"broker":   pub.PublishResult,
		},
	})
	if err != nil {
		return err
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go manager.Run(janitorCtx)

	ws := websocket.NewHandler(manager, logger, websocket.Options{
		RateLimit: cfg.WSRateLimit,
		RateBurst: cfg.WSRateBurst,
	})
	srv := server.New(cfg.Port, db, manager, ws, logger).HTTPServer()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("[run] listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info("[run] shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; ending
	// the rooms notifies every client before the process exits.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("[run] http shutdown", "error", err)
	}
	stopJanitor()
	manager.EndAll(game.ReasonShutdown)
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("[run] archiving results", "error", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (database.Service, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("[openStore] DATABASE_URL not set, using in-memory store")
		return database.NewMemory(logger), nil
	}
	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
