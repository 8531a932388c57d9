// Package main is the entry point for idlecrawl.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/idlecrawl/internal/entity"
	"github.com/samdwyer/idlecrawl/internal/game"
	"github.com/samdwyer/idlecrawl/internal/gamedata"
	"github.com/samdwyer/idlecrawl/internal/storage"
	"github.com/samdwyer/idlecrawl/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("idlecrawl: %v", err)
	}
}

func run() error {
	// Load .env file for local development
	if err := godotenv.Load(); err != nil {
		// Not fatal - env vars might be set directly
		log.Printf("Note: .env file not loaded: %v", err)
	}

	cfg, err := game.LoadConfig()
	if err != nil {
		return err
	}

	// The terminal owns stdout, so logs go to a file.
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	ctx := context.Background()

	if telemetry.Enabled() {
		shutdown, err := telemetry.Setup(ctx, telemetry.Options{
			SampleRatio: cfg.TraceSample,
			Attributes: []attribute.KeyValue{
				attribute.String("idlecrawl.dungeon", cfg.Dungeon),
				attribute.Int64("idlecrawl.seed", cfg.Seed),
			},
		})
		if err != nil {
			logger.Warn("telemetry setup failed, running without traces", "error", err)
		} else {
			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.Error("telemetry shutdown failed", "error", err)
				}
			}()
		}
	}

	reg, err := gamedata.LoadRegistryFrom(gamedata.Overlay(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("load game data: %w", err)
	}
	roster := entity.DefaultParty(reg)

	opts := []game.Option{game.WithLogger(logger)}
	if cfg.DBPath != "" {
		store, err := storage.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, game.WithStore(store))

		if cfg.Resume == "latest" {
			cfg.Resume, err = latestSession(ctx, store)
			if err != nil {
				return err
			}
		}
	}

	engine := game.NewEngine(cfg, reg, roster, opts...)
	g, err := game.New(cfg, reg, roster, engine, logger)
	if err != nil {
		return fmt.Errorf("initialize terminal: %w", err)
	}

	logger.Info("idlecrawl starting", "dungeon", cfg.Dungeon, "resume", cfg.Resume, "seed", cfg.Seed)
	return g.Run(ctx)
}

// latestSession returns the most recently saved session, or "" to start fresh.
func latestSession(ctx context.Context, store *storage.Store) (string, error) {
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", nil
	}
	return sessions[0].ID, nil
}
