package main

import (
	"context"
	"os"
	"time"

	"github.com/doctorsaathi/consult-service/internal/config"
	"github.com/doctorsaathi/consult-service/internal/consult"
	"github.com/doctorsaathi/consult-service/internal/db"
	"github.com/doctorsaathi/consult-service/internal/logging"
	"github.com/doctorsaathi/consult-service/internal/messaging"
	"github.com/rs/zerolog/log"
)

// One-shot expiry sweep for deployments that prefer a scheduled job over the
// in-process sweeper.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(cfg.ServiceName+"-cleanup", cfg.Environment)

	log.Info().Msg("Consult Cleanup Job - Starting")
	log.Info().Dur("retention", consult.RetentionPeriod).Msg("Retention Policy: completed consults are kept 48 hours")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer conn.Close()

	publisher, err := messaging.New(cfg.Messaging)
	if err != nil {
		log.Warn().Err(err).Msg("Warning: event publishing disabled")
		publisher = messaging.NopPublisher{}
	}
	defer publisher.Close()

	expiry := consult.NewExpiryService(consult.NewRepository(conn), publisher, nil)

	count, err := expiry.CountExpired(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get expired consults count")
	}
	log.Info().Int64("count", count).Msg("Found consults eligible for permanent deletion")

	if count == 0 {
		log.Info().Msg("No cleanup needed. Exiting.")
		os.Exit(0)
	}

	deleted, err := expiry.Sweep(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Cleanup failed")
	}

	log.Info().Int64("deleted", deleted).Msg("✓ Cleanup completed successfully")
	log.Info().Msg("Cleanup Job - Finished")
}
