package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doctorsaathi/consult-service/internal/accounts"
	"github.com/doctorsaathi/consult-service/internal/auth"
	"github.com/doctorsaathi/consult-service/internal/chat"
	"github.com/doctorsaathi/consult-service/internal/config"
	"github.com/doctorsaathi/consult-service/internal/consult"
	"github.com/doctorsaathi/consult-service/internal/db"
	apphttp "github.com/doctorsaathi/consult-service/internal/http"
	"github.com/doctorsaathi/consult-service/internal/logging"
	"github.com/doctorsaathi/consult-service/internal/messaging"
	"github.com/doctorsaathi/consult-service/internal/prescription"
	"github.com/doctorsaathi/consult-service/internal/stats"
	"github.com/doctorsaathi/consult-service/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(cfg.ServiceName, cfg.Environment)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitProvider(ctx, telemetry.ConfigFrom(cfg))
	if err != nil {
		log.Warn().Err(err).Msg("Warning: OpenTelemetry disabled")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Warning: telemetry shutdown failed")
		}
	}()

	var metrics *telemetry.Metrics
	if m, err := telemetry.InitMetrics(); err != nil {
		log.Warn().Err(err).Msg("Warning: custom metrics disabled")
	} else {
		metrics = m
	}

	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	publisher, err := messaging.New(cfg.Messaging)
	if err != nil {
		log.Warn().Err(err).Msg("Warning: event publishing disabled")
		publisher = messaging.NopPublisher{}
	}
	defer publisher.Close()

	var (
		channelCache chat.ChannelCache = chat.NopChannelCache{}
		counter      apphttp.WindowCounter = apphttp.NewMemoryCounter()
		cachePing    apphttp.Pinger
	)
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Warning: Redis unreachable, using in-process fallbacks")
		} else {
			log.Info().Str("addr", cfg.Redis.Addr).Msg("✓ Connected to Redis")
			channelCache = chat.NewRedisChannelCache(rdb)
			counter = apphttp.NewRedisCounter(rdb)
			cachePing = apphttp.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		}
	}

	jwks, err := auth.NewJWKS(cfg.Auth.JWKSURL, 0)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.Auth.JWKSURL).Msg("failed to load JWKS")
	}
	defer jwks.Close()
	verifier := auth.NewVerifier(auth.Config{
		Issuer:   cfg.Auth.Issuer,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
	}, jwks)

	perms, err := auth.LoadPermissions(cfg.PermissionsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PermissionsFile).Msg("failed to load permissions")
	}

	streamClient, err := chat.NewStreamClient(cfg.Chat.APIKey, cfg.Chat.APISecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create chat client")
	}

	var (
		chatMetrics    chat.MetricsRecorder
		consultMetrics consult.MetricsRecorder
		expiryMetrics  consult.ExpiryMetrics
		httpMetrics    apphttp.Metrics
	)
	if metrics != nil {
		chatMetrics, consultMetrics, expiryMetrics, httpMetrics = metrics, metrics, metrics, metrics
	}

	provisioner := chat.NewProvisioner(streamClient, channelCache, cfg.Chat.Timeout, chatMetrics)

	accountsRepo := accounts.NewRepository(conn)
	statsRepo := stats.NewRepository(conn)
	consultRepo := consult.NewRepository(conn)

	consultService := consult.NewService(consultRepo, accountsRepo, statsRepo, provisioner, publisher, consultMetrics)
	statsService := stats.NewService(statsRepo, accountsRepo)
	prescriptionService := prescription.NewService(prescription.NewRepository(conn), consultService, accountsRepo)
	expiryService := consult.NewExpiryService(consultRepo, publisher, expiryMetrics)

	go consult.NewSweeper(expiryService, cfg.ExpirySweepInterval).Run(ctx)

	bookingLimiter := apphttp.NewRateLimiter(counter, cfg.BookingRateLimit, cfg.BookingRateWindow, "booking")
	if err := bookingLimiter.TrustProxies(cfg.TrustedProxies...); err != nil {
		log.Fatal().Err(err).Msg("invalid TRUSTED_PROXIES")
	}

	handler := apphttp.SetupRouter(apphttp.Dependencies{
		ServiceName:    cfg.ServiceName,
		DB:             conn,
		Cache:          cachePing,
		Verifier:       verifier,
		Permissions:    perms,
		Metrics:        httpMetrics,
		Consults:       consult.NewHandler(consultService),
		Stats:          stats.NewHandler(statsService),
		Prescriptions:  prescription.NewHandler(prescriptionService),
		Chat:           chat.NewHandler(provisioner, cfg.Chat.APIKey),
		BookingLimiter: bookingLimiter,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("✓ consult-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down consult-service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
