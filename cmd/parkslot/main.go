package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parkslot/internal/api"
	"parkslot/internal/booking"
	"parkslot/internal/config"
	"parkslot/internal/events"
	"parkslot/internal/lock"
	"parkslot/internal/metrics"
	"parkslot/internal/repository"
	"parkslot/internal/slots"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load(os.Getenv("PARKSLOT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("open storage error")
	}
	defer st.close()

	seeded, err := repository.Seed(ctx, st.slots, cfg.Storage.Profile)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed slots error")
	}
	logger.Info().Int("slots", seeded).Str("profile", cfg.Storage.Profile).Msg("slot dataset ready")

	var locker lock.Locker = lock.NewKeyedMutex()
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		locker = lock.NewFailoverLocker(lock.NewRedisLocker(rdb, cfg.LockTTL(), &logger), locker, &logger)
	}

	bus := events.NewBus(&logger)
	subscribeAuditLog(bus, &logger)

	slotMgr := slots.NewManager(st.slots, &logger)
	bookingMgr := booking.NewManager(slotMgr, st.bookings, &logger,
		booking.WithLocker(locker),
		booking.WithEventBus(bus),
	)
	admin := booking.NewAdminService(st.slots, bookingMgr, &logger)

	var limiter *api.RateLimiter
	if cfg.RateLimitEnabled() {
		limiter = api.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, 10*time.Minute)
		go limiter.Run(ctx)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8081
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, st.ping, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if st.backup != nil {
		go st.backup.Start(ctx)
	}

	server := api.NewServer(cfg.HTTP.Port, slotMgr, bookingMgr, admin, limiter, &logger)
	logger.Info().Str("driver", cfg.Storage.Driver).Msg("parkslot started")
	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("api server error")
	}
	logger.Info().Msg("parkslot stopped")
}

// subscribeAuditLog records every domain event as a structured log line.
func subscribeAuditLog(bus *events.Bus, logger *zerolog.Logger) {
	auditLog := logger.With().Str("component", "audit").Logger()
	bus.Subscribe(events.All, func(e events.Event) error {
		auditLog.Info().
			Str("event", e.Type).
			Str("slot_id", e.SlotID).
			Str("booking_id", e.BookingID).
			Str("actor", e.Actor).
			Float64("amount", e.Amount).
			Time("at", e.CreatedAt).
			Msg("domain event")
		return nil
	})
}

func startHealthServer(ctx context.Context, port int, ping func(context.Context) error, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := ping(ctxPing); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
