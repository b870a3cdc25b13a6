package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"comptoir/internal/api"
	"comptoir/internal/availability"
	"comptoir/internal/clock"
	"comptoir/internal/config"
	"comptoir/internal/events"
	"comptoir/internal/hours"
	"comptoir/internal/metrics"
	"comptoir/internal/orders"
	"comptoir/internal/places"
	"comptoir/internal/schedule"
	"comptoir/internal/slots"
	"comptoir/internal/store"
	"comptoir/internal/subscription"
)

const restaurantsPollInterval = 30 * time.Second

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("COMPTOIR_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Logging.Format == "json" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	logger = logger.Level(cfg.LogLevel())

	database, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	var lookup hours.PlaceLookup
	if cfg.Places.Enabled {
		client := places.NewClient(places.Options{
			BaseURL:       cfg.Places.BaseURL,
			APIKey:        cfg.Places.APIKey,
			Language:      cfg.Places.Language,
			Timeout:       cfg.PlacesTimeout(),
			RatePerSecond: cfg.Places.RatePerSecond,
			Burst:         cfg.Places.Burst,
		})
		if rdb != nil {
			client.UseRedisCache(rdb, cfg.PlacesCacheTTL())
		}
		lookup = client
	}

	clk := clock.System{Location: cfg.Location()}
	bus := events.NewEventBus()

	avail := availability.NewService(database, clk, logger)
	avail.Subscribe(bus)

	generator := slots.NewGenerator(slots.Config{
		Step:         cfg.PickupStep(),
		CloseMargin:  cfg.CloseMargin(),
		MinLead:      cfg.MinLead(),
		EveningStart: cfg.EveningBoundary(),
		HorizonDays:  cfg.HorizonDays(),
		Labels:       slots.DefaultLabels(),
	})

	subOpts := subscription.DefaultOptions()
	subOpts.UrgentDays = cfg.UrgentDays()
	subOpts.BillingPortalURL = cfg.Subscription.BillingPortalURL
	if cfg.Subscription.ChoosePlanPath != "" {
		subOpts.ChoosePlanPath = cfg.Subscription.ChoosePlanPath
	}
	if cfg.Subscription.ReactivatePath != "" {
		subOpts.ReactivatePath = cfg.Subscription.ReactivatePath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	err = config.WatchRestaurants(ctx, cfg.RestaurantsPath, restaurantsPollInterval,
		func(rc *config.RestaurantsConfig) {
			res, err := database.SyncRestaurantsFromConfig(ctx, rc)
			if err != nil {
				logger.Error().Err(err).Msg("restaurant sync failed")
				return
			}
			logger.Info().Str("catalog", rc.String()).Int("created", len(res.Created)).Int("updated", len(res.Updated)).
				Msg("restaurants synced")
			for _, id := range append(res.Created, res.Updated...) {
				_ = bus.Publish(events.Event{Type: events.RestaurantUpdated, RestaurantID: id, Actor: "config"})
			}
		},
		func(err error) {
			logger.Error().Err(err).Msg("invalid restaurants file, keeping previous catalog")
		})
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str("path", cfg.RestaurantsPath).Msg("no restaurants file, serving stored restaurants only")
	} else if err != nil {
		logger.Fatal().Err(err).Msg("load restaurants")
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	backup := store.NewBackupService(database, store.BackupOptions{
		Enabled:       cfg.Backup.Enabled,
		Interval:      cfg.BackupInterval(),
		Dir:           cfg.Backup.Path,
		RetentionDays: cfg.Backup.RetentionDays,
	}, logger)
	go backup.Start(ctx)

	server := api.NewHTTPServer(api.Options{
		Port:              cfg.HTTP.Port,
		APIKey:            cfg.HTTP.APIKey,
		RequestsPerMinute: cfg.HTTP.RequestsPerMinute,
	}, api.Deps{
		Store:        database,
		Availability: avail,
		Orders:       orders.NewService(database, bus, logger),
		Importer:     hours.NewImporter(lookup, database, bus, logger),
		Access:       subscription.NewService(database, clk, subOpts, logger),
		Slots:        generator,
		Clock:        clk,
		Bus:          bus,
		Language:     schedule.Language(cfg.Places.Language),
	}, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	logger.Info().Str("timezone", cfg.Timezone).Msg("comptoir started")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown error")
	}
	logger.Info().Msg("comptoir stopped")
}

func startHealthServer(ctx context.Context, port int, database *store.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.Ping(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
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
