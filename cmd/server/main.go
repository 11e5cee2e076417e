package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Simplici0/glassquote/internal/classify"
	"github.com/Simplici0/glassquote/internal/config"
	"github.com/Simplici0/glassquote/internal/db"
	"github.com/Simplici0/glassquote/internal/metrics"
	"github.com/Simplici0/glassquote/internal/migrations"
	"github.com/Simplici0/glassquote/internal/notify"
	"github.com/Simplici0/glassquote/internal/pricing"
	"github.com/Simplici0/glassquote/internal/quoteapi"
	"github.com/Simplici0/glassquote/internal/seed"
	"github.com/Simplici0/glassquote/internal/session"
	"github.com/Simplici0/glassquote/internal/store"
	"github.com/Simplici0/glassquote/internal/vehicle"
)

const sweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	for _, w := range cfg.Warnings {
		logger.Warn("configuration warning", zap.String("warning", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	version, err := migrations.Up(ctx, database, cfg.MigrationsDir)
	if err != nil {
		logger.Fatal("failed to run database migrations", zap.Error(err))
	}
	logger.Info("database ready", zap.String("path", cfg.DBPath), zap.Int64("schema_version", version))

	stats, err := seed.Run(ctx, database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		logger.Fatal("failed to seed database", zap.Error(err))
	}
	logger.Info("seed complete", zap.Int("inserts", stats.Inserts), zap.Int("updates", stats.Updates))

	classifier, err := newClassifier(cfg)
	if err != nil {
		logger.Fatal("failed to load classification tables", zap.Error(err))
	}

	reg := metrics.NewRegistry()

	var quoter session.Quoter = quoteapi.NewLocal()
	if cfg.QuoteAPIURL != "" {
		quoter = quoteapi.NewClient(cfg.QuoteAPIURL, cfg.QuoteRatePerSec, logger.Named("quoteapi"))
		logger.Info("using remote quote service", zap.String("url", cfg.QuoteAPIURL))
	}

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	manager := session.NewManager(quoter, session.Options{
		TTL:        cfg.SessionTTL,
		Classifier: classifier,
		Vendors:    cfg.Vendors,
		Metrics:    reg,
		Logger:     logger.Named("session"),
	})
	go manager.Run(ctx, sweepInterval)

	srv := &server{
		auth:     newAuthService(database, cfg.SessionSecret),
		sessions: manager,
		vehicles: newVehicleLookup(ctx, cfg, reg, logger),
		quotes:   store.NewQuotes(database),
		notifier: publisher,
		metrics:  reg,
		rates:    pricing.DefaultRates,
		logger:   logger,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.Env))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newClassifier(cfg config.Config) (*classify.Classifier, error) {
	if cfg.ClassifyTablesPath == "" {
		return classify.Default, nil
	}
	tables, err := classify.LoadTables(cfg.ClassifyTablesPath)
	if err != nil {
		return nil, err
	}
	return classify.New(tables)
}

// newVehicleLookup builds the registration lookup chain: the vehicle API (or
// the demo fixtures) optionally fronted by a redis cache.
func newVehicleLookup(ctx context.Context, cfg config.Config, reg *metrics.Registry, logger *zap.Logger) vehicle.Lookup {
	var lookup vehicle.Lookup = vehicle.DemoVehicles
	if cfg.VehicleAPIURL != "" {
		lookup = vehicle.NewClient(cfg.VehicleAPIURL, cfg.VehicleAPIKey, cfg.VehicleRatePerSec, logger.Named("vehicle"))
	}

	if cfg.RedisAddr == "" {
		return lookup
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, vehicle cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return lookup
	}

	return vehicle.NewCached(lookup, vehicle.NewRedisStore(client), cfg.VehicleCacheTTL, reg, logger.Named("vehicle_cache"))
}

func newPublisher(cfg config.Config, logger *zap.Logger) notify.Publisher {
	if cfg.NATSURL == "" {
		return notify.Discard{}
	}
	p, err := notify.Connect(cfg.NATSURL, cfg.NotifySubject, logger.Named("notify"))
	if err != nil {
		logger.Warn("nats unavailable, quote events disabled", zap.Error(err))
		return notify.Discard{}
	}
	return p
}
