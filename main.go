package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"poker-tournament-system/config"
	"poker-tournament-system/handlers"
	"poker-tournament-system/repositories"
	"poker-tournament-system/services"
	"poker-tournament-system/utils"
	"poker-tournament-system/workers"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := utils.NewLogger("info", false)
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogPretty)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
	logger.Info().Msg("server stopped")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}
	if err := repositories.AutoMigrate(db); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := workers.NewMetrics(reg)

	clock := clockwork.NewRealClock()
	store := repositories.NewGormStore(db)
	hub := services.NewEventHub(logger)
	bus := workers.InstrumentBroadcaster(hub, metrics)
	engine := workers.NewTimerEngine(store, bus, clock, cfg.Timer, logger, metrics)

	tournaments := services.NewTournamentService(store, bus, engine, clock, logger)
	payments := services.NewPaymentService(store, clock, logger)
	tournaments.UseSettler(payments)

	if cfg.R2.Enabled() {
		archiver, err := utils.NewR2Archiver(ctx, cfg.R2)
		if err != nil {
			return err
		}
		payments.UseArchiver(archiver)
		logger.Info().Str("bucket", cfg.R2.Bucket).Msg("settlement statements archived to R2")
	} else {
		logger.Info().Msg("R2 not configured, settlement statements are not archived")
	}

	app := handlers.NewApp(logger, cfg.AllowedOrigins, handlers.Deps{
		Tournaments: tournaments,
		Expenses:    services.NewExpenseService(store, logger),
		Payments:    payments,
		Hub:         hub,
		Gatherer:    reg,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Strs("allowed_origins", cfg.AllowedOrigins).Msg("http server listening")
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
