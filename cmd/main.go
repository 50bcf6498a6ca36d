// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server and the sweeper.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/auth"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/cache"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/config"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/database"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/handler"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/logger"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/repository"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/reservation"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seafable: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("connected to postgres")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	experienceRepo := repository.NewExperienceRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	var slots repository.SlotStore = slotRepo
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		slots = cache.NewSlotCache(slotRepo, rdb, cfg.CacheTTL, log)
		log.Info("slot cache enabled", "ttl", cfg.CacheTTL)
	}

	// The engine writes through the cache so entries get invalidated, but re-resolves
	// slots against postgres directly.
	engine := reservation.NewEngine(experienceRepo, slots, bookingRepo,
		reservation.WithSlotReader(slotRepo),
		reservation.WithLocation(cfg.Location),
		reservation.WithLogger(log),
	)
	svc := service.NewBookingService(experienceRepo, slots, bookingRepo, engine,
		service.WithLocation(cfg.Location),
		service.WithLogger(log),
	)
	sweeper := service.NewSweeper(slots, bookingRepo, engine, cfg.SweepInterval, cfg.Location, log)
	issuer := auth.NewIssuer(cfg.JWTSecret)

	// ── 3. Build the router ───────────────────────────────────────────────
	router := handler.NewRouter(handler.NewBookingHandler(svc, log), issuer, log)

	// ── 4. Start server and sweeper with graceful shutdown ────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
