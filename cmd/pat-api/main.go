package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edvin/apihub/internal/api"
	"github.com/edvin/apihub/internal/config"
	"github.com/edvin/apihub/internal/db"
	"github.com/edvin/apihub/internal/logging"
	"github.com/edvin/apihub/internal/metrics"
	"github.com/edvin/apihub/internal/token"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "seed-dev" {
		seedDev(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("pat-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pat-api"
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	hashKey, err := cfg.HashKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid token hash key")
	}
	codec, err := token.NewCodec(hashKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build token codec")
	}

	srv := api.NewServer(logger, pool, codec)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsServer := metrics.NewServer(cfg.MetricsListenAddr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		metricsServer.Shutdown(shutdownCtx)
		srv.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// seedDev inserts a fixture team with one admin and one member plus a
// collection and an environment. Intended for local development only.
func seedDev(args []string) {
	fs := flag.NewFlagSet("seed-dev", flag.ExitOnError)
	adminUser := fs.String("admin", "dev-admin", "User ID to add as team admin")
	memberUser := fs.String("member", "dev-member", "User ID to add as team member")
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	ids, err := insertFixtures(ctx, pool, *adminUser, *memberUser)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to seed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Development fixtures created.\n\n")
	fmt.Printf("  Team:        %s\n", ids.teamID)
	fmt.Printf("  Admin:       %s\n", *adminUser)
	fmt.Printf("  Member:      %s\n", *memberUser)
	fmt.Printf("  Collection:  %s\n", ids.collectionID)
	fmt.Printf("  Environment: %s\n", ids.environmentID)
}
