package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sqliteadapter "github.com/ericfisherdev/passworder/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/passworder/internal/adapter/driving/http"
	"github.com/ericfisherdev/passworder/internal/application"
	"github.com/ericfisherdev/passworder/internal/config"
	"github.com/ericfisherdev/passworder/internal/domain/crypto"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"kdf_iterations", cfg.Crypto.Iterations,
		"kdf_salt_size", cfg.Crypto.SaltSize,
		"kdf_workers", cfg.KDFWorkers,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters and crypto.
	accountStore := sqliteadapter.NewAccountRepo(db)
	entryStore := sqliteadapter.NewEntryRepo(db)

	sealer, err := crypto.NewSealer(cfg.Crypto)
	if err != nil {
		return err
	}
	verifier, err := crypto.NewVerifier(crypto.DefaultVerifierParams())
	if err != nil {
		return err
	}

	// 6. Create vault service with a bounded KDF pool.
	vaultSvc := application.NewVaultService(
		accountStore,
		entryStore,
		sealer,
		verifier,
		application.NewKDFPool(cfg.KDFWorkers),
		logger,
	)

	// 6b. Create health service over the database.
	healthSvc := application.NewHealthService(db, logger)

	// 7. Create HTTP handler with routes and middleware.
	apiHandler := httphandler.NewHandler(vaultSvc, healthSvc, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	slog.Info("passworder started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal or server failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	// 9. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
