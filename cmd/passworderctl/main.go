package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sqliteadapter "github.com/ericfisherdev/passworder/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/passworder/internal/adapter/driving/cli"
	"github.com/ericfisherdev/passworder/internal/application"
	"github.com/ericfisherdev/passworder/internal/config"
	"github.com/ericfisherdev/passworder/internal/domain/crypto"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Operator output goes to stdout; only warnings and above are logged.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: max(cfg.LogLevel, slog.LevelWarn)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	sealer, err := crypto.NewSealer(cfg.Crypto)
	if err != nil {
		return err
	}
	verifier, err := crypto.NewVerifier(crypto.DefaultVerifierParams())
	if err != nil {
		return err
	}

	vaultSvc := application.NewVaultService(
		sqliteadapter.NewAccountRepo(db),
		sqliteadapter.NewEntryRepo(db),
		sealer,
		verifier,
		application.NewKDFPool(cfg.KDFWorkers),
		logger,
	)

	root := cli.NewRootCommand(vaultSvc, cli.NewTerminalPrompter(os.Stdin, os.Stderr))
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}
