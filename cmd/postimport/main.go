package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/postimport/internal/adapter/driven/api"
	csvadapter "github.com/ericfisherdev/postimport/internal/adapter/driven/csv"
	sqliteadapter "github.com/ericfisherdev/postimport/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/postimport/internal/adapter/driving/console"
	"github.com/ericfisherdev/postimport/internal/application"
	"github.com/ericfisherdev/postimport/internal/config"
	"github.com/ericfisherdev/postimport/internal/domain/port/driven"
)

func main() {
	// 1. Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout, api.NewClient()); err != nil {
		slog.Error("fatal error", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer, writer driven.PostWriter) error {
	// 3. Read the bearer token before touching the input file.
	token, err := console.ReadToken(stdin)
	if err != nil {
		return err
	}

	// 4. Open the source file.
	source, err := csvadapter.Open(cfg.InputPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			slog.Error("error closing input", "error", closeErr)
		}
	}()
	slog.Debug("input opened", "path", cfg.InputPath)

	// 5. Open import history when configured.
	var history driven.HistoryStore
	if cfg.HasHistory() {
		db, err := sqliteadapter.NewDB(ctx, cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			return err
		}
		history = sqliteadapter.NewHistoryRepo(db)
		slog.Debug("history enabled", "path", db.Path())
	}

	// 6. Replay every row.
	svc := application.NewImportService(writer, history, stdout)
	_, err = svc.Run(ctx, application.ImportRequest{
		Source:     source,
		SourcePath: cfg.InputPath,
		Token:      token,
	})
	return err
}
