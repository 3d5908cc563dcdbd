package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/db/connect"
	"github.com/jusunglee/hanjahangul/internal/dictionary"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/health"
	"github.com/jusunglee/hanjahangul/internal/history"
	"github.com/jusunglee/hanjahangul/internal/logger"
)

func main() {
	if err := mainE(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func mainE() error {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("hanjahangul-worker")
	var (
		databaseURL      = fs.StringLong("database-url", "", "SQLite path or PostgreSQL URL")
		retention        = fs.DurationLong("retention", 30*24*time.Hour, "Delete conversions older than this")
		interval         = fs.DurationLong("interval", 1*time.Hour, "Retention interval")
		metricsAddr      = fs.StringLong("metrics-addr", ":9090", "Address serving /metrics and /health")
		dictionarySource = fs.StringLong("dictionary-source", "db", "Dictionary tables to report: embed, db, or dir:<path>")
		dictionaryEnc    = fs.StringLong("dictionary-encoding", "utf-8", "Encoding of dir: tables (utf-8 or euc-kr)")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	if *databaseURL == "" {
		return errors.New("database-url is required")
	}
	if *retention <= 0 || *interval <= 0 {
		return errors.New("retention and interval must be positive")
	}
	src, err := dictionary.ParseSource(*dictionarySource)
	if err != nil {
		return err
	}
	enc, err := hanja.ParseEncoding(*dictionaryEnc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)
	log := logger.New()

	repo, err := connect.Open(ctx, *databaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer repo.Close()

	// dictionary.Open publishes the entry gauges; a missing db dictionary
	// only means dictimport has not run yet.
	if _, err := dictionary.Open(ctx, src, repo, enc); err != nil {
		if !errors.Is(err, dictionary.ErrEmpty) {
			return fmt.Errorf("loading dictionary: %w", err)
		}
		log.WarnContext(ctx, "dictionary tables are empty", "source", src.String())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, shutting down", "signal", sig)
			cancel(errors.New("signal received"))
		case <-ctx.Done():
		}
	}()

	healthServer := health.New(*metricsAddr, map[string]health.Check{
		"database": func(ctx context.Context) error {
			_, err := repo.CountConversions(ctx, db.CountConversionsParams{})
			return err
		},
	})
	cleaner := history.NewCleaner(log, repo, *retention, *interval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(ctx, "starting metrics server", "addr", *metricsAddr)
		return healthServer.Start()
	})
	g.Go(func() error {
		connect.ExportPoolStats(gctx, repo, 15*time.Second)
		return nil
	})
	g.Go(func() error {
		log.InfoContext(ctx, "worker starting", "retention", *retention, "interval", *interval)
		cleaner.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("worker stopped")
	return nil
}
