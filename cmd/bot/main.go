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

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/jusunglee/hanjahangul/internal/bot"
	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/db/connect"
	"github.com/jusunglee/hanjahangul/internal/dictionary"
	"github.com/jusunglee/hanjahangul/internal/envsetup"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/health"
	"github.com/jusunglee/hanjahangul/internal/logger"
)

const envPath = ".env"

func main() {
	if err := mainE(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func mainE() error {
	if envsetup.NeedsSetup(envPath) && os.Getenv("DISCORD_TOKEN") == "" && isatty.IsTerminal(os.Stdin.Fd()) {
		saved, err := envsetup.Run(envPath)
		if err != nil {
			return fmt.Errorf("running env setup: %w", err)
		}
		if !saved {
			return errors.New("setup cancelled")
		}
	}
	_ = godotenv.Load(envPath)

	fs := ff.NewFlagSet("hanjahangul-bot")
	var (
		discordToken     = fs.StringLong("discord-token", "", "Discord bot token")
		guildID          = fs.StringLong("discord-guild-id", "", "Register commands in this guild only")
		databaseURL      = fs.StringLong("database-url", "", "SQLite path or PostgreSQL URL; enables history and corrections")
		dictionarySource = fs.StringLong("dictionary-source", "embed", "Dictionary tables: embed, db, or dir:<path>")
		dictionaryEnc    = fs.StringLong("dictionary-encoding", "utf-8", "Encoding of dir: tables (utf-8 or euc-kr)")
		maxInputRunes    = fs.IntLong("max-input-runes", 1000, "Longest text a command accepts")
		metricsAddr      = fs.StringLong("metrics-addr", ":9091", "Address serving /metrics and /health, empty to disable")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	if *discordToken == "" {
		return errors.New("discord-token is required")
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

	var (
		repo  db.Repository
		store bot.HistoryStore
	)
	checks := map[string]health.Check{}
	if *databaseURL != "" {
		repo, err = connect.Open(ctx, *databaseURL)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer repo.Close()

		store = bot.NewHistoryStore(repo)
		checks["database"] = func(ctx context.Context) error {
			_, err := repo.CountConversions(ctx, db.CountConversionsParams{})
			return err
		}
	}

	dict, err := dictionary.Open(ctx, src, repo, enc)
	if err != nil {
		return fmt.Errorf("loading dictionary: %w", err)
	}

	dg, err := discordgo.New("Bot " + *discordToken)
	if err != nil {
		return fmt.Errorf("creating Discord session: %w", err)
	}

	b := bot.New(
		bot.NewLogger(log),
		bot.NewDiscordSession(dg),
		dict,
		store,
		bot.Config{
			GuildID:       *guildID,
			MaxInputRunes: *maxInputRunes,
		},
	)

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

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})
	if repo != nil {
		g.Go(func() error {
			connect.ExportPoolStats(gctx, repo, 15*time.Second)
			return nil
		})
	}
	if *metricsAddr != "" {
		healthServer := health.New(*metricsAddr, checks)
		g.Go(func() error {
			log.InfoContext(ctx, "starting metrics server", "addr", *metricsAddr)
			return healthServer.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return healthServer.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
