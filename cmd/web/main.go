package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jusunglee/hanjahangul/internal/config"
	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/db/connect"
	"github.com/jusunglee/hanjahangul/internal/dictionary"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/health"
	"github.com/jusunglee/hanjahangul/internal/history"
	"github.com/jusunglee/hanjahangul/internal/logger"
	"github.com/jusunglee/hanjahangul/internal/web"
)

func main() {
	if err := mainE(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
	slog.Info("exiting without error")
}

func mainE() error {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("hanjahangul-web")

	var (
		mode              = fs.StringLong("mode", "dev", "Listener preset: dev, or anything else for production")
		httpAddr          = fs.StringLong("http-addr", "", "Override the preset HTTP address")
		httpsAddr         = fs.StringLong("https-addr", "", "Override the preset HTTPS address")
		redirectURL       = fs.StringLong("redirect-url", "", "Override the preset HTTPS redirect target")
		certFile          = fs.StringLong("cert-file", "", "Override the preset TLS certificate")
		keyFile           = fs.StringLong("key-file", "", "Override the preset TLS key")
		tls               = fs.StringLong("tls", "", "Override the preset TLS switch (true or false)")
		databaseURL       = fs.StringLong("database-url", "", "SQLite path or PostgreSQL URL; enables history")
		dictionarySource  = fs.StringLong("dictionary-source", "embed", "Dictionary tables: embed, db, or dir:<path>")
		dictionaryEnc     = fs.StringLong("dictionary-encoding", "utf-8", "Encoding of dir: tables (utf-8 or euc-kr)")
		allowedOrigins    = fs.StringLong("allowed-origins", "", "Comma-separated list of allowed CORS origins")
		adminPassword     = fs.StringLong("admin-password", "", "Basic auth password for the feedback listing")
		requestsPerMinute = fs.IntLong("requests-per-minute", 60, "Per-IP budget for write endpoints")
		historyBuffer     = fs.IntLong("history-buffer", 256, "Pending history records before new ones are dropped")
		historyConsumers  = fs.IntLong("history-consumers", 2, "Goroutines writing history records")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	overrides := config.Overrides{
		HTTPAddr:    *httpAddr,
		HTTPSAddr:   *httpsAddr,
		RedirectURL: *redirectURL,
		CertFile:    *certFile,
		KeyFile:     *keyFile,
	}
	if *tls != "" {
		on, err := strconv.ParseBool(*tls)
		if err != nil {
			return fmt.Errorf("parsing tls: %w", err)
		}
		overrides.TLS = &on
	}
	server := config.ForMode(config.ParseMode(*mode)).Apply(overrides)
	if err := server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	src, err := dictionary.ParseSource(*dictionarySource)
	if err != nil {
		return err
	}
	enc, err := hanja.ParseEncoding(*dictionaryEnc)
	if err != nil {
		return err
	}

	log := logger.New()
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	var repo db.Repository
	if *databaseURL != "" {
		repo, err = connect.Open(ctx, *databaseURL)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer repo.Close()
		log.InfoContext(ctx, "connected to database", "driver", connect.DriverFor(*databaseURL))
		go connect.ExportPoolStats(ctx, repo, 15*time.Second)
	}

	dict, err := dictionary.Open(ctx, src, repo, enc)
	if err != nil {
		return fmt.Errorf("loading dictionary: %w", err)
	}

	opts := web.Options{
		Dictionary:        dict,
		DictionarySource:  src.String(),
		Log:               log,
		AllowedOrigins:    config.ParseList(*allowedOrigins),
		AdminPassword:     *adminPassword,
		RequestsPerMinute: *requestsPerMinute,
		HealthChecks:      map[string]health.Check{},
	}
	if repo != nil {
		recorder := history.NewRecorder(log, repo, history.Config{
			Buffer:       *historyBuffer,
			Consumers:    *historyConsumers,
			WriteTimeout: 5 * time.Second,
		})
		defer recorder.Close()

		opts.Repo = repo
		opts.Recorder = recorder
		opts.HealthChecks["database"] = func(ctx context.Context) error {
			_, err := repo.CountConversions(ctx, db.CountConversionsParams{})
			return err
		}
	}

	router := web.NewRouter(opts)
	defer router.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router.Handler())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.InfoContext(ctx, "received signal, shutting down gracefully", "signal", sig)
			cancel(errors.New("signal received"))
		case <-ctx.Done():
		}
	}()

	return serve(ctx, log, server, mux)
}

// serve runs the app listener and, with TLS on, the plaintext redirect
// listener until ctx is cancelled or either listener fails.
func serve(ctx context.Context, log *slog.Logger, server config.Server, app http.Handler) error {
	g, gctx := errgroup.WithContext(ctx)

	var servers []*http.Server
	if server.TLS {
		redirect := newServer(server.HTTPAddr, web.RedirectHandler(server.RedirectURL))
		secure := newServer(server.HTTPSAddr, app)
		servers = append(servers, redirect, secure)

		g.Go(func() error {
			log.InfoContext(ctx, "starting redirect listener", "addr", server.HTTPAddr, "target", server.RedirectURL)
			return ignoreClosed(redirect.ListenAndServe())
		})
		g.Go(func() error {
			log.InfoContext(ctx, "starting web server", "addr", server.HTTPSAddr, "mode", server.Mode, "tls", true)
			return ignoreClosed(secure.ListenAndServeTLS(server.CertFile, server.KeyFile))
		})
	} else {
		plain := newServer(server.HTTPAddr, app)
		servers = append(servers, plain)

		g.Go(func() error {
			log.InfoContext(ctx, "starting web server", "addr", server.HTTPAddr, "mode", server.Mode, "tls", false)
			return ignoreClosed(plain.ListenAndServe())
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutting down %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
