// e2e runs the conversion scenarios against a live server and fails on the
// first mismatch.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/jusunglee/hanjahangul/internal/client"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("E2E FAILED", "error", err)
		os.Exit(1)
	}
	slog.Info("E2E PASSED")
}

type scenario struct {
	name  string
	input string
	// want is empty when the input must come back unchanged.
	want string
}

// scenarios hold against the bundled dictionary.
var scenarios = []scenario{
	{name: "word-level exact match", input: "女子", want: "여자"},
	{name: "single character, nothing follows", input: "李", want: "리"},
	{name: "single character before Hangul", input: "李씨", want: "이씨"},
	{name: "maximal run miss retries suffix", input: "女子李", want: "여자리"},
	{name: "irregular word inside a sentence", input: "五六月에 만나요", want: "오뉴월에 만나요"},
	{name: "no logographic content", input: "hello, world"},
	{name: "Hangul only", input: "대한민국"},
	{name: "empty input", input: ""},
}

func run() error {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("hanjahangul-e2e")
	var (
		url      = fs.StringLong("url", "http://127.0.0.1:8000", "Server under test")
		insecure = fs.BoolLong("insecure", "Skip TLS verification, for the dev certificate")
		timeout  = fs.DurationLong("timeout", 30*time.Second, "Overall deadline")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("E2E")); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		return fmt.Errorf("parsing flags: %w", err)
	}

	log := logger.New()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*url)
	if *insecure {
		c = c.WithHTTPClient(&http.Client{
			Timeout:   10 * time.Second,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		})
	}

	log.Info("Phase 1: Checking health and dictionary...", "url", *url)
	if err := c.Health(ctx); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	stats, err := c.Dictionary(ctx)
	if err != nil {
		return fmt.Errorf("dictionary stats: %w", err)
	}
	if stats.Chars == 0 || stats.Initials == 0 || stats.Words == 0 {
		return fmt.Errorf("dictionary has an empty table: %+v", stats)
	}
	log.Info("dictionary loaded", "source", stats.Source, "chars", stats.Chars, "initials", stats.Initials, "words", stats.Words)

	log.Info("Phase 2: Running conversion scenarios...", "count", len(scenarios))
	var historyID int64
	for _, s := range scenarios {
		id, err := check(ctx, c, s)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", s.name, err)
		}
		if historyID == 0 {
			historyID = id
		}
		log.Info("scenario passed", "name", s.name)
	}

	log.Info("Phase 3: Checking history...")
	if historyID == 0 {
		log.Warn("server has no database, skipping history checks")
		return nil
	}
	conv, err := c.Conversion(ctx, historyID)
	if err != nil {
		return fmt.Errorf("fetching conversion %d: %w", historyID, err)
	}
	if !conv.Converted || conv.ConvertedText == nil {
		return fmt.Errorf("conversion %d was stored as unchanged", historyID)
	}
	if _, err := c.SubmitFeedback(ctx, historyID, "e2e correction"); err != nil {
		return fmt.Errorf("submitting feedback: %w", err)
	}
	if _, err := c.SubmitFeedback(ctx, historyID, ""); !client.IsStatus(err, http.StatusBadRequest) {
		return fmt.Errorf("empty feedback: want 400, got %v", err)
	}
	log.Info("history checks passed", "conversion_id", historyID)
	return nil
}

// check runs one scenario through both endpoints and returns the stored
// history id, if any.
func check(ctx context.Context, c *client.Client, s scenario) (int64, error) {
	res, err := c.Convert(ctx, s.input)
	if err != nil {
		return 0, err
	}

	if s.want == "" {
		if res.Converted {
			return 0, fmt.Errorf("want unchanged, got %q", res.ConvertedText)
		}
		if res.ConvertedText != s.input {
			return 0, fmt.Errorf("unchanged input must be echoed, got %q", res.ConvertedText)
		}
		legacy, err := c.ConvertText(ctx, s.input)
		if err != nil {
			return 0, err
		}
		if legacy != hanja.FallbackMessage {
			return 0, fmt.Errorf("legacy endpoint: want fallback message, got %q", legacy)
		}
		return 0, nil
	}

	if !res.Converted || res.ConvertedText != s.want {
		return 0, fmt.Errorf("want %q, got %q (converted=%v)", s.want, res.ConvertedText, res.Converted)
	}
	legacy, err := c.ConvertText(ctx, s.input)
	if err != nil {
		return 0, err
	}
	if legacy != s.want {
		return 0, fmt.Errorf("legacy endpoint: want %q, got %q", s.want, legacy)
	}

	again, err := c.Convert(ctx, res.ConvertedText)
	if err != nil {
		return 0, err
	}
	if again.Converted {
		return 0, errors.New("converting the output again must leave it unchanged")
	}
	return res.ID, nil
}
