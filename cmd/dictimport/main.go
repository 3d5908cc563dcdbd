// dictimport parses the three dictionary tables and replaces the stored
// copies in one transaction, for servers started with --dictionary-source db.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/jusunglee/hanjahangul/internal/db/connect"
	"github.com/jusunglee/hanjahangul/internal/dictionary"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/logger"
)

func main() {
	if err := mainE(os.Args[1:], os.Stdout); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func mainE(args []string, stdout io.Writer) error {
	_ = godotenv.Load()

	flags := ff.NewFlagSet("hanjahangul-dictimport")
	var (
		databaseURL = flags.StringLong("database-url", "", "SQLite path or PostgreSQL URL")
		source      = flags.StringLong("from", "embed", "Tables to import: embed or dir:<path>")
		encoding    = flags.StringLong("encoding", "utf-8", "Encoding of dir: tables (utf-8 or euc-kr)")
		dryRun      = flags.BoolLong("dry-run", "Parse the tables and print counts without writing")
	)

	if err := ff.Parse(flags, args, ff.WithEnvVars()); err != nil {
		fmt.Fprintf(stdout, "%s\n", ffhelp.Flags(flags))
		return fmt.Errorf("parsing flags: %w", err)
	}

	src, err := dictionary.ParseSource(*source)
	if err != nil {
		return err
	}
	enc, err := hanja.ParseEncoding(*encoding)
	if err != nil {
		return err
	}
	fsys, err := tablesFS(src)
	if err != nil {
		return err
	}
	opts := hanja.LoadOptions{Encoding: enc}

	ctx := context.Background()
	log := logger.New()

	if *dryRun {
		tables, err := dictionary.ReadTables(ctx, fsys, opts)
		if err != nil {
			return err
		}
		for _, t := range hanja.Tables {
			fmt.Fprintf(stdout, "%-9s %d entries\n", t, len(tables[t]))
		}
		return nil
	}

	if *databaseURL == "" {
		return errors.New("database-url is required")
	}
	repo, err := connect.Open(ctx, *databaseURL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer repo.Close()

	counts, err := dictionary.Import(ctx, repo, fsys, opts)
	if err != nil {
		return fmt.Errorf("importing dictionary: %w", err)
	}
	for _, t := range hanja.Tables {
		fmt.Fprintf(stdout, "%-9s %d entries\n", t, counts[t])
	}
	log.InfoContext(ctx, "dictionary imported", "from", src.String(), "driver", connect.DriverFor(*databaseURL))
	return nil
}

func tablesFS(src dictionary.Source) (fs.FS, error) {
	switch src.Kind {
	case dictionary.KindEmbed:
		return hanja.EmbeddedFS(), nil
	case dictionary.KindDir:
		return os.DirFS(src.Dir), nil
	}
	return nil, fmt.Errorf("cannot import from %s", src)
}
