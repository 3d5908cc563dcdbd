// Package dictionary resolves where the conversion tables come from and
// moves them between text files and the database.
package dictionary

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/metrics"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// ErrNoRepository is returned when the db source is selected without a database.
var ErrNoRepository = errors.New("dictionary source \"db\" requires a database")

// ErrEmpty is returned when the database holds no dictionary entries.
var ErrEmpty = errors.New("database dictionary is empty, run dictimport first")

type Kind string

const (
	KindEmbed Kind = "embed"
	KindDir   Kind = "dir"
	KindDB    Kind = "db"
)

// Source selects where Open reads the tables from.
type Source struct {
	Kind Kind
	// Dir is set for KindDir.
	Dir string
}

// ParseSource accepts "embed", "db" or "dir:<path>". The empty string means embed.
func ParseSource(s string) (Source, error) {
	switch {
	case s == "" || s == string(KindEmbed):
		return Source{Kind: KindEmbed}, nil
	case s == string(KindDB):
		return Source{Kind: KindDB}, nil
	case strings.HasPrefix(s, string(KindDir)+":"):
		dir := strings.TrimPrefix(s, string(KindDir)+":")
		if dir == "" {
			return Source{}, fmt.Errorf("dictionary source %q: missing directory", s)
		}
		return Source{Kind: KindDir, Dir: dir}, nil
	default:
		return Source{}, fmt.Errorf("unknown dictionary source %q (want embed, db or dir:<path>)", s)
	}
}

func (s Source) String() string {
	if s.Kind == KindDir {
		return string(KindDir) + ":" + s.Dir
	}
	return string(s.Kind)
}

// Open loads the dictionary from src. repo may be nil unless src is KindDB.
// The encoding only applies to text sources.
func Open(ctx context.Context, src Source, repo db.Repository, enc hanja.Encoding) (*hanja.Dictionary, error) {
	var (
		d   *hanja.Dictionary
		err error
	)
	switch src.Kind {
	case KindEmbed:
		d, err = hanja.LoadEmbedded()
	case KindDir:
		d, err = hanja.LoadFS(os.DirFS(src.Dir), hanja.LoadOptions{Encoding: enc})
	case KindDB:
		if repo == nil {
			return nil, ErrNoRepository
		}
		d, err = FromRepository(ctx, repo)
	default:
		return nil, fmt.Errorf("unknown dictionary source kind %q", src.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("loading dictionary from %s: %w", src, err)
	}

	stats := d.Stats()
	slog.InfoContext(ctx, "dictionary loaded",
		"source", src.String(),
		"chars", stats.Chars,
		"initials", stats.Initials,
		"words", stats.Words,
	)
	PublishStats(d)
	return d, nil
}

// FromRepository builds a dictionary from the stored tables, keeping the
// stored order so duplicate keys resolve exactly as they did in the files.
func FromRepository(ctx context.Context, repo db.Repository) (*hanja.Dictionary, error) {
	tables := make(map[hanja.Table][]hanja.Entry, len(hanja.Tables))
	for _, t := range hanja.Tables {
		rows, err := repo.ListDictionaryEntries(ctx, string(t))
		if err != nil {
			return nil, fmt.Errorf("listing %s entries: %w", t, err)
		}
		tables[t] = lo.Map(rows, func(row db.DictionaryEntry, _ int) hanja.Entry {
			return hanja.Entry{Key: row.Key, Value: row.Value}
		})
	}
	if lo.EveryBy(hanja.Tables, func(t hanja.Table) bool { return len(tables[t]) == 0 }) {
		return nil, ErrEmpty
	}
	return hanja.Build(tables[hanja.TableChars], tables[hanja.TableInitials], tables[hanja.TableWords]), nil
}

// ReadTables parses the three tables from fsys concurrently. Tables not yet
// started when ctx is done or another table fails are not read.
func ReadTables(ctx context.Context, fsys fs.FS, opts hanja.LoadOptions) (map[hanja.Table][]hanja.Entry, error) {
	results := make([][]hanja.Entry, len(hanja.Tables))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range hanja.Tables {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, err := hanja.ReadTableFS(fsys, t, opts)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tables := make(map[hanja.Table][]hanja.Entry, len(hanja.Tables))
	for i, t := range hanja.Tables {
		tables[t] = results[i]
	}
	return tables, nil
}

// Import replaces the stored tables with the ones read from fsys in a single
// transaction and returns the number of rows written per table.
func Import(ctx context.Context, repo db.Repository, fsys fs.FS, opts hanja.LoadOptions) (map[hanja.Table]int64, error) {
	tables, err := ReadTables(ctx, fsys, opts)
	if err != nil {
		return nil, err
	}

	written := make(map[hanja.Table]int64, len(tables))
	err = repo.WithTx(ctx, func(tx db.Repository) error {
		for _, t := range hanja.Tables {
			n, err := tx.ReplaceDictionaryEntries(ctx, db.ReplaceDictionaryEntriesParams{
				TableName: string(t),
				Entries: lo.Map(tables[t], func(e hanja.Entry, _ int) db.DictionaryEntryInput {
					return db.DictionaryEntryInput{Key: e.Key, Value: e.Value}
				}),
			})
			if err != nil {
				return fmt.Errorf("replacing %s: %w", t, err)
			}
			written[t] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

// PublishStats sets the per-table entry gauges.
func PublishStats(d *hanja.Dictionary) {
	stats := d.Stats()
	for _, t := range hanja.Tables {
		metrics.DictionaryEntries.WithLabelValues(string(t)).Set(float64(stats.Count(t)))
	}
}
