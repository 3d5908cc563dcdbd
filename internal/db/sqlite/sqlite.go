package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jusunglee/hanjahangul/internal/db"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Timestamps are stored as fixed-width UTC text so they compare correctly as
// strings.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements db.Repository using SQLite
type Repository struct {
	db   *sql.DB
	q    querier
	inTx bool
	now  func() time.Time
}

// New creates a new SQLite repository
func New(ctx context.Context, dbPath string) (*Repository, error) {
	// Strip sqlite:// prefix if present
	dbPath = strings.TrimPrefix(dbPath, "sqlite://")

	// connection pragmas go in the DSN so every pooled connection gets them
	sqliteDB, err := sql.Open("sqlite", withPragmas(dbPath, "foreign_keys(1)", "busy_timeout(5000)"))
	if err != nil {
		return nil, fmt.Errorf("opening SQLite database: %w", err)
	}
	// every connection to :memory: is a separate database
	if dbPath == ":memory:" {
		sqliteDB.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := sqliteDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := sqliteDB.ExecContext(ctx, schemaSQL); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	slog.Debug("opened SQLite database", "path", dbPath)

	return &Repository{db: sqliteDB, q: sqliteDB, now: time.Now}, nil
}

func withPragmas(dsn string, pragmas ...string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range pragmas {
		dsn += sep + "_pragma=" + p
		sep = "&"
	}
	return dsn
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) WithTx(ctx context.Context, fn func(repo db.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	txRepo := &Repository{db: r.db, q: tx, inTx: true, now: r.now}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (r *Repository) timestamp() string {
	return r.now().UTC().Format(timeLayout)
}

// Dictionary methods

func (r *Repository) ListDictionaryEntries(ctx context.Context, tableName string) ([]db.DictionaryEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, table_name, entry_key, entry_value, updated_at
		FROM dictionary_entries
		WHERE table_name = ?
		ORDER BY position
	`, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []db.DictionaryEntry
	for rows.Next() {
		var e db.DictionaryEntry
		var updatedAt string
		if err := rows.Scan(&e.ID, &e.TableName, &e.Key, &e.Value, &updatedAt); err != nil {
			return nil, err
		}
		e.UpdatedAt = parseTime(updatedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceDictionaryEntries swaps the whole table atomically. Entry order is
// kept so duplicate keys resolve the same way as in the source file.
func (r *Repository) ReplaceDictionaryEntries(ctx context.Context, arg db.ReplaceDictionaryEntriesParams) (int64, error) {
	var inserted int64
	err := r.WithTx(ctx, func(repo db.Repository) error {
		tx := repo.(*Repository)
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM dictionary_entries WHERE table_name = ?`, arg.TableName); err != nil {
			return fmt.Errorf("clearing %s: %w", arg.TableName, err)
		}
		now := tx.timestamp()
		for i, e := range arg.Entries {
			if _, err := tx.q.ExecContext(ctx, `
				INSERT INTO dictionary_entries (table_name, position, entry_key, entry_value, updated_at)
				VALUES (?, ?, ?, ?, ?)
			`, arg.TableName, i, e.Key, e.Value, now); err != nil {
				return fmt.Errorf("inserting %s entry %q: %w", arg.TableName, e.Key, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *Repository) CountDictionaryEntries(ctx context.Context, tableName string) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM dictionary_entries WHERE table_name = ?
	`, tableName).Scan(&count)
	return count, err
}

// Conversion methods

func (r *Repository) CreateConversion(ctx context.Context, arg db.CreateConversionParams) (db.Conversion, error) {
	result, err := r.q.ExecContext(ctx, `
		INSERT INTO conversions (input_text, output_text, converted, surface, client_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, arg.InputText, arg.OutputText, arg.Converted, arg.Surface, arg.ClientHash, r.timestamp())
	if err != nil {
		return db.Conversion{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return db.Conversion{}, err
	}
	return r.GetConversion(ctx, id)
}

const conversionColumns = `id, input_text, output_text, converted, surface, client_hash, created_at`

func (r *Repository) GetConversion(ctx context.Context, id int64) (db.Conversion, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+conversionColumns+`
		FROM conversions
		WHERE id = ?
	`, id)
	return scanConversion(row)
}

func (r *Repository) ListConversions(ctx context.Context, arg db.ListConversionsParams) ([]db.Conversion, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+conversionColumns+`
		FROM conversions
		WHERE (? = 0 OR converted = ?)
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, arg.Converted.Valid, arg.Converted.Bool, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversions []db.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		conversions = append(conversions, c)
	}
	return conversions, rows.Err()
}

func (r *Repository) CountConversions(ctx context.Context, arg db.CountConversionsParams) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversions WHERE (? = 0 OR converted = ?)
	`, arg.Converted.Valid, arg.Converted.Bool).Scan(&count)
	return count, err
}

func (r *Repository) DeleteOldConversions(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, `
		DELETE FROM conversions WHERE created_at < ?
	`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Feedback methods

func (r *Repository) CreateFeedback(ctx context.Context, arg db.CreateFeedbackParams) (db.Feedback, error) {
	createdAt := r.timestamp()
	result, err := r.q.ExecContext(ctx, `
		INSERT INTO feedback (conversion_id, client_hash, feedback_text, created_at)
		VALUES (?, ?, ?, ?)
	`, arg.ConversionID, arg.ClientHash, arg.FeedbackText, createdAt)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return db.Feedback{}, db.ErrNoRows
		}
		return db.Feedback{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return db.Feedback{}, err
	}
	return db.Feedback{
		ID:           id,
		ConversionID: arg.ConversionID,
		ClientHash:   arg.ClientHash,
		FeedbackText: arg.FeedbackText,
		CreatedAt:    parseTime(createdAt),
	}, nil
}

func (r *Repository) ListFeedback(ctx context.Context, arg db.ListFeedbackParams) ([]db.ListFeedbackRow, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT f.id, f.conversion_id, f.feedback_text, f.created_at, c.input_text, c.output_text
		FROM feedback f
		JOIN conversions c ON c.id = f.conversion_id
		ORDER BY f.id DESC
		LIMIT ? OFFSET ?
	`, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []db.ListFeedbackRow
	for rows.Next() {
		var row db.ListFeedbackRow
		var createdAt string
		if err := rows.Scan(&row.ID, &row.ConversionID, &row.FeedbackText, &createdAt, &row.InputText, &row.OutputText); err != nil {
			return nil, err
		}
		row.CreatedAt = parseTime(createdAt)
		results = append(results, row)
	}
	return results, rows.Err()
}

func (r *Repository) CountFeedback(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(s scanner) (db.Conversion, error) {
	var c db.Conversion
	var createdAt string
	err := s.Scan(&c.ID, &c.InputText, &c.OutputText, &c.Converted, &c.Surface, &c.ClientHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Conversion{}, db.ErrNoRows
	}
	if err != nil {
		return db.Conversion{}, err
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
