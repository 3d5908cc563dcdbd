package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jusunglee/hanjahangul/internal/db"
)

//go:embed schema.sql
var schemaSQL string

// foreign_key_violation
const pgForeignKeyViolation = "23503"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Repository implements db.Repository using PostgreSQL via pgx
type Repository struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

// New creates a new PostgreSQL repository
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 30 * time.Second
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Repository{pool: pool, q: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// PoolStats exposes the pgxpool counters for the metrics ticker.
func (r *Repository) PoolStats() *pgxpool.Stat {
	return r.pool.Stat()
}

func (r *Repository) WithTx(ctx context.Context, fn func(repo db.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	// recover so a panicking fn still releases the connection
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		}
	}()

	txRepo := &Repository{pool: r.pool, q: tx, inTx: true}

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Dictionary methods

func (r *Repository) ListDictionaryEntries(ctx context.Context, tableName string) ([]db.DictionaryEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, table_name, entry_key, entry_value, updated_at
		FROM dictionary_entries
		WHERE table_name = $1
		ORDER BY position
	`, tableName)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.DictionaryEntry, error) {
		var e db.DictionaryEntry
		err := row.Scan(&e.ID, &e.TableName, &e.Key, &e.Value, &e.UpdatedAt)
		return e, err
	})
}

// ReplaceDictionaryEntries swaps the whole table in one transaction using
// COPY for the inserts.
func (r *Repository) ReplaceDictionaryEntries(ctx context.Context, arg db.ReplaceDictionaryEntriesParams) (int64, error) {
	var inserted int64
	err := r.WithTx(ctx, func(repo db.Repository) error {
		tx := repo.(*Repository)
		if _, err := tx.q.Exec(ctx, `DELETE FROM dictionary_entries WHERE table_name = $1`, arg.TableName); err != nil {
			return fmt.Errorf("clearing %s: %w", arg.TableName, err)
		}
		now := time.Now().UTC()
		n, err := tx.q.CopyFrom(ctx,
			pgx.Identifier{"dictionary_entries"},
			[]string{"table_name", "position", "entry_key", "entry_value", "updated_at"},
			pgx.CopyFromSlice(len(arg.Entries), func(i int) ([]any, error) {
				e := arg.Entries[i]
				return []any{arg.TableName, int32(i), e.Key, e.Value, now}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copying %s entries: %w", arg.TableName, err)
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *Repository) CountDictionaryEntries(ctx context.Context, tableName string) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM dictionary_entries WHERE table_name = $1
	`, tableName).Scan(&count)
	return count, err
}

// Conversion methods

const conversionColumns = `id, input_text, output_text, converted, surface, client_hash, created_at`

func (r *Repository) CreateConversion(ctx context.Context, arg db.CreateConversionParams) (db.Conversion, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO conversions (input_text, output_text, converted, surface, client_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+conversionColumns,
		arg.InputText, arg.OutputText, arg.Converted, arg.Surface, arg.ClientHash)
	return scanConversion(row)
}

func (r *Repository) GetConversion(ctx context.Context, id int64) (db.Conversion, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+conversionColumns+`
		FROM conversions
		WHERE id = $1
	`, id)
	return scanConversion(row)
}

func (r *Repository) ListConversions(ctx context.Context, arg db.ListConversionsParams) ([]db.Conversion, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+conversionColumns+`
		FROM conversions
		WHERE ($1::boolean IS NULL OR converted = $1)
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, arg.Converted, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.Conversion, error) {
		return scanConversion(row)
	})
}

func (r *Repository) CountConversions(ctx context.Context, arg db.CountConversionsParams) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM conversions WHERE ($1::boolean IS NULL OR converted = $1)
	`, arg.Converted).Scan(&count)
	return count, err
}

func (r *Repository) DeleteOldConversions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM conversions WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Feedback methods

func (r *Repository) CreateFeedback(ctx context.Context, arg db.CreateFeedbackParams) (db.Feedback, error) {
	var fb db.Feedback
	err := r.q.QueryRow(ctx, `
		INSERT INTO feedback (conversion_id, client_hash, feedback_text)
		VALUES ($1, $2, $3)
		RETURNING id, conversion_id, client_hash, feedback_text, created_at
	`, arg.ConversionID, arg.ClientHash, arg.FeedbackText).
		Scan(&fb.ID, &fb.ConversionID, &fb.ClientHash, &fb.FeedbackText, &fb.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return db.Feedback{}, db.ErrNoRows
		}
		return db.Feedback{}, err
	}
	return fb, nil
}

func (r *Repository) ListFeedback(ctx context.Context, arg db.ListFeedbackParams) ([]db.ListFeedbackRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT f.id, f.conversion_id, f.feedback_text, f.created_at, c.input_text, c.output_text
		FROM feedback f
		JOIN conversions c ON c.id = f.conversion_id
		ORDER BY f.id DESC
		LIMIT $1 OFFSET $2
	`, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.ListFeedbackRow, error) {
		var f db.ListFeedbackRow
		err := row.Scan(&f.ID, &f.ConversionID, &f.FeedbackText, &f.CreatedAt, &f.InputText, &f.OutputText)
		return f, err
	})
}

func (r *Repository) CountFeedback(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&count)
	return count, err
}

func scanConversion(row pgx.Row) (db.Conversion, error) {
	var c db.Conversion
	err := row.Scan(&c.ID, &c.InputText, &c.OutputText, &c.Converted, &c.Surface, &c.ClientHash, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Conversion{}, db.ErrNoRows
	}
	return c, err
}
