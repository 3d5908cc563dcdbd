package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNoRows is returned when a query returns no rows
var ErrNoRows = errors.New("no rows in result set")

// IsNoRows returns true if the error indicates no rows were found.
// Works with pgx, database/sql, and the package's own ErrNoRows.
func IsNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, pgx.ErrNoRows)
}

// DictionaryEntry is one stored line of a dictionary table
type DictionaryEntry struct {
	ID        int64
	TableName string
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Conversion is one recorded conversion request
type Conversion struct {
	ID         int64
	InputText  string
	OutputText sql.NullString
	Converted  bool
	Surface    string
	ClientHash string
	CreatedAt  time.Time
}

// Feedback is a user-suggested correction for a recorded conversion
type Feedback struct {
	ID           int64
	ConversionID int64
	ClientHash   string
	FeedbackText string
	CreatedAt    time.Time
}

type ListFeedbackRow struct {
	ID           int64
	ConversionID int64
	FeedbackText string
	CreatedAt    time.Time
	InputText    string
	OutputText   sql.NullString
}

// Parameter structs for repository methods

type ReplaceDictionaryEntriesParams struct {
	TableName string
	Entries   []DictionaryEntryInput
}

type DictionaryEntryInput struct {
	Key   string
	Value string
}

type CreateConversionParams struct {
	InputText  string
	OutputText sql.NullString
	Converted  bool
	Surface    string
	ClientHash string
}

type ListConversionsParams struct {
	// Converted filters by result when Valid.
	Converted sql.NullBool
	Limit     int32
	Offset    int32
}

type CountConversionsParams struct {
	Converted sql.NullBool
}

type CreateFeedbackParams struct {
	ConversionID int64
	ClientHash   string
	FeedbackText string
}

type ListFeedbackParams struct {
	Limit  int32
	Offset int32
}

// Repository defines the interface for database operations
type Repository interface {
	// Dictionary
	ListDictionaryEntries(ctx context.Context, tableName string) ([]DictionaryEntry, error)
	ReplaceDictionaryEntries(ctx context.Context, arg ReplaceDictionaryEntriesParams) (int64, error)
	CountDictionaryEntries(ctx context.Context, tableName string) (int64, error)

	// Conversions
	CreateConversion(ctx context.Context, arg CreateConversionParams) (Conversion, error)
	GetConversion(ctx context.Context, id int64) (Conversion, error)
	ListConversions(ctx context.Context, arg ListConversionsParams) ([]Conversion, error)
	CountConversions(ctx context.Context, arg CountConversionsParams) (int64, error)
	DeleteOldConversions(ctx context.Context, before time.Time) (int64, error)

	// Feedback
	CreateFeedback(ctx context.Context, arg CreateFeedbackParams) (Feedback, error)
	ListFeedback(ctx context.Context, arg ListFeedbackParams) ([]ListFeedbackRow, error)
	CountFeedback(ctx context.Context) (int64, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	// Lifecycle
	Close() error
}
