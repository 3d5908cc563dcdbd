// Package dbmock provides a testify mock of db.Repository.
package dbmock

import (
	"context"
	"time"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/stretchr/testify/mock"
)

type Repository struct {
	mock.Mock
}

var _ db.Repository = (*Repository)(nil)

func (m *Repository) ListDictionaryEntries(ctx context.Context, tableName string) ([]db.DictionaryEntry, error) {
	ret := m.Called(ctx, tableName)
	return ret.Get(0).([]db.DictionaryEntry), ret.Error(1)
}

func (m *Repository) ReplaceDictionaryEntries(ctx context.Context, arg db.ReplaceDictionaryEntriesParams) (int64, error) {
	ret := m.Called(ctx, arg)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *Repository) CountDictionaryEntries(ctx context.Context, tableName string) (int64, error) {
	ret := m.Called(ctx, tableName)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *Repository) CreateConversion(ctx context.Context, arg db.CreateConversionParams) (db.Conversion, error) {
	ret := m.Called(ctx, arg)
	return ret.Get(0).(db.Conversion), ret.Error(1)
}

func (m *Repository) GetConversion(ctx context.Context, id int64) (db.Conversion, error) {
	ret := m.Called(ctx, id)
	return ret.Get(0).(db.Conversion), ret.Error(1)
}

func (m *Repository) ListConversions(ctx context.Context, arg db.ListConversionsParams) ([]db.Conversion, error) {
	ret := m.Called(ctx, arg)
	return ret.Get(0).([]db.Conversion), ret.Error(1)
}

func (m *Repository) CountConversions(ctx context.Context, arg db.CountConversionsParams) (int64, error) {
	ret := m.Called(ctx, arg)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *Repository) DeleteOldConversions(ctx context.Context, before time.Time) (int64, error) {
	ret := m.Called(ctx, before)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *Repository) CreateFeedback(ctx context.Context, arg db.CreateFeedbackParams) (db.Feedback, error) {
	ret := m.Called(ctx, arg)
	return ret.Get(0).(db.Feedback), ret.Error(1)
}

func (m *Repository) ListFeedback(ctx context.Context, arg db.ListFeedbackParams) ([]db.ListFeedbackRow, error) {
	ret := m.Called(ctx, arg)
	return ret.Get(0).([]db.ListFeedbackRow), ret.Error(1)
}

func (m *Repository) CountFeedback(ctx context.Context) (int64, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(int64), ret.Error(1)
}

// WithTx runs fn against the mock itself.
func (m *Repository) WithTx(ctx context.Context, fn func(repo db.Repository) error) error {
	return fn(m)
}

func (m *Repository) Close() error {
	return nil
}
