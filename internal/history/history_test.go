package history

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/db/dbmock"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return logger.Discard()
}

func TestHashClient(t *testing.T) {
	assert.Equal(t, "", HashClient(""))
	h := HashClient("203.0.113.7")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashClient("203.0.113.7"))
	assert.NotEqual(t, h, HashClient("203.0.113.8"))
	assert.NotContains(t, h, "203.0.113.7")
}

func TestRecordParams(t *testing.T) {
	converted := Record{Input: "女子", Result: hanja.Converted("여자"), Surface: "web", ClientIP: "1.2.3.4"}.params()
	assert.Equal(t, db.CreateConversionParams{
		InputText:  "女子",
		OutputText: sql.NullString{String: "여자", Valid: true},
		Converted:  true,
		Surface:    "web",
		ClientHash: HashClient("1.2.3.4"),
	}, converted)

	unchanged := Record{Input: "hello", Result: hanja.Unchanged(), Surface: "cli"}.params()
	assert.False(t, unchanged.Converted)
	assert.False(t, unchanged.OutputText.Valid)
	assert.Empty(t, unchanged.ClientHash)
}

func TestRecorderDrainsOnClose(t *testing.T) {
	repo := &dbmock.Repository{}
	var mu sync.Mutex
	var inputs []string
	repo.On("CreateConversion", mock.Anything, mock.AnythingOfType("db.CreateConversionParams")).
		Run(func(args mock.Arguments) {
			mu.Lock()
			inputs = append(inputs, args.Get(1).(db.CreateConversionParams).InputText)
			mu.Unlock()
		}).
		Return(db.Conversion{ID: 1}, nil)

	r := NewRecorder(testLogger(), repo, Config{Buffer: 16, Consumers: 3})
	for _, in := range []string{"李", "女子", "hello"} {
		assert.True(t, r.Record(Record{Input: in, Result: hanja.Unchanged(), Surface: "web"}))
	}
	r.Close()

	assert.ElementsMatch(t, []string{"李", "女子", "hello"}, inputs)
	repo.AssertNumberOfCalls(t, "CreateConversion", 3)

	// closed recorders drop
	assert.False(t, r.Record(Record{Input: "late"}))
	r.Close()
}

func TestRecorderDropsWhenFull(t *testing.T) {
	repo := &dbmock.Repository{}
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	repo.On("CreateConversion", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
		}).
		Return(db.Conversion{}, nil)

	r := NewRecorder(testLogger(), repo, Config{Buffer: 1, Consumers: 1})
	require.True(t, r.Record(Record{Input: "a"}))
	<-started // consumer is blocked on "a"
	require.True(t, r.Record(Record{Input: "b"}))
	assert.False(t, r.Record(Record{Input: "c"}), "buffer of one is already full")

	close(release)
	r.Close()
	repo.AssertNumberOfCalls(t, "CreateConversion", 2)
}

func TestSave(t *testing.T) {
	repo := &dbmock.Repository{}
	want := db.Conversion{ID: 7, InputText: "李"}
	repo.On("CreateConversion", mock.Anything, mock.Anything).Return(want, nil).Once()
	repo.On("CreateConversion", mock.Anything, mock.Anything).Return(db.Conversion{}, errors.New("disk full")).Once()

	r := NewRecorder(testLogger(), repo, Config{})
	defer r.Close()

	got, err := r.Save(context.Background(), Record{Input: "李", Result: hanja.Converted("이")})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = r.Save(context.Background(), Record{Input: "李"})
	assert.ErrorContains(t, err, "disk full")
}

func TestSaveWithoutRecorder(t *testing.T) {
	repo := &dbmock.Repository{}
	repo.On("CreateConversion", mock.Anything, mock.Anything).Return(db.Conversion{ID: 3}, nil).Once()

	got, err := Save(context.Background(), repo, Record{Input: "女子", Result: hanja.Converted("여자"), Surface: "bot"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)
	repo.AssertExpectations(t)
}

func TestCleanerRunOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &dbmock.Repository{}
	repo.On("DeleteOldConversions", mock.Anything, now.Add(-30*24*time.Hour)).Return(int64(4), nil).Once()
	repo.On("DeleteOldConversions", mock.Anything, mock.Anything).Return(int64(0), errors.New("locked")).Once()

	c := NewCleaner(testLogger(), repo, 30*24*time.Hour, time.Hour)
	c.now = func() time.Time { return now }

	deleted, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)

	_, err = c.RunOnce(context.Background())
	assert.ErrorContains(t, err, "locked")
	repo.AssertExpectations(t)
}

func TestCleanerRunStopsOnCancel(t *testing.T) {
	repo := &dbmock.Repository{}
	called := make(chan struct{}, 1)
	repo.On("DeleteOldConversions", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case called <- struct{}{}:
			default:
			}
		}).
		Return(int64(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewCleaner(testLogger(), repo, time.Hour, time.Hour).Run(ctx)
		close(done)
	}()

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("cleaner never ran")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}
