// Package history stores conversions for later review. Writes are best
// effort: the conversion itself never waits on the database.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/metrics"
)

// Record is one conversion to store.
type Record struct {
	Input    string
	Result   hanja.Result
	Surface  string
	ClientIP string
}

func (r Record) params() db.CreateConversionParams {
	out, ok := r.Result.Value()
	return db.CreateConversionParams{
		InputText:  r.Input,
		OutputText: sql.NullString{String: out, Valid: ok},
		Converted:  ok,
		Surface:    r.Surface,
		ClientHash: HashClient(r.ClientIP),
	}
}

// HashClient returns the hex SHA-256 of a client identifier. Raw addresses are
// never stored.
func HashClient(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

type Config struct {
	Buffer       int
	Consumers    int
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{Buffer: 256, Consumers: 2, WriteTimeout: 5 * time.Second}
}

// Recorder writes records on background consumers.
type Recorder struct {
	log  *slog.Logger
	repo db.Repository
	cfg  Config
	ch   chan Record
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts cfg.Consumers consumers. Call Close to drain them.
func NewRecorder(log *slog.Logger, repo db.Repository, cfg Config) *Recorder {
	def := DefaultConfig()
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.Consumers <= 0 {
		cfg.Consumers = def.Consumers
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	r := &Recorder{
		log:  log,
		repo: repo,
		cfg:  cfg,
		ch:   make(chan Record, cfg.Buffer),
	}
	r.wg.Add(cfg.Consumers)
	for i := range cfg.Consumers {
		go r.runConsumer(i)
	}
	return r
}

// Record queues rec without blocking. It reports false when the record was
// dropped because the buffer is full or the recorder is closed.
func (r *Recorder) Record(rec Record) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.HistoryDropped.Inc()
		return false
	}
	select {
	case r.ch <- rec:
		return true
	default:
		metrics.HistoryDropped.Inc()
		r.log.Warn("history buffer full, dropping record", "surface", rec.Surface)
		return false
	}
}

// Save writes rec synchronously and returns the stored row.
func (r *Recorder) Save(ctx context.Context, rec Record) (db.Conversion, error) {
	return Save(ctx, r.repo, rec)
}

// Save writes rec to repo and counts the outcome. It is the write path for
// callers that always need the stored row and never queue.
func Save(ctx context.Context, repo db.Repository, rec Record) (db.Conversion, error) {
	c, err := repo.CreateConversion(ctx, rec.params())
	if err != nil {
		metrics.HistoryWritesTotal.WithLabelValues("error").Inc()
		return db.Conversion{}, fmt.Errorf("saving conversion: %w", err)
	}
	metrics.HistoryWritesTotal.WithLabelValues("ok").Inc()
	return c, nil
}

// Close stops accepting records and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) runConsumer(id int) {
	defer r.wg.Done()
	log := r.log.With("consumer_id", id)
	for rec := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
		if _, err := r.Save(ctx, rec); err != nil {
			log.Error("recording conversion", "error", err)
		}
		cancel()
	}
	log.Debug("history consumer stopped")
}
