// Package connect opens a db.Repository for a database URL.
package connect

import (
	"context"
	"strings"
	"time"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/db/postgres"
	"github.com/jusunglee/hanjahangul/internal/db/sqlite"
	"github.com/jusunglee/hanjahangul/internal/metrics"
)

// Driver names the backend a URL resolves to.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// DriverFor picks postgres for postgres:// and postgresql:// URLs and SQLite
// for everything else, including bare file paths.
func DriverFor(databaseURL string) Driver {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open returns a repository for databaseURL.
func Open(ctx context.Context, databaseURL string) (db.Repository, error) {
	if DriverFor(databaseURL) == DriverPostgres {
		return postgres.New(ctx, databaseURL)
	}
	return sqlite.New(ctx, databaseURL)
}

// ExportPoolStats publishes pgxpool stats as gauges until ctx is done. It
// returns immediately for repositories without a pool.
func ExportPoolStats(ctx context.Context, repo db.Repository, interval time.Duration) {
	pg, ok := repo.(*postgres.Repository)
	if !ok {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s := pg.PoolStats()
			metrics.DBPoolTotalConns.Set(float64(s.TotalConns()))
			metrics.DBPoolIdleConns.Set(float64(s.IdleConns()))
			metrics.DBPoolAcquiredConns.Set(float64(s.AcquiredConns()))
			metrics.DBPoolMaxConns.Set(float64(s.MaxConns()))
		case <-ctx.Done():
			return
		}
	}
}
