// Package db opens the SQLite fleet metastore and applies its migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

// poolMode selects pool sizing and transaction locking for one handle.
type poolMode string

const (
	modeWrite poolMode = "write"
	modeRead  poolMode = "read"
)

const defaultReadPoolSize = 4

// buildDSN appends the hardening parameters every metastore handle gets:
// WAL journaling, a 5s busy timeout, NORMAL synchronous, and enforced
// foreign keys. Write handles additionally take immediate transaction
// locks so a BEGIN never deadlocks against a reader upgrading late.
func buildDSN(path string, mode poolMode) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_synchronous", "NORMAL")
	q.Set("_foreign_keys", "on")
	if mode == modeWrite {
		q.Set("_txlock", "immediate")
	}
	return path + "?" + q.Encode()
}

// OpenSQLite opens one pool for the metastore file. A write pool is pinned
// to a single connection so SQLite's single-writer rule is enforced in the
// pool instead of surfacing as SQLITE_BUSY; a read pool fans out up to
// maxOpen connections (0 means 4).
func OpenSQLite(path string, mode poolMode, maxOpen int) (*sql.DB, error) {
	if mode != modeRead && mode != modeWrite {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be %q or %q", mode, modeRead, modeWrite)
	}

	pool, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	size := 1
	if mode == modeRead {
		size = maxOpen
		if size <= 0 {
			size = defaultReadPoolSize
		}
	}
	pool.SetMaxOpenConns(size)
	pool.SetMaxIdleConns(size)
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}
	return pool, nil
}

// OpenSQLitePair opens the single-writer and read pools for one metastore
// file. Classification passes read accounts and snapshots through the read
// pool while assignments, stats, and run rows go through the writer.
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenSQLite(path, modeWrite, 0)
	if err != nil {
		return nil, nil, err
	}
	readDB, err = OpenSQLite(path, modeRead, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}
