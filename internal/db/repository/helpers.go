// Package repository implements domain repository interfaces over the
// SQLite fleet metastore.
package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"dbfleet/internal/domain"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &domain.ConflictError{Message: "resource already exists"}
	}
	return err
}

// parseDBTime reads the TEXT timestamps SQLite's datetime('now') produces,
// falling back to RFC3339 for columns written by the application.
func parseDBTime(s string) time.Time {
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func nullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseDBTime(s.String)
	return &t
}
