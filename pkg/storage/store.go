package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a record does not exist or is outside the
// caller's farm allow-list. The two cases are deliberately identical so
// record ids don't leak across farms.
var ErrNotFound = errors.New("record not found")

// Store persists farm records on database/sql. It works against both
// PostgreSQL and SQLite; queries stick to the shared subset of both.
type Store struct {
	db *sql.DB
}

// NewStore creates a new record store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// Open connects to the configured database and tunes the pool
func Open(driver, dsn string, maxConns, minConns int) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	return db, nil
}

// farmFilter renders an allow-list restriction for a farm id column.
//
// A nil allow-list means unrestricted (site admin) and renders nothing.
// An empty allow-list means the caller can see no farms at all; ok=false
// tells the caller to skip the query entirely rather than build IN ().
func farmFilter(column string, farmIDs []int64, nextArg int) (clause string, args []interface{}, ok bool) {
	if farmIDs == nil {
		return "", nil, true
	}
	if len(farmIDs) == 0 {
		return "", nil, false
	}

	placeholders := make([]string, len(farmIDs))
	args = make([]interface{}, len(farmIDs))
	for i, id := range farmIDs {
		placeholders[i] = fmt.Sprintf("$%d", nextArg+i)
		args[i] = id
	}
	clause = fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", "))
	return clause, args, true
}
