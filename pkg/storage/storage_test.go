package storage

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/farmstead/farmbook/pkg/access"
)

func setupTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// One shared in-memory database; extra pool connections would see
	// an empty schema
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := access.RunMigrations(ctx, db, access.DialectSQLite); err != nil {
		t.Fatalf("Access migrations failed: %v", err)
	}
	if err := RunMigrations(ctx, db, access.DialectSQLite); err != nil {
		t.Fatalf("Storage migrations failed: %v", err)
	}

	return NewStore(db), db
}

func createUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()

	result, err := db.Exec(
		"INSERT INTO users (username, email) VALUES (?, ?)",
		username, username+"@example.com",
	)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}
