package access

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// One shared in-memory database; extra pool connections would see
	// an empty schema
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			full_name TEXT,
			role TEXT NOT NULL DEFAULT 'user',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_login_at TIMESTAMP
		);

		CREATE TABLE farms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			location TEXT,
			size_acres REAL,
			owner_id INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE farm_users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			farm_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			permissions TEXT NOT NULL DEFAULT '',
			assigned_by INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(farm_id, user_id)
		);

		CREATE TABLE farm_invitations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			farm_id INTEGER NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			invited_by INTEGER NOT NULL,
			invited_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL,
			accepted_at TIMESTAMP,
			accepted_by INTEGER,
			UNIQUE(farm_id, email)
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test tables: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *sql.DB, username, role string) int64 {
	t.Helper()

	result, err := db.Exec(
		"INSERT INTO users (username, email, role) VALUES (?, ?, ?)",
		username, username+"@example.com", role,
	)
	if err != nil {
		t.Fatalf("Failed to create test user %s: %v", username, err)
	}
	id, _ := result.LastInsertId()
	return id
}

func createTestFarm(t *testing.T, db *sql.DB, name string, ownerID int64) int64 {
	t.Helper()

	result, err := db.Exec(
		"INSERT INTO farms (name, owner_id) VALUES (?, ?)",
		name, ownerID,
	)
	if err != nil {
		t.Fatalf("Failed to create test farm %s: %v", name, err)
	}
	id, _ := result.LastInsertId()

	_, err = db.Exec(
		"INSERT INTO farm_users (farm_id, user_id, role) VALUES (?, ?, ?)",
		id, ownerID, string(RoleOwner),
	)
	if err != nil {
		t.Fatalf("Failed to create owner membership: %v", err)
	}
	return id
}

func addTestMember(t *testing.T, db *sql.DB, farmID, userID int64, role Role) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO farm_users (farm_id, user_id, role) VALUES (?, ?, ?)",
		farmID, userID, string(role),
	)
	if err != nil {
		t.Fatalf("Failed to add test member: %v", err)
	}
}
