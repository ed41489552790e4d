package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/farmstead/farmbook/pkg/access"
	"github.com/farmstead/farmbook/pkg/audit"
	"github.com/farmstead/farmbook/pkg/observability"
	"github.com/farmstead/farmbook/pkg/storage"
)

func newTestServer(t *testing.T) (*Server, *sql.DB) {
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
	if err := storage.RunMigrations(ctx, db, access.DialectSQLite); err != nil {
		t.Fatalf("Storage migrations failed: %v", err)
	}

	auditLogger, err := audit.NewLogger(db)
	if err != nil {
		t.Fatalf("Failed to initialize audit log: %v", err)
	}

	s := NewServer(Options{
		Store:  storage.NewStore(db),
		Logger: observability.NewLogger(observability.ErrorLevel, io.Discard),
		Audit:  auditLogger,
	})
	return s, db
}

// newTestUser inserts a user and mints an API token for them
func newTestUser(t *testing.T, s *Server, db *sql.DB, username, role string) (int64, string) {
	t.Helper()

	result, err := db.Exec(
		"INSERT INTO users (username, email, role) VALUES (?, ?, ?)",
		username, username+"@example.com", role,
	)
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	userID, _ := result.LastInsertId()

	_, plaintext, err := s.tokenManager.CreateToken(context.Background(), userID, "test", nil)
	if err != nil {
		t.Fatalf("Failed to create token for %s: %v", username, err)
	}
	return userID, plaintext
}

func doRequest(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	r := httptest.NewRequest(method, path, reader)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

// createFarmVia drives the API to create a farm owned by the token holder
func createFarmVia(t *testing.T, s *Server, token, name string) int64 {
	t.Helper()

	w := doRequest(t, s, "POST", "/api/v1/farms", token, map[string]interface{}{"name": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create farm: %d %s", w.Code, w.Body.String())
	}
	var farm storage.Farm
	decodeBody(t, w, &farm)
	return farm.ID
}
