package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/farmstead/farmbook/pkg/access"
	"github.com/farmstead/farmbook/pkg/auth"
)

func setupAuthTest(t *testing.T) (*AuthMiddleware, *sql.DB, string, int64) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// One shared in-memory database; extra pool connections would see
	// an empty schema
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := access.RunMigrations(context.Background(), db, access.DialectSQLite); err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}

	result, err := db.Exec(
		"INSERT INTO users (username, email, role) VALUES (?, ?, ?)",
		"farmer", "farmer@example.com", "user",
	)
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	userID, _ := result.LastInsertId()

	tokenManager := auth.NewTokenManager(db)
	_, plaintext, err := tokenManager.CreateToken(context.Background(), userID, "test token", nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	mw := NewAuthMiddleware(tokenManager, auth.NewResolver(db), false)
	return mw, db, plaintext, userID
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	mw, _, token, userID := setupAuthTest(t)

	var gotUserID int64
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil || authCtx.User == nil {
			t.Fatal("Expected auth context in request")
		}
		gotUserID = authCtx.User.ID
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("GET", "/farms", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotUserID != userID {
		t.Errorf("Expected user %d, got %d", userID, gotUserID)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	mw, _, token, _ := setupAuthTest(t)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"unknown token", "Bearer fbk_bogus0000000000000000000000000000000000000"},
		{"truncated token", "Bearer " + token[:len(token)-4]},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/farms", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", tt.name, w.Code)
		}
	}
}

func TestAuthMiddleware_InactiveUser(t *testing.T) {
	mw, db, token, userID := setupAuthTest(t)

	if _, err := db.Exec("UPDATE users SET is_active = 0 WHERE id = ?", userID); err != nil {
		t.Fatalf("Failed to deactivate user: %v", err)
	}

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("GET", "/farms", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for deactivated user, got %d", w.Code)
	}
}

func TestAuthMiddleware_Optional(t *testing.T) {
	mw, db, _, _ := setupAuthTest(t)
	optional := NewAuthMiddleware(mw.tokenManager, auth.NewResolver(db), true)

	handler := optional.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthContext(r) != nil {
			t.Error("Expected no auth context for anonymous request")
		}
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for anonymous request on optional auth, got %d", w.Code)
	}
}

func TestRequireSiteAdmin(t *testing.T) {
	mw, db, token, userID := setupAuthTest(t)

	chain := mw.Handler(RequireSiteAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	r := httptest.NewRequest("GET", "/admin/users", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for regular user, got %d", w.Code)
	}

	if _, err := db.Exec("UPDATE users SET role = 'admin' WHERE id = ?", userID); err != nil {
		t.Fatalf("Failed to promote user: %v", err)
	}

	r = httptest.NewRequest("GET", "/admin/users", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	chain.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for site admin, got %d", w.Code)
	}
}
