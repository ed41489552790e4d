package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/farmstead/farmbook/pkg/auth"
)

func TestTokenLifecycle(t *testing.T) {
	s, db := newTestServer(t)
	_, token := newTestUser(t, s, db, "farmer", "user")

	w := doRequest(t, s, "POST", "/api/v1/tokens", token, map[string]interface{}{"name": "laptop"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created createTokenResponse
	decodeBody(t, w, &created)
	if created.Plaintext == "" {
		t.Fatal("Expected plaintext token in create response")
	}

	// The new token authenticates
	w = doRequest(t, s, "GET", "/api/v1/me", created.Plaintext, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected new token to authenticate, got %d", w.Code)
	}

	w = doRequest(t, s, "GET", "/api/v1/tokens", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var tokens []auth.APIToken
	decodeBody(t, w, &tokens)
	if len(tokens) != 2 {
		t.Errorf("Expected 2 tokens, got %d", len(tokens))
	}

	// Revoke kills the token immediately
	w = doRequest(t, s, "DELETE", fmt.Sprintf("/api/v1/tokens/%d", created.Token.ID), token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", w.Code, w.Body.String())
	}
	w = doRequest(t, s, "GET", "/api/v1/me", created.Plaintext, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected revoked token to fail, got %d", w.Code)
	}
}

func TestRevokeToken_NotOwned(t *testing.T) {
	s, db := newTestServer(t)
	_, aliceToken := newTestUser(t, s, db, "alice", "user")
	_, bobToken := newTestUser(t, s, db, "bob", "user")

	w := doRequest(t, s, "POST", "/api/v1/tokens", aliceToken, map[string]interface{}{"name": "laptop"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	var created createTokenResponse
	decodeBody(t, w, &created)

	w = doRequest(t, s, "DELETE", fmt.Sprintf("/api/v1/tokens/%d", created.Token.ID), bobToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 revoking another user's token, got %d", w.Code)
	}
}
