package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/farmstead/farmbook/pkg/access"
	"github.com/farmstead/farmbook/pkg/audit"
)

func TestInvitationFlow(t *testing.T) {
	s, db := newTestServer(t)
	_, ownerToken := newTestUser(t, s, db, "owner", "user")
	_, inviteeToken := newTestUser(t, s, db, "invitee", "user")
	farmID := createFarmVia(t, s, ownerToken, "Maple Hollow")
	invitationsPath := fmt.Sprintf("/api/v1/farms/%d/invitations", farmID)

	w := doRequest(t, s, "POST", invitationsPath, ownerToken,
		map[string]interface{}{"email": "invitee@example.com", "role": "worker"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var invitation access.Invitation
	decodeBody(t, w, &invitation)
	if invitation.Token == "" {
		t.Fatal("Expected invitation token in create response")
	}

	// Listing hides the token
	w = doRequest(t, s, "GET", invitationsPath, ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var pending []access.Invitation
	decodeBody(t, w, &pending)
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending invitation, got %d", len(pending))
	}
	if pending[0].Token != "" {
		t.Error("Expected token to be omitted from listing")
	}

	// Accepting grants membership
	w = doRequest(t, s, "POST", "/api/v1/invitations/accept", inviteeToken,
		map[string]interface{}{"token": invitation.Token})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on accept, got %d: %s", w.Code, w.Body.String())
	}
	w = doRequest(t, s, "GET", fmt.Sprintf("/api/v1/farms/%d", farmID), inviteeToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected invitee to read farm after accept, got %d", w.Code)
	}

	// Second accept conflicts
	w = doRequest(t, s, "POST", "/api/v1/invitations/accept", inviteeToken,
		map[string]interface{}{"token": invitation.Token})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on double accept, got %d", w.Code)
	}
}

func TestCreateInvitation_ManagerWorkerOnly(t *testing.T) {
	s, db := newTestServer(t)
	_, ownerToken := newTestUser(t, s, db, "owner", "user")
	managerID, managerToken := newTestUser(t, s, db, "manager", "user")
	farmID := createFarmVia(t, s, ownerToken, "Maple Hollow")
	addMemberVia(t, s, ownerToken, farmID, managerID, "manager")
	invitationsPath := fmt.Sprintf("/api/v1/farms/%d/invitations", farmID)

	w := doRequest(t, s, "POST", invitationsPath, managerToken,
		map[string]interface{}{"email": "hand@example.com", "role": "manager"})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for manager inviting a manager, got %d", w.Code)
	}

	w = doRequest(t, s, "POST", invitationsPath, managerToken,
		map[string]interface{}{"email": "hand@example.com", "role": "worker"})
	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201 for manager inviting a worker, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRevokeInvitation(t *testing.T) {
	s, db := newTestServer(t)
	_, ownerToken := newTestUser(t, s, db, "owner", "user")
	_, outsiderToken := newTestUser(t, s, db, "outsider", "user")
	farmID := createFarmVia(t, s, ownerToken, "Maple Hollow")

	w := doRequest(t, s, "POST", fmt.Sprintf("/api/v1/farms/%d/invitations", farmID), ownerToken,
		map[string]interface{}{"email": "hand@example.com", "role": "worker"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	var invitation access.Invitation
	decodeBody(t, w, &invitation)

	revokePath := fmt.Sprintf("/api/v1/invitations/%d", invitation.ID)

	if w := doRequest(t, s, "DELETE", revokePath, outsiderToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("Outsider: expected 403, got %d", w.Code)
	}
	if w := doRequest(t, s, "DELETE", revokePath, ownerToken, nil); w.Code != http.StatusNoContent {
		t.Errorf("Owner: expected 204, got %d: %s", w.Code, w.Body.String())
	}
	if w := doRequest(t, s, "DELETE", revokePath, ownerToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after revoke, got %d", w.Code)
	}

	// The revocation left an audit entry on the farm's trail
	w = doRequest(t, s, "GET", fmt.Sprintf("/api/v1/farms/%d/audit", farmID), ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Audit list: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var events []audit.Event
	decodeBody(t, w, &events)
	if len(events) == 0 || events[0].Type != audit.EventInvitationRevoke {
		t.Errorf("Expected invitation.revoke as newest audit event, got %+v", events)
	}
}

func TestCleanupInvitations_AdminOnly(t *testing.T) {
	s, db := newTestServer(t)
	_, userToken := newTestUser(t, s, db, "user", "user")
	_, adminToken := newTestUser(t, s, db, "admin", "admin")

	if w := doRequest(t, s, "POST", "/api/v1/admin/invitations/cleanup", userToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("Regular user: expected 403, got %d", w.Code)
	}
	w := doRequest(t, s, "POST", "/api/v1/admin/invitations/cleanup", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Admin: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result map[string]int64
	decodeBody(t, w, &result)
	if result["removed"] != 0 {
		t.Errorf("Expected 0 removed on fresh database, got %d", result["removed"])
	}
}
