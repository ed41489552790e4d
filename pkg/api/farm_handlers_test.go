package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/farmstead/farmbook/pkg/storage"
)

func TestCreateFarm(t *testing.T) {
	s, _ := newTestServer(t)
	ownerID, token := newTestUser(t, s, s.store.DB(), "owner", "user")

	w := doRequest(t, s, "POST", "/api/v1/farms", token, map[string]interface{}{
		"name":       "Maple Hollow",
		"location":   "County Road 12",
		"size_acres": 320.0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var farm storage.Farm
	decodeBody(t, w, &farm)
	if farm.OwnerID != ownerID {
		t.Errorf("Expected owner %d, got %d", ownerID, farm.OwnerID)
	}

	// Creator gets an owner membership and can read the farm back
	w = doRequest(t, s, "GET", fmt.Sprintf("/api/v1/farms/%d", farm.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected creator to read own farm, got %d", w.Code)
	}
}

func TestCreateFarm_Validation(t *testing.T) {
	s, _ := newTestServer(t)
	_, token := newTestUser(t, s, s.store.DB(), "owner", "user")

	w := doRequest(t, s, "POST", "/api/v1/farms", token, map[string]interface{}{"location": "nowhere"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing name, got %d", w.Code)
	}
}

func TestGetFarm_AccessControl(t *testing.T) {
	s, db := newTestServer(t)
	_, ownerToken := newTestUser(t, s, db, "owner", "user")
	_, outsiderToken := newTestUser(t, s, db, "outsider", "user")
	_, adminToken := newTestUser(t, s, db, "admin", "admin")
	farmID := createFarmVia(t, s, ownerToken, "Maple Hollow")
	path := fmt.Sprintf("/api/v1/farms/%d", farmID)

	if w := doRequest(t, s, "GET", path, ownerToken, nil); w.Code != http.StatusOK {
		t.Errorf("Owner: expected 200, got %d", w.Code)
	}
	if w := doRequest(t, s, "GET", path, adminToken, nil); w.Code != http.StatusOK {
		t.Errorf("Site admin: expected 200, got %d", w.Code)
	}
	if w := doRequest(t, s, "GET", path, outsiderToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("Outsider: expected 403, got %d", w.Code)
	}
	if w := doRequest(t, s, "GET", path, "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Anonymous: expected 401, got %d", w.Code)
	}
}

func TestListFarms_Scoped(t *testing.T) {
	s, db := newTestServer(t)
	_, aliceToken := newTestUser(t, s, db, "alice", "user")
	_, bobToken := newTestUser(t, s, db, "bob", "user")
	_, adminToken := newTestUser(t, s, db, "admin", "admin")

	createFarmVia(t, s, aliceToken, "Alice Acres")
	createFarmVia(t, s, aliceToken, "Alice Annex")
	createFarmVia(t, s, bobToken, "Bob Bottoms")

	var farms []storage.Farm

	w := doRequest(t, s, "GET", "/api/v1/farms", aliceToken, nil)
	decodeBody(t, w, &farms)
	if len(farms) != 2 {
		t.Errorf("Alice: expected 2 farms, got %d", len(farms))
	}

	w = doRequest(t, s, "GET", "/api/v1/farms", adminToken, nil)
	decodeBody(t, w, &farms)
	if len(farms) != 3 {
		t.Errorf("Admin: expected all 3 farms, got %d", len(farms))
	}

	_, newcomerToken := newTestUser(t, s, db, "newcomer", "user")
	w = doRequest(t, s, "GET", "/api/v1/farms", newcomerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Newcomer: expected 200, got %d", w.Code)
	}
	decodeBody(t, w, &farms)
	if len(farms) != 0 {
		t.Errorf("Newcomer: expected empty list, got %d farms", len(farms))
	}
}

func TestUpdateFarm_RequiresAdmin(t *testing.T) {
	s, db := newTestServer(t)
	_, ownerToken := newTestUser(t, s, db, "owner", "user")
	workerID, workerToken := newTestUser(t, s, db, "worker", "user")
	farmID := createFarmVia(t, s, ownerToken, "Maple Hollow")
	path := fmt.Sprintf("/api/v1/farms/%d", farmID)

	w := doRequest(t, s, "POST", fmt.Sprintf("/api/v1/farms/%d/members", farmID), ownerToken,
		map[string]interface{}{"user_id": workerID, "role": "worker"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to add worker: %d %s", w.Code, w.Body.String())
	}

	update := map[string]interface{}{"name": "Maple Hollow Ranch"}
	if w := doRequest(t, s, "PUT", path, workerToken, update); w.Code != http.StatusForbidden {
		t.Errorf("Worker: expected 403, got %d", w.Code)
	}
	if w := doRequest(t, s, "PUT", path, ownerToken, update); w.Code != http.StatusOK {
		t.Errorf("Owner: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteFarm_OwnerOnly(t *testing.T) {
	s, db := newTestServer(t)
	_, ownerToken := newTestUser(t, s, db, "owner", "user")
	managerID, managerToken := newTestUser(t, s, db, "manager", "user")
	farmID := createFarmVia(t, s, ownerToken, "Maple Hollow")
	path := fmt.Sprintf("/api/v1/farms/%d", farmID)

	w := doRequest(t, s, "POST", fmt.Sprintf("/api/v1/farms/%d/members", farmID), ownerToken,
		map[string]interface{}{"user_id": managerID, "role": "manager"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to add manager: %d %s", w.Code, w.Body.String())
	}

	if w := doRequest(t, s, "DELETE", path, managerToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("Manager: expected 403 on delete, got %d", w.Code)
	}
	if w := doRequest(t, s, "DELETE", path, ownerToken, nil); w.Code != http.StatusNoContent {
		t.Errorf("Owner: expected 204 on delete, got %d", w.Code)
	}
	if w := doRequest(t, s, "GET", path, ownerToken, nil); w.Code != http.StatusForbidden {
		// Membership rows went with the farm, so the guard now rejects
		t.Errorf("Expected 403 after delete, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(t, s, "GET", "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}
