package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/farmstead/farmbook/pkg/audit"
)

func TestAuditTrail(t *testing.T) {
	s, db := newTestServer(t)
	_, ownerToken := newTestUser(t, s, db, "owner", "user")
	workerID, workerToken := newTestUser(t, s, db, "worker", "user")
	farmID := createFarmVia(t, s, ownerToken, "Maple Hollow")
	addMemberVia(t, s, ownerToken, farmID, workerID, "worker")
	auditPath := fmt.Sprintf("/api/v1/farms/%d/audit", farmID)

	// Workers cannot read the trail
	if w := doRequest(t, s, "GET", auditPath, workerToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("Worker: expected 403, got %d", w.Code)
	}

	w := doRequest(t, s, "GET", auditPath, ownerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Owner: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var events []audit.Event
	decodeBody(t, w, &events)

	// Farm creation and the member add both left entries, newest first
	if len(events) != 2 {
		t.Fatalf("Expected 2 audit events, got %d", len(events))
	}
	if events[0].Type != audit.EventMemberAdd {
		t.Errorf("Expected member.add first, got %q", events[0].Type)
	}
	if events[0].TargetUserID == nil || *events[0].TargetUserID != workerID {
		t.Errorf("Expected target user %d, got %v", workerID, events[0].TargetUserID)
	}
	if events[1].Type != audit.EventFarmCreate {
		t.Errorf("Expected farm.create, got %q", events[1].Type)
	}
}
