package access

import (
	"context"
	"testing"
)

func TestGetUserFarmRole_SiteAdmin(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	evaluator := NewEvaluator(db)

	admin := createTestUser(t, db, "admin", "admin")
	owner := createTestUser(t, db, "owner", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)

	// Site admin resolves to the admin role without any membership row
	role, err := evaluator.GetUserFarmRole(ctx, admin, farmID)
	if err != nil {
		t.Fatalf("GetUserFarmRole failed: %v", err)
	}
	if role.Role != RoleAdmin {
		t.Errorf("Expected role %s, got %s", RoleAdmin, role.Role)
	}
	if !role.CanManageUsers || !role.CanManageFarm || !role.CanDeleteFarm {
		t.Errorf("Expected all capabilities for site admin, got %+v", role)
	}
}

func TestGetUserFarmRole_AdminShortCircuitsMembership(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	evaluator := NewEvaluator(db)

	admin := createTestUser(t, db, "admin", "admin")
	owner := createTestUser(t, db, "owner", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)

	// A worker membership row must not demote a site admin
	addTestMember(t, db, farmID, admin, RoleWorker)

	role, err := evaluator.GetUserFarmRole(ctx, admin, farmID)
	if err != nil {
		t.Fatalf("GetUserFarmRole failed: %v", err)
	}
	if role.Role != RoleAdmin {
		t.Errorf("Expected admin role to win over worker membership, got %s", role.Role)
	}
}

func TestGetUserFarmRole_FarmRoles(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	evaluator := NewEvaluator(db)

	owner := createTestUser(t, db, "owner", "user")
	manager := createTestUser(t, db, "manager", "user")
	worker := createTestUser(t, db, "worker", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)
	addTestMember(t, db, farmID, manager, RoleManager)
	addTestMember(t, db, farmID, worker, RoleWorker)

	tests := []struct {
		name           string
		userID         int64
		wantRole       Role
		canManageUsers bool
		canManageFarm  bool
		canDeleteFarm  bool
	}{
		{"owner", owner, RoleOwner, true, true, true},
		{"manager", manager, RoleManager, true, true, false},
		{"worker", worker, RoleWorker, false, false, false},
	}

	for _, tt := range tests {
		role, err := evaluator.GetUserFarmRole(ctx, tt.userID, farmID)
		if err != nil {
			t.Fatalf("%s: GetUserFarmRole failed: %v", tt.name, err)
		}
		if role.Role != tt.wantRole {
			t.Errorf("%s: expected role %s, got %s", tt.name, tt.wantRole, role.Role)
		}
		if role.CanManageUsers != tt.canManageUsers {
			t.Errorf("%s: expected CanManageUsers=%v, got %v", tt.name, tt.canManageUsers, role.CanManageUsers)
		}
		if role.CanManageFarm != tt.canManageFarm {
			t.Errorf("%s: expected CanManageFarm=%v, got %v", tt.name, tt.canManageFarm, role.CanManageFarm)
		}
		if role.CanDeleteFarm != tt.canDeleteFarm {
			t.Errorf("%s: expected CanDeleteFarm=%v, got %v", tt.name, tt.canDeleteFarm, role.CanDeleteFarm)
		}

		// Evaluation is read-only; a second call with no intervening
		// mutation yields the identical result
		again, err := evaluator.GetUserFarmRole(ctx, tt.userID, farmID)
		if err != nil {
			t.Fatalf("%s: repeated GetUserFarmRole failed: %v", tt.name, err)
		}
		if again != role {
			t.Errorf("%s: expected identical result on repeat, got %+v then %+v", tt.name, role, again)
		}
	}
}

func TestGetUserFarmRole_NoMembership(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	evaluator := NewEvaluator(db)

	owner := createTestUser(t, db, "owner", "user")
	outsider := createTestUser(t, db, "outsider", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)

	role, err := evaluator.GetUserFarmRole(ctx, outsider, farmID)
	if err != nil {
		t.Fatalf("GetUserFarmRole failed: %v", err)
	}
	if role.Role != RoleNone {
		t.Errorf("Expected role %s, got %s", RoleNone, role.Role)
	}
	if role.CanManageUsers || role.CanManageFarm || role.CanDeleteFarm {
		t.Errorf("Expected no capabilities without membership, got %+v", role)
	}
}

func TestIsSiteAdmin_MissingUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	evaluator := NewEvaluator(db)

	// A user id with no row is not an admin and not an error
	isAdmin, err := evaluator.IsSiteAdmin(context.Background(), 99999)
	if err != nil {
		t.Fatalf("IsSiteAdmin failed: %v", err)
	}
	if isAdmin {
		t.Error("Expected missing user to not be a site admin")
	}
}

func TestIsFarmAdmin(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	evaluator := NewEvaluator(db)

	admin := createTestUser(t, db, "admin", "admin")
	owner := createTestUser(t, db, "owner", "user")
	manager := createTestUser(t, db, "manager", "user")
	worker := createTestUser(t, db, "worker", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)
	addTestMember(t, db, farmID, manager, RoleManager)
	addTestMember(t, db, farmID, worker, RoleWorker)

	tests := []struct {
		name   string
		userID int64
		want   bool
	}{
		{"site admin", admin, true},
		{"owner", owner, true},
		{"manager", manager, true},
		{"worker", worker, false},
	}

	for _, tt := range tests {
		got, err := evaluator.IsFarmAdmin(ctx, tt.userID, farmID)
		if err != nil {
			t.Fatalf("%s: IsFarmAdmin failed: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected IsFarmAdmin=%v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestIsFarmManager(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	evaluator := NewEvaluator(db)

	admin := createTestUser(t, db, "admin", "admin")
	owner := createTestUser(t, db, "owner", "user")
	manager := createTestUser(t, db, "manager", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)
	addTestMember(t, db, farmID, manager, RoleManager)

	// Only the stored manager role counts; site admins and owners are not
	// subject to the manager restrictions.
	got, err := evaluator.IsFarmManager(ctx, manager, farmID)
	if err != nil {
		t.Fatalf("IsFarmManager failed: %v", err)
	}
	if !got {
		t.Error("Expected manager to be reported as manager")
	}

	for _, userID := range []int64{admin, owner} {
		got, err := evaluator.IsFarmManager(ctx, userID, farmID)
		if err != nil {
			t.Fatalf("IsFarmManager failed: %v", err)
		}
		if got {
			t.Errorf("Expected user %d to not be reported as manager", userID)
		}
	}
}
