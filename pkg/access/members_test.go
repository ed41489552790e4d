package access

import (
	"context"
	"testing"
)

func TestAddUserToFarm(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	newcomer := createTestUser(t, db, "newcomer", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)

	id, err := members.AddUserToFarm(ctx, farmID, newcomer, RoleWorker, "", owner)
	if err != nil {
		t.Fatalf("AddUserToFarm failed: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero membership id")
	}

	role, err := NewStore(db).GetMembershipRole(ctx, newcomer, farmID)
	if err != nil {
		t.Fatalf("GetMembershipRole failed: %v", err)
	}
	if role != RoleWorker {
		t.Errorf("Expected role %s, got %s", RoleWorker, role)
	}
}

func TestAddUserToFarm_InvalidRole(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	newcomer := createTestUser(t, db, "newcomer", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)

	// Derived roles are never storable
	for _, role := range []Role{RoleAdmin, RoleNone, Role("landlord")} {
		_, err := members.AddUserToFarm(context.Background(), farmID, newcomer, role, "", owner)
		if err == nil {
			t.Fatalf("Expected error for role %s", role)
		}
		if KindOf(err) != KindBadRequest {
			t.Errorf("Expected bad request for role %s, got kind %d", role, KindOf(err))
		}
	}
}

func TestAddUserToFarm_NotAuthorized(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	worker := createTestUser(t, db, "worker", "user")
	newcomer := createTestUser(t, db, "newcomer", "user")
	outsider := createTestUser(t, db, "outsider", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)
	addTestMember(t, db, farmID, worker, RoleWorker)

	for _, actor := range []int64{worker, outsider} {
		_, err := members.AddUserToFarm(ctx, farmID, newcomer, RoleWorker, "", actor)
		if !IsForbidden(err) {
			t.Errorf("Expected forbidden for actor %d, got %v", actor, err)
		}
	}
}

func TestAddUserToFarm_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	worker := createTestUser(t, db, "worker", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)
	addTestMember(t, db, farmID, worker, RoleWorker)

	_, err := members.AddUserToFarm(ctx, farmID, worker, RoleManager, "", owner)
	if !IsConflict(err) {
		t.Errorf("Expected conflict for existing member, got %v", err)
	}

	// The rejected add rolled back; the stored role is untouched
	role, err := NewStore(db).GetMembershipRole(ctx, worker, farmID)
	if err != nil {
		t.Fatalf("GetMembershipRole failed: %v", err)
	}
	if role != RoleWorker {
		t.Errorf("Expected role %s after rejected add, got %s", RoleWorker, role)
	}
}

func TestRemoveUserFromFarm(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	worker := createTestUser(t, db, "worker", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)
	addTestMember(t, db, farmID, worker, RoleWorker)

	if err := members.RemoveUserFromFarm(ctx, farmID, worker, owner); err != nil {
		t.Fatalf("RemoveUserFromFarm failed: %v", err)
	}

	role, err := NewStore(db).GetMembershipRole(ctx, worker, farmID)
	if err != nil {
		t.Fatalf("GetMembershipRole failed: %v", err)
	}
	if role != RoleNone {
		t.Errorf("Expected membership removed, still has role %s", role)
	}
}

func TestRemoveUserFromFarm_NotAMember(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	outsider := createTestUser(t, db, "outsider", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)

	err := members.RemoveUserFromFarm(context.Background(), farmID, outsider, owner)
	if !IsNotFound(err) {
		t.Errorf("Expected not found for non-member, got %v", err)
	}
}

func TestRemoveUserFromFarm_LastOwner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)

	err := members.RemoveUserFromFarm(ctx, farmID, owner, owner)
	if !IsConflict(err) {
		t.Fatalf("Expected conflict removing last owner, got %v", err)
	}

	// The owner row must be untouched after the failed removal
	role, err := NewStore(db).GetMembershipRole(ctx, owner, farmID)
	if err != nil {
		t.Fatalf("GetMembershipRole failed: %v", err)
	}
	if role != RoleOwner {
		t.Errorf("Expected owner membership intact, got %s", role)
	}
}

func TestRemoveUserFromFarm_SecondOwner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	coOwner := createTestUser(t, db, "co-owner", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)
	addTestMember(t, db, farmID, coOwner, RoleOwner)

	// With two owners, removing one is allowed
	if err := members.RemoveUserFromFarm(ctx, farmID, coOwner, owner); err != nil {
		t.Fatalf("RemoveUserFromFarm failed: %v", err)
	}

	// Now the remaining owner is protected again
	err := members.RemoveUserFromFarm(ctx, farmID, owner, owner)
	if !IsConflict(err) {
		t.Errorf("Expected conflict removing the remaining owner, got %v", err)
	}
}

func TestRemoveUserFromFarm_AdminBypassesLastOwner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	admin := createTestUser(t, db, "admin", "admin")
	owner := createTestUser(t, db, "owner", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)

	if err := members.RemoveUserFromFarm(ctx, farmID, owner, admin); err != nil {
		t.Fatalf("Expected site admin to bypass last-owner protection, got %v", err)
	}
}

func TestUpdateUserFarmRole(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	worker := createTestUser(t, db, "worker", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)
	addTestMember(t, db, farmID, worker, RoleWorker)

	if err := members.UpdateUserFarmRole(ctx, farmID, worker, RoleManager, owner); err != nil {
		t.Fatalf("UpdateUserFarmRole failed: %v", err)
	}

	role, err := NewStore(db).GetMembershipRole(ctx, worker, farmID)
	if err != nil {
		t.Fatalf("GetMembershipRole failed: %v", err)
	}
	if role != RoleManager {
		t.Errorf("Expected role %s, got %s", RoleManager, role)
	}
}

func TestUpdateUserFarmRole_DemoteLastOwner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)

	err := members.UpdateUserFarmRole(ctx, farmID, owner, RoleWorker, owner)
	if !IsConflict(err) {
		t.Fatalf("Expected conflict demoting last owner, got %v", err)
	}

	role, _ := NewStore(db).GetMembershipRole(ctx, owner, farmID)
	if role != RoleOwner {
		t.Errorf("Expected owner role intact, got %s", role)
	}
}

func TestUpdateUserFarmRole_DemoteWithSecondOwner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	coOwner := createTestUser(t, db, "co-owner", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)
	addTestMember(t, db, farmID, coOwner, RoleOwner)

	if err := members.UpdateUserFarmRole(ctx, farmID, coOwner, RoleManager, owner); err != nil {
		t.Fatalf("UpdateUserFarmRole failed: %v", err)
	}

	role, _ := NewStore(db).GetMembershipRole(ctx, coOwner, farmID)
	if role != RoleManager {
		t.Errorf("Expected role %s, got %s", RoleManager, role)
	}
}

func TestUpdateUserFarmRole_PromoteToOwnerNeverBlocked(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	members := NewMembers(db)

	owner := createTestUser(t, db, "owner", "user")
	worker := createTestUser(t, db, "worker", "user")
	farmID := createTestFarm(t, db, "North Field Farm", owner)
	addTestMember(t, db, farmID, worker, RoleWorker)

	// Owner-to-owner no-op updates and promotions don't trip the
	// last-owner check
	if err := members.UpdateUserFarmRole(ctx, farmID, owner, RoleOwner, owner); err != nil {
		t.Fatalf("Owner no-op update failed: %v", err)
	}
	if err := members.UpdateUserFarmRole(ctx, farmID, worker, RoleOwner, owner); err != nil {
		t.Fatalf("Promotion to owner failed: %v", err)
	}
}
