// Package access implements farm-scoped authorization for Farmbook.
//
// # Overview
//
// Every record in Farmbook belongs to a farm, and every user carries a
// system role ("admin" or "user") plus zero or more farm memberships
// ("owner", "manager" or "worker"). This package resolves those two
// layers into an effective role per (user, farm) pair and enforces it
// at the HTTP boundary.
//
// # Role Model
//
// System roles:
//
//	admin - full access to every farm and every record; resolved from
//	        the users table on each decision, never from the token
//	user  - access only through farm memberships
//
// Farm roles, stored in farm_users:
//
//	owner   - full control of the farm, including deletion
//	manager - administers the farm and its members, cannot delete it
//	worker  - read/write access to the farm's records only
//
// The evaluator resolves these to an EffectiveRole:
//
//	role, err := evaluator.GetUserFarmRole(ctx, userID, farmID)
//	if role.CanManageUsers { ... }
//
// Site admins short-circuit to AdminRole() before any membership
// lookup. Users with no membership resolve to NoneRole().
//
// # Middleware
//
// The Guard type wraps handlers with farm-scoped checks:
//
//	guard := access.NewGuard(db, metrics)
//	router.Handle("/farms/{farmId}/fields",
//		guard.RequireFarmAccess(listFieldsHandler)).Methods("GET")
//	router.Handle("/farms/{id}",
//		guard.RequireFarmOwner(deleteFarmHandler)).Methods("DELETE")
//
// The farm id is resolved from the farmId route variable, then the id
// route variable, then a farm_id field in the JSON body. Denials return
// 403 with a reason; failures to evaluate return 500 with a generic
// "permission check failed" so callers can tell the two apart.
//
// FilterByUserFarms attaches the caller's farm allow-list to the
// context for list endpoints instead of rejecting; a nil list means a
// site admin with unrestricted visibility.
//
// # Membership Management
//
// Members handles add/remove/role-change with the last-owner rule: a
// farm must always keep at least one owner. The owner count and the
// mutation run in one serializable transaction so concurrent removals
// cannot race past the check. Site admins may bypass the rule.
//
// Invitations issues single-use tokens for joining a farm, with a
// seven-day expiry and transactional acceptance.
//
// # Database Schema
//
// Migrations in migrations.go create users, api_tokens, farms,
// farm_users and farm_invitations, rendered for either PostgreSQL or
// SQLite:
//
//	err := access.RunMigrations(ctx, db, access.DialectPostgres)
//
// # Related Packages
//
//   - pkg/auth: token issuance and identity resolution
//   - pkg/middleware: request authentication and rate limiting
//   - pkg/storage: farm record persistence, consumes the allow-list
package access
