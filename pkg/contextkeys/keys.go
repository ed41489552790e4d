// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/farmstead/farmbook/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.AuthKey, authCtx)
//   authCtx := ctx.Value(contextkeys.AuthKey).(*auth.AuthContext)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.AuthContext
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: All protected API endpoints, access middleware
	// Type: *auth.AuthContext
	AuthKey Key = "auth_context"

	// FarmAccessKey contains *access.Membership for the request's farm
	// Set by: access.RequireFarmAccess
	// Required by: Farm-scoped handlers that need the caller's membership row
	// Type: *access.Membership
	FarmAccessKey Key = "farm_access"

	// FarmRoleKey contains the caller's resolved access.EffectiveRole
	// Set by: access.RequireFarmUserManagement, access.RequireFarmOwner
	// Type: access.EffectiveRole
	FarmRoleKey Key = "farm_role"

	// FarmIDKey contains the farm id resolved from the request
	// Set by: access middleware after farm id extraction
	// Type: int64
	FarmIDKey Key = "farm_id"

	// UserFarmsKey contains the caller's farm allow-list
	// Set by: access.FilterByUserFarms (nil slice means unrestricted)
	// Type: []int64
	UserFarmsKey Key = "user_farms"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware, observability layer
	// Used by: Logger, user-scoped operations
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: Auth middleware after user authentication
	// Used by: Logger, user-scoped operations
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// Helper functions for type-safe context operations

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// WithFarmAccess adds the caller's farm membership to the context
func WithFarmAccess(ctx context.Context, membership interface{}) context.Context {
	return context.WithValue(ctx, FarmAccessKey, membership)
}

// WithFarmRole adds the caller's effective farm role to the context
func WithFarmRole(ctx context.Context, role interface{}) context.Context {
	return context.WithValue(ctx, FarmRoleKey, role)
}

// WithFarmID adds the resolved farm id to the context
func WithFarmID(ctx context.Context, farmID int64) context.Context {
	return context.WithValue(ctx, FarmIDKey, farmID)
}

// WithUserFarms adds the caller's farm allow-list to the context
func WithUserFarms(ctx context.Context, farmIDs []int64) context.Context {
	return context.WithValue(ctx, UserFarmsKey, farmIDs)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetFarmID retrieves the resolved farm id from context
func GetFarmID(ctx context.Context) (int64, bool) {
	farmID, ok := ctx.Value(FarmIDKey).(int64)
	return farmID, ok
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
