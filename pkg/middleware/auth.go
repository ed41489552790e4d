package middleware

import (
	"net/http"
	"strings"

	"github.com/farmstead/farmbook/pkg/auth"
	"github.com/farmstead/farmbook/pkg/contextkeys"
)

// AuthMiddleware authenticates requests by API token. On success the
// resolved user and token are attached to the request context; every
// downstream permission decision re-reads the user's role from storage
// rather than trusting anything carried in the token.
type AuthMiddleware struct {
	tokenManager *auth.TokenManager
	resolver     *auth.Resolver
	optional     bool
}

// NewAuthMiddleware creates a new authentication middleware. With
// optional set, unauthenticated requests pass through without an auth
// context; protected routes still reject them further down.
func NewAuthMiddleware(tokenManager *auth.TokenManager, resolver *auth.Resolver, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokenManager: tokenManager,
		resolver:     resolver,
		optional:     optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			unauthorizedResponse(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		apiToken, err := m.tokenManager.ValidateToken(r.Context(), parts[1])
		if err != nil {
			unauthorizedResponse(w, "invalid or expired token")
			return
		}

		user, err := m.resolver.GetUser(r.Context(), apiToken.UserID)
		if err != nil || user == nil || !user.IsActive {
			unauthorizedResponse(w, "invalid or expired token")
			return
		}

		authCtx := &auth.AuthContext{
			User:  user,
			Token: apiToken,
		}

		ctx := contextkeys.WithAuth(r.Context(), authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	ctx := r.Context().Value(contextkeys.AuthKey)
	if ctx == nil {
		return nil
	}
	authCtx, ok := ctx.(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// RequireSiteAdmin guards routes reserved for site administrators. The
// role comes from the freshly loaded user row, not the token.
func RequireSiteAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil || authCtx.User == nil {
			unauthorizedResponse(w, "authentication required")
			return
		}
		if authCtx.User.Role != auth.SystemRoleAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"site administrator access required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
