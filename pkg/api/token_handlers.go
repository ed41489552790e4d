package api

import (
	"net/http"
	"time"

	"github.com/farmstead/farmbook/pkg/auth"
	"github.com/farmstead/farmbook/pkg/httputil"
)

type createTokenRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type createTokenResponse struct {
	Token *auth.APIToken `json:"token"`
	// Plaintext is shown exactly once; only its hash is stored
	Plaintext string `json:"plaintext"`
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		httputil.WriteBadRequest(w, "expires_at is in the past")
		return
	}

	apiToken, plaintext, err := s.tokenManager.CreateToken(r.Context(), user.ID, req.Name, req.ExpiresAt)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, createTokenResponse{Token: apiToken, Plaintext: plaintext})
}

func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	tokens, err := s.tokenManager.ListUserTokens(r.Context(), user.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if tokens == nil {
		tokens = []*auth.APIToken{}
	}
	httputil.WriteSuccess(w, tokens)
}

func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	// Users may only revoke their own tokens
	tokens, err := s.tokenManager.ListUserTokens(r.Context(), user.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	owned := false
	for _, t := range tokens {
		if t.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		httputil.WriteNotFoundError(w, "token not found")
		return
	}

	if err := s.tokenManager.RevokeToken(r.Context(), id, user.ID, "revoked by owner"); err != nil {
		httputil.WriteErrorMessage(w, http.StatusConflict, err.Error())
		return
	}
	httputil.WriteNoContent(w)
}
