package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TokenPrefix identifies farmbook tokens
	TokenPrefix = "fbk_"
	// TokenLength is the total length of random bytes (32 bytes = 256 bits)
	TokenLength = 32
)

// ErrInvalidToken is returned when a token fails validation for any reason
// the caller may safely show to the client.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenGenerator generates and validates API tokens
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken creates a new API token
// Format: fbk_<base64url(32 random bytes)>
func (tg *TokenGenerator) GenerateToken() (token string, tokenHash string, tokenPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encodedToken := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullToken := TokenPrefix + encodedToken

	hash := sha256.Sum256([]byte(fullToken))
	hashStr := hex.EncodeToString(hash[:])

	// First 8 chars after the prefix are safe to display for identification
	prefix := TokenPrefix
	if len(encodedToken) >= 8 {
		prefix = TokenPrefix + encodedToken[:8]
	}

	return fullToken, hashStr, prefix, nil
}

// HashToken computes the SHA256 hash of a token for lookup
func (tg *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct format
func (tg *TokenGenerator) ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) == 0 {
		return fmt.Errorf("token is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encodedPart); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}

	return nil
}

// TokenManager manages API token lifecycle against the database
type TokenManager struct {
	db        *sql.DB
	generator *TokenGenerator
}

// NewTokenManager creates a new token manager
func NewTokenManager(db *sql.DB) *TokenManager {
	return &TokenManager{
		db:        db,
		generator: NewTokenGenerator(),
	}
}

// CreateToken creates a new API token and returns the plaintext token once;
// only its hash is stored.
func (tm *TokenManager) CreateToken(ctx context.Context, userID int64, name string, expiresAt *time.Time) (*APIToken, string, error) {
	token, tokenHash, tokenPrefix, err := tm.generator.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	apiToken := &APIToken{
		UserID:      userID,
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		Name:        name,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}

	query := `
		INSERT INTO api_tokens (user_id, token_hash, token_prefix, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = tm.db.QueryRowContext(ctx, query,
		apiToken.UserID,
		apiToken.TokenHash,
		apiToken.TokenPrefix,
		apiToken.Name,
		apiToken.ExpiresAt,
		apiToken.CreatedAt,
	).Scan(&apiToken.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store token: %w", err)
	}

	return apiToken, token, nil
}

// ValidateToken validates a bearer token and returns the token record.
// Revoked and expired tokens fail with ErrInvalidToken.
func (tm *TokenManager) ValidateToken(ctx context.Context, token string) (*APIToken, error) {
	if err := tm.generator.ValidateTokenFormat(token); err != nil {
		return nil, ErrInvalidToken
	}

	tokenHash := tm.generator.HashToken(token)

	query := `
		SELECT id, user_id, token_hash, token_prefix, name, expires_at, last_used_at, created_at, revoked_at
		FROM api_tokens
		WHERE token_hash = $1
	`

	var apiToken APIToken
	var expiresAt, lastUsedAt, revokedAt sql.NullTime

	err := tm.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&apiToken.ID,
		&apiToken.UserID,
		&apiToken.TokenHash,
		&apiToken.TokenPrefix,
		&apiToken.Name,
		&expiresAt,
		&lastUsedAt,
		&apiToken.CreatedAt,
		&revokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if revokedAt.Valid {
		return nil, ErrInvalidToken
	}
	if expiresAt.Valid {
		ea := expiresAt.Time
		apiToken.ExpiresAt = &ea
		if time.Now().After(ea) {
			return nil, ErrInvalidToken
		}
	}
	if lastUsedAt.Valid {
		lu := lastUsedAt.Time
		apiToken.LastUsedAt = &lu
	}

	// Best effort; a failed stamp must not fail the request
	_, _ = tm.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = $1 WHERE id = $2`, time.Now(), apiToken.ID)

	return &apiToken, nil
}

// RevokeToken revokes a token
func (tm *TokenManager) RevokeToken(ctx context.Context, tokenID, revokedBy int64, reason string) error {
	query := `
		UPDATE api_tokens
		SET revoked_at = $1, revoked_by = $2, revoke_reason = $3
		WHERE id = $4 AND revoked_at IS NULL
	`
	result, err := tm.db.ExecContext(ctx, query, time.Now(), revokedBy, reason, tokenID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("token not found or already revoked")
	}

	return nil
}

// ListUserTokens lists all tokens for a user, newest first
func (tm *TokenManager) ListUserTokens(ctx context.Context, userID int64) ([]*APIToken, error) {
	query := `
		SELECT id, user_id, token_hash, token_prefix, name, expires_at, last_used_at, created_at, revoked_at
		FROM api_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := tm.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*APIToken
	for rows.Next() {
		var t APIToken
		var expiresAt, lastUsedAt, revokedAt sql.NullTime

		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.TokenHash,
			&t.TokenPrefix,
			&t.Name,
			&expiresAt,
			&lastUsedAt,
			&t.CreatedAt,
			&revokedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}

		if expiresAt.Valid {
			ea := expiresAt.Time
			t.ExpiresAt = &ea
		}
		if lastUsedAt.Valid {
			lu := lastUsedAt.Time
			t.LastUsedAt = &lu
		}
		if revokedAt.Valid {
			ra := revokedAt.Time
			t.RevokedAt = &ra
		}

		tokens = append(tokens, &t)
	}

	return tokens, rows.Err()
}
