package access

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect selects the SQL flavor migrations are rendered for.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) serialPK() string {
	if d == DialectSQLite {
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "BIGSERIAL PRIMARY KEY"
}

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the identity and access schema migrations
func GetMigrations(dialect Dialect) []Migration {
	pk := dialect.serialPK()
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS users (
					id %s,
					username VARCHAR(255) NOT NULL UNIQUE,
					email VARCHAR(255) NOT NULL UNIQUE,
					full_name VARCHAR(255),
					role VARCHAR(50) NOT NULL DEFAULT 'user',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					last_login_at TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
			`, pk),
		},
		{
			Version:     2,
			Description: "Create api_tokens table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS api_tokens (
					id %s,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					token_hash VARCHAR(64) NOT NULL UNIQUE,
					token_prefix VARCHAR(16) NOT NULL,
					name VARCHAR(255) NOT NULL,
					expires_at TIMESTAMP,
					last_used_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					revoked_at TIMESTAMP,
					revoked_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					revoke_reason TEXT
				);

				CREATE INDEX IF NOT EXISTS idx_api_tokens_user_id ON api_tokens(user_id);
				CREATE INDEX IF NOT EXISTS idx_api_tokens_token_hash ON api_tokens(token_hash);
			`, pk),
		},
		{
			Version:     3,
			Description: "Create farms table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS farms (
					id %s,
					name VARCHAR(255) NOT NULL,
					location TEXT,
					size_acres REAL,
					owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_farms_owner_id ON farms(owner_id);
			`, pk),
		},
		{
			Version:     4,
			Description: "Create farm_users table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS farm_users (
					id %s,
					farm_id BIGINT NOT NULL REFERENCES farms(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role VARCHAR(50) NOT NULL,
					permissions TEXT NOT NULL DEFAULT '',
					assigned_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(farm_id, user_id)
				);

				CREATE INDEX IF NOT EXISTS idx_farm_users_farm_id ON farm_users(farm_id);
				CREATE INDEX IF NOT EXISTS idx_farm_users_user_id ON farm_users(user_id);
			`, pk),
		},
		{
			Version:     5,
			Description: "Create farm_invitations table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS farm_invitations (
					id %s,
					farm_id BIGINT NOT NULL REFERENCES farms(id) ON DELETE CASCADE,
					email VARCHAR(255) NOT NULL,
					role VARCHAR(50) NOT NULL,
					token VARCHAR(64) NOT NULL UNIQUE,
					invited_by BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					invited_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					expires_at TIMESTAMP NOT NULL,
					accepted_at TIMESTAMP,
					accepted_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					UNIQUE(farm_id, email)
				);

				CREATE INDEX IF NOT EXISTS idx_farm_invitations_farm_id ON farm_invitations(farm_id);
				CREATE INDEX IF NOT EXISTS idx_farm_invitations_expires_at ON farm_invitations(expires_at);
			`, pk),
		},
	}
}

// RunMigrations executes all pending access migrations. Each migration
// runs in its own transaction and is recorded in access_migrations.
func RunMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS access_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM access_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations(dialect) {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO access_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
