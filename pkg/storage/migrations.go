package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/farmstead/farmbook/pkg/access"
)

// GetMigrations returns the record schema migrations. These build on the
// identity and access tables from pkg/access.
func GetMigrations(dialect access.Dialect) []access.Migration {
	pk := "BIGSERIAL PRIMARY KEY"
	if dialect == access.DialectSQLite {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	return []access.Migration{
		{
			Version:     1,
			Description: "Create fields table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS fields (
					id %s,
					farm_id BIGINT NOT NULL REFERENCES farms(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					acres REAL,
					soil_type VARCHAR(100),
					notes TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_fields_farm_id ON fields(farm_id);
			`, pk),
		},
		{
			Version:     2,
			Description: "Create crops table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS crops (
					id %s,
					field_id BIGINT NOT NULL REFERENCES fields(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					variety VARCHAR(255),
					status VARCHAR(50) NOT NULL DEFAULT 'planned',
					planted_at TIMESTAMP,
					harvested_at TIMESTAMP,
					notes TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_crops_field_id ON crops(field_id);
			`, pk),
		},
		{
			Version:     3,
			Description: "Create vehicles table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS vehicles (
					id %s,
					farm_id BIGINT NOT NULL REFERENCES farms(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					make VARCHAR(100),
					model VARCHAR(100),
					year INT,
					engine_hours REAL,
					notes TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_vehicles_farm_id ON vehicles(farm_id);
			`, pk),
		},
		{
			Version:     4,
			Description: "Create applications table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS applications (
					id %s,
					farm_id BIGINT NOT NULL REFERENCES farms(id) ON DELETE CASCADE,
					field_id BIGINT REFERENCES fields(id) ON DELETE SET NULL,
					product VARCHAR(255) NOT NULL,
					rate REAL,
					unit VARCHAR(50),
					applied_at TIMESTAMP NOT NULL,
					applied_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					notes TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_applications_farm_id ON applications(farm_id);
				CREATE INDEX IF NOT EXISTS idx_applications_applied_at ON applications(applied_at);
			`, pk),
		},
		{
			Version:     5,
			Description: "Create maintenance_records table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS maintenance_records (
					id %s,
					farm_id BIGINT NOT NULL REFERENCES farms(id) ON DELETE CASCADE,
					vehicle_id BIGINT NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
					description TEXT NOT NULL,
					cost REAL,
					performed_at TIMESTAMP NOT NULL,
					performed_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					notes TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_maintenance_farm_id ON maintenance_records(farm_id);
				CREATE INDEX IF NOT EXISTS idx_maintenance_vehicle_id ON maintenance_records(vehicle_id);
			`, pk),
		},
	}
}

// RunMigrations executes all pending record migrations, tracked in
// storage_migrations separately from the access schema.
func RunMigrations(ctx context.Context, db *sql.DB, dialect access.Dialect) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS storage_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM storage_migrations ORDER BY version")
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
			"INSERT INTO storage_migrations (version, description) VALUES ($1, $2)",
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
