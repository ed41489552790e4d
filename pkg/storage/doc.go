// Package storage persists farm records: farms, fields, crops, vehicles,
// chemical/fertilizer applications, and equipment maintenance.
//
// Every read takes a farm allow-list produced by the access layer. A nil
// list means unrestricted (site admin); an empty list means the caller is
// a member of no farms and reads short-circuit to empty results before
// touching the database. Single-record lookups outside the allow-list
// return ErrNotFound rather than a permission error, so record ids never
// confirm a farm's existence to outsiders.
//
// The store runs on database/sql against PostgreSQL (lib/pq) in
// production and SQLite (mattn/go-sqlite3) for single-binary deployments
// and tests. Schema migrations live in migrations.go and are tracked
// separately from the access schema.
package storage
