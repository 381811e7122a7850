package storage

import (
	"strings"

	"vlink/internal/db"
	"vlink/internal/links"
	"vlink/internal/sqlstore"
)

// IsPostgres reports whether databaseURL should be served by the gorm backend.
func IsPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}

// Open returns the links.Store for databaseURL: Postgres through gorm, anything
// else (local SQLite files, libsql:// and wss:// Turso URLs) through sqlstore.
func Open(databaseURL string) (links.Store, error) {
	if IsPostgres(databaseURL) {
		store, err := db.Open(databaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := sqlstore.Open(databaseURL)
	if err != nil {
		return nil, err
	}
	return store, nil
}
