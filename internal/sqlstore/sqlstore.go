package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"vlink/internal/links"
	"vlink/internal/models"
)

const timeLayout = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code TEXT NOT NULL,
	destination TEXT NOT NULL,
	destination_hash TEXT NOT NULL,
	is_custom INTEGER NOT NULL DEFAULT 0,
	visit_count INTEGER NOT NULL DEFAULT 0,
	qr_downloads INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	last_accessed_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS uix_links_code ON links(code);
CREATE UNIQUE INDEX IF NOT EXISTS uix_links_destination_hash ON links(destination_hash);

CREATE TABLE IF NOT EXISTS visits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	link_id INTEGER NOT NULL,
	visited_at TEXT NOT NULL,
	user_agent TEXT,
	address_hash TEXT,
	referrer TEXT,
	FOREIGN KEY(link_id) REFERENCES links(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_visits_link_id ON visits(link_id);
`

const linkColumns = `id, code, destination, destination_hash, is_custom, visit_count, qr_downloads, created_at, updated_at, last_accessed_at`

// Store implements links.Store with database/sql over a local SQLite file or
// a remote libSQL (Turso) database.
type Store struct {
	db *sql.DB
}

var _ links.Store = (*Store)(nil)

// DriverFor picks the database/sql driver for a connection URL.
func DriverFor(dbURL string) string {
	if strings.HasPrefix(dbURL, "libsql://") || strings.HasPrefix(dbURL, "wss://") {
		return "libsql"
	}
	return "sqlite"
}

// Open connects to dbURL, verifies the connection and applies the schema.
func Open(dbURL string) (*Store, error) {
	driverName := DriverFor(dbURL)

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, links.StoreError("open", err)
	}
	if driverName == "sqlite" {
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, links.StoreError("ping", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, links.StoreError("migrate", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", strings.TrimSpace(stmt), err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*models.Link, error) {
	var (
		link         models.Link
		isCustom     int64
		createdAt    string
		updatedAt    string
		lastAccessed sql.NullString
	)
	err := row.Scan(&link.ID, &link.Code, &link.Destination, &link.DestinationHash, &isCustom,
		&link.VisitCount, &link.QRDownloads, &createdAt, &updatedAt, &lastAccessed)
	if err != nil {
		return nil, err
	}
	link.IsCustom = isCustom != 0
	if link.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if link.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if lastAccessed.Valid {
		at, err := time.Parse(timeLayout, lastAccessed.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_accessed_at: %w", err)
		}
		link.LastAccessedAt = &at
	}
	return &link, nil
}

func (s *Store) findOne(ctx context.Context, op, where string, arg any) (*models.Link, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE `+where+` = ?`, arg)
	link, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, links.ErrNotFound
	}
	if err != nil {
		return nil, links.StoreError(op, err)
	}
	return link, nil
}

// FindByCode retrieves a link by its short code.
func (s *Store) FindByCode(ctx context.Context, code string) (*models.Link, error) {
	return s.findOne(ctx, "find by code", "code", code)
}

// FindByDestination retrieves a link by its destination URL.
func (s *Store) FindByDestination(ctx context.Context, destination string) (*models.Link, error) {
	return s.findOne(ctx, "find by destination", "destination_hash", models.HashDestination(destination))
}

// InsertIfAbsent inserts link; the unique indexes decide conflicts.
func (s *Store) InsertIfAbsent(ctx context.Context, link *models.Link) error {
	if link.DestinationHash == "" {
		link.DestinationHash = models.HashDestination(link.Destination)
	}
	var lastAccessed any
	if link.LastAccessedAt != nil {
		lastAccessed = link.LastAccessedAt.UTC().Format(timeLayout)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO links (code, destination, destination_hash, is_custom, visit_count, qr_downloads, created_at, updated_at, last_accessed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		link.Code, link.Destination, link.DestinationHash, boolToInt(link.IsCustom),
		link.VisitCount, link.QRDownloads,
		link.CreatedAt.UTC().Format(timeLayout), link.UpdatedAt.UTC().Format(timeLayout), lastAccessed,
	)
	if err != nil {
		if dup := classifyDuplicate(err); dup != nil {
			return dup
		}
		return links.StoreError("insert", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return links.StoreError("insert", err)
	}
	link.ID = uint(id)
	return nil
}

// RecordHit increments visit_count and stamps last_accessed_at in one UPDATE.
func (s *Store) RecordHit(ctx context.Context, code string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE links SET visit_count = visit_count + 1, last_accessed_at = ? WHERE code = ?`,
		at.UTC().Format(timeLayout), code)
	return affectedOne("record hit", res, err)
}

// AppendVisit inserts one analytics row.
func (s *Store) AppendVisit(ctx context.Context, visit *models.Visit) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO visits (link_id, visited_at, user_agent, address_hash, referrer) VALUES (?, ?, ?, ?, ?)`,
		visit.LinkID, visit.VisitedAt.UTC().Format(timeLayout), visit.UserAgent, visit.AddressHash, visit.Referrer)
	if err != nil {
		return links.StoreError("append visit", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		visit.ID = uint(id)
	}
	return nil
}

// IncrementQRDownloads bumps the QR download counter for code.
func (s *Store) IncrementQRDownloads(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE links SET qr_downloads = qr_downloads + 1 WHERE code = ?`, code)
	return affectedOne("increment qr downloads", res, err)
}

// Delete removes the link and its visits in one transaction.
func (s *Store) Delete(ctx context.Context, code string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return links.StoreError("delete", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM links WHERE code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return links.ErrNotFound
	}
	if err != nil {
		return links.StoreError("delete", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM visits WHERE link_id = ?`, id); err != nil {
		return links.StoreError("delete visits", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id); err != nil {
		return links.StoreError("delete", err)
	}
	if err := tx.Commit(); err != nil {
		return links.StoreError("delete", err)
	}
	return nil
}

// List returns links ordered by id. A non-positive limit returns everything.
func (s *Store) List(ctx context.Context, limit, offset int) ([]models.Link, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links ORDER BY id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, links.StoreError("list", err)
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, links.StoreError("list", err)
		}
		out = append(out, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, links.StoreError("list", err)
	}
	return out, nil
}

// CountVisits returns how many visit rows exist for a link.
func (s *Store) CountVisits(ctx context.Context, linkID uint) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits WHERE link_id = ?`, linkID).Scan(&n); err != nil {
		return 0, links.StoreError("count visits", err)
	}
	return n, nil
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return links.StoreError("ping", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func affectedOne(op string, res sql.Result, err error) error {
	if err != nil {
		return links.StoreError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return links.StoreError(op, err)
	}
	if n == 0 {
		return links.ErrNotFound
	}
	return nil
}

// classifyDuplicate maps a unique index violation to the matching links error.
// libSQL reports errors as plain strings, so the message is checked as well.
func classifyDuplicate(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(strings.ToUpper(msg), "UNIQUE CONSTRAINT") {
		return nil
	}
	if strings.Contains(msg, "destination_hash") {
		return links.ErrDuplicateDestination
	}
	return links.ErrDuplicateCode
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
