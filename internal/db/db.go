package db

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	"github.com/lib/pq"

	"vlink/internal/links"
	"vlink/internal/models"
)

// uniqueViolation is the SQLSTATE Postgres reports for unique index conflicts.
const uniqueViolation = "23505"

var (
	conn    *gorm.DB
	once    sync.Once
	initErr error
)

// InitDB opens the process-wide connection on first call and migrates the
// schema. Later calls return the result of the first one.
func InitDB(dialect, dataSourceName string) (*gorm.DB, error) {
	once.Do(func() {
		var db *gorm.DB
		db, initErr = gorm.Open(dialect, dataSourceName)
		if initErr != nil {
			return
		}
		if initErr = Migrate(db); initErr != nil {
			db.Close()
			return
		}
		conn = db
	})
	return conn, initErr
}

// Close releases the process-wide connection opened by InitDB.
func Close() error {
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Migrate creates or updates the links and visits tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Link{}, &models.Visit{}).Error
}

// Store implements links.Store on top of gorm.
type Store struct {
	db *gorm.DB
}

var _ links.Store = (*Store)(nil)

// NewStore wraps an open gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open initializes the shared connection and returns a Store over it.
func Open(dataSourceName string) (*Store, error) {
	db, err := InitDB("postgres", dataSourceName)
	if err != nil {
		return nil, links.StoreError("open", err)
	}
	return NewStore(db), nil
}

// FindByCode retrieves a link by its short code.
func (s *Store) FindByCode(ctx context.Context, code string) (*models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, links.StoreError("find by code", err)
	}
	var link models.Link
	if err := s.db.Where("code = ?", code).First(&link).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, links.ErrNotFound
		}
		return nil, links.StoreError("find by code", err)
	}
	return &link, nil
}

// FindByDestination retrieves a link by its destination URL.
func (s *Store) FindByDestination(ctx context.Context, destination string) (*models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, links.StoreError("find by destination", err)
	}
	var link models.Link
	err := s.db.Where("destination_hash = ?", models.HashDestination(destination)).First(&link).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, links.ErrNotFound
		}
		return nil, links.StoreError("find by destination", err)
	}
	return &link, nil
}

// InsertIfAbsent creates the link and relies on the unique indexes to reject
// conflicting codes or destinations.
func (s *Store) InsertIfAbsent(ctx context.Context, link *models.Link) error {
	if err := ctx.Err(); err != nil {
		return links.StoreError("insert", err)
	}
	if err := s.db.Create(link).Error; err != nil {
		if dup := classifyDuplicate(err); dup != nil {
			return dup
		}
		return links.StoreError("insert", err)
	}
	return nil
}

// RecordHit increments visit_count and stamps last_accessed_at in one UPDATE.
func (s *Store) RecordHit(ctx context.Context, code string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return links.StoreError("record hit", err)
	}
	res := s.db.Model(&models.Link{}).Where("code = ?", code).UpdateColumns(map[string]interface{}{
		"visit_count":      gorm.Expr("visit_count + ?", 1),
		"last_accessed_at": at,
	})
	if res.Error != nil {
		return links.StoreError("record hit", res.Error)
	}
	if res.RowsAffected == 0 {
		return links.ErrNotFound
	}
	return nil
}

// AppendVisit inserts one analytics row.
func (s *Store) AppendVisit(ctx context.Context, visit *models.Visit) error {
	if err := ctx.Err(); err != nil {
		return links.StoreError("append visit", err)
	}
	if err := s.db.Create(visit).Error; err != nil {
		return links.StoreError("append visit", err)
	}
	return nil
}

// IncrementQRDownloads bumps the QR download counter for code.
func (s *Store) IncrementQRDownloads(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return links.StoreError("increment qr downloads", err)
	}
	res := s.db.Model(&models.Link{}).Where("code = ?", code).
		UpdateColumn("qr_downloads", gorm.Expr("qr_downloads + ?", 1))
	if res.Error != nil {
		return links.StoreError("increment qr downloads", res.Error)
	}
	if res.RowsAffected == 0 {
		return links.ErrNotFound
	}
	return nil
}

// Delete removes the link and its visits in one transaction.
func (s *Store) Delete(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return links.StoreError("delete", err)
	}
	tx := s.db.Begin()
	if tx.Error != nil {
		return links.StoreError("delete", tx.Error)
	}

	var link models.Link
	if err := tx.Where("code = ?", code).First(&link).Error; err != nil {
		tx.Rollback()
		if gorm.IsRecordNotFoundError(err) {
			return links.ErrNotFound
		}
		return links.StoreError("delete", err)
	}
	if err := tx.Where("link_id = ?", link.ID).Delete(&models.Visit{}).Error; err != nil {
		tx.Rollback()
		return links.StoreError("delete visits", err)
	}
	if err := tx.Delete(&link).Error; err != nil {
		tx.Rollback()
		return links.StoreError("delete", err)
	}
	if err := tx.Commit().Error; err != nil {
		return links.StoreError("delete", err)
	}
	return nil
}

// List returns links ordered by id. A non-positive limit returns everything.
func (s *Store) List(ctx context.Context, limit, offset int) ([]models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, links.StoreError("list", err)
	}
	query := s.db.Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var out []models.Link
	if err := query.Find(&out).Error; err != nil {
		return nil, links.StoreError("list", err)
	}
	return out, nil
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.DB().PingContext(ctx); err != nil {
		return links.StoreError("ping", err)
	}
	return nil
}

// Close closes the wrapped connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// classifyDuplicate maps a unique index violation to the matching links error.
// It returns nil for any other error.
func classifyDuplicate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != uniqueViolation {
			return nil
		}
		return duplicateFor(pqErr.Constraint + " " + pqErr.Message)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return duplicateFor(msg)
	}
	return nil
}

func duplicateFor(detail string) error {
	if strings.Contains(strings.ToLower(detail), "destination_hash") {
		return links.ErrDuplicateDestination
	}
	return links.ErrDuplicateCode
}
