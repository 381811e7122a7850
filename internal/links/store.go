package links

import (
	"context"
	"time"

	"vlink/internal/models"
)

// Store is the persistence contract for links and their visits.
//
// InsertIfAbsent must be atomic with respect to the unique indexes on code and
// destination hash: a violation is reported as ErrDuplicateCode or
// ErrDuplicateDestination, never detected with a prior read. RecordHit must
// increment visit_count and set last_accessed_at in a single statement.
type Store interface {
	FindByCode(ctx context.Context, code string) (*models.Link, error)
	FindByDestination(ctx context.Context, destination string) (*models.Link, error)
	InsertIfAbsent(ctx context.Context, link *models.Link) error
	RecordHit(ctx context.Context, code string, at time.Time) error
	AppendVisit(ctx context.Context, visit *models.Visit) error
	IncrementQRDownloads(ctx context.Context, code string) error
	Delete(ctx context.Context, code string) error
	List(ctx context.Context, limit, offset int) ([]models.Link, error)
	Ping(ctx context.Context) error
	Close() error
}

// RequestContext is the requester metadata attached to a visit.
type RequestContext struct {
	UserAgent string
	Address   string
	Referrer  string
}

// VisitRecorder accepts visits for asynchronous persistence. Record must not
// block; it reports false when the visit was dropped.
type VisitRecorder interface {
	Record(linkID uint, at time.Time, rc RequestContext) bool
}
