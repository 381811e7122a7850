package links

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"vlink/internal/models"
	"vlink/internal/shortener"
)

// DefaultMaxAttempts bounds the generate-and-insert loop in Allocate.
const DefaultMaxAttempts = 5

// Service allocates short codes and resolves them back to destinations.
// It holds no mutable state of its own; all coordination goes through the Store.
type Service struct {
	store       Store
	visits      VisitRecorder
	codeLength  int
	maxAttempts int
	generate    func(length int) (string, error)
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCodeLength sets the length of generated codes.
func WithCodeLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.codeLength = n
		}
	}
}

// WithMaxAttempts sets how many generated candidates Allocate tries.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithGenerator replaces the random code generator.
func WithGenerator(fn func(length int) (string, error)) Option {
	return func(s *Service) { s.generate = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// WithVisitRecorder sets where visits are handed off after a redirect.
func WithVisitRecorder(r VisitRecorder) Option {
	return func(s *Service) { s.visits = r }
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		codeLength:  shortener.DefaultLength,
		maxAttempts: DefaultMaxAttempts,
		generate:    shortener.GenerateShortCode,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeDestination trims the input and checks that it is an absolute
// http or https URL with a host.
func NormalizeDestination(raw string) (string, error) {
	destination := strings.TrimSpace(raw)
	if destination == "" {
		return "", ErrInvalidURL
	}
	parsed, err := url.Parse(destination)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return "", ErrInvalidURL
	}
	return destination, nil
}

// Allocate returns the link for destination, creating it when needed.
// The boolean result is false when an existing link was returned.
func (s *Service) Allocate(ctx context.Context, destination, customCode string) (*models.Link, bool, error) {
	destination, err := NormalizeDestination(destination)
	if err != nil {
		return nil, false, err
	}
	customCode = strings.TrimSpace(customCode)
	if customCode != "" {
		if err := shortener.ValidateCustomCode(customCode); err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrInvalidCustomCode, err)
		}
	}

	existing, err := s.store.FindByDestination(ctx, destination)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if customCode != "" {
		link := models.NewLink(customCode, destination, true, s.now())
		switch err := s.store.InsertIfAbsent(ctx, link); {
		case err == nil:
			return link, true, nil
		case errors.Is(err, ErrDuplicateCode):
			return nil, false, ErrCodeTaken
		case errors.Is(err, ErrDuplicateDestination):
			return s.existingFor(ctx, destination)
		default:
			return nil, false, err
		}
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generate(s.codeLength)
		if err != nil {
			return nil, false, fmt.Errorf("generate short code: %w", err)
		}

		if shortener.IsReserved(code) {
			continue
		}

		link := models.NewLink(code, destination, false, s.now())
		switch err := s.store.InsertIfAbsent(ctx, link); {
		case err == nil:
			return link, true, nil
		case errors.Is(err, ErrDuplicateCode):
			log.Printf("Short code collision on %s (attempt %d/%d)", code, attempt, s.maxAttempts)
		case errors.Is(err, ErrDuplicateDestination):
			return s.existingFor(ctx, destination)
		default:
			return nil, false, err
		}
	}

	return nil, false, ErrAllocationExhausted
}

// existingFor loads the link that won a concurrent insert for destination.
func (s *Service) existingFor(ctx context.Context, destination string) (*models.Link, bool, error) {
	link, err := s.store.FindByDestination(ctx, destination)
	if err != nil {
		return nil, false, err
	}
	return link, false, nil
}

// Resolve returns the destination for code and counts the visit.
// The visit row is handed to the VisitRecorder and never awaited.
func (s *Service) Resolve(ctx context.Context, code string, rc RequestContext) (string, error) {
	if code == "" || !shortener.InAlphabet(code) {
		return "", ErrNotFound
	}

	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return "", err
	}

	at := s.now()
	if err := s.store.RecordHit(ctx, code, at); err != nil {
		return "", err
	}

	if s.visits != nil && !s.visits.Record(link.ID, at, rc) {
		log.Printf("Visit for %s was dropped", code)
	}

	return link.Destination, nil
}

// Stats returns the stored link for code.
func (s *Service) Stats(ctx context.Context, code string) (*models.Link, error) {
	if !shortener.InAlphabet(code) {
		return nil, ErrNotFound
	}
	return s.store.FindByCode(ctx, code)
}

// TrackQRDownload loads the link for code and bumps its QR download counter.
func (s *Service) TrackQRDownload(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.Stats(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.store.IncrementQRDownloads(ctx, code); err != nil {
		return nil, err
	}
	link.QRDownloads++
	return link, nil
}

// Delete removes the link for code along with its visits.
func (s *Service) Delete(ctx context.Context, code string) error {
	if !shortener.InAlphabet(code) {
		return ErrNotFound
	}
	return s.store.Delete(ctx, code)
}

// List returns links ordered by id.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Link, error) {
	return s.store.List(ctx, limit, offset)
}

// importableCode applies the custom code rules to custom records and keeps
// generated codes off reserved routes.
func importableCode(rec models.Link) bool {
	if rec.IsCustom {
		return shortener.ValidateCustomCode(rec.Code) == nil
	}
	return rec.Code != "" && shortener.InAlphabet(rec.Code) && !shortener.IsReserved(rec.Code)
}

// Import inserts previously exported links, keeping their codes and counters.
// Links whose code or destination already exists are skipped.
func (s *Service) Import(ctx context.Context, records []models.Link) (imported, skipped int, err error) {
	for i := range records {
		rec := records[i]
		destination, err := NormalizeDestination(rec.Destination)
		if err != nil || !importableCode(rec) {
			log.Printf("Import: skipping invalid record %q -> %q", rec.Code, rec.Destination)
			skipped++
			continue
		}

		link := models.NewLink(rec.Code, destination, rec.IsCustom, s.now())
		if !rec.CreatedAt.IsZero() {
			link.CreatedAt = rec.CreatedAt
		}
		link.VisitCount = rec.VisitCount
		link.QRDownloads = rec.QRDownloads
		link.LastAccessedAt = rec.LastAccessedAt

		switch err := s.store.InsertIfAbsent(ctx, link); {
		case err == nil:
			imported++
		case errors.Is(err, ErrDuplicateCode), errors.Is(err, ErrDuplicateDestination):
			skipped++
		default:
			return imported, skipped, err
		}
	}
	return imported, skipped, nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
