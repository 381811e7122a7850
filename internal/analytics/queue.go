package analytics

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"golang.org/x/crypto/blake2b"

	"vlink/internal/links"
	"vlink/internal/metrics"
	"vlink/internal/models"
)

const maxFieldLength = 512

// VisitWriter persists visit rows.
type VisitWriter interface {
	AppendVisit(ctx context.Context, visit *models.Visit) error
}

// VisitJob is one visit waiting to be written.
type VisitJob struct {
	LinkID  uint
	At      time.Time
	Request links.RequestContext
}

// Options configures a VisitQueue.
type Options struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
	HashKey      string
}

// VisitQueue writes visits in the background. Delivery is at-most-once: a full
// queue drops the visit and a failed write is logged and reported, never retried.
type VisitQueue struct {
	jobs         chan VisitJob
	writer       VisitWriter
	hashKey      []byte
	workerCount  int
	writeTimeout time.Duration

	mutex  sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

var _ links.VisitRecorder = (*VisitQueue)(nil)

// NewVisitQueue creates the queue and starts its workers.
func NewVisitQueue(writer VisitWriter, opts Options) *VisitQueue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	q := &VisitQueue{
		jobs:         make(chan VisitJob, opts.QueueSize),
		writer:       writer,
		workerCount:  opts.Workers,
		writeTimeout: opts.WriteTimeout,
	}
	if opts.HashKey != "" {
		key := blake2b.Sum256([]byte(opts.HashKey))
		q.hashKey = key[:]
	}

	for i := 0; i < opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	log.Printf("Initialized visit queue with %d workers (capacity %d)", opts.Workers, opts.QueueSize)
	return q
}

// Record queues a visit without blocking. It returns false when the queue is
// full or already shut down.
func (q *VisitQueue) Record(linkID uint, at time.Time, rc links.RequestContext) bool {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	if q.closed {
		q.drop()
		return false
	}

	select {
	case q.jobs <- VisitJob{LinkID: linkID, At: at, Request: rc}:
		return true
	default:
		q.drop()
		return false
	}
}

func (q *VisitQueue) drop() {
	q.dropped.Add(1)
	metrics.VisitWrites.WithLabelValues("dropped").Inc()
}

// worker processes visit jobs until the channel is closed.
func (q *VisitQueue) worker(id int) {
	defer q.wg.Done()
	log.Printf("Visit worker %d started", id)

	for job := range q.jobs {
		q.process(id, job)
	}

	log.Printf("Visit worker %d stopped (jobs channel closed)", id)
}

func (q *VisitQueue) process(id int, job VisitJob) {
	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			metrics.VisitWrites.WithLabelValues("failed").Inc()
			log.Printf("Worker %d: panic while recording visit for link %d: %v", id, job.LinkID, r)
			sentry.CurrentHub().Recover(r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), q.writeTimeout)
	defer cancel()

	visit := &models.Visit{
		LinkID:      job.LinkID,
		VisitedAt:   job.At,
		UserAgent:   truncate(job.Request.UserAgent),
		AddressHash: q.HashAddress(job.Request.Address),
		Referrer:    truncate(job.Request.Referrer),
	}

	if err := q.writer.AppendVisit(ctx, visit); err != nil {
		q.failed.Add(1)
		metrics.VisitWrites.WithLabelValues("failed").Inc()
		log.Printf("Worker %d: failed to record visit for link %d: %v", id, job.LinkID, err)
		sentry.CaptureException(fmt.Errorf("record visit for link %d: %w", job.LinkID, err))
		return
	}

	q.written.Add(1)
	metrics.VisitWrites.WithLabelValues("written").Inc()
}

// HashAddress returns a hex BLAKE2b-256 digest of addr, keyed when a hash key
// is configured. Empty addresses stay empty.
func (q *VisitQueue) HashAddress(addr string) string {
	if addr == "" {
		return ""
	}
	h, err := blake2b.New256(q.hashKey)
	if err != nil {
		// Only reachable with a key longer than 64 bytes, which NewVisitQueue never builds.
		return ""
	}
	h.Write([]byte(addr))
	return hex.EncodeToString(h.Sum(nil))
}

// GetStatus returns the current status of the visit queue.
func (q *VisitQueue) GetStatus() map[string]interface{} {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	return map[string]interface{}{
		"worker_count":   q.workerCount,
		"queue_length":   len(q.jobs),
		"queue_capacity": cap(q.jobs),
		"written":        q.written.Load(),
		"failed":         q.failed.Load(),
		"dropped":        q.dropped.Load(),
		"closed":         q.closed,
	}
}

// Shutdown stops accepting visits and waits for queued ones to be written or
// for ctx to expire.
func (q *VisitQueue) Shutdown(ctx context.Context) error {
	q.mutex.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
		log.Println("Visit queue shutdown initiated")
	}
	q.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("visit queue drain: %w", ctx.Err())
	}
}

func truncate(s string) string {
	if len(s) <= maxFieldLength {
		return s
	}
	cut := maxFieldLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
