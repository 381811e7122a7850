package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite" // SQLite driver for testing
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vlink/internal/links"
	"vlink/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := gorm.Open("sqlite3", ":memory:")
	require.NoError(t, err, "Failed to create test database")
	// Every pooled connection to :memory: is a separate database.
	gdb.DB().SetMaxOpenConns(1)

	require.NoError(t, Migrate(gdb), "Failed to migrate test database")

	store := NewStore(gdb)
	t.Cleanup(func() {
		assert.NoError(t, store.Close(), "Failed to close test database")
	})
	return store
}

func mustInsert(t *testing.T, store *Store, code, destination string) *models.Link {
	t.Helper()
	link := models.NewLink(code, destination, false, time.Now())
	require.NoError(t, store.InsertIfAbsent(context.Background(), link))
	return link
}

func TestInitDBOnce(t *testing.T) {
	first, err := InitDB("sqlite3", ":memory:")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := InitDB("postgres", "postgres://ignored")
	require.NoError(t, err)
	assert.Same(t, first, second)

	assert.NoError(t, Close())
}

func TestInsertIfAbsent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		code        string
		destination string
		wantErr     error
	}{
		{
			name:        "valid link",
			code:        "ABC123",
			destination: "https://example.com",
		},
		{
			name:        "duplicate short code",
			code:        "ABC123",
			destination: "https://different.com",
			wantErr:     links.ErrDuplicateCode,
		},
		{
			name:        "duplicate destination",
			code:        "XYZ789",
			destination: "https://example.com",
			wantErr:     links.ErrDuplicateDestination,
		},
		{
			name:        "case sensitive codes",
			code:        "abc123",
			destination: "https://lower.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := models.NewLink(tt.code, tt.destination, false, time.Now())
			err := store.InsertIfAbsent(ctx, link)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, link.ID)
		})
	}
}

func TestFindByCodeAndDestination(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	created := mustInsert(t, store, "TEST01", "https://test.com/path?q=1")

	t.Run("by code", func(t *testing.T) {
		link, err := store.FindByCode(ctx, "TEST01")
		require.NoError(t, err)
		assert.Equal(t, created.ID, link.ID)
		assert.Equal(t, "https://test.com/path?q=1", link.Destination)
		assert.Equal(t, int64(0), link.VisitCount)
		assert.Nil(t, link.LastAccessedAt)
	})

	t.Run("by destination", func(t *testing.T) {
		link, err := store.FindByDestination(ctx, "https://test.com/path?q=1")
		require.NoError(t, err)
		assert.Equal(t, "TEST01", link.Code)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := store.FindByCode(ctx, "NOPE00")
		assert.ErrorIs(t, err, links.ErrNotFound)
	})

	t.Run("missing destination", func(t *testing.T) {
		_, err := store.FindByDestination(ctx, "https://test.com/other")
		assert.ErrorIs(t, err, links.ErrNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.FindByCode(cctx, "TEST01")
		assert.ErrorIs(t, err, links.ErrStoreUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRecordHit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	mustInsert(t, store, "HIT001", "https://hit.example")

	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	require.NoError(t, store.RecordHit(ctx, "HIT001", at))

	link, err := store.FindByCode(ctx, "HIT001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.VisitCount)
	require.NotNil(t, link.LastAccessedAt)
	assert.True(t, at.Equal(link.LastAccessedAt.UTC()))

	assert.ErrorIs(t, store.RecordHit(ctx, "MISSING", at), links.ErrNotFound)
}

func TestRecordHitConcurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	mustInsert(t, store, "BUSY01", "https://busy.example")

	const hits = 40
	var wg sync.WaitGroup
	for i := 0; i < hits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.RecordHit(ctx, "BUSY01", time.Now()))
		}()
	}
	wg.Wait()

	link, err := store.FindByCode(ctx, "BUSY01")
	require.NoError(t, err)
	assert.Equal(t, int64(hits), link.VisitCount)
}

func TestInsertIfAbsentConcurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			link := models.NewLink("RACE01", "https://race.example/"+string(rune('a'+i)), true, time.Now())
			err := store.InsertIfAbsent(ctx, link)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, links.ErrDuplicateCode):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}

func TestAppendVisitAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	link := mustInsert(t, store, "VIS001", "https://visits.example")
	other := mustInsert(t, store, "VIS002", "https://other.example")

	for _, id := range []uint{link.ID, link.ID, other.ID} {
		require.NoError(t, store.AppendVisit(ctx, &models.Visit{
			LinkID:    id,
			VisitedAt: time.Now(),
			UserAgent: "test-agent",
		}))
	}

	require.NoError(t, store.Delete(ctx, "VIS001"))

	_, err := store.FindByCode(ctx, "VIS001")
	assert.ErrorIs(t, err, links.ErrNotFound)

	var remaining int
	require.NoError(t, store.db.Model(&models.Visit{}).Count(&remaining).Error)
	assert.Equal(t, 1, remaining)

	assert.ErrorIs(t, store.Delete(ctx, "VIS001"), links.ErrNotFound)
}

func TestIncrementQRDownloads(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	mustInsert(t, store, "QR0001", "https://qr.example")

	require.NoError(t, store.IncrementQRDownloads(ctx, "QR0001"))
	require.NoError(t, store.IncrementQRDownloads(ctx, "QR0001"))

	link, err := store.FindByCode(ctx, "QR0001")
	require.NoError(t, err)
	assert.Equal(t, int64(2), link.QRDownloads)

	assert.ErrorIs(t, store.IncrementQRDownloads(ctx, "NOPE00"), links.ErrNotFound)
}

func TestList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	for i, code := range []string{"LST001", "LST002", "LST003"} {
		mustInsert(t, store, code, "https://list.example/"+string(rune('a'+i)))
	}

	all, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "LST001", all[0].Code)

	page, err := store.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "LST002", page[0].Code)
	assert.Equal(t, "LST003", page[1].Code)
}

func TestPing(t *testing.T) {
	store := setupTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestClassifyDuplicate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "sqlite code",
			err:  errors.New("UNIQUE constraint failed: links.code"),
			want: links.ErrDuplicateCode,
		},
		{
			name: "sqlite destination",
			err:  errors.New("UNIQUE constraint failed: links.destination_hash"),
			want: links.ErrDuplicateDestination,
		},
		{
			name: "postgres code",
			err:  &pq.Error{Code: "23505", Constraint: "uix_links_code", Message: "duplicate key value violates unique constraint"},
			want: links.ErrDuplicateCode,
		},
		{
			name: "postgres destination",
			err:  &pq.Error{Code: "23505", Constraint: "uix_links_destination_hash", Message: "duplicate key value violates unique constraint"},
			want: links.ErrDuplicateDestination,
		},
		{
			name: "postgres other error",
			err:  &pq.Error{Code: "08006", Message: "connection failure"},
			want: nil,
		},
		{
			name: "unrelated error",
			err:  errors.New("disk I/O error"),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyDuplicate(tt.err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
