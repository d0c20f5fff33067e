package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"muslink-platform/internal/catalog"
	"muslink-platform/internal/geo"
	"muslink-platform/internal/model"
	"muslink-platform/internal/repository"
	"muslink-platform/internal/testutil"
)

func countEvents(t *testing.T, db *gorm.DB, typ model.EventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Event{}).Where("type = ?", typ).Count(&n).Error)
	return n
}

func TestWorker_ConcurrentEnqueueRecordsEveryDraft(t *testing.T) {
	db := testutil.NewDB(t)
	page, links := testutil.SeedPage(t, db, "concurrent", 1, "spotify")
	rec := New(repository.NewEventRepository(db), usResolver(), nil, testutil.Logger(), Options{})
	w := NewWorker(rec, testutil.Logger(), WorkerOptions{QueueSize: 16, BatchSize: 7, FlushInterval: 10 * time.Millisecond})
	w.Start()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.Enqueue(Draft{
				Type:     model.EventClick,
				PageID:   page.ID,
				LinkID:   ptr(links[0].ID),
				Platform: ptr("spotify"),
				ClientIP: fmt.Sprintf("203.0.113.%d", i),
			}))
		}(i)
	}
	wg.Wait()

	require.NoError(t, w.Shutdown(context.Background()))
	assert.EqualValues(t, n, countEvents(t, db, model.EventClick))
}

func TestWorker_FlushesOnInterval(t *testing.T) {
	db := testutil.NewDB(t)
	page, _ := testutil.SeedPage(t, db, "interval", 1)
	rec := New(repository.NewEventRepository(db), usResolver(), nil, testutil.Logger(), Options{})
	w := NewWorker(rec, testutil.Logger(), WorkerOptions{BatchSize: 100, FlushInterval: 20 * time.Millisecond})
	w.Start()
	defer func() { _ = w.Shutdown(context.Background()) }()

	require.NoError(t, w.Enqueue(Draft{Type: model.EventQRScan, PageID: page.ID, ClientIP: "8.8.8.8"}))

	assert.Eventually(t, func() bool {
		return countEvents(t, db, model.EventQRScan) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_EnqueueAfterShutdown(t *testing.T) {
	db := testutil.NewDB(t)
	rec := New(repository.NewEventRepository(db), usResolver(), nil, testutil.Logger(), Options{})
	w := NewWorker(rec, testutil.Logger(), WorkerOptions{})
	w.Start()

	require.NoError(t, w.Shutdown(context.Background()))
	assert.ErrorIs(t, w.Enqueue(Draft{Type: model.EventView, PageID: 1}), ErrQueueClosed)
	assert.NoError(t, w.Shutdown(context.Background()))
}

func TestWorker_ShutdownDrainsWithoutStart(t *testing.T) {
	db := testutil.NewDB(t)
	page, _ := testutil.SeedPage(t, db, "drain", 1)
	rec := New(repository.NewEventRepository(db), usResolver(), nil, testutil.Logger(), Options{})
	w := NewWorker(rec, testutil.Logger(), WorkerOptions{QueueSize: 8})

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Enqueue(Draft{Type: model.EventView, PageID: page.ID}))
	}
	require.NoError(t, w.Shutdown(context.Background()))
	assert.EqualValues(t, 5, countEvents(t, db, model.EventView))
}

func TestWorker_OverflowDoesNotBlockOrLose(t *testing.T) {
	db := testutil.NewDB(t)
	page, _ := testutil.SeedPage(t, db, "overflow", 1)
	// 解析器阻塞，队列很快被占满
	resolver := &stubResolver{table: map[string]geo.Location{}, block: make(chan struct{})}
	rec := New(repository.NewEventRepository(db), resolver, nil, testutil.Logger(), Options{ResolveTimeout: time.Second})
	w := NewWorker(rec, testutil.Logger(), WorkerOptions{QueueSize: 1, BatchSize: 1})
	w.Start()

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Enqueue(Draft{Type: model.EventView, PageID: page.ID, ClientIP: "8.8.8.8"}))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(resolver.block)
	require.NoError(t, w.Shutdown(context.Background()))
	assert.EqualValues(t, 10, countEvents(t, db, model.EventView))
}

func TestWorker_BatchFailureRetriesIndividually(t *testing.T) {
	db := testutil.NewDB(t)
	page, _ := testutil.SeedPage(t, db, "retry", 1)
	repo := &failingRepo{EventRepository: repository.NewEventRepository(db), failures: 1}
	rec := New(repo, usResolver(), nil, testutil.Logger(), Options{})
	w := NewWorker(rec, testutil.Logger(), WorkerOptions{BatchSize: 3, FlushInterval: time.Hour})
	w.Start()

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Enqueue(Draft{Type: model.EventShare, PageID: page.ID, ShareType: ptr("copy")}))
	}
	require.NoError(t, w.Shutdown(context.Background()))
	assert.EqualValues(t, 3, countEvents(t, db, model.EventShare))
}

func TestWorker_InvalidDraftIsDropped(t *testing.T) {
	db := testutil.NewDB(t)
	page, _ := testutil.SeedPage(t, db, "invalid", 1)
	rec := New(repository.NewEventRepository(db), usResolver(), nil, testutil.Logger(), Options{})
	w := NewWorker(rec, testutil.Logger(), WorkerOptions{})
	w.Start()

	require.NoError(t, w.Enqueue(Draft{Type: model.EventClick, PageID: page.ID}))
	require.NoError(t, w.Enqueue(Draft{Type: model.EventView, PageID: page.ID}))
	require.NoError(t, w.Shutdown(context.Background()))

	assert.Zero(t, countEvents(t, db, model.EventClick))
	assert.EqualValues(t, 1, countEvents(t, db, model.EventView))
}

// flakyOwner 前几次查询返回临时错误
type flakyOwner struct {
	LinkOwner
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyOwner) LinkPageID(ctx context.Context, linkID uint) (uint, error) {
	f.mu.Lock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return 0, errors.New("bad connection")
	}
	f.mu.Unlock()
	return f.LinkOwner.LinkPageID(ctx, linkID)
}

func TestWorker_TransientLookupErrorIsRetried(t *testing.T) {
	db := testutil.NewDB(t)
	page, links := testutil.SeedPage(t, db, "flaky", 1, "spotify")
	owner := &flakyOwner{LinkOwner: catalog.NewStore(db, nil, 0, testutil.Logger()), failures: 1}
	rec := New(repository.NewEventRepository(db), usResolver(), owner, testutil.Logger(), Options{})
	w := NewWorker(rec, testutil.Logger(), WorkerOptions{RetryBackoff: time.Millisecond})
	w.Start()

	require.NoError(t, w.Enqueue(Draft{
		Type:     model.EventClick,
		PageID:   page.ID,
		LinkID:   ptr(links[0].ID),
		Platform: ptr("spotify"),
		ClientIP: "8.8.8.8",
	}))
	require.NoError(t, w.Shutdown(context.Background()))

	assert.EqualValues(t, 1, countEvents(t, db, model.EventClick))
	assert.Equal(t, 2, owner.calls)
}

func TestWorker_PersistentLookupErrorGivesUp(t *testing.T) {
	db := testutil.NewDB(t)
	page, links := testutil.SeedPage(t, db, "down", 1, "spotify")
	owner := &flakyOwner{LinkOwner: catalog.NewStore(db, nil, 0, testutil.Logger()), failures: 100}
	rec := New(repository.NewEventRepository(db), usResolver(), owner, testutil.Logger(), Options{})
	w := NewWorker(rec, testutil.Logger(), WorkerOptions{RetryBackoff: time.Millisecond})
	w.Start()

	require.NoError(t, w.Enqueue(Draft{Type: model.EventClick, PageID: page.ID, LinkID: ptr(links[0].ID)}))
	require.NoError(t, w.Enqueue(Draft{Type: model.EventView, PageID: page.ID}))
	require.NoError(t, w.Shutdown(context.Background()))

	assert.Zero(t, countEvents(t, db, model.EventClick))
	assert.EqualValues(t, 1, countEvents(t, db, model.EventView))
	assert.Equal(t, buildAttempts, owner.calls)
}
