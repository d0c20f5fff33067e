package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muslink-platform/internal/model"
	"muslink-platform/internal/testutil"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStore_LinkTarget(t *testing.T) {
	db := testutil.NewDB(t)
	page, links := testutil.SeedPage(t, db, "test-song", 7, "spotify", "apple")
	store := NewStore(db, nil, time.Hour, testutil.Logger())

	target, err := store.LinkTarget(context.Background(), links[1].ID)
	require.NoError(t, err)
	assert.Equal(t, page.ID, target.PageID)
	assert.Equal(t, "apple", target.Platform)
	assert.Equal(t, links[1].URL, target.URL)
	assert.True(t, target.Servable())

	_, err = store.LinkTarget(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LinkTargetIsCached(t *testing.T) {
	db := testutil.NewDB(t)
	_, links := testutil.SeedPage(t, db, "cached", 1, "spotify")
	mr, rdb := newRedis(t)
	store := NewStore(db, rdb, time.Hour, testutil.Logger())
	ctx := context.Background()

	_, err := store.LinkTarget(ctx, links[0].ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(targetKey(links[0].ID)))

	cached, err := mr.Get(targetKey(links[0].ID))
	require.NoError(t, err)
	assert.NotContains(t, cached, "active")

	// 缓存命中时地址取自缓存
	require.NoError(t, db.Model(&model.Link{}).Where("id = ?", links[0].ID).Update("url", "https://example.com/changed").Error)
	target, err := store.LinkTarget(ctx, links[0].ID)
	require.NoError(t, err)
	assert.Equal(t, links[0].URL, target.URL)
	assert.True(t, target.Servable())
}

func TestStore_DirectDisableBypassesCache(t *testing.T) {
	db := testutil.NewDB(t)
	page, links := testutil.SeedPage(t, db, "direct-write", 1, "spotify", "tidal")
	_, rdb := newRedis(t)
	store := NewStore(db, rdb, time.Hour, testutil.Logger())
	ctx := context.Background()

	for _, l := range links {
		target, err := store.LinkTarget(ctx, l.ID)
		require.NoError(t, err)
		require.True(t, target.Servable())
	}

	// 外部服务直接改库，不经过 SetLinkActive
	require.NoError(t, db.Model(&model.Link{}).Where("id = ?", links[0].ID).Update("is_active", false).Error)
	target, err := store.LinkTarget(ctx, links[0].ID)
	require.NoError(t, err)
	assert.False(t, target.Servable())

	require.NoError(t, db.Model(&model.Page{}).Where("id = ?", page.ID).Update("is_active", false).Error)
	target, err = store.LinkTarget(ctx, links[1].ID)
	require.NoError(t, err)
	assert.True(t, target.LinkActive)
	assert.False(t, target.PageActive)

	// 缓存里还有记录，但外链已被删除
	require.NoError(t, db.Delete(&model.Link{}, links[1].ID).Error)
	_, err = store.LinkTarget(ctx, links[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ToggleLinkInvalidatesCache(t *testing.T) {
	db := testutil.NewDB(t)
	_, links := testutil.SeedPage(t, db, "toggle-link", 1, "youtube")
	mr, rdb := newRedis(t)
	store := NewStore(db, rdb, time.Hour, testutil.Logger())
	ctx := context.Background()

	_, err := store.LinkTarget(ctx, links[0].ID)
	require.NoError(t, err)

	active, err := store.ToggleLink(ctx, links[0].ID)
	require.NoError(t, err)
	assert.False(t, active)
	assert.False(t, mr.Exists(targetKey(links[0].ID)))

	target, err := store.LinkTarget(ctx, links[0].ID)
	require.NoError(t, err)
	assert.False(t, target.Servable())

	active, err = store.ToggleLink(ctx, links[0].ID)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = store.ToggleLink(ctx, 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_TogglePageInvalidatesAllLinks(t *testing.T) {
	db := testutil.NewDB(t)
	page, links := testutil.SeedPage(t, db, "toggle-page", 1, "spotify", "deezer")
	mr, rdb := newRedis(t)
	store := NewStore(db, rdb, time.Hour, testutil.Logger())
	ctx := context.Background()

	for _, l := range links {
		_, err := store.LinkTarget(ctx, l.ID)
		require.NoError(t, err)
	}

	active, err := store.TogglePage(ctx, page.ID)
	require.NoError(t, err)
	assert.False(t, active)

	for _, l := range links {
		assert.False(t, mr.Exists(targetKey(l.ID)))
		target, err := store.LinkTarget(ctx, l.ID)
		require.NoError(t, err)
		assert.True(t, target.LinkActive)
		assert.False(t, target.PageActive)
		assert.False(t, target.Servable())
	}

	_, err = store.TogglePage(ctx, 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PageLinks(t *testing.T) {
	db := testutil.NewDB(t)
	page, _ := testutil.SeedPage(t, db, "links", 1, "spotify", "apple", "tidal")
	testutil.SeedPage(t, db, "other", 1, "soundcloud")
	store := NewStore(db, nil, 0, testutil.Logger())

	links, err := store.PageLinks(context.Background(), page.ID)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "spotify", links[0].Platform)
	assert.Equal(t, "tidal", links[2].Platform)

	pageID, err := store.LinkPageID(context.Background(), links[1].ID)
	require.NoError(t, err)
	assert.Equal(t, page.ID, pageID)
}
