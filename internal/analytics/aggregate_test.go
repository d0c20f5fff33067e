package analytics

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muslink-platform/internal/model"
	"muslink-platform/internal/repository"
	"muslink-platform/internal/testutil"
)

func click(pageID, linkID uint, platform, country, city string) model.Event {
	return model.Event{Type: model.EventClick, PageID: pageID, LinkID: &linkID, Platform: &platform, Country: country, City: city}
}

func view(pageID uint, country, city string) model.Event {
	return model.Event{Type: model.EventView, PageID: pageID, Country: country, City: city}
}

func TestAggregate_Totals(t *testing.T) {
	share := "link"
	events := []model.Event{
		view(1, "Russia", "Moscow"),
		click(1, 10, "spotify", "Russia", "Moscow"),
		{Type: model.EventShare, PageID: 1, ShareType: &share, Country: "Unknown", City: "Unknown"},
		{Type: model.EventQRScan, PageID: 1, Country: "Germany", City: "Berlin"},
		view(1, "Germany", "Berlin"),
	}

	s := Aggregate(events)
	assert.EqualValues(t, 2, s.TotalViews)
	assert.EqualValues(t, 1, s.TotalClicks)
	assert.EqualValues(t, 1, s.TotalShares)
	assert.EqualValues(t, 1, s.TotalQRScans)
}

func TestAggregate_GroupsAllEventTypes(t *testing.T) {
	events := []model.Event{
		view(1, "Germany", "Berlin"),
		view(1, "Germany", "Munich"),
		click(1, 10, "spotify", "France", "Paris"),
	}

	s := Aggregate(events)
	assert.Equal(t, []model.CountryCount{{Country: "Germany", Count: 2}, {Country: "France", Count: 1}}, s.ByCountry)
	assert.Equal(t, []model.CityCount{{City: "Berlin", Count: 1}, {City: "Munich", Count: 1}, {City: "Paris", Count: 1}}, s.ByCity)
}

func TestAggregate_CityGroupsByNameOnly(t *testing.T) {
	events := []model.Event{
		view(1, "United States", "Springfield"),
		view(1, "Australia", "Springfield"),
		view(1, "Germany", model.UnknownLocation),
		view(1, "France", model.UnknownLocation),
	}

	// 城市榜只有城市名，同名城市与各国的 Unknown 都各自只占一行
	s := Aggregate(events)
	assert.Equal(t, []model.CityCount{{City: "Springfield", Count: 2}, {City: model.UnknownLocation, Count: 2}}, s.ByCity)
	assert.Len(t, s.ByCountry, 4)
}

func TestAggregate_TiesKeepFirstSeenOrder(t *testing.T) {
	events := []model.Event{
		view(1, "C", "c"),
		view(1, "A", "a"),
		view(1, "B", "b"),
		view(1, "A", "a"),
		view(1, "B", "b"),
		view(1, "C", "c"),
		view(1, "D", "d"),
		view(1, "D", "d"),
		view(1, "D", "d"),
	}

	s := Aggregate(events)
	got := make([]string, 0, len(s.ByCountry))
	for _, c := range s.ByCountry {
		got = append(got, c.Country)
	}
	assert.Equal(t, []string{"D", "C", "A", "B"}, got)
}

func TestAggregate_UnknownIsVisibleBucket(t *testing.T) {
	events := []model.Event{
		view(1, model.UnknownLocation, model.UnknownLocation),
		view(1, "", ""),
		view(1, "Japan", "Tokyo"),
	}

	s := Aggregate(events)
	require.NotEmpty(t, s.ByCountry)
	assert.Equal(t, model.CountryCount{Country: model.UnknownLocation, Count: 2}, s.ByCountry[0])
	assert.Equal(t, model.CityCount{City: model.UnknownLocation, Count: 2}, s.ByCity[0])
}

func TestAggregate_PlatformsAndLinks(t *testing.T) {
	events := []model.Event{
		click(1, 10, "spotify", "A", "a"),
		click(1, 11, "apple", "A", "a"),
		click(1, 11, "apple", "A", "a"),
		view(1, "A", "a"),
	}

	s := Aggregate(events)
	assert.Equal(t, []model.PlatformCount{{Platform: "apple", Count: 2}, {Platform: "spotify", Count: 1}}, s.ByPlatform)
	assert.Equal(t, []model.LinkClicks{{ID: 11, Platform: "apple", Clicks: 2}, {ID: 10, Platform: "spotify", Clicks: 1}}, s.ByLink)
}

func TestAggregate_EmptyListsEncodeAsArrays(t *testing.T) {
	data, err := json.Marshal(Aggregate(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_views":0,"total_clicks":0,"total_shares":0,"total_qr_scans":0,
		"by_country":[],"by_city":[],"by_platform":[],"by_link":[]}`, string(data))
}

// 任意交错的 click/view/share 序列下，页面的 total_clicks 等于该页面外链上的点击数
func TestAggregate_TotalClicksMatchesPageClicks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	linkPage := map[uint]uint{10: 1, 11: 1, 20: 2}
	share := "copy"

	for round := 0; round < 20; round++ {
		var all []model.Event
		want := map[uint]int64{}
		for i := 0; i < 200; i++ {
			switch rng.Intn(3) {
			case 0:
				linkID := []uint{10, 11, 20}[rng.Intn(3)]
				pageID := linkPage[linkID]
				all = append(all, click(pageID, linkID, "spotify", "X", "x"))
				want[pageID]++
			case 1:
				all = append(all, view(uint(1+rng.Intn(2)), "X", "x"))
			default:
				all = append(all, model.Event{Type: model.EventShare, PageID: uint(1 + rng.Intn(2)), ShareType: &share, Country: "X", City: "x"})
			}
		}

		for _, pageID := range []uint{1, 2} {
			var scoped []model.Event
			for _, e := range all {
				if e.PageID == pageID {
					scoped = append(scoped, e)
				}
			}
			assert.Equal(t, want[pageID], Aggregate(scoped).TotalClicks)
		}
	}
}

func seedEvents(t *testing.T, repo repository.EventRepository, events []model.Event) {
	t.Helper()
	ptrs := make([]*model.Event, 0, len(events))
	for i := range events {
		events[i].CreatedAt = time.Now()
		ptrs = append(ptrs, &events[i])
	}
	require.NoError(t, repo.Append(context.Background(), ptrs...))
}

func TestAggregator_ScopesAndIdempotence(t *testing.T) {
	repo := repository.NewEventRepository(testutil.NewDB(t))
	seedEvents(t, repo, []model.Event{
		view(1, "Russia", "Moscow"),
		click(1, 10, "spotify", "United States", "Mountain View"),
		click(2, 20, "apple", model.UnknownLocation, model.UnknownLocation),
		view(2, "Russia", "Saint Petersburg"),
		click(1, 10, "spotify", "Russia", "Moscow"),
	})

	agg := NewAggregator(repo, 2)
	ctx := context.Background()

	page, err := agg.Summarize(ctx, PageScope(1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalViews)
	assert.EqualValues(t, 2, page.TotalClicks)
	assert.Equal(t, model.CountryCount{Country: "Russia", Count: 2}, page.ByCountry[0])

	global, err := agg.Summarize(ctx, GlobalScope())
	require.NoError(t, err)
	assert.EqualValues(t, 3, global.TotalClicks)
	assert.Contains(t, global.ByCountry, model.CountryCount{Country: model.UnknownLocation, Count: 1})

	first, err := json.Marshal(global)
	require.NoError(t, err)
	again, err := agg.Summarize(ctx, GlobalScope())
	require.NoError(t, err)
	second, err := json.Marshal(again)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregator_RejectsEmptyPageScope(t *testing.T) {
	agg := NewAggregator(repository.NewEventRepository(testutil.NewDB(t)), 0)
	_, err := agg.Summarize(context.Background(), Scope{})
	assert.Error(t, err)
}
