package usecase

import (
	"fmt"
	"testing"
	"time"

	"tracklytics/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow(t *testing.T) domain.TimeWindow {
	t.Helper()
	return domain.TimeWindow{
		Start: mustUTC(t, "2025-08-07T21:00:00Z"),
		End:   mustUTC(t, "2025-08-08T21:00:00Z"),
	}
}

func allSources() domain.SourceFilterSet {
	return domain.SourceFilterSet{Filter: domain.SourceAll}
}

func event(id, buyer, source string, status domain.Status, revenue float64, postback time.Time) domain.ConversionEvent {
	return domain.ConversionEvent{
		ID:           id,
		BuyerKey:     buyer,
		SourceID:     source,
		Status:       status,
		Revenue:      revenue,
		PostbackTime: postback,
	}
}

func TestAggregateCountsLeadsAndSales(t *testing.T) {
	window := testWindow(t)
	inside := window.Start.Add(time.Hour)

	events := []domain.ConversionEvent{
		event("1", "n1", "2", domain.StatusLead, 0, inside),
		event("2", "n1", "2", domain.StatusSale, 50, inside),
		event("3", "n1", "2", domain.StatusSale, 25, inside),
		event("4", "k7", "5", domain.StatusLead, 0, inside),
	}

	res := AggregateConversions(events, window, allSources())

	require.Contains(t, res.Buckets, "n1")
	assert.Equal(t, 1, res.Buckets["n1"].Leads)
	assert.Equal(t, 2, res.Buckets["n1"].Sales)
	assert.Equal(t, 75.0, res.Buckets["n1"].Revenue)

	require.Contains(t, res.Buckets, "k7")
	assert.Equal(t, 1, res.Buckets["k7"].Leads)
	assert.Equal(t, 0, res.Buckets["k7"].Sales)
}

func TestAggregateDeduplicatesByID(t *testing.T) {
	window := testWindow(t)
	inside := window.Start.Add(time.Hour)

	ev := event("42", "n1", "2", domain.StatusSale, 100, inside)
	events := []domain.ConversionEvent{ev, ev, ev}

	res := AggregateConversions(events, window, allSources())

	assert.Equal(t, 1, res.Buckets["n1"].Sales)
	assert.Equal(t, 100.0, res.Buckets["n1"].Revenue)
	assert.Equal(t, 2, res.Duplicates)
}

func TestAggregateIdempotentUnderPageOverlap(t *testing.T) {
	window := testWindow(t)
	inside := window.Start.Add(time.Hour)

	page := make([]domain.ConversionEvent, 0, 20)
	for i := 0; i < 20; i++ {
		page = append(page, event(fmt.Sprintf("id-%d", i), "n1", "2", domain.StatusSale, 10, inside))
	}

	once := AggregateConversions(page, window, allSources())
	// overlapping pages deliver the tail of page one again
	twice := AggregateConversions(append(page, page[10:]...), window, allSources())

	assert.Equal(t, once.Buckets["n1"], twice.Buckets["n1"])
}

func TestAggregateHalfOpenWindowOnPostbackOnly(t *testing.T) {
	window := testWindow(t)

	events := []domain.ConversionEvent{
		// postback inside even though the click predates the window
		{
			ID: "1", BuyerKey: "n1", SourceID: "2", Status: domain.StatusSale, Revenue: 10,
			ClickTime:    window.Start.Add(-48 * time.Hour),
			PostbackTime: window.Start,
		},
		// postback exactly at the end boundary is out
		event("2", "n1", "2", domain.StatusSale, 10, window.End),
		// before the start is out
		event("3", "n1", "2", domain.StatusSale, 10, window.Start.Add(-time.Second)),
	}

	res := AggregateConversions(events, window, allSources())

	require.Contains(t, res.Buckets, "n1")
	assert.Equal(t, 1, res.Buckets["n1"].Sales)
	assert.Equal(t, 2, res.Skipped)
}

func TestAggregateUnknownBuyerBucket(t *testing.T) {
	window := testWindow(t)
	inside := window.Start.Add(time.Hour)

	events := []domain.ConversionEvent{
		event("1", "", "2", domain.StatusSale, 30, inside),
		event("2", "", "2", domain.StatusLead, 0, inside),
	}

	res := AggregateConversions(events, window, allSources())

	require.Contains(t, res.Buckets, domain.UnknownBuyer)
	assert.Equal(t, 1, res.Buckets[domain.UnknownBuyer].Sales)
	assert.Equal(t, 1, res.Buckets[domain.UnknownBuyer].Leads)
	assert.Equal(t, 30.0, res.Buckets[domain.UnknownBuyer].Revenue)
}

func TestAggregateSourceFilter(t *testing.T) {
	window := testWindow(t)
	inside := window.Start.Add(time.Hour)

	events := []domain.ConversionEvent{
		event("1", "n1", "2", domain.StatusSale, 100, inside),
		event("2", "n1", "5", domain.StatusSale, 50, inside),
	}

	google := domain.SourceFilterSet{
		Filter: domain.SourceGoogle,
		IDs:    map[string]struct{}{"2": {}},
	}

	res := AggregateConversions(events, window, google)

	assert.Equal(t, 1, res.Buckets["n1"].Sales)
	assert.Equal(t, 100.0, res.Buckets["n1"].Revenue)
}

func TestAggregatePartitionSumsToAll(t *testing.T) {
	window := testWindow(t)
	inside := window.Start.Add(time.Hour)

	catalog := testCatalog()
	classifier := NewSourceClassifier([]string{"2"})

	var events []domain.ConversionEvent
	for i, src := range []string{"2", "2", "5", "7", "9", "5"} {
		events = append(events, event(fmt.Sprintf("id-%d", i), "n1", src, domain.StatusSale, 10, inside))
	}

	google, err := classifier.Resolve(domain.SourceGoogle, catalog)
	require.NoError(t, err)
	other, err := classifier.Resolve(domain.SourceOther, catalog)
	require.NoError(t, err)

	all := AggregateConversions(events, window, allSources())
	g := AggregateConversions(events, window, google)
	o := AggregateConversions(events, window, other)

	assert.Equal(t, all.Buckets["n1"].Sales, g.Buckets["n1"].Sales+o.Buckets["n1"].Sales)
	assert.Equal(t, all.Buckets["n1"].Revenue, g.Buckets["n1"].Revenue+o.Buckets["n1"].Revenue)
}

func TestAggregateStatusCompleteness(t *testing.T) {
	// leads and sales both come out of the one unfiltered stream
	window := testWindow(t)
	inside := window.Start.Add(time.Hour)

	events := []domain.ConversionEvent{
		event("1", "n1", "2", domain.StatusLead, 0, inside),
		event("2", "n1", "2", domain.StatusSale, 500, inside),
	}

	res := AggregateConversions(events, window, allSources())

	assert.Equal(t, 1, res.Buckets["n1"].Leads)
	assert.Equal(t, 1, res.Buckets["n1"].Sales)
}

func TestAggregateBuyerReconciliation(t *testing.T) {
	// the n1 case: 13 sales worth 1025 in revenue must survive
	// aggregation exactly, alongside noise from other buyers,
	// duplicates and out-of-window events
	window := testWindow(t)
	inside := window.Start.Add(time.Hour)

	var events []domain.ConversionEvent
	for i := 0; i < 12; i++ {
		events = append(events, event(fmt.Sprintf("n1-sale-%d", i), "n1", "2", domain.StatusSale, 75, inside))
	}
	events = append(events, event("n1-sale-12", "n1", "2", domain.StatusSale, 125, inside))

	// noise
	events = append(events,
		events[0], // duplicate
		event("n1-old", "n1", "2", domain.StatusSale, 999, window.Start.Add(-time.Hour)),
		event("n1-lead", "n1", "2", domain.StatusLead, 0, inside),
		event("k7-sale", "k7", "5", domain.StatusSale, 40, inside),
	)

	res := AggregateConversions(events, window, allSources())

	require.Contains(t, res.Buckets, "n1")
	assert.Equal(t, 13, res.Buckets["n1"].Sales)
	assert.Equal(t, 1025.0, res.Buckets["n1"].Revenue)
	assert.Equal(t, 1, res.Buckets["n1"].Leads)
}

func TestMergeAggregatesMatchesSinglePass(t *testing.T) {
	window := testWindow(t)
	inside := window.Start.Add(time.Hour)

	shardA := []domain.ConversionEvent{
		event("1", "n1", "2", domain.StatusSale, 100, inside),
		event("2", "k7", "5", domain.StatusLead, 0, inside),
	}
	shardB := []domain.ConversionEvent{
		event("3", "n1", "2", domain.StatusSale, 50, inside),
		event("4", "m3", "7", domain.StatusSale, 10, inside),
	}

	combined := AggregateConversions(append(append([]domain.ConversionEvent{}, shardA...), shardB...), window, allSources())

	merged := MergeAggregates(nil, AggregateConversions(shardA, window, allSources()).Buckets)
	merged = MergeAggregates(merged, AggregateConversions(shardB, window, allSources()).Buckets)

	require.Len(t, merged, len(combined.Buckets))
	for buyer, agg := range combined.Buckets {
		assert.Equal(t, *agg, *merged[buyer], "buyer %s", buyer)
	}
}
