package usecase

import (
	"tracklytics/internal/domain"
)

// AggregateResult carries the buckets plus counters the caller may
// want to report.
type AggregateResult struct {
	Buckets    map[string]*domain.BuyerAggregate
	Duplicates int
	Skipped    int
}

// AggregateConversions reduces a conversion slice into per-buyer
// buckets in a single pass.
//
// Events are deduplicated by conversion id (first seen wins) before
// any other checks, so overlapping fetch pages cannot double count.
// The window test is half-open on postback time. Events whose source
// fails the filter, or whose postback falls outside the window, are
// dropped. No status filtering happens upstream, so leads and sales
// of every alias arrive here and land in the same buckets. Events
// without a buyer attribute go to the "unknown" bucket.
func AggregateConversions(events []domain.ConversionEvent, window domain.TimeWindow, sources domain.SourceFilterSet) AggregateResult {
	res := AggregateResult{
		Buckets: make(map[string]*domain.BuyerAggregate),
	}
	seen := make(map[string]struct{}, len(events))

	for _, ev := range events {
		if ev.ID != "" {
			if _, dup := seen[ev.ID]; dup {
				res.Duplicates++
				continue
			}
			seen[ev.ID] = struct{}{}
		}

		if !window.Contains(ev.PostbackTime) {
			res.Skipped++
			continue
		}
		if !sources.Allows(ev.SourceID) {
			res.Skipped++
			continue
		}

		buyer := ev.BuyerKey
		if buyer == "" {
			buyer = domain.UnknownBuyer
		}

		agg := res.Buckets[buyer]
		if agg == nil {
			agg = &domain.BuyerAggregate{}
			res.Buckets[buyer] = agg
		}

		switch ev.Status {
		case domain.StatusLead:
			agg.Leads++
		case domain.StatusSale:
			agg.Sales++
			agg.Revenue += ev.Revenue
		}
	}

	return res
}

// MergeAggregates folds src buckets into dst. Provided the inputs
// were deduplicated against a shared id space, merging shard results
// equals aggregating the concatenated input.
func MergeAggregates(dst, src map[string]*domain.BuyerAggregate) map[string]*domain.BuyerAggregate {
	if dst == nil {
		dst = make(map[string]*domain.BuyerAggregate, len(src))
	}
	for buyer, agg := range src {
		if existing := dst[buyer]; existing != nil {
			existing.Add(*agg)
			continue
		}
		cp := *agg
		dst[buyer] = &cp
	}
	return dst
}
