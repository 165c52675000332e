package domain

import "context"

// interface for pulling the conversion log for a UTC window
type ConversionFetcher interface {
	FetchConversions(ctx context.Context, window TimeWindow) ([]ConversionEvent, error)
}

// interface for listing the tracker's traffic source catalog
type SourceCatalog interface {
	FetchSources(ctx context.Context) ([]TrafficSource, error)
}

// per-buyer click-side counters from the tracker report builder
type VisitStats struct {
	Clicks         int     `json:"clicks"`
	UniqueVisitors int     `json:"unique_visitors"`
	Cost           float64 `json:"cost"`
}

// interface for counting visits per buyer, optionally restricted
// to a set of traffic source ids
type VisitCounter interface {
	CountVisits(ctx context.Context, window TimeWindow, sourceIDs []string) (map[string]VisitStats, error)
}
