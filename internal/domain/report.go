package domain

import "sort"

// a traffic source as listed by the tracker catalog
type TrafficSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// source filter tokens accepted by the report query
type SourceFilter string

const (
	SourceAll    SourceFilter = "all"
	SourceGoogle SourceFilter = "google"
	SourceOther  SourceFilter = "other"
)

// the resolved membership set for a source filter. An empty set
// means no filtering at all, not "match nothing".
type SourceFilterSet struct {
	Filter SourceFilter
	IDs    map[string]struct{}
}

// Allows reports whether an event with the given source id passes
// the filter.
func (s SourceFilterSet) Allows(sourceID string) bool {
	if len(s.IDs) == 0 {
		return s.Filter == SourceAll || s.Filter == ""
	}
	_, ok := s.IDs[sourceID]
	return ok
}

// SortedIDs returns the member ids in stable order for responses
// and upstream IN_LIST filters.
func (s SourceFilterSet) SortedIDs() []string {
	if len(s.IDs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.IDs))
	for id := range s.IDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// raw per-buyer counters accumulated by the aggregation pass
type BuyerAggregate struct {
	Clicks         int     `json:"clicks"`
	UniqueVisitors int     `json:"unique_visitors"`
	Leads          int     `json:"leads"`
	Sales          int     `json:"sales"`
	Revenue        float64 `json:"revenue"`
	Cost           float64 `json:"cost"`
}

// Add folds another aggregate into this one.
func (a *BuyerAggregate) Add(other BuyerAggregate) {
	a.Clicks += other.Clicks
	a.UniqueVisitors += other.UniqueVisitors
	a.Leads += other.Leads
	a.Sales += other.Sales
	a.Revenue += other.Revenue
	a.Cost += other.Cost
}

// derived ratios computed from a BuyerAggregate
type DerivedMetrics struct {
	RegCR   float64 `json:"reg_cr"`
	DepRate float64 `json:"dep_rate"`
	EPC     float64 `json:"epc"`
	ARPU    float64 `json:"arpu"`
	Profit  float64 `json:"profit"`
	ROI     float64 `json:"roi"`
}

// one buyer row in the report response
type BuyerReport struct {
	BuyerKey string `json:"buyer"`
	BuyerAggregate
	Metrics DerivedMetrics `json:"metrics"`
}

// parameters of one report query
type ReportQuery struct {
	Period   Period
	Source   SourceFilter
	BuyerKey string
}

// the full answer to one report query, carrying the resolved
// window and source set so callers can audit what was applied
type ReportResult struct {
	Window    TimeWindow    `json:"window"`
	Source    SourceFilter  `json:"source"`
	SourceIDs []string      `json:"source_ids,omitempty"`
	Rows      []BuyerReport `json:"rows"`
	Totals    BuyerReport   `json:"totals"`
}
