package usecase

import (
	"tracklytics/internal/domain"
)

// SourceClassifier resolves source filter tokens into explicit
// membership sets.
type SourceClassifier struct {
	googleIDs []string
}

// NewSourceClassifier creates a classifier with the configured
// Google traffic source ids.
func NewSourceClassifier(googleIDs []string) *SourceClassifier {
	return &SourceClassifier{googleIDs: googleIDs}
}

// Resolve computes the membership set for a filter token.
//
// "all" needs no catalog and matches everything. "google" is the
// static configured set. "other" is the catalog complement of the
// Google set; when the catalog is empty or missing the query fails
// with ErrCatalogUnavailable instead of silently matching everything.
func (c *SourceClassifier) Resolve(f domain.SourceFilter, catalog []domain.TrafficSource) (domain.SourceFilterSet, error) {
	switch f {
	case domain.SourceAll, "":
		return domain.SourceFilterSet{Filter: domain.SourceAll}, nil

	case domain.SourceGoogle:
		ids := make(map[string]struct{}, len(c.googleIDs))
		for _, id := range c.googleIDs {
			ids[id] = struct{}{}
		}
		return domain.SourceFilterSet{Filter: domain.SourceGoogle, IDs: ids}, nil

	case domain.SourceOther:
		if len(catalog) == 0 {
			return domain.SourceFilterSet{}, domain.ErrCatalogUnavailable
		}
		google := make(map[string]struct{}, len(c.googleIDs))
		for _, id := range c.googleIDs {
			google[id] = struct{}{}
		}
		ids := make(map[string]struct{}, len(catalog))
		for _, src := range catalog {
			if _, isGoogle := google[src.ID]; !isGoogle {
				ids[src.ID] = struct{}{}
			}
		}
		return domain.SourceFilterSet{Filter: domain.SourceOther, IDs: ids}, nil
	}

	return domain.SourceFilterSet{}, domain.ErrInvalidSourceFilter
}
