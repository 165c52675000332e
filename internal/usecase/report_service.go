package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tracklytics/internal/domain"
	"tracklytics/pkg/logger"
	"tracklytics/pkg/metrics"
)

// CatalogProvider serves the current traffic source snapshot.
type CatalogProvider interface {
	Snapshot(ctx context.Context) ([]domain.TrafficSource, error)
}

// ReportService answers buyer report queries end to end.
type ReportService struct {
	fetcher    domain.ConversionFetcher
	visits     domain.VisitCounter
	catalog    CatalogProvider
	resolver   *WindowResolver
	classifier *SourceClassifier
	logger     *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewReportService(
	fetcher domain.ConversionFetcher,
	visits domain.VisitCounter,
	catalog CatalogProvider,
	resolver *WindowResolver,
	classifier *SourceClassifier,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *ReportService {
	return &ReportService{
		fetcher:    fetcher,
		visits:     visits,
		catalog:    catalog,
		resolver:   resolver,
		classifier: classifier,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// BuildBuyerReport runs one report query: resolve the window and the
// source set, pull conversions and visit counters concurrently,
// aggregate, derive metrics and assemble sorted rows plus totals.
//
// A failed upstream fetch fails the whole query. Zero conversions in
// a healthy window is a valid result with empty rows, never an error.
func (s *ReportService) BuildBuyerReport(ctx context.Context, q domain.ReportQuery) (*domain.ReportResult, error) {
	start := time.Now()
	s.metrics.IncReportsInProgress()
	defer s.metrics.DecReportsInProgress()

	log := s.logger.WithContext(ctx)

	window, err := s.resolver.Resolve(q.Period, s.now())
	if err != nil {
		s.metrics.RecordReportQuery("invalid", string(q.Period.Token), time.Since(start))
		return nil, err
	}

	sources, err := s.resolveSources(ctx, q.Source)
	if err != nil {
		s.metrics.RecordReportQuery("invalid", string(q.Period.Token), time.Since(start))
		return nil, err
	}

	log.WithFields(map[string]any{
		"period":       q.Period.Token,
		"source":       sources.Filter,
		"window_start": window.Start,
		"window_end":   window.End,
	}).Info("Building buyer report")

	sourceIDs := sources.SortedIDs()

	// pull the conversion log and the click counters concurrently
	var (
		events    []domain.ConversionEvent
		visitRows map[string]domain.VisitStats
		evErr     error
		visitErr  error
		wg        sync.WaitGroup
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		events, evErr = s.fetcher.FetchConversions(ctx, window)
		if evErr != nil {
			log.WithError(evErr).Error("Failed to fetch conversions")
		}
	}()

	go func() {
		defer wg.Done()
		visitRows, visitErr = s.visits.CountVisits(ctx, window, sourceIDs)
		if visitErr != nil {
			log.WithError(visitErr).Error("Failed to count visits")
		}
	}()

	wg.Wait()

	if evErr != nil {
		s.metrics.RecordReportQuery("failed", string(q.Period.Token), time.Since(start))
		return nil, fmt.Errorf("conversion fetch failed: %w", evErr)
	}
	if visitErr != nil {
		s.metrics.RecordReportQuery("failed", string(q.Period.Token), time.Since(start))
		return nil, fmt.Errorf("visit count failed: %w", visitErr)
	}

	agg := AggregateConversions(events, window, sources)
	s.metrics.RecordEventsProcessed(len(events))
	s.metrics.RecordDuplicatesDropped(agg.Duplicates)

	// merge click-side counters; buyers with traffic but no
	// conversions still get a row
	for buyer, vs := range visitRows {
		if buyer == "" {
			buyer = domain.UnknownBuyer
		}
		bucket := agg.Buckets[buyer]
		if bucket == nil {
			bucket = &domain.BuyerAggregate{}
			agg.Buckets[buyer] = bucket
		}
		bucket.Clicks += vs.Clicks
		bucket.UniqueVisitors += vs.UniqueVisitors
		bucket.Cost += vs.Cost
	}

	result := &domain.ReportResult{
		Window:    window,
		Source:    sources.Filter,
		SourceIDs: sourceIDs,
	}

	var totals domain.BuyerAggregate
	for buyer, bucket := range agg.Buckets {
		if q.BuyerKey != "" && buyer != q.BuyerKey {
			continue
		}
		totals.Add(*bucket)
		result.Rows = append(result.Rows, domain.BuyerReport{
			BuyerKey:       buyer,
			BuyerAggregate: *bucket,
			Metrics:        CalculateMetrics(*bucket),
		})
	}

	sort.Slice(result.Rows, func(i, j int) bool {
		if result.Rows[i].Revenue != result.Rows[j].Revenue {
			return result.Rows[i].Revenue > result.Rows[j].Revenue
		}
		return result.Rows[i].BuyerKey < result.Rows[j].BuyerKey
	})

	result.Totals = domain.BuyerReport{
		BuyerKey:       "total",
		BuyerAggregate: totals,
		Metrics:        CalculateMetrics(totals),
	}

	duration := time.Since(start)
	s.metrics.RecordReportQuery("success", string(q.Period.Token), duration)

	log.WithFields(map[string]any{
		"duration":   duration,
		"events":     len(events),
		"duplicates": agg.Duplicates,
		"buyers":     len(result.Rows),
	}).Info("Buyer report completed")

	return result, nil
}

// ListSources exposes the current catalog snapshot.
func (s *ReportService) ListSources(ctx context.Context) ([]domain.TrafficSource, error) {
	snapshot, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog snapshot failed: %w", err)
	}
	return snapshot, nil
}

// resolveSources fetches the catalog only for filters that need it.
func (s *ReportService) resolveSources(ctx context.Context, f domain.SourceFilter) (domain.SourceFilterSet, error) {
	var catalog []domain.TrafficSource
	if f == domain.SourceOther {
		snapshot, err := s.catalog.Snapshot(ctx)
		if err != nil {
			return domain.SourceFilterSet{}, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
		}
		catalog = snapshot
	}
	return s.classifier.Resolve(f, catalog)
}
