package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"tracklytics/internal/domain"
	"tracklytics/pkg/logger"
	"tracklytics/pkg/metrics"

	"golang.org/x/time/rate"
)

// timestamp layout used by the tracker admin API
const trackerTimeLayout = "2006-01-02 15:04:05"

// TrackerClient talks to the tracker admin API. Implements
// domain.ConversionFetcher, domain.SourceCatalog and
// domain.VisitCounter.
type TrackerClient struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	logger      *logger.Logger
	metrics     *metrics.Metrics
	rateLimiter *rate.Limiter
	pageSize    int
	concurrency int
	maxRetries  int
	backoff     time.Duration
}

type TrackerClientOptions struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	RateLimit   int
	PageSize    int
	Concurrency int
	MaxRetries  int
	Backoff     time.Duration
}

// creates a new tracker API client
func NewTrackerClient(opts TrackerClientOptions, logger *logger.Logger, metrics *metrics.Metrics) *TrackerClient {
	if opts.PageSize <= 0 {
		opts.PageSize = 500
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	return &TrackerClient{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		logger:      logger,
		metrics:     metrics,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit),
		pageSize:    opts.PageSize,
		concurrency: opts.Concurrency,
		maxRetries:  opts.MaxRetries,
		backoff:     opts.Backoff,
	}
}

// wire shapes for the conversion log endpoint

type logFilter struct {
	Name       string   `json:"name"`
	Operator   string   `json:"operator"`
	Expression []string `json:"expression"`
}

type logSort struct {
	Name  string `json:"name"`
	Order string `json:"order"`
}

type conversionLogRequest struct {
	Limit    int         `json:"limit"`
	Offset   int         `json:"offset"`
	Columns  []string    `json:"columns"`
	Filters  []logFilter `json:"filters"`
	Sort     []logSort   `json:"sort"`
	Timezone string      `json:"timezone"`
}

type conversionRow struct {
	ConversionID     json.Number `json:"conversion_id"`
	SubID1           string      `json:"sub_id_1"`
	Status           string      `json:"status"`
	Revenue          json.Number `json:"revenue"`
	TsID             json.Number `json:"ts_id"`
	ClickDatetime    string      `json:"click_datetime"`
	PostbackDatetime string      `json:"postback_datetime"`
	SaleDatetime     string      `json:"sale_datetime"`
}

type conversionLogResponse struct {
	Rows  []conversionRow `json:"rows"`
	Total int             `json:"total"`
}

var conversionColumns = []string{
	"conversion_id", "sub_id_1", "status", "revenue",
	"ts_id", "click_datetime", "postback_datetime", "sale_datetime",
}

// FetchConversions pulls every conversion whose postback falls inside
// the window, across all statuses.
//
// The filter is a BETWEEN on postback_datetime only. Statuses are
// never filtered upstream; the aggregation layer decides what counts.
// The first page establishes the total, remaining pages are fetched
// concurrently under a bounded semaphore. Page overlap on a moving
// log is tolerated because the aggregator deduplicates by id.
func (c *TrackerClient) FetchConversions(ctx context.Context, window domain.TimeWindow) ([]domain.ConversionEvent, error) {
	start := time.Now()
	log := c.logger.WithContext(ctx)

	firstRows, total, err := c.fetchConversionPage(ctx, window, 0)
	if err != nil {
		return nil, err
	}

	pages := [][]conversionRow{firstRows}

	switch {
	case total > len(firstRows):
		extra, err := c.fetchRemainingPages(ctx, window, len(firstRows), total)
		if err != nil {
			return nil, err
		}
		pages = append(pages, extra...)

	case total == 0 && len(firstRows) == c.pageSize:
		// no usable total; walk pages sequentially until a short one
		offset := c.pageSize
		for {
			rows, _, err := c.fetchConversionPage(ctx, window, offset)
			if err != nil {
				return nil, err
			}
			pages = append(pages, rows)
			if len(rows) < c.pageSize {
				break
			}
			offset += c.pageSize
		}
	}

	var events []domain.ConversionEvent
	var badRows int
	for _, rows := range pages {
		for _, row := range rows {
			ev, ok := c.parseConversionRow(row)
			if !ok {
				badRows++
				continue
			}
			events = append(events, ev)
		}
	}
	if badRows > 0 {
		log.WithField("rows", badRows).Warn("Skipped unparseable conversion rows")
	}

	log.WithFields(map[string]any{
		"window_start": window.Start,
		"window_end":   window.End,
		"events":       len(events),
		"pages":        len(pages),
		"duration":     time.Since(start),
	}).Info("Fetched conversion log")

	return events, nil
}

// fetchRemainingPages pulls pages [pageSize, total) concurrently.
func (c *TrackerClient) fetchRemainingPages(ctx context.Context, window domain.TimeWindow, fetched, total int) ([][]conversionRow, error) {
	var offsets []int
	for off := fetched; off < total; off += c.pageSize {
		offsets = append(offsets, off)
	}

	pages := make([][]conversionRow, len(offsets))
	sem := make(chan struct{}, c.concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, off := range offsets {
		wg.Add(1)
		go func(i, off int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				mu.Unlock()
				return
			}

			rows, _, err := c.fetchConversionPage(ctx, window, off)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			pages[i] = rows
		}(i, off)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return pages, nil
}

func (c *TrackerClient) fetchConversionPage(ctx context.Context, window domain.TimeWindow, offset int) ([]conversionRow, int, error) {
	payload := conversionLogRequest{
		Limit:   c.pageSize,
		Offset:  offset,
		Columns: conversionColumns,
		Filters: []logFilter{{
			Name:     "postback_datetime",
			Operator: "BETWEEN",
			Expression: []string{
				window.Start.UTC().Format(trackerTimeLayout),
				// BETWEEN is inclusive and the window is half-open,
				// so the upper bound steps back one second
				window.End.UTC().Add(-time.Second).Format(trackerTimeLayout),
			},
		}},
		Sort:     []logSort{{Name: "postback_datetime", Order: "asc"}},
		Timezone: "UTC",
	}

	var resp conversionLogResponse
	if err := c.doJSON(ctx, http.MethodPost, "/admin_api/v1/conversions/log", payload, &resp, "conversions_log"); err != nil {
		return nil, 0, fmt.Errorf("conversion log page at offset %d: %w", offset, err)
	}
	return resp.Rows, resp.Total, nil
}

func (c *TrackerClient) parseConversionRow(row conversionRow) (domain.ConversionEvent, bool) {
	status, ok := domain.NormalizeStatus(row.Status)
	if !ok {
		return domain.ConversionEvent{}, false
	}

	postback, err := parseTrackerTime(row.PostbackDatetime)
	if err != nil {
		return domain.ConversionEvent{}, false
	}

	revenue, _ := row.Revenue.Float64()

	ev := domain.ConversionEvent{
		ID:           row.ConversionID.String(),
		BuyerKey:     row.SubID1,
		SourceID:     row.TsID.String(),
		Status:       status,
		Revenue:      revenue,
		PostbackTime: postback,
	}
	if t, err := parseTrackerTime(row.ClickDatetime); err == nil {
		ev.ClickTime = t
	}
	if t, err := parseTrackerTime(row.SaleDatetime); err == nil {
		ev.SaleTime = t
	}
	return ev, true
}

// wire shapes for the traffic source catalog

type sourceRow struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// FetchSources lists the tracker's traffic source catalog.
func (c *TrackerClient) FetchSources(ctx context.Context) ([]domain.TrafficSource, error) {
	var rows []sourceRow
	if err := c.doJSON(ctx, http.MethodGet, "/admin_api/v1/traffic_sources", nil, &rows, "traffic_sources"); err != nil {
		return nil, err
	}

	sources := make([]domain.TrafficSource, 0, len(rows))
	for _, row := range rows {
		sources = append(sources, domain.TrafficSource{
			ID:   row.ID.String(),
			Name: row.Name,
		})
	}
	return sources, nil
}

// wire shapes for the report builder

type reportRange struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Timezone string `json:"timezone"`
}

type reportRequest struct {
	Range    reportRange `json:"range"`
	Grouping []string    `json:"grouping"`
	Metrics  []string    `json:"metrics"`
	Filters  []logFilter `json:"filters,omitempty"`
}

type reportRow struct {
	SubID1             string      `json:"sub_id_1"`
	Clicks             json.Number `json:"clicks"`
	GlobalUniqueClicks json.Number `json:"global_unique_clicks"`
	Cost               json.Number `json:"cost"`
}

type reportResponse struct {
	Rows []reportRow `json:"rows"`
}

// CountVisits pulls per-buyer click counters and cost from the
// report builder, optionally restricted to a source id set.
func (c *TrackerClient) CountVisits(ctx context.Context, window domain.TimeWindow, sourceIDs []string) (map[string]domain.VisitStats, error) {
	payload := reportRequest{
		Range: reportRange{
			From:     window.Start.UTC().Format(trackerTimeLayout),
			To:       window.End.UTC().Add(-time.Second).Format(trackerTimeLayout),
			Timezone: "UTC",
		},
		Grouping: []string{"sub_id_1"},
		Metrics:  []string{"clicks", "global_unique_clicks", "cost"},
	}
	if len(sourceIDs) > 0 {
		payload.Filters = []logFilter{{
			Name:       "ts_id",
			Operator:   "IN_LIST",
			Expression: sourceIDs,
		}}
	}

	var resp reportResponse
	if err := c.doJSON(ctx, http.MethodPost, "/admin_api/v1/report/build", payload, &resp, "report_build"); err != nil {
		return nil, err
	}

	stats := make(map[string]domain.VisitStats, len(resp.Rows))
	for _, row := range resp.Rows {
		clicks, _ := row.Clicks.Int64()
		uniques, _ := row.GlobalUniqueClicks.Int64()
		cost, _ := row.Cost.Float64()

		vs := stats[row.SubID1]
		vs.Clicks += int(clicks)
		vs.UniqueVisitors += int(uniques)
		vs.Cost += cost
		stats[row.SubID1] = vs
	}
	return stats, nil
}

// doJSON performs one rate-limited API call with retries.
//
// Transport errors and 5xx responses are retried with exponential
// backoff up to maxRetries. 4xx responses and decode failures are
// not retried. The final failure is a *domain.UpstreamError.
func (c *TrackerClient) doJSON(ctx context.Context, method, path string, payload, out any, endpoint string) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			c.logger.WithContext(ctx).WithFields(map[string]any{
				"endpoint": endpoint,
				"attempt":  attempt,
				"delay":    delay,
			}).Warn("Retrying tracker API call")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			c.metrics.RecordTrackerAPIFailure(endpoint, "rate_limit")
			return fmt.Errorf("rate limit wait failed: %w", err)
		}

		retry, err := c.attempt(ctx, method, path, body, out, endpoint)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return lastErr
}

// attempt runs a single request. The bool reports whether the
// failure is retryable.
func (c *TrackerClient) attempt(ctx context.Context, method, path string, body []byte, out any, endpoint string) (bool, error) {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		c.metrics.RecordTrackerAPIFailure(endpoint, "request_creation")
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordTrackerAPIFailure(endpoint, "network_error")
		return ctx.Err() == nil, &domain.UpstreamError{
			Endpoint: endpoint,
			Timeout:  isTimeout(err),
			Err:      err,
		}
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordTrackerAPIFailure(endpoint, "read_body")
		return true, &domain.UpstreamError{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordTrackerAPICall(endpoint, fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return resp.StatusCode >= 500, &domain.UpstreamError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		c.metrics.RecordTrackerAPIFailure(endpoint, "json_parse")
		return false, fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}

	c.metrics.RecordTrackerAPICall(endpoint, "success", duration)
	return false, nil
}

func parseTrackerTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(trackerTimeLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
