package delivery

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tracklytics/internal/domain"
	"tracklytics/internal/usecase"
	"tracklytics/pkg/logger"
	"tracklytics/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// handles HTTP requests
type HTTPHandlers struct {
	reportService *usecase.ReportService
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

// creates new HTTP handlers
func NewHTTPHandlers(
	reportService *usecase.ReportService,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *HTTPHandlers {
	return &HTTPHandlers{
		reportService: reportService,
		logger:        logger,
		metrics:       metrics,
	}
}

// GetBuyerReport answers one buyer report query.
func (h *HTTPHandlers) GetBuyerReport(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := requestID(c)
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	query, err := h.parseReportQuery(c)
	if err != nil {
		h.metrics.RecordHTTPRequest("GET", "/report/buyers", "400", time.Since(start))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid parameters",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	result, err := h.reportService.BuildBuyerReport(ctx, query)
	if err != nil {
		status := h.errorStatus(err)
		h.metrics.RecordHTTPRequest("GET", "/report/buyers", strconv.Itoa(status), time.Since(start))
		h.logger.WithContext(ctx).WithError(err).Error("Buyer report query failed")
		c.JSON(status, gin.H{
			"error":      "Report query failed",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	h.metrics.RecordHTTPRequest("GET", "/report/buyers", "200", time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"window":     result.Window,
		"source":     result.Source,
		"source_ids": result.SourceIDs,
		"rows":       result.Rows,
		"totals":     result.Totals,
		"request_id": requestID,
	})
}

// GetSources returns the current traffic source catalog snapshot.
func (h *HTTPHandlers) GetSources(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	requestID := requestID(c)
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)

	sources, err := h.reportService.ListSources(ctx)
	if err != nil {
		status := h.errorStatus(err)
		h.metrics.RecordHTTPRequest("GET", "/sources", strconv.Itoa(status), time.Since(start))
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list traffic sources")
		c.JSON(status, gin.H{
			"error":      "Failed to list traffic sources",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	h.metrics.RecordHTTPRequest("GET", "/sources", "200", time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"sources":    sources,
		"request_id": requestID,
	})
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	start := time.Now()
	h.metrics.IncHTTPRequestsInFlight()
	defer h.metrics.DecHTTPRequestsInFlight()

	health := gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    "tracklytics",
		"version":    "1.0.0",
		"request_id": requestID(c),
	}

	h.metrics.RecordHTTPRequest("GET", "/health", "200", time.Since(start))
	c.JSON(http.StatusOK, health)
}

// parseReportQuery reads and validates the report query parameters.
// The period token is required, never defaulted.
func (h *HTTPHandlers) parseReportQuery(c *gin.Context) (domain.ReportQuery, error) {
	var q domain.ReportQuery

	periodStr := c.Query("period")
	if periodStr == "" {
		return q, domain.ErrInvalidPeriod
	}

	if periodStr == string(domain.PeriodCustom) {
		from, err := time.Parse("2006-01-02", c.Query("from"))
		if err != nil {
			return q, domain.ErrInvalidPeriod
		}
		to, err := time.Parse("2006-01-02", c.Query("to"))
		if err != nil {
			return q, domain.ErrInvalidPeriod
		}
		q.Period = domain.Period{
			Token:       domain.PeriodCustom,
			CustomStart: from,
			CustomEnd:   to,
		}
	} else {
		period, err := domain.ParsePeriod(periodStr)
		if err != nil {
			return q, err
		}
		q.Period = period
	}

	source := domain.SourceFilter(c.DefaultQuery("source", string(domain.SourceAll)))
	switch source {
	case domain.SourceAll, domain.SourceGoogle, domain.SourceOther:
		q.Source = source
	default:
		return q, domain.ErrInvalidSourceFilter
	}

	q.BuyerKey = c.Query("buyer")
	return q, nil
}

// errorStatus maps domain errors onto HTTP status codes.
func (h *HTTPHandlers) errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidPeriod),
		errors.Is(err, domain.ErrInvalidSourceFilter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// requestID prefers the id set by middleware, falling back to a
// fresh one for direct handler calls.
func requestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()
}
