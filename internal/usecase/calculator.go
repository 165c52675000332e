package usecase

import (
	"tracklytics/internal/domain"
)

// CalculateMetrics derives ratio metrics from raw counters.
//
// Pure function of its input. Every denominator is guarded, so a
// buyer with zero clicks, leads or cost yields zero-valued metrics
// rather than NaN or a panic. Cost comes in on the aggregate as an
// explicit figure from the visit counter, never inferred here.
func CalculateMetrics(agg domain.BuyerAggregate) domain.DerivedMetrics {
	var m domain.DerivedMetrics

	if agg.Clicks > 0 {
		m.RegCR = float64(agg.Leads) / float64(agg.Clicks) * 100
		m.EPC = agg.Revenue / float64(agg.Clicks)
	}

	if agg.Leads > 0 {
		m.DepRate = float64(agg.Sales) / float64(agg.Leads) * 100
	}

	if conversions := agg.Leads + agg.Sales; conversions > 0 {
		m.ARPU = agg.Revenue / float64(conversions)
	}

	if agg.Cost > 0 {
		m.Profit = agg.Revenue - agg.Cost
		m.ROI = m.Profit / agg.Cost * 100
	}

	return m
}
