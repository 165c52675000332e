package usecase

import (
	"testing"

	"tracklytics/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMetrics(t *testing.T) {
	m := CalculateMetrics(domain.BuyerAggregate{
		Clicks:  1000,
		Leads:   50,
		Sales:   10,
		Revenue: 500,
		Cost:    250,
	})

	assert.InDelta(t, 5.0, m.RegCR, 1e-9)
	assert.InDelta(t, 20.0, m.DepRate, 1e-9)
	assert.InDelta(t, 0.5, m.EPC, 1e-9)
	assert.InDelta(t, 500.0/60.0, m.ARPU, 1e-9)
	assert.InDelta(t, 250.0, m.Profit, 1e-9)
	assert.InDelta(t, 100.0, m.ROI, 1e-9)
}

func TestCalculateMetricsZeroDenominators(t *testing.T) {
	tests := []struct {
		name string
		agg  domain.BuyerAggregate
	}{
		{"empty aggregate", domain.BuyerAggregate{}},
		{"revenue without clicks", domain.BuyerAggregate{Sales: 3, Revenue: 90}},
		{"sales without leads", domain.BuyerAggregate{Clicks: 10, Sales: 2, Revenue: 20}},
		{"clicks without conversions", domain.BuyerAggregate{Clicks: 500}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := CalculateMetrics(tc.agg)

			// no NaN, no Inf, no panic
			assert.False(t, m.RegCR != m.RegCR)
			assert.False(t, m.DepRate != m.DepRate)

			if tc.agg.Clicks == 0 {
				assert.Zero(t, m.RegCR)
				assert.Zero(t, m.EPC)
			}
			if tc.agg.Leads == 0 {
				assert.Zero(t, m.DepRate)
			}
			if tc.agg.Cost == 0 {
				assert.Zero(t, m.Profit)
				assert.Zero(t, m.ROI)
			}
		})
	}
}

func TestCalculateMetricsNegativeROI(t *testing.T) {
	m := CalculateMetrics(domain.BuyerAggregate{
		Clicks:  100,
		Sales:   1,
		Revenue: 50,
		Cost:    200,
	})

	assert.InDelta(t, -150.0, m.Profit, 1e-9)
	assert.InDelta(t, -75.0, m.ROI, 1e-9)
}

func TestCalculateMetricsIsPure(t *testing.T) {
	agg := domain.BuyerAggregate{Clicks: 10, Leads: 5, Sales: 2, Revenue: 100, Cost: 40}

	first := CalculateMetrics(agg)
	second := CalculateMetrics(agg)

	assert.Equal(t, first, second)
	assert.Equal(t, domain.BuyerAggregate{Clicks: 10, Leads: 5, Sales: 2, Revenue: 100, Cost: 40}, agg)
}
