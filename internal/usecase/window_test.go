package usecase

import (
	"testing"
	"time"

	"tracklytics/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUTC(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func TestWindowResolverLocalDayOffset(t *testing.T) {
	// business day 2025-08-08 at UTC+3 spans
	// [2025-08-07T21:00:00Z, 2025-08-08T21:00:00Z)
	resolver := NewWindowResolver(3 * time.Hour)
	now := mustUTC(t, "2025-08-08T12:00:00Z")

	window, err := resolver.Resolve(domain.Period{Token: domain.PeriodToday}, now)
	require.NoError(t, err)

	assert.Equal(t, mustUTC(t, "2025-08-07T21:00:00Z"), window.Start)
	assert.Equal(t, mustUTC(t, "2025-08-08T21:00:00Z"), window.End)

	// a sale just past local midnight belongs to the new day
	assert.True(t, window.Contains(mustUTC(t, "2025-08-07T21:03:22Z")))
	assert.False(t, window.Contains(mustUTC(t, "2025-08-07T20:59:59Z")))
}

func TestWindowResolverHalfOpenBoundaries(t *testing.T) {
	resolver := NewWindowResolver(3 * time.Hour)
	now := mustUTC(t, "2025-08-08T12:00:00Z")

	window, err := resolver.Resolve(domain.Period{Token: domain.PeriodToday}, now)
	require.NoError(t, err)

	assert.True(t, window.Contains(window.Start))
	assert.False(t, window.Contains(window.End))
	assert.False(t, window.Contains(window.Start.Add(-time.Nanosecond)))
	assert.True(t, window.Contains(window.End.Add(-time.Nanosecond)))
}

func TestWindowResolverLateEveningRollsLocalDay(t *testing.T) {
	// 22:30 UTC at offset +3h is already 01:30 on the next local day
	resolver := NewWindowResolver(3 * time.Hour)
	now := mustUTC(t, "2025-08-08T22:30:00Z")

	window, err := resolver.Resolve(domain.Period{Token: domain.PeriodToday}, now)
	require.NoError(t, err)

	assert.Equal(t, mustUTC(t, "2025-08-08T21:00:00Z"), window.Start)
	assert.Equal(t, mustUTC(t, "2025-08-09T21:00:00Z"), window.End)
}

func TestWindowResolverTokens(t *testing.T) {
	resolver := NewWindowResolver(3 * time.Hour)
	now := mustUTC(t, "2025-08-08T12:00:00Z")

	tests := []struct {
		token domain.PeriodToken
		start string
		end   string
	}{
		{domain.PeriodYesterday, "2025-08-06T21:00:00Z", "2025-08-07T21:00:00Z"},
		{domain.PeriodLast3d, "2025-08-04T21:00:00Z", "2025-08-08T21:00:00Z"},
		{domain.PeriodLast7d, "2025-08-01T21:00:00Z", "2025-08-08T21:00:00Z"},
		{domain.PeriodLast15d, "2025-07-23T21:00:00Z", "2025-08-08T21:00:00Z"},
		{domain.PeriodLast30d, "2025-07-08T21:00:00Z", "2025-08-08T21:00:00Z"},
		{domain.PeriodThisMonth, "2025-07-31T21:00:00Z", "2025-08-08T21:00:00Z"},
		{domain.PeriodLastMonth, "2025-06-30T21:00:00Z", "2025-07-31T21:00:00Z"},
	}

	for _, tc := range tests {
		t.Run(string(tc.token), func(t *testing.T) {
			window, err := resolver.Resolve(domain.Period{Token: tc.token}, now)
			require.NoError(t, err)
			assert.Equal(t, mustUTC(t, tc.start), window.Start)
			assert.Equal(t, mustUTC(t, tc.end), window.End)
		})
	}
}

func TestWindowResolverLast24hIsRolling(t *testing.T) {
	resolver := NewWindowResolver(3 * time.Hour)
	now := mustUTC(t, "2025-08-08T12:34:56Z")

	window, err := resolver.Resolve(domain.Period{Token: domain.PeriodLast24h}, now)
	require.NoError(t, err)

	assert.Equal(t, now.Add(-24*time.Hour), window.Start)
	assert.Equal(t, now, window.End)
}

func TestWindowResolverCustomRange(t *testing.T) {
	resolver := NewWindowResolver(3 * time.Hour)
	now := mustUTC(t, "2025-08-08T12:00:00Z")

	window, err := resolver.Resolve(domain.Period{
		Token:       domain.PeriodCustom,
		CustomStart: mustUTC(t, "2025-08-01T00:00:00Z"),
		CustomEnd:   mustUTC(t, "2025-08-03T00:00:00Z"),
	}, now)
	require.NoError(t, err)

	assert.Equal(t, mustUTC(t, "2025-07-31T21:00:00Z"), window.Start)
	assert.Equal(t, mustUTC(t, "2025-08-03T21:00:00Z"), window.End)
}

func TestWindowResolverInvalidPeriods(t *testing.T) {
	resolver := NewWindowResolver(3 * time.Hour)
	now := mustUTC(t, "2025-08-08T12:00:00Z")

	tests := []struct {
		name   string
		period domain.Period
	}{
		{"unknown token", domain.Period{Token: "last_week"}},
		{"empty token", domain.Period{}},
		{"custom without dates", domain.Period{Token: domain.PeriodCustom}},
		{"custom end before start", domain.Period{
			Token:       domain.PeriodCustom,
			CustomStart: mustUTC(t, "2025-08-05T00:00:00Z"),
			CustomEnd:   mustUTC(t, "2025-08-01T00:00:00Z"),
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolver.Resolve(tc.period, now)
			assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
		})
	}
}

func TestParsePeriodRejectsUnknownTokens(t *testing.T) {
	_, err := domain.ParsePeriod("fortnight")
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	period, err := domain.ParsePeriod("last7d")
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodLast7d, period.Token)
}
