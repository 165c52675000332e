package usecase

import (
	"time"

	"tracklytics/internal/domain"
)

// WindowResolver turns period tokens into half-open UTC windows.
//
// The tracker stores conversion timestamps in UTC while reports are
// requested in business-local days. Day boundaries are computed on
// the local calendar first and both boundaries are then shifted back
// by the fixed local offset, so a local day covers
// [00:00 local, 24:00 local) expressed as UTC instants.
type WindowResolver struct {
	offset time.Duration
}

// NewWindowResolver creates a resolver for the given local UTC offset.
func NewWindowResolver(offset time.Duration) *WindowResolver {
	return &WindowResolver{offset: offset}
}

// Resolve computes the UTC window for a period relative to now.
// Unknown tokens and malformed custom ranges return ErrInvalidPeriod.
func (r *WindowResolver) Resolve(p domain.Period, now time.Time) (domain.TimeWindow, error) {
	now = now.UTC()

	// rolling window, no day-boundary logic
	if p.Token == domain.PeriodLast24h {
		return domain.TimeWindow{Start: now.Add(-24 * time.Hour), End: now}, nil
	}

	// shift into local wall-clock time to find calendar boundaries
	local := now.Add(r.offset)
	today := dayStart(local)

	var start, end time.Time
	switch p.Token {
	case domain.PeriodToday:
		start, end = today, today.AddDate(0, 0, 1)
	case domain.PeriodYesterday:
		start, end = today.AddDate(0, 0, -1), today
	case domain.PeriodLast3d:
		start, end = today.AddDate(0, 0, -3), today.AddDate(0, 0, 1)
	case domain.PeriodLast7d:
		// 7 calendar days inclusive of today
		start, end = today.AddDate(0, 0, -6), today.AddDate(0, 0, 1)
	case domain.PeriodLast15d:
		start, end = today.AddDate(0, 0, -15), today.AddDate(0, 0, 1)
	case domain.PeriodLast30d:
		start, end = today.AddDate(0, 0, -30), today.AddDate(0, 0, 1)
	case domain.PeriodThisMonth:
		start, end = monthStart(local), today.AddDate(0, 0, 1)
	case domain.PeriodLastMonth:
		end = monthStart(local)
		start = end.AddDate(0, -1, 0)
	case domain.PeriodCustom:
		if p.CustomStart.IsZero() || p.CustomEnd.IsZero() {
			return domain.TimeWindow{}, domain.ErrInvalidPeriod
		}
		start = dayStart(p.CustomStart)
		end = dayStart(p.CustomEnd).AddDate(0, 0, 1)
		if !start.Before(end) {
			return domain.TimeWindow{}, domain.ErrInvalidPeriod
		}
	default:
		return domain.TimeWindow{}, domain.ErrInvalidPeriod
	}

	// local boundaries back to UTC instants
	return domain.TimeWindow{
		Start: start.Add(-r.offset),
		End:   end.Add(-r.offset),
	}, nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
