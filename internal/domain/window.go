package domain

import "time"

// a named reporting period token
type PeriodToken string

const (
	PeriodToday     PeriodToken = "today"
	PeriodYesterday PeriodToken = "yesterday"
	PeriodLast24h   PeriodToken = "last24h"
	PeriodLast3d    PeriodToken = "last3d"
	PeriodLast7d    PeriodToken = "last7d"
	PeriodLast15d   PeriodToken = "last15d"
	PeriodLast30d   PeriodToken = "last30d"
	PeriodThisMonth PeriodToken = "thismonth"
	PeriodLastMonth PeriodToken = "lastmonth"
	PeriodCustom    PeriodToken = "custom"
)

// a reporting period request: a token, plus explicit local
// calendar days when the token is custom
type Period struct {
	Token       PeriodToken
	CustomStart time.Time
	CustomEnd   time.Time
}

// ParsePeriod maps a query-string token onto a Period.
func ParsePeriod(raw string) (Period, error) {
	switch PeriodToken(raw) {
	case PeriodToday, PeriodYesterday, PeriodLast24h,
		PeriodLast3d, PeriodLast7d, PeriodLast15d, PeriodLast30d,
		PeriodThisMonth, PeriodLastMonth:
		return Period{Token: PeriodToken(raw)}, nil
	}
	return Period{}, ErrInvalidPeriod
}

// a half-open UTC instant range [Start, End)
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
// Start is inclusive, End is exclusive.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
