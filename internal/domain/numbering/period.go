package numbering

import "time"

// Period is the time bucket a sequence counter lives in. Counters reset
// per period; the key is embedded in formatted document numbers.
type Period struct {
	Key   string
	Start time.Time
	End   time.Time
}

// MonthlyPeriod returns the calendar-month period containing t.
func MonthlyPeriod(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Period{
		Key:   start.Format("200601"),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// DailyPeriod returns the calendar-day period containing t.
func DailyPeriod(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Period{
		Key:   start.Format("20060102"),
		Start: start,
		End:   start.AddDate(0, 0, 1),
	}
}

// CacheTTL returns how long a cached counter for this period should live,
// measured from now. The entry survives until the end of the *next* period
// so a counter is never evicted while stragglers for its period can still
// arrive.
func (p Period) CacheTTL(now time.Time) time.Duration {
	expiry := p.End.Add(p.End.Sub(p.Start))
	ttl := expiry.Sub(now)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

// Contains reports whether t falls within the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}
