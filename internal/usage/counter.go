// Package usage tracks per-company consumption: time-windowed AI request
// counters held in memory, and cumulative stored bytes.
package usage

import "time"

// Window lengths. A window rolls over once now - windowStart >= length;
// the replacement window starts at the instant the rollover is observed.
const (
	HourWindow = time.Hour
	DayWindow  = 24 * time.Hour
)

// Counter is a snapshot of one company's AI consumption.
type Counter struct {
	RequestsThisHour int64     `json:"requests_this_hour"`
	RequestsToday    int64     `json:"requests_today"`
	TokensToday      int64     `json:"tokens_today"`
	TotalRequests    int64     `json:"total_requests"`
	TotalTokensUsed  int64     `json:"total_tokens_used"`
	LastRequestTime  time.Time `json:"last_request_time"`
	HourWindowStart  time.Time `json:"hour_window_start"`
	DayWindowStart   time.Time `json:"day_window_start"`
}

// RolledOver returns what c reads at now: hour and day counters whose window
// has elapsed are zeroed and their window restarted at now. Lifetime totals
// are never touched. A zero window start (fresh counter) also restarts.
func RolledOver(c Counter, now time.Time) Counter {
	if c.HourWindowStart.IsZero() || now.Sub(c.HourWindowStart) >= HourWindow {
		c.RequestsThisHour = 0
		c.HourWindowStart = now
	}
	if c.DayWindowStart.IsZero() || now.Sub(c.DayWindowStart) >= DayWindow {
		c.RequestsToday = 0
		c.TokensToday = 0
		c.DayWindowStart = now
	}
	return c
}

// withConsumption applies one request of the given token size to an already
// rolled-over counter.
func withConsumption(c Counter, tokens int64, now time.Time) Counter {
	c.RequestsThisHour++
	c.RequestsToday++
	c.TokensToday += tokens
	c.TotalRequests++
	c.TotalTokensUsed += tokens
	c.LastRequestTime = now
	return c
}

// HourResetAt returns when the current hour window ends.
func (c Counter) HourResetAt() time.Time {
	return c.HourWindowStart.Add(HourWindow)
}

// DayResetAt returns when the current day window ends.
func (c Counter) DayResetAt() time.Time {
	return c.DayWindowStart.Add(DayWindow)
}
