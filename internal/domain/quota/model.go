package quota

import "time"

// Process-wide default limits applied to callers without a saved policy.
const (
	DefaultPerMinute = 60
	DefaultPerHour   = 1000
	DefaultPerDay    = 10000
)

// Policy holds the effective per-caller request budgets. A nil limit means
// that window is not enforced for this caller.
type Policy struct {
	OwnerID   int64     `db:"owner_id"`
	PerMinute *int      `db:"requests_per_minute"`
	PerHour   *int      `db:"requests_per_hour"`
	PerDay    *int      `db:"requests_per_day"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Limit returns the configured budget for a window, or nil when that
// window is not enforced.
func (p *Policy) Limit(w Window) *int {
	switch w {
	case WindowMinute:
		return p.PerMinute
	case WindowHour:
		return p.PerHour
	case WindowDay:
		return p.PerDay
	}
	return nil
}

// DefaultPolicy returns the fallback limits for callers with no saved
// policy. It is never persisted as a side effect of lookup.
func DefaultPolicy() *Policy {
	perMinute := DefaultPerMinute
	perHour := DefaultPerHour
	perDay := DefaultPerDay
	return &Policy{
		PerMinute: &perMinute,
		PerHour:   &perHour,
		PerDay:    &perDay,
	}
}
