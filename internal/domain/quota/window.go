package quota

import "time"

// Window is a fixed rate-limiting bucket. Counters are keyed by
// (caller, window) and reset by TTL expiry, so bursts at bucket
// boundaries are admitted by design.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// Windows lists all windows in evaluation order. The limiter walks them
// finest first and stops at the first exceeded one.
var Windows = []Window{WindowMinute, WindowHour, WindowDay}

func (w Window) Duration() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	}
	return 0
}

func (w Window) String() string {
	return string(w)
}
