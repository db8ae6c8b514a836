package generic

import "time"

// Clock supplies "today". Every date-dependent rule takes one so results do
// not depend on when the code runs.
type Clock interface {
	Today() TimePoint
}

// SystemClock reads the wall clock and takes the calendar day in Location
// (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() TimePoint {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return DayOf(time.Now().In(loc))
}

// FixedClock always returns the same day.
type FixedClock struct {
	Day TimePoint
}

func (c FixedClock) Today() TimePoint { return c.Day }

// ClockFunc adapts a function to Clock.
type ClockFunc func() TimePoint

func (f ClockFunc) Today() TimePoint { return f() }
