package generic

// =============================================================================
// PERIOD - Closed date interval
// =============================================================================

// Period is the closed interval [Start, End].
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns the number of days covered, counting both ends.
func (p Period) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Validate rejects periods whose end precedes their start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// MonthEndingAt is the rolling one-month window that closes on end:
// [end - 1 calendar month, end].
func MonthEndingAt(end TimePoint) Period {
	return Period{Start: end.AddMonths(-1), End: end}
}

// Next shifts both ends forward by one calendar month.
func (p Period) Next() Period {
	return Period{Start: p.Start.AddMonths(1), End: p.End.AddMonths(1)}
}
