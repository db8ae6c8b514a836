package generic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - Calendar day in the canonical (UTC) calendar
// =============================================================================

// DateLayout is the wire and storage format for every date in the ledger.
const DateLayout = "2006-01-02"

// TimePoint is a calendar day. The underlying time is always UTC midnight so
// day arithmetic never depends on the wall clock or the host time zone.
type TimePoint struct {
	Time time.Time
}

// NewTimePoint builds a day. Overflowing days roll over like time.Date.
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar day in t's own location.
func DayOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a literal YYYY-MM-DD value. Year, month and day are read
// as numbers; no locale or time zone is involved. Dates that do not exist
// (2025-02-30) are rejected rather than rolled over.
func ParseDate(s string) (TimePoint, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return TimePoint{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	y, errY := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	d, errD := strconv.Atoi(parts[2])
	if errY != nil || errM != nil || errD != nil {
		return TimePoint{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	tp := NewTimePoint(y, time.Month(m), d)
	if tp.Year() != y || int(tp.Month()) != m || tp.Day() != d {
		return TimePoint{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return tp, nil
}

// MustParseDate is ParseDate for fixtures and tests.
func MustParseDate(s string) TimePoint {
	tp, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return DayOf(tp.normalize().AddDate(0, 0, n)) }

// AddMonths moves by whole calendar months, keeping the day of month when the
// target month has it and clamping to the month's last day otherwise
// (Jan 31 + 1 month = Feb 28/29).
func (tp TimePoint) AddMonths(n int) TimePoint {
	t := tp.normalize()
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := EndOfMonth(first.Year(), first.Month()).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return NewTimePoint(first.Year(), first.Month(), day)
}

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	if tp.IsZero() {
		return ""
	}
	return tp.normalize().Format(DateLayout)
}

// Ptr returns a pointer to a copy, for optional date fields.
func (tp TimePoint) Ptr() *TimePoint { return &tp }

// MarshalJSON writes the day as "YYYY-MM-DD" (null when zero).
func (tp TimePoint) MarshalJSON() ([]byte, error) {
	if tp.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(tp.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD", an RFC 3339 timestamp, or null.
func (tp *TimePoint) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*tp = TimePoint{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(data))
	}
	if s == "" {
		*tp = TimePoint{}
		return nil
	}
	if parsed, err := ParseDate(s); err == nil {
		*tp = parsed
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	*tp = DayOf(t.UTC())
	return nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

const dayLength = 24 * time.Hour

// DaysBetween returns the signed day count b - a.
func DaysBetween(a, b TimePoint) int {
	return int(b.normalize().Sub(a.normalize()) / dayLength)
}

// DaysBetweenStrings is DaysBetween over YYYY-MM-DD inputs. It fails with
// ErrInvalidDate when either side is not a real calendar date.
func DaysBetweenStrings(a, b string) (int, error) {
	from, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	to, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return DaysBetween(from, to), nil
}

// IsPast reports whether date falls strictly before today.
func IsPast(date TimePoint, clock Clock) bool {
	return date.Before(clock.Today())
}

// IsWithin reports whether date lies between today and today+days inclusive.
func IsWithin(date TimePoint, days int, clock Clock) bool {
	d := DaysBetween(clock.Today(), date)
	return d >= 0 && d <= days
}

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

func EndOfMonth(year int, month time.Month) TimePoint {
	return DayOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}
