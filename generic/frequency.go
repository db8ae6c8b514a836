package generic

import "fmt"

// =============================================================================
// PAY FREQUENCY - How often income arrives
// =============================================================================

type Frequency string

const (
	FreqWeekly   Frequency = "weekly"
	FreqBiweekly Frequency = "biweekly"
	FreqMonthly  Frequency = "monthly"
)

// DefaultFrequency is used when a frequency is missing or unknown.
const DefaultFrequency = FreqBiweekly

func (f Frequency) Valid() bool {
	switch f {
	case FreqWeekly, FreqBiweekly, FreqMonthly:
		return true
	}
	return false
}

// ParseFrequency validates a user supplied frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", &ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", s)}
	}
	return f, nil
}

// NextOccurrence projects the next payday after from. Monthly keeps the day of
// month when possible and clamps to the month end otherwise. Unknown
// frequencies behave as biweekly.
func NextOccurrence(freq Frequency, from TimePoint) TimePoint {
	switch freq {
	case FreqWeekly:
		return from.AddDays(7)
	case FreqMonthly:
		return from.AddMonths(1)
	default:
		return from.AddDays(14)
	}
}

// =============================================================================
// OCCURRENCE PREDICATES - Which payday of the month is this?
// =============================================================================

// OccurrencePredicate classifies a payday date. Engines receive one instead of
// calling a concrete rule so the rule can be replaced per deployment.
type OccurrencePredicate func(TimePoint) bool

// IsSecondOccurrenceOfMonth approximates "second biweekly payday of the month"
// as any day after the 15th. It does not count actual paydays: a monthly
// payer on the 20th is always "second", and a biweekly payer can hit two
// days after the 15th in one month.
func IsSecondOccurrenceOfMonth(date TimePoint) bool {
	return date.Day() > 15
}
