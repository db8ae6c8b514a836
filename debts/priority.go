package debts

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// PRIORITY - Which debt to pay first
// =============================================================================

type bucket int

const (
	bucketPastDue bucket = iota
	bucketDated
	bucketUndated
)

func bucketOf(d Debt, today generic.TimePoint) bucket {
	switch {
	case d.DueDate == nil:
		return bucketUndated
	case d.DueDate.Before(today):
		return bucketPastDue
	default:
		return bucketDated
	}
}

// comparePriority orders two open debts. Past-due debts come first, most
// overdue leading; then dated debts by soonest due date; then undated debts
// by interest rate, highest first.
func comparePriority(a, b Debt, today generic.TimePoint) int {
	ba, bb := bucketOf(a, today), bucketOf(b, today)
	if ba != bb {
		return cmp.Compare(ba, bb)
	}
	switch ba {
	case bucketPastDue:
		return cmp.Compare(
			generic.DaysBetween(*b.DueDate, today),
			generic.DaysBetween(*a.DueDate, today),
		)
	case bucketDated:
		return a.DueDate.Time.Compare(b.DueDate.Time)
	default:
		return b.InterestRatePercent.Cmp(a.InterestRatePercent)
	}
}

// Prioritize returns the debts with a positive balance in payoff order.
// Ties keep their input order.
func Prioritize(debts []Debt, today generic.TimePoint) []Debt {
	out := make([]Debt, 0, len(debts))
	for _, d := range debts {
		if d.Balance.IsPositive() {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b Debt) int { return comparePriority(a, b, today) })
	return out
}

// SortForDisplay keeps every debt: open ones first, then by due date
// (dated before undated), then by interest rate descending.
func SortForDisplay(debts []Debt) []Debt {
	out := slices.Clone(debts)
	slices.SortStableFunc(out, func(a, b Debt) int {
		if a.IsPaidOff() != b.IsPaidOff() {
			if a.IsPaidOff() {
				return 1
			}
			return -1
		}
		switch {
		case a.DueDate != nil && b.DueDate != nil:
			return a.DueDate.Time.Compare(b.DueDate.Time)
		case a.DueDate != nil:
			return -1
		case b.DueDate != nil:
			return 1
		}
		return b.InterestRatePercent.Cmp(a.InterestRatePercent)
	})
	return out
}

// =============================================================================
// STRATEGY - Ranked list with reasons
// =============================================================================

type Reason string

const (
	ReasonOverdue      Reason = "Overdue payment"
	ReasonDueSoon      Reason = "Due soon"
	ReasonHighInterest Reason = "High interest rate"
	ReasonUpcoming     Reason = "Upcoming due date"
)

// DefaultDueSoonDays is the window used for ReasonDueSoon.
const DefaultDueSoonDays = 7

// ReasonFor explains why a debt sits where it does in the ranking.
func ReasonFor(d Debt, today generic.TimePoint, dueSoonDays int) Reason {
	clock := generic.FixedClock{Day: today}
	switch {
	case d.DueDate == nil:
		return ReasonHighInterest
	case generic.IsPast(*d.DueDate, clock):
		return ReasonOverdue
	case generic.IsWithin(*d.DueDate, dueSoonDays, clock):
		return ReasonDueSoon
	default:
		return ReasonUpcoming
	}
}

type StrategyItem struct {
	Rank            int             `json:"rank"`
	Debt            Debt            `json:"debt"`
	Reason          Reason          `json:"reason"`
	MonthsAtMinimum int             `json:"monthsAtMinimum"` // PayoffUnreachable when the minimum never clears it
	Converted       decimal.Decimal `json:"convertedBalance"`
}

type Strategy struct {
	Items    []StrategyItem    `json:"items"`
	Total    decimal.Decimal   `json:"total"`
	Currency generic.Currency  `json:"currency"`
	DebtFree bool              `json:"debtFree"`
	AsOf     generic.TimePoint `json:"asOf"`
}

// BuildStrategy ranks open debts and totals them in currency to.
func BuildStrategy(debts []Debt, today generic.TimePoint, conv *generic.Converter, to generic.Currency, dueSoonDays int) Strategy {
	ranked := Prioritize(debts, today)
	s := Strategy{
		Items:    make([]StrategyItem, 0, len(ranked)),
		Total:    decimal.Zero,
		Currency: to,
		DebtFree: len(ranked) == 0,
		AsOf:     today,
	}
	for i, d := range ranked {
		converted := conv.Convert(d.Balance, d.Currency, to)
		s.Total = s.Total.Add(converted)
		s.Items = append(s.Items, StrategyItem{
			Rank:            i + 1,
			Debt:            d,
			Reason:          ReasonFor(d, today, dueSoonDays),
			MonthsAtMinimum: MonthsToPayoff(d, d.MinimumPayment),
			Converted:       converted,
		})
	}
	return s
}

// TotalOpen sums every open balance in currency to.
func TotalOpen(debts []Debt, conv *generic.Converter, to generic.Currency) decimal.Decimal {
	total := decimal.Zero
	for _, d := range debts {
		if d.Balance.IsPositive() {
			total = total.Add(conv.Convert(d.Balance, d.Currency, to))
		}
	}
	return total
}
