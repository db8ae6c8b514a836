/*
types.go - Payday events, pay schedule settings and derived summaries

PURPOSE:
  A payday event is one recorded paycheck: when it landed, what came in,
  and how the user split it. Events are immutable once recorded and are
  appended to the "paydays" section in recording order. Everything shown
  to the user (history, totals, allocation percentages) is derived here.

KEY CONCEPTS:
  - Settings:    pay frequency plus the next expected payday
  - Event:       income lines and allocations for one payday
  - Allocations: Savings is a pointer; nil means "use the savings setting"
  - Summary:     the latest event's split as percentages of its income

SEE ALSO:
  - orchestrator.go: recording a payday across sections
  - generic/frequency.go: NextOccurrence
*/
package payday

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is the "payday_settings" section. NextDate, once set, is never
// before the most recently recorded payday.
type Settings struct {
	Frequency generic.Frequency  `json:"frequency"`
	NextDate  *generic.TimePoint `json:"nextDate"`
}

func DefaultSettings() Settings {
	return Settings{Frequency: generic.DefaultFrequency}
}

func (s Settings) Validate() error {
	if !s.Frequency.Valid() {
		return generic.Invalid("frequency", "unknown frequency "+string(s.Frequency))
	}
	return nil
}

// =============================================================================
// EVENTS
// =============================================================================

type IncomeEntry struct {
	Type     string           `json:"type"`
	Amount   decimal.Decimal  `json:"amount"`
	Currency generic.Currency `json:"currency"`
}

type Allocations struct {
	Bills       decimal.Decimal  `json:"bills"`
	CreditCards decimal.Decimal  `json:"creditCards"`
	Charity     decimal.Decimal  `json:"charity"`
	Savings     *decimal.Decimal `json:"savings"`
	Other       decimal.Decimal  `json:"other"`
}

// Total sums every allocation; a nil Savings counts as zero.
func (a Allocations) Total() decimal.Decimal {
	total := a.Bills.Add(a.CreditCards).Add(a.Charity).Add(a.Other)
	if a.Savings != nil {
		total = total.Add(*a.Savings)
	}
	return total
}

func (a Allocations) validate() error {
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"allocations.bills", a.Bills},
		{"allocations.creditCards", a.CreditCards},
		{"allocations.charity", a.Charity},
		{"allocations.other", a.Other},
	} {
		if err := generic.RequireNonNegative(f.name, f.value); err != nil {
			return err
		}
	}
	if a.Savings != nil {
		return generic.RequireNonNegative("allocations.savings", *a.Savings)
	}
	return nil
}

type Event struct {
	ID          generic.ID        `json:"id"`
	Date        generic.TimePoint `json:"date"`
	Income      []IncomeEntry     `json:"income"`
	Allocations Allocations       `json:"allocations"`
	RecordedAt  time.Time         `json:"recordedAt"`
}

// Validate requires a date and at least one positive income amount.
// Negative amounts anywhere are rejected.
func (e Event) Validate() error {
	if e.Date.IsZero() {
		return generic.Invalid("date", "is required")
	}
	positive := false
	for _, in := range e.Income {
		if in.Amount.IsNegative() {
			return generic.Invalid("income.amount", "must not be negative")
		}
		if in.Amount.IsPositive() {
			positive = true
		}
	}
	if !positive {
		return generic.Invalid("income", "at least one amount must be positive")
	}
	return e.Allocations.validate()
}

// normalize fills the fields a caller may leave empty.
func (e Event) normalize(def generic.Currency, now time.Time) Event {
	if e.ID == "" {
		e.ID = generic.NewID()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = now.UTC()
	}
	income := make([]IncomeEntry, len(e.Income))
	for i, in := range e.Income {
		in.Type = strings.TrimSpace(in.Type)
		if in.Type == "" {
			in.Type = "Paycheck"
		}
		in.Currency = in.Currency.OrDefault(def)
		income[i] = in
	}
	e.Income = income
	return e
}

// TotalIncome sums the income lines as recorded, without conversion.
func (e Event) TotalIncome() decimal.Decimal {
	total := decimal.Zero
	for _, in := range e.Income {
		total = total.Add(in.Amount)
	}
	return total
}

// Currency is the currency of the first income line.
func (e Event) Currency() generic.Currency {
	if len(e.Income) == 0 {
		return ""
	}
	return e.Income[0].Currency
}

// SortByDateDesc returns the events newest first; events on the same day
// keep recording order.
func SortByDateDesc(events []Event) []Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b Event) int {
		return b.Date.Time.Compare(a.Date.Time)
	})
	return out
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// HistoryEntry is an event with its totals.
type HistoryEntry struct {
	Event
	TotalIncome    decimal.Decimal  `json:"totalIncome"`
	TotalAllocated decimal.Decimal  `json:"totalAllocated"`
	Currency       generic.Currency `json:"currency"`
}

func History(events []Event) []HistoryEntry {
	sorted := SortByDateDesc(events)
	out := make([]HistoryEntry, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, HistoryEntry{
			Event:          e,
			TotalIncome:    e.TotalIncome(),
			TotalAllocated: e.Allocations.Total(),
			Currency:       e.Currency(),
		})
	}
	return out
}

type Category string

const (
	CategoryBills       Category = "bills"
	CategoryCreditCards Category = "creditCards"
	CategoryCharity     Category = "charity"
	CategorySavings     Category = "savings"
	CategoryOther       Category = "other"
)

type AllocationLine struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  decimal.Decimal `json:"percent"`
}

// Summary is the allocation breakdown of the latest payday. Lines with a
// zero amount are left out.
type Summary struct {
	Date        generic.TimePoint `json:"date"`
	Currency    generic.Currency  `json:"currency"`
	TotalIncome decimal.Decimal   `json:"totalIncome"`
	Lines       []AllocationLine  `json:"lines"`
}

// Latest returns the event with the greatest date.
func Latest(events []Event) (Event, bool) {
	if len(events) == 0 {
		return Event{}, false
	}
	return SortByDateDesc(events)[0], true
}

// Summarize breaks an event's allocations down as percentages of its income.
func Summarize(e Event) Summary {
	total := e.TotalIncome()
	s := Summary{Date: e.Date, Currency: e.Currency(), TotalIncome: total, Lines: []AllocationLine{}}
	savings := decimal.Zero
	if e.Allocations.Savings != nil {
		savings = *e.Allocations.Savings
	}
	for _, l := range []struct {
		c Category
		v decimal.Decimal
	}{
		{CategoryBills, e.Allocations.Bills},
		{CategoryCreditCards, e.Allocations.CreditCards},
		{CategoryCharity, e.Allocations.Charity},
		{CategorySavings, savings},
		{CategoryOther, e.Allocations.Other},
	} {
		if l.v.IsZero() {
			continue
		}
		s.Lines = append(s.Lines, AllocationLine{Category: l.c, Amount: l.v, Percent: generic.Percent(l.v, total)})
	}
	return s
}
