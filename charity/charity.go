// Package charity accrues a charity fund on every payday and pays scheduled
// recurring donations out of it.
package charity

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// TYPES
// =============================================================================

type Schedule string

// ScheduleSecondPaycheck fires on the payday the occurrence predicate calls
// "second of the month".
const ScheduleSecondPaycheck Schedule = "second-paycheck"

type RecurringDonation struct {
	Amount      decimal.Decimal  `json:"amount"`
	Currency    generic.Currency `json:"currency"`
	Description string           `json:"description"`
	Schedule    Schedule         `json:"schedule"`
}

type Deduction struct {
	Date        generic.TimePoint `json:"date"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
}

// State is the "charity" section. CurrentAmount never goes below zero.
type State struct {
	BaseAmount         decimal.Decimal     `json:"baseAmount"`
	IncrementAmount    decimal.Decimal     `json:"incrementAmount"`
	CurrentAmount      decimal.Decimal     `json:"currentAmount"`
	RecurringDonations []RecurringDonation `json:"recurringDonations"`
	Deductions         []Deduction         `json:"deductions"`
}

// DefaultState is the fund a new ledger starts with.
func DefaultState() State {
	hundred := decimal.NewFromInt(100)
	return State{
		BaseAmount:      hundred,
		IncrementAmount: hundred,
		CurrentAmount:   hundred,
		RecurringDonations: []RecurringDonation{{
			Amount:      decimal.NewFromInt(50),
			Currency:    generic.USD,
			Description: "Monthly Donation",
			Schedule:    ScheduleSecondPaycheck,
		}},
		Deductions: []Deduction{},
	}
}

const recurringSuffix = " (Recurring)"

// =============================================================================
// PAYDAY ACCRUAL
// =============================================================================

// OnPayday accrues the increment for a payday and, when isSecond(payday)
// holds, deducts every second-paycheck recurring donation. A payday after
// today leaves the state untouched and returns applied=false. Donation
// currencies are not converted.
func OnPayday(s State, payday, today generic.TimePoint, isSecond generic.OccurrencePredicate) (State, bool) {
	if payday.After(today) {
		return s, false
	}
	if isSecond == nil {
		isSecond = generic.IsSecondOccurrenceOfMonth
	}

	current := s.CurrentAmount.Add(s.IncrementAmount)
	deductions := slices.Clone(s.Deductions)
	if isSecond(payday) {
		for _, d := range s.RecurringDonations {
			if d.Schedule != ScheduleSecondPaycheck {
				continue
			}
			deductions = append(deductions, Deduction{
				Date:        payday,
				Amount:      d.Amount,
				Description: d.Description + recurringSuffix,
			})
			current = current.Sub(d.Amount)
		}
	}
	if deductions == nil {
		deductions = []Deduction{}
	}

	s.CurrentAmount = generic.ClampZero(current)
	s.Deductions = deductions
	return s, true
}

// =============================================================================
// MANUAL DONATIONS
// =============================================================================

// ValidateDonation checks a manual donation.
func ValidateDonation(d Deduction) error {
	if d.Date.IsZero() {
		return generic.Invalid("date", "is required")
	}
	if err := generic.RequirePositive("amount", d.Amount); err != nil {
		return err
	}
	return generic.RequireName("description", d.Description)
}

// Donate records a manual donation and deducts it from the fund, clamping
// at zero.
func Donate(s State, d Deduction) (State, error) {
	if err := ValidateDonation(d); err != nil {
		return s, err
	}
	d.Description = strings.TrimSpace(d.Description)
	s.Deductions = append(slices.Clone(s.Deductions), d)
	s.CurrentAmount = generic.ClampZero(s.CurrentAmount.Sub(d.Amount))
	return s, nil
}

// History returns every deduction, newest first.
func History(s State) []Deduction {
	out := slices.Clone(s.Deductions)
	slices.SortStableFunc(out, func(a, b Deduction) int {
		return b.Date.Time.Compare(a.Date.Time)
	})
	return out
}

// ValidateRecurring checks a recurring donation definition.
func ValidateRecurring(d RecurringDonation) error {
	if err := generic.RequirePositive("recurringDonations.amount", d.Amount); err != nil {
		return err
	}
	if err := generic.RequireName("recurringDonations.description", d.Description); err != nil {
		return err
	}
	if d.Schedule != ScheduleSecondPaycheck {
		return generic.Invalid("recurringDonations.schedule", "unknown schedule "+string(d.Schedule))
	}
	return nil
}
