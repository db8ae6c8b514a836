// Package savings accrues a savings balance on every payday.
package savings

import (
	"slices"

	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// TYPES
// =============================================================================

// EntryDescription labels every payday accrual.
const EntryDescription = "Payday Savings"

// Entry is one accrual. BalanceAfter is the balance right after it.
type Entry struct {
	Date         generic.TimePoint `json:"date"`
	Amount       decimal.Decimal   `json:"amount"`
	Currency     generic.Currency  `json:"currency"`
	Description  string            `json:"description"`
	BalanceAfter decimal.Decimal   `json:"balance"`
}

// State is the "savings" section. History is append-only.
type State struct {
	Balance decimal.Decimal `json:"balance"`
	History []Entry         `json:"history"`
}

// Settings is the "savings_settings" section.
type Settings struct {
	AmountPerPaycheck decimal.Decimal  `json:"amountPerPaycheck"`
	Currency          generic.Currency `json:"currency"`
}

func DefaultState() State {
	return State{Balance: decimal.Zero, History: []Entry{}}
}

func DefaultSettings() Settings {
	return Settings{AmountPerPaycheck: decimal.NewFromInt(100), Currency: generic.CAD}
}

func (s Settings) Validate() error {
	_, err := s.Normalize()
	return err
}

// Normalize validates the settings and returns them with the currency code
// upper-cased.
func (s Settings) Normalize() (Settings, error) {
	if err := generic.RequireNonNegative("amountPerPaycheck", s.AmountPerPaycheck); err != nil {
		return Settings{}, err
	}
	cur, err := generic.ParseCurrency(string(s.Currency))
	if err != nil {
		return Settings{}, err
	}
	s.Currency = cur
	return s, nil
}

// =============================================================================
// PAYDAY ACCRUAL
// =============================================================================

// OnPayday adds the payday's savings to the balance. override replaces the
// configured amount when non-nil, including an explicit zero. A payday after
// today leaves the state untouched and returns applied=false.
func OnPayday(s State, settings Settings, payday, today generic.TimePoint, override *decimal.Decimal) (State, bool) {
	if payday.After(today) {
		return s, false
	}
	amount := settings.AmountPerPaycheck
	if override != nil {
		amount = *override
	}

	s.Balance = s.Balance.Add(amount)
	s.History = append(slices.Clone(s.History), Entry{
		Date:         payday,
		Amount:       amount,
		Currency:     settings.Currency,
		Description:  EntryDescription,
		BalanceAfter: s.Balance,
	})
	return s, true
}

// History returns every entry, newest first.
func History(s State) []Entry {
	out := slices.Clone(s.History)
	slices.SortStableFunc(out, func(a, b Entry) int {
		return b.Date.Time.Compare(a.Date.Time)
	})
	return out
}
