/*
Package generic provides the domain-agnostic core of the payday ledger.

PURPOSE:
  Everything the obligation engines share lives here: calendar days and
  periods, pay frequencies, money helpers, currency conversion, the
  section-scoped record store contract, and the error taxonomy. Domain
  packages (bills, debts, charity, savings, payday) build on top of it and
  never talk to each other directly.

KEY CONCEPTS IN THIS FILE (types.go):
  - Currency: ISO-style three letter code
  - ID: opaque identifier for bills, debts and payday events
  - Money helpers: parsing and validating decimal amounts

DESIGN PRINCIPLES:
  1. Precision: every amount is a decimal.Decimal, never a float
  2. Determinism: "today" is always supplied by a Clock
  3. Validation before mutation: helpers here return *ValidationError

SEE ALSO:
  - time.go: TimePoint and day arithmetic
  - store.go: section store contract
  - currency.go: rate table conversion
*/
package generic

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CURRENCY
// =============================================================================

type Currency string

const (
	USD Currency = "USD"
	CAD Currency = "CAD"
	EUR Currency = "EUR"
)

// ParseCurrency normalises a code to upper case and checks its shape.
func ParseCurrency(s string) (Currency, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if len(code) != 3 {
		return "", Invalid("currency", fmt.Sprintf("%q is not a three letter code", s))
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", Invalid("currency", fmt.Sprintf("%q is not a three letter code", s))
		}
	}
	return Currency(code), nil
}

// OrDefault returns c, or def when c is empty.
func (c Currency) OrDefault(def Currency) Currency {
	if c == "" {
		return def
	}
	return c
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ID string

// NewID returns a random identifier.
func NewID() ID { return ID(uuid.NewString()) }

func (id ID) String() string { return string(id) }

// =============================================================================
// MONEY HELPERS
// =============================================================================

var hundred = decimal.NewFromInt(100)

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmount parses a decimal string for the named field.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, Invalid(field, fmt.Sprintf("%q is not a number", s))
	}
	return d, nil
}

// RequirePositive fails unless d > 0.
func RequirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return Invalid(field, "must be greater than zero")
	}
	return nil
}

// RequireNonNegative fails when d < 0.
func RequireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return Invalid(field, "must not be negative")
	}
	return nil
}

// RequireName fails on blank names.
func RequireName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return Invalid(field, "is required")
	}
	return nil
}

// ClampZero returns d, or zero when d is negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Percent returns part as a percentage of total rounded to one decimal
// place, or zero when total is not positive.
func Percent(part, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(total).Round(1)
}
