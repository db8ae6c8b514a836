/*
Package debts records payments against debts, ranks outstanding debts for
payoff and projects how long payoff takes.

PURPOSE:
  A Debt's balance only ever goes down and is clamped at zero. A debt that
  reaches zero stays in the section as history but drops out of every
  payoff computation.

KEY TYPES:
  Debt:    stored entity (section "debts", a JSON array)
  Payment: one recorded payment, append-only
  NewDebt: validated input for creating a debt

SEE ALSO:
  - priority.go: payoff ordering and strategy reasons
  - payoff.go: months-to-payoff and amortisation schedule
  - service.go: store-backed operations
*/
package debts

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// TYPES
// =============================================================================

type Payment struct {
	Date   generic.TimePoint `json:"date"`
	Amount decimal.Decimal   `json:"amount"`
}

type Debt struct {
	ID                  generic.ID         `json:"id"`
	Name                string             `json:"name"`
	Balance             decimal.Decimal    `json:"balance"`
	Currency            generic.Currency   `json:"currency"`
	InterestRatePercent decimal.Decimal    `json:"interestRate"`
	MinimumPayment      decimal.Decimal    `json:"minimumPayment"`
	DueDate             *generic.TimePoint `json:"dueDate"`
	Payments            []Payment          `json:"payments"`
}

// IsPaidOff reports whether the balance reached zero.
func (d Debt) IsPaidOff() bool { return !d.Balance.IsPositive() }

// TotalPaid sums every recorded payment.
func (d Debt) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// NewDebt is the input for adding a debt.
type NewDebt struct {
	Name                string
	Balance             decimal.Decimal
	Currency            generic.Currency
	InterestRatePercent decimal.Decimal
	MinimumPayment      decimal.Decimal
	DueDate             *generic.TimePoint
}

func (n NewDebt) Validate() error {
	if err := generic.RequireName("name", n.Name); err != nil {
		return err
	}
	if err := generic.RequireNonNegative("balance", n.Balance); err != nil {
		return err
	}
	if err := generic.RequireNonNegative("interestRate", n.InterestRatePercent); err != nil {
		return err
	}
	return generic.RequireNonNegative("minimumPayment", n.MinimumPayment)
}

func (n NewDebt) Build(def generic.Currency) Debt {
	return Debt{
		ID:                  generic.NewID(),
		Name:                n.Name,
		Balance:             n.Balance,
		Currency:            n.Currency.OrDefault(def),
		InterestRatePercent: n.InterestRatePercent,
		MinimumPayment:      n.MinimumPayment,
		DueDate:             n.DueDate,
		Payments:            []Payment{},
	}
}

// Find returns the index of the debt with id, or -1.
func Find(debts []Debt, id generic.ID) int {
	for i := range debts {
		if debts[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// PAYMENTS
// =============================================================================

// ValidatePayment checks a payment before it touches a debt.
func ValidatePayment(amount decimal.Decimal, date generic.TimePoint) error {
	if err := generic.RequirePositive("amount", amount); err != nil {
		return err
	}
	if date.IsZero() {
		return generic.Invalid("date", "is required")
	}
	return nil
}

// ApplyPayment appends the payment and lowers the balance, clamping at zero.
// paidOff is true only when this call moved the balance from above zero to
// zero.
func ApplyPayment(d Debt, amount decimal.Decimal, date generic.TimePoint) (Debt, bool) {
	wasOpen := d.Balance.IsPositive()

	payments := make([]Payment, len(d.Payments), len(d.Payments)+1)
	copy(payments, d.Payments)
	d.Payments = append(payments, Payment{Date: date, Amount: amount})
	d.Balance = generic.ClampZero(d.Balance.Sub(amount))

	return d, wasOpen && d.Balance.IsZero()
}
