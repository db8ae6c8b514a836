/*
payoff.go - Amortised payoff projection

PURPOSE:
  Answers "how long until this debt is gone at X per month?" both as a
  single number (MonthsToPayoff, closed form) and as a month-by-month
  projection (Schedule). Neither writes anything.

FORMULA:
  r = interestRate / 100 / 12
  r == 0: months = ceil(balance / payment)
  r  > 0: months = ceil( ln(P / (P - B*r)) / ln(1 + r) )

  When P <= B*r the payment never covers the interest that accrues and the
  formula is undefined. That case is reported as PayoffUnreachable, never
  as an error and never as a huge number.

SEE ALSO:
  - priority.go: Strategy uses MonthsToPayoff at the minimum payment
*/
package debts

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// PayoffUnreachable means the payment does not outpace accruing interest.
const PayoffUnreachable = -1

// MaxScheduleMonths bounds the rows of a Schedule. Longer payoffs are
// marked Truncated.
const MaxScheduleMonths = 600

var twelveHundred = decimal.NewFromInt(1200)

// MonthlyRate is the periodic rate r = percent / 100 / 12.
func MonthlyRate(d Debt) decimal.Decimal {
	return d.InterestRatePercent.Div(twelveHundred)
}

// MonthsToPayoff returns the number of monthly payments needed to clear the
// balance, 0 when there is nothing to pay or no payment, or
// PayoffUnreachable.
func MonthsToPayoff(d Debt, monthly decimal.Decimal) int {
	if !d.Balance.IsPositive() || !monthly.IsPositive() {
		return 0
	}
	r := MonthlyRate(d)
	if r.IsZero() {
		return int(d.Balance.Div(monthly).Ceil().IntPart())
	}
	accruing := d.Balance.Mul(r)
	if monthly.LessThanOrEqual(accruing) {
		return PayoffUnreachable
	}

	p := monthly.InexactFloat64()
	rf := r.InexactFloat64()
	n := math.Log(p/(p-accruing.InexactFloat64())) / math.Log1p(rf)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return PayoffUnreachable
	}
	return int(math.Ceil(n))
}

// =============================================================================
// SCHEDULE - Month-by-month projection
// =============================================================================

type ScheduleRow struct {
	Month     int               `json:"month"`
	Date      generic.TimePoint `json:"date"`
	Payment   decimal.Decimal   `json:"payment"`
	Interest  decimal.Decimal   `json:"interest"`
	Principal decimal.Decimal   `json:"principal"`
	Balance   decimal.Decimal   `json:"balance"`
}

type Schedule struct {
	DebtID        generic.ID      `json:"debtId"`
	Monthly       decimal.Decimal `json:"monthlyPayment"`
	Reachable     bool            `json:"reachable"`
	Months        int             `json:"months"`
	Truncated     bool            `json:"truncated"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	TotalInterest decimal.Decimal `json:"totalInterest"`
	Rows          []ScheduleRow   `json:"rows"`
}

// Project simulates monthly payments starting one month after start.
// Interest is charged on the opening balance and rounded to cents; the last
// payment only covers what is left. An unreachable payoff, including a zero
// payment against an open balance, returns no rows and Reachable=false.
// A payoff longer than MaxScheduleMonths keeps only the first rows, sets
// Truncated and reports Months from MonthsToPayoff.
func Project(d Debt, monthly decimal.Decimal, start generic.TimePoint) Schedule {
	s := Schedule{
		DebtID:        d.ID,
		Monthly:       monthly,
		TotalPaid:     decimal.Zero,
		TotalInterest: decimal.Zero,
		Rows:          []ScheduleRow{},
	}
	if d.Balance.IsPositive() && (!monthly.IsPositive() || MonthsToPayoff(d, monthly) == PayoffUnreachable) {
		s.Months = PayoffUnreachable
		return s
	}
	s.Reachable = true

	r := MonthlyRate(d)
	balance := d.Balance
	for m := 1; balance.IsPositive() && m <= MaxScheduleMonths; m++ {
		date := start.AddMonths(m)
		interest := balance.Mul(r).Round(2)
		payment := decimal.Min(monthly, balance.Add(interest))
		principal := payment.Sub(interest)
		balance = generic.ClampZero(balance.Sub(principal))

		s.TotalPaid = s.TotalPaid.Add(payment)
		s.TotalInterest = s.TotalInterest.Add(interest)
		s.Rows = append(s.Rows, ScheduleRow{
			Month:     m,
			Date:      date,
			Payment:   payment,
			Interest:  interest,
			Principal: principal,
			Balance:   balance,
		})
	}
	s.Months = len(s.Rows)
	if balance.IsPositive() {
		s.Truncated = true
		s.Months = MonthsToPayoff(d, monthly)
	}
	return s
}
