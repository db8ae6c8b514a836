package debts_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payday-engine/debts"
	"github.com/warp/payday-engine/generic"
	"github.com/warp/payday-engine/generic/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(s string) generic.TimePoint { return generic.MustParseDate(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func debt(name, balance, rate string, due string) debts.Debt {
	d := debts.Debt{
		ID:                  generic.ID(name),
		Name:                name,
		Balance:             dec(balance),
		Currency:            generic.USD,
		InterestRatePercent: dec(rate),
		MinimumPayment:      dec("25"),
	}
	if due != "" {
		d.DueDate = day(due).Ptr()
	}
	return d
}

func names(ds []debts.Debt) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

// =============================================================================
// APPLY PAYMENT
// =============================================================================

func TestApplyPayment_BalanceAndPayments(t *testing.T) {
	// GIVEN: open debts and a range of positive payments
	// WHEN: a payment is applied
	// THEN: balance = max(0, old - amount) and exactly one payment is appended

	cases := []struct{ balance, amount, want string }{
		{"500", "100", "400"},
		{"500", "500", "0"},
		{"500", "750.25", "0"},
		{"0.01", "0.01", "0"},
		{"1000.10", "0.10", "1000"},
	}
	for _, c := range cases {
		before := debt("card", c.balance, "19.99", "")
		before.Payments = []debts.Payment{{Date: day("2025-01-01"), Amount: dec("5")}}

		after, _ := debts.ApplyPayment(before, dec(c.amount), day("2025-04-04"))

		assert.True(t, dec(c.want).Equal(after.Balance), "%s - %s", c.balance, c.amount)
		assert.Len(t, after.Payments, len(before.Payments)+1)
		assert.Len(t, before.Payments, 1, "input is not mutated")
		assert.Equal(t, "2025-04-04", after.Payments[1].Date.String())
	}
}

func TestApplyPayment_PaidOffSignal(t *testing.T) {
	_, paidOff := debts.ApplyPayment(debt("a", "100", "0", ""), dec("40"), day("2025-04-04"))
	assert.False(t, paidOff)

	_, paidOff = debts.ApplyPayment(debt("a", "100", "0", ""), dec("100"), day("2025-04-04"))
	assert.True(t, paidOff)

	_, paidOff = debts.ApplyPayment(debt("a", "0", "0", ""), dec("10"), day("2025-04-04"))
	assert.False(t, paidOff, "already zero does not transition again")
}

// =============================================================================
// PRIORITIZE
// =============================================================================

func TestPrioritize_Order(t *testing.T) {
	// GIVEN: a mix of past-due, dated, undated and paid-off debts
	// WHEN: they are prioritized
	// THEN: past-due (most overdue first), then soonest due, then highest rate;
	//       paid-off debts are dropped

	today := day("2025-05-01")
	input := []debts.Debt{
		debt("undated-low", "100", "5", ""),
		debt("due-later", "100", "1", "2025-06-15"),
		debt("overdue-3", "100", "1", "2025-04-28"),
		debt("paid", "0", "30", "2025-04-01"),
		debt("undated-high", "100", "24.99", ""),
		debt("due-soon", "100", "1", "2025-05-03"),
		debt("overdue-20", "100", "1", "2025-04-11"),
		debt("due-today", "100", "1", "2025-05-01"),
	}

	got := debts.Prioritize(input, today)

	assert.Equal(t, []string{
		"overdue-20", "overdue-3",
		"due-today", "due-soon", "due-later",
		"undated-high", "undated-low",
	}, names(got))
}

func TestPrioritize_Idempotent(t *testing.T) {
	today := day("2025-05-01")
	input := []debts.Debt{
		debt("a", "100", "10", ""),
		debt("b", "100", "10", ""),
		debt("c", "100", "1", "2025-05-20"),
		debt("d", "100", "1", "2025-05-20"),
		debt("e", "100", "1", "2025-04-01"),
		debt("f", "100", "12", ""),
	}

	once := debts.Prioritize(input, today)
	twice := debts.Prioritize(once, today)

	assert.Equal(t, names(once), names(twice))
	assert.Equal(t, []string{"e", "c", "d", "f", "a", "b"}, names(once), "ties keep input order")
}

func TestSortForDisplay(t *testing.T) {
	got := debts.SortForDisplay([]debts.Debt{
		debt("paid", "0", "30", "2025-01-01"),
		debt("undated", "100", "5", ""),
		debt("dated", "100", "1", "2025-06-01"),
	})
	assert.Equal(t, []string{"dated", "undated", "paid"}, names(got))
}

// =============================================================================
// PAYOFF
// =============================================================================

func TestMonthsToPayoff_ZeroInterest(t *testing.T) {
	assert.Equal(t, 12, debts.MonthsToPayoff(debt("loan", "1200", "0", ""), dec("100")))
	assert.Equal(t, 13, debts.MonthsToPayoff(debt("loan", "1201", "0", ""), dec("100")))
}

func TestMonthsToPayoff_WithInterest(t *testing.T) {
	// 1000 at 12% APR (1%/month) paying 100: ln(100/90)/ln(1.01) = 10.59
	assert.Equal(t, 11, debts.MonthsToPayoff(debt("card", "1000", "12", ""), dec("100")))
}

func TestMonthsToPayoff_Degenerate(t *testing.T) {
	assert.Equal(t, 0, debts.MonthsToPayoff(debt("none", "0", "12", ""), dec("100")))
	assert.Equal(t, 0, debts.MonthsToPayoff(debt("card", "1000", "12", ""), dec("0")))

	// interest accrues at exactly 10/month
	assert.Equal(t, debts.PayoffUnreachable, debts.MonthsToPayoff(debt("card", "1000", "12", ""), dec("10")))
	assert.Equal(t, debts.PayoffUnreachable, debts.MonthsToPayoff(debt("card", "1000", "12", ""), dec("5")))
}

func TestProject_MatchesClosedForm(t *testing.T) {
	d := debt("card", "1000", "12", "")

	s := debts.Project(d, dec("100"), day("2025-01-31"))

	require.True(t, s.Reachable)
	assert.False(t, s.Truncated)
	assert.Equal(t, debts.MonthsToPayoff(d, dec("100")), s.Months)
	require.Len(t, s.Rows, 11)
	assert.Equal(t, "2025-02-28", s.Rows[0].Date.String())
	assert.Equal(t, "2025-03-31", s.Rows[1].Date.String(), "dates do not drift after a short month")
	assert.True(t, dec("10").Equal(s.Rows[0].Interest))
	assert.True(t, s.Rows[10].Balance.IsZero())
	assert.True(t, s.TotalPaid.Equal(dec("1000").Add(s.TotalInterest)))
}

func TestProject_Unreachable(t *testing.T) {
	s := debts.Project(debt("card", "1000", "12", ""), dec("10"), day("2025-01-01"))
	assert.False(t, s.Reachable)
	assert.Equal(t, debts.PayoffUnreachable, s.Months)
	assert.Empty(t, s.Rows)

	s = debts.Project(debt("card", "1000", "0", ""), dec("0"), day("2025-01-01"))
	assert.False(t, s.Reachable)
}

func TestProject_TruncatedBeyondMaxMonths(t *testing.T) {
	// GIVEN: a payment barely above the 10/month of accruing interest
	d := debt("card", "1000", "12", "")
	monthly := dec("10.01")

	// WHEN: the payoff takes longer than the schedule keeps
	s := debts.Project(d, monthly, day("2025-01-01"))

	// THEN: the rows stop at the cap but the schedule says so
	require.True(t, s.Reachable)
	assert.True(t, s.Truncated)
	assert.Len(t, s.Rows, debts.MaxScheduleMonths)
	assert.True(t, s.Rows[len(s.Rows)-1].Balance.IsPositive())
	assert.Equal(t, debts.MonthsToPayoff(d, monthly), s.Months)
	assert.Greater(t, s.Months, debts.MaxScheduleMonths)
}

// =============================================================================
// STRATEGY
// =============================================================================

func TestBuildStrategy(t *testing.T) {
	today := day("2025-05-01")
	conv := generic.NewConverter(nil, zerolog.Nop())
	cad := debt("cad-card", "100", "20", "2025-05-05")
	cad.Currency = generic.CAD

	s := debts.BuildStrategy([]debts.Debt{
		debt("undated", "200", "10", ""),
		cad,
		debt("overdue", "50", "5", "2025-04-01"),
		debt("later", "10", "5", "2025-07-01"),
	}, today, conv, generic.USD, debts.DefaultDueSoonDays)

	require.Len(t, s.Items, 4)
	assert.Equal(t, debts.ReasonOverdue, s.Items[0].Reason)
	assert.Equal(t, debts.ReasonDueSoon, s.Items[1].Reason)
	assert.Equal(t, debts.ReasonUpcoming, s.Items[2].Reason)
	assert.Equal(t, debts.ReasonHighInterest, s.Items[3].Reason)
	assert.Equal(t, 1, s.Items[0].Rank)
	assert.True(t, dec("334").Equal(s.Total), s.Total.String()) // 200 + 74 + 50 + 10
	assert.False(t, s.DebtFree)

	empty := debts.BuildStrategy([]debts.Debt{debt("paid", "0", "1", "")}, today, conv, generic.USD, 7)
	assert.True(t, empty.DebtFree)
	assert.True(t, empty.Total.IsZero())
}

// =============================================================================
// SERVICE
// =============================================================================

func newService(today string) (*debts.Service, *store.Memory) {
	m := store.NewMemory()
	return &debts.Service{
		Store:     m,
		Clock:     generic.FixedClock{Day: day(today)},
		Converter: generic.NewConverter(nil, zerolog.Nop()),
		Log:       zerolog.Nop(),
		Reporting: generic.USD,
	}, m
}

func TestService_AddValidates(t *testing.T) {
	svc, m := newService("2025-05-01")
	ctx := context.Background()

	for _, in := range []debts.NewDebt{
		{Name: " ", Balance: dec("1")},
		{Name: "x", Balance: dec("-1")},
		{Name: "x", Balance: dec("1"), InterestRatePercent: dec("-0.5")},
		{Name: "x", Balance: dec("1"), MinimumPayment: dec("-3")},
	} {
		_, err := svc.Add(ctx, in)
		assert.True(t, generic.IsClientError(err), "%+v", in)
	}
	sec, _ := m.GetSection(ctx, generic.SectionDebts)
	assert.False(t, sec.Exists())

	d, err := svc.Add(ctx, debts.NewDebt{Name: "zero", Balance: dec("0")})
	require.NoError(t, err, "zero balance is allowed")
	assert.Equal(t, generic.USD, d.Currency)
}

func TestService_RecordPaymentNotifiesPayoff(t *testing.T) {
	// GIVEN: a debt of 300
	// WHEN: it is paid 100 then 250
	// THEN: the second payment clears it and the notifier fires once

	svc, _ := newService("2025-05-01")
	ctx := context.Background()
	var cleared []string
	svc.OnPaidOff = func(d debts.Debt) { cleared = append(cleared, d.Name) }

	d, err := svc.Add(ctx, debts.NewDebt{Name: "visa", Balance: dec("300"), MinimumPayment: dec("25")})
	require.NoError(t, err)

	after, paidOff, err := svc.RecordPayment(ctx, d.ID, dec("100"), day("2025-05-01"))
	require.NoError(t, err)
	assert.False(t, paidOff)
	assert.True(t, dec("200").Equal(after.Balance))

	after, paidOff, err = svc.RecordPayment(ctx, d.ID, dec("250"), day("2025-05-02"))
	require.NoError(t, err)
	assert.True(t, paidOff)
	assert.True(t, after.Balance.IsZero())
	assert.Equal(t, []string{"visa"}, cleared)

	_, _, err = svc.RecordPayment(ctx, d.ID, dec("1"), day("2025-05-03"))
	assert.True(t, generic.IsClientError(err), "paid-off debts take no more payments")

	v, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, v.PaidOff)
	assert.True(t, dec("350").Equal(v.TotalPaid))
}

func TestService_RecordPaymentErrors(t *testing.T) {
	svc, _ := newService("2025-05-01")
	ctx := context.Background()

	_, _, err := svc.RecordPayment(ctx, "nope", dec("10"), day("2025-05-01"))
	assert.True(t, generic.IsNotFound(err))

	_, _, err = svc.RecordPayment(ctx, "nope", dec("0"), day("2025-05-01"))
	assert.True(t, generic.IsClientError(err), "validation runs before lookup")

	_, _, err = svc.RecordPayment(ctx, "nope", dec("10"), generic.TimePoint{})
	assert.True(t, generic.IsClientError(err))
}

func TestService_ScheduleDefaultsToMinimum(t *testing.T) {
	svc, _ := newService("2025-05-01")
	ctx := context.Background()
	d, err := svc.Add(ctx, debts.NewDebt{Name: "loan", Balance: dec("1200"), MinimumPayment: dec("100")})
	require.NoError(t, err)

	s, err := svc.Schedule(ctx, d.ID, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, 12, s.Months)
	assert.True(t, dec("100").Equal(s.Monthly))

	_, err = svc.Schedule(ctx, "missing", dec("10"))
	assert.True(t, generic.IsNotFound(err))
}

func TestService_ListAndTotal(t *testing.T) {
	svc, m := newService("2025-05-01")
	ctx := context.Background()
	cad := debt("cad", "100", "1", "2025-04-20")
	cad.Currency = generic.CAD
	require.NoError(t, generic.SaveSection(ctx, m, generic.SectionDebts, []debts.Debt{
		debt("paid", "0", "1", ""),
		cad,
		debt("usd", "50", "1", "2025-05-03"),
	}))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "cad", list[0].Name)
	assert.True(t, list[0].Overdue)
	require.NotNil(t, list[0].DaysUntil)
	assert.Equal(t, -11, *list[0].DaysUntil)
	assert.True(t, list[1].DueSoon)
	assert.True(t, list[2].PaidOff)
	assert.Nil(t, list[2].DaysUntil)

	total, err := svc.Total(ctx)
	require.NoError(t, err)
	assert.True(t, dec("124").Equal(total), total.String())
}
