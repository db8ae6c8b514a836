/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Payday recording through the router (transactional accruals)
- Bill and debt CRUD, status codes and error mapping
- Charity, savings, rates and exports
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payday-engine/bills"
	"github.com/warp/payday-engine/charity"
	"github.com/warp/payday-engine/debts"
	"github.com/warp/payday-engine/factory"
	"github.com/warp/payday-engine/generic"
	"github.com/warp/payday-engine/payday"
	"github.com/warp/payday-engine/savings"
	"github.com/warp/payday-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testToday = generic.MustParseDate("2025-04-18")

func testSeed() factory.LedgerSeed {
	return factory.LedgerSeed{
		Payday: &factory.PaydaySeed{Frequency: "biweekly", NextDate: "2025-04-18"},
	}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	return newTestHandlerWithClock(t, generic.FixedClock{Day: testToday})
}

func newTestHandlerWithClock(t *testing.T, clock generic.Clock) *Handler {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h, err := NewHandler(Options{
		Store:     st,
		Clock:     clock,
		Converter: generic.NewConverter(generic.DefaultRates(), zerolog.Nop()),
		Log:       zerolog.Nop(),
		Reporting: generic.USD,
		Seed:      testSeed(),
	})
	require.NoError(t, err)
	require.NoError(t, h.Seed(context.Background()))
	return h
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// PAYDAYS
// =============================================================================

func TestRecordPayday_RunsEveryAccrual(t *testing.T) {
	// GIVEN: default charity (100 + 100, 50 recurring) and a payday on the 18th
	h := newTestHandler(t)
	srv := NewRouter(h, nil)

	// WHEN: the payday is recorded with a savings allocation of 60
	rec := do(t, srv, http.MethodPost, "/api/paydays", `{
		"date": "2025-04-18",
		"income": [{"amount": "2000"}, {"type": "Bonus", "amount": 250}],
		"allocations": {"bills": "500", "savings": "60"}
	}`)

	// THEN: next payday advances, charity and savings accrue in one response
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decodeBody[payday.Result](t, rec)
	assert.Equal(t, "2025-05-02", res.Settings.NextDate.String())
	assert.True(t, res.CharityApplied)
	assert.True(t, dec("150").Equal(res.Charity.CurrentAmount), res.Charity.CurrentAmount.String())
	assert.True(t, res.SavingsApplied)
	assert.True(t, dec("60").Equal(res.Savings.Balance))
	assert.Equal(t, "Paycheck", res.Event.Income[0].Type)
	assert.Equal(t, generic.USD, res.Event.Income[0].Currency)

	history := decodeBody[[]payday.HistoryEntry](t, do(t, srv, http.MethodGet, "/api/paydays", nil))
	require.Len(t, history, 1)
	assert.True(t, dec("2250").Equal(history[0].TotalIncome))

	next := decodeBody[NextPaydayDTO](t, do(t, srv, http.MethodGet, "/api/paydays/next", nil))
	require.NotNil(t, next.DaysUntil)
	assert.Equal(t, 14, *next.DaysUntil)
	assert.False(t, next.IsToday)

	summary := decodeBody[payday.Summary](t, do(t, srv, http.MethodGet, "/api/paydays/summary", nil))
	assert.Len(t, summary.Lines, 2)
}

func TestRecordPayday_InvalidWritesNothing(t *testing.T) {
	h := newTestHandler(t)
	srv := NewRouter(h, nil)

	rec := do(t, srv, http.MethodPost, "/api/paydays", `{"date": "2025-04-18", "income": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/paydays", `{"date": "2025-02-30", "income": [{"amount": "1"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "impossible date")

	history := decodeBody[[]payday.HistoryEntry](t, do(t, srv, http.MethodGet, "/api/paydays", nil))
	assert.Empty(t, history)

	next := decodeBody[NextPaydayDTO](t, do(t, srv, http.MethodGet, "/api/paydays/next", nil))
	assert.True(t, next.IsToday, "schedule untouched")
}

func TestPaydaySummary_NoneRecorded(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)

	rec := do(t, srv, http.MethodGet, "/api/paydays/summary", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePaydaySettings(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)

	rec := do(t, srv, http.MethodPut, "/api/paydays/settings", `{"frequency": "monthly"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := decodeBody[payday.Settings](t, rec)
	assert.Equal(t, generic.FreqMonthly, s.Frequency)
	assert.Equal(t, "2025-04-18", s.NextDate.String(), "next date kept")

	rec = do(t, srv, http.MethodPut, "/api/paydays/settings", `{"frequency": "fortnightly"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// BILLS
// =============================================================================

func TestBills_AddToggleDelete(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)

	// GIVEN: a bill due in 5 days
	rec := do(t, srv, http.MethodPost, "/api/bills", CreateBillRequest{
		Name:              "Phone",
		TotalAmount:       dec("80"),
		AmountPerPaycheck: dec("40"),
		DueDate:           testToday.AddDays(5),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bill := decodeBody[bills.Bill](t, rec)
	assert.Equal(t, generic.USD, bill.Currency)

	v := decodeBody[bills.View](t, do(t, srv, http.MethodGet, "/api/bills/"+string(bill.ID), nil))
	assert.Equal(t, bills.StatusDueSoon, v.Status)

	total := decodeBody[TotalDTO](t, do(t, srv, http.MethodGet, "/api/bills/unpaid-total", nil))
	assert.True(t, dec("80").Equal(total.Amount))

	// WHEN: it is marked paid
	rec = do(t, srv, http.MethodPut, "/api/bills/"+string(bill.ID)+"/paid", SetPaidRequest{Paid: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: status, history and unpaid total follow
	v = decodeBody[bills.View](t, rec)
	assert.True(t, v.Paid)
	history := decodeBody[[]bills.HistoryEntry](t, do(t, srv, http.MethodGet, "/api/bills/history", nil))
	require.Len(t, history, 1)
	assert.Equal(t, "Phone", history[0].BillName)
	total = decodeBody[TotalDTO](t, do(t, srv, http.MethodGet, "/api/bills/unpaid-total", nil))
	assert.True(t, total.Amount.IsZero())

	rec = do(t, srv, http.MethodDelete, "/api/bills/"+string(bill.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/bills/"+string(bill.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBills_Validation(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)

	for name, body := range map[string]string{
		"missing name": `{"totalAmount": "10", "amountPerPaycheck": "5", "dueDate": "2025-05-01"}`,
		"zero total":   `{"name": "x", "totalAmount": "0", "amountPerPaycheck": "5", "dueDate": "2025-05-01"}`,
		"bad currency": `{"name": "x", "totalAmount": "10", "amountPerPaycheck": "5", "currency": "dollars", "dueDate": "2025-05-01"}`,
		"malformed":    `{"name": `,
		"bad due date": `{"name": "x", "totalAmount": "10", "amountPerPaycheck": "5", "dueDate": "05/01/2025"}`,
	} {
		rec := do(t, srv, http.MethodPost, "/api/bills", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	rec := do(t, srv, http.MethodGet, "/api/bills/upcoming?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBills_Upcoming(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)
	for i, name := range []string{"C", "A", "B"} {
		rec := do(t, srv, http.MethodPost, "/api/bills", CreateBillRequest{
			Name: name, TotalAmount: dec("10"), AmountPerPaycheck: dec("5"), DueDate: testToday.AddDays(10 - i),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	list := decodeBody[[]bills.View](t, do(t, srv, http.MethodGet, "/api/bills/upcoming?limit=2", nil))

	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Name)
	assert.Equal(t, "A", list[1].Name)
}

// =============================================================================
// DEBTS
// =============================================================================

func TestDebts_PaymentClearsDebt(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)

	rec := do(t, srv, http.MethodPost, "/api/debts", CreateDebtRequest{
		Name: "Store Card", Balance: dec("100"), InterestRate: dec("20"), MinimumPayment: dec("25"),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	debt := decodeBody[debts.Debt](t, rec)

	strategy := decodeBody[debts.Strategy](t, do(t, srv, http.MethodGet, "/api/debts/strategy", nil))
	require.Len(t, strategy.Items, 1)
	assert.False(t, strategy.DebtFree)

	// WHEN: a payment covers the balance
	rec = do(t, srv, http.MethodPost, "/api/debts/"+string(debt.ID)+"/payments", `{"amount": "100"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: the debt is paid off and further payments are rejected
	paid := decodeBody[PaymentDTO](t, rec)
	assert.True(t, paid.PaidOff)
	assert.True(t, paid.Debt.Balance.IsZero())
	require.Len(t, paid.Debt.Payments, 1)
	assert.Equal(t, "2025-04-18", paid.Debt.Payments[0].Date.String(), "date defaults to today")

	rec = do(t, srv, http.MethodPost, "/api/debts/"+string(debt.ID)+"/payments", `{"amount": "10"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	strategy = decodeBody[debts.Strategy](t, do(t, srv, http.MethodGet, "/api/debts/strategy", nil))
	assert.True(t, strategy.DebtFree)
	prioritized := decodeBody[[]debts.Debt](t, do(t, srv, http.MethodGet, "/api/debts/prioritized", nil))
	assert.Empty(t, prioritized)
}

func TestDebts_Schedule(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)
	debt := decodeBody[debts.Debt](t, do(t, srv, http.MethodPost, "/api/debts", CreateDebtRequest{
		Name: "Loan", Balance: dec("1000"), MinimumPayment: dec("100"),
	}))

	sched := decodeBody[debts.Schedule](t, do(t, srv, http.MethodGet, "/api/debts/"+string(debt.ID)+"/schedule", nil))
	assert.True(t, sched.Reachable)
	assert.Equal(t, 10, sched.Months, "zero interest at the minimum")

	sched = decodeBody[debts.Schedule](t, do(t, srv, http.MethodGet, "/api/debts/"+string(debt.ID)+"/schedule?monthly=500", nil))
	assert.Equal(t, 2, sched.Months)

	rec := do(t, srv, http.MethodGet, "/api/debts/"+string(debt.ID)+"/schedule?monthly=lots", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/debts/missing/schedule", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebts_TotalConvertsToReporting(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)
	do(t, srv, http.MethodPost, "/api/debts", CreateDebtRequest{Name: "US", Balance: dec("100"), MinimumPayment: dec("10")})
	do(t, srv, http.MethodPost, "/api/debts", CreateDebtRequest{Name: "CA", Balance: dec("100"), Currency: "CAD", MinimumPayment: dec("10")})

	total := decodeBody[TotalDTO](t, do(t, srv, http.MethodGet, "/api/debts/total", nil))

	assert.True(t, dec("174").Equal(total.Amount), total.Amount.String())
	assert.Equal(t, generic.USD, total.Currency)
}

// =============================================================================
// CHARITY & SAVINGS
// =============================================================================

func TestCharity_DonationAndSettings(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)

	rec := do(t, srv, http.MethodPost, "/api/charity/donations", `{"amount": "30", "description": "Food bank"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st := decodeBody[charity.State](t, rec)
	assert.True(t, dec("70").Equal(st.CurrentAmount))

	donations := decodeBody[[]charity.Deduction](t, do(t, srv, http.MethodGet, "/api/charity/donations", nil))
	require.Len(t, donations, 1)
	assert.Equal(t, "2025-04-18", donations[0].Date.String())

	rec = do(t, srv, http.MethodPut, "/api/charity/settings", `{"incrementAmount": "20", "recurringDonations": []}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st = decodeBody[charity.State](t, rec)
	assert.True(t, dec("20").Equal(st.IncrementAmount))
	assert.True(t, dec("70").Equal(st.CurrentAmount))

	rec = do(t, srv, http.MethodPost, "/api/charity/donations", `{"amount": "-5", "description": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSavings_SettingsAndHistory(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)

	rec := do(t, srv, http.MethodPut, "/api/savings/settings", `{"amountPerPaycheck": "250", "currency": "cad"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := decodeBody[savings.Settings](t, rec)
	assert.Equal(t, generic.CAD, s.Currency)

	rec = do(t, srv, http.MethodPost, "/api/paydays", `{"date": "2025-04-18", "income": [{"amount": "1000"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	sv := decodeBody[SavingsDTO](t, do(t, srv, http.MethodGet, "/api/savings", nil))
	assert.True(t, dec("250").Equal(sv.Balance))
	assert.Equal(t, generic.CAD, sv.Currency)

	history := decodeBody[[]savings.Entry](t, do(t, srv, http.MethodGet, "/api/savings/history", nil))
	require.Len(t, history, 1)
	assert.Equal(t, savings.EntryDescription, history[0].Description)

	rec = do(t, srv, http.MethodPut, "/api/savings/settings", `{"amountPerPaycheck": "10", "currency": "dollars"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// RATES, EXPORTS, DASHBOARD
// =============================================================================

func TestConvert(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)

	got := decodeBody[ConvertDTO](t, do(t, srv, http.MethodGet, "/api/convert?amount=100&from=usd&to=CAD", nil))
	assert.True(t, dec("135").Equal(got.Result), got.Result.String())
	assert.False(t, got.Fallback)

	got = decodeBody[ConvertDTO](t, do(t, srv, http.MethodGet, "/api/convert?amount=100&from=EUR&to=USD", nil))
	assert.True(t, dec("100").Equal(got.Result), "unknown pair passes through")
	assert.True(t, got.Fallback)

	rec := do(t, srv, http.MethodGet, "/api/convert?amount=ten&from=USD&to=CAD", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rates := decodeBody[RatesDTO](t, do(t, srv, http.MethodGet, "/api/rates", nil))
	assert.True(t, dec("1.35").Equal(rates.Rates["USD_CAD"]))
	assert.Equal(t, int64(1), rates.Fallbacks)
}

func TestRefreshRates_NotConfigured(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)

	rec := do(t, srv, http.MethodPost, "/api/rates/refresh", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExports(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)
	do(t, srv, http.MethodPost, "/api/debts", CreateDebtRequest{Name: "Visa", Balance: dec("500"), InterestRate: dec("19.99"), MinimumPayment: dec("50")})

	rec := do(t, srv, http.MethodGet, "/api/exports/ledger.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "ledger.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip")

	rec = do(t, srv, http.MethodGet, "/api/exports/strategy.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, contentTypePDF, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestDashboard(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)
	do(t, srv, http.MethodPost, "/api/bills", CreateBillRequest{
		Name: "Rent", TotalAmount: dec("1200"), AmountPerPaycheck: dec("600"), DueDate: testToday.AddDays(3),
	})
	do(t, srv, http.MethodPost, "/api/debts", CreateDebtRequest{Name: "Visa", Balance: dec("900"), MinimumPayment: dec("30")})

	rec := do(t, srv, http.MethodGet, "/api/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decodeBody[DashboardDTO](t, rec)
	assert.Equal(t, "2025-04-18", d.AsOf.String())
	assert.True(t, d.NextPayday.IsToday)
	assert.True(t, dec("1200").Equal(d.UnpaidBills.Amount))
	require.Len(t, d.UpcomingBills, 1)
	assert.True(t, dec("900").Equal(d.TotalDebt.Amount))
	require.NotNil(t, d.TopDebt)
	assert.Equal(t, "Visa", d.TopDebt.Debt.Name)
	assert.True(t, dec("100").Equal(d.CharityAvailable))
	assert.Nil(t, d.LatestAllocation)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := NewRouter(newTestHandler(t), nil)

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/metrics", nil).Code)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{generic.Invalid("amount", "must be positive"), http.StatusBadRequest},
		{fmt.Errorf("bills[0]: %w", generic.Invalid("name", "is required")), http.StatusBadRequest},
		{&generic.NotFoundError{Kind: "bill", ID: "x"}, http.StatusNotFound},
		{generic.ErrConcurrentModification, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
