package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/payday-engine/bills"
	"github.com/warp/payday-engine/charity"
	"github.com/warp/payday-engine/debts"
	"github.com/warp/payday-engine/generic"
	"github.com/warp/payday-engine/payday"
	"github.com/warp/payday-engine/report"
	"github.com/warp/payday-engine/savings"
)

func day(s string) generic.TimePoint { return generic.MustParseDate(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleLedger() report.Ledger {
	ev := payday.Event{
		ID:          "p1",
		Date:        day("2025-04-18"),
		Income:      []payday.IncomeEntry{{Type: "Salary", Amount: dec("2000"), Currency: generic.CAD}},
		Allocations: payday.Allocations{Bills: dec("500")},
	}
	due := day("2025-05-01")
	return report.Ledger{
		GeneratedAt: time.Date(2025, 4, 18, 12, 0, 0, 0, time.UTC),
		Paydays:     payday.History([]payday.Event{ev}),
		Bills: []bills.View{{
			Bill:   bills.Bill{ID: "b1", Name: "Rent", TotalAmount: dec("1200"), AmountPerPaycheck: dec("600"), Currency: generic.CAD, DueDate: day("2025-05-01")},
			Status: bills.StatusDueSoon,
		}},
		Debts: []debts.View{{
			Debt: debts.Debt{ID: "d1", Name: "Visa", Balance: dec("800"), Currency: generic.USD, InterestRatePercent: dec("19.99"), MinimumPayment: dec("50"), DueDate: &due},
		}},
		Savings: savings.State{Balance: dec("100"), History: []savings.Entry{
			{Date: day("2025-04-18"), Amount: dec("100"), Currency: generic.CAD, Description: savings.EntryDescription, BalanceAfter: dec("100")},
		}},
		Charity: charity.DefaultState(),
	}
}

func TestBuildWorkbook(t *testing.T) {
	data, err := report.BuildWorkbook(sampleLedger())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t,
		[]string{report.SheetPaydays, report.SheetBills, report.SheetDebts, report.SheetSavings, report.SheetCharity},
		f.GetSheetList())

	rows, err := f.GetRows(report.SheetPaydays)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "2025-04-18", rows[1][0])
	assert.Equal(t, "Salary", rows[1][1])

	rows, err = f.GetRows(report.SheetBills)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Rent", rows[1][0])
	assert.Equal(t, "due-soon", rows[1][5])

	rows, err = f.GetRows(report.SheetDebts)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Visa", rows[1][0])
	assert.Equal(t, "2025-05-01", rows[1][5])

	rows, err = f.GetRows(report.SheetSavings)
	require.NoError(t, err)
	require.Len(t, rows, 4, "header, entry, blank, balance")
	assert.Equal(t, "Payday Savings", rows[1][1])
	assert.Equal(t, "Current Balance", rows[3][0])

	rows, err = f.GetRows(report.SheetCharity)
	require.NoError(t, err)
	assert.Equal(t, "Available", rows[len(rows)-1][0])
}

func TestBuildWorkbook_Empty(t *testing.T) {
	data, err := report.BuildWorkbook(report.Ledger{})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestBuildStrategyPDF(t *testing.T) {
	// GIVEN: one reachable and one unreachable debt with schedules
	// WHEN: the strategy report is rendered
	// THEN: a PDF document comes back

	today := day("2025-04-18")
	card := debts.Debt{ID: "d1", Name: "Visa", Balance: dec("1000"), Currency: generic.USD, InterestRatePercent: dec("12"), MinimumPayment: dec("100")}
	loan := debts.Debt{ID: "d2", Name: "Loan", Balance: dec("10000"), Currency: generic.USD, InterestRatePercent: dec("24"), MinimumPayment: dec("100")}
	strategy := debts.BuildStrategy([]debts.Debt{card, loan}, today, generic.NewConverter(nil, zerolog.Nop()), generic.USD, 7)
	schedules := map[generic.ID]debts.Schedule{
		card.ID: debts.Project(card, card.MinimumPayment, today),
		loan.ID: debts.Project(loan, loan.MinimumPayment, today),
	}

	data, err := report.BuildStrategyPDF(strategy, schedules, time.Date(2025, 4, 18, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestBuildStrategyPDF_DebtFree(t *testing.T) {
	strategy := debts.BuildStrategy(nil, day("2025-04-18"), generic.NewConverter(nil, zerolog.Nop()), generic.USD, 7)
	require.True(t, strategy.DebtFree)

	data, err := report.BuildStrategyPDF(strategy, nil, time.Now())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}
