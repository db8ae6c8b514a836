/*
Package report renders ledger exports.

PURPOSE:
  Two downloadable documents built from already-derived engine values:
  - an XLSX workbook with one sheet per section (paydays, bills, debts,
    savings, charity)
  - a PDF payoff-strategy report with an optional payoff schedule

  Nothing here reads the store; callers pass the views they already have.

SEE ALSO:
  - api/handlers.go: export endpoints
  - debts/priority.go: Strategy
*/
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/warp/payday-engine/bills"
	"github.com/warp/payday-engine/charity"
	"github.com/warp/payday-engine/debts"
	"github.com/warp/payday-engine/generic"
	"github.com/warp/payday-engine/payday"
	"github.com/warp/payday-engine/savings"
)

const (
	SheetPaydays = "paydays"
	SheetBills   = "bills"
	SheetDebts   = "debts"
	SheetSavings = "savings"
	SheetCharity = "charity"
)

// Ledger is everything the workbook shows.
type Ledger struct {
	GeneratedAt time.Time
	Paydays     []payday.HistoryEntry
	Bills       []bills.View
	Debts       []debts.View
	Savings     savings.State
	Charity     charity.State
}

// =============================================================================
// XLSX
// =============================================================================

// BuildWorkbook renders the ledger as an XLSX file.
func BuildWorkbook(l Ledger) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPaydays); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetBills, SheetDebts, SheetSavings, SheetCharity} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	w := &sheetWriter{f: f}
	w.rows(SheetPaydays, []any{"Date", "Type", "Income", "Currency", "Bills", "Credit Cards", "Charity", "Savings", "Other", "Allocated"})
	for _, p := range l.Paydays {
		incomeType := ""
		if len(p.Income) > 0 {
			incomeType = p.Income[0].Type
		}
		savingsAlloc := 0.0
		if p.Allocations.Savings != nil {
			savingsAlloc = p.Allocations.Savings.InexactFloat64()
		}
		w.rows(SheetPaydays, []any{
			p.Date.String(), incomeType, p.TotalIncome.InexactFloat64(), string(p.Currency),
			p.Allocations.Bills.InexactFloat64(), p.Allocations.CreditCards.InexactFloat64(),
			p.Allocations.Charity.InexactFloat64(), savingsAlloc, p.Allocations.Other.InexactFloat64(),
			p.TotalAllocated.InexactFloat64(),
		})
	}

	w.rows(SheetBills, []any{"Name", "Total", "Per Paycheck", "Currency", "Due Date", "Status", "Days Until"})
	for _, b := range l.Bills {
		w.rows(SheetBills, []any{
			b.Name, b.TotalAmount.InexactFloat64(), b.AmountPerPaycheck.InexactFloat64(),
			string(b.Currency), b.DueDate.String(), string(b.Status), b.DaysUntil,
		})
	}

	w.rows(SheetDebts, []any{"Name", "Balance", "Currency", "Interest %", "Minimum", "Due Date", "Total Paid", "Paid Off"})
	for _, d := range l.Debts {
		due := ""
		if d.DueDate != nil {
			due = d.DueDate.String()
		}
		w.rows(SheetDebts, []any{
			d.Name, d.Balance.InexactFloat64(), string(d.Currency), d.InterestRatePercent.InexactFloat64(),
			d.MinimumPayment.InexactFloat64(), due, d.TotalPaid.InexactFloat64(), d.PaidOff,
		})
	}

	w.rows(SheetSavings, []any{"Date", "Description", "Amount", "Currency", "Balance"})
	for _, e := range savings.History(l.Savings) {
		w.rows(SheetSavings, []any{
			e.Date.String(), e.Description, e.Amount.InexactFloat64(), string(e.Currency), e.BalanceAfter.InexactFloat64(),
		})
	}
	w.rows(SheetSavings, []any{}, []any{"Current Balance", "", l.Savings.Balance.InexactFloat64()})

	w.rows(SheetCharity, []any{"Date", "Description", "Amount"})
	for _, d := range charity.History(l.Charity) {
		w.rows(SheetCharity, []any{d.Date.String(), d.Description, d.Amount.InexactFloat64()})
	}
	w.rows(SheetCharity, []any{}, []any{"Available", "", l.Charity.CurrentAmount.InexactFloat64()})

	if w.err != nil {
		return nil, w.err
	}
	if !l.GeneratedAt.IsZero() {
		_ = f.SetDocProps(&excelize.DocProperties{
			Title:   "Payday ledger",
			Created: l.GeneratedAt.UTC().Format(time.RFC3339),
		})
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sheetWriter appends rows per sheet and keeps the first error.
type sheetWriter struct {
	f    *excelize.File
	next map[string]int
	err  error
}

func (w *sheetWriter) rows(sheet string, rows ...[]any) {
	if w.next == nil {
		w.next = map[string]int{}
	}
	for _, row := range rows {
		w.next[sheet]++
		if w.err != nil || len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, w.next[sheet])
		if err != nil {
			w.err = err
			continue
		}
		w.err = w.f.SetSheetRow(sheet, cell, &row)
	}
}

// =============================================================================
// PDF
// =============================================================================

// BuildStrategyPDF renders the payoff strategy. schedules, keyed by debt ID,
// add a month-by-month table for the debts they cover.
func BuildStrategyPDF(s debts.Strategy, schedules map[generic.ID]debts.Schedule, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Debt Payoff Strategy")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("As of: %s", s.AsOf))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Debt (%s): %s", s.Currency, s.Total.StringFixed(2)))
	pdf.Ln(8)

	if s.DebtFree {
		pdf.Cell(0, 6, "No open debts.")
		pdf.Ln(5)
		return output(pdf)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(10, 6, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Debt", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Balance", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Rate %", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Reason", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Months @ min", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, item := range s.Items {
		months := fmt.Sprintf("%d", item.MonthsAtMinimum)
		if item.MonthsAtMinimum == debts.PayoffUnreachable {
			months = "never"
		}
		pdf.CellFormat(10, 6, fmt.Sprintf("%d", item.Rank), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, item.Debt.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%s %s", item.Debt.Balance.StringFixed(2), item.Debt.Currency), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, item.Debt.InterestRatePercent.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, string(item.Reason), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, months, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	for _, item := range s.Items {
		sched, ok := schedules[item.Debt.ID]
		if !ok {
			continue
		}
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("%s: paying %s per month", item.Debt.Name, sched.Monthly.StringFixed(2)))
		pdf.Ln(6)
		if !sched.Reachable {
			pdf.SetFont("Arial", "", 10)
			pdf.Cell(0, 6, "The payment does not cover the monthly interest.")
			pdf.Ln(5)
			continue
		}
		pdf.CellFormat(15, 6, "Month", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Date", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Payment", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Interest", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Balance", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, row := range sched.Rows {
			pdf.CellFormat(15, 6, fmt.Sprintf("%d", row.Month), "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 6, row.Date.String(), "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 6, row.Payment.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, row.Interest.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, row.Balance.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		if sched.Truncated {
			pdf.Cell(0, 6, fmt.Sprintf("Showing the first %d of %d months.", len(sched.Rows), sched.Months))
			pdf.Ln(5)
			continue
		}
		pdf.Cell(0, 6, fmt.Sprintf("Total interest: %s over %d months", sched.TotalInterest.StringFixed(2), sched.Months))
		pdf.Ln(5)
	}
	return output(pdf)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
