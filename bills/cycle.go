package bills

import (
	"slices"

	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// CYCLE SATISFACTION
// =============================================================================

// CycleWindow is the closed window [DueDate - 1 month, DueDate].
func CycleWindow(b Bill) generic.Period {
	return generic.MonthEndingAt(b.DueDate)
}

// LatestPayment returns the record with the greatest date. Ties keep the
// earliest appended record.
func LatestPayment(b Bill) (PaymentRecord, bool) {
	if len(b.PaymentRecords) == 0 {
		return PaymentRecord{}, false
	}
	latest := b.PaymentRecords[0]
	for _, p := range b.PaymentRecords[1:] {
		if p.Date.After(latest.Date) {
			latest = p
		}
	}
	return latest, true
}

// IsSatisfiedForCurrentCycle reports whether the latest payment falls inside
// the current cycle window. Only the latest payment counts: an older payment
// inside the window does not help once a newer one lies outside it.
func IsSatisfiedForCurrentCycle(b Bill) bool {
	latest, ok := LatestPayment(b)
	if !ok {
		return false
	}
	return CycleWindow(b).Contains(latest.Date)
}

// =============================================================================
// TOGGLE
// =============================================================================

// Toggle marks the bill paid or unpaid as of today and returns the updated
// copy.
//
// paid=true appends {today, AmountPerPaycheck, "paid"}. paid=false removes
// the first record dated exactly today and nothing else, so un-toggling on a
// later day leaves the earlier record in place. Callers should not rely on
// Toggle(false) being the inverse of Toggle(true) across days.
func Toggle(b Bill, paid bool, today generic.TimePoint) Bill {
	records := slices.Clone(b.PaymentRecords)
	if paid {
		records = append(records, PaymentRecord{
			Date:   today,
			Amount: b.AmountPerPaycheck,
			Status: PaymentPaid,
		})
	} else if i := slices.IndexFunc(records, func(p PaymentRecord) bool { return p.Date.Equal(today) }); i >= 0 {
		records = slices.Delete(records, i, i+1)
	}
	if records == nil {
		records = []PaymentRecord{}
	}
	b.PaymentRecords = records
	return b
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusSatisfied Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusDueSoon   Status = "due-soon"
	StatusUpcoming  Status = "upcoming"
)

// DefaultDueSoonDays is the window used for "due soon".
const DefaultDueSoonDays = 7

type StatusInfo struct {
	Status    Status
	DaysUntil int // negative when overdue
}

// Evaluate classifies a bill as of today.
func Evaluate(b Bill, today generic.TimePoint, dueSoonDays int) StatusInfo {
	clock := generic.FixedClock{Day: today}
	info := StatusInfo{DaysUntil: generic.DaysBetween(today, b.DueDate)}
	switch {
	case IsSatisfiedForCurrentCycle(b):
		info.Status = StatusSatisfied
	case generic.IsPast(b.DueDate, clock):
		info.Status = StatusOverdue
	case generic.IsWithin(b.DueDate, dueSoonDays, clock):
		info.Status = StatusDueSoon
	default:
		info.Status = StatusUpcoming
	}
	return info
}

// =============================================================================
// ORDERING AND AGGREGATES
// =============================================================================

// SortForDisplay puts unpaid bills first, then orders by due date.
func SortForDisplay(bills []Bill) []Bill {
	out := slices.Clone(bills)
	slices.SortStableFunc(out, func(a, b Bill) int {
		ap, bp := IsSatisfiedForCurrentCycle(a), IsSatisfiedForCurrentCycle(b)
		if ap != bp {
			if ap {
				return 1
			}
			return -1
		}
		return a.DueDate.Time.Compare(b.DueDate.Time)
	})
	return out
}

// Upcoming returns at most n unpaid bills in display order.
func Upcoming(bills []Bill, n int) []Bill {
	var out []Bill
	for _, b := range SortForDisplay(bills) {
		if len(out) == n {
			break
		}
		if !IsSatisfiedForCurrentCycle(b) {
			out = append(out, b)
		}
	}
	return out
}

// HistoryEntry is one payment flattened out of its bill.
type HistoryEntry struct {
	BillID   generic.ID        `json:"billId"`
	BillName string            `json:"billName"`
	Date     generic.TimePoint `json:"date"`
	Amount   decimal.Decimal   `json:"amount"`
	Currency generic.Currency  `json:"currency"`
}

// PaymentHistory lists every payment across bills, newest first.
func PaymentHistory(bills []Bill) []HistoryEntry {
	var out []HistoryEntry
	for _, b := range bills {
		for _, p := range b.PaymentRecords {
			out = append(out, HistoryEntry{
				BillID:   b.ID,
				BillName: b.Name,
				Date:     p.Date,
				Amount:   p.Amount,
				Currency: b.Currency,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b HistoryEntry) int {
		return b.Date.Time.Compare(a.Date.Time)
	})
	return out
}

// UnpaidTotal sums TotalAmount of every unsatisfied bill in currency to.
func UnpaidTotal(bills []Bill, conv *generic.Converter, to generic.Currency) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bills {
		if !IsSatisfiedForCurrentCycle(b) {
			total = total.Add(conv.Convert(b.TotalAmount, b.Currency, to))
		}
	}
	return total
}

// =============================================================================
// ROLLOVER
// =============================================================================

// Rollover advances the due date of a satisfied bill whose due date has
// passed by one calendar month. The returned flag reports whether it moved.
// Once moved, the old payment usually falls outside the new window and the
// bill reads as unpaid again.
func Rollover(b Bill, today generic.TimePoint) (Bill, bool) {
	if !b.DueDate.Before(today) || !IsSatisfiedForCurrentCycle(b) {
		return b, false
	}
	b.DueDate = b.DueDate.AddMonths(1)
	return b, true
}
