/*
Package bills tracks recurring bills and whether each one is paid for its
current billing cycle.

PURPOSE:
  A bill has a due date marking the end of its current cycle and a list of
  payment records. "Paid" is never stored as a flag: it is derived from the
  latest payment record and the rolling one-month window ending at the due
  date (see cycle.go). Advancing the due date therefore re-opens the bill
  without touching its history.

KEY TYPES:
  Bill:          the stored entity (section "bills", a JSON array)
  PaymentRecord: one toggle-on event, append/remove only
  NewBill:       validated input for creating a bill

SEE ALSO:
  - cycle.go: satisfaction rule, toggle, status and rollover
  - service.go: store-backed operations
*/
package bills

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// TYPES
// =============================================================================

type PaymentStatus string

const PaymentPaid PaymentStatus = "paid"

type PaymentRecord struct {
	Date   generic.TimePoint `json:"date"`
	Amount decimal.Decimal   `json:"amount"`
	Status PaymentStatus     `json:"status"`
}

type Bill struct {
	ID                generic.ID        `json:"id"`
	Name              string            `json:"name"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	AmountPerPaycheck decimal.Decimal   `json:"amountPerPaycheck"`
	Currency          generic.Currency  `json:"currency"`
	DueDate           generic.TimePoint `json:"dueDate"`
	PaymentRecords    []PaymentRecord   `json:"paymentRecords"`
}

// NewBill is the input for adding a bill.
type NewBill struct {
	Name              string
	TotalAmount       decimal.Decimal
	AmountPerPaycheck decimal.Decimal
	Currency          generic.Currency
	DueDate           generic.TimePoint
}

// Validate checks the fields a bill cannot exist without.
func (n NewBill) Validate() error {
	if err := generic.RequireName("name", n.Name); err != nil {
		return err
	}
	if err := generic.RequirePositive("totalAmount", n.TotalAmount); err != nil {
		return err
	}
	if err := generic.RequirePositive("amountPerPaycheck", n.AmountPerPaycheck); err != nil {
		return err
	}
	if n.DueDate.IsZero() {
		return generic.Invalid("dueDate", "is required")
	}
	return nil
}

// Build turns validated input into a Bill with a fresh ID.
func (n NewBill) Build(def generic.Currency) Bill {
	return Bill{
		ID:                generic.NewID(),
		Name:              n.Name,
		TotalAmount:       n.TotalAmount,
		AmountPerPaycheck: n.AmountPerPaycheck,
		Currency:          n.Currency.OrDefault(def),
		DueDate:           n.DueDate,
		PaymentRecords:    []PaymentRecord{},
	}
}

// Find returns the index of the bill with id, or -1.
func Find(bills []Bill, id generic.ID) int {
	for i := range bills {
		if bills[i].ID == id {
			return i
		}
	}
	return -1
}
