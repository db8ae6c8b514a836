/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine types are
  returned directly where they already carry JSON tags; request bodies get
  their own types so clients cannot set server-owned fields (IDs,
  timestamps, payment records).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS AND DATES:
  Amounts accept JSON numbers or strings and are returned as strings.
  Dates are "YYYY-MM-DD".

VALIDATION:
  Validation is done by the engines, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payday-engine/bills"
	"github.com/warp/payday-engine/charity"
	"github.com/warp/payday-engine/debts"
	"github.com/warp/payday-engine/generic"
	"github.com/warp/payday-engine/payday"
)

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type TotalDTO struct {
	Amount   decimal.Decimal  `json:"amount"`
	Currency generic.Currency `json:"currency"`
}

// =============================================================================
// PAYDAYS
// =============================================================================

type RecordPaydayRequest struct {
	Date        generic.TimePoint    `json:"date"`
	Income      []payday.IncomeEntry `json:"income"`
	Allocations payday.Allocations   `json:"allocations"`
}

type PaydaySettingsRequest struct {
	Frequency string             `json:"frequency"`
	NextDate  *generic.TimePoint `json:"nextDate"`
}

type NextPaydayDTO struct {
	Frequency generic.Frequency  `json:"frequency"`
	NextDate  *generic.TimePoint `json:"nextDate"`
	DaysUntil *int               `json:"daysUntil"`
	IsToday   bool               `json:"isToday"`
}

// =============================================================================
// BILLS
// =============================================================================

type CreateBillRequest struct {
	Name              string            `json:"name"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	AmountPerPaycheck decimal.Decimal   `json:"amountPerPaycheck"`
	Currency          string            `json:"currency"`
	DueDate           generic.TimePoint `json:"dueDate"`
}

type SetPaidRequest struct {
	Paid bool `json:"paid"`
}

// =============================================================================
// DEBTS
// =============================================================================

type CreateDebtRequest struct {
	Name           string             `json:"name"`
	Balance        decimal.Decimal    `json:"balance"`
	Currency       string             `json:"currency"`
	InterestRate   decimal.Decimal    `json:"interestRate"`
	MinimumPayment decimal.Decimal    `json:"minimumPayment"`
	DueDate        *generic.TimePoint `json:"dueDate"`
}

// PaymentRequest records a debt payment. A missing date means today.
type PaymentRequest struct {
	Amount decimal.Decimal    `json:"amount"`
	Date   *generic.TimePoint `json:"date"`
}

type PaymentDTO struct {
	Debt    debts.Debt `json:"debt"`
	PaidOff bool       `json:"paidOff"`
}

// =============================================================================
// CHARITY & SAVINGS
// =============================================================================

// DonationRequest records a manual donation. A missing date means today.
type DonationRequest struct {
	Date        *generic.TimePoint `json:"date"`
	Amount      decimal.Decimal    `json:"amount"`
	Description string             `json:"description"`
}

type CharitySettingsRequest struct {
	IncrementAmount    decimal.Decimal             `json:"incrementAmount"`
	RecurringDonations []charity.RecurringDonation `json:"recurringDonations"`
}

type SavingsSettingsRequest struct {
	AmountPerPaycheck decimal.Decimal `json:"amountPerPaycheck"`
	Currency          string          `json:"currency"`
}

type SavingsDTO struct {
	Balance           decimal.Decimal  `json:"balance"`
	Currency          generic.Currency `json:"currency"`
	AmountPerPaycheck decimal.Decimal  `json:"amountPerPaycheck"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

type DashboardDTO struct {
	AsOf             generic.TimePoint   `json:"asOf"`
	NextPayday       NextPaydayDTO       `json:"nextPayday"`
	UnpaidBills      TotalDTO            `json:"unpaidBills"`
	UpcomingBills    []bills.View        `json:"upcomingBills"`
	TotalDebt        TotalDTO            `json:"totalDebt"`
	TopDebt          *debts.StrategyItem `json:"topDebt"`
	CharityAvailable decimal.Decimal     `json:"charityAvailable"`
	Savings          SavingsDTO          `json:"savings"`
	LatestAllocation *payday.Summary     `json:"latestAllocation"`
}

// =============================================================================
// RATES
// =============================================================================

type RatesDTO struct {
	Rates     map[string]decimal.Decimal `json:"rates"`
	Fallbacks int64                      `json:"fallbacks"`
}

type ConvertDTO struct {
	Amount   decimal.Decimal  `json:"amount"`
	From     generic.Currency `json:"from"`
	To       generic.Currency `json:"to"`
	Result   decimal.Decimal  `json:"result"`
	Fallback bool             `json:"fallback"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario by ID.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
