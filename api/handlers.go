/*
handlers.go - HTTP API handlers for the payday ledger

PURPOSE:
  Exposes the ledger engines via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the domain services.

ENDPOINTS:
  Dashboard:
    GET    /api/dashboard                 Totals, next payday, latest split

  Paydays:
    GET    /api/paydays                   Payday history, newest first
    POST   /api/paydays                   Record a payday (transactional)
    GET    /api/paydays/settings          Pay schedule
    PUT    /api/paydays/settings          Change frequency / next date
    GET    /api/paydays/next              Next payday and days until
    GET    /api/paydays/summary           Allocation split of the latest payday

  Bills:
    GET    /api/bills                     List with status
    POST   /api/bills                     Add bill
    GET    /api/bills/upcoming?limit=N    Next unpaid bills
    GET    /api/bills/history             Payment history
    GET    /api/bills/unpaid-total        Unpaid total, reporting currency
    POST   /api/bills/rollover            Advance satisfied past-due bills
    GET    /api/bills/{id}                Single bill
    DELETE /api/bills/{id}                Remove bill
    PUT    /api/bills/{id}/paid           Toggle paid for the current cycle

  Debts:
    GET    /api/debts                     List
    POST   /api/debts                     Add debt
    GET    /api/debts/strategy            Ranked payoff plan
    GET    /api/debts/prioritized         Open debts in payoff order
    GET    /api/debts/total               Open balance, reporting currency
    GET    /api/debts/{id}                Single debt
    DELETE /api/debts/{id}                Remove debt
    POST   /api/debts/{id}/payments       Record payment
    GET    /api/debts/{id}/schedule       Amortization (?monthly=)

  Charity / Savings:
    GET    /api/charity                   Fund state
    PUT    /api/charity/settings          Increment and recurring donations
    GET    /api/charity/donations         Deductions, newest first
    POST   /api/charity/donations         Manual donation
    GET    /api/savings                   Balance and per-paycheck amount
    PUT    /api/savings/settings          Per-paycheck amount and currency
    GET    /api/savings/history           Entries, newest first

  Rates / Exports:
    GET    /api/rates                     Current conversion table
    POST   /api/rates/refresh             Pull the reference rate feed
    GET    /api/convert                   ?amount=&from=&to=
    GET    /api/exports/ledger.xlsx       Workbook of every section
    GET    /api/exports/strategy.pdf      Debt payoff plan

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: transactional section store
  - One service per engine, sharing the store, clock and converter
  - The seed ledger written after a reset

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found
  - 409: Concurrent modification
  - 500: Internal errors

SECURITY NOTE:
  Single-user tool. No authentication or authorization.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/payday-engine/bills"
	"github.com/warp/payday-engine/charity"
	"github.com/warp/payday-engine/debts"
	"github.com/warp/payday-engine/factory"
	"github.com/warp/payday-engine/generic"
	"github.com/warp/payday-engine/metrics"
	"github.com/warp/payday-engine/payday"
	"github.com/warp/payday-engine/rates"
	"github.com/warp/payday-engine/report"
	"github.com/warp/payday-engine/savings"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     generic.TxStore
	Clock     generic.Clock
	Converter *generic.Converter
	Rates     *rates.Client // nil disables POST /api/rates/refresh
	Log       zerolog.Logger
	Reporting generic.Currency

	Paydays *payday.Orchestrator
	Bills   *bills.Service
	Debts   *debts.Service
	Charity *charity.Service
	Savings *savings.Service

	seed   factory.LedgerSeed
	ledger factory.Ledger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// Options configures NewHandler.
type Options struct {
	Store       generic.TxStore
	Clock       generic.Clock
	Converter   *generic.Converter
	Rates       *rates.Client
	Log         zerolog.Logger
	Reporting   generic.Currency
	DueSoonDays int
	Seed        factory.LedgerSeed // base ledger for resets and scenarios
}

// NewHandler validates the seed and wires one service per engine.
func NewHandler(opts Options) (*Handler, error) {
	reporting := opts.Reporting.OrDefault(generic.USD)
	ledger, err := opts.Seed.Build(reporting)
	if err != nil {
		return nil, fmt.Errorf("build seed ledger: %w", err)
	}
	clock := opts.Clock
	if clock == nil {
		clock = generic.SystemClock{}
	}
	conv := opts.Converter
	if conv == nil {
		conv = generic.NewConverter(nil, opts.Log)
	}

	h := &Handler{
		Store:     opts.Store,
		Clock:     clock,
		Converter: conv,
		Rates:     opts.Rates,
		Log:       opts.Log,
		Reporting: reporting,
		seed:      opts.Seed,
		ledger:    ledger,
	}
	h.Paydays = &payday.Orchestrator{
		Store:           opts.Store,
		Clock:           clock,
		Log:             opts.Log.With().Str("component", "payday").Logger(),
		Currency:        reporting,
		Defaults:        &ledger.Settings,
		CharityDefaults: &ledger.Charity,
		SavingsDefaults: &ledger.SavingsSettings,
		OnRecorded:      func(payday.Result) { metrics.IncPaydayRecorded() },
	}
	h.Bills = &bills.Service{
		Store:       opts.Store,
		Clock:       clock,
		Converter:   conv,
		Log:         opts.Log.With().Str("component", "bills").Logger(),
		Reporting:   reporting,
		DueSoonDays: opts.DueSoonDays,
		OnToggle:    metrics.IncBillToggle,
	}
	h.Debts = &debts.Service{
		Store:       opts.Store,
		Clock:       clock,
		Converter:   conv,
		Log:         opts.Log.With().Str("component", "debts").Logger(),
		Reporting:   reporting,
		DueSoonDays: opts.DueSoonDays,
		OnPaidOff:   func(debts.Debt) { metrics.IncDebtPaidOff() },
	}
	h.Charity = &charity.Service{
		Store:    opts.Store,
		Clock:    clock,
		Log:      opts.Log.With().Str("component", "charity").Logger(),
		Defaults: &ledger.Charity,
	}
	h.Savings = &savings.Service{
		Store:    opts.Store,
		Clock:    clock,
		Log:      opts.Log.With().Str("component", "savings").Logger(),
		Defaults: &ledger.SavingsSettings,
	}
	return h, nil
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns the figures the home screen shows.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	next, err := h.nextPayday(ctx)
	if err != nil {
		writeServiceError(w, "Failed to load pay schedule", err)
		return
	}
	unpaid, err := h.Bills.UnpaidTotal(ctx)
	if err != nil {
		writeServiceError(w, "Failed to total bills", err)
		return
	}
	upcoming, err := h.Bills.Upcoming(ctx, 5)
	if err != nil {
		writeServiceError(w, "Failed to list bills", err)
		return
	}
	strategy, err := h.Debts.Strategy(ctx)
	if err != nil {
		writeServiceError(w, "Failed to build debt strategy", err)
		return
	}
	fund, err := h.Charity.State(ctx)
	if err != nil {
		writeServiceError(w, "Failed to load charity fund", err)
		return
	}
	sv, err := h.savingsDTO(ctx)
	if err != nil {
		writeServiceError(w, "Failed to load savings", err)
		return
	}
	summary, ok, err := h.Paydays.LatestSummary(ctx)
	if err != nil {
		writeServiceError(w, "Failed to summarize payday", err)
		return
	}

	dto := DashboardDTO{
		AsOf:             h.Clock.Today(),
		NextPayday:       next,
		UnpaidBills:      TotalDTO{Amount: unpaid, Currency: h.Reporting},
		UpcomingBills:    upcoming,
		TotalDebt:        TotalDTO{Amount: strategy.Total, Currency: strategy.Currency},
		CharityAvailable: fund.CurrentAmount,
		Savings:          sv,
	}
	if len(strategy.Items) > 0 {
		dto.TopDebt = &strategy.Items[0]
	}
	if ok {
		dto.LatestAllocation = &summary
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// PAYDAY HANDLERS
// =============================================================================

// ListPaydays returns the payday history, newest first.
func (h *Handler) ListPaydays(w http.ResponseWriter, r *http.Request) {
	history, err := h.Paydays.History(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list paydays", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// RecordPayday records a payday and runs every accrual in one transaction.
func (h *Handler) RecordPayday(w http.ResponseWriter, r *http.Request) {
	var req RecordPaydayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Paydays.RecordPayday(r.Context(), payday.Event{
		Date:        req.Date,
		Income:      req.Income,
		Allocations: req.Allocations,
	})
	if err != nil {
		writeServiceError(w, "Failed to record payday", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetPaydaySettings returns the pay schedule.
func (h *Handler) GetPaydaySettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Paydays.Settings(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to load pay schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdatePaydaySettings changes the frequency and optionally the next date.
func (h *Handler) UpdatePaydaySettings(w http.ResponseWriter, r *http.Request) {
	var req PaydaySettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	freq, err := generic.ParseFrequency(req.Frequency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid frequency", err)
		return
	}

	s, err := h.Paydays.UpdateSettings(r.Context(), payday.Settings{Frequency: freq, NextDate: req.NextDate})
	if err != nil {
		writeServiceError(w, "Failed to update pay schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetNextPayday returns the next payday and the days until it.
func (h *Handler) GetNextPayday(w http.ResponseWriter, r *http.Request) {
	next, err := h.nextPayday(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to load pay schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// GetPaydaySummary returns the allocation split of the latest payday.
func (h *Handler) GetPaydaySummary(w http.ResponseWriter, r *http.Request) {
	summary, ok, err := h.Paydays.LatestSummary(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to summarize payday", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "No payday recorded yet", nil)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) nextPayday(ctx context.Context) (NextPaydayDTO, error) {
	s, err := h.Paydays.Settings(ctx)
	if err != nil {
		return NextPaydayDTO{}, err
	}
	isToday, err := h.Paydays.IsTodayPayday(ctx)
	if err != nil {
		return NextPaydayDTO{}, err
	}
	days, err := h.Paydays.DaysUntilNext(ctx)
	if err != nil {
		return NextPaydayDTO{}, err
	}
	return NextPaydayDTO{Frequency: s.Frequency, NextDate: s.NextDate, DaysUntil: days, IsToday: isToday}, nil
}

// =============================================================================
// BILL HANDLERS
// =============================================================================

// ListBills returns every bill with its status.
func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	list, err := h.Bills.List(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list bills", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateBill adds a bill.
func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req CreateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cur, err := optionalCurrency(req.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid currency", err)
		return
	}

	b, err := h.Bills.Add(r.Context(), bills.NewBill{
		Name:              req.Name,
		TotalAmount:       req.TotalAmount,
		AmountPerPaycheck: req.AmountPerPaycheck,
		Currency:          cur,
		DueDate:           req.DueDate,
	})
	if err != nil {
		writeServiceError(w, "Failed to create bill", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GetBill returns a single bill.
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	v, err := h.Bills.Get(r.Context(), idParam(r))
	if err != nil {
		writeServiceError(w, "Failed to get bill", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeleteBill removes a bill.
func (h *Handler) DeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := h.Bills.Remove(r.Context(), idParam(r)); err != nil {
		writeServiceError(w, "Failed to delete bill", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetBillPaid marks the current cycle of a bill paid or unpaid.
func (h *Handler) SetBillPaid(w http.ResponseWriter, r *http.Request) {
	var req SetPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	v, err := h.Bills.SetPaid(r.Context(), idParam(r), req.Paid)
	if err != nil {
		writeServiceError(w, "Failed to update bill", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// UpcomingBills returns the next unpaid bills. Default limit is 5.
func (h *Handler) UpcomingBills(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	list, err := h.Bills.Upcoming(r.Context(), limit)
	if err != nil {
		writeServiceError(w, "Failed to list bills", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// BillHistory returns every bill payment, newest first.
func (h *Handler) BillHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Bills.History(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to load bill history", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// UnpaidBillsTotal returns the unpaid total in the reporting currency.
func (h *Handler) UnpaidBillsTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.Bills.UnpaidTotal(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to total bills", err)
		return
	}
	writeJSON(w, http.StatusOK, TotalDTO{Amount: total, Currency: h.Reporting})
}

// RolloverBills advances satisfied, past-due bills to their next cycle.
func (h *Handler) RolloverBills(w http.ResponseWriter, r *http.Request) {
	moved, err := h.Bills.RolloverDue(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to roll over bills", err)
		return
	}
	if moved == nil {
		moved = []bills.Bill{}
	}
	writeJSON(w, http.StatusOK, moved)
}

// =============================================================================
// DEBT HANDLERS
// =============================================================================

// ListDebts returns every debt.
func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Debts.List(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list debts", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateDebt adds a debt.
func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req CreateDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cur, err := optionalCurrency(req.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid currency", err)
		return
	}

	d, err := h.Debts.Add(r.Context(), debts.NewDebt{
		Name:                req.Name,
		Balance:             req.Balance,
		Currency:            cur,
		InterestRatePercent: req.InterestRate,
		MinimumPayment:      req.MinimumPayment,
		DueDate:             req.DueDate,
	})
	if err != nil {
		writeServiceError(w, "Failed to create debt", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GetDebt returns a single debt.
func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	v, err := h.Debts.Get(r.Context(), idParam(r))
	if err != nil {
		writeServiceError(w, "Failed to get debt", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DeleteDebt removes a debt.
func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.Debts.Remove(r.Context(), idParam(r)); err != nil {
		writeServiceError(w, "Failed to delete debt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordDebtPayment applies a payment to a debt.
func (h *Handler) RecordDebtPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date := h.Clock.Today()
	if req.Date != nil {
		date = *req.Date
	}

	d, paidOff, err := h.Debts.RecordPayment(r.Context(), idParam(r), req.Amount, date)
	if err != nil {
		writeServiceError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, PaymentDTO{Debt: d, PaidOff: paidOff})
}

// DebtSchedule projects payoff of one debt. Without ?monthly= the minimum
// payment is used.
func (h *Handler) DebtSchedule(w http.ResponseWriter, r *http.Request) {
	monthly := decimal.Zero
	if s := r.URL.Query().Get("monthly"); s != "" {
		m, err := generic.ParseAmount("monthly", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid monthly payment", err)
			return
		}
		monthly = m
	}

	sched, err := h.Debts.Schedule(r.Context(), idParam(r), monthly)
	if err != nil {
		writeServiceError(w, "Failed to project debt", err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// DebtStrategy returns the ranked payoff plan.
func (h *Handler) DebtStrategy(w http.ResponseWriter, r *http.Request) {
	s, err := h.Debts.Strategy(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to build debt strategy", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PrioritizedDebts returns the open debts in payoff order.
func (h *Handler) PrioritizedDebts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Debts.Prioritized(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to prioritize debts", err)
		return
	}
	if list == nil {
		list = []debts.Debt{}
	}
	writeJSON(w, http.StatusOK, list)
}

// DebtTotal returns the open balance in the reporting currency.
func (h *Handler) DebtTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.Debts.Total(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to total debts", err)
		return
	}
	writeJSON(w, http.StatusOK, TotalDTO{Amount: total, Currency: h.Reporting})
}

// =============================================================================
// CHARITY HANDLERS
// =============================================================================

// GetCharity returns the fund.
func (h *Handler) GetCharity(w http.ResponseWriter, r *http.Request) {
	st, err := h.Charity.State(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to load charity fund", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateCharitySettings replaces the increment and recurring donations.
func (h *Handler) UpdateCharitySettings(w http.ResponseWriter, r *http.Request) {
	var req CharitySettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	st, err := h.Charity.Configure(r.Context(), charity.Settings{
		IncrementAmount:    req.IncrementAmount,
		RecurringDonations: req.RecurringDonations,
	})
	if err != nil {
		writeServiceError(w, "Failed to update charity settings", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListDonations returns every deduction, newest first.
func (h *Handler) ListDonations(w http.ResponseWriter, r *http.Request) {
	history, err := h.Charity.History(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to load donations", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// CreateDonation records a manual donation.
func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req DonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date := h.Clock.Today()
	if req.Date != nil {
		date = *req.Date
	}

	st, err := h.Charity.Donate(r.Context(), charity.Deduction{
		Date:        date,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, "Failed to record donation", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// =============================================================================
// SAVINGS HANDLERS
// =============================================================================

// GetSavings returns the balance and the per-paycheck amount.
func (h *Handler) GetSavings(w http.ResponseWriter, r *http.Request) {
	dto, err := h.savingsDTO(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to load savings", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// UpdateSavingsSettings changes the per-paycheck amount and currency.
func (h *Handler) UpdateSavingsSettings(w http.ResponseWriter, r *http.Request) {
	var req SavingsSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Savings.UpdateSettings(r.Context(), savings.Settings{
		AmountPerPaycheck: req.AmountPerPaycheck,
		Currency:          generic.Currency(req.Currency),
	})
	if err != nil {
		writeServiceError(w, "Failed to update savings settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SavingsHistory returns every savings entry, newest first.
func (h *Handler) SavingsHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Savings.History(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to load savings history", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) savingsDTO(ctx context.Context) (SavingsDTO, error) {
	st, err := h.Savings.State(ctx)
	if err != nil {
		return SavingsDTO{}, err
	}
	s, err := h.Savings.Settings(ctx)
	if err != nil {
		return SavingsDTO{}, err
	}
	return SavingsDTO{Balance: st.Balance, Currency: s.Currency, AmountPerPaycheck: s.AmountPerPaycheck}, nil
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// GetRates returns the current conversion table keyed "FROM_TO".
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ratesDTO())
}

// RefreshRates pulls the reference rate feed into the converter. On failure
// the current table stays in place.
func (h *Handler) RefreshRates(w http.ResponseWriter, r *http.Request) {
	if h.Rates == nil {
		writeError(w, http.StatusServiceUnavailable, "Rate feed not configured", nil)
		return
	}
	if _, err := h.Rates.Refresh(r.Context(), h.Converter); err != nil {
		writeError(w, http.StatusBadGateway, "Failed to refresh rates", err)
		return
	}
	writeJSON(w, http.StatusOK, h.ratesDTO())
}

// Convert converts ?amount= from ?from= to ?to=.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := generic.ParseAmount("amount", q.Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	from, err := generic.ParseCurrency(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from currency", err)
		return
	}
	to, err := generic.ParseCurrency(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to currency", err)
		return
	}

	_, known := h.Converter.Rate(from, to)
	writeJSON(w, http.StatusOK, ConvertDTO{
		Amount:   amount,
		From:     from,
		To:       to,
		Result:   h.Converter.Convert(amount, from, to),
		Fallback: from != to && !known,
	})
}

func (h *Handler) ratesDTO() RatesDTO {
	table := h.Converter.Rates()
	out := make(map[string]decimal.Decimal, len(table))
	for pair, rate := range table {
		out[pair.String()] = rate
	}
	return RatesDTO{Rates: out, Fallbacks: h.Converter.Fallbacks()}
}

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// ExportLedger returns every section as an XLSX workbook.
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	l, err := h.reportLedger(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to load ledger", err)
		return
	}
	data, err := report.BuildWorkbook(l)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	writeFile(w, contentTypeXLSX, "ledger.xlsx", data)
}

// ExportStrategy returns the debt payoff plan as a PDF, with a minimum
// payment schedule per open debt.
func (h *Handler) ExportStrategy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	strategy, err := h.Debts.Strategy(ctx)
	if err != nil {
		writeServiceError(w, "Failed to build debt strategy", err)
		return
	}
	schedules := make(map[generic.ID]debts.Schedule, len(strategy.Items))
	for _, item := range strategy.Items {
		s, err := h.Debts.Schedule(ctx, item.Debt.ID, decimal.Zero)
		if err != nil {
			writeServiceError(w, "Failed to project debt", err)
			return
		}
		schedules[item.Debt.ID] = s
	}

	data, err := report.BuildStrategyPDF(strategy, schedules, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build PDF", err)
		return
	}
	writeFile(w, contentTypePDF, "strategy.pdf", data)
}

func (h *Handler) reportLedger(ctx context.Context) (report.Ledger, error) {
	paydays, err := h.Paydays.History(ctx)
	if err != nil {
		return report.Ledger{}, err
	}
	billList, err := h.Bills.List(ctx)
	if err != nil {
		return report.Ledger{}, err
	}
	debtList, err := h.Debts.List(ctx)
	if err != nil {
		return report.Ledger{}, err
	}
	sv, err := h.Savings.State(ctx)
	if err != nil {
		return report.Ledger{}, err
	}
	fund, err := h.Charity.State(ctx)
	if err != nil {
		return report.Ledger{}, err
	}
	return report.Ledger{
		GeneratedAt: time.Now(),
		Paydays:     paydays,
		Bills:       billList,
		Debts:       debtList,
		Savings:     sv,
		Charity:     fund,
	}, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// ResetDatabase clears every section and writes the seed ledger again.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context(), h.ledger); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Seed writes every section of the base ledger that does not exist yet.
func (h *Handler) Seed(ctx context.Context) error {
	_, err := factory.Apply(ctx, h.Store, h.ledger, h.Log)
	return err
}

// reset deletes every section and applies l in one transaction.
func (h *Handler) reset(ctx context.Context, l factory.Ledger) error {
	err := h.Store.WithTx(ctx, func(tx generic.SectionStore) error {
		for _, name := range generic.AllSections {
			if err := tx.DeleteSection(ctx, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = factory.Apply(ctx, h.Store, l, h.Log)
	return err
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps an engine error to its HTTP status.
func writeServiceError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrConcurrentModification):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func idParam(r *http.Request) generic.ID {
	return generic.ID(chi.URLParam(r, "id"))
}

// optionalCurrency accepts an empty code, which means the reporting currency.
func optionalCurrency(s string) (generic.Currency, error) {
	if s == "" {
		return "", nil
	}
	return generic.ParseCurrency(s)
}
