/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built ledgers that populate the store with realistic data
	for demos. Each scenario is a seed on top of the configured base seed:
	pay schedule, savings and charity settings come from configuration,
	the scenario adds bills and debts dated relative to today.

AVAILABLE SCENARIOS:

	fresh-start:   Configured defaults only, no bills or debts
	bills-due:     Rent, phone and insurance with one overdue bill
	debt-payoff:   Three debts across two currencies
	full-ledger:   Bills, debts and a larger savings target

HOW SCENARIOS WORK:
 1. Delete every section
 2. Build the scenario seed through the factory
 3. Apply it in one transaction

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "debt-payoff"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description and seed func

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - factory/seed.go: Seed schema
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/payday-engine/factory"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	seed func(base factory.LedgerSeed, today generic.TimePoint) factory.LedgerSeed
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "fresh-start",
			Name:        "Fresh Start",
			Description: "Configured pay schedule, savings and charity with no bills or debts",
		},
		seed: func(base factory.LedgerSeed, _ generic.TimePoint) factory.LedgerSeed { return base },
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "bills-due",
			Name:        "Bills Due",
			Description: "Three monthly bills, one of them overdue",
		},
		seed: func(base factory.LedgerSeed, today generic.TimePoint) factory.LedgerSeed {
			base.Bills = householdBills(today)
			return base
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "debt-payoff",
			Name:        "Debt Payoff",
			Description: "Credit card, car loan and a CAD line of credit ranked for payoff",
		},
		seed: func(base factory.LedgerSeed, today generic.TimePoint) factory.LedgerSeed {
			base.Debts = householdDebts(today)
			return base
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "full-ledger",
			Name:        "Full Ledger",
			Description: "Bills, debts and a 250 per paycheck savings target",
		},
		seed: func(base factory.LedgerSeed, today generic.TimePoint) factory.LedgerSeed {
			base.Bills = householdBills(today)
			base.Debts = householdDebts(today)
			sv := factory.SavingsSeed{AmountPerPaycheck: "250", Currency: "CAD", Balance: "1500"}
			if base.Savings != nil {
				sv.Currency = base.Savings.Currency
			}
			base.Savings = &sv
			return base
		},
	},
}

func householdBills(today generic.TimePoint) []factory.BillSeed {
	return []factory.BillSeed{
		{Name: "Rent", TotalAmount: "1800", AmountPerPaycheck: "900", DueDate: today.AddDays(12).String()},
		{Name: "Phone", TotalAmount: "85", AmountPerPaycheck: "42.50", DueDate: today.AddDays(3).String()},
		{Name: "Car Insurance", TotalAmount: "140", AmountPerPaycheck: "70", DueDate: today.AddDays(-2).String()},
	}
}

func householdDebts(today generic.TimePoint) []factory.DebtSeed {
	return []factory.DebtSeed{
		{Name: "Visa", Balance: "2400", InterestRate: "19.99", MinimumPayment: "75", DueDate: today.AddDays(5).String()},
		{Name: "Car Loan", Balance: "9800", InterestRate: "6.4", MinimumPayment: "320", DueDate: today.AddDays(20).String()},
		{Name: "Line of Credit", Balance: "3000", Currency: "CAD", InterestRate: "9.5", MinimumPayment: "60"},
	}
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	id := h.CurrentScenario()
	if id == "" {
		writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
		return
	}
	s, _ := findScenario(id)
	writeJSON(w, http.StatusOK, map[string]any{"scenario": s.ScenarioDTO})
}

// LoadScenario resets the store and loads a demo scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		writeServiceError(w, fmt.Sprintf("Failed to load scenario %q", req.ScenarioID), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	s, ok := findScenario(id)
	if !ok {
		return generic.Invalid("scenario_id", fmt.Sprintf("unknown scenario %q", id))
	}
	ledger, err := s.seed(h.seed, h.Clock.Today()).Build(h.Reporting)
	if err != nil {
		return err
	}
	if err := h.reset(ctx, ledger); err != nil {
		return err
	}
	h.setCurrentScenario(id)
	h.Log.Info().Str("scenario", id).Msg("scenario loaded")
	return nil
}

// CurrentScenario returns the loaded scenario ID, or "" after a reset.
func (h *Handler) CurrentScenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}
