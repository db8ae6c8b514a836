/*
Package factory turns seed documents into initial ledger sections.

PURPOSE:
  A new ledger starts from a seed: pay schedule, savings and charity
  settings, and optionally some bills and debts. Seeds are plain JSON or
  YAML so they can live next to the deployment config; the factory
  validates them and builds the engine types.

SEED SCHEMA (YAML shown, JSON uses the same keys):
  payday:
    frequency: biweekly        # weekly | biweekly | monthly
    next_date: "2025-04-18"
  savings:
    amount_per_paycheck: "100"
    currency: CAD
  charity:
    base_amount: "100"
    increment_amount: "100"
    recurring:
      - amount: "50"
        currency: USD
        description: Monthly Donation
        schedule: second-paycheck
  bills:
    - name: Rent
      total_amount: "1200"
      amount_per_paycheck: "600"
      due_date: "2025-05-01"
  debts:
    - name: Visa
      balance: "2500"
      interest_rate: "19.99"
      minimum_payment: "75"

KEY FEATURES:
  - Amounts are strings so no precision is lost in transit
  - Apply only writes sections that do not exist yet
  - Every write happens in one transaction

SEE ALSO:
  - config/config.go: Defaults builds a seed from configuration
  - api/scenarios.go: demo ledgers built on top of seeds
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/payday-engine/bills"
	"github.com/warp/payday-engine/charity"
	"github.com/warp/payday-engine/config"
	"github.com/warp/payday-engine/debts"
	"github.com/warp/payday-engine/generic"
	"github.com/warp/payday-engine/payday"
	"github.com/warp/payday-engine/savings"
)

// =============================================================================
// SEED SCHEMA TYPES
// =============================================================================

type LedgerSeed struct {
	Payday  *PaydaySeed  `json:"payday,omitempty" yaml:"payday,omitempty"`
	Savings *SavingsSeed `json:"savings,omitempty" yaml:"savings,omitempty"`
	Charity *CharitySeed `json:"charity,omitempty" yaml:"charity,omitempty"`
	Bills   []BillSeed   `json:"bills,omitempty" yaml:"bills,omitempty"`
	Debts   []DebtSeed   `json:"debts,omitempty" yaml:"debts,omitempty"`
}

type PaydaySeed struct {
	Frequency string `json:"frequency" yaml:"frequency"`
	NextDate  string `json:"next_date,omitempty" yaml:"next_date,omitempty"`
}

type SavingsSeed struct {
	AmountPerPaycheck string `json:"amount_per_paycheck" yaml:"amount_per_paycheck"`
	Currency          string `json:"currency" yaml:"currency"`
	Balance           string `json:"balance,omitempty" yaml:"balance,omitempty"` // opening balance, no history entry
}

type CharitySeed struct {
	BaseAmount      string          `json:"base_amount" yaml:"base_amount"`
	IncrementAmount string          `json:"increment_amount" yaml:"increment_amount"`
	CurrentAmount   string          `json:"current_amount,omitempty" yaml:"current_amount,omitempty"` // defaults to base_amount
	Recurring       []RecurringSeed `json:"recurring" yaml:"recurring"`
}

type RecurringSeed struct {
	Amount      string `json:"amount" yaml:"amount"`
	Currency    string `json:"currency,omitempty" yaml:"currency,omitempty"`
	Description string `json:"description" yaml:"description"`
	Schedule    string `json:"schedule,omitempty" yaml:"schedule,omitempty"` // defaults to second-paycheck
}

type BillSeed struct {
	Name              string `json:"name" yaml:"name"`
	TotalAmount       string `json:"total_amount" yaml:"total_amount"`
	AmountPerPaycheck string `json:"amount_per_paycheck" yaml:"amount_per_paycheck"`
	Currency          string `json:"currency,omitempty" yaml:"currency,omitempty"`
	DueDate           string `json:"due_date" yaml:"due_date"`
}

type DebtSeed struct {
	Name           string `json:"name" yaml:"name"`
	Balance        string `json:"balance" yaml:"balance"`
	Currency       string `json:"currency,omitempty" yaml:"currency,omitempty"`
	InterestRate   string `json:"interest_rate,omitempty" yaml:"interest_rate,omitempty"`
	MinimumPayment string `json:"minimum_payment,omitempty" yaml:"minimum_payment,omitempty"`
	DueDate        string `json:"due_date,omitempty" yaml:"due_date,omitempty"`
}

// Ledger is a validated seed, ready to be written.
type Ledger struct {
	Settings        payday.Settings
	SavingsSettings savings.Settings
	Savings         savings.State
	Charity         charity.State
	Bills           []bills.Bill
	Debts           []debts.Debt
}

// =============================================================================
// PARSING
// =============================================================================

func ParseJSON(data []byte) (LedgerSeed, error) {
	var s LedgerSeed
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse seed JSON: %w", err)
	}
	return s, nil
}

func ParseYAML(data []byte) (LedgerSeed, error) {
	var s LedgerSeed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse seed YAML: %w", err)
	}
	return s, nil
}

// LoadFile reads a seed, choosing the format by extension.
func LoadFile(path string) (LedgerSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LedgerSeed{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return LedgerSeed{}, fmt.Errorf("seed %s: unsupported extension", path)
	}
}

// Defaults builds the seed that mirrors the configured defaults.
func Defaults(cfg *config.Config) LedgerSeed {
	recurring := make([]RecurringSeed, 0, len(cfg.Charity.Recurring))
	for _, r := range cfg.Charity.Recurring {
		recurring = append(recurring, RecurringSeed(r))
	}
	return LedgerSeed{
		Payday: &PaydaySeed{Frequency: cfg.Payday.Frequency, NextDate: cfg.Payday.NextDate},
		Savings: &SavingsSeed{
			AmountPerPaycheck: cfg.Savings.AmountPerPaycheck,
			Currency:          cfg.Savings.Currency,
		},
		Charity: &CharitySeed{
			BaseAmount:      cfg.Charity.BaseAmount,
			IncrementAmount: cfg.Charity.IncrementAmount,
			Recurring:       recurring,
		},
	}
}

// =============================================================================
// BUILD
// =============================================================================

// Build validates the seed. Missing blocks fall back to the engine
// defaults; def is the currency for bills and debts that name none.
func (s LedgerSeed) Build(def generic.Currency) (Ledger, error) {
	l := Ledger{
		Settings:        payday.DefaultSettings(),
		SavingsSettings: savings.DefaultSettings(),
		Savings:         savings.DefaultState(),
		Charity:         charity.DefaultState(),
		Bills:           []bills.Bill{},
		Debts:           []debts.Debt{},
	}

	if p := s.Payday; p != nil {
		freq, err := generic.ParseFrequency(p.Frequency)
		if err != nil {
			return Ledger{}, err
		}
		l.Settings.Frequency = freq
		if p.NextDate != "" {
			next, err := parseDate("payday.next_date", p.NextDate)
			if err != nil {
				return Ledger{}, err
			}
			l.Settings.NextDate = &next
		}
	}

	if sv := s.Savings; sv != nil {
		amount, err := generic.ParseAmount("savings.amount_per_paycheck", sv.AmountPerPaycheck)
		if err != nil {
			return Ledger{}, err
		}
		cur, err := generic.ParseCurrency(sv.Currency)
		if err != nil {
			return Ledger{}, err
		}
		l.SavingsSettings = savings.Settings{AmountPerPaycheck: amount, Currency: cur}
		if err := l.SavingsSettings.Validate(); err != nil {
			return Ledger{}, err
		}
		if sv.Balance != "" {
			if l.Savings.Balance, err = generic.ParseAmount("savings.balance", sv.Balance); err != nil {
				return Ledger{}, err
			}
		}
	}

	if c := s.Charity; c != nil {
		st, err := c.build()
		if err != nil {
			return Ledger{}, err
		}
		l.Charity = st
	}

	for i, bs := range s.Bills {
		b, err := bs.build(def)
		if err != nil {
			return Ledger{}, fmt.Errorf("bills[%d]: %w", i, err)
		}
		l.Bills = append(l.Bills, b)
	}
	for i, ds := range s.Debts {
		d, err := ds.build(def)
		if err != nil {
			return Ledger{}, fmt.Errorf("debts[%d]: %w", i, err)
		}
		l.Debts = append(l.Debts, d)
	}
	return l, nil
}

func (c CharitySeed) build() (charity.State, error) {
	base, err := generic.ParseAmount("charity.base_amount", c.BaseAmount)
	if err != nil {
		return charity.State{}, err
	}
	inc, err := generic.ParseAmount("charity.increment_amount", c.IncrementAmount)
	if err != nil {
		return charity.State{}, err
	}
	current := base
	if c.CurrentAmount != "" {
		if current, err = generic.ParseAmount("charity.current_amount", c.CurrentAmount); err != nil {
			return charity.State{}, err
		}
	}
	st := charity.State{
		BaseAmount:         base,
		IncrementAmount:    inc,
		CurrentAmount:      generic.ClampZero(current),
		RecurringDonations: []charity.RecurringDonation{},
		Deductions:         []charity.Deduction{},
	}
	for _, r := range c.Recurring {
		amount, err := generic.ParseAmount("charity.recurring.amount", r.Amount)
		if err != nil {
			return charity.State{}, err
		}
		d := charity.RecurringDonation{
			Amount:      amount,
			Currency:    generic.Currency(strings.ToUpper(r.Currency)).OrDefault(generic.USD),
			Description: strings.TrimSpace(r.Description),
			Schedule:    charity.Schedule(r.Schedule),
		}
		if d.Schedule == "" {
			d.Schedule = charity.ScheduleSecondPaycheck
		}
		if err := charity.ValidateRecurring(d); err != nil {
			return charity.State{}, err
		}
		st.RecurringDonations = append(st.RecurringDonations, d)
	}
	return st, nil
}

func (bs BillSeed) build(def generic.Currency) (bills.Bill, error) {
	total, err := generic.ParseAmount("total_amount", bs.TotalAmount)
	if err != nil {
		return bills.Bill{}, err
	}
	per, err := generic.ParseAmount("amount_per_paycheck", bs.AmountPerPaycheck)
	if err != nil {
		return bills.Bill{}, err
	}
	due, err := parseDate("due_date", bs.DueDate)
	if err != nil {
		return bills.Bill{}, err
	}
	in := bills.NewBill{
		Name:              strings.TrimSpace(bs.Name),
		TotalAmount:       total,
		AmountPerPaycheck: per,
		Currency:          generic.Currency(strings.ToUpper(bs.Currency)),
		DueDate:           due,
	}
	if err := in.Validate(); err != nil {
		return bills.Bill{}, err
	}
	return in.Build(def), nil
}

func (ds DebtSeed) build(def generic.Currency) (debts.Debt, error) {
	balance, err := generic.ParseAmount("balance", ds.Balance)
	if err != nil {
		return debts.Debt{}, err
	}
	rate, err := optionalAmount("interest_rate", ds.InterestRate)
	if err != nil {
		return debts.Debt{}, err
	}
	minimum, err := optionalAmount("minimum_payment", ds.MinimumPayment)
	if err != nil {
		return debts.Debt{}, err
	}
	in := debts.NewDebt{
		Name:                strings.TrimSpace(ds.Name),
		Balance:             balance,
		Currency:            generic.Currency(strings.ToUpper(ds.Currency)),
		InterestRatePercent: rate,
		MinimumPayment:      minimum,
	}
	if ds.DueDate != "" {
		due, err := parseDate("due_date", ds.DueDate)
		if err != nil {
			return debts.Debt{}, err
		}
		in.DueDate = &due
	}
	if err := in.Validate(); err != nil {
		return debts.Debt{}, err
	}
	return in.Build(def), nil
}

func optionalAmount(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return generic.ParseAmount(field, s)
}

func parseDate(field, s string) (generic.TimePoint, error) {
	d, err := generic.ParseDate(s)
	if err != nil {
		return d, generic.Invalid(field, fmt.Sprintf("%q is not a valid date", s))
	}
	return d, nil
}

// =============================================================================
// APPLY
// =============================================================================

// Apply writes every section of l that does not exist yet and returns the
// names it wrote. Existing sections are never touched.
func Apply(ctx context.Context, st generic.TxStore, l Ledger, log zerolog.Logger) ([]generic.SectionName, error) {
	values := []struct {
		name generic.SectionName
		v    any
	}{
		{generic.SectionPaydaySettings, l.Settings},
		{generic.SectionPaydays, []payday.Event{}},
		{generic.SectionBills, l.Bills},
		{generic.SectionDebts, l.Debts},
		{generic.SectionCharity, l.Charity},
		{generic.SectionSavings, l.Savings},
		{generic.SectionSavingsSettings, l.SavingsSettings},
	}

	var written []generic.SectionName
	err := st.WithTx(ctx, func(tx generic.SectionStore) error {
		written = written[:0]
		for _, sv := range values {
			sec, err := tx.GetSection(ctx, sv.name)
			if err != nil {
				return err
			}
			if sec.Exists() {
				continue
			}
			if err := generic.SaveSection(ctx, tx, sv.name, sv.v); err != nil {
				return err
			}
			written = append(written, sv.name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed ledger: %w", err)
	}
	if len(written) > 0 {
		names := make([]string, len(written))
		for i, n := range written {
			names[i] = string(n)
		}
		log.Info().Strs("sections", names).Msg("ledger seeded")
	}
	return written, nil
}
