package debts

import (
	"context"
	"slices"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// DEBT SERVICE - Store-backed debt operations
// =============================================================================

// PayoffNotifier is told when a payment clears a debt.
type PayoffNotifier func(d Debt)

type Service struct {
	Store       generic.SectionStore
	Clock       generic.Clock
	Converter   *generic.Converter
	Log         zerolog.Logger
	Reporting   generic.Currency // currency for totals and strategy
	DueSoonDays int              // 0 means DefaultDueSoonDays

	OnPaidOff PayoffNotifier // optional
}

// View is a debt with display-only derived fields.
type View struct {
	Debt
	PaidOff   bool            `json:"paidOff"`
	TotalPaid decimal.Decimal `json:"totalPaid"`
	Overdue   bool            `json:"overdue"`
	DueSoon   bool            `json:"dueSoon"`
	DaysUntil *int            `json:"daysUntil"`
}

func (s *Service) dueSoon() int {
	if s.DueSoonDays <= 0 {
		return DefaultDueSoonDays
	}
	return s.DueSoonDays
}

func (s *Service) reporting() generic.Currency { return s.Reporting.OrDefault(generic.USD) }

func (s *Service) load(ctx context.Context) ([]Debt, error) {
	debts, _, err := generic.LoadSection[[]Debt](ctx, s.Store, generic.SectionDebts)
	return debts, err
}

func (s *Service) view(d Debt, today generic.TimePoint) View {
	v := View{Debt: d, PaidOff: d.IsPaidOff(), TotalPaid: d.TotalPaid()}
	if d.DueDate != nil {
		days := generic.DaysBetween(today, *d.DueDate)
		v.DaysUntil = &days
		v.Overdue = days < 0
		v.DueSoon = days >= 0 && days <= s.dueSoon()
	}
	return v
}

// List returns every debt in display order.
func (s *Service) List(ctx context.Context) ([]View, error) {
	debts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	today := s.Clock.Today()
	out := make([]View, 0, len(debts))
	for _, d := range SortForDisplay(debts) {
		out = append(out, s.view(d, today))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id generic.ID) (View, error) {
	debts, err := s.load(ctx)
	if err != nil {
		return View{}, err
	}
	i := Find(debts, id)
	if i < 0 {
		return View{}, &generic.NotFoundError{Kind: "debt", ID: string(id)}
	}
	return s.view(debts[i], s.Clock.Today()), nil
}

// Add validates and stores a new debt.
func (s *Service) Add(ctx context.Context, in NewDebt) (Debt, error) {
	if err := in.Validate(); err != nil {
		return Debt{}, err
	}
	debt := in.Build(s.reporting())
	if _, err := generic.UpdateSection(ctx, s.Store, generic.SectionDebts, []Debt{}, func(cur []Debt) ([]Debt, error) {
		return append(cur, debt), nil
	}); err != nil {
		return Debt{}, err
	}
	s.Log.Info().Str("debt_id", string(debt.ID)).Str("name", debt.Name).Msg("debt added")
	return debt, nil
}

// Remove deletes a debt and its payment history.
func (s *Service) Remove(ctx context.Context, id generic.ID) error {
	_, err := generic.UpdateSection(ctx, s.Store, generic.SectionDebts, []Debt{}, func(cur []Debt) ([]Debt, error) {
		i := Find(cur, id)
		if i < 0 {
			return nil, &generic.NotFoundError{Kind: "debt", ID: string(id)}
		}
		return slices.Delete(slices.Clone(cur), i, i+1), nil
	})
	if err != nil {
		return err
	}
	s.Log.Info().Str("debt_id", string(id)).Msg("debt removed")
	return nil
}

// RecordPayment applies a payment. A debt that is already paid off rejects
// further payments.
func (s *Service) RecordPayment(ctx context.Context, id generic.ID, amount decimal.Decimal, date generic.TimePoint) (Debt, bool, error) {
	if err := ValidatePayment(amount, date); err != nil {
		return Debt{}, false, err
	}
	var (
		updated Debt
		paidOff bool
	)
	_, err := generic.UpdateSection(ctx, s.Store, generic.SectionDebts, []Debt{}, func(cur []Debt) ([]Debt, error) {
		i := Find(cur, id)
		if i < 0 {
			return nil, &generic.NotFoundError{Kind: "debt", ID: string(id)}
		}
		if cur[i].IsPaidOff() {
			return nil, generic.Invalid("debt", "already paid off")
		}
		next := slices.Clone(cur)
		next[i], paidOff = ApplyPayment(next[i], amount, date)
		updated = next[i]
		return next, nil
	})
	if err != nil {
		return Debt{}, false, err
	}

	s.Log.Info().
		Str("debt_id", string(id)).
		Str("amount", amount.String()).
		Str("balance", updated.Balance.String()).
		Msg("debt payment recorded")
	if paidOff {
		s.Log.Info().Str("debt_id", string(id)).Str("name", updated.Name).Msg("debt paid off")
		if s.OnPaidOff != nil {
			s.OnPaidOff(updated)
		}
	}
	return updated, paidOff, nil
}

// Prioritized returns the open debts in payoff order.
func (s *Service) Prioritized(ctx context.Context) ([]Debt, error) {
	debts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return Prioritize(debts, s.Clock.Today()), nil
}

// Strategy returns the ranked payoff plan in the reporting currency.
func (s *Service) Strategy(ctx context.Context) (Strategy, error) {
	debts, err := s.load(ctx)
	if err != nil {
		return Strategy{}, err
	}
	return BuildStrategy(debts, s.Clock.Today(), s.Converter, s.reporting(), s.dueSoon()), nil
}

// Schedule projects payoff of one debt. A zero monthly uses the debt's
// minimum payment.
func (s *Service) Schedule(ctx context.Context, id generic.ID, monthly decimal.Decimal) (Schedule, error) {
	if monthly.IsNegative() {
		return Schedule{}, generic.Invalid("monthlyPayment", "must not be negative")
	}
	debts, err := s.load(ctx)
	if err != nil {
		return Schedule{}, err
	}
	i := Find(debts, id)
	if i < 0 {
		return Schedule{}, &generic.NotFoundError{Kind: "debt", ID: string(id)}
	}
	if monthly.IsZero() {
		monthly = debts[i].MinimumPayment
	}
	return Project(debts[i], monthly, s.Clock.Today()), nil
}

// Total sums open balances in the reporting currency.
func (s *Service) Total(ctx context.Context) (decimal.Decimal, error) {
	debts, err := s.load(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return TotalOpen(debts, s.Converter, s.reporting()), nil
}
