package charity

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// CHARITY SERVICE
// =============================================================================

type Service struct {
	Store    generic.SectionStore
	Clock    generic.Clock
	Log      zerolog.Logger
	IsSecond generic.OccurrencePredicate // nil means generic.IsSecondOccurrenceOfMonth
	Defaults *State                      // used while the section is absent; nil means DefaultState()
}

func (s *Service) defaults() State {
	if s.Defaults == nil {
		return DefaultState()
	}
	return *s.Defaults
}

// State returns the stored fund, or the defaults when none is stored yet.
func (s *Service) State(ctx context.Context) (State, error) {
	return generic.LoadSectionOr(ctx, s.Store, generic.SectionCharity, s.defaults())
}

// History returns every deduction, newest first.
func (s *Service) History(ctx context.Context) ([]Deduction, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return History(st), nil
}

// Donate records a manual donation.
func (s *Service) Donate(ctx context.Context, d Deduction) (State, error) {
	if err := ValidateDonation(d); err != nil {
		return State{}, err
	}
	st, err := generic.UpdateSection(ctx, s.Store, generic.SectionCharity, s.defaults(), func(cur State) (State, error) {
		return Donate(cur, d)
	})
	if err != nil {
		return State{}, err
	}
	s.Log.Info().
		Str("amount", d.Amount.String()).
		Str("current", st.CurrentAmount.String()).
		Msg("charity donation recorded")
	return st, nil
}

// Settings are the user-editable parts of the fund.
type Settings struct {
	IncrementAmount    decimal.Decimal
	RecurringDonations []RecurringDonation
}

// Configure replaces the increment and the recurring donations. The current
// amount and deduction history are kept.
func (s *Service) Configure(ctx context.Context, in Settings) (State, error) {
	if err := generic.RequireNonNegative("incrementAmount", in.IncrementAmount); err != nil {
		return State{}, err
	}
	for _, d := range in.RecurringDonations {
		if err := ValidateRecurring(d); err != nil {
			return State{}, err
		}
	}
	recurring := in.RecurringDonations
	if recurring == nil {
		recurring = []RecurringDonation{}
	}
	return generic.UpdateSection(ctx, s.Store, generic.SectionCharity, s.defaults(), func(cur State) (State, error) {
		cur.IncrementAmount = in.IncrementAmount
		cur.RecurringDonations = recurring
		return cur, nil
	})
}

// ProcessPayday runs OnPayday against the store's charity section.
func (s *Service) ProcessPayday(ctx context.Context, payday generic.TimePoint) (State, bool, error) {
	return ProcessPayday(ctx, s.Store, payday, s.Clock.Today(), s.IsSecond, s.defaults())
}

// ProcessPayday is the store step of a payday: load, accrue, persist once.
// Nothing is written when the payday lies in the future. It takes the store
// explicitly so callers can run it inside a transaction.
func ProcessPayday(ctx context.Context, st generic.SectionStore, payday, today generic.TimePoint, isSecond generic.OccurrencePredicate, def State) (State, bool, error) {
	cur, version, err := generic.LoadSection[State](ctx, st, generic.SectionCharity)
	if err != nil {
		return State{}, false, err
	}
	if version == 0 {
		cur = def
	}
	next, applied := OnPayday(cur, payday, today, isSecond)
	if !applied {
		return cur, false, nil
	}
	if err := generic.SaveSectionIfVersion(ctx, st, generic.SectionCharity, next, version); err != nil {
		return cur, false, err
	}
	return next, true, nil
}
