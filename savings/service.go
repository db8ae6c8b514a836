package savings

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// SAVINGS SERVICE
// =============================================================================

type Service struct {
	Store    generic.SectionStore
	Clock    generic.Clock
	Log      zerolog.Logger
	Defaults *Settings // used while savings_settings is absent; nil means DefaultSettings()
}

func (s *Service) defaults() Settings {
	if s.Defaults == nil {
		return DefaultSettings()
	}
	return *s.Defaults
}

func (s *Service) State(ctx context.Context) (State, error) {
	return generic.LoadSectionOr(ctx, s.Store, generic.SectionSavings, DefaultState())
}

func (s *Service) Settings(ctx context.Context) (Settings, error) {
	return generic.LoadSectionOr(ctx, s.Store, generic.SectionSavingsSettings, s.defaults())
}

// UpdateSettings replaces the per-paycheck amount and currency. Past
// history entries keep the currency they were recorded in.
func (s *Service) UpdateSettings(ctx context.Context, in Settings) (Settings, error) {
	in, err := in.Normalize()
	if err != nil {
		return Settings{}, err
	}
	if err := generic.SaveSection(ctx, s.Store, generic.SectionSavingsSettings, in); err != nil {
		return Settings{}, err
	}
	s.Log.Info().
		Str("amount_per_paycheck", in.AmountPerPaycheck.String()).
		Str("currency", string(in.Currency)).
		Msg("savings settings updated")
	return in, nil
}

// History returns every accrual, newest first.
func (s *Service) History(ctx context.Context) ([]Entry, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return History(st), nil
}

// ProcessPayday runs OnPayday against the store's savings section.
func (s *Service) ProcessPayday(ctx context.Context, payday generic.TimePoint, override *decimal.Decimal) (State, bool, error) {
	return ProcessPayday(ctx, s.Store, payday, s.Clock.Today(), override, s.defaults())
}

// ProcessPayday loads the settings and the balance, accrues, and persists the
// savings section once. Nothing is written for a future payday.
func ProcessPayday(ctx context.Context, st generic.SectionStore, payday, today generic.TimePoint, override *decimal.Decimal, def Settings) (State, bool, error) {
	settings, err := generic.LoadSectionOr(ctx, st, generic.SectionSavingsSettings, def)
	if err != nil {
		return State{}, false, err
	}
	cur, version, err := generic.LoadSection[State](ctx, st, generic.SectionSavings)
	if err != nil {
		return State{}, false, err
	}
	if version == 0 {
		cur = DefaultState()
	}
	next, applied := OnPayday(cur, settings, payday, today, override)
	if !applied {
		return cur, false, nil
	}
	if err := generic.SaveSectionIfVersion(ctx, st, generic.SectionSavings, next, version); err != nil {
		return cur, false, err
	}
	return next, true, nil
}
