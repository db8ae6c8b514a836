package payday

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/payday-engine/charity"
	"github.com/warp/payday-engine/generic"
	"github.com/warp/payday-engine/savings"
)

// =============================================================================
// ORCHESTRATOR - Records paydays with transactional guarantees
// =============================================================================

type Orchestrator struct {
	Store    generic.TxStore // transactional store
	Clock    generic.Clock
	Log      zerolog.Logger
	IsSecond generic.OccurrencePredicate // nil means generic.IsSecondOccurrenceOfMonth
	Currency generic.Currency            // income currency when a line names none

	Defaults        *Settings         // nil means DefaultSettings()
	CharityDefaults *charity.State    // nil means charity.DefaultState()
	SavingsDefaults *savings.Settings // nil means savings.DefaultSettings()

	Now        func() time.Time // optional, stamps RecordedAt
	OnRecorded func(Result)     // optional
}

// Result is everything one RecordPayday call changed.
type Result struct {
	Event          Event         `json:"event"`
	Settings       Settings      `json:"settings"`
	Charity        charity.State `json:"charity"`
	CharityApplied bool          `json:"charityApplied"`
	Savings        savings.State `json:"savings"`
	SavingsApplied bool          `json:"savingsApplied"`
}

func (o *Orchestrator) defaults() Settings {
	if o.Defaults == nil {
		return DefaultSettings()
	}
	return *o.Defaults
}

func (o *Orchestrator) charityDefaults() charity.State {
	if o.CharityDefaults == nil {
		return charity.DefaultState()
	}
	return *o.CharityDefaults
}

func (o *Orchestrator) savingsDefaults() savings.Settings {
	if o.SavingsDefaults == nil {
		return savings.DefaultSettings()
	}
	return *o.SavingsDefaults
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// =============================================================================
// RECORD PAYDAY - The critical transactional operation
// =============================================================================

// RecordPayday records a payday event.
// This is TRANSACTIONAL:
//   - Appends the event to the payday history
//   - Advances the next payday from the event date
//   - Accrues the charity fund
//   - Accrues savings, using the savings allocation as override
//
// If ANY step fails, ALL changes are rolled back. An invalid event writes
// nothing.
func (o *Orchestrator) RecordPayday(ctx context.Context, in Event) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	event := in.normalize(o.Currency.OrDefault(generic.USD), o.now())
	today := o.Clock.Today()

	res := Result{Event: event}
	err := o.Store.WithTx(ctx, func(tx generic.SectionStore) error {
		// 1. Append the immutable event
		if err := generic.AppendItem(ctx, tx, generic.SectionPaydays, event); err != nil {
			return fmt.Errorf("record payday: %w", err)
		}

		// 2. Advance the schedule
		settings, err := generic.LoadSectionOr(ctx, tx, generic.SectionPaydaySettings, o.defaults())
		if err != nil {
			return err
		}
		next := generic.NextOccurrence(settings.Frequency, event.Date)
		settings.NextDate = &next
		if err := generic.SaveSection(ctx, tx, generic.SectionPaydaySettings, settings); err != nil {
			return fmt.Errorf("advance next payday: %w", err)
		}
		res.Settings = settings

		// 3. Charity
		res.Charity, res.CharityApplied, err = charity.ProcessPayday(ctx, tx, event.Date, today, o.IsSecond, o.charityDefaults())
		if err != nil {
			return fmt.Errorf("charity accrual: %w", err)
		}

		// 4. Savings
		res.Savings, res.SavingsApplied, err = savings.ProcessPayday(ctx, tx, event.Date, today, event.Allocations.Savings, o.savingsDefaults())
		if err != nil {
			return fmt.Errorf("savings accrual: %w", err)
		}
		return nil
	})
	if err != nil {
		o.Log.Error().Err(err).Str("date", event.Date.String()).Msg("payday not recorded")
		return Result{}, err
	}

	o.Log.Info().
		Str("payday_id", string(event.ID)).
		Str("date", event.Date.String()).
		Str("income", event.TotalIncome().String()).
		Str("next_date", res.Settings.NextDate.String()).
		Bool("charity_applied", res.CharityApplied).
		Bool("savings_applied", res.SavingsApplied).
		Msg("payday recorded")
	if o.OnRecorded != nil {
		o.OnRecorded(res)
	}
	return res, nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (o *Orchestrator) events(ctx context.Context) ([]Event, error) {
	events, _, err := generic.LoadSection[[]Event](ctx, o.Store, generic.SectionPaydays)
	return events, err
}

// Events returns the raw events in recording order.
func (o *Orchestrator) Events(ctx context.Context) ([]Event, error) {
	return o.events(ctx)
}

// History returns every payday newest first with its totals.
func (o *Orchestrator) History(ctx context.Context) ([]HistoryEntry, error) {
	events, err := o.events(ctx)
	if err != nil {
		return nil, err
	}
	return History(events), nil
}

// LatestSummary returns the allocation breakdown of the most recent payday.
// The bool is false when no payday has been recorded.
func (o *Orchestrator) LatestSummary(ctx context.Context) (Summary, bool, error) {
	events, err := o.events(ctx)
	if err != nil {
		return Summary{}, false, err
	}
	latest, ok := Latest(events)
	if !ok {
		return Summary{}, false, nil
	}
	return Summarize(latest), true, nil
}

func (o *Orchestrator) Settings(ctx context.Context) (Settings, error) {
	return generic.LoadSectionOr(ctx, o.Store, generic.SectionPaydaySettings, o.defaults())
}

// UpdateSettings replaces the frequency and, when given, the next date.
// A nil NextDate keeps the stored one. A NextDate before the last recorded
// payday is rejected.
func (o *Orchestrator) UpdateSettings(ctx context.Context, in Settings) (Settings, error) {
	if err := in.Validate(); err != nil {
		return Settings{}, err
	}
	out, err := generic.UpdateSection(ctx, o.Store, generic.SectionPaydaySettings, o.defaults(), func(cur Settings) (Settings, error) {
		cur.Frequency = in.Frequency
		if in.NextDate != nil {
			events, err := o.events(ctx)
			if err != nil {
				return cur, err
			}
			if latest, ok := Latest(events); ok && in.NextDate.Before(latest.Date) {
				return cur, generic.Invalid("nextDate", "before the last recorded payday "+latest.Date.String())
			}
			cur.NextDate = in.NextDate
		}
		return cur, nil
	})
	if err != nil {
		return Settings{}, err
	}
	o.Log.Info().Str("frequency", string(out.Frequency)).Msg("payday settings updated")
	return out, nil
}

// IsTodayPayday reports whether the next payday is today.
func (o *Orchestrator) IsTodayPayday(ctx context.Context) (bool, error) {
	s, err := o.Settings(ctx)
	if err != nil {
		return false, err
	}
	return s.NextDate != nil && s.NextDate.Equal(o.Clock.Today()), nil
}

// DaysUntilNext returns the days from today to the next payday, or nil when
// none is set. A missed payday gives a negative count.
func (o *Orchestrator) DaysUntilNext(ctx context.Context) (*int, error) {
	s, err := o.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if s.NextDate == nil {
		return nil, nil
	}
	days := generic.DaysBetween(o.Clock.Today(), *s.NextDate)
	return &days, nil
}
