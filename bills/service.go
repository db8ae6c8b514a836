package bills

import (
	"context"
	"slices"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/payday-engine/generic"
)

// =============================================================================
// BILL SERVICE - Store-backed bill operations
// =============================================================================

// Service reads and writes the "bills" section. Every mutation is one
// version-checked write, so a concurrent writer surfaces as
// generic.ErrConcurrentModification instead of a lost update.
type Service struct {
	Store       generic.SectionStore
	Clock       generic.Clock
	Converter   *generic.Converter
	Log         zerolog.Logger
	Reporting   generic.Currency // currency for UnpaidTotal
	DueSoonDays int              // 0 means DefaultDueSoonDays

	OnToggle func(paid bool) // optional
}

// View is a bill with its derived status.
type View struct {
	Bill
	Paid      bool   `json:"paid"`
	Status    Status `json:"status"`
	DaysUntil int    `json:"daysUntil"`
}

func (s *Service) dueSoon() int {
	if s.DueSoonDays <= 0 {
		return DefaultDueSoonDays
	}
	return s.DueSoonDays
}

func (s *Service) load(ctx context.Context) ([]Bill, error) {
	bills, _, err := generic.LoadSection[[]Bill](ctx, s.Store, generic.SectionBills)
	return bills, err
}

func (s *Service) view(b Bill, today generic.TimePoint) View {
	info := Evaluate(b, today, s.dueSoon())
	return View{Bill: b, Paid: info.Status == StatusSatisfied, Status: info.Status, DaysUntil: info.DaysUntil}
}

// List returns every bill in display order with its status.
func (s *Service) List(ctx context.Context) ([]View, error) {
	bills, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	today := s.Clock.Today()
	out := make([]View, 0, len(bills))
	for _, b := range SortForDisplay(bills) {
		out = append(out, s.view(b, today))
	}
	return out, nil
}

// Get returns one bill.
func (s *Service) Get(ctx context.Context, id generic.ID) (View, error) {
	bills, err := s.load(ctx)
	if err != nil {
		return View{}, err
	}
	i := Find(bills, id)
	if i < 0 {
		return View{}, &generic.NotFoundError{Kind: "bill", ID: string(id)}
	}
	return s.view(bills[i], s.Clock.Today()), nil
}

// Add validates and stores a new bill.
func (s *Service) Add(ctx context.Context, in NewBill) (Bill, error) {
	if err := in.Validate(); err != nil {
		return Bill{}, err
	}
	bill := in.Build(s.Reporting.OrDefault(generic.USD))
	if _, err := generic.UpdateSection(ctx, s.Store, generic.SectionBills, []Bill{}, func(cur []Bill) ([]Bill, error) {
		return append(cur, bill), nil
	}); err != nil {
		return Bill{}, err
	}
	s.Log.Info().Str("bill_id", string(bill.ID)).Str("name", bill.Name).Msg("bill added")
	return bill, nil
}

// Remove deletes a bill and its payment records.
func (s *Service) Remove(ctx context.Context, id generic.ID) error {
	_, err := generic.UpdateSection(ctx, s.Store, generic.SectionBills, []Bill{}, func(cur []Bill) ([]Bill, error) {
		i := Find(cur, id)
		if i < 0 {
			return nil, &generic.NotFoundError{Kind: "bill", ID: string(id)}
		}
		return slices.Delete(slices.Clone(cur), i, i+1), nil
	})
	if err != nil {
		return err
	}
	s.Log.Info().Str("bill_id", string(id)).Msg("bill removed")
	return nil
}

// SetPaid toggles the bill for today. See Toggle for the un-toggle rule.
func (s *Service) SetPaid(ctx context.Context, id generic.ID, paid bool) (View, error) {
	today := s.Clock.Today()
	var updated Bill
	_, err := generic.UpdateSection(ctx, s.Store, generic.SectionBills, []Bill{}, func(cur []Bill) ([]Bill, error) {
		i := Find(cur, id)
		if i < 0 {
			return nil, &generic.NotFoundError{Kind: "bill", ID: string(id)}
		}
		next := slices.Clone(cur)
		next[i] = Toggle(next[i], paid, today)
		updated = next[i]
		return next, nil
	})
	if err != nil {
		return View{}, err
	}
	if s.OnToggle != nil {
		s.OnToggle(paid)
	}
	s.Log.Info().Str("bill_id", string(id)).Bool("paid", paid).Msg("bill toggled")
	return s.view(updated, today), nil
}

// Upcoming returns at most n unpaid bills, soonest first.
func (s *Service) Upcoming(ctx context.Context, n int) ([]View, error) {
	bills, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	today := s.Clock.Today()
	var out []View
	for _, b := range Upcoming(bills, n) {
		out = append(out, s.view(b, today))
	}
	return out, nil
}

// History returns every bill payment, newest first.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	bills, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return PaymentHistory(bills), nil
}

// UnpaidTotal sums unpaid bills in the reporting currency.
func (s *Service) UnpaidTotal(ctx context.Context) (decimal.Decimal, error) {
	bills, err := s.load(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return UnpaidTotal(bills, s.Converter, s.Reporting.OrDefault(generic.USD)), nil
}

// RolloverDue advances every satisfied, past-due bill by one month and
// returns the ones that moved.
func (s *Service) RolloverDue(ctx context.Context) ([]Bill, error) {
	today := s.Clock.Today()
	var moved []Bill
	_, err := generic.UpdateSection(ctx, s.Store, generic.SectionBills, []Bill{}, func(cur []Bill) ([]Bill, error) {
		next := slices.Clone(cur)
		for i := range next {
			if b, ok := Rollover(next[i], today); ok {
				next[i] = b
				moved = append(moved, b)
			}
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	for _, b := range moved {
		s.Log.Info().Str("bill_id", string(b.ID)).Str("due_date", b.DueDate.String()).Msg("bill rolled over")
	}
	return moved, nil
}
