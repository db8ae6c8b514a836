package savings_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payday-engine/generic"
	"github.com/warp/payday-engine/generic/store"
	"github.com/warp/payday-engine/savings"
)

func day(s string) generic.TimePoint { return generic.MustParseDate(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// PAYDAY ACCRUAL
// =============================================================================

func TestOnPayday_UsesConfiguredAmount(t *testing.T) {
	// GIVEN: balance 250 and 100 CAD per paycheck
	// WHEN: a past payday is processed without override
	// THEN: balance = 350 and the entry records the balance after it

	st := savings.State{Balance: dec("250"), History: []savings.Entry{}}

	got, applied := savings.OnPayday(st, savings.DefaultSettings(), day("2025-04-04"), day("2025-04-05"), nil)

	require.True(t, applied)
	assert.True(t, dec("350").Equal(got.Balance))
	require.Len(t, got.History, 1)
	e := got.History[0]
	assert.Equal(t, "2025-04-04", e.Date.String())
	assert.True(t, dec("100").Equal(e.Amount))
	assert.Equal(t, generic.CAD, e.Currency)
	assert.Equal(t, savings.EntryDescription, e.Description)
	assert.True(t, dec("350").Equal(e.BalanceAfter))
}

func TestOnPayday_Override(t *testing.T) {
	forty := dec("40")
	got, _ := savings.OnPayday(savings.DefaultState(), savings.DefaultSettings(), day("2025-04-04"), day("2025-04-04"), &forty)
	assert.True(t, forty.Equal(got.Balance))

	// An explicit zero is honoured, not replaced by the default.
	zero := decimal.Zero
	got, applied := savings.OnPayday(got, savings.DefaultSettings(), day("2025-04-18"), day("2025-04-18"), &zero)
	assert.True(t, applied)
	assert.True(t, forty.Equal(got.Balance))
	require.Len(t, got.History, 2)
	assert.True(t, got.History[1].Amount.IsZero())
}

func TestOnPayday_FuturePaydayIsNoop(t *testing.T) {
	before := savings.DefaultState()

	got, applied := savings.OnPayday(before, savings.DefaultSettings(), day("2025-04-18"), day("2025-04-17"), nil)

	assert.False(t, applied)
	assert.Equal(t, before, got)
}

func TestOnPayday_HistoryIsAppendOnly(t *testing.T) {
	before := savings.State{Balance: dec("0"), History: make([]savings.Entry, 0, 4)}

	after, _ := savings.OnPayday(before, savings.DefaultSettings(), day("2025-04-04"), day("2025-04-04"), nil)
	after, _ = savings.OnPayday(after, savings.DefaultSettings(), day("2025-04-18"), day("2025-04-18"), nil)

	assert.Empty(t, before.History)
	require.Len(t, after.History, 2)
	assert.True(t, dec("100").Equal(after.History[0].BalanceAfter))
	assert.True(t, dec("200").Equal(after.History[1].BalanceAfter))
}

func TestHistory_NewestFirst(t *testing.T) {
	st := savings.State{History: []savings.Entry{
		{Date: day("2025-03-07")},
		{Date: day("2025-04-04")},
		{Date: day("2025-03-21")},
	}}

	got := savings.History(st)

	assert.Equal(t, "2025-04-04", got[0].Date.String())
	assert.Equal(t, "2025-03-21", got[1].Date.String())
	assert.Equal(t, "2025-03-07", got[2].Date.String())
}

func TestSettings_Validate(t *testing.T) {
	assert.NoError(t, savings.Settings{AmountPerPaycheck: dec("0"), Currency: generic.USD}.Validate())
	assert.True(t, generic.IsClientError(savings.Settings{AmountPerPaycheck: dec("-1"), Currency: generic.USD}.Validate()))
	assert.True(t, generic.IsClientError(savings.Settings{AmountPerPaycheck: dec("1"), Currency: "dollars"}.Validate()))
}

func TestSettings_NormalizeUpperCasesCurrency(t *testing.T) {
	got, err := savings.Settings{AmountPerPaycheck: dec("75"), Currency: " cad "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, generic.CAD, got.Currency)
	assert.True(t, dec("75").Equal(got.AmountPerPaycheck))

	_, err = savings.Settings{AmountPerPaycheck: dec("75"), Currency: "dollars"}.Normalize()
	var verr *generic.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "currency", verr.Field)
}

// =============================================================================
// SERVICE
// =============================================================================

func newService(today string) (*savings.Service, *store.Memory) {
	m := store.NewMemory()
	return &savings.Service{Store: m, Clock: generic.FixedClock{Day: day(today)}, Log: zerolog.Nop()}, m
}

func TestService_ProcessPaydayUsesStoredSettings(t *testing.T) {
	svc, m := newService("2025-04-18")
	ctx := context.Background()

	_, err := svc.UpdateSettings(ctx, savings.Settings{AmountPerPaycheck: dec("75"), Currency: "usd"})
	require.NoError(t, err)

	st, applied, err := svc.ProcessPayday(ctx, day("2025-04-18"), nil)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, dec("75").Equal(st.Balance))
	assert.Equal(t, generic.USD, st.History[0].Currency)

	sec, _ := m.GetSection(ctx, generic.SectionSavings)
	assert.Equal(t, int64(1), sec.Version)
}

func TestService_FuturePaydayWritesNothing(t *testing.T) {
	svc, m := newService("2025-04-18")
	ctx := context.Background()

	_, applied, err := svc.ProcessPayday(ctx, day("2025-05-02"), nil)
	require.NoError(t, err)
	assert.False(t, applied)

	sec, _ := m.GetSection(ctx, generic.SectionSavings)
	assert.False(t, sec.Exists())
}

func TestService_DefaultsAndHistory(t *testing.T) {
	svc, _ := newService("2025-04-18")
	ctx := context.Background()

	settings, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(settings.AmountPerPaycheck))
	assert.Equal(t, generic.CAD, settings.Currency)

	_, _, err = svc.ProcessPayday(ctx, day("2025-04-04"), nil)
	require.NoError(t, err)
	_, _, err = svc.ProcessPayday(ctx, day("2025-04-18"), nil)
	require.NoError(t, err)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2025-04-18", history[0].Date.String())
	assert.True(t, dec("200").Equal(history[0].BalanceAfter))
}
