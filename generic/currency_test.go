package generic_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payday-engine/generic"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestConverter_DefaultRates(t *testing.T) {
	c := generic.NewConverter(nil, zerolog.Nop())

	assert.True(t, dec("135").Equal(c.Convert(dec("100"), generic.USD, generic.CAD)))
	assert.True(t, dec("74").Equal(c.Convert(dec("100"), generic.CAD, generic.USD)))
	assert.True(t, dec("100").Equal(c.Convert(dec("100"), generic.CAD, generic.CAD)))
	assert.Zero(t, c.Fallbacks())
}

func TestConverter_UnknownPairFallsBackAndIsObserved(t *testing.T) {
	// GIVEN: a converter without a EUR rate and an observer
	// WHEN: EUR is converted to USD
	// THEN: the amount is unchanged, the fallback is counted and reported

	var seen []generic.Pair
	c := generic.NewConverter(nil, zerolog.Nop(), func(from, to generic.Currency) {
		seen = append(seen, generic.Pair{From: from, To: to})
	})

	got := c.Convert(dec("42.10"), generic.EUR, generic.USD)

	assert.True(t, dec("42.10").Equal(got))
	assert.Equal(t, int64(1), c.Fallbacks())
	assert.Equal(t, []generic.Pair{{From: generic.EUR, To: generic.USD}}, seen)
}

func TestConverter_SetRatesMerges(t *testing.T) {
	c := generic.NewConverter(nil, zerolog.Nop())
	c.SetRates(generic.RateTable{{From: generic.EUR, To: generic.USD}: dec("1.10")})

	assert.True(t, dec("110").Equal(c.Convert(dec("100"), generic.EUR, generic.USD)))
	_, ok := c.Rate(generic.USD, generic.CAD)
	assert.True(t, ok, "existing pairs survive a merge")
	assert.Len(t, c.Rates(), 3)
}

func TestParseRateTable(t *testing.T) {
	rt, err := generic.ParseRateTable(map[string]string{"usd_cad": "1.40"})
	require.NoError(t, err)
	assert.True(t, dec("1.40").Equal(rt[generic.Pair{From: generic.USD, To: generic.CAD}]))

	_, err = generic.ParseRateTable(map[string]string{"USDCAD": "1.40"})
	assert.True(t, generic.IsClientError(err))

	_, err = generic.ParseRateTable(map[string]string{"USD_CAD": "-1"})
	assert.True(t, generic.IsClientError(err))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "25", generic.Percent(dec("250"), dec("1000")).String())
	assert.Equal(t, "33.3", generic.Percent(dec("1"), dec("3")).String())
	assert.True(t, generic.Percent(dec("1"), decimal.Zero).IsZero())
}
