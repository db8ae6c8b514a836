package generic

import (
	"fmt"
	"maps"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE TABLE - Flat multiplicative rates per ordered pair
// =============================================================================

// Pair is an ordered conversion direction.
type Pair struct {
	From Currency
	To   Currency
}

// String renders the pair as "FROM_TO".
func (p Pair) String() string { return string(p.From) + "_" + string(p.To) }

// ParsePair reads "FROM_TO".
func ParsePair(s string) (Pair, error) {
	from, to, ok := strings.Cut(s, "_")
	if !ok {
		return Pair{}, Invalid("rate", fmt.Sprintf("%q is not FROM_TO", s))
	}
	f, err := ParseCurrency(from)
	if err != nil {
		return Pair{}, err
	}
	t, err := ParseCurrency(to)
	if err != nil {
		return Pair{}, err
	}
	return Pair{From: f, To: t}, nil
}

type RateTable map[Pair]decimal.Decimal

// DefaultRates is the built-in USD/CAD table.
func DefaultRates() RateTable {
	return RateTable{
		{From: USD, To: CAD}: decimal.RequireFromString("1.35"),
		{From: CAD, To: USD}: decimal.RequireFromString("0.74"),
	}
}

// ParseRateTable converts {"USD_CAD": "1.35"} style maps.
func ParseRateTable(raw map[string]string) (RateTable, error) {
	rt := make(RateTable, len(raw))
	for k, v := range raw {
		p, err := ParsePair(k)
		if err != nil {
			return nil, err
		}
		rate, err := ParseAmount("rate "+k, v)
		if err != nil {
			return nil, err
		}
		if err := RequirePositive("rate "+k, rate); err != nil {
			return nil, err
		}
		rt[p] = rate
	}
	return rt, nil
}

// =============================================================================
// CONVERTER
// =============================================================================

// FallbackObserver is told about every conversion that found no rate.
type FallbackObserver func(from, to Currency)

// Converter converts amounts through a replaceable rate table. An unknown
// pair returns the amount unchanged; that fallback is logged at warn level,
// counted, and reported to the observers.
type Converter struct {
	mu        sync.RWMutex
	rates     RateTable
	log       zerolog.Logger
	observers []FallbackObserver
	fallbacks atomic.Int64
}

func NewConverter(rates RateTable, log zerolog.Logger, observers ...FallbackObserver) *Converter {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Converter{
		rates:     maps.Clone(rates),
		log:       log.With().Str("component", "converter").Logger(),
		observers: observers,
	}
}

// Convert returns amount expressed in to.
func (c *Converter) Convert(amount decimal.Decimal, from, to Currency) decimal.Decimal {
	if from == to {
		return amount
	}
	if rate, ok := c.Rate(from, to); ok {
		return amount.Mul(rate)
	}
	c.fallbacks.Add(1)
	c.log.Warn().
		Str("from", string(from)).
		Str("to", string(to)).
		Str("amount", amount.String()).
		Msg("no conversion rate, amount left unchanged")
	for _, obs := range c.observers {
		obs(from, to)
	}
	return amount
}

// Rate looks up the registered rate for the ordered pair.
func (c *Converter) Rate(from, to Currency) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rates[Pair{From: from, To: to}]
	return r, ok
}

// SetRates merges rates into the table. Existing pairs are overwritten.
func (c *Converter) SetRates(rates RateTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.rates, rates)
}

// Rates returns a copy of the current table.
func (c *Converter) Rates() RateTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.rates)
}

// Fallbacks is the number of identity fallbacks since construction.
func (c *Converter) Fallbacks() int64 { return c.fallbacks.Load() }
