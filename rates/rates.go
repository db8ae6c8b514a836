/*
Package rates refreshes the currency table from a reference-rate feed.

PURPOSE:
  The converter ships with a small static table. When a feed URL is
  configured, the scheduler pulls the ECB daily reference rates and
  replaces the table with every ordered pair derivable from them.

FEED FORMAT (eurofxref-daily.xml):
  <Cube><Cube time="YYYY-MM-DD"><Cube currency="USD" rate="1.1375"/>...
  Every rate is "1 EUR = rate units". Cross rates go through EUR:
  X->Y = rate(Y) / rate(X).

SEE ALSO:
  - generic/currency.go: Converter.SetRates
  - api/scheduler.go: the refresh job
*/
package rates

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/payday-engine/generic"
)

// DefaultURL is the ECB daily reference rate feed.
const DefaultURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

// crossPrecision is the number of decimal places kept on derived rates.
const crossPrecision = 6

// Feed is one day of EUR-based reference rates.
type Feed struct {
	Date  generic.TimePoint
	Rates map[generic.Currency]decimal.Decimal // 1 EUR = Rates[c] units of c
}

// Parse reads an ECB-style document.
func Parse(data []byte) (Feed, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return Feed{}, fmt.Errorf("failed to parse XML: %w", err)
	}

	feed := Feed{Rates: map[generic.Currency]decimal.Decimal{}}
	if day := doc.FindElement("//Cube[@time]"); day != nil {
		date, err := generic.ParseDate(day.SelectAttrValue("time", ""))
		if err != nil {
			return Feed{}, fmt.Errorf("feed date: %w", err)
		}
		feed.Date = date
	}

	for _, el := range doc.FindElements("//Cube[@currency]") {
		code := el.SelectAttrValue("currency", "")
		cur, err := generic.ParseCurrency(code)
		if err != nil {
			return Feed{}, fmt.Errorf("feed currency %q: %w", code, err)
		}
		rate, err := decimal.NewFromString(el.SelectAttrValue("rate", ""))
		if err != nil || !rate.IsPositive() {
			return Feed{}, fmt.Errorf("feed rate for %s: %q", cur, el.SelectAttrValue("rate", ""))
		}
		feed.Rates[cur] = rate
	}
	if len(feed.Rates) == 0 {
		return Feed{}, fmt.Errorf("no rate data found in XML")
	}
	return feed, nil
}

// Currencies returns EUR plus every currency in the feed, sorted.
func (f Feed) Currencies() []generic.Currency {
	all := maps.Clone(f.Rates)
	all[generic.EUR] = decimal.NewFromInt(1)
	return slices.Sorted(maps.Keys(all))
}

// Table derives every ordered pair between the feed's currencies and EUR.
func (f Feed) Table() generic.RateTable {
	perEUR := maps.Clone(f.Rates)
	perEUR[generic.EUR] = decimal.NewFromInt(1)

	table := generic.RateTable{}
	for from, fromRate := range perEUR {
		for to, toRate := range perEUR {
			if from == to {
				continue
			}
			table[generic.Pair{From: from, To: to}] = toRate.DivRound(fromRate, crossPrecision)
		}
	}
	return table
}

// =============================================================================
// CLIENT
// =============================================================================

type Client struct {
	URL  string
	HTTP *http.Client
	Log  zerolog.Logger
}

func NewClient(url string, log zerolog.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		URL:  url,
		HTTP: &http.Client{Timeout: 10 * time.Second},
		Log:  log.With().Str("component", "rates").Logger(),
	}
}

// Fetch downloads and parses the feed.
func (c *Client) Fetch(ctx context.Context) (Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Feed{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Feed{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Feed{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Feed{}, fmt.Errorf("failed to read response: %w", err)
	}
	return Parse(body)
}

// Refresh fetches the feed and merges its table into conv.
func (c *Client) Refresh(ctx context.Context, conv *generic.Converter) (Feed, error) {
	feed, err := c.Fetch(ctx)
	if err != nil {
		c.Log.Warn().Err(err).Str("url", c.URL).Msg("rate refresh failed, keeping current table")
		return Feed{}, err
	}
	table := feed.Table()
	conv.SetRates(table)
	c.Log.Info().
		Str("date", feed.Date.String()).
		Int("pairs", len(table)).
		Msg("currency rates refreshed")
	return feed, nil
}
