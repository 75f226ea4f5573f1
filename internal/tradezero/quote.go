package tradezero

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

// QuoteSnapshot is read fresh on every call and zero-filled when the market
// is closed for the symbol.
type QuoteSnapshot struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Last   float64 `json:"last"`
	Ask    float64 `json:"ask"`
	Bid    float64 `json:"bid"`
}

type Quote struct {
	Symbol  string        `json:"symbol"`
	Outcome string        `json:"outcome"`
	Data    QuoteSnapshot `json:"data"`
}

// OrderQuantity is how many shares a buying power affords at the last price.
type OrderQuantity struct {
	Symbol     string  `json:"symbol"`
	Shares     int     `json:"shares"`
	Fractional float64 `json:"fractional"`
	Last       float64 `json:"last"`
}

// Load makes symbol the active symbol on the order form.
func (c *Client) Load(ctx context.Context, symbol string) (LoadOutcome, error) {
	return c.Loader.Load(ctx, symbol)
}

// Quote loads symbol and reads the eight quote fields.
func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	outcome, err := c.Load(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{Symbol: NormalizeSymbol(symbol), Outcome: outcome.String()}
	if outcome == MarketClosed {
		return q, nil
	}

	fields := []struct {
		id  string
		dst *float64
	}{
		{"trading-order-open", &q.Data.Open},
		{"trading-order-high", &q.Data.High},
		{"trading-order-low", &q.Data.Low},
		{"trading-order-close", &q.Data.Close},
		{"trading-order-vol", &q.Data.Volume},
		{"trading-order-p", &q.Data.Last},
		{"trading-order-ask", &q.Data.Ask},
		{"trading-order-bid", &q.Data.Bid},
	}
	for _, f := range fields {
		v, err := c.readFloat(ctx, cdpcontrol.ID(f.id))
		if err != nil {
			return Quote{}, err
		}
		*f.dst = v
	}
	return q, nil
}

func (c *Client) Data(ctx context.Context, symbol string) (QuoteSnapshot, error) {
	q, err := c.Quote(ctx, symbol)
	if err != nil {
		return QuoteSnapshot{}, err
	}
	return q.Data, nil
}

// CalculateOrderQuantity returns zero shares when the market is closed.
func (c *Client) CalculateOrderQuantity(ctx context.Context, symbol string, buyingPower float64) (OrderQuantity, error) {
	if buyingPower < 0 {
		return OrderQuantity{}, validationError("buying power must not be negative")
	}
	outcome, err := c.Load(ctx, symbol)
	if err != nil {
		return OrderQuantity{}, err
	}
	out := OrderQuantity{Symbol: NormalizeSymbol(symbol)}
	if outcome == MarketClosed {
		return out, nil
	}
	last, err := c.Last(ctx)
	if err != nil {
		return OrderQuantity{}, err
	}
	if last <= 0 {
		return out, nil
	}
	out.Last = last
	out.Fractional = buyingPower / last
	out.Shares = int(math.Floor(out.Fractional))
	return out, nil
}

// CurrentSymbol is the symbol shown on the order form.
func (c *Client) CurrentSymbol(ctx context.Context) (string, error) {
	text, err := c.page.ReadText(ctx, locSymbolLabel)
	if err != nil {
		return "", err
	}
	return NormalizeSymbol(cleanSymbolLabel(text)), nil
}

func (c *Client) Bid(ctx context.Context) (float64, error)  { return c.readFloat(ctx, locBid) }
func (c *Client) Ask(ctx context.Context) (float64, error)  { return c.readFloat(ctx, locAsk) }
func (c *Client) Last(ctx context.Context) (float64, error) { return c.readFloat(ctx, locLast) }

func (c *Client) readFloat(ctx context.Context, loc cdpcontrol.Locator) (float64, error) {
	text, err := c.page.ReadText(ctx, loc)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("tradezero: parse %s %q: %w", loc, text, err)
	}
	return v, nil
}
