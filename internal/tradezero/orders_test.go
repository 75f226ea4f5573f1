package tradezero

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

func TestLimitOrderFillsFormInOrder(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "189.43")
	c := newTestClient(t, page)

	placed, err := c.LimitOrder(context.Background(), SideBuy, "aapl", 100, 189.5, TIFGTC)
	if err != nil {
		t.Fatalf("LimitOrder() error = %v", err)
	}
	want := []string{
		"submit id=trading-order-input-symbol aapl",
		"select id=trading-order-select-type #1",
		"select id=trading-order-select-time GTC",
		"set id=trading-order-input-quantity 100",
		"set id=trading-order-input-price 189.5",
		"click id=trading-order-button-buy",
	}
	if got := page.recorded(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("calls =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if placed.Symbol != "AAPL" || placed.Outcome != "loaded" || placed.TIF != TIFGTC {
		t.Fatalf("placed = %+v", placed)
	}
}

func TestStopLimitOrderSetsBothPrices(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "10.00")
	c := newTestClient(t, page)

	if _, err := c.StopLimitOrder(context.Background(), SideSell, "F", 200, 9.5, 9.45, ""); err != nil {
		t.Fatalf("StopLimitOrder() error = %v", err)
	}
	calls := strings.Join(page.recorded(), "\n")
	for _, want := range []string{
		"select id=trading-order-select-type #3",
		"select id=trading-order-select-time DAY",
		"set id=trading-order-input-price 9.45",
		"set id=trading-order-input-sprice 9.5",
		"click id=trading-order-button-sell",
	} {
		if !strings.Contains(calls, want) {
			t.Errorf("calls missing %q:\n%s", want, calls)
		}
	}
}

func TestMarketOrderRejectedOutsideHours(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "189.43")
	c := newTestClient(t, page)
	evening := time.Date(2024, time.March, 12, 23, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return evening }

	_, err := c.MarketOrder(context.Background(), SideBuy, "AAPL", 1, TIFDay)
	var closed *MarketClosedError
	if !errors.As(err, &closed) {
		t.Fatalf("MarketOrder() error = %v; want MarketClosedError", err)
	}
	if closed.OrderType != OrderMarket {
		t.Fatalf("OrderType = %q", closed.OrderType)
	}
	if len(page.recorded()) != 0 {
		t.Fatalf("calls = %q; want none", page.recorded())
	}
}

func TestLimitOrderAllowedOutsideHours(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "189.43")
	c := newTestClient(t, page)
	c.now = func() time.Time { return time.Date(2024, time.March, 12, 23, 0, 0, 0, time.UTC) }

	if _, err := c.LimitOrder(context.Background(), SideShort, "AAPL", 1, 200, TIFGTX); err != nil {
		t.Fatalf("LimitOrder() error = %v", err)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	cases := map[string]OrderRequest{
		"bad side":      {Side: "hold", Symbol: "AAPL", Quantity: 1, Type: OrderMarket},
		"bad tif":       {Side: SideBuy, Symbol: "AAPL", Quantity: 1, Type: OrderMarket, TIF: "IOC"},
		"no symbol":     {Side: SideBuy, Quantity: 1, Type: OrderMarket},
		"zero quantity": {Side: SideBuy, Symbol: "AAPL", Type: OrderMarket},
		"no limit":      {Side: SideBuy, Symbol: "AAPL", Quantity: 1, Type: OrderLimit},
		"no stop":       {Side: SideBuy, Symbol: "AAPL", Quantity: 1, Type: OrderStopMarket},
		"range type":    {Side: SideBuy, Symbol: "AAPL", Quantity: 1, Type: OrderRange},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			page := newFakePage()
			_, err := newTestClient(t, page).PlaceOrder(context.Background(), req)
			if !cdpcontrol.HasCode(err, cdpcontrol.CodeValidation) {
				t.Fatalf("PlaceOrder() error = %v; want validation", err)
			}
			if len(page.recorded()) != 0 {
				t.Fatalf("calls = %q; want none", page.recorded())
			}
		})
	}
}

func TestPlaceOrderStopsWhenSymbolNotFound(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "")
	page.setText(locNotificationLatest, "Symbol not found: ZZZZ")
	c := newTestClient(t, page)

	_, err := c.LimitOrder(context.Background(), SideBuy, "ZZZZ", 1, 1, TIFDay)
	var nf *SymbolNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("LimitOrder() error = %v; want SymbolNotFoundError", err)
	}
	if page.countCalls("click ") != 0 {
		t.Fatal("order button clicked for unknown symbol")
	}
}
