package tradezero

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

type Side string

const (
	SideBuy   Side = "buy"
	SideSell  Side = "sell"
	SideShort Side = "short"
	SideCover Side = "cover"
)

func (s Side) valid() bool {
	switch s {
	case SideBuy, SideSell, SideShort, SideCover:
		return true
	}
	return false
}

type TIF string

const (
	TIFDay TIF = "DAY"
	TIFGTC TIF = "GTC"
	TIFGTX TIF = "GTX"
)

func (t TIF) valid() bool {
	switch t {
	case TIFDay, TIFGTC, TIFGTX:
		return true
	}
	return false
}

// OrderType values are the labels of the order-type drop-down. They also
// appear in the "type" column of the active orders table.
type OrderType string

const (
	OrderMarket        OrderType = "MKT"
	OrderLimit         OrderType = "LMT"
	OrderStopMarket    OrderType = "Stop-MKT"
	OrderStopLimit     OrderType = "Stop-LMT"
	OrderMarketOnClose OrderType = "MKT-Close"
	OrderLimitOnClose  OrderType = "LMT-Close"
	OrderRange         OrderType = "RANGE"
)

// orderTypeIndex is the drop-down position of each placeable type.
var orderTypeIndex = map[OrderType]int{
	OrderMarket:     0,
	OrderLimit:      1,
	OrderStopMarket: 2,
	OrderStopLimit:  3,
}

type OrderRequest struct {
	Side       Side      `json:"side"`
	Symbol     string    `json:"symbol"`
	Quantity   int       `json:"quantity"`
	Type       OrderType `json:"type"`
	LimitPrice float64   `json:"limit_price,omitempty"`
	StopPrice  float64   `json:"stop_price,omitempty"`
	TIF        TIF       `json:"tif"`
}

type PlacedOrder struct {
	OrderRequest
	Outcome  string    `json:"load_outcome"`
	PlacedAt time.Time `json:"placed_at"`
}

func (c *Client) LimitOrder(ctx context.Context, side Side, symbol string, quantity int, limitPrice float64, tif TIF) (PlacedOrder, error) {
	return c.PlaceOrder(ctx, OrderRequest{Side: side, Symbol: symbol, Quantity: quantity, Type: OrderLimit, LimitPrice: limitPrice, TIF: tif})
}

func (c *Client) MarketOrder(ctx context.Context, side Side, symbol string, quantity int, tif TIF) (PlacedOrder, error) {
	return c.PlaceOrder(ctx, OrderRequest{Side: side, Symbol: symbol, Quantity: quantity, Type: OrderMarket, TIF: tif})
}

func (c *Client) StopMarketOrder(ctx context.Context, side Side, symbol string, quantity int, stopPrice float64, tif TIF) (PlacedOrder, error) {
	return c.PlaceOrder(ctx, OrderRequest{Side: side, Symbol: symbol, Quantity: quantity, Type: OrderStopMarket, StopPrice: stopPrice, TIF: tif})
}

func (c *Client) StopLimitOrder(ctx context.Context, side Side, symbol string, quantity int, stopPrice, limitPrice float64, tif TIF) (PlacedOrder, error) {
	return c.PlaceOrder(ctx, OrderRequest{Side: side, Symbol: symbol, Quantity: quantity, Type: OrderStopLimit, StopPrice: stopPrice, LimitPrice: limitPrice, TIF: tif})
}

// PlaceOrder fills the order form and clicks the side button. Market and
// stop-market orders are refused outside regular hours.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (PlacedOrder, error) {
	req, err := normalizeOrder(req)
	if err != nil {
		return PlacedOrder{}, err
	}

	now := c.now()
	if (req.Type == OrderMarket || req.Type == OrderStopMarket) && !IsMarketOpen(now) {
		return PlacedOrder{}, &MarketClosedError{OrderType: req.Type, At: EasternNow(now)}
	}

	outcome, err := c.Load(ctx, req.Symbol)
	if err != nil {
		return PlacedOrder{}, err
	}

	if err := c.page.SelectByIndex(ctx, locOrderType, orderTypeIndex[req.Type]); err != nil {
		return PlacedOrder{}, err
	}
	if err := c.page.SelectByText(ctx, locOrderTIF, string(req.TIF)); err != nil {
		return PlacedOrder{}, err
	}
	if err := c.page.SetValue(ctx, locOrderQuantity, strconv.Itoa(req.Quantity)); err != nil {
		return PlacedOrder{}, err
	}
	if req.Type == OrderLimit || req.Type == OrderStopLimit {
		if err := c.page.SetValue(ctx, locOrderPrice, formatPrice(req.LimitPrice)); err != nil {
			return PlacedOrder{}, err
		}
	}
	if req.Type == OrderStopMarket || req.Type == OrderStopLimit {
		if err := c.page.SetValue(ctx, locOrderStop, formatPrice(req.StopPrice)); err != nil {
			return PlacedOrder{}, err
		}
	}
	if err := c.page.Click(ctx, locOrderButton(req.Side)); err != nil {
		return PlacedOrder{}, err
	}

	slog.Info("tradezero order placed",
		"side", req.Side, "symbol", req.Symbol, "type", req.Type, "quantity", req.Quantity,
		"limit", req.LimitPrice, "stop", req.StopPrice, "tif", req.TIF)
	return PlacedOrder{OrderRequest: req, Outcome: outcome.String(), PlacedAt: now}, nil
}

func normalizeOrder(req OrderRequest) (OrderRequest, error) {
	req.Symbol = NormalizeSymbol(req.Symbol)
	req.Side = Side(strings.ToLower(strings.TrimSpace(string(req.Side))))
	req.TIF = TIF(strings.ToUpper(strings.TrimSpace(string(req.TIF))))
	if req.TIF == "" {
		req.TIF = TIFDay
	}

	if req.Symbol == "" {
		return req, validationError("symbol is required")
	}
	if !req.Side.valid() {
		return req, validationError("side must be one of buy, sell, short, cover; got %q", req.Side)
	}
	if !req.TIF.valid() {
		return req, validationError("time in force must be one of DAY, GTC, GTX; got %q", req.TIF)
	}
	if _, ok := orderTypeIndex[req.Type]; !ok {
		return req, validationError("order type must be one of MKT, LMT, Stop-MKT, Stop-LMT; got %q", req.Type)
	}
	if req.Quantity <= 0 {
		return req, validationError("quantity must be positive")
	}
	if (req.Type == OrderLimit || req.Type == OrderStopLimit) && req.LimitPrice <= 0 {
		return req, validationError("limit price must be positive")
	}
	if (req.Type == OrderStopMarket || req.Type == OrderStopLimit) && req.StopPrice <= 0 {
		return req, validationError("stop price must be positive")
	}
	return req, nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
