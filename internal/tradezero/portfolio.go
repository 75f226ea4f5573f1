package tradezero

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
	"github.com/dgnsrekt/tz_agent/internal/htmltable"
)

// Portfolio tab IDs.
const (
	TabOpenPositions   = "portfolio-tab-op-1"
	TabClosedPositions = "portfolio-tab-cp-1"
	TabActiveOrders    = "portfolio-tab-ao-1"
	TabInactiveOrders  = "portfolio-tab-io-1"
)

var (
	positionColumns    = []string{"symbol", "type", "qty", "p_close", "entry", "price", "change", "%change", "day_pnl", "pnl", "overnight"}
	activeOrderColumns = []string{"ref_number", "symbol", "side", "qty", "type", "status", "tif", "limit", "stop", "placed"}
)

// Position is one row of the open positions table, keyed by column name.
type Position map[string]string

// ActiveOrder is one row of the active orders table, keyed by column name.
type ActiveOrder map[string]string

type Portfolio struct {
	page Page
}

func NewPortfolio(page Page) *Portfolio {
	return &Portfolio{page: page}
}

func (p *Portfolio) OpenPositions(ctx context.Context) ([]Position, error) {
	symbols, err := p.page.ReadTexts(ctx, locPositionSymbols)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return []Position{}, nil
	}
	rows, err := p.scrape(ctx, locPositionsTable, positionColumns, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Position, 0, len(rows))
	for _, r := range rows {
		out = append(out, Position(r))
	}
	return out, nil
}

// ActiveOrders drops the leading cancel-button column.
func (p *Portfolio) ActiveOrders(ctx context.Context) ([]ActiveOrder, error) {
	orders, err := p.page.ReadTexts(ctx, locActiveOrderRows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []ActiveOrder{}, nil
	}
	rows, err := p.scrape(ctx, locActiveOrdersTable, activeOrderColumns, 1)
	if err != nil {
		return nil, err
	}
	out := make([]ActiveOrder, 0, len(rows))
	for _, r := range rows {
		out = append(out, ActiveOrder(r))
	}
	return out, nil
}

// Invested reports whether symbol has an open position.
func (p *Portfolio) Invested(ctx context.Context, symbol string) (bool, error) {
	sym := NormalizeSymbol(symbol)
	positions, err := p.OpenPositions(ctx)
	if err != nil {
		return false, err
	}
	for _, pos := range positions {
		if NormalizeSymbol(pos["symbol"]) == sym {
			return true, nil
		}
	}
	return false, nil
}

// SwitchTab focuses one of the portfolio tabs. Switching to the current tab
// is harmless.
func (p *Portfolio) SwitchTab(ctx context.Context, tab string) error {
	switch tab {
	case TabOpenPositions, TabClosedPositions, TabActiveOrders, TabInactiveOrders:
	default:
		return validationError("unknown portfolio tab %q", tab)
	}
	return p.page.Click(ctx, cdpcontrol.ID(tab))
}

// CancelActiveOrder cancels every active order for symbol whose type
// matches orderType and returns the cancelled reference numbers.
func (p *Portfolio) CancelActiveOrder(ctx context.Context, symbol string, orderType OrderType) ([]string, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return nil, validationError("symbol is required")
	}
	if err := p.SwitchTab(ctx, TabActiveOrders); err != nil {
		return nil, err
	}

	orders, err := p.ActiveOrders(ctx)
	if err != nil {
		return nil, err
	}

	present := false
	var ids []string
	for _, o := range orders {
		if NormalizeSymbol(o["symbol"]) != sym {
			continue
		}
		present = true
		if o["type"] == string(orderType) {
			ids = append(ids, strings.TrimPrefix(o["ref_number"], "S."))
		}
	}
	if !present {
		return nil, validationError("%s has no active orders", sym)
	}

	for _, id := range ids {
		if err := p.page.Click(ctx, locCancelOrder(id)); err != nil {
			return nil, err
		}
		slog.Info("tradezero order cancelled", "symbol", sym, "order_id", id, "type", orderType)
	}
	return ids, nil
}

// scrape parses the table and names its cells after skipping the first
// skip columns. Rows with an unexpected width are dropped.
func (p *Portfolio) scrape(ctx context.Context, table cdpcontrol.Locator, columns []string, skip int) ([]map[string]string, error) {
	src, err := p.page.OuterHTML(ctx, table)
	if err != nil {
		return nil, err
	}
	tbl, err := htmltable.Parse(src)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]string, 0, len(tbl.Rows))
	for _, r := range tbl.Rows {
		if len(r.Cells) != len(columns)+skip {
			slog.Debug("tradezero portfolio row skipped", "table", table.Value, "cells", len(r.Cells))
			continue
		}
		row := make(map[string]string, len(columns))
		for i, name := range columns {
			row[name] = r.Cells[i+skip]
		}
		out = append(out, row)
	}
	return out, nil
}
