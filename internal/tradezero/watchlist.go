package tradezero

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
	"github.com/dgnsrekt/tz_agent/internal/htmltable"
)

const watchlistSettle = 400 * time.Millisecond

// The widget shows 8 columns when docked on the left of the UI and 14 on the
// right. The delete button column (and currency, in the wide layout) is
// dropped.
var (
	watchlistNarrowColumns = []string{"symbol", "last", "bid", "ask", "%chg", "chg", "vol"}
	watchlistWideColumns   = []string{"symbol", "open", "close", "last", "bid", "ask", "high", "low", "%chg", "chg", "vol", "time"}
)

// WatchlistRow maps column name to cell text.
type WatchlistRow map[string]string

// Watchlist keeps the set of symbols added through it so they can be put
// back after the page resets the widget.
type Watchlist struct {
	page Page
	feed NotificationFeed
	wait waitFunc

	mu      sync.Mutex
	symbols map[string]struct{}
}

func NewWatchlist(page Page, feed NotificationFeed) *Watchlist {
	return &Watchlist{page: page, feed: feed, wait: sleepCtx, symbols: make(map[string]struct{})}
}

// Add types symbol into the watchlist input. The page reports unknown
// symbols only through the notification feed.
func (w *Watchlist) Add(ctx context.Context, symbol string) error {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return validationError("symbol is required")
	}
	if err := w.page.WriteAndSubmit(ctx, locWatchlistInput, sym); err != nil {
		return err
	}
	if err := w.wait(ctx, watchlistSettle); err != nil {
		return err
	}
	msg, err := w.feed.LatestMessage(ctx)
	if err != nil {
		slog.Debug("tradezero watchlist notification read failed", "symbol", sym, "error", err)
	}
	if msg == symbolNotFoundMessage(sym) {
		return &SymbolNotFoundError{Symbol: sym}
	}

	w.mu.Lock()
	w.symbols[sym] = struct{}{}
	w.mu.Unlock()
	slog.Info("tradezero watchlist add", "symbol", sym)
	return nil
}

// Remove is a no-op when symbol is not displayed.
func (w *Watchlist) Remove(ctx context.Context, symbol string) error {
	sym := NormalizeSymbol(symbol)
	current, err := w.Current(ctx)
	if err != nil {
		return err
	}
	if !containsSymbol(current, sym) {
		return nil
	}
	if err := w.page.Click(ctx, locWatchlistRowDelete(sym)); err != nil {
		return err
	}
	w.mu.Lock()
	delete(w.symbols, sym)
	w.mu.Unlock()
	slog.Info("tradezero watchlist remove", "symbol", sym)
	return nil
}

// Reset clears the widget and forgets every tracked symbol.
func (w *Watchlist) Reset(ctx context.Context) error {
	buttons, err := w.page.ReadTexts(ctx, locWatchlistDelete)
	if err != nil {
		return err
	}
	// Rows shift up after each delete, so the first button is clicked
	// once per row.
	first := cdpcontrol.XPath(fmt.Sprintf("(%s)[1]", locWatchlistDelete.Value))
	for range buttons {
		if err := w.page.Click(ctx, first); err != nil {
			return err
		}
	}
	w.mu.Lock()
	w.symbols = make(map[string]struct{})
	w.mu.Unlock()
	slog.Info("tradezero watchlist reset", "removed", len(buttons))
	return nil
}

// Restore re-adds tracked symbols missing from the widget.
func (w *Watchlist) Restore(ctx context.Context) error {
	current, err := w.Current(ctx)
	if err != nil {
		return err
	}
	for _, sym := range w.Symbols() {
		if containsSymbol(current, sym) {
			continue
		}
		if err := w.Add(ctx, sym); err != nil {
			return err
		}
	}
	return nil
}

// Symbols returns the tracked symbols, sorted.
func (w *Watchlist) Symbols() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.symbols))
	for s := range w.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Current returns the symbols displayed in the widget.
func (w *Watchlist) Current(ctx context.Context) ([]string, error) {
	rows, err := w.Data(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, NormalizeSymbol(r["symbol"]))
	}
	return out, nil
}

// Data scrapes the watchlist table. An empty widget yields no rows.
func (w *Watchlist) Data(ctx context.Context) ([]WatchlistRow, error) {
	symbols, err := w.page.ReadTexts(ctx, locWatchlistSymbols)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return []WatchlistRow{}, nil
	}

	src, err := w.page.OuterHTML(ctx, locWatchlistTable)
	if err != nil {
		return nil, err
	}
	tbl, err := htmltable.Parse(src)
	if err != nil {
		return nil, err
	}

	out := make([]WatchlistRow, 0, len(tbl.Rows))
	for _, r := range tbl.Rows {
		row, ok := watchlistRow(r.Cells)
		if !ok {
			slog.Debug("tradezero watchlist row skipped", "cells", len(r.Cells))
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func watchlistRow(cells []string) (WatchlistRow, bool) {
	var (
		names []string
		keep  []string
	)
	switch len(cells) {
	case 8:
		names, keep = watchlistNarrowColumns, cells[1:]
	case 14:
		names = watchlistWideColumns
		keep = append([]string{cells[1]}, cells[3:]...)
	default:
		return nil, false
	}
	row := make(WatchlistRow, len(names))
	for i, name := range names {
		row[name] = keep[i]
	}
	return row, true
}
