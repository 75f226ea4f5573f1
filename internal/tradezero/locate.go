package tradezero

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

const (
	insufficientBPMessage = "Insufficient BP to short a position with requested quantity."
	easyToBorrowStatus    = "Easy to borrow"

	// locateCheckpoint is the attempt at which the feed is first consulted
	// for an early abort; the final attempt is always a checkpoint too.
	locateCheckpoint = 15
)

// LocateConfig bounds both locate polls. Non-positive fields take the default.
type LocateConfig struct {
	MaxAttempts  int
	PollInterval time.Duration
}

// DefaultLocateConfig allows about 45 seconds for an offer.
func DefaultLocateConfig() LocateConfig {
	return LocateConfig{MaxAttempts: 300, PollInterval: 150 * time.Millisecond}
}

// LocateResult describes a locate offer. EasyToBorrow offers carry zero
// prices and need no acceptance.
type LocateResult struct {
	Symbol        string  `json:"symbol"`
	Shares        int     `json:"shares"`
	PricePerShare float64 `json:"price_per_share"`
	Total         float64 `json:"total"`
	EasyToBorrow  bool    `json:"easy_to_borrow"`
	Accepted      bool    `json:"accepted"`
}

// LocateStock requests a locate for shares (a multiple of 100) and accepts
// the offer when its total is at most maxPrice, declining otherwise. A nil
// result with nil error means no offer: the market is closed or buying power
// is insufficient.
func (c *Client) LocateStock(ctx context.Context, symbol string, shares int, maxPrice float64) (*LocateResult, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return nil, validationError("symbol is required")
	}
	if shares <= 0 || shares%100 != 0 {
		return nil, validationError("shares must be a positive multiple of 100; got %d", shares)
	}

	outcome, err := c.Load(ctx, sym)
	if err != nil {
		return nil, err
	}
	if outcome == MarketClosed {
		slog.Warn("tradezero locate skipped, market closed", "symbol", sym)
		return nil, nil
	}
	if last, err := c.Last(ctx); err == nil && last <= 1.00 {
		slog.Warn("tradezero locate requested for stock under $1.00", "symbol", sym, "last", last)
	}

	if err := c.page.Click(ctx, locLocateTab); err != nil {
		return nil, err
	}
	if err := c.page.WriteAndSubmit(ctx, locLocateSymbol, sym); err != nil {
		return nil, err
	}
	if err := c.page.SetValue(ctx, locLocateShares, strconv.Itoa(shares)); err != nil {
		return nil, err
	}

	status, err := c.waitLocateStatus(ctx, sym)
	if err != nil {
		return nil, err
	}
	if status == easyToBorrowStatus {
		slog.Info("tradezero locate easy to borrow", "symbol", sym)
		return &LocateResult{Symbol: sym, Shares: shares, EasyToBorrow: true}, nil
	}

	if err := c.page.Click(ctx, locLocateButton); err != nil {
		return nil, err
	}

	offer, err := c.pollLocateOffer(ctx, sym)
	if err != nil || offer == nil {
		return nil, err
	}
	offer.Shares = shares

	choice := 2
	if offer.Total <= maxPrice {
		choice = 1
		offer.Accepted = true
	}
	if err := c.page.Click(ctx, locLocateChoice(sym, choice)); err != nil {
		return nil, err
	}
	slog.Info("tradezero locate offer answered", "symbol", sym, "total", offer.Total, "max_price", maxPrice, "accepted", offer.Accepted)
	return offer, nil
}

// waitLocateStatus waits for the status line under the locate form.
func (c *Client) waitLocateStatus(ctx context.Context, sym string) (string, error) {
	var status string
	done, err := poll(ctx, c.wait, c.locate.MaxAttempts, c.locate.PollInterval, func(int) (bool, error) {
		text, err := c.page.ReadText(ctx, locLocateStatus)
		if err != nil {
			if cdpcontrol.IsElementNotFound(err) {
				return false, nil
			}
			return false, err
		}
		status = strings.TrimSpace(text)
		return status != "", nil
	})
	if err != nil {
		return "", err
	}
	if !done {
		return "", &LocateTimeoutError{Symbol: sym, Attempts: c.locate.MaxAttempts}
	}
	return status, nil
}

// pollLocateOffer waits for the price-per-share and total cells of the
// offer row. A missing cell and an unparseable value are both retried.
func (c *Client) pollLocateOffer(ctx context.Context, sym string) (*LocateResult, error) {
	var (
		offer   LocateResult
		aborted bool
	)
	last := c.locate.MaxAttempts - 1
	done, err := poll(ctx, c.wait, c.locate.MaxAttempts, c.locate.PollInterval, func(attempt int) (bool, error) {
		pps, ok, err := c.readLocateCell(ctx, sym, 2)
		if err != nil {
			return false, err
		}
		if ok {
			total, ok, err := c.readLocateCell(ctx, sym, 6)
			if err != nil {
				return false, err
			}
			if ok {
				offer = LocateResult{Symbol: sym, PricePerShare: pps, Total: total}
				return true, nil
			}
		}

		if attempt == locateCheckpoint || attempt == last {
			msg, err := c.Notifications.LatestMessage(ctx)
			if err != nil {
				slog.Debug("tradezero locate notification read failed", "symbol", sym, "error", err)
			} else if strings.Contains(msg, insufficientBPMessage) {
				slog.Warn("tradezero locate aborted", "symbol", sym, "reason", insufficientBPMessage)
				aborted = true
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if aborted {
		return nil, nil
	}
	if !done {
		return nil, &LocateTimeoutError{Symbol: sym, Attempts: c.locate.MaxAttempts}
	}
	return &offer, nil
}

// readLocateCell returns ok=false while the cell is absent or not numeric.
func (c *Client) readLocateCell(ctx context.Context, sym string, cell int) (float64, bool, error) {
	text, err := c.page.ReadText(ctx, locLocateCell(sym, cell))
	if err != nil {
		if cdpcontrol.IsElementNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	v, err := parseNumber(text)
	if err != nil {
		return 0, false, nil
	}
	return v, true, nil
}

// CreditLocates sells located shares back. quantity 0 credits everything
// located for the symbol.
func (c *Client) CreditLocates(ctx context.Context, symbol string, quantity int) error {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return validationError("symbol is required")
	}

	located, err := c.page.ReadTexts(ctx, locLocatedSymbols)
	if err != nil {
		return err
	}
	if !containsSymbol(located, sym) {
		return ErrNotLocated
	}

	if quantity != 0 {
		if quantity < 0 || quantity%100 != 0 {
			return validationError("quantity must be a positive multiple of 100; got %d", quantity)
		}
		text, err := c.page.ReadText(ctx, locInventoryShares(sym))
		if err != nil {
			return err
		}
		available, err := parseNumber(text)
		if err != nil {
			return validationError("cannot read located shares for %s: %q", sym, text)
		}
		if float64(quantity) > available {
			return validationError("cannot credit %d shares, only %.0f located", quantity, available)
		}
		if err := c.page.SetValue(ctx, locInventorySellQty(sym), strconv.Itoa(quantity)); err != nil {
			return err
		}
	}

	if err := c.page.Click(ctx, locInventorySell(sym)); err != nil {
		return err
	}
	slog.Info("tradezero locates credited", "symbol", sym, "quantity", quantity)
	return nil
}

func containsSymbol(list []string, sym string) bool {
	for _, s := range list {
		if NormalizeSymbol(s) == sym {
			return true
		}
	}
	return false
}
