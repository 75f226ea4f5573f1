// Package tradezero automates the TradeZero standard web app through a DOM
// driver: symbol loading, quotes, orders, locates, watchlist, portfolio,
// notifications and account widgets.
package tradezero

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

const DefaultHomeURL = "https://standard.tradezeroweb.us/"

// DOM is the part of a page driver the symbol loader needs.
type DOM interface {
	ReadText(ctx context.Context, loc cdpcontrol.Locator) (string, error)
	WriteAndSubmit(ctx context.Context, loc cdpcontrol.Locator, text string) error
}

// Page is the full driver surface. cdpcontrol.Client and cdp.Page both
// satisfy it.
type Page interface {
	DOM
	ReadTexts(ctx context.Context, loc cdpcontrol.Locator) ([]string, error)
	SetValue(ctx context.Context, loc cdpcontrol.Locator, text string) error
	Click(ctx context.Context, loc cdpcontrol.Locator) error
	SelectByIndex(ctx context.Context, loc cdpcontrol.Locator, index int) error
	SelectByText(ctx context.Context, loc cdpcontrol.Locator, text string) error
	GetAttribute(ctx context.Context, loc cdpcontrol.Locator, name string) (string, error)
	SetAttribute(ctx context.Context, loc cdpcontrol.Locator, name, value string) error
	OuterHTML(ctx context.Context, loc cdpcontrol.Locator) (string, error)
	Navigate(ctx context.Context, url string) error
}

// NotificationFeed exposes the newest system notification text ("" when
// there is none yet).
type NotificationFeed interface {
	LatestMessage(ctx context.Context) (string, error)
}

// Order form.
var (
	locSymbolInput   = cdpcontrol.ID("trading-order-input-symbol")
	locSymbolLabel   = cdpcontrol.ID("trading-order-symbol")
	locAsk           = cdpcontrol.ID("trading-order-ask")
	locBid           = cdpcontrol.ID("trading-order-bid")
	locLast          = cdpcontrol.ID("trading-order-p")
	locOrderType     = cdpcontrol.ID("trading-order-select-type")
	locOrderTIF      = cdpcontrol.ID("trading-order-select-time")
	locOrderQuantity = cdpcontrol.ID("trading-order-input-quantity")
	locOrderPrice    = cdpcontrol.ID("trading-order-input-price")
	locOrderStop     = cdpcontrol.ID("trading-order-input-sprice")
)

// Session.
var (
	locLogin          = cdpcontrol.ID("login")
	locPassword       = cdpcontrol.ID("password")
	locPortfolioTitle = cdpcontrol.XPath(`//*[contains(@id,'portfolio-container')]//div//div//h2`)
)

// Locates.
var (
	locLocateTab      = cdpcontrol.ID("locate-tab-1")
	locLocateSymbol   = cdpcontrol.ID("short-list-input-symbol")
	locLocateShares   = cdpcontrol.ID("short-list-input-shares")
	locLocateStatus   = cdpcontrol.ID("short-list-locate-status")
	locLocateButton   = cdpcontrol.ID("short-list-button-locate")
	locLocatedSymbols = cdpcontrol.XPath(`//*[@id="locate-inventory-table"]/tbody/tr/td[1]`)
)

// Watchlist.
var (
	locWatchlistInput   = cdpcontrol.ID("trading-l1-input-symbol")
	locWatchlistTable   = cdpcontrol.ID("trading-l1-table")
	locWatchlistSymbols = cdpcontrol.XPath(`//*[@id="trading-l1-tbody"]//td[2]`)
	locWatchlistDelete  = cdpcontrol.XPath(`//*[@id="trading-l1-tbody"]/tr/td[1]`)
)

// Portfolio.
var (
	locPositionsTable     = cdpcontrol.ID("opTable-1")
	locPositionSymbols    = cdpcontrol.XPath(`//*[@id="opTable-1"]/tbody/tr/td[1]`)
	locActiveOrdersTable  = cdpcontrol.ID("aoTable-1")
	locActiveOrderRows    = cdpcontrol.XPath(`//*[@id="aoTable-1"]/tbody/tr[@order-id]`)
	locNotificationItems  = cdpcontrol.XPath(`//*[@id="notifications-list-1"]/li`)
	locNotificationLatest = cdpcontrol.CSS("span.message")
)

func locOrderButton(side Side) cdpcontrol.Locator {
	return cdpcontrol.ID("trading-order-button-" + string(side))
}

func locLocateCell(symbol string, cell int) cdpcontrol.Locator {
	return cdpcontrol.ID(fmt.Sprintf("oitem-l-%s-cell-%d", symbol, cell))
}

// locLocateChoice addresses the accept (1) and decline (2) buttons of a
// locate offer.
func locLocateChoice(symbol string, choice int) cdpcontrol.Locator {
	return cdpcontrol.XPath(fmt.Sprintf(`//*[@id="oitem-l-%s-cell-8"]/span[%d]`, symbol, choice))
}

func locInventoryShares(symbol string) cdpcontrol.Locator {
	return cdpcontrol.ID("inv-" + symbol + "-cell-1")
}

func locInventorySellQty(symbol string) cdpcontrol.Locator {
	return cdpcontrol.ID("inv-" + symbol + "-sell-qty")
}

func locInventorySell(symbol string) cdpcontrol.Locator {
	return cdpcontrol.XPath(fmt.Sprintf(`//*[@id="inv-%s-sell"]/button`, symbol))
}

func locWatchlistRowDelete(symbol string) cdpcontrol.Locator {
	return cdpcontrol.XPath(fmt.Sprintf(`//*[@id="wl-%s"]/td[1]`, symbol))
}

func locCancelOrder(orderID string) cdpcontrol.Locator {
	return cdpcontrol.XPath(fmt.Sprintf(`//div[@id="portfolio-content-tab-ao-1"]//*[@order-id="%s"]/td[@class="red"]`, orderID))
}
