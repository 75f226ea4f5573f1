package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
	"github.com/dgnsrekt/tz_agent/internal/notify"
	"github.com/dgnsrekt/tz_agent/internal/relay"
	"github.com/dgnsrekt/tz_agent/internal/snapshot"
	"github.com/dgnsrekt/tz_agent/internal/storage"
	"github.com/dgnsrekt/tz_agent/internal/tradezero"
)

// Browser is the driven tab: DOM access plus screenshots and tab info.
type Browser interface {
	tradezero.Page
	Screenshot(ctx context.Context, format string, quality int, fullPage bool) ([]byte, error)
	PageInfo(ctx context.Context) (cdpcontrol.PageInfo, error)
}

// Service wraps TradeZero operations for the HTTP API. The web app has a
// single order form, so calls that touch the page run one at a time.
type Service struct {
	page     Browser
	tz       *tradezero.Client
	snaps    *snapshot.Store
	journals *storage.Registry
	notifier *notify.Notifier
	broker   *relay.Broker
	now      func() time.Time

	mu sync.Mutex
}

// NewService wires the collaborators. journals, notifier and broker may be
// nil.
func NewService(page Browser, tz *tradezero.Client, snaps *snapshot.Store, journals *storage.Registry, notifier *notify.Notifier, broker *relay.Broker) *Service {
	return &Service{
		page:     page,
		tz:       tz,
		snaps:    snaps,
		journals: journals,
		notifier: notifier,
		broker:   broker,
		now:      time.Now,
	}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

// read runs fn under the page lock. A CDP_UNAVAILABLE failure triggers one
// reconnect of the TradeZero session and a retry.
func (s *Service) read(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(ctx)
	if err == nil || !cdpcontrol.HasCode(err, cdpcontrol.CodeCDPUnavailable) || ctx.Err() != nil {
		return err
	}
	slog.Warn("controller read failed, reconnecting session", "error", err)
	if connErr := s.tz.Conn(ctx); connErr != nil {
		return connErr
	}
	return fn(ctx)
}

// act runs fn under the page lock without retrying. Order entry must not be
// replayed blindly.
func (s *Service) act(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

// record journals and broadcasts an event. Failures are logged only.
func (s *Service) record(stream, kind string, v any) {
	if s.journals != nil {
		if _, err := s.journals.Journal(stream).Append(kind, v); err != nil {
			slog.Warn("controller journal append failed", "stream", stream, "kind", kind, "error", err)
		}
	}
	if s.broker != nil {
		if err := s.broker.PublishJSON(stream, v); err != nil {
			slog.Warn("controller publish failed", "stream", stream, "error", err)
		}
	}
}

// --- Health / session ---

type Health struct {
	Status      string              `json:"status"`
	Page        cdpcontrol.PageInfo `json:"page"`
	MarketOpen  bool                `json:"market_open"`
	EasternTime string              `json:"eastern_time"`
	SSEClients  int                 `json:"sse_clients"`
}

// Health reports tab info without taking the page lock, so it answers while
// a long load is running.
func (s *Service) Health(ctx context.Context) (Health, error) {
	info, err := s.page.PageInfo(ctx)
	if err != nil {
		return Health{}, err
	}
	now := s.now()
	h := Health{
		Status:      "ok",
		Page:        info,
		MarketOpen:  tradezero.IsMarketOpen(now),
		EasternTime: tradezero.EasternNow(now).Format(time.RFC3339),
	}
	if s.broker != nil {
		h.SSEClients = s.broker.ClientCount()
	}
	return h, nil
}

func (s *Service) Login(ctx context.Context) error {
	return s.act(ctx, s.tz.Login)
}

func (s *Service) Conn(ctx context.Context) error {
	return s.act(ctx, s.tz.Conn)
}

// --- Symbols and quotes ---

func (s *Service) LoadSymbol(ctx context.Context, symbol string) (string, error) {
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return "", err
	}
	var outcome tradezero.LoadOutcome
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		outcome, err = s.tz.Load(ctx, symbol)
		return err
	})
	if err != nil {
		return "", err
	}
	return outcome.String(), nil
}

func (s *Service) CurrentSymbol(ctx context.Context) (string, error) {
	var sym string
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		sym, err = s.tz.CurrentSymbol(ctx)
		return err
	})
	return sym, err
}

func (s *Service) Quote(ctx context.Context, symbol string) (tradezero.Quote, error) {
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return tradezero.Quote{}, err
	}
	var q tradezero.Quote
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.tz.Quote(ctx, symbol)
		return err
	})
	return q, err
}

func (s *Service) OrderQuantity(ctx context.Context, symbol string, buyingPower float64) (tradezero.OrderQuantity, error) {
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return tradezero.OrderQuantity{}, err
	}
	var q tradezero.OrderQuantity
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.tz.CalculateOrderQuantity(ctx, symbol, buyingPower)
		return err
	})
	return q, err
}

// --- Orders ---

// PlaceOrder submits req, journals it and pushes a notification when an
// ntfy endpoint is configured.
func (s *Service) PlaceOrder(ctx context.Context, req tradezero.OrderRequest) (tradezero.PlacedOrder, error) {
	if err := s.requireNonEmpty(req.Symbol, "symbol"); err != nil {
		return tradezero.PlacedOrder{}, err
	}
	var placed tradezero.PlacedOrder
	err := s.act(ctx, func(ctx context.Context) error {
		var err error
		placed, err = s.tz.PlaceOrder(ctx, req)
		return err
	})
	if err != nil {
		return tradezero.PlacedOrder{}, err
	}

	s.record(storage.StreamOrders, "placed", placed)
	if s.notifier.Enabled() {
		go func() {
			nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.notifier.OrderPlaced(nctx, placed); err != nil {
				slog.Warn("controller order notification failed", "symbol", placed.Symbol, "error", err)
			}
		}()
	}
	return placed, nil
}

type CancelResult struct {
	Symbol    string              `json:"symbol"`
	OrderType tradezero.OrderType `json:"order_type"`
	OrderIDs  []string            `json:"order_ids"`
}

func (s *Service) CancelOrders(ctx context.Context, symbol string, orderType tradezero.OrderType) (CancelResult, error) {
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return CancelResult{}, err
	}
	if err := s.requireNonEmpty(string(orderType), "order type"); err != nil {
		return CancelResult{}, err
	}
	var ids []string
	err := s.act(ctx, func(ctx context.Context) error {
		var err error
		ids, err = s.tz.Portfolio.CancelActiveOrder(ctx, symbol, orderType)
		return err
	})
	if err != nil {
		return CancelResult{}, err
	}
	res := CancelResult{Symbol: tradezero.NormalizeSymbol(symbol), OrderType: orderType, OrderIDs: ids}
	s.record(storage.StreamOrders, "cancelled", res)
	return res, nil
}

func (s *Service) ActiveOrders(ctx context.Context) ([]tradezero.ActiveOrder, error) {
	var out []tradezero.ActiveOrder
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.tz.Portfolio.ActiveOrders(ctx)
		return err
	})
	return out, err
}

// --- Portfolio ---

func (s *Service) Positions(ctx context.Context) ([]tradezero.Position, error) {
	var out []tradezero.Position
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.tz.Portfolio.OpenPositions(ctx)
		return err
	})
	return out, err
}

type PositionStatus struct {
	Symbol   string             `json:"symbol"`
	Invested bool               `json:"invested"`
	Position tradezero.Position `json:"position,omitempty"`
}

func (s *Service) Position(ctx context.Context, symbol string) (PositionStatus, error) {
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return PositionStatus{}, err
	}
	sym := tradezero.NormalizeSymbol(symbol)
	positions, err := s.Positions(ctx)
	if err != nil {
		return PositionStatus{}, err
	}
	out := PositionStatus{Symbol: sym}
	for _, p := range positions {
		if strings.EqualFold(p["symbol"], sym) {
			out.Invested = true
			out.Position = p
			break
		}
	}
	return out, nil
}

// --- Locates ---

func (s *Service) LocateStock(ctx context.Context, symbol string, shares int, maxPrice float64) (*tradezero.LocateResult, error) {
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return nil, err
	}
	var res *tradezero.LocateResult
	err := s.act(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.tz.LocateStock(ctx, symbol, shares, maxPrice)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res != nil {
		s.record(storage.StreamLocates, "located", res)
	}
	return res, nil
}

type CreditResult struct {
	Symbol   string `json:"symbol"`
	Quantity int    `json:"quantity"`
}

func (s *Service) CreditLocates(ctx context.Context, symbol string, quantity int) (CreditResult, error) {
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return CreditResult{}, err
	}
	err := s.act(ctx, func(ctx context.Context) error {
		return s.tz.CreditLocates(ctx, symbol, quantity)
	})
	if err != nil {
		return CreditResult{}, err
	}
	res := CreditResult{Symbol: tradezero.NormalizeSymbol(symbol), Quantity: quantity}
	s.record(storage.StreamLocates, "credited", res)
	return res, nil
}

// --- Watchlist ---

type WatchlistView struct {
	Tracked []string                 `json:"tracked"`
	Rows    []tradezero.WatchlistRow `json:"rows"`
}

func (s *Service) Watchlist(ctx context.Context) (WatchlistView, error) {
	var rows []tradezero.WatchlistRow
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.tz.Watchlist.Data(ctx)
		return err
	})
	if err != nil {
		return WatchlistView{}, err
	}
	return WatchlistView{Tracked: s.tz.Watchlist.Symbols(), Rows: rows}, nil
}

func (s *Service) AddWatchlistSymbols(ctx context.Context, symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "symbols is required"}
	}
	err := s.act(ctx, func(ctx context.Context) error {
		for _, sym := range symbols {
			if err := s.tz.Watchlist.Add(ctx, sym); err != nil {
				return err
			}
		}
		return nil
	})
	return s.tz.Watchlist.Symbols(), err
}

func (s *Service) RemoveWatchlistSymbol(ctx context.Context, symbol string) ([]string, error) {
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return nil, err
	}
	err := s.act(ctx, func(ctx context.Context) error {
		return s.tz.Watchlist.Remove(ctx, symbol)
	})
	return s.tz.Watchlist.Symbols(), err
}

func (s *Service) ResetWatchlist(ctx context.Context) error {
	return s.act(ctx, s.tz.Watchlist.Reset)
}

func (s *Service) RestoreWatchlist(ctx context.Context) ([]string, error) {
	err := s.act(ctx, s.tz.Watchlist.Restore)
	return s.tz.Watchlist.Symbols(), err
}

// --- Notifications ---

// Notifications lists up to limit entries, newest first. The notification
// relay polls through here so it shares the page lock.
func (s *Service) Notifications(ctx context.Context, limit int) ([]tradezero.Notification, error) {
	var out []tradezero.Notification
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.tz.Notifications.List(ctx, limit)
		return err
	})
	return out, err
}

// --- Account ---

func (s *Service) Account(ctx context.Context) (map[string]tradezero.AccountValue, error) {
	var out map[string]tradezero.AccountValue
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.tz.Account.All(ctx)
		return err
	})
	return out, err
}

func (s *Service) AccountValue(ctx context.Context, name string) (tradezero.AccountValue, error) {
	if err := s.requireNonEmpty(name, "attribute"); err != nil {
		return tradezero.AccountValue{}, err
	}
	var v tradezero.AccountValue
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		v, err = s.tz.Account.Get(ctx, name)
		return err
	})
	return v, err
}

// HideAccountAttributes hides the named widgets; no names hides them all.
func (s *Service) HideAccountAttributes(ctx context.Context, names []string) ([]string, error) {
	err := s.act(ctx, func(ctx context.Context) error {
		return s.tz.Account.HideAttributes(ctx, names...)
	})
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return tradezero.AccountAttributes(), nil
	}
	return names, nil
}
