package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
	"github.com/dgnsrekt/tz_agent/internal/controller"
	"github.com/dgnsrekt/tz_agent/internal/relay"
	"github.com/dgnsrekt/tz_agent/internal/snapshot"
	"github.com/dgnsrekt/tz_agent/internal/tradezero"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	Health(ctx context.Context) (controller.Health, error)
	Login(ctx context.Context) error
	Conn(ctx context.Context) error

	LoadSymbol(ctx context.Context, symbol string) (string, error)
	CurrentSymbol(ctx context.Context) (string, error)
	Quote(ctx context.Context, symbol string) (tradezero.Quote, error)
	OrderQuantity(ctx context.Context, symbol string, buyingPower float64) (tradezero.OrderQuantity, error)

	PlaceOrder(ctx context.Context, req tradezero.OrderRequest) (tradezero.PlacedOrder, error)
	CancelOrders(ctx context.Context, symbol string, orderType tradezero.OrderType) (controller.CancelResult, error)
	ActiveOrders(ctx context.Context) ([]tradezero.ActiveOrder, error)
	Positions(ctx context.Context) ([]tradezero.Position, error)
	Position(ctx context.Context, symbol string) (controller.PositionStatus, error)

	LocateStock(ctx context.Context, symbol string, shares int, maxPrice float64) (*tradezero.LocateResult, error)
	CreditLocates(ctx context.Context, symbol string, quantity int) (controller.CreditResult, error)

	Watchlist(ctx context.Context) (controller.WatchlistView, error)
	AddWatchlistSymbols(ctx context.Context, symbols []string) ([]string, error)
	RemoveWatchlistSymbol(ctx context.Context, symbol string) ([]string, error)
	ResetWatchlist(ctx context.Context) error
	RestoreWatchlist(ctx context.Context) ([]string, error)

	Notifications(ctx context.Context, limit int) ([]tradezero.Notification, error)

	Account(ctx context.Context) (map[string]tradezero.AccountValue, error)
	AccountValue(ctx context.Context, name string) (tradezero.AccountValue, error)
	HideAccountAttributes(ctx context.Context, names []string) ([]string, error)

	TakeSnapshot(ctx context.Context, format string, quality int, fullPage bool, notes string) (snapshot.SnapshotMeta, error)
	ListSnapshots(ctx context.Context, symbol string, limit int) ([]snapshot.SnapshotMeta, error)
	GetSnapshot(ctx context.Context, id string) (snapshot.SnapshotMeta, error)
	ReadSnapshotImage(ctx context.Context, id string) ([]byte, string, error)
	DeleteSnapshot(ctx context.Context, id string) error
}

type statusOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func newStatus(status string) *statusOutput {
	out := &statusOutput{}
	out.Body.Status = status
	return out
}

type symbolPathInput struct {
	Symbol string `path:"symbol" doc:"Ticker symbol, case-insensitive" example:"AAPL"`
}

// NewServer builds the HTTP handler. broker may be nil, in which case the
// notification stream is not mounted.
func NewServer(svc Service, broker *relay.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("TradeZero Agent Controller API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/docs/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(eventsDocsHTML)); err != nil {
			slog.Debug("events docs response write failed", "error", err)
		}
	})
	if broker != nil {
		router.Get("/api/v1/notifications/stream", relay.SSEHandler(broker))
	}

	registerSessionHandlers(api, svc)
	registerMarketHandlers(api, svc)
	registerOrderHandlers(api, svc)
	registerLocateHandlers(api, svc)
	registerWatchlistHandlers(api, svc)
	registerAccountHandlers(api, svc)
	registerSnapshotHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}

	var (
		notFound      *tradezero.SymbolNotFoundError
		loadTimeout   *tradezero.LoadTimeoutError
		locateTimeout *tradezero.LocateTimeoutError
		marketClosed  *tradezero.MarketClosedError
		hidden        *tradezero.AttributeHiddenError
	)
	switch {
	case errors.As(err, &notFound), errors.Is(err, tradezero.ErrNotLocated):
		return huma.Error404NotFound(err.Error())
	case errors.As(err, &marketClosed), errors.As(err, &hidden):
		return huma.Error409Conflict(err.Error())
	case errors.As(err, &loadTimeout), errors.As(err, &locateTimeout):
		return huma.Error504GatewayTimeout(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(err.Error())
	}

	var coded *cdpcontrol.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case cdpcontrol.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case cdpcontrol.CodePageNotFound, cdpcontrol.CodeElementNotFound, cdpcontrol.CodeSnapshotNotFound:
			return huma.Error404NotFound(coded.Message)
		case cdpcontrol.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case cdpcontrol.CodeCDPUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
