package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/tz_agent/internal/controller"
)

type watchlistSymbolsOutput struct {
	Body struct {
		Tracked []string `json:"tracked"`
	}
}

func newWatchlistSymbols(tracked []string) *watchlistSymbolsOutput {
	out := &watchlistSymbolsOutput{}
	out.Body.Tracked = tracked
	if out.Body.Tracked == nil {
		out.Body.Tracked = []string{}
	}
	return out
}

func registerWatchlistHandlers(api huma.API, svc Service) {
	type watchlistOutput struct {
		Body controller.WatchlistView
	}
	huma.Register(api, huma.Operation{OperationID: "get-watchlist", Method: http.MethodGet, Path: "/api/v1/watchlist", Summary: "Watchlist rows and tracked symbols", Tags: []string{"Watchlist"}},
		func(ctx context.Context, input *struct{}) (*watchlistOutput, error) {
			view, err := svc.Watchlist(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &watchlistOutput{Body: view}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "add-watchlist-symbols", Method: http.MethodPost, Path: "/api/v1/watchlist/symbols", Summary: "Add symbols to the watchlist", Description: "Symbols are added in order; the first unknown symbol stops the batch.", Tags: []string{"Watchlist"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Symbols []string `json:"symbols" minItems:"1"`
			}
		}) (*watchlistSymbolsOutput, error) {
			tracked, err := svc.AddWatchlistSymbols(ctx, input.Body.Symbols)
			if err != nil {
				return nil, mapErr(err)
			}
			return newWatchlistSymbols(tracked), nil
		})

	huma.Register(api, huma.Operation{OperationID: "remove-watchlist-symbol", Method: http.MethodDelete, Path: "/api/v1/watchlist/symbols/{symbol}", Summary: "Remove a symbol from the watchlist", Tags: []string{"Watchlist"}},
		func(ctx context.Context, input *symbolPathInput) (*watchlistSymbolsOutput, error) {
			tracked, err := svc.RemoveWatchlistSymbol(ctx, input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			return newWatchlistSymbols(tracked), nil
		})

	huma.Register(api, huma.Operation{OperationID: "reset-watchlist", Method: http.MethodDelete, Path: "/api/v1/watchlist", Summary: "Remove every watchlist row", Tags: []string{"Watchlist"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			if err := svc.ResetWatchlist(ctx); err != nil {
				return nil, mapErr(err)
			}
			return newStatus("reset"), nil
		})

	huma.Register(api, huma.Operation{OperationID: "restore-watchlist", Method: http.MethodPost, Path: "/api/v1/watchlist/restore", Summary: "Re-add tracked symbols missing from the widget", Tags: []string{"Watchlist"}},
		func(ctx context.Context, input *struct{}) (*watchlistSymbolsOutput, error) {
			tracked, err := svc.RestoreWatchlist(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return newWatchlistSymbols(tracked), nil
		})
}
