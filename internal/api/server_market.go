package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/tz_agent/internal/tradezero"
)

func registerMarketHandlers(api huma.API, svc Service) {
	type quoteOutput struct {
		Body tradezero.Quote
	}
	huma.Register(api, huma.Operation{OperationID: "get-quote", Method: http.MethodGet, Path: "/api/v1/quote/{symbol}", Summary: "Load a symbol and read its quote", Description: "Quote fields are zero when the market is closed for the symbol.", Tags: []string{"Market"}},
		func(ctx context.Context, input *symbolPathInput) (*quoteOutput, error) {
			q, err := svc.Quote(ctx, input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			return &quoteOutput{Body: q}, nil
		})

	type loadOutput struct {
		Body struct {
			Symbol  string `json:"symbol"`
			Outcome string `json:"outcome" enum:"loaded,market_closed"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "load-symbol", Method: http.MethodPost, Path: "/api/v1/symbol/load", Summary: "Make a symbol active on the order form", Tags: []string{"Market"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Symbol string `json:"symbol" example:"AAPL"`
			}
		}) (*loadOutput, error) {
			outcome, err := svc.LoadSymbol(ctx, input.Body.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &loadOutput{}
			out.Body.Symbol = tradezero.NormalizeSymbol(input.Body.Symbol)
			out.Body.Outcome = outcome
			return out, nil
		})

	type currentOutput struct {
		Body struct {
			Symbol string `json:"symbol"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "current-symbol", Method: http.MethodGet, Path: "/api/v1/symbol/current", Summary: "Symbol shown on the order form", Tags: []string{"Market"}},
		func(ctx context.Context, input *struct{}) (*currentOutput, error) {
			sym, err := svc.CurrentSymbol(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &currentOutput{}
			out.Body.Symbol = sym
			return out, nil
		})

	type quantityOutput struct {
		Body tradezero.OrderQuantity
	}
	huma.Register(api, huma.Operation{OperationID: "order-quantity", Method: http.MethodGet, Path: "/api/v1/quantity/{symbol}", Summary: "Shares affordable with a buying power", Tags: []string{"Market"}},
		func(ctx context.Context, input *struct {
			Symbol      string  `path:"symbol"`
			BuyingPower float64 `query:"buying_power" required:"true" doc:"Dollars available for the position"`
		}) (*quantityOutput, error) {
			q, err := svc.OrderQuantity(ctx, input.Symbol, input.BuyingPower)
			if err != nil {
				return nil, mapErr(err)
			}
			return &quantityOutput{Body: q}, nil
		})
}
