package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/tz_agent/internal/controller"
	"github.com/dgnsrekt/tz_agent/internal/tradezero"
)

func registerOrderHandlers(api huma.API, svc Service) {
	type placeOrderOutput struct {
		Body tradezero.PlacedOrder
	}
	huma.Register(api, huma.Operation{OperationID: "place-order", Method: http.MethodPost, Path: "/api/v1/orders", Summary: "Place an order", Description: "Market and stop-market orders are refused outside 9:30-16:00 America/New_York.", Tags: []string{"Orders"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Side       string  `json:"side" doc:"buy, sell, short or cover" example:"buy"`
				Symbol     string  `json:"symbol" example:"AAPL"`
				Quantity   int     `json:"quantity" minimum:"1" example:"100"`
				Type       string  `json:"type,omitempty" default:"LMT" enum:"MKT,LMT,Stop-MKT,Stop-LMT"`
				LimitPrice float64 `json:"limit_price,omitempty" doc:"Required for LMT and Stop-LMT"`
				StopPrice  float64 `json:"stop_price,omitempty" doc:"Required for Stop-MKT and Stop-LMT"`
				TIF        string  `json:"tif,omitempty" default:"DAY" enum:"DAY,GTC,GTX"`
			}
		}) (*placeOrderOutput, error) {
			placed, err := svc.PlaceOrder(ctx, tradezero.OrderRequest{
				Side:       tradezero.Side(input.Body.Side),
				Symbol:     input.Body.Symbol,
				Quantity:   input.Body.Quantity,
				Type:       tradezero.OrderType(input.Body.Type),
				LimitPrice: input.Body.LimitPrice,
				StopPrice:  input.Body.StopPrice,
				TIF:        tradezero.TIF(input.Body.TIF),
			})
			if err != nil {
				return nil, mapErr(err)
			}
			return &placeOrderOutput{Body: placed}, nil
		})

	type cancelOutput struct {
		Body controller.CancelResult
	}
	huma.Register(api, huma.Operation{OperationID: "cancel-orders", Method: http.MethodDelete, Path: "/api/v1/orders/{symbol}", Summary: "Cancel active orders for a symbol", Description: "Cancels every active order of the symbol whose type matches.", Tags: []string{"Orders"}},
		func(ctx context.Context, input *struct {
			Symbol string `path:"symbol"`
			Type   string `query:"type" default:"LMT" enum:"MKT,LMT,Stop-MKT,Stop-LMT,MKT-Close,LMT-Close,RANGE"`
		}) (*cancelOutput, error) {
			res, err := svc.CancelOrders(ctx, input.Symbol, tradezero.OrderType(input.Type))
			if err != nil {
				return nil, mapErr(err)
			}
			return &cancelOutput{Body: res}, nil
		})

	type activeOrdersOutput struct {
		Body struct {
			Orders []tradezero.ActiveOrder `json:"orders"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "active-orders", Method: http.MethodGet, Path: "/api/v1/orders/active", Summary: "List active orders", Tags: []string{"Orders"}},
		func(ctx context.Context, input *struct{}) (*activeOrdersOutput, error) {
			orders, err := svc.ActiveOrders(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &activeOrdersOutput{}
			out.Body.Orders = orders
			if out.Body.Orders == nil {
				out.Body.Orders = []tradezero.ActiveOrder{}
			}
			return out, nil
		})

	type positionsOutput struct {
		Body struct {
			Positions []tradezero.Position `json:"positions"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-positions", Method: http.MethodGet, Path: "/api/v1/positions", Summary: "List open positions", Tags: []string{"Portfolio"}},
		func(ctx context.Context, input *struct{}) (*positionsOutput, error) {
			positions, err := svc.Positions(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &positionsOutput{}
			out.Body.Positions = positions
			if out.Body.Positions == nil {
				out.Body.Positions = []tradezero.Position{}
			}
			return out, nil
		})

	type positionOutput struct {
		Body controller.PositionStatus
	}
	huma.Register(api, huma.Operation{OperationID: "get-position", Method: http.MethodGet, Path: "/api/v1/positions/{symbol}", Summary: "Whether a symbol is held", Tags: []string{"Portfolio"}},
		func(ctx context.Context, input *symbolPathInput) (*positionOutput, error) {
			p, err := svc.Position(ctx, input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			return &positionOutput{Body: p}, nil
		})
}
