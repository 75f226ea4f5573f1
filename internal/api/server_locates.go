package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/tz_agent/internal/controller"
	"github.com/dgnsrekt/tz_agent/internal/tradezero"
)

func registerLocateHandlers(api huma.API, svc Service) {
	type locateOutput struct {
		Body struct {
			Located bool                    `json:"located" doc:"False when the market is closed or buying power is insufficient"`
			Result  *tradezero.LocateResult `json:"result,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "locate-stock", Method: http.MethodPost, Path: "/api/v1/locates", Summary: "Request a short locate", Description: "Accepts the offer when its total cost is at most max_price and declines it otherwise. Easy-to-borrow symbols need no locate.", Tags: []string{"Locates"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Symbol   string  `json:"symbol" example:"GME"`
				Shares   int     `json:"shares" doc:"Multiple of 100" example:"100"`
				MaxPrice float64 `json:"max_price" doc:"Highest total locate cost to accept" example:"5"`
			}
		}) (*locateOutput, error) {
			res, err := svc.LocateStock(ctx, input.Body.Symbol, input.Body.Shares, input.Body.MaxPrice)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &locateOutput{}
			out.Body.Located = res != nil
			out.Body.Result = res
			return out, nil
		})

	type creditOutput struct {
		Body controller.CreditResult
	}
	huma.Register(api, huma.Operation{OperationID: "credit-locates", Method: http.MethodPost, Path: "/api/v1/locates/{symbol}/credit", Summary: "Sell located shares back", Description: "Quantity 0 credits every located share.", Tags: []string{"Locates"}},
		func(ctx context.Context, input *struct {
			Symbol string `path:"symbol"`
			Body   struct {
				Quantity int `json:"quantity" minimum:"0" doc:"Multiple of 100; 0 for all"`
			}
		}) (*creditOutput, error) {
			res, err := svc.CreditLocates(ctx, input.Symbol, input.Body.Quantity)
			if err != nil {
				return nil, mapErr(err)
			}
			return &creditOutput{Body: res}, nil
		})
}
