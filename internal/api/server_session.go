package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/tz_agent/internal/controller"
)

func registerSessionHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body controller.Health
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/api/v1/health", Summary: "Health check", Description: "Reports the driven tab and whether regular market hours are open.", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			h, err := svc.Health(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &healthOutput{Body: h}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "login", Method: http.MethodPost, Path: "/api/v1/session/login", Summary: "Log in to TradeZero", Description: "Fills the login form with the configured credentials and waits for the trading UI.", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			if err := svc.Login(ctx); err != nil {
				return nil, mapErr(err)
			}
			return newStatus("logged_in"), nil
		})

	huma.Register(api, huma.Operation{OperationID: "conn", Method: http.MethodPost, Path: "/api/v1/session/conn", Summary: "Ensure the session is usable", Description: "Logs in again or reloads the home page when the trading UI is not showing, then restores the watchlist.", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			if err := svc.Conn(ctx); err != nil {
				return nil, mapErr(err)
			}
			return newStatus("connected"), nil
		})
}
