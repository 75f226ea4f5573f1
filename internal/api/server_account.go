package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/tz_agent/internal/tradezero"
)

func registerAccountHandlers(api huma.API, svc Service) {
	type notificationsOutput struct {
		Body struct {
			Notifications []tradezero.Notification `json:"notifications"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-notifications", Method: http.MethodGet, Path: "/api/v1/notifications", Summary: "Recent system notifications", Description: "Newest first. Subscribe to /api/v1/notifications/stream for live updates.", Tags: []string{"Notifications"}},
		func(ctx context.Context, input *struct {
			N int `query:"n" default:"20" minimum:"0" doc:"Maximum entries; 0 for all"`
		}) (*notificationsOutput, error) {
			list, err := svc.Notifications(ctx, input.N)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &notificationsOutput{}
			out.Body.Notifications = list
			if out.Body.Notifications == nil {
				out.Body.Notifications = []tradezero.Notification{}
			}
			return out, nil
		})

	type accountOutput struct {
		Body struct {
			Attributes map[string]tradezero.AccountValue `json:"attributes"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-account", Method: http.MethodGet, Path: "/api/v1/account", Summary: "All visible account values", Tags: []string{"Account"}},
		func(ctx context.Context, input *struct{}) (*accountOutput, error) {
			attrs, err := svc.Account(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &accountOutput{}
			out.Body.Attributes = attrs
			return out, nil
		})

	type accountValueOutput struct {
		Body tradezero.AccountValue
	}
	huma.Register(api, huma.Operation{OperationID: "get-account-value", Method: http.MethodGet, Path: "/api/v1/account/{attr}", Summary: "One account value", Description: "Returns 409 when the widget has been hidden.", Tags: []string{"Account"}},
		func(ctx context.Context, input *struct {
			Attr string `path:"attr" example:"buying_power"`
		}) (*accountValueOutput, error) {
			v, err := svc.AccountValue(ctx, input.Attr)
			if err != nil {
				return nil, mapErr(err)
			}
			return &accountValueOutput{Body: v}, nil
		})

	type hideOutput struct {
		Body struct {
			Hidden []string `json:"hidden"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "hide-account-attributes", Method: http.MethodPost, Path: "/api/v1/account/hide", Summary: "Hide account widgets", Description: "An empty list hides every widget.", Tags: []string{"Account"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Attributes []string `json:"attributes,omitempty"`
			}
		}) (*hideOutput, error) {
			hidden, err := svc.HideAccountAttributes(ctx, input.Body.Attributes)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &hideOutput{}
			out.Body.Hidden = hidden
			return out, nil
		})
}
