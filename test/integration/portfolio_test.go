//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestPositions(t *testing.T) {
	resp := env.GET(t, "/api/v1/positions")
	requireStatus(t, resp, http.StatusOK)
	got := decodeJSON[struct {
		Positions []map[string]string `json:"positions"`
	}](t, resp)
	t.Logf("positions: %d", len(got.Positions))
}

func TestActiveOrders(t *testing.T) {
	resp := env.GET(t, "/api/v1/orders/active")
	requireStatus(t, resp, http.StatusOK)
	got := decodeJSON[struct {
		Orders []map[string]string `json:"orders"`
	}](t, resp)
	t.Logf("active orders: %d", len(got.Orders))
}

func TestAccount(t *testing.T) {
	resp := env.GET(t, "/api/v1/account")
	requireStatus(t, resp, http.StatusOK)
	got := decodeJSON[struct {
		Attributes map[string]struct {
			Text string `json:"text"`
		} `json:"attributes"`
	}](t, resp)
	t.Logf("visible account attributes: %d", len(got.Attributes))

	resp = env.GET(t, "/api/v1/account/not_an_attribute")
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestOrderValidation(t *testing.T) {
	resp := env.POST(t, "/api/v1/orders", map[string]any{
		"side": "buy", "symbol": env.Symbol, "quantity": 1, "type": "LMT",
	})
	requireStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

// TestLimitOrderRoundTrip places a far-from-market limit buy and cancels it.
// It only runs when TZ_INTEGRATION_ORDERS=1, against a paper account.
func TestLimitOrderRoundTrip(t *testing.T) {
	if !env.Orders {
		t.Skip("set TZ_INTEGRATION_ORDERS=1 to submit orders")
	}

	resp := env.POST(t, "/api/v1/orders", map[string]any{
		"side": "buy", "symbol": env.Symbol, "quantity": 1, "type": "LMT", "limit_price": 0.01, "tif": "DAY",
	})
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.DELETE(t, "/api/v1/orders/"+env.Symbol+"?type=LMT")
	requireStatus(t, resp, http.StatusOK)
	res := decodeJSON[struct {
		OrderIDs []string `json:"order_ids"`
	}](t, resp)
	if len(res.OrderIDs) == 0 {
		t.Fatal("cancel matched no orders")
	}
}
