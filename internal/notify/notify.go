// Package notify pushes short text messages to an ntfy topic.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgnsrekt/tz_agent/internal/tradezero"
)

// Notifier posts to one ntfy topic URL. A zero endpoint disables it.
type Notifier struct {
	client   *http.Client
	endpoint string
}

func New(client *http.Client, endpoint string) *Notifier {
	return &Notifier{client: client, endpoint: strings.TrimSpace(endpoint)}
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.endpoint != ""
}

// OrderPlaced announces a submitted order.
func (n *Notifier) OrderPlaced(ctx context.Context, o tradezero.PlacedOrder) error {
	if !n.Enabled() {
		return nil
	}
	return send(ctx, n.client, n.endpoint, "TradeZero order placed", orderMessage(o))
}

func orderMessage(o tradezero.PlacedOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %s %s", strings.ToUpper(string(o.Side)), o.Quantity, o.Symbol, o.Type)
	if o.LimitPrice > 0 {
		fmt.Fprintf(&b, " limit %.2f", o.LimitPrice)
	}
	if o.StopPrice > 0 {
		fmt.Fprintf(&b, " stop %.2f", o.StopPrice)
	}
	fmt.Fprintf(&b, " %s", o.TIF)
	return b.String()
}

// Send posts message to endpoint.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	return send(ctx, client, endpoint, "", message)
}

func send(ctx context.Context, client *http.Client, endpoint, title, message string) error {
	if endpoint == "" {
		return errors.New("ntfy endpoint is required")
	}
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
