package tradezero

import (
	"context"
	"strings"
	"testing"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

func TestLoginSequence(t *testing.T) {
	page := newFakePage()
	page.setList(locPortfolioTitle, "Portfolio")
	c := newTestClient(t, page)
	c.opts.HideAttributes = []string{"cash"}

	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	want := []string{
		"set id=login trader",
		"submit id=password secret",
		"attr id=h-cash-value style=display: none;",
		"select id=trading-order-select-type #1",
	}
	if got := page.recorded(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("calls =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	c := newTestClient(t, newFakePage())
	c.opts.Password = ""
	if err := c.Login(context.Background()); !cdpcontrol.HasCode(err, cdpcontrol.CodeValidation) {
		t.Fatalf("Login() error = %v; want validation", err)
	}
}

func TestLoginTimesOutWithoutPortfolio(t *testing.T) {
	c := newTestClient(t, newFakePage())
	if err := c.Login(context.Background()); !cdpcontrol.HasCode(err, cdpcontrol.CodeCDPUnavailable) {
		t.Fatalf("Login() error = %v; want CDP_UNAVAILABLE", err)
	}
}

func TestConnNoopWhenLoaded(t *testing.T) {
	page := newFakePage()
	page.setList(locPortfolioTitle, "Positions", "Portfolio")

	if err := newTestClient(t, page).Conn(context.Background()); err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	if calls := page.recorded(); len(calls) != 0 {
		t.Fatalf("calls = %q; want none", calls)
	}
}

func TestConnLogsInWhenFormShown(t *testing.T) {
	page := newFakePage()
	page.setAttr(locLogin, "id", "login")
	page.onCall = func(call string) {
		if strings.HasPrefix(call, "submit id=password") {
			page.setList(locPortfolioTitle, "Portfolio")
		}
	}
	c := newTestClient(t, page)

	if err := c.Conn(context.Background()); err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	if page.countCalls("set id=login ") != 1 || page.countCalls("navigate ") != 0 {
		t.Fatalf("calls = %q", page.recorded())
	}
}

func TestConnReloadsHomeAndRestoresWatchlist(t *testing.T) {
	page := newFakePage()
	page.onCall = func(call string) {
		if strings.HasPrefix(call, "navigate ") {
			page.setList(locPortfolioTitle, "Portfolio")
		}
	}
	c := newTestClient(t, page)
	c.Watchlist.symbols["AAPL"] = struct{}{}

	if err := c.Conn(context.Background()); err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	want := []string{
		"navigate " + DefaultHomeURL,
		"submit id=trading-l1-input-symbol AAPL",
	}
	if got := page.recorded(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("calls = %q; want %q", got, want)
	}
}

func TestConnFailsWhenReloadNeverLoads(t *testing.T) {
	page := newFakePage()
	err := newTestClient(t, page).Conn(context.Background())
	if !cdpcontrol.HasCode(err, cdpcontrol.CodeCDPUnavailable) {
		t.Fatalf("Conn() error = %v; want CDP_UNAVAILABLE", err)
	}
}
