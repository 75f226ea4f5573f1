package tradezero

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

func locatePage() *fakePage {
	page := newFakePage()
	page.setText(locAsk, "4.20")
	page.setText(locLast, "4.19")
	page.setText(locLocateStatus, "", "Hard to borrow")
	return page
}

func TestLocateStockAcceptsCheapOffer(t *testing.T) {
	page := locatePage()
	page.setText(locLocateCell("GME", 2), "", "0.02")
	page.setText(locLocateCell("GME", 6), "2.00")
	c := newTestClient(t, page)

	got, err := c.LocateStock(context.Background(), "gme", 100, 5)
	if err != nil {
		t.Fatalf("LocateStock() error = %v", err)
	}
	want := &LocateResult{Symbol: "GME", Shares: 100, PricePerShare: 0.02, Total: 2, Accepted: true}
	if got == nil || *got != *want {
		t.Fatalf("LocateStock() = %+v; want %+v", got, want)
	}
	calls := strings.Join(page.recorded(), "\n")
	for _, want := range []string{
		"click id=locate-tab-1",
		"submit id=short-list-input-symbol GME",
		"set id=short-list-input-shares 100",
		"click id=short-list-button-locate",
		`click xpath=//*[@id="oitem-l-GME-cell-8"]/span[1]`,
	} {
		if !strings.Contains(calls, want) {
			t.Errorf("calls missing %q:\n%s", want, calls)
		}
	}
}

func TestLocateStockDeclinesExpensiveOffer(t *testing.T) {
	page := locatePage()
	page.setText(locLocateCell("GME", 2), "0.10")
	page.setText(locLocateCell("GME", 6), "$10.00")
	c := newTestClient(t, page)

	got, err := c.LocateStock(context.Background(), "GME", 100, 5)
	if err != nil {
		t.Fatalf("LocateStock() error = %v", err)
	}
	if got == nil || got.Accepted {
		t.Fatalf("LocateStock() = %+v; want declined offer", got)
	}
	if page.countCalls(`click xpath=//*[@id="oitem-l-GME-cell-8"]/span[2]`) != 1 {
		t.Fatalf("decline not clicked: %q", page.recorded())
	}
}

func TestLocateStockEasyToBorrow(t *testing.T) {
	page := locatePage()
	page.setText(locLocateStatus, "Easy to borrow")
	c := newTestClient(t, page)

	got, err := c.LocateStock(context.Background(), "AAPL", 200, 1)
	if err != nil {
		t.Fatalf("LocateStock() error = %v", err)
	}
	if got == nil || !got.EasyToBorrow || got.Total != 0 || got.Shares != 200 {
		t.Fatalf("LocateStock() = %+v", got)
	}
	if page.countCalls("click id=short-list-button-locate") != 0 {
		t.Fatal("locate button clicked for easy-to-borrow symbol")
	}
}

func TestLocateStockAbortsOnInsufficientBuyingPower(t *testing.T) {
	page := locatePage()
	page.setText(locNotificationLatest, insufficientBPMessage)
	page.setText(locLocateCell("GME", 2), "")
	c := newTestClient(t, page)

	got, err := c.LocateStock(context.Background(), "GME", 100, 5)
	if err != nil || got != nil {
		t.Fatalf("LocateStock() = %+v, %v; want nil, nil", got, err)
	}
	if n := page.readCount(locLocateCell("GME", 2)); n != locateCheckpoint+1 {
		t.Fatalf("offer polls = %d; want abort at attempt %d", n, locateCheckpoint)
	}
}

func TestLocateStockAbortsOnFinalAttempt(t *testing.T) {
	page := locatePage()
	page.setText(locNotificationLatest, "Locate request sent", insufficientBPMessage)
	page.setText(locLocateCell("GME", 2), "")
	c := newTestClient(t, page)

	got, err := c.LocateStock(context.Background(), "GME", 100, 5)
	if err != nil || got != nil {
		t.Fatalf("LocateStock() = %+v, %v; want nil, nil", got, err)
	}
	if n := page.readCount(locLocateCell("GME", 2)); n != c.locate.MaxAttempts {
		t.Fatalf("offer polls = %d; want %d", n, c.locate.MaxAttempts)
	}
	if n := page.readCount(locNotificationLatest); n != 2 {
		t.Fatalf("notification reads = %d; want checkpoint and final attempt", n)
	}
}

func TestLocateStockTimesOut(t *testing.T) {
	page := locatePage()
	c := newTestClient(t, page)

	_, err := c.LocateStock(context.Background(), "GME", 100, 5)
	var timeout *LocateTimeoutError
	if !errors.As(err, &timeout) || timeout.Symbol != "GME" {
		t.Fatalf("LocateStock() error = %v; want LocateTimeoutError for GME", err)
	}
}

func TestLocateStockSkippedWhenMarketClosed(t *testing.T) {
	page := locatePage()
	page.setText(locAsk, "0.00")
	c := newTestClient(t, page)

	got, err := c.LocateStock(context.Background(), "GME", 100, 5)
	if err != nil || got != nil {
		t.Fatalf("LocateStock() = %+v, %v; want nil, nil", got, err)
	}
	if page.countCalls("click ") != 0 {
		t.Fatal("locate form touched while market closed")
	}
}

func TestLocateStockRejectsOddLots(t *testing.T) {
	_, err := newTestClient(t, newFakePage()).LocateStock(context.Background(), "GME", 150, 5)
	if !cdpcontrol.HasCode(err, cdpcontrol.CodeValidation) {
		t.Fatalf("LocateStock() error = %v; want validation", err)
	}
}

func TestCreditLocates(t *testing.T) {
	page := newFakePage()
	page.setList(locLocatedSymbols, "GME", "AMC")
	page.setText(locInventoryShares("GME"), "300")
	c := newTestClient(t, page)

	if err := c.CreditLocates(context.Background(), "gme", 200); err != nil {
		t.Fatalf("CreditLocates() error = %v", err)
	}
	want := "set id=inv-GME-sell-qty 200\nclick xpath=//*[@id=\"inv-GME-sell\"]/button"
	if got := strings.Join(page.recorded(), "\n"); got != want {
		t.Fatalf("calls =\n%s\nwant\n%s", got, want)
	}
}

func TestCreditLocatesAllShares(t *testing.T) {
	page := newFakePage()
	page.setList(locLocatedSymbols, "GME")
	c := newTestClient(t, page)

	if err := c.CreditLocates(context.Background(), "GME", 0); err != nil {
		t.Fatalf("CreditLocates() error = %v", err)
	}
	if page.countCalls("set ") != 0 || page.countCalls("click ") != 1 {
		t.Fatalf("calls = %q", page.recorded())
	}
}

func TestCreditLocatesErrors(t *testing.T) {
	page := newFakePage()
	page.setList(locLocatedSymbols, "GME")
	page.setText(locInventoryShares("GME"), "100")
	c := newTestClient(t, page)

	if err := c.CreditLocates(context.Background(), "AMC", 100); !errors.Is(err, ErrNotLocated) {
		t.Fatalf("CreditLocates(AMC) = %v; want ErrNotLocated", err)
	}
	if err := c.CreditLocates(context.Background(), "GME", 200); !cdpcontrol.HasCode(err, cdpcontrol.CodeValidation) {
		t.Fatalf("CreditLocates(200 of 100) = %v; want validation", err)
	}
	if err := c.CreditLocates(context.Background(), "GME", 50); !cdpcontrol.HasCode(err, cdpcontrol.CodeValidation) {
		t.Fatalf("CreditLocates(50) = %v; want validation", err)
	}
	if page.countCalls("click ") != 0 {
		t.Fatal("sell clicked on invalid credit")
	}
}
