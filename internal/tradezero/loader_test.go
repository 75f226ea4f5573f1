package tradezero

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

func newTestLoader(page *fakePage, feed NotificationFeed) *Loader {
	l := NewLoader(page, feed, LoaderConfig{MaxAttempts: 300})
	l.wait = noWait
	return l
}

func TestLoadReportsMarketClosedOnZeroAsk(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "", "", "0.00")

	got, err := newTestLoader(page, stubFeed{}).Load(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != MarketClosed {
		t.Fatalf("Load() = %v; want %v", got, MarketClosed)
	}
	if n := page.readCount(locAsk); n != 3 {
		t.Fatalf("ask reads = %d; want 3", n)
	}
}

func TestLoadReportsLoadedOnPositiveAsk(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "", "", "189.43")

	got, err := newTestLoader(page, stubFeed{}).Load(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != Loaded {
		t.Fatalf("Load() = %v; want %v", got, Loaded)
	}
}

func TestLoadSubmitsLowercaseSymbolOnce(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "", "1,234.50")

	if _, err := newTestLoader(page, stubFeed{}).Load(context.Background(), " Tsla "); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	calls := page.recorded()
	if len(calls) != 1 || calls[0] != "submit id=trading-order-input-symbol tsla" {
		t.Fatalf("calls = %q; want one lowercase submit", calls)
	}
}

func TestLoadIsIdempotentWhenSymbolAlreadyActive(t *testing.T) {
	page := newFakePage()
	page.setText(locSymbolLabel, "AAPL (USD)")
	page.setText(locAsk, "189.43")

	got, err := newTestLoader(page, stubFeed{}).Load(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != Loaded {
		t.Fatalf("Load() = %v; want %v", got, Loaded)
	}
	if calls := page.recorded(); len(calls) != 0 {
		t.Fatalf("calls = %q; want no DOM writes", calls)
	}
}

func TestLoadResubmitsWhenActiveSymbolHasZeroAsk(t *testing.T) {
	page := newFakePage()
	page.setText(locSymbolLabel, "AAPL (USD)")
	page.setText(locAsk, "0.00")

	got, err := newTestLoader(page, stubFeed{}).Load(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != MarketClosed {
		t.Fatalf("Load() = %v; want %v", got, MarketClosed)
	}
	if n := page.countCalls("submit "); n != 1 {
		t.Fatalf("submits = %d; want 1", n)
	}
}

func TestLoadReturnsSymbolNotFoundAfterBudget(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "")

	_, err := newTestLoader(page, stubFeed{msg: "Symbol not found: ZZZZ"}).Load(context.Background(), "zzzz")
	var nf *SymbolNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Load() error = %v; want SymbolNotFoundError", err)
	}
	if nf.Symbol != "ZZZZ" {
		t.Fatalf("Symbol = %q; want ZZZZ", nf.Symbol)
	}
	if n := page.readCount(locAsk); n != 300 {
		t.Fatalf("ask reads = %d; want 300", n)
	}
	if n := page.countCalls("submit "); n != 1 {
		t.Fatalf("submits = %d; want 1", n)
	}
}

func TestLoadTimesOutOnUnrelatedNotification(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "")

	_, err := newTestLoader(page, stubFeed{msg: "Order rejected"}).Load(context.Background(), "ZZZZ")
	var timeout *LoadTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("Load() error = %v; want LoadTimeoutError", err)
	}
	if timeout.Attempts != 300 || timeout.LastMessage != "Order rejected" {
		t.Fatalf("timeout = %+v", timeout)
	}
}

func TestLoadNotFoundMessageMustMatchExactly(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "")

	_, err := newTestLoader(page, stubFeed{msg: "Symbol not found: ZZZZZ"}).Load(context.Background(), "ZZZZ")
	var timeout *LoadTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("Load() error = %v; want LoadTimeoutError", err)
	}
}

func TestLoadStopsAtFirstTerminalAsk(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "", "0.00", "189.43")

	got, err := newTestLoader(page, stubFeed{}).Load(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != MarketClosed {
		t.Fatalf("Load() = %v; want %v", got, MarketClosed)
	}
	if n := page.readCount(locAsk); n != 2 {
		t.Fatalf("ask reads = %d; want 2", n)
	}
}

func TestLoadKeepsPollingWhileAskMissingOrGarbled(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "--", "1.2.3a", "12.00")

	got, err := newTestLoader(page, stubFeed{}).Load(context.Background(), "AAPL")
	if err != nil || got != Loaded {
		t.Fatalf("Load() = %v, %v; want loaded", got, err)
	}
}

func TestLoadRetriesWhileAskElementMissing(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "189.43")
	page.setErr(locAsk, cdpcontrol.ElementNotFound(locAsk))

	l := newTestLoader(page, stubFeed{})
	waits := 0
	l.wait = func(context.Context, time.Duration) error {
		waits++
		if waits == 3 {
			page.setErr(locAsk, nil)
		}
		return nil
	}

	got, err := l.Load(context.Background(), "AAPL")
	if err != nil || got != Loaded {
		t.Fatalf("Load() = %v, %v; want loaded", got, err)
	}
	if waits != 3 || page.readCount(locAsk) != 1 {
		t.Fatalf("waits = %d, ask reads = %d; want 3 and 1", waits, page.readCount(locAsk))
	}
}

func TestNewLoaderFillsPartialConfig(t *testing.T) {
	def := DefaultLoaderConfig()
	tests := []struct {
		name string
		cfg  LoaderConfig
		want LoaderConfig
	}{
		{"zero", LoaderConfig{}, def},
		{"attempts only", LoaderConfig{MaxAttempts: 30}, LoaderConfig{MaxAttempts: 30, PollInterval: def.PollInterval, SettleDelay: def.SettleDelay}},
		{"negative delays", LoaderConfig{MaxAttempts: 5, PollInterval: -1, SettleDelay: -1}, LoaderConfig{MaxAttempts: 5, PollInterval: def.PollInterval, SettleDelay: def.SettleDelay}},
		{"explicit", LoaderConfig{MaxAttempts: 2, PollInterval: time.Second, SettleDelay: time.Minute}, LoaderConfig{MaxAttempts: 2, PollInterval: time.Second, SettleDelay: time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewLoader(newFakePage(), stubFeed{}, tt.cfg).Config(); got != tt.want {
				t.Fatalf("Config() = %+v; want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadWaitsBetweenPollsWithPartialConfig(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "")
	c := New(page, Options{Loader: LoaderConfig{MaxAttempts: 3}})

	var waits []time.Duration
	c.Loader.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := c.Loader.Load(context.Background(), "AAPL")
	var timeout *LoadTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("Load() error = %v; want LoadTimeoutError", err)
	}
	def := DefaultLoaderConfig()
	want := []time.Duration{def.SettleDelay, def.PollInterval, def.PollInterval}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v; want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("waits = %v; want %v", waits, want)
		}
	}
}

func TestLoadRejectsEmptySymbolWithoutDOMAccess(t *testing.T) {
	page := newFakePage()

	_, err := newTestLoader(page, stubFeed{}).Load(context.Background(), "   ")
	if !cdpcontrol.HasCode(err, cdpcontrol.CodeValidation) {
		t.Fatalf("Load() error = %v; want validation", err)
	}
	if len(page.recorded()) != 0 || page.readCount(locSymbolLabel) != 0 {
		t.Fatal("validation failure touched the DOM")
	}
}

func TestLoadPropagatesDriverErrors(t *testing.T) {
	page := newFakePage()
	page.errs[locAsk.String()] = &cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: "gone"}

	_, err := newTestLoader(page, stubFeed{}).Load(context.Background(), "AAPL")
	if !cdpcontrol.HasCode(err, cdpcontrol.CodeCDPUnavailable) {
		t.Fatalf("Load() error = %v; want CDP_UNAVAILABLE", err)
	}
}

func TestLoadHonorsCancellation(t *testing.T) {
	page := newFakePage()
	page.setText(locAsk, "")
	l := NewLoader(page, stubFeed{}, LoaderConfig{MaxAttempts: 300, PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	page.onCall = func(string) { cancel() }

	_, err := l.Load(ctx, "AAPL")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v; want context.Canceled", err)
	}
}

func TestClassifyAsk(t *testing.T) {
	cases := map[string]askState{
		"":         askPending,
		"  ":       askPending,
		"0.00":     askZero,
		"0":        askZero,
		"189.43":   askPositive,
		"1,234.50": askPositive,
		"0.01":     askPositive,
		"N/A":      askPending,
		"-1.00":    askPending,
	}
	for in, want := range cases {
		if got := classifyAsk(in); got != want {
			t.Errorf("classifyAsk(%q) = %v; want %v", in, got, want)
		}
	}
}
