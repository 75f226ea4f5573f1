package tradezero

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

// LoadOutcome is the non-error terminal state of a symbol load. The third
// terminal state, not found, is reported as *SymbolNotFoundError.
type LoadOutcome int

const (
	Loaded LoadOutcome = iota + 1
	MarketClosed
)

func (o LoadOutcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case MarketClosed:
		return "market_closed"
	}
	return "unknown"
}

// LoaderConfig bounds the ask poll. Non-positive fields take the default.
type LoaderConfig struct {
	MaxAttempts  int
	PollInterval time.Duration
	SettleDelay  time.Duration
}

// DefaultLoaderConfig allows about three seconds for a quote to render.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		MaxAttempts:  300,
		PollInterval: 10 * time.Millisecond,
		SettleDelay:  40 * time.Millisecond,
	}
}

// Loader selects a symbol on the order form and waits for its quote.
// Calls must not overlap on the same page.
type Loader struct {
	dom  DOM
	feed NotificationFeed
	cfg  LoaderConfig
	wait waitFunc
}

// NewLoader returns a Loader reading quotes from dom and failure messages
// from feed.
func NewLoader(dom DOM, feed NotificationFeed, cfg LoaderConfig) *Loader {
	return &Loader{dom: dom, feed: feed, cfg: cfg.withDefaults(), wait: sleepCtx}
}

func (c LoaderConfig) withDefaults() LoaderConfig {
	def := DefaultLoaderConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = def.SettleDelay
	}
	return c
}

// Config returns the effective settings after defaults.
func (l *Loader) Config() LoaderConfig {
	return l.cfg
}

// Load makes symbol the active symbol. It submits the form at most once and
// then only re-reads the ask field.
func (l *Loader) Load(ctx context.Context, symbol string) (LoadOutcome, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return 0, validationError("symbol is required")
	}

	if l.alreadyLoaded(ctx, sym) {
		slog.Debug("tradezero load symbol already active", "symbol", sym)
		return Loaded, nil
	}

	if err := l.dom.WriteAndSubmit(ctx, locSymbolInput, strings.ToLower(sym)); err != nil {
		return 0, err
	}
	if err := l.wait(ctx, l.cfg.SettleDelay); err != nil {
		return 0, err
	}

	var outcome LoadOutcome
	done, err := poll(ctx, l.wait, l.cfg.MaxAttempts, l.cfg.PollInterval, func(attempt int) (bool, error) {
		text, err := l.dom.ReadText(ctx, locAsk)
		if err != nil {
			if cdpcontrol.IsElementNotFound(err) {
				return false, nil
			}
			return false, err
		}
		switch classifyAsk(text) {
		case askZero:
			outcome = MarketClosed
			slog.Warn("tradezero market closed", "symbol", sym, "ask", text, "attempt", attempt)
			return true, nil
		case askPositive:
			outcome = Loaded
			slog.Debug("tradezero load symbol ok", "symbol", sym, "ask", text, "attempt", attempt)
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return 0, err
	}
	if done {
		return outcome, nil
	}

	msg, err := l.feed.LatestMessage(ctx)
	if err != nil {
		slog.Warn("tradezero load symbol notification read failed", "symbol", sym, "error", err)
		msg = ""
	}
	if msg == symbolNotFoundMessage(sym) {
		return 0, &SymbolNotFoundError{Symbol: sym}
	}
	slog.Warn("tradezero load symbol timed out", "symbol", sym, "attempts", l.cfg.MaxAttempts, "notification", msg)
	return 0, &LoadTimeoutError{Symbol: sym, Attempts: l.cfg.MaxAttempts, LastMessage: msg}
}

// alreadyLoaded reports whether sym is displayed with a positive ask. Any
// read failure means "no", which falls through to a normal submit.
func (l *Loader) alreadyLoaded(ctx context.Context, sym string) bool {
	current, err := l.dom.ReadText(ctx, locSymbolLabel)
	if err != nil || !strings.EqualFold(cleanSymbolLabel(current), sym) {
		return false
	}
	ask, err := l.dom.ReadText(ctx, locAsk)
	if err != nil {
		return false
	}
	return classifyAsk(ask) == askPositive
}

func symbolNotFoundMessage(sym string) string {
	return "Symbol not found: " + sym
}

type askState int

const (
	askPending askState = iota
	askZero
	askPositive
)

var askCleaner = strings.NewReplacer(".", "", ",", "")

// classifyAsk strips decimal points and thousands separators and checks the
// remaining digits. Empty or non-digit text is still rendering.
func classifyAsk(text string) askState {
	digits := askCleaner.Replace(strings.TrimSpace(text))
	if digits == "" {
		return askPending
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return askPending
		}
	}
	if strings.Trim(digits, "0") == "" {
		return askZero
	}
	return askPositive
}
