package tradezero

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

type Options struct {
	UserName string
	Password string
	// HideAttributes are account widgets hidden after every login. Empty
	// leaves them visible.
	HideAttributes []string
	HomeURL        string

	Loader LoaderConfig
	Locate LocateConfig

	DOMReadyAttempts int
	DOMReadyInterval time.Duration

	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.HomeURL == "" {
		o.HomeURL = DefaultHomeURL
	}
	o.Loader = o.Loader.withDefaults()
	if o.Locate.MaxAttempts <= 0 {
		o.Locate.MaxAttempts = DefaultLocateConfig().MaxAttempts
	}
	if o.Locate.PollInterval <= 0 {
		o.Locate.PollInterval = DefaultLocateConfig().PollInterval
	}
	if o.DOMReadyAttempts <= 0 {
		o.DOMReadyAttempts = 150
	}
	if o.DOMReadyInterval <= 0 {
		o.DOMReadyInterval = 500 * time.Millisecond
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Client drives one TradeZero tab. Methods must not be called concurrently;
// the controller serializes them.
type Client struct {
	page   Page
	opts   Options
	now    func() time.Time
	wait   waitFunc
	locate LocateConfig

	Loader        *Loader
	Notifications *Notifications
	Watchlist     *Watchlist
	Portfolio     *Portfolio
	Account       *Account
}

func New(page Page, opts Options) *Client {
	opts = opts.withDefaults()
	notes := NewNotifications(page, opts.Now)
	return &Client{
		page:          page,
		opts:          opts,
		now:           opts.Now,
		wait:          sleepCtx,
		locate:        opts.Locate,
		Loader:        NewLoader(page, notes, opts.Loader),
		Notifications: notes,
		Watchlist:     NewWatchlist(page, notes),
		Portfolio:     NewPortfolio(page),
		Account:       NewAccount(page),
	}
}

// Login fills the login form and waits for the trading UI. The order type
// drop-down is left on limit, the safest default.
func (c *Client) Login(ctx context.Context) error {
	if c.opts.UserName == "" || c.opts.Password == "" {
		return validationError("username and password are required to log in")
	}
	if err := c.page.SetValue(ctx, locLogin, c.opts.UserName); err != nil {
		return err
	}
	if err := c.page.WriteAndSubmit(ctx, locPassword, c.opts.Password); err != nil {
		return err
	}
	ready, err := c.domFullyLoaded(ctx, c.opts.DOMReadyAttempts)
	if err != nil {
		return err
	}
	if !ready {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: "trading UI did not load after login"}
	}
	if err := c.afterLoad(ctx); err != nil {
		return err
	}
	if err := c.page.SelectByIndex(ctx, locOrderType, orderTypeIndex[OrderLimit]); err != nil {
		return err
	}
	slog.Info("tradezero logged in", "user", c.opts.UserName)
	return nil
}

// Conn makes sure the trading UI is usable, logging in again or reloading
// the home page when it is not. The watchlist is restored after either.
func (c *Client) Conn(ctx context.Context) error {
	ready, err := c.domFullyLoaded(ctx, 1)
	if err == nil && ready {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if c.loginFormPresent(ctx) {
		slog.Info("tradezero session expired, logging in")
		if err := c.Login(ctx); err != nil {
			return unavailable("relogin failed", err)
		}
		return c.Watchlist.Restore(ctx)
	}

	slog.Info("tradezero trading UI not loaded, reloading", "url", c.opts.HomeURL)
	if err := c.page.Navigate(ctx, c.opts.HomeURL); err != nil {
		return unavailable("navigate home failed", err)
	}
	ready, err = c.domFullyLoaded(ctx, c.opts.DOMReadyAttempts)
	if err != nil {
		return unavailable("page reload failed", err)
	}
	if !ready {
		return unavailable("trading UI did not load after reload", nil)
	}
	if err := c.afterLoad(ctx); err != nil {
		return err
	}
	return c.Watchlist.Restore(ctx)
}

func (c *Client) afterLoad(ctx context.Context) error {
	if len(c.opts.HideAttributes) == 0 {
		return nil
	}
	return c.Account.HideAttributes(ctx, c.opts.HideAttributes...)
}

func (c *Client) loginFormPresent(ctx context.Context) bool {
	_, err := c.page.GetAttribute(ctx, locLogin, "id")
	return err == nil
}

// domFullyLoaded waits for the portfolio heading, the last widget rendered
// after login.
func (c *Client) domFullyLoaded(ctx context.Context, attempts int) (bool, error) {
	return poll(ctx, c.wait, attempts, c.opts.DOMReadyInterval, func(int) (bool, error) {
		titles, err := c.page.ReadTexts(ctx, locPortfolioTitle)
		if err != nil {
			if cdpcontrol.IsElementNotFound(err) {
				return false, nil
			}
			return false, err
		}
		for _, t := range titles {
			if strings.TrimSpace(t) == "Portfolio" {
				return true, nil
			}
		}
		return false, nil
	})
}

func unavailable(msg string, cause error) error {
	return &cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: msg, Cause: cause}
}
