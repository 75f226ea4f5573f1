package cdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	cdproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

// Page drives the trading tab through chromedp's query actions. It is the
// alternative to cdpcontrol.Client for browsers where a full chromedp
// session (DOM and Page domains enabled) is acceptable.
type Page struct {
	cdpURL     string
	pageFilter string
	timeout    time.Duration

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	mu   sync.Mutex
	info cdpcontrol.PageInfo

	opMu sync.Mutex
}

func NewPage(cdpURL, pageFilter string, timeout time.Duration) *Page {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Page{
		cdpURL:     cdpURL,
		pageFilter: strings.ToLower(strings.TrimSpace(pageFilter)),
		timeout:    timeout,
	}
}

func (p *Page) Connect(ctx context.Context) error {
	if p.cdpURL == "" {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: "missing CDP URL"}
	}
	slog.Info("Connecting to Chromium", "url", p.cdpURL)

	p.allocCtx, p.allocCancel = chromedp.NewRemoteAllocator(context.Background(), p.cdpURL)

	tempCtx, tempCancel := chromedp.NewContext(p.allocCtx)
	defer tempCancel()
	stop := context.AfterFunc(ctx, tempCancel)
	defer stop()

	if err := chromedp.Run(tempCtx); err != nil {
		p.allocCancel()
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: "failed to connect to browser", Cause: err}
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		p.allocCancel()
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: "failed to enumerate targets", Cause: err}
	}
	slog.Info("Found browser targets", "count", len(targets))

	t := pickTarget(targets, p.pageFilter)
	if t == nil {
		p.allocCancel()
		return &cdpcontrol.CodedError{
			Code:    cdpcontrol.CodePageNotFound,
			Message: fmt.Sprintf("no tab matches TZ_PAGE_FILTER=%q", p.pageFilter),
		}
	}

	p.tabCtx, p.tabCancel = chromedp.NewContext(p.allocCtx, chromedp.WithTargetID(t.TargetID))
	if err := chromedp.Run(p.tabCtx, page.Enable()); err != nil {
		p.tabCancel()
		p.allocCancel()
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: "failed to enable page domain", Cause: err}
	}

	p.setInfo(cdpcontrol.PageInfo{TargetID: string(t.TargetID), URL: t.URL, Title: t.Title})
	chromedp.ListenTarget(p.tabCtx, p.onEvent)

	slog.Info("Attached to tab", "target_id", t.TargetID, "url", truncateURL(t.URL))
	return nil
}

func pickTarget(targets []*target.Info, filter string) *target.Info {
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(t.URL), filter) {
			slog.Debug("Skipping tab (url filter)", "url", t.URL)
			continue
		}
		return t
	}
	return nil
}

func (p *Page) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame.ParentID == "" {
			p.mu.Lock()
			p.info.URL = e.Frame.URL
			p.mu.Unlock()
			slog.Info("Tab navigated (full)", "url", truncateURL(e.Frame.URL))
		}
	case *page.EventNavigatedWithinDocument:
		p.mu.Lock()
		p.info.URL = e.URL
		p.mu.Unlock()
		slog.Debug("Tab navigated (SPA)", "url", truncateURL(e.URL))
	}
}

func (p *Page) setInfo(info cdpcontrol.PageInfo) {
	p.mu.Lock()
	p.info = info
	p.mu.Unlock()
}

func (p *Page) PageInfo(context.Context) (cdpcontrol.PageInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.info.TargetID == "" {
		return cdpcontrol.PageInfo{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: "not connected"}
	}
	return p.info, nil
}

func (p *Page) Close() error {
	if p.tabCancel != nil {
		p.tabCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	slog.Info("CDP page closed")
	return nil
}

// run executes actions on the tab bounded by both the caller's ctx and the
// per-operation timeout.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.tabCtx == nil {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: "not connected"}
	}
	runCtx, cancel := context.WithTimeout(p.tabCtx, p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	var coded *cdpcontrol.CodedError
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalTimeout, Message: "page operation timed out", Cause: err}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: "page operation failed", Cause: err}
}

// nodes resolves loc without waiting for it to appear.
func (p *Page) nodes(ctx context.Context, loc cdpcontrol.Locator) ([]cdproto.NodeID, error) {
	sel, opt, err := selector(loc)
	if err != nil {
		return nil, err
	}
	var found []*cdproto.Node
	if err := p.run(ctx, chromedp.Nodes(sel, &found, opt, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, cdpcontrol.ElementNotFound(loc)
	}
	ids := make([]cdproto.NodeID, 0, len(found))
	for _, n := range found {
		ids = append(ids, n.NodeID)
	}
	return ids, nil
}

// first resolves loc to its first match, in the form ByNodeID actions take.
func (p *Page) first(ctx context.Context, loc cdpcontrol.Locator) ([]cdproto.NodeID, error) {
	ids, err := p.nodes(ctx, loc)
	if err != nil {
		return nil, err
	}
	return ids[:1], nil
}

func selector(loc cdpcontrol.Locator) (string, chromedp.QueryOption, error) {
	if loc.Value == "" {
		return "", nil, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "invalid locator " + loc.String()}
	}
	switch loc.By {
	case cdpcontrol.ByID:
		return fmt.Sprintf("[id=%q]", loc.Value), chromedp.ByQueryAll, nil
	case cdpcontrol.ByCSS:
		return loc.Value, chromedp.ByQueryAll, nil
	case cdpcontrol.ByXPath:
		return loc.Value, chromedp.BySearch, nil
	}
	return "", nil, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "invalid locator " + loc.String()}
}

// evalScript runs one of the shared envelope scripts.
func (p *Page) evalScript(ctx context.Context, js string, out any) error {
	var raw string
	if err := p.run(ctx, chromedp.Evaluate(js, &raw)); err != nil {
		return err
	}
	return cdpcontrol.DecodeEnvelope(raw, out)
}

func (p *Page) ReadText(ctx context.Context, loc cdpcontrol.Locator) (string, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	if _, _, err := selector(loc); err != nil {
		return "", err
	}
	var out string
	if err := p.evalScript(ctx, cdpcontrol.ReadTextScript(loc), &out); err != nil {
		return "", err
	}
	return out, nil
}

func (p *Page) ReadTexts(ctx context.Context, loc cdpcontrol.Locator) ([]string, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	if _, _, err := selector(loc); err != nil {
		return nil, err
	}
	var out []string
	if err := p.evalScript(ctx, cdpcontrol.ReadTextsScript(loc), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Page) WriteAndSubmit(ctx context.Context, loc cdpcontrol.Locator, text string) error {
	return p.write(ctx, loc, text+kb.Enter)
}

func (p *Page) SetValue(ctx context.Context, loc cdpcontrol.Locator, text string) error {
	return p.write(ctx, loc, text)
}

func (p *Page) write(ctx context.Context, loc cdpcontrol.Locator, keys string) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	ids, err := p.first(ctx, loc)
	if err != nil {
		return err
	}
	return p.run(ctx,
		chromedp.SetValue(ids, "", chromedp.ByNodeID),
		chromedp.SendKeys(ids, keys, chromedp.ByNodeID),
	)
}

func (p *Page) Click(ctx context.Context, loc cdpcontrol.Locator) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	ids, err := p.first(ctx, loc)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.Click(ids, chromedp.ByNodeID))
}

func (p *Page) SelectByIndex(ctx context.Context, loc cdpcontrol.Locator, index int) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	if _, _, err := selector(loc); err != nil {
		return err
	}
	return p.evalScript(ctx, cdpcontrol.SelectByIndexScript(loc, index), nil)
}

func (p *Page) SelectByText(ctx context.Context, loc cdpcontrol.Locator, text string) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	if _, _, err := selector(loc); err != nil {
		return err
	}
	return p.evalScript(ctx, cdpcontrol.SelectByTextScript(loc, text), nil)
}

func (p *Page) GetAttribute(ctx context.Context, loc cdpcontrol.Locator, name string) (string, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	ids, err := p.first(ctx, loc)
	if err != nil {
		return "", err
	}
	var (
		value string
		ok    bool
	)
	if err := p.run(ctx, chromedp.AttributeValue(ids, name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return value, nil
}

func (p *Page) SetAttribute(ctx context.Context, loc cdpcontrol.Locator, name, value string) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	ids, err := p.first(ctx, loc)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.SetAttributeValue(ids, name, value, chromedp.ByNodeID))
}

func (p *Page) OuterHTML(ctx context.Context, loc cdpcontrol.Locator) (string, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	ids, err := p.first(ctx, loc)
	if err != nil {
		return "", err
	}
	var html string
	if err := p.run(ctx, chromedp.OuterHTML(ids, &html, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return html, nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	if strings.TrimSpace(url) == "" {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "url is required"}
	}
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *Page) Screenshot(ctx context.Context, format string, quality int, fullPage bool) ([]byte, error) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	params := page.CaptureScreenshot().WithFromSurface(true).WithCaptureBeyondViewport(fullPage)
	switch format {
	case "", "png":
		params = params.WithFormat(page.CaptureScreenshotFormatPng)
	case "jpeg":
		params = params.WithFormat(page.CaptureScreenshotFormatJpeg)
		if quality > 0 {
			params = params.WithQuality(int64(quality))
		}
	default:
		return nil, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "format must be png or jpeg"}
	}

	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = params.Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
