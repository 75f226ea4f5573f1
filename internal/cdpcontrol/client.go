package cdpcontrol

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// transientHints are substrings in error causes that indicate a transient
// failure worth retrying (e.g. broken connection, closed session).
var transientHints = []string{
	"context canceled",
	"target closed",
	"session closed",
	"websocket",
	"connection reset",
	"broken pipe",
	"eof",
	"connection refused",
	"connection closed",
	"not connected",
}

type pageSession struct {
	info      PageInfo
	mu        sync.Mutex
	sessionID string // CDP session ID from Target.attachToTarget
}

// Client drives the single trading tab whose URL contains pageFilter.
type Client struct {
	cdpURL      string
	pageFilter  string
	evalTimeout time.Duration

	mu   sync.Mutex
	cdp  *rawCDP
	page *pageSession

	// opMu serialises page operations; the trading UI keeps one focused
	// input at a time.
	opMu sync.Mutex
}

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

func NewClient(cdpURL, pageFilter string, evalTimeout time.Duration) *Client {
	if evalTimeout <= 0 {
		evalTimeout = 5 * time.Second
	}
	return &Client{
		cdpURL:      cdpURL,
		pageFilter:  strings.ToLower(strings.TrimSpace(pageFilter)),
		evalTimeout: evalTimeout,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.cdpURL == "" {
		return newError(CodeCDPUnavailable, "missing CDP URL", nil)
	}

	slog.Info("cdpcontrol connect start", "cdp_url", c.cdpURL, "page_filter", c.pageFilter)
	c.cleanupLocked()

	c.cdp = newRawCDP(c.cdpURL)
	if err := c.cdp.connect(ctx); err != nil {
		c.cdp = nil
		return newError(CodeCDPUnavailable, "connect to CDP failed", err)
	}

	if err := c.syncPageLocked(ctx); err != nil {
		slog.Error("cdpcontrol initial page sync failed", "error", err)
		c.cleanupLocked()
		return err
	}

	slog.Info("cdpcontrol connect ok", "cdp_url", c.cdpURL, "target_id", c.page.info.TargetID)
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
	return nil
}

func (c *Client) cleanupLocked() {
	// Detach without closing the tab; the browser belongs to the user.
	if c.cdp != nil {
		if s := c.page; s != nil {
			s.mu.Lock()
			if s.sessionID != "" {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				if err := c.cdp.detachFromTarget(ctx, s.sessionID); err != nil {
					slog.Debug("cdpcontrol detach cleanup failed", "session_id", s.sessionID, "error", err)
				}
				cancel()
				s.sessionID = ""
			}
			s.mu.Unlock()
		}
		c.cdp.close()
		c.cdp = nil
	}
	c.page = nil
}

// PageInfo reports the tab currently being driven.
func (c *Client) PageInfo(ctx context.Context) (PageInfo, error) {
	s, err := c.resolvePage(ctx)
	if err != nil {
		return PageInfo{}, err
	}
	return s.info, nil
}

// evalOnPage evaluates js (an IIFE returning an envelope) and decodes its
// data into out.
func (c *Client) evalOnPage(ctx context.Context, js string, out any) error {
	return c.onPage(ctx, func(ctx context.Context, cdp *rawCDP, sessionID string) error {
		evalCtx, evalCancel := context.WithTimeout(ctx, c.evalTimeout)
		defer evalCancel()

		raw, err := cdp.evaluate(evalCtx, sessionID, js)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
				return newError(CodeEvalTimeout, "evaluation timed out", err)
			}
			return newError(CodeEvalFailure, "evaluation failed", err)
		}
		return DecodeEnvelope(raw, out)
	})
}

// onPage runs fn against the page session. A transient failure triggers one
// retry after reconnecting or re-resolving the tab.
func (c *Client) onPage(ctx context.Context, fn func(context.Context, *rawCDP, string) error) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	err := c.onPageOnce(ctx, fn)
	if err == nil || !c.shouldRetry(err) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}

	slog.Warn("cdpcontrol page op retry after transient failure", "error", err)
	if HasCode(err, CodeCDPUnavailable) {
		if recErr := c.reconnect(ctx); recErr != nil {
			slog.Error("cdpcontrol reconnect failed during retry", "error", recErr)
			return recErr
		}
	} else if syncErr := c.refreshPage(ctx); syncErr != nil {
		slog.Warn("cdpcontrol page refresh failed during retry", "error", syncErr)
	}
	return c.onPageOnce(ctx, fn)
}

func (c *Client) onPageOnce(ctx context.Context, fn func(context.Context, *rawCDP, string) error) error {
	s, err := c.resolvePage(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	cdp := c.cdp
	c.mu.Unlock()
	if cdp == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	sessionID, err := c.ensureSession(ctx, cdp, s)
	if err != nil {
		return err
	}

	if err := fn(ctx, cdp, sessionID); err != nil {
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Cause != nil {
			// Reset so a fresh attach happens on retry.
			s.mu.Lock()
			s.sessionID = ""
			s.mu.Unlock()
		}
		if coded == nil {
			return newError(CodeEvalFailure, "page operation failed", err)
		}
		return err
	}
	return nil
}

// DecodeEnvelope unpacks the {ok,data,error_code,error_message} object the
// page scripts return.
func DecodeEnvelope(raw string, out any) error {
	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation envelope", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = CodeEvalFailure
		}
		return newError(code, env.ErrorMessage, nil)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation data", err)
	}
	return nil
}

// ensureSession returns a CDP session ID for the page, attaching if needed.
func (c *Client) ensureSession(ctx context.Context, cdp *rawCDP, s *pageSession) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID != "" {
		return s.sessionID, nil
	}

	sid, err := cdp.attachToTarget(ctx, s.info.TargetID)
	if err != nil {
		return "", newError(CodeCDPUnavailable, "attach to target failed", err)
	}
	s.sessionID = sid
	slog.Debug("cdpcontrol session attached", "target_id", s.info.TargetID, "session_id", sid)
	return sid, nil
}

func (c *Client) resolvePage(ctx context.Context) (*pageSession, error) {
	c.mu.Lock()
	s := c.page
	c.mu.Unlock()
	if s != nil {
		return s, nil
	}

	if err := c.refreshPage(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page == nil {
		return nil, newError(CodePageNotFound, "no tab matches "+c.pageFilter, nil)
	}
	return c.page, nil
}

func (c *Client) refreshPage(ctx context.Context) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncPageLocked(ctx)
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

// syncPageLocked picks the first page target matching the filter. An
// existing session is kept when the target is unchanged.
func (c *Client) syncPageLocked(ctx context.Context) error {
	if c.cdp == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	targets, err := c.cdp.listTargets(ctx)
	if err != nil {
		return newError(CodeCDPUnavailable, "failed to list targets", err)
	}

	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if c.pageFilter != "" && !strings.Contains(strings.ToLower(t.URL), c.pageFilter) {
			continue
		}
		info := PageInfo{TargetID: string(t.TargetID), URL: t.URL, Title: t.Title}
		if c.page != nil && c.page.info.TargetID == info.TargetID {
			c.page.info = info
		} else {
			c.page = &pageSession{info: info}
		}
		slog.Debug("cdpcontrol page sync", "targets", len(targets), "target_id", info.TargetID)
		return nil
	}

	c.page = nil
	return newError(CodePageNotFound, "no tab matches "+c.pageFilter, nil)
}

func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.cdp != nil
	c.mu.Unlock()
	if connected {
		return nil
	}
	return c.reconnect(ctx)
}

func (c *Client) shouldRetry(err error) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}

	switch coded.Code {
	case CodeCDPUnavailable:
		return true
	case CodePageNotFound, CodeElementNotFound, CodeValidation:
		return false
	case CodeEvalFailure:
		if coded.Cause == nil {
			return false
		}
		cause := strings.ToLower(coded.Cause.Error())
		for _, hint := range transientHints {
			if strings.Contains(cause, hint) {
				return true
			}
		}
	}
	return false
}
