package cdpcontrol

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// rawCDP speaks the DevTools protocol directly over the browser websocket.
// It only issues the handful of commands the trading page needs: attach,
// Runtime.evaluate, Input.*, Page.navigate and Page.captureScreenshot.
// chromedp's session bootstrap (auto-attach, domain enables) is skipped so
// the page's own scripts are left undisturbed.
type rawCDP struct {
	httpBase string

	mu   sync.Mutex
	conn net.Conn
	seq  atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan json.RawMessage
}

type cdpRequest struct {
	ID        int64  `json:"id"`
	Method    string `json:"method"`
	SessionID string `json:"sessionId,omitempty"`
	Params    any    `json:"params,omitempty"`
}

type cdpResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type keyEvent struct {
	Type                  string `json:"type"`
	Key                   string `json:"key"`
	Code                  string `json:"code,omitempty"`
	WindowsVirtualKeyCode int    `json:"windowsVirtualKeyCode,omitempty"`
	Modifiers             int    `json:"modifiers,omitempty"`
}

func newRawCDP(httpBase string) *rawCDP {
	return &rawCDP{
		httpBase: strings.TrimRight(httpBase, "/"),
		pending:  make(map[int64]chan json.RawMessage),
	}
}

func (r *rawCDP) connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}

	wsURL, err := r.browserWSURL(ctx)
	if err != nil {
		return fmt.Errorf("rawcdp: browser ws url: %w", err)
	}

	slog.Debug("rawcdp dialing", "ws_url", wsURL)
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("rawcdp: dial: %w", err)
	}
	r.conn = conn
	r.pendingMu.Lock()
	r.pending = make(map[int64]chan json.RawMessage)
	r.pendingMu.Unlock()
	go r.readLoop(conn)
	return nil
}

func (r *rawCDP) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

// readLoop routes command responses to their waiters. Events are ignored.
func (r *rawCDP) readLoop(conn net.Conn) {
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			slog.Debug("rawcdp read loop exit", "error", err)
			r.failPending()
			return
		}

		var head struct {
			ID int64 `json:"id"`
		}
		if json.Unmarshal(data, &head) != nil || head.ID == 0 {
			continue
		}
		r.pendingMu.Lock()
		ch, ok := r.pending[head.ID]
		delete(r.pending, head.ID)
		r.pendingMu.Unlock()
		if ok {
			ch <- json.RawMessage(data)
		}
	}
}

func (r *rawCDP) failPending() {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
}

func (r *rawCDP) forget(id int64) {
	r.pendingMu.Lock()
	delete(r.pending, id)
	r.pendingMu.Unlock()
}

// call sends one command (browser-level when sessionID is empty) and returns
// the inner result object.
func (r *rawCDP) call(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("rawcdp: not connected")
	}

	req := cdpRequest{ID: r.seq.Add(1), Method: method, SessionID: sessionID, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rawcdp: marshal %s: %w", method, err)
	}

	ch := make(chan json.RawMessage, 1)
	r.pendingMu.Lock()
	r.pending[req.ID] = ch
	r.pendingMu.Unlock()

	r.mu.Lock()
	err = wsutil.WriteClientText(conn, payload)
	r.mu.Unlock()
	if err != nil {
		r.forget(req.ID)
		return nil, fmt.Errorf("rawcdp: send %s: %w", method, err)
	}

	var raw json.RawMessage
	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("rawcdp: connection closed")
		}
		raw = msg
	case <-ctx.Done():
		r.forget(req.ID)
		return nil, ctx.Err()
	}

	var resp cdpResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("rawcdp: unmarshal %s: %w", method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("rawcdp: %s: %s", method, resp.Error.Message)
	}
	return resp.Result, nil
}

func (r *rawCDP) attachToTarget(ctx context.Context, targetID string) (string, error) {
	raw, err := r.call(ctx, "", "Target.attachToTarget", map[string]any{
		"targetId": targetID,
		"flatten":  true,
	})
	if err != nil {
		return "", err
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("rawcdp: unmarshal attach: %w", err)
	}
	return out.SessionID, nil
}

func (r *rawCDP) detachFromTarget(ctx context.Context, sessionID string) error {
	_, err := r.call(ctx, "", "Target.detachFromTarget", map[string]any{"sessionId": sessionID})
	return err
}

// evaluate runs an expression on the session and returns its string value.
func (r *rawCDP) evaluate(ctx context.Context, sessionID, expr string) (string, error) {
	raw, err := r.call(ctx, sessionID, "Runtime.evaluate", map[string]any{
		"expression":    expr,
		"returnByValue": true,
		"awaitPromise":  true,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("rawcdp: unmarshal eval: %w", err)
	}
	if out.ExceptionDetails != nil {
		return "", fmt.Errorf("rawcdp: eval exception: %s", out.ExceptionDetails.Text)
	}

	var s string
	if err := json.Unmarshal(out.Result.Value, &s); err != nil {
		return string(out.Result.Value), nil
	}
	return s, nil
}

// insertText types text into the focused element as trusted input.
func (r *rawCDP) insertText(ctx context.Context, sessionID, text string) error {
	if _, err := r.call(ctx, sessionID, "Input.insertText", map[string]any{"text": text}); err != nil {
		return fmt.Errorf("rawcdp: insertText: %w", err)
	}
	return nil
}

// pressKey sends a keyDown/keyUp pair. modifiers is a bitmask: 1=Alt,
// 2=Ctrl, 4=Meta, 8=Shift.
func (r *rawCDP) pressKey(ctx context.Context, sessionID, key, code string, keyCode, modifiers int) error {
	for _, typ := range []string{"keyDown", "keyUp"} {
		ev := keyEvent{Type: typ, Key: key, Code: code, WindowsVirtualKeyCode: keyCode, Modifiers: modifiers}
		if _, err := r.call(ctx, sessionID, "Input.dispatchKeyEvent", ev); err != nil {
			return fmt.Errorf("rawcdp: %s: %w", typ, err)
		}
	}
	return nil
}

func (r *rawCDP) navigate(ctx context.Context, sessionID, url string) error {
	raw, err := r.call(ctx, sessionID, "Page.navigate", map[string]any{"url": url})
	if err != nil {
		return fmt.Errorf("rawcdp: navigate: %w", err)
	}
	var out struct {
		ErrorText string `json:"errorText"`
	}
	if json.Unmarshal(raw, &out) == nil && out.ErrorText != "" {
		return fmt.Errorf("rawcdp: navigate: %s", out.ErrorText)
	}
	return nil
}

// captureScreenshot returns base64 image data for the session's viewport.
func (r *rawCDP) captureScreenshot(ctx context.Context, sessionID, format string, quality int, fullPage bool) (string, error) {
	params := map[string]any{
		"format":      format,
		"fromSurface": true,
	}
	if fullPage {
		params["captureBeyondViewport"] = true
	}
	if format == "jpeg" && quality > 0 {
		params["quality"] = quality
	}

	raw, err := r.call(ctx, sessionID, "Page.captureScreenshot", params)
	if err != nil {
		return "", fmt.Errorf("rawcdp: captureScreenshot: %w", err)
	}
	var out struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("rawcdp: unmarshal screenshot: %w", err)
	}
	return out.Data, nil
}

// listTargets reads the HTTP /json/list endpoint.
func (r *rawCDP) listTargets(ctx context.Context) ([]*target.Info, error) {
	var entries []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := r.getJSON(ctx, "/json/list", 10*time.Second, &entries); err != nil {
		return nil, err
	}

	out := make([]*target.Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, &target.Info{
			TargetID: target.ID(e.ID),
			Type:     e.Type,
			Title:    e.Title,
			URL:      e.URL,
		})
	}
	return out, nil
}

func (r *rawCDP) browserWSURL(ctx context.Context) (string, error) {
	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := r.getJSON(ctx, "/json/version", 5*time.Second, &info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}

func (r *rawCDP) getJSON(ctx context.Context, path string, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.httpBase+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rawcdp: %s: HTTP %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
