package cdpcontrol

import (
	"context"
	"encoding/base64"
	"strings"
	"time"
)

const keySettle = 20 * time.Millisecond

// Injected for tests.
var (
	focusElement = func(c *Client, ctx context.Context, loc Locator, clear bool) error {
		return c.evalOnPage(ctx, jsFocus(loc, clear), nil)
	}
	typeText = func(c *Client, ctx context.Context, text string, submit bool) error {
		return c.onPage(ctx, func(ctx context.Context, cdp *rawCDP, sessionID string) error {
			if text != "" {
				if err := cdp.insertText(ctx, sessionID, text); err != nil {
					return err
				}
			}
			if !submit {
				return nil
			}
			if err := keyWait(ctx, keySettle); err != nil {
				return err
			}
			return cdp.pressKey(ctx, sessionID, "Enter", "Enter", 13, 0)
		})
	}
	keyWait = func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
)

func checkLocator(loc Locator) error {
	if !loc.valid() {
		return newError(CodeValidation, "invalid locator "+loc.String(), nil)
	}
	return nil
}

// ReadText returns the rendered text of the first element matching loc.
func (c *Client) ReadText(ctx context.Context, loc Locator) (string, error) {
	if err := checkLocator(loc); err != nil {
		return "", err
	}
	var out string
	if err := c.evalOnPage(ctx, ReadTextScript(loc), &out); err != nil {
		return "", err
	}
	return out, nil
}

// ReadTexts returns the text of every element matching loc. No match is an
// empty slice, not an error.
func (c *Client) ReadTexts(ctx context.Context, loc Locator) ([]string, error) {
	if err := checkLocator(loc); err != nil {
		return nil, err
	}
	var out []string
	if err := c.evalOnPage(ctx, ReadTextsScript(loc), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteAndSubmit focuses the input, types text as trusted key input and
// presses Enter.
func (c *Client) WriteAndSubmit(ctx context.Context, loc Locator, text string) error {
	return c.write(ctx, loc, text, true)
}

// SetValue replaces the input's value with text.
func (c *Client) SetValue(ctx context.Context, loc Locator, text string) error {
	return c.write(ctx, loc, text, false)
}

func (c *Client) write(ctx context.Context, loc Locator, text string, submit bool) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	if err := focusElement(c, ctx, loc, true); err != nil {
		return err
	}
	if err := typeText(c, ctx, text, submit); err != nil {
		return newError(CodeEvalFailure, "failed to type into "+loc.String(), err)
	}
	return nil
}

func (c *Client) Click(ctx context.Context, loc Locator) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	return c.evalOnPage(ctx, jsClick(loc), nil)
}

func (c *Client) SelectByIndex(ctx context.Context, loc Locator, index int) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	return c.evalOnPage(ctx, SelectByIndexScript(loc, index), nil)
}

func (c *Client) SelectByText(ctx context.Context, loc Locator, text string) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	return c.evalOnPage(ctx, SelectByTextScript(loc, text), nil)
}

// GetAttribute returns "" for an absent attribute.
func (c *Client) GetAttribute(ctx context.Context, loc Locator, name string) (string, error) {
	if err := checkLocator(loc); err != nil {
		return "", err
	}
	var out string
	if err := c.evalOnPage(ctx, jsGetAttribute(loc, name), &out); err != nil {
		return "", err
	}
	return out, nil
}

func (c *Client) SetAttribute(ctx context.Context, loc Locator, name, value string) error {
	if err := checkLocator(loc); err != nil {
		return err
	}
	return c.evalOnPage(ctx, jsSetAttribute(loc, name, value), nil)
}

func (c *Client) OuterHTML(ctx context.Context, loc Locator) (string, error) {
	if err := checkLocator(loc); err != nil {
		return "", err
	}
	var out string
	if err := c.evalOnPage(ctx, jsOuterHTML(loc), &out); err != nil {
		return "", err
	}
	return out, nil
}

// Navigate loads url in the driven tab.
func (c *Client) Navigate(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return newError(CodeValidation, "url is required", nil)
	}
	return c.onPage(ctx, func(ctx context.Context, cdp *rawCDP, sessionID string) error {
		return cdp.navigate(ctx, sessionID, url)
	})
}

// Screenshot captures the tab as png or jpeg.
func (c *Client) Screenshot(ctx context.Context, format string, quality int, fullPage bool) ([]byte, error) {
	switch format {
	case "":
		format = "png"
	case "png", "jpeg":
	default:
		return nil, newError(CodeValidation, "format must be png or jpeg", nil)
	}

	var data []byte
	err := c.onPage(ctx, func(ctx context.Context, cdp *rawCDP, sessionID string) error {
		b64, err := cdp.captureScreenshot(ctx, sessionID, format, quality, fullPage)
		if err != nil {
			return err
		}
		data, err = base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return newError(CodeEvalFailure, "invalid screenshot data", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
