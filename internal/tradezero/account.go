package tradezero

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

// accountAttributes maps attribute names to the element IDs of the account
// widgets in the page header.
var accountAttributes = map[string]string{
	"realized_pnl":   "h-realized-value",
	"unrealized_pnl": "h-unrealizd-pl-value",
	"total_pnl":      "h-total-pl-value",
	"buying_power":   "p-bp",
	"cash":           "h-cash-value",
	"exposure":       "h-exposure-value",
	"equity":         "h-equity-value",
	"equity_ratio":   "h-equity-ratio-value",
	"used_lvg":       "h-used-lvg-value",
	"allowed_lvg":    "p-allowed-lev",
	"account":        "h-select-account",
	"account_label":  "trading-order-label-account",
	"login_id":       "h-loginId",
}

const hiddenStyle = "display: none;"

// AccountAttributes lists the known attribute names, sorted.
func AccountAttributes() []string {
	out := make([]string, 0, len(accountAttributes))
	for name := range accountAttributes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AccountValue holds the cleaned widget text. Number is set when the text
// parses as a float.
type AccountValue struct {
	Name   string   `json:"name"`
	Text   string   `json:"text"`
	Number *float64 `json:"number,omitempty"`
}

type Account struct {
	page Page
}

func NewAccount(page Page) *Account {
	return &Account{page: page}
}

func accountLocator(name string) (cdpcontrol.Locator, error) {
	id, ok := accountAttributes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return cdpcontrol.Locator{}, validationError("unknown account attribute %q", name)
	}
	return cdpcontrol.ID(id), nil
}

// Get reads one attribute. Widgets hidden with HideAttributes report
// *AttributeHiddenError rather than their text.
func (a *Account) Get(ctx context.Context, name string) (AccountValue, error) {
	loc, err := accountLocator(name)
	if err != nil {
		return AccountValue{}, err
	}
	name = strings.ToLower(strings.TrimSpace(name))

	style, err := a.page.GetAttribute(ctx, loc, "style")
	if err != nil {
		return AccountValue{}, err
	}
	if strings.Contains(style, hiddenStyle) {
		return AccountValue{}, &AttributeHiddenError{Attribute: name}
	}

	text, err := a.page.ReadText(ctx, loc)
	if err != nil {
		return AccountValue{}, err
	}
	v := AccountValue{Name: name, Text: strings.TrimSpace(numberCleaner.Replace(text))}
	if n, err := parseNumber(text); err == nil {
		v.Number = &n
	}
	return v, nil
}

// GetFloat is Get for numeric widgets.
func (a *Account) GetFloat(ctx context.Context, name string) (float64, error) {
	v, err := a.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	if v.Number == nil {
		return 0, validationError("account attribute %s is not numeric: %q", v.Name, v.Text)
	}
	return *v.Number, nil
}

// All reads every visible attribute. Hidden ones are skipped.
func (a *Account) All(ctx context.Context) (map[string]AccountValue, error) {
	out := make(map[string]AccountValue, len(accountAttributes))
	for _, name := range AccountAttributes() {
		v, err := a.Get(ctx, name)
		if err != nil {
			var hidden *AttributeHiddenError
			if errors.As(err, &hidden) {
				continue
			}
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// HideAttributes sets display:none on the account widgets so screenshots
// and screen shares do not show balances.
func (a *Account) HideAttributes(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = AccountAttributes()
	}
	for _, name := range names {
		loc, err := accountLocator(name)
		if err != nil {
			return err
		}
		if err := a.page.SetAttribute(ctx, loc, "style", hiddenStyle); err != nil {
			return err
		}
	}
	return nil
}
