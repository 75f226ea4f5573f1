package tradezero

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgnsrekt/tz_agent/internal/cdpcontrol"
)

// ErrNotLocated is returned when crediting a symbol absent from the locate
// inventory.
var ErrNotLocated = errors.New("tradezero: symbol not in locate inventory")

// SymbolNotFoundError means the poll budget ran out and the notification
// feed confirmed the symbol does not exist.
type SymbolNotFoundError struct {
	Symbol string
}

func (e *SymbolNotFoundError) Error() string {
	return "tradezero: symbol not found: " + e.Symbol
}

// LoadTimeoutError means the poll budget ran out with no corroborating
// notification. The symbol may be valid but slow.
type LoadTimeoutError struct {
	Symbol      string
	Attempts    int
	LastMessage string
}

func (e *LoadTimeoutError) Error() string {
	return fmt.Sprintf("tradezero: %s did not load after %d polls (last notification %q)", e.Symbol, e.Attempts, e.LastMessage)
}

// LocateTimeoutError means the locate status or offer row never rendered.
type LocateTimeoutError struct {
	Symbol   string
	Attempts int
}

func (e *LocateTimeoutError) Error() string {
	return fmt.Sprintf("tradezero: locate offer for %s did not appear after %d polls", e.Symbol, e.Attempts)
}

// MarketClosedError rejects market and stop orders outside regular hours.
type MarketClosedError struct {
	OrderType OrderType
	At        time.Time
}

func (e *MarketClosedError) Error() string {
	return fmt.Sprintf("tradezero: %s orders are not allowed at %s ET", e.OrderType, e.At.Format("15:04:05"))
}

type AttributeHiddenError struct {
	Attribute string
}

func (e *AttributeHiddenError) Error() string {
	return "tradezero: account attribute is hidden: " + e.Attribute
}

func validationError(format string, args ...any) error {
	return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: fmt.Sprintf(format, args...)}
}
