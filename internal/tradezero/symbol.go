package tradezero

import (
	"strconv"
	"strings"
)

// NormalizeSymbol is the comparison form of a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func cleanSymbolLabel(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "(USD)", ""))
}

var numberCleaner = strings.NewReplacer(",", "", "$", "", "%", "", "x", "")

// parseNumber reads widget text like "1,234.50", "$12.00" or "2.5x".
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(numberCleaner.Replace(s)), 64)
}
