package util

import "github.com/shopspring/decimal"

// FormatMoney renders an amount the way it appears in audit descriptions:
// dollar sign, always two decimals.
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
