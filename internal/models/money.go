package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the fixed-point scale for stored monetary amounts.
// Every amount is a signed integer at 1/10000 of the currency's natural
// unit, uniformly across currencies: 10.00 is stored as 100000.
const AmountScale = 10000

var scaleFactor = decimal.NewFromInt(AmountScale)

// ParseAmount parses a statement amount string into fixed-point minor units.
// Common currency symbols and thousand separators are stripped before parsing.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return AmountFromDecimal(d), nil
}

// AmountFromDecimal converts a decimal natural-unit value into fixed-point
// minor units, rounding half away from zero at the fourth decimal place.
func AmountFromDecimal(d decimal.Decimal) int64 {
	return d.Mul(scaleFactor).Round(0).IntPart()
}

// AmountToDecimal converts fixed-point minor units back to a decimal
// natural-unit value.
func AmountToDecimal(v int64) decimal.Decimal {
	return decimal.NewFromInt(v).Div(scaleFactor)
}

// FormatAmount renders a fixed-point amount in natural units for display
// and serialization. The round trip FormatAmount -> ParseAmount yields the
// identical integer.
func FormatAmount(v int64) string {
	return AmountToDecimal(v).String()
}

// ConvertAmount applies an exchange rate to a fixed-point amount. The
// multiplication happens in decimal space so no float drift enters storage.
func ConvertAmount(v int64, rate decimal.Decimal) int64 {
	return AmountToDecimal(v).Mul(rate).Mul(scaleFactor).Round(0).IntPart()
}
