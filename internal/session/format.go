package session

import (
	"golang.org/x/text/language" // Locale for digit grouping
	"golang.org/x/text/message"  // Localized printing
	"golang.org/x/text/number"   // Decimal formatting options
)

// CurrencyGlyph prefixes every rendered balance.
const CurrencyGlyph = "₹"

// BalancePlaceholder is shown until the balance has been fetched.
const BalancePlaceholder = "---"

// FormatBalance renders a balance with English digit grouping and at most
// three fraction digits: 1234567 becomes "₹ 1,234,567".
func FormatBalance(balance float64) string {
	p := message.NewPrinter(language.English)
	return CurrencyGlyph + " " + p.Sprint(number.Decimal(balance, number.MaxFractionDigits(3)))
}
