package converter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"golang-camt-importer/internal/configuration"
	"golang-camt-importer/internal/models"
)

// errAmbiguousSign is reported when the amount text carries its own sign.
// The credit/debit indicator is the only source of the sign.
type errAmbiguousSign struct {
	raw string
}

func (e errAmbiguousSign) Error() string {
	return fmt.Sprintf("amount %q carries its own sign; the sign must come from the credit/debit indicator", e.raw)
}

// parseAmount reads an unsigned amount written with the locale's separators.
// Group separators must split the integer part into groups of three digits.
func parseAmount(raw string, locale configuration.Locale) (decimal.Decimal, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	if strings.ContainsAny(text[:1], "+-") || strings.ContainsAny(text[len(text)-1:], "+-") {
		return decimal.Zero, errAmbiguousSign{raw: raw}
	}
	if ambiguousGrouping(text, locale) {
		return decimal.Zero, fmt.Errorf("amount %q has an ambiguous decimal/group separator %q", raw, locale.GroupSeparator)
	}

	integer, fraction := text, ""
	if i := strings.LastIndex(text, locale.DecimalSeparator); i >= 0 {
		integer, fraction = text[:i], text[i+len(locale.DecimalSeparator):]
		if fraction == "" || !isDigits(fraction) {
			return decimal.Zero, fmt.Errorf("amount %q does not match the configured locale", raw)
		}
	}

	digits, ok := ungroup(integer, locale.GroupSeparator)
	if !ok {
		return decimal.Zero, fmt.Errorf("amount %q does not match the configured locale", raw)
	}

	normalized := digits
	if fraction != "" {
		normalized += "." + fraction
	}
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a number: %w", raw, err)
	}
	return amount, nil
}

// ambiguousGrouping reports text like "1.000" under a locale that groups
// with '.', which reads as a plain decimal and as a grouped integer alike.
func ambiguousGrouping(text string, locale configuration.Locale) bool {
	if locale.GroupSeparator != "." || strings.Contains(text, locale.DecimalSeparator) {
		return false
	}
	integer, fraction, found := strings.Cut(text, ".")
	return found && isDigits(integer) && isDigits(fraction)
}

func ungroup(integer, group string) (string, bool) {
	if integer == "" {
		return "", false
	}
	if group == "" || !strings.Contains(integer, group) {
		return integer, isDigits(integer)
	}

	parts := strings.Split(integer, group)
	for i, part := range parts {
		if !isDigits(part) {
			return "", false
		}
		if i == 0 && len(part) > 3 {
			return "", false
		}
		if i > 0 && len(part) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// signed applies the credit/debit indicator: credits are positive, debits negative.
func signed(amount decimal.Decimal, indicator string) (decimal.Decimal, error) {
	cd, err := models.ParseCreditDebit(indicator)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit/debit indicator %q is neither CRDT nor DBIT", indicator)
	}
	if cd == models.Debit {
		return amount.Neg(), nil
	}
	return amount, nil
}

// scaleOf returns the number of decimal places the currency allows.
func scaleOf(unit currency.Unit) int32 {
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// exceedsScale reports whether amount has significant digits beyond scale.
func exceedsScale(amount decimal.Decimal, scale int32) bool {
	return !amount.Equal(amount.Truncate(scale))
}
