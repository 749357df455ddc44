// Package normalize canonicalizes the text fragments pulled out of payment
// messages and ledger cells: bank identifier codes, locale-formatted amounts,
// dates and ledger account numbers.
//
// Amounts are carried as decimal.NullDecimal so that "no amount" stays
// distinct from zero all the way to the output table.
package normalize

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// IdentifierWidth is the fixed width of a normalized bank identifier code
const IdentifierWidth = 11

var (
	parenthesized  = regexp.MustCompile(`\(.*?\)`)
	nonAmountChars = regexp.MustCompile(`[^0-9,.\-]`)
)

// Identifier strips every non-alphanumeric character, uppercases, pads with
// 'X' up to IdentifierWidth and truncates to exactly IdentifierWidth.
// Empty input stays empty.
func Identifier(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}

	s := b.String()
	if s == "" {
		return ""
	}
	if len(s) < IdentifierWidth {
		s += strings.Repeat("X", IdentifierWidth-len(s))
	}
	return s[:IdentifierWidth]
}

// ParseAmount converts a free-text amount into a decimal. Both "1,234.56" and
// "1.234,56" are understood: when both separators occur the later one is the
// decimal mark; when only one kind occurs it is a decimal mark if at most two
// characters follow its last occurrence, otherwise a thousands separator.
func ParseAmount(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}
	}

	s = parenthesized.ReplaceAllString(s, "")
	s = nonAmountChars.ReplaceAllString(s, "")
	if s == "" {
		return decimal.NullDecimal{}
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = resolveSingleSeparator(s, ",", lastComma)
	case lastDot >= 0:
		s = resolveSingleSeparator(s, ".", lastDot)
	}

	// "346000." carries a decimal mark with no fractional digits
	s = strings.TrimSuffix(s, ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func resolveSingleSeparator(s, sep string, last int) string {
	if len(s)-last-1 <= 2 {
		return strings.ReplaceAll(s, sep, ".")
	}
	return strings.ReplaceAll(s, sep, "")
}

// FormatAmount renders an amount with thousands separators and exactly two
// decimals. An unset amount renders as the empty string.
func FormatAmount(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return ""
	}

	fixed := amount.Decimal.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}

	intPart, fracPart := fixed, ""
	if dot := strings.IndexByte(fixed, '.'); dot >= 0 {
		intPart, fracPart = fixed[:dot], fixed[dot:]
	}

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	return sign + b.String() + fracPart
}

var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2006-1-2",
}

// ParseDate tries day/month/year with '/' then '-' and finally ISO order,
// returning the date as YYYY-MM-DD or "" when nothing parses.
func ParseDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// LedgerAccount canonicalizes an account number read from a ledger cell.
// Spreadsheets often hand back long numbers in scientific notation
// ("6.2284E+15"); those are expanded to their integer digits.
func LedgerAccount(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}
	if strings.ContainsAny(s, "eE") {
		if d, err := decimal.NewFromString(s); err == nil {
			return d.Truncate(0).String()
		}
	}
	return s
}

// LedgerAmount parses a plain numeric cell, ignoring thousands commas
func LedgerAmount(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
