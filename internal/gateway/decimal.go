package gateway

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseRate parses a feed amount. A lone "." is first rewritten to ",", then the
// Turkish form ("1.234,5678") is tried and the invariant form ("1,234.5678") is
// the fallback. Unparseable or empty input yields zero.
func ParseRate(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	normalized := s
	if strings.Contains(normalized, ".") && !strings.Contains(normalized, ",") {
		normalized = strings.ReplaceAll(normalized, ".", ",")
	}
	if d, ok := parseCulture(normalized, ',', '.'); ok {
		return d
	}
	if d, ok := parseCulture(normalized, '.', ','); ok {
		return d
	}
	return decimal.Zero
}

// parseCulture accepts one leading or trailing sign, digits with optional group
// separators in the integer part, and at most one decimal separator.
func parseCulture(s string, decimalSep, groupSep byte) (decimal.Decimal, bool) {
	sign := ""
	switch s[0] {
	case '-':
		sign = "-"
		s = s[1:]
	case '+':
		s = s[1:]
	default:
		switch s[len(s)-1] {
		case '-':
			sign = "-"
			s = s[:len(s)-1]
		case '+':
			s = s[:len(s)-1]
		}
	}

	intPart, fracPart, hasFrac := strings.Cut(s, string(decimalSep))
	if hasFrac && !allDigits(fracPart) {
		return decimal.Zero, false
	}

	var digits strings.Builder
	for i := 0; i < len(intPart); i++ {
		c := intPart[i]
		switch {
		case c >= '0' && c <= '9':
			digits.WriteByte(c)
		case c == groupSep && i > 0 && i < len(intPart)-1:
		default:
			return decimal.Zero, false
		}
	}
	if digits.Len() == 0 {
		if fracPart == "" {
			return decimal.Zero, false
		}
		digits.WriteByte('0')
	}

	text := sign + digits.String()
	if fracPart != "" {
		text += "." + fracPart
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
