// Package market provides MarketDataProvider implementations: JSON snapshot
// files, a remote HTTP quote service and a TTL cache in front of either.
package market

import (
	"errors"
	"strings"
)

var (
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrInvalidSymbol  = errors.New("invalid symbol")
)

// NormalizeSymbol lower-cases symbol and adds the exchange prefix to bare
// six digit codes: "sh" for codes starting with 6, "sz" otherwise.
func NormalizeSymbol(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if strings.HasPrefix(s, "sh") || strings.HasPrefix(s, "sz") {
		return s
	}
	if len(s) == 6 && isDigits(s) {
		if s[0] == '6' {
			return "sh" + s
		}
		return "sz" + s
	}
	return s
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validFileSymbol rejects anything that could escape a snapshot directory.
func validFileSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '.' && i > 0 || c == '_' || c == '-') {
			return false
		}
	}
	return !strings.Contains(s, "..")
}
