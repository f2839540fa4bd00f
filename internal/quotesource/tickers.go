package quotesource

import (
	"strings"
	"unicode"
)

// Tickers is either one ticker or an ordered list of tickers.
type Tickers struct {
	symbols []string
	many    bool
}

// Single wraps one ticker.
func Single(ticker string) Tickers {
	return Tickers{symbols: []string{ticker}}
}

// Many wraps an ordered list of tickers.
func Many(tickers ...string) Tickers {
	return Tickers{symbols: append([]string(nil), tickers...), many: true}
}

// ParseTickers accepts "AAPL" or "AAPL,GOOG,META". Whitespace is not allowed.
func ParseTickers(s string) (Tickers, error) {
	parts := strings.Split(s, ",")
	t := Tickers{symbols: parts, many: len(parts) > 1}
	if err := t.Validate(); err != nil {
		return Tickers{}, err
	}
	return t, nil
}

// Symbols returns the tickers in order.
func (t Tickers) Symbols() []string {
	return append([]string(nil), t.symbols...)
}

// IsMany reports whether the value was built from a list.
func (t Tickers) IsMany() bool { return t.many }

// Len returns the number of tickers.
func (t Tickers) Len() int { return len(t.symbols) }

// Validate rejects empty, blank-containing and repeated symbols.
func (t Tickers) Validate() error {
	return validateSymbols(t.symbols)
}

func (t Tickers) String() string { return strings.Join(t.symbols, ",") }

func validateSymbols(symbols []string) error {
	if len(symbols) == 0 {
		return invalidf("no tickers given")
	}
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s == "" {
			return invalidf("empty ticker in %q", strings.Join(symbols, ","))
		}
		if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
			return invalidf("ticker %q contains whitespace", s)
		}
		if _, dup := seen[s]; dup {
			return invalidf("ticker %q given twice", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}
