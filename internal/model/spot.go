package model

import "time"

// SpotQuote is the last traded price of one ticker. Price is nil when the
// ticker's market was closed at capture time.
type SpotQuote struct {
	Ticker string   `json:"ticker"`
	Price  *float64 `json:"price"`
}

// Spot is a snapshot of last prices, one entry per requested ticker in request order.
type Spot struct {
	CapturedAt time.Time   `json:"captured_at"`
	Quotes     []SpotQuote `json:"quotes"`
}

// Tickers returns the tickers in snapshot order.
func (s *Spot) Tickers() []string {
	out := make([]string, len(s.Quotes))
	for i, q := range s.Quotes {
		out[i] = q.Ticker
	}
	return out
}

// Price returns the price of ticker and whether it is present.
func (s *Spot) Price(ticker string) (float64, bool) {
	for _, q := range s.Quotes {
		if q.Ticker == ticker && q.Price != nil {
			return *q.Price, true
		}
	}
	return 0, false
}

// Float returns a pointer to v, for building quotes.
func Float(v float64) *float64 { return &v }
