package model

import (
	"sort"
	"time"
)

// Fields are the only columns a price bar table carries, in order.
var Fields = []string{"Open", "High", "Low", "Close", "Volume"}

// Bar represents a single adjusted OHLCV candlestick.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Value returns the named OHLCV field.
func (b Bar) Value(field string) float64 {
	switch field {
	case "Open":
		return b.Open
	case "High":
		return b.High
	case "Low":
		return b.Low
	case "Close":
		return b.Close
	case "Volume":
		return b.Volume
	}
	return 0
}

// Series holds the bars of one ticker, indexed in the ticker's native timezone.
type Series struct {
	Ticker   string
	Location *time.Location
	Bars     []Bar
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Bars) }

// In returns a copy of the series with every timestamp converted to loc.
func (s *Series) In(loc *time.Location) *Series {
	out := &Series{Ticker: s.Ticker, Location: loc, Bars: make([]Bar, len(s.Bars))}
	for i, b := range s.Bars {
		b.Time = b.Time.In(loc)
		out.Bars[i] = b
	}
	return out
}

// Before returns a copy holding only the bars strictly before t.
func (s *Series) Before(t time.Time) *Series {
	out := &Series{Ticker: s.Ticker, Location: s.Location, Bars: make([]Bar, 0, len(s.Bars))}
	for _, b := range s.Bars {
		if b.Time.Before(t) {
			out.Bars = append(out.Bars, b)
		}
	}
	return out
}

// HasFrom reports whether any bar is at or after t.
func (s *Series) HasFrom(t time.Time) bool {
	for _, b := range s.Bars {
		if !b.Time.Before(t) {
			return true
		}
	}
	return false
}

// Append adds a bar at the end of the series.
func (s *Series) Append(b Bar) {
	s.Bars = append(s.Bars, b)
}

// Last returns the final bar.
func (s *Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Normalize sorts bars chronologically and drops repeated timestamps, keeping the latest copy.
func (s *Series) Normalize() {
	sort.SliceStable(s.Bars, func(i, j int) bool { return s.Bars[i].Time.Before(s.Bars[j].Time) })
	out := s.Bars[:0]
	for _, b := range s.Bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	s.Bars = out
}
