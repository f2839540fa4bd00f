package model

import (
	"sort"
	"time"
)

// Column identifies one column of a Frame: a ticker and an OHLCV field.
type Column struct {
	Ticker string
	Field  string
}

// Record is one (time, ticker) row of a Frame in long format.
type Record struct {
	Time   time.Time `json:"time"`
	Ticker string    `json:"ticker"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Frame is a time-indexed price bar table. Each ticker contributes one
// group of OHLCV columns; a nil cell means the ticker has no bar at that time.
type Frame struct {
	Index   []time.Time
	Tickers []string
	cells   map[string][]*Bar
}

// NewFrame stacks series side by side over the union of their indices.
func NewFrame(series ...*Series) *Frame {
	seen := make(map[int64]time.Time)
	for _, s := range series {
		for _, b := range s.Bars {
			key := b.Time.UnixNano()
			if _, ok := seen[key]; !ok {
				seen[key] = b.Time
			}
		}
	}
	index := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		index = append(index, t)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	pos := make(map[int64]int, len(index))
	for i, t := range index {
		pos[t.UnixNano()] = i
	}

	f := &Frame{Index: index, cells: make(map[string][]*Bar, len(series))}
	for _, s := range series {
		col := make([]*Bar, len(index))
		for _, b := range s.Bars {
			b := b
			b.Time = index[pos[b.Time.UnixNano()]]
			col[pos[b.Time.UnixNano()]] = &b
		}
		f.Tickers = append(f.Tickers, s.Ticker)
		f.cells[s.Ticker] = col
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Index) }

// Columns returns the column keys, ticker-major with OHLCV fields in order.
func (f *Frame) Columns() []Column {
	cols := make([]Column, 0, len(f.Tickers)*len(Fields))
	for _, t := range f.Tickers {
		for _, field := range Fields {
			cols = append(cols, Column{Ticker: t, Field: field})
		}
	}
	return cols
}

// Column returns the cells of one ticker aligned with Index.
func (f *Frame) Column(ticker string) []*Bar {
	return f.cells[ticker]
}

// At returns the bar of ticker at row i, or nil when missing.
func (f *Frame) At(i int, ticker string) *Bar {
	col := f.cells[ticker]
	if i < 0 || i >= len(col) {
		return nil
	}
	return col[i]
}

// Series extracts the non-missing bars of ticker.
func (f *Frame) Series(ticker string) *Series {
	s := &Series{Ticker: ticker}
	for _, b := range f.cells[ticker] {
		if b != nil {
			s.Bars = append(s.Bars, *b)
		}
	}
	if len(s.Bars) > 0 {
		s.Location = s.Bars[0].Time.Location()
	}
	return s
}

// NotNA reports whether every cell of the frame holds a bar.
func (f *Frame) NotNA() bool {
	for _, t := range f.Tickers {
		for _, b := range f.cells[t] {
			if b == nil {
				return false
			}
		}
	}
	return true
}

// FirstValidIndex returns the first time at which ticker has a bar.
func (f *Frame) FirstValidIndex(ticker string) (time.Time, bool) {
	for i, b := range f.cells[ticker] {
		if b != nil {
			return f.Index[i], true
		}
	}
	return time.Time{}, false
}

// Align trims the frame to start where every ticker has data and
// forward-fills any later gap with the previous bar's values.
func (f *Frame) Align() *Frame {
	start := 0
	for _, t := range f.Tickers {
		first := -1
		for i, b := range f.cells[t] {
			if b != nil {
				first = i
				break
			}
		}
		if first < 0 {
			start = len(f.Index)
			break
		}
		if first > start {
			start = first
		}
	}

	out := &Frame{
		Index:   append([]time.Time(nil), f.Index[start:]...),
		Tickers: append([]string(nil), f.Tickers...),
		cells:   make(map[string][]*Bar, len(f.Tickers)),
	}
	for _, t := range f.Tickers {
		src := f.cells[t][start:]
		col := make([]*Bar, len(src))
		var prev *Bar
		for _, b := range f.cells[t][:start] {
			if b != nil {
				prev = b
			}
		}
		for i, b := range src {
			if b == nil && prev != nil {
				filled := *prev
				filled.Time = out.Index[i]
				b = &filled
			}
			if b != nil {
				cp := *b
				col[i] = &cp
				prev = &cp
			}
		}
		out.cells[t] = col
	}
	return out
}

// Normalize divides prices by each ticker's first valid close so that
// close starts at 1. Volume is left untouched.
func (f *Frame) Normalize() *Frame {
	out := &Frame{
		Index:   append([]time.Time(nil), f.Index...),
		Tickers: append([]string(nil), f.Tickers...),
		cells:   make(map[string][]*Bar, len(f.Tickers)),
	}
	for _, t := range f.Tickers {
		src := f.cells[t]
		col := make([]*Bar, len(src))
		base := 0.0
		for _, b := range src {
			if b != nil && b.Close != 0 {
				base = b.Close
				break
			}
		}
		for i, b := range src {
			if b == nil {
				continue
			}
			cp := *b
			if base != 0 {
				cp.Open /= base
				cp.High /= base
				cp.Low /= base
				cp.Close /= base
			}
			col[i] = &cp
		}
		out.cells[t] = col
	}
	return out
}

// Records flattens the frame to long format, skipping missing cells.
func (f *Frame) Records() []Record {
	recs := make([]Record, 0, len(f.Index)*len(f.Tickers))
	for i, ts := range f.Index {
		for _, t := range f.Tickers {
			b := f.cells[t][i]
			if b == nil {
				continue
			}
			recs = append(recs, Record{
				Time:   ts,
				Ticker: t,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			})
		}
	}
	return recs
}
