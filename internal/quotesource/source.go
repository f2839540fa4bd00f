// Package quotesource defines the contract shared by every market-data
// provider and the table assembly that sits on top of it.
package quotesource

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/regholl2023/minitrade/internal/model"
)

// DefaultStart is used by DailyBar when no start date is given.
var DefaultStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// QuoteSource is what callers program against, whatever the provider.
type QuoteSource interface {
	Name() string
	// DailyBar returns adjusted daily bars from start to end inclusive. A zero end means up to today.
	DailyBar(ctx context.Context, tickers Tickers, start, end time.Time, opts ...BarOption) (*model.Frame, error)
	// MinuteBar returns intraday bars sampled every interval minutes.
	MinuteBar(ctx context.Context, ticker string, start, end time.Time, interval int) (*model.Frame, error)
	// Spot returns the last price of each ticker, nil where the market is closed.
	Spot(ctx context.Context, tickers []string) (*model.Spot, error)
	IsTradingNow(ticker string) bool
	Today(ticker string) time.Time
}

// Backend is implemented by each provider plugin. It deals with one ticker
// per bar request; Source handles validation and table assembly.
type Backend interface {
	Name() string
	DailyBar(ctx context.Context, ticker string, start, end time.Time) (*model.Series, error)
	MinuteBar(ctx context.Context, ticker string, start, end time.Time, interval int) (*model.Series, error)
	Spot(ctx context.Context, tickers []string) (*model.Spot, error)
	IsTradingNow(ticker string) bool
	Today(ticker string) time.Time
}

type barOptions struct {
	align     bool
	normalize bool
}

// BarOption adjusts how DailyBar combines several tickers.
type BarOption func(*barOptions)

// WithAlign controls trimming to the first common date and forward-filling gaps. On by default.
func WithAlign(align bool) BarOption {
	return func(o *barOptions) { o.align = align }
}

// WithNormalize rescales prices so every ticker's first close is 1.
func WithNormalize(normalize bool) BarOption {
	return func(o *barOptions) { o.normalize = normalize }
}

// Source wraps a Backend into a QuoteSource.
type Source struct {
	backend Backend
}

// New wraps b.
func New(b Backend) *Source { return &Source{backend: b} }

// Backend returns the wrapped provider.
func (s *Source) Backend() Backend { return s.backend }

func (s *Source) Name() string { return s.backend.Name() }

func (s *Source) IsTradingNow(ticker string) bool { return s.backend.IsTradingNow(ticker) }

func (s *Source) Today(ticker string) time.Time { return s.backend.Today(ticker) }

func (s *Source) DailyBar(ctx context.Context, tickers Tickers, start, end time.Time, opts ...BarOption) (*model.Frame, error) {
	o := barOptions{align: true}
	for _, opt := range opts {
		opt(&o)
	}
	if err := tickers.Validate(); err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = DefaultStart
	}
	if !end.IsZero() && end.Before(start) {
		return nil, invalidf("end %s is before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	logger := log.WithFields(log.Fields{"source": s.Name(), "tickers": tickers.String()})
	series := make([]*model.Series, 0, tickers.Len())
	for _, t := range tickers.Symbols() {
		ser, err := s.backend.DailyBar(ctx, t, start, end)
		if err != nil {
			return nil, err
		}
		ser.Ticker = t
		series = append(series, ser)
	}

	f := model.NewFrame(series...)
	if o.align && tickers.Len() > 1 {
		f = f.Align()
	}
	if o.normalize {
		f = f.Normalize()
	}
	logger.WithField("rows", f.Len()).Debug("daily bars loaded")
	return f, nil
}

func (s *Source) MinuteBar(ctx context.Context, ticker string, start, end time.Time, interval int) (*model.Frame, error) {
	if err := validateSymbols([]string{ticker}); err != nil {
		return nil, err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, invalidf("end %s is before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	ser, err := s.backend.MinuteBar(ctx, ticker, start, end, interval)
	if err != nil {
		return nil, err
	}
	ser.Ticker = ticker
	return model.NewFrame(ser), nil
}

func (s *Source) Spot(ctx context.Context, tickers []string) (*model.Spot, error) {
	if err := validateSymbols(tickers); err != nil {
		return nil, err
	}
	return s.backend.Spot(ctx, tickers)
}
