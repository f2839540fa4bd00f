// Package yahoo provides the "Yahoo" quote source backed by the public chart API.
package yahoo

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/regholl2023/minitrade/internal/calendar"
	"github.com/regholl2023/minitrade/internal/config"
	"github.com/regholl2023/minitrade/internal/model"
	"github.com/regholl2023/minitrade/internal/quotesource"
)

// Name is the registry key of this source.
const Name = "Yahoo"

func init() {
	quotesource.Register(Name, func(cfg *config.Config) (quotesource.Backend, error) {
		return New(cfg), nil
	})
}

// Upstream is the part of Client used by Source.
type Upstream interface {
	History(ctx context.Context, p HistoryParams) (*model.Series, error)
	Snapshot(ctx context.Context, symbol string) (*Snapshot, error)
}

// Calendar answers trading-hours questions per ticker.
type Calendar interface {
	IsTradingNow(ticker string) bool
	Today(ticker string) time.Time
}

// Source implements quotesource.Backend.
type Source struct {
	up      Upstream
	cal     Calendar
	proxy   string
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Source.
type Option func(*Source)

// WithProxy overrides the proxy from the config file.
func WithProxy(proxy string) Option {
	return func(s *Source) { s.proxy = proxy }
}

// WithUpstream replaces the HTTP chart client.
func WithUpstream(up Upstream) Option {
	return func(s *Source) { s.up = up }
}

// WithCalendar replaces the built-in exchange calendars.
func WithCalendar(c Calendar) Option {
	return func(s *Source) { s.cal = c }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) { s.timeout = d }
}

// New builds a Yahoo source. cfg may be nil.
func New(cfg *config.Config, opts ...Option) *Source {
	s := &Source{timeout: DefaultTimeout, now: time.Now}
	if cfg != nil {
		s.proxy = cfg.Sources.Yahoo.Proxy
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cal == nil {
		s.cal = calendar.NewResolver(calendar.WithClock(s.now))
	}
	if s.up == nil {
		s.up = NewClient(s.proxy, s.timeout)
	}
	return s
}

func (s *Source) Name() string { return Name }

func (s *Source) IsTradingNow(ticker string) bool { return s.cal.IsTradingNow(ticker) }

func (s *Source) Today(ticker string) time.Time { return s.cal.Today(ticker) }

// DailyBar returns adjusted daily bars from start to end inclusive. While the
// market is open, today's row is rebuilt from the live snapshot.
func (s *Source) DailyBar(ctx context.Context, ticker string, start, end time.Time) (*model.Series, error) {
	today := s.Today(ticker)
	loc := today.Location()

	p := HistoryParams{Symbol: ticker, Interval: "1d", AutoAdjust: true}
	if !start.IsZero() {
		p.Start = calendar.LocalDate(start, loc)
	}
	if !end.IsZero() {
		p.End = calendar.LocalDate(end, loc).AddDate(0, 0, 1)
	}
	bars, err := s.up.History(ctx, p)
	if err != nil {
		return nil, err
	}
	tz := bars.Location
	if tz == nil {
		tz = loc
	}
	var from, to time.Time
	if !start.IsZero() {
		from = calendar.LocalDate(start, tz)
	}
	if !end.IsZero() {
		to = calendar.LocalDate(end, tz).AddDate(0, 0, 1)
	}
	bars = clip(bars, from, to)

	cut := s.cutoff(today, tz)
	if (bars.HasFrom(cut) || end.IsZero() || !calendar.LocalDate(end, tz).Before(cut)) && s.IsTradingNow(ticker) {
		snap, err := s.up.Snapshot(ctx, ticker)
		if err != nil {
			return nil, err
		}
		patched := bars.Before(cut).In(time.UTC)
		patched.Append(model.Bar{
			Time:   cut.In(time.UTC),
			Open:   snap.Open,
			High:   snap.DayHigh,
			Low:    snap.DayLow,
			Close:  snap.LastPrice,
			Volume: snap.LastVolume,
		})
		bars = patched.In(tz)
		log.WithFields(log.Fields{"ticker": ticker, "price": snap.LastPrice}).Debug("patched today's bar from snapshot")
	}
	return bars, nil
}

// MinuteBar returns intraday bars. Without a start date the longest trailing
// window the interval allows is requested.
func (s *Source) MinuteBar(ctx context.Context, ticker string, start, end time.Time, interval int) (*model.Series, error) {
	if err := quotesource.ValidateInterval(interval); err != nil {
		return nil, err
	}
	loc := s.Today(ticker).Location()
	p := HistoryParams{Symbol: ticker, Interval: fmt.Sprintf("%dm", interval), AutoAdjust: true}
	if start.IsZero() {
		p.Period = fmt.Sprintf("%dd", quotesource.MaxLookbackDays[interval])
	} else {
		p.Start = calendar.LocalDate(start, loc)
		if !end.IsZero() {
			p.End = calendar.LocalDate(end, loc).AddDate(0, 0, 1)
		}
	}
	return s.up.History(ctx, p)
}

// Spot returns live prices for tickers whose market is open and nil for the rest.
func (s *Source) Spot(ctx context.Context, tickers []string) (*model.Spot, error) {
	spot := &model.Spot{CapturedAt: s.now().UTC(), Quotes: make([]model.SpotQuote, 0, len(tickers))}
	for _, t := range tickers {
		q := model.SpotQuote{Ticker: t}
		if s.IsTradingNow(t) {
			snap, err := s.up.Snapshot(ctx, t)
			if err != nil {
				return nil, &quotesource.DataError{Source: Name, Err: fmt.Errorf("spot %s: %w", t, err)}
			}
			if !math.IsNaN(snap.LastPrice) && !math.IsInf(snap.LastPrice, 0) {
				q.Price = model.Float(snap.LastPrice)
			}
		}
		spot.Quotes = append(spot.Quotes, q)
	}
	return spot, nil
}

// cutoff is local midnight of the current day in tz. Yahoo stamps bars in the
// listing exchange's zone, which can differ from the resolved calendar.
func (s *Source) cutoff(today time.Time, tz *time.Location) time.Time {
	if tz.String() == today.Location().String() {
		return today
	}
	n := s.now().In(tz)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, tz)
}

// clip keeps bars in [from, to). Zero bounds are open.
func clip(s *model.Series, from, to time.Time) *model.Series {
	out := &model.Series{Ticker: s.Ticker, Location: s.Location, Bars: make([]model.Bar, 0, len(s.Bars))}
	for _, b := range s.Bars {
		if !from.IsZero() && b.Time.Before(from) {
			continue
		}
		if !to.IsZero() && !b.Time.Before(to) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}
