package quotesource

import (
	"context"
	"time"

	"github.com/regholl2023/minitrade/internal/calendar"
	"github.com/regholl2023/minitrade/internal/config"
	"github.com/regholl2023/minitrade/internal/model"
)

func init() {
	Register("Mock", func(_ *config.Config) (Backend, error) {
		return &MockBackend{Price: 100, Calendar: calendar.NewResolver()}, nil
	})
}

// MockBackend returns controllable, deterministic data for development and testing.
type MockBackend struct {
	Price    float64
	Calendar *calendar.Resolver
	// Err, when set, is returned by every call.
	Err error
}

func (m *MockBackend) Name() string { return "Mock" }

var defaultResolver = calendar.NewResolver()

func (m *MockBackend) resolver() *calendar.Resolver {
	if m.Calendar == nil {
		return defaultResolver
	}
	return m.Calendar
}

func (m *MockBackend) IsTradingNow(ticker string) bool { return m.resolver().IsTradingNow(ticker) }

func (m *MockBackend) Today(ticker string) time.Time { return m.resolver().Today(ticker) }

func (m *MockBackend) DailyBar(_ context.Context, ticker string, start, end time.Time) (*model.Series, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	cal := m.resolver().For(ticker)
	if end.IsZero() {
		end = m.Today(ticker)
	}
	s := &model.Series{Ticker: ticker, Location: cal.Location}
	for d := calendar.LocalDate(start, cal.Location); !d.After(calendar.LocalDate(end, cal.Location)); d = d.AddDate(0, 0, 1) {
		if !cal.IsTradingDay(d) {
			continue
		}
		s.Append(m.bar(d))
	}
	return s, nil
}

func (m *MockBackend) MinuteBar(_ context.Context, ticker string, start, end time.Time, interval int) (*model.Series, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ValidateInterval(interval); err != nil {
		return nil, err
	}
	cal := m.resolver().For(ticker)
	if end.IsZero() {
		end = m.Today(ticker)
	}
	if start.IsZero() {
		start = end
	}
	s := &model.Series{Ticker: ticker, Location: cal.Location}
	step := time.Duration(interval) * time.Minute
	for d := calendar.LocalDate(start, cal.Location); !d.After(calendar.LocalDate(end, cal.Location)); d = d.AddDate(0, 0, 1) {
		if !cal.IsTradingDay(d) {
			continue
		}
		for _, sess := range cal.Sessions {
			from := d.Add(time.Duration(sess.Start) * time.Minute)
			to := d.Add(time.Duration(sess.End) * time.Minute)
			for t := from; t.Before(to); t = t.Add(step) {
				s.Append(m.bar(t))
			}
		}
	}
	return s, nil
}

func (m *MockBackend) Spot(_ context.Context, tickers []string) (*model.Spot, error) {
	if m.Err != nil {
		return nil, &DataError{Source: m.Name(), Err: m.Err}
	}
	spot := &model.Spot{CapturedAt: time.Now().UTC()}
	for _, t := range tickers {
		q := model.SpotQuote{Ticker: t}
		if m.IsTradingNow(t) {
			q.Price = model.Float(m.Price)
		}
		spot.Quotes = append(spot.Quotes, q)
	}
	return spot, nil
}

func (m *MockBackend) bar(t time.Time) model.Bar {
	step := float64(t.Unix()/3600%500) - 250
	p := m.Price * (1 + step*0.0005)
	return model.Bar{
		Time:   t,
		Open:   p * 0.999,
		High:   p * 1.005,
		Low:    p * 0.995,
		Close:  p,
		Volume: 1000000,
	}
}
