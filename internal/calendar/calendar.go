// Package calendar answers "is this ticker's market open" and "what is today"
// in the ticker's own exchange timezone.
package calendar

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/rickar/cal/v2"
)

// Session is a trading window expressed in minutes after local midnight, [Start, End).
type Session struct {
	Start int
	End   int
}

func hm(h, m int) int { return h*60 + m }

// Calendar describes when one exchange trades.
type Calendar struct {
	Name     string
	Location *time.Location
	Sessions []Session
	// AllWeek marks markets that also trade on weekends.
	AllWeek bool
	// EarlyClose is the minute trading stops on half days.
	EarlyClose int

	closures *cal.BusinessCalendar
	halfDays *cal.BusinessCalendar
	holidays map[string]struct{}
}

// New builds a calendar in the named IANA timezone.
func New(name, tz string, sessions ...Session) (*Calendar, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: %w", name, err)
	}
	return &Calendar{
		Name:     name,
		Location: loc,
		Sessions: sessions,
		closures: cal.NewBusinessCalendar(),
		halfDays: cal.NewBusinessCalendar(),
		holidays: map[string]struct{}{},
	}, nil
}

func mustNew(name, tz string, sessions ...Session) *Calendar {
	c, err := New(name, tz, sessions...)
	if err != nil {
		panic(err)
	}
	return c
}

// AddRules registers recurring full-day closures.
func (c *Calendar) AddRules(rules ...*cal.Holiday) *Calendar {
	if c.closures == nil {
		c.closures = cal.NewBusinessCalendar()
	}
	c.closures.AddHoliday(rules...)
	return c
}

// AddEarlyCloses registers recurring half days that stop trading at minute closeAt.
func (c *Calendar) AddEarlyCloses(closeAt int, rules ...*cal.Holiday) *Calendar {
	if c.halfDays == nil {
		c.halfDays = cal.NewBusinessCalendar()
	}
	c.EarlyClose = closeAt
	c.halfDays.AddHoliday(rules...)
	return c
}

// AddHolidays marks one-off full-day closures, given as YYYY-MM-DD local dates.
func (c *Calendar) AddHolidays(dates ...string) {
	if c.holidays == nil {
		c.holidays = map[string]struct{}{}
	}
	for _, d := range dates {
		c.holidays[d] = struct{}{}
	}
}

// IsTradingDay reports whether the local date of t is a session day.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(c.Location)
	if !c.AllWeek {
		if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	if _, closed := c.holidays[local.Format("2006-01-02")]; closed {
		return false
	}
	if c.closures != nil {
		if _, observed, _ := c.closures.IsHoliday(local); observed {
			return false
		}
	}
	return true
}

// IsHalfDay reports whether the local date of t closes early.
func (c *Calendar) IsHalfDay(t time.Time) bool {
	if c.halfDays == nil || c.EarlyClose <= 0 {
		return false
	}
	_, observed, _ := c.halfDays.IsHoliday(t.In(c.Location))
	return observed
}

// IsOpen reports whether the exchange is in a trading session at t.
func (c *Calendar) IsOpen(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	local := t.In(c.Location)
	minute := local.Hour()*60 + local.Minute()
	half := c.IsHalfDay(t)
	for _, s := range c.Sessions {
		end := s.End
		if half && end > c.EarlyClose {
			end = c.EarlyClose
		}
		if minute >= s.Start && minute < end {
			return true
		}
	}
	return false
}

// Today returns local midnight of t's date in the exchange timezone.
func (c *Calendar) Today(t time.Time) time.Time {
	local := t.In(c.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location)
}

// LocalDate reinterprets the calendar date of t as midnight in loc.
func LocalDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Built-in exchange calendars.
var (
	NYSE = mustNew("NYSE", "America/New_York", Session{hm(9, 30), hm(16, 0)}).
		AddRules(nyseClosures...).
		AddEarlyCloses(hm(13, 0), nyseHalfDays...)

	TSX = mustNew("TSX", "America/Toronto", Session{hm(9, 30), hm(16, 0)}).
		AddRules(tsxClosures...)

	LSE = mustNew("LSE", "Europe/London", Session{hm(8, 0), hm(16, 30)}).
		AddRules(lseClosures...).
		AddEarlyCloses(hm(12, 30), christmasEve, newYearsEve)

	XETRA = mustNew("XETRA", "Europe/Berlin", Session{hm(9, 0), hm(17, 30)}).
		AddRules(xetraClosures...)

	JPX = mustNew("JPX", "Asia/Tokyo", Session{hm(9, 0), hm(11, 30)}, Session{hm(12, 30), hm(15, 0)}).
		AddRules(jpxClosures...)

	HKEX = mustNew("HKEX", "Asia/Hong_Kong", Session{hm(9, 30), hm(12, 0)}, Session{hm(13, 0), hm(16, 0)}).
		AddRules(hkexClosures...)

	SSE = mustNew("SSE", "Asia/Shanghai", Session{hm(9, 30), hm(11, 30)}, Session{hm(13, 0), hm(15, 0)}).
		AddRules(sseClosures...)

	ASX = mustNew("ASX", "Australia/Sydney", Session{hm(10, 0), hm(16, 0)}).
		AddRules(asxClosures...).
		AddEarlyCloses(hm(14, 10), christmasEve, newYearsEve)

	// FX trades around the clock on weekdays. Yahoo stamps FX bars in London time.
	FX = mustNew("FX", "Europe/London", Session{0, hm(24, 0)})

	// CME index futures, closed for the daily maintenance hour.
	CME = mustNew("CME", "America/New_York", Session{0, hm(17, 0)}, Session{hm(18, 0), hm(24, 0)})

	CRYPTO = func() *Calendar {
		c := mustNew("CRYPTO", "UTC", Session{0, hm(24, 0)})
		c.AllWeek = true
		return c
	}()
)

var suffixes = map[string]*Calendar{
	".TO": TSX,
	".L":  LSE,
	".DE": XETRA,
	".T":  JPX,
	".HK": HKEX,
	".SS": SSE,
	".SZ": SSE,
	".AX": ASX,
}

// indexes lists non-US Yahoo index symbols by their home exchange.
var indexes = map[string]*Calendar{
	"^N225":   JPX,
	"^HSI":    HKEX,
	"^FTSE":   LSE,
	"^FTMC":   LSE,
	"^GDAXI":  XETRA,
	"^GSPTSE": TSX,
	"^AXJO":   ASX,
	"^AORD":   ASX,
}

// Resolver maps tickers to calendars and evaluates them against a clock.
type Resolver struct {
	mu       sync.RWMutex
	fallback *Calendar
	pinned   map[string]*Calendar
	now      func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithFallback sets the calendar used when no rule matches a ticker.
func WithFallback(c *Calendar) Option {
	return func(r *Resolver) { r.fallback = c }
}

// NewResolver creates a resolver that falls back to NYSE.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{fallback: NYSE, pinned: map[string]*Calendar{}, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pin forces a ticker onto a specific calendar.
func (r *Resolver) Pin(ticker string, c *Calendar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinned[ticker] = c
}

// For returns the calendar that ticker trades on.
func (r *Resolver) For(ticker string) *Calendar {
	r.mu.RLock()
	c, ok := r.pinned[ticker]
	r.mu.RUnlock()
	if ok {
		return c
	}

	upper := strings.ToUpper(ticker)
	if strings.HasSuffix(upper, "-USD") || strings.HasSuffix(upper, "-USDT") {
		return CRYPTO
	}
	if i := strings.LastIndex(upper, "."); i > 0 {
		if c, ok := suffixes[upper[i:]]; ok {
			return c
		}
	}
	if c, ok := indexes[upper]; ok {
		return c
	}
	switch {
	case strings.HasSuffix(upper, "=X"):
		return FX
	case strings.HasSuffix(upper, "=F"):
		return CME
	case isDigits(upper) && len(upper) == 6:
		return SSE
	}
	return r.fallback
}

// IsTradingNow reports whether ticker's market is in session right now.
func (r *Resolver) IsTradingNow(ticker string) bool {
	return r.For(ticker).IsOpen(r.now())
}

// Today returns the current trading date of ticker, as local midnight.
func (r *Resolver) Today(ticker string) time.Time {
	return r.For(ticker).Today(r.now())
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
