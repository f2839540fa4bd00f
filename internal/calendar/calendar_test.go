package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(loc *time.Location, y int, m time.Month, d, hh, mm int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, hh, mm, 0, 0, loc) }
}

func TestResolver_For(t *testing.T) {
	r := NewResolver()
	tests := map[string]*Calendar{
		"AAPL":      NYSE,
		"^GSPC":     NYSE,
		"^N225":     JPX,
		"^FTSE":     LSE,
		"SHOP.TO":   TSX,
		"VOD.L":     LSE,
		"SAP.DE":    XETRA,
		"7203.T":    JPX,
		"0700.HK":   HKEX,
		"600519.SS": SSE,
		"000001":    SSE,
		"BHP.AX":    ASX,
		"BTC-USD":   CRYPTO,
		"EURUSD=X":  FX,
		"ES=F":      CME,
		"BRK.B":     NYSE,
	}
	for ticker, want := range tests {
		assert.Equalf(t, want.Name, r.For(ticker).Name, "ticker %s", ticker)
	}
}

func TestResolver_Pin(t *testing.T) {
	r := NewResolver()
	r.Pin("SPY", LSE)
	assert.Equal(t, "LSE", r.For("SPY").Name)
}

func TestIsTradingNow_NYSE(t *testing.T) {
	ny := NYSE.Location
	tests := []struct {
		name string
		now  func() time.Time
		want bool
	}{
		{"before open", at(ny, 2022, 12, 9, 9, 29), false},
		{"at open", at(ny, 2022, 12, 9, 9, 30), true},
		{"midday", at(ny, 2022, 12, 9, 12, 0), true},
		{"at close", at(ny, 2022, 12, 9, 16, 0), false},
		{"saturday", at(ny, 2022, 12, 10, 12, 0), false},
		{"open in UTC terms", at(time.UTC, 2022, 12, 9, 15, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(WithClock(tt.now))
			assert.Equal(t, tt.want, r.IsTradingNow("SPY"))
		})
	}
}

func TestIsTradingNow_LunchBreak(t *testing.T) {
	hk := HKEX.Location
	assert.True(t, NewResolver(WithClock(at(hk, 2022, 12, 9, 11, 0))).IsTradingNow("0700.HK"))
	assert.False(t, NewResolver(WithClock(at(hk, 2022, 12, 9, 12, 30))).IsTradingNow("0700.HK"))
	assert.True(t, NewResolver(WithClock(at(hk, 2022, 12, 9, 13, 0))).IsTradingNow("0700.HK"))
}

func TestIsTradingNow_CryptoWeekend(t *testing.T) {
	r := NewResolver(WithClock(at(time.UTC, 2022, 12, 10, 3, 0)))
	assert.True(t, r.IsTradingNow("BTC-USD"))
	assert.False(t, r.IsTradingNow("AAPL"))
}

func TestHolidays(t *testing.T) {
	c, err := New("TEST", "America/New_York", Session{hm(9, 30), hm(16, 0)})
	require.NoError(t, err)
	c.AddHolidays("2022-12-26")

	assert.False(t, c.IsOpen(time.Date(2022, 12, 26, 12, 0, 0, 0, c.Location)))
	assert.True(t, c.IsOpen(time.Date(2022, 12, 27, 12, 0, 0, 0, c.Location)))
}

func TestToday_UsesExchangeDate(t *testing.T) {
	// 02:00 UTC on the 10th is still the 9th in New York and already the 10th in Tokyo.
	r := NewResolver(WithClock(at(time.UTC, 2022, 12, 10, 2, 0)))

	ny := r.Today("SPY")
	assert.Equal(t, "2022-12-09", ny.Format("2006-01-02"))
	assert.Equal(t, NYSE.Location, ny.Location())
	assert.Zero(t, ny.Hour())

	tk := r.Today("7203.T")
	assert.Equal(t, "2022-12-10", tk.Format("2006-01-02"))
}

func TestNew_BadTimezone(t *testing.T) {
	_, err := New("BAD", "Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestLocalDate_KeepsCalendarDate(t *testing.T) {
	d := LocalDate(time.Date(2022, 12, 9, 0, 0, 0, 0, time.UTC), JPX.Location)
	assert.Equal(t, "2022-12-09 00:00", d.Format("2006-01-02 15:04"))
	assert.Equal(t, JPX.Location, d.Location())
}

func TestIsTradingNow_NYSEHolidays(t *testing.T) {
	ny := NYSE.Location
	tests := []struct {
		name string
		now  func() time.Time
		want bool
	}{
		{"day before thanksgiving", at(ny, 2026, 11, 25, 10, 0), true},
		{"thanksgiving", at(ny, 2026, 11, 26, 10, 0), false},
		{"good friday", at(ny, 2026, 4, 3, 10, 0), false},
		{"independence day observed on friday", at(ny, 2026, 7, 3, 10, 0), false},
		{"juneteenth", at(ny, 2026, 6, 19, 10, 0), false},
		{"juneteenth before it was observed", at(ny, 2021, 6, 18, 10, 0), true},
		{"new year on sunday closes monday", at(ny, 2023, 1, 2, 10, 0), false},
		{"new year on saturday keeps friday open", at(ny, 2021, 12, 31, 10, 0), true},
		{"christmas", at(ny, 2026, 12, 25, 10, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(WithClock(tt.now))
			assert.Equal(t, tt.want, r.IsTradingNow("SPY"))
		})
	}
}

func TestIsOpen_EarlyClose(t *testing.T) {
	ny := NYSE.Location
	assert.True(t, NYSE.IsHalfDay(time.Date(2026, 11, 27, 9, 0, 0, 0, ny)))
	assert.True(t, NYSE.IsOpen(time.Date(2026, 11, 27, 12, 59, 0, 0, ny)))
	assert.False(t, NYSE.IsOpen(time.Date(2026, 11, 27, 13, 0, 0, 0, ny)))
	assert.False(t, NYSE.IsOpen(time.Date(2026, 12, 24, 13, 30, 0, 0, ny)))
	assert.True(t, NYSE.IsOpen(time.Date(2026, 12, 23, 15, 30, 0, 0, ny)))

	ldn := LSE.Location
	assert.True(t, LSE.IsOpen(time.Date(2026, 12, 24, 12, 0, 0, 0, ldn)))
	assert.False(t, LSE.IsOpen(time.Date(2026, 12, 24, 12, 45, 0, 0, ldn)))
}

func TestIsTradingDay_OtherExchanges(t *testing.T) {
	tests := []struct {
		cal  *Calendar
		date string
		want bool
	}{
		{LSE, "2026-12-28", false},
		{LSE, "2026-05-04", false},
		{LSE, "2026-05-05", true},
		{XETRA, "2026-12-31", false},
		{TSX, "2026-05-18", false},
		{TSX, "2026-05-25", true},
		{ASX, "2026-01-26", false},
		{HKEX, "2026-04-06", false},
		{HKEX, "2026-04-07", true},
		{JPX, "2026-01-02", false},
	}
	for _, tt := range tests {
		d, err := time.ParseInLocation("2006-01-02", tt.date, tt.cal.Location)
		require.NoError(t, err)
		assert.Equalf(t, tt.want, tt.cal.IsTradingDay(d.Add(12*time.Hour)), "%s %s", tt.cal.Name, tt.date)
	}
}

func TestIsTradingNow_FXClosedOnWeekend(t *testing.T) {
	assert.True(t, NewResolver(WithClock(at(time.UTC, 2022, 12, 9, 23, 0))).IsTradingNow("EURUSD=X"))
	assert.False(t, NewResolver(WithClock(at(time.UTC, 2022, 12, 10, 12, 0))).IsTradingNow("EURUSD=X"))
}
