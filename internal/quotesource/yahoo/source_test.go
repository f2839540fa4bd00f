package yahoo_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/regholl2023/minitrade/internal/config"
	"github.com/regholl2023/minitrade/internal/model"
	"github.com/regholl2023/minitrade/internal/quotesource"
	"github.com/regholl2023/minitrade/internal/quotesource/yahoo"
)

var newYork = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func nyDay(d int) time.Time { return time.Date(2022, 12, d, 0, 0, 0, 0, newYork) }

func utcDay(d int) time.Time { return time.Date(2022, 12, d, 0, 0, 0, 0, time.UTC) }

// weekdays builds SPY daily bars for the given December 2022 days, close = day.
func weekdays(days ...int) *model.Series {
	s := &model.Series{Ticker: "SPY", Location: newYork}
	for _, d := range days {
		v := float64(d)
		s.Append(model.Bar{Time: nyDay(d), Open: v, High: v, Low: v, Close: v, Volume: 100})
	}
	return s
}

type fixture struct {
	up  *MockUpstream
	cal *MockCalendar
	src *yahoo.Source
}

func newFixture(t *testing.T, today time.Time, open bool) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{up: NewMockUpstream(ctrl), cal: NewMockCalendar(ctrl)}
	f.cal.EXPECT().Today(gomock.Any()).Return(today).AnyTimes()
	f.cal.EXPECT().IsTradingNow(gomock.Any()).Return(open).AnyTimes()
	f.src = yahoo.New(config.Default(),
		yahoo.WithUpstream(f.up),
		yahoo.WithCalendar(f.cal),
		yahoo.WithClock(func() time.Time { return time.Date(2022, 12, 9, 15, 0, 0, 0, time.UTC) }),
	)
	return f
}

func TestDailyBar_ClosedMarketCoversInclusiveRange(t *testing.T) {
	f := newFixture(t, nyDay(12), false)
	f.up.EXPECT().
		History(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p yahoo.HistoryParams) (*model.Series, error) {
			assert.Equal(t, "SPY", p.Symbol)
			assert.Equal(t, "1d", p.Interval)
			assert.True(t, p.AutoAdjust)
			assert.True(t, p.Start.Equal(nyDay(5)), p.Start)
			assert.True(t, p.End.Equal(nyDay(10)), "end pushed out one day: %s", p.End)
			return weekdays(2, 5, 6, 7, 8, 9), nil
		})

	s, err := f.src.DailyBar(context.Background(), "SPY", utcDay(5), utcDay(9))
	require.NoError(t, err)
	require.Equal(t, 5, s.Len())
	assert.True(t, s.Bars[0].Time.Equal(nyDay(5)))
	assert.True(t, s.Bars[4].Time.Equal(nyDay(9)))
}

func TestDailyBar_PatchesTodayWhileTrading(t *testing.T) {
	f := newFixture(t, nyDay(9), true)
	f.up.EXPECT().History(gomock.Any(), gomock.Any()).Return(weekdays(5, 6, 7, 8, 9), nil).Times(2)
	gomock.InOrder(
		f.up.EXPECT().Snapshot(gomock.Any(), "SPY").Return(&yahoo.Snapshot{Open: 10, DayHigh: 12, DayLow: 9, LastPrice: 11, LastVolume: 500}, nil),
		f.up.EXPECT().Snapshot(gomock.Any(), "SPY").Return(&yahoo.Snapshot{Open: 10, DayHigh: 13, DayLow: 9, LastPrice: 12.5, LastVolume: 900}, nil),
	)

	first, err := f.src.DailyBar(context.Background(), "SPY", utcDay(5), time.Time{})
	require.NoError(t, err)
	second, err := f.src.DailyBar(context.Background(), "SPY", utcDay(5), time.Time{})
	require.NoError(t, err)

	require.Equal(t, 5, first.Len())
	require.Equal(t, 5, second.Len())
	assert.Equal(t, first.Bars[:4], second.Bars[:4])

	last := first.Bars[4]
	assert.True(t, last.Time.Equal(nyDay(9)))
	assert.Equal(t, newYork, last.Time.Location())
	assert.Equal(t, model.Bar{Time: last.Time, Open: 10, High: 12, Low: 9, Close: 11, Volume: 500}, last)
	assert.Equal(t, 12.5, second.Bars[4].Close)
	assert.Equal(t, newYork, first.Location)
}

func TestDailyBar_PatchesWhenTodayMissingUpstream(t *testing.T) {
	f := newFixture(t, nyDay(9), true)
	f.up.EXPECT().History(gomock.Any(), gomock.Any()).Return(weekdays(7, 8), nil)
	f.up.EXPECT().Snapshot(gomock.Any(), "SPY").Return(&yahoo.Snapshot{LastPrice: 9}, nil)

	s, err := f.src.DailyBar(context.Background(), "SPY", utcDay(7), utcDay(9))
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, 9.0, s.Bars[2].Close)
}

func TestDailyBar_PastRangeSkipsSnapshotEvenWhenOpen(t *testing.T) {
	f := newFixture(t, nyDay(9), true)
	f.up.EXPECT().History(gomock.Any(), gomock.Any()).Return(weekdays(5, 6), nil)

	s, err := f.src.DailyBar(context.Background(), "SPY", utcDay(5), utcDay(6))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestDailyBar_UpstreamErrorUnchanged(t *testing.T) {
	f := newFixture(t, nyDay(9), true)
	boom := errors.New("yahoo: status 500 for SPY")
	f.up.EXPECT().History(gomock.Any(), gomock.Any()).Return(nil, boom)

	_, err := f.src.DailyBar(context.Background(), "SPY", utcDay(5), time.Time{})
	assert.Same(t, boom, err)
}

func TestDailyBar_CutsTodayInSeriesTimezone(t *testing.T) {
	tokyo := mustLoad("Asia/Tokyo")
	f := newFixture(t, nyDay(9), true)
	bars := &model.Series{Ticker: "^N225", Location: tokyo}
	for _, d := range []int{8, 9, 10} {
		v := float64(d)
		bars.Append(model.Bar{Time: time.Date(2022, 12, d, 0, 0, 0, 0, tokyo), Open: v, High: v, Low: v, Close: v})
	}
	f.up.EXPECT().History(gomock.Any(), gomock.Any()).Return(bars, nil)
	f.up.EXPECT().Snapshot(gomock.Any(), "^N225").Return(&yahoo.Snapshot{LastPrice: 27000}, nil)

	s, err := f.src.DailyBar(context.Background(), "^N225", utcDay(8), time.Time{})
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, 9.0, s.Bars[1].Close)
	last, _ := s.Last()
	assert.True(t, last.Time.Equal(time.Date(2022, 12, 10, 0, 0, 0, 0, tokyo)), last.Time)
	assert.Equal(t, tokyo, last.Time.Location())
	assert.Equal(t, 27000.0, last.Close)
}

func TestHoliday_NoSyntheticRowAndNoSpot(t *testing.T) {
	ctrl := gomock.NewController(t)
	up := NewMockUpstream(ctrl)
	thanksgiving := func() time.Time { return time.Date(2026, 11, 26, 15, 0, 0, 0, time.UTC) }
	src := yahoo.New(config.Default(), yahoo.WithUpstream(up), yahoo.WithClock(thanksgiving))

	bars := &model.Series{Ticker: "SPY", Location: newYork}
	for _, d := range []int{23, 24, 25} {
		bars.Append(model.Bar{Time: time.Date(2026, 11, d, 0, 0, 0, 0, newYork), Close: 600})
	}
	up.EXPECT().History(gomock.Any(), gomock.Any()).Return(bars, nil)

	assert.False(t, src.IsTradingNow("SPY"))
	s, err := src.DailyBar(context.Background(), "SPY", time.Date(2026, 11, 23, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	last, _ := s.Last()
	assert.Equal(t, "2026-11-25", last.Time.Format("2006-01-02"))

	spot, err := src.Spot(context.Background(), []string{"SPY"})
	require.NoError(t, err)
	assert.Nil(t, spot.Quotes[0].Price)
}

func TestMinuteBar_TrailingPeriod(t *testing.T) {
	want := map[int]string{1: "7d", 2: "60d", 5: "60d", 15: "60d", 30: "60d", 60: "730d"}
	for interval, period := range want {
		f := newFixture(t, nyDay(9), false)
		f.up.EXPECT().
			History(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p yahoo.HistoryParams) (*model.Series, error) {
				assert.Equal(t, period, p.Period, "interval %d", interval)
				assert.True(t, p.Start.IsZero())
				assert.Equal(t, time.Duration(interval)*time.Minute, mustParseMinutes(t, p.Interval))
				return weekdays(9), nil
			})

		s, err := f.src.MinuteBar(context.Background(), "SPY", time.Time{}, time.Time{}, interval)
		require.NoError(t, err)
		assert.Equal(t, 1, s.Len())
	}
}

func TestMinuteBar_AbsoluteRange(t *testing.T) {
	f := newFixture(t, nyDay(12), false)
	f.up.EXPECT().
		History(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p yahoo.HistoryParams) (*model.Series, error) {
			assert.Empty(t, p.Period)
			assert.True(t, p.Start.Equal(nyDay(8)))
			assert.True(t, p.End.Equal(nyDay(10)))
			assert.Equal(t, "5m", p.Interval)
			return &model.Series{Ticker: "SPY", Location: newYork}, nil
		})

	_, err := f.src.MinuteBar(context.Background(), "SPY", utcDay(8), utcDay(9), 5)
	require.NoError(t, err)
}

func TestMinuteBar_UnsupportedInterval(t *testing.T) {
	f := newFixture(t, nyDay(9), false)
	for _, interval := range []int{0, 3, 4, 10, 90, 120} {
		_, err := f.src.MinuteBar(context.Background(), "SPY", time.Time{}, time.Time{}, interval)
		require.ErrorIs(t, err, quotesource.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "interval")
	}
}

func TestSpot(t *testing.T) {
	ctrl := gomock.NewController(t)
	up := NewMockUpstream(ctrl)
	cal := NewMockCalendar(ctrl)
	cal.EXPECT().IsTradingNow("SPY").Return(true)
	cal.EXPECT().IsTradingNow("0700.HK").Return(false)
	cal.EXPECT().IsTradingNow("BTC-USD").Return(true)
	up.EXPECT().Snapshot(gomock.Any(), "SPY").Return(&yahoo.Snapshot{LastPrice: 395.5}, nil)
	up.EXPECT().Snapshot(gomock.Any(), "BTC-USD").Return(&yahoo.Snapshot{LastPrice: math.NaN()}, nil)

	captured := time.Date(2022, 12, 9, 15, 0, 0, 0, newYork)
	src := yahoo.New(nil, yahoo.WithUpstream(up), yahoo.WithCalendar(cal), yahoo.WithClock(func() time.Time { return captured }))

	spot, err := src.Spot(context.Background(), []string{"SPY", "0700.HK", "BTC-USD"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "0700.HK", "BTC-USD"}, spot.Tickers())
	assert.Equal(t, time.UTC, spot.CapturedAt.Location())
	assert.True(t, spot.CapturedAt.Equal(captured))
	require.NotNil(t, spot.Quotes[0].Price)
	assert.Equal(t, 395.5, *spot.Quotes[0].Price)
	assert.Nil(t, spot.Quotes[1].Price)
	assert.Nil(t, spot.Quotes[2].Price)
}

func TestSpot_UpstreamFailureIsDataError(t *testing.T) {
	f := newFixture(t, nyDay(9), true)
	boom := errors.New("timeout")
	f.up.EXPECT().Snapshot(gomock.Any(), "SPY").Return(&yahoo.Snapshot{LastPrice: 1}, nil)
	f.up.EXPECT().Snapshot(gomock.Any(), "GOOG").Return(nil, boom)

	_, err := f.src.Spot(context.Background(), []string{"SPY", "GOOG"})
	require.ErrorIs(t, err, quotesource.ErrData)
	assert.ErrorIs(t, err, boom)
	var de *quotesource.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, yahoo.Name, de.Source)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, quotesource.Available(), yahoo.Name)
	src, err := quotesource.Get(yahoo.Name, config.Default())
	require.NoError(t, err)
	assert.Equal(t, yahoo.Name, src.Name())
}

func mustParseMinutes(t *testing.T, interval string) time.Duration {
	t.Helper()
	d, err := time.ParseDuration(interval)
	require.NoError(t, err)
	return d
}
