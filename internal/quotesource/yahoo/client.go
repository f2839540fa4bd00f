package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/regholl2023/minitrade/internal/model"
)

// DefaultBaseURL is the public chart API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// DefaultTimeout bounds every upstream request.
const DefaultTimeout = 10 * time.Second

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Yahoo v8 chart API.
type Client struct {
	http    HTTPClient
	baseURL string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the proxy-aware default client.
func WithHTTPClient(h HTTPClient) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithBaseURL points the client at another host, such as a test server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates a chart client. An empty proxyURL means a direct connection.
func NewClient(proxyURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil && u.Host != "" {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.WithField("proxy", proxyURL).Warn("ignoring invalid proxy url")
		}
	}
	c := &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HistoryParams selects a chart window. Start and End bound an absolute range
// with End exclusive; when Start is zero, Period ("7d", "60d") is used instead.
type HistoryParams struct {
	Symbol     string
	Start      time.Time
	End        time.Time
	Period     string
	Interval   string
	AutoAdjust bool
}

// Snapshot is the current session's summary for one symbol.
type Snapshot struct {
	Open       float64
	DayHigh    float64
	DayLow     float64
	LastPrice  float64
	LastVolume float64
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string   `json:"symbol"`
		ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
		RegularMarketPrice   *float64 `json:"regularMarketPrice"`
		RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
		RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
		RegularMarketVolume  *float64 `json:"regularMarketVolume"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// History downloads bars for one symbol.
func (c *Client) History(ctx context.Context, p HistoryParams) (*model.Series, error) {
	q := url.Values{}
	q.Set("interval", p.Interval)
	q.Set("includeAdjustedClose", "true")
	q.Set("events", "div,split")
	if !p.Start.IsZero() {
		end := p.End
		if end.IsZero() {
			end = time.Now()
		}
		q.Set("period1", strconv.FormatInt(p.Start.Unix(), 10))
		q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	} else {
		q.Set("range", p.Period)
	}

	res, err := c.chart(ctx, p.Symbol, q)
	if err != nil {
		return nil, err
	}
	daily := p.Interval == "1d" || p.Interval == "5d" || p.Interval == "1wk" || p.Interval == "1mo"
	s := res.series(p.Symbol, daily, p.AutoAdjust)
	log.WithFields(log.Fields{"ticker": p.Symbol, "interval": p.Interval, "bars": s.Len()}).Debug("yahoo history")
	return s, nil
}

// Snapshot returns today's open, range, last price and volume.
func (c *Client) Snapshot(ctx context.Context, symbol string) (*Snapshot, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", "1d")
	res, err := c.chart(ctx, symbol, q)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	if last, ok := res.series(symbol, true, false).Last(); ok {
		snap.Open = last.Open
		snap.DayHigh = last.High
		snap.DayLow = last.Low
		snap.LastPrice = last.Close
		snap.LastVolume = last.Volume
	}
	m := res.Meta
	if m.RegularMarketPrice != nil {
		snap.LastPrice = *m.RegularMarketPrice
	}
	if m.RegularMarketDayHigh != nil {
		snap.DayHigh = *m.RegularMarketDayHigh
	}
	if m.RegularMarketDayLow != nil {
		snap.DayLow = *m.RegularMarketDayLow
	}
	if m.RegularMarketVolume != nil {
		snap.LastVolume = *m.RegularMarketVolume
	}
	if snap.LastPrice == 0 {
		return nil, fmt.Errorf("yahoo: no price for %s", symbol)
	}
	return snap, nil
}

func (c *Client) chart(ctx context.Context, symbol string, q url.Values) (*chartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(body, &chart)
	if decodeErr == nil && chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error for %s: %s: %s", symbol, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d for %s", resp.StatusCode, symbol)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("yahoo decode: %w", decodeErr)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", symbol)
	}
	return &chart.Chart.Result[0], nil
}

func (r *chartResult) location() *time.Location {
	if r.Meta.ExchangeTimezoneName == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Meta.ExchangeTimezoneName)
	if err != nil {
		log.WithField("tz", r.Meta.ExchangeTimezoneName).Warn("unknown exchange timezone, using UTC")
		return time.UTC
	}
	return loc
}

func (r *chartResult) series(symbol string, daily, adjust bool) *model.Series {
	loc := r.location()
	s := &model.Series{Ticker: symbol, Location: loc}
	if len(r.Indicators.Quote) == 0 {
		return s
	}
	quote := r.Indicators.Quote[0]
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	for i, ts := range r.Timestamp {
		c := at(quote.Close, i)
		if c == nil {
			continue
		}
		b := model.Bar{
			Time:   time.Unix(ts, 0).In(loc),
			Open:   value(quote.Open, i, *c),
			High:   value(quote.High, i, *c),
			Low:    value(quote.Low, i, *c),
			Close:  *c,
			Volume: value(quote.Volume, i, 0),
		}
		if daily {
			y, m, d := b.Time.Date()
			b.Time = time.Date(y, m, d, 0, 0, 0, 0, loc)
		}
		if ac := at(adj, i); adjust && ac != nil && *c != 0 {
			ratio := *ac / *c
			b.Open *= ratio
			b.High *= ratio
			b.Low *= ratio
			b.Close = *ac
		}
		s.Append(b)
	}
	s.Normalize()
	return s
}

func at(vs []*float64, i int) *float64 {
	if i >= len(vs) {
		return nil
	}
	return vs[i]
}

func value(vs []*float64, i int, fallback float64) float64 {
	if v := at(vs, i); v != nil {
		return *v
	}
	return fallback
}
